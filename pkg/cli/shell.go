/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cli

import (
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// ShellCommand describes one command of an interactive shell.
type ShellCommand struct {
	Name    string
	Help    string
	Handler func(args []string) error
}

// Shell is a readline-driven interactive loop. Commands get their
// whitespace-split arguments; "help", "quit" and "exit" are built in.
type Shell struct {
	prompt   string
	commands []ShellCommand
}

// NewShell creates a shell with the given prompt and command set.
func NewShell(prompt string, commands []ShellCommand) *Shell {
	return &Shell{prompt: prompt, commands: commands}
}

// Run reads and dispatches commands until quit or EOF.
func (s *Shell) Run() error {
	completions := make([]readline.PrefixCompleterInterface, 0, len(s.commands)+2)
	for _, cmd := range s.commands {
		completions = append(completions, readline.PcItem(cmd.Name))
	}
	completions = append(completions, readline.PcItem("help"), readline.PcItem("quit"))

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.prompt,
		AutoComplete:    readline.NewPrefixCompleter(completions...),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "quit", "exit":
			return nil
		case "help":
			s.printHelp()
			continue
		}

		cmd, ok := s.lookup(fields[0])
		if !ok {
			PrintWarning("Unknown command: %s (try 'help')", fields[0])
			continue
		}
		if err := cmd.Handler(fields[1:]); err != nil {
			PrintError("%v", err)
		}
	}
}

func (s *Shell) lookup(name string) (ShellCommand, bool) {
	for _, cmd := range s.commands {
		if cmd.Name == name {
			return cmd, true
		}
	}
	return ShellCommand{}, false
}

func (s *Shell) printHelp() {
	table := NewTable("COMMAND", "DESCRIPTION")
	for _, cmd := range s.commands {
		table.AddRow(cmd.Name, cmd.Help)
	}
	table.AddRow("help", "Show this help")
	table.AddRow("quit", "Leave the shell")
	table.Print()
}
