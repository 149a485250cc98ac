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

/*
vexdb-dump inspects VexDB store files offline.

The tool opens a store's structure file (and payload file, for dynamic
stores) read-only and presents raw record bytes; it needs no codec.

Usage:

	vexdb-dump -file stat.bin -stride 32 -info
	vexdb-dump -file dyn.bin -payload dynp.bin -records 100:10
	vexdb-dump -file dyn.bin -payload dynp.bin -verify
	vexdb-dump -file dyn.bin -payload dynp.bin -export out.vexd -compress zstd
	vexdb-dump -file stat.bin -stride 32 -shell
*/
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"vexdb/internal/compression"
	"vexdb/internal/storage"
	"vexdb/pkg/cli"
)

var (
	structFile  = flag.String("file", "", "structure file path (required)")
	payloadFile = flag.String("payload", "", "payload file path (marks the store dynamic)")
	stride      = flag.Uint64("stride", 0, "record stride in bytes (static stores)")
	showInfo    = flag.Bool("info", false, "print store summary")
	recordsSpec = flag.String("records", "", "record range to list, as start:count")
	verify      = flag.Bool("verify", false, "check structural invariants")
	exportPath  = flag.String("export", "", "export raw records to a file")
	compressStr = flag.String("compress", "none", "export compression: none, gzip, lz4, snappy, zstd")
	shellMode   = flag.Bool("shell", false, "interactive inspection shell")
	format      = flag.String("format", "table", "output format: table, json, plain")
	noColor     = flag.Bool("no-color", false, "disable colored output")
)

// exportMagic heads every export file, followed by a version byte and
// the little-endian record count.
var exportMagic = []byte("VEXD")

const exportVersion = 0x01

// rawRecords passes stored bytes through unchanged so the dump tool
// can open any store without knowing its record type.
type rawRecords struct{}

func (rawRecords) Encode(b []byte) ([]byte, error) { return b, nil }
func (rawRecords) Decode(b []byte) ([]byte, error) {
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// rawFixed is rawRecords with a declared stride for static stores.
type rawFixed struct {
	rawRecords
	stride int
}

func (r rawFixed) Stride() int { return r.stride }

// inspector wraps whichever engine flavor the flags selected.
type inspector struct {
	dynamic bool
	static  *storage.StaticEngine[[]byte]
	dyn     *storage.DynamicEngine[[]byte]
	stride  uint64
}

func openInspector() (*inspector, error) {
	if *structFile == "" {
		return nil, fmt.Errorf("-file is required")
	}

	// An inspector must never create store files on a mistyped path.
	if _, err := os.Stat(*structFile); err != nil {
		return nil, fmt.Errorf("structure file %s: %w", *structFile, err)
	}
	if *payloadFile != "" {
		if _, err := os.Stat(*payloadFile); err != nil {
			return nil, fmt.Errorf("payload file %s: %w", *payloadFile, err)
		}
	}

	if *payloadFile != "" {
		e, err := storage.OpenDynamic[[]byte](*structFile, *payloadFile, 1024, rawRecords{})
		if err != nil {
			return nil, err
		}
		return &inspector{dynamic: true, dyn: e}, nil
	}

	if *stride == 0 {
		return nil, fmt.Errorf("static stores need -stride (or pass -payload for a dynamic store)")
	}
	e, err := storage.OpenStatic[[]byte](*structFile, 1024, rawFixed{stride: int(*stride)})
	if err != nil {
		return nil, err
	}
	return &inspector{static: e, stride: *stride}, nil
}

func (ins *inspector) len() (uint64, error) {
	if ins.dynamic {
		return ins.dyn.Len()
	}
	return ins.static.Len()
}

func (ins *inspector) pullRange(index, count uint64) ([][]byte, error) {
	if ins.dynamic {
		return ins.dyn.PullRange(index, count)
	}
	return ins.static.PullRange(index, count)
}

// parseRange parses a "start:count" record range specification.
func parseRange(spec string) (start, count uint64, err error) {
	startStr, countStr, found := strings.Cut(spec, ":")
	if !found {
		return 0, 0, fmt.Errorf("invalid range %q: want start:count", spec)
	}
	start, err = strconv.ParseUint(strings.TrimSpace(startStr), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range start %q", startStr)
	}
	count, err = strconv.ParseUint(strings.TrimSpace(countStr), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range count %q", countStr)
	}
	if count == 0 {
		return 0, 0, fmt.Errorf("range count must be positive")
	}
	return start, count, nil
}

// formatFileSize renders a byte count in human-readable form.
func formatFileSize(size int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case size >= gb:
		return fmt.Sprintf("%.2f GB", float64(size)/float64(gb))
	case size >= mb:
		return fmt.Sprintf("%.2f MB", float64(size)/float64(mb))
	case size >= kb:
		return fmt.Sprintf("%.2f KB", float64(size)/float64(kb))
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}

// hexPreview renders up to max bytes of b as hex, with an ellipsis when
// truncated.
func hexPreview(b []byte, max int) string {
	truncated := false
	if len(b) > max {
		b = b[:max]
		truncated = true
	}
	var sb strings.Builder
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02x", c)
	}
	if truncated {
		sb.WriteString(" ...")
	}
	return sb.String()
}

func runInfo(ins *inspector) error {
	length, err := ins.len()
	if err != nil {
		return err
	}

	info, err := os.Stat(*structFile)
	if err != nil {
		return err
	}

	table := cli.NewTable("FIELD", "VALUE")
	table.SetFormat(cli.ParseOutputFormat(*format))
	table.AddRow("structure file", *structFile)
	table.AddRow("records", fmt.Sprintf("%d", length))
	table.AddRow("structure size", formatFileSize(info.Size()))

	if ins.dynamic {
		pinfo, err := os.Stat(*payloadFile)
		if err != nil {
			return err
		}
		table.AddRow("kind", "dynamic")
		table.AddRow("payload file", *payloadFile)
		table.AddRow("payload size", formatFileSize(pinfo.Size()))

		if length > 0 {
			extents, err := ins.dyn.Extents(0, length)
			if err != nil {
				return err
			}
			var total, maxLen uint64
			minLen := extents[0].Length()
			for _, x := range extents {
				l := x.Length()
				total += l
				if l < minLen {
					minLen = l
				}
				if l > maxLen {
					maxLen = l
				}
			}
			table.AddRow("payload bytes", fmt.Sprintf("%d", total))
			table.AddRow("record bytes min/avg/max", fmt.Sprintf("%d / %d / %d",
				minLen, total/length, maxLen))
		}
	} else {
		table.AddRow("kind", "static")
		table.AddRow("stride", fmt.Sprintf("%d", ins.stride))
	}

	table.Print()
	return nil
}

func runRecords(ins *inspector, spec string) error {
	start, count, err := parseRange(spec)
	if err != nil {
		return err
	}

	recs, err := ins.pullRange(start, count)
	if err != nil {
		return err
	}

	table := cli.NewTable("INDEX", "BYTES", "PREVIEW")
	table.SetFormat(cli.ParseOutputFormat(*format))
	for i, rec := range recs {
		table.AddRow(
			fmt.Sprintf("%d", start+uint64(i)),
			fmt.Sprintf("%d", len(rec)),
			hexPreview(rec, 24),
		)
	}
	table.Print()
	return nil
}

func runVerify(ins *inspector) error {
	length, err := ins.len()
	if err != nil {
		return err
	}

	violations := 0

	if ins.dynamic {
		if length > 0 {
			extents, err := ins.dyn.Extents(0, length)
			if err != nil {
				return err
			}
			for i, x := range extents {
				if x.Start > x.End {
					cli.PrintError("record %d: inverted extent (%d, %d)", i, x.Start, x.End)
					violations++
				}
				if i+1 < len(extents) && x.End > extents[i+1].Start {
					cli.PrintError("records %d/%d: overlapping extents", i, i+1)
					violations++
				}
			}
		}
	} else {
		info, err := os.Stat(*structFile)
		if err != nil {
			return err
		}
		need := int64(8 + length*ins.stride)
		if info.Size() < need {
			cli.PrintError("structure file holds %d bytes but %d records need %d",
				info.Size(), length, need)
			violations++
		}
	}

	if violations == 0 {
		cli.PrintSuccess("%d records verified, no violations", length)
		return nil
	}
	return fmt.Errorf("%d violation(s) found", violations)
}

func runExport(ins *inspector, path string) error {
	if _, err := os.Stat(path); err == nil {
		if !cli.ConfirmDestructive(fmt.Sprintf("The export will replace %s", path), "overwrite") {
			return fmt.Errorf("export aborted")
		}
	}

	algo, err := compression.ParseAlgorithm(*compressStr)
	if err != nil {
		return err
	}
	comp, err := compression.NewCompressor(compression.Config{Algorithm: algo, MinSize: 64})
	if err != nil {
		return err
	}

	length, err := ins.len()
	if err != nil {
		return err
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	header := make([]byte, 0, len(exportMagic)+1+8)
	header = append(header, exportMagic...)
	header = append(header, exportVersion)
	header = binary.LittleEndian.AppendUint64(header, length)
	if _, err := out.Write(header); err != nil {
		return err
	}

	spinner := cli.NewSpinner(fmt.Sprintf("Exporting %d records", length))
	spinner.Start()

	// Walk the store in slabs so giant stores never materialize at once.
	const slab = 8192
	var written uint64
	for index := uint64(0); index < length; index += slab {
		count := uint64(slab)
		if index+count > length {
			count = length - index
		}
		recs, err := ins.pullRange(index, count)
		if err != nil {
			spinner.StopWithError(fmt.Sprintf("export failed at record %d", index))
			return err
		}
		for _, rec := range recs {
			frame, err := comp.Compress(rec)
			if err != nil {
				spinner.StopWithError("compression failed")
				return err
			}
			var lenBuf [4]byte
			binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(frame)))
			if _, err := out.Write(lenBuf[:]); err != nil {
				return err
			}
			if _, err := out.Write(frame); err != nil {
				return err
			}
			written++
		}
		spinner.UpdateMessage(fmt.Sprintf("Exporting %d/%d records", written, length))
	}

	spinner.StopWithSuccess(fmt.Sprintf("Exported %d records to %s (%s)", written, path, algo))
	return nil
}

func runShell(ins *inspector) error {
	commands := []cli.ShellCommand{
		{
			Name: "info",
			Help: "Show the store summary",
			Handler: func(args []string) error {
				return runInfo(ins)
			},
		},
		{
			Name: "get",
			Help: "get <index> - show one record",
			Handler: func(args []string) error {
				if len(args) != 1 {
					return fmt.Errorf("usage: get <index>")
				}
				index, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid index %q", args[0])
				}
				recs, err := ins.pullRange(index, 1)
				if err != nil {
					return err
				}
				cli.KeyValue("bytes", fmt.Sprintf("%d", len(recs[0])), 8)
				cli.KeyValue("hex", hexPreview(recs[0], 64), 8)
				return nil
			},
		},
		{
			Name: "range",
			Help: "range <start> <count> - list records",
			Handler: func(args []string) error {
				if len(args) != 2 {
					return fmt.Errorf("usage: range <start> <count>")
				}
				return runRecords(ins, args[0]+":"+args[1])
			},
		},
		{
			Name: "verify",
			Help: "Check structural invariants",
			Handler: func(args []string) error {
				return runVerify(ins)
			},
		},
	}

	kind := "static"
	if ins.dynamic {
		kind = "dynamic"
	}
	cli.PrintInfo("Inspecting %s store %s", kind, cli.Highlight(*structFile))
	fmt.Println(cli.Dimmed("type 'help' for commands, 'quit' to leave"))
	return cli.NewShell("vexdb> ", commands).Run()
}

func main() {
	flag.Parse()
	if *noColor {
		cli.SetColorsEnabled(false)
	}

	ins, err := openInspector()
	if err != nil {
		cli.PrintError("%v", err)
		os.Exit(1)
	}

	ran := false
	fail := func(err error) {
		cli.PrintError("%v", err)
		os.Exit(1)
	}

	if *showInfo {
		ran = true
		if err := runInfo(ins); err != nil {
			fail(err)
		}
	}
	if *recordsSpec != "" {
		ran = true
		if err := runRecords(ins, *recordsSpec); err != nil {
			fail(err)
		}
	}
	if *verify {
		ran = true
		if err := runVerify(ins); err != nil {
			fail(err)
		}
	}
	if *exportPath != "" {
		ran = true
		if err := runExport(ins, *exportPath); err != nil {
			fail(err)
		}
	}
	if *shellMode {
		ran = true
		if err := runShell(ins); err != nil {
			fail(err)
		}
	}

	if !ran {
		flag.Usage()
		os.Exit(2)
	}
}
