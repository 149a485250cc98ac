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
vexdb-bench drives a store end to end and reports throughput.

It opens a store in a scratch directory, appends -count records in
-bulk sized batches through the write buffer, waits for the flusher to
drain, then replays -reads random point reads and one full range read.

Usage:

	vexdb-bench -count 1000000 -bulk 10000 -reads 100000
	vexdb-bench -dynamic -count 200000
*/
package main

import (
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"vexdb/internal/config"
	"vexdb/internal/logging"
	"vexdb/internal/store"
	"vexdb/pkg/cli"
)

var (
	dataDir   = flag.String("data", "", "data directory (default: a temp directory)")
	count     = flag.Uint64("count", 1000000, "records to append")
	bulk      = flag.Uint64("bulk", 10000, "records per bulk append")
	reads     = flag.Uint64("reads", 100000, "random point reads to replay")
	dynamic   = flag.Bool("dynamic", false, "use the dynamic engine")
	keepFiles = flag.Bool("keep", false, "keep the data files afterwards")
	noColor   = flag.Bool("no-color", false, "disable colored output")
)

// benchRecord is the fixed-width demo record.
type benchRecord struct {
	Seq   uint64
	Stamp uint64
	Value uint64
}

type benchCodec struct{}

func (benchCodec) Encode(r benchRecord) ([]byte, error) {
	buf := make([]byte, 24)
	binary.LittleEndian.PutUint64(buf[0:8], r.Seq)
	binary.LittleEndian.PutUint64(buf[8:16], r.Stamp)
	binary.LittleEndian.PutUint64(buf[16:24], r.Value)
	return buf, nil
}

func (benchCodec) Decode(data []byte) (benchRecord, error) {
	if len(data) < 24 {
		return benchRecord{}, errors.New("bench: truncated record")
	}
	return benchRecord{
		Seq:   binary.LittleEndian.Uint64(data[0:8]),
		Stamp: binary.LittleEndian.Uint64(data[8:16]),
		Value: binary.LittleEndian.Uint64(data[16:24]),
	}, nil
}

func (benchCodec) Stride() int { return 32 }

// benchNote is the variable-width demo record.
type benchNote struct {
	Seq  uint64
	Body string
}

type benchNoteCodec struct{}

func (benchNoteCodec) Encode(n benchNote) ([]byte, error) {
	buf := make([]byte, 8+len(n.Body))
	binary.LittleEndian.PutUint64(buf[0:8], n.Seq)
	copy(buf[8:], n.Body)
	return buf, nil
}

func (benchNoteCodec) Decode(data []byte) (benchNote, error) {
	if len(data) < 8 {
		return benchNote{}, errors.New("bench: truncated record")
	}
	return benchNote{
		Seq:  binary.LittleEndian.Uint64(data[0:8]),
		Body: string(data[8:]),
	}, nil
}

// vector is the slice of Store methods the benchmark needs, so the
// static and dynamic runs share one driver.
type vector[T any] interface {
	Push(T)
	PushBulk([]T)
	Len() (uint64, error)
	BaseLen() (uint64, error)
	Pull(uint64) (T, error)
	PullRange(uint64, uint64) ([]T, error)
	Flush() error
	Close() error
}

func main() {
	flag.Parse()
	if *noColor {
		cli.SetColorsEnabled(false)
	}

	mgr := config.Global()
	if err := mgr.LoadFromEnv(); err != nil {
		cli.PrintError("%v", err)
		os.Exit(1)
	}
	cfg := mgr.Get()
	logging.SetGlobalLevel(logging.ParseLevel(cfg.LogLevel))
	logging.SetJSONMode(cfg.LogJSON)

	dir := *dataDir
	if dir == "" {
		var err error
		dir, err = os.MkdirTemp("", "vexdb-bench-*")
		if err != nil {
			cli.PrintError("unable to create scratch directory: %v", err)
			os.Exit(1)
		}
		if !*keepFiles {
			defer os.RemoveAll(dir)
		}
	} else if _, err := os.Stat(filepath.Join(dir, "bench.bin")); err == nil {
		// Appending into an existing store skews the numbers; make the
		// operator opt in.
		if !cli.PromptYesNo(fmt.Sprintf("%s already holds bench data; append to it?", dir), false) {
			cli.PrintInfo("Aborted; point -data at an empty directory")
			return
		}
	}

	fmt.Println(cli.DoubleSeparator(56))
	fmt.Printf("  %s  %s\n", cli.Highlight("vexdb-bench"),
		cli.Dimmed(fmt.Sprintf("count=%d bulk=%d reads=%d dynamic=%v", *count, *bulk, *reads, *dynamic)))
	fmt.Println(cli.DoubleSeparator(56))

	var err error
	if *dynamic {
		var s *store.Store[benchNote]
		s, err = store.OpenDynamic[benchNote](
			filepath.Join(dir, "bench.bin"),
			filepath.Join(dir, "benchp.bin"),
			1024*1024, benchNoteCodec{}, cfg)
		if err == nil {
			err = run[benchNote](s, func(i uint64) benchNote {
				return benchNote{Seq: i, Body: fmt.Sprintf("note %d: %x", i, i*2654435761)}
			})
		}
	} else {
		var s *store.Store[benchRecord]
		s, err = store.OpenStatic[benchRecord](
			filepath.Join(dir, "bench.bin"),
			1024*1024, benchCodec{}, cfg)
		if err == nil {
			err = run[benchRecord](s, func(i uint64) benchRecord {
				return benchRecord{Seq: i, Stamp: i * 31, Value: i * 7}
			})
		}
	}
	if err != nil {
		cli.PrintError("%v", err)
		os.Exit(1)
	}

	if *keepFiles {
		cli.PrintInfo("Data files kept in %s", dir)
	}
}

func run[T any](s vector[T], makeRecord func(i uint64) T) error {
	defer s.Close()

	// Carriage-return animations are garbage in piped output; the
	// colors switch already tracks both -no-color and non-TTY stdout.
	animate := cli.ColorsEnabled()

	results := cli.NewTable("PHASE", "RECORDS", "ELAPSED", "RATE")

	// Append phase.
	bar := cli.NewProgressBar(int(*count), "Appending")
	appendStart := time.Now()

	batch := make([]T, 0, *bulk)
	for i := uint64(0); i < *count; i++ {
		batch = append(batch, makeRecord(i))
		if uint64(len(batch)) == *bulk {
			s.PushBulk(batch)
			batch = batch[:0]
			if animate {
				bar.Update(int(i + 1))
			}
		}
	}
	if len(batch) > 0 {
		s.PushBulk(batch)
	}
	if animate {
		bar.Complete()
	}
	appendElapsed := time.Since(appendStart)
	cli.PrintSuccess("Appended %d records in %s", *count, appendElapsed.Round(time.Millisecond))
	addResult(results, "append", *count, appendElapsed)

	// Drain phase: force out the whole tail (Flush waits behind any drain
	// the background flusher has in flight), then wait until the engine
	// reports every record.
	spinner := cli.NewSpinner("Draining the write buffer")
	if animate {
		spinner.Start()
	}
	drainStart := time.Now()
	if err := s.Flush(); err != nil {
		spinner.StopWithError("flush failed")
		return err
	}
	for {
		base, err := s.BaseLen()
		if err != nil {
			spinner.StopWithError("flush failed")
			return err
		}
		if base >= *count {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	drainElapsed := time.Since(drainStart)
	spinner.StopWithSuccess(fmt.Sprintf("Flushed in %s", drainElapsed.Round(time.Millisecond)))
	addResult(results, "flush wait", *count, drainElapsed)

	// Point-read phase.
	spinner = cli.NewSpinner(fmt.Sprintf("Replaying %d point reads", *reads))
	if animate {
		spinner.Start()
	}
	rng := rand.New(rand.NewSource(1))
	readStart := time.Now()
	for i := uint64(0); i < *reads; i++ {
		if _, err := s.Pull(uint64(rng.Int63n(int64(*count)))); err != nil {
			spinner.StopWithError("point read failed")
			return err
		}
	}
	readElapsed := time.Since(readStart)
	spinner.StopWithSuccess(fmt.Sprintf("Replayed %d reads in %s", *reads, readElapsed.Round(time.Millisecond)))
	addResult(results, "point reads", *reads, readElapsed)

	// Range-read phase.
	spinner = cli.NewSpinner("Reading the full range")
	if animate {
		spinner.Start()
	}
	rangeStart := time.Now()
	recs, err := s.PullRange(0, *count)
	if err != nil {
		spinner.StopWithError("range read failed")
		return err
	}
	rangeElapsed := time.Since(rangeStart)
	spinner.StopWithSuccess(fmt.Sprintf("Read %d records in %s", len(recs), rangeElapsed.Round(time.Millisecond)))
	addResult(results, "range read", uint64(len(recs)), rangeElapsed)

	fmt.Println()
	fmt.Println(cli.Separator(56))
	results.Print()
	return nil
}

func addResult(table *cli.Table, phase string, records uint64, elapsed time.Duration) {
	rate := "-"
	if elapsed > 0 {
		rate = fmt.Sprintf("%.0f rec/s", float64(records)/elapsed.Seconds())
	}
	table.AddRow(phase, fmt.Sprintf("%d", records), elapsed.Round(time.Millisecond).String(), rate)
}
