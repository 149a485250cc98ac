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

package storage

import (
	"encoding/binary"
	"fmt"
	"sync"

	"vexdb/internal/logging"
	"vexdb/internal/parallel"

	verrors "vexdb/internal/errors"
)

// extentSize is the width of one extent entry in the structure file:
// two little-endian u64 words, start then end.
const extentSize = 16

// Extent is a half-open byte range [Start, End) in the payload area.
type Extent struct {
	Start uint64
	End   uint64
}

// Length returns the number of payload bytes the extent covers.
func (x Extent) Length() uint64 {
	return x.End - x.Start
}

/*
DynamicEngine stores variable-length records across two files. The
structure file is an array of extents:

	[0..8)                    little-endian u64 length
	[8+16i .. 8+16(i+1))      extent for record i: u64 start, u64 end

and the record bodies live in a BlobStore. Appends never reuse payload
space, so extents are non-overlapping and monotonically non-decreasing.

The engine batches deliberately: PushBulk issues ONE blob append for
the whole batch and derives per-record extents by prefix-summing the
encoded lengths, and PullRange reads the whole payload slab with one
blob read and splits it afterwards. Per-record blob I/O is an order of
magnitude slower than the packed form.
*/
type DynamicEngine[T any] struct {
	codec Codec[T]
	file  *FileAccess
	blobs *BlobStore

	mu     sync.Mutex // guards length reservation and extent writes
	length uint64

	log *logging.Logger
}

// OpenDynamic opens (or creates) a dynamic engine over the structure
// file at structPath and the payload file at payloadPath.
func OpenDynamic[T any](structPath, payloadPath string, initialSize uint64, codec Codec[T]) (*DynamicEngine[T], error) {
	file, err := OpenFileAccess(structPath, initialSize)
	if err != nil {
		return nil, err
	}

	blobs, err := OpenBlobStore(payloadPath, initialSize)
	if err != nil {
		return nil, err
	}

	length, err := readLengthHeader(file)
	if err != nil {
		return nil, err
	}

	e := &DynamicEngine[T]{
		codec:  codec,
		file:   file,
		blobs:  blobs,
		length: length,
		log:    logging.NewLogger("dynamic-engine"),
	}
	e.log.Debug("opened", "structure", structPath, "payload", payloadPath, "length", length)
	return e, nil
}

// Len re-reads the authoritative length header.
func (e *DynamicEngine[T]) Len() (uint64, error) {
	return readLengthHeader(e.file)
}

// extentOffset returns the file offset of the extent entry for record i.
func extentOffset(i uint64) uint64 {
	return lengthMarkerSize + i*extentSize
}

func putExtent(buf []byte, x Extent) {
	binary.LittleEndian.PutUint64(buf[0:8], x.Start)
	binary.LittleEndian.PutUint64(buf[8:16], x.End)
}

func getExtent(buf []byte) Extent {
	return Extent{
		Start: binary.LittleEndian.Uint64(buf[0:8]),
		End:   binary.LittleEndian.Uint64(buf[8:16]),
	}
}

// Push appends one record: payload first, then the extent under the
// engine lock, then the advanced length header.
func (e *DynamicEngine[T]) Push(rec T) error {
	data, err := e.codec.Encode(rec)
	if err != nil {
		return verrors.EncodeFailed(0, err)
	}

	start, end, err := e.blobs.Append(data)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	index := e.length
	var buf [extentSize]byte
	putExtent(buf[:], Extent{Start: start, End: end})
	if err := e.file.Write(extentOffset(index), buf[:]); err != nil {
		return err
	}

	e.length++
	if err := writeLengthHeader(e.file, e.length); err != nil {
		e.length = index
		return err
	}
	return nil
}

// PushBulk appends records in order with one blob append and one
// structure-file write. Encoding and extent assembly fan out across the
// worker pool.
func (e *DynamicEngine[T]) PushBulk(recs []T) error {
	if len(recs) == 0 {
		return nil
	}

	blocks, err := parallel.MapErr(recs, func(i int, rec T) ([]byte, error) {
		data, err := e.codec.Encode(rec)
		if err != nil {
			return nil, verrors.EncodeFailed(uint64(i), err)
		}
		return data, nil
	})
	if err != nil {
		return err
	}

	var total uint64
	for _, b := range blocks {
		total += uint64(len(b))
	}
	payload := make([]byte, 0, total)
	for _, b := range blocks {
		payload = append(payload, b...)
	}

	base, _, err := e.blobs.Append(payload)
	if err != nil {
		return err
	}

	// Derive per-record extents by prefix-summing the block lengths
	// from the batch base offset.
	extents := make([]Extent, len(blocks))
	offset := base
	for i, b := range blocks {
		extents[i] = Extent{Start: offset, End: offset + uint64(len(b))}
		offset = extents[i].End
	}

	entries := make([]byte, len(recs)*extentSize)
	_ = parallel.ForEachN(len(extents), func(i int) error {
		putExtent(entries[i*extentSize:(i+1)*extentSize], extents[i])
		return nil
	})

	e.mu.Lock()
	defer e.mu.Unlock()

	index := e.length
	if err := e.file.Write(extentOffset(index), entries); err != nil {
		return err
	}

	e.length += uint64(len(recs))
	if err := writeLengthHeader(e.file, e.length); err != nil {
		e.length = index
		return err
	}
	return nil
}

// readExtents reads and validates count extent entries starting at
// record index.
func (e *DynamicEngine[T]) readExtents(index, count uint64) ([]Extent, error) {
	data, err := e.file.Read(extentOffset(index), count*extentSize)
	if err != nil {
		return nil, err
	}

	highWater := e.blobs.HighWater()
	extents := make([]Extent, count)
	for i := range extents {
		x := getExtent(data[uint64(i)*extentSize:])
		if x.Start > x.End || x.End > highWater {
			return nil, verrors.Corrupt(fmt.Sprintf(
				"extent (%d, %d) of record %d is outside the payload high-water mark %d",
				x.Start, x.End, index+uint64(i), highWater))
		}
		extents[i] = x
	}
	return extents, nil
}

// Pull reads the record at index.
func (e *DynamicEngine[T]) Pull(index uint64) (T, error) {
	var zero T

	length, err := e.Len()
	if err != nil {
		return zero, err
	}
	if index >= length {
		return zero, verrors.IndexPastEnd(index, length)
	}

	extents, err := e.readExtents(index, 1)
	if err != nil {
		return zero, err
	}

	data, err := e.blobs.Read(extents[0].Start, extents[0].Length())
	if err != nil {
		return zero, err
	}

	rec, err := e.codec.Decode(data)
	if err != nil {
		return zero, verrors.DecodeFailed(index, err)
	}
	return rec, nil
}

// PullRange reads count records starting at index: one extent read, one
// payload read covering the union extent, then a parallel split-and-
// decode pass.
func (e *DynamicEngine[T]) PullRange(index, count uint64) ([]T, error) {
	if count == 0 {
		return nil, nil
	}

	length, err := e.Len()
	if err != nil {
		return nil, err
	}
	if index+count > length {
		return nil, verrors.RangePastEnd(index, count, length)
	}

	extents, err := e.readExtents(index, count)
	if err != nil {
		return nil, err
	}

	union := Extent{Start: extents[0].Start, End: extents[count-1].End}
	slab, err := e.blobs.Read(union.Start, union.Length())
	if err != nil {
		return nil, err
	}

	recs := make([]T, count)
	err = parallel.ForEachN(int(count), func(i int) error {
		x := extents[i]
		body := slab[x.Start-union.Start : x.End-union.Start]
		rec, err := e.codec.Decode(body)
		if err != nil {
			return verrors.DecodeFailed(index+uint64(i), err)
		}
		recs[i] = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// Extents returns the raw extent entries for count records starting at
// index, without touching the payload. The dump tool uses this to
// verify monotonicity offline.
func (e *DynamicEngine[T]) Extents(index, count uint64) ([]Extent, error) {
	length, err := e.Len()
	if err != nil {
		return nil, err
	}
	if index+count > length {
		return nil, verrors.RangePastEnd(index, count, length)
	}
	return e.readExtents(index, count)
}
