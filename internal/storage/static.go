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
	"sync"

	"vexdb/internal/logging"
	"vexdb/internal/parallel"

	verrors "vexdb/internal/errors"
)

/*
StaticEngine stores fixed-stride records in a single structure file:

	[0..8)       little-endian u64 length
	[8..)        record slots, S(T) bytes each; slot i at 8 + i*S(T)

An encoding shorter than the stride is zero-padded on the right, which
permits records whose serialized form is shorter than the in-memory
footprint. The codec must accept those pad bytes on decode.

Appends reserve first and write second: the length header is advanced
and persisted before the slot bytes land. A crash between the two can
leave the header pointing at an unwritten slot; crash-safe durability
is out of scope, and the ordering buys a single lock section per
append.
*/
type StaticEngine[T any] struct {
	codec  FixedCodec[T]
	stride uint64
	file   *FileAccess

	mu     sync.Mutex // guards length reservation
	length uint64

	log *logging.Logger
}

// OpenStatic opens (or creates) a static engine over the structure file
// at path.
func OpenStatic[T any](path string, initialSize uint64, codec FixedCodec[T]) (*StaticEngine[T], error) {
	if codec.Stride() <= 0 {
		return nil, verrors.NewConfigError("codec stride must be positive")
	}

	file, err := OpenFileAccess(path, initialSize)
	if err != nil {
		return nil, err
	}

	length, err := readLengthHeader(file)
	if err != nil {
		return nil, err
	}

	e := &StaticEngine[T]{
		codec:  codec,
		stride: uint64(codec.Stride()),
		file:   file,
		length: length,
		log:    logging.NewLogger("static-engine"),
	}
	e.log.Debug("opened", "path", path, "length", length, "stride", e.stride)
	return e, nil
}

// Len re-reads the authoritative length header.
func (e *StaticEngine[T]) Len() (uint64, error) {
	return readLengthHeader(e.file)
}

// slotOffset returns the file offset of record slot i.
func (e *StaticEngine[T]) slotOffset(i uint64) uint64 {
	return lengthMarkerSize + i*e.stride
}

// encodeSlot encodes rec into a zero-padded slot buffer.
func (e *StaticEngine[T]) encodeSlot(index uint64, rec T) ([]byte, error) {
	data, err := e.codec.Encode(rec)
	if err != nil {
		return nil, verrors.EncodeFailed(index, err)
	}
	if uint64(len(data)) > e.stride {
		return nil, verrors.StrideExceeded(index, len(data), int(e.stride))
	}
	if uint64(len(data)) == e.stride {
		return data, nil
	}
	slot := make([]byte, e.stride)
	copy(slot, data)
	return slot, nil
}

// reserve claims count consecutive slots and persists the advanced
// length header, returning the first claimed index.
func (e *StaticEngine[T]) reserve(count uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	index := e.length
	e.length += count
	if err := writeLengthHeader(e.file, e.length); err != nil {
		e.length = index
		return 0, err
	}
	return index, nil
}

// Push appends one record.
func (e *StaticEngine[T]) Push(rec T) error {
	slot, err := e.encodeSlot(0, rec)
	if err != nil {
		return err
	}

	index, err := e.reserve(1)
	if err != nil {
		return err
	}
	return e.file.Write(e.slotOffset(index), slot)
}

// PushBulk appends records in order with a single structure-file write.
// Encoding and slot assembly fan out across the worker pool.
func (e *StaticEngine[T]) PushBulk(recs []T) error {
	if len(recs) == 0 {
		return nil
	}

	buf := make([]byte, uint64(len(recs))*e.stride)
	err := parallel.ForEachN(len(recs), func(i int) error {
		slot, err := e.encodeSlot(uint64(i), recs[i])
		if err != nil {
			return err
		}
		copy(buf[uint64(i)*e.stride:], slot)
		return nil
	})
	if err != nil {
		return err
	}

	index, err := e.reserve(uint64(len(recs)))
	if err != nil {
		return err
	}
	return e.file.Write(e.slotOffset(index), buf)
}

// Pull reads the record at index.
func (e *StaticEngine[T]) Pull(index uint64) (T, error) {
	var zero T

	length, err := e.Len()
	if err != nil {
		return zero, err
	}
	if index >= length {
		return zero, verrors.IndexPastEnd(index, length)
	}

	data, err := e.file.Read(e.slotOffset(index), e.stride)
	if err != nil {
		return zero, err
	}

	rec, err := e.codec.Decode(data)
	if err != nil {
		return zero, verrors.DecodeFailed(index, err)
	}
	return rec, nil
}

// PullRange reads count records starting at index with a single
// structure-file read, decoding slots in parallel.
func (e *StaticEngine[T]) PullRange(index, count uint64) ([]T, error) {
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

	data, err := e.file.Read(e.slotOffset(index), count*e.stride)
	if err != nil {
		return nil, err
	}

	recs := make([]T, count)
	err = parallel.ForEachN(int(count), func(i int) error {
		slot := data[uint64(i)*e.stride : uint64(i+1)*e.stride]
		rec, err := e.codec.Decode(slot)
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
