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
)

// lengthMarkerSize is the width of the length header at the front of
// every structure file.
const lengthMarkerSize = 8

// Engine is the capability set shared by the static and dynamic
// engines. The caching layers are generic over it: anything that can
// append records, report its length, and read single records and ranges
// can sit under a read cache, a write buffer, or the composed store.
//
// Appends assign monotonically increasing indices starting at zero;
// indices are never reused or removed. Every method is safe for
// concurrent use.
type Engine[T any] interface {
	// Len returns the authoritative record count from the length header.
	Len() (uint64, error)

	// Push appends a single record.
	Push(rec T) error

	// PushBulk appends records in order, as one write per backing file.
	PushBulk(recs []T) error

	// Pull reads the record at index.
	Pull(index uint64) (T, error)

	// PullRange reads count records starting at index, in one pass over
	// each backing file.
	PullRange(index, count uint64) ([]T, error)
}

// readLengthHeader decodes a structure-file length header.
func readLengthHeader(file *FileAccess) (uint64, error) {
	buf, err := file.Read(0, lengthMarkerSize)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

// writeLengthHeader persists a structure-file length header.
func writeLengthHeader(file *FileAccess, length uint64) error {
	var buf [lengthMarkerSize]byte
	binary.LittleEndian.PutUint64(buf[:], length)
	return file.Write(0, buf[:])
}
