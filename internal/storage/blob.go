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
	"sync"
)

// highWaterSize is the width of the high-water mark header at the front
// of the payload file.
const highWaterSize = 8

// payloadBase is the file offset of payload byte 0. The byte at offset
// highWaterSize is a reserved pad that is never read back as payload;
// the layout is a stable on-disk contract and must not be compacted.
const payloadBase = highWaterSize + 1

// BlobStore is the append-only payload area backing the dynamic engine.
// Byte runs are appended consecutively and addressed by (start, end)
// extents relative to the high-water mark origin, not to the file.
type BlobStore struct {
	file *FileAccess

	mu        sync.Mutex // guards highWater
	highWater uint64
}

// OpenBlobStore opens (or creates) the payload file at path and loads
// the persisted high-water mark.
func OpenBlobStore(path string, initialSize uint64) (*BlobStore, error) {
	file, err := OpenFileAccess(path, initialSize)
	if err != nil {
		return nil, err
	}

	header, err := file.Read(0, highWaterSize)
	if err != nil {
		return nil, err
	}

	return &BlobStore{
		file:      file,
		highWater: binary.LittleEndian.Uint64(header),
	}, nil
}

// Append writes data after the last payload byte and returns the
// half-open extent [start, end) addressing it. Appends are strictly
// serialized; the new high-water mark is persisted before returning.
func (b *BlobStore) Append(data []byte) (start, end uint64, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	start = b.highWater
	if err := b.file.Write(payloadBase+start, data); err != nil {
		return 0, 0, err
	}

	b.highWater += uint64(len(data))
	end = b.highWater

	var header [highWaterSize]byte
	binary.LittleEndian.PutUint64(header[:], b.highWater)
	if err := b.file.Write(0, header[:]); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// Read returns length payload bytes starting at the given extent start.
// Callers may only read extents returned by a completed Append; beyond
// that, bounds are enforced only by the substrate.
func (b *BlobStore) Read(start, length uint64) ([]byte, error) {
	return b.file.Read(payloadBase+start, length)
}

// HighWater returns the current high-water mark: the offset one past
// the last written payload byte.
func (b *BlobStore) HighWater() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.highWater
}

// Size returns the payload file size in bytes.
func (b *BlobStore) Size() (uint64, error) {
	return b.file.Size()
}

// Path returns the payload file path.
func (b *BlobStore) Path() string {
	return b.file.Path()
}
