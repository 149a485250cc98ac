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
Package storage implements the VexDB storage engines.

Layering, bottom-up:

	┌─────────────────────────────────────────────────────────────┐
	│              StaticEngine[T] / DynamicEngine[T]             │
	│        (fixed-stride slots / extent index + payload)        │
	└─────────────────────────────────────────────────────────────┘
	                  │                          │
	                  ▼                          ▼
	┌──────────────────────────┐   ┌─────────────────────────────┐
	│        FileAccess        │   │          BlobStore          │
	│  (offset-addressed I/O,  │   │  (append-only payload runs, │
	│   auto-growing file)     │   │   high-water mark header)   │
	└──────────────────────────┘   └─────────────────────────────┘

Both engines present the same append/read contract (the Engine
interface); the caching layers above are generic over it.
*/
package storage

import (
	"io"
	"os"
	"sync"

	verrors "vexdb/internal/errors"
)

// FileAccess provides offset-addressed byte I/O on a single regular
// file, growing the file by doubling whenever a write lands past the
// current size. Callers never see short writes due to file length.
//
// The size lock only serializes the grow decision. The read and write
// system calls themselves run on fresh descriptors, so reads proceed
// concurrently with each other and with writes.
type FileAccess struct {
	path string

	mu   sync.Mutex // guards size
	size uint64
}

// OpenFileAccess opens the file at path, creating it with initialSize
// zeroed bytes if it does not exist.
func OpenFileAccess(path string, initialSize uint64) (*FileAccess, error) {
	if initialSize == 0 {
		return nil, verrors.InvalidInitialSize(initialSize)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, verrors.OpenFailed(path, err)
		}
		if err := f.Truncate(int64(initialSize)); err != nil {
			f.Close()
			return nil, verrors.GrowFailed(path, initialSize, err)
		}
		if err := f.Close(); err != nil {
			return nil, verrors.NewOSError("unable to close file", err).WithDetail(path)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, verrors.StatFailed(path, err)
	}

	return &FileAccess{
		path: path,
		size: uint64(info.Size()),
	}, nil
}

// Path returns the backing file path.
func (f *FileAccess) Path() string {
	return f.path
}

// Write places data at the given byte offset, doubling the file size
// until the write fits. Writes are positional; there is no cursor.
func (f *FileAccess) Write(offset uint64, data []byte) error {
	if err := f.growFor(offset, uint64(len(data))); err != nil {
		return err
	}

	fh, err := os.OpenFile(f.path, os.O_WRONLY, 0644)
	if err != nil {
		return verrors.OpenFailed(f.path, err)
	}
	defer fh.Close()

	n, err := fh.WriteAt(data, int64(offset))
	if err != nil {
		return verrors.NewOSError("unable to write data", err).WithDetail(f.path)
	}
	if n != len(data) {
		return verrors.ShortWrite(len(data), n)
	}
	return nil
}

// growFor doubles the file until [offset, offset+length) fits, under
// the size lock.
func (f *FileAccess) growFor(offset, length uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if offset+length <= f.size {
		return nil
	}

	fh, err := os.OpenFile(f.path, os.O_WRONLY, 0644)
	if err != nil {
		return verrors.OpenFailed(f.path, err)
	}
	defer fh.Close()

	for offset+length > f.size {
		next := f.size * 2
		if err := fh.Truncate(int64(next)); err != nil {
			return verrors.GrowFailed(f.path, next, err)
		}
		f.size = next
	}
	return nil
}

// Read returns exactly length bytes starting at offset. The cached size
// is re-synced from the filesystem here, and a read past the actual
// file size fails.
func (f *FileAccess) Read(offset, length uint64) ([]byte, error) {
	size, err := f.syncSize()
	if err != nil {
		return nil, err
	}
	if offset+length > size {
		return nil, verrors.ReadPastSize(offset, length, size)
	}

	fh, err := os.Open(f.path)
	if err != nil {
		return nil, verrors.OpenFailed(f.path, err)
	}
	defer fh.Close()

	buf := make([]byte, length)
	n, err := fh.ReadAt(buf, int64(offset))
	if err != nil && err != io.EOF {
		return nil, verrors.NewOSError("unable to read data", err).WithDetail(f.path)
	}
	if uint64(n) != length {
		return nil, verrors.ShortRead(int(length), n)
	}
	return buf, nil
}

// Size re-queries and returns the current file size.
func (f *FileAccess) Size() (uint64, error) {
	return f.syncSize()
}

func (f *FileAccess) syncSize() (uint64, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return 0, verrors.StatFailed(f.path, err)
	}

	f.mu.Lock()
	f.size = uint64(info.Size())
	size := f.size
	f.mu.Unlock()
	return size, nil
}
