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
Package compression provides configurable compression for VexDB.

It serves the offline surfaces — record exports written by vexdb-dump —
and never touches the store's on-disk layout, which is a stable
contract.

Supported Algorithms:
=====================

 1. LZ4: Fast compression/decompression, moderate ratio
 2. Snappy: Very fast, lower ratio, good for real-time
 3. Zstd: Best ratio, configurable speed/ratio tradeoff
 4. Gzip: Ubiquitous, slower; kept for interoperability

Frame Format:
=============

	+--------+----------------+----------------...
	| Algo   |  Raw size (8B) | Compressed payload
	+--------+----------------+----------------...

	- Algo (1 byte): algorithm identifier (0 = stored uncompressed)
	- Raw size (8 bytes): uncompressed length, little-endian
	- Payload: algorithm-specific compressed bytes

Inputs below the configured minimum size are stored uncompressed under
the none algorithm, whatever the configured algorithm.
*/
package compression

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm represents a compression algorithm
type Algorithm byte

const (
	AlgorithmNone Algorithm = iota
	AlgorithmGzip
	AlgorithmLZ4
	AlgorithmSnappy
	AlgorithmZstd
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmNone:
		return "none"
	case AlgorithmGzip:
		return "gzip"
	case AlgorithmLZ4:
		return "lz4"
	case AlgorithmSnappy:
		return "snappy"
	case AlgorithmZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// ParseAlgorithm parses a compression algorithm from string
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "none", "":
		return AlgorithmNone, nil
	case "gzip":
		return AlgorithmGzip, nil
	case "lz4":
		return AlgorithmLZ4, nil
	case "snappy":
		return AlgorithmSnappy, nil
	case "zstd":
		return AlgorithmZstd, nil
	default:
		return AlgorithmNone, fmt.Errorf("unknown compression algorithm: %s", s)
	}
}

// headerSize is the frame header width: one algorithm byte plus the
// 8-byte raw size.
const headerSize = 9

// Config holds compression configuration
type Config struct {
	Algorithm Algorithm `json:"algorithm"`
	MinSize   int       `json:"min_size"` // Minimum size to compress
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Algorithm: AlgorithmZstd,
		MinSize:   256,
	}
}

// Errors
var (
	ErrInvalidHeader    = errors.New("invalid compression header")
	ErrUnsupportedAlgo  = errors.New("unsupported compression algorithm")
	ErrDecompressFailed = errors.New("decompression failed")
)

// Compressor provides compression/decompression operations
type Compressor struct {
	config     Config
	gzipPool   sync.Pool
	bufferPool sync.Pool

	zstdEnc *zstd.Encoder
	zstdDec *zstd.Decoder
}

// NewCompressor creates a new compressor
func NewCompressor(config Config) (*Compressor, error) {
	zstdEnc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	zstdDec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}

	return &Compressor{
		config: config,
		gzipPool: sync.Pool{
			New: func() interface{} {
				return gzip.NewWriter(nil)
			},
		},
		bufferPool: sync.Pool{
			New: func() interface{} {
				return new(bytes.Buffer)
			},
		},
		zstdEnc: zstdEnc,
		zstdDec: zstdDec,
	}, nil
}

// Compress frames and compresses data with the configured algorithm.
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	algo := c.config.Algorithm
	if len(data) < c.config.MinSize {
		algo = AlgorithmNone
	}

	var payload []byte
	switch algo {
	case AlgorithmNone:
		payload = data
	case AlgorithmGzip:
		buf := c.bufferPool.Get().(*bytes.Buffer)
		buf.Reset()
		zw := c.gzipPool.Get().(*gzip.Writer)
		zw.Reset(buf)
		if _, err := zw.Write(data); err != nil {
			c.gzipPool.Put(zw)
			c.bufferPool.Put(buf)
			return nil, err
		}
		if err := zw.Close(); err != nil {
			c.gzipPool.Put(zw)
			c.bufferPool.Put(buf)
			return nil, err
		}
		payload = append([]byte(nil), buf.Bytes()...)
		c.gzipPool.Put(zw)
		c.bufferPool.Put(buf)
	case AlgorithmLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, dst, nil)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			// Incompressible input; store it raw.
			algo = AlgorithmNone
			payload = data
		} else {
			payload = dst[:n]
		}
	case AlgorithmSnappy:
		payload = snappy.Encode(nil, data)
	case AlgorithmZstd:
		payload = c.zstdEnc.EncodeAll(data, nil)
	default:
		return nil, ErrUnsupportedAlgo
	}

	out := make([]byte, headerSize+len(payload))
	out[0] = byte(algo)
	binary.LittleEndian.PutUint64(out[1:headerSize], uint64(len(data)))
	copy(out[headerSize:], payload)
	return out, nil
}

// Decompress reverses Compress.
func (c *Compressor) Decompress(frame []byte) ([]byte, error) {
	if len(frame) < headerSize {
		return nil, ErrInvalidHeader
	}
	algo := Algorithm(frame[0])
	rawSize := binary.LittleEndian.Uint64(frame[1:headerSize])
	payload := frame[headerSize:]

	switch algo {
	case AlgorithmNone:
		if uint64(len(payload)) != rawSize {
			return nil, ErrInvalidHeader
		}
		return append([]byte(nil), payload...), nil
	case AlgorithmGzip:
		zr, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompressFailed, err)
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompressFailed, err)
		}
		return out, nil
	case AlgorithmLZ4:
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompressFailed, err)
		}
		return out[:n], nil
	case AlgorithmSnappy:
		out, err := snappy.Decode(nil, payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompressFailed, err)
		}
		return out, nil
	case AlgorithmZstd:
		out, err := c.zstdDec.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompressFailed, err)
		}
		return out, nil
	default:
		return nil, ErrUnsupportedAlgo
	}
}
