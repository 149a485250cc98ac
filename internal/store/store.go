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
Package store composes the caching tiers and a storage engine into the
single vector interface clients use.

Routing:

	push / push_bulk  ──────────────▶  WriteBuffer ──(flush)──▶ Engine
	pull(i), i < base ──▶ ReadCache ──(miss)──▶ Engine
	pull(i), i ≥ base ──▶ WriteBuffer tail (cached under i afterwards)

Range reads that straddle the persisted prefix and the buffered tail
are split, served per tier, and concatenated in order.
*/
package store

import (
	"time"

	"vexdb/internal/cache"
	"vexdb/internal/config"
	"vexdb/internal/logging"
	"vexdb/internal/storage"

	verrors "vexdb/internal/errors"
)

// Store is the composed vector facade: a read cache on the persisted
// prefix, a write buffer on the tail, one engine underneath all three.
type Store[T any] struct {
	engine storage.Engine[T]
	reads  *cache.ReadCache[T]
	writes *cache.WriteBuffer[T]

	cacheRangeInserts bool

	log *logging.Logger
}

// New composes a store over an already-open engine using the given
// configuration.
func New[T any](engine storage.Engine[T], cfg *config.Config) (*Store[T], error) {
	reads, err := cache.NewReadCache(engine, cfg.MaxReadCacheItems, cfg.CacheRangeInserts)
	if err != nil {
		return nil, err
	}

	tick := time.Duration(cfg.FlushTickMS) * time.Millisecond
	writes := cache.NewWriteBuffer(engine, cfg.MaxWriteCacheItems, tick)

	return &Store[T]{
		engine:            engine,
		reads:             reads,
		writes:            writes,
		cacheRangeInserts: cfg.CacheRangeInserts,
		log:               logging.NewLogger("store"),
	}, nil
}

// OpenStatic opens a store over a static engine at the given structure
// file path.
func OpenStatic[T any](path string, initialSize uint64, codec storage.FixedCodec[T], cfg *config.Config) (*Store[T], error) {
	engine, err := storage.OpenStatic(path, initialSize, codec)
	if err != nil {
		return nil, err
	}
	return New[T](engine, cfg)
}

// OpenDynamic opens a store over a dynamic engine at the given
// structure and payload file paths.
func OpenDynamic[T any](structPath, payloadPath string, initialSize uint64, codec storage.Codec[T], cfg *config.Config) (*Store[T], error) {
	engine, err := storage.OpenDynamic(structPath, payloadPath, initialSize, codec)
	if err != nil {
		return nil, err
	}
	return New[T](engine, cfg)
}

// Len returns the total record count, buffered tail included.
func (s *Store[T]) Len() (uint64, error) {
	return s.writes.Len()
}

// BaseLen returns the persisted record count.
func (s *Store[T]) BaseLen() (uint64, error) {
	return s.writes.BaseLen()
}

// BufferedLen returns the number of un-flushed tail records.
func (s *Store[T]) BufferedLen() uint64 {
	return s.writes.BufferedLen()
}

// Push appends one record.
func (s *Store[T]) Push(rec T) {
	s.writes.Push(rec)
}

// PushBulk appends records in order.
func (s *Store[T]) PushBulk(recs []T) {
	s.writes.PushBulk(recs)
}

// Pull reads the record at the given global index.
//
// A tail record is installed into the read cache under its global
// index. After a later flush advances the persisted prefix past it,
// that entry coexists with the on-disk copy; both are equal by
// construction, so coherence holds and only cache occupancy is paid
// twice.
func (s *Store[T]) Pull(index uint64) (T, error) {
	var zero T

	base, err := s.writes.BaseLen()
	if err != nil {
		return zero, err
	}

	if index < base {
		return s.reads.Fetch(index)
	}

	buffered := s.writes.BufferedLen()
	if index >= base+buffered {
		return zero, verrors.IndexPastEnd(index, base+buffered)
	}

	rec, err := s.writes.GetBuffered(index - base)
	if err != nil {
		return zero, err
	}
	s.reads.Put(index, rec)
	return rec, nil
}

// PullRange reads count records starting at the given global index,
// splitting the range across the persisted prefix and the tail as
// needed. Engine-side slabs route through the read cache; whether they
// are installed is governed by the cache_range_inserts knob.
func (s *Store[T]) PullRange(index, count uint64) ([]T, error) {
	if count == 0 {
		return nil, nil
	}

	base, err := s.writes.BaseLen()
	if err != nil {
		return nil, err
	}
	end := index + count

	switch {
	case end <= base:
		return s.reads.FetchRange(index, count)

	case index >= base:
		recs, err := s.writes.GetBufferedRange(index-base, count)
		if err != nil {
			total, lenErr := s.Len()
			if lenErr == nil {
				return nil, verrors.RangePastEnd(index, count, total)
			}
			return nil, err
		}
		if s.cacheRangeInserts {
			s.reads.PutBulk(index, recs)
		}
		return recs, nil

	default:
		front, err := s.reads.FetchRange(index, base-index)
		if err != nil {
			return nil, err
		}
		back, err := s.writes.GetBufferedRange(0, end-base)
		if err != nil {
			total, lenErr := s.Len()
			if lenErr == nil {
				return nil, verrors.RangePastEnd(index, count, total)
			}
			return nil, err
		}
		if s.cacheRangeInserts {
			s.reads.PutBulk(base, back)
		}
		return append(front, back...), nil
	}
}

// CacheSize returns the number of records currently held by the read
// cache.
func (s *Store[T]) CacheSize() int {
	return s.reads.Size()
}

// Flush synchronously drains the write buffer into the engine.
func (s *Store[T]) Flush() error {
	return s.writes.Flush()
}

// Close drains the write buffer and stops its background flusher. The
// store must not be used afterwards.
func (s *Store[T]) Close() error {
	err := s.writes.Close()
	if err != nil {
		s.log.Error("close flush failed", "error", err)
	}
	return err
}
