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
Package cache implements the two caching tiers that sit over a storage
engine: a bounded LRU read cache keyed by record index, and a
write-behind buffer that absorbs appends and flushes whole batches in
the background.

The underlying store is append-only, so cached records are frozen: the
read cache never needs invalidation, and a hit can never disagree with
a miss.
*/
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	verrors "vexdb/internal/errors"
	"vexdb/internal/logging"
	"vexdb/internal/storage"
)

// ReadCache is a bounded LRU cache mapping record index to record,
// backed by an engine for misses. An access refreshes recency; once the
// bound is reached the least-recently-used entries are evicted.
type ReadCache[T any] struct {
	engine storage.Engine[T]
	items  *lru.Cache[uint64, T]

	// rangeInserts controls whether FetchRange installs the whole slab.
	// Off by default: one large range read would otherwise evict the
	// entire point-read working set.
	rangeInserts bool

	log *logging.Logger
}

// NewReadCache creates a read cache bounded to maxItems records.
func NewReadCache[T any](engine storage.Engine[T], maxItems uint64, rangeInserts bool) (*ReadCache[T], error) {
	if maxItems == 0 {
		return nil, verrors.NewConfigError("read cache bound must be positive")
	}

	items, err := lru.New[uint64, T](int(maxItems))
	if err != nil {
		return nil, verrors.NewConfigError("unable to create read cache").WithCause(err)
	}

	return &ReadCache[T]{
		engine:       engine,
		items:        items,
		rangeInserts: rangeInserts,
		log:          logging.NewLogger("read-cache"),
	}, nil
}

// Get returns the cached record for index, marking it most recently
// used on a hit.
func (c *ReadCache[T]) Get(index uint64) (T, bool) {
	return c.items.Get(index)
}

// Put inserts or refreshes the record under index, evicting the least
// recently used entry if the cache is at its bound.
func (c *ReadCache[T]) Put(index uint64, rec T) {
	c.items.Add(index, rec)
}

// PutBulk inserts records under base, base+1, ... in order.
func (c *ReadCache[T]) PutBulk(base uint64, recs []T) {
	for i, rec := range recs {
		c.items.Add(base+uint64(i), rec)
	}
}

// Fetch returns the record at index, reading through to the engine and
// installing the result on a miss.
func (c *ReadCache[T]) Fetch(index uint64) (T, error) {
	if rec, ok := c.items.Get(index); ok {
		return rec, nil
	}

	rec, err := c.engine.Pull(index)
	if err != nil {
		var zero T
		return zero, err
	}
	c.items.Add(index, rec)
	return rec, nil
}

// FetchRange reads count records starting at index from the engine.
// The slab is installed into the cache only when range inserts are
// enabled.
func (c *ReadCache[T]) FetchRange(index, count uint64) ([]T, error) {
	recs, err := c.engine.PullRange(index, count)
	if err != nil {
		return nil, err
	}
	if c.rangeInserts {
		c.PutBulk(index, recs)
	}
	return recs, nil
}

// Size returns the number of cached records.
func (c *ReadCache[T]) Size() int {
	return c.items.Len()
}

// Len returns the underlying engine's record count.
func (c *ReadCache[T]) Len() (uint64, error) {
	return c.engine.Len()
}
