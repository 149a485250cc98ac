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

package cache

import (
	"testing"
)

func seededEngine(n int) *memEngine[int] {
	e := &memEngine[int]{}
	for i := 0; i < n; i++ {
		e.recs = append(e.recs, i*10)
	}
	return e
}

func TestReadCacheMissThenHit(t *testing.T) {
	engine := seededEngine(10)
	c, err := NewReadCache[int](engine, 100, false)
	if err != nil {
		t.Fatalf("NewReadCache failed: %v", err)
	}

	rec, err := c.Fetch(3)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if rec != 30 {
		t.Errorf("Fetch(3) = %d, want 30", rec)
	}
	if engine.pullCount() != 1 {
		t.Errorf("Expected 1 engine pull after miss, got %d", engine.pullCount())
	}

	// Second fetch is a hit; the engine is not consulted again.
	rec, err = c.Fetch(3)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if rec != 30 {
		t.Errorf("Fetch(3) hit = %d, want 30", rec)
	}
	if engine.pullCount() != 1 {
		t.Errorf("Expected no extra engine pull on hit, got %d", engine.pullCount())
	}
}

func TestReadCacheGetAbsent(t *testing.T) {
	c, err := NewReadCache[int](seededEngine(5), 100, false)
	if err != nil {
		t.Fatalf("NewReadCache failed: %v", err)
	}

	if _, ok := c.Get(2); ok {
		t.Error("Expected miss for un-fetched index")
	}
}

func TestReadCacheEviction(t *testing.T) {
	const bound = 4
	c, err := NewReadCache[int](seededEngine(100), bound, false)
	if err != nil {
		t.Fatalf("NewReadCache failed: %v", err)
	}

	// Fill exactly to the bound.
	for i := uint64(0); i < bound; i++ {
		c.Put(i, int(i))
	}
	if c.Size() != bound {
		t.Fatalf("Size = %d, want %d", c.Size(), bound)
	}

	// A hit on a present key leaves the size unchanged and refreshes
	// recency.
	if _, ok := c.Get(0); !ok {
		t.Fatal("Expected hit on key 0")
	}
	if c.Size() != bound {
		t.Fatalf("Size changed on hit: %d", c.Size())
	}

	// Inserting one more evicts the least recently used key. Key 0 was
	// just touched, so key 1 goes.
	c.Put(99, 99)
	if c.Size() != bound {
		t.Fatalf("Size after eviction = %d, want %d", c.Size(), bound)
	}
	if _, ok := c.Get(99); !ok {
		t.Error("Expected new key present")
	}
	if _, ok := c.Get(1); ok {
		t.Error("Expected key 1 evicted")
	}
	if _, ok := c.Get(0); !ok {
		t.Error("Expected recently-used key 0 retained")
	}
}

func TestReadCachePutBulk(t *testing.T) {
	c, err := NewReadCache[int](seededEngine(0), 100, false)
	if err != nil {
		t.Fatalf("NewReadCache failed: %v", err)
	}

	c.PutBulk(10, []int{100, 110, 120})
	for i := uint64(0); i < 3; i++ {
		rec, ok := c.Get(10 + i)
		if !ok {
			t.Fatalf("Expected key %d present", 10+i)
		}
		if rec != int(100+i*10) {
			t.Errorf("Get(%d) = %d, want %d", 10+i, rec, 100+i*10)
		}
	}
}

func TestReadCacheRangeInsertsOff(t *testing.T) {
	engine := seededEngine(50)
	c, err := NewReadCache[int](engine, 100, false)
	if err != nil {
		t.Fatalf("NewReadCache failed: %v", err)
	}

	recs, err := c.FetchRange(0, 20)
	if err != nil {
		t.Fatalf("FetchRange failed: %v", err)
	}
	if len(recs) != 20 {
		t.Fatalf("FetchRange returned %d records, want 20", len(recs))
	}

	// With range inserts off, the slab bypasses the LRU.
	if c.Size() != 0 {
		t.Errorf("Expected empty cache after bulk read, got %d entries", c.Size())
	}
}

func TestReadCacheRangeInsertsOn(t *testing.T) {
	engine := seededEngine(50)
	c, err := NewReadCache[int](engine, 100, true)
	if err != nil {
		t.Fatalf("NewReadCache failed: %v", err)
	}

	if _, err := c.FetchRange(5, 10); err != nil {
		t.Fatalf("FetchRange failed: %v", err)
	}
	if c.Size() != 10 {
		t.Fatalf("Expected 10 cached entries, got %d", c.Size())
	}

	// The slab entries now serve point reads without the engine.
	before := engine.pullCount()
	rec, err := c.Fetch(9)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if rec != 90 {
		t.Errorf("Fetch(9) = %d, want 90", rec)
	}
	if engine.pullCount() != before {
		t.Error("Expected point read served from the installed slab")
	}
}

func TestReadCacheZeroBound(t *testing.T) {
	if _, err := NewReadCache[int](seededEngine(0), 0, false); err == nil {
		t.Error("Expected error for zero cache bound")
	}
}
