/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package cache

import (
	"sync"

	verrors "vexdb/internal/errors"
)

// memEngine is an in-memory engine used to exercise the caching tiers
// without disk I/O. It counts reads so tests can observe cache hits.
type memEngine[T any] struct {
	mu    sync.Mutex
	recs  []T
	pulls int
}

func (e *memEngine[T]) Len() (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return uint64(len(e.recs)), nil
}

func (e *memEngine[T]) Push(rec T) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recs = append(e.recs, rec)
	return nil
}

func (e *memEngine[T]) PushBulk(recs []T) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recs = append(e.recs, recs...)
	return nil
}

func (e *memEngine[T]) Pull(index uint64) (T, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pulls++
	if index >= uint64(len(e.recs)) {
		var zero T
		return zero, verrors.IndexPastEnd(index, uint64(len(e.recs)))
	}
	return e.recs[index], nil
}

func (e *memEngine[T]) PullRange(index, count uint64) ([]T, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pulls++
	if index+count > uint64(len(e.recs)) {
		return nil, verrors.RangePastEnd(index, count, uint64(len(e.recs)))
	}
	out := make([]T, count)
	copy(out, e.recs[index:index+count])
	return out, nil
}

func (e *memEngine[T]) pullCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pulls
}
