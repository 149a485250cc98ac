/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package parallel

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestMapPreservesOrder(t *testing.T) {
	in := make([]int, 1000)
	for i := range in {
		in[i] = i
	}

	out := Map(in, func(i, v int) int {
		return v * 2
	})

	if len(out) != len(in) {
		t.Fatalf("Map returned %d results, want %d", len(out), len(in))
	}
	for i, v := range out {
		if v != i*2 {
			t.Fatalf("out[%d] = %d, want %d", i, v, i*2)
		}
	}
}

func TestMapErrEmptyInput(t *testing.T) {
	out, err := MapErr(nil, func(i int, v int) (int, error) {
		return v, nil
	})
	if err != nil {
		t.Fatalf("MapErr on empty input failed: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("Expected empty output, got %d elements", len(out))
	}
}

func TestMapErrPropagatesError(t *testing.T) {
	in := make([]int, 100)
	boom := errors.New("boom")

	_, err := MapErr(in, func(i int, v int) (int, error) {
		if i == 57 {
			return 0, boom
		}
		return v, nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected the element error, got: %v", err)
	}
}

func TestMapErrVisitsEveryElement(t *testing.T) {
	in := make([]int, 777)
	var visited atomic.Int64

	_, err := MapErr(in, func(i int, v int) (int, error) {
		visited.Add(1)
		return v, nil
	})
	if err != nil {
		t.Fatalf("MapErr failed: %v", err)
	}
	if visited.Load() != 777 {
		t.Fatalf("Visited %d elements, want 777", visited.Load())
	}
}

func TestForEachN(t *testing.T) {
	marks := make([]atomic.Bool, 321)
	err := ForEachN(len(marks), func(i int) error {
		marks[i].Store(true)
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachN failed: %v", err)
	}
	for i := range marks {
		if !marks[i].Load() {
			t.Fatalf("index %d was not visited", i)
		}
	}
}

func TestForEachNError(t *testing.T) {
	boom := errors.New("boom")
	err := ForEachN(64, func(i int) error {
		if i == 9 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected the element error, got: %v", err)
	}
}
