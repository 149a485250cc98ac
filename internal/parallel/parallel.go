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
Package parallel provides the data-parallel primitives used by the bulk
storage paths.

Bulk operations (serialize n records, deserialize n slots, assemble n
extent entries) are embarrassingly parallel: every element maps
independently into a pre-sized output slot. MapErr fans the work out over
a bounded worker pool and writes results in place, so callers get input
order for free and never merge partial outputs.
*/
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// chunkTarget is the number of chunks handed out per worker. Smaller
// chunks even out skew when element cost varies (variable-width records);
// more chunks cost more scheduling.
const chunkTarget = 4

// Workers returns the pool width used by Map and MapErr.
func Workers() int {
	return runtime.GOMAXPROCS(0)
}

// MapErr applies fn to every element of in, in parallel, preserving input
// order in the returned slice. An error stops only the chunk it occurred in;
// the other chunks still run to completion. The first error is returned with
// a nil slice.
func MapErr[In, Out any](in []In, fn func(i int, v In) (Out, error)) ([]Out, error) {
	out := make([]Out, len(in))
	if len(in) == 0 {
		return out, nil
	}

	workers := Workers()
	if workers > len(in) {
		workers = len(in)
	}

	chunk := len(in) / (workers * chunkTarget)
	if chunk < 1 {
		chunk = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for start := 0; start < len(in); start += chunk {
		end := start + chunk
		if end > len(in) {
			end = len(in)
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				v, err := fn(i, in[i])
				if err != nil {
					return err
				}
				out[i] = v
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Map is MapErr for infallible element functions.
func Map[In, Out any](in []In, fn func(i int, v In) Out) []Out {
	out, _ := MapErr(in, func(i int, v In) (Out, error) {
		return fn(i, v), nil
	})
	return out
}

// ForEachN runs fn for every index in [0, n), in parallel. Used when the
// output is written through a closure (e.g. copying slots into a shared
// pre-sized buffer at disjoint offsets).
func ForEachN(n int, fn func(i int) error) error {
	if n == 0 {
		return nil
	}

	workers := Workers()
	if workers > n {
		workers = n
	}

	chunk := n / (workers * chunkTarget)
	if chunk < 1 {
		chunk = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := fn(i); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}
