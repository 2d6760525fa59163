// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package concurrent

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Range is the half-open interval [Start, End).
type Range struct {
	Start int
	End   int
}

func (r Range) Len() int {
	return r.End - r.Start
}

// Ranges splits [0, nitems) into at most nthreads contiguous ranges whose
// lengths differ by at most one. Empty ranges are never returned, so a small
// nitems yields fewer ranges than threads.
func Ranges(nitems, nthreads int) []Range {
	if nthreads <= 0 {
		nthreads = 1
	}
	q := nitems / nthreads
	r := nitems % nthreads

	ranges := make([]Range, 0, nthreads)
	start := 0
	for i := 0; i < nthreads; i++ {
		size := q
		if i < r {
			size++
		}
		if size == 0 {
			break
		}
		ranges = append(ranges, Range{Start: start, End: start + size})
		start += size
	}
	return ranges
}

type ThreadPoolExecutor struct {
	nthreads int
}

func NewThreadPoolExecutor(nthreads int) ThreadPoolExecutor {
	if nthreads == 0 {
		nthreads = runtime.NumCPU()
	}
	return ThreadPoolExecutor{nthreads: nthreads}
}

func (e ThreadPoolExecutor) Threads() int {
	return e.nthreads
}

// Execute runs fn once per range of Ranges(nitems, nthreads) and returns the
// first error.
func (e ThreadPoolExecutor) Execute(
	ctx context.Context,
	nitems int,
	fn func(ctx context.Context, thread_id int, start, end int) error) (err error) {

	g, ctx := errgroup.WithContext(ctx)

	for i, rg := range Ranges(nitems, e.nthreads) {
		thread_id := i
		curStart := rg.Start
		curEnd := rg.End
		g.Go(func() error {
			if err2 := fn(ctx, thread_id, curStart, curEnd); err2 != nil {
				return err2
			}

			return nil
		})
	}

	return g.Wait()
}
