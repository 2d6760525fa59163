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


// Package stats holds the per-column statistics the optimizer hands to the
// join executor.
package stats

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	hll "github.com/axiomhq/hyperloglog"

	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/common/concurrent"
)

// ColumnRef names a column of a relation.
type ColumnRef struct {
	Relation int
	Column   int
}

func (r ColumnRef) String() string {
	return fmt.Sprintf("%d.%d", r.Relation, r.Column)
}

// ColumnStats of one join key column. Distinct is an estimate.
type ColumnStats struct {
	Min      uint64
	Max      uint64
	Count    int
	Distinct int
}

func (s ColumnStats) IsEmpty() bool {
	return s.Count == 0
}

// Overlaps reports whether the key ranges of s and o intersect. Empty
// columns overlap nothing.
func (s ColumnStats) Overlaps(o ColumnStats) bool {
	if s.IsEmpty() || o.IsEmpty() {
		return false
	}
	return s.Min <= o.Max && o.Min <= s.Max
}

func (s ColumnStats) String() string {
	return fmt.Sprintf("count=%d distinct=%d range=[%d, %d]", s.Count, s.Distinct, s.Min, s.Max)
}

// Collect scans col on exec's threads. Each thread keeps its own bounds and
// sketch, which are merged once every thread has finished.
func Collect(ctx context.Context, col []uint64, exec concurrent.ThreadPoolExecutor) (ColumnStats, error) {
	if len(col) == 0 {
		return ColumnStats{}, nil
	}
	var mu sync.Mutex
	res := ColumnStats{Min: math.MaxUint64}
	sk := hll.New()
	err := exec.Execute(ctx, len(col), func(ctx context.Context, _ int, start, end int) error {
		local := hll.New()
		lo, hi := uint64(math.MaxUint64), uint64(0)
		var buf [8]byte
		for _, v := range col[start:end] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
			binary.LittleEndian.PutUint64(buf[:], v)
			local.Insert(buf[:])
		}

		mu.Lock()
		defer mu.Unlock()
		if lo < res.Min {
			res.Min = lo
		}
		if hi > res.Max {
			res.Max = hi
		}
		res.Count += end - start
		return sk.Merge(local)
	})
	if err != nil {
		return ColumnStats{}, err
	}
	res.Distinct = int(sk.Estimate())
	if res.Distinct > res.Count {
		res.Distinct = res.Count
	}
	if res.Distinct == 0 {
		res.Distinct = 1
	}
	return res, nil
}
