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

package hashtable

import (
	"context"

	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/common/moerr"
	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/hash"
)

const (
	// MaxHopscotchRange is bounded by the width of a neighborhood bitmap.
	MaxHopscotchRange = 64
)

var (
	ErrNoFreeSlot = moerr.NewInvalidState(context.Background(), "hopscotch: no free slot within neighborhood")
)

// HopscotchOptions configures a HopscotchMap.
type HopscotchOptions struct {
	// Buckets is the initial number of slots.
	Buckets int
	// Range is the neighborhood size H: a key always lives within H slots
	// of its home slot.
	Range int
	// ResizableByLoadFactor lets the table double instead of failing, and
	// keeps ElemCnt/Capacity at or below LoadFactor.
	ResizableByLoadFactor bool
	LoadFactor            float64
}

func (o HopscotchOptions) Validate(ctx context.Context) error {
	if o.Buckets <= 0 {
		return moerr.NewBadConfig(ctx, "hopscotch buckets must be positive, got %d", o.Buckets)
	}
	if o.Range <= 0 || o.Range > MaxHopscotchRange {
		return moerr.NewBadConfig(ctx, "hopscotch range must be in [1, %d], got %d", MaxHopscotchRange, o.Range)
	}
	if o.Range > o.Buckets {
		return moerr.NewBadConfig(ctx, "hopscotch range %d exceeds buckets %d", o.Range, o.Buckets)
	}
	if !(o.LoadFactor > 0 && o.LoadFactor < 1) {
		return moerr.NewBadConfig(ctx, "hopscotch load factor %v not in (0, 1)", o.LoadFactor)
	}
	return nil
}

type hopscotchCell struct {
	used bool
	key  uint64
	rows []uint64
}

// HopscotchMap maps a uint64 key to the row ids inserted with it.
//
// Bit i of hopInfo[h] is set when slot (h+i) mod bucketCnt holds a key whose
// home slot is h. Lookups only visit the set bits of the home slot.
type HopscotchMap struct {
	opts      HopscotchOptions
	hopRange  uint64
	bucketCnt uint64
	elemCnt   uint64
	resizes   int
	hopInfo   []uint64
	cells     []hopscotchCell
}

func NewHopscotchMap(ctx context.Context, opts HopscotchOptions) (*HopscotchMap, error) {
	if err := opts.Validate(ctx); err != nil {
		return nil, err
	}
	ht := &HopscotchMap{
		opts:      opts,
		hopRange:  uint64(opts.Range),
		bucketCnt: uint64(opts.Buckets),
	}
	ht.hopInfo = make([]uint64, ht.bucketCnt)
	ht.cells = make([]hopscotchCell, ht.bucketCnt)
	return ht, nil
}

// Insert adds row under key. A key already present only gains a row id and
// never moves. Without ResizableByLoadFactor a key that cannot be brought
// within range of its home slot yields ErrNoFreeSlot; keys stored before
// stay retrievable.
func (ht *HopscotchMap) Insert(key, row uint64) error {
	home := ht.home(key)
	if cell := ht.findCell(home, key); cell != nil {
		cell.rows = append(cell.rows, row)
		return nil
	}

	ht.resizeOnDemand(1)
	rows := []uint64{row}
	for !ht.place(ht.home(key), key, rows) {
		if !ht.opts.ResizableByLoadFactor {
			return ErrNoFreeSlot
		}
		ht.rehash(ht.bucketCnt * 2)
	}
	ht.elemCnt++
	return nil
}

// Find returns the row ids stored under key, nil if absent.
func (ht *HopscotchMap) Find(key uint64) []uint64 {
	if cell := ht.findCell(ht.home(key), key); cell != nil {
		return cell.rows
	}
	return nil
}

// ElemCnt is the number of distinct keys, i.e. occupied slots.
func (ht *HopscotchMap) ElemCnt() uint64 {
	return ht.elemCnt
}

func (ht *HopscotchMap) Capacity() uint64 {
	return ht.bucketCnt
}

func (ht *HopscotchMap) Load() float64 {
	return float64(ht.elemCnt) / float64(ht.bucketCnt)
}

// Resizes is the number of times the table has grown.
func (ht *HopscotchMap) Resizes() int {
	return ht.resizes
}

func (ht *HopscotchMap) home(key uint64) uint64 {
	return hash.Mix(key) % ht.bucketCnt
}

func (ht *HopscotchMap) slot(home, off uint64) uint64 {
	return (home + off) % ht.bucketCnt
}

func (ht *HopscotchMap) findCell(home, key uint64) *hopscotchCell {
	info := ht.hopInfo[home]
	for off := uint64(0); info != 0 && off < ht.hopRange; off++ {
		if info&(1<<off) == 0 {
			continue
		}
		info &^= 1 << off
		if cell := &ht.cells[ht.slot(home, off)]; cell.key == key {
			return cell
		}
	}
	return nil
}

// place stores a new key, hopping free slots towards home as needed.
func (ht *HopscotchMap) place(home, key uint64, rows []uint64) bool {
	var dist uint64
	for dist = 0; dist < ht.bucketCnt; dist++ {
		if !ht.cells[ht.slot(home, dist)].used {
			break
		}
	}
	if dist == ht.bucketCnt {
		return false
	}

	for dist >= ht.hopRange {
		free := ht.slot(home, dist)
		hop, ok := ht.findHop(free)
		if !ok {
			return false
		}
		dist -= hop
	}

	ht.cells[ht.slot(home, dist)] = hopscotchCell{used: true, key: key, rows: rows}
	ht.hopInfo[home] |= 1 << dist
	return true
}

// findHop moves the entry nearest to the start of the window ending at free
// into free and returns how many slots the free slot moved back.
func (ht *HopscotchMap) findHop(free uint64) (uint64, bool) {
	for back := ht.hopRange - 1; back > 0; back-- {
		cand := (free + ht.bucketCnt - back) % ht.bucketCnt
		info := ht.hopInfo[cand]
		for off := uint64(0); off < back; off++ {
			if info&(1<<off) == 0 {
				continue
			}
			from := ht.slot(cand, off)
			ht.cells[free] = ht.cells[from]
			ht.cells[from] = hopscotchCell{}
			ht.hopInfo[cand] = info&^(1<<off) | 1<<back
			return back - off, true
		}
	}
	return 0, false
}

func (ht *HopscotchMap) resizeOnDemand(n int) {
	if !ht.opts.ResizableByLoadFactor {
		return
	}
	targetCnt := float64(ht.elemCnt + uint64(n))
	newBucketCnt := ht.bucketCnt
	for targetCnt > ht.opts.LoadFactor*float64(newBucketCnt) {
		newBucketCnt *= 2
	}
	if newBucketCnt != ht.bucketCnt {
		ht.rehash(newBucketCnt)
	}
}

func (ht *HopscotchMap) rehash(newBucketCnt uint64) {
	oldCells := ht.cells
	for {
		ht.bucketCnt = newBucketCnt
		ht.hopInfo = make([]uint64, newBucketCnt)
		ht.cells = make([]hopscotchCell, newBucketCnt)
		placed := true
		for i := range oldCells {
			cell := &oldCells[i]
			if !cell.used {
				continue
			}
			if !ht.place(ht.home(cell.key), cell.key, cell.rows) {
				placed = false
				break
			}
		}
		if placed {
			ht.resizes++
			return
		}
		newBucketCnt *= 2
	}
}
