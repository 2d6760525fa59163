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

package relation

import (
	"fmt"
)

// New allocates a relation of n zero tuples, used as a partition destination.
func New(n int) Relation {
	return Relation{Tuples: make([]Tuple, n)}
}

// FromColumn builds a relation over a column, row i becomes the tuple
// {col[i], i}.
func FromColumn(col []uint64) Relation {
	r := New(len(col))
	for i, v := range col {
		r.Tuples[i] = Tuple{Item: v, RowID: uint64(i)}
	}
	return r
}

func (r Relation) Len() int {
	return len(r.Tuples)
}

func (r Relation) IsEmpty() bool {
	return len(r.Tuples) == 0
}

// Slice returns the view [left, right) sharing r's buffer.
func (r Relation) Slice(left, right int) Relation {
	return Relation{Tuples: r.Tuples[left:right:right]}
}

// RowIDs returns the row ids of r in buffer order.
func (r Relation) RowIDs() []uint64 {
	ids := make([]uint64, len(r.Tuples))
	for i, t := range r.Tuples {
		ids[i] = t.RowID
	}
	return ids
}

func (r Relation) String() string {
	return fmt.Sprintf("relation(%d tuples)", len(r.Tuples))
}

func (p RowPair) String() string {
	return fmt.Sprintf("(%d,%d)", p.Left, p.Right)
}
