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

// Tuple references one value of a column together with the row it came from.
// Item is the join-key value handle; the column that produced it stays owned
// by the caller. RowID is the original row index and is never rewritten by
// partitioning.
type Tuple struct {
	Item  uint64
	RowID uint64
}

// Relation owns a contiguous buffer of tuples. Views returned by Slice share
// that buffer.
type Relation struct {
	Tuples []Tuple
}

// RowPair is one equi-join match: the row id on the left relation and the
// row id on the right relation.
type RowPair struct {
	Left  uint64
	Right uint64
}
