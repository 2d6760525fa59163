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


package radixjoin

import (
	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/container/relation"
)

// ResultShard is the private output buffer of one join job.
type ResultShard struct {
	pairs []relation.RowPair
}

func NewResultShard() *ResultShard {
	return &ResultShard{}
}

func (s *ResultShard) Append(pairs ...relation.RowPair) {
	s.pairs = append(s.pairs, pairs...)
}

func (s *ResultShard) Len() int {
	return len(s.pairs)
}

func (s *ResultShard) Reset() {
	s.pairs = s.pairs[:0]
}

// ResultSet collects the shards of successful join jobs. It is only touched
// by the goroutine driving the join, after the join barrier.
type ResultSet struct {
	pairs []relation.RowPair
}

func NewResultSet() *ResultSet {
	return &ResultSet{}
}

func (rs *ResultSet) Merge(s *ResultShard) {
	rs.pairs = append(rs.pairs, s.pairs...)
}

// Pairs returns the collected row pairs in no particular order.
func (rs *ResultSet) Pairs() []relation.RowPair {
	return rs.pairs
}

func (rs *ResultSet) Len() int {
	return len(rs.pairs)
}
