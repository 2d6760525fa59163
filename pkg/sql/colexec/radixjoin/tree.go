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
	"context"

	"github.com/RoaringBitmap/roaring"

	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/common/moerr"
	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/container/relation"
)

// level is one partition pass over a node: both sides reordered into the
// buckets of (shift, bits).
type level struct {
	shift       uint
	bits        uint
	left        relation.Relation
	right       relation.Relation
	leftPrefix  []int
	rightPrefix []int
}

func (l *level) buckets() int {
	return 1 << l.bits
}

// sizes returns the tuple counts of bucket b on both sides.
func (l *level) sizes(b int) (int, int) {
	return l.leftPrefix[b+1] - l.leftPrefix[b], l.rightPrefix[b+1] - l.rightPrefix[b]
}

// node is a bucket pair. The root covers both relations; every other node is
// bucket `bucket` of its parent's level.
type node struct {
	id     uint32
	parent uint32
	depth  int
	// shift is the number of hash bits fixed for the tuples of the node
	shift  uint
	lvl    *level
	bucket int
	left   relation.Relation
	right  relation.Relation
	// split is the level the node was partitioned into, nil for terminals
	split *level
}

// partitionTree is the arena of bucket pairs of one join. Ids are arena
// indexes; deposited records the pairs whose matches reached the result.
type partitionTree struct {
	nodes     []*node
	deposited *roaring.Bitmap
}

func newPartitionTree(left, right relation.Relation) *partitionTree {
	t := &partitionTree{deposited: roaring.New()}
	t.nodes = append(t.nodes, &node{left: left, right: right})
	return t
}

func (t *partitionTree) root() *node {
	return t.nodes[0]
}

func (t *partitionTree) node(id uint32) *node {
	return t.nodes[id]
}

func (t *partitionTree) size() int {
	return len(t.nodes)
}

// addChild registers bucket b of parent's split level.
func (t *partitionTree) addChild(parent *node, b int) *node {
	lvl := parent.split
	n := &node{
		id:     uint32(len(t.nodes)),
		parent: parent.id,
		depth:  parent.depth + 1,
		shift:  lvl.shift + lvl.bits,
		lvl:    lvl,
		bucket: b,
	}
	n.left = lvl.left.Slice(lvl.leftPrefix[b], lvl.leftPrefix[b+1])
	n.right = lvl.right.Slice(lvl.rightPrefix[b], lvl.rightPrefix[b+1])
	t.nodes = append(t.nodes, n)
	return n
}

// deposit marks n as joined. A pair is deposited at most once, and never
// when it or one of its ancestors already was.
func (t *partitionTree) deposit(ctx context.Context, n *node) error {
	if t.covered(n) {
		return moerr.NewInvalidState(ctx, "bucket pair %d deposited twice", n.id)
	}
	t.deposited.Add(n.id)
	return nil
}

func (t *partitionTree) isDeposited(n *node) bool {
	return t.deposited.Contains(n.id)
}

// covered reports whether n or one of its ancestors is deposited.
func (t *partitionTree) covered(n *node) bool {
	for {
		if t.deposited.Contains(n.id) {
			return true
		}
		if n.id == 0 {
			return false
		}
		n = t.nodes[n.parent]
	}
}

func (t *partitionTree) depositedCount() uint64 {
	return t.deposited.GetCardinality()
}
