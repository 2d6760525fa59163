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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/common/moerr"
	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/container/relation"
)

func TestPartitionTree(t *testing.T) {
	ctx := context.Background()
	left := relation.FromColumn([]uint64{1, 2, 3, 4})
	right := relation.FromColumn([]uint64{3, 4})
	tree := newPartitionTree(left, right)
	root := tree.root()
	require.Equal(t, uint32(0), root.id)
	require.Equal(t, 1, tree.size())

	root.split = &level{
		shift:       0,
		bits:        1,
		left:        left,
		right:       right,
		leftPrefix:  []int{0, 1, 4},
		rightPrefix: []int{0, 0, 2},
	}
	ln, rn := root.split.sizes(1)
	require.Equal(t, 3, ln)
	require.Equal(t, 2, rn)

	child := tree.addChild(root, 1)
	require.Equal(t, uint32(1), child.id)
	require.Equal(t, 1, child.depth)
	require.Equal(t, uint(1), child.shift)
	require.Equal(t, 3, child.left.Len())
	require.Equal(t, tree.node(1), child)

	child.split = &level{
		shift:       1,
		bits:        1,
		left:        child.left,
		right:       child.right,
		leftPrefix:  []int{0, 2, 3},
		rightPrefix: []int{0, 1, 2},
	}
	a := tree.addChild(child, 0)
	b := tree.addChild(child, 1)
	require.Equal(t, uint32(2), a.id)
	require.Equal(t, uint32(3), b.id)
	require.Equal(t, 2, a.depth)

	require.False(t, tree.covered(a))
	require.NoError(t, tree.deposit(ctx, a))
	require.True(t, tree.isDeposited(a))
	require.False(t, tree.isDeposited(b))
	err := tree.deposit(ctx, a)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidState))

	// a deposited ancestor covers the whole subtree
	require.NoError(t, tree.deposit(ctx, child))
	require.True(t, tree.covered(b))
	require.True(t, moerr.IsMoErrCode(tree.deposit(ctx, b), moerr.ErrInvalidState))
	require.Equal(t, uint64(2), tree.depositedCount())
}
