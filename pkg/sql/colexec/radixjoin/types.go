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
	"sync/atomic"

	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/common/moerr"
	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/config"
	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/container/relation"
	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/hash"
	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/vm/tasks"
)

var (
	_ tasks.Input = new(HistogramInput)
	_ tasks.Input = new(PartitionInput)
	_ tasks.Input = new(JoinInput)
)

// HistogramInput counts the tuples of Rel.Tuples[Left:Right] per bucket of
// the level (Shift, Bits) into Hist, which has 1<<Bits entries and belongs
// to this job only.
type HistogramInput struct {
	Rel   relation.Relation
	Left  int
	Right int
	Shift uint
	Bits  uint
	Hist  []int
}

// PartitionInput scatters Src.Tuples[Left:Right] into Dst. Bucket b of Dst
// is [PrefixSum[b], PrefixSum[b+1]); Cursors hands out the slots inside a
// bucket and is shared by every job of the level.
type PartitionInput struct {
	Src       relation.Relation
	Dst       relation.Relation
	PrefixSum []int
	Cursors   *Cursors
	Left      int
	Right     int
	Shift     uint
	Bits      uint
}

// JoinInput joins bucket Bucket of the partitioned Left and Right buffers.
// Rank identifies the bucket pair in the partition tree.
type JoinInput struct {
	Rank        uint32
	Bucket      int
	BucketCount int
	Left        relation.Relation
	Right       relation.Relation
	LeftPrefix  []int
	RightPrefix []int
	Hopscotch   config.HopscotchParameters
	Out         *ResultShard

	// AlreadyDeposited is set when the pair's matches are already in the
	// result set, the job then does nothing.
	AlreadyDeposited bool
}

// Cursors are the per-bucket write cursors of one partition level.
type Cursors struct {
	next []atomic.Int64
}

func NewCursors(buckets int) *Cursors {
	return &Cursors{next: make([]atomic.Int64, buckets)}
}

// Next returns the next free offset inside bucket b.
func (c *Cursors) Next(b uint64) int {
	return int(c.next[b].Add(1) - 1)
}

func (c *Cursors) Len() int {
	return len(c.next)
}

func validateLevel(ctx context.Context, shift, bits uint) error {
	if bits == 0 || bits > hash.MaxLevelBits {
		return moerr.NewBadConfig(ctx, "radix bits must be in [1, %d], got %d", hash.MaxLevelBits, bits)
	}
	if shift+bits > hash.MaxBits {
		return moerr.NewBadConfig(ctx, "radix level [%d, %d) exceeds %d hash bits", shift, shift+bits, hash.MaxBits)
	}
	return nil
}

func validateLimits(ctx context.Context, left, right, n int) error {
	if left < 0 || left > right || right > n {
		return moerr.NewBadConfig(ctx, "limits [%d, %d) outside relation of %d tuples", left, right, n)
	}
	return nil
}

func validatePrefixSum(ctx context.Context, prefix []int, buckets, total int) error {
	if len(prefix) != buckets+1 {
		return moerr.NewBadConfig(ctx, "prefix sum has %d entries for %d buckets", len(prefix), buckets)
	}
	if prefix[0] != 0 || prefix[buckets] != total {
		return moerr.NewBadConfig(ctx, "prefix sum spans [%d, %d), expected [0, %d)", prefix[0], prefix[buckets], total)
	}
	for b := 0; b < buckets; b++ {
		if prefix[b] > prefix[b+1] {
			return moerr.NewBadConfig(ctx, "prefix sum decreases at bucket %d", b)
		}
	}
	return nil
}

func (in *HistogramInput) Validate(ctx context.Context) error {
	if err := validateLevel(ctx, in.Shift, in.Bits); err != nil {
		return err
	}
	if err := validateLimits(ctx, in.Left, in.Right, in.Rel.Len()); err != nil {
		return err
	}
	if len(in.Hist) != 1<<in.Bits {
		return moerr.NewBadConfig(ctx, "histogram has %d entries for %d radix bits", len(in.Hist), in.Bits)
	}
	return nil
}

func (in *PartitionInput) Validate(ctx context.Context) error {
	if err := validateLevel(ctx, in.Shift, in.Bits); err != nil {
		return err
	}
	if err := validateLimits(ctx, in.Left, in.Right, in.Src.Len()); err != nil {
		return err
	}
	if in.Dst.Len() != in.Src.Len() {
		return moerr.NewBadConfig(ctx, "destination holds %d tuples, source %d", in.Dst.Len(), in.Src.Len())
	}
	buckets := 1 << in.Bits
	if in.Cursors == nil || in.Cursors.Len() != buckets {
		return moerr.NewBadConfig(ctx, "partition cursors do not match %d buckets", buckets)
	}
	return validatePrefixSum(ctx, in.PrefixSum, buckets, in.Dst.Len())
}

func (in *JoinInput) Validate(ctx context.Context) error {
	if in.BucketCount <= 0 || in.Bucket < 0 || in.Bucket >= in.BucketCount {
		return moerr.NewBadConfig(ctx, "bucket %d outside %d buckets", in.Bucket, in.BucketCount)
	}
	if in.Out == nil {
		return moerr.NewBadConfig(ctx, "join job %d has no result shard", in.Rank)
	}
	if err := validatePrefixSum(ctx, in.LeftPrefix, in.BucketCount, in.Left.Len()); err != nil {
		return err
	}
	if err := validatePrefixSum(ctx, in.RightPrefix, in.BucketCount, in.Right.Len()); err != nil {
		return err
	}
	return in.Hopscotch.Options().Validate(ctx)
}

// left and right return the bucket slices joined by the job.
func (in *JoinInput) left() relation.Relation {
	return in.Left.Slice(in.LeftPrefix[in.Bucket], in.LeftPrefix[in.Bucket+1])
}

func (in *JoinInput) right() relation.Relation {
	return in.Right.Slice(in.RightPrefix[in.Bucket], in.RightPrefix[in.Bucket+1])
}
