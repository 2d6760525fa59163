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
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/common/concurrent"
	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/common/moerr"
	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/config"
	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/container/relation"
	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/hash"
	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/logutil"
	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/vm/tasks"
)

// job bodies, package variables so tests can inject failures
var (
	histogramRange = Histogram
	partitionRange = Partition
	joinBucket     = Join
)

// Joiner runs radix hash joins on its own worker pool. A Joiner runs one
// join at a time.
type Joiner struct {
	mu     sync.Mutex
	params config.JoinParameters
	sched  *tasks.JobScheduler
}

func NewJoiner(ctx context.Context, params config.JoinParameters) (*Joiner, error) {
	if err := params.Validate(ctx); err != nil {
		return nil, err
	}
	sched, err := tasks.NewJobScheduler(ctx, params.Workers)
	if err != nil {
		return nil, err
	}
	sched.RegisterHandler(tasks.HistogramJob, func(ctx context.Context, in tasks.Input) (any, error) {
		return nil, histogramRange(ctx, in.(*HistogramInput))
	})
	sched.RegisterHandler(tasks.PartitionJob, func(ctx context.Context, in tasks.Input) (any, error) {
		return nil, partitionRange(ctx, in.(*PartitionInput))
	})
	sched.RegisterHandler(tasks.JoinJob, func(ctx context.Context, in tasks.Input) (any, error) {
		return joinBucket(ctx, in.(*JoinInput))
	})
	return &Joiner{params: params, sched: sched}, nil
}

func (j *Joiner) Params() config.JoinParameters {
	return j.params
}

func (j *Joiner) Close() error {
	return j.sched.Close()
}

// split asks for n to be partitioned with bits more radix bits.
type split struct {
	n    *node
	bits uint
}

// Join returns every (left row, right row) pair with equal keys. bits is the
// width of the top partition level, see RadixBits. The result is either
// complete or an error.
func (j *Joiner) Join(ctx context.Context, left, right relation.Relation, bits uint) (*ResultSet, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	res := NewResultSet()
	if left.IsEmpty() || right.IsEmpty() {
		return res, nil
	}
	if err := validateLevel(ctx, 0, bits); err != nil {
		return nil, err
	}

	start := time.Now()
	tree := newPartitionTree(left, right)
	splits := []split{{n: tree.root(), bits: bits}}
	for len(splits) > 0 {
		terminals, err := j.partition(ctx, tree, splits)
		if err != nil {
			return nil, err
		}
		failed, err := j.join(ctx, tree, terminals, res)
		if err != nil {
			return nil, err
		}
		splits = make([]split, 0, len(failed))
		for _, n := range failed {
			if !j.canSplit(n) {
				return nil, moerr.NewJoinFailure(ctx,
					"bucket pair %d (%d x %d tuples) cannot be built and has no finer radix level",
					n.id, n.left.Len(), n.right.Len())
			}
			logutil.Info("re-partitioning bucket pair after build failure",
				zap.Uint32("rank", n.id),
				zap.Int("depth", n.depth),
				zap.Uint("shift", n.shift))
			splits = append(splits, split{n: n, bits: j.params.RecursionBits})
		}
	}

	logutil.Info("radix join finished",
		zap.Int("left", left.Len()),
		zap.Int("right", right.Len()),
		zap.Uint("bits", bits),
		zap.Int("nodes", tree.size()),
		zap.Uint64("deposited", tree.depositedCount()),
		zap.Int("pairs", res.Len()),
		zap.Duration("duration", time.Since(start)))
	return res, nil
}

func (j *Joiner) oversized(left, right int) bool {
	return left > j.params.MaxBucketTuples || right > j.params.MaxBucketTuples
}

// canSplit reports whether n may get one more partition level.
func (j *Joiner) canSplit(n *node) bool {
	return n.depth <= j.params.MaxDepth && n.shift+j.params.RecursionBits <= hash.MaxBits
}

// partition splits every requested node, recursing into oversized children,
// and returns the terminal bucket pairs. Children with an empty side are
// dropped since they cannot match.
func (j *Joiner) partition(ctx context.Context, tree *partitionTree, splits []split) ([]*node, error) {
	var terminals []*node
	for len(splits) > 0 {
		if err := j.runLevel(ctx, splits); err != nil {
			return nil, err
		}
		var next []split
		for _, s := range splits {
			lvl := s.n.split
			for b := 0; b < lvl.buckets(); b++ {
				ln, rn := lvl.sizes(b)
				if ln == 0 || rn == 0 {
					continue
				}
				child := tree.addChild(s.n, b)
				// a child as large as its parent means every key hashed alike
				progress := ln < s.n.left.Len() || rn < s.n.right.Len()
				if j.oversized(ln, rn) && progress && j.canSplit(child) {
					next = append(next, split{n: child, bits: j.params.RecursionBits})
					continue
				}
				terminals = append(terminals, child)
			}
		}
		if len(next) > 0 {
			logutil.Debug("partitioning oversized bucket pairs", zap.Int("pairs", len(next)))
		}
		splits = next
	}
	return terminals, nil
}

// runLevel partitions one batch of nodes, retrying failed phases.
func (j *Joiner) runLevel(ctx context.Context, splits []split) error {
	var err error
	for attempt := 0; attempt <= j.params.PhaseRetries; attempt++ {
		if attempt > 0 {
			logutil.Warn("retrying partition level", zap.Int("attempt", attempt), zap.Error(err))
		}
		if err = j.partitionLevel(ctx, splits); err == nil {
			return nil
		}
		if !moerr.IsMoErrCode(err, moerr.ErrPhaseFailure) || ctx.Err() != nil {
			return err
		}
	}
	return moerr.NewJoinFailure(ctx, "partition: %s", err.Error()).WithCause(err)
}

// sidePlan is the partition work of one side of one node.
type sidePlan struct {
	src    relation.Relation
	ranges []concurrent.Range
	hists  [][]int
	prefix []int
	dst    relation.Relation
}

// partitionLevel runs one histogram phase and one partition phase covering
// both sides of every node in splits. Buffers are allocated per call, so a
// failed attempt leaves nothing behind.
func (j *Joiner) partitionLevel(ctx context.Context, splits []split) error {
	plans := make([][2]*sidePlan, len(splits))
	for i, s := range splits {
		for side, src := range [2]relation.Relation{s.n.left, s.n.right} {
			p := &sidePlan{src: src, ranges: concurrent.Ranges(src.Len(), j.sched.Workers())}
			p.hists = make([][]int, len(p.ranges))
			for k, rg := range p.ranges {
				p.hists[k] = make([]int, 1<<s.bits)
				in := &HistogramInput{
					Rel:   src,
					Left:  rg.Start,
					Right: rg.End,
					Shift: s.n.shift,
					Bits:  s.bits,
					Hist:  p.hists[k],
				}
				if err := j.submit(ctx, tasks.HistogramJob, in); err != nil {
					return err
				}
			}
			plans[i][side] = p
		}
	}
	if results, err := j.sched.RunPhaseAndWait(ctx, "histogram"); err != nil {
		logFailures(results)
		return err
	}

	for i, s := range splits {
		for _, p := range plans[i] {
			p.prefix = PrefixSum(MergeHistograms(p.hists, 1<<s.bits))
			p.dst = relation.New(p.src.Len())
			cursors := NewCursors(1 << s.bits)
			for _, rg := range p.ranges {
				in := &PartitionInput{
					Src:       p.src,
					Dst:       p.dst,
					PrefixSum: p.prefix,
					Cursors:   cursors,
					Left:      rg.Start,
					Right:     rg.End,
					Shift:     s.n.shift,
					Bits:      s.bits,
				}
				if err := j.submit(ctx, tasks.PartitionJob, in); err != nil {
					return err
				}
			}
		}
	}
	if results, err := j.sched.RunPhaseAndWait(ctx, "partition"); err != nil {
		logFailures(results)
		return err
	}

	for i, s := range splits {
		l, r := plans[i][0], plans[i][1]
		s.n.split = &level{
			shift:       s.n.shift,
			bits:        s.bits,
			left:        l.dst,
			right:       r.dst,
			leftPrefix:  l.prefix,
			rightPrefix: r.prefix,
		}
	}
	return nil
}

// join runs one join phase over terminals and merges the shards of the
// successful jobs. Pairs whose table could not be built are returned for
// re-partitioning; any other failure retries the phase, with the pairs
// already deposited turned into no-ops.
func (j *Joiner) join(ctx context.Context, tree *partitionTree, terminals []*node, res *ResultSet) ([]*node, error) {
	var failed []*node
	var err error
	pending := terminals
	for attempt := 0; len(pending) > 0; attempt++ {
		if attempt > 0 {
			logutil.Warn("retrying join phase",
				zap.Int("attempt", attempt),
				zap.Int("pairs", len(pending)),
				zap.Error(err))
		}
		shards := make([]*ResultShard, len(pending))
		for i, n := range pending {
			shards[i] = NewResultShard()
			in := &JoinInput{
				Rank:             n.id,
				Bucket:           n.bucket,
				BucketCount:      n.lvl.buckets(),
				Left:             n.lvl.left,
				Right:            n.lvl.right,
				LeftPrefix:       n.lvl.leftPrefix,
				RightPrefix:      n.lvl.rightPrefix,
				Hopscotch:        j.params.Hopscotch,
				Out:              shards[i],
				AlreadyDeposited: tree.covered(n),
			}
			if err := j.submit(ctx, tasks.JoinJob, in); err != nil {
				return nil, err
			}
		}

		var results []*tasks.JobResult
		results, err = j.sched.RunPhaseAndWait(ctx, "join")
		if err != nil && !moerr.IsMoErrCode(err, moerr.ErrPhaseFailure) {
			return nil, err
		}
		retry := make([]*node, 0, len(pending))
		retryPhase := false
		for i, r := range results {
			n := pending[i]
			switch {
			case !r.Failed():
				if !r.Input.(*JoinInput).AlreadyDeposited {
					if err := tree.deposit(ctx, n); err != nil {
						return nil, err
					}
					res.Merge(shards[i])
				}
				retry = append(retry, n)
			case moerr.IsMoErrCode(r.Err, moerr.ErrBuildFailure):
				logutil.Warn("bucket pair build failed",
					zap.Uint32("rank", n.id),
					zap.Int("left", n.left.Len()),
					zap.Int("right", n.right.Len()),
					zap.Error(r.Err))
				failed = append(failed, n)
			default:
				retryPhase = true
				retry = append(retry, n)
			}
		}
		if !retryPhase {
			return failed, nil
		}
		if attempt >= j.params.PhaseRetries || ctx.Err() != nil {
			return nil, moerr.NewJoinFailure(ctx, "join: %s", err.Error()).WithCause(err)
		}
		pending = retry
	}
	return failed, nil
}

func (j *Joiner) submit(ctx context.Context, t tasks.JobType, in tasks.Input) error {
	if err := j.sched.Submit(ctx, t, in); err != nil {
		j.sched.DropPending()
		return err
	}
	return nil
}

func logFailures(results []*tasks.JobResult) {
	for _, r := range results {
		if !r.Failed() {
			continue
		}
		switch in := r.Input.(type) {
		case *HistogramInput:
			logutil.Warn("histogram job failed",
				zap.Int("left", in.Left), zap.Int("right", in.Right), zap.Error(r.Err))
		case *PartitionInput:
			logutil.Warn("partition job failed",
				zap.Int("left", in.Left), zap.Int("right", in.Right), zap.Error(r.Err))
		}
	}
}

// RadixBits picks the width of the top partition level from the smaller
// side's row count and distinct count: enough buckets for MaxBucketTuples
// rows each, no more buckets than distinct keys, at most MaxRadixBits and at
// least one bit. A non-zero RadixBits in params wins. distinct <= 0 means
// unknown.
func RadixBits(params config.JoinParameters, rows, distinct int) uint {
	if params.RadixBits != 0 {
		return params.RadixBits
	}
	maxBits := params.MaxRadixBits
	if maxBits == 0 || maxBits > hash.MaxLevelBits {
		maxBits = hash.MaxLevelBits
	}
	bits := uint(1)
	if rows > 0 && params.MaxBucketTuples > 0 {
		// ceil(rows / 2^bits) > MaxBucketTuples
		for bits < maxBits && (rows-1)>>bits >= params.MaxBucketTuples {
			bits++
		}
	}
	if distinct > 0 {
		dbits := uint(1)
		for dbits < bits && 1<<dbits < distinct {
			dbits++
		}
		bits = dbits
	}
	return bits
}
