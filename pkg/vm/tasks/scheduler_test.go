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

package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/common/moerr"
)

type testInput struct {
	val   int
	fail  bool
	panic bool
}

func (in *testInput) Validate(ctx context.Context) error {
	if in.val < 0 {
		return moerr.NewInvalidInput(ctx, "negative value %d", in.val)
	}
	return nil
}

func testHandler(_ context.Context, input Input) (any, error) {
	in := input.(*testInput)
	if in.panic {
		panic("boom")
	}
	if in.fail {
		return nil, errors.New("job failed")
	}
	return in.val * 2, nil
}

func newTestScheduler(t *testing.T, workers int) *JobScheduler {
	s, err := NewJobScheduler(context.Background(), workers)
	require.NoError(t, err)
	s.RegisterHandler(HistogramJob, testHandler)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewJobScheduler(t *testing.T) {
	_, err := NewJobScheduler(context.Background(), 0)
	assert.True(t, moerr.IsMoErrCode(err, moerr.ErrBadConfig))

	s := newTestScheduler(t, 3)
	assert.Equal(t, 3, s.Workers())
}

func TestRunPhaseAndWait(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t, 4)

	for i := 0; i < 100; i++ {
		require.NoError(t, s.Submit(ctx, HistogramJob, &testInput{val: i}))
	}
	assert.Equal(t, 100, s.Pending())

	results, err := s.RunPhaseAndWait(ctx, "test")
	require.NoError(t, err)
	require.Len(t, results, 100)
	for i, res := range results {
		assert.Equal(t, i, res.Index)
		assert.Equal(t, HistogramJob, res.Type)
		assert.Equal(t, i*2, res.Res)
	}
	assert.Equal(t, 0, s.Pending())

	results, err = s.RunPhaseAndWait(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestPhaseWaitsForAllJobs(t *testing.T) {
	ctx := context.Background()
	s, err := NewJobScheduler(ctx, 2)
	require.NoError(t, err)
	defer s.Close()

	var done atomic.Int32
	s.RegisterHandler(PartitionJob, func(_ context.Context, _ Input) (any, error) {
		done.Add(1)
		return nil, nil
	})
	for i := 0; i < 50; i++ {
		require.NoError(t, s.Submit(ctx, PartitionJob, &testInput{}))
	}
	_, err = s.RunPhaseAndWait(ctx, "partition")
	require.NoError(t, err)
	assert.Equal(t, int32(50), done.Load())
}

func TestSubmitErrors(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t, 1)

	err := s.Submit(ctx, HistogramJob, &testInput{val: -1})
	assert.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))

	err = s.Submit(ctx, JoinJob, &testInput{})
	assert.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))

	err = s.Submit(ctx, HistogramJob, nil)
	assert.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))
	assert.Equal(t, 0, s.Pending())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	err = s.Submit(ctx, HistogramJob, &testInput{})
	assert.True(t, moerr.IsMoErrCode(err, moerr.ErrSchedulerDown))
	_, err = s.RunPhaseAndWait(ctx, "closed")
	assert.True(t, moerr.IsMoErrCode(err, moerr.ErrSchedulerDown))
}

func TestDropPending(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t, 1)

	require.NoError(t, s.Submit(ctx, HistogramJob, &testInput{val: 1}))
	require.NoError(t, s.Submit(ctx, HistogramJob, &testInput{val: 2}))
	assert.Equal(t, 2, s.DropPending())

	results, err := s.RunPhaseAndWait(ctx, "dropped")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestPhaseFailure(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t, 2)

	require.NoError(t, s.Submit(ctx, HistogramJob, &testInput{val: 1}))
	require.NoError(t, s.Submit(ctx, HistogramJob, &testInput{fail: true}))
	require.NoError(t, s.Submit(ctx, HistogramJob, &testInput{panic: true}))
	require.NoError(t, s.Submit(ctx, HistogramJob, &testInput{val: 2}))

	results, err := s.RunPhaseAndWait(ctx, "histogram")
	require.Error(t, err)
	assert.True(t, moerr.IsMoErrCode(err, moerr.ErrPhaseFailure))
	assert.Contains(t, err.Error(), "2 of 4 jobs failed")
	assert.Contains(t, err.Error(), "job failed")

	require.Len(t, results, 4)
	assert.False(t, results[0].Failed())
	assert.True(t, results[1].Failed())
	assert.True(t, results[2].Failed())
	assert.True(t, moerr.IsMoErrCode(results[2].Err, moerr.ErrInternal))
	assert.False(t, results[3].Failed())
	assert.Equal(t, 4, results[3].Res)

	// the scheduler stays usable after a failed phase
	require.NoError(t, s.Submit(ctx, HistogramJob, &testInput{val: 5}))
	results, err = s.RunPhaseAndWait(ctx, "histogram")
	require.NoError(t, err)
	assert.Equal(t, 10, results[0].Res)
}

func TestCancelledPhase(t *testing.T) {
	s := newTestScheduler(t, 2)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Submit(ctx, HistogramJob, &testInput{val: 1}))
	require.NoError(t, s.Submit(ctx, HistogramJob, &testInput{val: 2}))
	cancel()

	results, err := s.RunPhaseAndWait(ctx, "cancelled")
	require.Error(t, err)
	require.Len(t, results, 2)
	for _, res := range results {
		assert.ErrorIs(t, res.Err, context.Canceled)
	}
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJobTypeString(t *testing.T) {
	assert.Equal(t, "histogram", HistogramJob.String())
	assert.Equal(t, "partition", PartitionJob.String())
	assert.Equal(t, "join", JoinJob.String())
	assert.Equal(t, "job-9", JobType(9).String())
}
