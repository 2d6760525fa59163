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
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/common/moerr"
	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/logutil"
)

// JobScheduler runs jobs in phases. Jobs submitted between two calls to
// RunPhaseAndWait form one phase; RunPhaseAndWait returns only after every
// job of the phase has finished.
type JobScheduler struct {
	pool     *ants.Pool
	workers  int
	handlers map[JobType]JobHandler

	mu      sync.Mutex
	pending []*Job

	closed atomic.Bool
	phases atomic.Uint64
}

func NewJobScheduler(ctx context.Context, workers int) (*JobScheduler, error) {
	if workers <= 0 {
		return nil, moerr.NewBadConfig(ctx, "scheduler needs at least one worker, got %d", workers)
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, moerr.ConvertGoError(ctx, err)
	}
	return &JobScheduler{
		pool:     pool,
		workers:  workers,
		handlers: make(map[JobType]JobHandler),
	}, nil
}

// RegisterHandler binds the handler for a job type. It is expected to be
// called before the first Submit.
func (s *JobScheduler) RegisterHandler(t JobType, h JobHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[t] = h
}

func (s *JobScheduler) Workers() int {
	return s.workers
}

// Submit queues one job for the next phase. It never blocks on workers.
func (s *JobScheduler) Submit(ctx context.Context, t JobType, input Input) error {
	if s.closed.Load() {
		return moerr.NewSchedulerDown(ctx)
	}
	if input == nil {
		return moerr.NewInvalidInput(ctx, "nil %s job input", t)
	}
	if err := input.Validate(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handlers[t]
	if !ok {
		return moerr.NewInvalidInput(ctx, "no handler registered for %s job", t)
	}
	s.pending = append(s.pending, newJob(len(s.pending), t, input, h))
	return nil
}

// Pending returns the number of jobs queued for the next phase.
func (s *JobScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// DropPending discards the jobs queued for the next phase, used when a phase
// could not be fully submitted. It returns the number of jobs dropped.
func (s *JobScheduler) DropPending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.pending)
	s.pending = nil
	return n
}

// RunPhaseAndWait dispatches every pending job and waits for all of them.
// Results come back in submit order. When any job failed, the returned
// error is a phase failure wrapping the first failure by submit order, and
// the results are still returned so the caller can tell which jobs failed.
func (s *JobScheduler) RunPhaseAndWait(ctx context.Context, phase string) ([]*JobResult, error) {
	if s.closed.Load() {
		return nil, moerr.NewSchedulerDown(ctx)
	}
	s.mu.Lock()
	jobs := s.pending
	s.pending = nil
	s.mu.Unlock()

	id := s.phases.Add(1)
	start := time.Now()
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			job.fail(err)
			continue
		}
		j := job
		if err := s.pool.Submit(func() { j.Run(ctx) }); err != nil {
			j.fail(moerr.ConvertGoError(ctx, err))
		}
	}

	results := make([]*JobResult, len(jobs))
	failed := 0
	var first error
	for i, job := range jobs {
		results[i] = job.WaitDone()
		if results[i].Failed() {
			if first == nil {
				first = results[i].Err
			}
			failed++
		}
	}
	logutil.Debug("job phase finished",
		zap.String("phase", phase),
		zap.Uint64("id", id),
		zap.Int("jobs", len(jobs)),
		zap.Int("failed", failed),
		zap.Duration("duration", time.Since(start)))
	if failed > 0 {
		return results, moerr.NewPhaseFailure(ctx, phase, failed, len(jobs), first)
	}
	return results, nil
}

// Close drops any pending jobs and releases the worker pool.
func (s *JobScheduler) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
	s.pool.Release()
	return nil
}
