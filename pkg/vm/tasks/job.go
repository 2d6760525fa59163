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
	"fmt"
	"sync"
	"time"

	"github.com/Christos-Tasioulas/ISSD-Project-sub001/pkg/common/moerr"
)

type JobType uint8

const (
	HistogramJob JobType = iota
	PartitionJob
	JoinJob
)

func (t JobType) String() string {
	switch t {
	case HistogramJob:
		return "histogram"
	case PartitionJob:
		return "partition"
	case JoinJob:
		return "join"
	default:
		return fmt.Sprintf("job-%d", uint8(t))
	}
}

// Input is the work description of one job. Validate is called on Submit so
// a malformed input never reaches a worker.
type Input interface {
	Validate(ctx context.Context) error
}

// JobHandler executes one input. Res is handed back untouched in the
// JobResult.
type JobHandler = func(ctx context.Context, input Input) (res any, err error)

type JobResult struct {
	Index int
	Type  JobType
	Input Input
	Err   error
	Res   any
}

func (r *JobResult) Failed() bool {
	return r.Err != nil
}

type Job struct {
	index   int
	typ     JobType
	wg      *sync.WaitGroup
	input   Input
	exec    JobHandler
	result  *JobResult
	startTs time.Time
	endTs   time.Time
}

func newJob(index int, typ JobType, input Input, exec JobHandler) *Job {
	job := &Job{
		index: index,
		typ:   typ,
		input: input,
		exec:  exec,
		wg:    new(sync.WaitGroup),
	}
	job.wg.Add(1)
	return job
}

// Run executes the job to completion. A panic inside the handler is turned
// into the job's error.
func (job *Job) Run(ctx context.Context) {
	defer job.wg.Done()
	job.startTs = time.Now()
	result := &JobResult{Index: job.index, Type: job.typ, Input: job.input}
	defer func() {
		if r := recover(); r != nil {
			result.Err = moerr.ConvertPanicError(ctx, r)
		}
		job.endTs = time.Now()
		job.result = result
	}()
	result.Res, result.Err = job.exec(ctx, job.input)
}

// fail completes a job that never ran.
func (job *Job) fail(err error) {
	job.result = &JobResult{Index: job.index, Type: job.typ, Input: job.input, Err: err}
	job.wg.Done()
}

func (job *Job) WaitDone() *JobResult {
	job.wg.Wait()
	return job.result
}

func (job *Job) Duration() time.Duration {
	job.wg.Wait()
	return job.endTs.Sub(job.startTs)
}
