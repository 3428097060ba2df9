// Package processing runs batch jobs for many owners on a fixed number of
// goroutines, for operators who drive jobs from the CLI instead of the queue.
package processing

import (
	"context"
	"sync"

	"github.com/dharsanguruparan/photojobs/internal/jobs"
	"github.com/dharsanguruparan/photojobs/internal/model"
)

// Request names one job run.
type Request struct {
	Type    model.JobType
	OwnerID string
	JobID   string
}

// Runner runs one job to completion.
type Runner interface {
	Run(ctx context.Context, jobType model.JobType, ownerID, jobID string) jobs.Result
}

// Pool consumes Requests on a fixed set of workers.
type Pool struct {
	runner  Runner
	workers int
}

// New builds a Pool. workers below one means one.
func New(runner Runner, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{runner: runner, workers: workers}
}

type indexed struct {
	idx int
	req Request
}

// RunAll runs every request and returns the results in request order.
// Requests still queued when ctx is cancelled are not started; their
// results report the cancellation.
func (p *Pool) RunAll(ctx context.Context, reqs []Request) []jobs.Result {
	results := make([]jobs.Result, len(reqs))
	queue := make(chan indexed, p.workers*4)

	var wg sync.WaitGroup
	for i := 0; i < min(p.workers, len(reqs)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range queue {
				results[item.idx] = p.process(ctx, item.req)
			}
		}()
	}
	for i, req := range reqs {
		queue <- indexed{idx: i, req: req}
	}
	close(queue)
	wg.Wait()
	return results
}

func (p *Pool) process(ctx context.Context, req Request) jobs.Result {
	if err := ctx.Err(); err != nil {
		return jobs.Result{JobID: req.JobID, Type: req.Type, Status: jobs.StatusFailed, Reason: err.Error()}
	}
	return p.runner.Run(ctx, req.Type, req.OwnerID, req.JobID)
}
