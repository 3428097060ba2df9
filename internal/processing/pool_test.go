package processing

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dharsanguruparan/photojobs/internal/jobs"
	"github.com/dharsanguruparan/photojobs/internal/model"
)

type slowRunner struct {
	active  atomic.Int32
	peak    atomic.Int32
	mu      sync.Mutex
	started []string
}

func (r *slowRunner) Run(ctx context.Context, jobType model.JobType, ownerID, jobID string) jobs.Result {
	n := r.active.Add(1)
	for {
		peak := r.peak.Load()
		if n <= peak || r.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	r.mu.Lock()
	r.started = append(r.started, ownerID)
	r.mu.Unlock()
	time.Sleep(10 * time.Millisecond)
	r.active.Add(-1)
	return jobs.Result{JobID: jobID, Type: jobType, Status: jobs.StatusSucceeded}
}

func TestRunAllKeepsOrderAndBound(t *testing.T) {
	runner := &slowRunner{}
	pool := New(runner, 2)
	var reqs []Request
	for _, owner := range []string{"a", "b", "c", "d", "e"} {
		reqs = append(reqs, Request{Type: model.JobGenerateEventAlbums, OwnerID: owner, JobID: "job-" + owner})
	}
	results := pool.RunAll(context.Background(), reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	for i, res := range results {
		if res.JobID != reqs[i].JobID || res.Failed() {
			t.Fatalf("result %d = %+v", i, res)
		}
	}
	if peak := runner.peak.Load(); peak > 2 {
		t.Fatalf("expected at most 2 concurrent runs, saw %d", peak)
	}
	if len(runner.started) != len(reqs) {
		t.Fatalf("expected %d runs, got %d", len(reqs), len(runner.started))
	}
}

func TestRunAllCancelled(t *testing.T) {
	runner := &slowRunner{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := New(runner, 0).RunAll(ctx, []Request{{Type: model.JobDeleteMissingPhotos, OwnerID: "a", JobID: "j"}})
	if !results[0].Failed() {
		t.Fatal("expected a failed result for a cancelled context")
	}
	if len(runner.started) != 0 {
		t.Fatal("no job should start after cancellation")
	}
}

func TestRunAllEmpty(t *testing.T) {
	if got := New(&slowRunner{}, 3).RunAll(context.Background(), nil); len(got) != 0 {
		t.Fatalf("expected no results, got %d", len(got))
	}
}
