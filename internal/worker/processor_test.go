package worker

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/photojobs/internal/jobs"
	"github.com/dharsanguruparan/photojobs/internal/model"
	"github.com/dharsanguruparan/photojobs/internal/queue"
)

type call struct {
	jobType model.JobType
	owner   string
	jobID   string
}

type fakeRunner struct {
	calls  []call
	status jobs.Status
}

func (f *fakeRunner) Run(ctx context.Context, jobType model.JobType, ownerID, jobID string) jobs.Result {
	f.calls = append(f.calls, call{jobType, ownerID, jobID})
	res := jobs.Result{JobID: jobID, Type: jobType, Status: f.status}
	if f.status == jobs.StatusFailed {
		res.Reason = "boom"
	}
	return res
}

func newProcessor(r JobRunner) *Processor {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewProcessor(r, log)
}

func TestHandlerDispatchesEveryJobType(t *testing.T) {
	runner := &fakeRunner{status: jobs.StatusSucceeded}
	mux := newProcessor(runner).Handler()
	for _, jt := range model.JobTypes {
		task, err := queue.NewTask(jt, queue.Payload{OwnerID: "alice", JobID: "job-" + string(jt)}, "")
		if err != nil {
			t.Fatalf("new task: %v", err)
		}
		if err := mux.ProcessTask(context.Background(), task); err != nil {
			t.Fatalf("process %s: %v", jt, err)
		}
	}
	if len(runner.calls) != len(model.JobTypes) {
		t.Fatalf("expected %d runs, got %d", len(model.JobTypes), len(runner.calls))
	}
	for i, jt := range model.JobTypes {
		want := call{jt, "alice", "job-" + string(jt)}
		if runner.calls[i] != want {
			t.Fatalf("call %d = %+v, want %+v", i, runner.calls[i], want)
		}
	}
}

func TestHandlerSkipsRetryOnFailure(t *testing.T) {
	runner := &fakeRunner{status: jobs.StatusFailed}
	mux := newProcessor(runner).Handler()
	task, _ := queue.NewTask(model.JobGenerateEventAlbums, queue.Payload{OwnerID: "alice", JobID: "j"}, "")
	err := mux.ProcessTask(context.Background(), task)
	if err == nil {
		t.Fatal("expected the failure to surface")
	}
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestHandlerRejectsMalformedPayload(t *testing.T) {
	runner := &fakeRunner{status: jobs.StatusSucceeded}
	mux := newProcessor(runner).Handler()
	task := asynq.NewTask(queue.TaskType(model.JobDeleteMissingPhotos), []byte("not json"))
	err := mux.ProcessTask(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
	if len(runner.calls) != 0 {
		t.Fatal("runner must not be called for a malformed task")
	}
}
