package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/photojobs/internal/jobs"
	"github.com/dharsanguruparan/photojobs/internal/model"
	"github.com/dharsanguruparan/photojobs/internal/queue"
)

// JobRunner runs one batch job to completion.
type JobRunner interface {
	Run(ctx context.Context, jobType model.JobType, ownerID, jobID string) jobs.Result
}

// Processor is plugged into the asynq worker loop.
type Processor struct {
	runner JobRunner
	log    logrus.FieldLogger
}

// NewProcessor constructs a worker processor.
func NewProcessor(runner JobRunner, log logrus.FieldLogger) *Processor {
	return &Processor{runner: runner, log: log}
}

// Handler registers a handler for every job type.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	for _, jt := range model.JobTypes {
		mux.HandleFunc(queue.TaskType(jt), p.handle)
	}
	return mux
}

func (p *Processor) handle(ctx context.Context, task *asynq.Task) error {
	jobType, err := queue.JobTypeOf(task.Type())
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	payload, err := queue.DecodePayload(task.Payload())
	if err != nil {
		p.log.WithError(err).WithField("task_type", task.Type()).Error("dropping malformed task")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	res := p.runner.Run(ctx, jobType, payload.OwnerID, payload.JobID)
	if res.Failed() {
		// The BatchJob record already carries the failure; the task is
		// archived so operators can inspect it with asynq tooling.
		return fmt.Errorf("job %s: %w", res.JobID, errors.Join(errors.New(res.Reason), asynq.SkipRetry))
	}
	return nil
}
