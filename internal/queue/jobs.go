// Package queue defines the asynq tasks that carry batch job requests from
// the web app (or the CLI) to the worker.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/photojobs/internal/model"
)

const taskPrefix = "photos:"

// TaskType returns the asynq task type for a job type.
func TaskType(jobType model.JobType) string {
	return taskPrefix + string(jobType)
}

// JobTypeOf maps an asynq task type back to its job type.
func JobTypeOf(taskType string) (model.JobType, error) {
	if len(taskType) <= len(taskPrefix) || taskType[:len(taskPrefix)] != taskPrefix {
		return "", fmt.Errorf("unexpected task type %q", taskType)
	}
	return model.ParseJobType(taskType[len(taskPrefix):])
}

// Payload is serialized into the task so the worker knows whose library to
// work on and which BatchJob record to report to.
type Payload struct {
	OwnerID string `json:"owner_id"`
	JobID   string `json:"job_id"`
}

// Validate rejects payloads the worker cannot act on.
func (p Payload) Validate() error {
	if p.OwnerID == "" {
		return errors.New("owner_id is required")
	}
	if p.JobID == "" {
		return errors.New("job_id is required")
	}
	return nil
}

// NewTask builds the task for one job run. Jobs are never retried by the
// queue: a failed run is recorded on its BatchJob, its task is archived, and
// the user re-submits the same job id. Every submission therefore gets its
// own task id, prefixed with the job id so asynq tooling can find it.
func NewTask(jobType model.JobType, payload Payload, queueName string) (*asynq.Task, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	opts := []asynq.Option{asynq.MaxRetry(0), asynq.TaskID(AttemptTaskID(payload.JobID))}
	if queueName != "" {
		opts = append(opts, asynq.Queue(queueName))
	}
	return asynq.NewTask(TaskType(jobType), data, opts...), nil
}

// AttemptTaskID returns a fresh task id for one submission of jobID.
func AttemptTaskID(jobID string) string {
	return jobID + ":" + uuid.NewString()
}

// Enqueue schedules a job run.
func Enqueue(ctx context.Context, client *asynq.Client, jobType model.JobType, payload Payload, queueName string) (*asynq.TaskInfo, error) {
	task, err := NewTask(jobType, payload, queueName)
	if err != nil {
		return nil, err
	}
	info, err := client.EnqueueContext(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("enqueue %s task: %w", jobType, err)
	}
	return info, nil
}

// DecodePayload parses a task payload.
func DecodePayload(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("decode payload: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Payload{}, fmt.Errorf("decode payload: %w", err)
	}
	return p, nil
}
