package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dharsanguruparan/photojobs/internal/model"
)

var (
	// ErrJobFinished is returned for any mutation after Finish.
	ErrJobFinished = errors.New("job already finished")
	// ErrProgressRegressed is returned when current goes backwards.
	ErrProgressRegressed = errors.New("job progress went backwards")
)

// Handle is the running state of one job.
type Handle struct {
	job model.BatchJob
}

// Job returns a snapshot of the tracked record.
func (h *Handle) Job() model.BatchJob {
	return h.job
}

// Listener observes every persisted change of a job.
type Listener func(job model.BatchJob)

// TrackerOption customizes a Tracker.
type TrackerOption func(*Tracker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// WithListener registers fn to be called after each persisted mutation.
func WithListener(fn Listener) TrackerOption {
	return func(t *Tracker) { t.listeners = append(t.listeners, fn) }
}

// Tracker records the lifecycle of batch jobs in a JobStore. It is safe for
// concurrent use with distinct job ids.
type Tracker struct {
	store     JobStore
	now       func() time.Time
	listeners []Listener
}

// NewTracker constructs a Tracker.
func NewTracker(store JobStore, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start reactivates the record of jobID or creates a fresh one. A
// reactivated record starts over as jobType: its finish state and progress
// are cleared.
func (t *Tracker) Start(ctx context.Context, jobID, ownerID string, jobType model.JobType) (*Handle, error) {
	now := t.now()
	job, err := t.store.GetJob(ctx, jobID)
	switch {
	case err == nil:
		job.Type = jobType
		job.StartedAt = now
		job.Finished = false
		job.Failed = false
		job.FinishedAt = nil
		job.Progress = model.Progress{}
		if err := t.store.SaveJob(ctx, job); err != nil {
			return nil, fmt.Errorf("reactivate job %s: %w", jobID, err)
		}
	case errors.Is(err, model.ErrNotFound):
		job = &model.BatchJob{
			JobID:     jobID,
			Type:      jobType,
			StartedBy: ownerID,
			QueuedAt:  now,
			StartedAt: now,
		}
		if err := t.store.CreateJob(ctx, job); err != nil {
			return nil, fmt.Errorf("create job %s: %w", jobID, err)
		}
	default:
		return nil, fmt.Errorf("load job %s: %w", jobID, err)
	}
	h := &Handle{job: *job}
	t.notify(h)
	return h, nil
}

// ReportProgress persists {current, target}.
func (t *Tracker) ReportProgress(ctx context.Context, h *Handle, current, target int) error {
	if h.job.Finished {
		return ErrJobFinished
	}
	if current < h.job.Progress.Current {
		return fmt.Errorf("%w: %d after %d", ErrProgressRegressed, current, h.job.Progress.Current)
	}
	next := h.job
	next.Progress = model.Progress{Current: current, Target: target}
	if err := t.store.SaveJob(ctx, &next); err != nil {
		return fmt.Errorf("save progress of job %s: %w", h.job.JobID, err)
	}
	h.job = next
	t.notify(h)
	return nil
}

// Finish marks the job finished, and failed when failed is true. Once it
// succeeds the handle is closed; a failed save leaves the handle open so the
// call can be retried.
func (t *Tracker) Finish(ctx context.Context, h *Handle, failed bool) error {
	if h.job.Finished {
		return ErrJobFinished
	}
	now := t.now()
	next := h.job
	next.Finished = true
	next.Failed = failed
	next.FinishedAt = &now
	if err := t.store.SaveJob(ctx, &next); err != nil {
		return fmt.Errorf("finish job %s: %w", h.job.JobID, err)
	}
	h.job = next
	t.notify(h)
	return nil
}

func (t *Tracker) notify(h *Handle) {
	for _, fn := range t.listeners {
		fn(h.job)
	}
}
