package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dharsanguruparan/photojobs/internal/model"
	"github.com/dharsanguruparan/photojobs/internal/storage"
)

func fixedClock(ts ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := ts[i]
		if i < len(ts)-1 {
			i++
		}
		return t
	}
}

func TestTrackerLifecycle(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	t0 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)
	tr := NewTracker(store, WithClock(fixedClock(t0, t1)))

	h, err := tr.Start(ctx, "job-1", "u1", model.JobGenerateEventAlbums)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	job, _ := store.GetJob(ctx, "job-1")
	if !job.QueuedAt.Equal(t0) || !job.StartedAt.Equal(t0) || job.Finished || job.Failed {
		t.Fatalf("unexpected new job %+v", job)
	}

	if err := tr.ReportProgress(ctx, h, 1, 3); err != nil {
		t.Fatalf("progress: %v", err)
	}
	if err := tr.ReportProgress(ctx, h, 0, 3); !errors.Is(err, ErrProgressRegressed) {
		t.Fatalf("expected ErrProgressRegressed, got %v", err)
	}
	job, _ = store.GetJob(ctx, "job-1")
	if job.Progress != (model.Progress{Current: 1, Target: 3}) {
		t.Fatalf("unexpected progress %+v", job.Progress)
	}

	if err := tr.Finish(ctx, h, true); err != nil {
		t.Fatalf("finish: %v", err)
	}
	job, _ = store.GetJob(ctx, "job-1")
	if !job.Finished || !job.Failed || job.FinishedAt == nil || !job.FinishedAt.Equal(t1) {
		t.Fatalf("unexpected finished job %+v", job)
	}
	if job.Progress.Current != 1 {
		t.Fatalf("failed job lost its progress: %+v", job.Progress)
	}

	if err := tr.ReportProgress(ctx, h, 2, 3); !errors.Is(err, ErrJobFinished) {
		t.Fatalf("expected ErrJobFinished, got %v", err)
	}
	if err := tr.Finish(ctx, h, false); !errors.Is(err, ErrJobFinished) {
		t.Fatalf("expected ErrJobFinished on second finish, got %v", err)
	}
}

func TestTrackerReactivatesExistingJob(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	t0 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	store.CreateJob(ctx, &model.BatchJob{
		JobID:     "job-1",
		Type:      model.JobDeleteMissingPhotos,
		StartedBy: "u1",
		QueuedAt:  t0,
		StartedAt: t0,
		Finished:  true,
		Failed:    true,
		Progress:  model.Progress{Current: 5, Target: 9},
	})

	tr := NewTracker(store, WithClock(fixedClock(t1)))
	h, err := tr.Start(ctx, "job-1", "u1", model.JobDeleteMissingPhotos)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	job := h.Job()
	if !job.QueuedAt.Equal(t0) {
		t.Errorf("queued time must be kept, got %s", job.QueuedAt)
	}
	if !job.StartedAt.Equal(t1) {
		t.Errorf("expected started at %s, got %s", t1, job.StartedAt)
	}
	if job.Finished || job.Failed || job.Progress.Current != 0 {
		t.Errorf("expected a fresh run, got %+v", job)
	}
}

func TestTrackerNotifiesListeners(t *testing.T) {
	ctx := context.Background()
	var seen []model.Progress
	tr := NewTracker(storage.NewMemoryStore(), WithListener(func(job model.BatchJob) {
		seen = append(seen, job.Progress)
	}))
	h, _ := tr.Start(ctx, "j", "u", model.JobRegenerateTitles)
	tr.ReportProgress(ctx, h, 1, 2)
	tr.ReportProgress(ctx, h, 2, 2)
	tr.Finish(ctx, h, false)
	if len(seen) != 4 || seen[2].Current != 2 {
		t.Fatalf("unexpected notifications %+v", seen)
	}
}

func TestTrackerFinishCanBeRetriedAfterSaveFailure(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	tr := NewTracker(store)
	h, err := tr.Start(ctx, "j1", "u1", model.JobGenerateEventAlbums)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	store.SaveJobError = errors.New("db blip")
	if err := tr.Finish(ctx, h, false); err == nil {
		t.Fatal("expected the first finish to fail")
	}
	if h.Job().Finished {
		t.Fatal("handle must stay open after a failed save")
	}

	store.SaveJobError = nil
	if err := tr.Finish(ctx, h, false); err != nil {
		t.Fatalf("retry finish: %v", err)
	}
	job, _ := store.GetJob(ctx, "j1")
	if !job.Finished || job.FinishedAt == nil {
		t.Fatalf("expected a finished record, got %+v", job)
	}
	if err := tr.Finish(ctx, h, false); !errors.Is(err, ErrJobFinished) {
		t.Fatalf("expected ErrJobFinished after a successful finish, got %v", err)
	}
}

func TestTrackerReactivationTakesNewJobType(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	tr := NewTracker(store)
	h, _ := tr.Start(ctx, "j1", "u1", model.JobGenerateEventAlbums)
	if err := tr.Finish(ctx, h, true); err != nil {
		t.Fatalf("finish: %v", err)
	}

	h, err := tr.Start(ctx, "j1", "u1", model.JobRegenerateTitles)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if h.Job().Type != model.JobRegenerateTitles {
		t.Fatalf("handle kept old type %q", h.Job().Type)
	}
	job, _ := store.GetJob(ctx, "j1")
	if job.Type != model.JobRegenerateTitles {
		t.Fatalf("stored record kept old type %q", job.Type)
	}
}
