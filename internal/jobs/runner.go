package jobs

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/photojobs/internal/album"
	"github.com/dharsanguruparan/photojobs/internal/cluster"
	"github.com/dharsanguruparan/photojobs/internal/model"
)

// DefaultEventGap is the largest gap between consecutive photos of one event.
const DefaultEventGap = 36 * time.Hour

const finishAttempts = 3

// Deps are the collaborators a Runner needs. Locations is optional.
type Deps struct {
	Items       ItemStore
	Albums      AlbumStore
	Jobs        JobStore
	Memberships []MembershipStore
	Faces       FaceStore
	Cache       ViewCache
	Locations   LocationChecker
	Titler      album.Titler
	EventGap    time.Duration
	Log         logrus.FieldLogger
	Tracker     []TrackerOption
}

// Runner executes batch jobs. One call runs one job to completion on the
// calling goroutine.
type Runner struct {
	items    ItemStore
	albums   AlbumStore
	titler   album.Titler
	tracker  *Tracker
	builder  *album.Builder
	reaper   *Reaper
	eventGap time.Duration
	log      logrus.FieldLogger

	finishBackoff time.Duration
}

// NewRunner wires a Runner from deps.
func NewRunner(deps Deps) *Runner {
	gap := deps.EventGap
	if gap <= 0 {
		gap = DefaultEventGap
	}
	return &Runner{
		items:    deps.Items,
		albums:   deps.Albums,
		titler:   deps.Titler,
		tracker:  NewTracker(deps.Jobs, deps.Tracker...),
		builder:  album.NewBuilder(deps.Albums, deps.Titler, deps.Log),
		reaper:   NewReaper(deps.Items, deps.Memberships, deps.Faces, deps.Cache, deps.Locations, deps.Log),
		eventGap: gap,
		log:      deps.Log,

		finishBackoff: 250 * time.Millisecond,
	}
}

// Run dispatches on jobType.
func (r *Runner) Run(ctx context.Context, jobType model.JobType, ownerID, jobID string) Result {
	switch jobType {
	case model.JobRegenerateTitles:
		return r.RegenerateEventTitles(ctx, ownerID, jobID)
	case model.JobGenerateEventAlbums:
		return r.GenerateEventAlbums(ctx, ownerID, jobID)
	case model.JobDeleteMissingPhotos:
		return r.DeleteMissingPhotos(ctx, ownerID, jobID)
	default:
		return newResult(jobID, jobType, model.Progress{}, fmt.Errorf("unknown job type %q", jobType))
	}
}

// RegenerateEventTitles recomputes the title of every event album of the owner.
func (r *Runner) RegenerateEventTitles(ctx context.Context, ownerID, jobID string) Result {
	return r.execute(ctx, model.JobRegenerateTitles, ownerID, jobID, func(ctx context.Context, log logrus.FieldLogger, progress ProgressFunc) error {
		albums, err := r.albums.ListAlbums(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("list event albums: %w", err)
		}
		for idx, a := range albums {
			items, err := r.items.ListAlbumItems(ctx, a.ID)
			if err != nil {
				return fmt.Errorf("list photos of album %s: %w", a.ID, err)
			}
			title, err := r.titler.Title(ctx, a, items)
			if err != nil {
				return fmt.Errorf("title album %s: %w", a.ID, err)
			}
			if err := r.albums.UpdateTitle(ctx, a.ID, title); err != nil {
				return fmt.Errorf("save title of album %s: %w", a.ID, err)
			}
			log.WithField("album_id", a.ID).Debugf("retitled %q", title)
			if err := progress(ctx, idx+1, len(albums)); err != nil {
				return fmt.Errorf("report progress: %w", err)
			}
		}
		return nil
	})
}

// GenerateEventAlbums clusters the owner's photos by capture time and
// creates an event album for every new multi-photo cluster.
func (r *Runner) GenerateEventAlbums(ctx context.Context, ownerID, jobID string) Result {
	return r.execute(ctx, model.JobGenerateEventAlbums, ownerID, jobID, func(ctx context.Context, log logrus.FieldLogger, progress ProgressFunc) error {
		items, err := r.items.ListTimestamped(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("list timestamped photos: %w", err)
		}
		items = slices.DeleteFunc(items, func(it model.Item) bool { return it.TakenAt == nil })

		groups := cluster.ByGap(items, func(it model.Item) time.Time { return *it.TakenAt }, r.eventGap)
		log.Infof("made %d groups from %d photos", len(groups), len(items))

		created, err := r.builder.Build(ctx, ownerID, groups, progress)
		log.Infof("created %d event albums", len(created))
		return err
	})
}

// DeleteMissingPhotos purges the owner's photos whose files are gone.
func (r *Runner) DeleteMissingPhotos(ctx context.Context, ownerID, jobID string) Result {
	return r.execute(ctx, model.JobDeleteMissingPhotos, ownerID, jobID, func(ctx context.Context, log logrus.FieldLogger, progress ProgressFunc) error {
		rep, err := r.reaper.Purge(ctx, ownerID, progress)
		log.WithFields(logrus.Fields{
			"checked":             rep.Checked,
			"paths_pruned":        rep.PathsPruned,
			"purged":              rep.Purged,
			"memberships_removed": rep.MembershipsRemoved,
			"faces_deleted":       rep.FacesDeleted,
		}).Info("purge finished")
		return err
	})
}

type work func(ctx context.Context, log logrus.FieldLogger, progress ProgressFunc) error

// execute wraps a job body with tracking: start, progress, and exactly one
// finish whether the body returns an error, succeeds or panics.
func (r *Runner) execute(ctx context.Context, jobType model.JobType, ownerID, jobID string, body work) Result {
	log := r.log.WithFields(logrus.Fields{"job_id": jobID, "owner_id": ownerID, "job_type": jobType})

	h, err := r.tracker.Start(ctx, jobID, ownerID, jobType)
	if err != nil {
		log.WithError(err).Error("could not start job")
		return newResult(jobID, jobType, model.Progress{}, err)
	}
	log.Info("job started")

	progress := func(ctx context.Context, done, total int) error {
		return r.tracker.ReportProgress(ctx, h, done, total)
	}
	workErr := runSafely(ctx, log, progress, body)
	if workErr != nil {
		log.WithError(workErr).Error("job failed")
	}

	// The record must be finalized even if the job context was cancelled.
	if err := r.finish(context.WithoutCancel(ctx), log, h, workErr != nil); err != nil {
		log.WithError(err).Error("could not finish job")
		if workErr == nil {
			workErr = err
		}
	}
	if workErr == nil {
		log.Info("job finished")
	}
	job := h.Job()
	return newResult(jobID, jobType, job.Progress, workErr)
}

// finish retries Finish a few times so a transient store error does not
// leave the record running forever.
func (r *Runner) finish(ctx context.Context, log logrus.FieldLogger, h *Handle, failed bool) error {
	var err error
	for attempt := 1; attempt <= finishAttempts; attempt++ {
		if err = r.tracker.Finish(ctx, h, failed); err == nil {
			return nil
		}
		if attempt < finishAttempts {
			log.WithError(err).Warnf("finish attempt %d failed, retrying", attempt)
			time.Sleep(r.finishBackoff * time.Duration(attempt))
		}
	}
	return err
}

func runSafely(ctx context.Context, log logrus.FieldLogger, progress ProgressFunc, body work) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return body(ctx, log, progress)
}
