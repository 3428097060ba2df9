// Package jobs runs the long-running batch jobs of the photo library: event
// album generation, event title regeneration and the purge of photos whose
// files disappeared. Every job is tracked through a durable BatchJob record.
package jobs

import (
	"context"

	"github.com/dharsanguruparan/photojobs/internal/album"
	"github.com/dharsanguruparan/photojobs/internal/model"
)

// ItemStore reads and deletes photos.
type ItemStore interface {
	ListTimestamped(ctx context.Context, ownerID string) ([]model.Item, error)
	ListMissing(ctx context.Context, ownerID string) ([]model.Item, error)
	ListWithLocations(ctx context.Context, ownerID string) ([]model.Item, error)
	SetStoragePaths(ctx context.Context, itemID string, paths []string) error
	DeleteItems(ctx context.Context, ids []string) (int64, error)
	ListAlbumItems(ctx context.Context, albumID string) ([]model.Item, error)
}

// AlbumStore persists event albums.
type AlbumStore interface {
	album.Store
	ListAlbums(ctx context.Context, ownerID string) ([]model.EventAlbum, error)
}

// JobStore persists BatchJob records. GetJob returns an error wrapping
// model.ErrNotFound for unknown ids.
type JobStore interface {
	GetJob(ctx context.Context, jobID string) (*model.BatchJob, error)
	CreateJob(ctx context.Context, job *model.BatchJob) error
	SaveJob(ctx context.Context, job *model.BatchJob) error
}

// MembershipStore is implemented once per grouping kind (date, place,
// person, user albums).
type MembershipStore interface {
	Kind() model.GroupKind
	GroupsContaining(ctx context.Context, itemID string) ([]string, error)
	RemoveItem(ctx context.Context, groupID, itemID string) error
}

// FaceStore deletes face detections.
type FaceStore interface {
	DeleteFacesByItem(ctx context.Context, itemID string) (int64, error)
}

// ViewCache holds derived views that go stale when photos are removed.
type ViewCache interface {
	InvalidateAll(ctx context.Context) error
}

// LocationChecker tells whether a storage path still has a backing object.
type LocationChecker interface {
	Exists(ctx context.Context, path string) (bool, error)
}

// ProgressFunc is called after each finished unit of work.
type ProgressFunc = album.ProgressFunc
