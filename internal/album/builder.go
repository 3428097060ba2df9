// Package album turns clusters of photos into event albums.
package album

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/photojobs/internal/geo"
	"github.com/dharsanguruparan/photojobs/internal/model"
)

// MinGroupSize is the smallest cluster that counts as an event. A lone photo
// is not an event.
const MinGroupSize = 2

// Store persists event albums. CreateIfAbsent stores the album together
// with its ItemIDs and Title in one atomic step: either all of it is written
// or nothing is. It reports false, without touching the existing row, when
// an album with the same (OwnerID, TakenAt) already exists.
type Store interface {
	Exists(ctx context.Context, ownerID string, takenAt time.Time) (bool, error)
	CreateIfAbsent(ctx context.Context, album *model.EventAlbum) (bool, error)
	UpdateTitle(ctx context.Context, albumID, title string) error
}

// Titler names an album from its photos.
type Titler interface {
	Title(ctx context.Context, album model.EventAlbum, items []model.Item) (string, error)
}

// ProgressFunc receives the number of finished units after each one.
type ProgressFunc func(ctx context.Context, done, total int) error

// Builder creates one event album per photo cluster.
type Builder struct {
	store  Store
	titler Titler
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewBuilder constructs a Builder.
func NewBuilder(store Store, titler Titler, log logrus.FieldLogger) *Builder {
	return &Builder{
		store:  store,
		titler: titler,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Build walks groups in order and creates albums for those with at least
// MinGroupSize photos. Groups whose key already has an album are skipped
// without modifying it. progress, if set, is called after every group. The
// first error stops the walk; albums created so far are kept and returned,
// and the failed group leaves nothing behind so a later run picks it up.
func (b *Builder) Build(ctx context.Context, ownerID string, groups [][]model.Item, progress ProgressFunc) ([]model.EventAlbum, error) {
	var created []model.EventAlbum
	for idx, group := range groups {
		if len(group) >= MinGroupSize {
			album, ok, err := b.buildOne(ctx, ownerID, group)
			if err != nil {
				return created, fmt.Errorf("group %d: %w", idx, err)
			}
			if ok {
				created = append(created, *album)
			}
		}
		if progress != nil {
			if err := progress(ctx, idx+1, len(groups)); err != nil {
				return created, fmt.Errorf("report progress: %w", err)
			}
		}
	}
	return created, nil
}

func (b *Builder) buildOne(ctx context.Context, ownerID string, group []model.Item) (*model.EventAlbum, bool, error) {
	if group[0].TakenAt == nil {
		return nil, false, errors.New("first photo has no timestamp")
	}
	key := *group[0].TakenAt
	log := b.log.WithField("taken_at", key.Format(time.RFC3339))

	// Checked up front so existing events never cost a title lookup.
	exists, err := b.store.Exists(ctx, ownerID, key)
	if err != nil {
		return nil, false, fmt.Errorf("look up album: %w", err)
	}
	if exists {
		log.Debug("event album already exists, skipping")
		return nil, false, nil
	}

	now := b.now()
	album := &model.EventAlbum{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		TakenAt:   key,
		ItemIDs:   make([]string, 0, len(group)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, item := range group {
		album.ItemIDs = append(album.ItemIDs, item.ID)
	}
	if c, ok := Centroid(group); ok {
		album.Lat, album.Lon = &c.Lat, &c.Lon
	}
	title, err := b.titler.Title(ctx, *album, group)
	if err != nil {
		return nil, false, fmt.Errorf("title album: %w", err)
	}
	album.Title = title

	created, err := b.store.CreateIfAbsent(ctx, album)
	if err != nil {
		return nil, false, fmt.Errorf("create album: %w", err)
	}
	if !created {
		log.Debug("event album created concurrently, skipping")
		return nil, false, nil
	}
	log.WithField("album_id", album.ID).Infof("generated event album %q", title)
	return album, true, nil
}

// Centroid averages the coordinates of the photos that have both latitude
// and longitude.
func Centroid(items []model.Item) (geo.Point, bool) {
	points := make([]geo.Point, 0, len(items))
	for _, it := range items {
		if it.HasLocation() {
			points = append(points, geo.Point{Lat: *it.Lat, Lon: *it.Lon})
		}
	}
	return geo.Centroid(points)
}
