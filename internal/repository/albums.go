package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/photojobs/internal/model"
)

// AlbumRepository stores event albums.
type AlbumRepository struct {
	pool *pgxpool.Pool
}

// NewAlbumRepository constructs a repository.
func NewAlbumRepository(pool *pgxpool.Pool) *AlbumRepository {
	return &AlbumRepository{pool: pool}
}

// Exists reports whether the owner has an album keyed by takenAt.
func (r *AlbumRepository) Exists(ctx context.Context, ownerID string, takenAt time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM event_albums WHERE owner_id=$1 AND taken_at=$2)`,
		ownerID, takenAt).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("select event album: %w", err)
	}
	return exists, nil
}

// CreateIfAbsent inserts the album, its photo links and its title in one
// transaction unless (owner_id, taken_at) is taken. The unique constraint
// makes concurrent runs for the same owner safe.
func (r *AlbumRepository) CreateIfAbsent(ctx context.Context, album *model.EventAlbum) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO event_albums (id, owner_id, taken_at, title, gps_lat, gps_lon, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (owner_id, taken_at) DO NOTHING
	`, album.ID, album.OwnerID, album.TakenAt, album.Title, album.Lat, album.Lon, album.CreatedAt, album.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("insert event album: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if len(album.ItemIDs) > 0 {
		_, err = tx.Exec(ctx, `
			INSERT INTO event_album_photos (album_id, photo_id)
			SELECT $1, unnest($2::text[])
			ON CONFLICT DO NOTHING
		`, album.ID, album.ItemIDs)
		if err != nil {
			return false, fmt.Errorf("link photos: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit event album: %w", err)
	}
	return true, nil
}

// UpdateTitle stores a new title.
func (r *AlbumRepository) UpdateTitle(ctx context.Context, albumID, title string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE event_albums SET title=$1, updated_at=$2 WHERE id=$3`,
		title, time.Now().UTC(), albumID)
	if err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("album %s: %w", albumID, model.ErrNotFound)
	}
	return nil
}

// ListAlbums returns the owner's event albums ordered by key, with photo ids.
func (r *AlbumRepository) ListAlbums(ctx context.Context, ownerID string) ([]model.EventAlbum, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.owner_id, a.taken_at, a.title, a.gps_lat, a.gps_lon, a.created_at, a.updated_at,
			COALESCE(array_agg(ap.photo_id ORDER BY ap.photo_id) FILTER (WHERE ap.photo_id IS NOT NULL), '{}')
		FROM event_albums a
		LEFT JOIN event_album_photos ap ON ap.album_id = a.id
		WHERE a.owner_id=$1
		GROUP BY a.id
		ORDER BY a.taken_at
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("select event albums: %w", err)
	}
	albums, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.EventAlbum, error) {
		var a model.EventAlbum
		err := row.Scan(&a.ID, &a.OwnerID, &a.TakenAt, &a.Title, &a.Lat, &a.Lon, &a.CreatedAt, &a.UpdatedAt, &a.ItemIDs)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan event albums: %w", err)
	}
	return albums, nil
}
