package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/photojobs/internal/model"
)

// PhotoRepository wraps the SQL over the photos and event album tables.
type PhotoRepository struct {
	pool *pgxpool.Pool
}

// NewPhotoRepository constructs a repository.
func NewPhotoRepository(pool *pgxpool.Pool) *PhotoRepository {
	return &PhotoRepository{pool: pool}
}

const photoColumns = `p.id, p.owner_id, p.taken_at, p.gps_lat, p.gps_lon, p.place, p.storage_paths`

// Insert stores a photo. Used by tests and fixtures; ingestion lives
// elsewhere.
func (r *PhotoRepository) Insert(ctx context.Context, it model.Item) error {
	paths := it.StoragePaths
	if paths == nil {
		paths = []string{}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO photos (id, owner_id, taken_at, gps_lat, gps_lon, place, storage_paths)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, it.ID, it.OwnerID, it.TakenAt, it.Lat, it.Lon, it.Place, paths)
	if err != nil {
		return fmt.Errorf("insert photo: %w", err)
	}
	return nil
}

// ListTimestamped returns the owner's photos that have a capture time.
func (r *PhotoRepository) ListTimestamped(ctx context.Context, ownerID string) ([]model.Item, error) {
	return r.query(ctx, `SELECT `+photoColumns+` FROM photos p
		WHERE p.owner_id=$1 AND p.taken_at IS NOT NULL ORDER BY p.taken_at, p.id`, ownerID)
}

// ListMissing returns the owner's photos without any storage path.
func (r *PhotoRepository) ListMissing(ctx context.Context, ownerID string) ([]model.Item, error) {
	return r.query(ctx, `SELECT `+photoColumns+` FROM photos p
		WHERE p.owner_id=$1 AND cardinality(p.storage_paths) = 0 ORDER BY p.id`, ownerID)
}

// ListWithLocations returns the owner's photos that have storage paths.
func (r *PhotoRepository) ListWithLocations(ctx context.Context, ownerID string) ([]model.Item, error) {
	return r.query(ctx, `SELECT `+photoColumns+` FROM photos p
		WHERE p.owner_id=$1 AND cardinality(p.storage_paths) > 0 ORDER BY p.id`, ownerID)
}

// ListAlbumItems returns the photos of an event album.
func (r *PhotoRepository) ListAlbumItems(ctx context.Context, albumID string) ([]model.Item, error) {
	return r.query(ctx, `SELECT `+photoColumns+` FROM photos p
		JOIN event_album_photos ap ON ap.photo_id = p.id
		WHERE ap.album_id=$1 ORDER BY p.taken_at NULLS LAST, p.id`, albumID)
}

// SetStoragePaths replaces the storage paths of a photo.
func (r *PhotoRepository) SetStoragePaths(ctx context.Context, itemID string, paths []string) error {
	if paths == nil {
		paths = []string{}
	}
	tag, err := r.pool.Exec(ctx, `UPDATE photos SET storage_paths=$1 WHERE id=$2`, paths, itemID)
	if err != nil {
		return fmt.Errorf("update storage paths: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("photo %s: %w", itemID, model.ErrNotFound)
	}
	return nil
}

// DeleteItems removes photos; event album links go with them through the
// foreign key cascade.
func (r *PhotoRepository) DeleteItems(ctx context.Context, ids []string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM photos WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("delete photos: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PhotoRepository) query(ctx context.Context, sql string, args ...any) ([]model.Item, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select photos: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Item, error) {
		var it model.Item
		err := row.Scan(&it.ID, &it.OwnerID, &it.TakenAt, &it.Lat, &it.Lon, &it.Place, &it.StoragePaths)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan photos: %w", err)
	}
	return items, nil
}
