package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// FaceRepository manages face detections.
type FaceRepository struct {
	pool *pgxpool.Pool
}

// NewFaceRepository constructs a repository.
func NewFaceRepository(pool *pgxpool.Pool) *FaceRepository {
	return &FaceRepository{pool: pool}
}

// Insert records a face detection on a photo and returns its id.
func (r *FaceRepository) Insert(ctx context.Context, itemID string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO faces (photo_id) VALUES ($1) RETURNING id`, itemID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert face: %w", err)
	}
	return id, nil
}

// DeleteFacesByItem removes every face detected on a photo.
func (r *FaceRepository) DeleteFacesByItem(ctx context.Context, itemID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM faces WHERE photo_id=$1`, itemID)
	if err != nil {
		return 0, fmt.Errorf("delete faces: %w", err)
	}
	return tag.RowsAffected(), nil
}
