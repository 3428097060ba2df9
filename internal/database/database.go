package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool using the provided DSN.
func Connect(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MaxConnIdleTime = 5 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the tables used by the batch jobs if needed. The
// photo, album and face tables are owned by the main application; creating
// them here keeps a fresh docker-compose stack and the integration tests
// self-contained.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS photos (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	taken_at TIMESTAMPTZ,
	gps_lat DOUBLE PRECISION,
	gps_lon DOUBLE PRECISION,
	place TEXT NOT NULL DEFAULT '',
	storage_paths TEXT[] NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_photos_owner ON photos(owner_id);

CREATE TABLE IF NOT EXISTS event_albums (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	taken_at TIMESTAMPTZ NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	gps_lat DOUBLE PRECISION,
	gps_lon DOUBLE PRECISION,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (owner_id, taken_at)
);
CREATE TABLE IF NOT EXISTS event_album_photos (
	album_id TEXT NOT NULL REFERENCES event_albums(id) ON DELETE CASCADE,
	photo_id TEXT NOT NULL REFERENCES photos(id) ON DELETE CASCADE,
	PRIMARY KEY (album_id, photo_id)
);

CREATE TABLE IF NOT EXISTS date_album_photos (
	album_id TEXT NOT NULL,
	photo_id TEXT NOT NULL,
	PRIMARY KEY (album_id, photo_id)
);
CREATE TABLE IF NOT EXISTS place_album_photos (
	album_id TEXT NOT NULL,
	photo_id TEXT NOT NULL,
	PRIMARY KEY (album_id, photo_id)
);
CREATE TABLE IF NOT EXISTS person_album_photos (
	album_id TEXT NOT NULL,
	photo_id TEXT NOT NULL,
	PRIMARY KEY (album_id, photo_id)
);
CREATE TABLE IF NOT EXISTS user_album_photos (
	album_id TEXT NOT NULL,
	photo_id TEXT NOT NULL,
	PRIMARY KEY (album_id, photo_id)
);
CREATE INDEX IF NOT EXISTS idx_date_album_photos_photo ON date_album_photos(photo_id);
CREATE INDEX IF NOT EXISTS idx_place_album_photos_photo ON place_album_photos(photo_id);
CREATE INDEX IF NOT EXISTS idx_person_album_photos_photo ON person_album_photos(photo_id);
CREATE INDEX IF NOT EXISTS idx_user_album_photos_photo ON user_album_photos(photo_id);

CREATE TABLE IF NOT EXISTS faces (
	id BIGSERIAL PRIMARY KEY,
	photo_id TEXT NOT NULL,
	person_id TEXT
);
CREATE INDEX IF NOT EXISTS idx_faces_photo ON faces(photo_id);

CREATE TABLE IF NOT EXISTS batch_jobs (
	job_id TEXT PRIMARY KEY,
	job_type TEXT NOT NULL,
	started_by TEXT NOT NULL,
	queued_at TIMESTAMPTZ NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	failed BOOLEAN NOT NULL DEFAULT FALSE,
	finished BOOLEAN NOT NULL DEFAULT FALSE,
	progress_current INTEGER NOT NULL DEFAULT 0,
	progress_target INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_batch_jobs_started_by ON batch_jobs(started_by);`
	_, err := pool.Exec(ctx, stmt)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
