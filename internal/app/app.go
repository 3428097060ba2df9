// Package app wires the runtime dependencies shared by the worker and the
// CLI: database pool, repositories, view cache, geocoder and job runner.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/photojobs/internal/cache"
	"github.com/dharsanguruparan/photojobs/internal/config"
	"github.com/dharsanguruparan/photojobs/internal/database"
	"github.com/dharsanguruparan/photojobs/internal/geocode"
	"github.com/dharsanguruparan/photojobs/internal/jobs"
	"github.com/dharsanguruparan/photojobs/internal/repository"
	"github.com/dharsanguruparan/photojobs/internal/s3storage"
	"github.com/dharsanguruparan/photojobs/internal/title"
)

// App holds the opened resources. Close releases them.
type App struct {
	Config   *config.Config
	Log      *logrus.Logger
	Pool     *pgxpool.Pool
	Redis    *redis.Client
	Jobs     *repository.JobRepository
	Geocoder *geocode.Client
	Runner   *jobs.Runner
}

// Open connects to every backing service and builds a Runner. Extra tracker
// options are passed through, which the CLI uses to draw progress.
func Open(ctx context.Context, cfg *config.Config, log *logrus.Logger, opts ...jobs.TrackerOption) (*App, error) {
	pool, err := database.Connect(ctx, cfg.DatabaseURL, int32(cfg.Workers*2+2))
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Log: log, Pool: pool}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		a.Close()
		return nil, err
	}

	rdb, err := cache.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Redis = rdb
	views, err := cache.NewRedisViews(rdb, cfg.ViewCachePrefix)
	if err != nil {
		a.Close()
		return nil, err
	}

	var locations jobs.LocationChecker
	if cfg.VerifyLocations {
		if !cfg.ObjectStoreEnabled() {
			a.Close()
			return nil, fmt.Errorf("VERIFY_LOCATIONS requires S3_ENDPOINT")
		}
		store, err := s3storage.New(cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := store.RequireBucket(ctx); err != nil {
			a.Close()
			return nil, err
		}
		locations = store
	}

	a.Geocoder = geocode.New(cfg.MapboxAPIKey, cfg.MapboxBaseURL, log)
	if !a.Geocoder.Configured() {
		log.Warn("MAPBOX_API_KEY not set, event titles will only use stored places")
	}

	memberships := make([]jobs.MembershipStore, 0, 4)
	for _, m := range repository.NewMembershipRepositories(pool) {
		memberships = append(memberships, m)
	}
	a.Jobs = repository.NewJobRepository(pool)
	a.Runner = jobs.NewRunner(jobs.Deps{
		Items:       repository.NewPhotoRepository(pool),
		Albums:      repository.NewAlbumRepository(pool),
		Jobs:        a.Jobs,
		Memberships: memberships,
		Faces:       repository.NewFaceRepository(pool),
		Cache:       views,
		Locations:   locations,
		Titler:      title.New(a.Geocoder),
		EventGap:    cfg.EventGap,
		Log:         log,
		Tracker:     opts,
	})
	return a, nil
}

// Close releases every opened resource.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Log.WithError(err).Warn("close redis")
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}
