package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/photojobs/internal/model"
)

// JobRepository persists BatchJob records.
type JobRepository struct {
	pool *pgxpool.Pool
}

// NewJobRepository constructs a repository.
func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

const jobColumns = `job_id, job_type, started_by, queued_at, started_at, finished_at,
	failed, finished, progress_current, progress_target`

// GetJob returns a job by id.
func (r *JobRepository) GetJob(ctx context.Context, jobID string) (*model.BatchJob, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+jobColumns+` FROM batch_jobs WHERE job_id=$1`, jobID)
	if err != nil {
		return nil, fmt.Errorf("select job: %w", err)
	}
	job, err := pgx.CollectExactlyOneRow(rows, scanJob)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("job %s: %w", jobID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	return &job, nil
}

// ListJobs returns the most recent jobs started by an owner.
func (r *JobRepository) ListJobs(ctx context.Context, startedBy string, limit int) ([]model.BatchJob, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `SELECT `+jobColumns+` FROM batch_jobs
		WHERE started_by=$1 ORDER BY started_at DESC LIMIT $2`, startedBy, limit)
	if err != nil {
		return nil, fmt.Errorf("select jobs: %w", err)
	}
	jobs, err := pgx.CollectRows(rows, scanJob)
	if err != nil {
		return nil, fmt.Errorf("scan jobs: %w", err)
	}
	return jobs, nil
}

// CreateJob inserts a new record.
func (r *JobRepository) CreateJob(ctx context.Context, job *model.BatchJob) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO batch_jobs (`+jobColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, job.JobID, job.Type, job.StartedBy, job.QueuedAt, job.StartedAt, job.FinishedAt,
		job.Failed, job.Finished, job.Progress.Current, job.Progress.Target)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// SaveJob overwrites the mutable fields of an existing record.
func (r *JobRepository) SaveJob(ctx context.Context, job *model.BatchJob) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE batch_jobs
		SET job_type=$1,
			started_at=$2,
			finished_at=$3,
			failed=$4,
			finished=$5,
			progress_current=$6,
			progress_target=$7
		WHERE job_id=$8
	`, job.Type, job.StartedAt, job.FinishedAt, job.Failed, job.Finished,
		job.Progress.Current, job.Progress.Target, job.JobID)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s: %w", job.JobID, model.ErrNotFound)
	}
	return nil
}

func scanJob(row pgx.CollectableRow) (model.BatchJob, error) {
	var job model.BatchJob
	err := row.Scan(&job.JobID, &job.Type, &job.StartedBy, &job.QueuedAt, &job.StartedAt, &job.FinishedAt,
		&job.Failed, &job.Finished, &job.Progress.Current, &job.Progress.Target)
	return job, err
}
