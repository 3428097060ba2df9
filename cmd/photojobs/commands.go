package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/photojobs/internal/app"
	"github.com/dharsanguruparan/photojobs/internal/database"
	"github.com/dharsanguruparan/photojobs/internal/geo"
	"github.com/dharsanguruparan/photojobs/internal/geocode"
	"github.com/dharsanguruparan/photojobs/internal/jobs"
	"github.com/dharsanguruparan/photojobs/internal/model"
	"github.com/dharsanguruparan/photojobs/internal/processing"
	"github.com/dharsanguruparan/photojobs/internal/queue"
	"github.com/dharsanguruparan/photojobs/internal/repository"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database tables if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}
			pool, err := database.Connect(ctx, cfg.DatabaseURL, 2)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := database.EnsureSchema(ctx, pool); err != nil {
				return err
			}
			log.Info("schema is up to date")
			return nil
		},
	}
}

func jobTypeArg(args []string) (model.JobType, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("expected one job type, one of %v", model.JobTypes)
	}
	return model.ParseJobType(args[0])
}

func newEnqueueCmd() *cobra.Command {
	var owner, jobID string
	cmd := &cobra.Command{
		Use:   "enqueue <job-type>",
		Short: "Queue a batch job for the worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobType, err := jobTypeArg(args)
			if err != nil {
				return err
			}
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}
			if jobID == "" {
				jobID = uuid.NewString()
			}
			client := asynq.NewClient(asynq.RedisClientOpt{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			defer client.Close()
			info, err := queue.Enqueue(cmd.Context(), client, jobType, queue.Payload{OwnerID: owner, JobID: jobID}, cfg.Queue)
			if err != nil {
				return err
			}
			log.WithField("job_id", jobID).Infof("queued %s on %s", jobType, info.Queue)
			fmt.Fprintln(cmd.OutOrStdout(), jobID)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Owner whose library the job works on")
	cmd.Flags().StringVar(&jobID, "job-id", "", "Job id (generated when empty)")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newRunCmd() *cobra.Command {
	var owners []string
	var jobID string
	var noProgress bool
	cmd := &cobra.Command{
		Use:   "run <job-type>",
		Short: "Run a batch job in-process for one or more owners",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			jobType, err := jobTypeArg(args)
			if err != nil {
				return err
			}
			if jobID != "" && len(owners) > 1 {
				return errors.New("--job-id only works with a single --owner")
			}
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}

			var opts []jobs.TrackerOption
			if len(owners) == 1 && !noProgress {
				opts = append(opts, jobs.WithListener(progressListener(jobType)))
			}
			a, err := app.Open(ctx, cfg, log, opts...)
			if err != nil {
				return err
			}
			defer a.Close()

			reqs := make([]processing.Request, 0, len(owners))
			for _, owner := range owners {
				id := jobID
				if id == "" {
					id = uuid.NewString()
				}
				reqs = append(reqs, processing.Request{Type: jobType, OwnerID: owner, JobID: id})
			}
			results := processing.New(a.Runner, cfg.Workers).RunAll(ctx, reqs)

			failed := 0
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "OWNER\tJOB\tSTATUS\tPROGRESS\tREASON")
			for i, res := range results {
				if res.Failed() {
					failed++
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%s\n", reqs[i].OwnerID, res.JobID, res.Status,
					res.Progress.Current, res.Progress.Target, res.Reason)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d jobs failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&owners, "owner", nil, "Owner to run the job for (repeatable)")
	cmd.Flags().StringVar(&jobID, "job-id", "", "Job id to start or reactivate (single owner only)")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Do not draw a progress bar")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func progressListener(jobType model.JobType) jobs.Listener {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(string(jobType)),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
	)
	return func(job model.BatchJob) {
		if job.Progress.Target > 0 {
			bar.ChangeMax(job.Progress.Target)
			_ = bar.Set(job.Progress.Current)
		}
		if job.Finished {
			_ = bar.Finish()
		}
	}
}

func newStatusCmd() *cobra.Command {
	var owner string
	var limit int
	cmd := &cobra.Command{
		Use:   "status [job-id]",
		Short: "Show a job record, or the latest jobs of an owner",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 0 && owner == "" {
				return errors.New("pass a job id or --owner")
			}
			cfg, _, err := loadRuntime()
			if err != nil {
				return err
			}
			pool, err := database.Connect(ctx, cfg.DatabaseURL, 2)
			if err != nil {
				return err
			}
			defer pool.Close()
			repo := repository.NewJobRepository(pool)

			var list []model.BatchJob
			if len(args) == 1 {
				job, err := repo.GetJob(ctx, args[0])
				if errors.Is(err, model.ErrNotFound) {
					return fmt.Errorf("job %s has not started yet or does not exist", args[0])
				}
				if err != nil {
					return err
				}
				list = append(list, *job)
			} else {
				list, err = repo.ListJobs(ctx, owner, limit)
				if err != nil {
					return err
				}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "JOB\tTYPE\tOWNER\tSTATE\tPROGRESS\tSTARTED\tFINISHED")
			for _, job := range list {
				finished := "-"
				if job.FinishedAt != nil {
					finished = job.FinishedAt.Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%s\t%s\n", job.JobID, job.Type, job.StartedBy,
					jobState(job), job.Progress.Current, job.Progress.Target,
					job.StartedAt.Format(time.RFC3339), finished)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "List the latest jobs of this owner")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of jobs to list")
	return cmd
}

func jobState(job model.BatchJob) string {
	switch {
	case job.Failed:
		return "failed"
	case job.Finished:
		return "finished"
	default:
		return "running"
	}
}

func newGeocodeCmd() *cobra.Command {
	var raw bool
	var photo string
	cmd := &cobra.Command{
		Use:   "geocode [<lat> <lon>]",
		Short: "Reverse geocode a coordinate, or the GPS position of a photo, through Mapbox",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := geocodeTarget(photo, args)
			if err != nil {
				return err
			}
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}
			client := geocode.New(cfg.MapboxAPIKey, cfg.MapboxBaseURL, log)
			if !client.Configured() {
				return errors.New("MAPBOX_API_KEY is not set")
			}
			res := client.ReverseGeocode(cmd.Context(), p.Lat, p.Lon)
			if res.Empty() {
				return errors.New("no result, see the log for details")
			}
			out := cmd.OutOrStdout()
			if raw {
				_, err := fmt.Fprintln(out, string(res.Raw))
				return err
			}
			fmt.Fprintf(out, "place:  %s\n", res.Place())
			fmt.Fprintf(out, "search: %s\n", res.SearchText)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the raw Mapbox response")
	cmd.Flags().StringVar(&photo, "photo", "", "Read the coordinate from the EXIF GPS tags of this JPEG or TIFF")
	return cmd
}

// geocodeTarget resolves the coordinate to look up from either a photo or
// the two positional arguments.
func geocodeTarget(photo string, args []string) (geo.Point, error) {
	if photo != "" {
		if len(args) != 0 {
			return geo.Point{}, errors.New("pass either --photo or <lat> <lon>")
		}
		f, err := os.Open(photo)
		if err != nil {
			return geo.Point{}, err
		}
		defer f.Close()
		p, err := geo.FromEXIF(f)
		if err != nil {
			return geo.Point{}, fmt.Errorf("%s: %w", photo, err)
		}
		return p, nil
	}
	if len(args) != 2 {
		return geo.Point{}, errors.New("expected <lat> <lon> or --photo")
	}
	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("parse latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("parse longitude: %w", err)
	}
	return geo.Point{Lat: lat, Lon: lon}, nil
}
