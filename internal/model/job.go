package model

import (
	"fmt"
	"time"
)

// JobType enumerates the batch jobs a worker knows how to run.
type JobType string

const (
	JobRegenerateTitles    JobType = "regenerate_event_titles"
	JobGenerateEventAlbums JobType = "generate_event_albums"
	JobDeleteMissingPhotos JobType = "delete_missing_photos"
)

// JobTypes lists every known job type.
var JobTypes = []JobType{JobRegenerateTitles, JobGenerateEventAlbums, JobDeleteMissingPhotos}

// ParseJobType validates a job type coming from a queue payload or the CLI.
func ParseJobType(s string) (JobType, error) {
	for _, t := range JobTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown job type %q", s)
}

// Progress is the {current, target} counter of a running job.
type Progress struct {
	Current int `json:"current"`
	Target  int `json:"target"`
}

// BatchJob is the durable record of a long-running job. The progress counter
// is the only liveness signal an operator gets while the job runs.
type BatchJob struct {
	JobID      string     `json:"jobId"`
	Type       JobType    `json:"jobType"`
	StartedBy  string     `json:"startedBy"`
	QueuedAt   time.Time  `json:"queuedAt"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Failed     bool       `json:"failed"`
	Finished   bool       `json:"finished"`
	Progress   Progress   `json:"progress"`
}
