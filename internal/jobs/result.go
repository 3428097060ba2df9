package jobs

import "github.com/dharsanguruparan/photojobs/internal/model"

// Status is the outcome of a job run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Result is what a job run returns to its caller. Reason is set for failed
// runs; Progress is the last persisted counter, which tells an operator how
// far a failed run got.
type Result struct {
	JobID    string         `json:"jobId"`
	Type     model.JobType  `json:"jobType"`
	Status   Status         `json:"status"`
	Reason   string         `json:"reason,omitempty"`
	Progress model.Progress `json:"progress"`
}

// Failed reports whether the run failed.
func (r Result) Failed() bool {
	return r.Status == StatusFailed
}

func newResult(jobID string, jobType model.JobType, progress model.Progress, err error) Result {
	res := Result{JobID: jobID, Type: jobType, Status: StatusSucceeded, Progress: progress}
	if err != nil {
		res.Status = StatusFailed
		res.Reason = err.Error()
	}
	return res
}
