package domain

import "time"

// JobState enumerates the lifecycle of an external generation job.
type JobState string

const (
	JobStateQueued     JobState = "queued"
	JobStateStarting   JobState = "starting"
	JobStateProcessing JobState = "processing"
	JobStateSucceeded  JobState = "succeeded"
	JobStateFailed     JobState = "failed"
	JobStateCanceled   JobState = "canceled"
	JobStateTimedOut   JobState = "timed_out"
)

// Terminal reports whether no further transition can occur from s.
func (s JobState) Terminal() bool {
	switch s {
	case JobStateSucceeded, JobStateFailed, JobStateCanceled, JobStateTimedOut:
		return true
	}
	return false
}

// Job is a single outstanding request to an external generation provider.
// A scene holds at most one outstanding job at a time.
type Job struct {
	ExternalID string
	Scene      int
	StartedAt  time.Time
	State      JobState
	OutputURL  string
	Message    string
}

// Elapsed returns the wall-clock time since the job was registered.
func (j Job) Elapsed(now time.Time) time.Duration {
	return now.Sub(j.StartedAt)
}
