package video

import "context"

// Remote job states as surfaced by status queries. Anything else is treated
// as still processing.
const (
	StateStarting   = "starting"
	StateProcessing = "processing"
	StateSucceeded  = "succeeded"
	StateFailed     = "failed"
	StateCanceled   = "canceled"
)

// SubmitRequest carries everything a video submission needs. SourceImageURL
// is required: video generation always starts from a resolved image artifact.
type SubmitRequest struct {
	Prompt          string
	SourceImageURL  string
	Model           string
	Style           string
	Mode            string
	Quality         string
	DurationSeconds int
	FPS             int
	Resolution      string
	IdentityAnchor  string
	RequestID       string
}

// Submission is the provider's acknowledgement of an accepted request.
type Submission struct {
	JobID string
	State string
}

// Status is the point-in-time state of an outstanding job.
type Status struct {
	State     string
	OutputURL string
	Error     string
}

// Submitter enqueues video generation with an external provider.
type Submitter interface {
	Submit(ctx context.Context, req SubmitRequest) (*Submission, error)
}

// StatusClient resolves an external job id to its current status.
type StatusClient interface {
	Status(ctx context.Context, jobID string) (*Status, error)
}
