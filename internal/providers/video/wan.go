package video

import (
	"context"
	"fmt"
	"strings"

	"storyreel-server/internal/providers/dashscope"
)

// Pricing-table model ids to DashScope model names.
var wanModels = map[string]string{
	"wan_2_1_turbo": "wan2.1-i2v-turbo",
	"wan_2_2":       "wan2.2-i2v-plus",
	"wan_2_5":       "wan2.5-i2v-preview",
}

type wanVideoClient interface {
	SubmitVideo(context.Context, dashscope.VideoRequest) (*dashscope.VideoTask, error)
	TaskStatus(context.Context, string) (*dashscope.TaskResult, error)
	HasCredentials() bool
}

// WanClient adapts the DashScope Wan video-synthesis API to the Submitter
// and StatusClient contracts.
type WanClient struct {
	client wanVideoClient
}

func NewWanClient(client wanVideoClient) *WanClient {
	return &WanClient{client: client}
}

// Submit enqueues an image-to-video task.
func (w *WanClient) Submit(ctx context.Context, req SubmitRequest) (*Submission, error) {
	if w == nil || w.client == nil {
		return nil, fmt.Errorf("wan client not configured")
	}
	if strings.TrimSpace(req.SourceImageURL) == "" {
		return nil, fmt.Errorf("wan: source image url is required")
	}
	model, ok := wanModels[req.Model]
	if !ok {
		model = wanModels["wan_2_5"]
	}
	task, err := w.client.SubmitVideo(ctx, dashscope.VideoRequest{
		Model:           model,
		Prompt:          composeVideoPrompt(req),
		ImageURL:        req.SourceImageURL,
		Resolution:      req.Resolution,
		DurationSeconds: req.DurationSeconds,
		FPS:             req.FPS,
		RequestID:       req.RequestID,
	})
	if err != nil {
		return nil, err
	}
	return &Submission{JobID: task.TaskID, State: mapTaskStatus(task.Status)}, nil
}

// Status resolves a task id to the normalized job status.
func (w *WanClient) Status(ctx context.Context, jobID string) (*Status, error) {
	if w == nil || w.client == nil {
		return nil, fmt.Errorf("wan client not configured")
	}
	result, err := w.client.TaskStatus(ctx, jobID)
	if err != nil {
		return nil, err
	}
	st := &Status{State: mapTaskStatus(result.Status), OutputURL: result.VideoURL}
	if result.Message != "" {
		st.Error = result.Message
	} else if result.Code != "" {
		st.Error = result.Code
	}
	return st, nil
}

var (
	_ Submitter    = (*WanClient)(nil)
	_ StatusClient = (*WanClient)(nil)
)

func mapTaskStatus(status string) string {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case dashscope.TaskPending:
		return StateStarting
	case dashscope.TaskRunning:
		return StateProcessing
	case dashscope.TaskSucceeded:
		return StateSucceeded
	case dashscope.TaskFailed:
		return StateFailed
	case dashscope.TaskCanceled:
		return StateCanceled
	default:
		return StateProcessing
	}
}

func composeVideoPrompt(req SubmitRequest) string {
	parts := make([]string, 0, 4)
	if p := strings.TrimSpace(req.Prompt); p != "" {
		parts = append(parts, p)
	}
	if s := strings.TrimSpace(req.Style); s != "" {
		parts = append(parts, "Style: "+s)
	}
	if m := strings.TrimSpace(req.Mode); m != "" {
		parts = append(parts, "Camera: "+m)
	}
	if a := strings.TrimSpace(req.IdentityAnchor); a != "" {
		parts = append(parts, a)
	}
	return strings.Join(parts, ". ")
}
