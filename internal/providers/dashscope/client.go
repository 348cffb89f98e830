package dashscope

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"storyreel-server/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("dashscope: api key is required")

// Task statuses reported by the DashScope async task API.
const (
	TaskPending   = "PENDING"
	TaskRunning   = "RUNNING"
	TaskSucceeded = "SUCCEEDED"
	TaskFailed    = "FAILED"
	TaskCanceled  = "CANCELED"
)

// Options configures the DashScope client.
type Options struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the DashScope generation APIs: the
// synchronous Qwen text-to-image endpoint and the asynchronous Wan
// video-synthesis endpoint plus its task-status query.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// ImageRequest captures the required inputs for image generation.
type ImageRequest struct {
	Model          string
	Prompt         string
	NegativePrompt string
	Size           string
	Seed           int
	RequestID      string
}

// ImageAsset is the normalized result from the image API.
type ImageAsset struct {
	URL    string
	Width  int
	Height int
}

// VideoRequest captures the required inputs for an async video submission.
type VideoRequest struct {
	Model           string
	Prompt          string
	ImageURL        string
	Resolution      string
	DurationSeconds int
	FPS             int
	RequestID       string
}

// VideoTask is the handle returned by an accepted video submission.
type VideoTask struct {
	TaskID string
	Status string
}

// TaskResult is the current state of an async task.
type TaskResult struct {
	Status   string
	VideoURL string
	Code     string
	Message  string
}

type imageGenerationRequest struct {
	Model      string      `json:"model"`
	Input      imageInput  `json:"input"`
	Parameters imageParams `json:"parameters"`
}

type imageInput struct {
	Messages []imageMessage `json:"messages"`
}

type imageMessage struct {
	Role    string         `json:"role"`
	Content []imageContent `json:"content"`
}

type imageContent struct {
	Text string `json:"text,omitempty"`
}

type imageParams struct {
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Size           string `json:"size,omitempty"`
	Seed           *int   `json:"seed,omitempty"`
}

type imageGenerationResponse struct {
	Output struct {
		Choices []struct {
			Message struct {
				Content []struct {
					Image string `json:"image"`
				} `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	Usage struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"usage"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

type videoSynthesisRequest struct {
	Model      string      `json:"model"`
	Input      videoInput  `json:"input"`
	Parameters videoParams `json:"parameters"`
}

type videoInput struct {
	Prompt   string `json:"prompt"`
	ImageURL string `json:"img_url,omitempty"`
}

type videoParams struct {
	Resolution string `json:"resolution,omitempty"`
	Duration   int    `json:"duration,omitempty"`
	FPS        int    `json:"fps,omitempty"`
}

type videoSynthesisResponse struct {
	Output struct {
		TaskID     string `json:"task_id"`
		TaskStatus string `json:"task_status"`
	} `json:"output"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

type taskStatusResponse struct {
	Output struct {
		TaskID     string `json:"task_id"`
		TaskStatus string `json:"task_status"`
		VideoURL   string `json:"video_url"`
		Code       string `json:"code"`
		Message    string `json:"message"`
	} `json:"output"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://dashscope-intl.aliyuncs.com/api/v1"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// GenerateImage invokes the synchronous image API once and returns a single asset.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*ImageAsset, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("dashscope: prompt is required")
	}
	payload := imageGenerationRequest{
		Model: req.Model,
		Input: imageInput{
			Messages: []imageMessage{{
				Role:    "user",
				Content: []imageContent{{Text: prompt}},
			}},
		},
		Parameters: imageParams{
			NegativePrompt: strings.TrimSpace(req.NegativePrompt),
			Size:           strings.TrimSpace(req.Size),
		},
	}
	if req.Seed > 0 {
		seed := req.Seed
		payload.Parameters.Seed = &seed
	}

	var resp imageGenerationResponse
	if err := c.post(ctx, "/services/aigc/multimodal-generation/generation", req.RequestID, false, payload, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "" {
		return nil, fmt.Errorf("dashscope: %s: %s", resp.Code, resp.Message)
	}
	for _, choice := range resp.Output.Choices {
		for _, content := range choice.Message.Content {
			if content.Image != "" {
				return &ImageAsset{
					URL:    content.Image,
					Width:  resp.Usage.Width,
					Height: resp.Usage.Height,
				}, nil
			}
		}
	}
	return nil, errors.New("dashscope: response contained no image")
}

// SubmitVideo enqueues an async video-synthesis task and returns its handle.
func (c *Client) SubmitVideo(ctx context.Context, req VideoRequest) (*VideoTask, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New("dashscope: prompt is required")
	}
	payload := videoSynthesisRequest{
		Model: req.Model,
		Input: videoInput{
			Prompt:   strings.TrimSpace(req.Prompt),
			ImageURL: strings.TrimSpace(req.ImageURL),
		},
		Parameters: videoParams{
			Resolution: strings.TrimSpace(req.Resolution),
			Duration:   req.DurationSeconds,
			FPS:        req.FPS,
		},
	}

	var resp videoSynthesisResponse
	if err := c.post(ctx, "/services/aigc/video-generation/video-synthesis", req.RequestID, true, payload, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "" {
		return nil, fmt.Errorf("dashscope: %s: %s", resp.Code, resp.Message)
	}
	if resp.Output.TaskID == "" {
		return nil, errors.New("dashscope: submission returned no task id")
	}
	return &VideoTask{TaskID: resp.Output.TaskID, Status: resp.Output.TaskStatus}, nil
}

// TaskStatus queries the state of an async task.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (*TaskResult, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, errors.New("dashscope: task id is required")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tasks/"+taskID, nil)
	if err != nil {
		return nil, fmt.Errorf("dashscope: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	var resp taskStatusResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "" {
		return nil, fmt.Errorf("dashscope: %s: %s", resp.Code, resp.Message)
	}
	return &TaskResult{
		Status:   resp.Output.TaskStatus,
		VideoURL: resp.Output.VideoURL,
		Code:     resp.Output.Code,
		Message:  resp.Output.Message,
	}, nil
}

func (c *Client) post(ctx context.Context, path, requestID string, async bool, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("dashscope: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("dashscope: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if async {
		httpReq.Header.Set("X-DashScope-Async", "enable")
	}
	if requestID != "" {
		httpReq.Header.Set("X-Request-ID", requestID)
	}
	return c.do(httpReq, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dashscope: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("dashscope: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Code != "" {
			c.logger.Warn().Str("code", apiErr.Code).Int("status", resp.StatusCode).Msg("dashscope: api error")
			return fmt.Errorf("dashscope: %s: %s", apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("dashscope: unexpected status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("dashscope: decode response: %w", err)
	}
	return nil
}
