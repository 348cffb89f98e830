package image

import "context"

// GenerateRequest carries everything an image submission needs. The identity
// anchor is opaque to providers and appended to the prompt unmodified.
type GenerateRequest struct {
	Prompt         string
	Model          string
	Style          string
	AspectRatio    string
	IdentityAnchor string
	RequestID      string
	Locale         string
}

// Asset is the normalized representation of a generated image.
type Asset struct {
	URL    string
	Width  int
	Height int
}

// Generator produces an image synchronously from the caller's perspective;
// implementations may poll internally.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Asset, error)
}
