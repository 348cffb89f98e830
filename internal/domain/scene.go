package domain

import "time"

// SceneStatus describes how far a scene has progressed through the
// image-then-video pipeline, expressed in user-facing terms.
type SceneStatus string

const (
	SceneStatusPending    SceneStatus = "pending"
	SceneStatusRendering  SceneStatus = "rendering"
	SceneStatusImageReady SceneStatus = "image_ready"
	SceneStatusComplete   SceneStatus = "complete"
	SceneStatusFailed     SceneStatus = "failed"
)

// Scene is one ordered unit of the storyboard. Image and video artifacts
// are resolved URLs when present and empty strings when absent.
type Scene struct {
	Index    int
	Prompt   string
	ImageURL string
	VideoURL string
	Status   SceneStatus
	Message  string
}

// HasImage reports whether the scene has a resolved image artifact.
func (s Scene) HasImage() bool {
	return s.ImageURL != ""
}

// HasVideo reports whether the scene has a resolved video artifact.
func (s Scene) HasVideo() bool {
	return s.VideoURL != ""
}

// Storyboard is an ordered collection of scenes produced from a story idea.
// IdentityAnchor is an opaque descriptive string carried on every generation
// call to keep characters visually consistent across scenes.
type Storyboard struct {
	ID             string
	UserID         string
	Title          string
	Story          string
	Style          string
	AspectRatio    string
	IdentityAnchor string
	Scenes         []Scene
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
