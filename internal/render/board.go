package render

import (
	"sync"

	"storyreel-server/internal/domain"
)

// Board is the mutable runtime state of one storyboard. Scene artifacts,
// statuses and failure messages all live here, keyed by scene index, so the
// per-scene image/video/status views can never drift apart. Consumers mutate
// scenes only through Board methods.
type Board struct {
	mu sync.Mutex
	sb domain.Storyboard
}

func NewBoard(sb domain.Storyboard) *Board {
	for i := range sb.Scenes {
		if sb.Scenes[i].Status == "" {
			sb.Scenes[i].Status = domain.SceneStatusPending
		}
	}
	return &Board{sb: sb}
}

// Len returns the number of scenes.
func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sb.Scenes)
}

// Scene returns a copy of the scene at index i.
func (b *Board) Scene(i int) (domain.Scene, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.sb.Scenes) {
		return domain.Scene{}, false
	}
	return b.sb.Scenes[i], true
}

// Snapshot returns a copy of the whole storyboard.
func (b *Board) Snapshot() domain.Storyboard {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.sb
	out.Scenes = append([]domain.Scene(nil), b.sb.Scenes...)
	return out
}

// SetImage records a resolved image artifact for the scene.
func (b *Board) SetImage(i int, url string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.sb.Scenes) {
		return
	}
	b.sb.Scenes[i].ImageURL = url
	b.sb.Scenes[i].Message = ""
	if !b.sb.Scenes[i].HasVideo() {
		b.sb.Scenes[i].Status = domain.SceneStatusImageReady
	}
}

// SetVideo records a resolved video artifact for the scene.
func (b *Board) SetVideo(i int, url string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.sb.Scenes) {
		return
	}
	b.sb.Scenes[i].VideoURL = url
	b.sb.Scenes[i].Status = domain.SceneStatusComplete
	b.sb.Scenes[i].Message = ""
}

// MarkRendering flags the scene as having work in flight.
func (b *Board) MarkRendering(i int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.sb.Scenes) {
		return
	}
	b.sb.Scenes[i].Status = domain.SceneStatusRendering
}

// MarkFailed records a user-facing failure message for the scene.
func (b *Board) MarkFailed(i int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.sb.Scenes) {
		return
	}
	b.sb.Scenes[i].Status = domain.SceneStatusFailed
	b.sb.Scenes[i].Message = message
}

// ApplyJob folds a terminal job resolution into the scene state. Used as the
// poller's resolution callback.
func (b *Board) ApplyJob(job domain.Job) {
	switch job.State {
	case domain.JobStateSucceeded:
		b.SetVideo(job.Scene, job.OutputURL)
	case domain.JobStateTimedOut:
		b.MarkFailed(job.Scene, MessageTimedOut)
	default:
		b.MarkFailed(job.Scene, FriendlyMessage(job.Message))
	}
}
