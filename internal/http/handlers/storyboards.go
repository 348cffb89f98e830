package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"storyreel-server/internal/domain"
	"storyreel-server/internal/middleware"
	"storyreel-server/internal/providers/prompt"
	"storyreel-server/internal/session"
)

type storyboardCreateRequest struct {
	Title          string `json:"title"`
	Story          string `json:"story"`
	Style          string `json:"style"`
	AspectRatio    string `json:"aspect_ratio"`
	IdentityAnchor string `json:"identity_anchor"`
	SceneCount     int    `json:"scene_count"`
	Priority       string `json:"priority"` // standard | high
}

type sceneDTO struct {
	Index    int    `json:"index"`
	Title    string `json:"title,omitempty"`
	Prompt   string `json:"prompt"`
	ImageURL string `json:"image_url,omitempty"`
	VideoURL string `json:"video_url,omitempty"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
}

type storyboardDTO struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Style          string     `json:"style,omitempty"`
	AspectRatio    string     `json:"aspect_ratio,omitempty"`
	IdentityAnchor string     `json:"identity_anchor,omitempty"`
	Scenes         []sceneDTO `json:"scenes"`
	Balance        int        `json:"balance"`
	Unlimited      bool       `json:"unlimited"`
	Outstanding    int        `json:"outstanding_jobs"`
}

// StoryboardCreate expands a story idea into scene prompts and installs the
// result as the session's active storyboard.
func (a *App) StoryboardCreate(w http.ResponseWriter, r *http.Request) {
	s, ok := a.currentSession(w, r)
	if !ok {
		return
	}
	var req storyboardCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Story == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "story required")
		return
	}
	if req.AspectRatio == "" {
		req.AspectRatio = "16:9"
	}

	plans := prompt.BuildScenes(prompt.BuildRequest{
		Story:          req.Story,
		Style:          req.Style,
		IdentityAnchor: req.IdentityAnchor,
		SceneCount:     req.SceneCount,
		Locale:         middleware.LocaleFromContext(r.Context()),
	})

	sb := domain.Storyboard{
		ID:             uuid.NewString(),
		UserID:         s.User().ID,
		Title:          req.Title,
		Story:          req.Story,
		Style:          req.Style,
		AspectRatio:    req.AspectRatio,
		IdentityAnchor: req.IdentityAnchor,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if sb.Title == "" && len(plans) > 0 {
		sb.Title = plans[0].Title
	}
	for _, p := range plans {
		sb.Scenes = append(sb.Scenes, domain.Scene{Index: p.Index, Prompt: p.Prompt})
	}

	orch, err := s.OpenStoryboard(sb, priorityMultiplier(req.Priority))
	if err != nil {
		if errors.Is(err, session.ErrBusy) {
			a.error(w, http.StatusConflict, "conflict", "previous storyboard still has jobs in flight")
			return
		}
		a.Logger.Error().Err(err).Msg("open storyboard failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to open storyboard")
		return
	}

	a.json(w, http.StatusCreated, a.storyboardDTO(s, orch.Board().Snapshot()))
}

// StoryboardCurrent returns the active storyboard's live state.
func (a *App) StoryboardCurrent(w http.ResponseWriter, r *http.Request) {
	s, ok := a.currentSession(w, r)
	if !ok {
		return
	}
	orch, ok := s.Orchestrator()
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "no open storyboard")
		return
	}
	a.json(w, http.StatusOK, a.storyboardDTO(s, orch.Board().Snapshot()))
}

func (a *App) storyboardDTO(s *session.Session, sb domain.Storyboard) storyboardDTO {
	out := storyboardDTO{
		ID:             sb.ID,
		Title:          sb.Title,
		Style:          sb.Style,
		AspectRatio:    sb.AspectRatio,
		IdentityAnchor: sb.IdentityAnchor,
		Balance:        s.Balance(),
		Unlimited:      s.Store().Unlimited(),
		Outstanding:    s.Registry().Len(),
	}
	for _, sc := range sb.Scenes {
		out.Scenes = append(out.Scenes, sceneDTO{
			Index:    sc.Index,
			Prompt:   sc.Prompt,
			ImageURL: sc.ImageURL,
			VideoURL: sc.VideoURL,
			Status:   string(sc.Status),
			Message:  sc.Message,
		})
	}
	return out
}

func priorityMultiplier(priority string) float64 {
	if priority == "high" {
		return domain.PriorityHigh
	}
	return domain.PriorityStandard
}
