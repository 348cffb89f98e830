package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"storyreel-server/internal/domain"
	"storyreel-server/internal/render"
	"storyreel-server/internal/session"
)

type batchResponse struct {
	Rendered      int    `json:"rendered"`
	Skipped       int    `json:"skipped"`
	Failed        int    `json:"failed"`
	Unaffordable  []int  `json:"unaffordable,omitempty"`
	Halted        bool   `json:"halted"`
	Balance       int    `json:"balance"`
	UpgradeNeeded bool   `json:"upgrade_needed"`
	UpgradeAmount int    `json:"upgrade_amount,omitempty"`
	Status        string `json:"status"`
}

// RenderImages runs the image pass over every scene of the open storyboard.
func (a *App) RenderImages(w http.ResponseWriter, r *http.Request) {
	a.renderBatch(w, r, func(orch *render.Orchestrator) render.BatchResult {
		return orch.RenderAllImages(r.Context())
	})
}

// RenderVideos runs the video pass, synthesizing missing images on the way.
func (a *App) RenderVideos(w http.ResponseWriter, r *http.Request) {
	a.renderBatch(w, r, func(orch *render.Orchestrator) render.BatchResult {
		return orch.RenderAllVideos(r.Context())
	})
}

func (a *App) renderBatch(w http.ResponseWriter, r *http.Request, run func(*render.Orchestrator) render.BatchResult) {
	s, ok := a.currentSession(w, r)
	if !ok {
		return
	}
	orch, ok := s.Orchestrator()
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "no open storyboard")
		return
	}

	res := run(orch)
	a.json(w, http.StatusOK, a.batchResponse(s, res))
}

// RenderSceneVideo submits one scene's video job.
func (a *App) RenderSceneVideo(w http.ResponseWriter, r *http.Request) {
	s, ok := a.currentSession(w, r)
	if !ok {
		return
	}
	orch, ok := s.Orchestrator()
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "no open storyboard")
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid scene index")
		return
	}

	err = orch.RenderSingleVideo(r.Context(), index)
	switch {
	case err == nil:
		scene, _ := orch.Board().Scene(index)
		a.json(w, http.StatusAccepted, map[string]any{
			"scene":   index,
			"status":  string(scene.Status),
			"balance": s.Balance(),
		})
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "scene not found")
	case errors.Is(err, domain.ErrDuplicateJob):
		a.error(w, http.StatusConflict, "conflict", "scene already has a job in flight")
	case errors.Is(err, domain.ErrInsufficientBalance):
		events := s.TakeUpgrades()
		amount := 0
		if len(events) > 0 {
			amount = events[len(events)-1].Needed
		}
		a.json(w, http.StatusPaymentRequired, map[string]any{
			"error":          "insufficient_credits",
			"scene":          index,
			"needed":         amount,
			"balance":        s.Balance(),
			"upgrade_needed": true,
		})
	default:
		a.Logger.Error().Err(err).Int("scene", index).Msg("render scene failed")
		scene, _ := orch.Board().Scene(index)
		a.json(w, http.StatusBadGateway, map[string]any{
			"error":   "provider_failure",
			"scene":   index,
			"message": scene.Message,
			"balance": s.Balance(),
		})
	}
}

func (a *App) batchResponse(s *session.Session, res render.BatchResult) batchResponse {
	events := s.TakeUpgrades()
	out := batchResponse{
		Rendered:      res.Rendered,
		Skipped:       res.Skipped,
		Failed:        res.Failed,
		Unaffordable:  res.Unaffordable,
		Halted:        res.Halted,
		Balance:       s.Balance(),
		UpgradeNeeded: len(events) > 0,
		Status:        "ok",
	}
	if len(events) > 0 {
		out.UpgradeAmount = events[len(events)-1].Needed
		out.Status = "partial"
	}
	if res.Failed > 0 {
		out.Status = "partial"
	}
	return out
}
