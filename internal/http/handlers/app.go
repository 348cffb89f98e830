package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"storyreel-server/internal/adapter/repo"
	"storyreel-server/internal/infra"
	"storyreel-server/internal/middleware"
	"storyreel-server/internal/session"
	"storyreel-server/internal/storage"
)

// App carries the shared dependencies every handler needs.
type App struct {
	SQL       infra.SQLExecutor
	Accounts  *repo.AccountRepositoryPG
	Sessions  *session.Manager
	Exports   *storage.FileStore
	JWTSecret string
	Logger    zerolog.Logger
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorResponse{Error: code, Message: message})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// currentSession resolves the caller's session, establishing one from the
// stored profile on first use after a server restart.
func (a *App) currentSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return nil, false
	}
	s, err := a.Sessions.Establish(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("session establish failed")
		a.error(w, http.StatusUnauthorized, "unauthorized", "unknown account")
		return nil, false
	}
	return s, true
}
