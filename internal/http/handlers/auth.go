package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"storyreel-server/internal/middleware"
)

type tokenRequest struct {
	UserID string `json:"user_id"`
}

type tokenResponse struct {
	Token string         `json:"token"`
	User  userProfileDTO `json:"user"`
}

type userProfileDTO struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Locale    string `json:"locale"`
	Role      string `json:"role"`
	Plan      string `json:"plan"`
	Credits   int    `json:"credits"`
	Unlimited bool   `json:"unlimited"`
}

// AuthToken exchanges a known user id for a signed session token. Identity
// verification happens upstream; this endpoint only mints the API token and
// warms the session.
func (a *App) AuthToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.UserID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "user_id required")
		return
	}

	user, err := a.Accounts.GetProfile(r.Context(), req.UserID)
	if err != nil {
		a.error(w, http.StatusUnauthorized, "unauthorized", "unknown account")
		return
	}

	token, err := middleware.SignJWT(a.JWTSecret, middleware.TokenClaims{
		Sub:      user.ID,
		Role:     string(user.Role),
		Plan:     string(user.Plan),
		Locale:   user.Locale,
		Exp:      time.Now().Add(24 * time.Hour).Unix(),
		Issuer:   "storyreel",
		Audience: "storyreel-clients",
	})
	if err != nil {
		a.Logger.Error().Err(err).Msg("sign jwt failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}

	if _, err := a.Sessions.Establish(r.Context(), user.ID); err != nil {
		a.Logger.Error().Err(err).Str("user_id", user.ID).Msg("session warmup failed")
	}

	a.json(w, http.StatusOK, tokenResponse{
		Token: token,
		User: userProfileDTO{
			ID:        user.ID,
			Email:     user.Email,
			Name:      user.Name,
			Locale:    user.Locale,
			Role:      string(user.Role),
			Plan:      string(user.Plan),
			Credits:   user.Credits,
			Unlimited: user.Unlimited(),
		},
	})
}

// Me returns the caller's profile with the live session balance.
func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	s, ok := a.currentSession(w, r)
	if !ok {
		return
	}
	user := s.User()
	a.json(w, http.StatusOK, userProfileDTO{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Locale:    user.Locale,
		Role:      string(user.Role),
		Plan:      string(user.Plan),
		Credits:   s.Balance(),
		Unlimited: s.Store().Unlimited(),
	})
}

// Logout discards the caller's session and stops its poller. Any jobs still
// outstanding finish remotely, unobserved.
func (a *App) Logout(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	a.Sessions.Close(userID)
	w.WriteHeader(http.StatusNoContent)
}
