package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"storyreel-server/internal/domain"
)

type purchaseRequest struct {
	Amount int `json:"amount"`
}

// CreditsBalance reports the live local balance for the caller's session.
func (a *App) CreditsBalance(w http.ResponseWriter, r *http.Request) {
	s, ok := a.currentSession(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"balance":   s.Balance(),
		"unlimited": s.Store().Unlimited(),
	})
}

// CreditsPurchase credits the caller's balance after an upstream payment.
func (a *App) CreditsPurchase(w http.ResponseWriter, r *http.Request) {
	s, ok := a.currentSession(w, r)
	if !ok {
		return
	}
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Amount <= 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "amount must be positive")
		return
	}
	s.Store().Credit(req.Amount)
	a.json(w, http.StatusOK, map[string]any{"balance": s.Balance()})
}

type grantRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Amount int    `json:"amount"`
}

// CreditsGrant is the admin path for adjusting a stored balance directly.
// A live session for the target user picks the grant up on its next refresh.
func (a *App) CreditsGrant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.UserID == "" && req.Email == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "user_id or email required")
		return
	}
	summary, err := a.Accounts.GrantCredits(r.Context(), req.UserID, req.Email, req.Amount)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "account not found")
			return
		}
		a.Logger.Error().Err(err).Msg("grant credits failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to grant credits")
		return
	}
	if _, live := a.Sessions.Get(summary.ID); live {
		if _, err := a.Sessions.Refresh(r.Context(), summary.ID); err != nil {
			a.Logger.Warn().Err(err).Str("user_id", summary.ID).Msg("session refresh after grant failed")
		}
	}
	a.json(w, http.StatusOK, map[string]any{
		"id":      summary.ID,
		"email":   summary.Email,
		"plan":    summary.Plan,
		"credits": summary.Credits,
	})
}
