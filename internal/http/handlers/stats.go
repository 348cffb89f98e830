package handlers

import (
	"net/http"
)

// SpendSummary reports the caller's ledger activity: lifetime total and the
// trailing 24 hours.
func (a *App) SpendSummary(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	summary, err := a.Accounts.GetSpendSummary(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Msg("spend summary failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load spend summary")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"spent_total": summary.SpentTotal,
		"spent_24h":   summary.Spent24h,
		"events_24h":  summary.Events24h,
	})
}
