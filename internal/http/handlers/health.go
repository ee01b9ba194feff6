package handlers

import (
	"context"
	"net/http"
	"time"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready also checks the database.
func (a *App) Ready(w http.ResponseWriter, r *http.Request) {
	if a.DB == nil {
		a.json(w, http.StatusOK, map[string]string{"status": "ok", "database": "disabled"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.DB.Ping(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("readiness ping failed")
		a.error(w, http.StatusServiceUnavailable, "unavailable", "database unreachable")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok", "database": "ok"})
}
