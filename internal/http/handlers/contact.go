package handlers

import (
	"errors"
	"net/http"

	"foundation/internal/contact"
	"foundation/internal/domain"
	"foundation/internal/middleware"
)

const maxContactBody = 64 << 10

// ContactCreate accepts the contact form (name, email, message).
func (a *App) ContactCreate(w http.ResponseWriter, r *http.Request) {
	if a.Contact == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "contact form is not configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxContactBody)
	if err := r.ParseForm(); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid form")
		return
	}
	locale := middleware.LocaleFromContext(r.Context())
	receipt, err := a.Contact.Submit(r.Context(), contact.FromForm(r.PostForm), locale)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			a.error(w, http.StatusBadRequest, "invalid_contact", err.Error())
		case errors.Is(err, domain.ErrPersistence):
			a.error(w, http.StatusInternalServerError, "persistence_failed", "failed to save inquiry")
		default:
			a.Logger.Error().Err(err).Msg("contact submit failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to submit inquiry")
		}
		return
	}
	a.json(w, http.StatusCreated, receipt)
}
