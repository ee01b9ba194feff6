package handlers

import (
	"errors"
	"net/http"

	"foundation/internal/acknowledgement"
	"foundation/internal/domain"
)

const maxAcknowledgementBody = 64 << 10

// AcknowledgementCreate accepts the confirmation-page form (name, address,
// amount, currency, icon, url). Webhook failures are tolerated; a failed
// CMS write is a 500.
func (a *App) AcknowledgementCreate(w http.ResponseWriter, r *http.Request) {
	if a.Acknowledgements == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "acknowledgements are not configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxAcknowledgementBody)
	if err := r.ParseForm(); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid form")
		return
	}
	receipt, err := a.Acknowledgements.Submit(r.Context(), acknowledgement.FromForm(r.PostForm))
	if err != nil {
		if errors.Is(err, domain.ErrPersistence) {
			a.error(w, http.StatusInternalServerError, "persistence_failed", "failed to save acknowledgement")
			return
		}
		a.Logger.Error().Err(err).Msg("acknowledgement submit failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to submit acknowledgement")
		return
	}
	a.json(w, http.StatusCreated, receipt)
}
