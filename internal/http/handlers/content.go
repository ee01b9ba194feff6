package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"foundation/internal/content"
	"foundation/internal/middleware"
)

// ContentFeed serves one CMS feed for the request locale. ?locale=ja|en
// overrides the detected locale.
func (a *App) ContentFeed(w http.ResponseWriter, r *http.Request) {
	if a.Content == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "content is not configured")
		return
	}
	kind := chi.URLParam(r, "kind")
	locale := middleware.LocaleFromContext(r.Context())
	if q := strings.TrimSpace(r.URL.Query().Get("locale")); q != "" {
		locale = middleware.NormalizeLocale(q)
	}
	feed, err := a.Content.Feed(r.Context(), kind, locale)
	switch {
	case errors.Is(err, content.ErrUnknownKind):
		a.error(w, http.StatusNotFound, "not_found", "unknown content kind")
		return
	case errors.Is(err, content.ErrUnavailable):
		a.error(w, http.StatusBadGateway, "upstream_unavailable", "content source unavailable")
		return
	case err != nil:
		a.Logger.Error().Err(err).Str("kind", kind).Msg("content feed failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load content")
		return
	}
	if feed.Stale {
		w.Header().Set("Warning", `110 - "Response is Stale"`)
	} else {
		w.Header().Set("Cache-Control", "public, max-age=60")
	}
	a.json(w, http.StatusOK, feed)
}

// ContentKinds lists the configured feeds.
func (a *App) ContentKinds(w http.ResponseWriter, r *http.Request) {
	kinds := []string{}
	if a.Content != nil {
		kinds = a.Content.Kinds()
	}
	a.json(w, http.StatusOK, map[string]any{"kinds": kinds})
}
