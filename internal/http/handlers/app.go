package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"foundation/internal/acknowledgement"
	"foundation/internal/catalog"
	"foundation/internal/contact"
	"foundation/internal/content"
	"foundation/internal/donation"
	"foundation/internal/infra"
)

// AcknowledgementSubmitter records confirmation-page follow-ups.
type AcknowledgementSubmitter interface {
	Submit(ctx context.Context, sub acknowledgement.Submission) (*acknowledgement.Receipt, error)
}

// ContactSubmitter records contact form inquiries.
type ContactSubmitter interface {
	Submit(ctx context.Context, q contact.Inquiry, locale string) (*contact.Receipt, error)
}

// ContentFeeds serves cached CMS feeds.
type ContentFeeds interface {
	Feed(ctx context.Context, kind, locale string) (*content.Feed, error)
	Kinds() []string
}

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// App carries the dependencies of the HTTP handlers. Optional collaborators
// left nil turn their endpoints into 503 responses.
type App struct {
	Config           *infra.Config
	Logger           zerolog.Logger
	DB               Pinger
	Catalog          *catalog.Catalog
	Intents          donation.IntentRecorder
	Acknowledgements AcknowledgementSubmitter
	Contact          ContactSubmitter
	Content          ContentFeeds
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

func (a *App) catalog() *catalog.Catalog {
	if a.Catalog != nil {
		return a.Catalog
	}
	return catalog.Default()
}

func (a *App) confirmationURL() string {
	if a.Config != nil && a.Config.ConfirmationURL != "" {
		return a.Config.ConfirmationURL
	}
	return donation.DefaultConfirmationURL
}
