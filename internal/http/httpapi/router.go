package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"foundation/internal/http/handlers"
	"foundation/internal/middleware"
)

// NewRouter wires every route. lookup may be nil when no GeoIP database is
// configured.
func NewRouter(app *handlers.App, lookup middleware.CountryLookup) http.Handler {
	r := chi.NewRouter()

	defaultLocale, origins, perMinute, trustProxy := middleware.LocaleJA, []string(nil), 0, false
	if app.Config != nil {
		defaultLocale = app.Config.DefaultLocale
		origins = app.Config.CORSAllowedOrigins
		perMinute = app.Config.RateLimitPerMin
		trustProxy = app.Config.TrustProxyHeaders
	}

	r.Use(middleware.RequestID)
	// RealIP rewrites RemoteAddr from client-supplied headers, which the
	// rate limiter keys on.
	if trustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.Metrics,
		middleware.CORS(origins),
		middleware.I18N(defaultLocale, lookup),
	)

	// Health
	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/readyz", app.Ready)
	r.Method(http.MethodGet, "/metrics", app.Metrics())

	// Docs
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)

	r.Route("/v1/donation", func(r chi.Router) {
		r.Get("/catalog", app.DonationCatalog)
		r.Post("/quote", app.DonationQuote)
		r.With(middleware.RateLimit(perMinute, time.Minute)).Post("/bank-transfer", app.DonationBankTransfer)
	})

	r.With(middleware.RateLimit(perMinute, time.Minute)).Post("/v1/acknowledgements", app.AcknowledgementCreate)
	r.With(middleware.RateLimit(perMinute, time.Minute)).Post("/v1/contact", app.ContactCreate)

	r.Route("/v1/content", func(r chi.Router) {
		r.Get("/", app.ContentKinds)
		r.Get("/{kind}", app.ContentFeed)
	})

	return r
}
