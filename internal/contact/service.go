package contact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"foundation/internal/domain"
	"foundation/internal/infra"
	"foundation/internal/metrics"
)

// AnonymousName replaces an empty sender name.
const AnonymousName = "Anonymous"

// Notifier delivers a human-readable message. Failures are tolerated.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Store durably records an inquiry and returns its record id.
type Store interface {
	Save(ctx context.Context, rec Record) (string, error)
}

// Record is what gets persisted.
type Record struct {
	ID          string
	Inquiry     Inquiry
	Locale      string
	SubmittedAt time.Time
}

// Receipt reports the outcome of Submit.
type Receipt struct {
	ID       string `json:"id"`
	RecordID string `json:"record_id,omitempty"`
	Notified bool   `json:"notified"`
}

type Service struct {
	notifier Notifier
	store    Store
	logger   *infra.Logger
	now      func() time.Time
}

// NewService wires the sinks. notifier may be nil; store is required.
func NewService(notifier Notifier, store Store, logger *infra.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("contact: store is required")
	}
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Service{notifier: notifier, store: store, logger: logger, now: time.Now}, nil
}

// Submit validates q, notifies the webhook (best-effort) and writes the
// record. Invalid input wraps domain.ErrInvalidInput and touches neither
// sink; a store failure wraps domain.ErrPersistence.
func (s *Service) Submit(ctx context.Context, q Inquiry, locale string) (*Receipt, error) {
	if err := q.Validate(); err != nil {
		metrics.ContactOutcomes.WithLabelValues("invalid").Inc()
		return nil, err
	}
	if q.Name == "" {
		q.Name = AnonymousName
	}
	rec := Record{ID: uuid.NewString(), Inquiry: q, Locale: locale, SubmittedAt: s.now().UTC()}
	receipt := &Receipt{ID: rec.ID}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, Text(rec)); err != nil {
			metrics.WebhookFailures.Inc()
			s.logger.Warn().Err(err).Str("contact_id", rec.ID).Msg("contact webhook failed")
		} else {
			receipt.Notified = true
		}
	}

	recordID, err := s.store.Save(ctx, rec)
	if err != nil {
		metrics.ContactOutcomes.WithLabelValues("store_failed").Inc()
		s.logger.Error().Err(err).Str("contact_id", rec.ID).Msg("contact store failed")
		return nil, fmt.Errorf("%w: save contact: %v", domain.ErrPersistence, err)
	}
	receipt.RecordID = recordID
	metrics.ContactOutcomes.WithLabelValues("stored").Inc()
	s.logger.Info().Str("contact_id", rec.ID).Str("record_id", recordID).Bool("notified", receipt.Notified).Msg("contact stored")
	return receipt, nil
}

// Text renders the chat notification for rec.
func Text(rec Record) string {
	var b strings.Builder
	b.WriteString("New contact inquiry\n")
	fmt.Fprintf(&b, "Name: %s\n", rec.Inquiry.Name)
	fmt.Fprintf(&b, "Email: %s\n", rec.Inquiry.Email)
	if rec.Locale != "" {
		fmt.Fprintf(&b, "Locale: %s\n", rec.Locale)
	}
	b.WriteString("\n")
	b.WriteString(rec.Inquiry.Message)
	return b.String()
}
