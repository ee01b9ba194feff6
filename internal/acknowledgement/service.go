package acknowledgement

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

// AnonymousName replaces an empty donor name.
const AnonymousName = "Anonymous"

// Notifier delivers a human-readable message. Failures are tolerated.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Store durably records an acknowledgement and returns its record id.
type Store interface {
	Save(ctx context.Context, rec Record) (string, error)
}

// Record is what gets persisted.
type Record struct {
	ID          string
	Submission  Submission
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
		return nil, errors.New("acknowledgement: store is required")
	}
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Service{notifier: notifier, store: store, logger: logger, now: time.Now}, nil
}

// Submit notifies the webhook (best-effort) and then writes the record. A
// store failure is returned wrapped in domain.ErrPersistence.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Receipt, error) {
	if strings.TrimSpace(sub.Name) == "" {
		sub.Name = AnonymousName
	}
	rec := Record{ID: uuid.NewString(), Submission: sub, SubmittedAt: s.now().UTC()}
	receipt := &Receipt{ID: rec.ID}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, Message(sub)); err != nil {
			metrics.WebhookFailures.Inc()
			s.logger.Warn().Err(err).Str("ack_id", rec.ID).Msg("acknowledgement webhook failed")
		} else {
			receipt.Notified = true
		}
	}

	recordID, err := s.store.Save(ctx, rec)
	if err != nil {
		metrics.AcknowledgementOutcomes.WithLabelValues("store_failed").Inc()
		s.logger.Error().Err(err).Str("ack_id", rec.ID).Msg("acknowledgement store failed")
		return nil, fmt.Errorf("%w: save acknowledgement: %v", domain.ErrPersistence, err)
	}
	receipt.RecordID = recordID
	metrics.AcknowledgementOutcomes.WithLabelValues("stored").Inc()
	s.logger.Info().Str("ack_id", rec.ID).Str("record_id", recordID).Bool("notified", receipt.Notified).Msg("acknowledgement stored")
	return receipt, nil
}

// Message renders the chat notification for sub.
func Message(sub Submission) string {
	name := strings.TrimSpace(sub.Name)
	if name == "" {
		name = AnonymousName
	}
	var b strings.Builder
	b.WriteString("New donation acknowledgement\n")
	fmt.Fprintf(&b, "Name: %s\n", name)
	amount := sub.AmountText
	if amount == "" && sub.Amount != nil {
		amount = fmt.Sprintf("%g", *sub.Amount)
	}
	if amount != "" {
		if sub.Currency != "" && !strings.Contains(strings.ToUpper(amount), sub.Currency) {
			amount += " " + sub.Currency
		}
		fmt.Fprintf(&b, "Amount: %s\n", amount)
	}
	if sub.Address != "" {
		fmt.Fprintf(&b, "Address: %s\n", sub.Address)
	}
	if sub.URL != "" {
		fmt.Fprintf(&b, "URL: %s\n", sub.URL)
	}
	if sub.Icon != "" {
		fmt.Fprintf(&b, "Icon: %s\n", sub.Icon)
	}
	return strings.TrimRight(b.String(), "\n")
}
