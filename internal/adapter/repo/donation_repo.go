package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"foundation/internal/domain"
	"foundation/internal/donation"
	"foundation/internal/infra"
	"foundation/internal/sqlinline"
)

// DonationIntentRepositoryPG implements DonationIntentRepository using PostgreSQL.
type DonationIntentRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewDonationIntentRepository creates a new intent repo.
func NewDonationIntentRepository(sql infra.SQLExecutor) *DonationIntentRepositoryPG {
	return &DonationIntentRepositoryPG{sql: sql}
}

// Create inserts a pending intent.
func (r *DonationIntentRepositoryPG) Create(ctx context.Context, intent *domain.DonationIntent) error {
	if intent == nil || strings.TrimSpace(intent.ID) == "" {
		return fmt.Errorf("%w: intent id is required", domain.ErrInvalidInput)
	}
	if !(intent.Amount > 0) {
		return domain.ErrInvalidAmount
	}
	var createdAt *time.Time
	if !intent.CreatedAt.IsZero() {
		createdAt = &intent.CreatedAt
	}
	_, err := r.sql.Exec(ctx, sqlinline.QInsertDonationIntent,
		intent.ID, intent.Method, intent.TierIndex, intent.Amount, intent.DisplayAmount, intent.Locale, createdAt)
	if err != nil {
		return fmt.Errorf("%w: insert donation intent: %v", domain.ErrPersistence, err)
	}
	intent.Status = domain.IntentPending
	return nil
}

// ListRecent returns recent intents limited by the input value.
func (r *DonationIntentRepositoryPG) ListRecent(ctx context.Context, limit int) ([]domain.DonationIntent, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListDonationIntents, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.DonationIntent
	for rows.Next() {
		var it domain.DonationIntent
		var status string
		if err := rows.Scan(&it.ID, &it.Method, &it.TierIndex, &it.Amount, &it.DisplayAmount, &it.Locale, &status, &it.CreatedAt); err != nil {
			return nil, err
		}
		it.Status = domain.IntentStatus(status)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// MarkReceived flags a pending intent as reconciled.
func (r *DonationIntentRepositoryPG) MarkReceived(ctx context.Context, id string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QMarkDonationIntentReceived, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RecordBankTransfer stores the intent of a fiat donation.
func (r *DonationIntentRepositoryPG) RecordBankTransfer(ctx context.Context, intent donation.BankTransferIntent) error {
	return r.Create(ctx, &domain.DonationIntent{
		ID:            intent.ID,
		Method:        string(intent.Method),
		TierIndex:     intent.TierIndex,
		Amount:        intent.Amount,
		DisplayAmount: intent.DisplayAmount,
		Locale:        intent.Locale,
		CreatedAt:     intent.CreatedAt,
	})
}

var (
	_ domain.DonationIntentRepository = (*DonationIntentRepositoryPG)(nil)
	_ donation.IntentRecorder         = (*DonationIntentRepositoryPG)(nil)
)
