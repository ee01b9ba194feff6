package domain

import "context"

// DonationIntentRepository persists bank-transfer intents.
type DonationIntentRepository interface {
	Create(ctx context.Context, intent *DonationIntent) error
	ListRecent(ctx context.Context, limit int) ([]DonationIntent, error)
	MarkReceived(ctx context.Context, id string) error
}
