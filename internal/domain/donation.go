package domain

import "time"

// IntentStatus tracks a bank-transfer intent through manual reconciliation.
type IntentStatus string

const (
	IntentPending  IntentStatus = "pending"
	IntentReceived IntentStatus = "received"
)

// DonationIntent is a visitor's declared intent to donate by bank transfer.
// Funds arrive off-platform and are reconciled by the foundation.
type DonationIntent struct {
	ID            string
	Method        string
	TierIndex     int
	Amount        float64
	DisplayAmount string
	Locale        string
	Status        IntentStatus
	CreatedAt     time.Time
}
