package donation

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"foundation/internal/catalog"
)

// Wallet is the capability surface of a connected wallet bridge. Any
// implementation that honours it is substitutable.
type Wallet interface {
	Connect(ctx context.Context) (common.Address, error)
	Disconnect(ctx context.Context) error
	// Account returns the connected address; ok is false when disconnected.
	Account() (addr common.Address, ok bool)
	// ChainID is the wallet's active chain, 0 when unknown.
	ChainID() int64
	SwitchChain(ctx context.Context, chainID int64) error
	SendTransaction(ctx context.Context, tx TxRequest) (common.Hash, error)
	WaitForReceipt(ctx context.Context, hash common.Hash) (*Receipt, error)
}

// GasEstimator is a read-only chain client used to dry-run a transfer.
type GasEstimator interface {
	EstimateGas(ctx context.Context, tx TxRequest) (uint64, error)
}

// IntentRecorder stores the bank-transfer intent of a fiat donation.
type IntentRecorder interface {
	RecordBankTransfer(ctx context.Context, intent BankTransferIntent) error
}

// TxRequest is a fully specified transfer ready for signing.
type TxRequest struct {
	ChainID int64
	From    common.Address
	To      common.Address
	Value   *big.Int
	Data    []byte
	Gas     uint64
}

// ReceiptStatus is the outcome of a mined transaction.
type ReceiptStatus string

const (
	ReceiptSuccess  ReceiptStatus = "success"
	ReceiptReverted ReceiptStatus = "reverted"
	ReceiptUnknown  ReceiptStatus = "unknown"
)

// Receipt is the confirmation result of a submitted transaction.
type Receipt struct {
	Hash        common.Hash
	Status      ReceiptStatus
	BlockNumber uint64
}

// BankTransferIntent records a visitor's intent to donate by bank transfer.
type BankTransferIntent struct {
	ID            string
	Method        catalog.PaymentMethod
	TierIndex     int
	Amount        float64
	DisplayAmount string
	Locale        string
	CreatedAt     time.Time
}
