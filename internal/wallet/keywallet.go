// Package wallet provides a wallet bridge backed by a local private key and
// JSON-RPC endpoints, for operators donating from the command line.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"math/big"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"foundation/internal/donation"
	"foundation/internal/infra"
)

// ErrNotConnected is returned by operations that need a connected account.
var ErrNotConnected = errors.New("wallet: not connected")

// CodeUnrecognizedChain mirrors the provider code wallets return when asked
// to switch to a chain they do not know.
const CodeUnrecognizedChain = 4902

// ChainClient is the subset of *ethclient.Client the wallet needs.
type ChainClient interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	Close()
}

// DialFunc opens a chain client for an RPC endpoint.
type DialFunc func(ctx context.Context, rawURL string) (ChainClient, error)

// ProviderError carries a provider-style numeric code.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string  { return e.Message }
func (e *ProviderError) ErrorCode() int { return e.Code }

// Options configures a KeyWallet.
type Options struct {
	PrivateKey *ecdsa.PrivateKey
	// Endpoints maps chain ids to JSON-RPC URLs.
	Endpoints      map[int64]string
	InitialChainID int64
	Dial           DialFunc
	PollInterval   time.Duration
	Logger         *infra.Logger
}

// KeyWallet signs EIP-1559 transactions with a local key. It satisfies
// donation.Wallet and donation.GasEstimator.
type KeyWallet struct {
	key          *ecdsa.PrivateKey
	address      common.Address
	endpoints    map[int64]string
	dial         DialFunc
	pollInterval time.Duration
	logger       *infra.Logger

	mu        sync.Mutex
	chainID   int64
	connected bool
	clients   map[int64]ChainClient
}

// New builds a KeyWallet. It does not touch the network until Connect.
func New(opts Options) (*KeyWallet, error) {
	if opts.PrivateKey == nil {
		return nil, errors.New("wallet: private key is required")
	}
	if len(opts.Endpoints) == 0 {
		return nil, errors.New("wallet: at least one rpc endpoint is required")
	}
	dial := opts.Dial
	if dial == nil {
		dial = func(ctx context.Context, rawURL string) (ChainClient, error) {
			return ethclient.DialContext(ctx, rawURL)
		}
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = 2 * time.Second
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	chainID := opts.InitialChainID
	if _, ok := opts.Endpoints[chainID]; !ok {
		return nil, fmt.Errorf("wallet: no rpc endpoint for initial chain %d", chainID)
	}
	endpoints := make(map[int64]string, len(opts.Endpoints))
	for id, u := range opts.Endpoints {
		endpoints[id] = u
	}
	return &KeyWallet{
		key:          opts.PrivateKey,
		address:      crypto.PubkeyToAddress(opts.PrivateKey.PublicKey),
		endpoints:    endpoints,
		dial:         dial,
		pollInterval: poll,
		logger:       logger,
		chainID:      chainID,
		clients:      make(map[int64]ChainClient),
	}, nil
}

// Address is the key's account regardless of connection state.
func (w *KeyWallet) Address() common.Address { return w.address }

// Connect dials the active chain and exposes the account.
func (w *KeyWallet) Connect(ctx context.Context) (common.Address, error) {
	w.mu.Lock()
	chainID := w.chainID
	w.mu.Unlock()
	if _, err := w.client(ctx, chainID); err != nil {
		return common.Address{}, err
	}
	w.mu.Lock()
	w.connected = true
	w.mu.Unlock()
	w.logger.Debug().Str("account", w.address.Hex()).Int64("chain_id", chainID).Msg("key wallet connected")
	return w.address, nil
}

// Disconnect hides the account and closes every open client.
func (w *KeyWallet) Disconnect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.connected = false
	for id, c := range w.clients {
		c.Close()
		delete(w.clients, id)
	}
	return nil
}

func (w *KeyWallet) Account() (common.Address, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.connected {
		return common.Address{}, false
	}
	return w.address, true
}

func (w *KeyWallet) ChainID() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chainID
}

// SwitchChain activates another configured chain.
func (w *KeyWallet) SwitchChain(ctx context.Context, chainID int64) error {
	if _, ok := w.endpoints[chainID]; !ok {
		return &ProviderError{Code: CodeUnrecognizedChain, Message: fmt.Sprintf("unrecognized chain id %d", chainID)}
	}
	if _, err := w.client(ctx, chainID); err != nil {
		return err
	}
	w.mu.Lock()
	w.chainID = chainID
	w.mu.Unlock()
	return nil
}

// SendTransaction signs and broadcasts tx on the active chain.
func (w *KeyWallet) SendTransaction(ctx context.Context, req donation.TxRequest) (common.Hash, error) {
	w.mu.Lock()
	connected, chainID := w.connected, w.chainID
	w.mu.Unlock()
	if !connected {
		return common.Hash{}, ErrNotConnected
	}
	if req.ChainID != chainID {
		return common.Hash{}, fmt.Errorf("wallet: transaction for chain %d while on chain %d", req.ChainID, chainID)
	}
	client, err := w.client(ctx, chainID)
	if err != nil {
		return common.Hash{}, err
	}
	nonce, err := client.PendingNonceAt(ctx, w.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("wallet: nonce: %w", err)
	}
	tip, err := client.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("wallet: gas tip: %w", err)
	}
	head, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("wallet: latest header: %w", err)
	}
	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}
	to := req.To
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(chainID),
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       req.Gas,
		To:        &to,
		Value:     value,
		Data:      req.Data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(chainID)), w.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("wallet: sign: %w", err)
	}
	if err := client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	w.logger.Info().
		Str("tx_hash", signed.Hash().Hex()).
		Int64("chain_id", chainID).
		Uint64("nonce", nonce).
		Msg("transaction broadcast")
	return signed.Hash(), nil
}

// WaitForReceipt polls the active chain until the transaction is mined or
// ctx ends.
func (w *KeyWallet) WaitForReceipt(ctx context.Context, hash common.Hash) (*donation.Receipt, error) {
	client, err := w.client(ctx, w.ChainID())
	if err != nil {
		return nil, err
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.pollInterval
	b.MaxInterval = 8 * w.pollInterval
	b.MaxElapsedTime = 0

	var receipt *types.Receipt
	op := func() error {
		r, err := client.TransactionReceipt(ctx, hash)
		if err != nil {
			return err
		}
		receipt = r
		return nil
	}
	notify := func(err error, next time.Duration) {
		if !errors.Is(err, ethereum.NotFound) {
			w.logger.Warn().Err(err).Str("tx_hash", hash.Hex()).Dur("retry_in", next).Msg("receipt lookup failed")
		}
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, fmt.Errorf("wallet: wait for receipt %s: %w", hash.Hex(), err)
	}
	out := &donation.Receipt{Hash: hash, Status: donation.ReceiptUnknown}
	if receipt.BlockNumber != nil {
		out.BlockNumber = receipt.BlockNumber.Uint64()
	}
	switch receipt.Status {
	case types.ReceiptStatusSuccessful:
		out.Status = donation.ReceiptSuccess
	case types.ReceiptStatusFailed:
		out.Status = donation.ReceiptReverted
	}
	return out, nil
}

// EstimateGas dry-runs req on the chain it targets.
func (w *KeyWallet) EstimateGas(ctx context.Context, req donation.TxRequest) (uint64, error) {
	client, err := w.client(ctx, req.ChainID)
	if err != nil {
		return 0, err
	}
	to := req.To
	return client.EstimateGas(ctx, ethereum.CallMsg{
		From:  req.From,
		To:    &to,
		Value: req.Value,
		Data:  req.Data,
	})
}

func (w *KeyWallet) client(ctx context.Context, chainID int64) (ChainClient, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if c, ok := w.clients[chainID]; ok {
		return c, nil
	}
	endpoint, ok := w.endpoints[chainID]
	if !ok {
		return nil, &ProviderError{Code: CodeUnrecognizedChain, Message: fmt.Sprintf("unrecognized chain id %d", chainID)}
	}
	c, err := w.dial(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("wallet: dial chain %d: %w", chainID, err)
	}
	w.clients[chainID] = c
	return c, nil
}
