// Package donation drives a single donation attempt: method, tier and chain
// selection, wallet connection, the on-chain transfer or the bank-transfer
// intent, and the redirect to the confirmation page.
package donation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"foundation/internal/catalog"
	"foundation/internal/infra"
	"foundation/internal/metrics"
)

// DefaultConfirmationURL is used when Options.ConfirmationURL is empty.
const DefaultConfirmationURL = "/donation/confirmation"

// State is a node of the donation state machine.
type State string

const (
	StateIdle               State = "idle"
	StateWalletDisconnected State = "wallet_disconnected"
	StateWalletConnecting   State = "wallet_connecting"
	StateWrongChain         State = "wallet_connected_wrong_chain"
	StateWalletConnected    State = "wallet_connected"
	StateEstimating         State = "estimating"
	StateAwaitingSignature  State = "awaiting_signature"
	StateSubmitted          State = "submitted"
	StateConfirming         State = "confirming"
	StateConfirmed          State = "confirmed"
	StateFailed             State = "failed"
)

// StepStatus is the display status of a page step.
type StepStatus string

const (
	StepSkipped  StepStatus = "skipped"
	StepPending  StepStatus = "pending"
	StepComplete StepStatus = "complete"
	StepReady    StepStatus = "ready"
	StepLocked   StepStatus = "locked"
)

// Steps are the two steps shown on the donation page.
type Steps struct {
	Connect StepStatus `json:"connect"`
	Send    StepStatus `json:"send"`
}

// Status is the message shown next to the donate button.
type Status struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Transition is reported to Options.OnTransition on every state change.
type Transition struct {
	From State
	To   State
	At   time.Time
}

// Snapshot is a consistent copy of the orchestrator's observable state.
type Snapshot struct {
	State     State
	Method    catalog.PaymentMethod
	TierIndex int
	Chain     catalog.Chain
	Account   common.Address
	Connected bool
	Status    Status
	TxHash    common.Hash
}

// Result is the outcome of a successful Donate call.
type Result struct {
	Confirmation Confirmation
	RedirectURL  string
	TxHash       common.Hash
	IntentID     string
}

// Options configures an Orchestrator.
type Options struct {
	Catalog *catalog.Catalog
	// Wallet may be nil when only bank transfers are offered.
	Wallet Wallet
	// Estimator is optional; without it the transfer is not simulated.
	Estimator GasEstimator
	// Intents is optional; without it fiat donations are not recorded.
	Intents         IntentRecorder
	Recipient       common.Address
	ConfirmationURL string
	// Locale is the page locale used for display amounts.
	Locale string
	Logger *infra.Logger
	// OnTransition is invoked synchronously while the orchestrator lock is
	// held and must not call back into the orchestrator.
	OnTransition func(Transition)
	Now          func() time.Time
}

// Orchestrator is the state machine of one donation attempt. It is safe for
// concurrent use.
type Orchestrator struct {
	catalog         *catalog.Catalog
	wallet          Wallet
	estimator       GasEstimator
	intents         IntentRecorder
	recipient       common.Address
	confirmationURL string
	locale          string
	logger          *infra.Logger
	onTransition    func(Transition)
	now             func() time.Time

	mu         sync.Mutex
	state      State
	method     catalog.PaymentMethod
	tier       int
	chain      catalog.Chain
	status     Status
	txHash     common.Hash
	submitting bool
}

// NewOrchestrator starts an attempt with ETH, the first tier and the first
// catalog chain selected.
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Catalog == nil {
		return nil, errors.New("donation: catalog is required")
	}
	confirmationURL := strings.TrimSpace(opts.ConfirmationURL)
	if confirmationURL == "" {
		confirmationURL = DefaultConfirmationURL
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	chains := opts.Catalog.AvailableChains(catalog.MethodETH)
	o := &Orchestrator{
		catalog:         opts.Catalog,
		wallet:          opts.Wallet,
		estimator:       opts.Estimator,
		intents:         opts.Intents,
		recipient:       opts.Recipient,
		confirmationURL: confirmationURL,
		locale:          opts.Locale,
		logger:          logger,
		onTransition:    opts.OnTransition,
		now:             now,
		state:           StateIdle,
		method:          catalog.MethodETH,
	}
	if len(chains) > 0 {
		o.chain = chains[0]
	}
	o.mu.Lock()
	o.settle()
	o.mu.Unlock()
	return o, nil
}

// Snapshot returns the current observable state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := Snapshot{
		State:     o.state,
		Method:    o.method,
		TierIndex: o.tier,
		Chain:     o.chain,
		Status:    o.status,
		TxHash:    o.txHash,
	}
	if o.wallet != nil {
		s.Account, s.Connected = o.wallet.Account()
	}
	return s
}

// SelectMethod changes the payment method. The tier index is clamped to the
// method's last tier and the chain is reset to the first available chain
// when the current one cannot carry the method. A connected wallet is asked
// to follow a reset chain; if it refuses, the new chain is kept, the status
// explains why and the machine waits in StateWrongChain.
func (o *Orchestrator) SelectMethod(ctx context.Context, method catalog.PaymentMethod) error {
	o.mu.Lock()
	if o.submitting {
		o.mu.Unlock()
		return ErrSubmissionInProgress
	}
	tiers := o.catalog.Tiers(method)
	if len(tiers) == 0 {
		o.mu.Unlock()
		return fmt.Errorf("%w: %q", catalog.ErrUnknownMethod, method)
	}
	o.method = method
	// Validate keeps every method at the same tier count; the clamp covers
	// catalogs built without it.
	if o.tier >= len(tiers) {
		o.tier = len(tiers) - 1
	}
	if o.tier < 0 {
		o.tier = 0
	}
	previous := o.chain
	available := o.catalog.AvailableChains(method)
	if !containsChain(available, o.chain) && len(available) > 0 {
		o.chain = available[0]
	}
	o.status = Status{}
	if o.chain == previous {
		o.settle()
		o.mu.Unlock()
		return nil
	}
	return o.followChainLocked(ctx, "")
}

// SelectTier picks one of the method's fixed tiers.
func (o *Orchestrator) SelectTier(index int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.submitting {
		return ErrSubmissionInProgress
	}
	if _, ok := o.catalog.TierAmount(o.method, index); !ok {
		return precondition(CodeInvalidTier, fmt.Sprintf("tier %d does not exist", index))
	}
	o.tier = index
	o.status = Status{}
	return nil
}

// SelectChain changes the target chain. When a wallet is connected on a
// different chain it is asked to switch; if that fails the previous chain is
// restored and the status explains why.
func (o *Orchestrator) SelectChain(ctx context.Context, chain catalog.Chain) error {
	o.mu.Lock()
	if o.submitting {
		o.mu.Unlock()
		return ErrSubmissionInProgress
	}
	if _, ok := o.catalog.ChainID(chain); !ok {
		o.mu.Unlock()
		return fmt.Errorf("%w: %q", catalog.ErrUnknownChain, chain)
	}
	if !containsChain(o.catalog.AvailableChains(o.method), chain) {
		o.mu.Unlock()
		return precondition(CodeTokenUnavailable, fmt.Sprintf("%s is not available on %s", o.method, chain))
	}
	previous := o.chain
	o.chain = chain
	o.status = Status{}
	return o.followChainLocked(ctx, previous)
}

// followChainLocked asks a connected wallet to switch to o.chain. It is
// entered with o.mu held and releases it. On failure o.chain goes back to
// revert unless revert is empty.
func (o *Orchestrator) followChainLocked(ctx context.Context, revert catalog.Chain) error {
	chain := o.chain
	id, ok := o.catalog.ChainID(chain)
	needsSwitch := ok && o.isCryptoLocked() && o.wallet != nil && o.connectedLocked() && o.wallet.ChainID() != id
	if !needsSwitch {
		o.settle()
		o.mu.Unlock()
		return nil
	}
	wallet := o.wallet
	o.mu.Unlock()

	err := wallet.SwitchChain(ctx, id)

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		if revert != "" {
			o.chain = revert
		}
		derr := classifyWalletError(err, CodeSwitchFailed, "failed to switch network")
		o.status = Status{Code: derr.Code, Message: derr.Message}
		o.logger.Warn().Err(err).Str("chain", string(chain)).Str("code", derr.Code).Msg("chain switch failed")
		o.settle()
		return derr
	}
	o.logger.Debug().Str("chain", string(chain)).Int64("chain_id", id).Msg("wallet switched chain")
	o.settle()
	return nil
}

// ConnectWallet asks the wallet for an account. It does nothing for fiat
// methods.
func (o *Orchestrator) ConnectWallet(ctx context.Context) error {
	o.mu.Lock()
	if o.submitting {
		o.mu.Unlock()
		return ErrSubmissionInProgress
	}
	if !o.isCryptoLocked() {
		o.mu.Unlock()
		return nil
	}
	if o.wallet == nil {
		o.status = Status{Code: CodeWalletUnavailable, Message: "no wallet available"}
		o.mu.Unlock()
		return precondition(CodeWalletUnavailable, "no wallet available")
	}
	wallet := o.wallet
	o.status = Status{}
	o.setState(StateWalletConnecting)
	o.mu.Unlock()

	addr, err := wallet.Connect(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		derr := classifyWalletError(err, CodeConnectFailed, "failed to connect wallet")
		o.status = Status{Code: derr.Code, Message: derr.Message}
		o.logger.Warn().Err(err).Str("code", derr.Code).Msg("wallet connect failed")
		o.settle()
		return derr
	}
	o.logger.Info().Str("account", addr.Hex()).Int64("chain_id", wallet.ChainID()).Msg("wallet connected")
	o.settle()
	return nil
}

// DisconnectWallet drops the wallet session.
func (o *Orchestrator) DisconnectWallet(ctx context.Context) error {
	o.mu.Lock()
	if o.submitting {
		o.mu.Unlock()
		return ErrSubmissionInProgress
	}
	wallet := o.wallet
	o.mu.Unlock()
	if wallet == nil {
		return nil
	}
	err := wallet.Disconnect(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.status = Status{}
	o.settle()
	if err != nil {
		return fmt.Errorf("donation: disconnect wallet: %w", err)
	}
	return nil
}

// Steps reports the page steps. Connecting is skipped for fiat and complete
// only when the wallet is connected on the selected chain; sending is ready
// once connecting is skipped or complete.
func (o *Orchestrator) Steps() Steps {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stepsLocked()
}

// CanDonate reports whether the donate button is enabled.
func (o *Orchestrator) CanDonate() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return !o.submitting && o.stepsLocked().Send == StepReady
}

// Donate performs the donation for the current selection. Only one call
// runs at a time; concurrent calls fail with ErrSubmissionInProgress.
func (o *Orchestrator) Donate(ctx context.Context) (*Result, error) {
	o.mu.Lock()
	if o.submitting {
		o.mu.Unlock()
		return nil, ErrSubmissionInProgress
	}
	o.submitting = true
	o.status = Status{}
	o.txHash = common.Hash{}
	method, tier, chain := o.method, o.tier, o.chain
	fiat := !o.isCryptoLocked()
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.submitting = false
		o.mu.Unlock()
	}()

	var (
		res *Result
		err error
	)
	if fiat {
		res, err = o.donateFiat(ctx, method, tier)
	} else {
		res, err = o.donateCrypto(ctx, method, chain, tier)
	}
	if err != nil {
		o.fail(method, err)
		return nil, err
	}
	o.mu.Lock()
	o.setState(StateConfirmed)
	o.mu.Unlock()
	metrics.DonationOutcomes.WithLabelValues(string(method), "confirmed").Inc()
	o.logger.Info().
		Str("method", string(method)).
		Str("amount", res.Confirmation.Amount).
		Str("tx_hash", res.Confirmation.TxHash).
		Str("intent_id", res.IntentID).
		Msg("donation completed")
	return res, nil
}

func (o *Orchestrator) donateFiat(ctx context.Context, method catalog.PaymentMethod, tier int) (*Result, error) {
	amount, ok := o.catalog.TierAmount(method, tier)
	if !ok {
		return nil, precondition(CodeInvalidTier, "unknown amount tier")
	}
	if !(amount > 0) {
		return nil, precondition(CodeInvalidAmount, "donation amount must be positive")
	}
	display := o.catalog.FormatAmount(method, amount, o.catalog.LocaleFor(method, o.locale))
	intent := BankTransferIntent{
		ID:            uuid.NewString(),
		Method:        method,
		TierIndex:     tier,
		Amount:        amount,
		DisplayAmount: display,
		Locale:        o.locale,
		CreatedAt:     o.now().UTC(),
	}
	if o.intents != nil {
		if err := o.intents.RecordBankTransfer(ctx, intent); err != nil {
			return nil, &Error{Kind: KindPersistence, Code: CodeIntentFailed, Message: "failed to record bank transfer intent", Err: err}
		}
	}
	conf := Confirmation{
		Amount:        rawAmount(amount),
		DisplayAmount: display,
		Method:        string(method),
	}
	return &Result{Confirmation: conf, RedirectURL: conf.URL(o.confirmationURL), IntentID: intent.ID}, nil
}

func (o *Orchestrator) donateCrypto(ctx context.Context, method catalog.PaymentMethod, chain catalog.Chain, tier int) (*Result, error) {
	if o.wallet == nil {
		return nil, precondition(CodeWalletUnavailable, "no wallet available")
	}
	account, ok := o.wallet.Account()
	if !ok {
		return nil, precondition(CodeWalletDisconnected, "wallet is not connected")
	}
	transfer, err := BuildTransfer(o.catalog, method, chain, tier, o.recipient)
	if err != nil {
		return nil, err
	}
	if o.wallet.ChainID() != transfer.ChainID {
		return nil, precondition(CodeWrongChain, fmt.Sprintf("wallet is not on %s", chain))
	}
	req := transfer.Request(account)

	if o.estimator != nil {
		o.transition(StateEstimating)
		if _, err := o.estimator.EstimateGas(ctx, req); err != nil {
			return nil, &Error{Kind: KindSimulation, Code: CodeSimulationFailed, Message: SimulationReason(err), Err: err}
		}
	}

	o.transition(StateAwaitingSignature)
	hash, err := o.wallet.SendTransaction(ctx, req)
	if err != nil {
		return nil, classifyWalletError(err, CodeSubmissionFailed, "failed to submit transaction")
	}
	o.mu.Lock()
	o.txHash = hash
	o.setState(StateSubmitted)
	o.mu.Unlock()
	o.logger.Info().Str("tx_hash", hash.Hex()).Str("method", string(method)).Str("chain", string(chain)).Msg("donation transaction submitted")

	o.transition(StateConfirming)
	receipt, err := o.wallet.WaitForReceipt(ctx, hash)
	if err != nil {
		return nil, &Error{Kind: KindSubmission, Code: CodeConfirmationFailed, Message: "failed to confirm transaction", Err: err}
	}
	if receipt == nil || receipt.Status != ReceiptSuccess {
		status := ReceiptUnknown
		if receipt != nil && receipt.Status != "" {
			status = receipt.Status
		}
		return nil, &Error{Kind: KindSubmission, Code: CodeTransactionFailed, Message: fmt.Sprintf("transaction %s", status)}
	}

	display := o.catalog.FormatAmount(method, transfer.Amount, o.catalog.LocaleFor(method, o.locale))
	conf := transfer.Confirmation(display, account, hash)
	return &Result{Confirmation: conf, RedirectURL: conf.URL(o.confirmationURL), TxHash: hash}, nil
}

func (o *Orchestrator) fail(method catalog.PaymentMethod, err error) {
	status := Status{Code: CodeSubmissionFailed, Message: err.Error()}
	outcome := string(KindSubmission)
	var derr *Error
	if errors.As(err, &derr) {
		status = Status{Code: derr.Code, Message: derr.Message}
		outcome = string(derr.Kind)
	}
	o.mu.Lock()
	o.status = status
	o.setState(StateFailed)
	o.mu.Unlock()
	metrics.DonationOutcomes.WithLabelValues(string(method), outcome).Inc()
	o.logger.Warn().Err(err).Str("method", string(method)).Str("code", status.Code).Msg("donation failed")
}

func (o *Orchestrator) transition(to State) {
	o.mu.Lock()
	o.setState(to)
	o.mu.Unlock()
}

// settle moves the machine to the resting state implied by the selection and
// the wallet. Callers hold o.mu.
func (o *Orchestrator) settle() {
	switch {
	case !o.isCryptoLocked():
		o.setState(StateIdle)
	case o.wallet == nil || !o.connectedLocked():
		o.setState(StateWalletDisconnected)
	case !o.onSelectedChainLocked():
		o.setState(StateWrongChain)
	default:
		o.setState(StateWalletConnected)
	}
}

func (o *Orchestrator) setState(to State) {
	from := o.state
	if from == to {
		return
	}
	o.state = to
	o.logger.Debug().Str("from", string(from)).Str("to", string(to)).Msg("donation state changed")
	if o.onTransition != nil {
		o.onTransition(Transition{From: from, To: to, At: o.now()})
	}
}

func (o *Orchestrator) stepsLocked() Steps {
	if !o.isCryptoLocked() {
		return Steps{Connect: StepSkipped, Send: StepReady}
	}
	if o.wallet != nil && o.connectedLocked() && o.onSelectedChainLocked() {
		return Steps{Connect: StepComplete, Send: StepReady}
	}
	return Steps{Connect: StepPending, Send: StepLocked}
}

func (o *Orchestrator) isCryptoLocked() bool {
	m, ok := o.catalog.Method(o.method)
	return ok && m.IsCrypto()
}

func (o *Orchestrator) connectedLocked() bool {
	_, ok := o.wallet.Account()
	return ok
}

func (o *Orchestrator) onSelectedChainLocked() bool {
	id, ok := o.catalog.ChainID(o.chain)
	return ok && o.wallet.ChainID() == id
}

func containsChain(chains []catalog.Chain, chain catalog.Chain) bool {
	for _, c := range chains {
		if c == chain {
			return true
		}
	}
	return false
}
