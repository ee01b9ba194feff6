package donation

import (
	"context"
	"errors"
	"math/big"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"foundation/internal/catalog"
	"foundation/internal/units"
)

var (
	testRecipient = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testDonor     = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testTxHash    = common.HexToHash("0xabc0000000000000000000000000000000000000000000000000000000000001")
)

type fakeRPCError struct {
	code int
	msg  string
}

func (e fakeRPCError) Error() string  { return e.msg }
func (e fakeRPCError) ErrorCode() int { return e.code }

type fakeWallet struct {
	mu         sync.Mutex
	account    common.Address
	connected  bool
	chainID    int64
	connectErr error
	switchErr  error
	sendErr    error
	receiptErr error
	receipt    *Receipt
	sent       []TxRequest
	calls      []string

	sendStarted chan struct{}
	sendRelease chan struct{}
}

func newFakeWallet(chainID int64) *fakeWallet {
	return &fakeWallet{
		account: testDonor,
		chainID: chainID,
		receipt: &Receipt{Hash: testTxHash, Status: ReceiptSuccess, BlockNumber: 100},
	}
}

func (w *fakeWallet) record(call string) {
	w.mu.Lock()
	w.calls = append(w.calls, call)
	w.mu.Unlock()
}

func (w *fakeWallet) Connect(ctx context.Context) (common.Address, error) {
	w.record("connect")
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.connectErr != nil {
		return common.Address{}, w.connectErr
	}
	w.connected = true
	return w.account, nil
}

func (w *fakeWallet) Disconnect(ctx context.Context) error {
	w.record("disconnect")
	w.mu.Lock()
	defer w.mu.Unlock()
	w.connected = false
	return nil
}

func (w *fakeWallet) Account() (common.Address, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.account, w.connected
}

func (w *fakeWallet) ChainID() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chainID
}

func (w *fakeWallet) SwitchChain(ctx context.Context, chainID int64) error {
	w.record("switch")
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.switchErr != nil {
		return w.switchErr
	}
	w.chainID = chainID
	return nil
}

func (w *fakeWallet) SendTransaction(ctx context.Context, tx TxRequest) (common.Hash, error) {
	w.record("send")
	if w.sendStarted != nil {
		close(w.sendStarted)
		<-w.sendRelease
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sendErr != nil {
		return common.Hash{}, w.sendErr
	}
	w.sent = append(w.sent, tx)
	return testTxHash, nil
}

func (w *fakeWallet) WaitForReceipt(ctx context.Context, hash common.Hash) (*Receipt, error) {
	w.record("receipt")
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.receiptErr != nil {
		return nil, w.receiptErr
	}
	return w.receipt, nil
}

func (w *fakeWallet) callLog() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.calls...)
}

type fakeEstimator struct {
	err   error
	calls int
}

func (e *fakeEstimator) EstimateGas(ctx context.Context, tx TxRequest) (uint64, error) {
	e.calls++
	if e.err != nil {
		return 0, e.err
	}
	return tx.Gas, nil
}

type fakeRecorder struct {
	intents []BankTransferIntent
	err     error
}

func (r *fakeRecorder) RecordBankTransfer(ctx context.Context, intent BankTransferIntent) error {
	if r.err != nil {
		return r.err
	}
	r.intents = append(r.intents, intent)
	return nil
}

func newTestOrchestrator(t *testing.T, opts Options) *Orchestrator {
	t.Helper()
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.Recipient == (common.Address{}) {
		opts.Recipient = testRecipient
	}
	o, err := NewOrchestrator(opts)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return o
}

func redirectQuery(t *testing.T, raw string) url.Values {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse redirect %q: %v", raw, err)
	}
	return u.Query()
}

func TestDonateUSDCOnEthereumSendsTokenTransfer(t *testing.T) {
	wallet := newFakeWallet(1)
	o := newTestOrchestrator(t, Options{Wallet: wallet, Estimator: &fakeEstimator{}, Locale: "ja"})

	if err := o.SelectMethod(context.Background(), catalog.MethodUSDC); err != nil {
		t.Fatalf("SelectMethod: %v", err)
	}
	if err := o.SelectTier(1); err != nil {
		t.Fatalf("SelectTier: %v", err)
	}
	if err := o.ConnectWallet(context.Background()); err != nil {
		t.Fatalf("ConnectWallet: %v", err)
	}
	res, err := o.Donate(context.Background())
	if err != nil {
		t.Fatalf("Donate: %v", err)
	}

	if len(wallet.sent) != 1 {
		t.Fatalf("sent %d transactions, want 1", len(wallet.sent))
	}
	tx := wallet.sent[0]
	usdc, _ := catalog.Default().TokenAddress(catalog.MethodUSDC, catalog.ChainEthereum)
	if tx.To != common.HexToAddress(usdc) {
		t.Fatalf("tx.To = %s, want USDC contract %s", tx.To.Hex(), usdc)
	}
	if tx.Value.Sign() != 0 {
		t.Fatalf("tx.Value = %s, want 0", tx.Value)
	}
	if tx.Gas != TokenTransferGasLimit {
		t.Fatalf("tx.Gas = %d, want %d", tx.Gas, TokenTransferGasLimit)
	}
	recipient, amount, ok := units.DecodeERC20Transfer("0x" + common.Bytes2Hex(tx.Data))
	if !ok {
		t.Fatalf("call data is not an ERC-20 transfer: %x", tx.Data)
	}
	if !strings.EqualFold(recipient, testRecipient.Hex()) {
		t.Fatalf("transfer recipient = %s, want %s", recipient, testRecipient.Hex())
	}
	if amount.Cmp(big.NewInt(6_000_000_000)) != 0 {
		t.Fatalf("transfer amount = %s, want 6000000000", amount)
	}

	q := redirectQuery(t, res.RedirectURL)
	want := map[string]string{
		"amount":        "6000",
		"displayAmount": "6,000 USDC",
		"method":        "USDC",
		"chain":         "ethereum",
		"address":       testDonor.Hex(),
		"txHash":        testTxHash.Hex(),
	}
	for k, v := range want {
		if got := q.Get(k); got != v {
			t.Fatalf("redirect %s = %q, want %q (url %s)", k, got, v, res.RedirectURL)
		}
	}
	if got := o.Snapshot().State; got != StateConfirmed {
		t.Fatalf("state = %s, want %s", got, StateConfirmed)
	}
}

func TestDonateETHTierZeroSendsWei(t *testing.T) {
	wallet := newFakeWallet(1)
	wallet.connected = true
	o := newTestOrchestrator(t, Options{Wallet: wallet})

	res, err := o.Donate(context.Background())
	if err != nil {
		t.Fatalf("Donate: %v", err)
	}
	tx := wallet.sent[0]
	if tx.To != testRecipient {
		t.Fatalf("tx.To = %s, want donation address", tx.To.Hex())
	}
	want, _ := new(big.Int).SetString("150000000000000000", 10)
	if tx.Value.Cmp(want) != 0 {
		t.Fatalf("tx.Value = %s, want %s", tx.Value, want)
	}
	if len(tx.Data) != 0 {
		t.Fatalf("native transfer carries data %x", tx.Data)
	}
	if tx.Gas != NativeTransferGasLimit {
		t.Fatalf("tx.Gas = %d, want %d", tx.Gas, NativeTransferGasLimit)
	}
	if res.TxHash != testTxHash {
		t.Fatalf("TxHash = %s", res.TxHash.Hex())
	}
}

func TestSelectChainSwitchFailureRevertsChain(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind ErrorKind
		wantCode string
	}{
		{name: "user rejected", err: fakeRPCError{code: 4001, msg: "denied"}, wantKind: KindRejected, wantCode: CodeRequestRejected},
		{name: "rejected message", err: errors.New("User rejected the request."), wantKind: KindRejected, wantCode: CodeRequestRejected},
		{name: "other failure", err: fakeRPCError{code: 4902, msg: "unrecognized chain"}, wantKind: KindSubmission, wantCode: CodeSwitchFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			wallet := newFakeWallet(1)
			wallet.connected = true
			wallet.switchErr = tc.err
			o := newTestOrchestrator(t, Options{Wallet: wallet})

			err := o.SelectChain(context.Background(), catalog.ChainOptimism)
			if err == nil {
				t.Fatalf("SelectChain succeeded, want error")
			}
			if got := KindOf(err); got != tc.wantKind {
				t.Fatalf("KindOf = %q, want %q", got, tc.wantKind)
			}
			snap := o.Snapshot()
			if snap.Chain != catalog.ChainEthereum {
				t.Fatalf("chain = %s, want reverted to ethereum", snap.Chain)
			}
			if snap.Status.Code != tc.wantCode {
				t.Fatalf("status code = %q, want %q", snap.Status.Code, tc.wantCode)
			}
			if snap.State != StateWalletConnected {
				t.Fatalf("state = %s, want %s", snap.State, StateWalletConnected)
			}
		})
	}
}

func TestSelectChainSwitchesConnectedWallet(t *testing.T) {
	wallet := newFakeWallet(1)
	wallet.connected = true
	o := newTestOrchestrator(t, Options{Wallet: wallet})

	if err := o.SelectChain(context.Background(), catalog.ChainBase); err != nil {
		t.Fatalf("SelectChain: %v", err)
	}
	if wallet.ChainID() != 8453 {
		t.Fatalf("wallet chain = %d, want 8453", wallet.ChainID())
	}
	if got := o.Steps(); got != (Steps{Connect: StepComplete, Send: StepReady}) {
		t.Fatalf("Steps = %+v", got)
	}
}

func TestFiatDonationNeverTouchesWallet(t *testing.T) {
	wallet := newFakeWallet(1)
	recorder := &fakeRecorder{}
	o := newTestOrchestrator(t, Options{Wallet: wallet, Intents: recorder, Locale: "en", ConfirmationURL: "https://example.org/donation/confirmation"})

	if err := o.SelectMethod(context.Background(), catalog.MethodJPY); err != nil {
		t.Fatalf("SelectMethod: %v", err)
	}
	if got := o.Steps(); got != (Steps{Connect: StepSkipped, Send: StepReady}) {
		t.Fatalf("Steps = %+v", got)
	}
	if err := o.ConnectWallet(context.Background()); err != nil {
		t.Fatalf("ConnectWallet: %v", err)
	}
	if err := o.SelectChain(context.Background(), catalog.ChainArbitrum); err != nil {
		t.Fatalf("SelectChain: %v", err)
	}
	res, err := o.Donate(context.Background())
	if err != nil {
		t.Fatalf("Donate: %v", err)
	}
	if calls := wallet.callLog(); len(calls) != 0 {
		t.Fatalf("wallet calls = %v, want none", calls)
	}
	if len(recorder.intents) != 1 {
		t.Fatalf("recorded %d intents, want 1", len(recorder.intents))
	}
	intent := recorder.intents[0]
	if intent.ID != res.IntentID || intent.Amount != 100000 || intent.Method != catalog.MethodJPY {
		t.Fatalf("intent = %+v, result intent id %s", intent, res.IntentID)
	}
	if !strings.HasPrefix(res.RedirectURL, "https://example.org/donation/confirmation?") {
		t.Fatalf("RedirectURL = %s", res.RedirectURL)
	}
	q := redirectQuery(t, res.RedirectURL)
	for _, k := range []string{"chain", "address", "txHash"} {
		if _, ok := q[k]; ok {
			t.Fatalf("fiat redirect carries %s: %s", k, res.RedirectURL)
		}
	}
	if q.Get("displayAmount") != "100,000円" || q.Get("method") != "JPY" || q.Get("amount") != "100000" {
		t.Fatalf("fiat redirect query = %v", q)
	}
}

func TestFiatDonationRecorderFailure(t *testing.T) {
	o := newTestOrchestrator(t, Options{Intents: &fakeRecorder{err: errors.New("db down")}})
	if err := o.SelectMethod(context.Background(), catalog.MethodJPY); err != nil {
		t.Fatalf("SelectMethod: %v", err)
	}
	_, err := o.Donate(context.Background())
	if KindOf(err) != KindPersistence {
		t.Fatalf("Donate err = %v, want persistence failure", err)
	}
	if snap := o.Snapshot(); snap.State != StateFailed || snap.Status.Code != CodeIntentFailed {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestSelectMethodKeepsTierAndResetsUnavailableChain(t *testing.T) {
	o := newTestOrchestrator(t, Options{})
	if err := o.SelectTier(2); err != nil {
		t.Fatalf("SelectTier: %v", err)
	}
	if err := o.SelectChain(context.Background(), catalog.ChainBase); err != nil {
		t.Fatalf("SelectChain: %v", err)
	}

	if err := o.SelectMethod(context.Background(), catalog.MethodUSDC); err != nil {
		t.Fatalf("SelectMethod(USDC): %v", err)
	}
	if snap := o.Snapshot(); snap.Chain != catalog.ChainBase || snap.TierIndex != 2 {
		t.Fatalf("after USDC: chain %s tier %d, want base/2", snap.Chain, snap.TierIndex)
	}

	if err := o.SelectMethod(context.Background(), catalog.MethodUSDT); err != nil {
		t.Fatalf("SelectMethod(USDT): %v", err)
	}
	if snap := o.Snapshot(); snap.Chain != catalog.ChainEthereum || snap.TierIndex != 2 {
		t.Fatalf("after USDT: chain %s tier %d, want ethereum/2", snap.Chain, snap.TierIndex)
	}

	if err := o.SelectChain(context.Background(), catalog.ChainBase); KindOf(err) != KindPrecondition {
		t.Fatalf("SelectChain(base) for USDT err = %v, want precondition", err)
	}
	if err := o.SelectMethod(context.Background(), catalog.PaymentMethod("BTC")); !errors.Is(err, catalog.ErrUnknownMethod) {
		t.Fatalf("SelectMethod(BTC) err = %v", err)
	}
	if err := o.SelectTier(3); KindOf(err) != KindPrecondition {
		t.Fatalf("SelectTier(3) err = %v", err)
	}
}

func TestSimulationFailureAbortsBeforeSend(t *testing.T) {
	wallet := newFakeWallet(1)
	wallet.connected = true
	estimator := &fakeEstimator{err: errors.New("execution reverted: ERC20: transfer amount exceeds balance")}
	o := newTestOrchestrator(t, Options{Wallet: wallet, Estimator: estimator})
	if err := o.SelectMethod(context.Background(), catalog.MethodDAI); err != nil {
		t.Fatalf("SelectMethod: %v", err)
	}

	_, err := o.Donate(context.Background())
	if KindOf(err) != KindSimulation {
		t.Fatalf("Donate err = %v, want simulation failure", err)
	}
	if len(wallet.sent) != 0 {
		t.Fatalf("transaction was sent despite failed simulation")
	}
	snap := o.Snapshot()
	if snap.Status.Message != "ERC20: transfer amount exceeds balance" {
		t.Fatalf("status message = %q", snap.Status.Message)
	}
	if snap.State != StateFailed {
		t.Fatalf("state = %s, want failed", snap.State)
	}
}

func TestRevertedReceiptFails(t *testing.T) {
	wallet := newFakeWallet(1)
	wallet.connected = true
	wallet.receipt = &Receipt{Hash: testTxHash, Status: ReceiptReverted}
	o := newTestOrchestrator(t, Options{Wallet: wallet})

	_, err := o.Donate(context.Background())
	var derr *Error
	if !errors.As(err, &derr) || derr.Code != CodeTransactionFailed {
		t.Fatalf("Donate err = %v, want transaction_failed", err)
	}
	if !strings.Contains(derr.Message, "reverted") {
		t.Fatalf("message = %q, want status included", derr.Message)
	}
	if snap := o.Snapshot(); snap.TxHash != testTxHash {
		t.Fatalf("tx hash not kept after failure: %s", snap.TxHash.Hex())
	}
}

func TestDonatePreconditions(t *testing.T) {
	t.Run("disconnected", func(t *testing.T) {
		o := newTestOrchestrator(t, Options{Wallet: newFakeWallet(1)})
		if !(o.Steps() == Steps{Connect: StepPending, Send: StepLocked}) {
			t.Fatalf("Steps = %+v", o.Steps())
		}
		if o.CanDonate() {
			t.Fatalf("CanDonate = true while disconnected")
		}
		_, err := o.Donate(context.Background())
		var derr *Error
		if !errors.As(err, &derr) || derr.Code != CodeWalletDisconnected {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("wrong chain", func(t *testing.T) {
		wallet := newFakeWallet(10)
		wallet.connected = true
		o := newTestOrchestrator(t, Options{Wallet: wallet})
		if got := o.Snapshot().State; got != StateWrongChain {
			t.Fatalf("state = %s, want %s", got, StateWrongChain)
		}
		_, err := o.Donate(context.Background())
		var derr *Error
		if !errors.As(err, &derr) || derr.Code != CodeWrongChain {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("no wallet", func(t *testing.T) {
		o := newTestOrchestrator(t, Options{})
		_, err := o.Donate(context.Background())
		var derr *Error
		if !errors.As(err, &derr) || derr.Code != CodeWalletUnavailable {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestSendRejectedByUser(t *testing.T) {
	wallet := newFakeWallet(1)
	wallet.connected = true
	wallet.sendErr = fakeRPCError{code: 4001, msg: "MetaMask Tx Signature: User denied transaction signature."}
	o := newTestOrchestrator(t, Options{Wallet: wallet})

	_, err := o.Donate(context.Background())
	if KindOf(err) != KindRejected {
		t.Fatalf("err = %v, want rejected", err)
	}
	if o.Snapshot().Status.Code != CodeRequestRejected {
		t.Fatalf("status = %+v", o.Snapshot().Status)
	}
}

func TestConnectWalletFailure(t *testing.T) {
	wallet := newFakeWallet(1)
	wallet.connectErr = errors.New("request rejected by user")
	o := newTestOrchestrator(t, Options{Wallet: wallet})

	if err := o.ConnectWallet(context.Background()); KindOf(err) != KindRejected {
		t.Fatalf("ConnectWallet err = %v", err)
	}
	if got := o.Snapshot().State; got != StateWalletDisconnected {
		t.Fatalf("state = %s", got)
	}
}

func TestDuplicateSubmissionGuard(t *testing.T) {
	wallet := newFakeWallet(1)
	wallet.connected = true
	wallet.sendStarted = make(chan struct{})
	wallet.sendRelease = make(chan struct{})
	o := newTestOrchestrator(t, Options{Wallet: wallet})

	done := make(chan error, 1)
	go func() {
		_, err := o.Donate(context.Background())
		done <- err
	}()

	select {
	case <-wallet.sendStarted:
	case <-time.After(2 * time.Second):
		t.Fatalf("first submission never reached the wallet")
	}
	if o.CanDonate() {
		t.Fatalf("CanDonate = true during submission")
	}
	if _, err := o.Donate(context.Background()); !errors.Is(err, ErrSubmissionInProgress) {
		t.Fatalf("second Donate err = %v, want ErrSubmissionInProgress", err)
	}
	if err := o.SelectMethod(context.Background(), catalog.MethodUSDC); !errors.Is(err, ErrSubmissionInProgress) {
		t.Fatalf("SelectMethod during submission err = %v", err)
	}
	close(wallet.sendRelease)

	if err := <-done; err != nil {
		t.Fatalf("first Donate: %v", err)
	}
	if len(wallet.sent) != 1 {
		t.Fatalf("sent %d transactions, want 1", len(wallet.sent))
	}
	if !o.CanDonate() {
		t.Fatalf("CanDonate = false after submission finished")
	}
}

func TestTransitionsAreReported(t *testing.T) {
	wallet := newFakeWallet(1)
	var seen []State
	o := newTestOrchestrator(t, Options{
		Wallet:       wallet,
		Estimator:    &fakeEstimator{},
		OnTransition: func(tr Transition) { seen = append(seen, tr.To) },
	})
	if err := o.ConnectWallet(context.Background()); err != nil {
		t.Fatalf("ConnectWallet: %v", err)
	}
	if _, err := o.Donate(context.Background()); err != nil {
		t.Fatalf("Donate: %v", err)
	}
	want := []State{
		StateWalletDisconnected,
		StateWalletConnecting,
		StateWalletConnected,
		StateEstimating,
		StateAwaitingSignature,
		StateSubmitted,
		StateConfirming,
		StateConfirmed,
	}
	if len(seen) != len(want) {
		t.Fatalf("transitions = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", seen, want)
		}
	}
}

func TestSelectMethodSwitchesWalletWhenChainResets(t *testing.T) {
	wallet := newFakeWallet(1)
	wallet.connected = true
	o := newTestOrchestrator(t, Options{Wallet: wallet})
	ctx := context.Background()
	if err := o.SelectMethod(ctx, catalog.MethodUSDC); err != nil {
		t.Fatalf("SelectMethod(USDC): %v", err)
	}
	if err := o.SelectChain(ctx, catalog.ChainBase); err != nil {
		t.Fatalf("SelectChain(base): %v", err)
	}
	if wallet.ChainID() != 8453 {
		t.Fatalf("wallet chain = %d, want base", wallet.ChainID())
	}

	if err := o.SelectMethod(ctx, catalog.MethodUSDT); err != nil {
		t.Fatalf("SelectMethod(USDT): %v", err)
	}
	snap := o.Snapshot()
	if snap.Chain != catalog.ChainEthereum || wallet.ChainID() != 1 {
		t.Fatalf("chain %s, wallet chain %d; want ethereum on both", snap.Chain, wallet.ChainID())
	}
	if snap.State != StateWalletConnected {
		t.Fatalf("state = %s, want %s", snap.State, StateWalletConnected)
	}
}

func TestSelectMethodSwitchRejectedKeepsResetChain(t *testing.T) {
	wallet := newFakeWallet(8453)
	wallet.connected = true
	o := newTestOrchestrator(t, Options{Wallet: wallet})
	ctx := context.Background()
	if err := o.SelectMethod(ctx, catalog.MethodUSDC); err != nil {
		t.Fatalf("SelectMethod(USDC): %v", err)
	}
	if err := o.SelectChain(ctx, catalog.ChainBase); err != nil {
		t.Fatalf("SelectChain(base): %v", err)
	}

	wallet.switchErr = fakeRPCError{code: 4001, msg: "User rejected the request."}
	err := o.SelectMethod(ctx, catalog.MethodUSDT)
	if KindOf(err) != KindRejected {
		t.Fatalf("SelectMethod(USDT) err = %v, want rejection", err)
	}
	snap := o.Snapshot()
	if snap.Method != catalog.MethodUSDT || snap.Chain != catalog.ChainEthereum {
		t.Fatalf("method %s chain %s, want USDT on ethereum", snap.Method, snap.Chain)
	}
	if snap.State != StateWrongChain || snap.Status.Code != CodeRequestRejected {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestSelectMethodClampsTierForShorterMethod(t *testing.T) {
	cat := catalog.Default()
	jpy, ok := cat.Method(catalog.MethodJPY)
	if !ok {
		t.Fatalf("JPY missing from catalog")
	}
	jpy.Tiers = jpy.Tiers[:1]

	o := newTestOrchestrator(t, Options{Catalog: cat})
	if err := o.SelectTier(2); err != nil {
		t.Fatalf("SelectTier: %v", err)
	}
	if err := o.SelectMethod(context.Background(), catalog.MethodJPY); err != nil {
		t.Fatalf("SelectMethod(JPY): %v", err)
	}
	if snap := o.Snapshot(); snap.TierIndex != 0 {
		t.Fatalf("tier = %d, want 0", snap.TierIndex)
	}
}
