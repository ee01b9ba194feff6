package donation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// ErrorKind classifies donation failures. Every kind is recoverable by the
// user trying again.
type ErrorKind string

const (
	KindRejected     ErrorKind = "rejected"
	KindPrecondition ErrorKind = "precondition"
	KindSimulation   ErrorKind = "simulation"
	KindSubmission   ErrorKind = "submission"
	KindPersistence  ErrorKind = "persistence"
)

// Status codes surfaced to the page.
const (
	CodeRequestRejected    = "request_rejected"
	CodeSwitchFailed       = "switch_failed"
	CodeConnectFailed      = "connect_failed"
	CodeWalletUnavailable  = "wallet_unavailable"
	CodeWalletDisconnected = "wallet_not_connected"
	CodeWrongChain         = "wrong_chain"
	CodeInvalidAmount      = "invalid_amount"
	CodeInvalidTier        = "invalid_tier"
	CodeTokenUnavailable   = "token_unavailable"
	CodeRecipientMissing   = "recipient_missing"
	CodeSimulationFailed   = "simulation_failed"
	CodeSubmissionFailed   = "submission_failed"
	CodeConfirmationFailed = "confirmation_failed"
	CodeTransactionFailed  = "transaction_failed"
	CodeIntentFailed       = "intent_failed"
)

const genericSimulationReason = "the transaction would fail"

// ErrSubmissionInProgress is returned while a previous Donate call is pending.
var ErrSubmissionInProgress = errors.New("donation: submission already in progress")

// Error is a classified donation failure.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("donation: %s: %v", e.Message, e.Err)
	}
	return "donation: " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the classification of err, or "" when err is not a
// donation error.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func precondition(code, msg string) *Error {
	return &Error{Kind: KindPrecondition, Code: code, Message: msg}
}

var rejectionPhrases = []string{"user rejected", "rejected by user", "user cancelled"}

// IsUserRejection reports whether err is a wallet prompt the user dismissed
// or rejected: provider code 4001 or 5000, or a message saying so.
func IsUserRejection(err error) bool {
	if err == nil {
		return false
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.ErrorCode() {
		case 4001, 5000:
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, phrase := range rejectionPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// SimulationReason extracts a human-readable reason from a failed gas
// estimation, falling back to a generic message.
func SimulationReason(err error) string {
	if err == nil {
		return genericSimulationReason
	}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if raw, ok := dataErr.ErrorData().(string); ok {
			if data, decErr := hexutil.Decode(raw); decErr == nil {
				if reason, unpackErr := abi.UnpackRevert(data); unpackErr == nil && reason != "" {
					return reason
				}
			}
		}
	}
	msg := strings.TrimSpace(err.Error())
	lower := strings.ToLower(msg)
	if idx := strings.Index(lower, "execution reverted"); idx >= 0 {
		rest := strings.TrimSpace(strings.TrimPrefix(msg[idx+len("execution reverted"):], ":"))
		if rest != "" {
			return rest
		}
		return "execution reverted"
	}
	if line, _, _ := strings.Cut(msg, "\n"); line != "" {
		if len(line) > 200 {
			line = line[:200]
		}
		return line
	}
	return genericSimulationReason
}

func classifyWalletError(err error, code, msg string) *Error {
	if IsUserRejection(err) {
		return &Error{Kind: KindRejected, Code: CodeRequestRejected, Message: "request rejected in wallet", Err: err}
	}
	return &Error{Kind: KindSubmission, Code: code, Message: msg, Err: err}
}
