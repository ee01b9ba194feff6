package donation

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type fakeDataError struct {
	msg  string
	data any
}

func (e fakeDataError) Error() string          { return e.msg }
func (e fakeDataError) ErrorData() interface{} { return e.data }

func revertData(reason string) string {
	var buf []byte
	buf = append(buf, 0x08, 0xc3, 0x79, 0xa0)
	buf = append(buf, common.LeftPadBytes(big.NewInt(32).Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(big.NewInt(int64(len(reason))).Bytes(), 32)...)
	padded := make([]byte, (len(reason)+31)/32*32)
	copy(padded, reason)
	buf = append(buf, padded...)
	return hexutil.Encode(buf)
}

func TestIsUserRejection(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "code 4001", err: fakeRPCError{code: 4001, msg: "nope"}, want: true},
		{name: "code 5000", err: fakeRPCError{code: 5000, msg: "nope"}, want: true},
		{name: "wrapped code", err: fmt.Errorf("send: %w", fakeRPCError{code: 4001, msg: "x"}), want: true},
		{name: "user rejected", err: errors.New("User Rejected the request"), want: true},
		{name: "rejected by user", err: errors.New("Transaction was rejected by user"), want: true},
		{name: "user cancelled", err: errors.New("user cancelled"), want: true},
		{name: "other code", err: fakeRPCError{code: -32000, msg: "insufficient funds"}, want: false},
		{name: "plain failure", err: errors.New("network timeout"), want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsUserRejection(tc.err); got != tc.want {
				t.Fatalf("IsUserRejection(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestSimulationReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: genericSimulationReason},
		{name: "revert data", err: fakeDataError{msg: "execution reverted", data: revertData("Pausable: paused")}, want: "Pausable: paused"},
		{name: "reason in message", err: errors.New("execution reverted: not allowed"), want: "not allowed"},
		{name: "bare revert", err: errors.New("execution reverted"), want: "execution reverted"},
		{name: "first line", err: errors.New("insufficient funds for gas * price + value\nstack"), want: "insufficient funds for gas * price + value"},
		{name: "empty message", err: errors.New("  "), want: genericSimulationReason},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SimulationReason(tc.err); got != tc.want {
				t.Fatalf("SimulationReason = %q, want %q", got, tc.want)
			}
		})
	}

	long := errors.New(strings.Repeat("x", 300))
	if got := SimulationReason(long); len(got) != 200 {
		t.Fatalf("long reason length = %d, want 200", len(got))
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("outer: %w", &Error{Kind: KindSubmission, Code: CodeSubmissionFailed, Message: "failed", Err: cause})
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is did not reach the cause")
	}
	if KindOf(err) != KindSubmission {
		t.Fatalf("KindOf = %q", KindOf(err))
	}
	if KindOf(cause) != "" {
		t.Fatalf("KindOf(plain) = %q, want empty", KindOf(cause))
	}
}
