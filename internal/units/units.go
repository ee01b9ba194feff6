// Package units converts human-entered decimal amounts into integer on-chain
// base units and builds ERC-20 transfer call data.
//
// Conversions never fail: negative, NaN and infinite inputs degrade to zero.
// Callers that are about to move funds must check positivity themselves.
package units

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// EtherDecimals is the precision of the chain-native asset.
const EtherDecimals = 18

// TransferSelector is the 4-byte selector of transfer(address,uint256).
const TransferSelector = "a9059cbb"

// ToBaseUnits converts amount into an integer count of base units at the given
// precision. The fractional part is truncated, never rounded, past decimals.
func ToBaseUnits(amount float64, decimals int) *big.Int {
	if decimals < 0 {
		decimals = 0
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return new(big.Int)
	}

	whole, frac := splitDecimal(formatDecimal(amount))
	if len(frac) > decimals {
		frac = frac[:decimals]
	} else {
		frac += strings.Repeat("0", decimals-len(frac))
	}

	digits := strings.TrimLeft(whole+frac, "0")
	if digits == "" {
		return new(big.Int)
	}
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return new(big.Int)
	}
	return n
}

// ToWei converts an ether amount into wei.
func ToWei(amount float64) *big.Int {
	return ToBaseUnits(amount, EtherDecimals)
}

// ToHex renders n as 0x-prefixed lowercase hex. Zero renders as "0x0" and a
// nil or negative value is treated as zero.
func ToHex(n *big.Int) string {
	if n == nil || n.Sign() <= 0 {
		return "0x0"
	}
	return hexutil.EncodeBig(n)
}

// ToHexWei is ToHex(ToWei(amount)).
func ToHexWei(amount float64) string {
	return ToHex(ToWei(amount))
}

// FromBaseUnits renders n as an exact decimal string at the given precision,
// without trailing fractional zeros.
func FromBaseUnits(n *big.Int, decimals int) string {
	if n == nil || n.Sign() <= 0 {
		return "0"
	}
	if decimals <= 0 {
		return n.String()
	}
	digits := n.String()
	if len(digits) <= decimals {
		digits = strings.Repeat("0", decimals-len(digits)+1) + digits
	}
	whole := digits[:len(digits)-decimals]
	frac := strings.TrimRight(digits[len(digits)-decimals:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// EncodeERC20Transfer builds transfer(address,uint256) call data. The
// recipient must already be a well-formed 20-byte hex address; its checksum is
// not verified. Amounts that do not fit a uint256 (nil, negative or wider
// than 256 bits) encode as zero; callers reject them first with FitsUint256.
func EncodeERC20Transfer(recipient string, amount *big.Int) string {
	addr := strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(recipient, "0x"), "0X"))
	value := "0"
	if FitsUint256(amount) {
		value = amount.Text(16)
	}
	var b strings.Builder
	b.Grow(2 + 8 + 64 + 64)
	b.WriteString("0x")
	b.WriteString(TransferSelector)
	b.WriteString(leftPad(addr, 64))
	b.WriteString(leftPad(value, 64))
	return b.String()
}

// FitsUint256 reports whether v is a non-negative integer of at most 256 bits.
func FitsUint256(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.BitLen() <= 256
}

// DecodeERC20Transfer is the inverse of EncodeERC20Transfer. ok is false when
// data is not a transfer call.
func DecodeERC20Transfer(data string) (recipient string, amount *big.Int, ok bool) {
	raw := strings.ToLower(strings.TrimPrefix(data, "0x"))
	if len(raw) != 8+64+64 || !strings.HasPrefix(raw, TransferSelector) {
		return "", nil, false
	}
	addrWord := raw[8 : 8+64]
	if strings.TrimLeft(addrWord[:24], "0") != "" {
		return "", nil, false
	}
	amount, ok = new(big.Int).SetString(raw[8+64:], 16)
	if !ok {
		return "", nil, false
	}
	return "0x" + addrWord[24:], amount, true
}

// formatDecimal renders the shortest decimal that round-trips to amount. It
// never carries more than 17 significant digits, well inside the 21 a
// base-unit conversion tolerates, and never exposes binary artefacts such as
// 0.1499999999999999944.
func formatDecimal(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

func splitDecimal(s string) (string, string) {
	whole, frac, _ := strings.Cut(s, ".")
	return whole, frac
}

func leftPad(s string, width int) string {
	if len(s) >= width {
		return s[len(s)-width:]
	}
	return strings.Repeat("0", width-len(s)) + s
}
