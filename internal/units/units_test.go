package units

import (
	"math"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		decimals int
		want     string
	}{
		{name: "usdc sponsor tier", amount: 6000, decimals: 6, want: "6000000000"},
		{name: "eth supporter tier", amount: 0.15, decimals: 18, want: "150000000000000000"},
		{name: "fraction truncated", amount: 1.23456789, decimals: 6, want: "1234567"},
		{name: "tiny below precision", amount: 0.0000001, decimals: 6, want: "0"},
		{name: "zero", amount: 0, decimals: 18, want: "0"},
		{name: "negative clamps", amount: -5, decimals: 18, want: "0"},
		{name: "nan clamps", amount: math.NaN(), decimals: 18, want: "0"},
		{name: "inf clamps", amount: math.Inf(1), decimals: 6, want: "0"},
		{name: "no decimals", amount: 12.9, decimals: 0, want: "12"},
		{name: "negative decimals treated as zero", amount: 3.5, decimals: -2, want: "3"},
		{name: "dai premium tier", amount: 60000, decimals: 18, want: "60000000000000000000000"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ToBaseUnits(tc.amount, tc.decimals)
			if got.String() != tc.want {
				t.Fatalf("ToBaseUnits(%v, %d) = %s, want %s", tc.amount, tc.decimals, got, tc.want)
			}
		})
	}
}

func TestToBaseUnitsApproximatesAmount(t *testing.T) {
	amounts := []float64{0, 0.1, 0.15, 1.5, 15, 600, 6000, 60000, 0.333333, 123456.789}
	for _, decimals := range []int{6, 18} {
		for _, amount := range amounts {
			got := ToBaseUnits(amount, decimals)
			if got.Sign() < 0 {
				t.Fatalf("ToBaseUnits(%v, %d) negative: %s", amount, decimals, got)
			}
			back, _ := new(big.Float).Quo(new(big.Float).SetInt(got), new(big.Float).SetFloat64(math.Pow10(decimals))).Float64()
			if diff := math.Abs(back - amount); diff > math.Pow10(-decimals)+1e-9*amount {
				t.Fatalf("ToBaseUnits(%v, %d) = %s, round trip %v off by %v", amount, decimals, got, back, diff)
			}
		}
	}
}

func TestToWei(t *testing.T) {
	if got := ToWei(0.15).String(); got != "150000000000000000" {
		t.Fatalf("ToWei(0.15) = %s", got)
	}
	if got := ToWei(1.5).String(); got != "1500000000000000000" {
		t.Fatalf("ToWei(1.5) = %s", got)
	}
}

func TestToHex(t *testing.T) {
	if got := ToHexWei(0); got != "0x0" {
		t.Fatalf("ToHexWei(0) = %q, want 0x0", got)
	}
	if got := ToHex(nil); got != "0x0" {
		t.Fatalf("ToHex(nil) = %q, want 0x0", got)
	}
	for _, amount := range []float64{0.15, 1.5, 15, 0.000001} {
		wei := ToWei(amount)
		encoded := ToHexWei(amount)
		if encoded != strings.ToLower(encoded) || !strings.HasPrefix(encoded, "0x") {
			t.Fatalf("ToHexWei(%v) = %q, want lowercase 0x-prefixed", amount, encoded)
		}
		decoded, err := hexutil.DecodeBig(encoded)
		if err != nil {
			t.Fatalf("decode %q: %v", encoded, err)
		}
		if decoded.Cmp(wei) != 0 {
			t.Fatalf("round trip %q = %s, want %s", encoded, decoded, wei)
		}
	}
}

func TestFromBaseUnits(t *testing.T) {
	tests := []struct {
		n        *big.Int
		decimals int
		want     string
	}{
		{big.NewInt(6000000000), 6, "6000"},
		{big.NewInt(150000000000000000), 18, "0.15"},
		{big.NewInt(1), 6, "0.000001"},
		{big.NewInt(0), 18, "0"},
		{nil, 18, "0"},
		{big.NewInt(42), 0, "42"},
	}
	for _, tc := range tests {
		if got := FromBaseUnits(tc.n, tc.decimals); got != tc.want {
			t.Fatalf("FromBaseUnits(%v, %d) = %q, want %q", tc.n, tc.decimals, got, tc.want)
		}
	}
}

func TestEncodeERC20Transfer(t *testing.T) {
	recipient := "0xAbCdEf0123456789aBcDeF0123456789AbCdEf01"
	amount := big.NewInt(6000000000)

	data := EncodeERC20Transfer(recipient, amount)
	if len(data) != 2+8+64+64 {
		t.Fatalf("len(data) = %d, want %d", len(data), 2+8+64+64)
	}
	if data != strings.ToLower(data) {
		t.Fatalf("call data not lowercase: %s", data)
	}
	want := "0xa9059cbb" +
		"000000000000000000000000abcdef0123456789abcdef0123456789abcdef01" +
		"0000000000000000000000000000000000000000000000000000000165a0bc00"
	if data != want {
		t.Fatalf("EncodeERC20Transfer() = %s\nwant %s", data, want)
	}

	gotRecipient, gotAmount, ok := DecodeERC20Transfer(data)
	if !ok {
		t.Fatalf("DecodeERC20Transfer rejected its own output")
	}
	if gotRecipient != strings.ToLower(recipient) || gotAmount.Cmp(amount) != 0 {
		t.Fatalf("decoded (%s, %s), want (%s, %s)", gotRecipient, gotAmount, strings.ToLower(recipient), amount)
	}
}

func TestEncodeERC20TransferZeroAmount(t *testing.T) {
	data := EncodeERC20Transfer("0x0000000000000000000000000000000000000001", nil)
	if len(data) != 138 {
		t.Fatalf("len(data) = %d, want 138", len(data))
	}
	if !strings.HasSuffix(data, strings.Repeat("0", 64)) {
		t.Fatalf("zero amount word not zero: %s", data)
	}
}

func TestEncodeERC20TransferOutOfRangeAmountIsZero(t *testing.T) {
	tooWide := new(big.Int).Lsh(big.NewInt(1), 256)
	cases := map[string]*big.Int{
		"negative":  big.NewInt(-5),
		"2^256":     tooWide,
		"2^256 + 7": new(big.Int).Add(tooWide, big.NewInt(7)),
	}
	for name, amount := range cases {
		t.Run(name, func(t *testing.T) {
			data := EncodeERC20Transfer("0x0000000000000000000000000000000000000001", amount)
			if len(data) != 138 || !strings.HasSuffix(data, strings.Repeat("0", 64)) {
				t.Fatalf("data = %s", data)
			}
		})
	}
	maxUint := new(big.Int).Sub(tooWide, big.NewInt(1))
	data := EncodeERC20Transfer("0x0000000000000000000000000000000000000001", maxUint)
	if !strings.HasSuffix(data, strings.Repeat("f", 64)) {
		t.Fatalf("max uint256 not encoded: %s", data)
	}
}

func TestDecodeERC20TransferRejectsOtherCalls(t *testing.T) {
	if _, _, ok := DecodeERC20Transfer("0x095ea7b3" + strings.Repeat("0", 128)); ok {
		t.Fatalf("approve call data decoded as transfer")
	}
	if _, _, ok := DecodeERC20Transfer("0xa9059cbb"); ok {
		t.Fatalf("truncated call data decoded as transfer")
	}
}
