package donation

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"foundation/internal/catalog"
	"foundation/internal/units"
)

// Fixed gas limits per transfer type.
const (
	NativeTransferGasLimit uint64 = 21_000
	TokenTransferGasLimit  uint64 = 100_000
)

// Transfer is the on-chain transfer that settles one catalog tier.
type Transfer struct {
	Method    catalog.PaymentMethod
	Chain     catalog.Chain
	ChainID   int64
	TierIndex int
	Amount    float64
	Decimals  int
	// BaseUnits is the amount in wei (native) or token base units.
	BaseUnits *big.Int
	// To is the donation address for native transfers and the token contract
	// for ERC-20 transfers.
	To        common.Address
	Recipient common.Address
	Value     *big.Int
	Data      string
	GasLimit  uint64
}

// Request turns the transfer into a signable request from the given sender.
func (t *Transfer) Request(from common.Address) TxRequest {
	req := TxRequest{
		ChainID: t.ChainID,
		From:    from,
		To:      t.To,
		Value:   new(big.Int).Set(t.Value),
		Gas:     t.GasLimit,
	}
	if t.Data != "" {
		req.Data = hexutil.MustDecode(t.Data)
	}
	return req
}

// Confirmation describes the settled transfer for the confirmation page.
// A zero from or hash leaves address or txHash out.
func (t *Transfer) Confirmation(display string, from common.Address, hash common.Hash) Confirmation {
	c := Confirmation{
		Amount:        rawAmount(t.Amount),
		DisplayAmount: display,
		Method:        string(t.Method),
		Chain:         string(t.Chain),
	}
	if from != (common.Address{}) {
		c.Address = from.Hex()
	}
	if hash != (common.Hash{}) {
		c.TxHash = hash.Hex()
	}
	return c
}

// BuildTransfer computes the exact transfer for a crypto method, chain and
// tier. It fails with a precondition error for fiat methods, unknown tiers,
// tokens missing on chain, a missing recipient and non-positive amounts.
func BuildTransfer(cat *catalog.Catalog, method catalog.PaymentMethod, chain catalog.Chain, tier int, recipient common.Address) (*Transfer, error) {
	m, ok := cat.Method(method)
	if !ok {
		return nil, precondition(CodeInvalidAmount, "unknown payment method "+string(method))
	}
	if !m.IsCrypto() {
		return nil, precondition(CodeInvalidAmount, string(method)+" does not settle on-chain")
	}
	amount, ok := cat.TierAmount(method, tier)
	if !ok {
		return nil, precondition(CodeInvalidTier, "unknown amount tier")
	}
	if !(amount > 0) {
		return nil, precondition(CodeInvalidAmount, "donation amount must be positive")
	}
	chainID, ok := cat.ChainID(chain)
	if !ok {
		return nil, precondition(CodeTokenUnavailable, "unknown chain "+string(chain))
	}
	if recipient == (common.Address{}) {
		return nil, precondition(CodeRecipientMissing, "donation address is not configured")
	}

	t := &Transfer{
		Method:    method,
		Chain:     chain,
		ChainID:   chainID,
		TierIndex: tier,
		Amount:    amount,
		Recipient: recipient,
	}
	switch m.Kind {
	case catalog.KindNative:
		t.Decimals = units.EtherDecimals
		t.BaseUnits = units.ToWei(amount)
		t.To = recipient
		t.Value = new(big.Int).Set(t.BaseUnits)
		t.GasLimit = NativeTransferGasLimit
	default:
		contract, ok := cat.TokenAddress(method, chain)
		if !ok {
			return nil, precondition(CodeTokenUnavailable, string(method)+" is not available on "+string(chain))
		}
		t.Decimals = m.Token.Decimals
		t.BaseUnits = units.ToBaseUnits(amount, m.Token.Decimals)
		t.To = common.HexToAddress(contract)
		t.Value = new(big.Int)
		t.Data = units.EncodeERC20Transfer(recipient.Hex(), t.BaseUnits)
		t.GasLimit = TokenTransferGasLimit
	}
	if t.BaseUnits.Sign() <= 0 {
		return nil, precondition(CodeInvalidAmount, "donation amount must be positive")
	}
	if !units.FitsUint256(t.BaseUnits) {
		return nil, precondition(CodeInvalidAmount, "donation amount is too large")
	}
	return t, nil
}
