package donation

import (
	"net/url"
	"strconv"
	"strings"
)

// Confirmation is the metadata handed to the confirmation page. All fields
// travel as opaque query parameters.
type Confirmation struct {
	Amount        string
	DisplayAmount string
	Method        string
	Chain         string
	Address       string
	TxHash        string
}

// Query encodes the confirmation. Empty chain, address and txHash are
// omitted, which is always the case for fiat donations.
func (c Confirmation) Query() url.Values {
	v := url.Values{}
	v.Set("amount", c.Amount)
	v.Set("displayAmount", c.DisplayAmount)
	v.Set("method", c.Method)
	if c.Chain != "" {
		v.Set("chain", c.Chain)
	}
	if c.Address != "" {
		v.Set("address", c.Address)
	}
	if c.TxHash != "" {
		v.Set("txHash", c.TxHash)
	}
	return v
}

// URL appends the confirmation to base, keeping any query base already has.
func (c Confirmation) URL(base string) string {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return base + "?" + c.Query().Encode()
	}
	q := u.Query()
	for k, vals := range c.Query() {
		q[k] = vals
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// ParseConfirmation reads confirmation parameters back from a query.
func ParseConfirmation(v url.Values) Confirmation {
	return Confirmation{
		Amount:        v.Get("amount"),
		DisplayAmount: v.Get("displayAmount"),
		Method:        v.Get("method"),
		Chain:         v.Get("chain"),
		Address:       v.Get("address"),
		TxHash:        v.Get("txHash"),
	}
}

func rawAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
