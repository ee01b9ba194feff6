// Package acknowledgement records the optional donor details submitted from
// the confirmation page.
package acknowledgement

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

const maxFieldLength = 500

// Submission is one acknowledgement form post. Amount is nil when the
// amount text could not be parsed; Icon and URL are empty unless they were
// http(s) links.
type Submission struct {
	Name       string   `json:"name"`
	Address    string   `json:"address,omitempty"`
	Amount     *float64 `json:"amount,omitempty"`
	AmountText string   `json:"amount_text,omitempty"`
	Currency   string   `json:"currency,omitempty"`
	Icon       string   `json:"icon,omitempty"`
	URL        string   `json:"url,omitempty"`
}

// FromForm reads the form fields name, address, amount, currency, icon and url.
func FromForm(form url.Values) Submission {
	amountText := clip(form.Get("amount"))
	return Submission{
		Name:       clip(form.Get("name")),
		Address:    clip(form.Get("address")),
		Amount:     ParseAmount(amountText),
		AmountText: amountText,
		Currency:   strings.ToUpper(clip(form.Get("currency"))),
		Icon:       SanitizeURL(form.Get("icon")),
		URL:        SanitizeURL(form.Get("url")),
	}
}

// SanitizeURL returns u trimmed when it is an http or https link, else "".
func SanitizeURL(u string) string {
	u = strings.TrimSpace(u)
	lower := strings.ToLower(u)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return ""
	}
	if len(u) > maxFieldLength {
		return ""
	}
	return u
}

var leadingNumber = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)`)

// ParseAmount extracts a number from display text such as "6,000 USDC" or
// "¥10,000". Thousands separators, colons and whitespace are removed, then
// anything but digits, '.' and '-'. The longest leading number wins; nil
// means no number could be read.
func ParseAmount(text string) *float64 {
	var b strings.Builder
	for _, r := range text {
		if r == ',' || r == ':' || unicode.IsSpace(r) {
			continue
		}
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	m := leadingNumber.FindString(b.String())
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return &v
}

func clip(s string) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > maxFieldLength {
		s = string(r[:maxFieldLength])
	}
	return s
}
