package catalog

import (
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const fallbackLocale = "en"

// LocaleFor returns the numeral locale for a method: the method's override
// when one exists, otherwise the page locale.
func (c *Catalog) LocaleFor(code PaymentMethod, pageLocale string) string {
	if loc, ok := c.localeOverrides[code]; ok && loc != "" {
		return loc
	}
	if strings.TrimSpace(pageLocale) == "" {
		return fallbackLocale
	}
	return pageLocale
}

// FormatAmount renders a human-readable amount for the method.
//
//	JPY    100,000円
//	ETH    0.15 ETH, 1.5 ETH
//	tokens 6,000 USDC, 12.50 DAI
func (c *Catalog) FormatAmount(code PaymentMethod, amount float64, pageLocale string) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	p := message.NewPrinter(parseTag(c.LocaleFor(code, pageLocale)))

	switch code {
	case MethodJPY:
		return p.Sprintf("%v", number.Decimal(math.Round(amount), number.MaxFractionDigits(0))) + "円"
	case MethodETH:
		minFrac, maxFrac := 2, 4
		if amount >= 1 {
			minFrac, maxFrac = 0, 2
		}
		return p.Sprintf("%v", number.Decimal(amount,
			number.MinFractionDigits(minFrac),
			number.MaxFractionDigits(maxFrac),
		)) + " ETH"
	default:
		frac := 2
		if amount == math.Trunc(amount) {
			frac = 0
		}
		return p.Sprintf("%v", number.Decimal(amount,
			number.MinFractionDigits(frac),
			number.MaxFractionDigits(frac),
		)) + " " + string(code)
	}
}

func parseTag(locale string) language.Tag {
	tag, err := language.Parse(locale)
	if err != nil {
		return language.English
	}
	return tag
}
