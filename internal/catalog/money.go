package catalog

// money.go holds the canonical money parsing and formatting rules.
//
// Parsing is deliberately forgiving: currency symbols, thousands separators
// and stray whitespace are stripped before decimal conversion, and anything
// that still fails to parse resolves to nil rather than an error. Formatting
// trims trailing zeros and never switches to scientific notation so the same
// numeric value always serializes to the same string.

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseMoney converts a raw money string into a decimal amount.
// Returns nil for empty, bare-sign, or otherwise unparseable input.
func ParseMoney(raw string) *decimal.Decimal {
	cleaned := sanitizeMoney(raw)
	switch cleaned {
	case "", "-", ".", "-.":
		return nil
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil
	}
	return &d
}

// sanitizeMoney strips everything outside digits, dots and minus signs.
func sanitizeMoney(raw string) string {
	trimmed := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	var b strings.Builder
	b.Grow(len(trimmed))
	for _, r := range trimmed {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeCurrency trims and upper-cases a currency code. Empty input
// normalizes to "".
func NormalizeCurrency(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// CurrencyOrDefault normalizes a currency code, substituting fallback when
// the input is empty.
func CurrencyOrDefault(raw, fallback string) string {
	if c := NormalizeCurrency(raw); c != "" {
		return c
	}
	return NormalizeCurrency(fallback)
}

// FormatDecimal renders a decimal as fixed-point text with trailing zeros
// trimmed. Nil renders as "", and negative zero as "0".
func FormatDecimal(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	text := d.String()
	if strings.Contains(text, ".") {
		text = strings.TrimRight(text, "0")
		text = strings.TrimRight(text, ".")
	}
	if text == "" || text == "-0" {
		return "0"
	}
	return text
}

// MoneyFromAmount builds a Money from an already-parsed amount, normalizing
// the currency and defaulting it to USD.
func MoneyFromAmount(amount *decimal.Decimal, currency string) *Money {
	if amount == nil {
		return nil
	}
	return &Money{Amount: amount, Currency: CurrencyOrDefault(currency, "USD")}
}

// MoneyFromString parses raw into a Money. Returns nil when the amount is
// unparseable.
func MoneyFromString(raw, currency string) *Money {
	return MoneyFromAmount(ParseMoney(raw), currency)
}

// PriceFromAmount wraps a single current amount in a Price.
func PriceFromAmount(amount *decimal.Decimal, currency string) *Price {
	m := MoneyFromAmount(amount, currency)
	if m == nil {
		return nil
	}
	return &Price{Current: *m}
}

// PriceFromString parses raw into a Price with only Current set.
func PriceFromString(raw, currency string) *Price {
	return PriceFromAmount(ParseMoney(raw), currency)
}

// DecimalFromFloat converts a float into a decimal via its shortest string
// form, avoiding binary-float artifacts. NaN and infinities return nil.
func DecimalFromFloat(f float64) *decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	d := decimal.NewFromFloat(f)
	return &d
}
