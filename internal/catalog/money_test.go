package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
)

// ============================================================================
// ParseMoney Tests
// ============================================================================

func TestParseMoney_CurrencySymbolsAndCommas(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"$1,234.50 USD", "1234.5"},
		{"  19.99 ", "19.99"},
		{"€7,00", "700"},
		{"12", "12"},
		{"-3.50", "-3.5"},
		{"0", "0"},
	}
	for _, tc := range cases {
		got := ParseMoney(tc.input)
		if got == nil {
			t.Errorf("ParseMoney(%q) = nil, want %s", tc.input, tc.want)
			continue
		}
		if formatted := FormatDecimal(got); formatted != tc.want {
			t.Errorf("ParseMoney(%q) = %s, want %s", tc.input, formatted, tc.want)
		}
	}
}

func TestParseMoney_RejectsEmptyAndBareSigns(t *testing.T) {
	for _, input := range []string{"", "   ", "-", ".", "-.", "$", "abc", "USD"} {
		if got := ParseMoney(input); got != nil {
			t.Errorf("ParseMoney(%q) = %s, want nil", input, got.String())
		}
	}
}

// ============================================================================
// Currency Normalization Tests
// ============================================================================

func TestNormalizeCurrency(t *testing.T) {
	if got := NormalizeCurrency(" usd "); got != "USD" {
		t.Errorf("expected USD, got %q", got)
	}
	if got := NormalizeCurrency(""); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestCurrencyOrDefault(t *testing.T) {
	if got := CurrencyOrDefault("", "usd"); got != "USD" {
		t.Errorf("expected USD fallback, got %q", got)
	}
	if got := CurrencyOrDefault("eur", "usd"); got != "EUR" {
		t.Errorf("expected EUR, got %q", got)
	}
}

// ============================================================================
// FormatDecimal Tests
// ============================================================================

func TestFormatDecimal_TrimsTrailingZeros(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"12.3400", "12.34"},
		{"10.000", "10"},
		{"0.500", "0.5"},
		{"1234567890.000001", "1234567890.000001"},
		{"-0", "0"},
		{"-0.000", "0"},
	}
	for _, tc := range cases {
		d := decimal.RequireFromString(tc.input)
		if got := FormatDecimal(&d); got != tc.want {
			t.Errorf("FormatDecimal(%s) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestFormatDecimal_NilIsEmpty(t *testing.T) {
	if got := FormatDecimal(nil); got != "" {
		t.Errorf("expected empty string for nil, got %q", got)
	}
}

func TestFormatDecimal_RoundTripsParseMoney(t *testing.T) {
	// Parsing then formatting yields the canonical decimal text.
	cases := map[string]string{
		"$1,234.50": "1234.5",
		"19.990":    "19.99",
		"100":       "100",
	}
	for input, want := range cases {
		parsed := ParseMoney(input)
		if parsed == nil {
			t.Fatalf("ParseMoney(%q) = nil", input)
		}
		if got := FormatDecimal(parsed); got != want {
			t.Errorf("round trip of %q = %q, want %q", input, got, want)
		}
	}
}

// ============================================================================
// Money Constructor Tests
// ============================================================================

func TestMoneyFromString_DefaultsToUSD(t *testing.T) {
	m := MoneyFromString("12.00", "")
	if m == nil {
		t.Fatal("expected money, got nil")
	}
	if m.Currency != "USD" {
		t.Errorf("expected USD, got %q", m.Currency)
	}
	if FormatDecimal(m.Amount) != "12" {
		t.Errorf("expected 12, got %q", FormatDecimal(m.Amount))
	}
}

func TestMoneyFromString_UnparseableIsNil(t *testing.T) {
	if m := MoneyFromString("not a price", "USD"); m != nil {
		t.Errorf("expected nil, got %+v", m)
	}
}

func TestPriceFromString(t *testing.T) {
	p := PriceFromString("49.99", "eur")
	if p == nil {
		t.Fatal("expected price, got nil")
	}
	if p.Current.Currency != "EUR" {
		t.Errorf("expected EUR, got %q", p.Current.Currency)
	}
	if p.CompareAt != nil {
		t.Error("expected nil compare_at")
	}
}
