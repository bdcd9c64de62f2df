package urlimport

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/shelfshift/internal/catalog"
)

// ============================================================================
// JSON Value Helper Tests
// ============================================================================

func TestTokenValue(t *testing.T) {
	if got := tokenValue("  abc  "); got != "abc" {
		t.Errorf("string: %q", got)
	}
	// Large Shopify-style numeric IDs must not pick up an exponent.
	if got := tokenValue(float64(44755208798433)); got != "44755208798433" {
		t.Errorf("large id: %q", got)
	}
	if got := tokenValue(true); got != "" {
		t.Errorf("bool should be empty, got %q", got)
	}
	if got := tokenValue(nil); got != "" {
		t.Errorf("nil should be empty, got %q", got)
	}
}

func TestBoolValue(t *testing.T) {
	cases := []struct {
		in   any
		want *bool
	}{
		{true, boolPtr(true)},
		{"Yes", boolPtr(true)},
		{"0", boolPtr(false)},
		{"maybe", nil},
		{nil, nil},
		{1.0, nil},
	}
	for _, tc := range cases {
		got := boolValue(tc.in)
		if (got == nil) != (tc.want == nil) {
			t.Errorf("boolValue(%v) nil-ness mismatch", tc.in)
			continue
		}
		if got != nil && *got != *tc.want {
			t.Errorf("boolValue(%v) = %v, want %v", tc.in, *got, *tc.want)
		}
	}
}

func TestMoneyValue(t *testing.T) {
	if got := moneyValue("$1,299.50"); got == nil || !got.Equal(decimal.NewFromFloat(1299.50)) {
		t.Errorf("string money: %v", got)
	}
	if got := moneyValue(19.99); got == nil || !got.Equal(decimal.NewFromFloat(19.99)) {
		t.Errorf("float money: %v", got)
	}
	if got := moneyValue(nil); got != nil {
		t.Errorf("nil money: %v", got)
	}
}

func TestNormalizeURLString(t *testing.T) {
	if got := normalizeURLString("//cdn.example.com/a.jpg"); got != "https://cdn.example.com/a.jpg" {
		t.Errorf("protocol-relative: %q", got)
	}
	if got := normalizeURLString("  "); got != "" {
		t.Errorf("blank: %q", got)
	}
	if got := normalizeURLString("https://x.test/b.png"); got != "https://x.test/b.png" {
		t.Errorf("absolute unchanged: %q", got)
	}
}

func TestSlugToken(t *testing.T) {
	if got := slugToken("Blue Wool Hat (Large)"); got != "blue-wool-hat-large" {
		t.Errorf("slugToken: %q", got)
	}
	if got := slugToken("---"); got != "" {
		t.Errorf("separators only: %q", got)
	}
}

func TestMetaDescription(t *testing.T) {
	got := metaDescription("<p>Warm &amp; <b>soft</b></p>   hat")
	if got != "Warm &amp; soft hat" {
		t.Errorf("strip html: %q", got)
	}

	long := strings.Repeat("word ", 200)
	if got := metaDescription(long); len(got) > metaDescriptionLimit {
		t.Errorf("truncate: len=%d", len(got))
	}
}

// ============================================================================
// Collection Extraction Tests
// ============================================================================

func TestExtractNames(t *testing.T) {
	got := extractNames("winter, wool , winter", true)
	if len(got) != 2 || got[0] != "winter" || got[1] != "wool" {
		t.Errorf("comma split: %v", got)
	}

	got = extractNames([]any{
		"plain",
		map[string]any{"name": "Hats"},
		map[string]any{"value": "Scarves"},
		42.0,
	}, false)
	if len(got) != 3 || got[0] != "plain" || got[1] != "Hats" || got[2] != "Scarves" {
		t.Errorf("mixed list: %v", got)
	}
}

func TestExtractImageURLs(t *testing.T) {
	got := extractImageURLs([]any{
		"//cdn.test/a.jpg",
		map[string]any{"src": "https://cdn.test/b.jpg"},
		map[string]any{"assetUrl": "https://cdn.test/c.jpg"},
	}, false, squarespaceImageKeys)
	if len(got) != 3 || got[0] != "https://cdn.test/a.jpg" || got[2] != "https://cdn.test/c.jpg" {
		t.Errorf("flat list: %v", got)
	}

	nested := map[string]any{
		"assetUrl": "https://cdn.test/top.jpg",
		"items": []any{
			map[string]any{"assetUrl": "https://cdn.test/nested.jpg"},
		},
	}
	got = extractImageURLs(nested, true, squarespaceImageKeys)
	if len(got) != 2 || got[1] != "https://cdn.test/nested.jpg" {
		t.Errorf("recursive: %v", got)
	}
}

// ============================================================================
// Variant Helper Tests
// ============================================================================

func TestAppendDefaultVariant(t *testing.T) {
	def := &catalog.Variant{ID: "default"}
	got := appendDefaultVariant(nil, def)
	if len(got) != 1 || got[0].ID != "default" {
		t.Errorf("empty input: %v", got)
	}

	existing := []catalog.Variant{{ID: "real"}}
	got = appendDefaultVariant(existing, def)
	if len(got) != 1 || got[0].ID != "real" {
		t.Errorf("non-empty input must be unchanged: %v", got)
	}
}

func TestFirstVariantMoney(t *testing.T) {
	amount := decimal.NewFromFloat(12.50)
	variants := []catalog.Variant{
		{},
		{Price: &catalog.Price{Current: catalog.Money{Amount: &amount, Currency: "EUR"}}},
	}
	got, currency := firstVariantMoney(variants)
	if got == nil || !got.Equal(amount) || currency != "EUR" {
		t.Errorf("got %v %q", got, currency)
	}

	got, currency = firstVariantMoney(nil)
	if got != nil || currency != "USD" {
		t.Errorf("empty: %v %q", got, currency)
	}
}

func TestFinalizeProduct(t *testing.T) {
	p := &catalog.Product{
		Taxonomy: &catalog.CategorySet{Paths: [][]string{{"Hats"}}},
	}
	finalizeProduct(p, "shopify", "https://store.test/products/hat")
	if p.Source == nil || p.Source.Platform != "shopify" || p.Source.URL != "https://store.test/products/hat" {
		t.Errorf("source: %+v", p.Source)
	}
	if len(p.Taxonomy.Primary) != 1 || p.Taxonomy.Primary[0] != "Hats" {
		t.Errorf("primary path: %v", p.Taxonomy.Primary)
	}

	p2 := &catalog.Product{Source: catalog.NewSourceRef("wix", "1", "s", "")}
	finalizeProduct(p2, "shopify", "https://other.test")
	if p2.Source.Platform != "wix" || p2.Source.URL != "https://other.test" {
		t.Errorf("existing source must keep platform: %+v", p2.Source)
	}
}
