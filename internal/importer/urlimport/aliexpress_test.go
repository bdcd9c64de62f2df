package urlimport

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

// ============================================================================
// URL Parsing Tests
// ============================================================================

func TestAliexpressItemID(t *testing.T) {
	cases := []struct {
		rawURL string
		want   string
	}{
		{"https://www.aliexpress.com/item/1005006123456789.html", "1005006123456789"},
		{"https://www.aliexpress.us/item/3256804567890123.html?gatewayAdapt=glo2usa", "3256804567890123"},
		{"https://a.aliexpress.com/_mNvxyz?businessType=ProductDetail&spreadType=socialShare&object=x_object_id%3A1005006123456789", "1005006123456789"},
		{"https://a.aliexpress.com/_abc?object=x_object_id%253A1005006123456789", "1005006123456789"},
		{"https://www.aliexpress.com/store/12345", ""},
	}
	for _, tc := range cases {
		if got := aliexpressItemID(tc.rawURL); got != tc.want {
			t.Errorf("aliexpressItemID(%q) = %q, want %q", tc.rawURL, got, tc.want)
		}
	}
}

func TestAliexpressWeightGrams(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"0.25kg", "250"},
		{"1.5 KG", "1500"},
		{"300 g", "300"},
		{"120g", "120"},
		{"2", "2000"},
		{"500", "500"},
	}
	for _, tc := range cases {
		got := aliexpressWeightGrams(tc.raw)
		if got == nil {
			t.Errorf("aliexpressWeightGrams(%q) = nil", tc.raw)
			continue
		}
		want, _ := decimal.NewFromString(tc.want)
		if !got.Equal(want) {
			t.Errorf("aliexpressWeightGrams(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
	if aliexpressWeightGrams("") != nil || aliexpressWeightGrams("heavy") != nil {
		t.Error("unparseable weights must be nil")
	}
}

func TestAliexpressPrice(t *testing.T) {
	cases := []struct {
		raw  any
		want string
	}{
		{"$5.99", "5.99"},
		{"12.34 - 15.00", "12.34"},
		{"$1,299.00", "1299"},
		{float64(7.5), "7.5"},
	}
	for _, tc := range cases {
		got := aliexpressPrice(tc.raw)
		if got == nil {
			t.Errorf("aliexpressPrice(%v) = nil", tc.raw)
			continue
		}
		want, _ := decimal.NewFromString(tc.want)
		if !got.Equal(want) {
			t.Errorf("aliexpressPrice(%v) = %s, want %s", tc.raw, got, tc.want)
		}
	}
	if aliexpressPrice(nil) != nil || aliexpressPrice("") != nil {
		t.Error("empty price must be nil")
	}
}

// ============================================================================
// Result Parsing Tests
// ============================================================================

func aliexpressFixture() map[string]any {
	return map[string]any{
		"result": map[string]any{
			"settings": map[string]any{"currency": "USD"},
			"seller":   map[string]any{"storeTitle": "Gadget World Store"},
			"item": map[string]any{
				"itemId":    "1005006123456789",
				"title":     "Wireless Earbuds Pro",
				"available": true,
				"images":    []any{"//ae01.alicdn.com/kf/main.jpg"},
				"description": map[string]any{
					"html": "<p>Bluetooth 5.3 earbuds with charging case and noise cancellation for commutes.</p>",
				},
				"properties": map[string]any{
					"list": []any{
						map[string]any{"name": "Brand Name", "value": "SoundCore"},
						map[string]any{"name": "Type", "value": "Earphones"},
						map[string]any{"name": "Weight", "value": "0.05kg"},
					},
				},
				"sku": map[string]any{
					"def": map[string]any{"promotionPrice": "$19.99", "price": "$29.99"},
					"props": []any{
						map[string]any{
							"pid": float64(14), "name": "Color",
							"values": []any{
								map[string]any{"vid": float64(29), "name": "Black", "image": "//ae01.alicdn.com/kf/black.jpg"},
								map[string]any{"vid": float64(30), "name": "White"},
							},
						},
					},
					"base": []any{
						map[string]any{"skuId": "12000038000001", "propMap": "14:29", "promotionPrice": "$19.99", "quantity": float64(120)},
						map[string]any{"skuId": "12000038000002", "propMap": "14:30", "promotionPrice": "$21.99", "quantity": float64(0)},
					},
				},
			},
		},
	}
}

func TestParseAliexpressResult(t *testing.T) {
	p := parseAliexpressResult(aliexpressFixture(), "1005006123456789")

	if p.Title != "Wireless Earbuds Pro" {
		t.Errorf("title: %q", p.Title)
	}
	if p.Brand != "SoundCore" || p.Vendor != "Gadget World Store" {
		t.Errorf("brand/vendor: %q %q", p.Brand, p.Vendor)
	}
	if p.Taxonomy == nil || p.Taxonomy.Primary[0] != "Earphones" {
		t.Errorf("taxonomy: %+v", p.Taxonomy)
	}
	if p.Weight == nil || !p.Weight.Value.Equal(decimal.NewFromInt(50)) || p.Weight.Unit != "g" {
		t.Errorf("weight: %+v", p.Weight)
	}
	if p.Price == nil || !p.Price.Current.Amount.Equal(decimal.NewFromFloat(19.99)) {
		t.Errorf("price: %+v", p.Price)
	}
	if len(p.Options) != 1 || p.Options[0].Name != "Color" || len(p.Options[0].Values) != 2 {
		t.Errorf("options: %+v", p.Options)
	}
	if p.Source == nil || p.Source.Slug != "aliexpress-1005006123456789" {
		t.Errorf("source: %+v", p.Source)
	}

	if len(p.Variants) != 2 {
		t.Fatalf("variants = %d", len(p.Variants))
	}
	black := p.Variants[0]
	if black.SKU != "AE:1005006123456789:12000038000001" {
		t.Errorf("black SKU: %q", black.SKU)
	}
	if len(black.OptionValues) != 1 || black.OptionValues[0].Value != "Black" {
		t.Errorf("black options: %+v", black.OptionValues)
	}
	if len(black.Media) != 1 || black.Media[0].URL != "https://ae01.alicdn.com/kf/black.jpg" {
		t.Errorf("black media: %+v", black.Media)
	}
	if black.Inventory == nil || black.Inventory.Available == nil || !*black.Inventory.Available {
		t.Errorf("black availability: %+v", black.Inventory)
	}

	white := p.Variants[1]
	if !white.Price.Current.Amount.Equal(decimal.NewFromFloat(21.99)) {
		t.Errorf("white price: %+v", white.Price)
	}
	if white.Inventory.Available == nil || *white.Inventory.Available {
		t.Errorf("zero quantity must be unavailable: %+v", white.Inventory)
	}

	// Variant image joins the product gallery.
	urls := make(map[string]bool)
	for _, m := range p.Media {
		urls[m.URL] = true
	}
	if !urls["https://ae01.alicdn.com/kf/main.jpg"] || !urls["https://ae01.alicdn.com/kf/black.jpg"] {
		t.Errorf("media: %+v", p.Media)
	}
}

func TestParseAliexpressResultDefaults(t *testing.T) {
	payload := map[string]any{
		"result": map[string]any{
			"item": map[string]any{
				"title": "Basic Cable",
				"sku": map[string]any{
					"def": map[string]any{"price": "$2.50"},
				},
			},
		},
	}
	p := parseAliexpressResult(payload, "42")
	if p.Taxonomy == nil || p.Taxonomy.Primary[0] != "Electronics" {
		t.Errorf("category must default to Electronics: %+v", p.Taxonomy)
	}
	if len(p.Variants) != 1 {
		t.Fatalf("variants = %d", len(p.Variants))
	}
	if p.Variants[0].ID != "42" || !p.Variants[0].Price.Current.Amount.Equal(decimal.NewFromFloat(2.5)) {
		t.Errorf("default variant: %+v", p.Variants[0])
	}
	if p.Variants[0].Inventory.Available == nil || !*p.Variants[0].Inventory.Available {
		t.Errorf("default availability: %+v", p.Variants[0].Inventory)
	}
	if p.SEO == nil || p.SEO.Description != "" {
		t.Errorf("short description must not become SEO copy: %+v", p.SEO)
	}
}

func TestAliexpressFetchRequiresKey(t *testing.T) {
	client := &aliexpressClient{http: newFetcher(nil)}
	_, err := client.Fetch(context.Background(), "https://www.aliexpress.com/item/1005006123456789.html")
	if err != ErrMissingRapidAPIKey {
		t.Errorf("err = %v, want ErrMissingRapidAPIKey", err)
	}
}
