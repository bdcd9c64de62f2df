package urlimport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/shelfshift/internal/detect"
)

const wooStoreProductJSON = `[{
  "id": 77, "name": "Logo Tee", "slug": "logo-tee",
  "description": "<p>A soft cotton tee.</p>",
  "sku": "TEE",
  "prices": {"price": "1999", "regular_price": "2499", "currency_code": "USD", "currency_minor_unit": 2},
  "is_in_stock": true, "manage_stock": true, "stock_quantity": 10,
  "is_downloadable": false, "is_virtual": false,
  "attributes": [{"name": "Size", "terms": [{"name": "S"}, {"name": "M"}]}],
  "variations": [
    {"id": 771, "attributes": [{"name": "Size", "value": "S"}]},
    {"id": 772, "sku": "TEE-M", "attributes": [{"name": "Size", "value": "M"}]}
  ],
  "images": [{"src": "https://cdn.test/tee.jpg", "thumbnail": "https://cdn.test/tee-thumb.jpg"}],
  "categories": [{"name": "Apparel"}],
  "tags": [{"name": "cotton"}]
}]`

// ============================================================================
// Store API Tests
// ============================================================================

func TestWooFetchViaStoreAPI(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/wc/store/v1/products", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("slug"); got != "logo-tee" {
			t.Errorf("slug query = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(wooStoreProductJSON))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	client := &wooClient{http: newFetcher(ts.Client())}
	p, err := client.Fetch(context.Background(), ts.URL+"/product/logo-tee/")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if p.Title != "Logo Tee" {
		t.Errorf("title: %q", p.Title)
	}
	if p.Price == nil || !p.Price.Current.Amount.Equal(decimal.NewFromFloat(19.99)) {
		t.Errorf("minor-unit price must decode to 19.99: %+v", p.Price)
	}
	if p.Price.CompareAt == nil || !p.Price.CompareAt.Amount.Equal(decimal.NewFromFloat(24.99)) {
		t.Errorf("compare-at: %+v", p.Price.CompareAt)
	}
	if len(p.Options) != 1 || p.Options[0].Name != "Size" || len(p.Options[0].Values) != 2 {
		t.Errorf("options: %+v", p.Options)
	}
	if p.TrackQuantity == nil || !*p.TrackQuantity {
		t.Errorf("manage_stock true must track quantity: %+v", p.TrackQuantity)
	}
	if p.Taxonomy == nil || p.Taxonomy.Primary[0] != "Apparel" {
		t.Errorf("taxonomy: %+v", p.Taxonomy)
	}
	if len(p.Tags) != 1 || p.Tags[0] != "cotton" {
		t.Errorf("tags: %v", p.Tags)
	}
	if len(p.Media) != 1 || p.Media[0].URL != "https://cdn.test/tee.jpg" {
		t.Errorf("media: %+v", p.Media)
	}
	if p.IsDigital {
		t.Error("tee must not be digital")
	}
	if p.Source == nil || p.Source.Platform != "woocommerce" || p.Source.Slug != "logo-tee" || p.Source.ID != "77" {
		t.Errorf("source: %+v", p.Source)
	}
	if p.Identifiers["source_product_id"] != "77" || p.Identifiers["sku"] != "TEE" {
		t.Errorf("identifiers: %v", p.Identifiers)
	}

	if len(p.Variants) != 2 {
		t.Fatalf("variants = %d", len(p.Variants))
	}
	small := p.Variants[0]
	if small.SKU != "WC:77:771" {
		t.Errorf("missing SKU must synthesize a stable one: %q", small.SKU)
	}
	if len(small.OptionValues) != 1 || small.OptionValues[0].Name != "Size" || small.OptionValues[0].Value != "S" {
		t.Errorf("small options: %+v", small.OptionValues)
	}
	if small.Price == nil || !small.Price.Current.Amount.Equal(decimal.NewFromFloat(19.99)) {
		t.Errorf("variant must inherit product price: %+v", small.Price)
	}
	if small.Inventory == nil || small.Inventory.Available == nil || !*small.Inventory.Available {
		t.Errorf("variant must inherit product availability: %+v", small.Inventory)
	}
	if p.Variants[1].SKU != "TEE-M" {
		t.Errorf("explicit SKU must survive: %q", p.Variants[1].SKU)
	}
}

func TestWooStoreAmount(t *testing.T) {
	cases := []struct {
		raw  any
		mu   int
		want string
	}{
		{"1999", 2, "19.99"},
		{"2499", 2, "24.99"},
		{"1999", 0, "1999"},
		{"19.99", 2, "19.99"},
		{float64(1999), 2, "19.99"},
		{float64(19.99), 2, "19.99"},
		{"150000", 3, "150"},
	}
	for _, tc := range cases {
		got := storeAmount(tc.raw, tc.mu)
		if got == nil {
			t.Errorf("storeAmount(%v, %d) = nil", tc.raw, tc.mu)
			continue
		}
		want, _ := decimal.NewFromString(tc.want)
		if !got.Equal(want) {
			t.Errorf("storeAmount(%v, %d) = %s, want %s", tc.raw, tc.mu, got, tc.want)
		}
	}
	if storeAmount("", 2) != nil {
		t.Error("empty amount must be nil")
	}
	if storeAmount(nil, 2) != nil {
		t.Error("nil amount must be nil")
	}
}

func TestWooMinorUnit(t *testing.T) {
	cases := []struct {
		raw  any
		want int
	}{
		{nil, 2},
		{float64(0), 0},
		{float64(3), 3},
		{float64(-1), 0},
		{float64(9), 6},
	}
	for _, tc := range cases {
		if got := minorUnit(tc.raw); got != tc.want {
			t.Errorf("minorUnit(%v) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestWooExtractStoreProduct(t *testing.T) {
	bare := map[string]any{"id": float64(1), "name": "X"}
	if got, err := extractStoreProduct(bare); err != nil || got["name"] != "X" {
		t.Errorf("bare product: %v %v", got, err)
	}
	wrapped := map[string]any{"products": []any{map[string]any{"id": float64(2)}}}
	if got, err := extractStoreProduct(wrapped); err != nil || got["id"] != float64(2) {
		t.Errorf("wrapped product: %v %v", got, err)
	}
	list := []any{map[string]any{"id": float64(3)}}
	if got, err := extractStoreProduct(list); err != nil || got["id"] != float64(3) {
		t.Errorf("list product: %v %v", got, err)
	}
	if _, err := extractStoreProduct([]any{}); err == nil {
		t.Error("empty list must error")
	}
	if _, err := extractStoreProduct(map[string]any{"message": "no route"}); err == nil {
		t.Error("error payload must error")
	}
}

// ============================================================================
// Fallback Tests
// ============================================================================

func TestWooFallbackStorefrontURLs(t *testing.T) {
	client := &wooClient{http: newFetcher(nil)}

	cases := []struct {
		rawURL string
		want   []string
	}{
		{"https://shop.test/wp-json/wc/store/v1/products/logo-tee",
			[]string{"https://shop.test/product/logo-tee/"}},
		{"https://shop.test/wp-json/wc/store/v1/products/123",
			[]string{"https://shop.test/?product=123"}},
		{"https://shop.test/product/logo-tee/",
			[]string{"https://shop.test/product/logo-tee/"}},
	}
	for _, tc := range cases {
		parsed, err := url.Parse(tc.rawURL)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.rawURL, err)
		}
		det := detect.DetectProductURL(tc.rawURL)
		isAPI := wooStoreAPIPathRe.MatchString(parsed.Path)
		got := client.fallbackStorefrontURLs(parsed, det, isAPI)
		if len(got) != len(tc.want) {
			t.Errorf("%q: got %v, want %v", tc.rawURL, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("%q: got %v, want %v", tc.rawURL, got, tc.want)
				break
			}
		}
	}
}

func TestWooFallsBackToStorefrontHTML(t *testing.T) {
	page := `<html><head><script type="application/ld+json">
	{"@type": "Product", "name": "Beanie", "offers": [
	  {"price": "15.00", "priceCurrency": "USD", "color": "Red"},
	  {"price": "15.00", "priceCurrency": "USD", "color": "Blue"}
	]}
	</script></head><body></body></html>`

	mux := http.NewServeMux()
	mux.HandleFunc("/product/beanie/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	client := &wooClient{http: newFetcher(ts.Client())}
	p, err := client.Fetch(context.Background(), ts.URL+"/product/beanie/")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if p.Title != "Beanie" {
		t.Errorf("title: %q", p.Title)
	}
	if len(p.Variants) != 2 {
		t.Fatalf("variants = %d", len(p.Variants))
	}
	if p.Variants[0].SKU != "WC:beanie:1" || p.Variants[1].SKU != "WC:beanie:2" {
		t.Errorf("synthesized SKUs: %q %q", p.Variants[0].SKU, p.Variants[1].SKU)
	}
}

func TestWooAllAttemptsFailPrefersHTTPStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	client := &wooClient{http: newFetcher(ts.Client())}
	_, err := client.Fetch(context.Background(), ts.URL+"/product/ghost/")
	if err == nil {
		t.Fatal("expected error")
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("want HTTPStatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", statusErr.StatusCode)
	}
}
