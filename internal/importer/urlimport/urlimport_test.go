package urlimport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// ============================================================================
// URL Normalization Tests
// ============================================================================

func TestNormalizeProductURL(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"https://demo.myshopify.com/products/hat", "https://demo.myshopify.com/products/hat"},
		{"demo.myshopify.com/products/hat", "https://demo.myshopify.com/products/hat"},
		{"  demo.myshopify.com/products/hat  ", "https://demo.myshopify.com/products/hat"},
		{"http://shop.test/product/tee/", "http://shop.test/product/tee/"},
		{"www.amazon.com/dp/B0ABCDEF12", "https://www.amazon.com/dp/B0ABCDEF12"},
	}
	for _, tc := range cases {
		got, err := NormalizeProductURL(tc.raw)
		if err != nil {
			t.Errorf("NormalizeProductURL(%q): %v", tc.raw, err)
			continue
		}
		if got != tc.want {
			t.Errorf("NormalizeProductURL(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestNormalizeProductURLErrors(t *testing.T) {
	if _, err := NormalizeProductURL(""); !errors.Is(err, ErrEmptyURL) {
		t.Errorf("empty: %v", err)
	}
	if _, err := NormalizeProductURL("   "); !errors.Is(err, ErrEmptyURL) {
		t.Errorf("blank: %v", err)
	}
	if _, err := NormalizeProductURL("https://example.com/some/page"); !errors.Is(err, ErrUnsupportedURL) {
		t.Errorf("unsupported: %v", err)
	}
}

func TestRequiresRapidAPI(t *testing.T) {
	cases := []struct {
		rawURL string
		want   bool
	}{
		{"https://www.amazon.com/dp/B0ABCDEF12", true},
		{"https://www.aliexpress.com/item/1005006123456789.html", true},
		{"https://demo.myshopify.com/products/hat", false},
		{"https://shop.test/product/tee/", false},
	}
	for _, tc := range cases {
		if got := RequiresRapidAPI(tc.rawURL); got != tc.want {
			t.Errorf("RequiresRapidAPI(%q) = %v, want %v", tc.rawURL, got, tc.want)
		}
	}
}

// ============================================================================
// Single Import Tests
// ============================================================================

func TestImportProductFromURLRejectsNonProductPages(t *testing.T) {
	im := New(Options{})
	_, err := im.ImportProductFromURL(context.Background(), "https://demo.myshopify.com/collections/all")
	if !errors.Is(err, ErrNotProductURL) {
		t.Errorf("err = %v, want ErrNotProductURL", err)
	}
	if err == nil || !strings.Contains(err.Error(), "shopify") {
		t.Errorf("error must name the detected platform: %v", err)
	}
}

func TestImportProductFromURL(t *testing.T) {
	ts := newShopifyServer(t)
	im := New(Options{HTTPClient: ts.Client()})

	p, err := im.ImportProductFromURL(context.Background(), ts.URL+"/products/felt-hat")
	if err != nil {
		t.Fatalf("ImportProductFromURL: %v", err)
	}
	if p.Title != "Felt Hat" {
		t.Errorf("title: %q", p.Title)
	}
	if p.Source == nil || p.Source.URL != ts.URL+"/products/felt-hat" {
		t.Errorf("source URL must be the normalized input: %+v", p.Source)
	}
}

// ============================================================================
// Batch Import Tests
// ============================================================================

func TestImportProductsFromURLs(t *testing.T) {
	ts := newShopifyServer(t)
	im := New(Options{HTTPClient: ts.Client(), Concurrency: 2})

	mux := http.NewServeMux()
	mux.HandleFunc("/products/missing.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/products/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	broken := httptest.NewServer(mux)
	defer broken.Close()

	urls := []string{
		ts.URL + "/products/felt-hat",
		"https://example.com/not/a/product",
		broken.URL + "/products/missing",
		ts.URL + "/products/felt-hat",
	}
	products, failures := im.ImportProductsFromURLs(context.Background(), urls)

	if len(products) != 2 {
		t.Fatalf("products = %d", len(products))
	}
	for _, p := range products {
		if p.Title != "Felt Hat" {
			t.Errorf("title: %q", p.Title)
		}
	}
	if len(failures) != 2 {
		t.Fatalf("failures = %d: %+v", len(failures), failures)
	}
	if failures[0].URL != urls[1] {
		t.Errorf("failure order: %+v", failures)
	}
	if !strings.Contains(failures[0].Detail, "unsupported URL") {
		t.Errorf("unsupported detail: %q", failures[0].Detail)
	}
	if failures[1].URL != urls[2] {
		t.Errorf("failure order: %+v", failures)
	}
}

func TestImportProductsFromURLsEmpty(t *testing.T) {
	im := New(Options{})
	products, failures := im.ImportProductsFromURLs(context.Background(), nil)
	if len(products) != 0 || len(failures) != 0 {
		t.Errorf("empty batch: %v %v", products, failures)
	}
}
