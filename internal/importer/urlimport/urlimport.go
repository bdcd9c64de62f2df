// Package urlimport fetches live product listings from storefront URLs
// and maps them onto the canonical catalog model.
//
// Each supported platform has a client that knows that platform's public
// product endpoint: Shopify's /products/<handle>.json, the WooCommerce
// Store API, Squarespace's ?format=json page rendition, and the RapidAPI
// services backing Amazon and AliExpress. Clients degrade to scraping
// schema.org Product JSON-LD out of the HTML page when the structured
// endpoint is unavailable.
package urlimport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/shelfshift/internal/catalog"
	"github.com/JonMunkholm/shelfshift/internal/detect"
)

// Import failure modes callers are expected to distinguish.
var (
	ErrEmptyURL       = errors.New("product_url is required")
	ErrUnsupportedURL = errors.New("unsupported URL: supported import sources are Shopify, WooCommerce, Squarespace, Amazon, AliExpress")
	ErrNotProductURL  = errors.New("URL is not a product page")

	ErrMissingRapidAPIKey = errors.New("RAPIDAPI_KEY is required for Amazon and AliExpress imports")
)

// URLError is one failed URL in a batch import.
type URLError struct {
	URL    string `json:"url"`
	Detail string `json:"detail"`
}

// Options configures an Importer. The zero value is usable: default HTTP
// timeouts, serial batch imports, no RapidAPI key.
type Options struct {
	// RapidAPIKey unlocks the Amazon and AliExpress clients.
	RapidAPIKey string

	// HTTPClient overrides the default 20s-timeout client.
	HTTPClient *http.Client

	// Concurrency bounds batch import fan-out. Zero or negative means
	// the default.
	Concurrency int
}

const defaultConcurrency = 4

// Importer routes product URLs to platform clients.
type Importer struct {
	http        *fetcher
	rapidAPIKey string
	concurrency int
}

func New(opts Options) *Importer {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Importer{
		http:        newFetcher(opts.HTTPClient),
		rapidAPIKey: opts.RapidAPIKey,
		concurrency: concurrency,
	}
}

// NormalizeProductURL trims the URL, defaults the scheme to https, and
// verifies that some supported platform claims it.
func NormalizeProductURL(rawURL string) (string, error) {
	normalized := strings.TrimSpace(rawURL)
	if normalized == "" {
		return "", ErrEmptyURL
	}
	if !strings.HasPrefix(normalized, "http://") && !strings.HasPrefix(normalized, "https://") {
		normalized = "https://" + normalized
	}
	if detect.DetectProductURL(normalized).Platform == "" {
		return "", ErrUnsupportedURL
	}
	return normalized, nil
}

// RequiresRapidAPI reports whether importing the URL needs a RapidAPI key.
func RequiresRapidAPI(rawURL string) bool {
	switch detect.DetectProductURL(rawURL).Platform {
	case detect.Amazon, detect.AliExpress:
		return true
	}
	return false
}

func (im *Importer) clientFor(platform string) (Client, error) {
	switch platform {
	case detect.Shopify:
		return &shopifyClient{http: im.http}, nil
	case detect.WooCommerce:
		return &wooClient{http: im.http}, nil
	case detect.Squarespace:
		return &squarespaceClient{http: im.http}, nil
	case detect.AliExpress:
		return &aliexpressClient{http: im.http, rapidAPIKey: im.rapidAPIKey}, nil
	case detect.Amazon:
		return &amazonClient{http: im.http, rapidAPIKey: im.rapidAPIKey}, nil
	}
	return nil, ErrUnsupportedURL
}

// Client fetches one product from a platform-specific product URL.
type Client interface {
	Platform() string
	Fetch(ctx context.Context, productURL string) (*catalog.Product, error)
}

// ImportProductFromURL imports a single product listing from its
// storefront URL.
func (im *Importer) ImportProductFromURL(ctx context.Context, rawURL string) (*catalog.Product, error) {
	normalized, err := NormalizeProductURL(rawURL)
	if err != nil {
		return nil, err
	}
	det := detect.DetectProductURL(normalized)
	if !det.IsProduct {
		return nil, fmt.Errorf("%s: %w", det.Platform, ErrNotProductURL)
	}
	client, err := im.clientFor(det.Platform)
	if err != nil {
		return nil, err
	}

	p, err := client.Fetch(ctx, normalized)
	if err != nil {
		return nil, err
	}
	finalizeProduct(p, det.Platform, normalized)
	return p, nil
}

// ImportProductsFromURLs imports a batch of URLs with bounded concurrency.
// Failures are isolated per URL: every successful product is returned,
// and each failed URL yields a URLError. Both slices preserve input order.
func (im *Importer) ImportProductsFromURLs(ctx context.Context, urls []string) ([]*catalog.Product, []URLError) {
	results := make([]*catalog.Product, len(urls))
	failures := make([]*URLError, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.concurrency)
	for i, rawURL := range urls {
		g.Go(func() error {
			p, err := im.ImportProductFromURL(gctx, rawURL)
			if err != nil {
				failures[i] = &URLError{URL: rawURL, Detail: err.Error()}
				return nil
			}
			results[i] = p
			return nil
		})
	}
	// Workers never return errors; Wait only joins them.
	_ = g.Wait()

	products := make([]*catalog.Product, 0, len(urls))
	var errs []URLError
	for i := range urls {
		if results[i] != nil {
			products = append(products, results[i])
		}
		if failures[i] != nil {
			errs = append(errs, *failures[i])
		}
	}
	return products, errs
}
