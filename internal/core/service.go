package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/JonMunkholm/shelfshift/internal/catalog"
	"github.com/JonMunkholm/shelfshift/internal/csvio"
	"github.com/JonMunkholm/shelfshift/internal/detect"
	"github.com/JonMunkholm/shelfshift/internal/exporter"
	"github.com/JonMunkholm/shelfshift/internal/importer/csvimport"
	"github.com/JonMunkholm/shelfshift/internal/importer/urlimport"
)

// Options configures a Service. The zero value is usable: default upload
// limit, default HTTP timeouts, no RapidAPI key.
type Options struct {
	// RapidAPIKey unlocks the Amazon and AliExpress URL importers.
	RapidAPIKey string

	// HTTPClient overrides the default outbound HTTP client.
	HTTPClient *http.Client

	// URLConcurrency bounds batch URL import fan-out.
	URLConcurrency int

	// MaxCSVBytes caps uploaded CSV size. Zero means the csvio default.
	MaxCSVBytes int64

	// MaxConcurrentConversions bounds parallel conversions; ConversionWait
	// is how long a request waits for a slot. Zero means the defaults.
	MaxConcurrentConversions int
	ConversionWait           time.Duration
}

// Service routes every conversion operation: URL and CSV detection, URL and
// CSV import, CSV export, and full import-then-export conversions.
type Service struct {
	urls        *urlimport.Importer
	maxCSVBytes int64
	limiter     *ConversionLimiter
}

// NewService creates a Service.
func NewService(opts Options) *Service {
	maxBytes := opts.MaxCSVBytes
	if maxBytes <= 0 {
		maxBytes = csvio.MaxUploadBytes
	}
	return &Service{
		urls: urlimport.New(urlimport.Options{
			RapidAPIKey: opts.RapidAPIKey,
			HTTPClient:  opts.HTTPClient,
			Concurrency: opts.URLConcurrency,
		}),
		maxCSVBytes: maxBytes,
		limiter:     NewConversionLimiter(opts.MaxConcurrentConversions, opts.ConversionWait),
	}
}

// Limiter exposes the conversion limiter for graceful shutdown draining.
func (s *Service) Limiter() *ConversionLimiter {
	return s.limiter
}

// MaxCSVBytes returns the configured CSV upload cap.
func (s *Service) MaxCSVBytes() int64 {
	return s.maxCSVBytes
}

// URLInfo is the outcome of classifying a product URL for a caller.
type URLInfo struct {
	detect.URLDetection
	NormalizedURL  string `json:"normalized_url"`
	RequiresAPIKey bool   `json:"requires_api_key"`
}

// MarshalJSON writes the platform field as null, never "", when no
// platform claims the URL.
func (i URLInfo) MarshalJSON() ([]byte, error) {
	out := struct {
		Platform       *string `json:"platform"`
		IsProduct      bool    `json:"is_product"`
		ProductID      string  `json:"product_id,omitempty"`
		Slug           string  `json:"slug,omitempty"`
		NormalizedURL  string  `json:"normalized_url"`
		RequiresAPIKey bool    `json:"requires_api_key"`
	}{
		IsProduct:      i.IsProduct,
		ProductID:      i.ProductID,
		Slug:           i.Slug,
		NormalizedURL:  i.NormalizedURL,
		RequiresAPIKey: i.RequiresAPIKey,
	}
	if i.Platform != "" {
		out.Platform = &i.Platform
	}
	return json.Marshal(out)
}

// DetectURL normalizes and classifies a product URL. A URL no platform
// claims is not an error: it yields a zero detection with a null platform.
// Only an actual import attempt rejects unsupported URLs.
func (s *Service) DetectURL(rawURL string) (URLInfo, error) {
	normalized := strings.TrimSpace(rawURL)
	if normalized == "" {
		return URLInfo{}, urlimport.ErrEmptyURL
	}
	if !strings.HasPrefix(normalized, "http://") && !strings.HasPrefix(normalized, "https://") {
		normalized = "https://" + normalized
	}
	return URLInfo{
		URLDetection:   detect.DetectProductURL(normalized),
		NormalizedURL:  normalized,
		RequiresAPIKey: urlimport.RequiresRapidAPI(normalized),
	}, nil
}

// DetectCSV identifies which platform exported the CSV from its headers.
func (s *Service) DetectCSV(data []byte) (string, error) {
	return detect.DetectCSVPlatform(data, s.maxCSVBytes)
}

// ImportURL imports one product listing from its storefront URL.
func (s *Service) ImportURL(ctx context.Context, rawURL string) (*catalog.Product, error) {
	return s.urls.ImportProductFromURL(ctx, rawURL)
}

// ImportURLs imports a batch of storefront URLs. Failures are isolated per
// URL; both slices preserve input order.
func (s *Service) ImportURLs(ctx context.Context, urls []string) ([]*catalog.Product, []urlimport.URLError) {
	return s.urls.ImportProductsFromURLs(ctx, urls)
}

// ImportCSV parses every product in a platform CSV export. An empty
// sourcePlatform means detect it from the headers. sourceWeightUnit is
// required for platforms whose weight columns carry no unit.
func (s *Service) ImportCSV(data []byte, sourcePlatform, sourceWeightUnit string) ([]*catalog.Product, error) {
	if int64(len(data)) > s.maxCSVBytes {
		return nil, fmt.Errorf("file too large: CSV upload exceeds %d bytes", s.maxCSVBytes)
	}
	platform := sourcePlatform
	if platform == "" {
		detected, err := s.DetectCSV(data)
		if err != nil {
			return nil, err
		}
		platform = detected
	}
	return csvimport.ImportProducts(platform, data, sourceWeightUnit)
}

// ExportCSV renders products into the target platform's import-ready CSV.
func (s *Service) ExportCSV(products []*catalog.Product, target string, opts exporter.Options) (exporter.Result, error) {
	return exporter.ExportBatch(products, target, opts)
}

// Validate runs the baseline canonical checks against one product.
func (s *Service) Validate(p *catalog.Product) catalog.ValidationReport {
	return catalog.ValidateProduct(p)
}
