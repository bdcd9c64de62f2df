package core

// convert.go runs full conversions: import from a source (uploaded platform
// CSV or a batch of storefront URLs), then export the canonical products as
// the target platform's import-ready CSV. Each conversion gets a fresh UUID
// and a report; nothing is persisted.

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/shelfshift/internal/catalog"
	"github.com/JonMunkholm/shelfshift/internal/exporter"
	"github.com/JonMunkholm/shelfshift/internal/importer/urlimport"
)

// ConvertCSVRequest is a CSV-to-CSV conversion.
type ConvertCSVRequest struct {
	// Data is the uploaded CSV file.
	Data []byte

	// SourcePlatform names the platform that exported Data. Empty means
	// detect it from the headers.
	SourcePlatform string

	// SourceWeightUnit is required for source platforms whose weight
	// columns carry no unit.
	SourceWeightUnit string

	// TargetPlatform is the platform the output CSV is written for.
	TargetPlatform string

	// Export carries the target-specific knobs.
	Export exporter.Options
}

// ConvertURLsRequest is a URL-batch-to-CSV conversion.
type ConvertURLsRequest struct {
	URLs           []string
	TargetPlatform string
	Export         exporter.Options
}

// ConversionReport summarizes one finished conversion.
type ConversionReport struct {
	ConversionID string `json:"conversion_id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	ProductCount int    `json:"product_count"`
	RowCount     int    `json:"row_count"`
	Filename     string `json:"filename"`

	// URLErrors lists batch URLs that failed to import. A conversion with
	// some failed URLs still succeeds if at least one product imported.
	URLErrors []urlimport.URLError `json:"url_errors,omitempty"`

	// Warnings carries advisory validation findings that did not block the
	// conversion.
	Warnings []string `json:"warnings,omitempty"`

	ElapsedMS int64 `json:"elapsed_ms"`
}

// ConvertResult is the output CSV plus its report.
type ConvertResult struct {
	CSV    string           `json:"csv"`
	Report ConversionReport `json:"report"`
}

// ConvertCSV imports an uploaded platform CSV and re-exports it for the
// target platform.
func (s *Service) ConvertCSV(ctx context.Context, req ConvertCSVRequest) (*ConvertResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()
	started := time.Now()

	platform := req.SourcePlatform
	if platform == "" {
		detected, err := s.DetectCSV(req.Data)
		if err != nil {
			return nil, err
		}
		platform = detected
	}

	products, err := s.ImportCSV(req.Data, platform, req.SourceWeightUnit)
	if err != nil {
		return nil, err
	}

	result, err := s.ExportCSV(products, req.TargetPlatform, req.Export)
	if err != nil {
		return nil, err
	}

	return &ConvertResult{
		CSV: result.CSV,
		Report: ConversionReport{
			ConversionID: uuid.NewString(),
			Source:       platform,
			Target:       req.TargetPlatform,
			ProductCount: len(products),
			RowCount:     result.RowCount,
			Filename:     result.Filename,
			Warnings:     validationWarnings(products),
			ElapsedMS:    time.Since(started).Milliseconds(),
		},
	}, nil
}

// ConvertURLs imports a batch of storefront URLs and exports the products
// for the target platform. Individual URL failures are reported, not fatal,
// as long as at least one product imports.
func (s *Service) ConvertURLs(ctx context.Context, req ConvertURLsRequest) (*ConvertResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()
	started := time.Now()

	if len(req.URLs) == 0 {
		return nil, urlimport.ErrEmptyURL
	}
	products, urlErrors := s.ImportURLs(ctx, req.URLs)
	if len(products) == 0 {
		detail := "all URLs failed to import"
		if len(urlErrors) > 0 {
			detail = urlErrors[0].Detail
		}
		return nil, fmt.Errorf("url conversion produced no products: %s", detail)
	}

	result, err := s.ExportCSV(products, req.TargetPlatform, req.Export)
	if err != nil {
		return nil, err
	}

	return &ConvertResult{
		CSV: result.CSV,
		Report: ConversionReport{
			ConversionID: uuid.NewString(),
			Source:       "url",
			Target:       req.TargetPlatform,
			ProductCount: len(products),
			RowCount:     result.RowCount,
			Filename:     result.Filename,
			URLErrors:    urlErrors,
			Warnings:     validationWarnings(products),
			ElapsedMS:    time.Since(started).Milliseconds(),
		},
	}, nil
}

// validationWarnings flattens advisory validation findings across the batch.
// Error-severity issues are included too: validation never blocks a
// conversion, it only annotates the report.
func validationWarnings(products []*catalog.Product) []string {
	var warnings []string
	for i, p := range products {
		report := catalog.ValidateProduct(p)
		for _, issue := range report.Issues {
			warnings = append(warnings, fmt.Sprintf("product %d (%s): %s", i+1, issueLabel(p), issue.Message))
		}
	}
	return warnings
}

func issueLabel(p *catalog.Product) string {
	if p.Title != "" {
		return p.Title
	}
	if p.Source != nil && p.Source.Slug != "" {
		return p.Source.Slug
	}
	return "untitled"
}
