// Package exporter renders canonical products into import-ready CSV files
// for the supported storefront platforms.
//
// Each target dialect is a Builder registered under its platform name. A
// builder owns its fixed column order and all dialect-specific formatting:
// boolean token vocabulary, decimal places, option encoding, and image row
// layout. Batch export enforces each dialect's natural uniqueness key
// (handle, SKU, or parent SKU) across the whole batch and fails with every
// offending duplicate listed rather than silently overwriting rows.
package exporter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/JonMunkholm/shelfshift/internal/catalog"
	"github.com/JonMunkholm/shelfshift/internal/csvio"
)

// BigCommerce CSV format switch values.
const (
	FormatModern = "modern"
	FormatLegacy = "legacy"
)

// Options carries the caller-facing export knobs shared by every target.
type Options struct {
	// Publish controls visibility/status columns on targets that have them.
	Publish bool

	// WeightUnit is the unit weight cells are written in. Empty selects the
	// target's default; values outside the target's allow-list are rejected.
	WeightUnit string

	// BigCommerceFormat selects the modern row-tagged layout or the legacy
	// one-row-per-product layout. Empty means modern.
	BigCommerceFormat string

	// SquarespaceProductPage and SquarespaceProductURL populate the
	// Squarespace-only page assignment columns.
	SquarespaceProductPage string
	SquarespaceProductURL  string
}

// Builder renders products into one target's CSV dialect.
type Builder interface {
	// Target is the lowercase platform name the builder is registered under.
	Target() string

	// Columns returns the dialect's column order for the given options.
	Columns(opts Options) []string

	// Rows renders one product into CSV rows keyed by column name.
	Rows(p *catalog.Product, opts Options) ([]map[string]string, error)

	// BatchKey extracts the dialect's natural uniqueness key from a
	// product's rendered rows, with the label used in duplicate errors.
	// An empty key is not enforced.
	BatchKey(rows []map[string]string, opts Options) (key, label string)
}

// Result is a finished CSV export.
type Result struct {
	CSV      string
	Filename string
	Columns  []string
	RowCount int
}

// Export renders a single product for the target platform.
func Export(p *catalog.Product, target string, opts Options) (Result, error) {
	return ExportBatch([]*catalog.Product{p}, target, opts)
}

// ExportBatch renders products in input order for the target platform,
// enforcing the target's natural uniqueness key across the batch.
func ExportBatch(products []*catalog.Product, target string, opts Options) (Result, error) {
	builder, err := Get(target)
	if err != nil {
		return Result{}, err
	}
	if len(products) == 0 {
		return Result{}, fmt.Errorf("%s batch export requires at least one product", builder.Target())
	}

	unit, err := ResolveWeightUnit(builder.Target(), opts.WeightUnit)
	if err != nil {
		return Result{}, err
	}
	opts.WeightUnit = unit
	if opts.BigCommerceFormat == "" {
		opts.BigCommerceFormat = FormatModern
	}

	var (
		rows  []map[string]string
		keys  []string
		label string
	)
	for _, p := range products {
		productRows, err := builder.Rows(p, opts)
		if err != nil {
			return Result{}, err
		}
		key, keyLabel := builder.BatchKey(productRows, opts)
		if key != "" {
			keys = append(keys, key)
			label = keyLabel
		}
		rows = append(rows, productRows...)
	}
	if err := requireUniqueKeys(keys, label); err != nil {
		return Result{}, err
	}

	columns := builder.Columns(opts)
	text, err := csvio.WriteTable(columns, rows)
	if err != nil {
		return Result{}, err
	}
	return Result{
		CSV:      text,
		Filename: makeExportFilename(builder.Target(), time.Now()),
		Columns:  columns,
		RowCount: len(rows),
	}, nil
}

// requireUniqueKeys fails when any natural key repeats, listing every
// duplicate in sorted order.
func requireUniqueKeys(keys []string, label string) error {
	seen := make(map[string]struct{}, len(keys))
	dupes := make(map[string]struct{})
	for _, key := range keys {
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			dupes[key] = struct{}{}
			continue
		}
		seen[key] = struct{}{}
	}
	if len(dupes) == 0 {
		return nil
	}
	sorted := make([]string, 0, len(dupes))
	for key := range dupes {
		sorted = append(sorted, key)
	}
	sort.Strings(sorted)
	return fmt.Errorf("duplicate %s values in batch export: %s", label, strings.Join(sorted, ", "))
}
