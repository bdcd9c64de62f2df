// Package catalog defines the canonical product model shared by every
// importer and exporter.
//
// A Product is the platform-agnostic aggregate that URL fetch clients and
// CSV import parsers produce and CSV export builders consume. Variants are
// owned exclusively by their Product and are never shared between products.
//
// Several logical attributes carry two encodings: a structured one (Price,
// Media, Options, Taxonomy, SEO, Identifiers) and an older flat one kept for
// compatibility with payloads produced before the structured model existed.
// Read-side code must never inspect both encodings directly; the resolver
// functions in resolve.go apply the precedence rule (structured wins
// entirely when present, flat is a fallback, the two are never merged).
package catalog

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Media types.
const (
	MediaImage = "image"
	MediaVideo = "video"
)

// Money is an amount in a single currency. Amount is nil when the source
// value was absent or unparseable. Currency is upper-cased on construction
// via NormalizeCurrency.
type Money struct {
	Amount   *decimal.Decimal `json:"amount"`
	Currency string           `json:"currency,omitempty"`
}

// IsZeroValue reports whether the Money carries no information at all.
func (m Money) IsZeroValue() bool {
	return m.Amount == nil && m.Currency == ""
}

// Price groups the price points a platform may expose for a product or
// variant. Only Current is required to be meaningful.
type Price struct {
	Current   Money  `json:"current"`
	CompareAt *Money `json:"compare_at,omitempty"`
	Cost      *Money `json:"cost,omitempty"`
	MinPrice  *Money `json:"min_price,omitempty"`
	MaxPrice  *Money `json:"max_price,omitempty"`
}

// Weight is a physical weight. The canonical storage unit is grams; other
// units appear only when a source platform supplied them explicitly.
type Weight struct {
	Value *decimal.Decimal `json:"value"`
	Unit  string           `json:"unit,omitempty"`
}

// Media is one image or video attached to a product or variant.
type Media struct {
	URL         string   `json:"url"`
	Type        string   `json:"type"`
	Alt         string   `json:"alt,omitempty"`
	Position    int      `json:"position,omitempty"`
	IsPrimary   bool     `json:"is_primary,omitempty"`
	VariantSKUs []string `json:"variant_skus,omitempty"`
}

// OptionDef declares one product option (e.g. "Color") and its value set in
// first-seen order.
type OptionDef struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// OptionValue is one selected option on a variant.
type OptionValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Inventory carries stock signals. Every field is tri-state: nil means the
// source did not say, and is never coerced to a default.
type Inventory struct {
	TrackQuantity  *bool `json:"track_quantity,omitempty"`
	Quantity       *int  `json:"quantity,omitempty"`
	Available      *bool `json:"available,omitempty"`
	AllowBackorder *bool `json:"allow_backorder,omitempty"`
}

// SEO holds search-engine title/description overrides.
type SEO struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// SourceRef records where a product came from. Platform is never empty;
// construction falls back to "unknown".
type SourceRef struct {
	Platform string `json:"platform"`
	ID       string `json:"id,omitempty"`
	Slug     string `json:"slug,omitempty"`
	URL      string `json:"url,omitempty"`
}

// NewSourceRef builds a SourceRef, defaulting the platform to "unknown".
func NewSourceRef(platform, id, slug, url string) *SourceRef {
	p := strings.TrimSpace(platform)
	if p == "" {
		p = "unknown"
	}
	return &SourceRef{Platform: p, ID: strings.TrimSpace(id), Slug: strings.TrimSpace(slug), URL: strings.TrimSpace(url)}
}

// CategorySet holds taxonomy paths (each path is root-first) plus an
// optional primary path.
type CategorySet struct {
	Paths   [][]string `json:"paths,omitempty"`
	Primary []string   `json:"primary,omitempty"`
}

// Identifiers is a free-form string map for platform identifiers (handle,
// source product id, barcode namespaces) and for best-effort passthrough of
// unknown CSV columns under "csv:<token>" keys.
type Identifiers map[string]string

// Set trims the pair and stores it. Empty keys or values are dropped.
func (ids Identifiers) Set(key, value string) {
	k := strings.TrimSpace(key)
	v := strings.TrimSpace(value)
	if k == "" || v == "" {
		return
	}
	ids[k] = v
}

// Clone returns a trimmed copy with empty pairs removed.
func (ids Identifiers) Clone() Identifiers {
	out := Identifiers{}
	for k, v := range ids {
		out.Set(k, v)
	}
	return out
}

// SortedKeys returns the identifier keys in lexical order.
func (ids Identifiers) SortedKeys() []string {
	keys := make([]string, 0, len(ids))
	for k := range ids {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Variant is one purchasable item within a Product.
type Variant struct {
	ID    string `json:"id,omitempty"`
	SKU   string `json:"sku,omitempty"`
	Title string `json:"title,omitempty"`

	OptionValues []OptionValue  `json:"option_values,omitempty"`
	Price        *Price         `json:"price,omitempty"`
	Inventory    *Inventory     `json:"inventory,omitempty"`
	Weight       *Weight        `json:"weight,omitempty"`
	Media        []Media        `json:"media,omitempty"`
	Identifiers  Identifiers    `json:"identifiers,omitempty"`
	Raw          map[string]any `json:"raw,omitempty"`

	// Legacy flat encodings. Construction-side only; read through resolvers.
	LegacyOptions   map[string]string `json:"legacy_options,omitempty"`
	LegacyPrice     *decimal.Decimal  `json:"legacy_price,omitempty"`
	LegacyCurrency  string            `json:"legacy_currency,omitempty"`
	LegacyImageURL  string            `json:"legacy_image_url,omitempty"`
	LegacyAvailable *bool             `json:"legacy_available,omitempty"`
	LegacyQuantity  *int              `json:"legacy_quantity,omitempty"`
	LegacyGrams     *decimal.Decimal  `json:"legacy_grams,omitempty"`
}

// Product is the aggregate root every importer produces and every exporter
// consumes. It is constructed once per import call and treated as immutable
// afterwards except for provenance stamping; export is a pure read.
type Product struct {
	Source      *SourceRef `json:"source,omitempty"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Brand       string     `json:"brand,omitempty"`
	Vendor      string     `json:"vendor,omitempty"`
	Tags        []string   `json:"tags,omitempty"`

	SEO      *SEO         `json:"seo,omitempty"`
	Taxonomy *CategorySet `json:"taxonomy,omitempty"`

	Options  []OptionDef `json:"options,omitempty"`
	Variants []Variant   `json:"variants,omitempty"`

	Price            *Price           `json:"price,omitempty"`
	Weight           *Weight          `json:"weight,omitempty"`
	RequiresShipping *bool            `json:"requires_shipping,omitempty"`
	TrackQuantity    *bool            `json:"track_quantity,omitempty"`
	IsDigital        bool             `json:"is_digital,omitempty"`
	Media            []Media          `json:"media,omitempty"`
	Identifiers      Identifiers      `json:"identifiers,omitempty"`
	Raw              map[string]any   `json:"raw,omitempty"`
	Provenance       map[string]any   `json:"provenance,omitempty"`

	// Legacy flat encodings. Construction-side only; read through resolvers.
	LegacyPrice           *decimal.Decimal    `json:"legacy_price,omitempty"`
	LegacyCurrency        string              `json:"legacy_currency,omitempty"`
	LegacyImages          []string            `json:"legacy_images,omitempty"`
	LegacyOptions         map[string][]string `json:"legacy_options,omitempty"`
	LegacyCategory        string              `json:"legacy_category,omitempty"`
	LegacyMetaTitle       string              `json:"legacy_meta_title,omitempty"`
	LegacyMetaDescription string              `json:"legacy_meta_description,omitempty"`
	LegacyGrams           *decimal.Decimal    `json:"legacy_grams,omitempty"`
}

// SourcePlatform returns the product's source platform, or "unknown".
func (p *Product) SourcePlatform() string {
	if p.Source != nil && p.Source.Platform != "" {
		return p.Source.Platform
	}
	return "unknown"
}

// EnsureIdentifiers returns the product identifier map, allocating it on
// first use.
func (p *Product) EnsureIdentifiers() Identifiers {
	if p.Identifiers == nil {
		p.Identifiers = Identifiers{}
	}
	return p.Identifiers
}

// EnsureIdentifiers returns the variant identifier map, allocating it on
// first use.
func (v *Variant) EnsureIdentifiers() Identifiers {
	if v.Identifiers == nil {
		v.Identifiers = Identifiers{}
	}
	return v.Identifiers
}
