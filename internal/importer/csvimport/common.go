// Package csvimport parses platform CSV export files into canonical
// products.
//
// Each supported platform has a single-product parser (used when the caller
// wants only the first product in the file) and a batch parser that segments
// the file into product groups using the platform's own grouping convention:
// shared handle (Shopify, Wix), explicit row tags (BigCommerce modern),
// parent/child SKU linkage (WooCommerce), or title anchors (Squarespace).
// Both stamp provenance describing how the product was selected.
package csvimport

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/shelfshift/internal/catalog"
	"github.com/JonMunkholm/shelfshift/internal/csvio"
)

var nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

// slugifyToken lower-cases text into a hyphenated slug.
func slugifyToken(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	return strings.Trim(nonSlugRe.ReplaceAllString(s, "-"), "-")
}

// SourcePlatforms lists the CSV source platforms the importers accept, in
// the order surfaced by validation errors.
var SourcePlatforms = []string{"shopify", "bigcommerce", "wix", "squarespace", "woocommerce"}

// Platforms whose CSV weight columns carry no unit of their own, making the
// caller-supplied source unit mandatory.
var weightUnitRequired = map[string]struct{}{
	"bigcommerce": {},
	"wix":         {},
	"squarespace": {},
}

func boolPtr(v bool) *bool { return &v }

// validateRequest enforces the shared import gates: platform allowlist,
// non-empty payload, upload ceiling, and the source weight unit rules.
// Returns the normalized platform and weight unit.
func validateRequest(platform string, data []byte, sourceWeightUnit string) (string, string, error) {
	normalized := strings.ToLower(strings.TrimSpace(platform))
	supported := false
	for _, candidate := range SourcePlatforms {
		if normalized == candidate {
			supported = true
			break
		}
	}
	if !supported {
		return "", "", fmt.Errorf("source_platform must be one of: %s", strings.Join(SourcePlatforms, ", "))
	}
	if len(data) == 0 {
		return "", "", fmt.Errorf("empty file: CSV file is empty")
	}

	unit := strings.ToLower(strings.TrimSpace(sourceWeightUnit))
	if _, required := weightUnitRequired[normalized]; required && unit == "" {
		return "", "", fmt.Errorf("source_weight_unit is required for %s CSV imports", normalized)
	}
	if unit != "" {
		switch unit {
		case catalog.UnitGram, catalog.UnitKilogram, catalog.UnitPound, catalog.UnitOunce:
		default:
			return "", "", fmt.Errorf("source_weight_unit must be one of: g, kg, lb, oz")
		}
	}
	return normalized, unit, nil
}

// weightToGrams parses a weight cell and converts it into grams using the
// source unit. Unknown units fall back to treating the value as grams.
func weightToGrams(raw, sourceUnit string) *decimal.Decimal {
	parsed := catalog.ParseMoney(raw)
	if parsed == nil {
		return nil
	}
	grams, err := catalog.ToGrams(*parsed, sourceUnit)
	if err != nil {
		return parsed
	}
	return &grams
}

// weightFromGrams wraps an already-converted gram value in a Weight.
func weightFromGrams(grams *decimal.Decimal) *catalog.Weight {
	if grams == nil {
		return nil
	}
	return &catalog.Weight{Value: grams, Unit: catalog.UnitGram}
}

// trackedInventory derives stock state from a quantity cell: a parsed
// quantity enables tracking, absence leaves the variant available.
func trackedInventory(qty *int) *catalog.Inventory {
	inv := &catalog.Inventory{TrackQuantity: boolPtr(qty != nil)}
	if qty != nil {
		inv.Quantity = qty
		inv.Available = boolPtr(*qty > 0)
	} else {
		inv.Available = boolPtr(true)
	}
	return inv
}

// mediaFromURLs builds positioned image media from URLs, first image
// primary, empty and duplicate URLs dropped.
func mediaFromURLs(urls []string, variantSKU string) []catalog.Media {
	var out []catalog.Media
	seen := make(map[string]struct{}, len(urls))
	for _, raw := range urls {
		url := strings.TrimSpace(raw)
		if url == "" {
			continue
		}
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		m := catalog.Media{
			URL:       url,
			Type:      catalog.MediaImage,
			Position:  len(out) + 1,
			IsPrimary: len(out) == 0,
		}
		if variantSKU != "" {
			m.VariantSKUs = []string{variantSKU}
		}
		out = append(out, m)
	}
	return out
}

// optionDefsFromLists accumulates option definitions across per-variant
// option selections: names in first-seen order, values deduplicated.
func optionDefsFromLists(lists [][]catalog.OptionValue) []catalog.OptionDef {
	var names []string
	valuesByName := make(map[string][]string)
	for _, list := range lists {
		for _, ov := range list {
			name := strings.TrimSpace(ov.Name)
			value := strings.TrimSpace(ov.Value)
			if name == "" || value == "" {
				continue
			}
			if _, ok := valuesByName[name]; !ok {
				names = append(names, name)
			}
			exists := false
			for _, existing := range valuesByName[name] {
				if existing == value {
					exists = true
					break
				}
			}
			if !exists {
				valuesByName[name] = append(valuesByName[name], value)
			}
		}
	}
	out := make([]catalog.OptionDef, 0, len(names))
	for _, name := range names {
		out = append(out, catalog.OptionDef{Name: name, Values: valuesByName[name]})
	}
	return out
}

// variantTitle joins option values the way storefronts label variants.
func variantTitle(values []catalog.OptionValue) string {
	parts := make([]string, 0, len(values))
	for _, ov := range values {
		parts = append(parts, ov.Value)
	}
	return strings.Join(parts, " / ")
}

// taxonomyFromPrimary builds a single-path category set from a
// ">"-delimited category cell.
func taxonomyFromPrimary(category string) *catalog.CategorySet {
	cleaned := strings.TrimSpace(category)
	if cleaned == "" {
		return &catalog.CategorySet{}
	}
	var parts []string
	for _, token := range strings.Split(cleaned, ">") {
		if t := strings.TrimSpace(token); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		parts = []string{cleaned}
	}
	return &catalog.CategorySet{Paths: [][]string{parts}, Primary: parts}
}

func anyVariantTracked(variants []catalog.Variant) bool {
	for i := range variants {
		inv := variants[i].Inventory
		if inv != nil && inv.TrackQuantity != nil && *inv.TrackQuantity {
			return true
		}
	}
	return false
}

// headerSet folds column lists into one membership set.
func headerSet(columnLists ...[]string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, columns := range columnLists {
		for _, col := range columns {
			out[col] = struct{}{}
		}
	}
	return out
}

// applyExtraProductFields maps columns outside the platform's known sheet
// onto typed product fields by normalized header token; anything unmapped is
// preserved under a "csv:<token>" identifier. Headers are walked in file
// order so collisions resolve deterministically.
func applyExtraProductFields(p *catalog.Product, headers []string, row csvio.Record, known map[string]struct{}) {
	if p.SEO == nil {
		p.SEO = &catalog.SEO{}
	}
	if p.Source == nil {
		p.Source = catalog.NewSourceRef("", "", "", "")
	}
	if p.Taxonomy == nil {
		p.Taxonomy = &catalog.CategorySet{}
	}
	ids := p.EnsureIdentifiers()

	for _, header := range headers {
		if _, ok := known[header]; ok {
			continue
		}
		value := row.Get(header)
		if value == "" {
			continue
		}
		switch token := csvio.HeaderToken(header); token {
		case "title":
			p.Title = value
		case "description":
			p.Description = value
		case "brand":
			p.Brand = value
		case "vendor":
			p.Vendor = value
		case "tags":
			p.Tags = csvio.SplitTokens(value, ",")
		case "seo_title":
			p.SEO.Title = value
		case "seo_description":
			p.SEO.Description = value
		case "source_id":
			p.Source.ID = value
		case "source_slug":
			p.Source.Slug = value
		case "source_url":
			p.Source.URL = value
		case "requires_shipping":
			if parsed := csvio.ParseBool(value); parsed != nil {
				p.RequiresShipping = parsed
			} else {
				setIdentifier(ids, token, value)
			}
		case "track_quantity":
			if parsed := csvio.ParseBool(value); parsed != nil {
				p.TrackQuantity = parsed
			} else {
				setIdentifier(ids, token, value)
			}
		case "is_digital":
			if parsed := csvio.ParseBool(value); parsed != nil {
				p.IsDigital = *parsed
			} else {
				setIdentifier(ids, token, value)
			}
		default:
			setIdentifier(ids, token, value)
		}
	}
}

// applyExtraVariantFields is the variant-level counterpart of
// applyExtraProductFields.
func applyExtraVariantFields(v *catalog.Variant, headers []string, row csvio.Record, known map[string]struct{}) {
	ids := v.EnsureIdentifiers()
	for _, header := range headers {
		if _, ok := known[header]; ok {
			continue
		}
		value := row.Get(header)
		if value == "" {
			continue
		}
		token := csvio.HeaderToken(header)
		switch token {
		case "variant_sku", "sku":
			if v.SKU == "" {
				v.SKU = value
				continue
			}
		case "variant_title", "title":
			if v.Title == "" {
				v.Title = value
				continue
			}
		case "variant_id", "id":
			if v.ID == "" {
				v.ID = value
				continue
			}
		case "variant_inventory_qty", "inventory_quantity":
			if qty := csvio.ParseInt(value); qty != nil {
				if v.Inventory == nil {
					v.Inventory = &catalog.Inventory{}
				}
				v.Inventory.Quantity = qty
				v.Inventory.TrackQuantity = boolPtr(true)
				v.Inventory.Available = boolPtr(*qty > 0)
				continue
			}
		case "variant_available", "available":
			if parsed := csvio.ParseBool(value); parsed != nil {
				if v.Inventory == nil {
					v.Inventory = &catalog.Inventory{}
				}
				v.Inventory.Available = parsed
				continue
			}
		case "variant_price", "price":
			if v.Price == nil {
				v.Price = catalog.PriceFromString(value, "")
				continue
			}
		}
		setIdentifier(ids, token, value)
	}
}

func setIdentifier(ids catalog.Identifiers, token, value string) {
	key := "csv:" + token
	if _, exists := ids[key]; exists {
		return
	}
	ids.Set(key, value)
}

// stampFirstProduct records single-product selection provenance.
func stampFirstProduct(p *catalog.Product, platform string, detectedCount int, selectedKey string) {
	p.StampCSVProvenance(catalog.CSVProvenance{
		SourcePlatform:       platform,
		SelectionPolicy:      catalog.SelectionFirstProduct,
		DetectedProductCount: detectedCount,
		SelectedProductKey:   selectedKey,
	})
}

// patchBatchProvenance re-stamps each product so its provenance reflects the
// whole batch rather than its own segment.
func patchBatchProvenance(products []*catalog.Product, detectedCount int) {
	for _, p := range products {
		prov, _ := p.CSVProvenanceOf()
		prov.SelectionPolicy = catalog.SelectionBatchAll
		prov.DetectedProductCount = detectedCount
		if prov.SourcePlatform == "" {
			prov.SourcePlatform = p.SourcePlatform()
		}
		p.StampCSVProvenance(prov)
	}
}
