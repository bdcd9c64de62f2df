package urlimport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/shelfshift/internal/catalog"
)

// jsonld.go is the shared fallback path: when a storefront's JSON endpoint
// is unavailable, clients scrape the HTML page for schema.org Product
// nodes embedded as application/ld+json and map the richest one onto the
// canonical model.

var jsonLDImageKeys = []string{"url", "src", "assetUrl", "imageUrl", "contentUrl"}

// productJSONLDNodes returns every schema.org Product node found in the
// page's ld+json script blocks, in document order. Malformed blocks are
// skipped, not fatal; many themes ship at least one broken script tag.
func productJSONLDNodes(html []byte) ([]map[string]any, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var products []map[string]any
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var data any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &data); err != nil {
			return
		}
		products = append(products, collectProductNodes(data)...)
	})
	return products, nil
}

// collectProductNodes walks a decoded ld+json document for Product nodes,
// descending into top-level arrays and @graph containers.
func collectProductNodes(node any) []map[string]any {
	var out []map[string]any
	switch t := node.(type) {
	case map[string]any:
		if isProductType(t["@type"]) {
			out = append(out, t)
		}
		if graph, ok := t["@graph"].([]any); ok {
			for _, item := range graph {
				out = append(out, collectProductNodes(item)...)
			}
		}
	case []any:
		for _, item := range t {
			out = append(out, collectProductNodes(item)...)
		}
	}
	return out
}

func isProductType(v any) bool {
	switch t := v.(type) {
	case string:
		return t == "Product"
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s == "Product" {
				return true
			}
		}
	}
	return false
}

// offerList flattens the offers field, which schema.org allows as a single
// Offer, an AggregateOffer wrapping a nested list, or a bare list.
func offerList(raw any) []any {
	switch t := raw.(type) {
	case []any:
		return t
	case map[string]any:
		if nested, ok := t["offers"].([]any); ok {
			return nested
		}
		return []any{t}
	}
	return nil
}

func offerMoney(raw any, rawCurrency any) (*decimal.Decimal, string) {
	currency := stringValue(rawCurrency)
	if obj, ok := raw.(map[string]any); ok {
		if currency == "" {
			currency = firstNonEmpty(stringValue(obj["currency"]), stringValue(obj["currencyCode"]))
		}
		for _, key := range []string{"value", "amount", "price"} {
			if amount := moneyValue(obj[key]); amount != nil {
				return amount, currency
			}
		}
		return nil, currency
	}
	return moneyValue(raw), currency
}

func offerAvailability(raw any) *bool {
	text := strings.ToLower(stringValue(raw))
	if text == "" {
		return nil
	}
	if strings.Contains(text, "instock") {
		return boolPtr(true)
	}
	if strings.Contains(text, "outofstock") {
		return boolPtr(false)
	}
	return nil
}

// Offer-level option axes schema.org defines directly on Offer nodes.
var offerOptionKeys = []struct{ key, name string }{
	{"color", "Color"},
	{"size", "Size"},
	{"material", "Material"},
	{"pattern", "Pattern"},
}

// offerVariant maps one Offer node onto a variant. Returns nil when the
// offer carries no usable signal at all.
func offerVariant(raw any) *catalog.Variant {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil
	}

	title := firstNonEmpty(stringValue(obj["name"]), stringValue(obj["description"]))
	sku := stringValue(obj["sku"])
	variantID := firstNonEmpty(stringValue(obj["@id"]), stringValue(obj["url"]), sku)

	rawPrice := obj["price"]
	if rawPrice == nil {
		if spec, ok := obj["priceSpecification"].(map[string]any); ok {
			rawPrice = spec["price"]
		}
	}
	amount, currency := offerMoney(rawPrice, obj["priceCurrency"])
	available := offerAvailability(obj["availability"])

	var optionValues []catalog.OptionValue
	for _, axis := range offerOptionKeys {
		if value := stringValue(obj[axis.key]); value != "" {
			optionValues = append(optionValues, catalog.OptionValue{Name: axis.name, Value: value})
		}
	}

	image := ""
	if images := extractImageURLs(obj["image"], true, jsonLDImageKeys); len(images) > 0 {
		image = images[0]
	}

	if variantID == "" && sku == "" && title == "" && amount == nil &&
		available == nil && image == "" && len(optionValues) == 0 {
		return nil
	}

	return &catalog.Variant{
		ID:           variantID,
		SKU:          sku,
		Title:        title,
		Price:        makePrice(amount, currency, nil),
		Media:        variantImageMedia(image, sku),
		OptionValues: optionValues,
		Inventory: &catalog.Inventory{
			TrackQuantity: boolPtr(false),
			Available:     available,
		},
		Identifiers: identifiersFrom(map[string]string{
			"source_variant_id": variantID,
			"sku":               sku,
		}),
	}
}

// optionDefsFromVariants collects product options from variant option
// values in first-seen order.
func optionDefsFromVariants(variants []catalog.Variant) []catalog.OptionDef {
	var defs []catalog.OptionDef
	index := map[string]int{}
	for _, v := range variants {
		for _, ov := range v.OptionValues {
			if ov.Name == "" || ov.Value == "" {
				continue
			}
			i, ok := index[ov.Name]
			if !ok {
				index[ov.Name] = len(defs)
				defs = append(defs, catalog.OptionDef{Name: ov.Name})
				i = len(defs) - 1
			}
			defs[i].Values = append(defs[i].Values, ov.Value)
		}
	}
	for i := range defs {
		defs[i].Values = dedupeStrings(defs[i].Values)
	}
	return defs
}

// applyFallbackOption distinguishes multi-variant products whose source
// exposed no option axes by synthesizing a single "Option" axis from
// variant titles. Single variants need no axis.
func applyFallbackOption(variants []catalog.Variant) []catalog.OptionDef {
	if len(variants) <= 1 {
		return nil
	}
	values := make([]string, 0, len(variants))
	for i := range variants {
		value := firstNonEmpty(variants[i].Title, variants[i].SKU, variants[i].ID,
			fmt.Sprintf("Variant %d", i+1))
		variants[i].OptionValues = []catalog.OptionValue{{Name: "Option", Value: value}}
		values = append(values, value)
	}
	return []catalog.OptionDef{{Name: "Option", Values: dedupeStrings(values)}}
}

func brandName(raw any) string {
	switch t := raw.(type) {
	case map[string]any:
		return stringValue(t["name"])
	case string:
		return strings.TrimSpace(t)
	}
	return ""
}

// productFromJSONLD maps a schema.org Product node onto the canonical
// model. Shared by every client's HTML fallback; platform and slug come
// from URL detection.
func productFromJSONLD(node map[string]any, platform, sourceURL, slug string) *catalog.Product {
	title := stringValue(node["name"])
	description := stringValue(node["description"])
	images := extractImageURLs(node["image"], true, jsonLDImageKeys)

	var variants []catalog.Variant
	for _, rawOffer := range offerList(node["offers"]) {
		if v := offerVariant(rawOffer); v != nil {
			variants = append(variants, *v)
		}
	}

	defaultAmount, defaultCurrency := firstVariantMoney(variants)
	if defaultAmount == nil {
		if aggregate, ok := node["offers"].(map[string]any); ok {
			defaultAmount = moneyValue(aggregate["lowPrice"])
			defaultCurrency = catalog.CurrencyOrDefault(stringValue(aggregate["priceCurrency"]), defaultCurrency)
		}
	}

	optionDefs := optionDefsFromVariants(variants)
	if len(optionDefs) == 0 {
		optionDefs = applyFallbackOption(variants)
	}
	for i := range variants {
		if u := variantPrimaryImageURL(&variants[i]); u != "" {
			images = dedupeStrings(append(images, u))
		}
	}

	productID := firstNonEmpty(
		tokenValue(node["productID"]),
		stringValue(node["sku"]),
		stringValue(node["mpn"]),
		slug,
	)
	variants = appendDefaultVariant(variants, &catalog.Variant{
		ID:    productID,
		Price: makePrice(defaultAmount, defaultCurrency, nil),
		Inventory: &catalog.Inventory{
			TrackQuantity: boolPtr(false),
			Available:     boolPtr(true),
		},
	})

	isDigital := false
	for _, key := range []string{"isDigital", "isVirtual", "isDownloadable"} {
		if b := boolValue(node[key]); b != nil && *b {
			isDigital = true
		}
	}

	brand := brandName(node["brand"])
	return &catalog.Product{
		Title:            title,
		Description:      description,
		Brand:            brand,
		Vendor:           brand,
		Tags:             extractNames(node["keywords"], true),
		Variants:         variants,
		Options:          optionDefs,
		Price:            makePrice(defaultAmount, defaultCurrency, nil),
		Media:            imageMedia(images),
		RequiresShipping: boolPtr(!isDigital),
		TrackQuantity:    boolPtr(true),
		IsDigital:        isDigital,
		Raw:              node,
		Taxonomy:         singlePathTaxonomy(stringValue(node["category"])),
		SEO: &catalog.SEO{
			Title:       title,
			Description: metaDescription(description),
		},
		Identifiers: identifiersFrom(map[string]string{
			"source_product_id": productID,
			"sku":               stringValue(node["sku"]),
			"mpn":               stringValue(node["mpn"]),
		}),
		Source: catalog.NewSourceRef(platform, productID, slug, sourceURL),
	}
}
