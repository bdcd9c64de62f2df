package urlimport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/shelfshift/internal/catalog"
	"github.com/JonMunkholm/shelfshift/internal/detect"
)

// shopifyClient imports from the public product JSON every Shopify store
// serves at /products/<handle>.json. When a store disables that endpoint
// (404) or returns something unparseable, the product page's JSON-LD is
// scraped instead.
type shopifyClient struct {
	http *fetcher
}

func (c *shopifyClient) Platform() string { return detect.Shopify }

func (c *shopifyClient) Fetch(ctx context.Context, productURL string) (*catalog.Product, error) {
	parsed, err := url.Parse(productURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	handle := detect.ShopifySlugFromPath(parsed.Path)
	if handle == "" {
		return nil, fmt.Errorf("not a shopify product path: %s", parsed.Path)
	}

	apiURL := fmt.Sprintf("%s://%s/products/%s.json", parsed.Scheme, parsed.Host, handle)
	body, err := c.http.get(ctx, apiURL, nil)
	if err != nil {
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == 404 {
			return c.fetchFromHTML(ctx, productURL, handle)
		}
		return nil, err
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return c.fetchFromHTML(ctx, productURL, handle)
	}
	data, ok := payload["product"].(map[string]any)
	if !ok {
		// Some stores return the product object bare.
		data = payload
	}
	return c.parseProductJSON(data, payload, handle, productURL)
}

func (c *shopifyClient) fetchFromHTML(ctx context.Context, productURL, handle string) (*catalog.Product, error) {
	body, err := c.http.get(ctx, productURL, nil)
	if err != nil {
		return nil, err
	}
	nodes, err := productJSONLDNodes(body)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("no product JSON-LD found in shopify HTML")
	}
	return productFromJSONLD(nodes[0], detect.Shopify, productURL, handle), nil
}

// shopifyOptionNames returns the declared option axis names in position
// order, for mapping the flat option1..option3 variant fields.
func shopifyOptionNames(data map[string]any) []string {
	raw, ok := data["options"].([]any)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		names = append(names, stringValue(obj["name"]))
	}
	return names
}

func shopifyOptionDefs(data map[string]any) []catalog.OptionDef {
	raw, ok := data["options"].([]any)
	if !ok {
		return nil
	}
	var defs []catalog.OptionDef
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name := stringValue(obj["name"])
		values := extractNames(obj["values"], false)
		if name != "" && len(values) > 0 {
			defs = append(defs, catalog.OptionDef{Name: name, Values: values})
		}
	}
	return defs
}

func (c *shopifyClient) parseProductJSON(data, payload map[string]any, handle, sourceURL string) (*catalog.Product, error) {
	title := stringValue(data["title"])
	description := stringValue(data["body_html"])
	productID := tokenValue(data["id"])

	rawVariants, _ := data["variants"].([]any)
	rawImages, _ := data["images"].([]any)
	optionNames := shopifyOptionNames(data)

	// Variant SKUs keyed by variant id, for image variant attribution.
	skuByVariantID := map[string]string{}
	for _, item := range rawVariants {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if id, sku := tokenValue(obj["id"]), stringValue(obj["sku"]); id != "" && sku != "" {
			skuByVariantID[id] = sku
		}
	}
	imageByID := map[string]map[string]any{}
	for _, item := range rawImages {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if id := tokenValue(obj["id"]); id != "" {
			imageByID[id] = obj
		}
	}

	var defaultAmount *decimal.Decimal
	var defaultCompareAt *decimal.Decimal
	currency := "USD"
	if len(rawVariants) > 0 {
		if first, ok := rawVariants[0].(map[string]any); ok {
			defaultAmount = moneyValue(first["price"])
			defaultCompareAt = moneyValue(first["compare_at_price"])
			currency = catalog.CurrencyOrDefault(stringValue(first["price_currency"]), currency)
		}
	}

	variants := make([]catalog.Variant, 0, len(rawVariants))
	for _, item := range rawVariants {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		variants = append(variants, c.parseVariant(obj, optionNames, imageByID, currency))
	}
	variants = appendDefaultVariant(variants, &catalog.Variant{
		ID:    productID,
		Price: makePrice(defaultAmount, currency, nil),
		Inventory: &catalog.Inventory{
			TrackQuantity: boolPtr(false),
			Available:     boolPtr(true),
		},
	})

	brand := stringValue(data["vendor"])
	category := stringValue(data["product_type"])
	tags := extractNames(data["tags"], true)

	// A "digital" product type or tag marks the product as non-physical.
	isDigital := strings.Contains(strings.ToLower(category), "digital")
	if !isDigital {
		for _, tag := range tags {
			if strings.Contains(strings.ToLower(tag), "digital") {
				isDigital = true
				break
			}
		}
	}

	media := shopifyProductMedia(rawImages, skuByVariantID)
	if len(media) == 0 {
		if image, ok := data["image"].(map[string]any); ok {
			if u := urlValue(image["src"]); u != "" {
				media = []catalog.Media{{
					URL:       u,
					Type:      catalog.MediaImage,
					Alt:       stringValue(image["alt"]),
					Position:  1,
					IsPrimary: true,
				}}
			}
		}
	}

	var weight *catalog.Weight
	if grams := variantGrams(rawVariants); grams != nil {
		weight = &catalog.Weight{Value: grams, Unit: "g"}
	}

	return &catalog.Product{
		Title:            title,
		Description:      description,
		Brand:            brand,
		Vendor:           brand,
		Tags:             tags,
		Variants:         variants,
		Options:          shopifyOptionDefs(data),
		Price:            makePrice(defaultAmount, currency, defaultCompareAt),
		Weight:           weight,
		Media:            media,
		RequiresShipping: boolPtr(!isDigital),
		TrackQuantity:    boolPtr(true),
		IsDigital:        isDigital,
		Raw:              payload,
		Taxonomy:         singlePathTaxonomy(category),
		SEO: &catalog.SEO{
			Title:       title,
			Description: metaDescription(description),
		},
		Identifiers: identifiersFrom(map[string]string{
			"source_product_id": productID,
			"handle":            handle,
		}),
		Source: catalog.NewSourceRef(detect.Shopify, productID, handle, sourceURL),
	}, nil
}

func (c *shopifyClient) parseVariant(obj map[string]any, optionNames []string, imageByID map[string]map[string]any, currency string) catalog.Variant {
	variantID := tokenValue(obj["id"])
	sku := stringValue(obj["sku"])

	var optionValues []catalog.OptionValue
	for i, key := range []string{"option1", "option2", "option3"} {
		value := stringValue(obj[key])
		if value == "" || i >= len(optionNames) || optionNames[i] == "" {
			continue
		}
		optionValues = append(optionValues, catalog.OptionValue{Name: optionNames[i], Value: value})
	}

	quantity := 0
	if q := intValue(obj["inventory_quantity"]); q != nil && *q > 0 {
		quantity = *q
	}

	// Non-empty inventory_management means Shopify tracks stock for
	// this variant. inventory_policy "continue" allows overselling.
	management := strings.ToLower(stringValue(obj["inventory_management"]))
	trackQuantity := management != "" && management != "null"
	var allowBackorder *bool
	if policy := strings.ToLower(stringValue(obj["inventory_policy"])); policy != "" {
		allowBackorder = boolPtr(policy == "continue")
	}

	available := boolValue(obj["available"])
	if available == nil {
		available = boolPtr(true)
	}

	var media []catalog.Media
	if image := imageByID[tokenValue(obj["image_id"])]; image != nil {
		if u := urlValue(image["src"]); u != "" {
			m := catalog.Media{
				URL:       u,
				Type:      catalog.MediaImage,
				Alt:       stringValue(image["alt"]),
				Position:  1,
				IsPrimary: true,
			}
			if sku != "" {
				m.VariantSKUs = []string{sku}
			}
			media = []catalog.Media{m}
		}
	}

	var weight *catalog.Weight
	if grams := moneyValue(obj["grams"]); grams != nil {
		weight = &catalog.Weight{Value: grams, Unit: "g"}
	}

	return catalog.Variant{
		ID:           variantID,
		SKU:          firstNonEmpty(sku, variantID),
		Title:        stringValue(obj["title"]),
		OptionValues: optionValues,
		Price: makePrice(
			moneyValue(obj["price"]),
			catalog.CurrencyOrDefault(stringValue(obj["price_currency"]), currency),
			moneyValue(obj["compare_at_price"]),
		),
		Weight: weight,
		Media:  media,
		Inventory: &catalog.Inventory{
			TrackQuantity:  boolPtr(trackQuantity),
			Quantity:       &quantity,
			Available:      available,
			AllowBackorder: allowBackorder,
		},
		Identifiers: identifiersFrom(map[string]string{
			"source_variant_id": variantID,
			"sku":               sku,
			"barcode":           stringValue(obj["barcode"]),
		}),
	}
}

// shopifyProductMedia converts the product image list, attributing each
// image to the SKUs of the variants that reference it.
func shopifyProductMedia(rawImages []any, skuByVariantID map[string]string) []catalog.Media {
	var media []catalog.Media
	for _, item := range rawImages {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		imageURL := urlValue(obj["src"])
		if imageURL == "" {
			continue
		}
		var variantSKUs []string
		if ids, ok := obj["variant_ids"].([]any); ok {
			for _, rawID := range ids {
				if sku := skuByVariantID[tokenValue(rawID)]; sku != "" {
					variantSKUs = append(variantSKUs, sku)
				}
			}
		}
		position := 0
		if p := intValue(obj["position"]); p != nil {
			position = *p
		}
		media = append(media, catalog.Media{
			URL:         imageURL,
			Type:        catalog.MediaImage,
			Alt:         stringValue(obj["alt"]),
			Position:    position,
			IsPrimary:   position == 1,
			VariantSKUs: variantSKUs,
		})
	}
	return media
}

// variantGrams returns the first variant's weight in grams, when present.
func variantGrams(rawVariants []any) *decimal.Decimal {
	if len(rawVariants) == 0 {
		return nil
	}
	obj, ok := rawVariants[0].(map[string]any)
	if !ok {
		return nil
	}
	grams := moneyValue(obj["grams"])
	if grams == nil || grams.IsZero() {
		return nil
	}
	return grams
}
