package urlimport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/shelfshift/internal/catalog"
	"github.com/JonMunkholm/shelfshift/internal/detect"
)

// aliexpressClient imports through the aliexpress-datahub RapidAPI
// service; AliExpress has no public product JSON and its HTML is rendered
// client-side. Requires a configured RapidAPI key.
type aliexpressClient struct {
	http        *fetcher
	rapidAPIKey string
	apiHost     string
}

const aliexpressAPIHost = "aliexpress-datahub.p.rapidapi.com"

func (c *aliexpressClient) Platform() string { return detect.AliExpress }

var (
	aliexpressItemIDRe = regexp.MustCompile(`(?i)/(?:item|i)/(\d+)\.html(?:[/?#]|$)`)
	// Share links tuck the item id into an x_object_id query parameter,
	// sometimes double-escaped.
	aliexpressXObjectRe = regexp.MustCompile(`x_object_id(?:%25)?(?:%3A|%3D|:|=)(\d{12,20})`)
)

func aliexpressItemID(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	for _, values := range parsed.Query() {
		for _, value := range values {
			if m := aliexpressXObjectRe.FindStringSubmatch(value); m != nil {
				return m[1]
			}
			if decoded, err := url.QueryUnescape(value); err == nil {
				if m := aliexpressXObjectRe.FindStringSubmatch(decoded); m != nil {
					return m[1]
				}
			}
		}
	}
	if m := aliexpressItemIDRe.FindStringSubmatch(parsed.Path); m != nil {
		return m[1]
	}
	return ""
}

func (c *aliexpressClient) apiGet(ctx context.Context, endpoint, itemID string) (map[string]any, error) {
	host := c.apiHost
	if host == "" {
		host = aliexpressAPIHost
	}
	apiURL := fmt.Sprintf("https://%s%s?itemId=%s", host, endpoint, url.QueryEscape(itemID))
	header := http.Header{}
	header.Set("X-RapidAPI-Key", c.rapidAPIKey)
	header.Set("X-RapidAPI-Host", aliexpressAPIHost)

	var payload map[string]any
	if err := c.http.getJSON(ctx, apiURL, header, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func aliexpressItem(payload map[string]any) map[string]any {
	result, _ := payload["result"].(map[string]any)
	item, _ := result["item"].(map[string]any)
	return item
}

func (c *aliexpressClient) Fetch(ctx context.Context, productURL string) (*catalog.Product, error) {
	if c.rapidAPIKey == "" {
		return nil, ErrMissingRapidAPIKey
	}
	itemID := aliexpressItemID(productURL)
	if itemID == "" {
		return nil, fmt.Errorf("aliexpress item id not found in URL: %s", productURL)
	}

	payload, err := c.apiGet(ctx, "/item_detail_6", itemID)
	if err != nil {
		return nil, err
	}
	// The primary endpoint occasionally returns an empty shell; the older
	// endpoint still resolves most of those items.
	if item := aliexpressItem(payload); stringValue(item["title"]) == "" {
		if fallback, err := c.apiGet(ctx, "/item_detail_2", itemID); err == nil {
			if item := aliexpressItem(fallback); stringValue(item["title"]) != "" {
				payload = fallback
			}
		}
	}

	p := parseAliexpressResult(payload, itemID)
	finalizeProduct(p, detect.AliExpress, productURL)
	return p, nil
}

var weightNumberRe = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)

// aliexpressWeightGrams parses free-text weight properties ("0.25kg",
// "300 g"). Unitless values up to 50 are assumed to be kilograms; sellers
// rarely list sub-50-gram package weights without a unit.
func aliexpressWeightGrams(raw string) *decimal.Decimal {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil
	}
	match := weightNumberRe.FindString(text)
	if match == "" {
		return nil
	}
	value, err := decimal.NewFromString(match)
	if err != nil {
		return nil
	}

	lowered := strings.ToLower(text)
	switch {
	case strings.Contains(lowered, "kg"):
		value = value.Mul(decimal.NewFromInt(1000))
	case strings.Contains(lowered, " g") || strings.HasSuffix(lowered, "g"):
		// already grams
	case value.IsPositive() && value.LessThanOrEqual(decimal.NewFromInt(50)):
		value = value.Mul(decimal.NewFromInt(1000))
	}
	rounded := value.Round(0)
	return &rounded
}

// aliexpressPropLookup indexes the option axes by their numeric pid so
// variant propMap strings ("14:29;5:361386") can be resolved.
type aliexpressProp struct {
	name   string
	values map[string]map[string]any
}

func parseAliexpressResult(payload map[string]any, itemID string) *catalog.Product {
	result, _ := payload["result"].(map[string]any)
	item, _ := result["item"].(map[string]any)

	title := stringValue(item["title"])
	description := ""
	if desc, ok := item["description"].(map[string]any); ok {
		description = stringValue(desc["html"])
	}

	currency := "USD"
	if settings, ok := result["settings"].(map[string]any); ok {
		currency = catalog.CurrencyOrDefault(stringValue(settings["currency"]), currency)
	}

	skuData, _ := item["sku"].(map[string]any)
	skuDef, _ := skuData["def"].(map[string]any)
	defaultAmount := aliexpressPrice(skuDef["promotionPrice"])
	if defaultAmount == nil {
		defaultAmount = aliexpressPrice(skuDef["price"])
	}

	var images []string
	if rawImages, ok := item["images"].([]any); ok {
		for _, raw := range rawImages {
			if u := normalizeURLString(stringValue(raw)); u != "" {
				images = append(images, u)
			}
		}
	}
	images = dedupeStrings(images)

	var optionDefs []catalog.OptionDef
	propLookup := map[string]aliexpressProp{}
	if rawProps, ok := skuData["props"].([]any); ok {
		for _, rawProp := range rawProps {
			obj, ok := rawProp.(map[string]any)
			if !ok {
				continue
			}
			name := stringValue(obj["name"])
			rawValues, _ := obj["values"].([]any)
			if name == "" || len(rawValues) == 0 {
				continue
			}

			var names []string
			valuesByVid := map[string]map[string]any{}
			for _, rawValue := range rawValues {
				value, ok := rawValue.(map[string]any)
				if !ok {
					continue
				}
				if n := stringValue(value["name"]); n != "" {
					names = append(names, n)
				}
				if vid := tokenValue(value["vid"]); vid != "" {
					valuesByVid[vid] = value
				}
			}
			if len(names) > 0 {
				optionDefs = append(optionDefs, catalog.OptionDef{Name: name, Values: dedupeStrings(names)})
			}
			if pid := tokenValue(obj["pid"]); pid != "" {
				propLookup[pid] = aliexpressProp{name: name, values: valuesByVid}
			}
		}
	}

	skuImages, _ := skuData["skuImages"].(map[string]any)

	var variants []catalog.Variant
	if rawSKUs, ok := skuData["base"].([]any); ok {
		for _, rawSKU := range rawSKUs {
			obj, ok := rawSKU.(map[string]any)
			if !ok {
				continue
			}

			var optionValues []catalog.OptionValue
			variantImage := ""
			propMap := stringValue(obj["propMap"])
			for _, pair := range strings.Split(propMap, ";") {
				pid, vid, ok := strings.Cut(pair, ":")
				if !ok {
					continue
				}
				prop, ok := propLookup[pid]
				if !ok {
					continue
				}
				value := prop.values[vid]
				if value == nil {
					continue
				}
				if name := stringValue(value["name"]); name != "" {
					optionValues = append(optionValues, catalog.OptionValue{Name: prop.name, Value: name})
				}
				if variantImage == "" {
					variantImage = firstNonEmpty(
						urlValue(skuImages[pid+":"+vid]),
						urlValue(value["image"]),
					)
				}
			}

			amount := aliexpressPrice(obj["promotionPrice"])
			if amount == nil {
				amount = aliexpressPrice(obj["price"])
			}
			if amount == nil {
				amount = defaultAmount
			}

			quantity := 0
			if q := intValue(obj["quantity"]); q != nil {
				quantity = *q
			}

			skuID := tokenValue(obj["skuId"])
			canonicalSKU := ""
			if skuID != "" {
				canonicalSKU = fmt.Sprintf("AE:%s:%s", itemID, skuID)
			}

			variants = append(variants, catalog.Variant{
				ID:           skuID,
				SKU:          canonicalSKU,
				OptionValues: optionValues,
				Price:        makePrice(amount, currency, nil),
				Media:        variantImageMedia(variantImage, canonicalSKU),
				Inventory: &catalog.Inventory{
					TrackQuantity: boolPtr(true),
					Quantity:      &quantity,
					Available:     boolPtr(quantity > 0),
				},
				Identifiers: identifiersFrom(map[string]string{
					"source_variant_id": skuID,
					"sku":               canonicalSKU,
				}),
			})

			if variantImage != "" {
				images = dedupeStrings(append(images, variantImage))
			}
		}
	}

	if defaultAmount != nil {
		available := boolValue(item["available"])
		if available == nil {
			available = boolPtr(true)
		}
		variants = appendDefaultVariant(variants, &catalog.Variant{
			ID:        itemID,
			Price:     makePrice(defaultAmount, currency, nil),
			Inventory: &catalog.Inventory{Available: available},
		})
	}

	brand := ""
	category := "Electronics"
	var weightGrams *decimal.Decimal
	if properties, ok := item["properties"].(map[string]any); ok {
		if list, ok := properties["list"].([]any); ok {
			for _, rawProp := range list {
				obj, ok := rawProp.(map[string]any)
				if !ok {
					continue
				}
				name := strings.ToLower(stringValue(obj["name"]))
				value := stringValue(obj["value"])
				if name == "" || value == "" {
					continue
				}
				switch name {
				case "brand name", "brand":
					brand = value
				case "type":
					category = value
				case "weight":
					if weightGrams == nil {
						weightGrams = aliexpressWeightGrams(value)
					}
				}
			}
		}
	}

	vendor := ""
	if seller, ok := result["seller"].(map[string]any); ok {
		vendor = stringValue(seller["storeTitle"])
	}
	if weightGrams == nil {
		if delivery, ok := result["delivery"].(map[string]any); ok {
			if pkg, ok := delivery["packageDetail"].(map[string]any); ok {
				weightGrams = aliexpressWeightGrams(tokenValue(pkg["weight"]))
			}
		}
	}
	var weight *catalog.Weight
	if weightGrams != nil {
		weight = &catalog.Weight{Value: weightGrams, Unit: "g"}
	}

	seoDescription := ""
	if len(description) > 160 {
		seoDescription = metaDescription(description)
	}

	return &catalog.Product{
		Title:            title,
		Description:      description,
		Brand:            brand,
		Vendor:           vendor,
		Variants:         variants,
		Options:          optionDefs,
		Price:            makePrice(defaultAmount, currency, nil),
		Weight:           weight,
		Media:            imageMedia(images),
		RequiresShipping: boolPtr(true),
		TrackQuantity:    boolPtr(true),
		Raw:              payload,
		Taxonomy:         singlePathTaxonomy(category),
		SEO: &catalog.SEO{
			Title:       title,
			Description: seoDescription,
		},
		Identifiers: identifiersFrom(map[string]string{
			"source_product_id": itemID,
		}),
		Source: &catalog.SourceRef{
			Platform: detect.AliExpress,
			ID:       itemID,
			Slug:     "aliexpress-" + itemID,
		},
	}
}

// aliexpressPrice parses price fields that arrive as "$12.34", "12.34",
// numbers, or ranges like "12.34 - 15.00" (lowest bound wins).
func aliexpressPrice(raw any) *decimal.Decimal {
	switch t := raw.(type) {
	case string:
		text := strings.ReplaceAll(t, "$", "")
		if low, _, ok := strings.Cut(text, " - "); ok {
			text = low
		}
		return catalog.ParseMoney(text)
	case float64:
		return catalog.DecimalFromFloat(t)
	}
	return nil
}
