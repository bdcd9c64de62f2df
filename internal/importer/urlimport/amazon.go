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

// amazonClient imports through the real-time-amazon-data RapidAPI service.
// Amazon serves no structured product JSON and aggressively blocks
// scraping, so a configured RapidAPI key is required.
type amazonClient struct {
	http        *fetcher
	rapidAPIKey string
	apiHost     string
}

const amazonAPIHost = "real-time-amazon-data.p.rapidapi.com"

func (c *amazonClient) Platform() string { return detect.Amazon }

// Marketplace country codes by domain suffix, most specific first so
// amazon.com.mx does not match amazon.com.
var amazonMarketplaces = []struct {
	suffix  string
	country string
}{
	{"amazon.com.mx", "MX"},
	{"amazon.com.br", "BR"},
	{"amazon.com.be", "BE"},
	{"amazon.com.tr", "TR"},
	{"amazon.com.au", "AU"},
	{"amazon.co.uk", "GB"},
	{"amazon.co.jp", "JP"},
	{"amazon.co.za", "ZA"},
	{"amazon.com", "US"},
	{"amazon.ca", "CA"},
	{"amazon.ie", "IE"},
	{"amazon.de", "DE"},
	{"amazon.fr", "FR"},
	{"amazon.it", "IT"},
	{"amazon.es", "ES"},
	{"amazon.nl", "NL"},
	{"amazon.pl", "PL"},
	{"amazon.se", "SE"},
	{"amazon.at", "AT"},
	{"amazon.in", "IN"},
	{"amazon.cn", "CN"},
	{"amazon.sg", "SG"},
	{"amazon.ae", "AE"},
	{"amazon.sa", "SA"},
	{"amazon.eg", "EG"},
}

func amazonCountryFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "US"
	}
	host := strings.ToLower(parsed.Host)
	for _, marketplace := range amazonMarketplaces {
		if strings.HasSuffix(host, marketplace.suffix) {
			return marketplace.country
		}
	}
	return "US"
}

func (c *amazonClient) Fetch(ctx context.Context, productURL string) (*catalog.Product, error) {
	if c.rapidAPIKey == "" {
		return nil, ErrMissingRapidAPIKey
	}
	det := detect.DetectProductURL(productURL)
	if det.ProductID == "" {
		return nil, fmt.Errorf("ASIN not found in URL: %s", productURL)
	}
	asin := det.ProductID
	country := amazonCountryFromURL(productURL)

	host := c.apiHost
	if host == "" {
		host = amazonAPIHost
	}
	apiURL := fmt.Sprintf("https://%s/product-details?asin=%s&country=%s",
		host, url.QueryEscape(asin), url.QueryEscape(country))
	header := http.Header{}
	header.Set("X-RapidAPI-Key", c.rapidAPIKey)
	header.Set("X-RapidAPI-Host", amazonAPIHost)

	var payload map[string]any
	if err := c.http.getJSON(ctx, apiURL, header, &payload); err != nil {
		return nil, err
	}

	p := parseAmazonResult(payload, asin)
	finalizeProduct(p, detect.Amazon, productURL)
	return p, nil
}

func parseAmazonResult(payload map[string]any, asin string) *catalog.Product {
	data, _ := payload["data"].(map[string]any)
	if data == nil {
		data = map[string]any{}
	}

	title := stringValue(data["product_title"])
	description := ""
	if about, ok := data["about_product"].([]any); ok && len(about) > 0 {
		lines := make([]string, 0, len(about))
		for _, line := range about {
			if s := stringValue(line); s != "" {
				lines = append(lines, s)
			}
		}
		description = strings.Join(lines, "<br>")
	}
	if description == "" {
		description = stringValue(data["product_description"])
	}

	amount := moneyValue(data["product_price"])
	currency := catalog.CurrencyOrDefault(stringValue(data["currency"]), "USD")

	var images []string
	if photo := urlValue(data["product_photo"]); photo != "" {
		images = append(images, photo)
	}
	for _, key := range []string{"product_photos", "aplus_images"} {
		images = append(images, extractImageURLs(data[key], false, jsonLDImageKeys)...)
	}
	images = dedupeStrings(images)

	inStock := strings.EqualFold(stringValue(data["product_availability"]), "in stock")
	optionDefs, variants := amazonVariations(data, asin, amount, currency, inStock)
	variants = appendDefaultVariant(variants, &catalog.Variant{
		ID:        asin,
		Price:     makePrice(amount, currency, nil),
		Inventory: &catalog.Inventory{Available: boolPtr(inStock)},
	})

	details, _ := data["product_details"].(map[string]any)
	information, _ := data["product_information"].(map[string]any)

	brand := stringValue(details["Brand"])
	if brand == "" {
		brand = stringValue(information["Manufacturer"])
	}
	if brand == "" {
		byline := stringValue(data["product_byline"])
		if strings.HasPrefix(byline, "Visit the ") && strings.HasSuffix(byline, " Store") {
			brand = strings.TrimSuffix(strings.TrimPrefix(byline, "Visit the "), " Store")
		}
	}

	category := ""
	if path, ok := data["category_path"].([]any); ok && len(path) > 0 {
		if last, ok := path[len(path)-1].(map[string]any); ok {
			category = stringValue(last["name"])
		}
	}

	var tags []string
	if features := stringValue(information["Special features"]); features != "" {
		tags = append(tags, features)
	}
	if devices := stringValue(information["Compatible Devices"]); devices != "" {
		tags = append(tags, extractNames(devices, true)...)
	}

	var weight *catalog.Weight
	if grams := amazonWeightGrams(stringValue(information["Item Weight"])); grams != nil {
		weight = &catalog.Weight{Value: grams, Unit: "g"}
	}

	seoDescription := ""
	if say := stringValue(data["customers_say"]); say != "" {
		seoDescription = metaDescription(say)
	}

	return &catalog.Product{
		Title:            title,
		Description:      description,
		Brand:            brand,
		Vendor:           brand,
		Tags:             dedupeStrings(tags),
		Variants:         variants,
		Options:          optionDefs,
		Price:            makePrice(amount, currency, nil),
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
			"source_product_id": asin,
			"asin":              asin,
		}),
		Source: &catalog.SourceRef{
			Platform: detect.Amazon,
			ID:       asin,
			Slug:     stringValue(data["product_slug"]),
		},
	}
}

// amazonVariations maps the variation dimension catalog plus the per-ASIN
// combination table onto option defs and variants. Availability for
// sibling ASINs comes from the dimension entries; the requested ASIN uses
// the page-level availability.
func amazonVariations(data map[string]any, asin string, amount *decimal.Decimal, currency string, inStock bool) ([]catalog.OptionDef, []catalog.Variant) {
	dimensions, _ := data["product_variations_dimensions"].([]any)
	variations, _ := data["product_variations"].(map[string]any)
	if len(dimensions) == 0 || variations == nil {
		return nil, nil
	}

	var optionDefs []catalog.OptionDef
	for _, rawDim := range dimensions {
		dim := stringValue(rawDim)
		if dim == "" {
			continue
		}
		entries, ok := variations[dim].([]any)
		if !ok {
			continue
		}
		var values []string
		for _, rawEntry := range entries {
			entry, ok := rawEntry.(map[string]any)
			if !ok {
				continue
			}
			if available := boolValue(entry["is_available"]); available == nil || !*available {
				continue
			}
			if value := stringValue(entry["value"]); value != "" {
				values = append(values, value)
			}
		}
		if len(values) > 0 {
			optionDefs = append(optionDefs, catalog.OptionDef{
				Name:   titleCase(dim),
				Values: dedupeStrings(values),
			})
		}
	}

	all, _ := data["all_product_variations"].(map[string]any)
	var variants []catalog.Variant
	for _, variantASIN := range sortedKeys(all) {
		rawOptions, ok := all[variantASIN].(map[string]any)
		if !ok {
			continue
		}
		var optionValues []catalog.OptionValue
		for _, dim := range sortedKeys(rawOptions) {
			if value := stringValue(rawOptions[dim]); value != "" {
				optionValues = append(optionValues, catalog.OptionValue{Name: titleCase(dim), Value: value})
			}
		}

		available := inStock
		if variantASIN != asin {
			for _, rawDim := range dimensions {
				entries, ok := variations[stringValue(rawDim)].([]any)
				if !ok {
					continue
				}
				for _, rawEntry := range entries {
					entry, ok := rawEntry.(map[string]any)
					if !ok || stringValue(entry["asin"]) != variantASIN {
						continue
					}
					available = false
					if b := boolValue(entry["is_available"]); b != nil {
						available = *b
					}
				}
			}
		}

		variants = append(variants, catalog.Variant{
			ID:           variantASIN,
			OptionValues: optionValues,
			Price:        makePrice(amount, currency, nil),
			Inventory:    &catalog.Inventory{Available: boolPtr(available)},
			Identifiers: identifiersFrom(map[string]string{
				"source_variant_id": variantASIN,
				"asin":              variantASIN,
			}),
		})
	}
	return optionDefs, variants
}

var amazonWeightRe = regexp.MustCompile(`[\d.]+`)

// amazonWeightGrams parses "Item Weight" strings like "10.4 ounces" or
// "295 grams" into grams.
func amazonWeightGrams(raw string) *decimal.Decimal {
	match := amazonWeightRe.FindString(raw)
	if match == "" {
		return nil
	}
	value, err := decimal.NewFromString(match)
	if err != nil {
		return nil
	}
	if strings.Contains(strings.ToLower(raw), "ounce") {
		value = value.Mul(decimal.NewFromFloat(28.35))
	}
	return &value
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
