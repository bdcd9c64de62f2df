package csvimport

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/JonMunkholm/shelfshift/internal/catalog"
	"github.com/JonMunkholm/shelfshift/internal/csvio"
	"github.com/JonMunkholm/shelfshift/internal/exporter"
)

var (
	bcModernRequiredHeaders = []string{"Item", "Name", "Type", "SKU", "Price"}
	bcLegacyRequiredHeaders = []string{"Product Type", "Code", "Name", "Calculated Price"}

	bcModernSignature = []string{"Item", "SKU", "Name"}
	bcLegacySignature = []string{"Product Type", "Code", "Name"}

	bcOptionTokenRe = regexp.MustCompile(`\|Name=([^|]+)\|Value=([^|]+)$`)
)

// bcParseOptions unpacks the "Type=..|Name=..|Value=.." option tokens from a
// modern Options cell.
func bcParseOptions(value string) []catalog.OptionValue {
	text := strings.TrimSpace(value)
	if text == "" {
		return nil
	}
	var out []catalog.OptionValue
	for _, token := range strings.Split(text, "Type=") {
		candidate := strings.TrimSpace(token)
		if candidate == "" {
			continue
		}
		match := bcOptionTokenRe.FindStringSubmatch(candidate)
		if match == nil {
			continue
		}
		out = append(out, catalog.OptionValue{
			Name:  strings.TrimSpace(match[1]),
			Value: strings.TrimSpace(match[2]),
		})
	}
	return out
}

// bcParseLegacyImages splits the legacy packed Images cell, stripping the
// "n:" sort prefixes.
func bcParseLegacyImages(value string) []string {
	var urls []string
	for _, token := range strings.Split(value, "|") {
		stripped := strings.TrimSpace(token)
		if stripped == "" {
			continue
		}
		if idx := strings.Index(stripped, ":"); idx >= 0 && !strings.HasPrefix(stripped[idx:], "://") {
			stripped = strings.TrimSpace(stripped[idx+1:])
		}
		if stripped != "" {
			urls = append(urls, stripped)
		}
	}
	return urls
}

func bcItem(row csvio.Record) string {
	return strings.ToLower(row.Get("Item"))
}

// bcProductIndexes returns the indexes of modern-format Product rows.
func bcProductIndexes(rows []csvio.Record) []int {
	var out []int
	for i, row := range rows {
		if bcItem(row) == "product" {
			out = append(out, i)
		}
	}
	return out
}

// parseBCModernGroup builds one product from a Product row and its Variant
// and Image rows.
func parseBCModernGroup(headers []string, groupRows []csvio.Record, detectedCount int, sourceWeightUnit string) (*catalog.Product, error) {
	known := headerSet(exporter.BigCommerceColumns)
	productRow := groupRows[0]

	var variantRows, imageRows []csvio.Record
	for _, row := range groupRows {
		switch bcItem(row) {
		case "variant":
			variantRows = append(variantRows, row)
		case "image":
			imageRows = append(imageRows, row)
		}
	}

	var variants []catalog.Variant
	var optionLists [][]catalog.OptionValue
	for index, row := range variantRows {
		sku := row.Get("SKU")
		if sku == "" {
			sku = "BC:" + strconv.Itoa(index+1)
		}
		optionValues := bcParseOptions(row.Get("Options"))
		optionLists = append(optionLists, optionValues)

		qty := csvio.ParseInt(row.Get("Current Stock"))
		variant := catalog.Variant{
			ID:           strconv.Itoa(index + 1),
			SKU:          sku,
			Title:        variantTitle(optionValues),
			OptionValues: optionValues,
			Price:        catalog.PriceFromString(row.Get("Price"), ""),
			Inventory:    trackedInventory(qty),
			Media:        mediaFromURLs([]string{row.Get("Variant Image URL")}, sku),
			Identifiers: catalog.Identifiers{
				"source_variant_id": strconv.Itoa(index + 1),
				"sku":               sku,
			},
		}
		applyExtraVariantFields(&variant, headers, row, known)
		variants = append(variants, variant)
	}

	if len(variants) == 0 {
		fallbackSKU := productRow.Get("SKU")
		if fallbackSKU == "" {
			fallbackSKU = "BC:product"
		}
		variants = []catalog.Variant{{
			ID:        "1",
			SKU:       fallbackSKU,
			Price:     catalog.PriceFromString(productRow.Get("Price"), ""),
			Inventory: &catalog.Inventory{TrackQuantity: boolPtr(false), Available: boolPtr(true)},
			Identifiers: catalog.Identifiers{
				"source_variant_id": "1",
				"sku":               fallbackSKU,
			},
		}}
	}

	var imageURLs []string
	for _, row := range imageRows {
		imageURLs = append(imageURLs, row.Get("Image URL (Import)"))
	}

	weight := weightFromGrams(weightToGrams(productRow.Get("Weight"), sourceWeightUnit))
	isDigital := strings.EqualFold(productRow.Get("Type"), "digital")
	sourceID := firstNonBlank(productRow.Get("ID"), productRow.Get("SKU"))
	productID := firstNonBlank(productRow.Get("ID"), variants[0].SKU)

	product := &catalog.Product{
		Source:      catalog.NewSourceRef("bigcommerce", sourceID, strings.Trim(productRow.Get("Product URL"), "/"), ""),
		Title:       productRow.Get("Name"),
		Description: productRow.Get("Description"),
		SEO: &catalog.SEO{
			Title:       productRow.Get("Page Title"),
			Description: productRow.Get("Meta Description"),
		},
		Tags:     csvio.SplitTokens(productRow.Get("Search Keywords"), ","),
		Taxonomy: taxonomyFromPrimary(productRow.Get("Categories")),
		Variants: variants,
		Options:  optionDefsFromLists(optionLists),
		Price:    catalog.PriceFromString(productRow.Get("Price"), ""),
		Weight:   weight,

		RequiresShipping: boolPtr(!isDigital),
		TrackQuantity:    boolPtr(anyVariantTracked(variants)),
		IsDigital:        isDigital,
		Media:            mediaFromURLs(imageURLs, ""),
		Identifiers:      catalog.Identifiers{"source_product_id": productID},
	}
	applyExtraProductFields(product, headers, productRow, known)
	stampFirstProduct(product, "bigcommerce", detectedCount, firstNonBlank(productRow.Get("SKU"), productRow.Get("Name")))
	return product, nil
}

// parseBCLegacyRow builds one product from a single legacy-format row.
func parseBCLegacyRow(headers []string, row csvio.Record, detectedCount int, sourceWeightUnit string) (*catalog.Product, error) {
	known := headerSet(exporter.BigCommerceLegacyColumns)

	sku := row.Get("Code")
	if sku == "" {
		sku = "BC:legacy"
	}
	qty := csvio.ParseInt(row.Get("Stock Level"))
	weight := weightFromGrams(weightToGrams(row.Get("Weight"), sourceWeightUnit))

	priceRaw := firstNonBlank(row.Get("Calculated Price"), row.Get("Sale Price"), row.Get("Retail Price"))
	variant := catalog.Variant{
		ID:        "1",
		SKU:       sku,
		Price:     catalog.PriceFromString(priceRaw, ""),
		Inventory: trackedInventory(qty),
		Weight:    weight,
		Identifiers: catalog.Identifiers{
			"source_variant_id": "1",
			"sku":               sku,
		},
	}
	applyExtraVariantFields(&variant, headers, row, known)

	sourceID := firstNonBlank(row.Get("Product ID"), sku)
	brand := row.Get("Brand")
	product := &catalog.Product{
		Source:      catalog.NewSourceRef("bigcommerce", sourceID, strings.Trim(row.Get("Product URL"), "/"), ""),
		Title:       row.Get("Name"),
		Description: row.Get("Description"),
		SEO: &catalog.SEO{
			Title:       row.Get("Page Title"),
			Description: row.Get("META Description"),
		},
		Brand:    brand,
		Vendor:   brand,
		Tags:     csvio.SplitTokens(row.Get("META Keywords"), ","),
		Taxonomy: taxonomyFromPrimary(row.Get("Category Details")),
		Variants: []catalog.Variant{variant},
		Price:    variant.Price,
		Weight:   weight,

		RequiresShipping: boolPtr(true),
		TrackQuantity:    boolPtr(qty != nil),
		IsDigital:        false,
		Media:            mediaFromURLs(bcParseLegacyImages(row.Get("Images")), ""),
		Identifiers:      catalog.Identifiers{"source_product_id": sourceID},
	}
	applyExtraProductFields(product, headers, row, known)
	stampFirstProduct(product, "bigcommerce", detectedCount, sku)
	return product, nil
}

// ParseBigCommerceCSV parses the first product in a BigCommerce export,
// detecting the modern or legacy layout from the headers.
func ParseBigCommerceCSV(text, sourceWeightUnit string) (*catalog.Product, error) {
	headers, rows, err := csvio.ReadTable(text)
	if err != nil {
		return nil, err
	}

	switch {
	case csvio.HasHeaders(headers, bcModernSignature):
		if err := csvio.RequireHeaders(headers, bcModernRequiredHeaders); err != nil {
			return nil, err
		}
		indexes := bcProductIndexes(rows)
		if len(indexes) == 0 {
			return nil, fmt.Errorf("bigcommerce modern CSV requires at least one Product row")
		}
		end := len(rows)
		if len(indexes) > 1 {
			end = indexes[1]
		}
		return parseBCModernGroup(headers, rows[indexes[0]:end], len(indexes), sourceWeightUnit)
	case csvio.HasHeaders(headers, bcLegacySignature):
		if err := csvio.RequireHeaders(headers, bcLegacyRequiredHeaders); err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("bigcommerce legacy CSV requires at least one product row")
		}
		return parseBCLegacyRow(headers, rows[0], len(rows), sourceWeightUnit)
	}
	return nil, fmt.Errorf("unable to detect BigCommerce CSV format from headers")
}

func parseBigCommerceBatch(text, sourceWeightUnit string) ([]*catalog.Product, error) {
	headers, rows, err := csvio.ReadTable(text)
	if err != nil {
		return nil, err
	}

	switch {
	case csvio.HasHeaders(headers, bcModernSignature):
		if err := csvio.RequireHeaders(headers, bcModernRequiredHeaders); err != nil {
			return nil, err
		}
		indexes := bcProductIndexes(rows)
		if len(indexes) == 0 {
			return nil, fmt.Errorf("bigcommerce modern CSV requires at least one Product row")
		}
		var products []*catalog.Product
		for i, start := range indexes {
			end := len(rows)
			if i+1 < len(indexes) {
				end = indexes[i+1]
			}
			product, err := parseBCModernGroup(headers, rows[start:end], len(indexes), sourceWeightUnit)
			if err != nil {
				return nil, err
			}
			products = append(products, product)
		}
		patchBatchProvenance(products, len(indexes))
		return products, nil
	case csvio.HasHeaders(headers, bcLegacySignature):
		if err := csvio.RequireHeaders(headers, bcLegacyRequiredHeaders); err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("bigcommerce legacy CSV requires at least one product row")
		}
		var products []*catalog.Product
		for _, row := range rows {
			product, err := parseBCLegacyRow(headers, row, len(rows), sourceWeightUnit)
			if err != nil {
				return nil, err
			}
			products = append(products, product)
		}
		patchBatchProvenance(products, len(rows))
		return products, nil
	}
	return nil, fmt.Errorf("unable to detect BigCommerce CSV format from headers")
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
