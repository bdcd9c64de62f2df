package csvimport

import (
	"fmt"
	"strconv"

	"github.com/JonMunkholm/shelfshift/internal/catalog"
	"github.com/JonMunkholm/shelfshift/internal/csvio"
	"github.com/JonMunkholm/shelfshift/internal/exporter"
)

var shopifyRequiredHeaders = []string{"Handle", "Title", "Body (HTML)", "Variant SKU", "Variant Price"}

// shopifyHandles returns the distinct handles in row order.
func shopifyHandles(rows []csvio.Record) []string {
	var handles []string
	seen := make(map[string]struct{})
	for _, row := range rows {
		handle := row.Get("Handle")
		if handle == "" {
			continue
		}
		if _, ok := seen[handle]; ok {
			continue
		}
		seen[handle] = struct{}{}
		handles = append(handles, handle)
	}
	return handles
}

// parseShopifyGroup builds one product from the rows sharing a handle.
// Variant rows are the ones carrying a Variant SKU; every row may contribute
// a product image.
func parseShopifyGroup(headers []string, groupRows []csvio.Record, handle string) (*catalog.Product, error) {
	known := headerSet(exporter.ShopifyColumns)
	productRow := groupRows[0]

	var productImages []string
	var variants []catalog.Variant
	var optionLists [][]catalog.OptionValue

	for index, row := range groupRows {
		if src := row.Get("Image Src"); src != "" {
			productImages = append(productImages, src)
		}

		sku := row.Get("Variant SKU")
		if sku == "" {
			continue
		}

		var optionValues []catalog.OptionValue
		for slot := 1; slot <= 3; slot++ {
			name := row.Get("Option" + strconv.Itoa(slot) + " Name")
			value := row.Get("Option" + strconv.Itoa(slot) + " Value")
			if name != "" && value != "" {
				optionValues = append(optionValues, catalog.OptionValue{Name: name, Value: value})
			}
		}
		optionLists = append(optionLists, optionValues)

		qty := csvio.ParseInt(row.Get("Variant Inventory Qty"))
		variant := catalog.Variant{
			ID:           strconv.Itoa(index + 1),
			SKU:          sku,
			Title:        variantTitle(optionValues),
			OptionValues: optionValues,
			Price:        catalog.PriceFromString(row.Get("Variant Price"), ""),
			Inventory:    trackedInventory(qty),
			Weight:       weightFromGrams(catalog.ParseMoney(row.Get("Variant Grams"))),
			Media:        mediaFromURLs([]string{row.Get("Variant Image")}, sku),
			Identifiers: catalog.Identifiers{
				"source_variant_id": strconv.Itoa(index + 1),
				"sku":               sku,
			},
		}
		applyExtraVariantFields(&variant, headers, row, known)
		variants = append(variants, variant)
	}

	if len(variants) == 0 {
		return nil, fmt.Errorf("shopify CSV must include at least one variant row with Variant SKU")
	}

	requiresShipping := true
	if parsed := csvio.ParseBool(productRow.Get("Variant Requires Shipping")); parsed != nil {
		requiresShipping = *parsed
	}

	title := productRow.Get("Title")
	body := productRow.Get("Body (HTML)")
	vendor := productRow.Get("Vendor")
	product := &catalog.Product{
		Source:      catalog.NewSourceRef("shopify", handle, handle, ""),
		Title:       title,
		Description: body,
		SEO:         &catalog.SEO{Title: title, Description: body},
		Vendor:      vendor,
		Brand:       vendor,
		Taxonomy:    taxonomyFromPrimary(productRow.Get("Type")),
		Tags:        csvio.SplitTokens(productRow.Get("Tags"), ","),
		Options:     optionDefsFromLists(optionLists),
		Variants:    variants,
		Price:       variants[0].Price,
		Weight:      variants[0].Weight,

		RequiresShipping: boolPtr(requiresShipping),
		TrackQuantity:    boolPtr(anyVariantTracked(variants)),
		IsDigital:        !requiresShipping,
		Media:            mediaFromURLs(productImages, ""),
		Identifiers: catalog.Identifiers{
			"source_product_id": handle,
			"handle":            handle,
		},
	}
	applyExtraProductFields(product, headers, productRow, known)
	return product, nil
}

// ParseShopifyCSV parses the first product in a Shopify export.
func ParseShopifyCSV(text string) (*catalog.Product, error) {
	products, _, err := parseShopifyProducts(text, 1)
	if err != nil {
		return nil, err
	}
	return products[0], nil
}

// parseShopifyBatch parses every product in a Shopify export.
func parseShopifyBatch(text string) ([]*catalog.Product, error) {
	products, detected, err := parseShopifyProducts(text, 0)
	if err != nil {
		return nil, err
	}
	patchBatchProvenance(products, detected)
	return products, nil
}

// parseShopifyProducts parses up to limit products (0 = all), returning the
// total number of handles detected.
func parseShopifyProducts(text string, limit int) ([]*catalog.Product, int, error) {
	headers, rows, err := csvio.ReadTable(text)
	if err != nil {
		return nil, 0, err
	}
	if err := csvio.RequireHeaders(headers, shopifyRequiredHeaders); err != nil {
		return nil, 0, err
	}

	handles := shopifyHandles(rows)
	if len(handles) == 0 {
		return nil, 0, fmt.Errorf("shopify CSV must include at least one row with Handle")
	}

	var products []*catalog.Product
	for _, handle := range handles {
		if limit > 0 && len(products) >= limit {
			break
		}
		var groupRows []csvio.Record
		for _, row := range rows {
			if row.Get("Handle") == handle {
				groupRows = append(groupRows, row)
			}
		}
		product, err := parseShopifyGroup(headers, groupRows, handle)
		if err != nil {
			return nil, 0, err
		}
		stampFirstProduct(product, "shopify", len(handles), handle)
		products = append(products, product)
	}
	return products, len(handles), nil
}
