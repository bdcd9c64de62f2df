package csvimport

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/shelfshift/internal/catalog"
	"github.com/JonMunkholm/shelfshift/internal/csvio"
	"github.com/JonMunkholm/shelfshift/internal/exporter"
)

var squarespaceRequiredHeaders = []string{"Title", "SKU", "Price", "Product Type [Non Editable]", "Visible"}

// squarespaceAnchors returns the indexes of rows that start a product group
// (non-blank Title).
func squarespaceAnchors(rows []csvio.Record) []int {
	var anchors []int
	for i, row := range rows {
		if row.Get("Title") != "" {
			anchors = append(anchors, i)
		}
	}
	return anchors
}

// parseSquarespaceGroup builds one product from an anchor row and the
// blank-title rows that follow it.
func parseSquarespaceGroup(headers []string, groupRows []csvio.Record, detectedCount int, sourceWeightUnit string) (*catalog.Product, error) {
	known := headerSet(exporter.SquarespaceColumns)
	productRow := groupRows[0]

	var variants []catalog.Variant
	var optionLists [][]catalog.OptionValue
	for index, row := range groupRows {
		sku := row.Get("SKU")
		if sku == "" {
			continue
		}

		var optionValues []catalog.OptionValue
		for slot := 1; slot <= 3; slot++ {
			name := row.Get("Option Name " + strconv.Itoa(slot))
			value := row.Get("Option Value " + strconv.Itoa(slot))
			if name != "" && value != "" {
				optionValues = append(optionValues, catalog.OptionValue{Name: name, Value: value})
			}
		}
		optionLists = append(optionLists, optionValues)

		stockRaw := row.Get("Stock")
		unlimited := strings.EqualFold(stockRaw, "unlimited")
		var qty *int
		if !unlimited {
			qty = csvio.ParseInt(stockRaw)
		}
		inv := &catalog.Inventory{TrackQuantity: boolPtr(!unlimited)}
		if qty != nil {
			inv.Quantity = qty
			inv.Available = boolPtr(*qty > 0)
		} else {
			inv.Available = boolPtr(true)
		}

		variant := catalog.Variant{
			ID:           strconv.Itoa(index + 1),
			SKU:          sku,
			Title:        variantTitle(optionValues),
			OptionValues: optionValues,
			Price:        catalog.PriceFromString(row.Get("Price"), ""),
			Inventory:    inv,
			Weight:       weightFromGrams(weightToGrams(row.Get("Weight"), sourceWeightUnit)),
			Identifiers: catalog.Identifiers{
				"source_variant_id": strconv.Itoa(index + 1),
				"sku":               sku,
			},
		}
		applyExtraVariantFields(&variant, headers, row, known)
		variants = append(variants, variant)
	}

	if len(variants) == 0 {
		return nil, fmt.Errorf("squarespace CSV must include at least one row with SKU")
	}

	productURL := productRow.Get("Product URL")
	slug := ""
	if productURL != "" {
		segments := strings.Split(strings.Trim(productURL, "/"), "/")
		slug = segments[len(segments)-1]
	}
	isDigital := strings.EqualFold(productRow.Get("Product Type [Non Editable]"), "DIGITAL")

	sourceID := slug
	if sourceID == "" {
		sourceID = variants[0].SKU
	}
	title := productRow.Get("Title")
	description := productRow.Get("Description")
	product := &catalog.Product{
		Source:      catalog.NewSourceRef("squarespace", sourceID, slug, productURL),
		Title:       title,
		Description: description,
		SEO:         &catalog.SEO{Title: title, Description: description},
		Tags:        csvio.SplitTokens(productRow.Get("Tags"), ","),
		Taxonomy:    taxonomyFromPrimary(productRow.Get("Categories")),
		Variants:    variants,
		Options:     optionDefsFromLists(optionLists),
		Price:       catalog.PriceFromString(productRow.Get("Price"), ""),
		Weight:      variants[0].Weight,

		RequiresShipping: boolPtr(!isDigital),
		TrackQuantity:    boolPtr(anyVariantTracked(variants)),
		IsDigital:        isDigital,
		Media:            mediaFromURLs(csvio.SplitLines(productRow.Get("Hosted Image URLs")), ""),
		Identifiers:      catalog.Identifiers{"source_product_id": sourceID},
	}
	applyExtraProductFields(product, headers, productRow, known)

	selectedKey := slug
	if selectedKey == "" {
		selectedKey = title
	}
	if selectedKey == "" {
		selectedKey = variants[0].SKU
	}
	stampFirstProduct(product, "squarespace", detectedCount, selectedKey)
	return product, nil
}

// ParseSquarespaceCSV parses the first product in a Squarespace export.
func ParseSquarespaceCSV(text, sourceWeightUnit string) (*catalog.Product, error) {
	headers, rows, err := csvio.ReadTable(text)
	if err != nil {
		return nil, err
	}
	if err := csvio.RequireHeaders(headers, squarespaceRequiredHeaders); err != nil {
		return nil, err
	}

	anchors := squarespaceAnchors(rows)
	if len(anchors) == 0 {
		if len(rows) == 0 {
			return nil, fmt.Errorf("squarespace CSV must include at least one row with SKU")
		}
		return parseSquarespaceGroup(headers, rows, 1, sourceWeightUnit)
	}
	end := len(rows)
	if len(anchors) > 1 {
		end = anchors[1]
	}
	return parseSquarespaceGroup(headers, rows[anchors[0]:end], len(anchors), sourceWeightUnit)
}

func parseSquarespaceBatch(text, sourceWeightUnit string) ([]*catalog.Product, error) {
	headers, rows, err := csvio.ReadTable(text)
	if err != nil {
		return nil, err
	}
	if err := csvio.RequireHeaders(headers, squarespaceRequiredHeaders); err != nil {
		return nil, err
	}

	anchors := squarespaceAnchors(rows)
	if len(anchors) == 0 {
		if len(rows) == 0 {
			return nil, fmt.Errorf("squarespace CSV must include at least one row with SKU")
		}
		product, err := parseSquarespaceGroup(headers, rows, 1, sourceWeightUnit)
		if err != nil {
			return nil, err
		}
		products := []*catalog.Product{product}
		patchBatchProvenance(products, 1)
		return products, nil
	}

	var products []*catalog.Product
	for i, start := range anchors {
		end := len(rows)
		if i+1 < len(anchors) {
			end = anchors[i+1]
		}
		product, err := parseSquarespaceGroup(headers, rows[start:end], len(anchors), sourceWeightUnit)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	patchBatchProvenance(products, len(anchors))
	return products, nil
}
