package csvimport

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/shelfshift/internal/catalog"
	"github.com/JonMunkholm/shelfshift/internal/csvio"
	"github.com/JonMunkholm/shelfshift/internal/exporter"
)

var wixRequiredHeaders = []string{"handle", "fieldType", "name", "price", "sku"}

// wixInventoryState maps the inventory cell onto stock fields: a number
// enables tracking, the IN_STOCK/OUT_OF_STOCK tokens set availability only.
func wixInventoryState(value string) *catalog.Inventory {
	if qty := csvio.ParseInt(value); qty != nil {
		return &catalog.Inventory{
			TrackQuantity: boolPtr(true),
			Quantity:      qty,
			Available:     boolPtr(*qty > 0),
		}
	}
	available := true
	if strings.EqualFold(strings.TrimSpace(value), "OUT_OF_STOCK") {
		available = false
	}
	return &catalog.Inventory{TrackQuantity: boolPtr(false), Available: boolPtr(available)}
}

func wixHandles(rows []csvio.Record) []string {
	var handles []string
	seen := make(map[string]struct{})
	for _, row := range rows {
		handle := row.Get("handle")
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

// parseWixGroup builds one product from the rows sharing a handle: a
// PRODUCT row for product fields, VARIANT rows, and MEDIA rows for extra
// images.
func parseWixGroup(headers []string, groupRows []csvio.Record, handle, sourceWeightUnit string) (*catalog.Product, error) {
	known := headerSet(exporter.WixColumns)

	var productRows, variantRows, mediaRows []csvio.Record
	for _, row := range groupRows {
		switch strings.ToUpper(row.Get("fieldType")) {
		case "PRODUCT":
			productRows = append(productRows, row)
		case "VARIANT":
			variantRows = append(variantRows, row)
		case "MEDIA":
			mediaRows = append(mediaRows, row)
		}
	}
	productRow := groupRows[0]
	if len(productRows) > 0 {
		productRow = productRows[0]
	}

	sourceRows := variantRows
	if len(sourceRows) == 0 {
		sourceRows = []csvio.Record{productRow}
	}

	var variants []catalog.Variant
	var optionLists [][]catalog.OptionValue
	for index, row := range sourceRows {
		sku := row.Get("sku")
		if sku == "" {
			sku = handle + ":" + strconv.Itoa(index+1)
		}

		var optionValues []catalog.OptionValue
		for slot := 1; slot <= 6; slot++ {
			name := row.Get("productOptionName" + strconv.Itoa(slot))
			value := row.Get("productOptionChoices" + strconv.Itoa(slot))
			if name == "" || value == "" {
				continue
			}
			// Variant rows carry a single choice; product rows pack the
			// full ";"-separated choice set, of which the first stands in.
			if choices := csvio.SplitTokens(value, ";"); len(choices) > 0 {
				value = choices[0]
			}
			optionValues = append(optionValues, catalog.OptionValue{Name: name, Value: value})
		}
		optionLists = append(optionLists, optionValues)

		variant := catalog.Variant{
			ID:           strconv.Itoa(index + 1),
			SKU:          sku,
			Title:        variantTitle(optionValues),
			OptionValues: optionValues,
			Price:        catalog.PriceFromString(row.Get("price"), ""),
			Inventory:    wixInventoryState(row.Get("inventory")),
			Weight:       weightFromGrams(weightToGrams(row.Get("weight"), sourceWeightUnit)),
			Media:        mediaFromURLs([]string{row.Get("media")}, sku),
			Identifiers: catalog.Identifiers{
				"source_variant_id": strconv.Itoa(index + 1),
				"sku":               sku,
			},
		}
		applyExtraVariantFields(&variant, headers, row, known)
		variants = append(variants, variant)
	}

	var mediaURLs []string
	if url := productRow.Get("media"); url != "" {
		mediaURLs = append(mediaURLs, url)
	}
	for _, row := range mediaRows {
		if url := row.Get("media"); url != "" {
			mediaURLs = append(mediaURLs, url)
		}
	}

	name := productRow.Get("name")
	description := productRow.Get("plainDescription")
	brand := productRow.Get("brand")
	product := &catalog.Product{
		Source:      catalog.NewSourceRef("wix", handle, handle, ""),
		Title:       name,
		Description: description,
		SEO:         &catalog.SEO{Title: name, Description: description},
		Brand:       brand,
		Vendor:      brand,
		Variants:    variants,
		Options:     optionDefsFromLists(optionLists),
		Price:       catalog.PriceFromString(productRow.Get("price"), ""),
		Weight:      variants[0].Weight,

		RequiresShipping: boolPtr(true),
		TrackQuantity:    boolPtr(anyVariantTracked(variants)),
		IsDigital:        false,
		Media:            mediaFromURLs(mediaURLs, ""),
		Identifiers:      catalog.Identifiers{"source_product_id": handle},
	}
	applyExtraProductFields(product, headers, productRow, known)
	return product, nil
}

// ParseWixCSV parses the first product in a Wix catalog export.
func ParseWixCSV(text, sourceWeightUnit string) (*catalog.Product, error) {
	headers, rows, err := csvio.ReadTable(text)
	if err != nil {
		return nil, err
	}
	if err := csvio.RequireHeaders(headers, wixRequiredHeaders); err != nil {
		return nil, err
	}
	handles := wixHandles(rows)
	if len(handles) == 0 {
		return nil, fmt.Errorf("wix CSV must include at least one row with handle")
	}

	product, err := parseWixGroup(headers, wixGroupRows(rows, handles[0]), handles[0], sourceWeightUnit)
	if err != nil {
		return nil, err
	}
	stampFirstProduct(product, "wix", len(handles), handles[0])
	return product, nil
}

func parseWixBatch(text, sourceWeightUnit string) ([]*catalog.Product, error) {
	headers, rows, err := csvio.ReadTable(text)
	if err != nil {
		return nil, err
	}
	if err := csvio.RequireHeaders(headers, wixRequiredHeaders); err != nil {
		return nil, err
	}
	handles := wixHandles(rows)
	if len(handles) == 0 {
		return nil, fmt.Errorf("wix CSV must include at least one row with handle")
	}

	var products []*catalog.Product
	for _, handle := range handles {
		product, err := parseWixGroup(headers, wixGroupRows(rows, handle), handle, sourceWeightUnit)
		if err != nil {
			return nil, err
		}
		stampFirstProduct(product, "wix", len(handles), handle)
		products = append(products, product)
	}
	patchBatchProvenance(products, len(handles))
	return products, nil
}

func wixGroupRows(rows []csvio.Record, handle string) []csvio.Record {
	var out []csvio.Record
	for _, row := range rows {
		if row.Get("handle") == handle {
			out = append(out, row)
		}
	}
	return out
}
