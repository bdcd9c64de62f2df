package csvimport

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/shelfshift/internal/catalog"
	"github.com/JonMunkholm/shelfshift/internal/csvio"
	"github.com/JonMunkholm/shelfshift/internal/exporter"
)

var wooRequiredHeaders = []string{"Type", "SKU", "Name", "Regular price"}

func wooRowType(row csvio.Record) string {
	return strings.ToLower(row.Get("Type"))
}

func wooProductRows(rows []csvio.Record) []csvio.Record {
	var out []csvio.Record
	for _, row := range rows {
		switch wooRowType(row) {
		case "simple", "variable":
			out = append(out, row)
		}
	}
	return out
}

// wooGroupRows gathers a product row plus, for variable products, the
// variation rows linked to it through the Parent column.
func wooGroupRows(rows []csvio.Record, productRow csvio.Record) []csvio.Record {
	group := []csvio.Record{productRow}
	parentSKU := productRow.Get("SKU")
	if wooRowType(productRow) != "variable" || parentSKU == "" {
		return group
	}
	for _, row := range rows {
		if wooRowType(row) == "variation" && row.Get("Parent") == parentSKU {
			group = append(group, row)
		}
	}
	return group
}

func wooOptionValues(row csvio.Record) []catalog.OptionValue {
	var out []catalog.OptionValue
	for slot := 1; slot <= 3; slot++ {
		name := row.Get("Attribute " + strconv.Itoa(slot) + " name")
		value := row.Get("Attribute " + strconv.Itoa(slot) + " value(s)")
		if name == "" || value == "" {
			continue
		}
		if tokens := csvio.SplitTokens(value, ","); len(tokens) > 0 {
			value = tokens[0]
		}
		out = append(out, catalog.OptionValue{Name: name, Value: value})
	}
	return out
}

// wooCategories parses the " > "-delimited Categories cell.
func wooCategories(value string) *catalog.CategorySet {
	return taxonomyFromPrimary(value)
}

// parseWooGroup builds one product from a product row and its variation
// rows.
func parseWooGroup(headers []string, groupRows []csvio.Record, detectedCount int) (*catalog.Product, error) {
	known := headerSet(exporter.WooCommerceColumns)
	productRow := groupRows[0]
	parentSKU := productRow.Get("SKU")

	var variantRows []csvio.Record
	for _, row := range groupRows {
		if wooRowType(row) == "variation" {
			variantRows = append(variantRows, row)
		}
	}
	if len(variantRows) == 0 {
		variantRows = []csvio.Record{productRow}
	}

	var variants []catalog.Variant
	var optionLists [][]catalog.OptionValue
	for index, row := range variantRows {
		sku := row.Get("SKU")
		if sku == "" {
			sku = parentSKU + ":" + strconv.Itoa(index+1)
		}
		optionValues := wooOptionValues(row)
		optionLists = append(optionLists, optionValues)

		qty := csvio.ParseInt(row.Get("Stock"))
		inv := &catalog.Inventory{TrackQuantity: boolPtr(qty != nil)}
		if qty != nil {
			inv.Quantity = qty
			inv.Available = boolPtr(*qty > 0)
		} else {
			inv.Available = csvio.ParseBool(row.Get("In stock?"))
		}

		variant := catalog.Variant{
			ID:           strconv.Itoa(index + 1),
			SKU:          sku,
			Title:        variantTitle(optionValues),
			OptionValues: optionValues,
			Price:        catalog.PriceFromString(row.Get("Regular price"), ""),
			Inventory:    inv,
			Weight:       weightFromGrams(weightToGrams(row.Get("Weight (kg)"), catalog.UnitKilogram)),
			Media:        mediaFromURLs(csvio.SplitTokens(row.Get("Images"), ","), sku),
			Identifiers: catalog.Identifiers{
				"source_variant_id": strconv.Itoa(index + 1),
				"sku":               sku,
			},
		}
		applyExtraVariantFields(&variant, headers, row, known)
		variants = append(variants, variant)
	}

	name := productRow.Get("Name")
	slug := slugifyToken(name)
	sourceID := parentSKU
	if sourceID == "" {
		sourceID = slug
	}
	isDigital := strings.EqualFold(productRow.Get("Tax status"), "none")

	productKey := sourceID
	if productKey == "" {
		productKey = "woocommerce-product"
	}
	product := &catalog.Product{
		Source:      catalog.NewSourceRef("woocommerce", sourceID, slug, ""),
		Title:       name,
		Description: productRow.Get("Description"),
		SEO:         &catalog.SEO{Title: name, Description: productRow.Get("Short description")},
		Tags:        csvio.SplitTokens(productRow.Get("Tags"), ","),
		Taxonomy:    wooCategories(productRow.Get("Categories")),
		Options:     optionDefsFromLists(optionLists),
		Variants:    variants,
		Price:       catalog.PriceFromString(productRow.Get("Regular price"), ""),
		Weight:      variants[0].Weight,

		RequiresShipping: boolPtr(!isDigital),
		TrackQuantity:    boolPtr(anyVariantTracked(variants)),
		IsDigital:        isDigital,
		Media:            mediaFromURLs(csvio.SplitTokens(productRow.Get("Images"), ","), ""),
		Identifiers:      catalog.Identifiers{"source_product_id": productKey},
	}
	applyExtraProductFields(product, headers, productRow, known)
	stampFirstProduct(product, "woocommerce", detectedCount, productKey)
	return product, nil
}

// ParseWooCommerceCSV parses the first product in a WooCommerce export.
func ParseWooCommerceCSV(text string) (*catalog.Product, error) {
	headers, rows, err := csvio.ReadTable(text)
	if err != nil {
		return nil, err
	}
	if err := csvio.RequireHeaders(headers, wooRequiredHeaders); err != nil {
		return nil, err
	}
	productRows := wooProductRows(rows)
	if len(productRows) == 0 {
		return nil, fmt.Errorf("woocommerce CSV must include at least one simple or variable product row")
	}
	return parseWooGroup(headers, wooGroupRows(rows, productRows[0]), len(productRows))
}

func parseWooCommerceBatch(text string) ([]*catalog.Product, error) {
	headers, rows, err := csvio.ReadTable(text)
	if err != nil {
		return nil, err
	}
	if err := csvio.RequireHeaders(headers, wooRequiredHeaders); err != nil {
		return nil, err
	}
	productRows := wooProductRows(rows)
	if len(productRows) == 0 {
		return nil, fmt.Errorf("woocommerce CSV must include at least one simple or variable product row")
	}

	var products []*catalog.Product
	for _, productRow := range productRows {
		product, err := parseWooGroup(headers, wooGroupRows(rows, productRow), len(productRows))
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	patchBatchProvenance(products, len(productRows))
	return products, nil
}
