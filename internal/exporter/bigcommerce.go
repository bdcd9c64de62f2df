package exporter

import (
	"strconv"
	"strings"

	"github.com/JonMunkholm/shelfshift/internal/catalog"
)

// BigCommerceColumns is the modern (v3) row-tagged import sheet: one row per
// Product/Variant/Image, tagged by the Item column.
var BigCommerceColumns = []string{
	"Item",
	"SKU",
	"Name",
	"Type",
	"Options",
	"Price",
	"Inventory Tracking",
	"Current Stock",
	"Categories",
	"Variant Image URL",
	"Image URL (Import)",
	"Image is Thumbnail",
	"Image Sort Order",
	"ID",
	"Description",
	"Weight",
	"Page Title",
	"Meta Description",
	"Search Keywords",
	"Product URL",
}

// BigCommerceLegacyColumns is the legacy one-row-per-product bulk sheet.
var BigCommerceLegacyColumns = []string{
	"Product ID",
	"Product Type",
	"Code",
	"Name",
	"Brand",
	"Description",
	"Calculated Price",
	"Retail Price",
	"Sale Price",
	"Stock Level",
	"Weight",
	"Category Details",
	"Page Title",
	"META Description",
	"META Keywords",
	"Images",
	"Product URL",
}

type bigcommerceBuilder struct{}

func (bigcommerceBuilder) Target() string { return "bigcommerce" }

func (bigcommerceBuilder) Columns(opts Options) []string {
	if opts.BigCommerceFormat == FormatLegacy {
		return BigCommerceLegacyColumns
	}
	return BigCommerceColumns
}

func (bigcommerceBuilder) BatchKey(rows []map[string]string, opts Options) (string, string) {
	if opts.BigCommerceFormat == FormatLegacy {
		if len(rows) > 0 {
			return strings.TrimSpace(rows[0]["Code"]), "BigCommerce Code"
		}
		return "", "BigCommerce Code"
	}
	for _, row := range rows {
		if row["Item"] == "Product" {
			return strings.TrimSpace(row["SKU"]), "BigCommerce SKU"
		}
	}
	return "", "BigCommerce SKU"
}

func bcParentSKU(p *catalog.Product, variants []catalog.Variant, isVariable bool) string {
	if !isVariable && len(variants) > 0 {
		if sku := strings.TrimSpace(variants[0].SKU); sku != "" {
			return sku
		}
	}
	return strings.ToUpper(platformToken(p.SourcePlatform()) + "-" + resolveProductKey(p))
}

func bcVariantSKU(parentSKU string, v *catalog.Variant, index int) string {
	if sku := firstNonEmpty(v.SKU, v.ID); sku != "" {
		return sku
	}
	return parentSKU + "-" + strconv.Itoa(index)
}

// bcPackOptions renders variant options in the packed token form the
// BigCommerce sheet uses, one "Type=RT|Name=<name>|Value=<value>" token per
// option, newline-separated.
func bcPackOptions(p *catalog.Product, v *catalog.Variant, optionNames []string, index int) string {
	if len(optionNames) == 0 {
		return "Type=RT|Name=Option|Value=" + fallbackOptionValue(v, index)
	}
	optionMap := catalog.ResolveVariantOptionMap(p, v)
	var tokens []string
	for _, name := range optionNames {
		value := strings.TrimSpace(optionMap[name])
		if value == "" {
			continue
		}
		tokens = append(tokens, "Type=RT|Name="+name+"|Value="+value)
	}
	return strings.Join(tokens, "\n")
}

func bcInventoryMode(isVariable, hasInventory bool) string {
	switch {
	case !hasInventory:
		return "none"
	case isVariable:
		return "variant"
	default:
		return "product"
	}
}

func bcStock(v *catalog.Variant) string {
	qty := catalog.ResolveInventoryQuantity(v)
	if qty == nil {
		return ""
	}
	return strconv.Itoa(*qty)
}

func (b bigcommerceBuilder) Rows(p *catalog.Product, opts Options) ([]map[string]string, error) {
	if opts.BigCommerceFormat == FormatLegacy {
		return b.legacyRows(p, opts)
	}
	return b.modernRows(p, opts)
}

func (b bigcommerceBuilder) modernRows(p *catalog.Product, opts Options) ([]map[string]string, error) {
	variants := catalog.ResolveVariants(p)
	optionNames := resolveOptionNames(p, variants, 0)
	isVariable := len(variants) > 1 || len(optionNames) > 0
	hasInventory := false
	for i := range variants {
		if bcStock(&variants[i]) != "" {
			hasInventory = true
			break
		}
	}
	parentSKU := bcParentSKU(p, variants, isVariable)
	first := &variants[0]

	var rows []map[string]string
	productRow := emptyRow(BigCommerceColumns)
	productRow["Item"] = "Product"
	if p.IsDigital {
		productRow["Type"] = "digital"
	} else {
		productRow["Type"] = "physical"
	}
	productRow["Name"] = p.Title
	productRow["Description"] = p.Description
	productRow["SKU"] = parentSKU
	productRow["Price"] = priceCell(p, first, 6)
	productRow["Weight"] = weightCell(first, opts.WeightUnit, 6)
	productRow["Inventory Tracking"] = bcInventoryMode(isVariable, hasInventory)
	if !isVariable {
		productRow["Current Stock"] = bcStock(first)
		productRow["Variant Image URL"] = imageURLOrPlaceholderIfSet(catalog.ResolveVariantImageURL(first))
	}
	productRow["Categories"] = catalog.ResolvePrimaryCategory(p, " > ")
	productRow["Page Title"] = catalog.ResolveSEOTitle(p)
	productRow["Meta Description"] = catalog.ResolveSEODescription(p)
	productRow["Search Keywords"] = sortedTags(p)
	if p.Source != nil {
		productRow["ID"] = p.Source.ID
		productRow["Product URL"] = p.Source.Slug
	}
	rows = append(rows, productRow)

	if isVariable {
		for index := range variants {
			v := &variants[index]
			row := emptyRow(BigCommerceColumns)
			row["Item"] = "Variant"
			row["Name"] = p.Title
			row["Description"] = stripHTML(p.Description)
			row["SKU"] = bcVariantSKU(parentSKU, v, index+1)
			row["Price"] = priceCell(p, v, 6)
			row["Weight"] = weightCell(v, opts.WeightUnit, 6)
			row["Options"] = bcPackOptions(p, v, optionNames, index+1)
			row["Current Stock"] = bcStock(v)
			row["Variant Image URL"] = imageURLOrPlaceholderIfSet(catalog.ResolveVariantImageURL(v))
			rows = append(rows, row)
		}
	}

	for i, imageURL := range catalog.ResolveProductImageURLs(p) {
		row := emptyRow(BigCommerceColumns)
		row["Item"] = "Image"
		row["Image URL (Import)"] = imageURLOrPlaceholder(imageURL)
		if i == 0 {
			row["Image is Thumbnail"] = "TRUE"
		} else {
			row["Image is Thumbnail"] = "FALSE"
		}
		row["Image Sort Order"] = strconv.Itoa(i + 1)
		rows = append(rows, row)
	}
	return rows, nil
}

func (b bigcommerceBuilder) legacyRows(p *catalog.Product, opts Options) ([]map[string]string, error) {
	variants := catalog.ResolveVariants(p)
	first := &variants[0]

	row := emptyRow(BigCommerceLegacyColumns)
	if p.IsDigital {
		row["Product Type"] = "D"
	} else {
		row["Product Type"] = "P"
	}
	code := firstNonEmpty(first.SKU, first.ID)
	if code == "" {
		code = strings.ToUpper(platformToken(p.SourcePlatform()) + "-" + resolveProductKey(p))
	}
	row["Code"] = code
	row["Name"] = p.Title
	row["Brand"] = firstNonEmpty(p.Brand, p.Vendor)
	row["Description"] = p.Description
	row["Calculated Price"] = priceCell(p, first, 6)
	row["Stock Level"] = bcStock(first)
	row["Weight"] = weightCell(first, opts.WeightUnit, 6)
	row["Category Details"] = catalog.ResolvePrimaryCategory(p, " > ")
	row["Page Title"] = catalog.ResolveSEOTitle(p)
	row["META Description"] = catalog.ResolveSEODescription(p)
	row["META Keywords"] = sortedTags(p)
	if p.Source != nil {
		row["Product ID"] = p.Source.ID
		row["Product URL"] = p.Source.Slug
	}

	var images []string
	for i, imageURL := range catalog.ResolveProductImageURLs(p) {
		images = append(images, strconv.Itoa(i+1)+":"+imageURLOrPlaceholder(imageURL))
	}
	row["Images"] = strings.Join(images, "|")
	return []map[string]string{row}, nil
}

// imageURLOrPlaceholderIfSet applies the extension check only when a URL is
// present; rows without a variant image stay empty.
func imageURLOrPlaceholderIfSet(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	return imageURLOrPlaceholder(raw)
}
