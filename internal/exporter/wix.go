package exporter

import (
	"strconv"
	"strings"

	"github.com/JonMunkholm/shelfshift/internal/catalog"
)

// WixColumns is the Wix catalog CSV sheet: explicit fieldType rows
// (PRODUCT/VARIANT/MEDIA) sharing a handle, with six option slots.
var WixColumns = buildWixColumns()

func buildWixColumns() []string {
	columns := []string{
		"handle",
		"fieldType",
		"name",
		"plainDescription",
		"visible",
		"brand",
		"price",
		"sku",
		"inventory",
		"weight",
	}
	for i := 1; i <= 6; i++ {
		slot := strconv.Itoa(i)
		columns = append(columns, "productOptionName"+slot, "productOptionType"+slot, "productOptionChoices"+slot)
	}
	return append(columns, "media")
}

type wixBuilder struct{}

func (wixBuilder) Target() string { return "wix" }

func (wixBuilder) Columns(Options) []string { return WixColumns }

func (wixBuilder) BatchKey(rows []map[string]string, _ Options) (string, string) {
	for _, row := range rows {
		if row["fieldType"] == "PRODUCT" {
			return strings.TrimSpace(row["handle"]), "Wix handle"
		}
	}
	return "", "Wix handle"
}

func wixBool(value bool) string {
	if value {
		return "TRUE"
	}
	return "FALSE"
}

// wixInventory renders tracked stock as a number and untracked stock as the
// IN_STOCK/OUT_OF_STOCK tokens Wix expects.
func wixInventory(p *catalog.Product, v *catalog.Variant) string {
	if catalog.ResolveTrackQuantity(p, v) {
		if qty := catalog.ResolveInventoryQuantity(v); qty != nil {
			return strconv.Itoa(*qty)
		}
	}
	if available := catalog.ResolveAvailable(v); available != nil && !*available {
		return "OUT_OF_STOCK"
	}
	return "IN_STOCK"
}

func wixApplyOptionSlots(row map[string]string, names []string, valueFor func(name string, slot int) string) {
	for i, name := range names {
		if i >= 6 {
			break
		}
		slot := strconv.Itoa(i + 1)
		row["productOptionName"+slot] = name
		row["productOptionType"+slot] = "TEXT_CHOICES"
		row["productOptionChoices"+slot] = valueFor(name, i+1)
	}
}

func (b wixBuilder) Rows(p *catalog.Product, opts Options) ([]map[string]string, error) {
	handle := resolveHandle(p)
	variants := catalog.ResolveVariants(p)
	optionNames := resolveOptionNames(p, variants, 6)
	if len(optionNames) == 0 && len(variants) > 1 {
		optionNames = []string{"Option"}
	}
	images := catalog.ResolveProductImageURLs(p)

	// Full choice sets per option for the PRODUCT row.
	choicesByName := make(map[string]string, len(optionNames))
	defValues := make(map[string][]string)
	for _, def := range catalog.ResolveOptionDefs(p) {
		defValues[def.Name] = def.Values
	}
	for _, name := range optionNames {
		var values []string
		if name != "Option" {
			values = append(values, defValues[name]...)
		}
		for i := range variants {
			if name == "Option" {
				values = append(values, fallbackOptionValue(&variants[i], i+1))
			} else {
				values = append(values, catalog.ResolveVariantOptionMap(p, &variants[i])[name])
			}
		}
		choicesByName[name] = strings.Join(orderedUniqueStrings(values), ";")
	}

	var rows []map[string]string
	productRow := emptyRow(WixColumns)
	productRow["handle"] = handle
	productRow["fieldType"] = "PRODUCT"
	productRow["name"] = p.Title
	productRow["plainDescription"] = stripHTML(p.Description)
	productRow["visible"] = wixBool(opts.Publish)
	productRow["brand"] = firstNonEmpty(p.Brand, p.Vendor)
	productRow["price"] = priceCell(p, &variants[0], 2)
	wixApplyOptionSlots(productRow, optionNames, func(name string, _ int) string {
		return choicesByName[name]
	})
	if len(images) > 0 {
		productRow["media"] = imageURLOrPlaceholder(images[0])
	}
	rows = append(rows, productRow)

	for index := range variants {
		v := &variants[index]
		row := emptyRow(WixColumns)
		row["handle"] = handle
		row["fieldType"] = "VARIANT"
		row["price"] = priceCell(p, v, 2)
		row["sku"] = firstNonEmpty(v.SKU, v.ID)
		row["inventory"] = wixInventory(p, v)
		row["weight"] = weightCell(v, opts.WeightUnit, 6)
		optionMap := catalog.ResolveVariantOptionMap(p, v)
		wixApplyOptionSlots(row, optionNames, func(name string, _ int) string {
			if name == "Option" {
				return fallbackOptionValue(v, index+1)
			}
			return optionMap[name]
		})
		if img := catalog.ResolveVariantImageURL(v); img != "" {
			row["media"] = imageURLOrPlaceholder(img)
		}
		rows = append(rows, row)
	}

	// Remaining product images become MEDIA rows under the same handle.
	for i, imageURL := range images {
		if i == 0 {
			continue
		}
		row := emptyRow(WixColumns)
		row["handle"] = handle
		row["fieldType"] = "MEDIA"
		row["media"] = imageURLOrPlaceholder(imageURL)
		rows = append(rows, row)
	}
	return rows, nil
}
