package exporter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/shelfshift/internal/catalog"
)

// WooCommerceColumns is the WooCommerce product CSV import sheet,
// order-sensitive. Variation rows link to their parent via Parent.
var WooCommerceColumns = []string{
	"Type",
	"SKU",
	"Name",
	"Published",
	"Is featured?",
	"Visibility in catalog",
	"Short description",
	"Description",
	"Tax status",
	"In stock?",
	"Stock",
	"Backorders allowed?",
	"Sold individually?",
	"Weight (kg)",
	"Regular price",
	"Categories",
	"Tags",
	"Images",
	"Attribute 1 name",
	"Attribute 1 value(s)",
	"Attribute 1 visible",
	"Attribute 1 global",
	"Attribute 2 name",
	"Attribute 2 value(s)",
	"Attribute 2 visible",
	"Attribute 2 global",
	"Attribute 3 name",
	"Attribute 3 value(s)",
	"Attribute 3 visible",
	"Attribute 3 global",
	"Parent",
}

type woocommerceBuilder struct{}

func (woocommerceBuilder) Target() string { return "woocommerce" }

func (woocommerceBuilder) Columns(Options) []string { return WooCommerceColumns }

func (woocommerceBuilder) BatchKey(rows []map[string]string, _ Options) (string, string) {
	for _, row := range rows {
		if row["Parent"] == "" && row["SKU"] != "" {
			return strings.TrimSpace(row["SKU"]), "WooCommerce parent SKU"
		}
	}
	return "", "WooCommerce parent SKU"
}

func wooBool(value bool) string {
	if value {
		return "1"
	}
	return "0"
}

func wooParentSKU(p *catalog.Product) string {
	return platformToken(p.SourcePlatform()) + ":" + resolveProductKey(p)
}

func wooVariantKey(v *catalog.Variant, index int) string {
	for _, candidate := range []string{v.ID, v.SKU, v.Title} {
		if key := slugify(candidate); key != "" {
			return key
		}
	}
	return strconv.Itoa(index)
}

func wooVariantInStock(p *catalog.Product, v *catalog.Variant) bool {
	if qty := catalog.ResolveInventoryQuantity(v); qty != nil {
		return *qty > 0
	}
	if available := catalog.ResolveAvailable(v); available != nil {
		return *available
	}
	return true
}

func wooApplyStock(row map[string]string, v *catalog.Variant) {
	if qty := catalog.ResolveInventoryQuantity(v); qty != nil {
		row["Stock"] = strconv.Itoa(*qty)
		row["In stock?"] = wooBool(*qty > 0)
		return
	}
	if available := catalog.ResolveAvailable(v); available != nil {
		row["In stock?"] = wooBool(*available)
		return
	}
	row["In stock?"] = "1"
}

func wooApplyAttributes(row map[string]string, names []string, values map[string]string) {
	for i, name := range names {
		slot := strconv.Itoa(i + 1)
		row["Attribute "+slot+" name"] = name
		row["Attribute "+slot+" value(s)"] = values[name]
		row["Attribute "+slot+" visible"] = "1"
		row["Attribute "+slot+" global"] = "0"
	}
}

func wooCommonFields(row map[string]string, p *catalog.Product, publish bool) {
	row["Published"] = wooBool(publish)
	row["Is featured?"] = "0"
	row["Visibility in catalog"] = "visible"
	if seoDesc := catalog.ResolveSEODescription(p); seoDesc != "" {
		row["Short description"] = seoDesc
	} else {
		row["Short description"] = stripHTML(p.Description)
	}
	row["Description"] = p.Description
	if p.IsDigital {
		row["Tax status"] = "none"
	} else {
		row["Tax status"] = "taxable"
	}
	row["Backorders allowed?"] = "0"
	row["Sold individually?"] = "0"
	row["Categories"] = catalog.ResolvePrimaryCategory(p, " > ")
	row["Tags"] = sortedTags(p)
}

func wooIsVariable(p *catalog.Product, variants []catalog.Variant) bool {
	if len(variants) > 1 {
		return true
	}
	for _, def := range catalog.ResolveOptionDefs(p) {
		if len(orderedUniqueStrings(def.Values)) > 1 {
			return true
		}
	}
	return false
}

func (b woocommerceBuilder) Rows(p *catalog.Product, opts Options) ([]map[string]string, error) {
	variants := catalog.ResolveVariants(p)
	optionNames := resolveOptionNames(p, variants, 3)
	if len(optionNames) == 0 && len(variants) > 1 {
		optionNames = []string{"Option"}
	}
	parentSKU := wooParentSKU(p)
	images := catalog.ResolveProductImageURLs(p)

	variantValues := func(v *catalog.Variant, index int) map[string]string {
		values := make(map[string]string, len(optionNames))
		optionMap := catalog.ResolveVariantOptionMap(p, v)
		for _, name := range optionNames {
			if name == "Option" {
				values[name] = fallbackOptionValue(v, index)
			} else {
				values[name] = optionMap[name]
			}
		}
		return values
	}

	if !wooIsVariable(p, variants) {
		v := &variants[0]
		row := emptyRow(WooCommerceColumns)
		wooCommonFields(row, p, opts.Publish)
		row["Type"] = "simple"
		row["SKU"] = parentSKU
		row["Name"] = p.Title
		row["Regular price"] = priceCell(p, v, 6)
		row["Weight (kg)"] = weightCell(v, opts.WeightUnit, 6)
		imageList := images
		if len(imageList) == 0 {
			if img := catalog.ResolveVariantImageURL(v); img != "" {
				imageList = []string{img}
			}
		}
		row["Images"] = strings.Join(imageList, ",")
		wooApplyStock(row, v)
		wooApplyAttributes(row, optionNames, variantValues(v, 1))
		return []map[string]string{row}, nil
	}

	// Parent attribute values accumulate every option value seen across the
	// definitions and variants.
	parentValues := make(map[string]string, len(optionNames))
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
		parentValues[name] = strings.Join(orderedUniqueStrings(values), ",")
	}

	rows := make([]map[string]string, 0, len(variants)+1)
	parentRow := emptyRow(WooCommerceColumns)
	wooCommonFields(parentRow, p, opts.Publish)
	parentRow["Type"] = "variable"
	parentRow["SKU"] = parentSKU
	parentRow["Name"] = p.Title
	parentRow["Regular price"] = priceCell(p, nil, 6)
	anyInStock := false
	for i := range variants {
		if wooVariantInStock(p, &variants[i]) {
			anyInStock = true
			break
		}
	}
	parentRow["In stock?"] = wooBool(anyInStock)
	parentRow["Images"] = strings.Join(images, ",")
	wooApplyAttributes(parentRow, optionNames, parentValues)
	rows = append(rows, parentRow)

	seenSKUs := map[string]struct{}{parentSKU: {}}
	for index := range variants {
		v := &variants[index]
		row := emptyRow(WooCommerceColumns)
		wooCommonFields(row, p, opts.Publish)
		row["Type"] = "variation"

		base := parentSKU + ":" + wooVariantKey(v, index+1)
		sku := base
		for suffix := 2; ; suffix++ {
			if _, taken := seenSKUs[sku]; !taken {
				break
			}
			sku = fmt.Sprintf("%s-%d", base, suffix)
		}
		seenSKUs[sku] = struct{}{}

		row["SKU"] = sku
		row["Regular price"] = priceCell(p, v, 6)
		row["Weight (kg)"] = weightCell(v, opts.WeightUnit, 6)
		row["Images"] = catalog.ResolveVariantImageURL(v)
		row["Parent"] = parentSKU
		row["Categories"] = ""
		row["Tags"] = ""
		wooApplyStock(row, v)
		wooApplyAttributes(row, optionNames, variantValues(v, index+1))
		rows = append(rows, row)
	}
	return rows, nil
}
