package exporter

import (
	"strconv"
	"strings"

	"github.com/JonMunkholm/shelfshift/internal/catalog"
)

// ShopifyColumns is the Shopify product import sheet, order-sensitive.
var ShopifyColumns = []string{
	"Handle",
	"Title",
	"Body (HTML)",
	"Vendor",
	"Type",
	"Tags",
	"Published",
	"Status",
	"Option1 Name",
	"Option1 Value",
	"Option2 Name",
	"Option2 Value",
	"Option3 Name",
	"Option3 Value",
	"Variant SKU",
	"Variant Grams",
	"Variant Inventory Tracker",
	"Variant Inventory Qty",
	"Variant Inventory Policy",
	"Variant Fulfillment Service",
	"Variant Price",
	"Variant Requires Shipping",
	"Variant Taxable",
	"Image Src",
	"Image Position",
	"Image Alt Text",
	"Variant Image",
	"Variant Weight Unit",
}

type shopifyBuilder struct{}

func (shopifyBuilder) Target() string { return "shopify" }

func (shopifyBuilder) Columns(Options) []string { return ShopifyColumns }

func (shopifyBuilder) BatchKey(rows []map[string]string, _ Options) (string, string) {
	if len(rows) == 0 {
		return "", "Shopify Handle"
	}
	return strings.TrimSpace(rows[0]["Handle"]), "Shopify Handle"
}

func shopifyBool(value bool) string {
	if value {
		return "TRUE"
	}
	return "FALSE"
}

// shopifyWeight renders weight in the resolved unit: non-negative integer
// grams for "g", trimmed six-place decimals otherwise.
func shopifyWeight(v *catalog.Variant, unit string) string {
	grams := catalog.ResolveWeightGrams(v)
	if grams == nil {
		return ""
	}
	if unit == catalog.UnitGram {
		n := grams.Round(0).IntPart()
		if n < 0 {
			n = 0
		}
		return strconv.FormatInt(n, 10)
	}
	return weightCell(v, unit, 6)
}

func (b shopifyBuilder) Rows(p *catalog.Product, opts Options) ([]map[string]string, error) {
	handle := resolveHandle(p)
	variants := catalog.ResolveVariants(p)
	optionNames := resolveOptionNames(p, variants, 3)
	if len(optionNames) == 0 {
		optionNames = []string{"Title"}
	}
	images := catalog.ResolveProductImageURLs(p)
	imageAlt := strings.TrimSpace(p.Title)
	requiresShipping := catalog.ResolveRequiresShipping(p) && !p.IsDigital

	var rows []map[string]string
	for index := range variants {
		v := &variants[index]
		row := emptyRow(ShopifyColumns)
		row["Handle"] = handle
		row["Variant SKU"] = firstNonEmpty(v.SKU, v.ID)
		row["Variant Price"] = priceCell(p, v, 2)
		row["Variant Fulfillment Service"] = "manual"
		row["Variant Requires Shipping"] = shopifyBool(requiresShipping)
		row["Variant Taxable"] = shopifyBool(!p.IsDigital)
		row["Variant Image"] = catalog.ResolveVariantImageURL(v)

		if weight := shopifyWeight(v, opts.WeightUnit); weight != "" {
			row["Variant Grams"] = weight
			row["Variant Weight Unit"] = opts.WeightUnit
		}

		if qty := catalog.ResolveInventoryQuantity(v); qty != nil && catalog.ResolveTrackQuantity(p, v) {
			row["Variant Inventory Tracker"] = "shopify"
			row["Variant Inventory Qty"] = strconv.Itoa(*qty)
			row["Variant Inventory Policy"] = "deny"
		}

		optionValues := catalog.ResolveVariantOptionMap(p, v)
		for i, name := range optionNames {
			value := optionValues[name]
			if name == "Title" && len(optionValues) == 0 {
				value = "Default Title"
			}
			slot := strconv.Itoa(i + 1)
			row["Option"+slot+" Name"] = name
			row["Option"+slot+" Value"] = value
		}

		if index == 0 {
			row["Title"] = p.Title
			row["Body (HTML)"] = p.Description
			row["Vendor"] = firstNonEmpty(p.Vendor, p.Brand)
			row["Type"] = catalog.ResolvePrimaryCategory(p, " > ")
			row["Tags"] = sortedTags(p)
			row["Published"] = shopifyBool(opts.Publish)
			if opts.Publish {
				row["Status"] = "active"
			} else {
				row["Status"] = "draft"
			}
			if len(images) > 0 {
				row["Image Src"] = images[0]
				row["Image Position"] = "1"
				row["Image Alt Text"] = imageAlt
			}
		}
		rows = append(rows, row)
	}

	// Remaining product images get image-only rows under the same handle.
	for i, imageURL := range images {
		if i == 0 {
			continue
		}
		row := emptyRow(ShopifyColumns)
		row["Handle"] = handle
		row["Image Src"] = imageURL
		row["Image Position"] = strconv.Itoa(i + 1)
		row["Image Alt Text"] = imageAlt
		rows = append(rows, row)
	}
	return rows, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
