package exporter

import (
	"strconv"
	"strings"

	"github.com/JonMunkholm/shelfshift/internal/catalog"
)

// SquarespaceColumns is the Squarespace products CSV sheet, order-sensitive.
// Product-level cells are populated on the first variant row only.
var SquarespaceColumns = []string{
	"Product ID [Non Editable]",
	"Variant ID [Non Editable]",
	"Product Type [Non Editable]",
	"Product Page",
	"Product URL",
	"Title",
	"Description",
	"SKU",
	"Option Name 1",
	"Option Value 1",
	"Option Name 2",
	"Option Value 2",
	"Option Name 3",
	"Option Value 3",
	"Price",
	"Sale Price",
	"On Sale",
	"Stock",
	"Categories",
	"Tags",
	"Weight",
	"Length",
	"Width",
	"Height",
	"Visible",
	"Hosted Image URLs",
}

type squarespaceBuilder struct{}

func (squarespaceBuilder) Target() string { return "squarespace" }

func (squarespaceBuilder) Columns(Options) []string { return SquarespaceColumns }

func (squarespaceBuilder) BatchKey([]map[string]string, Options) (string, string) {
	// Squarespace re-keys products on import; no natural key to enforce.
	return "", ""
}

func squarespaceBool(value bool) string {
	if value {
		return "Yes"
	}
	return "No"
}

func squarespaceStock(p *catalog.Product, v *catalog.Variant) string {
	if !catalog.ResolveTrackQuantity(p, v) {
		return "Unlimited"
	}
	qty := catalog.ResolveInventoryQuantity(v)
	if qty == nil {
		return "Unlimited"
	}
	return strconv.Itoa(*qty)
}

func (b squarespaceBuilder) Rows(p *catalog.Product, opts Options) ([]map[string]string, error) {
	variants := catalog.ResolveVariants(p)
	optionNames := resolveOptionNames(p, variants, 3)
	if len(optionNames) == 0 && len(variants) > 1 {
		optionNames = []string{"Option"}
	}
	hostedImages := strings.Join(catalog.ResolveProductImageURLs(p), "\n")

	rows := make([]map[string]string, 0, len(variants))
	for index := range variants {
		v := &variants[index]
		row := emptyRow(SquarespaceColumns)
		row["SKU"] = firstNonEmpty(v.SKU, v.ID)
		row["Price"] = priceCell(p, v, 2)
		row["Sale Price"] = ""
		row["On Sale"] = "No"
		row["Stock"] = squarespaceStock(p, v)

		optionMap := catalog.ResolveVariantOptionMap(p, v)
		for i, name := range optionNames {
			slot := strconv.Itoa(i + 1)
			row["Option Name "+slot] = name
			if name == "Option" {
				row["Option Value "+slot] = fallbackOptionValue(v, index+1)
			} else {
				row["Option Value "+slot] = optionMap[name]
			}
		}

		if index == 0 {
			if p.IsDigital {
				row["Product Type [Non Editable]"] = "DIGITAL"
			} else {
				row["Product Type [Non Editable]"] = "PHYSICAL"
			}
			row["Product Page"] = strings.TrimSpace(opts.SquarespaceProductPage)
			row["Product URL"] = strings.TrimSpace(opts.SquarespaceProductURL)
			row["Title"] = p.Title
			row["Description"] = p.Description
			// Squarespace imports often fail with "Categories not assigned"
			// when the label doesn't already exist in the destination site.
			// Left blank so users assign categories post-import.
			row["Categories"] = ""
			row["Tags"] = sortedTags(p)
			row["Weight"] = weightCell(v, opts.WeightUnit, 6)
			row["Visible"] = squarespaceBool(opts.Publish)
			row["Hosted Image URLs"] = hostedImages
		}
		rows = append(rows, row)
	}
	return rows, nil
}
