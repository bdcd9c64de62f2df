package csvimport

import (
	"github.com/JonMunkholm/shelfshift/internal/catalog"
	"github.com/JonMunkholm/shelfshift/internal/csvio"
)

// ImportProduct parses the first product in a platform CSV export.
// sourceWeightUnit is mandatory for platforms whose weight columns carry no
// unit (bigcommerce, wix, squarespace).
func ImportProduct(platform string, data []byte, sourceWeightUnit string) (*catalog.Product, error) {
	normalized, unit, err := validateRequest(platform, data, sourceWeightUnit)
	if err != nil {
		return nil, err
	}
	text, err := csvio.Decode(data, csvio.MaxUploadBytes)
	if err != nil {
		return nil, err
	}

	switch normalized {
	case "shopify":
		return ParseShopifyCSV(text)
	case "wix":
		return ParseWixCSV(text, unit)
	case "squarespace":
		return ParseSquarespaceCSV(text, unit)
	case "woocommerce":
		return ParseWooCommerceCSV(text)
	default:
		return ParseBigCommerceCSV(text, unit)
	}
}

// ImportProducts parses every product in a platform CSV export, stamping
// each with batch provenance carrying the full detected count.
func ImportProducts(platform string, data []byte, sourceWeightUnit string) ([]*catalog.Product, error) {
	normalized, unit, err := validateRequest(platform, data, sourceWeightUnit)
	if err != nil {
		return nil, err
	}
	text, err := csvio.Decode(data, csvio.MaxUploadBytes)
	if err != nil {
		return nil, err
	}

	switch normalized {
	case "shopify":
		return parseShopifyBatch(text)
	case "wix":
		return parseWixBatch(text, unit)
	case "squarespace":
		return parseSquarespaceBatch(text, unit)
	case "woocommerce":
		return parseWooCommerceBatch(text)
	default:
		return parseBigCommerceBatch(text, unit)
	}
}
