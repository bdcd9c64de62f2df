package detect

import (
	"fmt"

	"github.com/JonMunkholm/shelfshift/internal/csvio"
)

// headerSignature ties a platform to the column set that fingerprints its
// CSV export format.
type headerSignature struct {
	platform string
	headers  []string
}

// Ordered most specific first to avoid false positives: BigCommerce's
// modern {Item, SKU, Name} set would otherwise claim several formats.
var csvSignatures = []headerSignature{
	{Squarespace, []string{"Title", "SKU", "Price", "Product Type [Non Editable]", "Visible"}},
	{Wix, []string{"handle", "fieldType", "name", "price", "sku"}},
	{BigCommerce, []string{"Item", "SKU", "Name"}},
	{BigCommerce, []string{"Product Type", "Code", "Name"}},
	{WooCommerce, []string{"Type", "SKU", "Name", "Regular price"}},
	{Shopify, []string{"Handle", "Title", "Variant SKU", "Variant Price"}},
}

// CSVSourcePlatforms lists the platforms whose CSV exports can be detected
// and imported.
var CSVSourcePlatforms = []string{Shopify, BigCommerce, Wix, Squarespace, WooCommerce}

// DetectCSVPlatform inspects a CSV header row and returns the platform
// whose signature it matches. Returns an error when no signature matches,
// telling the caller that manual platform selection is required.
func DetectCSVPlatform(data []byte, maxBytes int64) (string, error) {
	text, err := csvio.Decode(data, maxBytes)
	if err != nil {
		return "", err
	}
	headers, _, err := csvio.ReadTable(text)
	if err != nil {
		return "", err
	}
	for _, sig := range csvSignatures {
		if csvio.HasHeaders(headers, sig.headers) {
			return sig.platform, nil
		}
	}
	return "", fmt.Errorf("unable to detect CSV platform from headers; select the source platform manually")
}
