package catalog

import "strings"

// Selection policies recorded on CSV-imported products.
const (
	SelectionFirstProduct = "first_product"
	SelectionBatchAll     = "batch_all"
)

// ProvenanceCSVImport is the provenance map key used for CSV imports.
const ProvenanceCSVImport = "csv_import"

// CSVProvenance describes how a product was selected out of a multi-product
// CSV file.
type CSVProvenance struct {
	SourcePlatform       string `json:"source_platform"`
	SelectionPolicy      string `json:"selection_policy"`
	DetectedProductCount int    `json:"detected_product_count"`
	SelectedProductKey   string `json:"selected_product_key,omitempty"`
}

// StampCSVProvenance records CSV import provenance on the product,
// replacing any previous stamp.
func (p *Product) StampCSVProvenance(prov CSVProvenance) {
	prov.SourcePlatform = strings.ToLower(strings.TrimSpace(prov.SourcePlatform))
	if p.Provenance == nil {
		p.Provenance = map[string]any{}
	}
	p.Provenance[ProvenanceCSVImport] = prov
}

// CSVProvenanceOf returns the product's CSV import stamp, if present.
func (p *Product) CSVProvenanceOf() (CSVProvenance, bool) {
	raw, ok := p.Provenance[ProvenanceCSVImport]
	if !ok {
		return CSVProvenance{}, false
	}
	prov, ok := raw.(CSVProvenance)
	return prov, ok
}
