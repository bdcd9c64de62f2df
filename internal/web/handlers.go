package web

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/JonMunkholm/shelfshift/internal/catalog"
	"github.com/JonMunkholm/shelfshift/internal/core"
	"github.com/JonMunkholm/shelfshift/internal/detect"
	"github.com/JonMunkholm/shelfshift/internal/exporter"
	"github.com/JonMunkholm/shelfshift/internal/importer/urlimport"
)

// urlSourcePlatforms lists the platforms importable from a product URL.
var urlSourcePlatforms = []string{
	detect.Shopify,
	detect.WooCommerce,
	detect.Squarespace,
	detect.Amazon,
	detect.AliExpress,
}

// handleHealthz reports liveness plus current conversion saturation.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":             "ok",
		"active_conversions": s.service.Limiter().ActiveCount(),
	})
}

// handleListPlatforms returns the supported source and target platforms.
func (s *Server) handleListPlatforms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"url_sources": urlSourcePlatforms,
		"csv_sources": detect.CSVSourcePlatforms,
		"targets":     exporter.Targets(),
	})
}

// detectURLRequest is the body for POST /api/detect/url.
type detectURLRequest struct {
	ProductURL string `json:"product_url"`
}

// handleDetectURL classifies a product URL without fetching it.
func (s *Server) handleDetectURL(w http.ResponseWriter, r *http.Request) {
	var req detectURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondBadRequest(w, r, "invalid JSON body")
		return
	}

	info, err := s.service.DetectURL(req.ProductURL)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// handleDetectCSV sniffs the source platform of an uploaded CSV export.
func (s *Server) handleDetectCSV(w http.ResponseWriter, r *http.Request) {
	data, ok := s.readUploadedFile(w, r)
	if !ok {
		return
	}

	platform, err := s.service.DetectCSV(data)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"platform": platform})
}

// importURLRequest is the body for POST /api/import/url.
// Either product_url (single) or urls (batch) must be set.
type importURLRequest struct {
	ProductURL string   `json:"product_url"`
	URLs       []string `json:"urls"`
}

// importResponse is the shared response shape for import endpoints.
type importResponse struct {
	Products []*catalog.Product         `json:"products"`
	Count    int                        `json:"count"`
	Errors   []urlimport.URLError       `json:"errors,omitempty"`
	Reports  []catalog.ValidationReport `json:"validation,omitempty"`
}

// handleImportURL fetches one or more product URLs into canonical products.
func (s *Server) handleImportURL(w http.ResponseWriter, r *http.Request) {
	var req importURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondBadRequest(w, r, "invalid JSON body")
		return
	}

	if len(req.URLs) > 0 {
		products, failures := s.service.ImportURLs(r.Context(), req.URLs)
		writeJSON(w, http.StatusOK, importResponse{
			Products: products,
			Count:    len(products),
			Errors:   failures,
			Reports:  validationReports(products),
		})
		return
	}

	product, err := s.service.ImportURL(r.Context(), req.ProductURL)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	products := []*catalog.Product{product}
	writeJSON(w, http.StatusOK, importResponse{
		Products: products,
		Count:    1,
		Reports:  validationReports(products),
	})
}

// handleImportCSV parses an uploaded platform CSV into canonical products.
// Form fields: file (required), source_platform, source_weight_unit.
func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	data, ok := s.readUploadedFile(w, r)
	if !ok {
		return
	}

	products, err := s.service.ImportCSV(data, r.FormValue("source_platform"), r.FormValue("source_weight_unit"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, importResponse{
		Products: products,
		Count:    len(products),
		Reports:  validationReports(products),
	})
}

// exportRequest is the body for POST /api/export: canonical products plus a
// target and export knobs.
type exportRequest struct {
	Products       []*catalog.Product `json:"products"`
	TargetPlatform string             `json:"target_platform"`
	Options        exportOptions      `json:"options"`
}

// handleExport renders previously imported canonical products as a target CSV.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondBadRequest(w, r, "invalid JSON body")
		return
	}
	if len(req.Products) == 0 {
		s.respondBadRequest(w, r, "products is required")
		return
	}

	result, err := s.service.ExportCSV(req.Products, req.TargetPlatform, req.Options.toExporter())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if wantsDownload(r) {
		writeCSVDownload(w, result.Filename, result.CSV)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"csv":       result.CSV,
		"filename":  result.Filename,
		"row_count": result.RowCount,
	})
}

// convertRequest is the JSON body for POST /api/convert (URL mode).
type convertRequest struct {
	URLs           []string      `json:"urls"`
	TargetPlatform string        `json:"target_platform"`
	Options        exportOptions `json:"options"`
}

// handleConvert runs an end-to-end conversion.
//
// Two request shapes are accepted:
//   - multipart form: a CSV file plus source_platform, source_weight_unit,
//     target_platform and export option fields
//   - JSON: a list of product URLs plus target_platform and options
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if isMultipart(r) {
		s.handleConvertCSV(w, r)
		return
	}

	var req convertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondBadRequest(w, r, "invalid JSON body")
		return
	}

	result, err := s.service.ConvertURLs(r.Context(), core.ConvertURLsRequest{
		URLs:           req.URLs,
		TargetPlatform: req.TargetPlatform,
		Export:         req.Options.toExporter(),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.writeConvertResult(w, r, *result)
}

// handleConvertCSV is the multipart branch of handleConvert.
func (s *Server) handleConvertCSV(w http.ResponseWriter, r *http.Request) {
	data, ok := s.readUploadedFile(w, r)
	if !ok {
		return
	}

	result, err := s.service.ConvertCSV(r.Context(), core.ConvertCSVRequest{
		Data:             data,
		SourcePlatform:   r.FormValue("source_platform"),
		SourceWeightUnit: r.FormValue("source_weight_unit"),
		TargetPlatform:   r.FormValue("target_platform"),
		Export:           formExportOptions(r),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.writeConvertResult(w, r, *result)
}

// writeConvertResult returns a conversion either as JSON or as a CSV
// download with the report carried in headers.
func (s *Server) writeConvertResult(w http.ResponseWriter, r *http.Request, result core.ConvertResult) {
	if wantsDownload(r) {
		w.Header().Set("X-Conversion-Id", result.Report.ConversionID)
		writeCSVDownload(w, result.Report.Filename, result.CSV)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// exportOptions mirrors exporter.Options with JSON tags and a publish
// default of true: a converted listing should be importable as-is.
type exportOptions struct {
	Publish                *bool  `json:"publish"`
	WeightUnit             string `json:"weight_unit"`
	BigCommerceFormat      string `json:"bigcommerce_format"`
	SquarespaceProductPage string `json:"squarespace_product_page"`
	SquarespaceProductURL  string `json:"squarespace_product_url"`
}

func (o exportOptions) toExporter() exporter.Options {
	publish := true
	if o.Publish != nil {
		publish = *o.Publish
	}
	return exporter.Options{
		Publish:                publish,
		WeightUnit:             o.WeightUnit,
		BigCommerceFormat:      o.BigCommerceFormat,
		SquarespaceProductPage: o.SquarespaceProductPage,
		SquarespaceProductURL:  o.SquarespaceProductURL,
	}
}

// formExportOptions reads export knobs from multipart form fields.
func formExportOptions(r *http.Request) exporter.Options {
	publish := true
	if v := r.FormValue("publish"); v != "" {
		publish = v == "true" || v == "1" || v == "on"
	}
	return exporter.Options{
		Publish:                publish,
		WeightUnit:             r.FormValue("weight_unit"),
		BigCommerceFormat:      r.FormValue("bigcommerce_format"),
		SquarespaceProductPage: r.FormValue("squarespace_product_page"),
		SquarespaceProductURL:  r.FormValue("squarespace_product_url"),
	}
}

// readUploadedFile extracts the "file" multipart field, bounded by the
// configured size limit. Writes the error response itself on failure.
func (s *Server) readUploadedFile(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	maxSize := s.service.MaxCSVBytes()
	// Allow form-field overhead beyond the file itself
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+64*1024)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		s.respondError(w, r, fmt.Errorf("file too large: CSV upload exceeds %d bytes", maxSize))
		return nil, false
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		s.respondBadRequest(w, r, "no file provided")
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondBadRequest(w, r, "failed to read file")
		return nil, false
	}
	return data, true
}

func validationReports(products []*catalog.Product) []catalog.ValidationReport {
	reports := make([]catalog.ValidationReport, len(products))
	for i, p := range products {
		reports[i] = catalog.ValidateProduct(p)
	}
	return reports
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "multipart/")
}

func wantsDownload(r *http.Request) bool {
	return r.URL.Query().Get("download") == "true" || r.FormValue("download") == "true"
}

func writeCSVDownload(w http.ResponseWriter, filename, csv string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Write([]byte(csv))
}
