package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/shelfshift/internal/catalog"
	"github.com/JonMunkholm/shelfshift/internal/config"
	"github.com/JonMunkholm/shelfshift/internal/core"
)

const shopifyCSVFixture = `Handle,Title,Body (HTML),Vendor,Type,Tags,Option1 Name,Option1 Value,Variant SKU,Variant Grams,Variant Inventory Qty,Variant Price,Variant Requires Shipping,Image Src
felt-hat,Felt Hat,<p>A hat</p>,Hatco,Apparel > Hats,"winter, wool",Size,Small,HAT-S,120,5,19.99,TRUE,https://cdn.example.com/hat-front.jpg
felt-hat,,,,,,Size,Large,HAT-L,130,0,21.99,,
wool-scarf,Wool Scarf,<p>A scarf</p>,Hatco,,,Title,Default Title,SCARF-1,200,,14.50,TRUE,
`

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:            8080,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: time.Second,
		},
		Upload:  config.UploadConfig{MaxFileSize: 1 << 20},
		Fetch:   config.FetchConfig{Timeout: 10 * time.Second, Concurrency: 2},
		Convert: config.ConvertConfig{MaxConcurrent: 5, MaxWaitTime: time.Second},
		Rate:    config.RateLimitConfig{Enabled: false},
		Security: config.SecurityConfig{
			EnableCSP: true,
		},
		Logging: config.LoggingConfig{Level: "error", Format: "text"},
	}
}

func newTestServer(t *testing.T, opts core.Options) *Server {
	t.Helper()
	return NewServer(core.NewService(opts), testConfig())
}

// multipartBody builds a multipart form with a "file" field plus extra fields.
func multipartBody(t *testing.T, fileContents string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "products.csv")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	fw.Write([]byte(fileContents))
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// ============================================================================
// Health and Platform Listing Tests
// ============================================================================

func TestHealthz(t *testing.T) {
	s := newTestServer(t, core.Options{})

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]interface{}
	decodeBody(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
}

func TestListPlatforms(t *testing.T) {
	s := newTestServer(t, core.Options{})

	req := httptest.NewRequest("GET", "/api/platforms", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		URLSources []string `json:"url_sources"`
		CSVSources []string `json:"csv_sources"`
		Targets    []string `json:"targets"`
	}
	decodeBody(t, rec, &body)
	if len(body.URLSources) != 5 {
		t.Errorf("url sources: %v", body.URLSources)
	}
	if len(body.CSVSources) != 5 {
		t.Errorf("csv sources: %v", body.CSVSources)
	}
	if len(body.Targets) != 5 {
		t.Errorf("targets: %v", body.Targets)
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, core.Options{})

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing X-Content-Type-Options")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing X-Frame-Options")
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing Content-Security-Policy")
	}
}

// ============================================================================
// Detection Endpoint Tests
// ============================================================================

func TestDetectURLEndpoint(t *testing.T) {
	s := newTestServer(t, core.Options{})

	rec := doJSON(t, s, "POST", "/api/detect/url", map[string]string{
		"product_url": "demo.myshopify.com/products/felt-hat",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var info struct {
		Platform      string `json:"platform"`
		IsProduct     bool   `json:"is_product"`
		NormalizedURL string `json:"normalized_url"`
	}
	decodeBody(t, rec, &info)
	if info.Platform != "shopify" || !info.IsProduct {
		t.Errorf("detection: %+v", info)
	}
	if info.NormalizedURL != "https://demo.myshopify.com/products/felt-hat" {
		t.Errorf("normalized: %q", info.NormalizedURL)
	}
}

func TestDetectURLEndpointUnrecognized(t *testing.T) {
	s := newTestServer(t, core.Options{})

	// A URL no platform claims is still a successful detection: it answers
	// with a null platform rather than an error.
	rec := doJSON(t, s, "POST", "/api/detect/url", map[string]string{
		"product_url": "https://example.org/some/page",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"platform":null`) {
		t.Errorf("body = %s", rec.Body.String())
	}
	var info struct {
		IsProduct     bool   `json:"is_product"`
		NormalizedURL string `json:"normalized_url"`
	}
	decodeBody(t, rec, &info)
	if info.IsProduct {
		t.Error("unrecognized URL must not be a product")
	}
	if info.NormalizedURL != "https://example.org/some/page" {
		t.Errorf("normalized: %q", info.NormalizedURL)
	}
}

func TestDetectURLEndpointErrors(t *testing.T) {
	s := newTestServer(t, core.Options{})

	// Blank URL maps to URL001
	rec := doJSON(t, s, "POST", "/api/detect/url", map[string]string{
		"product_url": "  ",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank URL status = %d", rec.Code)
	}
	var errResp ErrorResponse
	decodeBody(t, rec, &errResp)
	if errResp.Code != "URL001" {
		t.Errorf("code = %q", errResp.Code)
	}

	// Malformed JSON body
	req := httptest.NewRequest("POST", "/api/detect/url", strings.NewReader("{nope"))
	req.Header.Set("Content-Type", "application/json")
	rec2 := httptest.NewRecorder()
	s.Router().ServeHTTP(rec2, req)
	if rec2.Code != http.StatusBadRequest {
		t.Errorf("bad JSON status = %d", rec2.Code)
	}
}

func TestDetectCSVEndpoint(t *testing.T) {
	s := newTestServer(t, core.Options{})

	body, contentType := multipartBody(t, shopifyCSVFixture, nil)
	req := httptest.NewRequest("POST", "/api/detect/csv", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	decodeBody(t, rec, &resp)
	if resp["platform"] != "shopify" {
		t.Errorf("platform = %q", resp["platform"])
	}
}

func TestDetectCSVEndpointMissingFile(t *testing.T) {
	s := newTestServer(t, core.Options{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("source_platform", "shopify")
	mw.Close()

	req := httptest.NewRequest("POST", "/api/detect/csv", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

// ============================================================================
// Import Endpoint Tests
// ============================================================================

func TestImportCSVEndpoint(t *testing.T) {
	s := newTestServer(t, core.Options{})

	body, contentType := multipartBody(t, shopifyCSVFixture, map[string]string{
		"source_platform": "shopify",
	})
	req := httptest.NewRequest("POST", "/api/import/csv", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp importResponse
	decodeBody(t, rec, &resp)
	if resp.Count != 2 {
		t.Errorf("count = %d", resp.Count)
	}
	if len(resp.Products) != 2 || resp.Products[0].Title != "Felt Hat" {
		t.Errorf("products: %d", len(resp.Products))
	}
	if len(resp.Reports) != 2 {
		t.Errorf("validation reports: %d", len(resp.Reports))
	}
}

func TestImportURLEndpoint(t *testing.T) {
	upstream := newUpstreamShopify(t)
	s := newTestServer(t, core.Options{HTTPClient: upstream.Client()})

	rec := doJSON(t, s, "POST", "/api/import/url", map[string]string{
		"product_url": upstream.URL + "/products/felt-hat",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp importResponse
	decodeBody(t, rec, &resp)
	if resp.Count != 1 || resp.Products[0].Title != "Felt Hat" {
		t.Errorf("response: %+v", resp)
	}
}

func TestImportURLEndpointBatch(t *testing.T) {
	upstream := newUpstreamShopify(t)
	s := newTestServer(t, core.Options{HTTPClient: upstream.Client()})

	rec := doJSON(t, s, "POST", "/api/import/url", map[string]interface{}{
		"urls": []string{
			upstream.URL + "/products/felt-hat",
			"https://example.org/not/supported",
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp importResponse
	decodeBody(t, rec, &resp)
	if resp.Count != 1 {
		t.Errorf("count = %d", resp.Count)
	}
	if len(resp.Errors) != 1 {
		t.Fatalf("errors: %+v", resp.Errors)
	}
	if resp.Errors[0].URL != "https://example.org/not/supported" {
		t.Errorf("failed URL: %q", resp.Errors[0].URL)
	}
}

func TestImportURLEndpointNotProduct(t *testing.T) {
	s := newTestServer(t, core.Options{})

	rec := doJSON(t, s, "POST", "/api/import/url", map[string]string{
		"product_url": "https://demo.myshopify.com/collections/all",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
	var errResp ErrorResponse
	decodeBody(t, rec, &errResp)
	if errResp.Code != "URL003" {
		t.Errorf("code = %q", errResp.Code)
	}
}

func newUpstreamShopify(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/products/felt-hat.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"product": {
			"id": 42, "title": "Felt Hat", "vendor": "Hatco",
			"variants": [{"id": 420, "sku": "HAT-S", "price": "19.99"}]
		}}`))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

// ============================================================================
// Convert and Export Endpoint Tests
// ============================================================================

func TestConvertEndpointCSV(t *testing.T) {
	s := newTestServer(t, core.Options{})

	body, contentType := multipartBody(t, shopifyCSVFixture, map[string]string{
		"source_platform": "shopify",
		"target_platform": "woocommerce",
	})
	req := httptest.NewRequest("POST", "/api/convert", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var result core.ConvertResult
	decodeBody(t, rec, &result)
	if result.CSV == "" {
		t.Error("missing CSV output")
	}
	if result.Report.Source != "shopify" || result.Report.Target != "woocommerce" {
		t.Errorf("report: %+v", result.Report)
	}
	if result.Report.ProductCount != 2 {
		t.Errorf("product count = %d", result.Report.ProductCount)
	}
	if result.Report.ConversionID == "" {
		t.Error("missing conversion id")
	}
}

func TestConvertEndpointCSVDownload(t *testing.T) {
	s := newTestServer(t, core.Options{})

	body, contentType := multipartBody(t, shopifyCSVFixture, map[string]string{
		"source_platform": "shopify",
		"target_platform": "woocommerce",
		"download":        "true",
	})
	req := httptest.NewRequest("POST", "/api/convert", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, ".csv") {
		t.Errorf("content disposition = %q", cd)
	}
	if rec.Header().Get("X-Conversion-Id") == "" {
		t.Error("missing X-Conversion-Id header")
	}
}

func TestConvertEndpointURLs(t *testing.T) {
	upstream := newUpstreamShopify(t)
	s := newTestServer(t, core.Options{HTTPClient: upstream.Client()})

	rec := doJSON(t, s, "POST", "/api/convert", map[string]interface{}{
		"urls":            []string{upstream.URL + "/products/felt-hat"},
		"target_platform": "squarespace",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var result core.ConvertResult
	decodeBody(t, rec, &result)
	if result.Report.Source != "url" {
		t.Errorf("source = %q", result.Report.Source)
	}
	if result.Report.ProductCount != 1 {
		t.Errorf("product count = %d", result.Report.ProductCount)
	}
}

func TestConvertEndpointBadTarget(t *testing.T) {
	s := newTestServer(t, core.Options{})

	body, contentType := multipartBody(t, shopifyCSVFixture, map[string]string{
		"source_platform": "shopify",
		"target_platform": "etsy",
	})
	req := httptest.NewRequest("POST", "/api/convert", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
	var errResp ErrorResponse
	decodeBody(t, rec, &errResp)
	if errResp.Code != "EXP001" {
		t.Errorf("code = %q", errResp.Code)
	}
}

func TestExportEndpoint(t *testing.T) {
	svc := core.NewService(core.Options{})
	products, err := svc.ImportCSV([]byte(shopifyCSVFixture), "shopify", "")
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	s := NewServer(svc, testConfig())

	rec := doJSON(t, s, "POST", "/api/export", map[string]interface{}{
		"products":        products,
		"target_platform": "wix",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		CSV      string `json:"csv"`
		Filename string `json:"filename"`
		RowCount int    `json:"row_count"`
	}
	decodeBody(t, rec, &resp)
	if resp.CSV == "" || resp.RowCount == 0 {
		t.Errorf("export response: %+v", resp)
	}
	if !strings.HasSuffix(resp.Filename, ".csv") {
		t.Errorf("filename = %q", resp.Filename)
	}
}

func TestExportEndpointRequiresProducts(t *testing.T) {
	s := newTestServer(t, core.Options{})

	rec := doJSON(t, s, "POST", "/api/export", map[string]interface{}{
		"products":        []*catalog.Product{},
		"target_platform": "wix",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

// ============================================================================
// Rate Limiting Tests
// ============================================================================

func TestConvertRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, ConvertLimit: 1}
	s := NewServer(core.NewService(core.Options{}), cfg)

	send := func() *httptest.ResponseRecorder {
		body, contentType := multipartBody(t, shopifyCSVFixture, map[string]string{
			"source_platform": "shopify",
			"target_platform": "woocommerce",
		})
		req := httptest.NewRequest("POST", "/api/convert", body)
		req.Header.Set("Content-Type", contentType)
		req.RemoteAddr = "203.0.113.9:1234"
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)
		return rec
	}

	if rec := send(); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, body = %s", rec.Code, rec.Body.String())
	}
	rec := send()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Error("missing Retry-After header")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := newRateLimiter(1, 20*time.Millisecond)

	if !rl.allow("1.2.3.4") {
		t.Fatal("first request must pass")
	}
	if rl.allow("1.2.3.4") {
		t.Fatal("second request must be limited")
	}
	time.Sleep(30 * time.Millisecond)
	if !rl.allow("1.2.3.4") {
		t.Error("request after window reset must pass")
	}
}
