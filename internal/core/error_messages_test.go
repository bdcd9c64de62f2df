package core

import (
	"errors"
	"strings"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "empty url maps correctly",
			err:         errors.New("product_url is required"),
			wantCode:    "URL001",
			wantMessage: "No product URL was provided",
		},
		{
			name:        "unsupported url maps correctly",
			err:         errors.New("unsupported URL: supported import sources are Shopify, WooCommerce, Squarespace, Amazon, AliExpress"),
			wantCode:    "URL002",
			wantMessage: "This URL is not from a supported platform",
		},
		{
			name:        "not a product page maps correctly",
			err:         errors.New("shopify: URL is not a product page"),
			wantCode:    "URL003",
			wantMessage: "The URL is not a product page",
		},
		{
			name:     "missing rapidapi key maps correctly",
			err:      errors.New("RAPIDAPI_KEY is required for Amazon and AliExpress imports"),
			wantCode: "URL004",
		},
		{
			name:     "upstream status maps correctly",
			err:      errors.New("unexpected status 503 fetching https://store.example/products/hat.json"),
			wantCode: "URL005",
		},
		{
			name:     "missing json-ld maps correctly",
			err:      errors.New("no product JSON-LD found in woocommerce HTML"),
			wantCode: "URL006",
		},
		{
			name:     "file too large maps correctly",
			err:      errors.New("file too large: CSV upload exceeds 5242880 bytes"),
			wantCode: "CSV001",
		},
		{
			name:     "invalid csv maps correctly",
			err:      errors.New("invalid csv: header row is required"),
			wantCode: "CSV002",
		},
		{
			name:     "empty file maps correctly",
			err:      errors.New("empty file: CSV must include at least one data row"),
			wantCode: "CSV003",
		},
		{
			name:     "missing columns maps correctly",
			err:      errors.New("missing required columns: Handle, Variant Price"),
			wantCode: "CSV004",
		},
		{
			name:     "undetectable platform maps correctly",
			err:      errors.New("unable to detect CSV platform from headers; select the source platform manually"),
			wantCode: "CSV005",
		},
		{
			name:     "bad source platform maps correctly",
			err:      errors.New("source_platform must be one of: shopify, bigcommerce, wix, squarespace, woocommerce"),
			wantCode: "CSV006",
		},
		{
			name:     "missing weight unit maps correctly",
			err:      errors.New("source_weight_unit is required for wix CSV imports"),
			wantCode: "CSV007",
		},
		{
			name:     "bad target platform maps correctly",
			err:      errors.New("target_platform must be one of: bigcommerce, shopify, squarespace, wix, woocommerce"),
			wantCode: "EXP001",
		},
		{
			name:     "bad weight unit maps correctly",
			err:      errors.New("weight_unit must be one of: lb, oz, kg, g for target_platform=shopify"),
			wantCode: "EXP002",
		},
		{
			name:     "duplicate keys map correctly",
			err:      errors.New("duplicate handle values in batch export: felt-hat"),
			wantCode: "EXP003",
		},
		{
			name:     "cancelled context maps correctly",
			err:      errors.New("context canceled"),
			wantCode: "SYS001",
		},
		{
			name:     "deadline maps correctly",
			err:      errors.New("context deadline exceeded"),
			wantCode: "SYS002",
		},
		{
			name:     "busy limiter maps correctly",
			err:      ErrTooManyConversions,
			wantCode: "RATE001",
		},
		{
			name:     "unknown error falls back to ERR000",
			err:      errors.New("something completely unexpected"),
			wantCode: "ERR000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.wantMessage != "" && got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(errors.New("product_url is required"))
	if !strings.Contains(got, "URL001") || !strings.Contains(got, "No product URL was provided") {
		t.Errorf("FormatUserError() = %q", got)
	}
	if FormatUserError(nil) != "" {
		t.Error("nil error must format to empty string")
	}
}

func TestIsUserFacing(t *testing.T) {
	if !IsUserFacing(errors.New("unsupported URL: x")) {
		t.Error("mapped errors must be user-facing")
	}
	if IsUserFacing(errors.New("some internal panic detail")) {
		t.Error("unmapped errors must not be user-facing")
	}
	if IsUserFacing(nil) {
		t.Error("nil must not be user-facing")
	}
}

func TestUserErrorUnwrap(t *testing.T) {
	inner := errors.New("file too large: CSV upload exceeds 100 bytes")
	ue := NewUserError(inner)
	if ue.User.Code != "CSV001" {
		t.Errorf("code = %q", ue.User.Code)
	}
	if !errors.Is(ue, inner) {
		t.Error("UserError must unwrap to the original error")
	}
	if NewUserError(nil) != nil {
		t.Error("nil error must produce nil UserError")
	}
}
