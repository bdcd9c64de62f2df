package csvio

import (
	"strings"
	"testing"
)

// ============================================================================
// Decode Tests
// ============================================================================

func TestDecode_StripsBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Handle,Title\n")...)
	text, err := Decode(data, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(text, "Handle") {
		t.Errorf("BOM not stripped: %q", text[:10])
	}
}

func TestDecode_RejectsOversized(t *testing.T) {
	_, err := Decode(make([]byte, 11), 10)
	if err == nil || !strings.Contains(err.Error(), "file too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestDecode_RejectsNonUTF8(t *testing.T) {
	_, err := Decode([]byte{0xFF, 0xFE, 0x41, 0x00}, 0)
	if err == nil || !strings.Contains(err.Error(), "UTF-8") {
		t.Errorf("expected encoding error, got %v", err)
	}
}

// ============================================================================
// ReadTable Tests
// ============================================================================

func TestReadTable_BasicParse(t *testing.T) {
	headers, records, err := ReadTable("Handle,Title\nhat,Felt Hat\ncap, Ball Cap \n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(headers) != 2 || headers[0] != "Handle" {
		t.Errorf("unexpected headers: %v", headers)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[1].Get("Title") != "Ball Cap" {
		t.Errorf("cells not trimmed: %q", records[1].Get("Title"))
	}
}

func TestReadTable_ShortRowsLeaveTrailingCellsEmpty(t *testing.T) {
	_, records, err := ReadTable("A,B,C\n1,2\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records[0].Get("C") != "" {
		t.Errorf("expected empty trailing cell, got %q", records[0].Get("C"))
	}
}

func TestReadTable_RejectsEmptyInput(t *testing.T) {
	if _, _, err := ReadTable(""); err == nil {
		t.Error("expected error for missing header row")
	}
	if _, _, err := ReadTable("A,B\n"); err == nil {
		t.Error("expected error for missing data rows")
	}
}

// ============================================================================
// Header Helper Tests
// ============================================================================

func TestRequireHeaders_ListsMissing(t *testing.T) {
	err := RequireHeaders([]string{"Handle"}, []string{"Handle", "Title", "Variant SKU"})
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "Title") || !strings.Contains(msg, "Variant SKU") {
		t.Errorf("missing columns not named: %v", err)
	}
}

func TestHeaderToken(t *testing.T) {
	cases := map[string]string{
		"Variant SKU":                 "variant_sku",
		"Product Type [Non Editable]": "product_type_non_editable",
		"  Price  ":                   "price",
		"Option1 Value":               "option1_value",
		"productOptionName1":          "productoptionname1",
		"Image Src":                   "image_src",
	}
	for input, want := range cases {
		if got := HeaderToken(input); got != want {
			t.Errorf("HeaderToken(%q) = %q, want %q", input, got, want)
		}
	}
}

// ============================================================================
// Cell Parser Tests
// ============================================================================

func TestParseBool(t *testing.T) {
	if b := ParseBool("TRUE"); b == nil || !*b {
		t.Error("expected TRUE to parse true")
	}
	if b := ParseBool("n"); b == nil || *b {
		t.Error("expected n to parse false")
	}
	if b := ParseBool("maybe"); b != nil {
		t.Error("expected unknown token to be nil")
	}
}

func TestParseInt(t *testing.T) {
	if n := ParseInt("3.0"); n == nil || *n != 3 {
		t.Errorf("expected 3, got %v", n)
	}
	if n := ParseInt("x"); n != nil {
		t.Errorf("expected nil, got %v", n)
	}
}

func TestSplitTokens_OrderedUnique(t *testing.T) {
	got := SplitTokens("a, b ,a,,c", ",")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("unexpected tokens: %v", got)
	}
}

func TestSplitLines(t *testing.T) {
	got := SplitLines("https://a.jpg\r\nhttps://b.jpg\n\nhttps://a.jpg")
	if len(got) != 2 {
		t.Errorf("unexpected lines: %v", got)
	}
}

// ============================================================================
// WriteTable Tests
// ============================================================================

func TestWriteTable_FixedColumnOrder(t *testing.T) {
	text, err := WriteTable([]string{"A", "B"}, []map[string]string{
		{"B": "2", "A": "1"},
		{"A": "3"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "A,B\n1,2\n3,\n"
	if text != want {
		t.Errorf("got %q, want %q", text, want)
	}
}
