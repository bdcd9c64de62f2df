// Package csvio provides the shared CSV plumbing used by platform
// detection, the import parsers, and the export builders: byte decoding
// with size and encoding enforcement, header-indexed row access, and the
// small cell parsers every dialect needs.
package csvio

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxUploadBytes is the default CSV upload ceiling (5 MiB).
const MaxUploadBytes = 5 * 1024 * 1024

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode converts uploaded CSV bytes into text. Only UTF-8 (with or without
// a byte-order mark) is accepted; anything larger than maxBytes is rejected
// before decoding. A maxBytes of zero applies the default ceiling.
func Decode(data []byte, maxBytes int64) (string, error) {
	limit := maxBytes
	if limit <= 0 {
		limit = MaxUploadBytes
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("file too large: CSV upload exceeds %d bytes", limit)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", fmt.Errorf("invalid csv: file must be UTF-8 encoded")
	}
	return string(data), nil
}

// Record is one CSV data row keyed by the exact header names.
type Record map[string]string

// Get returns the trimmed cell for a header, or "" when absent.
func (r Record) Get(header string) string {
	return strings.TrimSpace(r[header])
}

// ReadTable parses CSV text into its header row and header-keyed records.
// Ragged rows are tolerated; short rows leave the trailing cells empty.
func ReadTable(text string) ([]string, []Record, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("invalid csv: header row is required")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("invalid csv: %w", err)
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	var records []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("invalid csv: %w", err)
		}
		record := make(Record, len(headers))
		for i, header := range headers {
			if i < len(row) {
				record[header] = strings.TrimSpace(row[i])
			} else {
				record[header] = ""
			}
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty file: CSV must include at least one data row")
	}
	return headers, records, nil
}

// RequireHeaders checks that every required column is present, returning an
// error listing the missing ones.
func RequireHeaders(headers []string, required []string) error {
	available := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		available[strings.TrimSpace(h)] = struct{}{}
	}
	var missing []string
	for _, req := range required {
		if _, ok := available[req]; !ok {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// HasHeaders reports whether every header in signature is present.
func HasHeaders(headers []string, signature []string) bool {
	return RequireHeaders(headers, signature) == nil
}

// HeaderToken normalizes a header into a lowercase underscore token used
// for passthrough identifier keys ("Variant SKU" -> "variant_sku").
func HeaderToken(header string) string {
	lower := strings.ToLower(strings.TrimSpace(header))
	var b strings.Builder
	b.Grow(len(lower))
	lastUnderscore := false
	for _, r := range lower {
		if unicode.IsLower(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

// ParseBool interprets the usual CSV truthy/falsy tokens. Unknown or empty
// input returns nil.
func ParseBool(value string) *bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "y":
		t := true
		return &t
	case "0", "false", "no", "n":
		f := false
		return &f
	}
	return nil
}

// ParseInt parses an integer cell, tolerating decimal notation ("3.0").
func ParseInt(value string) *int {
	text := strings.TrimSpace(value)
	if text == "" {
		return nil
	}
	if n, err := strconv.Atoi(text); err == nil {
		return &n
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil
	}
	n := int(f)
	return &n
}

// SplitTokens splits a delimited cell into trimmed, ordered-unique tokens.
func SplitTokens(value, sep string) []string {
	text := strings.TrimSpace(value)
	if text == "" {
		return nil
	}
	var out []string
	seen := make(map[string]struct{})
	for _, token := range strings.Split(text, sep) {
		trimmed := strings.TrimSpace(token)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

// SplitLines splits a newline-separated cell (multi-image columns) into
// trimmed, ordered-unique entries.
func SplitLines(value string) []string {
	text := strings.TrimSpace(value)
	if text == "" {
		return nil
	}
	var out []string
	seen := make(map[string]struct{})
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

// WriteTable renders rows (maps keyed by column name) into CSV text with a
// fixed column order. Missing cells render empty.
func WriteTable(columns []string, rows []map[string]string) (string, error) {
	var buf strings.Builder
	writer := csv.NewWriter(&buf)
	if err := writer.Write(columns); err != nil {
		return "", err
	}
	line := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			line[i] = row[col]
		}
		if err := writer.Write(line); err != nil {
			return "", err
		}
	}
	writer.Flush()
	return buf.String(), writer.Error()
}
