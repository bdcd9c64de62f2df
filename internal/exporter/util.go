package exporter

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/shelfshift/internal/catalog"
)

// PlaceholderImageURL replaces image URLs whose file extension a restricted
// dialect will not accept, so every row still carries a usable image.
const PlaceholderImageURL = "https://placehold.co/600x600.png"

var (
	nonSlugRe  = regexp.MustCompile(`[^a-z0-9]+`)
	handleRe   = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	htmlTagRe  = regexp.MustCompile(`<[^>]+>`)
	safeDestRe = regexp.MustCompile(`[^a-z0-9-]+`)

	allowedImageExts = map[string]struct{}{
		".jpg":  {},
		".jpeg": {},
		".png":  {},
		".gif":  {},
		".webp": {},
	}
)

// Short source-platform tokens used when a synthetic SKU has to be minted
// for a target that requires one.
var platformTokens = map[string]string{
	"shopify":     "SH",
	"amazon":      "AMZ",
	"aliexpress":  "AE",
	"squarespace": "SQ",
	"woocommerce": "WC",
	"bigcommerce": "BC",
	"wix":         "WX",
}

func platformToken(platform string) string {
	if token, ok := platformTokens[strings.ToLower(strings.TrimSpace(platform))]; ok {
		return token
	}
	return "SRC"
}

func slugify(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = nonSlugRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func normalizeHandle(raw string) string {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if handleRe.MatchString(normalized) {
		return normalized
	}
	return ""
}

// resolveHandle produces a stable lowercase handle for handle-keyed dialects:
// source slug first, then slugified title, then a platform-id fallback.
func resolveHandle(p *catalog.Product) string {
	if p.Source != nil {
		if handle := normalizeHandle(p.Source.Slug); handle != "" {
			return handle
		}
	}
	if handle := normalizeHandle(slugify(p.Title)); handle != "" {
		return handle
	}
	id := "item"
	if p.Source != nil && p.Source.ID != "" {
		id = p.Source.ID
	}
	if handle := normalizeHandle(slugify(p.SourcePlatform() + "-" + id)); handle != "" {
		return handle
	}
	return "product-item"
}

// resolveProductKey is the slug form of the product's best identifier, used
// for minted parent SKUs.
func resolveProductKey(p *catalog.Product) string {
	var candidates []string
	if p.Source != nil {
		candidates = append(candidates, p.Source.ID, p.Source.Slug)
	}
	candidates = append(candidates, p.Title)
	for _, candidate := range candidates {
		if key := slugify(candidate); key != "" {
			return key
		}
	}
	return "item"
}

// formatAmount renders a decimal with at most places fractional digits,
// trailing zeros trimmed. Nil renders as "".
func formatAmount(d *decimal.Decimal, places int32) string {
	if d == nil {
		return ""
	}
	text := d.StringFixed(places)
	if strings.Contains(text, ".") {
		text = strings.TrimRight(text, "0")
		text = strings.TrimRight(text, ".")
	}
	if text == "" || text == "-0" {
		return "0"
	}
	return text
}

// priceCell resolves the effective selling price for the row and formats it.
func priceCell(p *catalog.Product, v *catalog.Variant, places int32) string {
	money := catalog.ResolveCurrentMoney(p, v)
	if money == nil {
		return ""
	}
	return formatAmount(money.Amount, places)
}

// weightCell converts the variant's weight (canonically grams) into the
// resolved target unit.
func weightCell(v *catalog.Variant, unit string, places int32) string {
	grams := catalog.ResolveWeightGrams(v)
	if grams == nil {
		return ""
	}
	converted, err := catalog.FromGrams(*grams, unit)
	if err != nil {
		return ""
	}
	return formatAmount(&converted, places)
}

func orderedUniqueStrings(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		cleaned := strings.TrimSpace(item)
		if cleaned == "" {
			continue
		}
		if _, ok := seen[cleaned]; ok {
			continue
		}
		seen[cleaned] = struct{}{}
		out = append(out, cleaned)
	}
	return out
}

// sortedTags joins the product's tags case-insensitively sorted, the order
// storefront imports diff most predictably against.
func sortedTags(p *catalog.Product) string {
	tags := orderedUniqueStrings(p.Tags)
	sort.Slice(tags, func(i, j int) bool {
		return strings.ToLower(tags[i]) < strings.ToLower(tags[j])
	})
	return strings.Join(tags, ",")
}

func stripHTML(text string) string {
	cleaned := htmlTagRe.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(cleaned), " ")
}

// imageURLOrPlaceholder enforces a restricted dialect's accepted image file
// extensions, substituting the fixed placeholder instead of dropping the URL.
func imageURLOrPlaceholder(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return ""
	}
	if strings.HasPrefix(cleaned, "//") {
		cleaned = "https:" + cleaned
	}
	parsed, err := url.Parse(cleaned)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return PlaceholderImageURL
	}
	ext := strings.ToLower(path.Ext(parsed.Path))
	if _, ok := allowedImageExts[ext]; !ok {
		return PlaceholderImageURL
	}
	return cleaned
}

// fallbackOptionValue labels a variant on targets that require an option
// value even when the source had none.
func fallbackOptionValue(v *catalog.Variant, index int) string {
	for _, candidate := range []string{v.Title, v.SKU, v.ID} {
		if strings.TrimSpace(candidate) != "" {
			return strings.TrimSpace(candidate)
		}
	}
	return fmt.Sprintf("Variant %d", index)
}

// resolveOptionNames collects up to max option names (max <= 0 means no
// cap): product definitions first, then any extras found on variants.
func resolveOptionNames(p *catalog.Product, variants []catalog.Variant, max int) []string {
	var names []string
	seen := make(map[string]struct{})
	full := func() bool { return max > 0 && len(names) >= max }
	appendName := func(name string) {
		cleaned := strings.TrimSpace(name)
		if cleaned == "" || full() {
			return
		}
		if _, ok := seen[cleaned]; ok {
			return
		}
		seen[cleaned] = struct{}{}
		names = append(names, cleaned)
	}
	for _, def := range catalog.ResolveOptionDefs(p) {
		appendName(def.Name)
	}
	for i := range variants {
		if full() {
			break
		}
		for _, ov := range catalog.ResolveVariantOptionValues(p, &variants[i]) {
			appendName(ov.Name)
		}
	}
	return names
}

func utcTimestampCompact(now time.Time) string {
	return now.UTC().Format("20060102T150405Z")
}

// makeExportFilename builds "<target>-<compact UTC timestamp>.csv".
func makeExportFilename(target string, now time.Time) string {
	cleaned := strings.ToLower(strings.TrimSpace(target))
	cleaned = strings.ReplaceAll(cleaned, "_", "-")
	cleaned = strings.Trim(safeDestRe.ReplaceAllString(cleaned, "-"), "-")
	if cleaned == "" {
		cleaned = "export"
	}
	return fmt.Sprintf("%s-%s.csv", cleaned, utcTimestampCompact(now))
}

func emptyRow(columns []string) map[string]string {
	row := make(map[string]string, len(columns))
	for _, col := range columns {
		row[col] = ""
	}
	return row
}
