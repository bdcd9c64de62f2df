package urlimport

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/shelfshift/internal/catalog"
)

// common.go holds the untyped-JSON plumbing shared by every client.
// Storefront payloads are decoded into map[string]any and picked apart with
// these helpers; each one tolerates missing keys and wrong types by
// returning a zero value instead of failing the whole import.

const metaDescriptionLimit = 400

var (
	htmlTagRe = regexp.MustCompile(`<[^>]+>`)
	nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)
)

// stringValue returns a trimmed string, or "" for non-strings.
func stringValue(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// tokenValue renders a string or JSON number as an identifier token.
// Numbers format without an exponent so large numeric IDs survive intact.
func tokenValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	}
	return ""
}

func boolValue(v any) *bool {
	switch t := v.(type) {
	case bool:
		b := t
		return &b
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes", "y":
			b := true
			return &b
		case "false", "0", "no", "n":
			b := false
			return &b
		}
	}
	return nil
}

func firstBool(values ...any) *bool {
	for _, v := range values {
		if b := boolValue(v); b != nil {
			return b
		}
	}
	return nil
}

func intValue(v any) *int {
	switch t := v.(type) {
	case float64:
		n := int(t)
		return &n
	case string:
		trimmed := strings.TrimSpace(t)
		if trimmed == "" {
			return nil
		}
		n, err := strconv.Atoi(trimmed)
		if err != nil {
			return nil
		}
		return &n
	}
	return nil
}

// moneyValue parses a money amount from a JSON string or number.
func moneyValue(v any) *decimal.Decimal {
	switch t := v.(type) {
	case string:
		return catalog.ParseMoney(t)
	case float64:
		return catalog.DecimalFromFloat(t)
	}
	return nil
}

func makePrice(amount *decimal.Decimal, currency string, compareAt *decimal.Decimal) *catalog.Price {
	price := catalog.PriceFromAmount(amount, currency)
	if price == nil {
		return nil
	}
	price.CompareAt = catalog.MoneyFromAmount(compareAt, currency)
	return price
}

// normalizeURLString completes protocol-relative URLs. Empty and
// non-string inputs normalize to "".
func normalizeURLString(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "//") {
		return "https:" + trimmed
	}
	return trimmed
}

func urlValue(v any) string {
	return normalizeURLString(stringValue(v))
}

func dedupeStrings(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

func slugToken(raw string) string {
	return strings.Trim(nonSlugRe.ReplaceAllString(strings.ToLower(raw), "-"), "-")
}

func stripHTMLText(text string) string {
	cleaned := htmlTagRe.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(cleaned), " ")
}

// metaDescription derives an SEO description from a product description:
// tags stripped, whitespace collapsed, truncated to the usual meta limit.
func metaDescription(description string) string {
	cleaned := stripHTMLText(description)
	if len(cleaned) > metaDescriptionLimit {
		cut := metaDescriptionLimit
		for cut > 0 && !utf8.RuneStart(cleaned[cut]) {
			cut--
		}
		cleaned = strings.TrimSpace(cleaned[:cut])
	}
	return cleaned
}

// extractNames pulls display names out of a string, a list of strings, or a
// list of objects keyed value/name/title/slug. splitCommas applies to bare
// strings only ("tag1, tag2" → two names).
func extractNames(v any, splitCommas bool) []string {
	var names []string
	appendName := func(raw string) {
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			names = append(names, trimmed)
		}
	}

	switch t := v.(type) {
	case string:
		if splitCommas {
			for _, token := range strings.Split(t, ",") {
				appendName(token)
			}
		} else {
			appendName(t)
		}
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				appendName(s)
				continue
			}
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			for _, key := range []string{"value", "name", "title", "slug"} {
				if candidate := stringValue(obj[key]); candidate != "" {
					appendName(candidate)
					break
				}
			}
		}
	}
	return dedupeStrings(names)
}

// extractImageURLs pulls image URLs from a string, list, or object shape.
// dictKeys is the ordered key preference inside object entries; recursive
// additionally descends into nested image/images/items blocks, which
// Squarespace page JSON nests arbitrarily deep.
func extractImageURLs(v any, recursive bool, dictKeys []string) []string {
	var urls []string
	appendURL := func(raw string) {
		if raw != "" {
			urls = append(urls, raw)
		}
	}

	switch t := v.(type) {
	case string:
		appendURL(normalizeURLString(t))
	case []any:
		for _, item := range t {
			if recursive {
				urls = append(urls, extractImageURLs(item, true, dictKeys)...)
				continue
			}
			switch entry := item.(type) {
			case string:
				appendURL(normalizeURLString(entry))
			case map[string]any:
				for _, key := range dictKeys {
					if u := urlValue(entry[key]); u != "" {
						appendURL(u)
						break
					}
				}
			}
		}
	case map[string]any:
		for _, key := range dictKeys {
			if u := urlValue(t[key]); u != "" {
				appendURL(u)
				break
			}
		}
		if recursive {
			for _, key := range []string{"image", "images", "items"} {
				if nested, ok := t[key]; ok {
					urls = append(urls, extractImageURLs(nested, true, dictKeys)...)
				}
			}
		}
	}
	return dedupeStrings(urls)
}

// appendDefaultVariant guarantees at least one variant when the source
// exposed only product-level data.
func appendDefaultVariant(variants []catalog.Variant, def *catalog.Variant) []catalog.Variant {
	if len(variants) > 0 || def == nil {
		return variants
	}
	return append(variants, *def)
}

// firstVariantMoney scans variants for the first usable amount and currency.
func firstVariantMoney(variants []catalog.Variant) (*decimal.Decimal, string) {
	var amount *decimal.Decimal
	currency := "USD"
	for _, v := range variants {
		if v.Price == nil {
			continue
		}
		if amount == nil && v.Price.Current.Amount != nil {
			amount = v.Price.Current.Amount
		}
		if v.Price.Current.Currency != "" {
			currency = v.Price.Current.Currency
		}
		if amount != nil {
			break
		}
	}
	return amount, currency
}

func variantPrimaryImageURL(v *catalog.Variant) string {
	for _, m := range v.Media {
		if m.Type != catalog.MediaImage {
			continue
		}
		if u := normalizeURLString(m.URL); u != "" {
			return u
		}
	}
	return ""
}

func imageMedia(urls []string) []catalog.Media {
	media := make([]catalog.Media, 0, len(urls))
	for i, u := range urls {
		media = append(media, catalog.Media{
			URL:       u,
			Type:      catalog.MediaImage,
			Position:  i + 1,
			IsPrimary: i == 0,
		})
	}
	return media
}

func variantImageMedia(url, sku string) []catalog.Media {
	if url == "" {
		return nil
	}
	m := catalog.Media{URL: url, Type: catalog.MediaImage, Position: 1, IsPrimary: true}
	if sku != "" {
		m.VariantSKUs = []string{sku}
	}
	return []catalog.Media{m}
}

func identifiersFrom(pairs map[string]string) catalog.Identifiers {
	ids := catalog.Identifiers{}
	for key, value := range pairs {
		ids.Set(key, value)
	}
	return ids
}

func singlePathTaxonomy(category string) *catalog.CategorySet {
	trimmed := strings.TrimSpace(category)
	if trimmed == "" {
		return nil
	}
	path := []string{trimmed}
	return &catalog.CategorySet{Paths: [][]string{path}, Primary: path}
}

// finalizeProduct fills source bookkeeping every client would otherwise
// repeat: the source URL, and a primary taxonomy path when only paths were
// recorded.
func finalizeProduct(p *catalog.Product, platform, sourceURL string) {
	if p.Source == nil {
		p.Source = catalog.NewSourceRef(platform, "", "", sourceURL)
	} else if p.Source.URL == "" {
		p.Source.URL = sourceURL
	}
	if p.Taxonomy != nil && p.Taxonomy.Primary == nil && len(p.Taxonomy.Paths) > 0 {
		p.Taxonomy.Primary = p.Taxonomy.Paths[0]
	}
}

func boolPtr(v bool) *bool { return &v }

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
