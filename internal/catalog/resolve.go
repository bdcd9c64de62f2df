package catalog

// resolve.go implements the read side of the canonical model.
//
// Every resolver is a pure function over a Product (and optionally one of
// its Variants). Resolvers never fail: absence resolves to nil or an empty
// value. Where an attribute has both a structured and a legacy flat
// encoding, a present structured value is used exclusively and the flat
// value is ignored; the two are never merged.

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

func cleanText(s string) string {
	return strings.TrimSpace(s)
}

func orderedUnique(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		cleaned := cleanText(item)
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

// ResolveOptionDefs returns the product's option definitions with cleaned
// names and ordered-unique value lists. Falls back to the legacy flat option
// map (in sorted name order) when no structured options exist.
func ResolveOptionDefs(p *Product) []OptionDef {
	if len(p.Options) > 0 {
		out := make([]OptionDef, 0, len(p.Options))
		for _, opt := range p.Options {
			name := cleanText(opt.Name)
			if name == "" {
				continue
			}
			out = append(out, OptionDef{Name: name, Values: orderedUnique(opt.Values)})
		}
		return out
	}

	if len(p.LegacyOptions) == 0 {
		return nil
	}
	names := make([]string, 0, len(p.LegacyOptions))
	for name := range p.LegacyOptions {
		if cleanText(name) != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]OptionDef, 0, len(names))
	for _, name := range names {
		out = append(out, OptionDef{Name: cleanText(name), Values: orderedUnique(p.LegacyOptions[name])})
	}
	return out
}

// ResolveVariantOptionValues returns a variant's option selections ordered
// by the product's option definition order first, then any extras in their
// own order. Duplicate names keep the first value seen.
func ResolveVariantOptionValues(p *Product, v *Variant) []OptionValue {
	defs := ResolveOptionDefs(p)

	byName := map[string]string{}
	var names []string
	record := func(name, value string) {
		n := cleanText(name)
		val := cleanText(value)
		if n == "" || val == "" {
			return
		}
		if _, ok := byName[n]; ok {
			return
		}
		byName[n] = val
		names = append(names, n)
	}

	if len(v.OptionValues) > 0 {
		for _, ov := range v.OptionValues {
			record(ov.Name, ov.Value)
		}
	} else if len(v.LegacyOptions) > 0 {
		legacyNames := make([]string, 0, len(v.LegacyOptions))
		for name := range v.LegacyOptions {
			legacyNames = append(legacyNames, name)
		}
		sort.Strings(legacyNames)
		for _, name := range legacyNames {
			record(name, v.LegacyOptions[name])
		}
	}

	var out []OptionValue
	emitted := make(map[string]struct{}, len(byName))
	for _, def := range defs {
		value, ok := byName[def.Name]
		if !ok {
			continue
		}
		emitted[def.Name] = struct{}{}
		out = append(out, OptionValue{Name: def.Name, Value: value})
	}
	for _, name := range names {
		if _, ok := emitted[name]; ok {
			continue
		}
		out = append(out, OptionValue{Name: name, Value: byName[name]})
	}
	return out
}

// ResolveVariantOptionMap returns the variant's resolved options as a
// name→value map, keeping the first value per name.
func ResolveVariantOptionMap(p *Product, v *Variant) map[string]string {
	out := map[string]string{}
	for _, ov := range ResolveVariantOptionValues(p, v) {
		if _, ok := out[ov.Name]; ok {
			continue
		}
		out[ov.Name] = ov.Value
	}
	return out
}

// ResolveTaxonomyPaths returns the product's category paths. Structured
// paths win; otherwise the primary path stands alone; otherwise the legacy
// flat category forms a single-segment path.
func ResolveTaxonomyPaths(p *Product) [][]string {
	if p.Taxonomy != nil {
		var out [][]string
		seen := make(map[string]struct{})
		for _, raw := range p.Taxonomy.Paths {
			path := orderedUnique(raw)
			if len(path) == 0 {
				continue
			}
			key := strings.Join(path, "\x00")
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, path)
		}
		if len(out) > 0 {
			return out
		}
		if primary := orderedUnique(p.Taxonomy.Primary); len(primary) > 0 {
			return [][]string{primary}
		}
	}
	if category := cleanText(p.LegacyCategory); category != "" {
		return [][]string{{category}}
	}
	return nil
}

// ResolvePrimaryCategory joins the first taxonomy path with separator.
func ResolvePrimaryCategory(p *Product, separator string) string {
	paths := ResolveTaxonomyPaths(p)
	if len(paths) == 0 {
		return ""
	}
	return strings.Join(paths[0], separator)
}

// ResolveCurrentMoney returns the effective selling price: the variant's
// current price when present, else the product's. Legacy flat amounts are
// consulted only when the structured price is absent at that level.
func ResolveCurrentMoney(p *Product, v *Variant) *Money {
	if v != nil {
		if v.Price != nil && !v.Price.Current.IsZeroValue() {
			return moneyFromCurrent(v.Price.Current)
		}
		if v.LegacyPrice != nil {
			return MoneyFromAmount(v.LegacyPrice, v.LegacyCurrency)
		}
	}
	if p.Price != nil && !p.Price.Current.IsZeroValue() {
		return moneyFromCurrent(p.Price.Current)
	}
	if p.LegacyPrice != nil {
		return MoneyFromAmount(p.LegacyPrice, p.LegacyCurrency)
	}
	return nil
}

func moneyFromCurrent(m Money) *Money {
	return &Money{Amount: m.Amount, Currency: NormalizeCurrency(m.Currency)}
}

// ResolveCompareAtMoney returns the variant's (then product's) structured
// compare-at price, if any.
func ResolveCompareAtMoney(p *Product, v *Variant) *Money {
	if v != nil && v.Price != nil && v.Price.CompareAt != nil {
		return moneyFromCurrent(*v.Price.CompareAt)
	}
	if p.Price != nil && p.Price.CompareAt != nil {
		return moneyFromCurrent(*p.Price.CompareAt)
	}
	return nil
}

func normalizeImageURL(raw string) string {
	url := strings.TrimSpace(raw)
	if url == "" {
		return ""
	}
	if strings.HasPrefix(url, "//") {
		return "https:" + url
	}
	return url
}

func mediaImageURLs(media []Media) []string {
	var out []string
	for _, m := range media {
		if m.Type != "" && m.Type != MediaImage {
			continue
		}
		if url := normalizeImageURL(m.URL); url != "" {
			out = append(out, url)
		}
	}
	return out
}

func firstPrimaryMediaURL(media []Media) string {
	var fallback string
	for _, m := range media {
		if m.Type != "" && m.Type != MediaImage {
			continue
		}
		url := normalizeImageURL(m.URL)
		if url == "" {
			continue
		}
		if m.IsPrimary {
			return url
		}
		if fallback == "" {
			fallback = url
		}
	}
	return fallback
}

// ResolvePrimaryImageURL returns the best single image for a variant (its
// own primary image first), falling back to the product's primary image and
// finally the first image anywhere on the product.
func ResolvePrimaryImageURL(p *Product, v *Variant) string {
	if v != nil {
		if url := firstPrimaryMediaURL(v.Media); url != "" {
			return url
		}
		if url := normalizeImageURL(v.LegacyImageURL); url != "" {
			return url
		}
	}
	if url := firstPrimaryMediaURL(p.Media); url != "" {
		return url
	}
	all := ResolveAllImageURLs(p)
	if len(all) > 0 {
		return all[0]
	}
	return ""
}

// ResolveVariantImageURL returns the variant's own image (primary first),
// without falling back to product-level media. "" when the variant has none.
func ResolveVariantImageURL(v *Variant) string {
	if url := firstPrimaryMediaURL(v.Media); url != "" {
		return url
	}
	return normalizeImageURL(v.LegacyImageURL)
}

// ResolveProductImageURLs returns the product-level image URLs only, primary
// images first, deduplicated and protocol-upgraded. Variant media is excluded.
func ResolveProductImageURLs(p *Product) []string {
	var primary, regular []string
	if len(p.Media) > 0 {
		for _, m := range p.Media {
			if m.Type != "" && m.Type != MediaImage {
				continue
			}
			url := normalizeImageURL(m.URL)
			if url == "" {
				continue
			}
			if m.IsPrimary {
				primary = append(primary, url)
			}
			regular = append(regular, url)
		}
	} else {
		for _, raw := range p.LegacyImages {
			if url := normalizeImageURL(raw); url != "" {
				regular = append(regular, url)
			}
		}
	}
	return orderedUnique(append(primary, regular...))
}

// ResolveAllImageURLs returns every image URL on the product and its
// variants, order-preserving and deduplicated, with protocol-relative URLs
// upgraded to https.
func ResolveAllImageURLs(p *Product) []string {
	var urls []string
	seen := make(map[string]struct{})
	appendURL := func(url string) {
		if url == "" {
			return
		}
		if _, ok := seen[url]; ok {
			return
		}
		seen[url] = struct{}{}
		urls = append(urls, url)
	}

	if len(p.Media) > 0 {
		for _, url := range mediaImageURLs(p.Media) {
			appendURL(url)
		}
	} else {
		for _, raw := range p.LegacyImages {
			appendURL(normalizeImageURL(raw))
		}
	}
	for i := range p.Variants {
		v := &p.Variants[i]
		if len(v.Media) > 0 {
			for _, url := range mediaImageURLs(v.Media) {
				appendURL(url)
			}
		} else {
			appendURL(normalizeImageURL(v.LegacyImageURL))
		}
	}
	return urls
}

// ResolveSEOTitle returns the structured SEO title, else the legacy meta
// title.
func ResolveSEOTitle(p *Product) string {
	if p.SEO != nil {
		if title := cleanText(p.SEO.Title); title != "" {
			return title
		}
	}
	return cleanText(p.LegacyMetaTitle)
}

// ResolveSEODescription returns the structured SEO description, else the
// legacy meta description.
func ResolveSEODescription(p *Product) string {
	if p.SEO != nil {
		if desc := cleanText(p.SEO.Description); desc != "" {
			return desc
		}
	}
	return cleanText(p.LegacyMetaDescription)
}

// ResolveVariants returns the product's variants, or a single synthetic
// variant carrying the product-level price and weight when it has none.
func ResolveVariants(p *Product) []Variant {
	if len(p.Variants) > 0 {
		return p.Variants
	}
	v := Variant{ID: "", Price: p.Price}
	if p.Price == nil && p.LegacyPrice != nil {
		v.LegacyPrice = p.LegacyPrice
		v.LegacyCurrency = p.LegacyCurrency
	}
	if p.Weight != nil {
		v.Weight = p.Weight
	} else if p.LegacyGrams != nil {
		v.LegacyGrams = p.LegacyGrams
	}
	return []Variant{v}
}

// ResolveWeightGrams returns a variant's weight converted to grams, reading
// the structured weight first and the legacy grams value second. Nil when
// neither is present or the unit is unknown.
func ResolveWeightGrams(v *Variant) *decimal.Decimal {
	if v.Weight != nil && v.Weight.Value != nil {
		unit := v.Weight.Unit
		if unit == "" {
			unit = UnitGram
		}
		grams, err := ToGrams(*v.Weight.Value, unit)
		if err != nil {
			return nil
		}
		return &grams
	}
	if v.LegacyGrams != nil {
		return v.LegacyGrams
	}
	return nil
}

// ResolveTrackQuantity reports whether inventory quantity is tracked for a
// variant, falling back to the product default.
func ResolveTrackQuantity(p *Product, v *Variant) bool {
	if v.Inventory != nil && v.Inventory.TrackQuantity != nil {
		return *v.Inventory.TrackQuantity
	}
	if ResolveInventoryQuantity(v) != nil {
		return true
	}
	if p.TrackQuantity != nil {
		return *p.TrackQuantity
	}
	return true
}

// ResolveInventoryQuantity returns the variant's stock count clamped at
// zero, or nil when unknown.
func ResolveInventoryQuantity(v *Variant) *int {
	var raw *int
	if v.Inventory != nil && v.Inventory.Quantity != nil {
		raw = v.Inventory.Quantity
	} else if v.LegacyQuantity != nil {
		raw = v.LegacyQuantity
	}
	if raw == nil {
		return nil
	}
	q := *raw
	if q < 0 {
		q = 0
	}
	return &q
}

// ResolveAvailable returns the variant's availability tri-state.
func ResolveAvailable(v *Variant) *bool {
	if v.Inventory != nil && v.Inventory.Available != nil {
		return v.Inventory.Available
	}
	return v.LegacyAvailable
}

// ResolveAllowBackorder returns the variant's backorder tri-state.
func ResolveAllowBackorder(v *Variant) *bool {
	if v.Inventory != nil {
		return v.Inventory.AllowBackorder
	}
	return nil
}

// ResolveRequiresShipping reports whether the product ships physically.
// Digital products default to false, everything else to true.
func ResolveRequiresShipping(p *Product) bool {
	if p.RequiresShipping != nil {
		return *p.RequiresShipping
	}
	return !p.IsDigital
}

// ResolveIdentifier returns one identifier value, preferring the variant's
// map over the product's.
func ResolveIdentifier(p *Product, v *Variant, key string) string {
	k := cleanText(key)
	if k == "" {
		return ""
	}
	if v != nil {
		if val, ok := v.Identifiers[k]; ok && cleanText(val) != "" {
			return cleanText(val)
		}
	}
	if val, ok := p.Identifiers[k]; ok {
		return cleanText(val)
	}
	return ""
}
