package urlimport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/shelfshift/internal/catalog"
	"github.com/JonMunkholm/shelfshift/internal/detect"
)

// wooClient imports through the WooCommerce Store API
// (/wp-json/wc/store/v1/products), which is public on stock installs. When
// the Store API is disabled the storefront product page's JSON-LD is
// scraped instead; for direct API URLs, candidate storefront URLs are
// reconstructed from the slug or product id first.
type wooClient struct {
	http *fetcher
}

func (c *wooClient) Platform() string { return detect.WooCommerce }

var (
	wooStoreAPIPathRe = regexp.MustCompile(`(?i)^/wp-json/wc/store/v1/products/([^/?#]+)/?$`)
	integerRe         = regexp.MustCompile(`^-?\d+$`)
)

func (c *wooClient) Fetch(ctx context.Context, productURL string) (*catalog.Product, error) {
	det := detect.DetectProductURL(productURL)
	if det.Platform != detect.WooCommerce {
		return nil, fmt.Errorf("not a woocommerce URL: %s", productURL)
	}
	parsed, err := url.Parse(productURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	isAPIURL := wooStoreAPIPathRe.MatchString(parsed.Path)

	var attempts []error

	data, payload, err := c.fetchStoreAPI(ctx, parsed, det, isAPIURL)
	if err == nil {
		p := c.parseStoreProduct(data, payload, productURL)
		finalizeProduct(p, detect.WooCommerce, productURL)
		return p, nil
	}
	attempts = append(attempts, err)

	for _, fallbackURL := range c.fallbackStorefrontURLs(parsed, det, isAPIURL) {
		p, err := c.fetchFromHTML(ctx, fallbackURL)
		if err != nil {
			attempts = append(attempts, err)
			continue
		}
		finalizeProduct(p, detect.WooCommerce, productURL)
		return p, nil
	}

	for i := len(attempts) - 1; i >= 0; i-- {
		var statusErr *HTTPStatusError
		if errors.As(attempts[i], &statusErr) {
			return nil, attempts[i]
		}
	}
	return nil, fmt.Errorf("woocommerce import failed: %w", attempts[len(attempts)-1])
}

func (c *wooClient) fetchStoreAPI(ctx context.Context, parsed *url.URL, det detect.URLDetection, isAPIURL bool) (map[string]any, any, error) {
	if isAPIURL {
		return c.apiGet(ctx, parsed.String())
	}
	base := fmt.Sprintf("%s://%s/wp-json/wc/store/v1/products", parsed.Scheme, parsed.Host)
	switch {
	case det.ProductID != "":
		return c.apiGet(ctx, base+"/"+url.PathEscape(det.ProductID))
	case det.Slug != "":
		return c.apiGet(ctx, base+"?slug="+url.QueryEscape(det.Slug))
	}
	return nil, nil, fmt.Errorf("woocommerce product URL is missing an id or slug")
}

func (c *wooClient) apiGet(ctx context.Context, apiURL string) (map[string]any, any, error) {
	var payload any
	if err := c.http.getJSON(ctx, apiURL, nil, &payload); err != nil {
		return nil, nil, err
	}
	data, err := extractStoreProduct(payload)
	if err != nil {
		return nil, nil, err
	}
	return data, payload, nil
}

// extractStoreProduct digs the product object out of the possible Store API
// response shapes: a bare product, a {"products": [...]} wrapper, or a list.
func extractStoreProduct(payload any) (map[string]any, error) {
	switch t := payload.(type) {
	case map[string]any:
		if t["id"] != nil && stringValue(t["name"]) != "" {
			return t, nil
		}
		if products, ok := t["products"].([]any); ok {
			for _, item := range products {
				if obj, ok := item.(map[string]any); ok && obj["id"] != nil {
					return obj, nil
				}
			}
		}
	case []any:
		for _, item := range t {
			if obj, ok := item.(map[string]any); ok && obj["id"] != nil {
				return obj, nil
			}
		}
	}
	return nil, fmt.Errorf("woocommerce store API returned no usable product data")
}

func (c *wooClient) fallbackStorefrontURLs(parsed *url.URL, det detect.URLDetection, isAPIURL bool) []string {
	if !isAPIURL {
		return []string{parsed.String()}
	}

	slug, productID := det.Slug, det.ProductID
	if m := wooStoreAPIPathRe.FindStringSubmatch(parsed.Path); m != nil {
		token, err := url.PathUnescape(m[1])
		if err != nil {
			token = m[1]
		}
		if integerRe.MatchString(token) {
			if productID == "" {
				productID = token
			}
		} else if slug == "" {
			slug = token
		}
	}

	var urls []string
	if slug != "" {
		urls = append(urls, fmt.Sprintf("https://%s/product/%s/", parsed.Host, slug))
	}
	if productID != "" && integerRe.MatchString(productID) {
		urls = append(urls, fmt.Sprintf("https://%s/?product=%s", parsed.Host, productID))
	}
	return dedupeStrings(urls)
}

func (c *wooClient) fetchFromHTML(ctx context.Context, pageURL string) (*catalog.Product, error) {
	body, err := c.http.get(ctx, pageURL, nil)
	if err != nil {
		return nil, err
	}
	nodes, err := productJSONLDNodes(body)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("no product JSON-LD found in woocommerce HTML")
	}
	det := detect.DetectProductURL(pageURL)
	p := productFromJSONLD(nodes[0], detect.WooCommerce, pageURL, det.Slug)

	// Multi-offer pages rarely carry SKUs; synthesize stable ones from
	// the product key so exports stay import-ready.
	if len(p.Variants) > 1 {
		productKey := slugToken(p.Title)
		if productKey == "" {
			productKey = "item"
		}
		for i := range p.Variants {
			if p.Variants[i].SKU == "" {
				p.Variants[i].SKU = fmt.Sprintf("WC:%s:%d", productKey, i+1)
			}
		}
	}
	return p, nil
}

// storePrices is the decoded prices block of a Store API payload. Amounts
// arrive in minor units ("1999" with currency_minor_unit 2 is 19.99).
type storePrices struct {
	current  *decimal.Decimal
	regular  *decimal.Decimal
	sale     *decimal.Decimal
	currency string
}

func minorUnit(v any) int {
	mu := intValue(v)
	if mu == nil {
		return 2
	}
	if *mu < 0 {
		return 0
	}
	if *mu > 6 {
		return 6
	}
	return *mu
}

// storeAmount decodes one Store API amount. Integer-valued inputs are in
// minor units; fractional values are already decoded by the store.
func storeAmount(raw any, mu int) *decimal.Decimal {
	switch t := raw.(type) {
	case string:
		trimmed := strings.TrimSpace(t)
		if trimmed == "" {
			return nil
		}
		if integerRe.MatchString(trimmed) {
			d, err := decimal.NewFromString(trimmed)
			if err != nil {
				return nil
			}
			shifted := d.Shift(int32(-mu))
			return &shifted
		}
		return catalog.ParseMoney(trimmed)
	case float64:
		d := decimal.NewFromFloat(t)
		if d.IsInteger() {
			shifted := d.Shift(int32(-mu))
			return &shifted
		}
		return &d
	}
	return nil
}

func parseStorePrices(v any) storePrices {
	prices := storePrices{currency: "USD"}
	obj, ok := v.(map[string]any)
	if !ok {
		return prices
	}
	prices.currency = catalog.CurrencyOrDefault(
		firstNonEmpty(stringValue(obj["currency_code"]), stringValue(obj["currency"])), "USD")
	mu := minorUnit(obj["currency_minor_unit"])
	prices.current = storeAmount(obj["price"], mu)
	prices.regular = storeAmount(obj["regular_price"], mu)
	prices.sale = storeAmount(obj["sale_price"], mu)
	if prices.current == nil {
		if prices.regular != nil {
			prices.current = prices.regular
		} else {
			prices.current = prices.sale
		}
	}
	return prices
}

func wooProductKey(data map[string]any) string {
	for _, candidate := range []string{tokenValue(data["id"]), stringValue(data["slug"]), stringValue(data["name"])} {
		if token := slugToken(candidate); token != "" {
			return token
		}
	}
	return "item"
}

func wooImages(data map[string]any) []string {
	var urls []string
	if raw, ok := data["images"].([]any); ok {
		for _, item := range raw {
			switch entry := item.(type) {
			case string:
				if u := normalizeURLString(entry); u != "" {
					urls = append(urls, u)
				}
			case map[string]any:
				if u := firstNonEmpty(urlValue(entry["src"]), urlValue(entry["thumbnail"])); u != "" {
					urls = append(urls, u)
				}
			}
		}
	}
	switch image := data["image"].(type) {
	case map[string]any:
		if u := urlValue(image["src"]); u != "" {
			urls = append(urls, u)
		}
	case string:
		if u := normalizeURLString(image); u != "" {
			urls = append(urls, u)
		}
	}
	return dedupeStrings(urls)
}

func wooOptionDefs(data map[string]any) []catalog.OptionDef {
	raw, ok := data["attributes"].([]any)
	if !ok {
		return nil
	}
	var defs []catalog.OptionDef
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name := firstNonEmpty(stringValue(obj["name"]), stringValue(obj["attribute"]))
		if name == "" {
			continue
		}
		values := extractNames(obj["terms"], false)
		if len(values) == 0 {
			values = extractNames(obj["options"], false)
		}
		if len(values) == 0 {
			if value := tokenValue(obj["option"]); value != "" {
				values = []string{value}
			}
		}
		if len(values) > 0 {
			defs = append(defs, catalog.OptionDef{Name: name, Values: values})
		}
	}
	return defs
}

func wooVariantOptions(raw any) []catalog.OptionValue {
	var values []catalog.OptionValue
	switch t := raw.(type) {
	case map[string]any:
		for _, key := range sortedKeys(t) {
			if name, value := strings.TrimSpace(key), stringValue(t[key]); name != "" && value != "" {
				values = append(values, catalog.OptionValue{Name: name, Value: value})
			}
		}
	case []any:
		for _, item := range t {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			name := firstNonEmpty(stringValue(obj["name"]), stringValue(obj["attribute"]), "Option")
			value := firstNonEmpty(stringValue(obj["option"]), stringValue(obj["value"]), stringValue(obj["slug"]))
			if value != "" {
				values = append(values, catalog.OptionValue{Name: name, Value: value})
			}
		}
	}
	return values
}

func (c *wooClient) parseStoreVariants(data map[string]any, defaults storePrices, defaultTrack bool, defaultBackorder *bool) []catalog.Variant {
	raw, ok := data["variations"].([]any)
	if !ok {
		return nil
	}

	productKey := wooProductKey(data)
	defaultAvailable := boolValue(data["is_in_stock"])

	var variants []catalog.Variant
	for index, rawVariant := range raw {
		var (
			variantID, title, sku string
			optionValues          []catalog.OptionValue
			amount                = defaults.current
			compareAt             *decimal.Decimal
			currency              = defaults.currency
			available             = defaultAvailable
			quantity              *int
			imageURL              string
			trackQuantity         = defaultTrack
			allowBackorder        = defaultBackorder
			hasSignal             bool
		)

		switch obj := rawVariant.(type) {
		case map[string]any:
			if obj["id"] != nil {
				variantID = tokenValue(obj["id"])
				hasSignal = true
			}
			title = firstNonEmpty(stringValue(obj["name"]), stringValue(obj["title"]))
			sku = stringValue(obj["sku"])
			optionValues = wooVariantOptions(obj["attributes"])
			if title != "" || sku != "" || len(optionValues) > 0 {
				hasSignal = true
			}

			prices := parseStorePrices(obj["prices"])
			variantAmount := prices.current
			if variantAmount == nil {
				variantAmount = moneyValue(obj["price"])
			}
			if variantAmount != nil {
				amount = variantAmount
				hasSignal = true
			}
			compareAt = prices.regular
			if prices.currency != "" {
				currency = prices.currency
			}

			if a := firstBool(obj["is_in_stock"], obj["is_purchasable"]); a != nil {
				available = a
				hasSignal = true
			}
			quantity = intValue(obj["stock_quantity"])
			if quantity == nil {
				quantity = intValue(obj["quantity"])
			}
			if quantity != nil {
				hasSignal = true
			}
			if manage := boolValue(obj["manage_stock"]); manage != nil {
				trackQuantity = *manage
			}
			if backorder := boolValue(obj["is_on_backorder"]); backorder != nil {
				allowBackorder = backorder
			}

			switch image := obj["image"].(type) {
			case map[string]any:
				imageURL = urlValue(image["src"])
			case string:
				imageURL = normalizeURLString(image)
			}
			if imageURL != "" {
				hasSignal = true
			}
		default:
			if rawVariant != nil {
				variantID = tokenValue(rawVariant)
				hasSignal = variantID != ""
			}
		}

		if !hasSignal {
			continue
		}

		variantKey := slugToken(firstNonEmpty(variantID, title))
		if variantKey == "" {
			variantKey = fmt.Sprintf("%d", index+1)
		}
		resolvedSKU := sku
		if resolvedSKU == "" {
			resolvedSKU = fmt.Sprintf("WC:%s:%s", productKey, variantKey)
		}

		variants = append(variants, catalog.Variant{
			ID:           variantID,
			SKU:          resolvedSKU,
			Title:        title,
			OptionValues: optionValues,
			Price:        makePrice(amount, currency, compareAt),
			Media:        variantImageMedia(imageURL, resolvedSKU),
			Inventory: &catalog.Inventory{
				TrackQuantity:  boolPtr(trackQuantity),
				Quantity:       quantity,
				Available:      available,
				AllowBackorder: allowBackorder,
			},
			Identifiers: identifiersFrom(map[string]string{
				"source_variant_id": variantID,
				"sku":               resolvedSKU,
			}),
		})
	}

	// Variation lists without attribute data still need option axes so
	// target platforms can distinguish the variants.
	if len(variants) > 1 {
		for i := range variants {
			if len(variants[i].OptionValues) == 0 {
				value := firstNonEmpty(variants[i].Title, variants[i].SKU, variants[i].ID,
					fmt.Sprintf("Variant %d", i+1))
				variants[i].OptionValues = []catalog.OptionValue{{Name: "Option", Value: value}}
			}
		}
	}
	return variants
}

func (c *wooClient) parseStoreProduct(data map[string]any, payload any, sourceURL string) *catalog.Product {
	title := stringValue(data["name"])
	description := firstNonEmpty(
		stringValue(data["description"]),
		stringValue(data["summary"]),
		stringValue(data["short_description"]),
	)

	prices := parseStorePrices(data["prices"])
	if prices.current == nil {
		prices.current = moneyValue(data["price"])
	}

	trackQuantity := true
	if manage := boolValue(data["manage_stock"]); manage != nil {
		trackQuantity = *manage
	}
	allowBackorder := boolValue(data["is_on_backorder"])

	variants := c.parseStoreVariants(data, prices, trackQuantity, allowBackorder)
	productID := tokenValue(data["id"])
	variants = appendDefaultVariant(variants, &catalog.Variant{
		ID:    productID,
		SKU:   stringValue(data["sku"]),
		Price: makePrice(prices.current, prices.currency, prices.regular),
		Inventory: &catalog.Inventory{
			TrackQuantity:  boolPtr(trackQuantity),
			Quantity:       intValue(data["stock_quantity"]),
			Available:      boolValue(data["is_in_stock"]),
			AllowBackorder: allowBackorder,
		},
		Identifiers: identifiersFrom(map[string]string{
			"source_variant_id": productID,
			"sku":               stringValue(data["sku"]),
		}),
	})

	brand := stringValue(data["brand"])
	if brand == "" {
		if brands := extractNames(data["brands"], false); len(brands) > 0 {
			brand = brands[0]
		}
	}

	categories := extractNames(data["categories"], false)
	var taxonomy *catalog.CategorySet
	if len(categories) > 0 {
		paths := make([][]string, 0, len(categories))
		for _, name := range categories {
			paths = append(paths, []string{name})
		}
		taxonomy = &catalog.CategorySet{Paths: paths, Primary: paths[0]}
	}

	slug := stringValue(data["slug"])
	if slug == "" {
		if permalink := stringValue(data["permalink"]); permalink != "" {
			slug = detect.DetectProductURL(permalink).Slug
		}
	}

	isDigital := false
	if b := boolValue(data["is_downloadable"]); b != nil && *b {
		isDigital = true
	}
	if b := boolValue(data["is_virtual"]); b != nil && *b {
		isDigital = true
	}

	return &catalog.Product{
		Title:            title,
		Description:      description,
		Brand:            brand,
		Vendor:           brand,
		Tags:             extractNames(data["tags"], false),
		Variants:         variants,
		Options:          wooOptionDefs(data),
		Price:            makePrice(prices.current, prices.currency, prices.regular),
		Media:            imageMedia(wooImages(data)),
		RequiresShipping: boolPtr(!isDigital),
		TrackQuantity:    boolPtr(trackQuantity),
		IsDigital:        isDigital,
		Raw:              rawMap(payload),
		Taxonomy:         taxonomy,
		SEO: &catalog.SEO{
			Title:       title,
			Description: metaDescription(description),
		},
		Identifiers: identifiersFrom(map[string]string{
			"source_product_id": productID,
			"sku":               stringValue(data["sku"]),
		}),
		Source: catalog.NewSourceRef(detect.WooCommerce, productID, slug, sourceURL),
	}
}

func rawMap(payload any) map[string]any {
	if m, ok := payload.(map[string]any); ok {
		return m
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
