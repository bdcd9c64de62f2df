package urlimport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/shelfshift/internal/catalog"
	"github.com/JonMunkholm/shelfshift/internal/detect"
)

// squarespaceClient imports from the page JSON every Squarespace site
// serves when ?format=json is appended to a page URL. The payload is a
// deeply nested page model rather than a product document, so the client
// walks it for the best-scoring product-like node. JSON-LD scraping of the
// plain HTML page is the fallback.
type squarespaceClient struct {
	http *fetcher
}

func (c *squarespaceClient) Platform() string { return detect.Squarespace }

var squarespaceImageKeys = []string{"assetUrl", "originalSizeUrl", "imageUrl", "src", "url"}

func (c *squarespaceClient) Fetch(ctx context.Context, productURL string) (*catalog.Product, error) {
	det := detect.DetectProductURL(productURL)
	if det.Platform != detect.Squarespace {
		return nil, fmt.Errorf("not a squarespace URL: %s", productURL)
	}
	if !det.IsProduct {
		return nil, fmt.Errorf("squarespace URL is not a product URL: %s", productURL)
	}

	var attempts []error

	p, err := c.fetchFromPageJSON(ctx, productURL, det.Slug)
	if err == nil {
		finalizeProduct(p, detect.Squarespace, productURL)
		return p, nil
	}
	attempts = append(attempts, err)

	p, err = c.fetchFromHTML(ctx, productURL, det.Slug)
	if err == nil {
		finalizeProduct(p, detect.Squarespace, productURL)
		return p, nil
	}
	attempts = append(attempts, err)

	for i := len(attempts) - 1; i >= 0; i-- {
		var statusErr *HTTPStatusError
		if errors.As(attempts[i], &statusErr) {
			return nil, attempts[i]
		}
	}
	return nil, fmt.Errorf("squarespace import failed: %w", attempts[len(attempts)-1])
}

// formatJSONURL rewrites the URL to request the page JSON rendition,
// replacing any format parameter already present.
func formatJSONURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	query := parsed.Query()
	query.Set("format", "json")
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

func (c *squarespaceClient) fetchFromPageJSON(ctx context.Context, productURL, slug string) (*catalog.Product, error) {
	var payload any
	if err := c.http.getJSON(ctx, formatJSONURL(productURL), nil, &payload); err != nil {
		return nil, err
	}
	candidate := findPageJSONProduct(payload, slug)
	if candidate == nil {
		return nil, fmt.Errorf("squarespace page JSON contains no product item with structured content")
	}
	return parsePageJSONProduct(candidate, payload, productURL, slug), nil
}

func (c *squarespaceClient) fetchFromHTML(ctx context.Context, productURL, slug string) (*catalog.Product, error) {
	body, err := c.http.get(ctx, productURL, nil)
	if err != nil {
		return nil, err
	}
	nodes, err := productJSONLDNodes(body)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("no product JSON-LD found in squarespace HTML")
	}

	selected := nodes[0]
	if slug != "" {
		for _, node := range nodes {
			if nodeURL := stringValue(node["url"]); nodeURL != "" && strings.Contains(nodeURL, "/"+slug) {
				selected = node
				break
			}
		}
	}
	return productFromJSONLD(selected, detect.Squarespace, productURL, slug), nil
}

// walkDictNodes visits every object nested anywhere in the payload.
func walkDictNodes(v any, visit func(map[string]any)) {
	switch t := v.(type) {
	case map[string]any:
		visit(t)
		for _, nested := range t {
			walkDictNodes(nested, visit)
		}
	case []any:
		for _, item := range t {
			walkDictNodes(item, visit)
		}
	}
}

func candidateScore(candidate map[string]any, slug string) int {
	score := 0
	if _, ok := candidate["structuredContent"].(map[string]any); ok {
		score += 3
	}
	if stringValue(candidate["title"]) != "" || stringValue(candidate["name"]) != "" {
		score++
	}
	if tokenValue(candidate["id"]) != "" {
		score++
	}
	if strings.EqualFold(stringValue(candidate["recordTypeLabel"]), "product") {
		score += 2
	}
	if slug != "" {
		if stringValue(candidate["urlId"]) == slug {
			score += 3
		}
		if fullURL := stringValue(candidate["fullUrl"]); strings.Contains(fullURL, "/"+slug) {
			score += 2
		}
	}
	return score
}

// findPageJSONProduct picks the node most likely to be the product the URL
// points at. Only nodes with structured content and at least one product
// signal compete; the highest positive score wins.
func findPageJSONProduct(payload any, slug string) map[string]any {
	var best map[string]any
	bestScore := 0
	walkDictNodes(payload, func(node map[string]any) {
		sc, ok := node["structuredContent"].(map[string]any)
		if !ok {
			return
		}
		_, hasVariants := sc["variants"].([]any)
		hasProductSignal := strings.EqualFold(stringValue(node["recordTypeLabel"]), "product") ||
			(slug != "" && stringValue(node["urlId"]) == slug) ||
			hasVariants ||
			sc["variantOptions"] != nil ||
			sc["priceMoney"] != nil ||
			stringValue(sc["productType"]) != ""
		if !hasProductSignal {
			return
		}
		if score := candidateScore(node, slug); score > bestScore {
			best = node
			bestScore = score
		}
	})
	return best
}

// squarespaceMoney handles the priceMoney shape ({"value": ..,
// "currency": ..}) as well as bare amounts.
func squarespaceMoney(raw any) (*decimal.Decimal, string) {
	if obj, ok := raw.(map[string]any); ok {
		currency := firstNonEmpty(stringValue(obj["currency"]), stringValue(obj["currencyCode"]))
		for _, key := range []string{"value", "amount", "price"} {
			if amount := moneyValue(obj[key]); amount != nil {
				return amount, currency
			}
		}
		return nil, currency
	}
	return moneyValue(raw), ""
}

// variantOptionCatalog reads the declared option axes from
// structuredContent.variantOptions.
func variantOptionCatalog(sc map[string]any) []catalog.OptionDef {
	raw, ok := sc["variantOptions"].([]any)
	if !ok {
		return nil
	}
	var defs []catalog.OptionDef
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name := firstNonEmpty(stringValue(obj["name"]), stringValue(obj["title"]))
		if name == "" {
			continue
		}
		values := extractNames(obj["values"], true)
		if len(values) == 0 {
			values = extractNames(obj["options"], true)
		}
		if len(values) > 0 {
			defs = append(defs, catalog.OptionDef{Name: name, Values: values})
		}
	}
	return defs
}

// squarespaceVariantOptions maps a raw variant's option selections, using
// the declared axis names as positional fallbacks.
func squarespaceVariantOptions(obj map[string]any, optionNames []string) []catalog.OptionValue {
	var values []catalog.OptionValue

	switch rawValues := obj["optionValues"].(type) {
	case []any:
		for index, rawValue := range rawValues {
			fallbackName := ""
			if index < len(optionNames) {
				fallbackName = optionNames[index]
			}
			switch entry := rawValue.(type) {
			case string:
				if value := strings.TrimSpace(entry); value != "" && fallbackName != "" {
					values = append(values, catalog.OptionValue{Name: fallbackName, Value: value})
				}
			case map[string]any:
				name := firstNonEmpty(
					stringValue(entry["optionName"]),
					stringValue(entry["name"]),
					stringValue(entry["label"]),
					fallbackName,
				)
				value := firstNonEmpty(
					stringValue(entry["value"]),
					stringValue(entry["name"]),
					stringValue(entry["title"]),
				)
				if name != "" && value != "" {
					values = append(values, catalog.OptionValue{Name: name, Value: value})
				}
			}
		}
		return values
	case map[string]any:
		for _, key := range sortedKeys(rawValues) {
			if name, value := strings.TrimSpace(key), stringValue(rawValues[key]); name != "" && value != "" {
				values = append(values, catalog.OptionValue{Name: name, Value: value})
			}
		}
		return values
	}

	for i := 1; i <= 3; i++ {
		value := stringValue(obj[fmt.Sprintf("option%d", i)])
		if value == "" {
			continue
		}
		name := fmt.Sprintf("Option %d", i)
		if i-1 < len(optionNames) {
			name = optionNames[i-1]
		}
		values = append(values, catalog.OptionValue{Name: name, Value: value})
	}
	return values
}

// pageJSONMedia assembles product media: gallery items first in display
// order, then the page asset, then any images inside structured content.
func pageJSONMedia(candidate, sc map[string]any) []catalog.Media {
	var media []catalog.Media
	seen := map[string]struct{}{}
	appendImage := func(rawURL, alt string) {
		u := normalizeURLString(rawURL)
		if u == "" {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		position := len(media) + 1
		media = append(media, catalog.Media{
			URL:       u,
			Type:      catalog.MediaImage,
			Alt:       alt,
			Position:  position,
			IsPrimary: position == 1,
		})
	}

	if items, ok := candidate["items"].([]any); ok {
		type galleryItem struct {
			obj   map[string]any
			index int
		}
		sorted := make([]galleryItem, 0, len(items))
		for _, item := range items {
			if obj, ok := item.(map[string]any); ok {
				index := 0
				if i := intValue(obj["displayIndex"]); i != nil {
					index = *i
				}
				sorted = append(sorted, galleryItem{obj: obj, index: index})
			}
		}
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].index < sorted[j].index })
		for _, item := range sorted {
			appendImage(stringValue(item.obj["assetUrl"]), stringValue(item.obj["title"]))
		}
	}

	appendImage(stringValue(candidate["assetUrl"]), stringValue(candidate["title"]))

	for _, key := range []string{"images", "image", "items"} {
		for _, u := range extractImageURLs(sc[key], true, squarespaceImageKeys) {
			appendImage(u, "")
		}
	}
	return media
}

func parsePageJSONProduct(candidate map[string]any, payload any, sourceURL, slug string) *catalog.Product {
	sc, _ := candidate["structuredContent"].(map[string]any)
	if sc == nil {
		sc = map[string]any{}
	}

	title := firstNonEmpty(
		stringValue(candidate["title"]),
		stringValue(candidate["name"]),
		stringValue(sc["title"]),
	)
	description := firstNonEmpty(
		stringValue(candidate["description"]),
		stringValue(candidate["body"]),
		stringValue(sc["description"]),
	)

	images := extractImageURLs(candidate["assetUrl"], true, squarespaceImageKeys)
	for _, key := range []string{"images", "image", "items"} {
		images = append(images, extractImageURLs(sc[key], true, squarespaceImageKeys)...)
	}
	images = dedupeStrings(images)
	media := pageJSONMedia(candidate, sc)

	optionDefs := variantOptionCatalog(sc)
	optionNames := make([]string, 0, len(optionDefs))
	for _, def := range optionDefs {
		optionNames = append(optionNames, def.Name)
	}

	candidateID := tokenValue(candidate["id"])
	skuBase := slugToken(firstNonEmpty(slug, title, candidateID))
	if skuBase == "" {
		skuBase = "item"
	}

	var variants []catalog.Variant
	if rawVariants, ok := sc["variants"].([]any); ok {
		for index, rawVariant := range rawVariants {
			if v := parsePageJSONVariant(rawVariant, index, optionNames, skuBase); v != nil {
				variants = append(variants, *v)
			}
		}
	}

	defaultAmount, defaultCurrency := firstVariantMoney(variants)
	if defaultAmount == nil {
		amount, currency := squarespaceMoney(sc["priceMoney"])
		defaultAmount = amount
		defaultCurrency = catalog.CurrencyOrDefault(currency, defaultCurrency)
	}

	if len(optionDefs) == 0 {
		optionDefs = optionDefsFromVariants(variants)
	}
	if len(optionDefs) == 0 {
		optionDefs = applyFallbackOption(variants)
	}
	for i := range variants {
		if u := variantPrimaryImageURL(&variants[i]); u != "" {
			images = dedupeStrings(append(images, u))
		}
	}

	inferredSlug := firstNonEmpty(slug, stringValue(candidate["urlId"]), stringValue(sc["urlSlug"]))
	if inferredSlug == "" {
		inferredSlug = detect.DetectProductURL(sourceURL).Slug
	}

	variants = appendDefaultVariant(variants, &catalog.Variant{
		ID:    firstNonEmpty(candidateID, inferredSlug),
		Price: makePrice(defaultAmount, defaultCurrency, nil),
		Inventory: &catalog.Inventory{
			TrackQuantity: boolPtr(true),
			Available:     boolPtr(true),
		},
	})

	tags := dedupeStrings(append(extractNames(candidate["tags"], true), extractNames(sc["tags"], true)...))

	categories := extractNames(candidate["categories"], true)
	if len(categories) == 0 {
		categories = extractNames(sc["categories"], true)
	}
	var taxonomy *catalog.CategorySet
	if len(categories) > 0 {
		paths := make([][]string, 0, len(categories))
		for _, name := range categories {
			paths = append(paths, []string{name})
		}
		taxonomy = &catalog.CategorySet{Paths: paths, Primary: paths[0]}
	}

	isDigital := strings.EqualFold(stringValue(sc["productType"]), "digital")
	for _, key := range []string{"isDigital", "isVirtual", "isDownloadable"} {
		if b := boolValue(sc[key]); b != nil && *b {
			isDigital = true
		}
	}

	brand := brandName(sc["brand"])
	productID := firstNonEmpty(candidateID, inferredSlug)

	return &catalog.Product{
		Title:            title,
		Description:      description,
		Brand:            brand,
		Vendor:           brand,
		Tags:             tags,
		Variants:         variants,
		Options:          optionDefs,
		Price:            makePrice(defaultAmount, defaultCurrency, nil),
		Media:            media,
		RequiresShipping: boolPtr(!isDigital),
		TrackQuantity:    boolPtr(true),
		IsDigital:        isDigital,
		Raw:              rawMap(payload),
		Taxonomy:         taxonomy,
		SEO: &catalog.SEO{
			Title:       title,
			Description: metaDescription(description),
		},
		Identifiers: identifiersFrom(map[string]string{
			"source_product_id": productID,
		}),
		Source: catalog.NewSourceRef(detect.Squarespace, productID, inferredSlug, sourceURL),
	}
}

func parsePageJSONVariant(rawVariant any, index int, optionNames []string, skuBase string) *catalog.Variant {
	var (
		variantID, title, sku string
		optionValues          []catalog.OptionValue
		amount, compareAt     *decimal.Decimal
		currency              string
		available             *bool
		quantity              *int
		imageURL              string
		trackQuantity         = true
		hasSignal             bool
	)

	switch obj := rawVariant.(type) {
	case map[string]any:
		variantID = tokenValue(obj["id"])
		title = firstNonEmpty(stringValue(obj["title"]), stringValue(obj["name"]))
		sku = stringValue(obj["sku"])
		optionValues = squarespaceVariantOptions(obj, optionNames)

		amount, currency = squarespaceMoney(obj["priceMoney"])
		if amount == nil {
			amount, currency = squarespaceMoney(obj["price"])
		}
		compareAt, _ = squarespaceMoney(obj["salePriceMoney"])
		if compareAt != nil && compareAt.IsZero() {
			compareAt = nil
		}

		available = firstBool(obj["inStock"], obj["isInStock"], obj["available"])
		quantity = intValue(obj["qtyInStock"])
		if quantity == nil {
			quantity = intValue(obj["stock"])
		}
		if quantity == nil {
			quantity = intValue(obj["quantity"])
		}
		if unlimited := boolValue(obj["unlimited"]); unlimited != nil {
			trackQuantity = !*unlimited
		}

		variantImages := extractImageURLs(obj["image"], true, squarespaceImageKeys)
		if len(variantImages) == 0 {
			variantImages = extractImageURLs(obj["images"], true, squarespaceImageKeys)
		}
		if len(variantImages) > 0 {
			imageURL = variantImages[0]
		}

		hasSignal = variantID != "" || title != "" || sku != "" || amount != nil ||
			available != nil || quantity != nil || imageURL != "" || len(optionValues) > 0
	default:
		if rawVariant != nil {
			variantID = tokenValue(rawVariant)
			hasSignal = variantID != ""
		}
	}

	if !hasSignal {
		return nil
	}

	variantKey := slugToken(firstNonEmpty(variantID, title))
	if variantKey == "" {
		variantKey = fmt.Sprintf("%d", index+1)
	}
	resolvedSKU := sku
	if resolvedSKU == "" {
		resolvedSKU = fmt.Sprintf("SQ:%s:%s", skuBase, variantKey)
	}

	return &catalog.Variant{
		ID:           variantID,
		SKU:          resolvedSKU,
		Title:        title,
		OptionValues: optionValues,
		Price:        makePrice(amount, currency, compareAt),
		Media:        variantImageMedia(imageURL, resolvedSKU),
		Inventory: &catalog.Inventory{
			TrackQuantity: boolPtr(trackQuantity),
			Quantity:      quantity,
			Available:     available,
		},
		Identifiers: identifiersFrom(map[string]string{
			"source_variant_id": variantID,
			"sku":               resolvedSKU,
		}),
	}
}
