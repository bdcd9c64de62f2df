// Package detect classifies raw inputs — product URLs and CSV exports —
// into source platforms before any import work begins.
//
// Both classifiers run an ordered matcher list, most specific first. Order
// matters: a generic /products/ path must not be claimed by the Shopify
// matcher when the host or query identifies WooCommerce or Squarespace, so
// those run earlier.
package detect

import (
	"net/url"
	"regexp"
	"strings"
)

// Platform names.
const (
	Shopify     = "shopify"
	WooCommerce = "woocommerce"
	Squarespace = "squarespace"
	BigCommerce = "bigcommerce"
	Wix         = "wix"
	AliExpress  = "aliexpress"
	Amazon      = "amazon"
)

// URLDetection is the outcome of classifying a product URL.
type URLDetection struct {
	Platform  string `json:"platform"`
	IsProduct bool   `json:"is_product"`
	ProductID string `json:"product_id,omitempty"`
	Slug      string `json:"slug,omitempty"`
}

const localePrefix = `(?:[a-z]{2}(?:-[a-z0-9]{2,8})?/)?`

var (
	amazonASINRe     = regexp.MustCompile(`(?i)/(?:gp/product|dp)/([A-Z0-9]{10})(?:[/?#]|$)`)
	asinRe           = regexp.MustCompile(`(?i)^[A-Z0-9]{10}$`)
	aliexpressItemRe = regexp.MustCompile(`(?i)/(?:item|i)/(\d+)\.html(?:[/?#]|$)`)
	digitsRe         = regexp.MustCompile(`^\d+$`)

	shopifyProductRe    = regexp.MustCompile(`(?i)^/` + localePrefix + `(?:collections/[^/]+/)?products/([^/?#]+?)(?:\.(?:js|json))?/?$`)
	wooProductRe        = regexp.MustCompile(`(?i)^/` + localePrefix + `product/([^/?#]+)/?$`)
	wooStoreAPIRe       = regexp.MustCompile(`(?i)^/wp-json/wc/store/v1/products/([^/?#]+)/?$`)
	wooAPIPrefixRe      = regexp.MustCompile(`(?i)^/wp-json/wc/(?:store/v1|v[1-9]+)/`)
	squarespaceItemRe   = regexp.MustCompile(`(?i)^/(?:shop|store)/(?:p/)?([a-z0-9-]+)/?$`)
	squarespaceShopRe   = regexp.MustCompile(`(?i)^/(?:shop|store)(?:/|$)`)
)

// DetectProductURL classifies a URL into a platform and, when possible, a
// concrete product reference. Unrecognized URLs yield a zero detection.
func DetectProductURL(raw string) URLDetection {
	var det URLDetection
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return det
	}
	host := strings.ToLower(parsed.Host)
	path := parsed.Path
	query := parsed.Query()

	if strings.Contains(host, "amazon.") {
		det.Platform = Amazon
		if m := amazonASINRe.FindStringSubmatch(path); m != nil {
			det.IsProduct = true
			det.ProductID = m[1]
			return det
		}
		for _, key := range []string{"asin", "ASIN"} {
			if v := query.Get(key); v != "" && asinRe.MatchString(v) {
				det.IsProduct = true
				det.ProductID = v
				return det
			}
		}
		return det
	}

	if strings.Contains(host, "aliexpress.") {
		det.Platform = AliExpress
		if m := aliexpressItemRe.FindStringSubmatch(path); m != nil {
			det.IsProduct = true
			det.ProductID = m[1]
		}
		return det
	}

	if m := wooProductRe.FindStringSubmatch(path); m != nil {
		return URLDetection{Platform: WooCommerce, IsProduct: true, Slug: m[1]}
	}
	if v := query.Get("product"); v != "" && digitsRe.MatchString(v) {
		return URLDetection{Platform: WooCommerce, IsProduct: true, ProductID: v}
	}
	if m := wooStoreAPIRe.FindStringSubmatch(path); m != nil {
		token, err := url.PathUnescape(m[1])
		if err != nil {
			token = m[1]
		}
		if digitsRe.MatchString(token) {
			return URLDetection{Platform: WooCommerce, IsProduct: true, ProductID: token}
		}
		return URLDetection{Platform: WooCommerce, IsProduct: true, Slug: token}
	}
	if wooAPIPrefixRe.MatchString(path) {
		return URLDetection{Platform: WooCommerce}
	}

	ssMatch := squarespaceItemRe.FindStringSubmatch(path)
	if strings.HasSuffix(host, ".squarespace.com") {
		if ssMatch != nil {
			return URLDetection{Platform: Squarespace, IsProduct: true, Slug: ssMatch[1]}
		}
		return URLDetection{Platform: Squarespace}
	}
	format := strings.ToLower(strings.TrimSpace(query.Get("format")))
	if (format == "json" || format == "json-pretty") && squarespaceShopRe.MatchString(path) {
		if ssMatch != nil {
			return URLDetection{Platform: Squarespace, IsProduct: true, Slug: ssMatch[1]}
		}
		return URLDetection{Platform: Squarespace}
	}

	if m := shopifyProductRe.FindStringSubmatch(path); m != nil {
		return URLDetection{Platform: Shopify, IsProduct: true, Slug: m[1]}
	}
	if strings.HasSuffix(host, ".myshopify.com") {
		return URLDetection{Platform: Shopify}
	}

	return det
}

// ShopifySlugFromPath extracts the product handle from a Shopify product
// path, or "".
func ShopifySlugFromPath(path string) string {
	if m := shopifyProductRe.FindStringSubmatch(path); m != nil {
		return m[1]
	}
	return ""
}
