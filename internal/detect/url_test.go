package detect

import "testing"

// ============================================================================
// Shopify URL Detection Tests
// ============================================================================

func TestDetectProductURL_ShopifyShapes(t *testing.T) {
	cases := []string{
		"https://demo.myshopify.com/products/red-rain-coat",
		"https://demo.myshopify.com/collections/all/products/red-rain-coat",
		"https://example-store.com/en-us/collections/sale/products/red-rain-coat",
		"https://demo.myshopify.com/products/red-rain-coat.js",
		"https://demo.myshopify.com/products/red-rain-coat.json",
	}
	for _, url := range cases {
		det := DetectProductURL(url)
		if det.Platform != Shopify || !det.IsProduct || det.Slug != "red-rain-coat" {
			t.Errorf("DetectProductURL(%q) = %+v", url, det)
		}
	}
}

func TestDetectProductURL_ShopifyHostWithoutProduct(t *testing.T) {
	det := DetectProductURL("https://demo.myshopify.com/collections/all")
	if det.Platform != Shopify || det.IsProduct {
		t.Errorf("expected non-product shopify, got %+v", det)
	}
}

// ============================================================================
// WooCommerce URL Detection Tests
// ============================================================================

func TestDetectProductURL_WooCommerceShapes(t *testing.T) {
	det := DetectProductURL("https://demo-store.com/?product=123")
	if det.Platform != WooCommerce || !det.IsProduct || det.ProductID != "123" {
		t.Errorf("query form: %+v", det)
	}

	det = DetectProductURL("https://demo-store.com/product/adjustable-wrench-set/")
	if det.Platform != WooCommerce || !det.IsProduct || det.Slug != "adjustable-wrench-set" {
		t.Errorf("pretty path: %+v", det)
	}

	det = DetectProductURL("https://demo-store.com/wp-json/wc/store/v1/products/123")
	if det.Platform != WooCommerce || !det.IsProduct || det.ProductID != "123" {
		t.Errorf("store api id: %+v", det)
	}

	det = DetectProductURL("https://demo-store.com/wp-json/wc/store/v1/products/brake-disc-rotor")
	if det.Platform != WooCommerce || !det.IsProduct || det.Slug != "brake-disc-rotor" {
		t.Errorf("store api slug: %+v", det)
	}
}

func TestDetectProductURL_WooCommerceNonProductAPI(t *testing.T) {
	det := DetectProductURL("https://demo-store.com/wp-json/wc/store/v1/products")
	if det.Platform != WooCommerce || det.IsProduct {
		t.Errorf("expected non-product woocommerce, got %+v", det)
	}
}

// ============================================================================
// Squarespace URL Detection Tests
// ============================================================================

func TestDetectProductURL_SquarespaceShapes(t *testing.T) {
	det := DetectProductURL("https://st-p-sews.squarespace.com/shop/p/custom-patchwork-shirt-snzgy")
	if det.Platform != Squarespace || !det.IsProduct || det.Slug != "custom-patchwork-shirt-snzgy" {
		t.Errorf("shop/p path: %+v", det)
	}

	det = DetectProductURL("https://st-p-sews.squarespace.com/store/custom-patchwork-shirt-snzgy")
	if det.Platform != Squarespace || !det.IsProduct {
		t.Errorf("store path: %+v", det)
	}

	det = DetectProductURL("https://st-p-sews.squarespace.com/")
	if det.Platform != Squarespace || det.IsProduct {
		t.Errorf("home page: %+v", det)
	}

	det = DetectProductURL("https://customsite.com/shop/felt-hat?format=json")
	if det.Platform != Squarespace || !det.IsProduct || det.Slug != "felt-hat" {
		t.Errorf("format=json custom domain: %+v", det)
	}
}

// ============================================================================
// Marketplace URL Detection Tests
// ============================================================================

func TestDetectProductURL_AmazonASIN(t *testing.T) {
	det := DetectProductURL("https://www.amazon.com/dp/B0C1234567")
	if det.Platform != Amazon || !det.IsProduct || det.ProductID != "B0C1234567" {
		t.Errorf("dp path: %+v", det)
	}

	det = DetectProductURL("https://www.amazon.co.uk/gp/product/B0C1234567?th=1")
	if det.Platform != Amazon || !det.IsProduct || det.ProductID != "B0C1234567" {
		t.Errorf("gp/product path: %+v", det)
	}

	det = DetectProductURL("https://www.amazon.com/s?k=hats")
	if det.Platform != Amazon || det.IsProduct {
		t.Errorf("search page: %+v", det)
	}
}

func TestDetectProductURL_AliExpressItem(t *testing.T) {
	det := DetectProductURL("https://www.aliexpress.com/item/1005008518647948.html")
	if det.Platform != AliExpress || !det.IsProduct || det.ProductID != "1005008518647948" {
		t.Errorf("item path: %+v", det)
	}
}

// ============================================================================
// Unknown URL Tests
// ============================================================================

func TestDetectProductURL_UnknownPlatform(t *testing.T) {
	det := DetectProductURL("https://example.com/anything")
	if det.Platform != "" || det.IsProduct || det.ProductID != "" || det.Slug != "" {
		t.Errorf("expected zero detection, got %+v", det)
	}
}

func TestDetectProductURL_GenericProductsPathIsShopify(t *testing.T) {
	// A bare /products/<slug> path on an unknown host is treated as Shopify,
	// but only after the more specific matchers have declined it.
	det := DetectProductURL("https://example.com/products/felt-hat")
	if det.Platform != Shopify || !det.IsProduct || det.Slug != "felt-hat" {
		t.Errorf("unexpected: %+v", det)
	}
}
