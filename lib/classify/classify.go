// Package classify decides whether a discovered candidate is a retail
// coffee product or storefront noise (equipment, merch, gift cards,
// subscriptions, editorial pages).
package classify

import (
	"net/url"
	"strings"

	"beanscout-backend/lib/textutil"
)

// keywords that disqualify a candidate wherever they appear: name,
// description or categories. These never occur in honest descriptions
// of a bag of coffee.
var nonProductKeywords = []string{
	"mug", "tumbler", "bottle", "carafe", "portafilter", "tamper",
	"merch", "merchandise", "apparel", "tshirt", "shirt",
	"hoodie", "tote", "sticker", "poster",
	"gift card", "giftcard", "voucher",
	"subscription", "subscriptions", "membership",
	"workshop", "masterclass", "sample pack", "tasting kit",
	"equipment", "accessory", "accessories",
}

// keywords only disqualifying in the product name itself. Flavor notes
// and brew advice legitimately mention chocolate, filters or v60s, so
// scanning these against descriptions or tags would reject real coffee.
var nonProductNameKeywords = []string{
	"cup", "glass", "grinder", "kettle", "scale", "dripper", "brewer",
	"chemex", "aeropress", "filter", "filters", "v60", "machine",
	"hat", "cap", "book", "magazine", "course", "class", "training",
	"chocolate", "cocoa", "tea", "matcha", "chai", "syrup",
}

// url path fragments that mark non-product pages
var nonProductPathPatterns = []string{
	"/blog", "/blogs/news", "/news", "/journal", "/stories",
	"/pages/", "/about", "/contact", "/faq", "/help",
	"/account", "/cart", "/checkout", "/login", "/register",
	"/policies", "/policy", "/privacy", "/terms", "/shipping", "/refund",
	"/wholesale", "/trade", "/careers", "/jobs",
	"/collections/merch", "/collections/equipment", "/collections/gear",
	"/product-category/equipment", "/product-category/merch",
	"/gift-cards", "/subscribe", "/subscriptions", "/events",
}

// IsProduct decides whether a discovered candidate looks like a retail
// coffee product. The policy is default-admit: a candidate is excluded
// only on an explicit negative signal, because silently dropping a real
// product is worse than letting a stray candidate through to the
// stricter post-extraction pass.
func IsProduct(name, rawUrl, description string, categories []string) bool {
	for _, keyword := range nonProductNameKeywords {
		if textutil.ContainsWholePhrase(name, keyword) {
			return false
		}
	}

	combined := strings.Join(append([]string{name, description}, categories...), " ")
	for _, keyword := range nonProductKeywords {
		if textutil.ContainsWholePhrase(combined, keyword) {
			return false
		}
	}

	if rawUrl != "" {
		path := rawUrl
		if parsed, err := url.Parse(rawUrl); err == nil {
			path = parsed.Path
		}
		path = strings.ToLower(path)
		for _, pattern := range nonProductPathPatterns {
			if strings.Contains(path, pattern) {
				return false
			}
		}
	}

	return true
}
