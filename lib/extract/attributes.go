package extract

import (
	"strings"

	"beanscout-backend/lib/catalog"
	"beanscout-backend/lib/vocab"
)

// known growing regions/countries for region detection
var knownRegions = []string{
	"Yirgacheffe", "Sidamo", "Guji", "Harrar", "Huila", "Antigua", "Tarrazu",
	"Chiapas", "Minas Gerais", "Cerrado", "Kona", "Blue Mountain",
	"Ethiopia", "Kenya", "Colombia", "Brazil", "Guatemala", "Honduras",
	"El Salvador", "Costa Rica", "Nicaragua", "Panama", "Peru", "Bolivia",
	"Mexico", "Jamaica", "Hawaii", "Yemen", "India", "Indonesia", "Sumatra",
	"Java", "Sulawesi", "Papua New Guinea", "Vietnam", "Rwanda", "Burundi",
	"Uganda", "Tanzania", "Malawi", "Zambia", "Congo", "Ecuador", "Venezuela",
	"Myanmar", "Thailand", "China", "Laos", "Philippines",
}

// applyAttributes folds a raw attribute bag into a product. Each
// normalized attribute is scanned through the same fixed precedence
// chain: explicit structured field, then tags, then specification
// table text, then the free-text description. First match wins.
func applyAttributes(product *catalog.Product, raw RawAttributes) {
	if raw.Name != "" {
		product.Name = raw.Name
	}
	if raw.Description != "" {
		product.Description = raw.Description
	}
	if raw.ImageUrl != "" && product.ImageUrl == "" {
		product.ImageUrl = raw.ImageUrl
	}
	if len(raw.Tags) > 0 && len(product.Tags) == 0 {
		product.Tags = raw.Tags
	}

	specText := joinSpecRows(raw.SpecRows)

	product.RoastLevel = scanChain(
		vocab.RoastUnknown, vocab.NormalizeRoast,
		raw.RoastText, strings.Join(raw.Tags, " | "), specText, raw.Description,
	)
	product.Process = scanChain(
		vocab.ProcessUnknown, vocab.NormalizeProcess,
		raw.ProcessText, strings.Join(raw.Tags, " | "), specText, raw.Description,
	)
	product.BeanType = scanChain(
		vocab.BeanUnknown, vocab.NormalizeBean,
		"", strings.Join(raw.Tags, " | "), specText, raw.Description,
	)

	product.RegionName = scanRegion(raw.OriginText, product.Name, raw.Tags, specText, raw.Description)
	product.FlavorProfiles = scanFlavors(raw.Tags, specText, raw.Description)
	product.BrewMethods = scanBrewMethods(raw.Tags, raw.Description)
	product.Prices = scanPrices(raw)

	product.IsSingleOrigin = isSingleOrigin(product.Name, raw.Tags, raw.Description, product.BeanType)
	product.IsSeasonal = hasAnyTag(raw.Tags, "seasonal", "limited", "limited edition", "limited release")
	product.IsFeatured = hasAnyTag(raw.Tags, "featured", "bestseller", "best seller", "staff pick")
	product.IsAvailable = isAvailable(raw)
}

// scanChain runs the fixed precedence chain for one enum attribute.
func scanChain[T ~string](unknown T, normalize func(string) T, candidates ...string) T {
	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		if value := normalize(candidate); value != unknown {
			return value
		}
	}
	return unknown
}

func joinSpecRows(rows map[string]string) string {
	if len(rows) == 0 {
		return ""
	}
	var parts []string
	for label, value := range rows {
		parts = append(parts, label+": "+value)
	}
	return strings.Join(parts, "\n")
}

func scanRegion(candidates ...interface{}) string {
	var texts []string
	for _, c := range candidates {
		switch v := c.(type) {
		case string:
			texts = append(texts, v)
		case []string:
			texts = append(texts, v...)
		}
	}
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		lower := strings.ToLower(text)
		for _, region := range knownRegions {
			if strings.Contains(lower, strings.ToLower(region)) {
				return region
			}
		}
	}
	return ""
}

// scanFlavors screens tags against the stoplist first, then falls back
// to scanning the spec table and description text.
func scanFlavors(tags []string, specText, description string) []string {
	var flavors []string
	seen := map[string]bool{}

	add := func(flavor string) {
		if !seen[flavor] {
			seen[flavor] = true
			flavors = append(flavors, flavor)
		}
	}

	for _, tag := range tags {
		if vocab.IsStopTag(tag) {
			continue
		}
		if flavor, ok := vocab.MatchFlavor(tag); ok {
			add(flavor)
		}
	}
	if len(flavors) > 0 {
		return flavors
	}

	for _, text := range []string{specText, description} {
		for _, candidate := range splitFlavorText(text) {
			if flavor, ok := vocab.MatchFlavor(candidate); ok {
				add(flavor)
			}
		}
		if len(flavors) > 0 {
			return flavors
		}
	}
	return flavors
}

// splitFlavorText breaks "notes of chocolate, cherry & toffee" style
// text into individual candidates.
func splitFlavorText(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ToLower(text)
	for _, sep := range []string{"&", " and ", ";", "/", "•", "·"} {
		text = strings.ReplaceAll(text, sep, ",")
	}
	var out []string
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part != "" && len(part) <= 40 {
			out = append(out, part)
		}
	}
	return out
}

func scanBrewMethods(tags []string, description string) []string {
	var methods []string
	seen := map[string]bool{}
	for _, text := range append(append([]string{}, tags...), description) {
		if method, ok := vocab.MatchBrewMethod(text); ok && !seen[method] {
			seen[method] = true
			methods = append(methods, method)
		}
	}
	return methods
}

// scanPrices parses variant titles or price text for weight mentions
// and assigns each price to its nearest-ceiling bucket. A product with
// a price but no weight anywhere gets the default 250g bucket.
func scanPrices(raw RawAttributes) map[int]float64 {
	prices := map[int]float64{}
	pagePrice := ParsePrice(raw.PriceText)

	for _, variant := range raw.Variants {
		grams := variant.Grams
		if grams == 0 {
			grams = ParseWeightGrams(variant.Title)
		}
		// variant text often carries both weight and price ("250g - $16");
		// drop the weight mention so it is not mistaken for an amount
		price := ParsePrice(weightRegex.ReplaceAllString(variant.PriceText, ""))
		if price == 0 {
			price = pagePrice
		}
		if grams == 0 || price == 0 {
			continue
		}
		bucket := BucketFor(grams)
		if _, taken := prices[bucket]; !taken {
			prices[bucket] = price
		}
	}

	if len(prices) > 0 {
		return prices
	}

	// no weight found anywhere: fall back to a single default bucket
	price := pagePrice
	if price == 0 {
		for _, variant := range raw.Variants {
			if p := ParsePrice(variant.PriceText); p > 0 {
				price = p
				break
			}
		}
	}
	if price > 0 {
		grams := ParseWeightGrams(raw.PriceText)
		bucket := DefaultBucket
		if grams > 0 {
			bucket = BucketFor(grams)
		}
		prices[bucket] = price
	}
	if len(prices) == 0 {
		return nil
	}
	return prices
}

func isSingleOrigin(name string, tags []string, description string, bean vocab.BeanType) bool {
	if bean == vocab.BeanBlend {
		return false
	}
	combined := strings.ToLower(name + " " + strings.Join(tags, " ") + " " + description)
	if strings.Contains(combined, "single origin") || strings.Contains(combined, "single-origin") {
		return true
	}
	if strings.Contains(combined, "blend") {
		return false
	}
	// a named growing region is a strong single-origin signal
	return scanRegion(name, tags) != ""
}

func hasAnyTag(tags []string, wanted ...string) bool {
	for _, tag := range tags {
		lower := strings.ToLower(strings.TrimSpace(tag))
		for _, w := range wanted {
			if lower == w {
				return true
			}
		}
	}
	return false
}

func isAvailable(raw RawAttributes) bool {
	sawStockInfo := false
	for _, variant := range raw.Variants {
		if !variant.HasStock {
			continue
		}
		sawStockInfo = true
		if variant.Available {
			return true
		}
	}
	// pages without stock information are assumed purchasable
	return !sawStockInfo
}
