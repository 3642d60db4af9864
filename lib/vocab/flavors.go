package vocab

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// canonical flavor profile names tags are mapped onto
var flavorProfiles = []string{
	"chocolate", "dark chocolate", "milk chocolate", "cocoa",
	"caramel", "toffee", "butterscotch", "brown sugar", "molasses", "honey",
	"vanilla", "nutty", "almond", "hazelnut", "peanut", "walnut",
	"berry", "blueberry", "strawberry", "raspberry", "blackcurrant",
	"citrus", "orange", "lemon", "lime", "grapefruit", "bergamot",
	"stone fruit", "peach", "apricot", "plum", "cherry",
	"tropical", "mango", "pineapple", "papaya", "passionfruit",
	"apple", "pear", "grape", "raisin", "fig", "date",
	"floral", "jasmine", "rose", "lavender", "hibiscus",
	"winey", "spicy", "cinnamon", "clove", "cardamom", "nutmeg",
	"earthy", "woody", "tobacco", "leather", "smoky",
	"malty", "biscuit", "toast", "cereal",
	"creamy", "buttery", "syrupy", "juicy", "bright", "balanced",
}

// tag names that carry no flavor information; screened out before a tag
// is considered a flavor profile candidate
var tagStoplist = []string{
	"coffee", "beans", "whole bean", "ground", "single origin", "blend",
	"espresso", "filter", "decaf", "organic", "fair trade", "fairtrade",
	"direct trade", "rainforest alliance", "specialty", "new", "featured",
	"bestseller", "best seller", "sale", "limited", "seasonal",
	"250g", "500g", "1kg", "bag", "box", "pack",
	"ethiopia", "kenya", "colombia", "brazil", "guatemala", "india",
	"indonesia", "rwanda", "burundi", "honduras", "peru", "el salvador",
	"costa rica", "nicaragua", "yemen", "vietnam", "mexico", "uganda",
	"africa", "south america", "central america", "asia",
}

// IsStopTag reports whether a tag is a low-information utility tag that
// should not be treated as a flavor profile candidate.
func IsStopTag(tag string) bool {
	tag = normalize(tag)
	for _, stop := range tagStoplist {
		if tag == stop {
			return true
		}
	}
	return false
}

const flavorSimilarityThreshold = 0.93

// MatchFlavor maps a free-text tag to a canonical flavor profile name.
// Exact and substring matches are tried first; a Jaro-Winkler pass then
// catches near-miss spellings. Returns false if nothing matches.
func MatchFlavor(tag string) (string, bool) {
	tag = normalize(tag)
	if tag == "" || IsStopTag(tag) {
		return "", false
	}

	for _, flavor := range flavorProfiles {
		if tag == flavor {
			return flavor, true
		}
	}
	// prefer the longest substring match so "dark chocolate" is not
	// collapsed to "chocolate"
	best := ""
	for _, flavor := range flavorProfiles {
		if strings.Contains(tag, flavor) && len(flavor) > len(best) {
			best = flavor
		}
	}
	if best != "" {
		return best, true
	}
	for _, flavor := range flavorProfiles {
		if matchr.JaroWinkler(tag, flavor, false) >= flavorSimilarityThreshold {
			return flavor, true
		}
	}
	return "", false
}

// canonical brew method names
var brewMethods = []string{
	"espresso", "filter", "pour over", "french press", "aeropress",
	"moka pot", "cold brew", "drip", "chemex", "v60", "syphon", "turkish",
}

func MatchBrewMethod(text string) (string, bool) {
	text = normalize(text)
	for _, method := range brewMethods {
		if strings.Contains(text, method) {
			return method, true
		}
	}
	return "", false
}
