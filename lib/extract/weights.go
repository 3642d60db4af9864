package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// fixed package-size buckets prices are normalized onto, in grams
var WeightBuckets = []int{100, 250, 500, 1000}

// DefaultBucket is used when no weight is found anywhere on a product.
const DefaultBucket = 250

var weightRegex = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(kg|kilo|kilogram|g|gr|gm|gram|grams)\b`)

// ParseWeightGrams scans text for a <number><unit> weight mention and
// converts it to grams. Returns 0 if no weight is present.
func ParseWeightGrams(text string) int {
	groups := weightRegex.FindStringSubmatch(text)
	if len(groups) < 3 {
		return 0
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(groups[1], ",", "."), 64)
	if err != nil {
		return 0
	}
	unit := strings.ToLower(groups[2])
	if strings.HasPrefix(unit, "k") {
		value *= 1000
	}
	if value <= 0 {
		return 0
	}
	return int(value + 0.5)
}

// BucketFor assigns a gram weight to its nearest-ceiling bucket: the
// smallest bucket that is >= the weight, or the largest bucket when the
// weight exceeds them all. 300g lands in the 500g bucket.
func BucketFor(grams int) int {
	for _, bucket := range WeightBuckets {
		if grams <= bucket {
			return bucket
		}
	}
	return WeightBuckets[len(WeightBuckets)-1]
}

var priceRegex = regexp.MustCompile(`(\d+(?:[.,]\d{1,2})?)`)

// ParsePrice pulls the first numeric amount out of a price string like
// "$18.50" or "550,00 kr". Returns 0 when nothing parses.
func ParsePrice(text string) float64 {
	groups := priceRegex.FindStringSubmatch(strings.ReplaceAll(text, ",", "."))
	if len(groups) < 2 {
		return 0
	}
	value, err := strconv.ParseFloat(groups[1], 64)
	if err != nil {
		return 0
	}
	return value
}
