package extract

import "testing"

func TestParseWeightGrams(t *testing.T) {
	testCases := []struct {
		in       string
		expected int
	}{
		{"250g", 250},
		{"250 g", 250},
		{"250gm", 250},
		{"200 grams", 200},
		{"1kg", 1000},
		{"1.5 kg", 1500},
		{"0,5kg", 500},
		{"Whole Bean / 340g", 340},
		{"12oz bag", 0},
		{"no weight here", 0},
		{"", 0},
	}
	for _, test := range testCases {
		if got := ParseWeightGrams(test.in); got != test.expected {
			t.Fatalf("ParseWeightGrams(%q) = %d, expected %d", test.in, got, test.expected)
		}
	}
}

// bucket assignment is monotonic at the boundaries
func TestBucketFor(t *testing.T) {
	testCases := []struct {
		grams    int
		expected int
	}{
		{100, 100},
		{101, 250},
		{250, 250},
		{251, 500},
		{300, 500},
		{499, 500},
		{500, 500},
		{501, 1000},
		{1000, 1000},
		{1001, 1000},
		{5000, 1000},
	}
	for _, test := range testCases {
		if got := BucketFor(test.grams); got != test.expected {
			t.Fatalf("BucketFor(%d) = %d, expected %d", test.grams, got, test.expected)
		}
	}
}

func TestParsePrice(t *testing.T) {
	testCases := []struct {
		in       string
		expected float64
	}{
		{"$18.50", 18.5},
		{"550.00", 550},
		{"550,00 kr", 550},
		{"£12", 12},
		{"free", 0},
		{"", 0},
	}
	for _, test := range testCases {
		if got := ParsePrice(test.in); got != test.expected {
			t.Fatalf("ParsePrice(%q) = %v, expected %v", test.in, got, test.expected)
		}
	}
}
