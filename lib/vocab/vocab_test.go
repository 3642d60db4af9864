package vocab

import "testing"

func TestNormalizeRoast(t *testing.T) {
	testCases := []struct {
		in       string
		expected RoastLevel
	}{
		{"Light", RoastLight},
		{"medium-light", RoastMediumLight},
		{"Medium Dark", RoastMediumDark},
		{"A classic Full City roast", RoastMediumDark},
		{"French Roast", RoastDark},
		{"Blonde espresso", RoastLight},
		{"roasted for filter", RoastLight},
		{"", RoastUnknown},
		{"totally ambiguous", RoastUnknown},
	}
	for _, test := range testCases {
		if got := NormalizeRoast(test.in); got != test.expected {
			t.Fatalf("NormalizeRoast(%q) = %q, expected %q", test.in, got, test.expected)
		}
	}
}

func TestNormalizeBean(t *testing.T) {
	testCases := []struct {
		in       string
		expected BeanType
	}{
		{"100% Arabica", BeanArabica},
		{"arabica/robusta", BeanBlend},
		{"Arabica and Robusta mix", BeanBlend},
		{"Robusta", BeanRobusta},
		{"house blend", BeanBlend},
		{"excelsa", BeanLiberica},
		{"mystery", BeanUnknown},
	}
	for _, test := range testCases {
		if got := NormalizeBean(test.in); got != test.expected {
			t.Fatalf("NormalizeBean(%q) = %q, expected %q", test.in, got, test.expected)
		}
	}
}

func TestNormalizeProcess(t *testing.T) {
	testCases := []struct {
		in       string
		expected ProcessMethod
	}{
		{"Washed", ProcessWashed},
		{"fully washed", ProcessWashed},
		{"Wet process", ProcessWashed},
		{"Monsooned Malabar AA", ProcessMonsooned},
		// "unwashed" must resolve before the washed rules see it
		{"unwashed lot", ProcessNatural},
		{"pulped natural", ProcessPulpedNatural},
		{"Black Honey", ProcessHoney},
		{"Anaerobic Natural", ProcessAnaerobic},
		{"Giling Basah", ProcessWetHulled},
		{"sun dried", ProcessNatural},
		{"carbonic maceration", ProcessCarbonic},
		{"", ProcessUnknown},
		{"no hints here", ProcessUnknown},
	}
	for _, test := range testCases {
		if got := NormalizeProcess(test.in); got != test.expected {
			t.Fatalf("NormalizeProcess(%q) = %q, expected %q", test.in, got, test.expected)
		}
	}
}

// normalizers are total: any input produces a member of the closed
// enumeration, and repeated calls agree
func TestNormalizersTotalAndDeterministic(t *testing.T) {
	inputs := []string{
		"", " ", "washed", "WASHED", "garbage £$%^&*", "light dark medium",
		"\x00\x01", "very very very long input " + string(make([]byte, 1024)),
	}
	valid := map[RoastLevel]bool{
		RoastLight: true, RoastMediumLight: true, RoastMedium: true,
		RoastMediumDark: true, RoastDark: true, RoastUnknown: true,
	}
	for _, in := range inputs {
		first := NormalizeRoast(in)
		if !valid[first] {
			t.Fatalf("NormalizeRoast(%q) = %q outside enumeration", in, first)
		}
		if NormalizeRoast(in) != first {
			t.Fatalf("NormalizeRoast(%q) not deterministic", in)
		}
	}
}

func TestMatchFlavor(t *testing.T) {
	testCases := []struct {
		in       string
		expected string
		ok       bool
	}{
		{"Dark Chocolate", "dark chocolate", true},
		{"notes of caramel", "caramel", true},
		{"blueberry jam", "blueberry", true},
		// near-miss spelling caught by the fuzzy pass
		{"carame", "caramel", true},
		// stoplist tags never become flavors
		{"Single Origin", "", false},
		{"Ethiopia", "", false},
		{"250g", "", false},
		{"zzz nothing", "", false},
	}
	for _, test := range testCases {
		got, ok := MatchFlavor(test.in)
		if ok != test.ok || got != test.expected {
			t.Fatalf("MatchFlavor(%q) = (%q, %v), expected (%q, %v)", test.in, got, ok, test.expected, test.ok)
		}
	}
}

func TestMatchBrewMethod(t *testing.T) {
	got, ok := MatchBrewMethod("great as Pour Over or drip")
	if !ok || got != "pour over" {
		t.Fatalf("got (%q, %v)", got, ok)
	}
	_, ok = MatchBrewMethod("nothing relevant")
	if ok {
		t.Fatal("unexpected match")
	}
}
