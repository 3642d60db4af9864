// Package vocab holds the closed attribute vocabularies coffee products
// are normalized onto, and the mapping tables from free text into them.
//
// Every normalizer here is total: it never fails and always returns a
// member of its enumeration, falling back to Unknown. The rule tables
// are ordered and first-match-wins; treat the order as part of the
// contract and cover changes with tests.
package vocab

import "strings"

const Unknown = "unknown"

type RoastLevel string

const (
	RoastLight       RoastLevel = "light"
	RoastMediumLight RoastLevel = "medium-light"
	RoastMedium      RoastLevel = "medium"
	RoastMediumDark  RoastLevel = "medium-dark"
	RoastDark        RoastLevel = "dark"
	RoastUnknown     RoastLevel = Unknown
)

type BeanType string

const (
	BeanArabica  BeanType = "arabica"
	BeanRobusta  BeanType = "robusta"
	BeanLiberica BeanType = "liberica"
	BeanBlend    BeanType = "blend"
	BeanUnknown  BeanType = Unknown
)

type ProcessMethod string

const (
	ProcessWashed        ProcessMethod = "washed"
	ProcessNatural       ProcessMethod = "natural"
	ProcessHoney         ProcessMethod = "honey"
	ProcessAnaerobic     ProcessMethod = "anaerobic"
	ProcessMonsooned     ProcessMethod = "monsooned"
	ProcessPulpedNatural ProcessMethod = "pulped-natural"
	ProcessWetHulled     ProcessMethod = "wet-hulled"
	ProcessCarbonic      ProcessMethod = "carbonic-maceration"
	ProcessUnknown       ProcessMethod = Unknown
)

type rule struct {
	substring string
	canonical string
}

// direct spellings first, then ordered substring rules. more specific
// substrings must come before the generic ones they contain.
var roastDirect = map[string]RoastLevel{
	"light":        RoastLight,
	"medium-light": RoastMediumLight,
	"medium light": RoastMediumLight,
	"medium":       RoastMedium,
	"medium-dark":  RoastMediumDark,
	"medium dark":  RoastMediumDark,
	"dark":         RoastDark,
}

var roastRules = []rule{
	{"medium-light", string(RoastMediumLight)},
	{"medium light", string(RoastMediumLight)},
	{"light-medium", string(RoastMediumLight)},
	{"medium-dark", string(RoastMediumDark)},
	{"medium dark", string(RoastMediumDark)},
	{"dark-medium", string(RoastMediumDark)},
	{"city+", string(RoastMedium)},
	{"full city", string(RoastMediumDark)},
	{"city", string(RoastMedium)},
	{"french", string(RoastDark)},
	{"italian", string(RoastDark)},
	{"espresso roast", string(RoastDark)},
	{"cinnamon", string(RoastLight)},
	{"blonde", string(RoastLight)},
	{"omni", string(RoastMedium)},
	{"light", string(RoastLight)},
	{"medium", string(RoastMedium)},
	{"dark", string(RoastDark)},
	// filter-designated coffees are roasted light unless stated otherwise
	{"filter", string(RoastLight)},
}

func NormalizeRoast(text string) RoastLevel {
	text = normalize(text)
	if text == "" {
		return RoastUnknown
	}
	if direct, ok := roastDirect[text]; ok {
		return direct
	}
	for _, r := range roastRules {
		if strings.Contains(text, r.substring) {
			return RoastLevel(r.canonical)
		}
	}
	return RoastUnknown
}

var beanDirect = map[string]BeanType{
	"arabica":  BeanArabica,
	"robusta":  BeanRobusta,
	"liberica": BeanLiberica,
	"blend":    BeanBlend,
}

var beanRules = []rule{
	{"arabica/robusta", string(BeanBlend)},
	{"arabica & robusta", string(BeanBlend)},
	{"arabica and robusta", string(BeanBlend)},
	{"100% arabica", string(BeanArabica)},
	{"arabica", string(BeanArabica)},
	{"robusta", string(BeanRobusta)},
	{"liberica", string(BeanLiberica)},
	{"excelsa", string(BeanLiberica)},
	{"blend", string(BeanBlend)},
}

func NormalizeBean(text string) BeanType {
	text = normalize(text)
	if text == "" {
		return BeanUnknown
	}
	if direct, ok := beanDirect[text]; ok {
		return direct
	}
	for _, r := range beanRules {
		if strings.Contains(text, r.substring) {
			return BeanType(r.canonical)
		}
	}
	return BeanUnknown
}

var processDirect = map[string]ProcessMethod{
	"washed":              ProcessWashed,
	"natural":             ProcessNatural,
	"honey":               ProcessHoney,
	"anaerobic":           ProcessAnaerobic,
	"monsooned":           ProcessMonsooned,
	"pulped-natural":      ProcessPulpedNatural,
	"wet-hulled":          ProcessWetHulled,
	"carbonic-maceration": ProcessCarbonic,
}

var processRules = []rule{
	{"carbonic", string(ProcessCarbonic)},
	{"anaerobic", string(ProcessAnaerobic)},
	{"monsoon", string(ProcessMonsooned)},
	{"malabar", string(ProcessMonsooned)},
	{"pulped", string(ProcessPulpedNatural)},
	{"semi-washed", string(ProcessPulpedNatural)},
	{"wet hulled", string(ProcessWetHulled)},
	{"wet-hulled", string(ProcessWetHulled)},
	{"giling basah", string(ProcessWetHulled)},
	{"black honey", string(ProcessHoney)},
	{"red honey", string(ProcessHoney)},
	{"yellow honey", string(ProcessHoney)},
	{"white honey", string(ProcessHoney)},
	{"honey", string(ProcessHoney)},
	{"unwashed", string(ProcessNatural)},
	{"fully washed", string(ProcessWashed)},
	{"wet process", string(ProcessWashed)},
	{"washed", string(ProcessWashed)},
	{"sun dried", string(ProcessNatural)},
	{"sun-dried", string(ProcessNatural)},
	{"dry process", string(ProcessNatural)},
	{"natural", string(ProcessNatural)},
}

func NormalizeProcess(text string) ProcessMethod {
	text = normalize(text)
	if text == "" {
		return ProcessUnknown
	}
	if direct, ok := processDirect[text]; ok {
		return direct
	}
	for _, r := range processRules {
		if strings.Contains(text, r.substring) {
			return ProcessMethod(r.canonical)
		}
	}
	return ProcessUnknown
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
