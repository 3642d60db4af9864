package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, " ")
	return name
}

func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

var nonSlugRegex = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns an arbitrary product or roaster name into a
// url/cache-key-safe identifier.
func Slugify(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = nonSlugRegex.ReplaceAllString(name, "-")
	return strings.Trim(name, "-")
}

var wordSplitRegex = regexp.MustCompile(`[^a-z0-9]+`)

// ContainsWholeWord reports whether word occurs in text as a whole
// word after lowercasing. "mug" matches "Coffee Mug" but not "mugicha".
func ContainsWholeWord(text, word string) bool {
	for _, w := range wordSplitRegex.Split(strings.ToLower(text), -1) {
		if w == word {
			return true
		}
	}
	return false
}

// ContainsWholePhrase is ContainsWholeWord generalized to multi-word
// phrases like "gift card".
func ContainsWholePhrase(text, phrase string) bool {
	words := strings.Fields(phrase)
	if len(words) == 1 {
		return ContainsWholeWord(text, words[0])
	}
	tokens := wordSplitRegex.Split(strings.ToLower(text), -1)
	for i := 0; i+len(words) <= len(tokens); i++ {
		match := true
		for j, w := range words {
			if tokens[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// Truncate cuts s to at most max bytes on a rune boundary.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && s[max]&0xc0 == 0x80 {
		max--
	}
	return s[:max]
}
