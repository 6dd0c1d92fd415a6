package domain

import "strings"

// themeVocabulary is the fixed list of thematic keywords used to tag
// philosophy quotes and to pick out anime-flavored ones. Order matters for
// deterministic tag output.
var themeVocabulary = []string{
	"life", "dream", "destiny", "heart", "soul", "spirit", "power",
	"strength", "courage", "friend", "hope", "future", "fate", "journey",
	"warrior", "hero", "believe", "faith", "path", "wisdom",
}

// ThemeVocabulary returns a copy of the thematic keyword list.
func ThemeVocabulary() []string {
	out := make([]string, len(themeVocabulary))
	copy(out, themeVocabulary)

	return out
}

// MatchThemes returns the thematic keywords found in text by substring
// match, lowercased, in vocabulary order.
func MatchThemes(text string) []string {
	lower := strings.ToLower(text)

	var tags []string
	for _, theme := range themeVocabulary {
		if strings.Contains(lower, theme) {
			tags = append(tags, theme)
		}
	}

	return tags
}

// HasTheme reports whether any of the quote's tags is a thematic keyword.
func HasTheme(tags []string) bool {
	for _, tag := range tags {
		for _, theme := range themeVocabulary {
			if tag == theme {
				return true
			}
		}
	}

	return false
}
