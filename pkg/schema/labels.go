package schema

import (
	"strings"
	"unicode"
)

// DefaultLabeler turns a property name into a display label: separators
// become spaces, camelCase and digit boundaries split words, each word is
// title cased. Words written fully upper case, such as ID or URL, are kept.
func DefaultLabeler(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || unicode.IsSpace(r)
	})
	words := make([]string, 0, len(parts))
	for _, part := range parts {
		for _, word := range splitWords(part) {
			words = append(words, titleWord(word))
		}
	}
	return strings.Join(words, " ")
}

func splitWords(s string) []string {
	runes := []rune(s)
	var words []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}
		boundary := (unicode.IsLower(prev) && unicode.IsUpper(cur)) ||
			(unicode.IsLetter(prev) && unicode.IsDigit(cur)) ||
			(unicode.IsDigit(prev) && unicode.IsLetter(cur)) ||
			// "HTTPServer" splits before the last upper case rune.
			(unicode.IsUpper(prev) && unicode.IsUpper(cur) && unicode.IsLower(next))
		if boundary {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	if start < len(runes) {
		words = append(words, string(runes[start:]))
	}
	return words
}

func titleWord(word string) string {
	if len(word) > 1 && strings.ToUpper(word) == word {
		return word
	}
	runes := []rune(strings.ToLower(word))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
