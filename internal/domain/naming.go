package domain

import (
	"strings"
	"unicode"
)

// Snake converts a Go identifier to snake_case. Acronyms stay together:
// HTTPFilter -> http_filter, OrderQuerySet -> order_query_set.
func Snake(name string) string {
	runes := []rune(name)

	var b strings.Builder

	for i, r := range runes {
		if r == '_' {
			b.WriteRune('_')
			continue
		}

		if unicode.IsUpper(r) && i > 0 && runes[i-1] != '_' {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteRune('_')
			}
		}

		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}

// Pascal joins snake_case words capitalizing the first letter of each and
// lower-casing the rest.
func Pascal(snake string) string {
	var b strings.Builder

	for _, word := range strings.Split(snake, "_") {
		if word == "" {
			continue
		}

		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}

	return b.String()
}

// NormalizeTestName strips the Test prefix from a test function name and
// returns the remainder in snake_case. TestFooFilterSet_FilterBar and
// Test_foo_filter_set_filter_bar both yield foo_filter_set_filter_bar.
func NormalizeTestName(name string) string {
	name = strings.TrimPrefix(name, "Test")

	var words []string

	for _, segment := range strings.Split(name, "_") {
		if segment == "" {
			continue
		}

		words = append(words, Snake(segment))
	}

	return strings.Join(words, "_")
}

// Canonical folds case and underscores; used for whole-name set comparisons.
func Canonical(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", ""))
}
