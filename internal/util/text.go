package util

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

var reSpaces = regexp.MustCompile(`\s+`)

// Fold returns the Unicode case-folded form used for every case-insensitive comparison.
// A Caser is stateful, so one is built per call.
func Fold(input string) string {
	return cases.Fold().String(input)
}

func ContainsFold(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(Fold(haystack), Fold(needle))
}

func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

func IsBlank(input string) bool {
	return strings.TrimSpace(input) == ""
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
