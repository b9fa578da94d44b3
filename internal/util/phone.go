package util

import (
	"strings"
	"unicode"
)

var dialSymbols = strings.NewReplacer("+", "", " ", "", "-", "")

// StripDialSymbols removes '+', spaces and hyphens, leaving any other characters in place.
func StripDialSymbols(raw string) string {
	return dialSymbols.Replace(raw)
}

// DigitsOnly keeps the decimal digits of raw, e.g. "+971 (50) 123-4567" -> "971501234567".
func DigitsOnly(raw string) string {
	var sb strings.Builder
	sb.Grow(len(raw))
	for _, r := range raw {
		if r <= unicode.MaxASCII && unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
