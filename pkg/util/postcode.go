package util

import (
	"regexp"
	"strings"
)

// UK postcode pattern, e.g. "SW1A 1AA", "EC1A1BB", "M1 1AE"
var postcodePattern = regexp.MustCompile(`([A-Z]{1,2}[0-9R][0-9A-Z]? ?[0-9][A-Z]{2})`)

// ExtractPostcode extracts a UK postcode from an address string.
// Returns "" when the address contains no recognisable postcode.
func ExtractPostcode(address string) string {
	match := postcodePattern.FindString(strings.ToUpper(address))
	return NormalizePostcode(match)
}

// NormalizePostcode upper-cases a postcode and normalises it to the canonical
// single-space form ("sw1a1aa" -> "SW1A 1AA").
func NormalizePostcode(postcode string) string {
	compact := strings.ToUpper(strings.ReplaceAll(postcode, " ", ""))
	if len(compact) < 5 {
		return compact
	}
	// The inward code is always the last three characters.
	return compact[:len(compact)-3] + " " + compact[len(compact)-3:]
}

// OutwardCode returns the outward part of a UK postcode (the 2-4 characters
// before the space): "SW1A 1AA" -> "SW1A".
func OutwardCode(postcode string) string {
	normalized := NormalizePostcode(postcode)
	if idx := strings.IndexByte(normalized, ' '); idx > 0 {
		return normalized[:idx]
	}
	return normalized
}

// LooksLikePostcode reports whether the input is plausibly a bare UK postcode
// rather than a free-text address.
func LooksLikePostcode(location string) bool {
	compact := strings.ReplaceAll(strings.TrimSpace(location), " ", "")
	if len(compact) < 5 || len(compact) > 8 {
		return false
	}
	return postcodePattern.MatchString(NormalizePostcode(location))
}
