// Package normalizers provides value normalization used when joining sources
// that spell the same identity differently.
package normalizers

import (
	"strings"
	"unicode"
)

// PhoneDigits is the number of trailing digits kept when comparing phone numbers.
const PhoneDigits = 10

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// Chain applies normalizers in order.
func Chain(fns ...Normalizer) Normalizer {
	return func(s string) string {
		for _, fn := range fns {
			s = fn(s)
		}
		return s
	}
}

// NormalizePhone keeps the last ten digits so that "+1 (555) 010-2030" and
// "5550102030" compare equal. Numbers with fewer digits are returned as their digits.
func NormalizePhone(s string) string {
	digits := DigitsOnly(s)
	if len(digits) > PhoneDigits {
		return digits[len(digits)-PhoneDigits:]
	}
	return digits
}

// NormalizeEmail normalizes an email address (lowercase, trim)
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Lowercase trims and lowercases.
func Lowercase(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeName lowercases, drops punctuation and collapses whitespace.
func NormalizeName(s string) string {
	s = strings.ToLower(s)

	var result strings.Builder
	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
			prevSpace = false
		} else if unicode.IsSpace(r) {
			if !prevSpace {
				result.WriteRune(' ')
				prevSpace = true
			}
		}
	}

	return strings.TrimSpace(result.String())
}

// DigitsOnly keeps only digit characters
func DigitsOnly(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// FirstWords returns up to n lowercased whitespace-separated words of s.
func FirstWords(s string, n int) []string {
	words := strings.Fields(strings.ToLower(s))
	if len(words) > n {
		words = words[:n]
	}
	return words
}

// SplitName splits a full name on the first run of whitespace. The last name is
// everything after the first word. ok is false for single-word names.
func SplitName(full string) (first, last string, ok bool) {
	parts := strings.Fields(full)
	if len(parts) < 2 {
		return "", "", false
	}
	return parts[0], strings.Join(parts[1:], " "), true
}
