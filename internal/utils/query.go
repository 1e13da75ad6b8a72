package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// IsValidQuery checks if an address query is worth sending to the engine.
// Rejects blank input, input longer than maxLen runes, input without a single
// letter (a street needs a name) and repetitive junk like "ааааа".
func IsValidQuery(s string, maxLen int) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if !WithinLength(s, maxLen) {
		return false
	}
	if !ContainsLetters(s) {
		return false
	}
	return !IsRepetitive(s)
}

// WithinLength reports whether s is at most maxLen runes; zero maxLen disables the check.
func WithinLength(s string, maxLen int) bool {
	return maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen
}

// ContainsLetters checks if a string has at least one letter in any script
func ContainsLetters(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// IsRepetitive checks if a string is one rune repeated 3+ times
func IsRepetitive(s string) bool {
	if utf8.RuneCountInString(s) <= 2 {
		return false
	}
	first, _ := utf8.DecodeRuneInString(s)
	for _, r := range s {
		if unicode.ToLower(r) != unicode.ToLower(first) {
			return false
		}
	}
	return true
}
