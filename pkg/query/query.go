// Package query splits a raw address query into a street fragment and a house fragment.
//
// The split is a heuristic: the house number is the trailing token that starts with a
// digit, optionally followed by a corpus ("к") or structure ("с") qualifier. Numbers that
// appear earlier in the string stay part of the street.
package query

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultLocality is prefixed to queries that do not name a locality.
const DefaultLocality = "Москва"

// ErrInvalidQuery means no usable street fragment could be extracted.
var ErrInvalidQuery = errors.New("invalid query")

// Query is a parsed search request.
type Query struct {
	Raw      string
	Locality string
	Street   string
	House    string
}

// HasHouse reports whether a house fragment was found.
func (q Query) HasHouse() bool {
	return q.House != ""
}

var (
	// houseRe matches "4", "4а", "12/3", "10к2", "10 к 2", "7 с1", "5-7" at the end of the input.
	houseRe = regexp.MustCompile(`(?i)(?:^|[\s,])(\d+[\p{Cyrillic}\d/\-]*(?:\s*[кс]\.?\s*\d+[\p{Cyrillic}]?)*)\s*$`)
	// houseMarkerRe strips a dangling "д", "д." or "дом" left before the number.
	houseMarkerRe = regexp.MustCompile(`(?i)(?:^|[\s,])(?:д\.?|дом)\s*$`)
	spaceRe       = regexp.MustCompile(`\s+`)
)

// Parse splits raw using defaultLocality; an empty locality uses DefaultLocality.
// It fails with ErrInvalidQuery when nothing is left for the street.
func Parse(raw, defaultLocality string) (Query, error) {
	if defaultLocality == "" {
		defaultLocality = DefaultLocality
	}
	q := Query{Raw: raw, Locality: defaultLocality}

	text := strings.TrimSpace(raw)
	if !hasLocalityPrefix(text, defaultLocality) {
		text = defaultLocality + ", " + text
	}
	text = strings.TrimSpace(text[len(defaultLocality):])

	if m := houseRe.FindStringSubmatchIndex(text); m != nil {
		q.House = compactHouse(text[m[2]:m[3]])
		text = text[:m[2]]
		text = houseMarkerRe.ReplaceAllString(text, "")
	}

	q.Street = streetFragment(text)
	if q.Street == "" {
		return q, fmt.Errorf("%w: no street in %q", ErrInvalidQuery, raw)
	}
	return q, nil
}

// hasLocalityPrefix compares case-insensitively and requires a word boundary after the locality.
func hasLocalityPrefix(text, locality string) bool {
	if len(text) < len(locality) || !strings.EqualFold(text[:len(locality)], locality) {
		return false
	}
	if len(text) == len(locality) {
		return true
	}
	next, _ := utf8.DecodeRuneInString(text[len(locality):])
	return !unicode.IsLetter(next) && !unicode.IsDigit(next)
}

func compactHouse(h string) string {
	h = strings.ToLower(h)
	h = strings.ReplaceAll(h, ".", "")
	return spaceRe.ReplaceAllString(h, "")
}

func streetFragment(s string) string {
	s = strings.ReplaceAll(s, ",", " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.ToLower(strings.TrimSpace(s))
}
