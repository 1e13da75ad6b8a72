/*
Package normalize canonicalizes street names into a comparable form.

A street name is folded to NFKC, lower-cased, stripped of commas, its abbreviations are
expanded to full words ("ул." -> "улица", "пр-т" -> "проспект") and the street-type word is
moved to the end, which is how Russian gazetteers usually spell streets:

	Street("ул. Ленина")     // "Ленина улица"
	Street("Советский пр-т") // "Советский проспект"

Street is a pure function. Normalizer wraps it with a bounded LRU memo cache that is safe for
concurrent use; the cache never changes results, only how often they are computed.
*/
package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// abbreviation maps one whole token to its full form.
type abbreviation struct {
	short string
	full  string
}

// abbreviations is ordered; the first entry whose short form equals the token wins.
var abbreviations = []abbreviation{
	{"ул.", "улица"},
	{"ул", "улица"},
	{"пер.", "переулок"},
	{"пер", "переулок"},
	{"пр-т", "проспект"},
	{"пр-кт", "проспект"},
	{"просп.", "проспект"},
	{"просп", "проспект"},
	{"пр.", "проспект"},
	{"б-р", "бульвар"},
	{"бул.", "бульвар"},
	{"бул", "бульвар"},
	{"ш.", "шоссе"},
	{"ш", "шоссе"},
}

// streetTypes is the closed set of type words that belong at the end of a street name.
var streetTypes = map[string]struct{}{
	"улица":    {},
	"переулок": {},
	"проспект": {},
	"бульвар":  {},
	"шоссе":    {},
}

// IsStreetType reports whether token is one of the full street-type words.
func IsStreetType(token string) bool {
	_, ok := streetTypes[token]
	return ok
}

// Street returns the canonical form of a street name, or "" for blank input.
func Street(name string) string {
	tokens := Tokens(name)
	if len(tokens) == 0 {
		return ""
	}
	tokens = moveTypeLast(tokens)
	return capitalizeFirst(strings.Join(tokens, " "))
}

// Key is the lower-cased form of Street, the string the index compares against.
func Key(name string) string {
	return strings.ToLower(Street(name))
}

// Tokens lower-cases name, expands abbreviations and splits it on whitespace.
// Street-type order is left untouched.
func Tokens(name string) []string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	name = strings.ToLower(norm.NFKC.String(name))
	name = strings.ReplaceAll(name, ",", " ")
	name = splitGluedAbbreviations(name)

	fields := strings.Fields(name)
	for i, f := range fields {
		fields[i] = expand(f)
	}
	return fields
}

// StripType removes every street-type word from an already normalized street.
func StripType(normalized string) string {
	fields := strings.Fields(normalized)
	kept := fields[:0]
	for _, f := range fields {
		if !IsStreetType(strings.ToLower(f)) {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}

// HasType reports whether a normalized street contains a street-type word.
func HasType(normalized string) bool {
	for _, f := range strings.Fields(normalized) {
		if IsStreetType(strings.ToLower(f)) {
			return true
		}
	}
	return false
}

func expand(token string) string {
	for _, a := range abbreviations {
		if token == a.short {
			return a.full
		}
	}
	return token
}

// moveTypeLast moves the first street-type token to the end unless the
// name already ends with one, which keeps Street idempotent.
func moveTypeLast(tokens []string) []string {
	if IsStreetType(tokens[len(tokens)-1]) {
		return tokens
	}
	for i, t := range tokens {
		if !IsStreetType(t) {
			continue
		}
		out := make([]string, 0, len(tokens))
		out = append(out, tokens[:i]...)
		out = append(out, tokens[i+1:]...)
		return append(out, t)
	}
	return tokens
}

// splitGluedAbbreviations turns "ул.ленина" into "ул. ленина".
func splitGluedAbbreviations(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	runes := []rune(s)
	for i, r := range runes {
		b.WriteRune(r)
		if r == '.' && i+1 < len(runes) && unicode.IsLetter(runes[i+1]) {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
