package extraction

import (
	"math"
	"strings"
	"unicode"
)

// patternConfidence is the shared scorer for pattern-based extractors.
// Base 0.7, +0.1 for matches starting within the first 200 characters,
// +0.1 for patterns that anchor on an explicit label.
func patternConfidence(start int, labeled bool) float64 {
	conf := 0.7
	if start < 200 {
		conf += 0.1
	}
	if labeled {
		conf += 0.1
	}
	return math.Min(conf, MaxAutoConfidence)
}

// boostConfidence applies the subject-corroboration bonus.
func boostConfidence(conf float64) float64 {
	return math.Min(conf+0.1, MaxAutoConfidence)
}

// NormalizePolicyNumber reduces a policy number to its lookup key form:
// uppercased with hyphens, spaces and slashes stripped. Idempotent.
func NormalizePolicyNumber(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToUpper(s) {
		switch r {
		case '-', ' ', '/':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizePolicyValue is the display form produced by extraction:
// uppercased, separator runs joined with single hyphens.
func normalizePolicyValue(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '/' || r == '.'
	})
	return strings.Join(parts, "-")
}

// alnumLen counts letters and digits, ignoring separators.
func alnumLen(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

// umlautFolder maps German umlauts and sharp s onto their ASCII digraphs
// so that "Müller" and "Mueller" compare equal.
var umlautFolder = strings.NewReplacer(
	"ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss",
	"Ä", "ae", "Ö", "oe", "Ü", "ue",
)

// FoldText lowercases a string and folds German umlauts, producing the
// form used for fuzzy name and carrier comparisons.
func FoldText(s string) string {
	return strings.ToLower(umlautFolder.Replace(strings.TrimSpace(s)))
}

// SignificantWords splits folded text into the words that count for
// fuzzy name matching: letters only, at least three characters.
func SignificantWords(s string) []string {
	folded := FoldText(s)
	raw := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	words := make([]string, 0, len(raw))
	for _, w := range raw {
		if len([]rune(w)) >= 3 {
			words = append(words, w)
		}
	}
	return words
}

// NormalizeCustomerName canonicalizes a name to "Lastname, Firstname".
// If a comma is already present both sides are capitalized as-is;
// otherwise the final whitespace-delimited token becomes the last name.
// Single-token names are capitalized without reordering.
func NormalizeCustomerName(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if i := strings.Index(s, ","); i >= 0 {
		last := capitalizeWords(s[:i])
		first := capitalizeWords(s[i+1:])
		if first == "" {
			return last
		}
		return last + ", " + first
	}
	fields := strings.Fields(s)
	if len(fields) == 1 {
		return capitalizeWords(fields[0])
	}
	last := capitalizeWords(fields[len(fields)-1])
	first := capitalizeWords(strings.Join(fields[:len(fields)-1], " "))
	return last + ", " + first
}

// capitalizeWords uppercases the first rune of every whitespace-delimited
// word and lowercases the rest.
func capitalizeWords(s string) string {
	fields := strings.Fields(s)
	for i, w := range fields {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		fields[i] = string(runes)
	}
	return strings.Join(fields, " ")
}
