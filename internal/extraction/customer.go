package extraction

import "regexp"

// nameToken matches one capitalized name word, umlauts included.
const nameToken = `[\p{Lu}][\p{Ll}\-']+`

// namePatterns is the ordered customer-name pattern list. Unlike policy
// numbers, none of these earn the specificity bonus: a labeled "Kunde:"
// hit and a salutation hit score alike, position is the only modifier.
var namePatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{
		name: "customer_label",
		re:   regexp.MustCompile(`(?i:(?:kunden-?name|kundin|kunde|versicherungsnehmer(?:in)?|customer))\s*:\s*(` + nameToken + `(?:,\s*` + nameToken + `(?:\s+` + nameToken + `)*|\s+` + nameToken + `)?)`),
	},
	{
		name: "for_our_customer",
		re:   regexp.MustCompile(`(?i:für\s+unseren?\s+Kund(?:en|in)?)\s+(` + nameToken + `(?:\s+` + nameToken + `)*)`),
	},
	{
		name: "salutation",
		re:   regexp.MustCompile(`(?:(?i:sehr\s+geehrter?)\s+(?:Herrn?|Frau)|(?i:dear)\s+(?:Mr|Mrs|Ms)\.?)\s+(` + nameToken + `(?:\s+` + nameToken + `)*)`),
	},
	{
		name: "subject_reversed",
		re:   regexp.MustCompile(`(?i:(?:re|aw|wg|fwd?)\s*:\s*)(` + nameToken + `,\s*` + nameToken + `)`),
	},
}

// ExtractCustomerName scans text for a customer name, normalizes every
// hit to "Lastname, Firstname" form, discards results shorter than four
// characters, and returns the highest-scoring candidate, or nil.
func ExtractCustomerName(text string) *FieldGuess[string] {
	var best *FieldGuess[string]
	for _, p := range namePatterns {
		for _, m := range p.re.FindAllStringSubmatchIndex(text, -1) {
			if m[2] < 0 {
				continue
			}
			value := NormalizeCustomerName(text[m[2]:m[3]])
			if len([]rune(value)) < 4 {
				continue
			}
			conf := patternConfidence(m[2], false)
			if best == nil || conf > best.Confidence {
				best = &FieldGuess[string]{Value: value, Confidence: conf, Source: SourceAuto}
			}
		}
	}
	return best
}
