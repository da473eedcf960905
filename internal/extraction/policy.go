package extraction

import "regexp"

// policyPattern is one entry in the ordered policy-number pattern list.
// Labeled patterns anchor on an explicit reference label and earn the
// specificity bonus in scoring.
type policyPattern struct {
	name    string
	re      *regexp.Regexp
	labeled bool
}

// policyPatterns is ordered most-specific first. The order is a contract:
// tests pin it, and new patterns belong at the position matching their
// specificity.
var policyPatterns = []policyPattern{
	{
		name:    "labeled_reference",
		re:      regexp.MustCompile(`(?i)(?:vs-?nr|vsnr|versicherungsschein(?:-?nr|nummer)?|policen?(?:-?nr|nummer)?|vertrag(?:s-?nr|snummer)?|policy(?:\s+(?:no|number))?)[.:\s#]*([A-Za-z0-9][A-Za-z0-9\-/]{4,})`),
		labeled: true,
	},
	{
		name:    "carrier_code",
		re:      regexp.MustCompile(`\b([A-Z]{2,4}-\d{5,12})\b`),
		labeled: true,
	},
	{
		name:    "letter_digit_code",
		re:      regexp.MustCompile(`\b([A-Z]{1,3}\d{6,14})\b`),
		labeled: false,
	},
	{
		name:    "digit_groups",
		re:      regexp.MustCompile(`\b(\d{3,}(?:[-/ ]\d{2,})+)\b`),
		labeled: false,
	},
}

// ExtractPolicyNumber scans text for a policy number. All patterns are
// applied, every hit is normalized, candidates with fewer than six
// alphanumeric characters are discarded, and the single highest-scoring
// candidate wins. Returns nil when nothing usable matches.
func ExtractPolicyNumber(text string) *FieldGuess[string] {
	var best *FieldGuess[string]
	for _, p := range policyPatterns {
		for _, m := range p.re.FindAllStringSubmatchIndex(text, -1) {
			// m[2]:m[3] is the first capture group.
			if m[2] < 0 {
				continue
			}
			value := normalizePolicyValue(text[m[2]:m[3]])
			if alnumLen(value) < 6 {
				continue
			}
			conf := patternConfidence(m[2], p.labeled)
			if best == nil || conf > best.Confidence {
				best = &FieldGuess[string]{Value: value, Confidence: conf, Source: SourceAuto}
			}
		}
	}
	return best
}
