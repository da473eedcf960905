package extraction

import "regexp"

// lineOfBusinessTable maps categories to keyword patterns. This is an
// ordered list, not a map: the first matching category wins, and the
// order is part of the contract.
var lineOfBusinessTable = []struct {
	category string
	re       *regexp.Regexp
}{
	{"motor", lobRegexp(`kfz|pkw|kasko|autoversicherung|motor`)},
	{"life", lobRegexp(`lebensversicherung|leben|life`)},
	{"health", lobRegexp(`krankenversicherung|krankenzusatz|kranken|pkv|health`)},
	{"liability", lobRegexp(`haftpflicht|liability`)},
	{"household", lobRegexp(`hausrat|household`)},
	{"legal-protection", lobRegexp(`rechtsschutz|legal[\s-]+protection`)},
	{"accident", lobRegexp(`unfallversicherung|unfall|accident`)},
	{"disability", lobRegexp(`berufsunfähigkeit|erwerbsminderung|disability`)},
	{"buildings", lobRegexp(`wohngebäude|gebäudeversicherung|buildings`)},
	{"pension", lobRegexp(`altersvorsorge|rente|riester|rürup|pension`)},
}

func lobRegexp(words string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|\P{L})(?:` + words + `)(?:\P{L}|$)`)
}

// ExtractLineOfBusiness returns the first category whose keywords match,
// or false when none do. Categories carry no confidence score.
func ExtractLineOfBusiness(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	for _, entry := range lineOfBusinessTable {
		if entry.re.MatchString(text) {
			return entry.category, true
		}
	}
	return "", false
}
