package extraction

import (
	"regexp"
	"strconv"
	"time"
)

// datePatterns is ordered: the labeled "effective as of" form first,
// then bare DD.MM.YYYY dates anywhere in the text.
var datePatterns = []struct {
	name    string
	re      *regexp.Regexp
	labeled bool
}{
	{
		name:    "effective_from",
		re:      regexp.MustCompile(`(?i)(?:gültig\s+ab|wirksam\s+(?:ab|zum)|vertragsbeginn|beginn|effective\s+(?:as\s+of|from))\s*:?\s*(\d{1,2})\.(\d{1,2})\.(\d{2,4})`),
		labeled: true,
	},
	{
		name:    "bare_date",
		re:      regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{2,4})\b`),
		labeled: false,
	},
}

// ExtractValidityDate scans text for a validity date and returns the
// highest-scoring plausible candidate, or nil. Two-digit years expand
// around a pivot (>50 becomes 19xx, otherwise 20xx); candidates outside
// day 1-31, month 1-12 or year 2000-2100 are rejected.
func ExtractValidityDate(text string) *FieldGuess[time.Time] {
	var best *FieldGuess[time.Time]
	for _, p := range datePatterns {
		for _, m := range p.re.FindAllStringSubmatchIndex(text, -1) {
			day, _ := strconv.Atoi(text[m[2]:m[3]])
			month, _ := strconv.Atoi(text[m[4]:m[5]])
			year, _ := strconv.Atoi(text[m[6]:m[7]])
			value, ok := normalizeDate(day, month, year)
			if !ok {
				continue
			}
			conf := patternConfidence(m[2], p.labeled)
			if best == nil || conf > best.Confidence {
				best = &FieldGuess[time.Time]{Value: value, Confidence: conf, Source: SourceAuto}
			}
		}
	}
	return best
}

// normalizeDate expands two-digit years and validates component ranges.
func normalizeDate(day, month, year int) (time.Time, bool) {
	if year < 100 {
		if year > 50 {
			year += 1900
		} else {
			year += 2000
		}
	}
	if day < 1 || day > 31 || month < 1 || month > 12 || year < 2000 || year > 2100 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}
