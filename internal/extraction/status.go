package extraction

import "regexp"

// statusClass is one keyword class in the ordered status list. The three
// classes are disjoint and tested in priority order: a text mentioning
// both a confirmation and an open query reads as confirmed.
type statusClass struct {
	signal     StatusSignal
	confidence float64
	re         *regexp.Regexp
}

// Word boundaries are spelled out as \P{L} because Go's \b is
// ASCII-only and fails in front of umlaut-initial words like
// "übertragen".
var statusClasses = []statusClass{
	{
		signal:     SignalConfirmed,
		confidence: 0.8,
		re:         regexp.MustCompile(`(?i)(?:^|\P{L})(?:bestätigt|übertragen|übernommen|angenommen|zugesagt|confirmed|transferred|accepted)(?:\P{L}|$)`),
	},
	{
		signal:     SignalRejected,
		confidence: 0.8,
		re:         regexp.MustCompile(`(?i)(?:^|\P{L})(?:abgelehnt|widersprochen|widerspruch|verweigert|storniert|rejected|objected|declined)(?:\P{L}|$)`),
	},
	{
		signal:     SignalInReview,
		confidence: 0.7,
		re:         regexp.MustCompile(`(?i)(?:^|\P{L})(?:in\s+prüfung|in\s+bearbeitung|rückfrage|unterlagen\s+fehlen|fehlende\s+unterlagen|in\s+review|missing\s+documents|pending)(?:\P{L}|$)`),
	},
}

// ExtractStatus classifies text into a status signal. The first class
// whose keywords match wins; nil when no class matches.
func ExtractStatus(text string) *FieldGuess[StatusSignal] {
	for _, c := range statusClasses {
		if c.re.MatchString(text) {
			return &FieldGuess[StatusSignal]{Value: c.signal, Confidence: c.confidence, Source: SourceAuto}
		}
	}
	return nil
}
