package extraction

import (
	"regexp"
	"strings"
)

// signaturePatterns is the ordered broker-signature pattern list. Each
// pattern carries a fixed confidence; the first match wins.
var signaturePatterns = []struct {
	name       string
	re         *regexp.Regexp
	confidence float64
}{
	{
		name:       "closing_with_title",
		re:         regexp.MustCompile(`(?i)(?:mit\s+freundlichen\s+grüßen|freundliche\s+grüße|viele\s+grüße|best\s+regards|kind\s+regards)[,.]?[ \t]*\n+[ \t]*([\p{L}][\p{L}\-. ]{2,60})\n[ \t]*(?:versicherungsmakler(?:in)?|makler(?:in)?|insurance\s+broker|broker)`),
		confidence: 0.90,
	},
	{
		name:       "your_broker_label",
		re:         regexp.MustCompile(`(?:(?i:ihre?\s+makler(?:in)?)|(?i:your\s+broker))\s*:\s*([\p{Lu}][\p{L}\-.']*(?:\s[\p{Lu}][\p{L}\-.']*){0,3})`),
		confidence: 0.85,
	},
	{
		name:       "name_over_title",
		re:         regexp.MustCompile(`(?m)^[ \t]*([\p{L}][\p{L}\-. ]{2,60})\n[ \t]*(?i:versicherungsmakler(?:in)?|insurance\s+broker)[ \t]*$`),
		confidence: 0.80,
	},
}

// ExtractBrokerFromSignature scans a message body's signature block for
// the broker's name. Returns nil when no signature pattern matches; the
// Email field is left empty for the caller to fill from the sender.
func ExtractBrokerFromSignature(body string) *BrokerGuess {
	for _, p := range signaturePatterns {
		m := p.re.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		return &BrokerGuess{Name: name, Confidence: p.confidence, Source: SourceSignature}
	}
	return nil
}
