package extraction

import "strings"

// carrierDomains maps known mail-server domains to carrier display
// names. Ordered list so suffix matching has a deterministic winner.
var carrierDomains = []struct {
	domain  string
	carrier string
}{
	{"allianz.de", "Allianz"},
	{"ergo.de", "ERGO"},
	{"axa.de", "AXA"},
	{"huk-coburg.de", "HUK-COBURG"},
	{"huk24.de", "HUK24"},
	{"ruv.de", "R+V"},
	{"generali.de", "Generali"},
	{"zurich.de", "Zurich"},
	{"debeka.de", "Debeka"},
	{"gothaer.de", "Gothaer"},
	{"signal-iduna.de", "Signal Iduna"},
	{"vhv.de", "VHV"},
	{"lvm.de", "LVM"},
	{"provinzial.de", "Provinzial"},
	{"wwk.de", "WWK"},
}

// ExtractCarrierFromDomain resolves a carrier from the sender's mail
// domain. Exact domain matches score 1.0 (the table is authoritative),
// subdomain suffix matches 0.9. Returns nil for missing or unknown
// addresses.
func ExtractCarrierFromDomain(sender string) *FieldGuess[string] {
	addr := strings.ToLower(strings.TrimSpace(sender))
	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return nil
	}
	domain := addr[at+1:]

	for _, entry := range carrierDomains {
		if domain == entry.domain {
			return &FieldGuess[string]{Value: entry.carrier, Confidence: 1.0, Source: SourceEmailDomain}
		}
	}
	for _, entry := range carrierDomains {
		if strings.HasSuffix(domain, "."+entry.domain) {
			return &FieldGuess[string]{Value: entry.carrier, Confidence: 0.9, Source: SourceEmailDomain}
		}
	}
	return nil
}
