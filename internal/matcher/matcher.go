package matcher

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/caselink/internal/casestore"
	"github.com/fyrsmithlabs/caselink/internal/extraction"
	"github.com/fyrsmithlabs/caselink/internal/mail"
)

// Matcher reconciles incoming emails against the case store.
type Matcher struct {
	store     casestore.Store
	processed casestore.ProcessedSet
	cfg       Config
	logger    *zap.Logger
}

// New creates a matcher. The processed set may be the store itself
// (InMemoryStore and PostgresStore implement both) or a separate
// backend such as the Redis set.
func New(store casestore.Store, processed casestore.ProcessedSet, cfg Config, logger *zap.Logger) (*Matcher, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if processed == nil {
		return nil, fmt.Errorf("processed set cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{store: store, processed: processed, cfg: cfg, logger: logger}, nil
}

// FindMatches runs every strategy for one email against the given cases
// and unions the results. Only the highest-confidence match per case
// survives; the result is sorted by confidence descending with the case
// id as tie-break so runs are deterministic.
func (m *Matcher) FindMatches(email mail.RawEmail, cases []*casestore.Case) MatchResult {
	byCase := make(map[string]Match)
	add := func(match Match) {
		if current, ok := byCase[match.CaseID]; !ok || match.Confidence > current.Confidence {
			byCase[match.CaseID] = match
		}
	}

	m.matchConversation(email, cases, add)

	fields := extraction.ExtractFromEmail(email)
	m.matchPolicyNumber(fields, cases, add)
	m.matchBrokerEmail(email, cases, add)
	m.matchCustomer(fields, cases, add)
	m.matchSubject(email, cases, add)

	matches := make([]Match, 0, len(byCase))
	for _, match := range byCase {
		matches = append(matches, match)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		return matches[i].CaseID < matches[j].CaseID
	})

	result := MatchResult{Matches: matches}
	if len(matches) > 0 {
		result.BestMatch = &matches[0]
		result.AutoAssign = matches[0].Confidence >= m.cfg.AutoAssignThreshold
	}
	return result
}

// matchConversation links by thread id. At most one case can match: a
// thread lives on exactly one case, so the first hit wins.
func (m *Matcher) matchConversation(email mail.RawEmail, cases []*casestore.Case, add func(Match)) {
	if email.ConversationID == "" {
		return
	}
	for _, c := range cases {
		if c.HasConversation(email.ConversationID) {
			add(Match{
				CaseID:     c.ID,
				Confidence: confConversation,
				Reason:     ReasonConversation,
				Details:    fmt.Sprintf("thread %s already tracked", email.ConversationID),
			})
			return
		}
	}
}

// matchPolicyNumber compares the extracted number against every case,
// exactly on the normalized form and partially on shared digit runs.
func (m *Matcher) matchPolicyNumber(fields extraction.EmailFields, cases []*casestore.Case, add func(Match)) {
	if fields.PolicyNumber == nil {
		return
	}
	extracted := extraction.NormalizePolicyNumber(fields.PolicyNumber.Value)
	if extracted == "" {
		return
	}

	for _, c := range cases {
		caseNumber := extraction.NormalizePolicyNumber(c.PolicyNumberValue())
		if caseNumber == "" {
			continue
		}
		if caseNumber == extracted {
			add(Match{
				CaseID:     c.ID,
				Confidence: confPolicyExact,
				Reason:     ReasonPolicyExact,
				Details:    fmt.Sprintf("policy number %s", fields.PolicyNumber.Value),
			})
			continue
		}
		if m.partialPolicyMatch(extracted, caseNumber) {
			add(Match{
				CaseID:     c.ID,
				Confidence: confPolicyPartial,
				Reason:     ReasonPolicyPartial,
				Details:    fmt.Sprintf("shared digit run with %s", c.PolicyNumberValue()),
			})
		}
	}
}

// partialPolicyMatch reports whether any MinPartialDigits consecutive
// digits of the extracted number appear in the case's digit sequence.
// Both numbers need at least MinPartialDigits digits in total.
func (m *Matcher) partialPolicyMatch(extracted, caseNumber string) bool {
	run := m.cfg.MinPartialDigits
	extractedDigits := digitsOf(extracted)
	caseDigits := digitsOf(caseNumber)
	if len(extractedDigits) < run || len(caseDigits) < run {
		return false
	}
	for i := 0; i+run <= len(extractedDigits); i++ {
		if strings.Contains(caseDigits, extractedDigits[i:i+run]) {
			return true
		}
	}
	return false
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// matchBrokerEmail links by the case's broker address: a mail from the
// broker is a reply, a mail to the broker is an outbound query and
// counts damped.
func (m *Matcher) matchBrokerEmail(email mail.RawEmail, cases []*casestore.Case, add func(Match)) {
	sender := strings.ToLower(strings.TrimSpace(email.From))
	recipient := strings.ToLower(strings.TrimSpace(email.To))

	for _, c := range cases {
		broker := strings.ToLower(strings.TrimSpace(c.Broker.Email))
		if broker == "" {
			continue
		}
		if sender != "" && sender == broker {
			add(Match{
				CaseID:     c.ID,
				Confidence: confBrokerSender,
				Reason:     ReasonBrokerSender,
				Details:    fmt.Sprintf("reply from broker %s", broker),
			})
			continue
		}
		if recipient != "" && recipient == broker {
			add(Match{
				CaseID:     c.ID,
				Confidence: confBrokerSender * m.cfg.RecipientDamping,
				Reason:     ReasonBrokerRecipient,
				Details:    fmt.Sprintf("query to broker %s", broker),
			})
		}
	}
}

// matchCustomer fuzzy-matches the customer name; an exact carrier hit
// upgrades the confidence, a missing or different carrier leaves the
// weaker customer-only evidence.
func (m *Matcher) matchCustomer(fields extraction.EmailFields, cases []*casestore.Case, add func(Match)) {
	if fields.Customer == nil {
		return
	}
	emailWords := extraction.SignificantWords(fields.Customer.Value)
	if len(emailWords) == 0 {
		return
	}

	for _, c := range cases {
		caseName := c.CustomerName()
		if caseName == "" {
			continue
		}
		if sharedWords(emailWords, extraction.SignificantWords(caseName)) < 2 {
			continue
		}

		carrierMatches := fields.Carrier != nil && c.CarrierName() != "" &&
			extraction.FoldText(fields.Carrier.Value) == extraction.FoldText(c.CarrierName())
		if carrierMatches {
			add(Match{
				CaseID:     c.ID,
				Confidence: confCustomerCarrier,
				Reason:     ReasonCustomerCarrier,
				Details:    fmt.Sprintf("customer %s at %s", caseName, c.CarrierName()),
			})
		} else {
			// Customer-only evidence never clears the auto-assign
			// threshold on its own.
			add(Match{
				CaseID:     c.ID,
				Confidence: confCustomerOnly,
				Reason:     ReasonCustomerOnly,
				Details:    fmt.Sprintf("customer %s, carrier unconfirmed", caseName),
			})
		}
	}
}

// matchSubject compares normalized subject words against every message
// already attached to a case.
func (m *Matcher) matchSubject(email mail.RawEmail, cases []*casestore.Case, add func(Match)) {
	emailWords := subjectWords(email.Subject)
	if len(emailWords) == 0 {
		return
	}

	for _, c := range cases {
		for _, msg := range c.Messages {
			similarity := jaccard(emailWords, subjectWords(msg.Subject))
			if similarity > m.cfg.SubjectSimilarityThreshold {
				add(Match{
					CaseID:     c.ID,
					Confidence: confSubjectBase * similarity,
					Reason:     ReasonSubject,
					Details:    fmt.Sprintf("subject similarity %.2f with %s", similarity, msg.EntryID),
				})
			}
		}
	}
}

// replyPrefix strips one leading Re:/Fwd:/Aw:/Wg: marker.
var replyPrefixes = []string{"re:", "fwd:", "fw:", "aw:", "wg:"}

// subjectWords normalizes a subject line for similarity comparison:
// reply prefixes stripped, umlauts folded, words shorter than three
// letters dropped.
func subjectWords(subject string) []string {
	s := strings.TrimSpace(subject)
	for stripped := true; stripped; {
		stripped = false
		lower := strings.ToLower(s)
		for _, prefix := range replyPrefixes {
			if strings.HasPrefix(lower, prefix) {
				s = strings.TrimSpace(s[len(prefix):])
				stripped = true
				break
			}
		}
	}
	return extraction.SignificantWords(s)
}

// sharedWords counts words present in both lists.
func sharedWords(a, b []string) int {
	set := make(map[string]struct{}, len(a))
	for _, w := range a {
		set[w] = struct{}{}
	}
	n := 0
	for _, w := range b {
		if _, ok := set[w]; ok {
			n++
			delete(set, w)
		}
	}
	return n
}

// jaccard is set intersection over union of two word lists.
func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	union := make(map[string]struct{}, len(a)+len(b))
	for _, w := range a {
		union[w] = struct{}{}
	}
	shared := 0
	for _, w := range dedupe(b) {
		if _, ok := union[w]; ok {
			shared++
		} else {
			union[w] = struct{}{}
		}
	}
	return float64(shared) / float64(len(union))
}

func dedupe(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := words[:0:0]
	for _, w := range words {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
