package extraction

import (
	"strings"

	"github.com/fyrsmithlabs/caselink/internal/mail"
)

// ExtractFromEmail runs every extractor against one email. Text-based
// extractors scan subject and body combined; the broker falls back to a
// bare sender-address guess when no signature matches; policy number and
// customer name get the subject-corroboration bonus when the subject
// line independently yields the same value.
func ExtractFromEmail(email mail.RawEmail) EmailFields {
	text := email.Text()

	fields := EmailFields{
		PolicyNumber: ExtractPolicyNumber(text),
		Customer:     ExtractCustomerName(text),
		ValidityDate: ExtractValidityDate(text),
		Status:       ExtractStatus(text),
		Carrier:      ExtractCarrierFromDomain(email.From),
		Broker:       ExtractBrokerFromSignature(email.Body),
	}
	if lob, ok := ExtractLineOfBusiness(text); ok {
		fields.LineOfBusiness = lob
	}

	sender := strings.TrimSpace(strings.ToLower(email.From))
	if fields.Broker != nil {
		// Signature gives the name; the address still comes from the
		// sender, which is authoritative for broker identity.
		fields.Broker.Email = sender
	} else if sender != "" {
		fields.Broker = &BrokerGuess{Email: sender, Confidence: 0.5, Source: SourceSender}
	}

	// Subject-line data is typically higher-precision, so evidence the
	// subject corroborates gets a bonus.
	subject := ExtractFromSubject(email.Subject)
	if subject.PolicyNumber != nil && fields.PolicyNumber != nil &&
		NormalizePolicyNumber(subject.PolicyNumber.Value) == NormalizePolicyNumber(fields.PolicyNumber.Value) {
		fields.PolicyNumber.Confidence = boostConfidence(fields.PolicyNumber.Confidence)
	}
	if subject.Customer != nil && fields.Customer != nil &&
		FoldText(subject.Customer.Value) == FoldText(fields.Customer.Value) {
		fields.Customer.Confidence = boostConfidence(fields.Customer.Confidence)
	}

	return fields
}

// ExtractFromSubject is the reduced extraction run against a subject
// line only: policy number, customer name and line of business.
func ExtractFromSubject(subject string) SubjectFields {
	fields := SubjectFields{
		PolicyNumber: ExtractPolicyNumber(subject),
		Customer:     ExtractCustomerName(subject),
	}
	if lob, ok := ExtractLineOfBusiness(subject); ok {
		fields.LineOfBusiness = lob
	}
	return fields
}

// ExtractFromConversation aggregates extraction over a whole thread.
// For each scored field the highest-confidence non-nil result across
// messages wins; the confidence-less line of business keeps the first
// non-empty result in input order.
func ExtractFromConversation(messages []mail.RawEmail) EmailFields {
	var agg EmailFields
	for _, msg := range messages {
		fields := ExtractFromEmail(msg)
		agg.PolicyNumber = betterGuess(agg.PolicyNumber, fields.PolicyNumber)
		agg.Customer = betterGuess(agg.Customer, fields.Customer)
		agg.ValidityDate = betterGuess(agg.ValidityDate, fields.ValidityDate)
		agg.Status = betterGuess(agg.Status, fields.Status)
		agg.Carrier = betterGuess(agg.Carrier, fields.Carrier)
		if fields.Broker != nil && (agg.Broker == nil || fields.Broker.Confidence > agg.Broker.Confidence) {
			agg.Broker = fields.Broker
		}
		if agg.LineOfBusiness == "" {
			agg.LineOfBusiness = fields.LineOfBusiness
		}
	}
	return agg
}

// betterGuess keeps the higher-confidence of two guesses, preferring the
// earlier one on ties.
func betterGuess[T any](current, candidate *FieldGuess[T]) *FieldGuess[T] {
	if candidate == nil {
		return current
	}
	if current == nil || candidate.Confidence > current.Confidence {
		return candidate
	}
	return current
}
