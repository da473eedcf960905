package extraction

import "time"

// MaxAutoConfidence caps every automatically inferred guess. Only
// manually entered values may reach 1.0, and those bypass FieldGuess
// entirely.
const MaxAutoConfidence = 0.95

// Source tags where an extracted value came from.
type Source string

const (
	// SourceAuto marks values inferred from free text by pattern matching.
	SourceAuto Source = "auto"

	// SourceSignature marks values read from an email signature block.
	SourceSignature Source = "signature"

	// SourceEmailDomain marks values resolved from the sender's mail domain.
	SourceEmailDomain Source = "email-domain"

	// SourceSender marks fallback values taken from the sender address itself.
	SourceSender Source = "sender"

	// SourceManual marks user-entered values.
	SourceManual Source = "manual"
)

// FieldGuess is a confidence-scored, provenance-tagged extracted value.
//
// Confidence is only comparable within one extraction kind: higher is
// always preferred when ranking candidates for the same field, but values
// from different extractors are not calibrated against each other.
type FieldGuess[T any] struct {
	Value      T       `json:"value"`
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source"`
}

// StatusSignal is the status vocabulary extracted from email text. The
// matcher maps signals onto the richer case workflow statuses.
type StatusSignal string

const (
	SignalNew       StatusSignal = "new"
	SignalRequested StatusSignal = "requested"
	SignalInReview  StatusSignal = "in-review"
	SignalConfirmed StatusSignal = "confirmed"
	SignalRejected  StatusSignal = "rejected"
	SignalDone      StatusSignal = "done"
)

// BrokerGuess is an extracted broker identity. Email is authoritative
// when present; Name is best-effort and may be empty for the sender
// fallback.
type BrokerGuess struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source"`
}

// EmailFields is the aggregate extraction result for one email.
// Nil pointers mean no evidence was found for that field.
//
// LineOfBusiness carries no confidence (it comes from a fixed keyword
// dictionary); the empty string means no category matched. Categories
// themselves are never empty.
type EmailFields struct {
	PolicyNumber   *FieldGuess[string]
	Customer       *FieldGuess[string]
	ValidityDate   *FieldGuess[time.Time]
	Status         *FieldGuess[StatusSignal]
	Carrier        *FieldGuess[string]
	Broker         *BrokerGuess
	LineOfBusiness string
}

// SubjectFields is the reduced extraction result for a subject line,
// used to corroborate body-derived evidence.
type SubjectFields struct {
	PolicyNumber   *FieldGuess[string]
	Customer       *FieldGuess[string]
	LineOfBusiness string
}
