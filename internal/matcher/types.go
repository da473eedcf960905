package matcher

import (
	"github.com/fyrsmithlabs/caselink/internal/mail"
)

// Reason tags name the strategy that produced a match.
const (
	ReasonConversation    = "conversation-id"
	ReasonPolicyExact     = "policy-exact"
	ReasonPolicyPartial   = "policy-partial"
	ReasonBrokerSender    = "broker-sender"
	ReasonBrokerRecipient = "broker-recipient"
	ReasonCustomerCarrier = "customer-carrier"
	ReasonCustomerOnly    = "customer-only"
	ReasonSubject         = "subject-similarity"
)

// Match is one candidate linkage between an email and a case.
type Match struct {
	CaseID     string  `json:"caseId"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	Details    string  `json:"details"`
}

// MatchResult is the outcome of one FindMatches run.
type MatchResult struct {
	// Matches holds at most one match per case, sorted by confidence
	// descending.
	Matches []Match `json:"matches"`

	// BestMatch is the top entry, nil when Matches is empty.
	BestMatch *Match `json:"bestMatch,omitempty"`

	// AutoAssign is true when BestMatch clears the auto-assign threshold.
	AutoAssign bool `json:"autoAssign"`
}

// MatchedEmail pairs an email with the match it will be assigned to.
type MatchedEmail struct {
	Email mail.RawEmail `json:"email"`
	Match Match         `json:"match"`
}

// SuggestedEmail pairs an email with candidate matches that need human
// confirmation.
type SuggestedEmail struct {
	Email   mail.RawEmail `json:"email"`
	Matches []Match       `json:"matches"`
}

// BatchResult is the three-way partition of one import batch.
type BatchResult struct {
	Matched   []MatchedEmail   `json:"matched"`
	Suggested []SuggestedEmail `json:"suggested"`
	Unmatched []mail.RawEmail  `json:"unmatched"`
}

// Assignment records one successful auto-assignment.
type Assignment struct {
	EmailID string `json:"emailId"`
	CaseID  string `json:"caseId"`
}

// AssignFailure records one failed auto-assignment. Failures never
// abort the batch.
type AssignFailure struct {
	EmailID string `json:"emailId"`
	CaseID  string `json:"caseId"`
	Error   string `json:"error"`
}

// AssignResult is the outcome of one AutoAssign run.
type AssignResult struct {
	Assigned []Assignment    `json:"assigned"`
	Failed   []AssignFailure `json:"failed"`
}

// MergeReport summarizes one duplicate-merge run.
type MergeReport struct {
	GroupsFound int `json:"groupsFound"`
	MergedInto  int `json:"mergedInto"`
	Deleted     int `json:"deleted"`
}
