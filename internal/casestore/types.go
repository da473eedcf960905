package casestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/caselink/internal/extraction"
	"github.com/fyrsmithlabs/caselink/internal/mail"
)

// Common errors for case store operations.
var (
	ErrCaseNotFound = errors.New("case not found")
	ErrEmptyCaseID  = errors.New("case id cannot be empty")
)

// Status is the case workflow status.
type Status string

const (
	StatusIncomplete  Status = "incomplete"
	StatusToValidate  Status = "to-validate"
	StatusFollowUp    Status = "follow-up"
	StatusExportReady Status = "export-ready"
	StatusCompleted   Status = "completed"
	StatusRejected    Status = "rejected"
)

// statusOrder fixes the forward-only progression. Rejected sits at the
// end but is reachable from anywhere as a terminal escape.
var statusOrder = map[Status]int{
	StatusIncomplete:  0,
	StatusToValidate:  1,
	StatusFollowUp:    2,
	StatusExportReady: 3,
	StatusCompleted:   4,
	StatusRejected:    5,
}

// Rank returns the status position in the workflow ordering, or -1 for
// unknown statuses.
func (s Status) Rank() int {
	if r, ok := statusOrder[s]; ok {
		return r
	}
	return -1
}

// Terminal reports whether a status always overwrites the current one
// regardless of ordering.
func (s Status) Terminal() bool {
	return s == StatusExportReady || s == StatusRejected
}

// Valid reports whether s is a known workflow status.
func (s Status) Valid() bool {
	_, ok := statusOrder[s]
	return ok
}

// Broker identifies the submitting broker on a case. Email is
// authoritative; Name is best-effort and may be empty.
type Broker struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// WorkflowTimestamps tracks when a case passed each workflow station.
// Nil means the station has not been reached.
type WorkflowTimestamps struct {
	MailReceived *time.Time `json:"mailReceived,omitempty"`
	MailUploaded *time.Time `json:"mailUploaded,omitempty"`
	KIRecognized *time.Time `json:"kiRecognized,omitempty"`
	PVValidated  *time.Time `json:"pvValidated,omitempty"`
	Exported     *time.Time `json:"exported,omitempty"`
}

// HistoryEntry is one line in a case's append-only status history.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
	Note      string    `json:"note"`
}

// Case is one portfolio-transfer request tracked through the workflow.
type Case struct {
	ID string `json:"id"`

	Customer     *extraction.FieldGuess[string]    `json:"customer,omitempty"`
	PolicyNumber *extraction.FieldGuess[string]    `json:"policyNumber,omitempty"`
	Carrier      *extraction.FieldGuess[string]    `json:"carrier,omitempty"`
	ValidityDate *extraction.FieldGuess[time.Time] `json:"validityDate,omitempty"`

	Broker         Broker `json:"broker"`
	Status         Status `json:"status"`
	LineOfBusiness string `json:"lineOfBusiness,omitempty"`
	Notes          string `json:"notes,omitempty"`
	Flagged        bool   `json:"flagged"`

	// ConversationIDs and MessageIDs are sets kept as ordered slices.
	ConversationIDs []string        `json:"conversationIds,omitempty"`
	MessageIDs      []string        `json:"messageIds,omitempty"`
	Messages        []mail.RawEmail `json:"messages,omitempty"`

	Timestamps WorkflowTimestamps `json:"timestamps"`

	// History is append-only; merges and status changes add entries,
	// nothing removes them.
	History []HistoryEntry `json:"history,omitempty"`

	LinkedCaseIDs []string `json:"linkedCaseIds,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasConversation reports whether the case tracks the given thread id.
func (c *Case) HasConversation(conversationID string) bool {
	for _, id := range c.ConversationIDs {
		if id == conversationID {
			return true
		}
	}
	return false
}

// HasMessage reports whether the message id is already attached.
func (c *Case) HasMessage(messageID string) bool {
	for _, id := range c.MessageIDs {
		if id == messageID {
			return true
		}
	}
	return false
}

// CustomerName returns the extracted customer name or "".
func (c *Case) CustomerName() string {
	if c.Customer == nil {
		return ""
	}
	return c.Customer.Value
}

// PolicyNumberValue returns the extracted policy number or "".
func (c *Case) PolicyNumberValue() string {
	if c.PolicyNumber == nil {
		return ""
	}
	return c.PolicyNumber.Value
}

// CarrierName returns the extracted carrier name or "".
func (c *Case) CarrierName() string {
	if c.Carrier == nil {
		return ""
	}
	return c.Carrier.Value
}

// NewCaseID generates a case id with a time-based prefix and a random
// suffix. Uniqueness is best-effort, not cryptographic.
func NewCaseID(now time.Time) string {
	return fmt.Sprintf("case-%s-%s", now.UTC().Format("20060102150405"), uuid.NewString()[:8])
}

// Store is the keyed case collection the reconciliation core writes to.
// Implementations must stamp UpdatedAt on every content change and keep
// the status history append-only.
type Store interface {
	// Get returns the case with the given id, or ErrCaseNotFound.
	Get(ctx context.Context, id string) (*Case, error)

	// List returns all cases. Order is unspecified but stable per backend.
	List(ctx context.Context) ([]*Case, error)

	// Save upserts a case, stamping UpdatedAt (and CreatedAt when unset).
	Save(ctx context.Context, c *Case) error

	// Delete removes a case. Only duplicate merging calls this.
	Delete(ctx context.Context, id string) error

	// FindByConversationID returns the first case tracking the thread,
	// or nil when none does.
	FindByConversationID(ctx context.Context, conversationID string) (*Case, error)

	// FindByPolicyNumber matches on the normalized number (hyphens and
	// spaces stripped, uppercased). Returns nil when none matches.
	FindByPolicyNumber(ctx context.Context, policyNumber string) (*Case, error)

	// FindByCustomer returns every case whose customer name contains the
	// query, case-insensitively.
	FindByCustomer(ctx context.Context, name string) ([]*Case, error)

	// AddMessages attaches messages to a case, skipping ids already in
	// the case's message-id set, and appends a single history entry when
	// at least one message was new. Returns the number actually added.
	AddMessages(ctx context.Context, caseID string, messages []mail.RawEmail) (int, error)

	// SetStatus changes the case status and appends a history entry.
	SetStatus(ctx context.Context, caseID string, status Status, note string) error
}

// ProcessedSet tracks message ids that have already been reconciled.
// Append-only; it never shrinks.
type ProcessedSet interface {
	// MarkProcessed records the message ids as reconciled.
	MarkProcessed(ctx context.Context, messageIDs ...string) error

	// IsProcessed reports whether the message id was already reconciled.
	IsProcessed(ctx context.Context, messageID string) (bool, error)
}
