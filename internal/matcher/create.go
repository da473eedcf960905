package matcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/caselink/internal/casestore"
	"github.com/fyrsmithlabs/caselink/internal/extraction"
	"github.com/fyrsmithlabs/caselink/internal/mail"
)

// CreateCaseFromEmail creates a case for an email no existing case
// matched, after a last round of duplicate checks over the whole
// thread's aggregated fields. When a duplicate is found the thread is
// attached to it instead and (nil, nil) is returned: nil means "merged
// into an existing case", not failure.
func (m *Matcher) CreateCaseFromEmail(ctx context.Context, seed mail.RawEmail, thread []mail.RawEmail) (*casestore.Case, error) {
	if len(thread) == 0 {
		thread = []mail.RawEmail{seed}
	}

	fields := extraction.ExtractFromConversation(thread)

	existing, err := m.findDuplicateCase(ctx, fields)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if _, err := m.store.AddMessages(ctx, existing.ID, thread); err != nil {
			return nil, fmt.Errorf("attach thread to duplicate %s: %w", existing.ID, err)
		}
		if err := m.markThreadProcessed(ctx, thread); err != nil {
			return nil, err
		}
		m.logger.Info("duplicate suppressed",
			zap.String("case_id", existing.ID),
			zap.String("seed_email", seed.EntryID),
		)
		return nil, nil
	}

	now := time.Now()
	received, err := mail.ParseReceivedAt(seed.ReceivedAt)
	if err != nil {
		received = now
	}

	c := &casestore.Case{
		ID:             casestore.NewCaseID(now),
		Customer:       fields.Customer,
		PolicyNumber:   fields.PolicyNumber,
		Carrier:        fields.Carrier,
		ValidityDate:   fields.ValidityDate,
		LineOfBusiness: fields.LineOfBusiness,
		Status:         initialStatus(fields),
		Timestamps: casestore.WorkflowTimestamps{
			MailReceived: &received,
			MailUploaded: &now,
			KIRecognized: &now,
		},
		CreatedAt: now,
	}
	if fields.Broker != nil {
		c.Broker = casestore.Broker{Name: fields.Broker.Name, Email: fields.Broker.Email}
	}
	for _, msg := range thread {
		if msg.EntryID != "" {
			c.MessageIDs = append(c.MessageIDs, msg.EntryID)
			c.Messages = append(c.Messages, msg)
		}
		if msg.ConversationID != "" && !c.HasConversation(msg.ConversationID) {
			c.ConversationIDs = append(c.ConversationIDs, msg.ConversationID)
		}
	}
	c.History = []casestore.HistoryEntry{{
		Timestamp: now,
		Status:    c.Status,
		Note:      "case created from email import",
	}}

	if err := m.store.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("persist new case: %w", err)
	}
	if err := m.markThreadProcessed(ctx, thread); err != nil {
		return nil, err
	}

	m.logger.Info("case created",
		zap.String("case_id", c.ID),
		zap.String("status", string(c.Status)),
		zap.Int("messages", len(c.Messages)),
	)
	return c, nil
}

// initialStatus is to-validate when both customer name and policy
// number were extracted with non-empty values, incomplete otherwise.
func initialStatus(fields extraction.EmailFields) casestore.Status {
	if fields.Customer != nil && fields.Customer.Value != "" &&
		fields.PolicyNumber != nil && fields.PolicyNumber.Value != "" {
		return casestore.StatusToValidate
	}
	return casestore.StatusIncomplete
}

// findDuplicateCase runs the three duplicate checks in priority order:
// policy number first, then customer+broker, then customer+carrier.
// The first hit short-circuits.
func (m *Matcher) findDuplicateCase(ctx context.Context, fields extraction.EmailFields) (*casestore.Case, error) {
	if fields.PolicyNumber != nil {
		c, err := m.store.FindByPolicyNumber(ctx, fields.PolicyNumber.Value)
		if err != nil {
			return nil, fmt.Errorf("duplicate check by policy number: %w", err)
		}
		if c != nil {
			return c, nil
		}
	}

	if fields.Customer == nil || fields.Customer.Value == "" {
		return nil, nil
	}
	folded := extraction.FoldText(fields.Customer.Value)

	// Umlaut folding means "Müller" and "Mueller" must collide, which a
	// substring lookup cannot guarantee; compare folded names over the
	// full collection instead.
	candidates, err := m.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("duplicate check by customer: %w", err)
	}

	if fields.Broker != nil && fields.Broker.Email != "" {
		for _, c := range candidates {
			if extraction.FoldText(c.CustomerName()) == folded &&
				strings.EqualFold(c.Broker.Email, fields.Broker.Email) {
				return c, nil
			}
		}
	}

	if fields.Carrier != nil && fields.Carrier.Value != "" {
		for _, c := range candidates {
			if extraction.FoldText(c.CustomerName()) == folded &&
				extraction.FoldText(c.CarrierName()) == extraction.FoldText(fields.Carrier.Value) {
				return c, nil
			}
		}
	}

	return nil, nil
}

func (m *Matcher) markThreadProcessed(ctx context.Context, thread []mail.RawEmail) error {
	ids := make([]string, 0, len(thread))
	for _, msg := range thread {
		if msg.EntryID != "" {
			ids = append(ids, msg.EntryID)
		}
	}
	if err := m.processed.MarkProcessed(ctx, ids...); err != nil {
		return fmt.Errorf("mark thread processed: %w", err)
	}
	return nil
}
