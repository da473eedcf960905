package matcher

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/caselink/internal/casestore"
	"github.com/fyrsmithlabs/caselink/internal/mail"
	"github.com/fyrsmithlabs/caselink/internal/metrics"
)

// BatchMatch partitions a batch of emails into auto-assignable,
// suggested and unmatched. Emails already in the processed set are
// skipped entirely; the rest are handled strictly in input order.
func (m *Matcher) BatchMatch(ctx context.Context, emails []mail.RawEmail, cases []*casestore.Case) (*BatchResult, error) {
	result := &BatchResult{}

	for _, email := range emails {
		done, err := m.processed.IsProcessed(ctx, email.EntryID)
		if err != nil {
			return nil, fmt.Errorf("check processed %s: %w", email.EntryID, err)
		}
		if done {
			continue
		}

		matches := m.FindMatches(email, cases)
		if matches.BestMatch != nil {
			metrics.Get().MatchConfidence.Observe(matches.BestMatch.Confidence)
		}
		switch {
		case matches.AutoAssign:
			result.Matched = append(result.Matched, MatchedEmail{Email: email, Match: *matches.BestMatch})
		case len(matches.Matches) > 0:
			result.Suggested = append(result.Suggested, SuggestedEmail{Email: email, Matches: matches.Matches})
		default:
			result.Unmatched = append(result.Unmatched, email)
		}
	}

	m.logger.Debug("batch matched",
		zap.Int("matched", len(result.Matched)),
		zap.Int("suggested", len(result.Suggested)),
		zap.Int("unmatched", len(result.Unmatched)),
	)
	return result, nil
}

// AutoAssign commits matched emails to their cases: attach the message,
// mark it processed, infer a status transition. An error on one item is
// recorded and the batch continues; this is best-effort, not a
// transaction.
func (m *Matcher) AutoAssign(ctx context.Context, items []MatchedEmail) *AssignResult {
	result := &AssignResult{}

	for _, item := range items {
		if err := m.assignOne(ctx, item); err != nil {
			m.logger.Warn("auto-assign failed",
				zap.String("email_id", item.Email.EntryID),
				zap.String("case_id", item.Match.CaseID),
				zap.Error(err),
			)
			result.Failed = append(result.Failed, AssignFailure{
				EmailID: item.Email.EntryID,
				CaseID:  item.Match.CaseID,
				Error:   err.Error(),
			})
			continue
		}
		result.Assigned = append(result.Assigned, Assignment{
			EmailID: item.Email.EntryID,
			CaseID:  item.Match.CaseID,
		})
	}
	return result
}

func (m *Matcher) assignOne(ctx context.Context, item MatchedEmail) error {
	if _, err := m.store.AddMessages(ctx, item.Match.CaseID, []mail.RawEmail{item.Email}); err != nil {
		return fmt.Errorf("attach message: %w", err)
	}
	if err := m.processed.MarkProcessed(ctx, item.Email.EntryID); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	if err := m.UpdateStatusFromEmail(ctx, item.Match.CaseID, item.Email); err != nil {
		return fmt.Errorf("infer status: %w", err)
	}
	return nil
}
