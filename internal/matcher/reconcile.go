package matcher

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/caselink/internal/mail"
	"github.com/fyrsmithlabs/caselink/internal/metrics"
)

// ReconcileReport summarizes one full import run.
type ReconcileReport struct {
	Assigned     []Assignment     `json:"assigned"`
	Failed       []AssignFailure  `json:"failed"`
	Suggested    []SuggestedEmail `json:"suggested"`
	CreatedCases []string         `json:"createdCases"`

	// MergedThreads counts unmatched threads that creation-time
	// duplicate checks folded into existing cases.
	MergedThreads int `json:"mergedThreads"`

	// Skipped counts emails the processed set filtered out.
	Skipped int `json:"skipped"`
}

// Reconcile runs the full pipeline over a parsed export: batch match,
// auto-assign, and new-case creation (one case per unmatched thread,
// with duplicate suppression). Suggested emails are returned untouched
// for human triage.
func (m *Matcher) Reconcile(ctx context.Context, export *mail.Export) (*ReconcileReport, error) {
	cases, err := m.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cases: %w", err)
	}

	batch, err := m.BatchMatch(ctx, export.Emails, cases)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{
		Suggested: batch.Suggested,
		Skipped:   len(export.Emails) - len(batch.Matched) - len(batch.Suggested) - len(batch.Unmatched),
	}

	assign := m.AutoAssign(ctx, batch.Matched)
	report.Assigned = assign.Assigned
	report.Failed = assign.Failed

	// One case per unmatched thread: the first unmatched email of a
	// thread seeds it, later siblings are covered by the processed set.
	seen := make(map[string]bool)
	for _, email := range batch.Unmatched {
		if email.ConversationID != "" && seen[email.ConversationID] {
			continue
		}
		if email.ConversationID != "" {
			seen[email.ConversationID] = true
		}

		created, err := m.CreateCaseFromEmail(ctx, email, export.ThreadOf(email))
		if err != nil {
			report.Failed = append(report.Failed, AssignFailure{
				EmailID: email.EntryID,
				Error:   err.Error(),
			})
			continue
		}
		if created == nil {
			report.MergedThreads++
			continue
		}
		report.CreatedCases = append(report.CreatedCases, created.ID)
	}

	mets := metrics.Get()
	mets.EmailsProcessed.WithLabelValues("assigned").Add(float64(len(report.Assigned)))
	mets.EmailsProcessed.WithLabelValues("suggested").Add(float64(len(report.Suggested)))
	mets.EmailsProcessed.WithLabelValues("unmatched").Add(float64(len(batch.Unmatched)))
	mets.EmailsProcessed.WithLabelValues("failed").Add(float64(len(report.Failed)))
	mets.CasesCreated.Add(float64(len(report.CreatedCases)))

	m.logger.Info("reconcile finished",
		zap.Int("assigned", len(report.Assigned)),
		zap.Int("suggested", len(report.Suggested)),
		zap.Int("created", len(report.CreatedCases)),
		zap.Int("merged_threads", report.MergedThreads),
		zap.Int("failed", len(report.Failed)),
	)
	return report, nil
}
