package matcher

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/caselink/internal/casestore"
	"github.com/fyrsmithlabs/caselink/internal/extraction"
	"github.com/fyrsmithlabs/caselink/internal/mail"
	"github.com/fyrsmithlabs/caselink/internal/metrics"
)

// signalToStatus maps extracted email signals onto the richer case
// workflow vocabulary.
var signalToStatus = map[extraction.StatusSignal]casestore.Status{
	extraction.SignalNew:       casestore.StatusIncomplete,
	extraction.SignalRequested: casestore.StatusToValidate,
	extraction.SignalInReview:  casestore.StatusFollowUp,
	extraction.SignalConfirmed: casestore.StatusExportReady,
	extraction.SignalRejected:  casestore.StatusRejected,
	extraction.SignalDone:      casestore.StatusCompleted,
}

// UpdateStatusFromEmail extracts a status signal from the email and
// applies it to the case. A transition commits only when the mapped
// status is terminal (export-ready and rejected always overwrite) or
// strictly later than the current one in the workflow ordering.
//
// Independently of the ordering gate, a freshly extracted validity date
// is attached when the case has none yet.
func (m *Matcher) UpdateStatusFromEmail(ctx context.Context, caseID string, email mail.RawEmail) error {
	c, err := m.store.Get(ctx, caseID)
	if err != nil {
		return err
	}

	text := email.Text()

	if signal := extraction.ExtractStatus(text); signal != nil {
		mapped, ok := signalToStatus[signal.Value]
		if !ok {
			return fmt.Errorf("unknown status signal %q", signal.Value)
		}
		if mapped != c.Status && (mapped.Terminal() || mapped.Rank() > c.Status.Rank()) {
			if err := m.store.SetStatus(ctx, caseID, mapped, "auto-detected from email"); err != nil {
				return err
			}
			metrics.Get().RecordStatusChange(string(mapped))
			m.logger.Info("status inferred",
				zap.String("case_id", caseID),
				zap.String("from", string(c.Status)),
				zap.String("to", string(mapped)),
			)
		}
	}

	if c.ValidityDate == nil {
		if date := extraction.ExtractValidityDate(text); date != nil {
			// Re-read: the status update above may have bumped the
			// history, and Save must not clobber it.
			fresh, err := m.store.Get(ctx, caseID)
			if err != nil {
				return err
			}
			fresh.ValidityDate = date
			if err := m.store.Save(ctx, fresh); err != nil {
				return err
			}
		}
	}

	return nil
}
