package matcher

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/caselink/internal/casestore"
	"github.com/fyrsmithlabs/caselink/internal/extraction"
	"github.com/fyrsmithlabs/caselink/internal/metrics"
)

// FindDuplicates groups cases that represent the same real-world
// request, using the same three-key priority as creation-time duplicate
// suppression: policy number, then customer+broker, then
// customer+carrier. Groups are disjoint: a case placed in one group is
// excluded from further pairing.
func (m *Matcher) FindDuplicates(ctx context.Context) ([][]*casestore.Case, error) {
	cases, err := m.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}

	var groups [][]*casestore.Case
	placed := make(map[string]bool, len(cases))

	for i, a := range cases {
		if placed[a.ID] {
			continue
		}
		group := []*casestore.Case{a}
		for _, b := range cases[i+1:] {
			if placed[b.ID] {
				continue
			}
			if sameRequest(a, b) {
				group = append(group, b)
				placed[b.ID] = true
			}
		}
		if len(group) > 1 {
			placed[a.ID] = true
			groups = append(groups, group)
		}
	}
	return groups, nil
}

// sameRequest applies the three duplicate keys in priority order.
func sameRequest(a, b *casestore.Case) bool {
	aPolicy := extraction.NormalizePolicyNumber(a.PolicyNumberValue())
	bPolicy := extraction.NormalizePolicyNumber(b.PolicyNumberValue())
	if aPolicy != "" && aPolicy == bPolicy {
		return true
	}

	aName := extraction.FoldText(a.CustomerName())
	bName := extraction.FoldText(b.CustomerName())
	if aName == "" || aName != bName {
		return false
	}

	if a.Broker.Email != "" && strings.EqualFold(a.Broker.Email, b.Broker.Email) {
		return true
	}

	aCarrier := extraction.FoldText(a.CarrierName())
	bCarrier := extraction.FoldText(b.CarrierName())
	return aCarrier != "" && aCarrier == bCarrier
}

// MergeDuplicates collapses every duplicate group onto its oldest case:
// messages are reattached to the primary, notes concatenated with a
// provenance marker, a merge entry appended to the primary's history,
// and the losers deleted. Merging is the only way a case is ever
// physically removed.
func (m *Matcher) MergeDuplicates(ctx context.Context) (*MergeReport, error) {
	groups, err := m.FindDuplicates(ctx)
	if err != nil {
		return nil, err
	}

	report := &MergeReport{GroupsFound: len(groups)}

	for _, group := range groups {
		sort.Slice(group, func(i, j int) bool {
			if !group[i].CreatedAt.Equal(group[j].CreatedAt) {
				return group[i].CreatedAt.Before(group[j].CreatedAt)
			}
			return group[i].ID < group[j].ID
		})
		primary := group[0]

		for _, dup := range group[1:] {
			if err := m.mergeInto(ctx, primary.ID, dup); err != nil {
				return report, fmt.Errorf("merge %s into %s: %w", dup.ID, primary.ID, err)
			}
			report.Deleted++
			metrics.Get().RecordMerge()
		}
		report.MergedInto++

		m.logger.Info("duplicates merged",
			zap.String("primary", primary.ID),
			zap.Int("absorbed", len(group)-1),
		)
	}
	return report, nil
}

// mergeInto absorbs one duplicate into the primary case and deletes it.
func (m *Matcher) mergeInto(ctx context.Context, primaryID string, dup *casestore.Case) error {
	if _, err := m.store.AddMessages(ctx, primaryID, dup.Messages); err != nil {
		return fmt.Errorf("reattach messages: %w", err)
	}

	primary, err := m.store.Get(ctx, primaryID)
	if err != nil {
		return err
	}

	if dup.Notes != "" {
		marker := fmt.Sprintf("[merged from %s] %s", dup.ID, dup.Notes)
		if primary.Notes == "" {
			primary.Notes = marker
		} else {
			primary.Notes += "\n" + marker
		}
	}
	for _, linked := range dup.LinkedCaseIDs {
		primary.LinkedCaseIDs = appendUnique(primary.LinkedCaseIDs, linked)
	}
	primary.History = append(primary.History, casestore.HistoryEntry{
		Timestamp: time.Now(),
		Status:    primary.Status,
		Note:      fmt.Sprintf("merged duplicate case %s", dup.ID),
	})

	if err := m.store.Save(ctx, primary); err != nil {
		return fmt.Errorf("persist merge: %w", err)
	}
	return m.store.Delete(ctx, dup.ID)
}

func appendUnique(list []string, item string) []string {
	for _, existing := range list {
		if existing == item {
			return list
		}
	}
	return append(list, item)
}
