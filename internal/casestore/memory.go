package casestore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fyrsmithlabs/caselink/internal/extraction"
	"github.com/fyrsmithlabs/caselink/internal/mail"
)

// InMemoryStore keeps cases and the processed-message set in process
// memory, guarded by a single RWMutex. It is the default backend and the
// one tests run against. Reads return copies so callers cannot mutate
// stored state behind the lock.
type InMemoryStore struct {
	mu        sync.RWMutex
	cases     map[string]*Case
	processed map[string]struct{}
	now       func() time.Time
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		cases:     make(map[string]*Case),
		processed: make(map[string]struct{}),
		now:       time.Now,
	}
}

// Get returns a copy of the case with the given id.
func (s *InMemoryStore) Get(ctx context.Context, id string) (*Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cases[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCaseNotFound, id)
	}
	return cloneCase(c), nil
}

// List returns copies of all cases ordered by creation time, oldest
// first, with the id as tie-break.
func (s *InMemoryStore) List(ctx context.Context) ([]*Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Case, 0, len(s.cases))
	for _, c := range s.cases {
		out = append(out, cloneCase(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Save upserts a case and stamps UpdatedAt (plus CreatedAt when unset).
func (s *InMemoryStore) Save(ctx context.Context, c *Case) error {
	if c.ID == "" {
		return ErrEmptyCaseID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneCase(c)
	now := s.now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.cases[stored.ID] = stored

	// Reflect the stamps back so the caller's view stays accurate.
	c.CreatedAt = stored.CreatedAt
	c.UpdatedAt = stored.UpdatedAt
	return nil
}

// Delete removes a case.
func (s *InMemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cases[id]; !ok {
		return fmt.Errorf("%w: %s", ErrCaseNotFound, id)
	}
	delete(s.cases, id)
	return nil
}

// FindByConversationID returns the first case tracking the thread.
func (s *InMemoryStore) FindByConversationID(ctx context.Context, conversationID string) (*Case, error) {
	if conversationID == "" {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.sortedLocked() {
		if c.HasConversation(conversationID) {
			return cloneCase(c), nil
		}
	}
	return nil, nil
}

// FindByPolicyNumber matches on the normalized policy number.
func (s *InMemoryStore) FindByPolicyNumber(ctx context.Context, policyNumber string) (*Case, error) {
	norm := extraction.NormalizePolicyNumber(policyNumber)
	if norm == "" {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.sortedLocked() {
		if extraction.NormalizePolicyNumber(c.PolicyNumberValue()) == norm {
			return cloneCase(c), nil
		}
	}
	return nil, nil
}

// FindByCustomer returns cases whose customer name contains the query,
// case-insensitively.
func (s *InMemoryStore) FindByCustomer(ctx context.Context, name string) ([]*Case, error) {
	query := strings.ToLower(strings.TrimSpace(name))
	if query == "" {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Case
	for _, c := range s.sortedLocked() {
		if strings.Contains(strings.ToLower(c.CustomerName()), query) {
			out = append(out, cloneCase(c))
		}
	}
	return out, nil
}

// AddMessages attaches new messages to a case. Message ids already in
// the case's set are skipped; one history entry summarizes the batch
// when anything was actually added.
func (s *InMemoryStore) AddMessages(ctx context.Context, caseID string, messages []mail.RawEmail) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[caseID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrCaseNotFound, caseID)
	}

	added := 0
	for _, msg := range messages {
		if msg.EntryID == "" || c.HasMessage(msg.EntryID) {
			continue
		}
		c.MessageIDs = append(c.MessageIDs, msg.EntryID)
		c.Messages = append(c.Messages, msg)
		if msg.ConversationID != "" && !c.HasConversation(msg.ConversationID) {
			c.ConversationIDs = append(c.ConversationIDs, msg.ConversationID)
		}
		added++
	}

	if added > 0 {
		now := s.now()
		c.History = append(c.History, HistoryEntry{
			Timestamp: now,
			Status:    c.Status,
			Note:      fmt.Sprintf("%d new mail attached", added),
		})
		c.UpdatedAt = now
	}
	return added, nil
}

// SetStatus changes the case status and records it in the history.
func (s *InMemoryStore) SetStatus(ctx context.Context, caseID string, status Status, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[caseID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCaseNotFound, caseID)
	}

	now := s.now()
	c.Status = status
	c.History = append(c.History, HistoryEntry{Timestamp: now, Status: status, Note: note})
	c.UpdatedAt = now
	return nil
}

// MarkProcessed records message ids in the processed set.
func (s *InMemoryStore) MarkProcessed(ctx context.Context, messageIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range messageIDs {
		if id != "" {
			s.processed[id] = struct{}{}
		}
	}
	return nil
}

// IsProcessed reports whether the message id was already reconciled.
func (s *InMemoryStore) IsProcessed(ctx context.Context, messageID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.processed[messageID]
	return ok, nil
}

// sortedLocked returns the raw cases ordered like List. Callers must
// hold at least the read lock.
func (s *InMemoryStore) sortedLocked() []*Case {
	out := make([]*Case, 0, len(s.cases))
	for _, c := range s.cases {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// cloneCase deep-copies the mutable parts of a case.
func cloneCase(c *Case) *Case {
	out := *c
	out.Customer = cloneGuess(c.Customer)
	out.PolicyNumber = cloneGuess(c.PolicyNumber)
	out.Carrier = cloneGuess(c.Carrier)
	out.ValidityDate = cloneGuess(c.ValidityDate)
	out.ConversationIDs = append([]string(nil), c.ConversationIDs...)
	out.MessageIDs = append([]string(nil), c.MessageIDs...)
	out.Messages = append([]mail.RawEmail(nil), c.Messages...)
	out.History = append([]HistoryEntry(nil), c.History...)
	out.LinkedCaseIDs = append([]string(nil), c.LinkedCaseIDs...)
	out.Timestamps = WorkflowTimestamps{
		MailReceived: cloneTime(c.Timestamps.MailReceived),
		MailUploaded: cloneTime(c.Timestamps.MailUploaded),
		KIRecognized: cloneTime(c.Timestamps.KIRecognized),
		PVValidated:  cloneTime(c.Timestamps.PVValidated),
		Exported:     cloneTime(c.Timestamps.Exported),
	}
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	copied := *t
	return &copied
}

func cloneGuess[T any](g *extraction.FieldGuess[T]) *extraction.FieldGuess[T] {
	if g == nil {
		return nil
	}
	copied := *g
	return &copied
}
