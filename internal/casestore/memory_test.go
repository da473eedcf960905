package casestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/caselink/internal/extraction"
	"github.com/fyrsmithlabs/caselink/internal/mail"
)

func newTestCase(id, policy, customer string) *Case {
	c := &Case{
		ID:     id,
		Status: StatusIncomplete,
	}
	if policy != "" {
		c.PolicyNumber = &extraction.FieldGuess[string]{Value: policy, Confidence: 0.9, Source: extraction.SourceAuto}
	}
	if customer != "" {
		c.Customer = &extraction.FieldGuess[string]{Value: customer, Confidence: 0.8, Source: extraction.SourceAuto}
	}
	return c
}

func TestInMemoryStoreSaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	c := newTestCase("case-1", "ERG-123456", "Müller, Hans")
	require.NoError(t, store.Save(ctx, c))
	assert.False(t, c.CreatedAt.IsZero(), "Save must stamp CreatedAt")
	assert.False(t, c.UpdatedAt.IsZero(), "Save must stamp UpdatedAt")

	got, err := store.Get(ctx, "case-1")
	require.NoError(t, err)
	assert.Equal(t, "ERG-123456", got.PolicyNumberValue())

	// Mutating the returned copy must not leak into the store.
	got.Status = StatusRejected
	again, err := store.Get(ctx, "case-1")
	require.NoError(t, err)
	assert.Equal(t, StatusIncomplete, again.Status)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCaseNotFound)
}

func TestInMemoryStoreSaveRejectsEmptyID(t *testing.T) {
	store := NewInMemoryStore()
	assert.ErrorIs(t, store.Save(context.Background(), &Case{}), ErrEmptyCaseID)
}

func TestInMemoryStoreFindByPolicyNumber(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	require.NoError(t, store.Save(ctx, newTestCase("case-1", "ERG-123456", "")))

	tests := []struct {
		query string
		found bool
	}{
		{"ERG-123456", true},
		{"erg 123 456", true},
		{"ERG123456", true},
		{"AXA-999", false},
		{"", false},
	}
	for _, tt := range tests {
		got, err := store.FindByPolicyNumber(ctx, tt.query)
		require.NoError(t, err)
		if tt.found {
			require.NotNil(t, got, "query %q", tt.query)
			assert.Equal(t, "case-1", got.ID)
		} else {
			assert.Nil(t, got, "query %q", tt.query)
		}
	}
}

func TestInMemoryStoreFindByCustomer(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	require.NoError(t, store.Save(ctx, newTestCase("case-1", "", "Müller, Hans")))
	require.NoError(t, store.Save(ctx, newTestCase("case-2", "", "Schmidt, Peter")))

	got, err := store.FindByCustomer(ctx, "müller")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "case-1", got[0].ID)

	got, err = store.FindByCustomer(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInMemoryStoreFindByConversationID(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	c := newTestCase("case-1", "", "")
	c.ConversationIDs = []string{"conv-42"}
	require.NoError(t, store.Save(ctx, c))

	got, err := store.FindByConversationID(ctx, "conv-42")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "case-1", got.ID)

	got, err = store.FindByConversationID(ctx, "conv-unknown")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInMemoryStoreAddMessagesIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	require.NoError(t, store.Save(ctx, newTestCase("case-1", "", "")))

	msg := mail.RawEmail{EntryID: "m1", ConversationID: "conv-1", Subject: "s"}

	added, err := store.AddMessages(ctx, "case-1", []mail.RawEmail{msg})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	// Second attach of the same id is a no-op: no new entry, no history.
	added, err = store.AddMessages(ctx, "case-1", []mail.RawEmail{msg})
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	got, err := store.Get(ctx, "case-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, got.MessageIDs)
	assert.Equal(t, []string{"conv-1"}, got.ConversationIDs)

	historyNotes := 0
	for _, h := range got.History {
		if h.Note == "1 new mail attached" {
			historyNotes++
		}
	}
	assert.Equal(t, 1, historyNotes, "exactly one attach history entry")
}

func TestInMemoryStoreAddMessagesBatchHistory(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	require.NoError(t, store.Save(ctx, newTestCase("case-1", "", "")))

	added, err := store.AddMessages(ctx, "case-1", []mail.RawEmail{
		{EntryID: "m1"}, {EntryID: "m2"}, {EntryID: "m3"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, added)

	got, err := store.Get(ctx, "case-1")
	require.NoError(t, err)
	require.Len(t, got.History, 1, "one entry per batch, not per message")
	assert.Equal(t, "3 new mail attached", got.History[0].Note)
}

func TestInMemoryStoreSetStatus(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	require.NoError(t, store.Save(ctx, newTestCase("case-1", "", "")))

	require.NoError(t, store.SetStatus(ctx, "case-1", StatusFollowUp, "auto-detected from email"))

	got, err := store.Get(ctx, "case-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFollowUp, got.Status)
	require.Len(t, got.History, 1)
	assert.Equal(t, StatusFollowUp, got.History[0].Status)
}

func TestInMemoryStoreProcessedSet(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	ok, err := store.IsProcessed(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.MarkProcessed(ctx, "m1", "m2", ""))

	ok, err = store.IsProcessed(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.IsProcessed(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok, "empty ids are never recorded")
}

func TestStatusOrdering(t *testing.T) {
	assert.True(t, StatusIncomplete.Rank() < StatusToValidate.Rank())
	assert.True(t, StatusToValidate.Rank() < StatusFollowUp.Rank())
	assert.True(t, StatusFollowUp.Rank() < StatusExportReady.Rank())
	assert.True(t, StatusExportReady.Rank() < StatusCompleted.Rank())

	assert.True(t, StatusExportReady.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.False(t, StatusCompleted.Terminal())
	assert.False(t, StatusIncomplete.Terminal())

	assert.Equal(t, -1, Status("bogus").Rank())
	assert.False(t, Status("bogus").Valid())
}

func TestNewCaseID(t *testing.T) {
	now := time.Date(2025, 3, 24, 9, 15, 42, 0, time.UTC)
	a := NewCaseID(now)
	b := NewCaseID(now)
	assert.Contains(t, a, "case-20250324091542-")
	assert.NotEqual(t, a, b, "random suffix must differ")
}
