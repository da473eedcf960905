package matcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/caselink/internal/casestore"
	"github.com/fyrsmithlabs/caselink/internal/extraction"
	"github.com/fyrsmithlabs/caselink/internal/mail"
)

func newTestMatcher(t *testing.T) (*Matcher, *casestore.InMemoryStore) {
	t.Helper()
	store := casestore.NewInMemoryStore()
	m, err := New(store, store, DefaultConfig(), zap.NewNop())
	require.NoError(t, err)
	return m, store
}

func guess(value string, confidence float64) *extraction.FieldGuess[string] {
	return &extraction.FieldGuess[string]{Value: value, Confidence: confidence, Source: extraction.SourceAuto}
}

func dateGuess(value time.Time) *extraction.FieldGuess[time.Time] {
	return &extraction.FieldGuess[time.Time]{Value: value, Confidence: 0.9, Source: extraction.SourceAuto}
}

func saveCase(t *testing.T, store casestore.Store, c *casestore.Case) {
	t.Helper()
	require.NoError(t, store.Save(context.Background(), c))
}

func TestNewValidation(t *testing.T) {
	store := casestore.NewInMemoryStore()

	_, err := New(nil, store, DefaultConfig(), nil)
	assert.Error(t, err)

	_, err = New(store, nil, DefaultConfig(), nil)
	assert.Error(t, err)

	m, err := New(store, store, DefaultConfig(), nil)
	require.NoError(t, err)
	assert.NotNil(t, m.logger)
}

func TestFindMatchesConversationID(t *testing.T) {
	m, store := newTestMatcher(t)
	saveCase(t, store, &casestore.Case{
		ID:              "case-a",
		Status:          casestore.StatusIncomplete,
		ConversationIDs: []string{"conv-42"},
	})

	result := m.FindMatches(mail.RawEmail{
		EntryID:        "msg-1",
		ConversationID: "conv-42",
		Subject:        "completely unrelated",
	}, mustList(t, store))

	require.NotNil(t, result.BestMatch)
	assert.Equal(t, "case-a", result.BestMatch.CaseID)
	assert.Equal(t, 1.0, result.BestMatch.Confidence)
	assert.Equal(t, ReasonConversation, result.BestMatch.Reason)
	assert.True(t, result.AutoAssign)
}

func TestFindMatchesPolicyNumber(t *testing.T) {
	m, store := newTestMatcher(t)
	saveCase(t, store, &casestore.Case{
		ID:           "case-a",
		Status:       casestore.StatusToValidate,
		PolicyNumber: guess("ERG 123456", 0.9),
	})
	saveCase(t, store, &casestore.Case{
		ID:           "case-b",
		Status:       casestore.StatusToValidate,
		PolicyNumber: guess("XY-98765432", 0.9),
	})

	t.Run("exact after normalization", func(t *testing.T) {
		result := m.FindMatches(mail.RawEmail{
			EntryID: "msg-1",
			Body:    "Sehr geehrte Damen und Herren,\nVS-Nr: ERG-123456\nbitte übernehmen Sie den Vertrag.",
		}, mustList(t, store))

		require.NotNil(t, result.BestMatch)
		assert.Equal(t, "case-a", result.BestMatch.CaseID)
		assert.Equal(t, confPolicyExact, result.BestMatch.Confidence)
		assert.Equal(t, ReasonPolicyExact, result.BestMatch.Reason)
		assert.True(t, result.AutoAssign)
	})

	t.Run("partial digit run", func(t *testing.T) {
		result := m.FindMatches(mail.RawEmail{
			EntryID: "msg-2",
			Body:    "Vertrag 98765432 zur Bestandsübertragung.",
		}, mustList(t, store))

		require.NotNil(t, result.BestMatch)
		assert.Equal(t, "case-b", result.BestMatch.CaseID)
		assert.Equal(t, confPolicyPartial, result.BestMatch.Confidence)
		assert.Equal(t, ReasonPolicyPartial, result.BestMatch.Reason)
		assert.True(t, result.AutoAssign)
	})
}

func TestPartialPolicyMatch(t *testing.T) {
	m, _ := newTestMatcher(t)

	tests := []struct {
		name       string
		extracted  string
		caseNumber string
		want       bool
	}{
		{"shared six digit run", "123456789", "XY12345678", true},
		{"no shared run", "987654321", "XY12345678", false},
		{"too few digits", "12345", "12345", false},
		{"identical digits different letters", "AB123456", "CD123456", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.partialPolicyMatch(tt.extracted, tt.caseNumber))
		})
	}
}

func TestFindMatchesBrokerEmail(t *testing.T) {
	m, store := newTestMatcher(t)
	saveCase(t, store, &casestore.Case{
		ID:     "case-a",
		Status: casestore.StatusIncomplete,
		Broker: casestore.Broker{Name: "Maklerbüro Schmidt", Email: "schmidt@maklerbuero.de"},
	})

	t.Run("mail from broker", func(t *testing.T) {
		result := m.FindMatches(mail.RawEmail{
			EntryID: "msg-1",
			From:    "Schmidt@Maklerbuero.de",
			Subject: "Nachtrag",
		}, mustList(t, store))

		require.NotNil(t, result.BestMatch)
		assert.Equal(t, confBrokerSender, result.BestMatch.Confidence)
		assert.Equal(t, ReasonBrokerSender, result.BestMatch.Reason)
		assert.True(t, result.AutoAssign)
	})

	t.Run("mail to broker is damped", func(t *testing.T) {
		result := m.FindMatches(mail.RawEmail{
			EntryID: "msg-2",
			From:    "sachbearbeitung@pool.de",
			To:      "schmidt@maklerbuero.de",
			Subject: "Nachfrage",
		}, mustList(t, store))

		require.NotNil(t, result.BestMatch)
		assert.InDelta(t, confBrokerSender*0.9, result.BestMatch.Confidence, 1e-9)
		assert.Equal(t, ReasonBrokerRecipient, result.BestMatch.Reason)
		assert.True(t, result.AutoAssign)
	})
}

func TestFindMatchesCustomer(t *testing.T) {
	m, store := newTestMatcher(t)
	saveCase(t, store, &casestore.Case{
		ID:       "case-a",
		Status:   casestore.StatusIncomplete,
		Customer: guess("Hans Müller", 0.8),
		Carrier:  guess("ERGO", 1.0),
	})
	saveCase(t, store, &casestore.Case{
		ID:       "case-b",
		Status:   casestore.StatusIncomplete,
		Customer: guess("Hans Müller", 0.8),
		Carrier:  guess("Allianz", 1.0),
	})

	t.Run("customer with matching carrier", func(t *testing.T) {
		result := m.FindMatches(mail.RawEmail{
			EntryID: "msg-1",
			From:    "service@ergo.de",
			Body:    "Kunde: Hans Mueller\nBestandsübertragung wie besprochen.",
		}, mustList(t, store))

		require.NotNil(t, result.BestMatch)
		assert.Equal(t, "case-a", result.BestMatch.CaseID)
		assert.Equal(t, confCustomerCarrier, result.BestMatch.Confidence)
		assert.Equal(t, ReasonCustomerCarrier, result.BestMatch.Reason)
		assert.True(t, result.AutoAssign)
	})

	t.Run("customer alone stays below threshold", func(t *testing.T) {
		result := m.FindMatches(mail.RawEmail{
			EntryID: "msg-2",
			From:    "jemand@example.de",
			Body:    "Kunde: Hans Mueller\nbitte um Rückmeldung.",
		}, mustList(t, store))

		require.NotNil(t, result.BestMatch)
		assert.Equal(t, confCustomerOnly, result.BestMatch.Confidence)
		assert.False(t, result.AutoAssign)
	})
}

func TestFindMatchesSubjectSimilarity(t *testing.T) {
	m, store := newTestMatcher(t)
	saveCase(t, store, &casestore.Case{
		ID:     "case-a",
		Status: casestore.StatusIncomplete,
		Messages: []mail.RawEmail{{
			EntryID: "msg-0",
			Subject: "Bestandsübertragung Müller Hausrat",
		}},
	})

	result := m.FindMatches(mail.RawEmail{
		EntryID: "msg-1",
		Subject: "Re: Bestandsübertragung Müller Hausrat",
	}, mustList(t, store))

	require.NotNil(t, result.BestMatch)
	assert.Equal(t, ReasonSubject, result.BestMatch.Reason)
	assert.InDelta(t, confSubjectBase, result.BestMatch.Confidence, 1e-9)
	assert.False(t, result.AutoAssign)
}

func TestFindMatchesOneMatchPerCase(t *testing.T) {
	m, store := newTestMatcher(t)
	saveCase(t, store, &casestore.Case{
		ID:              "case-a",
		Status:          casestore.StatusToValidate,
		ConversationIDs: []string{"conv-42"},
		PolicyNumber:    guess("ERG-123456", 0.9),
		Broker:          casestore.Broker{Email: "schmidt@maklerbuero.de"},
	})

	// Conversation, policy and broker strategies all hit the same case;
	// only the strongest survives.
	result := m.FindMatches(mail.RawEmail{
		EntryID:        "msg-1",
		ConversationID: "conv-42",
		From:           "schmidt@maklerbuero.de",
		Body:           "VS-Nr: ERG-123456",
	}, mustList(t, store))

	require.Len(t, result.Matches, 1)
	assert.Equal(t, 1.0, result.Matches[0].Confidence)
	assert.Equal(t, ReasonConversation, result.Matches[0].Reason)
}

func TestFindMatchesMoreEvidenceNeverWeakens(t *testing.T) {
	m, store := newTestMatcher(t)
	saveCase(t, store, &casestore.Case{
		ID:           "case-a",
		Status:       casestore.StatusToValidate,
		Customer:     guess("Hans Müller", 0.8),
		PolicyNumber: guess("ERG-123456", 0.9),
	})

	weak := m.FindMatches(mail.RawEmail{
		EntryID: "msg-1",
		Body:    "Kunde: Hans Mueller",
	}, mustList(t, store))

	strong := m.FindMatches(mail.RawEmail{
		EntryID: "msg-2",
		Body:    "Kunde: Hans Mueller\nVS-Nr: ERG-123456",
	}, mustList(t, store))

	require.NotNil(t, weak.BestMatch)
	require.NotNil(t, strong.BestMatch)
	assert.GreaterOrEqual(t, strong.BestMatch.Confidence, weak.BestMatch.Confidence)
}

func TestFindMatchesSortedDeterministically(t *testing.T) {
	m, store := newTestMatcher(t)
	saveCase(t, store, &casestore.Case{
		ID:       "case-b",
		Status:   casestore.StatusIncomplete,
		Customer: guess("Hans Müller", 0.8),
	})
	saveCase(t, store, &casestore.Case{
		ID:       "case-a",
		Status:   casestore.StatusIncomplete,
		Customer: guess("Hans Müller", 0.8),
	})

	result := m.FindMatches(mail.RawEmail{
		EntryID: "msg-1",
		Body:    "Kunde: Hans Mueller",
	}, mustList(t, store))

	require.Len(t, result.Matches, 2)
	assert.Equal(t, result.Matches[0].Confidence, result.Matches[1].Confidence)
	assert.Equal(t, "case-a", result.Matches[0].CaseID)
	assert.Equal(t, "case-b", result.Matches[1].CaseID)
}

func TestFindMatchesAutoAssignThresholdBoundary(t *testing.T) {
	// A broker-sender match scores a fixed 0.85; sweeping the threshold
	// around that value pins down the >= semantics of auto-assignment.
	tests := []struct {
		threshold  float64
		autoAssign bool
	}{
		{0.0, true},
		{0.5, true},
		{0.85, true}, // exactly at the threshold commits
		{0.8500001, false},
		{0.95, false},
		{1.0, false},
	}
	for _, tt := range tests {
		store := casestore.NewInMemoryStore()
		cfg := DefaultConfig()
		cfg.AutoAssignThreshold = tt.threshold
		m, err := New(store, store, cfg, zap.NewNop())
		require.NoError(t, err)

		saveCase(t, store, &casestore.Case{
			ID:     "case-a",
			Status: casestore.StatusIncomplete,
			Broker: casestore.Broker{Name: "Makler GmbH", Email: "makler@example.de"},
		})

		result := m.FindMatches(mail.RawEmail{
			EntryID: "msg-1",
			From:    "makler@example.de",
			Subject: "Bestandsübertragung",
		}, mustList(t, store))

		require.NotNil(t, result.BestMatch, "threshold %v", tt.threshold)
		assert.InDelta(t, 0.85, result.BestMatch.Confidence, 1e-9)
		assert.Equal(t, tt.autoAssign, result.AutoAssign, "threshold %v", tt.threshold)
	}
}

func TestSubjectWords(t *testing.T) {
	tests := []struct {
		subject string
		want    []string
	}{
		{"Re: Fwd: Bestandsübertragung Müller", []string{"bestandsuebertragung", "mueller"}},
		{"AW: WG: Vertrag Hausrat", []string{"vertrag", "hausrat"}},
		{"", nil},
	}

	for _, tt := range tests {
		got := subjectWords(tt.subject)
		if len(tt.want) == 0 {
			assert.Empty(t, got, tt.subject)
			continue
		}
		assert.ElementsMatch(t, tt.want, got, tt.subject)
	}
}

func TestJaccard(t *testing.T) {
	assert.Equal(t, 1.0, jaccard([]string{"a", "b"}, []string{"b", "a"}))
	assert.Equal(t, 0.0, jaccard([]string{"a"}, []string{"b"}))
	assert.Equal(t, 0.0, jaccard(nil, []string{"a"}))
	assert.InDelta(t, 1.0/3.0, jaccard([]string{"a", "b"}, []string{"a", "c"}), 1e-9)
}

func mustList(t *testing.T, store casestore.Store) []*casestore.Case {
	t.Helper()
	cases, err := store.List(context.Background())
	require.NoError(t, err)
	return cases
}
