package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/caselink/internal/casestore"
	"github.com/fyrsmithlabs/caselink/internal/extraction"
	"github.com/fyrsmithlabs/caselink/internal/matcher"
)

func setupTestServer(t *testing.T) (*Server, *casestore.InMemoryStore) {
	t.Helper()
	store := casestore.NewInMemoryStore()
	m, err := matcher.New(store, store, matcher.DefaultConfig(), zap.NewNop())
	require.NoError(t, err)

	server, err := NewServer(store, m, zap.NewNop(), nil)
	require.NoError(t, err)
	return server, store
}

func TestNewServer(t *testing.T) {
	t.Run("uses defaults when config is nil", func(t *testing.T) {
		server, _ := setupTestServer(t)
		assert.Equal(t, "localhost", server.config.Host)
		assert.Equal(t, 8480, server.config.Port)
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		store := casestore.NewInMemoryStore()
		m, err := matcher.New(store, store, matcher.DefaultConfig(), zap.NewNop())
		require.NoError(t, err)

		_, err = NewServer(store, m, nil, nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})

	t.Run("returns error when store is nil", func(t *testing.T) {
		store := casestore.NewInMemoryStore()
		m, err := matcher.New(store, store, matcher.DefaultConfig(), zap.NewNop())
		require.NoError(t, err)

		_, err = NewServer(nil, m, zap.NewNop(), nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "store cannot be nil")
	})
}

func TestHandleHealth(t *testing.T) {
	server, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	server.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestHandleImport(t *testing.T) {
	t.Run("reconciles flat export", func(t *testing.T) {
		server, store := setupTestServer(t)

		payload := `{"emails": [{
			"entryId": "msg-1",
			"subject": "Bestandsübertragung",
			"body": "Kunde: Anna Schneider\nVS-Nr: ERG-123456",
			"from": "makler@pool.de"
		}]}`

		req := httptest.NewRequest(http.MethodPost, "/api/v1/import", strings.NewReader(payload))
		req.Header.Set(echo.HeaderContentType, "application/json")
		rec := httptest.NewRecorder()

		server.echo.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var report matcher.ReconcileReport
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.Len(t, report.CreatedCases, 1)

		cases, err := store.List(context.Background())
		require.NoError(t, err)
		require.Len(t, cases, 1)
		assert.Equal(t, casestore.StatusToValidate, cases[0].Status)
	})

	t.Run("rejects malformed payload", func(t *testing.T) {
		server, _ := setupTestServer(t)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/import", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()

		server.echo.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects empty export", func(t *testing.T) {
		server, _ := setupTestServer(t)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/import", strings.NewReader("{}"))
		rec := httptest.NewRecorder()

		server.echo.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleCases(t *testing.T) {
	server, store := setupTestServer(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &casestore.Case{ID: "case-a", Status: casestore.StatusIncomplete}))
	require.NoError(t, store.Save(ctx, &casestore.Case{ID: "case-b", Status: casestore.StatusExportReady}))

	t.Run("list all", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cases", nil)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var cases []casestore.Case
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cases))
		assert.Len(t, cases, 2)
	})

	t.Run("filter by status", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cases?status=export-ready", nil)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var cases []casestore.Case
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cases))
		require.Len(t, cases, 1)
		assert.Equal(t, "case-b", cases[0].ID)
	})

	t.Run("unknown status filter", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cases?status=lost", nil)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("get one", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cases/case-a", nil)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var c casestore.Case
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
		assert.Equal(t, "case-a", c.ID)
	})

	t.Run("get missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cases/case-x", nil)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleStatsAndReport(t *testing.T) {
	server, store := setupTestServer(t)
	require.NoError(t, store.Save(context.Background(), &casestore.Case{
		ID:     "case-a",
		Status: casestore.StatusExportReady,
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"exportReady":1`)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/report", nil)
	rec = httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Total cases: 1")
}

func TestHandleExport(t *testing.T) {
	server, store := setupTestServer(t)
	require.NoError(t, store.Save(context.Background(), &casestore.Case{
		ID:     "case-a",
		Status: casestore.StatusIncomplete,
		Customer: &extraction.FieldGuess[string]{
			Value: "Müller, Hans", Confidence: 0.8, Source: extraction.SourceAuto,
		},
	}))

	t.Run("csv default", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/export", nil)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/csv")
		assert.Contains(t, rec.Body.String(), "case-a")
		assert.Contains(t, rec.Body.String(), "Müller, Hans")
	})

	t.Run("json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/export?format=json", nil)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var cases []casestore.Case
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cases))
		require.Len(t, cases, 1)
	})

	t.Run("unknown format", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/export?format=xml", nil)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleMergeDuplicates(t *testing.T) {
	server, store := setupTestServer(t)
	ctx := context.Background()

	policy := func(v string) *extraction.FieldGuess[string] {
		return &extraction.FieldGuess[string]{Value: v, Confidence: 0.9, Source: extraction.SourceAuto}
	}
	require.NoError(t, store.Save(ctx, &casestore.Case{ID: "case-a", Status: casestore.StatusIncomplete, PolicyNumber: policy("ERG-123456")}))
	require.NoError(t, store.Save(ctx, &casestore.Case{ID: "case-b", Status: casestore.StatusIncomplete, PolicyNumber: policy("ERG 123456")}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/duplicates/merge", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var report matcher.MergeReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, matcher.MergeReport{GroupsFound: 1, MergedInto: 1, Deleted: 1}, report)

	cases, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, cases, 1)
}
