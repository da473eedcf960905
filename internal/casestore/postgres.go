package casestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fyrsmithlabs/caselink/internal/extraction"
	"github.com/fyrsmithlabs/caselink/internal/mail"
)

// PostgresStore persists cases as JSONB documents and the processed set
// as a plain table. Natural-key lookups load and filter in Go: case
// volumes are hundreds to low thousands, well inside interactive
// latency, and it keeps the normalization rules in one place.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a case store backed by the given pool and
// ensures the schema exists.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	s := &PostgresStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure case schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS cases (
			id         TEXT PRIMARY KEY,
			data       JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS processed_messages (
			message_id   TEXT PRIMARY KEY,
			processed_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	return err
}

// Get returns the case with the given id, or ErrCaseNotFound.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Case, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM cases WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCaseNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get case %s: %w", id, err)
	}
	return decodeCase(data)
}

// List returns all cases ordered by creation time, oldest first.
func (s *PostgresStore) List(ctx context.Context) ([]*Case, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM cases ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var out []*Case
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		c, err := decodeCase(data)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Save upserts a case, stamping UpdatedAt (and CreatedAt when unset).
func (s *PostgresStore) Save(ctx context.Context, c *Case) error {
	if c.ID == "" {
		return ErrEmptyCaseID
	}

	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode case %s: %w", c.ID, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO cases (id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET data = $2, updated_at = $4
	`, c.ID, data, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save case %s: %w", c.ID, err)
	}
	return nil
}

// Delete removes a case.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM cases WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete case %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrCaseNotFound, id)
	}
	return nil
}

// FindByConversationID returns the first case tracking the thread.
func (s *PostgresStore) FindByConversationID(ctx context.Context, conversationID string) (*Case, error) {
	if conversationID == "" {
		return nil, nil
	}
	cases, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range cases {
		if c.HasConversation(conversationID) {
			return c, nil
		}
	}
	return nil, nil
}

// FindByPolicyNumber matches on the normalized policy number.
func (s *PostgresStore) FindByPolicyNumber(ctx context.Context, policyNumber string) (*Case, error) {
	norm := extraction.NormalizePolicyNumber(policyNumber)
	if norm == "" {
		return nil, nil
	}
	cases, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range cases {
		if extraction.NormalizePolicyNumber(c.PolicyNumberValue()) == norm {
			return c, nil
		}
	}
	return nil, nil
}

// FindByCustomer returns cases whose customer name contains the query.
func (s *PostgresStore) FindByCustomer(ctx context.Context, name string) ([]*Case, error) {
	query := strings.ToLower(strings.TrimSpace(name))
	if query == "" {
		return nil, nil
	}
	cases, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []*Case
	for _, c := range cases {
		if strings.Contains(strings.ToLower(c.CustomerName()), query) {
			out = append(out, c)
		}
	}
	return out, nil
}

// AddMessages attaches new messages to a case inside one transaction so
// the idempotence check and the write cannot interleave with a
// concurrent import of the same case.
func (s *PostgresStore) AddMessages(ctx context.Context, caseID string, messages []mail.RawEmail) (int, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin add messages: %w", err)
	}
	defer tx.Rollback(ctx)

	var data []byte
	err = tx.QueryRow(ctx, `SELECT data FROM cases WHERE id = $1 FOR UPDATE`, caseID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrCaseNotFound, caseID)
	}
	if err != nil {
		return 0, fmt.Errorf("lock case %s: %w", caseID, err)
	}
	c, err := decodeCase(data)
	if err != nil {
		return 0, err
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
	if added == 0 {
		return 0, tx.Commit(ctx)
	}

	now := time.Now()
	c.History = append(c.History, HistoryEntry{
		Timestamp: now,
		Status:    c.Status,
		Note:      fmt.Sprintf("%d new mail attached", added),
	})
	c.UpdatedAt = now

	encoded, err := json.Marshal(c)
	if err != nil {
		return 0, fmt.Errorf("encode case %s: %w", caseID, err)
	}
	if _, err := tx.Exec(ctx, `UPDATE cases SET data = $2, updated_at = $3 WHERE id = $1`, caseID, encoded, now); err != nil {
		return 0, fmt.Errorf("update case %s: %w", caseID, err)
	}
	return added, tx.Commit(ctx)
}

// SetStatus changes the case status and appends a history entry.
func (s *PostgresStore) SetStatus(ctx context.Context, caseID string, status Status, note string) error {
	c, err := s.Get(ctx, caseID)
	if err != nil {
		return err
	}
	now := time.Now()
	c.Status = status
	c.History = append(c.History, HistoryEntry{Timestamp: now, Status: status, Note: note})
	return s.Save(ctx, c)
}

// MarkProcessed records message ids in the processed table.
func (s *PostgresStore) MarkProcessed(ctx context.Context, messageIDs ...string) error {
	for _, id := range messageIDs {
		if id == "" {
			continue
		}
		if _, err := s.pool.Exec(ctx, `
			INSERT INTO processed_messages (message_id) VALUES ($1)
			ON CONFLICT (message_id) DO NOTHING
		`, id); err != nil {
			return fmt.Errorf("mark processed %s: %w", id, err)
		}
	}
	return nil
}

// IsProcessed reports whether the message id was already reconciled.
func (s *PostgresStore) IsProcessed(ctx context.Context, messageID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM processed_messages WHERE message_id = $1)
	`, messageID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check processed %s: %w", messageID, err)
	}
	return exists, nil
}

func decodeCase(data []byte) (*Case, error) {
	var c Case
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode case: %w", err)
	}
	return &c, nil
}
