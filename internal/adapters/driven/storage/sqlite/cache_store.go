package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aula-labs/aula-cli/internal/core/domain"
	"github.com/aula-labs/aula-cli/internal/core/ports/driven"
)

// The three cache stores all persist the same way: the cache's in-memory
// state replaces the stored snapshot wholesale. Caches are advisory, so a
// lost write only costs a future miss.

// ==================== Embedding Cache Store ====================

type embeddingCacheStore struct {
	store *Store
}

var _ driven.EmbeddingCacheStore = (*embeddingCacheStore)(nil)

// SaveAll replaces the stored entries.
func (s *embeddingCacheStore) SaveAll(ctx context.Context, entries []domain.EmbeddingEntry) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM embedding_cache"); err != nil {
		return fmt.Errorf("clearing embedding cache: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO embedding_cache (key, text, embedding, hit_count, created_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		if _, err := stmt.ExecContext(ctx, entry.Key, entry.Text,
			float32SliceToBytes(entry.Embedding), entry.HitCount,
			entry.CreatedAt, entry.LastUsedAt); err != nil {
			return fmt.Errorf("saving embedding cache entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// LoadAll returns all stored entries.
func (s *embeddingCacheStore) LoadAll(ctx context.Context) ([]domain.EmbeddingEntry, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT key, text, embedding, hit_count, created_at, last_used_at
		FROM embedding_cache
	`)
	if err != nil {
		return nil, fmt.Errorf("querying embedding cache: %w", err)
	}
	defer rows.Close()

	var entries []domain.EmbeddingEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		var entry domain.EmbeddingEntry
		var embeddingBlob []byte
		if err := rows.Scan(&entry.Key, &entry.Text, &embeddingBlob,
			&entry.HitCount, &entry.CreatedAt, &entry.LastUsedAt); err != nil {
			return nil, fmt.Errorf("scanning embedding cache entry: %w", err)
		}
		entry.Embedding = bytesToFloat32Slice(embeddingBlob)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embedding cache: %w", err)
	}

	return entries, nil
}

// ==================== FAQ Store ====================

type faqStore struct {
	store *Store
}

var _ driven.FAQStore = (*faqStore)(nil)

// SaveAll replaces the stored entries.
func (s *faqStore) SaveAll(ctx context.Context, entries []domain.FAQEntry) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM faq_entries"); err != nil {
		return fmt.Errorf("clearing faq entries: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO faq_entries (id, question, embedding, answer, category, enabled, hit_count, created_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		if _, err := stmt.ExecContext(ctx, entry.ID, entry.Question,
			float32SliceToBytes(entry.Embedding), entry.Answer, entry.Category,
			entry.Enabled, entry.HitCount, entry.CreatedAt, entry.LastUsedAt); err != nil {
			return fmt.Errorf("saving faq entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// LoadAll returns all stored entries.
func (s *faqStore) LoadAll(ctx context.Context) ([]domain.FAQEntry, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, question, embedding, answer, category, enabled, hit_count, created_at, last_used_at
		FROM faq_entries
	`)
	if err != nil {
		return nil, fmt.Errorf("querying faq entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.FAQEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		var entry domain.FAQEntry
		var embeddingBlob []byte
		if err := rows.Scan(&entry.ID, &entry.Question, &embeddingBlob,
			&entry.Answer, &entry.Category, &entry.Enabled, &entry.HitCount,
			&entry.CreatedAt, &entry.LastUsedAt); err != nil {
			return nil, fmt.Errorf("scanning faq entry: %w", err)
		}
		entry.Embedding = bytesToFloat32Slice(embeddingBlob)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating faq entries: %w", err)
	}

	return entries, nil
}

// ==================== Response Cache Store ====================

type responseCacheStore struct {
	store *Store
}

var _ driven.ResponseCacheStore = (*responseCacheStore)(nil)

// SaveAll replaces the stored entries.
func (s *responseCacheStore) SaveAll(ctx context.Context, entries []domain.ResponseEntry) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM response_cache"); err != nil {
		return fmt.Errorf("clearing response cache: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO response_cache (id, question, embedding, corpus_hash, answer, hit_count, created_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		if _, err := stmt.ExecContext(ctx, entry.ID, entry.Question,
			float32SliceToBytes(entry.Embedding), entry.CorpusHash, entry.Answer,
			entry.HitCount, entry.CreatedAt, entry.LastUsedAt); err != nil {
			return fmt.Errorf("saving response cache entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// LoadAll returns all stored entries.
func (s *responseCacheStore) LoadAll(ctx context.Context) ([]domain.ResponseEntry, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, question, embedding, corpus_hash, answer, hit_count, created_at, last_used_at
		FROM response_cache
	`)
	if err != nil {
		return nil, fmt.Errorf("querying response cache: %w", err)
	}
	defer rows.Close()

	var entries []domain.ResponseEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		var entry domain.ResponseEntry
		var embeddingBlob []byte
		if err := rows.Scan(&entry.ID, &entry.Question, &embeddingBlob,
			&entry.CorpusHash, &entry.Answer, &entry.HitCount,
			&entry.CreatedAt, &entry.LastUsedAt); err != nil {
			return nil, fmt.Errorf("scanning response cache entry: %w", err)
		}
		entry.Embedding = bytesToFloat32Slice(embeddingBlob)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating response cache: %w", err)
	}

	return entries, nil
}

// ==================== History Store ====================

type historyStore struct {
	store *Store
}

var _ driven.HistoryStore = (*historyStore)(nil)

// Append records one answered question.
func (s *historyStore) Append(ctx context.Context, entry domain.HistoryEntry) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO history (id, requester_id, question, answer, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, entry.ID, entry.RequesterID, entry.Question, entry.Answer, entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("appending history entry: %w", err)
	}
	return nil
}

// List returns the most recent entries for a requester, newest first.
func (s *historyStore) List(ctx context.Context, requesterID string, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, requester_id, question, answer, created_at
		FROM history
	`
	args := []any{}
	if requesterID != "" {
		query += " WHERE requester_id = ?"
		args = append(args, requesterID)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []domain.HistoryEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		var entry domain.HistoryEntry
		if err := rows.Scan(&entry.ID, &entry.RequesterID, &entry.Question,
			&entry.Answer, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}

	return entries, nil
}

// ==================== Conversation Store ====================

type conversationStore struct {
	store *Store
}

var _ driven.ConversationStore = (*conversationStore)(nil)

// Get returns the memory for a requester.
func (s *conversationStore) Get(ctx context.Context, requesterID string) (*domain.ConversationMemory, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT requester_id, summary, turns, updated_at
		FROM conversations WHERE requester_id = ?
	`, requesterID)

	var memory domain.ConversationMemory
	var turnsJSON string
	if err := row.Scan(&memory.RequesterID, &memory.Summary, &turnsJSON,
		&memory.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning conversation: %w", err)
	}

	if err := unmarshalTurns(turnsJSON, &memory.Turns); err != nil {
		return nil, err
	}

	return &memory, nil
}

// Save stores or updates a requester's memory.
func (s *conversationStore) Save(ctx context.Context, memory *domain.ConversationMemory) error {
	turnsJSON, err := marshalTurns(memory.Turns)
	if err != nil {
		return err
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO conversations (requester_id, summary, turns, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(requester_id) DO UPDATE SET
			summary = excluded.summary,
			turns = excluded.turns,
			updated_at = excluded.updated_at
	`, memory.RequesterID, memory.Summary, turnsJSON, memory.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving conversation: %w", err)
	}
	return nil
}

func marshalTurns(turns []domain.ConversationTurn) (string, error) {
	if turns == nil {
		turns = []domain.ConversationTurn{}
	}
	data, err := json.Marshal(turns)
	if err != nil {
		return "", fmt.Errorf("marshalling turns: %w", err)
	}
	return string(data), nil
}

func unmarshalTurns(data string, turns *[]domain.ConversationTurn) error {
	if err := json.Unmarshal([]byte(data), turns); err != nil {
		return fmt.Errorf("unmarshalling turns: %w", err)
	}
	return nil
}
