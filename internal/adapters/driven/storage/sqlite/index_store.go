package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aula-labs/aula-cli/internal/core/domain"
	"github.com/aula-labs/aula-cli/internal/core/ports/driven"
)

// ==================== Lexical Store ====================

// lexicalStore implements driven.LexicalStore.
type lexicalStore struct {
	store *Store
}

var _ driven.LexicalStore = (*lexicalStore)(nil)

// SaveDocumentEntries replaces the stored entries for a document.
func (s *lexicalStore) SaveDocumentEntries(ctx context.Context, documentID string, entries []driven.LexicalEntry) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM lexical_entries WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("clearing lexical entries: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO lexical_entries (chunk_id, document_id, type, section, tokens, frequencies, positions, length)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		tokensJSON, err := json.Marshal(entry.Tokens)
		if err != nil {
			return fmt.Errorf("marshalling tokens: %w", err)
		}
		freqJSON, err := json.Marshal(entry.Frequencies)
		if err != nil {
			return fmt.Errorf("marshalling frequencies: %w", err)
		}
		posJSON, err := json.Marshal(entry.Positions)
		if err != nil {
			return fmt.Errorf("marshalling positions: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, entry.ChunkID, documentID,
			string(entry.Type), entry.Section, string(tokensJSON),
			string(freqJSON), string(posJSON), entry.Length); err != nil {
			return fmt.Errorf("saving lexical entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// DeleteDocumentEntries removes the stored entries for a document.
func (s *lexicalStore) DeleteDocumentEntries(ctx context.Context, documentID string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM lexical_entries WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("deleting lexical entries: %w", err)
	}
	return nil
}

// LoadEntries returns every stored entry across all documents.
func (s *lexicalStore) LoadEntries(ctx context.Context) ([]driven.LexicalEntry, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT chunk_id, document_id, type, section, tokens, frequencies, positions, length
		FROM lexical_entries
	`)
	if err != nil {
		return nil, fmt.Errorf("querying lexical entries: %w", err)
	}
	defer rows.Close()

	var entries []driven.LexicalEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		var entry driven.LexicalEntry
		var chunkType, tokensJSON, freqJSON, posJSON string
		if err := rows.Scan(&entry.ChunkID, &entry.DocumentID, &chunkType,
			&entry.Section, &tokensJSON, &freqJSON, &posJSON, &entry.Length); err != nil {
			return nil, fmt.Errorf("scanning lexical entry: %w", err)
		}
		entry.Type = domain.ChunkType(chunkType)

		if err := json.Unmarshal([]byte(tokensJSON), &entry.Tokens); err != nil {
			return nil, fmt.Errorf("unmarshalling tokens: %w", err)
		}
		if err := json.Unmarshal([]byte(freqJSON), &entry.Frequencies); err != nil {
			return nil, fmt.Errorf("unmarshalling frequencies: %w", err)
		}
		if err := json.Unmarshal([]byte(posJSON), &entry.Positions); err != nil {
			return nil, fmt.Errorf("unmarshalling positions: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lexical entries: %w", err)
	}

	return entries, nil
}

// ==================== Vector Store ====================

// vectorStore implements driven.VectorStore.
type vectorStore struct {
	store *Store
}

var _ driven.VectorStore = (*vectorStore)(nil)

// SaveIndex replaces the stored index state.
func (s *vectorStore) SaveIndex(ctx context.Context, state *driven.VectorIndexState) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"vector_index_meta", "vector_records", "vector_graph"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO vector_index_meta (id, dimension, metric, m) VALUES (1, ?, ?, ?)
	`, state.Dimension, state.Metric, state.M); err != nil {
		return fmt.Errorf("saving vector index meta: %w", err)
	}

	recStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vector_records (id, document_id, chunk_id, source_text, tags, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing record statement: %w", err)
	}
	defer recStmt.Close()

	for _, rec := range state.Records {
		tagsJSON, err := json.Marshal(rec.Meta.Tags)
		if err != nil {
			return fmt.Errorf("marshalling tags: %w", err)
		}
		if _, err := recStmt.ExecContext(ctx, rec.ID, rec.Meta.DocumentID,
			rec.Meta.ChunkID, rec.Meta.SourceText, string(tagsJSON),
			float32SliceToBytes(rec.Embedding)); err != nil {
			return fmt.Errorf("saving vector record: %w", err)
		}
	}

	graphStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vector_graph (id, neighbors) VALUES (?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing graph statement: %w", err)
	}
	defer graphStmt.Close()

	for _, node := range state.Graph {
		neighborsJSON, err := json.Marshal(node.Neighbors)
		if err != nil {
			return fmt.Errorf("marshalling neighbors: %w", err)
		}
		if _, err := graphStmt.ExecContext(ctx, node.ID, string(neighborsJSON)); err != nil {
			return fmt.Errorf("saving graph node: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// LoadIndex returns the stored index state, or nil if none exists.
func (s *vectorStore) LoadIndex(ctx context.Context) (*driven.VectorIndexState, error) {
	state := &driven.VectorIndexState{}

	row := s.store.db.QueryRowContext(ctx,
		"SELECT dimension, metric, m FROM vector_index_meta WHERE id = 1")
	if err := row.Scan(&state.Dimension, &state.Metric, &state.M); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning vector index meta: %w", err)
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, chunk_id, source_text, tags, embedding
		FROM vector_records ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying vector records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec driven.VectorRecord
		var tagsJSON string
		var embeddingBlob []byte
		if err := rows.Scan(&rec.ID, &rec.Meta.DocumentID, &rec.Meta.ChunkID,
			&rec.Meta.SourceText, &tagsJSON, &embeddingBlob); err != nil {
			return nil, fmt.Errorf("scanning vector record: %w", err)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &rec.Meta.Tags); err != nil {
			return nil, fmt.Errorf("unmarshalling tags: %w", err)
		}
		rec.Embedding = bytesToFloat32Slice(embeddingBlob)
		state.Records = append(state.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vector records: %w", err)
	}

	graphRows, err := s.store.db.QueryContext(ctx,
		"SELECT id, neighbors FROM vector_graph ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying vector graph: %w", err)
	}
	defer graphRows.Close()

	for graphRows.Next() {
		var node driven.VectorGraphNode
		var neighborsJSON string
		if err := graphRows.Scan(&node.ID, &neighborsJSON); err != nil {
			return nil, fmt.Errorf("scanning graph node: %w", err)
		}
		if err := json.Unmarshal([]byte(neighborsJSON), &node.Neighbors); err != nil {
			return nil, fmt.Errorf("unmarshalling neighbors: %w", err)
		}
		state.Graph = append(state.Graph, node)
	}
	if err := graphRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating graph nodes: %w", err)
	}

	return state, nil
}
