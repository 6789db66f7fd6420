package driven

import (
	"context"

	"github.com/aula-labs/aula-cli/internal/core/domain"
)

// LexicalIndex provides BM25 keyword search with hierarchical ranking
// (title and header chunks privileged over plain content).
//
// Document frequency is pooled across all indexed documents: a term's idf
// shifts as unrelated documents are added. This cross-document coupling is
// intentional and must be preserved.
type LexicalIndex interface {
	// IndexDocument (re)builds the index entries for a document's chunks.
	// Existing entries for the document are replaced wholesale.
	IndexDocument(ctx context.Context, doc domain.Document, chunks []domain.Chunk) error

	// RemoveDocument drops all index entries for a document.
	RemoveDocument(ctx context.Context, documentID string) error

	// Search ranks chunks across all indexed documents for a query.
	// Results are normalised to [0, 1), title/header chunks first, and
	// filtered by the relevance floor.
	Search(ctx context.Context, query string, opts LexicalSearchOptions) ([]domain.RankedChunk, error)

	// DocumentCount returns how many documents are indexed.
	DocumentCount() int

	// Flush persists pending index state. Safe to call concurrently.
	Flush(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// LexicalSearchOptions configures one lexical search.
type LexicalSearchOptions struct {
	// TopK caps the result count. Zero lets the engine pick its default
	// (larger for list-style queries).
	TopK int

	// MinScore overrides the relevance floor when > 0.
	MinScore float64
}

// LexicalEntry is the persisted shape of one chunk's index entry.
// Owned by the LexicalIndex; stored and reloaded through LexicalStore.
type LexicalEntry struct {
	ChunkID     string
	DocumentID  string
	Type        domain.ChunkType
	Section     string
	Tokens      []string
	Frequencies map[string]int
	Positions   map[string][]int
	Length      int
}

// LexicalStore persists lexical index entries keyed by document id.
type LexicalStore interface {
	// SaveDocumentEntries replaces the stored entries for a document.
	SaveDocumentEntries(ctx context.Context, documentID string, entries []LexicalEntry) error

	// DeleteDocumentEntries removes the stored entries for a document.
	DeleteDocumentEntries(ctx context.Context, documentID string) error

	// LoadEntries returns every stored entry across all documents.
	LoadEntries(ctx context.Context) ([]LexicalEntry, error)
}
