package driven

import (
	"context"

	"github.com/aula-labs/aula-cli/internal/core/domain"
)

// EmbeddingCache reuses embeddings for previously seen question texts.
// Exact normalised-text match first, token-set similarity as fallback.
// Advisory: a lost update only causes a future cache miss.
type EmbeddingCache interface {
	// Lookup returns the cached embedding for a question text, if any.
	Lookup(ctx context.Context, text string) ([]float32, bool)

	// Put stores an embedding for a question text. Storing the same
	// normalised text twice updates the existing entry.
	Put(ctx context.Context, text string, embedding []float32)

	// Stats reports cache statistics.
	Stats() domain.CacheStats

	// Flush persists pending entries and waits for completion.
	Flush(ctx context.Context) error
}

// FAQCache matches questions against curated question/answer pairs by
// cosine similarity of question embeddings.
type FAQCache interface {
	// Match returns the best enabled entry whose question embedding is
	// similar enough to the query embedding.
	Match(ctx context.Context, embedding []float32) (*domain.FAQEntry, bool)

	// Add stores a new entry.
	Add(ctx context.Context, entry domain.FAQEntry) error

	// Update edits an existing entry without touching its hit statistics.
	Update(ctx context.Context, entry domain.FAQEntry) error

	// SetEnabled toggles an entry in or out of matching.
	SetEnabled(ctx context.Context, id string, enabled bool) error

	// List returns all entries.
	List(ctx context.Context) []domain.FAQEntry

	// Stats reports cache statistics.
	Stats() domain.CacheStats

	// Flush persists pending entries and waits for completion.
	Flush(ctx context.Context) error
}

// ResponseCache reuses full generated answers, keyed by question embedding
// plus the corpus hash current when the answer was generated.
type ResponseCache interface {
	// Lookup returns a cached answer for the question embedding, but only
	// when the entry's corpus hash matches the current one.
	Lookup(ctx context.Context, embedding []float32, corpusHash string) (*domain.ResponseEntry, bool)

	// Put stores a generated answer.
	Put(ctx context.Context, entry domain.ResponseEntry)

	// InvalidateHash removes all entries with the given corpus hash and
	// returns how many were removed.
	InvalidateHash(ctx context.Context, corpusHash string) int

	// Cleanup removes entries unseen for more than the given number of
	// days unless they have accumulated enough hits to be worth keeping.
	// Returns how many were removed.
	Cleanup(ctx context.Context, olderThanDays int) int

	// Stats reports cache statistics.
	Stats() domain.CacheStats

	// Flush persists pending entries and waits for completion.
	Flush(ctx context.Context) error
}

// EmbeddingCacheStore persists embedding cache entries.
type EmbeddingCacheStore interface {
	SaveAll(ctx context.Context, entries []domain.EmbeddingEntry) error
	LoadAll(ctx context.Context) ([]domain.EmbeddingEntry, error)
}

// FAQStore persists FAQ cache entries.
type FAQStore interface {
	SaveAll(ctx context.Context, entries []domain.FAQEntry) error
	LoadAll(ctx context.Context) ([]domain.FAQEntry, error)
}

// ResponseCacheStore persists response cache entries.
type ResponseCacheStore interface {
	SaveAll(ctx context.Context, entries []domain.ResponseEntry) error
	LoadAll(ctx context.Context) ([]domain.ResponseEntry, error)
}
