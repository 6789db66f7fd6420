package domain

import "time"

// CacheUsage is the shared bookkeeping trailer carried by every cache entry.
// Hits refresh LastUsedAt and increment HitCount; eviction keeps the
// highest-usage entries.
type CacheUsage struct {
	// HitCount is how many times this entry answered a lookup.
	HitCount int

	// CreatedAt is when the entry was first stored.
	CreatedAt time.Time

	// LastUsedAt is when the entry last answered a lookup.
	LastUsedAt time.Time
}

// Touch records a hit.
func (u *CacheUsage) Touch(now time.Time) {
	u.HitCount++
	u.LastUsedAt = now
}

// EmbeddingEntry caches the embedding vector for a question text, keyed by
// the normalised text.
type EmbeddingEntry struct {
	// Key is the normalised question text (exact-match key).
	Key string

	// Text is the original question text.
	Text string

	// Embedding is the cached vector.
	Embedding []float32

	CacheUsage
}

// FAQEntry is a curated question/answer pair matched by embedding similarity.
type FAQEntry struct {
	// ID is the unique identifier for the entry.
	ID string

	// Question is the canonical question text.
	Question string

	// Embedding is the question's embedding, the similarity key.
	Embedding []float32

	// Answer is the curated answer text.
	Answer string

	// Category is an optional administrative grouping.
	Category string

	// Enabled excludes the entry from matching when false without
	// affecting its hit statistics.
	Enabled bool

	CacheUsage
}

// ResponseEntry caches a full generated answer, keyed by question embedding
// plus the corpus hash at generation time. A changed corpus hash implicitly
// invalidates the entry even for an identical question.
type ResponseEntry struct {
	// ID is the unique identifier for the entry.
	ID string

	// Question is the original question text.
	Question string

	// Embedding is the question's embedding, the similarity key.
	Embedding []float32

	// CorpusHash fingerprints the document set the answer was generated
	// against.
	CorpusHash string

	// Answer is the generated answer text.
	Answer string

	CacheUsage
}

// CacheStats summarises one cache for observability dashboards.
type CacheStats struct {
	// Name identifies the cache ("embedding", "faq", "response").
	Name string

	// Entries is the current entry count.
	Entries int

	// Hits and Misses count lookups since process start.
	Hits   int
	Misses int

	// HitRate is Hits / (Hits + Misses), 0 when no lookups happened.
	HitRate float64

	// EstimatedSavings approximates avoided provider calls in USD.
	EstimatedSavings float64

	// TopEntries lists the most-reused entry keys with their hit counts.
	TopEntries []CacheTopEntry
}

// CacheTopEntry is one row of a cache's top-N reuse report.
type CacheTopEntry struct {
	Key  string
	Hits int
}

// IndexStats summarises the vector index for operational tooling.
type IndexStats struct {
	// Vectors is the number of stored vectors.
	Vectors int

	// Dimension is the fixed embedding dimension (0 before first insert).
	Dimension int

	// AvgDegree is the average neighbour count per graph node.
	AvgDegree float64

	// GraphBuilt reports whether the proximity graph is in use
	// (false while the index is small enough for linear scans).
	GraphBuilt bool
}
