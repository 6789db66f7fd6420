package driven

import (
	"context"

	"github.com/aula-labs/aula-cli/internal/core/domain"
)

// VectorIndex provides approximate nearest-neighbour search over chunk and
// query embeddings. Backed by an in-process proximity graph; searches fall
// back to a linear scan while the index is small.
type VectorIndex interface {
	// Add inserts a vector with its metadata and returns its dense id.
	// Returns domain.ErrDimensionMismatch if the vector's dimension does
	// not match the dimension fixed at first insertion.
	Add(ctx context.Context, embedding []float32, meta VectorMeta) (int, error)

	// Search finds the k nearest neighbours to the query vector.
	// Results are approximate once the proximity graph is in use.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// RemoveByDocument drops every vector whose metadata references the
	// document, rebuilding the graph when the survivor set is large
	// enough to warrant it.
	RemoveByDocument(ctx context.Context, documentID string) error

	// Rebuild clears the graph and re-inserts every vector in current
	// order. Invoked after bulk changes.
	Rebuild(ctx context.Context) error

	// Size returns the number of stored vectors.
	Size() int

	// Stats reports index statistics for operational tooling.
	Stats() domain.IndexStats

	// Flush persists pending index state. Safe to call concurrently.
	Flush(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// VectorMeta is the metadata carried by each vector entry.
type VectorMeta struct {
	// DocumentID is the owning document.
	DocumentID string

	// ChunkID is the chunk the vector embeds.
	ChunkID string

	// SourceText is the embedded text.
	SourceText string

	// Tags holds arbitrary key-value pairs.
	Tags map[string]string
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ID is the matched vector's dense id.
	ID int

	// Meta is the matched vector's metadata.
	Meta VectorMeta

	// Similarity is the cosine similarity score (0-1) for the cosine
	// metric, or a distance-derived score for Euclidean.
	Similarity float64
}

// VectorRecord is the persisted shape of one vector entry.
type VectorRecord struct {
	ID        int
	Embedding []float32
	Meta      VectorMeta
}

// VectorGraphNode is the persisted neighbour list of one graph node.
type VectorGraphNode struct {
	ID        int
	Neighbors []int
}

// VectorIndexState is the full persisted index: entries, graph, and
// configuration, round-tripping through a save/load cycle without loss.
type VectorIndexState struct {
	Dimension int
	Metric    string
	M         int
	Records   []VectorRecord
	Graph     []VectorGraphNode
}

// VectorStore persists the vector index.
type VectorStore interface {
	// SaveIndex replaces the stored index state.
	SaveIndex(ctx context.Context, state *VectorIndexState) error

	// LoadIndex returns the stored index state, or nil if none exists.
	LoadIndex(ctx context.Context) (*VectorIndexState, error)
}
