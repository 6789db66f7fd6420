// Package graph provides the in-process approximate vector index: a flat
// arena of embeddings with a single-layer proximity graph searched
// greedily. Below a size threshold every search is an exact linear scan;
// past it the graph trades exactness for sub-linear search.
package graph

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/aula-labs/aula-cli/internal/core/domain"
	"github.com/aula-labs/aula-cli/internal/core/ports/driven"
	"github.com/aula-labs/aula-cli/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Metric selects the distance function.
type Metric string

// Supported metrics.
const (
	// MetricCosine uses 1 - cosine similarity as distance.
	MetricCosine Metric = "cosine"

	// MetricEuclidean uses L2 distance.
	MetricEuclidean Metric = "euclidean"
)

// Defaults.
const (
	// DefaultM is the maximum neighbour count per graph node.
	DefaultM = 16

	// GraphThreshold is the vector count below which searches stay
	// linear and no graph is built.
	GraphThreshold = 100

	// RebuildInterval triggers an automatic full rebuild; the
	// incremental insert never revisits the older part of the graph.
	RebuildInterval = 1000

	// MinEf bounds the search frontier from below.
	MinEf = 50
)

// Config holds index configuration.
type Config struct {
	// M is the maximum neighbour count per node (default 16).
	M int

	// Metric is the distance function (default cosine).
	Metric Metric

	// Approximate enables the proximity graph. When false every search
	// is a linear scan regardless of size.
	Approximate bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{M: DefaultM, Metric: MetricCosine, Approximate: true}
}

// Index stores embeddings in parallel flat arrays indexed by dense id.
// Neighbour lists are plain int slices, so edge pruning and rebuild are
// simple array operations with no ownership cycles.
type Index struct {
	mu        sync.RWMutex
	cfg       Config
	dimension int
	vectors   [][]float32
	metas     []driven.VectorMeta
	neighbors [][]int
	inserts   int // since last rebuild
	store     driven.VectorStore
	persister sync.WaitGroup
	rng       *rand.Rand
}

// Option configures the index.
type Option func(*Index)

// WithStore attaches a persistence backend.
func WithStore(store driven.VectorStore) Option {
	return func(idx *Index) { idx.store = store }
}

// WithSeed fixes the search entry-point randomness, for tests.
func WithSeed(seed int64) Option {
	return func(idx *Index) { idx.rng = rand.New(rand.NewSource(seed)) }
}

// New creates an empty index.
func New(cfg Config, opts ...Option) *Index {
	if cfg.M <= 0 {
		cfg.M = DefaultM
	}
	if cfg.Metric == "" {
		cfg.Metric = MetricCosine
	}

	idx := &Index{
		cfg: cfg,
		rng: rand.New(rand.NewSource(rand.Int63())),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Load restores a persisted index state.
func (idx *Index) Load(ctx context.Context) error {
	if idx.store == nil {
		return nil
	}

	state, err := idx.store.LoadIndex(ctx)
	if err != nil {
		return err
	}
	if state == nil {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.dimension = state.Dimension
	if state.M > 0 {
		idx.cfg.M = state.M
	}
	if state.Metric != "" {
		idx.cfg.Metric = Metric(state.Metric)
	}

	n := len(state.Records)
	idx.vectors = make([][]float32, n)
	idx.metas = make([]driven.VectorMeta, n)
	idx.neighbors = make([][]int, n)
	for _, rec := range state.Records {
		if rec.ID < 0 || rec.ID >= n {
			continue
		}
		idx.vectors[rec.ID] = rec.Embedding
		idx.metas[rec.ID] = rec.Meta
	}
	for _, node := range state.Graph {
		if node.ID < 0 || node.ID >= n {
			continue
		}
		idx.neighbors[node.ID] = node.Neighbors
	}

	logger.Info("Vector index loaded: %d vectors, dimension %d", n, idx.dimension)
	return nil
}

// Add inserts a vector with its metadata and returns its dense id.
func (idx *Index) Add(ctx context.Context, embedding []float32, meta driven.VectorMeta) (int, error) {
	if len(embedding) == 0 {
		return 0, fmt.Errorf("empty embedding: %w", domain.ErrInvalidInput)
	}

	idx.mu.Lock()

	if idx.dimension == 0 {
		idx.dimension = len(embedding)
	} else if len(embedding) != idx.dimension {
		idx.mu.Unlock()
		return 0, fmt.Errorf("got %d, index has %d: %w",
			len(embedding), idx.dimension, domain.ErrDimensionMismatch)
	}

	id := len(idx.vectors)
	idx.vectors = append(idx.vectors, embedding)
	idx.metas = append(idx.metas, meta)
	idx.neighbors = append(idx.neighbors, nil)

	if idx.graphActiveLocked() {
		idx.linkLocked(id)
	}

	idx.inserts++
	rebuild := idx.inserts >= RebuildInterval
	if rebuild {
		idx.rebuildLocked()
	}
	idx.mu.Unlock()

	if rebuild {
		logger.Debug("Vector index auto-rebuilt at %d vectors", idx.Size())
	}

	idx.persist(ctx)
	return id, nil
}

// Search finds the k nearest neighbours to the query vector.
func (idx *Index) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.vectors) == 0 {
		return nil, nil
	}
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("got %d, index has %d: %w",
			len(query), idx.dimension, domain.ErrDimensionMismatch)
	}

	var candidates []scored
	if idx.graphActiveLocked() {
		candidates = idx.graphSearchLocked(query, k)
	} else {
		candidates = idx.linearScanLocked(query, k)
	}

	hits := make([]driven.VectorHit, 0, len(candidates))
	for _, c := range candidates {
		hits = append(hits, driven.VectorHit{
			ID:         c.id,
			Meta:       idx.metas[c.id],
			Similarity: idx.similarity(c.dist),
		})
	}
	return hits, nil
}

// RemoveByDocument drops every vector belonging to the document by copying
// the survivors into a fresh arena, then rebuilds the graph when the
// survivor set is large enough to warrant one.
func (idx *Index) RemoveByDocument(ctx context.Context, documentID string) error {
	idx.mu.Lock()

	vectors := idx.vectors
	metas := idx.metas

	idx.vectors = nil
	idx.metas = nil
	idx.neighbors = nil
	idx.inserts = 0

	removed := 0
	for i, meta := range metas {
		if meta.DocumentID == documentID {
			removed++
			continue
		}
		idx.vectors = append(idx.vectors, vectors[i])
		idx.metas = append(idx.metas, meta)
		idx.neighbors = append(idx.neighbors, nil)
	}

	if idx.graphActiveLocked() {
		idx.rebuildLocked()
	}
	if len(idx.vectors) == 0 {
		idx.dimension = 0
	}
	idx.mu.Unlock()

	logger.Debug("Vector index removal: document %s, %d vectors dropped", documentID, removed)

	idx.persist(ctx)
	return nil
}

// Rebuild clears the graph and re-inserts every vector in current order.
func (idx *Index) Rebuild(ctx context.Context) error {
	idx.mu.Lock()
	idx.rebuildLocked()
	idx.mu.Unlock()

	idx.persist(ctx)
	return nil
}

// Size returns the number of stored vectors.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Stats reports index statistics for operational tooling.
func (idx *Index) Stats() domain.IndexStats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	stats := domain.IndexStats{
		Vectors:    len(idx.vectors),
		Dimension:  idx.dimension,
		GraphBuilt: idx.graphActiveLocked(),
	}
	if stats.GraphBuilt {
		edges := 0
		for _, ns := range idx.neighbors {
			edges += len(ns)
		}
		stats.AvgDegree = float64(edges) / float64(len(idx.neighbors))
	}
	return stats
}

// Flush persists the index state synchronously and waits for any pending
// background writes.
func (idx *Index) Flush(ctx context.Context) error {
	idx.persister.Wait()
	if idx.store == nil {
		return nil
	}
	return idx.store.SaveIndex(ctx, idx.snapshot())
}

// Close releases resources.
func (idx *Index) Close() error {
	idx.persister.Wait()
	return nil
}

// ---- internals ----

// scored pairs a vector id with its distance to the query.
type scored struct {
	id   int
	dist float64
}

// graphActiveLocked reports whether graph search applies.
func (idx *Index) graphActiveLocked() bool {
	return idx.cfg.Approximate && len(idx.vectors) >= GraphThreshold
}

// linkLocked connects a freshly appended vector into the graph: find the
// nearest existing vectors by linear scan, connect bidirectionally to the
// best M, and prune any neighbour whose degree now exceeds M.
func (idx *Index) linkLocked(id int) {
	m := idx.cfg.M
	limit := 2 * m
	if n := len(idx.vectors) - 1; limit > n {
		limit = n
	}

	nearest := make([]scored, 0, len(idx.vectors)-1)
	for other := range idx.vectors {
		if other == id {
			continue
		}
		nearest = append(nearest, scored{other, idx.distance(idx.vectors[id], idx.vectors[other])})
	}
	sort.Slice(nearest, func(i, j int) bool { return nearest[i].dist < nearest[j].dist })
	if len(nearest) > limit {
		nearest = nearest[:limit]
	}
	if len(nearest) > m {
		nearest = nearest[:m]
	}

	for _, cand := range nearest {
		idx.neighbors[id] = append(idx.neighbors[id], cand.id)
		idx.neighbors[cand.id] = append(idx.neighbors[cand.id], id)
		if len(idx.neighbors[cand.id]) > m {
			idx.pruneLocked(cand.id)
		}
	}
}

// pruneLocked trims a node's edge list back to its M closest neighbours.
func (idx *Index) pruneLocked(node int) {
	ns := idx.neighbors[node]
	sort.Slice(ns, func(i, j int) bool {
		return idx.distance(idx.vectors[node], idx.vectors[ns[i]]) <
			idx.distance(idx.vectors[node], idx.vectors[ns[j]])
	})
	idx.neighbors[node] = ns[:idx.cfg.M]
}

// rebuildLocked clears the graph and re-links every vector in order.
func (idx *Index) rebuildLocked() {
	idx.inserts = 0
	for i := range idx.neighbors {
		idx.neighbors[i] = nil
	}
	if !idx.graphActiveLocked() {
		return
	}
	// Re-link incrementally: node i only sees nodes < i, as if inserted
	// fresh.
	saved := idx.vectors
	for i := range saved {
		idx.vectors = saved[:i+1]
		idx.linkLocked(i)
	}
	idx.vectors = saved
}

// linearScanLocked is the exact fallback for small indices.
func (idx *Index) linearScanLocked(query []float32, k int) []scored {
	all := make([]scored, len(idx.vectors))
	for i, vec := range idx.vectors {
		all[i] = scored{i, idx.distance(query, vec)}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].dist < all[j].dist })
	if len(all) > k {
		all = all[:k]
	}
	return all
}

// graphSearchLocked walks the proximity graph greedily from a random
// entry point, keeping an ef-bounded result set. Explicitly approximate:
// high empirical recall, no exactness guarantee.
func (idx *Index) graphSearchLocked(query []float32, k int) []scored {
	ef := 2 * k
	if ef < MinEf {
		ef = MinEf
	}

	entry := idx.rng.Intn(len(idx.vectors))
	entryDist := idx.distance(query, idx.vectors[entry])

	visited := map[int]bool{entry: true}
	frontier := []scored{{entry, entryDist}}
	results := []scored{{entry, entryDist}}

	for len(frontier) > 0 {
		// Pop the closest unexplored candidate.
		best := 0
		for i := 1; i < len(frontier); i++ {
			if frontier[i].dist < frontier[best].dist {
				best = i
			}
		}
		current := frontier[best]
		frontier = append(frontier[:best], frontier[best+1:]...)

		// Stop once the best unexplored candidate cannot improve the
		// kept set.
		if len(results) >= ef && current.dist > results[len(results)-1].dist {
			break
		}

		for _, n := range idx.neighbors[current.id] {
			if visited[n] {
				continue
			}
			visited[n] = true
			d := idx.distance(query, idx.vectors[n])
			frontier = append(frontier, scored{n, d})
			results = append(results, scored{n, d})
		}

		sort.Slice(results, func(i, j int) bool { return results[i].dist < results[j].dist })
		if len(results) > ef {
			results = results[:ef]
		}
	}

	if len(results) > k {
		results = results[:k]
	}
	return results
}

// distance computes the configured metric.
func (idx *Index) distance(a, b []float32) float64 {
	if idx.cfg.Metric == MetricEuclidean {
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return math.Sqrt(sum)
	}
	return 1 - cosineSimilarity(a, b)
}

// similarity converts a distance back into a 0-1 score.
func (idx *Index) similarity(dist float64) float64 {
	if idx.cfg.Metric == MetricEuclidean {
		return 1 / (1 + dist)
	}
	return 1 - dist
}

// cosineSimilarity returns the cosine of the angle between two vectors,
// 0 when either has zero norm.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// snapshot captures the persisted state under the read lock.
func (idx *Index) snapshot() *driven.VectorIndexState {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	state := &driven.VectorIndexState{
		Dimension: idx.dimension,
		Metric:    string(idx.cfg.Metric),
		M:         idx.cfg.M,
		Records:   make([]driven.VectorRecord, len(idx.vectors)),
		Graph:     make([]driven.VectorGraphNode, len(idx.neighbors)),
	}
	for i, vec := range idx.vectors {
		state.Records[i] = driven.VectorRecord{ID: i, Embedding: vec, Meta: idx.metas[i]}
	}
	for i, ns := range idx.neighbors {
		state.Graph[i] = driven.VectorGraphNode{ID: i, Neighbors: ns}
	}
	return state
}

// persist writes the state in the background, best effort.
func (idx *Index) persist(ctx context.Context) {
	if idx.store == nil {
		return
	}
	state := idx.snapshot()
	idx.persister.Add(1)
	go func() {
		defer idx.persister.Done()
		if err := idx.store.SaveIndex(context.WithoutCancel(ctx), state); err != nil {
			logger.Warn("Vector index persistence failed: %v", err)
		}
	}()
}
