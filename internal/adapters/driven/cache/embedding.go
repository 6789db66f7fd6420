package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aula-labs/aula-cli/internal/core/domain"
	"github.com/aula-labs/aula-cli/internal/core/ports/driven"
	"github.com/aula-labs/aula-cli/internal/logger"
)

var _ driven.EmbeddingCache = (*EmbeddingCache)(nil)

// Embedding cache defaults.
const (
	// DefaultEmbeddingCapacity is the overflow trigger.
	DefaultEmbeddingCapacity = 5000

	// DefaultEmbeddingKeep is the entry count retained after an
	// overflow trim.
	DefaultEmbeddingKeep = 4000

	// DefaultTextSimilarity accepts near-duplicate question texts.
	DefaultTextSimilarity = 0.95

	// embeddingCallCost approximates one avoided embedding call in USD.
	embeddingCallCost = 0.0001
)

// EmbeddingCache avoids repeated embedding calls for recurring question
// texts. Exact normalised-text match first; a token-set similarity scan as
// fallback for near-duplicates.
type EmbeddingCache struct {
	mu        sync.RWMutex
	entries   map[string]*domain.EmbeddingEntry
	capacity  int
	keep      int
	threshold float64
	hits      int
	misses    int
	store     driven.EmbeddingCacheStore
	persister sync.WaitGroup
	now       func() time.Time
}

// EmbeddingOption configures the cache.
type EmbeddingOption func(*EmbeddingCache)

// WithEmbeddingStore attaches a persistence backend.
func WithEmbeddingStore(store driven.EmbeddingCacheStore) EmbeddingOption {
	return func(c *EmbeddingCache) { c.store = store }
}

// WithEmbeddingCapacity overrides the overflow trigger and retained count.
func WithEmbeddingCapacity(capacity, keep int) EmbeddingOption {
	return func(c *EmbeddingCache) {
		c.capacity = capacity
		c.keep = keep
	}
}

// WithTextSimilarity overrides the near-duplicate acceptance threshold.
func WithTextSimilarity(threshold float64) EmbeddingOption {
	return func(c *EmbeddingCache) { c.threshold = threshold }
}

// WithEmbeddingClock overrides the time source, for tests.
func WithEmbeddingClock(now func() time.Time) EmbeddingOption {
	return func(c *EmbeddingCache) { c.now = now }
}

// NewEmbeddingCache creates an empty embedding cache.
func NewEmbeddingCache(opts ...EmbeddingOption) *EmbeddingCache {
	c := &EmbeddingCache{
		entries:   make(map[string]*domain.EmbeddingEntry),
		capacity:  DefaultEmbeddingCapacity,
		keep:      DefaultEmbeddingKeep,
		threshold: DefaultTextSimilarity,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load restores persisted entries.
func (c *EmbeddingCache) Load(ctx context.Context) error {
	if c.store == nil {
		return nil
	}

	entries, err := c.store.LoadAll(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range entries {
		entry := entries[i]
		c.entries[entry.Key] = &entry
	}
	logger.Info("Embedding cache loaded: %d entries", len(c.entries))
	return nil
}

// Lookup returns the cached embedding for a question text, if any. Hits
// update in-memory usage only; durability catches up on the next mutation
// or flush.
func (c *EmbeddingCache) Lookup(_ context.Context, text string) ([]float32, bool) {
	key := normalizeText(text)
	if key == "" {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		entry.Touch(c.now())
		c.hits++
		return entry.Embedding, true
	}

	// Near-duplicate scan. The length filter skips most entries before
	// the token comparison.
	var best *domain.EmbeddingEntry
	bestSim := 0.0
	for _, entry := range c.entries {
		if !lengthsComparable(key, entry.Key) {
			continue
		}
		if sim := tokenSimilarity(key, entry.Key); sim > bestSim {
			best = entry
			bestSim = sim
		}
	}
	if best != nil && bestSim >= c.threshold {
		best.Touch(c.now())
		c.hits++
		return best.Embedding, true
	}

	c.misses++
	return nil, false
}

// Put stores an embedding for a question text. Storing the same normalised
// text twice updates the existing entry.
func (c *EmbeddingCache) Put(ctx context.Context, text string, embedding []float32) {
	key := normalizeText(text)
	if key == "" || len(embedding) == 0 {
		return
	}

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		entry.Text = text
		entry.Embedding = embedding
	} else {
		now := c.now()
		c.entries[key] = &domain.EmbeddingEntry{
			Key:       key,
			Text:      text,
			Embedding: embedding,
			CacheUsage: domain.CacheUsage{
				CreatedAt:  now,
				LastUsedAt: now,
			},
		}
	}
	if len(c.entries) > c.capacity {
		c.trimLocked()
	}
	c.mu.Unlock()

	c.persist(ctx)
}

// trimLocked keeps the top entries by hit count after an overflow.
func (c *EmbeddingCache) trimLocked() {
	all := make([]*domain.EmbeddingEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		all = append(all, entry)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].HitCount != all[j].HitCount {
			return all[i].HitCount > all[j].HitCount
		}
		return all[i].LastUsedAt.After(all[j].LastUsedAt)
	})

	dropped := len(all) - c.keep
	for _, entry := range all[c.keep:] {
		delete(c.entries, entry.Key)
	}
	logger.Debug("Embedding cache trimmed: %d entries dropped", dropped)
}

// Stats reports cache statistics.
func (c *EmbeddingCache) Stats() domain.CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]*domain.EmbeddingEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}

	stats := domain.CacheStats{
		Name:             "embedding",
		Entries:          len(entries),
		Hits:             c.hits,
		Misses:           c.misses,
		EstimatedSavings: float64(c.hits) * embeddingCallCost,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	stats.TopEntries = topEntries(entries, func(e *domain.EmbeddingEntry) (string, int) {
		return e.Text, e.HitCount
	})
	return stats
}

// Flush persists all entries synchronously and waits for pending
// background writes.
func (c *EmbeddingCache) Flush(ctx context.Context) error {
	c.persister.Wait()
	if c.store == nil {
		return nil
	}
	return c.store.SaveAll(ctx, c.snapshot())
}

func (c *EmbeddingCache) snapshot() []domain.EmbeddingEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.EmbeddingEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		out = append(out, *entry)
	}
	return out
}

func (c *EmbeddingCache) persist(ctx context.Context) {
	if c.store == nil {
		return
	}
	entries := c.snapshot()
	c.persister.Add(1)
	go func() {
		defer c.persister.Done()
		if err := c.store.SaveAll(context.WithoutCancel(ctx), entries); err != nil {
			logger.Warn("Embedding cache persistence failed: %v", err)
		}
	}()
}

// topEntries builds the top-N reuse report shared by all caches.
func topEntries[E any](entries []E, keyHits func(E) (string, int)) []domain.CacheTopEntry {
	const topN = 5

	top := make([]domain.CacheTopEntry, 0, len(entries))
	for _, e := range entries {
		key, hits := keyHits(e)
		if hits > 0 {
			top = append(top, domain.CacheTopEntry{Key: key, Hits: hits})
		}
	}
	sort.Slice(top, func(i, j int) bool { return top[i].Hits > top[j].Hits })
	if len(top) > topN {
		top = top[:topN]
	}
	return top
}
