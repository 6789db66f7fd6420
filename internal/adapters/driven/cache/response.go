package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aula-labs/aula-cli/internal/core/domain"
	"github.com/aula-labs/aula-cli/internal/core/ports/driven"
	"github.com/aula-labs/aula-cli/internal/logger"
)

var _ driven.ResponseCache = (*ResponseCache)(nil)

// Response cache defaults.
const (
	// DefaultResponseCapacity bounds the entry count.
	DefaultResponseCapacity = 500

	// DefaultResponseSimilarity is the cosine threshold for reusing a
	// generated answer.
	DefaultResponseSimilarity = 0.90

	// DefaultCleanupDays is the age threshold for time-based cleanup.
	DefaultCleanupDays = 30

	// cleanupHitFloor spares frequently reused entries from cleanup.
	cleanupHitFloor = 5

	// completionCallCost approximates one avoided completion call in USD.
	completionCallCost = 0.002
)

// ResponseCache reuses full generated answers. An entry only matches while
// the corpus hash it was generated against is still current; a changed
// document set invalidates it implicitly.
type ResponseCache struct {
	mu        sync.RWMutex
	entries   map[string]*domain.ResponseEntry
	capacity  int
	threshold float64
	hits      int
	misses    int
	store     driven.ResponseCacheStore
	persister sync.WaitGroup
	now       func() time.Time
}

// ResponseOption configures the cache.
type ResponseOption func(*ResponseCache)

// WithResponseStore attaches a persistence backend.
func WithResponseStore(store driven.ResponseCacheStore) ResponseOption {
	return func(c *ResponseCache) { c.store = store }
}

// WithResponseCapacity overrides the entry bound.
func WithResponseCapacity(capacity int) ResponseOption {
	return func(c *ResponseCache) { c.capacity = capacity }
}

// WithResponseSimilarity overrides the cosine acceptance threshold.
func WithResponseSimilarity(threshold float64) ResponseOption {
	return func(c *ResponseCache) { c.threshold = threshold }
}

// WithResponseClock overrides the time source, for tests.
func WithResponseClock(now func() time.Time) ResponseOption {
	return func(c *ResponseCache) { c.now = now }
}

// NewResponseCache creates an empty response cache.
func NewResponseCache(opts ...ResponseOption) *ResponseCache {
	c := &ResponseCache{
		entries:   make(map[string]*domain.ResponseEntry),
		capacity:  DefaultResponseCapacity,
		threshold: DefaultResponseSimilarity,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load restores persisted entries.
func (c *ResponseCache) Load(ctx context.Context) error {
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
		c.entries[entry.ID] = &entry
	}
	logger.Info("Response cache loaded: %d entries", len(c.entries))
	return nil
}

// Lookup returns the best cached answer above the similarity threshold.
// Entries with a different corpus hash never match, even for an identical
// question embedding.
func (c *ResponseCache) Lookup(_ context.Context, embedding []float32, corpusHash string) (*domain.ResponseEntry, bool) {
	if len(embedding) == 0 {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var best *domain.ResponseEntry
	bestSim := 0.0
	for _, entry := range c.entries {
		if entry.CorpusHash != corpusHash {
			continue
		}
		if sim := cosineSimilarity(embedding, entry.Embedding); sim > bestSim {
			best = entry
			bestSim = sim
		}
	}

	if best == nil || bestSim < c.threshold {
		c.misses++
		return nil, false
	}

	best.Touch(c.now())
	c.hits++
	matched := *best
	return &matched, true
}

// Put stores a generated answer, evicting the least-reused entries when
// the cache overflows.
func (c *ResponseCache) Put(ctx context.Context, entry domain.ResponseEntry) {
	if entry.Answer == "" || len(entry.Embedding) == 0 {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := c.now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.LastUsedAt.IsZero() {
		entry.LastUsedAt = now
	}

	c.mu.Lock()
	c.entries[entry.ID] = &entry
	if len(c.entries) > c.capacity {
		c.trimLocked()
	}
	c.mu.Unlock()

	c.persist(ctx)
}

// trimLocked keeps the capacity's worth of entries, preferring hit count
// then recency.
func (c *ResponseCache) trimLocked() {
	all := make([]*domain.ResponseEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		all = append(all, entry)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].HitCount != all[j].HitCount {
			return all[i].HitCount > all[j].HitCount
		}
		return all[i].LastUsedAt.After(all[j].LastUsedAt)
	})

	for _, entry := range all[c.capacity:] {
		delete(c.entries, entry.ID)
	}
}

// InvalidateHash removes all entries with the given corpus hash.
func (c *ResponseCache) InvalidateHash(ctx context.Context, corpusHash string) int {
	c.mu.Lock()
	removed := 0
	for id, entry := range c.entries {
		if entry.CorpusHash == corpusHash {
			delete(c.entries, id)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		logger.Debug("Response cache invalidated: %d entries for hash %s", removed, corpusHash)
		c.persist(ctx)
	}
	return removed
}

// Cleanup removes entries unseen for more than olderThanDays, sparing
// entries with enough accumulated hits.
func (c *ResponseCache) Cleanup(ctx context.Context, olderThanDays int) int {
	if olderThanDays <= 0 {
		olderThanDays = DefaultCleanupDays
	}
	cutoff := c.now().AddDate(0, 0, -olderThanDays)

	c.mu.Lock()
	removed := 0
	for id, entry := range c.entries {
		if entry.LastUsedAt.Before(cutoff) && entry.HitCount < cleanupHitFloor {
			delete(c.entries, id)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		logger.Debug("Response cache cleanup: %d entries removed", removed)
		c.persist(ctx)
	}
	return removed
}

// Stats reports cache statistics.
func (c *ResponseCache) Stats() domain.CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]*domain.ResponseEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}

	stats := domain.CacheStats{
		Name:             "response",
		Entries:          len(entries),
		Hits:             c.hits,
		Misses:           c.misses,
		EstimatedSavings: float64(c.hits) * completionCallCost,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	stats.TopEntries = topEntries(entries, func(e *domain.ResponseEntry) (string, int) {
		return e.Question, e.HitCount
	})
	return stats
}

// Flush persists all entries synchronously and waits for pending
// background writes.
func (c *ResponseCache) Flush(ctx context.Context) error {
	c.persister.Wait()
	if c.store == nil {
		return nil
	}
	return c.store.SaveAll(ctx, c.snapshot())
}

func (c *ResponseCache) snapshot() []domain.ResponseEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.ResponseEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		out = append(out, *entry)
	}
	return out
}

func (c *ResponseCache) persist(ctx context.Context) {
	if c.store == nil {
		return
	}
	entries := c.snapshot()
	c.persister.Add(1)
	go func() {
		defer c.persister.Done()
		if err := c.store.SaveAll(context.WithoutCancel(ctx), entries); err != nil {
			logger.Warn("Response cache persistence failed: %v", err)
		}
	}()
}
