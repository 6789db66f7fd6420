package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aula-labs/aula-cli/internal/core/domain"
	"github.com/aula-labs/aula-cli/internal/core/ports/driven"
	"github.com/aula-labs/aula-cli/internal/logger"
)

var _ driven.FAQCache = (*FAQCache)(nil)

// DefaultFAQSimilarity is the cosine threshold for FAQ matching.
const DefaultFAQSimilarity = 0.85

// FAQCache matches incoming questions against curated question/answer
// pairs by cosine similarity of their embeddings.
type FAQCache struct {
	mu        sync.RWMutex
	entries   map[string]*domain.FAQEntry
	threshold float64
	hits      int
	misses    int
	store     driven.FAQStore
	persister sync.WaitGroup
	now       func() time.Time
}

// FAQOption configures the cache.
type FAQOption func(*FAQCache)

// WithFAQStore attaches a persistence backend.
func WithFAQStore(store driven.FAQStore) FAQOption {
	return func(c *FAQCache) { c.store = store }
}

// WithFAQSimilarity overrides the cosine acceptance threshold.
func WithFAQSimilarity(threshold float64) FAQOption {
	return func(c *FAQCache) { c.threshold = threshold }
}

// WithFAQClock overrides the time source, for tests.
func WithFAQClock(now func() time.Time) FAQOption {
	return func(c *FAQCache) { c.now = now }
}

// NewFAQCache creates an empty FAQ cache.
func NewFAQCache(opts ...FAQOption) *FAQCache {
	c := &FAQCache{
		entries:   make(map[string]*domain.FAQEntry),
		threshold: DefaultFAQSimilarity,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load restores persisted entries.
func (c *FAQCache) Load(ctx context.Context) error {
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
	logger.Info("FAQ cache loaded: %d entries", len(c.entries))
	return nil
}

// Match returns the single best enabled entry above the similarity
// threshold for the query embedding.
func (c *FAQCache) Match(_ context.Context, embedding []float32) (*domain.FAQEntry, bool) {
	if len(embedding) == 0 {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var best *domain.FAQEntry
	bestSim := 0.0
	for _, entry := range c.entries {
		if !entry.Enabled {
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

// Add stores a new entry. A missing id is generated; a zero Enabled flag
// is not defaulted, callers decide.
func (c *FAQCache) Add(ctx context.Context, entry domain.FAQEntry) error {
	if entry.Question == "" || entry.Answer == "" {
		return fmt.Errorf("faq entry needs question and answer: %w", domain.ErrInvalidInput)
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	c.mu.Lock()
	if _, ok := c.entries[entry.ID]; ok {
		c.mu.Unlock()
		return fmt.Errorf("faq entry %s: %w", entry.ID, domain.ErrAlreadyExists)
	}
	now := c.now()
	entry.CreatedAt = now
	entry.LastUsedAt = now
	entry.HitCount = 0
	c.entries[entry.ID] = &entry
	c.mu.Unlock()

	c.persist(ctx)
	return nil
}

// Update edits an existing entry's question, embedding, answer, and
// category without touching its hit statistics.
func (c *FAQCache) Update(ctx context.Context, entry domain.FAQEntry) error {
	c.mu.Lock()
	existing, ok := c.entries[entry.ID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("faq entry %s: %w", entry.ID, domain.ErrNotFound)
	}
	existing.Question = entry.Question
	existing.Embedding = entry.Embedding
	existing.Answer = entry.Answer
	existing.Category = entry.Category
	c.mu.Unlock()

	c.persist(ctx)
	return nil
}

// SetEnabled toggles an entry in or out of matching.
func (c *FAQCache) SetEnabled(ctx context.Context, id string, enabled bool) error {
	c.mu.Lock()
	entry, ok := c.entries[id]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("faq entry %s: %w", id, domain.ErrNotFound)
	}
	entry.Enabled = enabled
	c.mu.Unlock()

	c.persist(ctx)
	return nil
}

// List returns all entries, enabled or not.
func (c *FAQCache) List(_ context.Context) []domain.FAQEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.FAQEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		out = append(out, *entry)
	}
	return out
}

// Stats reports cache statistics.
func (c *FAQCache) Stats() domain.CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]*domain.FAQEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}

	stats := domain.CacheStats{
		Name:             "faq",
		Entries:          len(entries),
		Hits:             c.hits,
		Misses:           c.misses,
		EstimatedSavings: float64(c.hits) * completionCallCost,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	stats.TopEntries = topEntries(entries, func(e *domain.FAQEntry) (string, int) {
		return e.Question, e.HitCount
	})
	return stats
}

// Flush persists all entries synchronously and waits for pending
// background writes.
func (c *FAQCache) Flush(ctx context.Context) error {
	c.persister.Wait()
	if c.store == nil {
		return nil
	}
	return c.store.SaveAll(ctx, c.List(ctx))
}

func (c *FAQCache) persist(ctx context.Context) {
	if c.store == nil {
		return
	}
	entries := c.List(ctx)
	c.persister.Add(1)
	go func() {
		defer c.persister.Done()
		if err := c.store.SaveAll(context.WithoutCancel(ctx), entries); err != nil {
			logger.Warn("FAQ cache persistence failed: %v", err)
		}
	}()
}
