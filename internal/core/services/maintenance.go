package services

import (
	"context"
	"fmt"

	"github.com/aula-labs/aula-cli/internal/core/domain"
	"github.com/aula-labs/aula-cli/internal/core/ports/driven"
	"github.com/aula-labs/aula-cli/internal/core/ports/driving"
	"github.com/aula-labs/aula-cli/internal/logger"
)

// Ensure MaintenanceService implements the interface.
var _ driving.MaintenanceService = (*MaintenanceService)(nil)

// Flushable is anything holding dirty state that must become durable on
// shutdown.
type Flushable interface {
	Flush(ctx context.Context) error
}

// MaintenanceService groups the operational surface: statistics and
// explicit maintenance operations over the indices and caches.
type MaintenanceService struct {
	vector         driven.VectorIndex
	embeddingCache driven.EmbeddingCache
	faqCache       driven.FAQCache
	responseCache  driven.ResponseCache
	extra          []Flushable
}

// NewMaintenanceService creates a new maintenance service. The extra
// flushables (lexical index, answer service) join the Flush fan-out.
func NewMaintenanceService(
	vector driven.VectorIndex,
	embeddingCache driven.EmbeddingCache,
	faqCache driven.FAQCache,
	responseCache driven.ResponseCache,
	extra ...Flushable,
) *MaintenanceService {
	return &MaintenanceService{
		vector:         vector,
		embeddingCache: embeddingCache,
		faqCache:       faqCache,
		responseCache:  responseCache,
		extra:          extra,
	}
}

// RebuildVectorIndex forces a full rebuild of the proximity graph.
func (s *MaintenanceService) RebuildVectorIndex(ctx context.Context) error {
	logger.Section("Vector Index Rebuild")
	if err := s.vector.Rebuild(ctx); err != nil {
		return fmt.Errorf("rebuilding vector index: %w", err)
	}
	stats := s.vector.Stats()
	logger.Info("Rebuilt: %d vectors, avg degree %.1f", stats.Vectors, stats.AvgDegree)
	return nil
}

// CleanupCaches removes stale response-cache entries.
func (s *MaintenanceService) CleanupCaches(ctx context.Context, olderThanDays int) (int, error) {
	if olderThanDays <= 0 {
		return 0, fmt.Errorf("cleanup threshold must be positive: %w", domain.ErrInvalidInput)
	}
	removed := s.responseCache.Cleanup(ctx, olderThanDays)
	logger.Info("Cache cleanup removed %d entries older than %d days", removed, olderThanDays)
	return removed, nil
}

// InvalidateResponses removes response-cache entries for a corpus hash.
func (s *MaintenanceService) InvalidateResponses(ctx context.Context, corpusHash string) (int, error) {
	if corpusHash == "" {
		return 0, fmt.Errorf("corpus hash is required: %w", domain.ErrInvalidInput)
	}
	removed := s.responseCache.InvalidateHash(ctx, corpusHash)
	logger.Info("Invalidated %d cached responses for hash %.12s", removed, corpusHash)
	return removed, nil
}

// CacheStats reports statistics for all three semantic caches.
func (s *MaintenanceService) CacheStats(ctx context.Context) []domain.CacheStats {
	return []domain.CacheStats{
		s.embeddingCache.Stats(),
		s.faqCache.Stats(),
		s.responseCache.Stats(),
	}
}

// IndexStats reports vector index statistics.
func (s *MaintenanceService) IndexStats(ctx context.Context) domain.IndexStats {
	return s.vector.Stats()
}

// Flush persists all dirty state and waits for completion.
func (s *MaintenanceService) Flush(ctx context.Context) error {
	flushables := append([]Flushable{
		s.embeddingCache,
		s.faqCache,
		s.responseCache,
		s.vector,
	}, s.extra...)

	var firstErr error
	for _, f := range flushables {
		if f == nil {
			continue
		}
		if err := f.Flush(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("flushing: %w", err)
		}
	}
	return firstErr
}
