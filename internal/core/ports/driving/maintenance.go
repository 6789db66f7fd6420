package driving

import (
	"context"

	"github.com/aula-labs/aula-cli/internal/core/domain"
)

// MaintenanceService exposes the read-mostly operational surface:
// statistics for dashboards and explicit maintenance operations.
type MaintenanceService interface {
	// RebuildVectorIndex forces a full rebuild of the proximity graph.
	RebuildVectorIndex(ctx context.Context) error

	// CleanupCaches removes response-cache entries unseen for more than
	// olderThanDays days (well-used entries are spared) and returns how
	// many were removed.
	CleanupCaches(ctx context.Context, olderThanDays int) (int, error)

	// InvalidateResponses removes response-cache entries for a given
	// corpus hash and returns how many were removed.
	InvalidateResponses(ctx context.Context, corpusHash string) (int, error)

	// CacheStats reports statistics for all three semantic caches.
	CacheStats(ctx context.Context) []domain.CacheStats

	// IndexStats reports vector index statistics.
	IndexStats(ctx context.Context) domain.IndexStats

	// Flush persists all dirty state and waits for completion. Called on
	// clean shutdown so fire-and-forget writes become durable.
	Flush(ctx context.Context) error
}
