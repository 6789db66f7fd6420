package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aula-labs/aula-cli/internal/core/domain"
)

func TestStatsCommand(t *testing.T) {
	oldService := maintenanceService
	maintenanceService = &mockMaintenanceService{
		cacheStats: []domain.CacheStats{
			{Name: "embedding", Entries: 12, Hits: 8, Misses: 2, HitRate: 0.8, EstimatedSavings: 0.0008,
				TopEntries: []domain.CacheTopEntry{{Key: "cual es el horario de calculo", Hits: 5}}},
			{Name: "faq", Entries: 3},
			{Name: "response", Entries: 7, Hits: 4, Misses: 4, HitRate: 0.5, EstimatedSavings: 0.008},
		},
		indexStats: domain.IndexStats{Vectors: 240, Dimension: 1536, AvgDegree: 11.5, GraphBuilt: true},
	}
	defer func() { maintenanceService = oldService }()

	out, err := executeCommand("stats")
	require.NoError(t, err)

	assert.Contains(t, out, "[embedding]")
	assert.Contains(t, out, "8/2 (80% hit rate)")
	assert.Contains(t, out, "cual es el horario de calculo")
	assert.Contains(t, out, "[response]")
	assert.Contains(t, out, "Vectors: 240")
	assert.Contains(t, out, "avg degree 11.5")
}

func TestStatsCommandLinearIndex(t *testing.T) {
	oldService := maintenanceService
	maintenanceService = &mockMaintenanceService{
		indexStats: domain.IndexStats{Vectors: 12, Dimension: 4},
	}
	defer func() { maintenanceService = oldService }()

	out, err := executeCommand("stats")
	require.NoError(t, err)
	assert.Contains(t, out, "linear scan")
}

func TestMaintainRebuildCommand(t *testing.T) {
	oldService := maintenanceService
	mock := &mockMaintenanceService{}
	maintenanceService = mock
	defer func() { maintenanceService = oldService }()

	out, err := executeCommand("maintain", "rebuild")
	require.NoError(t, err)
	assert.True(t, mock.rebuilt)
	assert.Contains(t, out, "rebuilt")
}

func TestMaintainCleanupCommand(t *testing.T) {
	oldService := maintenanceService
	maintenanceService = &mockMaintenanceService{cleaned: 4}
	defer func() {
		maintenanceService = oldService
		cleanupDays = 30
	}()

	out, err := executeCommand("maintain", "cleanup", "--days", "15")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 4 stale cached answer(s).")
}

func TestMaintainInvalidateCommand(t *testing.T) {
	oldService := maintenanceService
	maintenanceService = &mockMaintenanceService{}
	defer func() { maintenanceService = oldService }()

	out, err := executeCommand("maintain", "invalidate", "abc123")
	require.NoError(t, err)
	assert.Contains(t, out, "Invalidated 1 cached answer(s).")
}
