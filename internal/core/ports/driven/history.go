package driven

import (
	"context"

	"github.com/aula-labs/aula-cli/internal/core/domain"
)

// HistoryStore is the append-only log of generated answers.
// Only completions that actually ran are recorded; cache and FAQ hits are not.
type HistoryStore interface {
	// Append records one answered question.
	Append(ctx context.Context, entry domain.HistoryEntry) error

	// List returns the most recent entries for a requester, newest first.
	// An empty requesterID lists across all requesters.
	List(ctx context.Context, requesterID string, limit int) ([]domain.HistoryEntry, error)
}

// ConversationStore persists the rolling per-requester conversation memory.
type ConversationStore interface {
	// Get returns the memory for a requester, or domain.ErrNotFound.
	Get(ctx context.Context, requesterID string) (*domain.ConversationMemory, error)

	// Save stores or updates a requester's memory.
	Save(ctx context.Context, memory *domain.ConversationMemory) error
}
