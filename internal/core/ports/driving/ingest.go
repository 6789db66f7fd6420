package driving

import (
	"context"

	"github.com/aula-labs/aula-cli/internal/core/domain"
)

// IngestService accepts extracted documents from the upstream pipeline,
// chunks them, and populates the lexical and vector indices. Ingestion is
// the single writer; it is expected to be serialised per process.
type IngestService interface {
	// Ingest (re)indexes one extracted document.
	Ingest(ctx context.Context, extracted domain.ExtractedDocument) (*domain.Document, error)

	// Remove deletes a document and every index entry derived from it.
	Remove(ctx context.Context, documentID string) error

	// ListDocuments returns all ingested documents.
	ListDocuments(ctx context.Context) ([]domain.Document, error)
}
