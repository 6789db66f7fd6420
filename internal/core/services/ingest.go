package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aula-labs/aula-cli/internal/core/domain"
	"github.com/aula-labs/aula-cli/internal/core/ports/driven"
	"github.com/aula-labs/aula-cli/internal/core/ports/driving"
	"github.com/aula-labs/aula-cli/internal/logger"
	"github.com/aula-labs/aula-cli/internal/postprocessors/chunker"
	"golang.org/x/time/rate"
)

const (
	// embedBatchSize caps how many chunk texts go into one provider call.
	embedBatchSize = 64

	// embedBatchesPerSecond throttles consecutive provider calls during
	// bulk ingestion.
	embedBatchesPerSecond = 2
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService chunks extracted documents and populates the lexical and
// vector indices. A process-level mutex serialises ingestion: it is the
// single writer, queries read concurrently.
type IngestService struct {
	mu        sync.Mutex
	docStore  driven.DocumentStore
	chunker   *chunker.Processor
	lexical   driven.LexicalIndex
	vector    driven.VectorIndex
	embedding driven.EmbeddingService
	limiter   *rate.Limiter
	now       func() time.Time
}

// NewIngestService creates a new ingest service.
// The embedding parameter is optional (can be nil); without it documents
// are only indexed lexically.
func NewIngestService(
	docStore driven.DocumentStore,
	processor *chunker.Processor,
	lexical driven.LexicalIndex,
	vector driven.VectorIndex,
	embedding driven.EmbeddingService,
) *IngestService {
	return &IngestService{
		docStore:  docStore,
		chunker:   processor,
		lexical:   lexical,
		vector:    vector,
		embedding: embedding,
		limiter:   rate.NewLimiter(embedBatchesPerSecond, 1),
		now:       time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (s *IngestService) SetClock(now func() time.Time) {
	s.now = now
}

// Ingest (re)indexes one extracted document: chunk, embed, persist, then
// replace the document's lexical and vector index entries.
func (s *IngestService) Ingest(ctx context.Context, extracted domain.ExtractedDocument) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if extracted.ID == "" {
		return nil, fmt.Errorf("document id is required: %w", domain.ErrInvalidInput)
	}
	if extracted.Name == "" {
		return nil, fmt.Errorf("document name is required: %w", domain.ErrInvalidInput)
	}

	logger.Section("Document Ingestion")
	logger.Info("Ingesting %q (%s, origin %s)", extracted.Name, extracted.ID, extracted.Origin)

	now := s.now().UTC()
	doc := &domain.Document{
		ID:        extracted.ID,
		Name:      extracted.Name,
		Content:   s.flattenText(extracted),
		Origin:    extracted.Origin,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Re-ingestion keeps the original creation time.
	if existing, err := s.docStore.GetDocument(ctx, extracted.ID); err == nil {
		doc.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("loading existing document: %w", err)
	}

	chunks := s.chunker.Chunk(extracted)
	logger.Info("Produced %d chunks", len(chunks))

	s.embedChunks(ctx, chunks)

	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("saving document: %w", err)
	}
	if err := s.docStore.SaveChunks(ctx, doc.ID, chunks); err != nil {
		return nil, fmt.Errorf("saving chunks: %w", err)
	}

	if err := s.lexical.IndexDocument(ctx, *doc, chunks); err != nil {
		return nil, fmt.Errorf("indexing document: %w", err)
	}

	if err := s.vector.RemoveByDocument(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("clearing vector entries: %w", err)
	}
	added := 0
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			continue
		}
		if _, err := s.vector.Add(ctx, chunk.Embedding, driven.VectorMeta{
			DocumentID: doc.ID,
			ChunkID:    chunk.ID,
			SourceText: chunk.Content,
			Tags:       map[string]string{"type": string(chunk.Type)},
		}); err != nil {
			return nil, fmt.Errorf("adding chunk vector: %w", err)
		}
		added++
	}
	logger.Info("Indexed %q: %d lexical entries, %d vectors", doc.Name, len(chunks), added)

	return doc, nil
}

// Remove deletes a document and every index entry derived from it.
func (s *IngestService) Remove(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.docStore.GetDocument(ctx, documentID); err != nil {
		return fmt.Errorf("loading document: %w", err)
	}

	if err := s.lexical.RemoveDocument(ctx, documentID); err != nil {
		return fmt.Errorf("removing lexical entries: %w", err)
	}
	if err := s.vector.RemoveByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("removing vector entries: %w", err)
	}
	if err := s.docStore.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}

	logger.Info("Removed document %s", documentID)
	return nil
}

// ListDocuments returns all ingested documents.
func (s *IngestService) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	docs, err := s.docStore.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return docs, nil
}

// embedChunks requests embeddings in rate-limited batches. A failed batch
// is not fatal: its chunks stay searchable lexically.
func (s *IngestService) embedChunks(ctx context.Context, chunks []domain.Chunk) {
	if s.embedding == nil || len(chunks) == 0 {
		return
	}

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		if err := s.limiter.Wait(ctx); err != nil {
			logger.Warn("Embedding cancelled: %v", err)
			return
		}

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Content
		}

		embeddings, err := s.embedding.EmbedBatch(ctx, texts)
		if err != nil {
			logger.Warn("Embedding batch failed, indexing lexically only: %v", err)
			continue
		}
		for i := range batch {
			if i < len(embeddings) {
				batch[i].Embedding = embeddings[i]
			}
		}
	}
}

// flattenText derives the stored document content from whatever structure
// the extraction pipeline supplied.
func (s *IngestService) flattenText(extracted domain.ExtractedDocument) string {
	if extracted.Text != "" {
		return extracted.Text
	}

	var b strings.Builder
	for _, section := range extracted.Sections {
		if section.Heading != "" {
			b.WriteString(section.Heading)
			b.WriteString("\n")
		}
		b.WriteString(section.Body)
		b.WriteString("\n\n")
	}
	for _, row := range extracted.Rows {
		b.WriteString(row)
		b.WriteString("\n")
	}
	for _, page := range extracted.Pages {
		if page.Title != "" {
			b.WriteString(page.Title)
			b.WriteString("\n")
		}
		b.WriteString(page.Text)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}
