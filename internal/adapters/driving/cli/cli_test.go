package cli

import (
	"bytes"
	"context"

	"github.com/aula-labs/aula-cli/internal/core/domain"
)

// executeCommand runs the root command with args and captures its output.
func executeCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

type mockAnswerService struct {
	answer    *domain.Answer
	err       error
	question  string
	requester string
}

func (m *mockAnswerService) Answer(_ context.Context, question, requesterID string) (*domain.Answer, error) {
	m.question = question
	m.requester = requesterID
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

type mockIngestService struct {
	ingested  []domain.ExtractedDocument
	removed   []string
	docs      []domain.Document
	ingestErr error
	removeErr error
}

func (m *mockIngestService) Ingest(_ context.Context, extracted domain.ExtractedDocument) (*domain.Document, error) {
	if m.ingestErr != nil {
		return nil, m.ingestErr
	}
	m.ingested = append(m.ingested, extracted)
	return &domain.Document{ID: extracted.ID, Name: extracted.Name}, nil
}

func (m *mockIngestService) Remove(_ context.Context, documentID string) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	m.removed = append(m.removed, documentID)
	return nil
}

func (m *mockIngestService) ListDocuments(_ context.Context) ([]domain.Document, error) {
	return m.docs, nil
}

type mockMaintenanceService struct {
	cacheStats []domain.CacheStats
	indexStats domain.IndexStats
	rebuilt    bool
	cleaned    int
	flushed    bool
}

func (m *mockMaintenanceService) RebuildVectorIndex(_ context.Context) error {
	m.rebuilt = true
	return nil
}

func (m *mockMaintenanceService) CleanupCaches(_ context.Context, _ int) (int, error) {
	return m.cleaned, nil
}

func (m *mockMaintenanceService) InvalidateResponses(_ context.Context, _ string) (int, error) {
	return 1, nil
}

func (m *mockMaintenanceService) CacheStats(_ context.Context) []domain.CacheStats {
	return m.cacheStats
}

func (m *mockMaintenanceService) IndexStats(_ context.Context) domain.IndexStats {
	return m.indexStats
}

func (m *mockMaintenanceService) Flush(_ context.Context) error {
	m.flushed = true
	return nil
}
