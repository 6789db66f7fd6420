package services

import (
	"context"
	"errors"
	"sync"

	"github.com/aula-labs/aula-cli/internal/core/domain"
	"github.com/aula-labs/aula-cli/internal/core/ports/driven"
)

type mockDocStore struct {
	mu     sync.Mutex
	docs   map[string]domain.Document
	chunks map[string][]domain.Chunk
}

func newMockDocStore() *mockDocStore {
	return &mockDocStore{
		docs:   make(map[string]domain.Document),
		chunks: make(map[string][]domain.Chunk),
	}
}

func (m *mockDocStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = *doc
	return nil
}

func (m *mockDocStore) SaveChunks(_ context.Context, documentID string, chunks []domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks[documentID] = append([]domain.Chunk(nil), chunks...)
	return nil
}

func (m *mockDocStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

func (m *mockDocStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Chunk(nil), m.chunks[documentID]...), nil
}

func (m *mockDocStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, chunks := range m.chunks {
		for _, chunk := range chunks {
			if chunk.ID == id {
				return &chunk, nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocStore) DeleteDocument(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	delete(m.chunks, id)
	return nil
}

func (m *mockDocStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := make([]domain.Document, 0, len(m.docs))
	for _, doc := range m.docs {
		docs = append(docs, doc)
	}
	return docs, nil
}

type mockLexical struct {
	mu       sync.Mutex
	indexed  map[string][]domain.Chunk
	results  []domain.RankedChunk
	queries  []string
	flushed  bool
	indexErr error
}

func newMockLexical() *mockLexical {
	return &mockLexical{indexed: make(map[string][]domain.Chunk)}
}

func (m *mockLexical) IndexDocument(_ context.Context, doc domain.Document, chunks []domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexErr != nil {
		return m.indexErr
	}
	m.indexed[doc.ID] = append([]domain.Chunk(nil), chunks...)
	return nil
}

func (m *mockLexical) RemoveDocument(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.indexed, documentID)
	return nil
}

func (m *mockLexical) Search(_ context.Context, query string, _ driven.LexicalSearchOptions) ([]domain.RankedChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)
	return m.results, nil
}

func (m *mockLexical) DocumentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.indexed)
}

func (m *mockLexical) Flush(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushed = true
	return nil
}

func (m *mockLexical) Close() error { return nil }

type addedVector struct {
	embedding []float32
	meta      driven.VectorMeta
}

type mockVector struct {
	mu        sync.Mutex
	added     []addedVector
	hits      []driven.VectorHit
	rebuilt   int
	flushed   bool
	removed   []string
	searchErr error
}

func (m *mockVector) Add(_ context.Context, embedding []float32, meta driven.VectorMeta) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.added = append(m.added, addedVector{embedding: embedding, meta: meta})
	return len(m.added) - 1, nil
}

func (m *mockVector) Search(_ context.Context, _ []float32, _ int) ([]driven.VectorHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.hits, nil
}

func (m *mockVector) RemoveByDocument(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, documentID)
	survivors := m.added[:0]
	for _, v := range m.added {
		if v.meta.DocumentID != documentID {
			survivors = append(survivors, v)
		}
	}
	m.added = survivors
	return nil
}

func (m *mockVector) Rebuild(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rebuilt++
	return nil
}

func (m *mockVector) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.hits) > 0 {
		return len(m.hits)
	}
	return len(m.added)
}

func (m *mockVector) Stats() domain.IndexStats {
	return domain.IndexStats{Vectors: m.Size()}
}

func (m *mockVector) Flush(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushed = true
	return nil
}

func (m *mockVector) Close() error { return nil }

type mockEmbeddingCache struct {
	mu      sync.Mutex
	entries map[string][]float32
	lookups int
	puts    int
	flushed bool
}

func newMockEmbeddingCache() *mockEmbeddingCache {
	return &mockEmbeddingCache{entries: make(map[string][]float32)}
}

func (m *mockEmbeddingCache) Lookup(_ context.Context, text string) ([]float32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	embedding, ok := m.entries[text]
	return embedding, ok
}

func (m *mockEmbeddingCache) Put(_ context.Context, text string, embedding []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	m.entries[text] = embedding
}

func (m *mockEmbeddingCache) Stats() domain.CacheStats {
	return domain.CacheStats{Name: "embedding", Entries: len(m.entries)}
}

func (m *mockEmbeddingCache) Flush(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushed = true
	return nil
}

type mockFAQCache struct {
	mu      sync.Mutex
	match   *domain.FAQEntry
	matches int
	flushed bool
}

func (m *mockFAQCache) Match(_ context.Context, _ []float32) (*domain.FAQEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matches++
	if m.match == nil {
		return nil, false
	}
	return m.match, true
}

func (m *mockFAQCache) Add(_ context.Context, _ domain.FAQEntry) error    { return nil }
func (m *mockFAQCache) Update(_ context.Context, _ domain.FAQEntry) error { return nil }
func (m *mockFAQCache) SetEnabled(_ context.Context, _ string, _ bool) error {
	return nil
}
func (m *mockFAQCache) List(_ context.Context) []domain.FAQEntry { return nil }
func (m *mockFAQCache) Stats() domain.CacheStats                 { return domain.CacheStats{Name: "faq"} }
func (m *mockFAQCache) Flush(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushed = true
	return nil
}

type mockResponseCache struct {
	mu          sync.Mutex
	hit         *domain.ResponseEntry
	puts        []domain.ResponseEntry
	lookups     int
	invalidated []string
	cleanedDays int
	cleanupN    int
	flushed     bool
}

func (m *mockResponseCache) Lookup(_ context.Context, _ []float32, corpusHash string) (*domain.ResponseEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.hit == nil || m.hit.CorpusHash != corpusHash {
		return nil, false
	}
	return m.hit, true
}

func (m *mockResponseCache) Put(_ context.Context, entry domain.ResponseEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts = append(m.puts, entry)
}

func (m *mockResponseCache) InvalidateHash(_ context.Context, corpusHash string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = append(m.invalidated, corpusHash)
	return 2
}

func (m *mockResponseCache) Cleanup(_ context.Context, olderThanDays int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanedDays = olderThanDays
	return m.cleanupN
}

func (m *mockResponseCache) Stats() domain.CacheStats {
	return domain.CacheStats{Name: "response", Entries: len(m.puts)}
}

func (m *mockResponseCache) Flush(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushed = true
	return nil
}

type mockEmbedder struct {
	mu         sync.Mutex
	dimensions int
	err        error
	batchErr   error
	calls      int
	batchCalls int
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{dimensions: 4}
}

// embed derives a deterministic vector from the text length.
func (m *mockEmbedder) embed(text string) []float32 {
	v := make([]float32, m.dimensions)
	for i := range v {
		v[i] = float32((len(text)+i)%7) + 1
	}
	return v
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.embed(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = m.embed(text)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int                 { return m.dimensions }
func (m *mockEmbedder) ModelName() string               { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error    { return nil }
func (m *mockEmbedder) Close() error                    { return nil }

type completionCall struct {
	system string
	user   string
}

type mockCompletion struct {
	mu             sync.Mutex
	response       string
	summary        string
	err            error
	calls          []completionCall
	summariseCalls int
}

func (m *mockCompletion) Complete(_ context.Context, system, user string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, completionCall{system: system, user: user})
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockCompletion) Summarise(_ context.Context, _ string, _ int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summariseCalls++
	if m.summary == "" {
		return "", errors.New("no summary configured")
	}
	return m.summary, nil
}

func (m *mockCompletion) ModelName() string            { return "mock-completion" }
func (m *mockCompletion) Ping(_ context.Context) error { return nil }
func (m *mockCompletion) Close() error                 { return nil }

type mockPrompts struct{}

func (m *mockPrompts) Load(name string) (string, error) {
	return "system prompt: " + name, nil
}

func (m *mockPrompts) Reload() {}

type mockHistory struct {
	mu      sync.Mutex
	entries []domain.HistoryEntry
}

func (m *mockHistory) Append(_ context.Context, entry domain.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockHistory) List(_ context.Context, requesterID string, limit int) ([]domain.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.HistoryEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if requesterID != "" && m.entries[i].RequesterID != requesterID {
			continue
		}
		out = append(out, m.entries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type mockConversations struct {
	mu       sync.Mutex
	memories map[string]domain.ConversationMemory
}

func newMockConversations() *mockConversations {
	return &mockConversations{memories: make(map[string]domain.ConversationMemory)}
}

func (m *mockConversations) Get(_ context.Context, requesterID string) (*domain.ConversationMemory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	memory, ok := m.memories[requesterID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := memory
	copied.Turns = append([]domain.ConversationTurn(nil), memory.Turns...)
	return &copied, nil
}

func (m *mockConversations) Save(_ context.Context, memory *domain.ConversationMemory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *memory
	copied.Turns = append([]domain.ConversationTurn(nil), memory.Turns...)
	m.memories[memory.RequesterID] = copied
	return nil
}
