package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aula-labs/aula-cli/internal/core/domain"
	"github.com/aula-labs/aula-cli/internal/core/ports/driven"
	"github.com/aula-labs/aula-cli/internal/core/ports/driving"
	"github.com/aula-labs/aula-cli/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.AnswerService = (*AnswerService)(nil)

const (
	// DefaultContextWindow is how many adjacent chunks on each side of the
	// top hit get pulled into the completion context.
	DefaultContextWindow = 2

	// DefaultMemoryThreshold is the conversation-memory size (characters)
	// past which older turns are summarised away.
	DefaultMemoryThreshold = 2000

	// DefaultSummaryLength bounds the summarised memory.
	DefaultSummaryLength = 500

	// maxCitations caps how many citations an answer carries.
	maxCitations = 3

	// fallbackTopK is how many neighbours the semantic fallback retrieves.
	fallbackTopK = 5

	// wholeDocumentLimit truncates a document included wholesale by the
	// short-question heuristic.
	wholeDocumentLimit = 4000
)

// AnswerService resolves questions through the tiered pipeline: response
// cache, FAQ match, hierarchical lexical search, embedding-similarity
// fallback, each grounded tier ending in a generative completion.
type AnswerService struct {
	docStore       driven.DocumentStore
	lexical        driven.LexicalIndex
	vector         driven.VectorIndex
	embeddingCache driven.EmbeddingCache
	faqCache       driven.FAQCache
	responseCache  driven.ResponseCache
	embedding      driven.EmbeddingService
	completion     driven.CompletionService
	prompts        driven.PromptStore
	history        driven.HistoryStore
	conversations  driven.ConversationStore

	cachingEnabled  bool
	contextWindow   int
	memoryThreshold int
	summaryLength   int

	persister sync.WaitGroup
	now       func() time.Time
}

// AnswerOption configures an AnswerService.
type AnswerOption func(*AnswerService)

// WithCaching toggles the semantic caches. Retrieval and completion still
// run when disabled.
func WithCaching(enabled bool) AnswerOption {
	return func(s *AnswerService) { s.cachingEnabled = enabled }
}

// WithContextWindow sets how many adjacent chunks each side of the top hit
// joins the completion context.
func WithContextWindow(window int) AnswerOption {
	return func(s *AnswerService) {
		if window >= 0 {
			s.contextWindow = window
		}
	}
}

// WithMemoryThreshold sets the conversation-memory size that triggers
// summarisation.
func WithMemoryThreshold(chars int) AnswerOption {
	return func(s *AnswerService) {
		if chars > 0 {
			s.memoryThreshold = chars
		}
	}
}

// WithAnswerClock overrides the time source, for tests.
func WithAnswerClock(now func() time.Time) AnswerOption {
	return func(s *AnswerService) { s.now = now }
}

// NewAnswerService creates a new answer service. The embedding service may
// be nil; the semantic tiers and embedding-keyed caches are skipped then.
func NewAnswerService(
	docStore driven.DocumentStore,
	lexical driven.LexicalIndex,
	vector driven.VectorIndex,
	embeddingCache driven.EmbeddingCache,
	faqCache driven.FAQCache,
	responseCache driven.ResponseCache,
	embedding driven.EmbeddingService,
	completion driven.CompletionService,
	prompts driven.PromptStore,
	history driven.HistoryStore,
	conversations driven.ConversationStore,
	opts ...AnswerOption,
) *AnswerService {
	s := &AnswerService{
		docStore:        docStore,
		lexical:         lexical,
		vector:          vector,
		embeddingCache:  embeddingCache,
		faqCache:        faqCache,
		responseCache:   responseCache,
		embedding:       embedding,
		completion:      completion,
		prompts:         prompts,
		history:         history,
		conversations:   conversations,
		cachingEnabled:  true,
		contextWindow:   DefaultContextWindow,
		memoryThreshold: DefaultMemoryThreshold,
		summaryLength:   DefaultSummaryLength,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Answer resolves one question for a requester.
func (s *AnswerService) Answer(ctx context.Context, question, requesterID string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is empty: %w", domain.ErrInvalidInput)
	}
	if s.completion == nil {
		return nil, domain.ErrCompletionUnavailable
	}

	logger.Section("Answer")
	logger.Debug("Question from %s: %q", requesterID, question)

	docs, err := s.docStore.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	corpusHash := domain.CorpusHash(docs)

	embedding := s.questionEmbedding(ctx, question)

	// Tier 1: reuse a previously generated answer for the same corpus.
	if s.cachingEnabled && embedding != nil {
		if entry, ok := s.responseCache.Lookup(ctx, embedding, corpusHash); ok {
			logger.Info("Response cache hit (question %q)", entry.Question)
			return &domain.Answer{Text: entry.Answer, Source: domain.SourceResponseCache}, nil
		}
	}

	// Tier 2: curated FAQ entries.
	if s.cachingEnabled && embedding != nil {
		if entry, ok := s.faqCache.Match(ctx, embedding); ok {
			logger.Info("FAQ match %q", entry.Question)
			return &domain.Answer{Text: entry.Answer, Source: domain.SourceFAQ}, nil
		}
	}

	// Tier 3: hierarchical lexical search over the indexed corpus.
	if len(docs) > 0 {
		answer, err := s.answerFromLexical(ctx, question, requesterID, corpusHash, embedding)
		if err != nil {
			return nil, err
		}
		if answer != nil {
			return answer, nil
		}
	}

	// Tier 4: embedding-similarity fallback.
	if embedding != nil && s.vector.Size() > 0 {
		answer, err := s.answerFromSemantic(ctx, question, requesterID, corpusHash, embedding, docs)
		if err != nil {
			return nil, err
		}
		if answer != nil {
			return answer, nil
		}
	}

	return nil, domain.ErrNoRelevantContext
}

// Flush waits for pending history and memory writes. Called on shutdown.
func (s *AnswerService) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.persister.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// questionEmbedding embeds the question through the embedding cache.
// Any failure degrades to nil so embedding-keyed tiers are skipped.
func (s *AnswerService) questionEmbedding(ctx context.Context, question string) []float32 {
	if s.embedding == nil {
		return nil
	}

	if s.cachingEnabled {
		if cached, ok := s.embeddingCache.Lookup(ctx, question); ok {
			logger.Debug("Embedding cache hit")
			return cached
		}
	}

	embedding, err := s.embedding.Embed(ctx, question)
	if err != nil {
		logger.Warn("Question embedding failed, degrading to lexical only: %v", err)
		return nil
	}
	if s.cachingEnabled {
		s.embeddingCache.Put(ctx, question, embedding)
	}
	return embedding
}

func (s *AnswerService) answerFromLexical(ctx context.Context, question, requesterID, corpusHash string, embedding []float32) (*domain.Answer, error) {
	results, err := s.lexical.Search(ctx, question, driven.LexicalSearchOptions{})
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	if len(results) == 0 {
		logger.Debug("No lexical hit above the relevance floor")
		return nil, nil
	}

	answerCtx := s.buildContext(ctx, results)

	system, err := s.prompts.Load(driven.PromptAnswerSystem)
	if err != nil {
		return nil, fmt.Errorf("loading answer prompt: %w", err)
	}

	text, err := s.complete(ctx, system, question, requesterID, answerCtx.Text)
	if err != nil {
		return nil, err
	}

	s.afterCompletion(ctx, question, text, requesterID, corpusHash, embedding)

	return &domain.Answer{
		Text:      text,
		Source:    domain.SourceLexical,
		Citations: answerCtx.Citations,
	}, nil
}

func (s *AnswerService) answerFromSemantic(ctx context.Context, question, requesterID, corpusHash string, embedding []float32, docs []domain.Document) (*domain.Answer, error) {
	hits, err := s.vector.Search(ctx, embedding, fallbackTopK)
	if err != nil {
		logger.Warn("Vector search failed: %v", err)
		return nil, nil
	}
	if len(hits) == 0 {
		return nil, nil
	}

	names := make(map[string]string, len(docs))
	for _, doc := range docs {
		names[doc.ID] = doc.Name
	}

	var b strings.Builder
	var citations []domain.Citation
	for _, hit := range hits {
		b.WriteString(hit.Meta.SourceText)
		b.WriteString("\n\n")
		if len(citations) < maxCitations {
			citations = append(citations, domain.Citation{
				DocumentID:   hit.Meta.DocumentID,
				DocumentName: names[hit.Meta.DocumentID],
				Snippet:      snippet(hit.Meta.SourceText),
				Score:        hit.Similarity,
			})
		}
	}

	// Short generic questions often name a document rather than its
	// content; include the dominant document wholesale.
	if doc := s.wholeDocumentFor(ctx, question, docs); doc != nil {
		b.WriteString(truncate(doc.Content, wholeDocumentLimit))
		b.WriteString("\n")
	}

	system, err := s.prompts.Load(driven.PromptFallbackSystem)
	if err != nil {
		return nil, fmt.Errorf("loading fallback prompt: %w", err)
	}

	text, err := s.complete(ctx, system, question, requesterID, b.String())
	if err != nil {
		return nil, err
	}

	s.afterCompletion(ctx, question, text, requesterID, corpusHash, embedding)

	return &domain.Answer{
		Text:      text,
		Source:    domain.SourceSemantic,
		Citations: citations,
	}, nil
}

// buildContext assembles the completion context: each hit expanded with its
// adjacent chunks in original document order, citations capped.
func (s *AnswerService) buildContext(ctx context.Context, results []domain.RankedChunk) domain.AnswerContext {
	var b strings.Builder
	seen := make(map[string]bool)
	chunksByDoc := make(map[string][]domain.Chunk)
	var citations []domain.Citation

	for _, result := range results {
		docID := result.Chunk.DocumentID
		siblings, ok := chunksByDoc[docID]
		if !ok {
			loaded, err := s.docStore.GetChunks(ctx, docID)
			if err != nil {
				logger.Warn("Loading chunks for %s failed: %v", docID, err)
				loaded = []domain.Chunk{result.Chunk}
			}
			chunksByDoc[docID] = loaded
			siblings = loaded
		}

		lo := result.Chunk.Position - s.contextWindow
		hi := result.Chunk.Position + s.contextWindow
		for _, chunk := range siblings {
			if chunk.Position < lo || chunk.Position > hi || seen[chunk.ID] {
				continue
			}
			seen[chunk.ID] = true
			if chunk.Section != "" && chunk.Type == domain.ChunkContent {
				b.WriteString("[" + chunk.Section + "] ")
			}
			b.WriteString(chunk.Content)
			b.WriteString("\n\n")
		}

		if len(citations) < maxCitations {
			citations = append(citations, domain.Citation{
				DocumentID:   docID,
				DocumentName: result.DocumentName,
				Snippet:      snippet(result.Chunk.Content),
				Score:        result.Score,
			})
		}
	}

	return domain.AnswerContext{Text: b.String(), Citations: citations}
}

// complete builds the user prompt (memory, context, question) and calls the
// completion provider. Provider failure is a hard error.
func (s *AnswerService) complete(ctx context.Context, system, question, requesterID, contextText string) (string, error) {
	var b strings.Builder
	if memory := s.loadMemory(ctx, requesterID); memory != "" {
		b.WriteString("Conversación previa:\n")
		b.WriteString(memory)
		b.WriteString("\n\n")
	}
	b.WriteString("Contexto:\n")
	b.WriteString(contextText)
	b.WriteString("\nPregunta: ")
	b.WriteString(question)

	text, err := s.completion.Complete(ctx, system, b.String())
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCompletionFailed, err)
	}
	return strings.TrimSpace(text), nil
}

// loadMemory renders the requester's conversation memory for the prompt.
func (s *AnswerService) loadMemory(ctx context.Context, requesterID string) string {
	if s.conversations == nil || requesterID == "" {
		return ""
	}
	memory, err := s.conversations.Get(ctx, requesterID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("Loading conversation memory failed: %v", err)
		}
		return ""
	}

	var b strings.Builder
	if memory.Summary != "" {
		b.WriteString(memory.Summary)
		b.WriteString("\n")
	}
	for _, turn := range memory.Turns {
		b.WriteString("P: " + turn.Question + "\nR: " + turn.Answer + "\n")
	}
	return strings.TrimSpace(b.String())
}

// afterCompletion runs the post-answer bookkeeping: response cache write,
// history append, conversation memory update. All best effort.
func (s *AnswerService) afterCompletion(ctx context.Context, question, answer, requesterID, corpusHash string, embedding []float32) {
	if s.cachingEnabled && embedding != nil {
		s.responseCache.Put(ctx, domain.ResponseEntry{
			Question:   question,
			Embedding:  embedding,
			CorpusHash: corpusHash,
			Answer:     answer,
		})
	}

	now := s.now().UTC()
	bg := context.WithoutCancel(ctx)
	s.persister.Add(1)
	go func() {
		defer s.persister.Done()
		s.recordHistory(bg, question, answer, requesterID, now)
		s.updateMemory(bg, question, answer, requesterID, now)
	}()
}

func (s *AnswerService) recordHistory(ctx context.Context, question, answer, requesterID string, now time.Time) {
	if s.history == nil {
		return
	}
	err := s.history.Append(ctx, domain.HistoryEntry{
		ID:          uuid.NewString(),
		RequesterID: requesterID,
		Question:    question,
		Answer:      answer,
		CreatedAt:   now,
	})
	if err != nil {
		logger.Warn("History append failed: %v", err)
	}
}

// updateMemory appends the exchange to the rolling memory, summarising the
// whole memory when it outgrows the threshold.
func (s *AnswerService) updateMemory(ctx context.Context, question, answer, requesterID string, now time.Time) {
	if s.conversations == nil || requesterID == "" {
		return
	}

	memory, err := s.conversations.Get(ctx, requesterID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("Loading conversation memory failed: %v", err)
			return
		}
		memory = &domain.ConversationMemory{RequesterID: requesterID}
	}

	memory.Append(question, answer, now)

	if memory.Size() > s.memoryThreshold {
		content := s.renderMemory(memory)
		summary, err := s.completion.Summarise(ctx, content, s.summaryLength)
		if err != nil {
			logger.Warn("Memory summarisation failed, keeping raw turns: %v", err)
		} else {
			memory.Summary = strings.TrimSpace(summary)
			memory.Turns = nil
			memory.UpdatedAt = now
		}
	}

	if err := s.conversations.Save(ctx, memory); err != nil {
		logger.Warn("Saving conversation memory failed: %v", err)
	}
}

func (s *AnswerService) renderMemory(memory *domain.ConversationMemory) string {
	var b strings.Builder
	if memory.Summary != "" {
		b.WriteString(memory.Summary)
		b.WriteString("\n")
	}
	for _, turn := range memory.Turns {
		b.WriteString("P: " + turn.Question + "\nR: " + turn.Answer + "\n")
	}
	return b.String()
}

// wholeDocumentFor applies the short-question heuristic: when a short
// question's dominant term appears in exactly the name or body of one
// document, that document likely answers it wholesale.
func (s *AnswerService) wholeDocumentFor(ctx context.Context, question string, docs []domain.Document) *domain.Document {
	terms := strings.Fields(strings.ToLower(question))
	if len(terms) == 0 || len(terms) > 4 {
		return nil
	}

	// Dominant term: the longest one.
	dominant := ""
	for _, term := range terms {
		term = strings.Trim(term, "¿?¡!.,;:")
		if len(term) > len(dominant) {
			dominant = term
		}
	}
	if len(dominant) < 4 {
		return nil
	}

	for i := range docs {
		if strings.Contains(strings.ToLower(docs[i].Name), dominant) {
			if full, err := s.docStore.GetDocument(ctx, docs[i].ID); err == nil {
				return full
			}
			return &docs[i]
		}
	}
	return nil
}

func snippet(text string) string {
	return truncate(strings.TrimSpace(text), 160)
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := text[:limit]
	if idx := strings.LastIndexByte(cut, ' '); idx > limit/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}
