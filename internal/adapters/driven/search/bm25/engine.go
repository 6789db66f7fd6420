// Package bm25 provides the in-process lexical index: a BM25-scored
// inverted index over chunks with a hierarchical ranking layer that
// privileges title and header chunks over plain content.
package bm25

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/aula-labs/aula-cli/internal/core/domain"
	"github.com/aula-labs/aula-cli/internal/core/ports/driven"
	"github.com/aula-labs/aula-cli/internal/logger"
)

// Ensure Engine implements the interface.
var _ driven.LexicalIndex = (*Engine)(nil)

// BM25 parameters.
const (
	k1 = 1.5
	b  = 0.75
)

// Default ranking knobs.
const (
	// DefaultMinScore is the relevance floor on normalised scores.
	DefaultMinScore = 0.5

	// DefaultTopK caps results for ordinary queries.
	DefaultTopK = 5

	// ListTopK caps results for list-style queries.
	ListTopK = 10

	// minMatchedTerms is required when the query has three or more terms.
	minMatchedTerms = 2
)

// typeBoosts privilege structural chunks in hierarchical ranking.
var typeBoosts = map[domain.ChunkType]float64{
	domain.ChunkTitle:         1.8,
	domain.ChunkSectionHeader: 1.6,
	domain.ChunkTableHeader:   1.4,
	domain.ChunkList:          1.2,
	domain.ChunkContent:       1.0,
}

// listQueryPattern recognises list-style questions by their leading
// interrogative or quantifier.
var listQueryPattern = regexp.MustCompile(
	`(?i)^[¿\s]*(cuales|cuáles|cuantos|cuántos|cuantas|cuántas|lista|enumera|todos|todas|menciona|which|what are|list|all|enumerate)\b`)

// chunkRef ties an index entry back to the chunk it was built from.
type chunkRef struct {
	entry   driven.LexicalEntry
	chunk   domain.Chunk
	docName string
}

// Engine is the BM25 lexical index. Reads are safe concurrently; mutation
// happens only during ingestion, which is serialised per process.
type Engine struct {
	mu        sync.RWMutex
	tok       *tokenizer
	byDoc     map[string][]string // document id -> chunk ids
	chunks    map[string]*chunkRef
	df        map[string]int // term -> chunks containing it, across ALL documents
	totalLen  int
	store     driven.LexicalStore // optional persistence
	persister sync.WaitGroup
}

// Option configures the engine.
type Option func(*Engine)

// WithStore attaches a persistence backend. Index mutations are written
// through best-effort; Flush waits for pending writes.
func WithStore(store driven.LexicalStore) Option {
	return func(e *Engine) { e.store = store }
}

// WithLanguage sets the stemmer language (default "spanish").
func WithLanguage(language string) Option {
	return func(e *Engine) { e.tok = newTokenizer(language) }
}

// New creates an empty lexical index.
func New(opts ...Option) *Engine {
	e := &Engine{
		tok:    newTokenizer("spanish"),
		byDoc:  make(map[string][]string),
		chunks: make(map[string]*chunkRef),
		df:     make(map[string]int),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load restores persisted entries, resolving chunk contents from the
// supplied corpus. Entries whose chunk no longer exists are dropped.
func (e *Engine) Load(ctx context.Context, docs []domain.Document, chunksByDoc map[string][]domain.Chunk) error {
	if e.store == nil {
		return nil
	}

	entries, err := e.store.LoadEntries(ctx)
	if err != nil {
		return err
	}

	names := make(map[string]string, len(docs))
	for _, doc := range docs {
		names[doc.ID] = doc.Name
	}
	byID := make(map[string]domain.Chunk)
	for _, chunks := range chunksByDoc {
		for _, c := range chunks {
			byID[c.ID] = c
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	loaded := 0
	for _, entry := range entries {
		chunk, ok := byID[entry.ChunkID]
		if !ok {
			continue
		}
		e.addEntryLocked(entry, chunk, names[entry.DocumentID])
		loaded++
	}

	logger.Info("Lexical index loaded: %d entries, %d documents", loaded, len(e.byDoc))
	return nil
}

// IndexDocument (re)builds the index entries for a document's chunks.
// Existing entries for the document are replaced wholesale - there is no
// incremental token removal.
func (e *Engine) IndexDocument(ctx context.Context, doc domain.Document, chunks []domain.Chunk) error {
	entries := make([]driven.LexicalEntry, 0, len(chunks))
	for _, chunk := range chunks {
		tokens := e.tok.Tokenize(chunk.Content)
		// Heading terms carry into the chunks beneath them, so a content
		// chunk still matches a query that only names its section.
		if chunk.Section != "" && !chunk.Type.IsStructural() {
			tokens = append(tokens, e.tok.Tokenize(chunk.Section)...)
		}
		freqs := make(map[string]int)
		positions := make(map[string][]int)
		for pos, term := range tokens {
			freqs[term]++
			positions[term] = append(positions[term], pos)
		}
		entries = append(entries, driven.LexicalEntry{
			ChunkID:     chunk.ID,
			DocumentID:  doc.ID,
			Type:        chunk.Type,
			Section:     chunk.Section,
			Tokens:      tokens,
			Frequencies: freqs,
			Positions:   positions,
			Length:      len(tokens),
		})
	}

	e.mu.Lock()
	e.removeDocumentLocked(doc.ID)
	for i, entry := range entries {
		e.addEntryLocked(entry, chunks[i], doc.Name)
	}
	e.mu.Unlock()

	logger.Debug("Indexed document %q: %d chunks", doc.Name, len(entries))

	e.persist(ctx, doc.ID, entries)
	return nil
}

// RemoveDocument drops all index entries for a document.
func (e *Engine) RemoveDocument(ctx context.Context, documentID string) error {
	e.mu.Lock()
	e.removeDocumentLocked(documentID)
	e.mu.Unlock()

	if e.store != nil {
		e.persister.Add(1)
		go func() {
			defer e.persister.Done()
			if err := e.store.DeleteDocumentEntries(context.WithoutCancel(ctx), documentID); err != nil {
				logger.Warn("Lexical index persistence failed for %s: %v", documentID, err)
			}
		}()
	}
	return nil
}

// DocumentCount returns how many documents are indexed.
func (e *Engine) DocumentCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.byDoc)
}

// Search ranks chunks across all indexed documents for a query.
func (e *Engine) Search(ctx context.Context, query string, opts driven.LexicalSearchOptions) ([]domain.RankedChunk, error) {
	terms := e.tok.Tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	minScore := opts.MinScore
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
		if IsListQuery(query) {
			topK = ListTopK
		}
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	totalChunks := len(e.chunks)
	if totalChunks == 0 {
		return nil, nil
	}
	avgLen := float64(e.totalLen) / float64(totalChunks)
	if avgLen == 0 {
		avgLen = 1
	}

	var structural, content []domain.RankedChunk
	for _, ref := range e.chunks {
		score, matched := e.scoreEntry(ref.entry, terms, totalChunks, avgLen)
		if matched == 0 {
			continue
		}
		// A multi-term query landing on a single term is usually an
		// incidental match.
		if len(terms) >= minMatchedTerms+1 && matched < minMatchedTerms {
			continue
		}

		boosted := score * typeBoosts[ref.entry.Type]
		normalised := boosted / (1 + boosted)
		if normalised < minScore {
			continue
		}

		ranked := domain.RankedChunk{
			Chunk:        ref.chunk,
			DocumentName: ref.docName,
			Score:        normalised,
			MatchedTerms: matched,
		}
		if ref.entry.Type.IsStructural() {
			structural = append(structural, ranked)
		} else {
			content = append(content, ranked)
		}
	}

	sort.SliceStable(structural, func(i, j int) bool { return structural[i].Score > structural[j].Score })
	sort.SliceStable(content, func(i, j int) bool { return content[i].Score > content[j].Score })

	results := append(structural, content...)
	if len(results) > topK {
		results = results[:topK]
	}

	logger.Debug("Lexical search %q: %d terms, %d results", query, len(terms), len(results))
	return results, nil
}

// Flush waits for pending persistence writes.
func (e *Engine) Flush(_ context.Context) error {
	e.persister.Wait()
	return nil
}

// Close releases resources.
func (e *Engine) Close() error {
	e.persister.Wait()
	return nil
}

// IsListQuery reports whether a question asks for an enumeration, which
// widens the result cap.
func IsListQuery(query string) bool {
	return listQueryPattern.MatchString(strings.TrimSpace(query))
}

// scoreEntry computes the raw BM25 score of one chunk for the query terms.
// Document frequency is pooled across all indexed documents; a term's idf
// shifts as unrelated documents are added. Intentional, do not localise.
func (e *Engine) scoreEntry(entry driven.LexicalEntry, terms []string, totalChunks int, avgLen float64) (float64, int) {
	var score float64
	matched := 0

	for _, term := range terms {
		tf, ok := entry.Frequencies[term]
		if !ok {
			continue
		}
		matched++

		df := e.df[term]
		idf := math.Log((float64(totalChunks)-float64(df)+0.5)/(float64(df)+0.5) + 1)
		norm := k1 * (1 - b + b*float64(entry.Length)/avgLen)
		score += idf * (float64(tf) * (k1 + 1)) / (float64(tf) + norm)
	}

	return score, matched
}

// addEntryLocked registers one entry. Caller holds the write lock.
func (e *Engine) addEntryLocked(entry driven.LexicalEntry, chunk domain.Chunk, docName string) {
	e.byDoc[entry.DocumentID] = append(e.byDoc[entry.DocumentID], entry.ChunkID)
	e.chunks[entry.ChunkID] = &chunkRef{entry: entry, chunk: chunk, docName: docName}
	e.totalLen += entry.Length
	for term := range entry.Frequencies {
		e.df[term]++
	}
}

// removeDocumentLocked unregisters all entries of a document. Caller holds
// the write lock.
func (e *Engine) removeDocumentLocked(documentID string) {
	for _, chunkID := range e.byDoc[documentID] {
		ref, ok := e.chunks[chunkID]
		if !ok {
			continue
		}
		e.totalLen -= ref.entry.Length
		for term := range ref.entry.Frequencies {
			if e.df[term] <= 1 {
				delete(e.df, term)
			} else {
				e.df[term]--
			}
		}
		delete(e.chunks, chunkID)
	}
	delete(e.byDoc, documentID)
}

// persist writes a document's entries through the store, best effort.
func (e *Engine) persist(ctx context.Context, documentID string, entries []driven.LexicalEntry) {
	if e.store == nil {
		return
	}
	e.persister.Add(1)
	go func() {
		defer e.persister.Done()
		if err := e.store.SaveDocumentEntries(context.WithoutCancel(ctx), documentID, entries); err != nil {
			logger.Warn("Lexical index persistence failed for %s: %v", documentID, err)
		}
	}()
}
