// Package chunker splits extracted document text into typed, ordered chunks.
//
// Plain text is scanned line by line with heading heuristics; html,
// spreadsheet, and webpage origins follow their explicit structure instead.
// Malformed structure never raises an error - the chunker degrades to
// smaller, less semantically pure chunks.
package chunker

import (
	"strings"

	"github.com/google/uuid"

	"github.com/aula-labs/aula-cli/internal/core/domain"
)

// DefaultTokenBudget is the maximum token count per chunk.
const DefaultTokenBudget = 500

// DefaultMaxSectionChars is the character budget for structural sections
// before they are split on paragraph boundaries.
const DefaultMaxSectionChars = 3200

// DefaultRowsPerBlock is the number of spreadsheet rows per chunk.
const DefaultRowsPerBlock = 30

// maxTitleLen is the length above which a line is never a heading.
const maxTitleLen = 100

// Processor splits extracted documents into typed chunks.
type Processor struct {
	tokenBudget     int
	maxSectionChars int
	rowsPerBlock    int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithTokenBudget sets the maximum token count per chunk.
func WithTokenBudget(budget int) Option {
	return func(p *Processor) {
		if budget > 0 {
			p.tokenBudget = budget
		}
	}
}

// WithMaxSectionChars sets the character budget for structural sections.
func WithMaxSectionChars(chars int) Option {
	return func(p *Processor) {
		if chars > 0 {
			p.maxSectionChars = chars
		}
	}
}

// WithRowsPerBlock sets the spreadsheet rows per chunk.
func WithRowsPerBlock(rows int) Option {
	return func(p *Processor) {
		if rows > 0 {
			p.rowsPerBlock = rows
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		tokenBudget:     DefaultTokenBudget,
		maxSectionChars: DefaultMaxSectionChars,
		rowsPerBlock:    DefaultRowsPerBlock,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Chunk splits an extracted document into ordered, typed chunks.
// Empty or whitespace-only input yields an empty sequence.
func (p *Processor) Chunk(extracted domain.ExtractedDocument) []domain.Chunk {
	var chunks []domain.Chunk

	switch {
	case extracted.Origin == domain.OriginHTML && len(extracted.Sections) > 0:
		chunks = p.chunkSections(extracted)
	case extracted.Origin == domain.OriginSpreadsheet && len(extracted.Rows) > 0:
		chunks = p.chunkRows(extracted)
	case extracted.Origin == domain.OriginWebPage && len(extracted.Pages) > 0:
		chunks = p.chunkPages(extracted)
	default:
		chunks = p.chunkGenericText(extracted)
	}

	for i := range chunks {
		chunks[i].Position = i
	}

	return chunks
}

// newChunk builds one chunk with a fresh id and token count.
func newChunk(docID string, ctype domain.ChunkType, section, content string) domain.Chunk {
	return domain.Chunk{
		ID:         uuid.New().String(),
		DocumentID: docID,
		Type:       ctype,
		Section:    section,
		Content:    content,
		TokenCount: countTokens(content),
	}
}

// countTokens approximates the token count as whitespace-separated words.
func countTokens(text string) int {
	return len(strings.Fields(text))
}
