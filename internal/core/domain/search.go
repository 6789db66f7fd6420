package domain

// RankedChunk is a single hierarchical-search hit.
type RankedChunk struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// DocumentName is the display name of the owning document.
	DocumentName string

	// Score is the normalised relevance score in [0, 1).
	Score float64

	// MatchedTerms is how many distinct query terms matched.
	MatchedTerms int
}

// Citation points a generated answer back at its source material.
type Citation struct {
	// DocumentID identifies the cited document.
	DocumentID string

	// DocumentName is its display name.
	DocumentName string

	// Snippet is a short excerpt of the cited chunk.
	Snippet string

	// Score is the normalised relevance score of the cited chunk.
	Score float64
}

// AnswerContext is the assembled context handed to the completion stage:
// the top chunk plus its adjacent neighbours in original document order,
// and up to three citations.
type AnswerContext struct {
	// Text is the concatenated context passage.
	Text string

	// Citations reference the chunks the context was built from.
	Citations []Citation
}

// AnswerSource identifies which tier produced an answer.
type AnswerSource string

// Answer tiers, cheapest first.
const (
	// SourceResponseCache is a reused previously generated answer.
	SourceResponseCache AnswerSource = "response_cache"

	// SourceFAQ is a curated FAQ entry matched by question similarity.
	SourceFAQ AnswerSource = "faq"

	// SourceLexical is a completion grounded in hierarchical-search context.
	SourceLexical AnswerSource = "lexical"

	// SourceSemantic is a completion grounded in embedding-similarity context.
	SourceSemantic AnswerSource = "semantic"
)

// Answer is the engine's reply to one question.
type Answer struct {
	// Text is the answer text returned to the caller.
	Text string

	// Source is the tier that produced the answer.
	Source AnswerSource

	// Citations reference source material, when retrieval produced any.
	Citations []Citation
}
