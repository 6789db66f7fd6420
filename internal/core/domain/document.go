package domain

import "time"

// Document represents an ingested document whose extracted text is indexed.
// Extraction (file parsing, OCR) happens upstream; the engine only reads
// the text it is handed.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Name is the human-readable display name.
	Name string

	// Content is the full extracted text.
	Content string

	// Origin describes how the text was produced (plain, html, ...).
	Origin OriginKind

	// CreatedAt is when the document was first ingested.
	CreatedAt time.Time

	// UpdatedAt is when the document was last re-ingested.
	UpdatedAt time.Time
}

// ChunkType classifies the structural role of a chunk within its document.
type ChunkType string

// Chunk types, ordered roughly by how strongly they signal relevance.
const (
	ChunkTitle         ChunkType = "title"
	ChunkSectionHeader ChunkType = "section_header"
	ChunkTableHeader   ChunkType = "table_header"
	ChunkList          ChunkType = "list"
	ChunkContent       ChunkType = "content"
)

// IsValid returns true if the chunk type is recognised.
func (t ChunkType) IsValid() bool {
	switch t {
	case ChunkTitle, ChunkSectionHeader, ChunkTableHeader, ChunkList, ChunkContent:
		return true
	default:
		return false
	}
}

// IsStructural returns true for title-like chunks that rank ahead of
// plain content in hierarchical search.
func (t ChunkType) IsStructural() bool {
	return t == ChunkTitle || t == ChunkSectionHeader || t == ChunkTableHeader
}

// Chunk is a contiguous, typed span of a document's text. Chunks are the
// unit of indexing and retrieval; they are created during ingestion and
// immutable thereafter.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Type is the structural classification of this chunk.
	Type ChunkType

	// Section is the nearest enclosing heading, if any.
	Section string

	// Content is the text content of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// TokenCount is the approximate token count of Content.
	TokenCount int

	// Embedding is the vector representation for semantic search.
	// Nil when embedding generation failed or is disabled.
	Embedding []float32
}

// OriginKind identifies how a document's text was extracted.
type OriginKind string

// Supported origins.
const (
	// OriginPlain is free-running extracted text (txt, pdf, docx, pasted).
	OriginPlain OriginKind = "plain"

	// OriginHTML is text with explicit heading structure.
	OriginHTML OriginKind = "html"

	// OriginSpreadsheet is tabular row data.
	OriginSpreadsheet OriginKind = "spreadsheet"

	// OriginWebPage is one or more crawled pages.
	OriginWebPage OriginKind = "webpage"
)

// IsValid returns true if the origin kind is recognised.
func (o OriginKind) IsValid() bool {
	switch o {
	case OriginPlain, OriginHTML, OriginSpreadsheet, OriginWebPage:
		return true
	default:
		return false
	}
}

// Section is a heading-delimited block of an HTML document.
type Section struct {
	// Heading is the section heading text (may be empty for a preamble).
	Heading string

	// Body is the text under the heading.
	Body string
}

// Page is a single crawled web page.
type Page struct {
	// URL is the page location.
	URL string

	// Title is the page title, if known.
	Title string

	// Text is the extracted page text.
	Text string
}

// ExtractedDocument is what the upstream ingestion pipeline hands the
// engine once extraction finishes. Exactly one structural payload is
// populated depending on Origin; plain text uses Text alone.
type ExtractedDocument struct {
	// ID is the document identifier assigned upstream.
	ID string

	// Name is the display name.
	Name string

	// Origin describes the extraction source.
	Origin OriginKind

	// Text is the full extracted text (always populated).
	Text string

	// Sections carries heading structure for html origins.
	Sections []Section

	// Rows carries row data for spreadsheet origins.
	Rows []string

	// Pages carries per-page text for webpage origins.
	Pages []Page
}
