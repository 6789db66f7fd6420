package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aula-labs/aula-cli/internal/core/domain"
)

func plainDoc(text string) domain.ExtractedDocument {
	return domain.ExtractedDocument{
		ID:     "doc-1",
		Name:   "test",
		Origin: domain.OriginPlain,
		Text:   text,
	}
}

func TestChunkEmptyInput(t *testing.T) {
	p := New()

	assert.Empty(t, p.Chunk(plainDoc("")))
	assert.Empty(t, p.Chunk(plainDoc("   \n\n\t  ")))
}

func TestChunkTitleDetection(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"all caps with diacritics", "CAPÍTULO 1"},
		{"numbered section", "1. Introducción"},
		{"markdown heading", "# Horarios"},
		{"nested numbered section", "2.3 Requisitos de ingreso"},
	}

	p := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := p.Chunk(plainDoc(tt.line))
			require.Len(t, chunks, 1)
			assert.Equal(t, domain.ChunkTitle, chunks[0].Type)
		})
	}
}

func TestChunkTableHeaderDetection(t *testing.T) {
	p := New()

	// 60 pipe-delimited columns is far past the title length cutoff.
	cols := make([]string, 60)
	for i := range cols {
		cols[i] = "col"
	}
	wide := strings.Join(cols, " | ")

	chunks := p.Chunk(plainDoc(wide))
	require.Len(t, chunks, 1)
	assert.Equal(t, domain.ChunkTableHeader, chunks[0].Type)

	// Three consecutive spaces is also a tabular cue.
	chunks = p.Chunk(plainDoc("lunes, miércoles y viernes de ocho a diez   aula trescientos uno   edificio principal"))
	require.Len(t, chunks, 1)
	assert.Equal(t, domain.ChunkTableHeader, chunks[0].Type)
}

func TestChunkListDetection(t *testing.T) {
	p := New()

	chunks := p.Chunk(plainDoc("- manzanas\n- peras\n- uvas"))
	require.Len(t, chunks, 1)
	assert.Equal(t, domain.ChunkList, chunks[0].Type)
	assert.Contains(t, chunks[0].Content, "peras")
}

func TestChunkOrderingAndCoverage(t *testing.T) {
	text := "CAPÍTULO 1\n" +
		"Primer párrafo del documento con algo de contenido.\n" +
		"Segunda línea del mismo párrafo.\n" +
		"1. Introducción\n" +
		"- punto uno\n" +
		"- punto dos\n" +
		"# Anexos\n" +
		"Cierre del documento."

	p := New()
	chunks := p.Chunk(plainDoc(text))
	require.NotEmpty(t, chunks)

	// Positions are sequential from zero.
	for i, c := range chunks {
		assert.Equal(t, i, c.Position)
		assert.Equal(t, "doc-1", c.DocumentID)
		assert.NotEmpty(t, c.ID)
	}

	// Re-concatenating chunk text in sequence order recovers every
	// original line in order (modulo chunk-boundary whitespace).
	var got []string
	for _, c := range chunks {
		got = append(got, strings.Split(c.Content, "\n")...)
	}
	var want []string
	for _, line := range strings.Split(text, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			want = append(want, s)
		}
	}
	assert.Equal(t, want, got)
}

func TestChunkMarkdownHeadingKeepsMarkers(t *testing.T) {
	p := New()
	chunks := p.Chunk(plainDoc("# Horarios\ncontenido de horarios"))
	require.Len(t, chunks, 2)

	// The raw line survives; only the section label drops the hashes.
	assert.Equal(t, "# Horarios", chunks[0].Content)
	assert.Equal(t, "Horarios", chunks[1].Section)
}

func TestChunkSectionTracking(t *testing.T) {
	text := "HORARIOS\ncontenido de horarios\nBECAS\ncontenido de becas"

	p := New()
	chunks := p.Chunk(plainDoc(text))
	require.Len(t, chunks, 4)

	assert.Equal(t, domain.ChunkTitle, chunks[0].Type)
	assert.Equal(t, "HORARIOS", chunks[1].Section)
	assert.Equal(t, "BECAS", chunks[3].Section)
}

func TestChunkTokenBudgetFlush(t *testing.T) {
	// Each line is 10 tokens; a 25-token budget forces a flush every
	// second line.
	line := strings.Repeat("palabra ", 10)
	text := strings.TrimSpace(strings.Repeat(line+"\n", 6))

	p := New(WithTokenBudget(25))
	chunks := p.Chunk(plainDoc(text))

	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.LessOrEqual(t, c.TokenCount, 25)
		assert.Equal(t, domain.ChunkContent, c.Type)
	}
}

func TestChunkSingleOversizedLine(t *testing.T) {
	// A single unsplittable line may exceed the budget; it must still
	// become exactly one chunk rather than being dropped.
	line := strings.TrimSpace(strings.Repeat("palabra ", 40))

	p := New(WithTokenBudget(10))
	chunks := p.Chunk(plainDoc(line))

	require.Len(t, chunks, 1)
	assert.Equal(t, 40, chunks[0].TokenCount)
}

func TestChunkHTMLSections(t *testing.T) {
	doc := domain.ExtractedDocument{
		ID:     "doc-html",
		Origin: domain.OriginHTML,
		Sections: []domain.Section{
			{Heading: "Horarios", Body: "Cálculo I: Lunes 8-10am."},
			{Heading: "Becas", Body: "Convocatoria abierta."},
		},
	}

	p := New()
	chunks := p.Chunk(doc)
	require.Len(t, chunks, 4)

	assert.Equal(t, domain.ChunkSectionHeader, chunks[0].Type)
	assert.Equal(t, "Horarios", chunks[0].Content)
	assert.Equal(t, domain.ChunkContent, chunks[1].Type)
	assert.Equal(t, "Horarios", chunks[1].Section)
	assert.Equal(t, "Becas", chunks[3].Section)
}

func TestChunkHTMLSectionSplitsOnParagraphs(t *testing.T) {
	para := strings.Repeat("texto ", 100) // ~600 chars
	body := strings.TrimSpace(strings.Repeat(para+"\n\n", 4))

	doc := domain.ExtractedDocument{
		ID:       "doc-html",
		Origin:   domain.OriginHTML,
		Sections: []domain.Section{{Heading: "Reglamento", Body: body}},
	}

	p := New(WithMaxSectionChars(1000))
	chunks := p.Chunk(doc)

	// Header plus more than one content part.
	require.Greater(t, len(chunks), 2)
	for _, c := range chunks[1:] {
		assert.LessOrEqual(t, len(c.Content), 1000)
		// Never split mid-paragraph: every part holds whole paragraphs.
		for _, part := range strings.Split(c.Content, "\n\n") {
			assert.Equal(t, strings.TrimSpace(para), strings.TrimSpace(part))
		}
	}
}

func TestChunkSpreadsheetRows(t *testing.T) {
	rows := make([]string, 0, 8)
	rows = append(rows, "nombre,curso,aula")
	for i := 0; i < 7; i++ {
		rows = append(rows, "fila,de,datos")
	}

	doc := domain.ExtractedDocument{
		ID:     "doc-xls",
		Origin: domain.OriginSpreadsheet,
		Rows:   rows,
	}

	p := New(WithRowsPerBlock(3))
	chunks := p.Chunk(doc)

	require.Len(t, chunks, 4) // header + ceil(7/3) blocks
	assert.Equal(t, domain.ChunkTableHeader, chunks[0].Type)
	assert.Equal(t, "nombre,curso,aula", chunks[1].Section)
	assert.Equal(t, 3, len(strings.Split(chunks[1].Content, "\n")))
}

func TestChunkWebPages(t *testing.T) {
	doc := domain.ExtractedDocument{
		ID:     "doc-web",
		Origin: domain.OriginWebPage,
		Pages: []domain.Page{
			{URL: "https://example.edu/inicio", Title: "Inicio", Text: "Bienvenida al campus."},
			{URL: "https://example.edu/becas", Title: "Becas", Text: "Listado de convocatorias."},
		},
	}

	p := New()
	chunks := p.Chunk(doc)
	require.Len(t, chunks, 4)

	assert.Equal(t, domain.ChunkSectionHeader, chunks[0].Type)
	assert.Equal(t, "Inicio", chunks[0].Content)
	assert.Equal(t, "Becas", chunks[3].Section)
}

func TestChunkStructuralOriginWithoutStructureDegrades(t *testing.T) {
	// An html origin with no section payload falls back to generic text.
	doc := domain.ExtractedDocument{
		ID:     "doc-html",
		Origin: domain.OriginHTML,
		Text:   "REGLAMENTO\ntexto del reglamento",
	}

	p := New()
	chunks := p.Chunk(doc)
	require.Len(t, chunks, 2)
	assert.Equal(t, domain.ChunkTitle, chunks[0].Type)
}
