package bm25

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aula-labs/aula-cli/internal/core/domain"
	"github.com/aula-labs/aula-cli/internal/core/ports/driven"
	"github.com/aula-labs/aula-cli/internal/postprocessors/chunker"
)

func testDoc(id, name string) domain.Document {
	return domain.Document{ID: id, Name: name}
}

func testChunk(id, docID string, ctype domain.ChunkType, content string) domain.Chunk {
	return domain.Chunk{
		ID:         id,
		DocumentID: docID,
		Type:       ctype,
		Content:    content,
		TokenCount: len(strings.Fields(content)),
	}
}

func TestIndexAndSearchBasic(t *testing.T) {
	e := New()
	ctx := context.Background()

	err := e.IndexDocument(ctx, testDoc("a", "Doc A"), []domain.Chunk{
		testChunk("c1", "a", domain.ChunkContent, "El horario de matrícula es en marzo"),
		testChunk("c2", "a", domain.ChunkContent, "Las becas se publican en abril"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, e.DocumentCount())

	results, err := e.Search(ctx, "horario matrícula", driven.LexicalSearchOptions{MinScore: 0.01})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "c1", results[0].Chunk.ID)
	assert.Equal(t, "Doc A", results[0].DocumentName)
}

func TestSearchEmptyIndex(t *testing.T) {
	e := New()

	results, err := e.Search(context.Background(), "horario", driven.LexicalSearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchEmptyQuery(t *testing.T) {
	e := New()
	ctx := context.Background()

	require.NoError(t, e.IndexDocument(ctx, testDoc("a", "Doc A"), []domain.Chunk{
		testChunk("c1", "a", domain.ChunkContent, "contenido cualquiera"),
	}))

	results, err := e.Search(ctx, "¿? de el", driven.LexicalSearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

// Holding everything else fixed, a higher term frequency never lowers the
// score, and the marginal gain shrinks as frequency grows (saturation).
func TestBM25Monotonicity(t *testing.T) {
	ctx := context.Background()

	score := func(repeats int) float64 {
		e := New()
		content := strings.TrimSpace(strings.Repeat("matricula ", repeats)) +
			" " + strings.TrimSpace(strings.Repeat("relleno ", 20-repeats))
		require.NoError(t, e.IndexDocument(ctx, testDoc("a", "Doc A"), []domain.Chunk{
			testChunk("c1", "a", domain.ChunkContent, content),
			testChunk("c2", "a", domain.ChunkContent, "otro contenido sin relacion alguna"),
		}))

		results, err := e.Search(ctx, "matricula", driven.LexicalSearchOptions{MinScore: 0.0001})
		require.NoError(t, err)
		require.NotEmpty(t, results)
		return results[0].Score
	}

	s1, s2, s4, s8 := score(1), score(2), score(4), score(8)

	assert.Less(t, s1, s2)
	assert.LessOrEqual(t, s2, s4)
	assert.LessOrEqual(t, s4, s8)

	// Saturation: each doubling buys less than the previous one.
	assert.Greater(t, s2-s1, s4-s2)
	assert.GreaterOrEqual(t, s4-s2, s8-s4)
}

// A TITLE chunk that clears the floor ranks before a CONTENT chunk that
// clears the floor, regardless of raw score.
func TestHierarchicalTitleFirst(t *testing.T) {
	e := New()
	ctx := context.Background()

	// The content chunk repeats the term, so its raw BM25 score is
	// higher; the title bucket must still come first.
	require.NoError(t, e.IndexDocument(ctx, testDoc("a", "Doc A"), []domain.Chunk{
		testChunk("c1", "a", domain.ChunkContent,
			"horario horario horario de todos los cursos del semestre"),
		testChunk("c2", "a", domain.ChunkTitle, "Horario general"),
		testChunk("c3", "a", domain.ChunkContent, "texto sin relacion con nada"),
	}))

	results, err := e.Search(ctx, "horario", driven.LexicalSearchOptions{MinScore: 0.05})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(results), 2)
	assert.Equal(t, "c2", results[0].Chunk.ID)
	assert.Equal(t, "c1", results[1].Chunk.ID)
}

// A content chunk inherits its section heading's terms, so it matches
// queries that only name the section.
func TestSectionTermsMatchContentChunks(t *testing.T) {
	e := New()
	ctx := context.Background()

	under := testChunk("c1", "a", domain.ChunkContent, "Lunes 8-10am, Aula 301")
	under.Section = "Horarios"
	require.NoError(t, e.IndexDocument(ctx, testDoc("a", "Doc A"), []domain.Chunk{
		under,
		testChunk("c2", "a", domain.ChunkContent, "contenido sin relacion alguna"),
	}))

	results, err := e.Search(ctx, "horarios", driven.LexicalSearchOptions{MinScore: 0.01})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].Chunk.ID)
}

// Chunking the raw documents and searching with default options, a
// course-schedule question must surface both the heading and the schedule
// line itself above the relevance floor, heading first.
func TestSearchScheduleScenario(t *testing.T) {
	ctx := context.Background()
	p := chunker.New()
	e := New()

	docA := testDoc("a", "Horarios 2026")
	chunksA := p.Chunk(domain.ExtractedDocument{
		ID:     "a",
		Name:   docA.Name,
		Origin: domain.OriginPlain,
		Text:   "# Horarios de Clase\nCálculo I: Lunes 8-10am, Aula 301",
	})
	require.Len(t, chunksA, 2)
	require.NoError(t, e.IndexDocument(ctx, docA, chunksA))

	docB := testDoc("b", "Becas")
	chunksB := p.Chunk(domain.ExtractedDocument{
		ID:     "b",
		Name:   docB.Name,
		Origin: domain.OriginPlain,
		Text:   "Las becas se solicitan en abril en la oficina de ayuda financiera.",
	})
	require.Len(t, chunksB, 1)
	require.NoError(t, e.IndexDocument(ctx, docB, chunksB))

	results, err := e.Search(ctx, "¿Cuál es el horario de Cálculo I?", driven.LexicalSearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, domain.ChunkTitle, results[0].Chunk.Type)
	assert.Contains(t, results[1].Chunk.Content, "Lunes 8-10am, Aula 301")
	assert.GreaterOrEqual(t, results[1].Score, DefaultMinScore)
}

func TestSearchScoresNormalised(t *testing.T) {
	e := New()
	ctx := context.Background()

	require.NoError(t, e.IndexDocument(ctx, testDoc("a", "Doc A"), []domain.Chunk{
		testChunk("c1", "a", domain.ChunkTitle, "Horarios de Clase"),
		testChunk("c2", "a", domain.ChunkContent, "relleno irrelevante aqui"),
	}))

	results, err := e.Search(ctx, "horarios clase", driven.LexicalSearchOptions{MinScore: 0.01})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.Less(t, r.Score, 1.0)
	}
}

// A query with three or more terms must match at least two of them.
func TestSearchMinimumTermMatch(t *testing.T) {
	e := New()
	ctx := context.Background()

	require.NoError(t, e.IndexDocument(ctx, testDoc("a", "Doc A"), []domain.Chunk{
		testChunk("c1", "a", domain.ChunkContent, "solamente matricula aparece aqui"),
		testChunk("c2", "a", domain.ChunkContent, "matricula horario calendario completo"),
	}))

	results, err := e.Search(ctx, "matricula horario calendario", driven.LexicalSearchOptions{MinScore: 0.0001})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.NotEqual(t, "c1", r.Chunk.ID)
		assert.GreaterOrEqual(t, r.MatchedTerms, 2)
	}
}

func TestSearchRelevanceFloor(t *testing.T) {
	e := New()
	ctx := context.Background()

	require.NoError(t, e.IndexDocument(ctx, testDoc("a", "Doc A"), []domain.Chunk{
		testChunk("c1", "a", domain.ChunkContent, "matricula en linea disponible"),
	}))

	// An impossible floor filters everything.
	results, err := e.Search(ctx, "matricula", driven.LexicalSearchOptions{MinScore: 0.99})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchTopKDefaults(t *testing.T) {
	e := New()
	ctx := context.Background()

	chunks := make([]domain.Chunk, 0, 15)
	for i := 0; i < 15; i++ {
		chunks = append(chunks, testChunk(fmt.Sprintf("c%d", i), "a", domain.ChunkContent,
			fmt.Sprintf("beca numero %d disponible para estudiantes", i)))
	}
	require.NoError(t, e.IndexDocument(ctx, testDoc("a", "Doc A"), chunks))

	plain, err := e.Search(ctx, "beca estudiantes", driven.LexicalSearchOptions{MinScore: 0.0001})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(plain), DefaultTopK)

	listy, err := e.Search(ctx, "¿Cuáles becas hay disponibles para estudiantes?", driven.LexicalSearchOptions{MinScore: 0.0001})
	require.NoError(t, err)
	assert.Greater(t, len(listy), DefaultTopK)
	assert.LessOrEqual(t, len(listy), ListTopK)
}

func TestIsListQuery(t *testing.T) {
	assert.True(t, IsListQuery("¿Cuáles son los requisitos?"))
	assert.True(t, IsListQuery("lista de cursos"))
	assert.True(t, IsListQuery("what are the requirements"))
	assert.False(t, IsListQuery("¿Dónde queda el aula 301?"))
}

// Cross-document df pooling: adding an unrelated document shifts idf.
func TestCrossDocumentFrequencyPooling(t *testing.T) {
	ctx := context.Background()

	e := New()
	require.NoError(t, e.IndexDocument(ctx, testDoc("a", "Doc A"), []domain.Chunk{
		testChunk("c1", "a", domain.ChunkContent, "matricula abierta este mes"),
		testChunk("c2", "a", domain.ChunkContent, "contenido sin relacion"),
	}))

	before, err := e.Search(ctx, "matricula", driven.LexicalSearchOptions{MinScore: 0.0001})
	require.NoError(t, err)
	require.NotEmpty(t, before)

	// Doc B also mentions the term, raising its df and lowering idf.
	require.NoError(t, e.IndexDocument(ctx, testDoc("b", "Doc B"), []domain.Chunk{
		testChunk("c3", "b", domain.ChunkContent, "matricula tambien mencionada aqui"),
		testChunk("c4", "b", domain.ChunkContent, "mas relleno irrelevante"),
	}))

	after, err := e.Search(ctx, "matricula", driven.LexicalSearchOptions{MinScore: 0.0001})
	require.NoError(t, err)
	require.NotEmpty(t, after)

	assert.Less(t, after[0].Score, before[0].Score)
}

func TestReindexReplacesEntries(t *testing.T) {
	e := New()
	ctx := context.Background()

	require.NoError(t, e.IndexDocument(ctx, testDoc("a", "Doc A"), []domain.Chunk{
		testChunk("c1", "a", domain.ChunkContent, "matricula abierta"),
	}))
	require.NoError(t, e.IndexDocument(ctx, testDoc("a", "Doc A"), []domain.Chunk{
		testChunk("c9", "a", domain.ChunkContent, "becas disponibles ahora"),
	}))

	gone, err := e.Search(ctx, "matricula", driven.LexicalSearchOptions{MinScore: 0.0001})
	require.NoError(t, err)
	assert.Empty(t, gone)

	present, err := e.Search(ctx, "becas", driven.LexicalSearchOptions{MinScore: 0.0001})
	require.NoError(t, err)
	assert.NotEmpty(t, present)
}

func TestRemoveDocument(t *testing.T) {
	e := New()
	ctx := context.Background()

	require.NoError(t, e.IndexDocument(ctx, testDoc("a", "Doc A"), []domain.Chunk{
		testChunk("c1", "a", domain.ChunkContent, "matricula abierta"),
	}))
	require.NoError(t, e.RemoveDocument(ctx, "a"))
	assert.Equal(t, 0, e.DocumentCount())

	results, err := e.Search(ctx, "matricula", driven.LexicalSearchOptions{MinScore: 0.0001})
	require.NoError(t, err)
	assert.Empty(t, results)
}

// mockLexicalStore records persistence calls.
type mockLexicalStore struct {
	saved   map[string][]driven.LexicalEntry
	deleted []string
}

func newMockLexicalStore() *mockLexicalStore {
	return &mockLexicalStore{saved: make(map[string][]driven.LexicalEntry)}
}

func (m *mockLexicalStore) SaveDocumentEntries(_ context.Context, documentID string, entries []driven.LexicalEntry) error {
	m.saved[documentID] = entries
	return nil
}

func (m *mockLexicalStore) DeleteDocumentEntries(_ context.Context, documentID string) error {
	m.deleted = append(m.deleted, documentID)
	return nil
}

func (m *mockLexicalStore) LoadEntries(_ context.Context) ([]driven.LexicalEntry, error) {
	var all []driven.LexicalEntry
	for _, entries := range m.saved {
		all = append(all, entries...)
	}
	return all, nil
}

func TestPersistAndReload(t *testing.T) {
	ctx := context.Background()
	store := newMockLexicalStore()

	doc := testDoc("a", "Doc A")
	chunks := []domain.Chunk{
		testChunk("c1", "a", domain.ChunkTitle, "Horarios de Clase"),
		testChunk("c2", "a", domain.ChunkContent, "Cálculo I: Lunes 8-10am, Aula 301"),
	}

	e := New(WithStore(store))
	require.NoError(t, e.IndexDocument(ctx, doc, chunks))
	require.NoError(t, e.Flush(ctx))
	require.Len(t, store.saved["a"], 2)

	// A fresh engine reloads the persisted entries.
	reloaded := New(WithStore(store))
	require.NoError(t, reloaded.Load(ctx, []domain.Document{doc}, map[string][]domain.Chunk{"a": chunks}))
	assert.Equal(t, 1, reloaded.DocumentCount())

	results, err := reloaded.Search(ctx, "horarios clase", driven.LexicalSearchOptions{MinScore: 0.01})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "Doc A", results[0].DocumentName)
}
