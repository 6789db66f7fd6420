package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aula-labs/aula-cli/internal/core/domain"
)

func TestAskCommand(t *testing.T) {
	oldService := answerService
	mock := &mockAnswerService{answer: &domain.Answer{
		Text:   "Lunes 8-10am, Aula 301",
		Source: domain.SourceLexical,
		Citations: []domain.Citation{
			{DocumentName: "Horarios 2026", Snippet: "Cálculo I: Lunes 8-10am", Score: 0.82},
		},
	}}
	answerService = mock
	defer func() { answerService = oldService }()

	defer func() { askRequester = "" }()
	out, err := executeCommand("ask", "¿Cuál es el horario de Cálculo I?", "--requester", "alice")
	require.NoError(t, err)

	assert.Equal(t, "¿Cuál es el horario de Cálculo I?", mock.question)
	assert.Equal(t, "alice", mock.requester)
	assert.Contains(t, out, "Lunes 8-10am, Aula 301")
	assert.Contains(t, out, "Horarios 2026")
	assert.Contains(t, out, "0.82")
}

func TestAskCommandNoContext(t *testing.T) {
	oldService := answerService
	answerService = &mockAnswerService{err: domain.ErrNoRelevantContext}
	defer func() { answerService = oldService }()

	out, err := executeCommand("ask", "¿Qué hay de almuerzo?")
	require.NoError(t, err)
	assert.Contains(t, out, "No ingested document covers that question.")
}

func TestAskCommandCompletionUnavailable(t *testing.T) {
	oldService := answerService
	answerService = &mockAnswerService{err: domain.ErrCompletionUnavailable}
	defer func() { answerService = oldService }()

	_, err := executeCommand("ask", "¿Hola?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aula config llm")
}

func TestAskCommandJSON(t *testing.T) {
	oldService := answerService
	answerService = &mockAnswerService{answer: &domain.Answer{
		Text:   "respuesta",
		Source: domain.SourceFAQ,
	}}
	defer func() { answerService = oldService }()

	defer func() { askJSON = false }()
	out, err := executeCommand("ask", "pregunta", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"Source": "faq"`)
}
