package driving

import (
	"context"

	"github.com/aula-labs/aula-cli/internal/core/domain"
)

// AnswerService answers natural-language questions against the ingested
// corpus through a tiered pipeline: response cache, FAQ match, hierarchical
// lexical search, embedding-similarity fallback, generative completion.
type AnswerService interface {
	// Answer resolves one question for a requester. A completion-provider
	// failure propagates as an error; the caller decides how to apologise
	// to the end user.
	Answer(ctx context.Context, question, requesterID string) (*domain.Answer, error)
}
