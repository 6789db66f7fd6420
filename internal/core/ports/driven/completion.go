package driven

import "context"

// CompletionService generates answer text from assembled context.
// Failures are hard errors for the request: the engine propagates them to
// the caller rather than fabricating an answer.
//
// Implementations may include:
//   - OpenAI (GPT-4o, GPT-4o-mini)
//   - Azure OpenAI or compatible APIs
//   - Ollama (local models)
type CompletionService interface {
	// Complete produces an answer from system instructions plus a user
	// prompt that already carries the retrieved context.
	Complete(ctx context.Context, system, user string) (string, error)

	// Summarise compresses content (conversation memory) to at most
	// maxLength characters via a lightweight secondary call.
	Summarise(ctx context.Context, content string, maxLength int) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
