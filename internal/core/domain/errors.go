package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDimensionMismatch indicates a vector was inserted or queried with
	// the wrong dimension for an already-initialised index. Silently
	// truncating or padding would corrupt distance computations, so this
	// always fails fast.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmbeddingUnavailable indicates the embedding provider is not
	// configured or failed. Retrieval layers that need embeddings are
	// skipped rather than failing the request.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// ErrCompletionUnavailable indicates the completion provider is not
	// configured. Requests that reach the generative tier fail.
	ErrCompletionUnavailable = errors.New("completion provider unavailable")

	// ErrCompletionFailed indicates the completion provider call failed.
	// This is a hard error for the request; the engine never fabricates
	// an answer in its place.
	ErrCompletionFailed = errors.New("completion failed")

	// ErrNoRelevantContext indicates no retrieval layer produced
	// sufficient relevance for the question.
	ErrNoRelevantContext = errors.New("no relevant context found")

	// ErrIndexEmpty indicates a search was attempted before any document
	// was indexed.
	ErrIndexEmpty = errors.New("index is empty")
)
