// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): durable stores, the lexical and vector
// indices, the semantic caches, and the embedding/completion providers.
//
// Services depend only on these interfaces; adapters under
// internal/adapters/driven implement them.
package driven
