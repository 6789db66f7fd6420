// Package domain contains the core business entities for the aula engine:
// documents and their typed chunks, search results, cache entries, the
// corpus fingerprint, and the sentinel errors shared across layers.
//
// Domain types carry no infrastructure concerns. Adapters translate them
// to and from their own representations (SQL rows, API payloads).
package domain
