// Package driving provides interfaces for application entry points
// (primary/inbound ports): answering questions, ingesting documents, and
// maintenance operations. The CLI and any future channel adapters call
// the engine exclusively through these interfaces.
package driving
