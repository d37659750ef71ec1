// Package vectorstore defines the vector index for document chunks.
package vectorstore

import (
	"context"
	"errors"
)

// Sentinel errors for vector index operations.
var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionFailed indicates gRPC connection issues.
	ErrConnectionFailed = errors.New("failed to connect to Qdrant")

	// ErrIndexUnavailable indicates connectivity or timeout failures
	// talking to the vector store.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrEmptyChunks indicates an upsert with no chunks.
	ErrEmptyChunks = errors.New("empty chunk batch")
)

// Chunk is one indexed segment of a document.
type Chunk struct {
	// DocID is the caller-assigned document identity.
	DocID string

	// Seq is the chunk's position within its document.
	Seq int

	// Text is the chunk content, stored in the entry payload.
	Text string
}

// SearchResult is one scored entry returned by similarity search.
type SearchResult struct {
	// DocID is the owning document's identity.
	DocID string

	// Seq is the chunk's position within its document.
	Seq int

	// Text is the chunk content from the entry payload.
	Text string

	// Score is the cosine similarity (higher = more similar).
	Score float32
}

// Index is the single vector-index capability used by ingestion, chat and
// quiz generation. One concrete implementation is chosen at deployment.
//
// The allowed-document filter on Search is the only access-control boundary
// between documents of different courses; the index itself is not
// partitioned per tenant, so callers must always supply the restricted set.
type Index interface {
	// EnsureCollection idempotently creates the chunk collection with the
	// configured dimension and cosine distance.
	EnsureCollection(ctx context.Context) error

	// UpsertChunks writes one entry per chunk. Entry identity is
	// deterministic over (doc_id, seq), so re-ingesting a document
	// overwrites its previous chunks rather than duplicating them.
	UpsertChunks(ctx context.Context, chunks []Chunk, vectors [][]float32) error

	// DeleteDocument removes every entry whose payload doc_id matches.
	DeleteDocument(ctx context.Context, docID string) error

	// Search returns the k nearest entries restricted to the allowed
	// document-id set. An empty set yields no results (fail closed).
	Search(ctx context.Context, vector []float32, k int, allowedDocIDs []string) ([]SearchResult, error)

	// Close releases the underlying connection.
	Close() error
}
