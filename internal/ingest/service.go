// Package ingest runs the document ingestion path: extract, chunk, embed,
// index. Ingestion of one document is all-or-nothing; a failure at any stage
// leaves no partially indexed document behind.
package ingest

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/tutorlabs/tutord/internal/extraction"
	"github.com/tutorlabs/tutord/internal/vectorstore"
)

var tracer = otel.Tracer("tutord.ingest")

// Extractor normalizes a document into text parts.
type Extractor interface {
	Extract(ctx context.Context, path string, format extraction.Format) ([]string, error)
}

// Splitter segments text parts into chunks.
type Splitter interface {
	SplitParts(parts []string) ([]string, error)
}

// Embedder converts chunk texts into vectors, order-preserving.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Service ingests and deletes documents. Independent documents may be
// ingested concurrently; the service holds no per-document state.
type Service struct {
	extractor Extractor
	splitter  Splitter
	embedder  Embedder
	index     vectorstore.Index
	logger    *zap.Logger
}

// NewService creates the ingestion service.
func NewService(extractor Extractor, splitter Splitter, embedder Embedder, index vectorstore.Index, logger *zap.Logger) (*Service, error) {
	if extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	if splitter == nil {
		return nil, fmt.Errorf("splitter is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if index == nil {
		return nil, fmt.Errorf("index is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		extractor: extractor,
		splitter:  splitter,
		embedder:  embedder,
		index:     index,
		logger:    logger.Named("ingest"),
	}, nil
}

// Ingest processes the file at path into indexed chunks for docID and
// returns the chunk count.
//
// Re-ingesting an existing docID replaces its chunks: previous entries are
// deleted before the new set is written, so a shrunken document leaves no
// stale tail chunks. If the upsert itself fails, the document's entries are
// removed again so no half-indexed document persists.
func (s *Service) Ingest(ctx context.Context, docID, path string, format extraction.Format) (int, error) {
	ctx, span := tracer.Start(ctx, "ingest.Ingest")
	defer span.End()

	span.SetAttributes(
		attribute.String("doc_id", docID),
		attribute.String("format", string(format)),
	)

	start := time.Now()

	parts, err := s.extractor.Extract(ctx, path, format)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("extracting %s: %w", docID, err)
	}

	texts, err := s.splitter.SplitParts(parts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("chunking %s: %w", docID, err)
	}
	if len(texts) == 0 {
		return 0, fmt.Errorf("document %s produced no text", docID)
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("embedding %s: %w", docID, err)
	}

	chunks := make([]vectorstore.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = vectorstore.Chunk{DocID: docID, Seq: i, Text: text}
	}

	if err := s.index.DeleteDocument(ctx, docID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("clearing previous chunks of %s: %w", docID, err)
	}

	if err := s.index.UpsertChunks(ctx, chunks, vectors); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		// Roll back whatever the failed upsert may have written.
		if cleanupErr := s.index.DeleteDocument(ctx, docID); cleanupErr != nil {
			s.logger.Error("cleanup after failed upsert failed",
				zap.String("doc_id", docID),
				zap.Error(cleanupErr),
			)
		}
		return 0, fmt.Errorf("indexing %s: %w", docID, err)
	}

	s.logger.Info("ingested document",
		zap.String("doc_id", docID),
		zap.String("format", string(format)),
		zap.Int("chunks", len(chunks)),
		zap.Duration("elapsed", time.Since(start)),
	)

	span.SetAttributes(attribute.Int("chunks", len(chunks)))
	span.SetStatus(codes.Ok, "success")
	return len(chunks), nil
}

// IngestFile derives the format from the file extension, rejecting unknown
// extensions before any extraction work.
func (s *Service) IngestFile(ctx context.Context, docID, path string) (int, error) {
	format, err := extraction.FormatFromPath(path)
	if err != nil {
		return 0, err
	}
	return s.Ingest(ctx, docID, path, format)
}

// Delete removes every indexed chunk of a document.
func (s *Service) Delete(ctx context.Context, docID string) error {
	ctx, span := tracer.Start(ctx, "ingest.Delete")
	defer span.End()

	span.SetAttributes(attribute.String("doc_id", docID))

	if err := s.index.DeleteDocument(ctx, docID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("deleting %s: %w", docID, err)
	}

	s.logger.Info("deleted document", zap.String("doc_id", docID))
	span.SetStatus(codes.Ok, "success")
	return nil
}
