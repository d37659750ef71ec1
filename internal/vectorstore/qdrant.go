package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Tracer for OpenTelemetry instrumentation.
var tracer = otel.Tracer("tutord.vectorstore.qdrant")

// Payload keys for chunk entries.
const (
	payloadDocID = "doc_id"
	payloadSeq   = "seq"
	payloadText  = "text"
)

// QdrantConfig holds configuration for the Qdrant gRPC client.
type QdrantConfig struct {
	// Host is the Qdrant server hostname or IP address.
	Host string

	// Port is the Qdrant gRPC port (6334), not the HTTP REST port.
	Port int

	// Collection is the chunk collection name.
	Collection string

	// VectorSize is the embedding dimension. Must match the gateway.
	VectorSize uint64

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// MaxRetries is the maximum number of retry attempts for transient failures.
	MaxRetries int

	// RetryBackoff is the initial backoff duration, doubling per retry.
	RetryBackoff time.Duration

	// MaxMessageSize is the maximum gRPC message size in bytes.
	MaxMessageSize int
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
	}
	if c.Collection == "" {
		return fmt.Errorf("%w: collection required", ErrInvalidConfig)
	}
	if c.VectorSize == 0 {
		return fmt.Errorf("%w: vector size required", ErrInvalidConfig)
	}
	return nil
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
}

// IsTransientError reports whether an error should be retried.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// QdrantIndex is the Index implementation backed by Qdrant's gRPC client.
type QdrantIndex struct {
	client *qdrant.Client
	config QdrantConfig
}

// NewQdrantIndex connects to Qdrant and verifies the connection.
func NewQdrantIndex(cfg QdrantConfig) (*QdrantIndex, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(cfg.MaxMessageSize),
				grpc.MaxCallSendMsgSize(cfg.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	idx := &QdrantIndex{client: client, config: cfg}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: health check: %v", ErrConnectionFailed, err)
	}
	return idx, nil
}

// Close closes the gRPC connection.
func (s *QdrantIndex) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// retryOperation retries an operation with exponential backoff on transient
// gRPC errors.
func (s *QdrantIndex) retryOperation(ctx context.Context, name string, op func() error) error {
	backoff := s.config.RetryBackoff
	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if !IsTransientError(err) {
			return fmt.Errorf("%s failed (permanent): %w", name, err)
		}
		if attempt == s.config.MaxRetries {
			return fmt.Errorf("%w: %s failed after %d retries: %v", ErrIndexUnavailable, name, s.config.MaxRetries, err)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", name, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return nil
}

// EnsureCollection idempotently creates the chunk collection with cosine
// distance and the configured dimension.
func (s *QdrantIndex) EnsureCollection(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "QdrantIndex.EnsureCollection")
	defer span.End()

	span.SetAttributes(attribute.String("collection", s.config.Collection))

	var exists bool
	err := s.retryOperation(ctx, "collection_exists", func() error {
		ok, err := s.client.CollectionExists(ctx, s.config.Collection)
		if err != nil {
			return err
		}
		exists = ok
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("checking collection %s: %w", s.config.Collection, err)
	}
	if exists {
		span.SetStatus(codes.Ok, "exists")
		return nil
	}

	err = s.retryOperation(ctx, "create_collection", func() error {
		return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.config.Collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     s.config.VectorSize,
				Distance: qdrant.Distance_Cosine,
			}),
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("creating collection %s: %w", s.config.Collection, err)
	}

	span.SetStatus(codes.Ok, "created")
	return nil
}

// UpsertChunks writes one point per chunk with a deterministic identity, so
// re-ingesting a document overwrites its previous points.
func (s *QdrantIndex) UpsertChunks(ctx context.Context, chunks []Chunk, vectors [][]float32) error {
	ctx, span := tracer.Start(ctx, "QdrantIndex.UpsertChunks")
	defer span.End()

	span.SetAttributes(
		attribute.Int("chunk_count", len(chunks)),
		attribute.String("collection", s.config.Collection),
	)

	if len(chunks) == 0 {
		return ErrEmptyChunks
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: %d vectors for %d chunks", ErrInvalidConfig, len(vectors), len(chunks))
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		if len(vectors[i]) != int(s.config.VectorSize) {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d",
				ErrInvalidConfig, i, len(vectors[i]), s.config.VectorSize)
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointID(chunk.DocID, chunk.Seq)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: map[string]*qdrant.Value{
				payloadDocID: {Kind: &qdrant.Value_StringValue{StringValue: chunk.DocID}},
				payloadSeq:   {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(chunk.Seq)}},
				payloadText:  {Kind: &qdrant.Value_StringValue{StringValue: chunk.Text}},
			},
		}
	}

	err := s.retryOperation(ctx, "upsert", func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.config.Collection,
			Points:         points,
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upserting %d points: %w", len(points), err)
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

// DeleteDocument removes every point whose payload doc_id matches. This is a
// filtered bulk delete; deletion is total, leaving no orphaned chunks.
func (s *QdrantIndex) DeleteDocument(ctx context.Context, docID string) error {
	ctx, span := tracer.Start(ctx, "QdrantIndex.DeleteDocument")
	defer span.End()

	span.SetAttributes(
		attribute.String("doc_id", docID),
		attribute.String("collection", s.config.Collection),
	)

	err := s.retryOperation(ctx, "delete", func() error {
		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: s.config.Collection,
			Points: &qdrant.PointsSelector{
				PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
					Filter: &qdrant.Filter{
						Must: []*qdrant.Condition{
							{
								ConditionOneOf: &qdrant.Condition_Field{
									Field: &qdrant.FieldCondition{
										Key: payloadDocID,
										Match: &qdrant.Match{
											MatchValue: &qdrant.Match_Keyword{Keyword: docID},
										},
									},
								},
							},
						},
					},
				},
			},
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("deleting document %s: %w", docID, err)
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

// Search returns the k nearest points restricted to the allowed document-id
// set. An empty set returns no results without touching the index.
func (s *QdrantIndex) Search(ctx context.Context, vector []float32, k int, allowedDocIDs []string) ([]SearchResult, error) {
	ctx, span := tracer.Start(ctx, "QdrantIndex.Search")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", s.config.Collection),
		attribute.Int("k", k),
		attribute.Int("allowed_docs", len(allowedDocIDs)),
	)

	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidConfig, k)
	}
	if len(vector) != int(s.config.VectorSize) {
		return nil, fmt.Errorf("%w: query vector has dimension %d, want %d",
			ErrInvalidConfig, len(vector), s.config.VectorSize)
	}
	// Fail closed: no allowed documents means no results.
	if len(allowedDocIDs) == 0 {
		span.SetStatus(codes.Ok, "empty allowed set")
		return nil, nil
	}

	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: payloadDocID,
						Match: &qdrant.Match{
							MatchValue: &qdrant.Match_Keywords{
								Keywords: &qdrant.RepeatedStrings{Strings: allowedDocIDs},
							},
						},
					},
				},
			},
		},
	}

	var scored []*qdrant.ScoredPoint
	err := s.retryOperation(ctx, "search", func() error {
		res, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: s.config.Collection,
			Query:          qdrant.NewQuery(vector...),
			Limit:          qdrant.PtrOf(uint64(k)),
			WithPayload:    qdrant.NewWithPayload(true),
			Filter:         filter,
		})
		if err != nil {
			return err
		}
		scored = res
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("searching collection %s: %w", s.config.Collection, err)
	}

	results := make([]SearchResult, 0, len(scored))
	for _, point := range scored {
		results = append(results, resultFromPayload(point.Payload, point.Score))
	}

	span.SetAttributes(attribute.Int("results_count", len(results)))
	span.SetStatus(codes.Ok, "success")
	return results, nil
}

// resultFromPayload converts a point payload into a SearchResult.
func resultFromPayload(payload map[string]*qdrant.Value, score float32) SearchResult {
	result := SearchResult{Score: score}
	for key, value := range payload {
		switch val := value.Kind.(type) {
		case *qdrant.Value_StringValue:
			switch key {
			case payloadDocID:
				result.DocID = val.StringValue
			case payloadText:
				result.Text = val.StringValue
			}
		case *qdrant.Value_IntegerValue:
			if key == payloadSeq {
				result.Seq = int(val.IntegerValue)
			}
		}
	}
	return result
}

// Ensure QdrantIndex implements Index.
var _ Index = (*QdrantIndex)(nil)
