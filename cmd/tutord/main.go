// Tutord ingests course documents into a vector index and answers questions
// and quiz requests against them over HTTP.
//
// Configuration is loaded from an optional YAML file plus TUTORD_* environment
// variables; see internal/config.
//
// Usage:
//
//	tutord -config /etc/tutord/config.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tutorlabs/tutord/internal/checkpoint"
	"github.com/tutorlabs/tutord/internal/chunker"
	"github.com/tutorlabs/tutord/internal/config"
	"github.com/tutorlabs/tutord/internal/conversation"
	"github.com/tutorlabs/tutord/internal/embeddings"
	"github.com/tutorlabs/tutord/internal/extraction"
	"github.com/tutorlabs/tutord/internal/ingest"
	"github.com/tutorlabs/tutord/internal/llm"
	"github.com/tutorlabs/tutord/internal/logging"
	"github.com/tutorlabs/tutord/internal/quiz"
	"github.com/tutorlabs/tutord/internal/server"
	"github.com/tutorlabs/tutord/internal/vectorstore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tutord: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	// Optional .env for local development.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	index, err := vectorstore.NewQdrantIndex(vectorstore.QdrantConfig{
		Host:         cfg.Qdrant.Host,
		Port:         cfg.Qdrant.Port,
		Collection:   cfg.Qdrant.Collection,
		VectorSize:   uint64(cfg.Qdrant.VectorSize),
		UseTLS:       cfg.Qdrant.UseTLS,
		MaxRetries:   cfg.Qdrant.MaxRetries,
		RetryBackoff: cfg.Qdrant.RetryBackoff,
	})
	if err != nil {
		return fmt.Errorf("connecting to qdrant: %w", err)
	}
	defer func() { _ = index.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := index.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("ensuring collection: %w", err)
	}

	gateway, err := embeddings.NewGateway(embeddings.Config{
		BaseURL:    cfg.Embeddings.BaseURL,
		Model:      cfg.Embeddings.Model,
		APIKey:     cfg.Embeddings.APIKey,
		Dimension:  cfg.Embeddings.Dimension,
		MaxRetries: cfg.Embeddings.MaxRetries,
		Timeout:    cfg.Embeddings.Timeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating embedding gateway: %w", err)
	}

	completer, err := llm.NewOllamaCompleter(llm.OllamaConfig{
		ServerURL:   cfg.LLM.ServerURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating completer: %w", err)
	}

	checkpoints, err := checkpoint.NewSQLiteStore(cfg.Checkpoint.DataDir)
	if err != nil {
		return fmt.Errorf("opening checkpoint store: %w", err)
	}
	defer func() { _ = checkpoints.Close() }()

	extractor := extraction.NewService(extraction.Config{
		PdfToTextBin: cfg.Extraction.PdfToTextBin,
		PdfImagesBin: cfg.Extraction.PdfImagesBin,
		TesseractBin: cfg.Extraction.TesseractBin,
		Timeout:      cfg.Extraction.Timeout,
	}, nil, logger)

	splitter, err := chunker.New(cfg.Chunking.ChunkSize, cfg.Chunking.Overlap)
	if err != nil {
		return fmt.Errorf("creating chunker: %w", err)
	}

	ingester, err := ingest.NewService(extractor, splitter, gateway, index, logger)
	if err != nil {
		return fmt.Errorf("creating ingest service: %w", err)
	}

	engine, err := conversation.NewEngine(index, gateway, completer, checkpoints, conversation.Config{
		Namespace:  cfg.Checkpoint.Namespace,
		RetrievalK: cfg.Retrieval.ChatK,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating conversation engine: %w", err)
	}

	quizzes, err := quiz.NewGenerator(index, gateway, completer, quiz.Config{
		RetrievalK: cfg.Retrieval.QuizK,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating quiz generator: %w", err)
	}

	srv := server.New(server.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}, ingester, engine, quizzes, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return <-errCh
}
