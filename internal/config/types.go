package config

import (
	"fmt"
	"time"
)

// Config is the top-level tutord configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Qdrant     QdrantConfig     `koanf:"qdrant"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	LLM        LLMConfig        `koanf:"llm"`
	Checkpoint CheckpointConfig `koanf:"checkpoint"`
	Chunking   ChunkingConfig   `koanf:"chunking"`
	Retrieval  RetrievalConfig  `koanf:"retrieval"`
	Extraction ExtractionConfig `koanf:"extraction"`
}

// ServerConfig configures the HTTP shell.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// QdrantConfig configures the vector index connection.
type QdrantConfig struct {
	// Host is the Qdrant server hostname or IP address.
	Host string `koanf:"host"`

	// Port is the Qdrant gRPC port (6334), not the HTTP REST port.
	Port int `koanf:"port"`

	// Collection is the collection holding document chunks.
	Collection string `koanf:"collection"`

	// VectorSize must match the embedding model's output dimension.
	VectorSize int `koanf:"vector_size"`

	UseTLS       bool          `koanf:"use_tls"`
	MaxRetries   int           `koanf:"max_retries"`
	RetryBackoff time.Duration `koanf:"retry_backoff"`
}

// EmbeddingsConfig configures the embedding gateway.
//
// BaseURL points at any OpenAI-compatible embeddings endpoint; a local TEI
// server serving all-MiniLM-L6-v2 is the default deployment.
type EmbeddingsConfig struct {
	BaseURL    string        `koanf:"base_url"`
	Model      string        `koanf:"model"`
	APIKey     string        `koanf:"api_key"`
	Dimension  int           `koanf:"dimension"`
	MaxRetries int           `koanf:"max_retries"`
	Timeout    time.Duration `koanf:"timeout"`
}

// LLMConfig configures the generative-text oracle.
type LLMConfig struct {
	// ServerURL is the Ollama server address.
	ServerURL string `koanf:"server_url"`

	Model       string        `koanf:"model"`
	Temperature float64       `koanf:"temperature"`
	Timeout     time.Duration `koanf:"timeout"`
}

// CheckpointConfig configures the conversation checkpoint store.
type CheckpointConfig struct {
	// DataDir holds the SQLite database file.
	DataDir string `koanf:"data_dir"`

	// Namespace partitions checkpoint keys; one deployment, one namespace.
	Namespace string `koanf:"namespace"`
}

// ChunkingConfig configures text segmentation.
type ChunkingConfig struct {
	ChunkSize int `koanf:"chunk_size"`
	Overlap   int `koanf:"overlap"`
}

// RetrievalConfig sets how many chunks ground each oracle call.
type RetrievalConfig struct {
	ChatK int `koanf:"chat_k"`
	QuizK int `koanf:"quiz_k"`
}

// ExtractionConfig configures the external extraction tools.
type ExtractionConfig struct {
	PdfToTextBin string        `koanf:"pdftotext_bin"`
	PdfImagesBin string        `koanf:"pdfimages_bin"`
	TesseractBin string        `koanf:"tesseract_bin"`
	Timeout      time.Duration `koanf:"timeout"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8085,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Qdrant: QdrantConfig{
			Host:         "localhost",
			Port:         6334,
			Collection:   "documents",
			VectorSize:   384,
			MaxRetries:   3,
			RetryBackoff: time.Second,
		},
		Embeddings: EmbeddingsConfig{
			BaseURL:    "http://localhost:8080/v1",
			Model:      "sentence-transformers/all-MiniLM-L6-v2",
			Dimension:  384,
			MaxRetries: 3,
			Timeout:    30 * time.Second,
		},
		LLM: LLMConfig{
			ServerURL:   "http://localhost:11434",
			Model:       "llama3.2",
			Temperature: 0.7,
			Timeout:     2 * time.Minute,
		},
		Checkpoint: CheckpointConfig{
			DataDir:   "",
			Namespace: "chat",
		},
		Chunking: ChunkingConfig{
			ChunkSize: 1000,
			Overlap:   200,
		},
		Retrieval: RetrievalConfig{
			ChatK: 10,
			QuizK: 20,
		},
		Extraction: ExtractionConfig{
			PdfToTextBin: "pdftotext",
			PdfImagesBin: "pdfimages",
			TesseractBin: "tesseract",
			Timeout:      2 * time.Minute,
		},
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server: invalid port %d", c.Server.Port)
	}
	if c.Qdrant.Host == "" {
		return fmt.Errorf("qdrant: host required")
	}
	if c.Qdrant.Port <= 0 || c.Qdrant.Port > 65535 {
		return fmt.Errorf("qdrant: invalid port %d", c.Qdrant.Port)
	}
	if c.Qdrant.Collection == "" {
		return fmt.Errorf("qdrant: collection required")
	}
	if c.Qdrant.VectorSize <= 0 {
		return fmt.Errorf("qdrant: vector size required")
	}
	if c.Embeddings.BaseURL == "" {
		return fmt.Errorf("embeddings: base URL required")
	}
	if c.Embeddings.Model == "" {
		return fmt.Errorf("embeddings: model required")
	}
	if c.Embeddings.Dimension != c.Qdrant.VectorSize {
		return fmt.Errorf("embeddings: dimension %d does not match qdrant vector size %d",
			c.Embeddings.Dimension, c.Qdrant.VectorSize)
	}
	if c.LLM.ServerURL == "" {
		return fmt.Errorf("llm: server URL required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm: model required")
	}
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunking: chunk size must be positive")
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunking: overlap %d must be non-negative and smaller than chunk size %d",
			c.Chunking.Overlap, c.Chunking.ChunkSize)
	}
	if c.Retrieval.ChatK <= 0 || c.Retrieval.QuizK <= 0 {
		return fmt.Errorf("retrieval: chat_k and quiz_k must be positive")
	}
	return nil
}
