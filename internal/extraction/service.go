// Package extraction normalizes supported document formats into plain text,
// recovering text embedded in raster images via OCR.
//
// PDF text layers are read with pdftotext, embedded page images are exported
// with pdfimages, and images are OCR'd with tesseract. The tools are invoked
// through a CommandRunner so tests can substitute a fake.
package extraction

import (
	"context"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Config configures the extraction service.
type Config struct {
	// Tool binary names or paths.
	PdfToTextBin string
	PdfImagesBin string
	TesseractBin string

	// Timeout bounds each external tool invocation.
	Timeout time.Duration
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.PdfToTextBin == "" {
		c.PdfToTextBin = "pdftotext"
	}
	if c.PdfImagesBin == "" {
		c.PdfImagesBin = "pdfimages"
	}
	if c.TesseractBin == "" {
		c.TesseractBin = "tesseract"
	}
	if c.Timeout == 0 {
		c.Timeout = 2 * time.Minute
	}
}

// Service extracts normalized text from documents.
type Service struct {
	runner CommandRunner
	config Config
	logger *zap.Logger
}

// NewService creates an extraction service. A nil runner uses ExecRunner.
func NewService(cfg Config, runner CommandRunner, logger *zap.Logger) *Service {
	cfg.ApplyDefaults()
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		runner: runner,
		config: cfg,
		logger: logger.Named("extraction"),
	}
}

// Extract normalizes the file at path into one or more text parts.
//
// Dispatch is driven by the declared format, not content sniffing. PDF, image
// and txt sources yield a single part; docx yields one part for the document
// body; pptx yields one part per slide, in slide order.
//
// Any parser or OCR failure aborts the whole extraction; no partial result is
// returned.
func (s *Service) Extract(ctx context.Context, path string, format Format) ([]string, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(format))
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	start := time.Now()
	var (
		parts []string
		err   error
	)
	switch format {
	case FormatPDF:
		var text string
		text, err = s.extractPDF(ctx, path)
		parts = []string{text}
	case FormatDOCX:
		var text string
		text, err = extractDOCX(path)
		parts = []string{text}
	case FormatPPTX:
		parts, err = extractPPTX(path)
	case FormatImage:
		var text string
		text, err = s.ocrImage(ctx, path)
		parts = []string{text}
	case FormatTXT:
		var text string
		text, err = readTextFile(path)
		parts = []string{text}
	}
	if err != nil {
		return nil, err
	}

	s.logger.Debug("extracted document",
		zap.String("path", path),
		zap.String("format", string(format)),
		zap.Int("parts", len(parts)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return parts, nil
}

// ocrImage runs OCR over a whole raster image.
func (s *Service) ocrImage(ctx context.Context, path string) (string, error) {
	out, err := s.runner.Run(ctx, s.config.TesseractBin, path, "stdout")
	if err != nil {
		return "", fmt.Errorf("%w: ocr %s: %v", ErrExtractionFailed, path, err)
	}
	return string(out), nil
}

// readTextFile reads a plain-text source as UTF-8.
func readTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", ErrExtractionFailed, path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", ErrExtractionFailed, path)
	}
	return string(data), nil
}
