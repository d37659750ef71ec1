// Package chunker splits normalized text into overlapping fixed-size
// segments using recursive natural-break search: paragraph, then sentence
// line, then word, then a hard character cut.
package chunker

import (
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"
)

// ErrInvalidConfig indicates an invalid chunk size / overlap combination.
var ErrInvalidConfig = errors.New("invalid chunker configuration")

// separators, in preference order. The empty string is the hard cut.
var separators = []string{"\n\n", "\n", " ", ""}

// Chunker splits text deterministically: identical input always yields
// identical output.
type Chunker struct {
	chunkSize int
	overlap   int
	splitter  textsplitter.RecursiveCharacter
}

// New creates a Chunker. Overlap must be non-negative and strictly smaller
// than chunkSize.
func New(chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidConfig, overlap, chunkSize)
	}
	return &Chunker{
		chunkSize: chunkSize,
		overlap:   overlap,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators(separators),
		),
	}, nil
}

// ChunkSize returns the configured chunk size.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Split segments a single text. Consecutive chunks share the configured
// overlap except where a natural break shortens a boundary; the final chunk
// may be shorter than the chunk size. Empty input yields no chunks.
func (c *Chunker) Split(text string) ([]string, error) {
	if text == "" {
		return nil, nil
	}
	chunks, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("splitting text: %w", err)
	}
	return chunks, nil
}

// SplitParts segments each part independently and flattens the results,
// preserving part order. Loader-returned multi-part documents (one part per
// slide, for example) are chunked this way; single-part documents pass
// through Split unchanged.
func (c *Chunker) SplitParts(parts []string) ([]string, error) {
	var out []string
	for i, part := range parts {
		chunks, err := c.Split(part)
		if err != nil {
			return nil, fmt.Errorf("part %d: %w", i, err)
		}
		out = append(out, chunks...)
	}
	return out, nil
}
