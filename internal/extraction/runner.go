package extraction

import (
	"context"
	"fmt"
	"os/exec"
)

// CommandRunner executes an external extraction tool and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct{}

// Run executes the command, returning stdout. Stderr is folded into the error.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%s: %w: %s", name, err, exitErr.Stderr)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// InstallInstructions describes how to install the external tools tutord
// shells out to for PDF text, PDF image and OCR extraction.
func InstallInstructions() string {
	return `PDF and OCR extraction require poppler and tesseract:
  macOS:  brew install poppler tesseract
  Debian: apt install poppler-utils tesseract-ocr`
}
