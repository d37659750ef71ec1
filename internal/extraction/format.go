package extraction

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies a supported document format.
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatDOCX  Format = "docx"
	FormatPPTX  Format = "pptx"
	FormatImage Format = "image"
	FormatTXT   Format = "txt"
)

// FormatFromPath derives the Format from a file extension. Unknown extensions
// are rejected here, before any extraction work begins.
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "pdf":
		return FormatPDF, nil
	case "docx":
		return FormatDOCX, nil
	case "pptx":
		return FormatPPTX, nil
	case "png", "jpg", "jpeg":
		return FormatImage, nil
	case "txt":
		return FormatTXT, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	switch f {
	case FormatPDF, FormatDOCX, FormatPPTX, FormatImage, FormatTXT:
		return true
	}
	return false
}
