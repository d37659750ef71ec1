package extraction

import "errors"

var (
	// ErrUnsupportedFormat is returned for file extensions outside
	// pdf, docx, pptx, png/jpg/jpeg, txt.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrExtractionFailed wraps parser and OCR failures.
	ErrExtractionFailed = errors.New("extraction failed")
)
