package extraction

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// extractPDF extracts the text layer page by page, then OCRs every raster
// image embedded in each page and appends the recovered text after that
// page's text layer. The result is a single string in page order.
func (s *Service) extractPDF(ctx context.Context, path string) (string, error) {
	out, err := s.runner.Run(ctx, s.config.PdfToTextBin, "-enc", "UTF-8", path, "-")
	if err != nil {
		return "", fmt.Errorf("%w: pdftotext %s: %v", ErrExtractionFailed, path, err)
	}

	// pdftotext separates pages with form feeds; a trailing one is emitted
	// after the last page.
	pages := strings.Split(strings.TrimSuffix(string(out), "\f"), "\f")

	tmpDir, err := os.MkdirTemp("", "tutord-pdf-*")
	if err != nil {
		return "", fmt.Errorf("%w: creating temp dir: %v", ErrExtractionFailed, err)
	}
	defer os.RemoveAll(tmpDir)

	var sb strings.Builder
	for i, pageText := range pages {
		sb.WriteString(pageText)

		pageNum := i + 1
		ocrText, err := s.ocrPageImages(ctx, path, pageNum, tmpDir)
		if err != nil {
			return "", err
		}
		sb.WriteString(ocrText)
	}
	return sb.String(), nil
}

// ocrPageImages exports the raster images of one page and OCRs each in turn.
func (s *Service) ocrPageImages(ctx context.Context, path string, pageNum int, tmpDir string) (string, error) {
	prefix := filepath.Join(tmpDir, "page"+strconv.Itoa(pageNum))
	page := strconv.Itoa(pageNum)

	_, err := s.runner.Run(ctx, s.config.PdfImagesBin, "-f", page, "-l", page, "-png", path, prefix)
	if err != nil {
		return "", fmt.Errorf("%w: pdfimages %s page %d: %v", ErrExtractionFailed, path, pageNum, err)
	}

	images, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return "", fmt.Errorf("%w: listing page images: %v", ErrExtractionFailed, err)
	}
	sort.Strings(images)

	var sb strings.Builder
	for _, img := range images {
		text, err := s.ocrImage(ctx, img)
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
		// Remove as we go so the next page's glob stays cheap.
		_ = os.Remove(img)
	}
	return sb.String(), nil
}
