package extraction

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner is a test double for CommandRunner dispatching on tool name.
type fakeRunner struct {
	pdfText       string
	imagesPerPage map[string]int    // page number -> image count to fabricate
	ocrByMarker   map[string]string // substring of image path -> OCR output
	ocrText       string
	failTool      string

	calls [][]string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if name == f.failTool {
		return nil, errors.New("tool exploded")
	}

	switch name {
	case "pdftotext":
		return []byte(f.pdfText), nil
	case "pdfimages":
		// args: -f N -l N -png <path> <prefix>
		page := args[1]
		prefix := args[len(args)-1]
		for i := 0; i < f.imagesPerPage[page]; i++ {
			path := prefix + "-00" + string(rune('0'+i)) + ".png"
			if err := os.WriteFile(path, []byte("png"), 0o600); err != nil {
				return nil, err
			}
		}
		return nil, nil
	case "tesseract":
		imgPath := args[0]
		for marker, text := range f.ocrByMarker {
			if strings.Contains(imgPath, marker) {
				return []byte(text), nil
			}
		}
		return []byte(f.ocrText), nil
	}
	return nil, errors.New("unexpected tool: " + name)
}

func newTestService(runner CommandRunner) *Service {
	return NewService(Config{}, runner, nil)
}

func TestExtract_TXT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text content"), 0o600))

	svc := newTestService(&fakeRunner{})
	parts, err := svc.Extract(context.Background(), path, FormatTXT)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, "plain text content", parts[0])
}

func TestExtract_TXT_InvalidUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xfe, 0x00}, 0o600))

	svc := newTestService(&fakeRunner{})
	_, err := svc.Extract(context.Background(), path, FormatTXT)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestExtract_TXT_MissingFile(t *testing.T) {
	svc := newTestService(&fakeRunner{})
	_, err := svc.Extract(context.Background(), filepath.Join(t.TempDir(), "absent.txt"), FormatTXT)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestExtract_Image(t *testing.T) {
	runner := &fakeRunner{ocrText: "recovered from scan"}
	svc := newTestService(runner)

	parts, err := svc.Extract(context.Background(), "/uploads/scan.png", FormatImage)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, "recovered from scan", parts[0])

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"tesseract", "/uploads/scan.png", "stdout"}, runner.calls[0])
}

func TestExtract_Image_OCRFailure(t *testing.T) {
	svc := newTestService(&fakeRunner{failTool: "tesseract"})
	_, err := svc.Extract(context.Background(), "/uploads/scan.png", FormatImage)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestExtract_PDF_TextLayerOnly(t *testing.T) {
	runner := &fakeRunner{pdfText: "page one text\fpage two text\f"}
	svc := newTestService(runner)

	parts, err := svc.Extract(context.Background(), "/uploads/lecture.pdf", FormatPDF)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, "page one textpage two text", parts[0])
}

func TestExtract_PDF_AppendsOCRAfterEachPage(t *testing.T) {
	runner := &fakeRunner{
		pdfText:       "alpha\fbeta\f",
		imagesPerPage: map[string]int{"1": 1, "2": 1},
		ocrByMarker: map[string]string{
			"page1": "[ocr one]",
			"page2": "[ocr two]",
		},
	}
	svc := newTestService(runner)

	parts, err := svc.Extract(context.Background(), "/uploads/diagrams.pdf", FormatPDF)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, "alpha[ocr one]beta[ocr two]", parts[0])
}

func TestExtract_PDF_TextLayerFailure(t *testing.T) {
	svc := newTestService(&fakeRunner{failTool: "pdftotext"})
	_, err := svc.Extract(context.Background(), "/uploads/broken.pdf", FormatPDF)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestExtract_PDF_ImageExportFailure(t *testing.T) {
	svc := newTestService(&fakeRunner{pdfText: "page\f", failTool: "pdfimages"})
	_, err := svc.Extract(context.Background(), "/uploads/broken.pdf", FormatPDF)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestExtract_InvalidFormat(t *testing.T) {
	svc := newTestService(&fakeRunner{})
	_, err := svc.Extract(context.Background(), "/uploads/archive.zip", Format("zip"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
