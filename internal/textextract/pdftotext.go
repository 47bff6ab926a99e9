package textextract

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// PdfToText extracts per-page text from PDFs using the pdftotext CLI tool.
type PdfToText struct {
	binPath string
	runner  Runner
}

// NewPdfToText creates a PdfToText extractor. If binPath is empty, "pdftotext" is used.
func NewPdfToText(binPath string) *PdfToText {
	return NewPdfToTextWithRunner(binPath, execRunner{})
}

// NewPdfToTextWithRunner creates a PdfToText extractor that runs commands through r.
func NewPdfToTextWithRunner(binPath string, r Runner) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath, runner: r}
}

// Pages writes data to a temporary file, runs pdftotext -layout on it and
// splits the output on form feeds, which pdftotext emits between pages.
func (p *PdfToText) Pages(ctx context.Context, data []byte) ([]string, error) {
	f, err := os.CreateTemp("", "contract-*.pdf")
	if err != nil {
		return nil, eris.Wrap(err, "pdftotext: creating temp file")
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, eris.Wrap(err, "pdftotext: writing temp file")
	}
	if err := f.Close(); err != nil {
		return nil, eris.Wrap(err, "pdftotext: closing temp file")
	}

	stdout, stderr, err := p.runner.Run(ctx, p.binPath, "-layout", "-enc", "UTF-8", f.Name(), "-")
	if err != nil {
		return nil, eris.Wrapf(err, "pdftotext failed: %s", strings.TrimSpace(string(stderr)))
	}

	pages := strings.Split(string(stdout), "\f")
	// pdftotext terminates the last page with a form feed as well.
	if n := len(pages); n > 1 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}
	return pages, nil
}
