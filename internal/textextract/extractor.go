// Package textextract turns uploaded contract files into plain text.
package textextract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"contractparser/internal/config"
	"contractparser/internal/domain"
)

// PageSource returns the text of each page of a PDF.
type PageSource interface {
	Pages(ctx context.Context, data []byte) ([]string, error)
}

// Extractor implements port.TextExtractor. PDFs go through the primary page
// source and fall back to the secondary one when the result is shorter than
// minPDFChars; text files are decoded as UTF-8.
type Extractor struct {
	primary     PageSource
	fallback    PageSource
	minPDFChars int
}

// NewExtractor creates an Extractor from explicit page sources. Either may be nil.
func NewExtractor(primary, fallback PageSource, minPDFChars int) *Extractor {
	return &Extractor{primary: primary, fallback: fallback, minPDFChars: minPDFChars}
}

// NewFromConfig wires pdftotext as the primary source and pdfcpu as the fallback.
func NewFromConfig(cfg config.TextExtractConfig) *Extractor {
	return NewExtractor(NewPdfToText(cfg.PdftotextBin), NewPdfCPU(), cfg.MinPDFChars)
}

func (e *Extractor) ExtractText(ctx context.Context, filename string, data []byte) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	ft, ok := domain.AllowedExtensions[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFileType, filepath.Ext(filename))
	}

	switch ft {
	case domain.FileTypePDF:
		return e.extractPDF(ctx, data)
	default:
		return DecodeText(data), nil
	}
}

func (e *Extractor) extractPDF(ctx context.Context, data []byte) (string, error) {
	var (
		text    string
		lastErr error
	)
	for _, src := range []PageSource{e.primary, e.fallback} {
		if src == nil {
			continue
		}
		pages, err := src.Pages(ctx, data)
		if err != nil {
			zap.L().Warn("textextract: pdf page source failed",
				zap.String("source", fmt.Sprintf("%T", src)), zap.Error(err))
			lastErr = err
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}
		candidate := JoinPages(pages)
		if len([]rune(candidate)) > len([]rune(text)) {
			text = candidate
		}
		if len(strings.TrimSpace(text)) >= e.minPDFChars {
			return text, nil
		}
		zap.L().Info("textextract: insufficient text from pdf page source, trying next",
			zap.String("source", fmt.Sprintf("%T", src)),
			zap.Int("chars", len(strings.TrimSpace(candidate))))
	}
	if text == "" && lastErr != nil {
		return "", fmt.Errorf("extracting pdf text: %w", lastErr)
	}
	return text, nil
}

// JoinPages labels each non-blank page with its 1-based number and joins
// them with blank lines.
func JoinPages(pages []string) string {
	parts := make([]string, 0, len(pages))
	for i, p := range pages {
		if strings.TrimSpace(p) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("[Page %d]\n%s", i+1, p))
	}
	return strings.Join(parts, "\n\n")
}

// DecodeText interprets data as UTF-8, dropping a byte order mark and
// replacing invalid sequences with U+FFFD.
func DecodeText(data []byte) string {
	s := strings.TrimPrefix(string(data), "\ufeff")
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "\uFFFD")
}
