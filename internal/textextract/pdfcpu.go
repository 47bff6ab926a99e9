package textextract

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rotisserie/eris"
)

var pageNumberRe = regexp.MustCompile(`(\d+)\.txt$`)

// PdfCPU extracts text by decoding page content streams with pdfcpu. It
// needs no external binaries but only recovers text drawn with simple font
// encodings.
type PdfCPU struct{}

// NewPdfCPU creates a PdfCPU extractor.
func NewPdfCPU() *PdfCPU {
	return &PdfCPU{}
}

// Pages returns the text of each page in page order.
func (PdfCPU) Pages(ctx context.Context, data []byte) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "contract-content-*")
	if err != nil {
		return nil, eris.Wrap(err, "pdfcpu: creating temp dir")
	}
	defer os.RemoveAll(dir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ExtractContent(bytes.NewReader(data), dir, "contract", nil, conf); err != nil {
		return nil, eris.Wrap(err, "pdfcpu: extracting content streams")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrap(err, "pdfcpu: reading content streams")
	}

	type pageFile struct {
		num  int
		path string
	}
	files := make([]pageFile, 0, len(entries))
	for _, e := range entries {
		m := pageNumberRe.FindStringSubmatch(e.Name())
		if e.IsDir() || m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		files = append(files, pageFile{num: n, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].num < files[j].num })

	pages := make([]string, 0, len(files))
	for _, f := range files {
		stream, err := os.ReadFile(f.path)
		if err != nil {
			return nil, eris.Wrapf(err, "pdfcpu: reading page %d", f.num)
		}
		pages = append(pages, ContentText(stream))
	}
	return pages, nil
}
