package export

import (
	"bytes"
	"encoding/csv"
	"io"

	"contractparser/internal/record"
)

// BOM is the UTF-8 byte order mark, written first for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

var columns = []string{"field", "value", "confidence", "source_text"}

// Writer wraps csv.Writer for exporting billing rows as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the four-column header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteRows writes each row in order.
func (w *Writer) WriteRows(rows []Row) error {
	for _, r := range rows {
		if err := w.csv.Write([]string{r.Field, r.Value, r.Confidence, r.SourceText}); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

// WriteCSV writes the header and the flattened record to out.
func WriteCSV(out io.Writer, rec record.Record) error {
	w := NewWriter(out)
	if err := w.WriteHeader(); err != nil {
		return err
	}
	if err := w.WriteRows(Rows(rec)); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// RenderCSV returns the CSV export prefixed with a BOM.
func RenderCSV(rec record.Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(BOM)
	if err := WriteCSV(&buf, rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
