package export

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"contractparser/internal/domain"
	"contractparser/internal/record"
)

// Rendered is an export ready to be returned to a caller.
type Rendered struct {
	Body        []byte
	ContentType string
	Filename    string
}

var contentTypes = map[domain.ExportFormat]string{
	domain.ExportFormatJSON: "application/json",
	domain.ExportFormatCSV:  "text/csv; charset=utf-8",
	domain.ExportFormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// Render produces the requested export of a contract's billing record.
func Render(format domain.ExportFormat, contractID uuid.UUID, rec record.Record) (*Rendered, error) {
	var (
		body []byte
		err  error
	)
	switch format {
	case domain.ExportFormatJSON:
		body, err = MarshalJSON(NewDocument(contractID, rec))
	case domain.ExportFormatCSV:
		body, err = RenderCSV(rec)
	case domain.ExportFormatXLSX:
		body, err = WriteXLSX(rec)
	default:
		return nil, domain.ErrInvalidExportFormat
	}
	if err != nil {
		return nil, fmt.Errorf("rendering %s export: %w", format, err)
	}
	return &Rendered{
		Body:        body,
		ContentType: contentTypes[format],
		Filename:    BuildFilename(contractID, format),
	}, nil
}

// BuildFilename returns the download filename for an export.
// Format: contract_{first 8 chars of id}_billing.{ext}
func BuildFilename(contractID uuid.UUID, format domain.ExportFormat) string {
	return fmt.Sprintf("contract_%s_billing.%s", contractID.String()[:8], format)
}

// nonAlphanumeric matches characters that are not alphanumeric, dot, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans an uploaded file name before it is attached to
// the stored object (S3 Content-Disposition, GCS metadata). Truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		return "contract"
	}
	return s
}
