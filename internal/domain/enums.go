package domain

// FileType represents the allowed contract file types for upload.
type FileType string

const (
	FileTypePDF FileType = "pdf"
	FileTypeTXT FileType = "txt"
)

// AllowedFileTypes maps FileType to its MIME content type.
var AllowedFileTypes = map[FileType]string{
	FileTypePDF: "application/pdf",
	FileTypeTXT: "text/plain",
}

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"pdf":  FileTypePDF,
	"txt":  FileTypeTXT,
	"text": FileTypeTXT,
}

// ContractStatus represents the extraction lifecycle of a contract.
type ContractStatus string

const (
	ContractStatusPending    ContractStatus = "pending"
	ContractStatusProcessing ContractStatus = "processing"
	ContractStatusCompleted  ContractStatus = "completed"
	ContractStatusFailed     ContractStatus = "failed"
)

// AuditAction identifies the kind of event recorded in the audit log.
type AuditAction string

const (
	AuditActionExtracted AuditAction = "extracted"
	AuditActionEdited    AuditAction = "edited"
	AuditActionExported  AuditAction = "exported"
)

// ExportFormat is an export rendering requested by a caller.
type ExportFormat string

const (
	ExportFormatJSON ExportFormat = "json"
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatXLSX ExportFormat = "xlsx"
)

// ParseExportFormat validates a caller-supplied format name.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(s); f {
	case ExportFormatJSON, ExportFormatCSV, ExportFormatXLSX:
		return f, nil
	}
	return "", ErrInvalidExportFormat
}
