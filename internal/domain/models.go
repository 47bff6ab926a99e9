package domain

import (
	"time"

	"github.com/google/uuid"

	"contractparser/internal/record"
)

// Contract represents an uploaded contract and its extracted billing terms.
type Contract struct {
	ID                 uuid.UUID      `db:"id" json:"id"`
	FileName           string         `db:"file_name" json:"file_name"`
	OriginalName       string         `db:"original_name" json:"original_filename"`
	FileType           FileType       `db:"file_type" json:"file_type"`
	FileSize           int64          `db:"file_size" json:"file_size"`
	StorageBucket      string         `db:"storage_bucket" json:"-"`
	StorageKey         string         `db:"storage_key" json:"-"`
	Status             ContractStatus `db:"status" json:"status"`
	RawText            *string        `db:"raw_text" json:"raw_text,omitempty"`
	BillingConfig      record.Record  `db:"billing_config" json:"billing_config"`
	ErrorMessage       *string        `db:"error_message" json:"error_message"`
	ExtractionProvider *string        `db:"extraction_provider" json:"extraction_provider"`
	ExtractionModel    *string        `db:"extraction_model" json:"extraction_model"`
	TextTruncated      bool           `db:"text_truncated" json:"text_truncated"`
	ExtractedAt        *time.Time     `db:"extracted_at" json:"extracted_at"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// AuditEntry is one immutable event in a contract's history.
type AuditEntry struct {
	ID         uuid.UUID    `json:"id"`
	Seq        int64        `json:"-"`
	ContractID uuid.UUID    `json:"contract_id"`
	FieldName  string       `json:"field_name"`
	OldValue   record.Value `json:"old_value"`
	NewValue   record.Value `json:"new_value"`
	Reason     *string      `json:"reason"`
	Action     AuditAction  `json:"action"`
	CreatedAt  time.Time    `json:"created_at"`
}

// ExtractionResult is the outcome of a successful billing extraction.
type ExtractionResult struct {
	Record    record.Record
	Provider  string
	Model     string
	Truncated bool
}

// ContractDetail is a contract together with its audit history.
type ContractDetail struct {
	Contract
	AuditLog []AuditEntry `json:"audit_log"`
}
