package port

import (
	"context"

	"contractparser/internal/domain"
)

// TextExtractor turns an uploaded file into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, filename string, data []byte) (string, error)
}

// BillingExtractor turns contract text into a validated billing record.
type BillingExtractor interface {
	Extract(ctx context.Context, text string) (*domain.ExtractionResult, error)
}
