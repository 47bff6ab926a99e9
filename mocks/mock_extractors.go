package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"contractparser/internal/domain"
)

// MockTextExtractor is a mock implementation of port.TextExtractor.
type MockTextExtractor struct {
	mock.Mock
}

func (m *MockTextExtractor) ExtractText(ctx context.Context, filename string, data []byte) (string, error) {
	args := m.Called(ctx, filename, data)
	return args.String(0), args.Error(1)
}

// MockBillingExtractor is a mock implementation of port.BillingExtractor.
type MockBillingExtractor struct {
	mock.Mock
}

func (m *MockBillingExtractor) Extract(ctx context.Context, text string) (*domain.ExtractionResult, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionResult), args.Error(1)
}
