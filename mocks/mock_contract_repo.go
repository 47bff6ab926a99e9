package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"contractparser/internal/domain"
	"contractparser/internal/port"
)

// MockContractRepo is a mock implementation of port.ContractRepository.
type MockContractRepo struct {
	mock.Mock
}

func (m *MockContractRepo) Create(ctx context.Context, c *domain.Contract) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockContractRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contract), args.Error(1)
}

func (m *MockContractRepo) List(ctx context.Context, offset, limit int) ([]domain.Contract, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Contract), args.Int(1), args.Error(2)
}

func (m *MockContractRepo) ClaimPending(ctx context.Context, limit int) ([]domain.Contract, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Contract), args.Error(1)
}

func (m *MockContractRepo) UpdateRawText(ctx context.Context, id uuid.UUID, text string) error {
	args := m.Called(ctx, id, text)
	return args.Error(0)
}

func (m *MockContractRepo) CompleteExtraction(ctx context.Context, id uuid.UUID, result *domain.ExtractionResult) error {
	args := m.Called(ctx, id, result)
	return args.Error(0)
}

func (m *MockContractRepo) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	args := m.Called(ctx, id, message)
	return args.Error(0)
}

// PatchBillingConfig invokes mutate on the contract returned by the
// configured expectation, mirroring the locked read-modify-write.
func (m *MockContractRepo) PatchBillingConfig(ctx context.Context, id uuid.UUID, mutate port.ContractMutation) (*domain.Contract, error) {
	args := m.Called(ctx, id, mutate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	c := args.Get(0).(*domain.Contract)
	rec, err := mutate(c)
	if err != nil {
		return nil, err
	}
	c.BillingConfig = rec
	return c, args.Error(1)
}

func (m *MockContractRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
