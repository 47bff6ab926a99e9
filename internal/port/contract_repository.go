package port

import (
	"context"

	"github.com/google/uuid"

	"contractparser/internal/domain"
	"contractparser/internal/record"
)

// ContractMutation computes a new billing record from the locked contract.
// Returning an error aborts the mutation without writing.
type ContractMutation func(c *domain.Contract) (record.Record, error)

// ContractRepository defines the contract for contract persistence.
type ContractRepository interface {
	Create(ctx context.Context, c *domain.Contract) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error)
	List(ctx context.Context, offset, limit int) ([]domain.Contract, int, error)
	// ClaimPending atomically moves up to limit pending contracts to
	// processing and returns them.
	ClaimPending(ctx context.Context, limit int) ([]domain.Contract, error)
	UpdateRawText(ctx context.Context, id uuid.UUID, text string) error
	CompleteExtraction(ctx context.Context, id uuid.UUID, result *domain.ExtractionResult) error
	MarkFailed(ctx context.Context, id uuid.UUID, message string) error
	// PatchBillingConfig serializes mutations of one contract's billing
	// record. mutate runs while the contract is locked.
	PatchBillingConfig(ctx context.Context, id uuid.UUID, mutate ContractMutation) (*domain.Contract, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
