package port

import (
	"context"

	"github.com/google/uuid"

	"contractparser/internal/domain"
)

// AuditRepository defines the contract for the append-only audit log.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditEntry) error
	// ListByContract returns entries newest first. A limit <= 0 returns all.
	ListByContract(ctx context.Context, contractID uuid.UUID, offset, limit int) ([]domain.AuditEntry, int, error)
}
