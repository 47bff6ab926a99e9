package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"contractparser/internal/domain"
	"contractparser/internal/port"
	"contractparser/internal/record"
)

// RecordEventInput describes one audit event.
type RecordEventInput struct {
	ContractID uuid.UUID
	FieldName  string
	OldValue   record.Value
	NewValue   record.Value
	Action     domain.AuditAction
	Reason     *string
}

// AuditService is the append-only history of a contract's billing record.
type AuditService interface {
	RecordEvent(ctx context.Context, input RecordEventInput) (*domain.AuditEntry, error)
	// ListEvents returns every entry for the contract, newest first.
	ListEvents(ctx context.Context, contractID uuid.UUID) ([]domain.AuditEntry, error)
	ListEventsPage(ctx context.Context, contractID uuid.UUID, offset, limit int) ([]domain.AuditEntry, int, error)
}

type auditService struct {
	repo port.AuditRepository
	now  func() time.Time
}

// NewAuditService creates an AuditService stamping entries with the wall clock.
func NewAuditService(repo port.AuditRepository) AuditService {
	return NewAuditServiceWithClock(repo, time.Now)
}

// NewAuditServiceWithClock creates an AuditService with an injected clock.
func NewAuditServiceWithClock(repo port.AuditRepository, now func() time.Time) AuditService {
	return &auditService{repo: repo, now: now}
}

func (s *auditService) RecordEvent(ctx context.Context, input RecordEventInput) (*domain.AuditEntry, error) {
	entry := &domain.AuditEntry{
		ID:         uuid.New(),
		ContractID: input.ContractID,
		FieldName:  input.FieldName,
		OldValue:   input.OldValue.Clone(),
		NewValue:   input.NewValue.Clone(),
		Reason:     input.Reason,
		Action:     input.Action,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("recording %s event: %w", input.Action, err)
	}
	return entry, nil
}

func (s *auditService) ListEvents(ctx context.Context, contractID uuid.UUID) ([]domain.AuditEntry, error) {
	entries, _, err := s.repo.ListByContract(ctx, contractID, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("listing audit events: %w", err)
	}
	return entries, nil
}

func (s *auditService) ListEventsPage(ctx context.Context, contractID uuid.UUID, offset, limit int) ([]domain.AuditEntry, int, error) {
	entries, total, err := s.repo.ListByContract(ctx, contractID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("listing audit events: %w", err)
	}
	return entries, total, nil
}

// extractedEventValue summarizes a freshly extracted record for the audit log.
func extractedEventValue(rec record.Record, provider string) record.Value {
	fields := make([]record.Value, 0, len(rec.Object().Keys()))
	for _, k := range rec.Object().Keys() {
		fields = append(fields, record.String(k))
	}
	populated := make([]record.Value, 0)
	for _, k := range rec.PopulatedFields() {
		populated = append(populated, record.String(k))
	}
	return record.ObjectValue(record.NewObject().
		Set("extracted", record.Bool(true)).
		Set("fields", record.List(fields...)).
		Set("populated", record.List(populated...)).
		Set("provider", record.String(provider)))
}

func exportedEventValue(format domain.ExportFormat) record.Value {
	return record.ObjectValue(record.NewObject().Set("exported_format", record.String(string(format))))
}
