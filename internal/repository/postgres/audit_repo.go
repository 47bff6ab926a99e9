package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"contractparser/internal/domain"
	"contractparser/internal/port"
	"contractparser/internal/record"
)

type auditRepo struct {
	db *sqlx.DB
}

// NewAuditRepo creates a new PostgreSQL-backed AuditRepository.
func NewAuditRepo(db *sqlx.DB) port.AuditRepository {
	return &auditRepo{db: db}
}

// auditRow mirrors contract_audit_log. JSON values are scanned as raw bytes
// and parsed into ordered values afterwards.
type auditRow struct {
	ID         uuid.UUID `db:"id"`
	Seq        int64     `db:"seq"`
	ContractID uuid.UUID `db:"contract_id"`
	FieldName  string    `db:"field_name"`
	OldValue   []byte    `db:"old_value"`
	NewValue   []byte    `db:"new_value"`
	Reason     *string   `db:"reason"`
	Action     string    `db:"action"`
	CreatedAt  time.Time `db:"created_at"`
}

func (row auditRow) toDomain() (domain.AuditEntry, error) {
	oldVal, err := jsonValue(row.OldValue)
	if err != nil {
		return domain.AuditEntry{}, fmt.Errorf("old_value: %w", err)
	}
	newVal, err := jsonValue(row.NewValue)
	if err != nil {
		return domain.AuditEntry{}, fmt.Errorf("new_value: %w", err)
	}
	return domain.AuditEntry{
		ID:         row.ID,
		Seq:        row.Seq,
		ContractID: row.ContractID,
		FieldName:  row.FieldName,
		OldValue:   oldVal,
		NewValue:   newVal,
		Reason:     row.Reason,
		Action:     domain.AuditAction(row.Action),
		CreatedAt:  row.CreatedAt,
	}, nil
}

func jsonValue(b []byte) (record.Value, error) {
	if b == nil {
		return record.Null(), nil
	}
	return record.Parse(b)
}

func (r *auditRepo) Create(ctx context.Context, entry *domain.AuditEntry) error {
	oldVal, err := entry.OldValue.MarshalJSON()
	if err != nil {
		return fmt.Errorf("auditRepo.Create old_value: %w", err)
	}
	newVal, err := entry.NewValue.MarshalJSON()
	if err != nil {
		return fmt.Errorf("auditRepo.Create new_value: %w", err)
	}

	err = r.db.GetContext(ctx, &entry.Seq,
		`INSERT INTO contract_audit_log (id, contract_id, field_name, old_value, new_value, reason, action, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING seq`,
		entry.ID, entry.ContractID, entry.FieldName, string(oldVal), string(newVal),
		entry.Reason, entry.Action, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("auditRepo.Create: %w", err)
	}
	return nil
}

func (r *auditRepo) ListByContract(ctx context.Context, contractID uuid.UUID, offset, limit int) ([]domain.AuditEntry, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM contract_audit_log WHERE contract_id = $1`, contractID)
	if err != nil {
		return nil, 0, fmt.Errorf("auditRepo.ListByContract count: %w", err)
	}

	// LIMIT NULL means no limit in PostgreSQL.
	var pageLimit *int
	if limit > 0 {
		pageLimit = &limit
	}

	var rows []auditRow
	err = r.db.SelectContext(ctx, &rows,
		`SELECT * FROM contract_audit_log
		 WHERE contract_id = $1
		 ORDER BY created_at DESC, seq DESC
		 LIMIT $2 OFFSET $3`,
		contractID, pageLimit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("auditRepo.ListByContract: %w", err)
	}

	entries := make([]domain.AuditEntry, 0, len(rows))
	for _, row := range rows {
		e, err := row.toDomain()
		if err != nil {
			return nil, 0, fmt.Errorf("auditRepo.ListByContract %s: %w", row.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, total, nil
}
