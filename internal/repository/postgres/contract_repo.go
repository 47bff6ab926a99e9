package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"contractparser/internal/domain"
	"contractparser/internal/port"
)

type contractRepo struct {
	db *sqlx.DB
}

// NewContractRepo creates a new PostgreSQL-backed ContractRepository.
func NewContractRepo(db *sqlx.DB) port.ContractRepository {
	return &contractRepo{db: db}
}

func (r *contractRepo) Create(ctx context.Context, c *domain.Contract) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	query := `INSERT INTO contracts (
		id, file_name, original_name, file_type, file_size,
		storage_bucket, storage_key, status, raw_text, billing_config,
		error_message, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, $10,
		$11, $12, $13
	)`

	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.FileName, c.OriginalName, c.FileType, c.FileSize,
		c.StorageBucket, c.StorageKey, c.Status, c.RawText, c.BillingConfig,
		c.ErrorMessage, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("contractRepo.Create: %w", err)
	}
	return nil
}

func (r *contractRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error) {
	var c domain.Contract
	err := r.db.GetContext(ctx, &c, "SELECT * FROM contracts WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrContractNotFound
		}
		return nil, fmt.Errorf("contractRepo.GetByID: %w", err)
	}
	return &c, nil
}

func (r *contractRepo) List(ctx context.Context, offset, limit int) ([]domain.Contract, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM contracts"); err != nil {
		return nil, 0, fmt.Errorf("contractRepo.List count: %w", err)
	}

	var contracts []domain.Contract
	err := r.db.SelectContext(ctx, &contracts,
		`SELECT * FROM contracts ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("contractRepo.List: %w", err)
	}
	return contracts, total, nil
}

func (r *contractRepo) ClaimPending(ctx context.Context, limit int) ([]domain.Contract, error) {
	var contracts []domain.Contract
	err := r.db.SelectContext(ctx, &contracts,
		`UPDATE contracts SET status = $1, updated_at = $2
		 WHERE id IN (
			SELECT id FROM contracts WHERE status = $3
			ORDER BY created_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING *`,
		domain.ContractStatusProcessing, time.Now().UTC(), domain.ContractStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("contractRepo.ClaimPending: %w", err)
	}
	return contracts, nil
}

func (r *contractRepo) UpdateRawText(ctx context.Context, id uuid.UUID, text string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE contracts SET raw_text = $1, updated_at = $2 WHERE id = $3`,
		text, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("contractRepo.UpdateRawText: %w", err)
	}
	return requireAffected(result, domain.ErrContractNotFound)
}

func (r *contractRepo) CompleteExtraction(ctx context.Context, id uuid.UUID, res *domain.ExtractionResult) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE contracts SET
			status = $1, billing_config = $2, error_message = NULL,
			extraction_provider = $3, extraction_model = $4, text_truncated = $5,
			extracted_at = $6, updated_at = $6
		 WHERE id = $7`,
		domain.ContractStatusCompleted, res.Record,
		res.Provider, res.Model, res.Truncated,
		now, id)
	if err != nil {
		return fmt.Errorf("contractRepo.CompleteExtraction: %w", err)
	}
	return requireAffected(result, domain.ErrContractNotFound)
}

func (r *contractRepo) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE contracts SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4`,
		domain.ContractStatusFailed, message, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("contractRepo.MarkFailed: %w", err)
	}
	return requireAffected(result, domain.ErrContractNotFound)
}

func (r *contractRepo) PatchBillingConfig(ctx context.Context, id uuid.UUID, mutate port.ContractMutation) (*domain.Contract, error) {
	var updated domain.Contract
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &updated, "SELECT * FROM contracts WHERE id = $1 FOR UPDATE", id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrContractNotFound
			}
			return fmt.Errorf("contractRepo.PatchBillingConfig select: %w", err)
		}

		rec, err := mutate(&updated)
		if err != nil {
			return err
		}
		updated.BillingConfig = rec
		updated.UpdatedAt = time.Now().UTC()

		_, err = tx.ExecContext(ctx,
			`UPDATE contracts SET billing_config = $1, updated_at = $2 WHERE id = $3`,
			updated.BillingConfig, updated.UpdatedAt, id)
		if err != nil {
			return fmt.Errorf("contractRepo.PatchBillingConfig update: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *contractRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM contracts WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("contractRepo.Delete: %w", err)
	}
	return requireAffected(result, domain.ErrContractNotFound)
}

func requireAffected(result sql.Result, notFound error) error {
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return notFound
	}
	return nil
}
