package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"contractparser/internal/domain"
	"contractparser/internal/export"
	"contractparser/internal/port"
	"contractparser/internal/record"
)

const (
	// extractedReason is attached to the audit entry of every automatic extraction.
	extractedReason = "Automatic LLM extraction completed"

	persistTimeout = 10 * time.Second
)

// ContractUploadInput is the DTO for contract uploads.
type ContractUploadInput struct {
	Filename string
	Data     []byte
}

// PatchFieldInput is the DTO for a single-field correction.
type PatchFieldInput struct {
	ContractID uuid.UUID
	Field      string
	Value      record.Value
	Reason     *string
}

// PatchFieldResult reports the outcome of a field correction.
type PatchFieldResult struct {
	Field    string           `json:"field"`
	OldValue record.Value     `json:"old_value"`
	NewValue record.Value     `json:"new_value"`
	Contract *domain.Contract `json:"contract"`
}

// ContractServiceConfig holds upload and extraction limits.
type ContractServiceConfig struct {
	Bucket           string
	MaxFileSizeBytes int64
	MinTextChars     int
	PresignExpiry    int64
}

// ContractService defines the contract lifecycle: upload, extraction,
// correction, export and deletion.
type ContractService interface {
	Upload(ctx context.Context, input ContractUploadInput) (*domain.Contract, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*domain.ContractDetail, error)
	List(ctx context.Context, offset, limit int) ([]domain.Contract, int, error)
	ListAudit(ctx context.Context, id uuid.UUID, offset, limit int) ([]domain.AuditEntry, int, error)
	PatchField(ctx context.Context, input PatchFieldInput) (*PatchFieldResult, error)
	Export(ctx context.Context, id uuid.UUID, format domain.ExportFormat) (*export.Rendered, error)
	GetDownloadURL(ctx context.Context, id uuid.UUID) (string, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// ProcessContract extracts billing terms for a claimed contract. Failures
	// are recorded on the contract rather than returned.
	ProcessContract(ctx context.Context, c *domain.Contract)
}

type contractService struct {
	repo      port.ContractRepository
	audit     AuditService
	storage   port.ObjectStorage
	text      port.TextExtractor
	extractor port.BillingExtractor
	cfg       ContractServiceConfig
	onUpload  func()
}

// ContractServiceOption customizes a ContractService.
type ContractServiceOption func(*contractService)

// WithUploadNotifier registers fn to run after each successful upload, for
// example to wake the extraction worker.
func WithUploadNotifier(fn func()) ContractServiceOption {
	return func(s *contractService) { s.onUpload = fn }
}

// NewContractService creates a new ContractService implementation.
func NewContractService(
	repo port.ContractRepository,
	audit AuditService,
	storage port.ObjectStorage,
	text port.TextExtractor,
	extractor port.BillingExtractor,
	cfg ContractServiceConfig,
	opts ...ContractServiceOption,
) ContractService {
	s := &contractService{
		repo:      repo,
		audit:     audit,
		storage:   storage,
		text:      text,
		extractor: extractor,
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *contractService) Upload(ctx context.Context, input ContractUploadInput) (*domain.Contract, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(input.Filename), "."))
	fileType, ok := domain.AllowedExtensions[ext]
	if !ok {
		return nil, domain.ErrUnsupportedFileType
	}
	if len(input.Data) == 0 {
		return nil, domain.ErrEmptyFile
	}
	if s.cfg.MaxFileSizeBytes > 0 && int64(len(input.Data)) > s.cfg.MaxFileSizeBytes {
		return nil, domain.ErrFileTooLarge
	}
	if fileType == domain.FileTypePDF && http.DetectContentType(input.Data) != domain.AllowedFileTypes[domain.FileTypePDF] {
		return nil, domain.ErrUnsupportedFileType
	}

	id := uuid.New()
	fileName := id.String() + "." + ext
	c := &domain.Contract{
		ID:            id,
		FileName:      fileName,
		OriginalName:  input.Filename,
		FileType:      fileType,
		FileSize:      int64(len(input.Data)),
		StorageBucket: s.cfg.Bucket,
		StorageKey:    fmt.Sprintf("contracts/%s/%s", id, fileName),
		Status:        domain.ContractStatusPending,
	}

	zap.L().Info("contractService.Upload: storing contract",
		zap.String("contract_id", id.String()),
		zap.String("original_name", input.Filename),
		zap.Int64("size", c.FileSize))

	// The row is created after the object so the worker never claims a
	// contract whose file is missing.
	_, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      c.StorageBucket,
		Key:         c.StorageKey,
		Body:        bytes.NewReader(input.Data),
		ContentType: domain.AllowedFileTypes[fileType],
		Size:        c.FileSize,
		Filename:    export.SanitizeFilename(input.Filename),
	})
	if err != nil {
		zap.L().Error("contractService.Upload: storage upload failed",
			zap.String("contract_id", id.String()), zap.Error(err))
		return nil, domain.ErrUploadFailed
	}

	if err := s.repo.Create(ctx, c); err != nil {
		if delErr := s.storage.Delete(ctx, c.StorageBucket, c.StorageKey); delErr != nil {
			zap.L().Warn("contractService.Upload: orphaned object cleanup failed",
				zap.String("key", c.StorageKey), zap.Error(delErr))
		}
		return nil, fmt.Errorf("creating contract: %w", err)
	}

	if s.onUpload != nil {
		s.onUpload()
	}
	return c, nil
}

func (s *contractService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *contractService) GetDetail(ctx context.Context, id uuid.UUID) (*domain.ContractDetail, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	entries, err := s.audit.ListEvents(ctx, id)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	return &domain.ContractDetail{Contract: *c, AuditLog: entries}, nil
}

func (s *contractService) List(ctx context.Context, offset, limit int) ([]domain.Contract, int, error) {
	return s.repo.List(ctx, offset, limit)
}

func (s *contractService) ListAudit(ctx context.Context, id uuid.UUID, offset, limit int) ([]domain.AuditEntry, int, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, 0, err
	}
	return s.audit.ListEventsPage(ctx, id, offset, limit)
}

func (s *contractService) PatchField(ctx context.Context, input PatchFieldInput) (*PatchFieldResult, error) {
	var (
		path record.FieldPath
		old  record.Value
	)
	// The contract lookup runs first so a missing contract reports not found
	// whatever the path.
	updated, err := s.repo.PatchBillingConfig(ctx, input.ContractID, func(c *domain.Contract) (record.Record, error) {
		if c.Status != domain.ContractStatusCompleted {
			return record.Record{}, domain.ErrContractNotCompleted
		}
		p, err := record.ParseFieldPath(input.Field)
		if err != nil {
			return record.Record{}, err
		}
		prev, rec, err := record.Apply(c.BillingConfig, record.Patch{Path: p, Value: input.Value, Reason: input.Reason})
		if err != nil {
			return record.Record{}, err
		}
		path, old = p, prev
		return rec, nil
	})
	if err != nil {
		return nil, err
	}

	s.recordEvent(ctx, RecordEventInput{
		ContractID: input.ContractID,
		FieldName:  path.String(),
		OldValue:   old,
		NewValue:   input.Value,
		Action:     domain.AuditActionEdited,
		Reason:     input.Reason,
	})

	return &PatchFieldResult{
		Field:    path.String(),
		OldValue: old,
		NewValue: input.Value,
		Contract: updated,
	}, nil
}

func (s *contractService) Export(ctx context.Context, id uuid.UUID, format domain.ExportFormat) (*export.Rendered, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.ContractStatusCompleted {
		return nil, domain.ErrContractNotCompleted
	}

	rendered, err := export.Render(format, c.ID, c.BillingConfig)
	if err != nil {
		return nil, err
	}

	s.recordEvent(ctx, RecordEventInput{
		ContractID: id,
		FieldName:  "billing_config",
		OldValue:   record.Null(),
		NewValue:   exportedEventValue(format),
		Action:     domain.AuditActionExported,
	})
	return rendered, nil
}

func (s *contractService) GetDownloadURL(ctx context.Context, id uuid.UUID) (string, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return s.storage.GetPresignedURL(ctx, c.StorageBucket, c.StorageKey, s.cfg.PresignExpiry)
}

func (s *contractService) Delete(ctx context.Context, id uuid.UUID) error {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, c.StorageBucket, c.StorageKey); err != nil {
		zap.L().Warn("contractService.Delete: failed to delete stored file",
			zap.String("contract_id", id.String()), zap.Error(err))
	}
	return s.repo.Delete(ctx, id)
}

func (s *contractService) ProcessContract(ctx context.Context, c *domain.Contract) {
	log := zap.L().With(zap.String("contract_id", c.ID.String()))

	data, err := s.storage.Download(ctx, c.StorageBucket, c.StorageKey)
	if err != nil {
		s.fail(ctx, c, fmt.Errorf("downloading file: %w", err))
		return
	}

	text, err := s.text.ExtractText(ctx, c.OriginalName, data)
	if err != nil {
		s.fail(ctx, c, fmt.Errorf("extracting text: %w", err))
		return
	}
	if len([]rune(strings.TrimSpace(text))) < s.cfg.MinTextChars {
		s.fail(ctx, c, domain.ErrInsufficientText)
		return
	}
	if err := s.repo.UpdateRawText(ctx, c.ID, text); err != nil {
		s.fail(ctx, c, fmt.Errorf("saving raw text: %w", err))
		return
	}
	c.RawText = &text

	log.Info("contractService.ProcessContract: running extraction", zap.Int("chars", len([]rune(text))))
	result, err := s.extractor.Extract(ctx, text)
	if err != nil {
		s.fail(ctx, c, err)
		return
	}

	saveCtx, cancel := persistContext(ctx)
	defer cancel()
	if err := s.repo.CompleteExtraction(saveCtx, c.ID, result); err != nil {
		log.Error("contractService.ProcessContract: failed to save results", zap.Error(err))
		s.fail(ctx, c, fmt.Errorf("saving extraction: %w", err))
		return
	}
	c.Status = domain.ContractStatusCompleted
	c.BillingConfig = result.Record

	reason := extractedReason
	s.recordEvent(saveCtx, RecordEventInput{
		ContractID: c.ID,
		FieldName:  "billing_config",
		OldValue:   record.Null(),
		NewValue:   extractedEventValue(result.Record, result.Provider),
		Action:     domain.AuditActionExtracted,
		Reason:     &reason,
	})

	log.Info("contractService.ProcessContract: contract processed",
		zap.String("provider", result.Provider),
		zap.String("model", result.Model),
		zap.Bool("truncated", result.Truncated))
}

// persistContext keeps request values but drops the job deadline, so the
// terminal status write still lands after a timed-out extraction.
func persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
}

func (s *contractService) fail(ctx context.Context, c *domain.Contract, cause error) {
	zap.L().Error("contractService.ProcessContract: extraction failed",
		zap.String("contract_id", c.ID.String()), zap.Error(cause))
	msg := cause.Error()
	c.Status = domain.ContractStatusFailed
	c.ErrorMessage = &msg
	// The job context may already be past its deadline.
	ctx, cancel := persistContext(ctx)
	defer cancel()
	if err := s.repo.MarkFailed(ctx, c.ID, msg); err != nil && !errors.Is(err, domain.ErrContractNotFound) {
		zap.L().Error("contractService.ProcessContract: failed to mark contract failed",
			zap.String("contract_id", c.ID.String()), zap.Error(err))
	}
}

// recordEvent writes an audit entry. Failures are logged but never block
// the business operation.
func (s *contractService) recordEvent(ctx context.Context, input RecordEventInput) {
	if s.audit == nil {
		return
	}
	if _, err := s.audit.RecordEvent(ctx, input); err != nil {
		zap.L().Warn("contractService.recordEvent: failed to write audit entry",
			zap.String("contract_id", input.ContractID.String()),
			zap.String("action", string(input.Action)),
			zap.Error(err))
	}
}
