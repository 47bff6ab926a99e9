package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"contractparser/internal/domain"
	"contractparser/internal/port"
	"contractparser/internal/record"
	"contractparser/internal/record/recordtest"
	"contractparser/internal/repository/memory"
	"contractparser/internal/service"
	"contractparser/mocks"
)

var contractText = strings.Repeat("The Customer shall pay Acme Cloud Inc. monthly. ", 3)

type fixture struct {
	store     *memory.Store
	storage   *mocks.MockObjectStorage
	text      *mocks.MockTextExtractor
	extractor *mocks.MockBillingExtractor
	audit     service.AuditService
	svc       service.ContractService
	uploads   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     memory.NewStore(),
		storage:   new(mocks.MockObjectStorage),
		text:      new(mocks.MockTextExtractor),
		extractor: new(mocks.MockBillingExtractor),
	}
	f.audit = service.NewAuditService(f.store.Audit())
	f.svc = service.NewContractService(
		f.store.Contracts(), f.audit, f.storage, f.text, f.extractor,
		service.ContractServiceConfig{
			Bucket:           "contracts",
			MaxFileSizeBytes: 1024,
			MinTextChars:     50,
			PresignExpiry:    3600,
		},
		service.WithUploadNotifier(func() { f.uploads++ }),
	)
	return f
}

// completedContract stores a contract that already holds the sample record.
func (f *fixture) completedContract(t *testing.T) *domain.Contract {
	t.Helper()
	ctx := context.Background()
	c := &domain.Contract{
		ID: uuid.New(), FileName: "c.txt", OriginalName: "msa.txt", FileType: domain.FileTypeTXT,
		StorageBucket: "contracts", StorageKey: "contracts/c.txt", Status: domain.ContractStatusPending,
	}
	require.NoError(t, f.store.Contracts().Create(ctx, c))
	require.NoError(t, f.store.Contracts().CompleteExtraction(ctx, c.ID, &domain.ExtractionResult{
		Record: recordtest.Sample(t), Provider: "openai", Model: "gpt-4o",
	}))
	got, err := f.store.Contracts().GetByID(ctx, c.ID)
	require.NoError(t, err)
	return got
}

func TestUpload_Validation(t *testing.T) {
	tests := []struct {
		name    string
		input   service.ContractUploadInput
		wantErr error
	}{
		{"unsupported extension", service.ContractUploadInput{Filename: "msa.docx", Data: []byte("x")}, domain.ErrUnsupportedFileType},
		{"no extension", service.ContractUploadInput{Filename: "msa", Data: []byte("x")}, domain.ErrUnsupportedFileType},
		{"empty file", service.ContractUploadInput{Filename: "msa.txt"}, domain.ErrEmptyFile},
		{"too large", service.ContractUploadInput{Filename: "msa.txt", Data: make([]byte, 1025)}, domain.ErrFileTooLarge},
		{"pdf that is not a pdf", service.ContractUploadInput{Filename: "msa.pdf", Data: []byte("plain text")}, domain.ErrUnsupportedFileType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Upload(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
			f.storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
		})
	}
}

func TestUpload_Success(t *testing.T) {
	f := newFixture(t)
	f.storage.On("Upload", mock.Anything, mock.MatchedBy(func(in port.UploadInput) bool {
		return in.Bucket == "contracts" && in.ContentType == "application/pdf" &&
			in.Filename == "MSA_2024.pdf" && strings.HasPrefix(in.Key, "contracts/")
	})).Return(&port.UploadOutput{}, nil)

	c, err := f.svc.Upload(context.Background(), service.ContractUploadInput{
		Filename: "MSA 2024.pdf",
		Data:     []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ContractStatusPending, c.Status)
	assert.Equal(t, domain.FileTypePDF, c.FileType)
	assert.Equal(t, c.ID.String()+".pdf", c.FileName)
	assert.Equal(t, 1, f.uploads)

	stored, err := f.svc.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "MSA 2024.pdf", stored.OriginalName)
	f.storage.AssertExpectations(t)
}

func TestUpload_StorageFailureCreatesNoRow(t *testing.T) {
	f := newFixture(t)
	f.storage.On("Upload", mock.Anything, mock.Anything).Return(nil, errors.New("bucket missing"))

	_, err := f.svc.Upload(context.Background(), service.ContractUploadInput{Filename: "a.txt", Data: []byte("terms")})
	assert.ErrorIs(t, err, domain.ErrUploadFailed)

	_, total, err := f.svc.List(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Zero(t, f.uploads)
}

func pendingContract(t *testing.T, f *fixture) *domain.Contract {
	t.Helper()
	c := &domain.Contract{
		ID: uuid.New(), FileName: "c.txt", OriginalName: "msa.txt", FileType: domain.FileTypeTXT,
		StorageBucket: "contracts", StorageKey: "contracts/c.txt", Status: domain.ContractStatusProcessing,
	}
	require.NoError(t, f.store.Contracts().Create(context.Background(), c))
	return c
}

func TestProcessContract_Success(t *testing.T) {
	f := newFixture(t)
	c := pendingContract(t, f)

	f.storage.On("Download", mock.Anything, "contracts", "contracts/c.txt").Return([]byte(contractText), nil)
	f.text.On("ExtractText", mock.Anything, "msa.txt", []byte(contractText)).Return(contractText, nil)
	f.extractor.On("Extract", mock.Anything, contractText).Return(&domain.ExtractionResult{
		Record: recordtest.Sample(t), Provider: "claude", Model: "claude-opus-4-6",
	}, nil)

	f.svc.ProcessContract(context.Background(), c)

	got, err := f.svc.GetDetail(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ContractStatusCompleted, got.Status)
	require.NotNil(t, got.RawText)
	assert.Equal(t, contractText, *got.RawText)
	assert.Equal(t, "claude", *got.ExtractionProvider)

	require.Len(t, got.AuditLog, 1)
	entry := got.AuditLog[0]
	assert.Equal(t, domain.AuditActionExtracted, entry.Action)
	assert.Equal(t, "billing_config", entry.FieldName)
	assert.True(t, entry.OldValue.IsNull())
	require.NotNil(t, entry.Reason)
	assert.Equal(t, "Automatic LLM extraction completed", *entry.Reason)

	obj, ok := entry.NewValue.AsObject()
	require.True(t, ok)
	assert.Equal(t, []string{"extracted", "fields", "populated", "provider"}, obj.Keys())
	fields, _ := obj.Get("fields")
	items, _ := fields.AsList()
	assert.Len(t, items, len(record.FieldNames)+1)
	provider, _ := obj.Get("provider")
	assert.Equal(t, "claude", provider.Text())
}

func TestProcessContract_InsufficientText(t *testing.T) {
	f := newFixture(t)
	c := pendingContract(t, f)

	f.storage.On("Download", mock.Anything, mock.Anything, mock.Anything).Return([]byte("x"), nil)
	f.text.On("ExtractText", mock.Anything, mock.Anything, mock.Anything).Return("   too short   ", nil)

	f.svc.ProcessContract(context.Background(), c)

	got, err := f.svc.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ContractStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, domain.ErrInsufficientText.Error(), *got.ErrorMessage)
	f.extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestProcessContract_ExtractionFailure(t *testing.T) {
	f := newFixture(t)
	c := pendingContract(t, f)

	f.storage.On("Download", mock.Anything, mock.Anything, mock.Anything).Return([]byte(contractText), nil)
	f.text.On("ExtractText", mock.Anything, mock.Anything, mock.Anything).Return(contractText, nil)
	f.extractor.On("Extract", mock.Anything, mock.Anything).Return(nil, errors.New("all providers failed"))

	f.svc.ProcessContract(context.Background(), c)

	got, _ := f.svc.GetDetail(context.Background(), c.ID)
	assert.Equal(t, domain.ContractStatusFailed, got.Status)
	assert.Equal(t, "all providers failed", *got.ErrorMessage)
	assert.True(t, got.BillingConfig.IsZero())
	assert.Empty(t, got.AuditLog)
}

func TestProcessContract_DownloadFailure(t *testing.T) {
	f := newFixture(t)
	c := pendingContract(t, f)
	f.storage.On("Download", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)

	f.svc.ProcessContract(context.Background(), c)

	got, _ := f.svc.GetByID(context.Background(), c.ID)
	assert.Equal(t, domain.ContractStatusFailed, got.Status)
	assert.Contains(t, *got.ErrorMessage, "downloading file")
}

func TestPatchField_RequiresCompleted(t *testing.T) {
	f := newFixture(t)
	c := pendingContract(t, f)

	_, err := f.svc.PatchField(context.Background(), service.PatchFieldInput{
		ContractID: c.ID, Field: "payment_schedule.value", Value: record.String("Net 45"),
	})
	assert.ErrorIs(t, err, domain.ErrContractNotCompleted)

	_, err = f.svc.PatchField(context.Background(), service.PatchFieldInput{
		ContractID: uuid.New(), Field: "payment_schedule.value", Value: record.String("Net 45"),
	})
	assert.ErrorIs(t, err, domain.ErrContractNotFound)
}

func TestPatchField_AppliesAndAudits(t *testing.T) {
	f := newFixture(t)
	c := f.completedContract(t)
	reason := "Customer confirmed by email"

	res, err := f.svc.PatchField(context.Background(), service.PatchFieldInput{
		ContractID: c.ID, Field: "payment_schedule.value", Value: record.String("Net 45"), Reason: &reason,
	})
	require.NoError(t, err)
	assert.Equal(t, "payment_schedule.value", res.Field)
	assert.Equal(t, "Net 30", res.OldValue.Text())
	assert.Equal(t, "Net 45", res.NewValue.Text())

	field, ok := res.Contract.BillingConfig.Field(record.FieldPaymentSchedule)
	require.True(t, ok)
	assert.True(t, field.ManuallyReviewed())

	entries, err := f.audit.ListEvents(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.AuditActionEdited, entries[0].Action)
	assert.Equal(t, "payment_schedule.value", entries[0].FieldName)
	assert.Equal(t, "Net 30", entries[0].OldValue.Text())
	assert.Equal(t, reason, *entries[0].Reason)
}

func TestPatchField_RejectedPatchLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	c := f.completedContract(t)

	cases := []struct {
		field   string
		value   record.Value
		wantErr error
	}{
		{"discounts.value", record.Int(1), record.ErrUnknownField},
		{"late_fee.rate.value", record.Int(1), record.ErrUnsupportedPathDepth},
		{"contract_value.confidence", record.Float(1.4), record.ErrInvalidExtractionSchema},
		{"billing_frequency.value", record.String("weekly"), record.ErrInvalidExtractionSchema},
	}
	for _, tc := range cases {
		_, err := f.svc.PatchField(context.Background(), service.PatchFieldInput{
			ContractID: c.ID, Field: tc.field, Value: tc.value,
		})
		assert.ErrorIs(t, err, tc.wantErr, tc.field)
	}

	got, err := f.svc.GetDetail(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, got.BillingConfig.Equal(recordtest.Sample(t)))
	assert.Empty(t, got.AuditLog)
}

func TestAuditOrder_EditsAfterExtraction(t *testing.T) {
	f := newFixture(t)
	c := pendingContract(t, f)

	f.storage.On("Download", mock.Anything, mock.Anything, mock.Anything).Return([]byte(contractText), nil)
	f.text.On("ExtractText", mock.Anything, mock.Anything, mock.Anything).Return(contractText, nil)
	f.extractor.On("Extract", mock.Anything, mock.Anything).Return(&domain.ExtractionResult{
		Record: recordtest.Sample(t), Provider: "openai",
	}, nil)
	f.svc.ProcessContract(context.Background(), c)

	for _, v := range []string{"Net 45", "Net 60"} {
		_, err := f.svc.PatchField(context.Background(), service.PatchFieldInput{
			ContractID: c.ID, Field: "payment_schedule.value", Value: record.String(v),
		})
		require.NoError(t, err)
	}

	entries, err := f.audit.ListEvents(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, domain.AuditActionEdited, entries[0].Action)
	assert.Equal(t, "Net 60", entries[0].NewValue.Text())
	assert.Equal(t, domain.AuditActionEdited, entries[1].Action)
	assert.Equal(t, "Net 45", entries[1].NewValue.Text())
	assert.Equal(t, domain.AuditActionExtracted, entries[2].Action)
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	c := f.completedContract(t)

	rendered, err := f.svc.Export(context.Background(), c.ID, domain.ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "contract_"+c.ID.String()[:8]+"_billing.csv", rendered.Filename)
	assert.Contains(t, string(rendered.Body), "field,value,confidence,source_text")

	entries, err := f.audit.ListEvents(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.AuditActionExported, entries[0].Action)
	format, _ := entries[0].NewValue.AsObject()
	v, _ := format.Get("exported_format")
	assert.Equal(t, "csv", v.Text())
}

func TestExport_RequiresCompleted(t *testing.T) {
	f := newFixture(t)
	c := pendingContract(t, f)

	_, err := f.svc.Export(context.Background(), c.ID, domain.ExportFormatJSON)
	assert.ErrorIs(t, err, domain.ErrContractNotCompleted)

	entries, _ := f.audit.ListEvents(context.Background(), c.ID)
	assert.Empty(t, entries)
}

func TestDelete_RemovesFileAndRow(t *testing.T) {
	f := newFixture(t)
	c := f.completedContract(t)
	f.storage.On("Delete", mock.Anything, "contracts", "contracts/c.txt").Return(errors.New("transient"))

	require.NoError(t, f.svc.Delete(context.Background(), c.ID))
	_, err := f.svc.GetByID(context.Background(), c.ID)
	assert.ErrorIs(t, err, domain.ErrContractNotFound)
	f.storage.AssertExpectations(t)
}

func TestGetDownloadURL(t *testing.T) {
	f := newFixture(t)
	c := f.completedContract(t)
	f.storage.On("GetPresignedURL", mock.Anything, "contracts", "contracts/c.txt", int64(3600)).
		Return("https://example.com/signed", nil)

	u, err := f.svc.GetDownloadURL(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/signed", u)
}

func TestAuditService_UsesClock(t *testing.T) {
	at := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	repo := new(mocks.MockAuditRepo)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.AuditEntry")).Return(nil)
	svc := service.NewAuditServiceWithClock(repo, func() time.Time { return at })

	entry, err := svc.RecordEvent(context.Background(), service.RecordEventInput{
		ContractID: uuid.New(), FieldName: "late_fee.applies",
		OldValue: record.Bool(true), NewValue: record.Bool(false), Action: domain.AuditActionEdited,
	})
	require.NoError(t, err)
	assert.Equal(t, at, entry.CreatedAt)
	assert.Nil(t, entry.Reason)
}

func TestAuditService_RepoError(t *testing.T) {
	repo := new(mocks.MockAuditRepo)
	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))
	svc := service.NewAuditService(repo)

	_, err := svc.RecordEvent(context.Background(), service.RecordEventInput{Action: domain.AuditActionExported})
	assert.Error(t, err)
}

// deadlineRepo refuses writes on a finished context, as database/sql does.
type deadlineRepo struct {
	port.ContractRepository
}

func (r deadlineRepo) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.ContractRepository.MarkFailed(ctx, id, message)
}

func (r deadlineRepo) CompleteExtraction(ctx context.Context, id uuid.UUID, result *domain.ExtractionResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.ContractRepository.CompleteExtraction(ctx, id, result)
}

func TestProcessContract_TimedOutJobStillMarksFailed(t *testing.T) {
	f := newFixture(t)
	c := pendingContract(t, f)
	svc := service.NewContractService(
		deadlineRepo{f.store.Contracts()}, f.audit, f.storage, f.text, f.extractor,
		service.ContractServiceConfig{Bucket: "contracts", MaxFileSizeBytes: 1024, MinTextChars: 50},
	)

	f.storage.On("Download", mock.Anything, mock.Anything, mock.Anything).Return([]byte(contractText), nil)
	f.text.On("ExtractText", mock.Anything, mock.Anything, mock.Anything).Return(contractText, nil)
	f.extractor.On("Extract", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { <-args.Get(0).(context.Context).Done() }).
		Return(nil, context.DeadlineExceeded)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	svc.ProcessContract(ctx, c)

	got, err := f.svc.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ContractStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, context.DeadlineExceeded.Error(), *got.ErrorMessage)
}

func TestProcessContract_SavesResultAfterDeadline(t *testing.T) {
	f := newFixture(t)
	c := pendingContract(t, f)
	svc := service.NewContractService(
		deadlineRepo{f.store.Contracts()}, f.audit, f.storage, f.text, f.extractor,
		service.ContractServiceConfig{Bucket: "contracts", MaxFileSizeBytes: 1024, MinTextChars: 50},
	)

	f.storage.On("Download", mock.Anything, mock.Anything, mock.Anything).Return([]byte(contractText), nil)
	f.text.On("ExtractText", mock.Anything, mock.Anything, mock.Anything).Return(contractText, nil)
	f.extractor.On("Extract", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { <-args.Get(0).(context.Context).Done() }).
		Return(&domain.ExtractionResult{Record: recordtest.Sample(t), Provider: "openai"}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	svc.ProcessContract(ctx, c)

	got, err := f.svc.GetDetail(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ContractStatusCompleted, got.Status)
	require.Len(t, got.AuditLog, 1)
	assert.Equal(t, domain.AuditActionExtracted, got.AuditLog[0].Action)
}

func TestPatchField_UnknownContractBeforePath(t *testing.T) {
	f := newFixture(t)

	for _, field := range []string{"discounts.value", "late_fee.rate.value", ""} {
		_, err := f.svc.PatchField(context.Background(), service.PatchFieldInput{
			ContractID: uuid.New(), Field: field, Value: record.Int(1),
		})
		assert.ErrorIs(t, err, domain.ErrContractNotFound, field)
	}
}

func TestPatchField_AuditFailureDoesNotFailEdit(t *testing.T) {
	f := newFixture(t)
	c := f.completedContract(t)
	audit := new(mocks.MockAuditService)
	audit.On("RecordEvent", mock.Anything, mock.MatchedBy(func(in service.RecordEventInput) bool {
		return in.Action == domain.AuditActionEdited && in.FieldName == "payment_schedule.value"
	})).Return(nil, errors.New("audit table locked"))
	svc := service.NewContractService(
		f.store.Contracts(), audit, f.storage, f.text, f.extractor,
		service.ContractServiceConfig{Bucket: "contracts", MaxFileSizeBytes: 1024, MinTextChars: 50},
	)

	res, err := svc.PatchField(context.Background(), service.PatchFieldInput{
		ContractID: c.ID, Field: "payment_schedule.value", Value: record.String("Net 45"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Net 45", res.NewValue.Text())

	got, err := f.svc.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	field, _ := got.BillingConfig.Field(record.FieldPaymentSchedule)
	assert.Equal(t, "Net 45", field.String())
	audit.AssertExpectations(t)
}

func TestExport_AuditFailureStillRenders(t *testing.T) {
	f := newFixture(t)
	c := f.completedContract(t)
	audit := new(mocks.MockAuditService)
	audit.On("RecordEvent", mock.Anything, mock.Anything).Return(nil, errors.New("audit table locked"))
	svc := service.NewContractService(
		f.store.Contracts(), audit, f.storage, f.text, f.extractor,
		service.ContractServiceConfig{Bucket: "contracts"},
	)

	rendered, err := svc.Export(context.Background(), c.ID, domain.ExportFormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "application/json", rendered.ContentType)
	audit.AssertNumberOfCalls(t, "RecordEvent", 1)
}
