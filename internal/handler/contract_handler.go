package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"contractparser/internal/domain"
	"contractparser/internal/record"
	"contractparser/internal/service"
)

// ContractHandler handles contract upload, review, correction and export endpoints.
type ContractHandler struct {
	contractService service.ContractService
	maxUploadBytes  int64
}

// NewContractHandler creates a new ContractHandler. maxUploadBytes bounds how
// much of a multipart upload is read; zero disables the bound.
func NewContractHandler(contractService service.ContractService, maxUploadBytes int64) *ContractHandler {
	return &ContractHandler{contractService: contractService, maxUploadBytes: maxUploadBytes}
}

// Upload handles POST /api/v1/contracts/upload
// @Summary Upload a contract
// @Description Upload a contract (PDF or TXT). Billing extraction runs in the background.
// @Tags contracts
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Contract file (PDF or TXT)"
// @Success 201 {object} Response{data=domain.Contract} "Contract accepted for processing"
// @Failure 400 {object} ErrorResponseBody "Missing file, empty file or unsupported type"
// @Failure 413 {object} ErrorResponseBody "File too large"
// @Failure 500 {object} ErrorResponseBody "Upload failed"
// @Router /contracts/upload [post]
func (h *ContractHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		HandleError(c, domain.ErrFileTooLarge)
		return
	}

	var reader io.Reader = file
	if h.maxUploadBytes > 0 {
		reader = io.LimitReader(file, h.maxUploadBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_FILE", "could not read uploaded file")
		return
	}

	contract, err := h.contractService.Upload(c.Request.Context(), service.ContractUploadInput{
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, contract)
}

// List handles GET /api/v1/contracts
// @Summary List contracts
// @Description List contracts, newest first
// @Tags contracts
// @Produce json
// @Param offset query int false "Offset for pagination" default(0)
// @Param limit query int false "Limit for pagination (max 100)" default(20)
// @Success 200 {object} Response{data=[]domain.Contract,meta=PagMeta} "List of contracts"
// @Router /contracts [get]
func (h *ContractHandler) List(c *gin.Context) {
	offset, limit := parsePagination(c)

	contracts, total, err := h.contractService.List(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, contracts, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/contracts/:id
// @Summary Get contract
// @Description Get a contract with its extracted billing record and audit history
// @Tags contracts
// @Produce json
// @Param id path string true "Contract ID (UUID)"
// @Success 200 {object} Response{data=domain.ContractDetail} "Contract detail"
// @Failure 400 {object} ErrorResponseBody "Invalid ID"
// @Failure 404 {object} ErrorResponseBody "Contract not found"
// @Router /contracts/{id} [get]
func (h *ContractHandler) GetByID(c *gin.Context) {
	id, ok := parseContractID(c)
	if !ok {
		return
	}

	detail, err := h.contractService.GetDetail(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, detail)
}

// PatchField handles PATCH /api/v1/contracts/:id/fields
// @Summary Correct a billing field
// @Description Replace one extracted billing value. Paths are "field" or "field.attribute".
// @Tags contracts
// @Accept json
// @Produce json
// @Param id path string true "Contract ID (UUID)"
// @Param body body PatchFieldRequest true "Field correction"
// @Success 200 {object} Response{data=service.PatchFieldResult} "Updated contract"
// @Failure 400 {object} ErrorResponseBody "Unknown field, bad path or invalid value"
// @Failure 404 {object} ErrorResponseBody "Contract not found"
// @Router /contracts/{id}/fields [patch]
func (h *ContractHandler) PatchField(c *gin.Context) {
	id, ok := parseContractID(c)
	if !ok {
		return
	}

	var req PatchFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if len(req.Value) == 0 {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "value is required")
		return
	}
	value, err := record.Parse(req.Value)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "value is not valid JSON")
		return
	}

	result, err := h.contractService.PatchField(c.Request.Context(), service.PatchFieldInput{
		ContractID: id,
		Field:      req.Field,
		Value:      value,
		Reason:     req.Reason,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, result)
}

// Audit handles GET /api/v1/contracts/:id/audit
// @Summary List audit history
// @Description List audit entries for a contract, newest first
// @Tags contracts
// @Produce json
// @Param id path string true "Contract ID (UUID)"
// @Param offset query int false "Offset for pagination" default(0)
// @Param limit query int false "Limit for pagination (max 100)" default(20)
// @Success 200 {object} Response{data=[]domain.AuditEntry,meta=PagMeta} "Audit entries"
// @Failure 404 {object} ErrorResponseBody "Contract not found"
// @Router /contracts/{id}/audit [get]
func (h *ContractHandler) Audit(c *gin.Context) {
	id, ok := parseContractID(c)
	if !ok {
		return
	}
	offset, limit := parsePagination(c)

	entries, total, err := h.contractService.ListAudit(c.Request.Context(), id, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, entries, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// Export handles GET /api/v1/contracts/:id/export
// @Summary Export billing record
// @Description Download the billing record as JSON, CSV or XLSX
// @Tags contracts
// @Produce json
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Contract ID (UUID)"
// @Param format query string false "Export format" Enums(json, csv, xlsx) default(json)
// @Success 200 {file} file "Export file"
// @Failure 400 {object} ErrorResponseBody "Invalid format or contract not completed"
// @Failure 404 {object} ErrorResponseBody "Contract not found"
// @Router /contracts/{id}/export [get]
func (h *ContractHandler) Export(c *gin.Context) {
	id, ok := parseContractID(c)
	if !ok {
		return
	}

	format, err := domain.ParseExportFormat(c.DefaultQuery("format", string(domain.ExportFormatJSON)))
	if err != nil {
		HandleError(c, err)
		return
	}

	rendered, err := h.contractService.Export(c.Request.Context(), id, format)
	if err != nil {
		HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(rendered.Filename))
	c.Data(http.StatusOK, rendered.ContentType, rendered.Body)
}

// Download handles GET /api/v1/contracts/:id/download
// @Summary Get original file URL
// @Description Get a presigned URL for the originally uploaded file
// @Tags contracts
// @Produce json
// @Param id path string true "Contract ID (UUID)"
// @Success 200 {object} Response{data=DownloadURLResponse} "Download URL"
// @Failure 404 {object} ErrorResponseBody "Contract not found"
// @Failure 501 {object} ErrorResponseBody "Storage backend cannot presign"
// @Router /contracts/{id}/download [get]
func (h *ContractHandler) Download(c *gin.Context) {
	id, ok := parseContractID(c)
	if !ok {
		return
	}

	url, err := h.contractService.GetDownloadURL(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, DownloadURLResponse{DownloadURL: url})
}

// Delete handles DELETE /api/v1/contracts/:id
// @Summary Delete a contract
// @Description Delete a contract, its stored file and its audit history
// @Tags contracts
// @Produce json
// @Param id path string true "Contract ID (UUID)"
// @Success 200 {object} Response{data=MessageResponse} "Contract deleted"
// @Failure 404 {object} ErrorResponseBody "Contract not found"
// @Router /contracts/{id} [delete]
func (h *ContractHandler) Delete(c *gin.Context) {
	id, ok := parseContractID(c)
	if !ok {
		return
	}

	if err := h.contractService.Delete(c.Request.Context(), id); err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, MessageResponse{Message: "contract deleted"})
}

func parseContractID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid contract ID")
		return uuid.Nil, false
	}
	return id, true
}
