package mcpserver_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"contractparser/internal/domain"
	"contractparser/internal/export"
	"contractparser/internal/mcpserver"
	"contractparser/internal/record"
	"contractparser/internal/service"
	"contractparser/mocks"
)

type toolResult struct {
	Text    string
	IsError bool
}

func callTool(t *testing.T, srv *server.MCPServer, name string, args map[string]any) toolResult {
	t.Helper()

	msg, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": args},
	})
	require.NoError(t, err)

	respBytes, err := json.Marshal(srv.HandleMessage(context.Background(), msg))
	require.NoError(t, err)

	var resp struct {
		Result struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(respBytes, &resp), string(respBytes))
	require.Nil(t, resp.Error, string(respBytes))
	require.NotEmpty(t, resp.Result.Content)

	return toolResult{Text: resp.Result.Content[0].Text, IsError: resp.Result.IsError}
}

func newServer(svc *mocks.MockContractService) *server.MCPServer {
	return mcpserver.NewServer(mcpserver.ServerConfig{Contracts: svc, Version: "test"})
}

func TestListTool(t *testing.T) {
	svc := new(mocks.MockContractService)
	svc.On("List", mock.Anything, 5, 100).Return([]domain.Contract{{ID: uuid.New()}}, 6, nil)

	res := callTool(t, newServer(svc), "contracts_list", map[string]any{
		"offset": float64(5),
		"limit":  float64(500),
	})

	require.False(t, res.IsError, res.Text)
	var out struct {
		Contracts []domain.Contract `json:"contracts"`
		Total     int               `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Text), &out))
	assert.Len(t, out.Contracts, 1)
	assert.Equal(t, 6, out.Total)
	svc.AssertExpectations(t)
}

func TestGetTool_InvalidID(t *testing.T) {
	svc := new(mocks.MockContractService)

	res := callTool(t, newServer(svc), "contract_get", map[string]any{"id": "not-a-uuid"})

	assert.True(t, res.IsError)
	assert.Contains(t, res.Text, "invalid contract id")
	svc.AssertNotCalled(t, "GetDetail", mock.Anything, mock.Anything)
}

func TestGetTool_NotFound(t *testing.T) {
	svc := new(mocks.MockContractService)
	id := uuid.New()
	svc.On("GetDetail", mock.Anything, id).Return(nil, domain.ErrContractNotFound)

	res := callTool(t, newServer(svc), "contract_get", map[string]any{"id": id.String()})

	assert.True(t, res.IsError)
	assert.Contains(t, res.Text, "not found")
}

func TestUploadTool(t *testing.T) {
	svc := new(mocks.MockContractService)
	path := filepath.Join(t.TempDir(), "msa.txt")
	require.NoError(t, os.WriteFile(path, []byte("agreement text"), 0o600))

	id := uuid.New()
	svc.On("Upload", mock.Anything, service.ContractUploadInput{
		Filename: "msa.txt",
		Data:     []byte("agreement text"),
	}).Return(&domain.Contract{ID: id, Status: domain.ContractStatusPending}, nil)

	res := callTool(t, newServer(svc), "contract_upload", map[string]any{"path": path})

	require.False(t, res.IsError, res.Text)
	assert.Contains(t, res.Text, id.String())
	svc.AssertExpectations(t)
}

func TestPatchTool(t *testing.T) {
	svc := new(mocks.MockContractService)
	id := uuid.New()
	svc.On("PatchField", mock.Anything, mock.MatchedBy(func(in service.PatchFieldInput) bool {
		return in.ContractID == id &&
			in.Field == "payment_schedule.due_days" &&
			in.Value.Equal(record.Int(45)) &&
			in.Reason != nil && *in.Reason == "amendment"
	})).Return(&service.PatchFieldResult{
		Field:    "payment_schedule.due_days",
		OldValue: record.Int(30),
		NewValue: record.Int(45),
	}, nil)

	res := callTool(t, newServer(svc), "contract_patch_field", map[string]any{
		"id":         id.String(),
		"field":      "payment_schedule.due_days",
		"value_json": "45",
		"reason":     "amendment",
	})

	require.False(t, res.IsError, res.Text)
	assert.JSONEq(t, `{"field":"payment_schedule.due_days","old_value":30,"new_value":45}`, res.Text)
	svc.AssertExpectations(t)
}

func TestPatchTool_InvalidJSON(t *testing.T) {
	svc := new(mocks.MockContractService)

	res := callTool(t, newServer(svc), "contract_patch_field", map[string]any{
		"id":         uuid.New().String(),
		"field":      "late_fee.amount",
		"value_json": "{nope",
	})

	assert.True(t, res.IsError)
	svc.AssertNotCalled(t, "PatchField", mock.Anything, mock.Anything)
}

func TestPatchTool_ServiceRejects(t *testing.T) {
	svc := new(mocks.MockContractService)
	svc.On("PatchField", mock.Anything, mock.Anything).Return(nil, record.ErrUnknownField)

	res := callTool(t, newServer(svc), "contract_patch_field", map[string]any{
		"id":         uuid.New().String(),
		"field":      "bogus",
		"value_json": "1",
	})

	assert.True(t, res.IsError)
	assert.Contains(t, res.Text, "unknown field")
}

func TestAuditTool(t *testing.T) {
	svc := new(mocks.MockContractService)
	id := uuid.New()
	svc.On("ListAudit", mock.Anything, id, 0, 20).
		Return([]domain.AuditEntry{{ID: uuid.New(), ContractID: id, Action: domain.AuditActionExtracted}}, 1, nil)

	res := callTool(t, newServer(svc), "contract_audit", map[string]any{"id": id.String()})

	require.False(t, res.IsError, res.Text)
	assert.Contains(t, res.Text, `"extracted"`)
}

func TestExportTool_CSV(t *testing.T) {
	svc := new(mocks.MockContractService)
	id := uuid.New()
	svc.On("Export", mock.Anything, id, domain.ExportFormatCSV).Return(&export.Rendered{
		Body:        []byte("field,attribute,value\n"),
		ContentType: "text/csv; charset=utf-8",
		Filename:    "contract_x_billing.csv",
	}, nil)

	res := callTool(t, newServer(svc), "contract_export", map[string]any{"id": id.String(), "format": "csv"})

	require.False(t, res.IsError, res.Text)
	assert.Equal(t, "field,attribute,value\n", res.Text)
}

func TestExportTool_XLSXIsBase64(t *testing.T) {
	svc := new(mocks.MockContractService)
	id := uuid.New()
	svc.On("Export", mock.Anything, id, domain.ExportFormatXLSX).Return(&export.Rendered{
		Body:        []byte{0x50, 0x4b, 0x03, 0x04},
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Filename:    "contract_x_billing.xlsx",
	}, nil)

	res := callTool(t, newServer(svc), "contract_export", map[string]any{"id": id.String(), "format": "xlsx"})

	require.False(t, res.IsError, res.Text)
	var out struct {
		Filename      string `json:"filename"`
		ContentBase64 string `json:"content_base64"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Text), &out))
	body, err := base64.StdEncoding.DecodeString(out.ContentBase64)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x50, 0x4b, 0x03, 0x04}, body)
}

func TestExportTool_NotCompleted(t *testing.T) {
	svc := new(mocks.MockContractService)
	id := uuid.New()
	svc.On("Export", mock.Anything, id, domain.ExportFormatJSON).Return(nil, domain.ErrContractNotCompleted)

	res := callTool(t, newServer(svc), "contract_export", map[string]any{"id": id.String()})

	assert.True(t, res.IsError)
}
