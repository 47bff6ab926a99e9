// Package mcpserver exposes the contract service as Model Context Protocol
// tools so assistants can list, review, correct and export contracts.
package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"contractparser/internal/domain"
	"contractparser/internal/record"
	"contractparser/internal/service"
)

const maxListLimit = 100

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Contracts service.ContractService
	Version   string
}

// NewServer creates an MCP server with all contract tools registered.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"contract-parser",
		ver,
		server.WithToolCapabilities(false),
	)

	registerListTool(s, cfg.Contracts)
	registerGetTool(s, cfg.Contracts)
	registerUploadTool(s, cfg.Contracts)
	registerPatchTool(s, cfg.Contracts)
	registerAuditTool(s, cfg.Contracts)
	registerExportTool(s, cfg.Contracts)

	return s
}

func registerListTool(s *server.MCPServer, svc service.ContractService) {
	tool := mcp.NewTool("contracts_list",
		mcp.WithDescription("List uploaded contracts, newest first, with their extraction status."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithNumber("offset", mcp.Description("Number of contracts to skip (default: 0)")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of contracts (default: 20, max: 100)")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		offset, limit := pagination(req)
		contracts, total, err := svc.List(ctx, offset, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list error: %v", err)), nil
		}
		return jsonResult(map[string]any{
			"contracts": contracts,
			"total":     total,
			"offset":    offset,
			"limit":     limit,
		})
	})
}

func registerGetTool(s *server.MCPServer, svc service.ContractService) {
	tool := mcp.NewTool("contract_get",
		mcp.WithDescription("Get one contract with its extracted billing record and audit history."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("id", mcp.Required(), mcp.Description("Contract ID (UUID)")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, errResult := contractID(req)
		if errResult != nil {
			return errResult, nil
		}
		detail, err := svc.GetDetail(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(detail)
	})
}

func registerUploadTool(s *server.MCPServer, svc service.ContractService) {
	tool := mcp.NewTool("contract_upload",
		mcp.WithDescription("Upload a local PDF or TXT contract for billing extraction. Extraction runs in the background; poll contract_get for the result."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the contract file")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := req.RequireString("path")
		if err != nil || path == "" {
			return mcp.NewToolResultError("path is required"), nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("read file: %v", err)), nil
		}
		contract, err := svc.Upload(ctx, service.ContractUploadInput{
			Filename: filepath.Base(path),
			Data:     data,
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(contract)
	})
}

func registerPatchTool(s *server.MCPServer, svc service.ContractService) {
	tool := mcp.NewTool("contract_patch_field",
		mcp.WithDescription(`Correct one extracted billing value. field is "name" to replace a whole field or "name.attribute" to replace one attribute. The change is validated and recorded in the audit log.`),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("id", mcp.Required(), mcp.Description("Contract ID (UUID)")),
		mcp.WithString("field", mcp.Required(), mcp.Description("Field path, e.g. payment_schedule.due_days")),
		mcp.WithString("value_json", mcp.Required(), mcp.Description(`New value as JSON, e.g. 45, "NET 45", null or {"value":45}`)),
		mcp.WithString("reason", mcp.Description("Why the value was corrected")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, errResult := contractID(req)
		if errResult != nil {
			return errResult, nil
		}
		field, err := req.RequireString("field")
		if err != nil || field == "" {
			return mcp.NewToolResultError("field is required"), nil
		}
		raw, err := req.RequireString("value_json")
		if err != nil {
			return mcp.NewToolResultError("value_json is required"), nil
		}
		value, err := record.Parse([]byte(raw))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("value_json is not valid JSON: %v", err)), nil
		}

		input := service.PatchFieldInput{ContractID: id, Field: field, Value: value}
		if reason, err := req.RequireString("reason"); err == nil && reason != "" {
			input.Reason = &reason
		}

		result, err := svc.PatchField(ctx, input)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{
			"field":     result.Field,
			"old_value": result.OldValue,
			"new_value": result.NewValue,
		})
	})
}

func registerAuditTool(s *server.MCPServer, svc service.ContractService) {
	tool := mcp.NewTool("contract_audit",
		mcp.WithDescription("List the audit history of a contract, newest first."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("id", mcp.Required(), mcp.Description("Contract ID (UUID)")),
		mcp.WithNumber("offset", mcp.Description("Number of entries to skip (default: 0)")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of entries (default: 20, max: 100)")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, errResult := contractID(req)
		if errResult != nil {
			return errResult, nil
		}
		offset, limit := pagination(req)
		entries, total, err := svc.ListAudit(ctx, id, offset, limit)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"entries": entries, "total": total})
	})
}

func registerExportTool(s *server.MCPServer, svc service.ContractService) {
	tool := mcp.NewTool("contract_export",
		mcp.WithDescription("Export a completed contract's billing record. json and csv are returned as text; xlsx is returned base64 encoded."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("id", mcp.Required(), mcp.Description("Contract ID (UUID)")),
		mcp.WithString("format",
			mcp.Description("Export format (default: json)"),
			mcp.Enum("json", "csv", "xlsx"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, errResult := contractID(req)
		if errResult != nil {
			return errResult, nil
		}
		format := domain.ExportFormatJSON
		if f, err := req.RequireString("format"); err == nil && f != "" {
			parsed, err := domain.ParseExportFormat(f)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid format %q: use json, csv or xlsx", f)), nil
			}
			format = parsed
		}

		rendered, err := svc.Export(ctx, id, format)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if format == domain.ExportFormatXLSX {
			return jsonResult(map[string]any{
				"filename":       rendered.Filename,
				"content_type":   rendered.ContentType,
				"content_base64": base64.StdEncoding.EncodeToString(rendered.Body),
			})
		}
		return mcp.NewToolResultText(string(rendered.Body)), nil
	})
}

func contractID(req mcp.CallToolRequest) (uuid.UUID, *mcp.CallToolResult) {
	raw, err := req.RequireString("id")
	if err != nil {
		return uuid.Nil, mcp.NewToolResultError("id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, mcp.NewToolResultError(fmt.Sprintf("invalid contract id %q", raw))
	}
	return id, nil
}

func pagination(req mcp.CallToolRequest) (offset, limit int) {
	limit = 20
	if v, err := req.RequireFloat("offset"); err == nil && v > 0 {
		offset = int(v)
	}
	if v, err := req.RequireFloat("limit"); err == nil && v > 0 {
		limit = int(v)
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return offset, limit
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
