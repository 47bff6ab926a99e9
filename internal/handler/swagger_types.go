package handler

import "encoding/json"

// Swagger type definitions for API documentation.
// These types are used by swag to generate OpenAPI documentation.

// --- Request Types ---

// PatchFieldRequest represents the field correction request body.
type PatchFieldRequest struct {
	Field  string          `json:"field" binding:"required" example:"payment_schedule.due_days"`
	Value  json.RawMessage `json:"value" swaggertype:"object"`
	Reason *string         `json:"reason" example:"Corrected per signed amendment"`
}

// --- Response Types ---

// Response is the standard API response envelope.
type Response struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// ErrorResponseBody is the standard error response envelope.
type ErrorResponseBody struct {
	Success bool      `json:"success" example:"false"`
	Error   *APIError `json:"error"`
}

// MessageResponse represents a simple message response.
type MessageResponse struct {
	Message string `json:"message" example:"contract deleted"`
}

// DownloadURLResponse carries a presigned URL for the original upload.
type DownloadURLResponse struct {
	DownloadURL string `json:"download_url" example:"https://bucket.s3.amazonaws.com/contracts/..."`
}

// HealthResponse represents a health probe response.
type HealthResponse struct {
	Status  string `json:"status" example:"ok"`
	Service string `json:"service,omitempty" example:"contract-parser-api"`
	Error   string `json:"error,omitempty"`
}
