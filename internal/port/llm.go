package port

import "context"

// CompletionRequest is a single-turn prompt sent to a language model.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
}

// CompletionResponse is the raw text a language model returned.
type CompletionResponse struct {
	Content    string
	Model      string
	StopReason string
}

// LLMProvider abstracts a remote language model capability.
type LLMProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
