// Package vertex serves billing extraction through Gemini models on Vertex AI,
// authenticated with application default credentials.
package vertex

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/rotisserie/eris"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"contractparser/internal/config"
	"contractparser/internal/llm"
	"contractparser/internal/port"
)

func init() {
	llm.RegisterProvider("vertex", func(cfg *config.LLMProviderConfig) (port.LLMProvider, error) {
		return NewProvider(context.Background(), cfg)
	})
}

// Provider implements port.LLMProvider using the Vertex AI genai client.
type Provider struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	name    string
	timeout time.Duration
}

// NewProvider creates a Vertex AI client for cfg.Project in cfg.Region.
func NewProvider(ctx context.Context, cfg *config.LLMProviderConfig) (*Provider, error) {
	if cfg.Project == "" {
		return nil, fmt.Errorf("vertex provider requires a project")
	}
	region := cfg.Region
	if region == "" {
		region = "us-central1"
	}
	name := cfg.DefaultModel
	if name == "" {
		name = "gemini-2.0-flash"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	maxTokens := int32(cfg.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 4000
	}

	client, err := genai.NewClient(ctx, cfg.Project, region)
	if err != nil {
		return nil, eris.Wrap(err, "vertex: new client")
	}
	model := client.GenerativeModel(name)
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
		MaxOutputTokens:  genai.Ptr(maxTokens),
	}
	return &Provider{client: client, model: model, name: name, timeout: timeout}, nil
}

func (p *Provider) Complete(ctx context.Context, in port.CompletionRequest) (*port.CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// GenerativeModel is shared; copy it so concurrent calls can set their own system instruction.
	model := *p.model
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(in.SystemPrompt)},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(in.UserPrompt))
	if err != nil {
		return nil, classify(err)
	}
	return extractText(resp, p.name)
}

// classify maps gRPC status codes onto the errors the orchestrator and the
// retry wrapper understand.
func classify(err error) error {
	wrapped := eris.Wrap(err, "vertex: generate content")
	switch status.Code(err) {
	case codes.ResourceExhausted:
		return llm.NewRateLimitError("vertex", wrapped, 0)
	case codes.Unavailable, codes.Internal, codes.Aborted:
		return llm.MarkTransient(wrapped)
	default:
		return wrapped
	}
}

func extractText(resp *genai.GenerateContentResponse, model string) (*port.CompletionResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty response from API: no candidates")
	}
	cand := resp.Candidates[0]
	if cand.FinishReason == genai.FinishReasonMaxTokens {
		return nil, fmt.Errorf("output truncated (finish_reason: MAX_TOKENS): response exceeded output token limit")
	}

	var text strings.Builder
	for _, part := range cand.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("empty response from API: no text parts")
	}
	return &port.CompletionResponse{
		Content:    text.String(),
		Model:      model,
		StopReason: cand.FinishReason.String(),
	}, nil
}

// Close releases the underlying gRPC connection.
func (p *Provider) Close() error {
	return p.client.Close()
}
