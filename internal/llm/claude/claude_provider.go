package claude

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"contractparser/internal/config"
	"contractparser/internal/llm"
	"contractparser/internal/port"
)

func init() {
	llm.RegisterProvider("claude", func(cfg *config.LLMProviderConfig) (port.LLMProvider, error) {
		return NewProvider(cfg), nil
	})
}

// Provider implements port.LLMProvider using the Anthropic Messages API.
type Provider struct {
	client    sdk.Client
	model     string
	maxTokens int64
}

// NewProvider creates a Claude-backed provider from a provider config.
func NewProvider(cfg *config.LLMProviderConfig) *Provider {
	return newProvider(cfg)
}

// NewProviderWithEndpoint creates a provider pointing at a custom API base URL (for testing).
func NewProviderWithEndpoint(cfg *config.LLMProviderConfig, baseURL string) *Provider {
	return newProvider(cfg, option.WithBaseURL(baseURL))
}

func newProvider(cfg *config.LLMProviderConfig, extra ...option.RequestOption) *Provider {
	model := cfg.DefaultModel
	if model == "" {
		model = "claude-opus-4-6"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 4000
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
		option.WithRequestTimeout(timeout),
	}
	opts = append(opts, extra...)
	return &Provider{
		client:    sdk.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}
}

// RetriesRequests reports that the Anthropic client already retries with
// the configured max_retries.
func (p *Provider) RetriesRequests() bool { return true }

func (p *Provider) Complete(ctx context.Context, in port.CompletionRequest) (*port.CompletionResponse, error) {
	params := sdk.MessageNewParams{
		Model:       sdk.Model(p.model),
		MaxTokens:   p.maxTokens,
		System:      []sdk.TextBlockParam{{Text: in.SystemPrompt}},
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(in.UserPrompt))},
		Temperature: sdk.Float(0),
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			retryAfter := 0
			if apiErr.Response != nil {
				retryAfter = llm.ParseRetryAfterHeader(apiErr.Response.Header.Get("Retry-After"))
			}
			return nil, llm.NewRateLimitError("claude", err, retryAfter)
		}
		return nil, eris.Wrap(err, "claude: create message")
	}

	if msg.StopReason == sdk.StopReasonMaxTokens {
		return nil, fmt.Errorf("output truncated (stop_reason: max_tokens): response exceeded output token limit")
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("empty response from API: no text content")
	}

	return &port.CompletionResponse{
		Content:    text.String(),
		Model:      string(msg.Model),
		StopReason: string(msg.StopReason),
	}, nil
}
