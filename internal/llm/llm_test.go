package llm_test

import (
	"context"
	"errors"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contractparser/internal/config"
	"contractparser/internal/llm"
	"contractparser/internal/port"
)

// stubProvider is a minimal LLMProvider for testing the factory.
type stubProvider struct {
	model string
	calls int
}

func (s *stubProvider) Complete(_ context.Context, _ port.CompletionRequest) (*port.CompletionResponse, error) {
	s.calls++
	return &port.CompletionResponse{Content: "{}", Model: s.model}, nil
}

func TestFactory_RegisterAndCreate(t *testing.T) {
	llm.RegisterProvider("test-provider", func(cfg *config.LLMProviderConfig) (port.LLMProvider, error) {
		return &stubProvider{model: cfg.DefaultModel}, nil
	})

	p, err := llm.NewProvider(&config.LLMProviderConfig{
		Provider:     "test-provider",
		DefaultModel: "test-model",
	})
	require.NoError(t, err)

	resp, err := p.Complete(context.Background(), port.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "test-model", resp.Model)
	assert.Contains(t, llm.Providers(), "test-provider")
}

func TestFactory_UnknownProvider(t *testing.T) {
	p, err := llm.NewProvider(&config.LLMProviderConfig{
		Provider: "nonexistent-provider-xyz",
	})

	assert.Nil(t, p)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown llm provider")
}

func TestFactory_WrapsRateLimitedProviders(t *testing.T) {
	llm.RegisterProvider("test-limited", func(cfg *config.LLMProviderConfig) (port.LLMProvider, error) {
		return &stubProvider{}, nil
	})

	p, err := llm.NewProvider(&config.LLMProviderConfig{Provider: "test-limited", RateLimitRPM: 60})
	require.NoError(t, err)
	assert.IsType(t, &llm.RateLimited{}, p)
}

func TestNewChain(t *testing.T) {
	llm.RegisterProvider("test-chain", func(cfg *config.LLMProviderConfig) (port.LLMProvider, error) {
		return &stubProvider{model: cfg.DefaultModel}, nil
	})

	chain, err := llm.NewChain(&config.LLMConfig{
		Primary:   config.LLMProviderConfig{Provider: "test-chain", DefaultModel: "a"},
		Secondary: config.LLMProviderConfig{Provider: "test-chain", DefaultModel: "b"},
	})
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, "test-chain", chain[0].Name)

	_, err = llm.NewChain(&config.LLMConfig{})
	assert.Error(t, err)

	_, err = llm.NewChain(&config.LLMConfig{Primary: config.LLMProviderConfig{Provider: "missing"}})
	assert.Error(t, err)
}

func TestRateLimited_WaitsBetweenCalls(t *testing.T) {
	stub := &stubProvider{}
	// 600 rpm allows one call every 100ms with a burst of one.
	p := llm.NewRateLimited(stub, 600)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := p.Complete(context.Background(), port.CompletionRequest{})
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	assert.Equal(t, 3, stub.calls)
}

func TestRateLimited_ContextCancelled(t *testing.T) {
	stub := &stubProvider{}
	p := llm.NewRateLimited(stub, 1)

	_, err := p.Complete(context.Background(), port.CompletionRequest{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Complete(ctx, port.CompletionRequest{})
	assert.Error(t, err)
	assert.Equal(t, 1, stub.calls)
}

func TestRateLimitError(t *testing.T) {
	base := errors.New("too many requests")
	err := llm.NewRateLimitError("openai", base, 0)

	assert.Equal(t, 60*time.Second, err.RetryAfter)
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "openai rate limited")

	assert.Equal(t, 30*time.Second, llm.NewRateLimitError("claude", base, 30).RetryAfter)
}

func TestParseRetryAfterHeader(t *testing.T) {
	assert.Equal(t, 0, llm.ParseRetryAfterHeader(""))
	assert.Equal(t, 0, llm.ParseRetryAfterHeader("Wed, 21 Oct 2015 07:28:00 GMT"))
	assert.Equal(t, 12, llm.ParseRetryAfterHeader("12"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", llm.Truncate("abc", 5))
	assert.Equal(t, "ab...", llm.Truncate("abcdef", 2))
}

func TestTruncate_KeepsValidUTF8(t *testing.T) {
	// "é" is two bytes; a cut at byte 2 would split it.
	out := llm.Truncate("aé€z", 2)
	assert.Equal(t, "a...", out)
	assert.True(t, utf8.ValidString(out))

	out = llm.Truncate("ok\xff\xfe tail", 100)
	assert.True(t, utf8.ValidString(out))
	assert.Contains(t, out, "ok")
}

// flakyProvider fails with the queued errors before succeeding.
type flakyProvider struct {
	errs  []error
	calls int
}

func (f *flakyProvider) Complete(_ context.Context, _ port.CompletionRequest) (*port.CompletionResponse, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return &port.CompletionResponse{Content: "{}"}, nil
}

type nativeRetryProvider struct{ stubProvider }

func (nativeRetryProvider) RetriesRequests() bool { return true }

func TestRetrying(t *testing.T) {
	transient := llm.MarkTransient(errors.New("status 503"))

	tests := []struct {
		name      string
		errs      []error
		retries   int
		wantErr   bool
		wantCalls int
	}{
		{"recovers after transient failures", []error{transient, transient}, 2, false, 3},
		{"gives up after max retries", []error{transient, transient, transient}, 2, true, 3},
		{"permanent failure is not retried", []error{errors.New("status 400")}, 2, true, 1},
		{"rate limit is left to the fallback chain", []error{llm.NewRateLimitError("openai", errors.New("429"), 5)}, 2, true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flaky := &flakyProvider{errs: tt.errs}
			p := llm.NewRetrying(flaky, "openai", tt.retries, time.Millisecond)

			_, err := p.Complete(context.Background(), port.CompletionRequest{})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, flaky.calls)
		})
	}
}

func TestRetrying_StopsWhenContextEnds(t *testing.T) {
	flaky := &flakyProvider{errs: []error{llm.MarkTransient(errors.New("status 502"))}}
	p := llm.NewRetrying(flaky, "gemini", 3, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Complete(ctx, port.CompletionRequest{})
	assert.True(t, llm.IsTransient(err))
	assert.Equal(t, 1, flaky.calls)
}

func TestFactory_WrapsRetriesUnlessProviderRetries(t *testing.T) {
	llm.RegisterProvider("test-retry", func(cfg *config.LLMProviderConfig) (port.LLMProvider, error) {
		return &stubProvider{}, nil
	})
	llm.RegisterProvider("test-native-retry", func(cfg *config.LLMProviderConfig) (port.LLMProvider, error) {
		return &nativeRetryProvider{}, nil
	})

	p, err := llm.NewProvider(&config.LLMProviderConfig{Provider: "test-retry", MaxRetries: 2})
	require.NoError(t, err)
	assert.IsType(t, &llm.Retrying{}, p)

	p, err = llm.NewProvider(&config.LLMProviderConfig{Provider: "test-native-retry", MaxRetries: 2})
	require.NoError(t, err)
	assert.IsType(t, &nativeRetryProvider{}, p)

	p, err = llm.NewProvider(&config.LLMProviderConfig{Provider: "test-retry"})
	require.NoError(t, err)
	assert.IsType(t, &stubProvider{}, p)
}
