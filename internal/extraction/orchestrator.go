package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"contractparser/internal/domain"
	"contractparser/internal/llm"
	"contractparser/internal/port"
	"contractparser/internal/record"
)

// ErrExtractionFailed is matched by every terminal extraction failure.
var ErrExtractionFailed = errors.New("extraction failed")

// Attempt records why one provider did not produce a record.
type Attempt struct {
	Provider string
	Err      error
}

// FailedError reports that every provider in the chain failed.
type FailedError struct {
	Attempts []Attempt
}

func (e *FailedError) Error() string {
	if len(e.Attempts) == 0 {
		return "extraction failed: no providers attempted"
	}
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s: %v", a.Provider, a.Err)
	}
	return "all providers failed to extract billing terms: " + strings.Join(parts, "; ")
}

func (e *FailedError) Is(target error) bool { return target == ErrExtractionFailed }

func (e *FailedError) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		errs[i] = a.Err
	}
	return errs
}

// circuitState tracks rate-limit backoff for a single provider.
type circuitState struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

func (c *circuitState) isOpenWithReset(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuitState) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// Orchestrator turns contract text into a validated billing record by
// trying providers in order, skipping those whose rate-limit circuit is open.
// It implements port.BillingExtractor.
type Orchestrator struct {
	providers []llm.NamedProvider
	circuits  []*circuitState
	policy    TruncationPolicy
	now       func() time.Time
}

// NewOrchestrator creates an Orchestrator from an ordered provider chain.
func NewOrchestrator(providers []llm.NamedProvider, policy TruncationPolicy) *Orchestrator {
	circuits := make([]*circuitState, len(providers))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	return &Orchestrator{
		providers: providers,
		circuits:  circuits,
		policy:    policy,
		now:       time.Now,
	}
}

func (o *Orchestrator) Extract(ctx context.Context, text string) (*domain.ExtractionResult, error) {
	prompt, truncated := o.policy.Apply(text)
	if truncated {
		zap.L().Info("extraction.Orchestrator.Extract: contract text truncated",
			zap.Int("original_chars", len([]rune(text))))
	}
	userPrompt := BuildUserPrompt(prompt)

	var attempts []Attempt
	for i, p := range o.providers {
		now := o.now()
		if resetAt, open := o.circuits[i].isOpenWithReset(now); open {
			zap.L().Warn("extraction.Orchestrator.Extract: skipping provider",
				zap.String("provider", p.Name),
				zap.Time("circuit_open_until", resetAt))
			attempts = append(attempts, Attempt{
				Provider: p.Name,
				Err:      fmt.Errorf("circuit open until %s", resetAt.Format(time.RFC3339)),
			})
			continue
		}

		rec, model, err := o.attempt(ctx, p, userPrompt)
		if err == nil {
			return &domain.ExtractionResult{
				Record:    rec,
				Provider:  p.Name,
				Model:     model,
				Truncated: truncated,
			}, nil
		}

		zap.L().Warn("extraction.Orchestrator.Extract: provider failed",
			zap.String("provider", p.Name), zap.Error(err))
		attempts = append(attempts, Attempt{Provider: p.Name, Err: err})

		var rlErr *llm.RateLimitError
		if errors.As(err, &rlErr) {
			o.circuits[i].open(now.Add(rlErr.RetryAfter))
		}
		if ctx.Err() != nil {
			break
		}
	}

	return nil, &FailedError{Attempts: attempts}
}

func (o *Orchestrator) attempt(ctx context.Context, p llm.NamedProvider, userPrompt string) (record.Record, string, error) {
	resp, err := p.Provider.Complete(ctx, port.CompletionRequest{
		SystemPrompt: SystemPrompt,
		UserPrompt:   userPrompt,
	})
	if err != nil {
		return record.Record{}, "", err
	}
	rec, err := record.Build([]byte(StripCodeFences(resp.Content)))
	if err != nil {
		return record.Record{}, "", err
	}
	return rec, resp.Model, nil
}

// StripCodeFences removes a surrounding markdown code block, if any.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
