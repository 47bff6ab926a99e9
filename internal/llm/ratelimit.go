package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"contractparser/internal/port"
)

// RateLimited throttles calls to a provider to a fixed requests-per-minute budget.
type RateLimited struct {
	next    port.LLMProvider
	limiter *rate.Limiter
}

// NewRateLimited wraps next so that at most rpm calls start per minute.
func NewRateLimited(next port.LLMProvider, rpm int) *RateLimited {
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
	}
}

func (r *RateLimited) Complete(ctx context.Context, req port.CompletionRequest) (*port.CompletionResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.next.Complete(ctx, req)
}
