package llm

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"contractparser/internal/port"
)

// TransientError marks a provider failure worth repeating, such as a 5xx
// response or a dropped connection.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// MarkTransient wraps err as retryable. A nil error stays nil.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err was marked retryable. Rate limits are not
// transient here; the orchestrator moves on to the next provider instead.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// SelfRetrying is implemented by providers whose client already retries
// failed requests, so the factory does not wrap them again.
type SelfRetrying interface {
	RetriesRequests() bool
}

// Retrying repeats transient provider failures with exponential backoff.
type Retrying struct {
	next           port.LLMProvider
	name           string
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewRetrying wraps next so that a transient failure is tried again up to
// maxRetries times.
func NewRetrying(next port.LLMProvider, name string, maxRetries int, initialBackoff time.Duration) *Retrying {
	return &Retrying{
		next:           next,
		name:           name,
		maxRetries:     maxRetries,
		initialBackoff: initialBackoff,
		maxBackoff:     30 * time.Second,
	}
}

func (r *Retrying) Complete(ctx context.Context, req port.CompletionRequest) (*port.CompletionResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		resp, err := r.next.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil || !IsTransient(err) || attempt == r.maxRetries {
			break
		}

		zap.L().Warn("llm.Retrying: retrying provider call",
			zap.String("provider", r.name),
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		timer := time.NewTimer(r.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, lastErr
		case <-timer.C:
		}
	}
	return nil, lastErr
}

func (r *Retrying) backoff(attempt int) time.Duration {
	d := float64(r.initialBackoff) * math.Pow(2, float64(attempt))
	if d > float64(r.maxBackoff) {
		return r.maxBackoff
	}
	return time.Duration(d)
}
