package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"blink/internal/domain"
)

// RateLimited waits on a token bucket before each completion.
type RateLimited struct {
	next    Provider
	limiter *rate.Limiter
}

func NewRateLimited(next Provider, rps float64, burst int) *RateLimited {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *RateLimited) Complete(ctx context.Context, req domain.LLMRequest) (domain.LLMResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return domain.LLMResponse{}, fmt.Errorf("%w: rate limit wait: %v", domain.ErrProviderTimeout, err)
	}
	return r.next.Complete(ctx, req)
}
