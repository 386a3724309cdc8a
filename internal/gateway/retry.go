package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"blink/internal/domain"
)

// IsTransient reports whether a failed call may succeed if repeated: network
// errors, timeouts and 429/502/503/504 replies. Rejections and cancellation
// are final.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrProviderRejected) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrProviderTimeout) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Status {
		case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Retrying repeats a transient failure exactly once. When the caller's
// context carries a deadline, the first attempt gets half of what remains after
// the backoff so a stalled call still leaves room for the retry.
type Retrying struct {
	next    Gateway
	backoff time.Duration
	logger  *slog.Logger
}

func NewRetrying(next Gateway, backoff time.Duration, logger *slog.Logger) *Retrying {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrying{next: next, backoff: backoff, logger: logger}
}

func (r *Retrying) Invoke(ctx context.Context, req Request) (Response, error) {
	resp, err := r.first(ctx, req)
	if err == nil || !IsTransient(err) || ctx.Err() != nil {
		return resp, err
	}
	r.logger.Warn("gateway call failed, retrying", "action", req.Action, "session_id", req.SessionID, "error", err)

	if r.backoff > 0 {
		timer := time.NewTimer(r.backoff)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Response{}, err
		case <-timer.C:
		}
	}
	return r.next.Invoke(ctx, req)
}

func (r *Retrying) first(ctx context.Context, req Request) (Response, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return r.next.Invoke(ctx, req)
	}
	budget := (time.Until(deadline) - r.backoff) / 2
	if budget <= 0 {
		return r.next.Invoke(ctx, req)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	return r.next.Invoke(attemptCtx, req)
}
