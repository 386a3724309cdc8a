// Package intent classifies caller utterances into the closed intent set and
// extracts the slots the dialogue needs.
package intent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"blink/internal/domain"
)

// HistoryWindow is how many recent exchanges a classifier sees.
const HistoryWindow = 5

type Classifier interface {
	Classify(ctx context.Context, utterance string, history []domain.Exchange) (domain.IntentResult, error)
}

type Router struct {
	classifier Classifier
	timeout    time.Duration
	logger     *slog.Logger
}

func NewRouter(classifier Classifier, timeout time.Duration, logger *slog.Logger) *Router {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{classifier: classifier, timeout: timeout, logger: logger}
}

// Classify never fails. Provider errors, timeouts and out-of-enum output all
// degrade to unknown with zero confidence.
func (r *Router) Classify(ctx context.Context, utterance string, history []domain.Exchange) domain.IntentResult {
	if r == nil || r.classifier == nil {
		return domain.DegradedIntent()
	}
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.classifier.Classify(callCtx, utterance, recent(history, HistoryWindow))
	if err == nil {
		err = checkResult(res)
	}
	if err != nil {
		// unreachable providers are reported like timeouts
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) || domain.FailureKind(err) == "Internal" {
			err = fmt.Errorf("%w: %v", domain.ErrProviderTimeout, err)
		}
		out := domain.DegradedIntent()
		out.FailureKind = domain.FailureKind(err)
		r.logger.Warn("intent router degraded", "error", err, "failure_kind", out.FailureKind)
		return out
	}
	if res.Confidence < 0 {
		res.Confidence = 0
	}
	if res.Confidence > 1 {
		res.Confidence = 1
	}
	// satisfaction outside [0,1] is left for the local scorer
	if v := res.Satisfaction; v != nil && (math.IsNaN(*v) || *v < 0 || *v > 1) {
		res.Satisfaction = nil
	}
	return res
}

func checkResult(res domain.IntentResult) error {
	if _, ok := domain.ParseIntent(string(res.Intent)); !ok {
		return fmt.Errorf("%w: intent %q", domain.ErrMalformedInput, res.Intent)
	}
	return nil
}

func recent(history []domain.Exchange, n int) []domain.Exchange {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
