package session

import (
	"context"
	"errors"
	"log"

	"github.com/shehryarbajwa/crossbrowse/pkg/models"
)

// Retry runs up to maxAttempts analyses per request and returns the first success,
// or the last failure. Errors (session creation included) and failure results are
// retried; a failure result recycles the inner session first.
type Retry struct {
	name        string
	inner       Session
	maxAttempts int
}

// NewRetry makes at least one attempt per request
func NewRetry(name string, inner Session, maxAttempts int) *Retry {
	return &Retry{name: name, inner: inner, maxAttempts: max(maxAttempts, 1)}
}

func (r *Retry) RunAnalysis(ctx context.Context, url string) (*models.Result, error) {
	var result *models.Result
	var err error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		result, err = r.inner.RunAnalysis(ctx, url)
		if err == nil && result == nil {
			result = models.Failure("session returned no result")
		}
		if err == nil && result.OK() {
			analysisAttempts.WithLabelValues("success").Inc()
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err == nil {
				err = ctxErr
			}
			return nil, err
		}

		switch {
		case errors.Is(err, ErrCreateSession):
			analysisAttempts.WithLabelValues("create_error").Inc()
			log.Printf("⚠️ [%s] attempt %d/%d could not create a session: %v", r.name, attempt, r.maxAttempts, err)
		case err != nil:
			analysisAttempts.WithLabelValues("error").Inc()
			log.Printf("⚠️ [%s] attempt %d/%d failed: %v", r.name, attempt, r.maxAttempts, err)
		default:
			analysisAttempts.WithLabelValues("failure").Inc()
			log.Printf("⚠️ [%s] attempt %d/%d returned failure: %s", r.name, attempt, r.maxAttempts, result.Reason)
			if termErr := r.inner.Terminate(ctx, false); termErr != nil {
				log.Printf("⚠️ [%s] failed to recycle session: %v", r.name, termErr)
			}
		}
	}

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Retry) Terminate(ctx context.Context, force bool) error {
	return r.inner.Terminate(ctx, force)
}
