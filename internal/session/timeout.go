package session

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shehryarbajwa/crossbrowse/pkg/models"
)

// Timeout bounds every analysis. On expiry the call is abandoned (not awaited) and
// the inner session is force-terminated so the next call gets a new browser.
type Timeout struct {
	inner   Session
	timeout time.Duration
}

func NewTimeout(inner Session, timeout time.Duration) *Timeout {
	return &Timeout{inner: inner, timeout: timeout}
}

type outcome struct {
	result *models.Result
	err    error
}

func (t *Timeout) RunAnalysis(ctx context.Context, url string) (*models.Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		result, err := t.inner.RunAnalysis(callCtx, url)
		done <- outcome{result, err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-callCtx.Done():
	}

	t.abandon(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	analysisTimeouts.Inc()
	return nil, fmt.Errorf("%w after %s: %s", ErrTimeout, t.timeout, url)
}

func (t *Timeout) Terminate(ctx context.Context, force bool) error {
	return t.inner.Terminate(ctx, force)
}

func (t *Timeout) abandon(ctx context.Context) {
	killCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()
	if err := t.inner.Terminate(killCtx, true); err != nil {
		log.Printf("⚠️ Failed to kill timed out session: %v", err)
	}
}
