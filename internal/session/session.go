// Package session wraps raw browser sessions with lazy creation, per-call timeouts,
// crash recovery and retries.
package session

import (
	"context"
	"errors"

	"github.com/shehryarbajwa/crossbrowse/pkg/models"
)

var (
	// ErrTimeout is returned when an analysis exceeds its deadline
	ErrTimeout = errors.New("analysis timed out")
	// ErrCreateSession wraps every failure to bring up a browser session
	ErrCreateSession = errors.New("cannot create session")
	// ErrTerminated is returned when a terminated raw session is used again
	ErrTerminated = errors.New("session terminated")
)

// Session is one browser with one configuration, able to run analyses.
// Terminate must be safe to call before any work and more than once.
type Session interface {
	RunAnalysis(ctx context.Context, url string) (*models.Result, error)
	Terminate(ctx context.Context, force bool) error
}

// Factory creates a fresh raw session
type Factory func(ctx context.Context) (Session, error)
