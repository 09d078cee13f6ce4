package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shehryarbajwa/crossbrowse/internal/browser"
	"github.com/shehryarbajwa/crossbrowse/pkg/models"
)

// ChromiumSession drives a chromium-family browser over the devtools protocol
type ChromiumSession struct {
	name     string
	chromium *browser.Chromium

	once    sync.Once
	mu      sync.Mutex
	closed  bool
	termErr error
}

// RunAnalysis reports page-level problems as failure results; only a cancelled
// context surfaces as an error.
func (s *ChromiumSession) RunAnalysis(ctx context.Context, url string) (*models.Result, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrTerminated
	}

	detail, err := browser.Analyze(ctx, s.chromium.Browser, url)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return models.Failure(err.Error()), nil
	}
	return models.Success(detail), nil
}

func (s *ChromiumSession) Terminate(ctx context.Context, force bool) error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.termErr = s.chromium.Close(ctx, force)
		log.Printf("🛑 Terminated session %s (force=%v)", s.name, force)
	})
	return s.termErr
}

type ChromiumSessionOptions struct {
	Name          string
	LimitKey      string
	CreateTimeout time.Duration
	Chromium      browser.ChromiumOptions
}

// NewChromiumFactory launches local browsers, or containers when pool is set.
// A launch must complete within CreateTimeout.
func NewChromiumFactory(pool *browser.Pool, limiter Limiter, opts ChromiumSessionOptions) Factory {
	if opts.CreateTimeout == 0 {
		opts.CreateTimeout = CreateTimeout
	}
	return func(ctx context.Context) (Session, error) {
		if limiter != nil {
			if err := limiter.Wait(ctx, opts.LimitKey); err != nil {
				return nil, fmt.Errorf("%w %s: launch throttled: %w", ErrCreateSession, opts.Name, err)
			}
		}

		ctx, cancel := context.WithTimeout(ctx, opts.CreateTimeout)
		defer cancel()

		var chromium *browser.Chromium
		var err error
		if pool != nil {
			chromium, err = pool.LaunchChromium(ctx, browser.LaunchOptions{
				Name:        opts.Name,
				UserDataDir: opts.Chromium.ProfilePath,
			})
		} else {
			chromium, err = browser.LaunchChromium(ctx, opts.Chromium)
		}
		if err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrCreateSession, opts.Name, err)
		}

		log.Printf("✅ Created session %s", opts.Name)
		return &ChromiumSession{name: opts.Name, chromium: chromium}, nil
	}
}
