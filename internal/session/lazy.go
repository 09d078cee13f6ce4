package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shehryarbajwa/crossbrowse/pkg/models"
)

const discardTimeout = 10 * time.Second

// Lazy holds at most one live session, created on first use. Any error from the
// session force-terminates and drops it, so the next call starts from scratch.
type Lazy struct {
	name    string
	factory Factory

	// delay after each close before the profile is reused
	settleDelay time.Duration

	mu      sync.Mutex
	session Session
	created int
}

// NewLazy wraps factory; name is used for logs and metrics
func NewLazy(name string, factory Factory) *Lazy {
	return &Lazy{name: name, factory: factory}
}

func (l *Lazy) RunAnalysis(ctx context.Context, url string) (*models.Result, error) {
	s, err := l.current(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.RunAnalysis(ctx, url)
	if err != nil {
		l.discard(ctx, s, err)
		return nil, err
	}
	return result, nil
}

// Terminate closes the live session, if any, and forgets it
func (l *Lazy) Terminate(ctx context.Context, force bool) error {
	l.mu.Lock()
	s := l.session
	l.session = nil
	l.mu.Unlock()

	if s == nil {
		return nil
	}
	err := s.Terminate(ctx, force)
	if l.settleDelay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(l.settleDelay):
		}
	}
	return err
}

// Created returns how many sessions the factory has produced
func (l *Lazy) Created() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.created
}

func (l *Lazy) current(ctx context.Context) (Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.session != nil {
		return l.session, nil
	}

	s, err := l.factory(ctx)
	if err != nil {
		sessionCreations.WithLabelValues("failure").Inc()
		if errors.Is(err, ErrCreateSession) {
			return nil, err
		}
		return nil, fmt.Errorf("%w %s: %w", ErrCreateSession, l.name, err)
	}
	sessionCreations.WithLabelValues("success").Inc()
	l.created++
	l.session = s
	return s, nil
}

func (l *Lazy) discard(ctx context.Context, s Session, cause error) {
	l.mu.Lock()
	if l.session != s {
		// already dropped, e.g. by a timeout
		l.mu.Unlock()
		return
	}
	l.session = nil
	l.mu.Unlock()

	log.Printf("♻️ Discarding session %s after error: %v", l.name, cause)
	killCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()
	if err := s.Terminate(killCtx, true); err != nil {
		log.Printf("⚠️ Failed to kill session %s: %v", l.name, err)
	}
}
