package session

import (
	"fmt"
	"time"
)

const (
	DefaultTimeout     = 75 * time.Second
	DefaultMaxAttempts = 3
)

// ControllerOptions configures the fault-tolerant stack around a factory
type ControllerOptions struct {
	Timeout     time.Duration
	MaxAttempts int
	SettleDelay time.Duration
}

// NewController builds Retry(Timeout(Lazy(factory))), the session the scheduler drives
func NewController(name string, factory Factory, opts ControllerOptions) (*Retry, error) {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", opts.Timeout)
	}
	if opts.MaxAttempts < 0 {
		return nil, fmt.Errorf("maxAttempts must be positive, got %d", opts.MaxAttempts)
	}

	lazy := NewLazy(name, factory)
	lazy.settleDelay = opts.SettleDelay
	return NewRetry(name, NewTimeout(lazy, opts.Timeout), opts.MaxAttempts), nil
}
