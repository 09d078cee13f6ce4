package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shehryarbajwa/crossbrowse/internal/agent"
	"github.com/shehryarbajwa/crossbrowse/pkg/models"
)

const (
	CreateTimeout = 30 * time.Second

	// Bound on a cooperative shutdown before the process is interrupted
	DefaultShutdownTimeout = 10 * time.Second
)

// Rendezvous pairs spawned browsers with their agent connections
type Rendezvous interface {
	GenerateAgentID() string
	ConnectURL(agentID string) string
	WaitForAgent(ctx context.Context, agentID string) (*agent.Channel, error)
}

// Process is the browser process behind a firefox session
type Process interface {
	Interrupt() error
	Kill() error
}

// Spawner starts a browser that will open connectURL in its first tab
type Spawner func(connectURL string) (Process, error)

// Limiter throttles browser launches per key
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

type FirefoxSessionOptions struct {
	Name       string
	IsFoxhound bool

	// Launch throttling key, usually the browser kind
	LimitKey        string
	CreateTimeout   time.Duration
	ShutdownTimeout time.Duration
}

// FirefoxSession drives a firefox instance through its agent extension
type FirefoxSession struct {
	channel *agent.Channel
	process Process
	opts    FirefoxSessionOptions

	once       sync.Once
	mu         sync.Mutex
	terminated bool
	termErr    error
}

func (s *FirefoxSession) RunAnalysis(ctx context.Context, url string) (*models.Result, error) {
	s.mu.Lock()
	terminated := s.terminated
	s.mu.Unlock()
	if terminated {
		return nil, ErrTerminated
	}

	taskResult, err := s.channel.AssignTask(ctx, models.CommandRunAnalysis, models.RunAnalysisParams{
		URL:        url,
		IsFoxhound: s.opts.IsFoxhound,
	})
	if err != nil {
		return nil, err
	}
	return toResult(taskResult)
}

// Terminate stops the browser: force interrupts the process, otherwise the agent
// is asked to shut down. An agent that does not answer within the shutdown timeout
// is interrupted as well. The channel is closed either way.
func (s *FirefoxSession) Terminate(ctx context.Context, force bool) error {
	s.once.Do(func() {
		s.mu.Lock()
		s.terminated = true
		s.mu.Unlock()

		if !force {
			force = !s.shutdown(ctx)
		}
		if force {
			s.termErr = s.process.Interrupt()
		}
		s.channel.Close()
		log.Printf("🛑 Terminated session %s (force=%v)", s.opts.Name, force)
	})
	return s.termErr
}

func (s *FirefoxSession) shutdown(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ShutdownTimeout)
	defer cancel()

	if _, err := s.channel.AssignTask(ctx, models.CommandShutdown, nil); err != nil {
		log.Printf("⚠️ Agent of %s did not shut down, interrupting: %v", s.opts.Name, err)
		return false
	}
	return true
}

func toResult(tr *models.TaskResult) (*models.Result, error) {
	switch tr.Status {
	case models.StatusSuccess:
		var detail models.Detail
		if len(tr.Detail) > 0 {
			if err := json.Unmarshal(tr.Detail, &detail); err != nil {
				return nil, fmt.Errorf("failed to decode detail of task %s: %w", tr.TaskID, err)
			}
		}
		return models.Success(&detail), nil
	case models.StatusFailure:
		return models.Failure(tr.Reason), nil
	default:
		return nil, fmt.Errorf("unknown status %q for task %s", tr.Status, tr.TaskID)
	}
}

// NewFirefoxFactory returns a Factory that spawns a browser and waits for its agent
func NewFirefoxFactory(rv Rendezvous, spawn Spawner, limiter Limiter, opts FirefoxSessionOptions) Factory {
	if opts.CreateTimeout == 0 {
		opts.CreateTimeout = CreateTimeout
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	return func(ctx context.Context) (Session, error) {
		if limiter != nil {
			if err := limiter.Wait(ctx, opts.LimitKey); err != nil {
				return nil, fmt.Errorf("%w %s: launch throttled: %w", ErrCreateSession, opts.Name, err)
			}
		}
		return createFirefoxSession(ctx, rv, spawn, opts)
	}
}

func createFirefoxSession(ctx context.Context, rv Rendezvous, spawn Spawner, opts FirefoxSessionOptions) (*FirefoxSession, error) {
	agentID := rv.GenerateAgentID()
	connectURL := rv.ConnectURL(agentID)

	ctx, cancel := context.WithTimeout(ctx, opts.CreateTimeout)
	defer cancel()

	process, err := spawn(connectURL)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrCreateSession, opts.Name, err)
	}

	channel, err := rv.WaitForAgent(ctx, agentID)
	if err != nil {
		if killErr := process.Kill(); killErr != nil {
			log.Printf("⚠️ Failed to kill browser of %s: %v", opts.Name, killErr)
		}
		return nil, fmt.Errorf("%w %s: %w", ErrCreateSession, opts.Name, err)
	}

	log.Printf("✅ Created session %s (agent %s)", opts.Name, agentID)
	return &FirefoxSession{
		channel: channel,
		process: process,
		opts:    opts,
	}, nil
}
