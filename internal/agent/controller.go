package agent

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/shehryarbajwa/crossbrowse/internal/completer"
)

// PathPrefix is the first path segment of every agent connect URL
const PathPrefix = "firefox-agent"

// DefaultMaxFrameSize bounds a single task result (analysis payloads can be large)
const DefaultMaxFrameSize = 50 * 1024 * 1024

var (
	// ErrAgentNotAwaited is reported when an agent presents an id nobody waits for
	ErrAgentNotAwaited = errors.New("agent id is not awaited")
	// ErrControllerClosed fails waiters still pending at shutdown
	ErrControllerClosed = errors.New("agent controller closed")
)

// Controller hands out agent ids and pairs inbound agent connections with their waiters
type Controller struct {
	baseURL      string
	maxFrameSize int64
	upgrader     websocket.Upgrader

	mu      sync.Mutex
	pending map[string]*completer.Completer[*Channel]
	closed  bool
}

// NewController creates a controller whose connect URLs start with baseURL
// (e.g. http://127.0.0.1:8040).
func NewController(baseURL string, maxFrameSize int64) *Controller {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	return &Controller{
		baseURL:      strings.TrimRight(baseURL, "/"),
		maxFrameSize: maxFrameSize,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		pending: make(map[string]*completer.Completer[*Channel]),
	}
}

// GenerateAgentID returns a fresh rendezvous id
func (c *Controller) GenerateAgentID() string {
	return uuid.New().String()
}

// ConnectURL is handed to the spawned browser as its start page
func (c *Controller) ConnectURL(agentID string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, PathPrefix, agentID)
}

// WaitForAgent blocks until the agent with this id connects, or ctx is done
func (c *Controller) WaitForAgent(ctx context.Context, agentID string) (*Channel, error) {
	waiter := completer.New[*Channel]()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrControllerClosed
	}
	if _, exists := c.pending[agentID]; exists {
		c.mu.Unlock()
		return nil, fmt.Errorf("agent %s is already awaited", agentID)
	}
	c.pending[agentID] = waiter
	c.mu.Unlock()

	channel, err := waiter.Wait(ctx)
	if err == nil {
		return channel, nil
	}

	c.mu.Lock()
	if c.pending[agentID] == waiter {
		delete(c.pending, agentID)
	}
	c.mu.Unlock()

	if !waiter.Fail(err) {
		// the connection was accepted while we were giving up
		if late, lateErr := waiter.Result(); lateErr == nil {
			late.Close()
		}
	}
	return nil, fmt.Errorf("agent %s did not connect: %w", agentID, err)
}

// Awaiting reports how many agents are currently awaited
func (c *Controller) Awaiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// ServeAgent handles GET /firefox-agent/{agentId}. A plain request gets the start
// page whose title carries the websocket URL; an upgrade request is accepted only
// if the id is awaited.
func (c *Controller) ServeAgent(w http.ResponseWriter, r *http.Request, agentID string) {
	if !websocket.IsWebSocketUpgrade(r) {
		wsURL := fmt.Sprintf("ws://%s/%s/%s", r.Host, PathPrefix, agentID)
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "<title>%s:%s</title>", PathPrefix, html.EscapeString(wsURL))
		return
	}

	c.mu.Lock()
	waiter, ok := c.pending[agentID]
	if ok {
		delete(c.pending, agentID)
	}
	c.mu.Unlock()

	if !ok {
		agentConnections.WithLabelValues("rejected").Inc()
		http.Error(w, ErrAgentNotAwaited.Error(), http.StatusNotFound)
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		agentConnections.WithLabelValues("failed").Inc()
		waiter.Fail(fmt.Errorf("failed to upgrade agent connection: %w", err))
		return
	}
	conn.SetReadLimit(c.maxFrameSize)

	channel := NewChannel(conn)
	if !waiter.Complete(channel) {
		channel.Close()
		return
	}
	agentConnections.WithLabelValues("accepted").Inc()
	log.Printf("✅ Agent %s connected", agentID[:min(8, len(agentID))])
}

// Close fails every waiter still pending
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	pending := c.pending
	c.pending = make(map[string]*completer.Completer[*Channel])
	c.mu.Unlock()

	for _, waiter := range pending {
		waiter.Fail(ErrControllerClosed)
	}
}
