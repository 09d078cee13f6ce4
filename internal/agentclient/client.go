// Package agentclient is the browser side of the agent protocol: it connects back
// to the orchestrator, executes tasks and answers them.
package agentclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/shehryarbajwa/crossbrowse/pkg/models"
)

// State is the lifecycle of a connected agent
type State int32

const (
	StateConnected State = iota
	StateServing
	StateShutdownRequested
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateServing:
		return "serving"
	case StateShutdownRequested:
		return "shutdown-requested"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Handler performs the analysis requested by a RunAnalysis task
type Handler interface {
	RunAnalysis(ctx context.Context, params models.RunAnalysisParams) (*models.Detail, error)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, params models.RunAnalysisParams) (*models.Detail, error)

func (f HandlerFunc) RunAnalysis(ctx context.Context, params models.RunAnalysisParams) (*models.Detail, error) {
	return f(ctx, params)
}

// Client serves tasks arriving on one orchestrator connection
type Client struct {
	conn       *websocket.Conn
	handler    Handler
	onShutdown func(context.Context) error

	writeMu sync.Mutex
	state   atomic.Int32
	tasks   sync.WaitGroup
}

// Dial resolves connectURL (a start page or a ws URL) and connects to the orchestrator
func Dial(ctx context.Context, connectURL string, handler Handler) (*Client, error) {
	wsURL, err := ResolveConnectURL(ctx, connectURL)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", wsURL, err)
	}
	return NewClient(conn, handler), nil
}

// NewClient wraps an established connection
func NewClient(conn *websocket.Conn, handler Handler) *Client {
	return &Client{conn: conn, handler: handler}
}

// OnShutdown registers the hook run after a Shutdown task has been answered
// (closing the browser, typically).
func (c *Client) OnShutdown(fn func(context.Context) error) {
	c.onShutdown = fn
}

// State returns the current lifecycle state
func (c *Client) State() State {
	return State(c.state.Load())
}

// Serve reads tasks until the connection closes, ctx is done, or a Shutdown task
// has been handled. Tasks run concurrently; answers may be sent in any order.
func (c *Client) Serve(ctx context.Context) error {
	c.state.CompareAndSwap(int32(StateConnected), int32(StateServing))

	stop := context.AfterFunc(ctx, func() {
		c.conn.Close()
	})
	defer stop()

	var err error
	for {
		var message []byte
		_, message, err = c.conn.ReadMessage()
		if err != nil {
			break
		}

		var task models.IncomingTask
		if jsonErr := json.Unmarshal(message, &task); jsonErr != nil {
			log.Printf("⚠️ Ignoring malformed task: %v", jsonErr)
			continue
		}

		c.tasks.Add(1)
		go func() {
			defer c.tasks.Done()
			c.handle(ctx, task)
		}()
	}
	c.tasks.Wait()

	if c.State() == StateClosed || ctx.Err() != nil {
		return nil
	}
	c.state.Store(int32(StateClosed))
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return nil
	}
	return fmt.Errorf("agent connection lost: %w", err)
}

func (c *Client) handle(ctx context.Context, task models.IncomingTask) {
	result := c.accept(ctx, task)

	c.writeMu.Lock()
	err := c.conn.WriteJSON(result)
	c.writeMu.Unlock()
	if err != nil {
		log.Printf("⚠️ Failed to answer task %s: %v", task.ID, err)
	}

	if c.State() == StateShutdownRequested {
		c.finish(ctx)
	}
}

func (c *Client) accept(ctx context.Context, task models.IncomingTask) models.TaskResult {
	detail, err := c.dispatch(ctx, task)
	if err != nil {
		return models.TaskResult{TaskID: task.ID, Status: models.StatusFailure, Reason: err.Error()}
	}
	data, err := json.Marshal(detail)
	if err != nil {
		return models.TaskResult{TaskID: task.ID, Status: models.StatusFailure, Reason: err.Error()}
	}
	return models.TaskResult{TaskID: task.ID, Status: models.StatusSuccess, Detail: data}
}

func (c *Client) dispatch(ctx context.Context, task models.IncomingTask) (any, error) {
	switch task.Command {
	case models.CommandRunAnalysis:
		var params models.RunAnalysisParams
		if err := json.Unmarshal(task.Parameter, &params); err != nil {
			return nil, fmt.Errorf("invalid RunAnalysis parameter: %w", err)
		}
		return c.handler.RunAnalysis(ctx, params)
	case models.CommandShutdown:
		c.state.CompareAndSwap(int32(StateServing), int32(StateShutdownRequested))
		return true, nil
	}
	return nil, errors.New("unknown command: " + task.Command)
}

func (c *Client) finish(ctx context.Context) {
	if !c.state.CompareAndSwap(int32(StateShutdownRequested), int32(StateClosed)) {
		return
	}
	if c.onShutdown != nil {
		if err := c.onShutdown(ctx); err != nil {
			log.Printf("⚠️ Shutdown hook failed: %v", err)
		}
	}
	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	c.conn.Close()
}
