package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/shehryarbajwa/crossbrowse/internal/completer"
	"github.com/shehryarbajwa/crossbrowse/pkg/models"
)

// ErrChannelClosed is returned for every task pending when the transport goes away,
// and for tasks assigned afterwards.
var ErrChannelClosed = errors.New("agent channel closed")

// Channel correlates tasks sent to one remote agent with the results it sends back
type Channel struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once

	mu       sync.Mutex
	pending  map[string]*completer.Completer[*models.TaskResult]
	closed   bool
	closeErr error
	done     chan struct{}
}

// NewChannel takes ownership of conn and starts reading task results from it
func NewChannel(conn *websocket.Conn) *Channel {
	c := &Channel{
		conn:    conn,
		pending: make(map[string]*completer.Completer[*models.TaskResult]),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// AssignTask sends one command to the agent and waits for its result.
// Any number of tasks may be outstanding; results are matched by task id.
func (c *Channel) AssignTask(ctx context.Context, command string, parameter any) (*models.TaskResult, error) {
	task := models.Task{
		ID:        uuid.New().String(),
		Command:   command,
		Parameter: parameter,
	}
	data, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task: %w", err)
	}

	taskCompleter := completer.New[*models.TaskResult]()

	c.mu.Lock()
	if c.closed {
		err := c.closeErr
		c.mu.Unlock()
		return nil, err
	}
	c.pending[task.ID] = taskCompleter
	c.mu.Unlock()
	defer c.forget(task.ID)

	tasksInFlight.Inc()
	defer tasksInFlight.Dec()

	c.writeMu.Lock()
	err = c.conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to send %s task: %w", command, err)
	}

	result, err := taskCompleter.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s task %s: %w", command, task.ID[:8], err)
	}
	return result, nil
}

// Close closes the transport. Pending tasks are failed by the read loop.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// Done is closed once the transport is gone and all pending tasks have been failed
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Pending returns the number of tasks waiting for a result
func (c *Channel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Channel) forget(taskID string) {
	c.mu.Lock()
	delete(c.pending, taskID)
	c.mu.Unlock()
}

func (c *Channel) readLoop() {
	var err error
	for {
		var messageType int
		var message []byte
		messageType, message, err = c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("⚠️ Agent connection lost: %v", err)
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var result models.TaskResult
		if err := json.Unmarshal(message, &result); err != nil {
			log.Printf("⚠️ Dropping malformed task result: %v", err)
			continue
		}

		c.mu.Lock()
		taskCompleter := c.pending[result.TaskID]
		c.mu.Unlock()
		if taskCompleter == nil {
			// abandoned after a timeout
			continue
		}
		taskCompleter.Complete(&result)
	}
	c.sweep(err)
}

func (c *Channel) sweep(cause error) {
	closeErr := fmt.Errorf("%w: %v", ErrChannelClosed, cause)

	c.mu.Lock()
	c.closed = true
	c.closeErr = closeErr
	pending := c.pending
	c.pending = make(map[string]*completer.Completer[*models.TaskResult])
	c.mu.Unlock()

	for _, taskCompleter := range pending {
		taskCompleter.Fail(closeErr)
	}
	close(c.done)
	c.Close()
}
