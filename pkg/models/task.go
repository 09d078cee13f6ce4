package models

import "encoding/json"

// Commands understood by the remote browser agent
const (
	CommandRunAnalysis = "RunAnalysis"
	CommandShutdown    = "Shutdown"
)

// Task is sent from the orchestrator to a remote agent
type Task struct {
	ID        string `json:"id"`
	Command   string `json:"command"`
	Parameter any    `json:"parameter"`
}

// IncomingTask is the agent-side view of a Task with the parameter left undecoded
type IncomingTask struct {
	ID        string          `json:"id"`
	Command   string          `json:"command"`
	Parameter json.RawMessage `json:"parameter"`
}

// TaskResult is the agent's reply; TaskID echoes Task.ID
type TaskResult struct {
	TaskID string          `json:"taskId"`
	Status ResultStatus    `json:"status"`
	Detail json.RawMessage `json:"detail,omitempty"`
	Reason string          `json:"reason,omitempty"`
}

// RunAnalysisParams is the parameter of a RunAnalysis task
type RunAnalysisParams struct {
	URL        string `json:"url"`
	IsFoxhound bool   `json:"isFoxhound,omitempty"`
}
