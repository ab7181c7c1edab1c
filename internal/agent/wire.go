package agent

import "labelledshell/internal/durable"

// Execution states reported by the agent.
const (
	StatusRunning  = "running"
	StatusFinished = "finished"
	StatusFailed   = "failed"
)

// JobRequest asks the agent to launch one task. Env holds overrides that the
// agent applies on top of its own environment.
type JobRequest struct {
	Kind    string            `json:"kind"`
	Script  string            `json:"script"`
	Env     map[string]string `json:"env,omitempty"`
	WorkDir string            `json:"workdir,omitempty"`
	Label   string            `json:"label,omitempty"`
}

// JobStatus describes a launched task.
type JobStatus struct {
	ID      string          `json:"id"`
	AgentID string          `json:"agentId"`
	Label   string          `json:"label,omitempty"`
	Status  string          `json:"status"`
	Result  *durable.Result `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}
