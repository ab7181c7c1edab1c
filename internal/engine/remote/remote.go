// Package remote launches tasks on an agent over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"labelledshell/internal/agent"
	"labelledshell/internal/durable"
)

// ErrAgent wraps failures reported by the agent itself.
var ErrAgent = errors.New("agent error")

type Engine struct {
	BaseURL      string
	Client       *http.Client
	PollInterval time.Duration
	Logger       *log.Logger
}

func New(baseURL string, poll time.Duration, logger *log.Logger) *Engine {
	return &Engine{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		Client:       &http.Client{Timeout: 30 * time.Second},
		PollInterval: poll,
		Logger:       logger,
	}
}

// Launch posts the task to the agent and returns once it has been accepted.
func (e *Engine) Launch(ctx context.Context, req *durable.Request) (durable.Execution, error) {
	if req.Task == nil || req.Task.Kind() != durable.TaskKindShell {
		return nil, durable.ErrUnsupportedTask
	}

	body, err := json.Marshal(agent.JobRequest{
		Kind:    req.Task.Kind(),
		Script:  req.Task.Script(),
		Env:     req.Env,
		WorkDir: req.WorkDir,
		Label:   req.Label,
	})
	if err != nil {
		return nil, err
	}

	var status agent.JobStatus
	if err := e.do(ctx, http.MethodPost, "/v1/executions", body, http.StatusAccepted, &status); err != nil {
		return nil, err
	}
	if e.Logger != nil {
		e.Logger.Debug("launched on agent", "agent", status.AgentID, "execution", status.ID)
	}
	return &execution{engine: e, id: status.ID, log: req.Log}, nil
}

func (e *Engine) do(ctx context.Context, method, path string, body []byte, want int, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, e.BaseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %s %s: %s: %s", ErrAgent, method, path, resp.Status, strings.TrimSpace(string(msg)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type execution struct {
	engine *Engine
	id     string
	log    io.Writer
}

func (x *execution) ID() string { return x.id }

// Wait polls the agent until the task is done, then copies its output to the
// step log.
func (x *execution) Wait(ctx context.Context) (*durable.Result, error) {
	poll := x.engine.PollInterval
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		var status agent.JobStatus
		if err := x.engine.do(ctx, http.MethodGet, "/v1/executions/"+x.id, nil, http.StatusOK, &status); err != nil {
			return nil, err
		}
		switch status.Status {
		case agent.StatusFinished:
			x.copyOutput(status.Result)
			return status.Result, nil
		case agent.StatusFailed:
			x.copyOutput(status.Result)
			return status.Result, fmt.Errorf("%w: %s", ErrAgent, status.Error)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (x *execution) copyOutput(res *durable.Result) {
	if x.log != nil && res != nil && res.Output != "" {
		_, _ = io.WriteString(x.log, res.Output)
	}
}
