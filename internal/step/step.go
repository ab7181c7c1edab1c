// Package step implements labelledShell: a Bourne shell build step with an
// optional label used only for display.
package step

import (
	"context"
	"errors"

	"labelledshell/internal/durable"
	"labelledshell/internal/preflight"
)

// ErrInvalidArgument is returned when a step is built without a script.
var ErrInvalidArgument = errors.New("invalid argument")

// ShellStep runs a shell script on an agent.
type ShellStep struct {
	script string
	label  *string
}

// NewShellStep builds a step for script. A nil script is rejected; any other
// value, including "", is kept verbatim.
func NewShellStep(script *string) (*ShellStep, error) {
	if script == nil {
		return nil, ErrInvalidArgument
	}
	return &ShellStep{script: *script}, nil
}

func (s *ShellStep) Script() string {
	return s.script
}

// Label returns the display label; ok is false until SetLabel is called.
func (s *ShellStep) Label() (label string, ok bool) {
	if s.label == nil {
		return "", false
	}
	return *s.label, true
}

func (s *ShellStep) SetLabel(label string) {
	s.label = &label
}

// Task is the durable task the engine launches for this step.
func (s *ShellStep) Task() durable.Task {
	return durable.NewBourneShellScript(s.script)
}

// Start checks the agent PATH and hands the task to the context's engine.
// Errors from the context or the engine are returned as is.
func (s *ShellStep) Start(ctx context.Context, sc durable.StepContext) (durable.Execution, error) {
	env, err := sc.Env()
	if err != nil {
		return nil, err
	}
	listener, err := sc.Listener()
	if err != nil {
		return nil, err
	}
	preflight.CheckPath(env, listener)

	engine, err := sc.Engine()
	if err != nil {
		return nil, err
	}
	label, _ := s.Label()
	return durable.Dispatch(ctx, engine, &durable.Request{
		Task:    s.Task(),
		Env:     env,
		Log:     listener,
		WorkDir: sc.WorkDir(),
		Label:   label,
	})
}
