package durable

import (
	"errors"
	"fmt"
	"io"
)

// ErrMissingContext is returned when a step asks its context for a
// collaborator the host did not provide.
var ErrMissingContext = errors.New("step context value unavailable")

// StepContext hands a running step the collaborators of its host.
type StepContext interface {
	// Env is the environment of the agent the step runs on.
	Env() (EnvVars, error)
	// Listener is the build log of the step.
	Listener() (io.Writer, error)
	// Engine launches the step's task.
	Engine() (Engine, error)
	// WorkDir is the workspace directory on the agent, "" for the engine default.
	WorkDir() string
}

// BasicContext is a StepContext backed by plain values.
type BasicContext struct {
	Vars EnvVars
	Log  io.Writer
	Exec Engine
	Dir  string
}

// NewStepContext builds a StepContext from its collaborators. Any of them may
// be nil; the matching accessor then fails with ErrMissingContext.
func NewStepContext(env EnvVars, log io.Writer, engine Engine, workDir string) *BasicContext {
	return &BasicContext{Vars: env, Log: log, Exec: engine, Dir: workDir}
}

func (c *BasicContext) Env() (EnvVars, error) {
	if c.Vars == nil {
		return nil, fmt.Errorf("%w: environment", ErrMissingContext)
	}
	return c.Vars, nil
}

func (c *BasicContext) Listener() (io.Writer, error) {
	if c.Log == nil {
		return nil, fmt.Errorf("%w: listener", ErrMissingContext)
	}
	return c.Log, nil
}

func (c *BasicContext) Engine() (Engine, error) {
	if c.Exec == nil {
		return nil, fmt.Errorf("%w: engine", ErrMissingContext)
	}
	return c.Exec, nil
}

func (c *BasicContext) WorkDir() string { return c.Dir }
