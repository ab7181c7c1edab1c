package durable

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Engine launches tasks. Launch must not wait for the task to finish.
type Engine interface {
	Launch(ctx context.Context, req *Request) (Execution, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, req *Request) (Execution, error)

func (f EngineFunc) Launch(ctx context.Context, req *Request) (Execution, error) {
	return f(ctx, req)
}

// Request is everything an engine needs to launch one task.
type Request struct {
	Task    Task
	Env     EnvVars
	Log     io.Writer
	WorkDir string
	// Label is display metadata only; engines must not interpret it.
	Label string
}

// Execution is the handle an engine returns for a launched task.
type Execution interface {
	ID() string
	// Wait blocks until the task finishes or ctx is done.
	Wait(ctx context.Context) (*Result, error)
}

// Result is the outcome of a finished task.
type Result struct {
	ExitCode int       `json:"exitCode"`
	Output   string    `json:"output"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
}

// Success reports whether the task exited zero.
func (r *Result) Success() bool {
	return r != nil && r.ExitCode == 0
}

// Duration is the wall time of the task.
func (r *Result) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Dispatch hands req to engine and returns whatever it returns.
func Dispatch(ctx context.Context, engine Engine, req *Request) (Execution, error) {
	if engine == nil {
		return nil, ErrNoEngine
	}
	return engine.Launch(ctx, req)
}

// Handle is an Execution completed by a single call to Finish.
// Engines running tasks in-process use it as their handle.
type Handle struct {
	id   string
	done chan struct{}
	once sync.Once
	res  *Result
	err  error
}

// NewHandle returns a pending handle with a fresh id.
func NewHandle() *Handle {
	return NewHandleWithID(uuid.NewString())
}

// NewHandleWithID returns a pending handle with the given id.
func NewHandleWithID(id string) *Handle {
	return &Handle{id: id, done: make(chan struct{})}
}

func (h *Handle) ID() string { return h.id }

// Done is closed once the handle finishes.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Finish records the outcome. Only the first call has an effect.
func (h *Handle) Finish(res *Result, err error) {
	h.once.Do(func() {
		h.res, h.err = res, err
		close(h.done)
	})
}

// Finished reports whether Finish has been called.
func (h *Handle) Finished() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *Handle) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-h.done:
		return h.res, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
