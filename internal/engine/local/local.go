// Package local runs shell tasks as child processes of the current host.
package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"labelledshell/internal/durable"
)

// Engine runs each task with `<shell> -xe -c <script>`, the way a Bourne
// shell build step traces and fails fast.
type Engine struct {
	Shell string
	// Flags are passed before -c.
	Flags []string
	// Timeout bounds each task; zero means none.
	Timeout time.Duration
	Logger  *log.Logger
}

// New returns an engine using sh with the given timeout.
func New(timeout time.Duration, logger *log.Logger) *Engine {
	return &Engine{Shell: "sh", Flags: []string{"-xe"}, Timeout: timeout, Logger: logger}
}

// Launch starts the task and returns at once. The process outlives ctx; use
// the timeout to bound it.
func (e *Engine) Launch(ctx context.Context, req *durable.Request) (durable.Execution, error) {
	if req.Task == nil || req.Task.Kind() != durable.TaskKindShell {
		return nil, durable.ErrUnsupportedTask
	}

	runCtx := context.WithoutCancel(ctx)
	cancel := context.CancelFunc(func() {})
	if e.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, e.Timeout)
	}

	args := append(append([]string{}, e.Flags...), "-c", req.Task.Script())
	cmd := exec.CommandContext(runCtx, e.shell(), args...)
	cmd.Dir = req.WorkDir
	// Children that keep the output pipe open must not hold Wait forever.
	cmd.WaitDelay = time.Second
	if req.Env != nil {
		cmd.Env = req.Env.Slice()
	}

	var out bytes.Buffer
	sink := io.Writer(&out)
	if req.Log != nil {
		sink = io.MultiWriter(req.Log, &out)
	}
	// One writer value for both streams so exec copies them in order.
	w := &lockedWriter{w: sink}
	cmd.Stdout = w
	cmd.Stderr = w

	started := time.Now()
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start %s: %w", e.shell(), err)
	}

	h := durable.NewHandle()
	if e.Logger != nil {
		e.Logger.Debug("launched", "execution", h.ID(), "pid", cmd.Process.Pid, "label", req.Label)
	}

	go func() {
		defer cancel()
		err := cmd.Wait()
		res := &durable.Result{ExitCode: 0, Started: started, Finished: time.Now()}
		w.mu.Lock()
		res.Output = out.String()
		w.mu.Unlock()

		if runCtx.Err() == context.DeadlineExceeded {
			h.Finish(res, fmt.Errorf("task timed out after %s: %w", e.Timeout, runCtx.Err()))
			return
		}
		var exitErr *exec.ExitError
		switch {
		case err == nil:
		case errors.As(err, &exitErr):
			res.ExitCode = exitErr.ExitCode()
		default:
			h.Finish(res, err)
			return
		}
		if e.Logger != nil {
			e.Logger.Debug("finished", "execution", h.ID(), "exit", res.ExitCode, "took", res.Duration())
		}
		h.Finish(res, nil)
	}()

	return h, nil
}

func (e *Engine) shell() string {
	if e.Shell == "" {
		return "sh"
	}
	return e.Shell
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
