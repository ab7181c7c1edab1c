// Package virtual runs shell tasks inside the current process with the
// mvdan.cc/sh interpreter. External commands are still executed through
// the host, but the shell itself does not need to be installed.
package virtual

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"labelledshell/internal/durable"
)

// exitSyntaxError matches what POSIX shells return for unparsable input.
const exitSyntaxError = 2

type Engine struct {
	Timeout time.Duration
	Logger  *log.Logger
}

func New(timeout time.Duration, logger *log.Logger) *Engine {
	return &Engine{Timeout: timeout, Logger: logger}
}

// Launch interprets the task script in a goroutine with errexit set.
func (e *Engine) Launch(ctx context.Context, req *durable.Request) (durable.Execution, error) {
	if req.Task == nil || req.Task.Kind() != durable.TaskKindShell {
		return nil, durable.ErrUnsupportedTask
	}

	var out bytes.Buffer
	sink := io.Writer(&out)
	if req.Log != nil {
		sink = io.MultiWriter(req.Log, &out)
	}
	w := &lockedWriter{w: sink}

	env := req.Env
	if env == nil {
		env = durable.EnvVarsFromSlice(os.Environ())
	}
	opts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(env.Slice()...)),
		interp.StdIO(nil, w, w),
		interp.Params("-e"),
	}
	if req.WorkDir != "" {
		opts = append(opts, interp.Dir(req.WorkDir))
	}
	runner, err := interp.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create interpreter: %w", err)
	}

	h := durable.NewHandle()
	started := time.Now()
	runCtx := context.WithoutCancel(ctx)
	cancel := context.CancelFunc(func() {})
	if e.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, e.Timeout)
	}

	go func() {
		defer cancel()
		res := &durable.Result{Started: started}
		finish := func(err error) {
			res.Finished = time.Now()
			w.mu.Lock()
			res.Output = out.String()
			w.mu.Unlock()
			if e.Logger != nil {
				e.Logger.Debug("finished", "execution", h.ID(), "exit", res.ExitCode, "err", err)
			}
			h.Finish(res, err)
		}

		file, err := syntax.NewParser().Parse(strings.NewReader(req.Task.Script()), "")
		if err != nil {
			fmt.Fprintf(w, "%v\n", err)
			res.ExitCode = exitSyntaxError
			finish(nil)
			return
		}

		err = runner.Run(runCtx, file)
		if runCtx.Err() == context.DeadlineExceeded {
			finish(fmt.Errorf("task timed out after %s: %w", e.Timeout, runCtx.Err()))
			return
		}
		var status interp.ExitStatus
		switch {
		case err == nil:
		case errors.As(err, &status):
			res.ExitCode = int(status)
		default:
			finish(err)
			return
		}
		finish(nil)
	}()

	return h, nil
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
