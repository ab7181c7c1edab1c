package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"labelledshell/internal/durable"
	"labelledshell/internal/ledger"
	"labelledshell/internal/registry"
	"labelledshell/internal/storage"
	"labelledshell/pkg/utils"
)

// StepFailedError is returned when a step finishes with a non-zero exit code.
type StepFailedError struct {
	Index    int
	Summary  string
	ExitCode int
}

func (e *StepFailedError) Error() string {
	return fmt.Sprintf("step %d (%s) failed with exit code %d", e.Index+1, e.Summary, e.ExitCode)
}

// Runner plays the host: it builds steps from the registry, gives each one a
// StepContext and waits for it. LogStorage and Ledger are optional.
type Runner struct {
	Registry   *registry.Registry
	Engine     durable.Engine
	LogStorage *storage.LogStorage
	Ledger     *ledger.Ledger
	AgentID    string
	// BaseEnv is the agent environment; nil means the current process env.
	BaseEnv durable.EnvVars
	WorkDir string
	// ForwardOverrides hands steps only the pipeline overrides. The machine
	// that runs the script merges them onto its own environment.
	ForwardOverrides bool
	// Out receives every step's build log.
	Out    io.Writer
	Logger *log.Logger
}

// Run executes the steps in order and stops at the first failure.
func (r *Runner) Run(ctx context.Context, p *Pipeline) error {
	env := r.stepEnv(p)

	r.logger().Info("starting pipeline", "agent", p.Agent, "steps", len(p.Steps))
	for i, spec := range p.Steps {
		res, summary, err := r.RunStep(ctx, i, spec, env)
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, summary, err)
		}
		if !res.Success() {
			exit := -1
			if res != nil {
				exit = res.ExitCode
			}
			return &StepFailedError{Index: i, Summary: summary, ExitCode: exit}
		}
		fmt.Fprintf(r.out(), "  ✔ %s (%s)\n", summary, res.Duration().Round(time.Millisecond))
	}

	if r.Ledger != nil {
		if err := r.Ledger.VerifyChain(); err != nil {
			r.logger().Error("ledger verification failed", "err", err)
			return err
		}
	}
	r.logger().Info("pipeline finished")
	return nil
}

func (r *Runner) stepEnv(p *Pipeline) durable.EnvVars {
	if r.ForwardOverrides {
		env := make(durable.EnvVars, len(p.Env))
		for k, v := range p.Env {
			env[k] = v
		}
		return env
	}
	env := r.BaseEnv
	if env == nil {
		env = durable.EnvVarsFromSlice(os.Environ())
	}
	env = env.Clone()
	env.OverrideAll(p.Env)
	return env
}

// RunStep starts the step at position i and waits for it. It returns the
// summary shown for the step alongside the engine result.
func (r *Runner) RunStep(ctx context.Context, i int, spec StepSpec, env durable.EnvVars) (*durable.Result, string, error) {
	desc, ok := r.Registry.Lookup(spec.Function)
	if !ok {
		return nil, spec.Function, fmt.Errorf("%w: %s", registry.ErrUnknown, spec.Function)
	}
	summary, ok := desc.ArgumentsToString(spec.Args)
	if !ok {
		summary = desc.DisplayName()
	}

	st, err := desc.New(spec.Args)
	if err != nil {
		return nil, summary, err
	}

	fmt.Fprintf(r.out(), "\n==> [%d] %s\n", i+1, summary)
	var buf bytes.Buffer
	listener := io.MultiWriter(r.out(), &buf)

	exec, err := st.Start(ctx, durable.NewStepContext(env, listener, r.Engine, r.WorkDir))
	if err != nil {
		return nil, summary, err
	}
	r.logger().Debug("step dispatched", "step", spec.Function, "execution", exec.ID())

	res, err := exec.Wait(ctx)
	r.record(i, spec, summary, res, buf.String())
	return res, summary, err
}

// record saves the build log and journals the execution. Failures are logged
// and never fail the step.
func (r *Runner) record(i int, spec StepSpec, summary string, res *durable.Result, output string) {
	exit := -1
	if res != nil {
		exit = res.ExitCode
	}

	logPath := ""
	if r.LogStorage != nil {
		p, err := r.LogStorage.SaveLog(i, summary, output)
		if err != nil {
			r.logger().Warn("cannot save build log", "err", err)
		} else {
			logPath = p
		}
	}

	if r.Ledger == nil {
		return
	}
	script, _ := spec.Args["script"].(string)
	blk, err := r.Ledger.Append(ledger.Entry{
		Function:   spec.Function,
		Summary:    summary,
		ScriptHash: utils.HashString(script),
		ExitCode:   exit,
		LogPath:    logPath,
		LogHash:    utils.HashString(output),
		AgentID:    r.AgentID,
	})
	if err != nil {
		r.logger().Warn("cannot append ledger block", "err", err)
		return
	}
	r.logger().Debug("ledger block appended", "index", blk.Index, "hash", blk.Hash[:16])
}

func (r *Runner) out() io.Writer {
	if r.Out == nil {
		return io.Discard
	}
	return r.Out
}

func (r *Runner) logger() *log.Logger {
	if r.Logger == nil {
		return log.Default()
	}
	return r.Logger
}
