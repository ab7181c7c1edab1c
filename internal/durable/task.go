// Package durable describes the contract between a build step and the engine
// that actually runs its work on an agent. Engines own process lifecycle,
// output capture and durability; this package only carries requests and
// handles between the two sides.
package durable

import (
	"context"
	"errors"
)

// TaskKindShell identifies a Bourne shell script task.
const TaskKindShell = "sh"

var (
	// ErrUnsupportedTask is returned by engines that cannot run a task kind.
	ErrUnsupportedTask = errors.New("unsupported task kind")
	// ErrNoEngine is returned when a step is dispatched without an engine.
	ErrNoEngine = errors.New("no execution engine")
)

// Task is a unit of work an engine knows how to launch.
type Task interface {
	Kind() string
	Script() string
}

// Step is anything the host can start against a StepContext.
type Step interface {
	Start(ctx context.Context, sc StepContext) (Execution, error)
}

// BourneShellScript runs its script with a POSIX sh.
type BourneShellScript struct {
	script string
}

// NewBourneShellScript wraps script verbatim.
func NewBourneShellScript(script string) *BourneShellScript {
	return &BourneShellScript{script: script}
}

func (b *BourneShellScript) Kind() string   { return TaskKindShell }
func (b *BourneShellScript) Script() string { return b.script }
