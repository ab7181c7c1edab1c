package virtual

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"labelledshell/internal/durable"
)

func run(t *testing.T, e *Engine, req *durable.Request) *durable.Result {
	t.Helper()
	exec, err := e.Launch(context.Background(), req)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := exec.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	return res
}

func TestBuiltins(t *testing.T) {
	var log bytes.Buffer
	res := run(t, New(0, nil), &durable.Request{
		Task: durable.NewBourneShellScript(`name=world; echo "hi $name"`),
		Env:  durable.EnvVars{},
		Log:  &log,
	})
	if !res.Success() {
		t.Fatalf("exit %d: %q", res.ExitCode, res.Output)
	}
	if res.Output != "hi world\n" {
		t.Errorf("output = %q", res.Output)
	}
	if log.String() != res.Output {
		t.Errorf("log = %q", log.String())
	}
}

func TestEnvIsVisible(t *testing.T) {
	res := run(t, New(0, nil), &durable.Request{
		Task: durable.NewBourneShellScript(`echo "$STAGE"`),
		Env:  durable.EnvVars{"STAGE": "build"},
	})
	if strings.TrimSpace(res.Output) != "build" {
		t.Errorf("output = %q", res.Output)
	}
}

func TestErrexit(t *testing.T) {
	res := run(t, New(0, nil), &durable.Request{
		Task: durable.NewBourneShellScript("echo one\nexit 4\necho two"),
		Env:  durable.EnvVars{},
	})
	if res.ExitCode != 4 {
		t.Errorf("exit = %d, want 4", res.ExitCode)
	}
	if strings.Contains(res.Output, "two") {
		t.Errorf("kept running: %q", res.Output)
	}
}

func TestSyntaxError(t *testing.T) {
	res := run(t, New(0, nil), &durable.Request{
		Task: durable.NewBourneShellScript("if then fi ("),
		Env:  durable.EnvVars{},
	})
	if res.ExitCode != exitSyntaxError {
		t.Errorf("exit = %d, want %d", res.ExitCode, exitSyntaxError)
	}
	if res.Output == "" {
		t.Error("expected the parse error in the output")
	}
}

func TestRejectsOtherTasks(t *testing.T) {
	if _, err := New(0, nil).Launch(context.Background(), &durable.Request{}); !errors.Is(err, durable.ErrUnsupportedTask) {
		t.Fatalf("expected ErrUnsupportedTask, got %v", err)
	}
}
