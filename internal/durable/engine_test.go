package durable

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func TestDispatchWithoutEngine(t *testing.T) {
	if _, err := Dispatch(context.Background(), nil, &Request{}); !errors.Is(err, ErrNoEngine) {
		t.Fatalf("expected ErrNoEngine, got %v", err)
	}
}

func TestDispatchPassesThrough(t *testing.T) {
	boom := errors.New("agent offline")
	var seen *Request
	engine := EngineFunc(func(_ context.Context, req *Request) (Execution, error) {
		seen = req
		return nil, boom
	})

	req := &Request{Task: NewBourneShellScript("echo hi")}
	if _, err := Dispatch(context.Background(), engine, req); err != boom {
		t.Fatalf("expected engine error unmodified, got %v", err)
	}
	if seen != req {
		t.Fatal("engine did not receive the request")
	}
}

func TestHandleFinishOnce(t *testing.T) {
	h := NewHandle()
	if h.ID() == "" {
		t.Fatal("expected an id")
	}
	if h.Finished() {
		t.Fatal("new handle should be pending")
	}

	h.Finish(&Result{ExitCode: 3}, nil)
	h.Finish(&Result{ExitCode: 0}, nil)

	res, err := h.Wait(context.Background())
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", res.ExitCode)
	}
	if res.Success() {
		t.Error("non-zero exit should not be success")
	}
}

func TestHandleWaitHonoursContext(t *testing.T) {
	h := NewHandleWithID("x")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := h.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestBasicContextMissingValues(t *testing.T) {
	sc := NewStepContext(nil, nil, nil, "")

	if _, err := sc.Env(); !errors.Is(err, ErrMissingContext) {
		t.Errorf("Env: expected ErrMissingContext, got %v", err)
	}
	if _, err := sc.Listener(); !errors.Is(err, ErrMissingContext) {
		t.Errorf("Listener: expected ErrMissingContext, got %v", err)
	}
	if _, err := sc.Engine(); !errors.Is(err, ErrMissingContext) {
		t.Errorf("Engine: expected ErrMissingContext, got %v", err)
	}

	var buf bytes.Buffer
	sc = NewStepContext(EnvVars{}, &buf, EngineFunc(nil), "/ws")
	if _, err := sc.Env(); err != nil {
		t.Errorf("Env: %v", err)
	}
	if sc.WorkDir() != "/ws" {
		t.Errorf("WorkDir = %q", sc.WorkDir())
	}
}
