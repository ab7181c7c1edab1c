package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"labelledshell/internal/step"
)

func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "labelledshell.yaml")
	content := "engine: virtual\n" +
		"log:\n  level: error\n  dir: " + filepath.Join(dir, "logs") + "\n" +
		"keys:\n  dir: " + filepath.Join(dir, "keys") + "\n" +
		"ledger:\n  path: " + filepath.Join(dir, "ledger.jsonl") + "\n" + extra
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestStepsCommand(t *testing.T) {
	out, err := execute(t, "steps")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "labelledShell") || !strings.Contains(out, "Shell Script") {
		t.Errorf("output = %q", out)
	}
}

func TestStepCommandWarnsOnBogusPath(t *testing.T) {
	cfg := writeConfig(t, "")
	t.Setenv("PATH", "$PATH:/extra")

	out, err := execute(t, "--config", cfg, "step", "--script", "echo hi")
	if err != nil {
		t.Fatalf("step: %v\n%s", err, out)
	}
	if strings.Count(out, "Warning: JENKINS-41339") != 1 {
		t.Errorf("expected one warning:\n%s", out)
	}
	if !strings.Contains(out, "hi\n") {
		t.Errorf("missing script output:\n%s", out)
	}
}

func TestStepCommandRequiresScript(t *testing.T) {
	cfg := writeConfig(t, "")
	_, err := execute(t, "--config", cfg, "step", "--label", "nothing")
	if !errors.Is(err, step.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestRunThenVerifyLedger(t *testing.T) {
	cfg := writeConfig(t, "")
	pipeline := filepath.Join(t.TempDir(), "pipeline.yaml")
	src := "steps:\n  - run: echo one\n    label: One\n  - labelledShell:\n      script: echo two\n"
	if err := os.WriteFile(pipeline, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "--config", cfg, "run", pipeline)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	if !strings.Contains(out, "==> [1] One") || !strings.Contains(out, "==> [2] Shell Script") {
		t.Errorf("unexpected output:\n%s", out)
	}

	out, err = execute(t, "--config", cfg, "ledger", "verify")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !strings.Contains(out, "ledger ok (2 blocks)") {
		t.Errorf("verify output = %q", out)
	}

	out, err = execute(t, "--config", cfg, "ledger", "inspect")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(out, "labelledShell") != 2 {
		t.Errorf("inspect output = %q", out)
	}
}

func TestVerifyMissingLedger(t *testing.T) {
	cfg := writeConfig(t, "")
	if _, err := execute(t, "--config", cfg, "ledger", "verify"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected a not-exist error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(cfg), "ledger.jsonl")); !errors.Is(err, os.ErrNotExist) {
		t.Error("verify created the ledger file")
	}
}

func TestRunFailingStep(t *testing.T) {
	cfg := writeConfig(t, "")
	pipeline := filepath.Join(t.TempDir(), "pipeline.yaml")
	_ = os.WriteFile(pipeline, []byte("steps:\n  - run: exit 5\n"), 0644)

	if _, err := execute(t, "--config", cfg, "run", "--no-ledger", pipeline); err == nil || !strings.Contains(err.Error(), "exit code 5") {
		t.Fatalf("expected exit code 5 failure, got %v", err)
	}
}
