package ledger

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"labelledshell/internal/security"
	"labelledshell/pkg/utils"
)

func newKeys(t *testing.T) *security.KeyPair {
	t.Helper()
	kp, err := security.GenerateKeyPair()
	if err != nil {
		t.Fatalf("failed to generate keypair: %v", err)
	}
	return kp
}

func entry(summary string) Entry {
	return Entry{
		Function:   "labelledShell",
		Summary:    summary,
		ScriptHash: utils.HashString("echo " + summary),
		LogHash:    utils.HashString("output of " + summary),
		AgentID:    "agent-1",
	}
}

func TestAppendAndVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	l, err := Open(path, newKeys(t))
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}

	b1, err := l.Append(entry("Build"))
	if err != nil {
		t.Fatalf("failed to append block1: %v", err)
	}
	b2, err := l.Append(entry("Test"))
	if err != nil {
		t.Fatalf("failed to append block2: %v", err)
	}

	if b1.Index != 0 || b2.Index != 1 || b2.PrevHash != b1.Hash {
		t.Errorf("blocks not linked: %+v %+v", b1, b2)
	}
	if l.LastHash() != b2.Hash || l.Len() != 2 {
		t.Errorf("head = %s len = %d", l.LastHash(), l.Len())
	}
	if err := l.VerifyChain(); err != nil {
		t.Errorf("chain verification failed: %v", err)
	}
}

func TestPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	l, _ := Open(path, newKeys(t))
	_, _ = l.Append(entry("Build"))
	_, _ = l.Append(entry("Deploy"))

	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatalf("failed to reopen ledger: %v", err)
	}
	if reopened.Len() != 2 {
		t.Fatalf("reloaded %d blocks", reopened.Len())
	}
	if err := reopened.VerifyChain(); err != nil {
		t.Errorf("reloaded ledger verification failed: %v", err)
	}
	if _, err := reopened.Append(entry("x")); !errors.Is(err, ErrNoKey) {
		t.Errorf("append without key: got %v", err)
	}
}

func TestTamperingDetection(t *testing.T) {
	tests := []struct {
		name   string
		tamper func(b *Block)
	}{
		{"log hash", func(b *Block) { b.LogHash = "fake-hash" }},
		{"exit code", func(b *Block) { b.ExitCode = 0 }},
		{"signature", func(b *Block) { b.Signature = strings.Repeat("0", 128) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ledger.jsonl")
			l, _ := Open(path, newKeys(t))
			e := entry("Deploy")
			e.ExitCode = 1
			if _, err := l.Append(e); err != nil {
				t.Fatal(err)
			}

			blocks := l.Blocks()
			tt.tamper(&blocks[0])
			rewrite(t, path, blocks)

			reopened, err := Open(path, nil)
			if err != nil {
				t.Fatal(err)
			}
			if err := reopened.VerifyChain(); !errors.Is(err, ErrTampered) {
				t.Errorf("expected tampering detection, got %v", err)
			}
		})
	}
}

func TestBlocksIsSnapshot(t *testing.T) {
	l, _ := Open(filepath.Join(t.TempDir(), "ledger.jsonl"), newKeys(t))
	_, _ = l.Append(entry("Build"))

	l.Blocks()[0].LogHash = "changed"
	if err := l.VerifyChain(); err != nil {
		t.Errorf("mutating a snapshot changed the ledger: %v", err)
	}
}

func TestOpenReadOnlyMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.jsonl")
	if _, err := Open(path, nil); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected a not-exist error, got %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Error("read-only open created the ledger file")
	}
}

func TestOpenCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	_ = os.WriteFile(path, []byte("{not json"), 0644)
	if _, err := Open(path, nil); err == nil {
		t.Fatal("expected a decode error")
	}
}

func rewrite(t *testing.T, path string, blocks []Block) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	for i := range blocks {
		if err := enc.Encode(&blocks[i]); err != nil {
			t.Fatal(err)
		}
	}
}
