package security

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSignAndVerify(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	sig := kp.Sign([]byte("block-hash"))

	ok, err := VerifyHex(kp.PublicHex(), []byte("block-hash"), sig)
	if err != nil || !ok {
		t.Fatalf("valid signature rejected: %v %v", ok, err)
	}
	if ok, _ := VerifyHex(kp.PublicHex(), []byte("other"), sig); ok {
		t.Error("signature verified for different data")
	}
	if _, err := VerifyHex("abcd", []byte("x"), sig); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("short key: got %v", err)
	}
}

func TestEnsureKeyPair(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keys")

	first, created, err := EnsureKeyPair(dir)
	if err != nil || !created {
		t.Fatalf("first call: created=%v err=%v", created, err)
	}
	second, created, err := EnsureKeyPair(dir)
	if err != nil || created {
		t.Fatalf("second call: created=%v err=%v", created, err)
	}
	if first.PublicHex() != second.PublicHex() {
		t.Error("reloaded key differs from generated key")
	}
}

func TestLoadKeyPairRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, PublicKeyFile), []byte("zz"), 0600)
	_ = os.WriteFile(filepath.Join(dir, PrivateKeyFile), []byte("00"), 0600)

	if _, err := LoadKeyPair(dir); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}
