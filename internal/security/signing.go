// Package security signs ledger entries with the runner's ed25519 key.
package security

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	PublicKeyFile  = "runner.pub"
	PrivateKeyFile = "runner.priv"
)

var ErrInvalidKey = errors.New("invalid key")

// KeyPair is the identity used to sign ledger blocks.
type KeyPair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &KeyPair{Public: pub, Private: priv}, nil
}

// Save writes both keys hex encoded into dir.
func (k *KeyPair) Save(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, PublicKeyFile), []byte(hex.EncodeToString(k.Public)), 0600); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, PrivateKeyFile), []byte(hex.EncodeToString(k.Private)), 0600)
}

// LoadKeyPair reads a key pair saved by Save.
func LoadKeyPair(dir string) (*KeyPair, error) {
	pub, err := loadHex(filepath.Join(dir, PublicKeyFile), ed25519.PublicKeySize)
	if err != nil {
		return nil, err
	}
	priv, err := loadHex(filepath.Join(dir, PrivateKeyFile), ed25519.PrivateKeySize)
	if err != nil {
		return nil, err
	}
	return &KeyPair{Public: pub, Private: priv}, nil
}

// EnsureKeyPair loads the key pair in dir, generating one on first use.
// created reports whether new keys were written.
func EnsureKeyPair(dir string) (kp *KeyPair, created bool, err error) {
	if _, err := os.Stat(filepath.Join(dir, PublicKeyFile)); errors.Is(err, os.ErrNotExist) {
		kp, err := GenerateKeyPair()
		if err != nil {
			return nil, false, err
		}
		if err := kp.Save(dir); err != nil {
			return nil, false, err
		}
		return kp, true, nil
	}
	kp, err = LoadKeyPair(dir)
	return kp, false, err
}

func loadHex(path string, size int) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidKey, path, err)
	}
	if len(b) != size {
		return nil, fmt.Errorf("%w: %s: want %d bytes, got %d", ErrInvalidKey, path, size, len(b))
	}
	return b, nil
}

// Sign returns the hex signature of data.
func (k *KeyPair) Sign(data []byte) string {
	return hex.EncodeToString(ed25519.Sign(k.Private, data))
}

// PublicHex is the hex form stored alongside signatures.
func (k *KeyPair) PublicHex() string {
	return hex.EncodeToString(k.Public)
}

// VerifyHex checks a hex signature against a hex public key.
func VerifyHex(pubHex string, data []byte, sigHex string) (bool, error) {
	pub, err := hex.DecodeString(pubHex)
	if err != nil {
		return false, fmt.Errorf("%w: public key: %v", ErrInvalidKey, err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return false, fmt.Errorf("%w: public key size %d", ErrInvalidKey, len(pub))
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false, err
	}
	return ed25519.Verify(ed25519.PublicKey(pub), data, sig), nil
}
