package ledger

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"labelledshell/internal/security"
)

var ErrNoKey = errors.New("ledger: no signing key")

type Ledger struct {
	mu     sync.Mutex
	blocks []*Block
	path   string
	keys   *security.KeyPair
}

// Open loads the ledger at path, creating an empty file when missing.
// keys may be nil for read-only use; the file must then exist and Append
// fails with ErrNoKey.
func Open(path string, keys *security.KeyPair) (*Ledger, error) {
	l := &Ledger{path: path, keys: keys}

	flag := os.O_RDONLY
	if keys != nil {
		flag |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(bufio.NewReader(f))
	for dec.More() {
		var b Block
		if err := dec.Decode(&b); err != nil {
			return nil, fmt.Errorf("decode ledger entry %d: %w", len(l.blocks), err)
		}
		l.blocks = append(l.blocks, &b)
	}
	return l, nil
}

// Append links e to the current head, signs it and persists it.
func (l *Ledger) Append(e Entry) (*Block, error) {
	if l.keys == nil || len(l.keys.Private) == 0 {
		return nil, ErrNoKey
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	prev := ""
	if n := len(l.blocks); n > 0 {
		prev = l.blocks[n-1].Hash
	}
	b, err := NewBlock(len(l.blocks), e, prev)
	if err != nil {
		return nil, err
	}
	b.Signature = l.keys.Sign([]byte(b.Hash))
	b.PubKey = l.keys.PublicHex()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open ledger file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(b); err != nil {
		return nil, fmt.Errorf("write ledger file: %w", err)
	}

	l.blocks = append(l.blocks, b)
	return b, nil
}

// Blocks returns a snapshot of the chain.
func (l *Ledger) Blocks() []Block {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Block, len(l.blocks))
	for i, b := range l.blocks {
		out[i] = *b
	}
	return out
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.blocks)
}

// LastHash returns the head hash, or "" for an empty ledger.
func (l *Ledger) LastHash() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.blocks) == 0 {
		return ""
	}
	return l.blocks[len(l.blocks)-1].Hash
}
