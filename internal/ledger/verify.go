package ledger

import (
	"errors"
	"fmt"

	"labelledshell/internal/security"
)

var ErrTampered = errors.New("ledger tampered")

// VerifyChain recomputes every hash, link and signature.
func (l *Ledger) VerifyChain() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return verify(l.blocks)
}

func verify(blocks []*Block) error {
	for i, b := range blocks {
		if b.Index != i {
			return fmt.Errorf("%w: index mismatch: expected %d got %d", ErrTampered, i, b.Index)
		}
		h, err := b.ComputeHash()
		if err != nil {
			return fmt.Errorf("compute hash for index %d: %w", i, err)
		}
		if h != b.Hash {
			return fmt.Errorf("%w: hash mismatch at index %d", ErrTampered, i)
		}
		if i > 0 && b.PrevHash != blocks[i-1].Hash {
			return fmt.Errorf("%w: prev hash mismatch at index %d", ErrTampered, i)
		}
		ok, err := security.VerifyHex(b.PubKey, []byte(b.Hash), b.Signature)
		if err != nil {
			return fmt.Errorf("%w: signature at index %d: %v", ErrTampered, i, err)
		}
		if !ok {
			return fmt.Errorf("%w: bad signature at index %d", ErrTampered, i)
		}
	}
	return nil
}
