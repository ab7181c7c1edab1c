// Package ledger keeps a tamper-evident journal of executed steps: an
// append-only JSON lines file where each block links to the hash of the one
// before it and carries the runner's signature.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Block records one step execution.
type Block struct {
	Index      int    `json:"index"`
	Timestamp  string `json:"timestamp"`
	Function   string `json:"function"`
	Summary    string `json:"summary"`
	ScriptHash string `json:"scriptHash"`
	ExitCode   int    `json:"exitCode"`
	LogPath    string `json:"logPath"`
	LogHash    string `json:"logHash"`
	AgentID    string `json:"agentId"`
	PrevHash   string `json:"prevHash"`
	Hash       string `json:"hash"`
	Signature  string `json:"signature"`
	PubKey     string `json:"pubKey"`
}

// Entry is the caller-supplied part of a block.
type Entry struct {
	Function   string
	Summary    string
	ScriptHash string
	ExitCode   int
	LogPath    string
	LogHash    string
	AgentID    string
}

// canonicalData excludes Hash, Signature and PubKey.
func (b *Block) canonicalData() ([]byte, error) {
	view := struct {
		Index      int    `json:"index"`
		Timestamp  string `json:"timestamp"`
		Function   string `json:"function"`
		Summary    string `json:"summary"`
		ScriptHash string `json:"scriptHash"`
		ExitCode   int    `json:"exitCode"`
		LogPath    string `json:"logPath"`
		LogHash    string `json:"logHash"`
		AgentID    string `json:"agentId"`
		PrevHash   string `json:"prevHash"`
	}{
		Index:      b.Index,
		Timestamp:  b.Timestamp,
		Function:   b.Function,
		Summary:    b.Summary,
		ScriptHash: b.ScriptHash,
		ExitCode:   b.ExitCode,
		LogPath:    b.LogPath,
		LogHash:    b.LogHash,
		AgentID:    b.AgentID,
		PrevHash:   b.PrevHash,
	}
	return json.Marshal(view)
}

// ComputeHash is the sha256 of the canonical fields.
func (b *Block) ComputeHash() (string, error) {
	data, err := b.canonicalData()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// NewBlock builds an unsigned block for e at index, linked to prevHash.
func NewBlock(index int, e Entry, prevHash string) (*Block, error) {
	b := &Block{
		Index:      index,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Function:   e.Function,
		Summary:    e.Summary,
		ScriptHash: e.ScriptHash,
		ExitCode:   e.ExitCode,
		LogPath:    e.LogPath,
		LogHash:    e.LogHash,
		AgentID:    e.AgentID,
		PrevHash:   prevHash,
	}
	h, err := b.ComputeHash()
	if err != nil {
		return nil, fmt.Errorf("compute block hash: %w", err)
	}
	b.Hash = h
	return b, nil
}
