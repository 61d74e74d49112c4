package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/user/clawrelay/internal/types"
)

// FingerprintStore records delivered transcript-turn content hashes, one JSON
// array per session at sessions/<key>/delivered.json. A fingerprint is added
// only after a successful post; its presence means the turn must not be
// posted again.
type FingerprintStore struct {
	root string
	mu   sync.Mutex
}

// NewFingerprintStore creates a file-backed FingerprintStore rooted at the
// given directory.
func NewFingerprintStore(root string) *FingerprintStore {
	return &FingerprintStore{root: root}
}

func (s *FingerprintStore) path(id types.SessionID) string {
	return filepath.Join(s.root, "sessions", id.StorageKey(), "delivered.json")
}

// Has reports whether the fingerprint is already recorded for the session.
func (s *FingerprintStore) Has(_ context.Context, id types.SessionID, fingerprint string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.load(id)
	if err != nil {
		return false, err
	}
	for _, fp := range set {
		if fp == fingerprint {
			return true, nil
		}
	}
	return false, nil
}

// Add records the fingerprint for the session. Adding an already-recorded
// fingerprint is a no-op.
func (s *FingerprintStore) Add(_ context.Context, id types.SessionID, fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.load(id)
	if err != nil {
		return err
	}
	for _, fp := range set {
		if fp == fingerprint {
			return nil
		}
	}
	set = append(set, fingerprint)

	dir := filepath.Dir(s.path(id))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fingerprints: %w", err)
	}

	// Atomic write: write to temp file then rename
	tmp := s.path(id) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp fingerprints: %w", err)
	}
	if err := os.Rename(tmp, s.path(id)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp fingerprints: %w", err)
	}
	return nil
}

func (s *FingerprintStore) load(id types.SessionID) ([]string, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read fingerprints: %w", err)
	}
	var set []string
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("unmarshal fingerprints: %w", err)
	}
	return set, nil
}
