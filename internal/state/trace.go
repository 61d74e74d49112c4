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

// TraceLog is a JSONL-backed append-only raw event capture. Entries are
// stored per-session in sessions/<key>/events.jsonl. The delivery path never
// reads this file; it is purely an audit artifact.
type TraceLog struct {
	root  string
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTraceLog creates a file-backed TraceLog rooted at the given directory.
func NewTraceLog(root string) *TraceLog {
	return &TraceLog{
		root:  root,
		locks: make(map[string]*sync.Mutex),
	}
}

// getLock returns the per-session mutex, creating one if it doesn't exist.
func (t *TraceLog) getLock(id types.SessionID) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := id.StorageKey()
	if lock, ok := t.locks[key]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	t.locks[key] = lock
	return lock
}

func (t *TraceLog) tracePath(id types.SessionID) string {
	return filepath.Join(t.root, "sessions", id.StorageKey(), "events.jsonl")
}

// Append adds one entry to the session's raw event log.
func (t *TraceLog) Append(_ context.Context, id types.SessionID, entry *types.TraceEntry) error {
	lock := t.getLock(id)
	lock.Lock()
	defer lock.Unlock()

	dir := filepath.Dir(t.tracePath(id))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal trace entry: %w", err)
	}

	f, err := os.OpenFile(t.tracePath(id), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open trace log: %w", err)
	}
	defer f.Close()

	data = append(data, '\n')
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write trace entry: %w", err)
	}
	return nil
}
