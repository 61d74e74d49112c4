package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/clawrelay/internal/types"
)

const sweepConcurrency = 4

// ThreadStore is a JSON-file-backed store of session→thread records. Each
// session gets its own directory at sessions/<key>/ holding thread.json plus
// the session's trace log and delivered fingerprints. The legacy layout (one
// flat sessions/<key>.json file) is detected and migrated on the fly.
type ThreadStore struct {
	root string
	mu   sync.Mutex
}

// NewThreadStore creates a file-backed ThreadStore rooted at the given
// directory.
func NewThreadStore(root string) *ThreadStore {
	return &ThreadStore{root: root}
}

func (s *ThreadStore) sessionsDir() string {
	return filepath.Join(s.root, "sessions")
}

func (s *ThreadStore) sessionDir(id types.SessionID) string {
	return filepath.Join(s.sessionsDir(), id.StorageKey())
}

func (s *ThreadStore) recordPath(id types.SessionID) string {
	return filepath.Join(s.sessionDir(id), "thread.json")
}

func (s *ThreadStore) legacyPath(id types.SessionID) string {
	return filepath.Join(s.sessionsDir(), id.StorageKey()+".json")
}

// Load returns the session's thread record, or (nil, nil) when none exists.
// A legacy flat-file record is migrated into the namespaced layout first.
func (s *ThreadStore) Load(_ context.Context, id types.SessionID) (*types.ThreadRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := readRecord(s.recordPath(id))
	if err != nil {
		return nil, err
	}
	if record != nil {
		return record, nil
	}

	// Fall back to the legacy single-file layout and migrate.
	legacy, err := readRecord(s.legacyPath(id))
	if err != nil || legacy == nil {
		return legacy, err
	}
	if err := s.writeRecord(legacy); err != nil {
		return nil, fmt.Errorf("migrate legacy record: %w", err)
	}
	if err := os.Remove(s.legacyPath(id)); err != nil {
		slog.Warn("remove legacy record failed", "session_id", string(id), "error", err)
	}
	return legacy, nil
}

// Save durably writes the record, creating the session namespace if absent.
// Writes are whole-record overwrites; concurrent same-session writers race
// with last-writer-wins semantics.
func (s *ThreadStore) Save(_ context.Context, record *types.ThreadRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeRecord(record)
}

func (s *ThreadStore) writeRecord(record *types.ThreadRecord) error {
	dir := s.sessionDir(record.SessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal thread record: %w", err)
	}

	// Atomic write: write to temp file then rename
	path := s.recordPath(record.SessionID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp record: %w", err)
	}
	return nil
}

// Delete removes the session's record and all per-session artifacts (trace
// log, fingerprints). Missing entries are not an error.
func (s *ThreadStore) Delete(_ context.Context, id types.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.RemoveAll(s.sessionDir(id)); err != nil {
		return fmt.Errorf("remove session dir: %w", err)
	}
	if err := os.Remove(s.legacyPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove legacy record: %w", err)
	}
	return nil
}

// List returns every readable thread record. Unreadable entries are skipped
// with a warning.
func (s *ThreadStore) List(_ context.Context) ([]*types.ThreadRecord, error) {
	entries, err := os.ReadDir(s.sessionsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}

	var records []*types.ThreadRecord
	for _, entry := range entries {
		path := s.entryRecordPath(entry)
		if path == "" {
			continue
		}
		record, err := readRecord(path)
		if err != nil || record == nil {
			if err != nil {
				slog.Warn("skipping unreadable session entry", "entry", entry.Name(), "error", err)
			}
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// Sweep removes every session namespace whose record's last activity is older
// than maxAge. Partially-written or unreadable namespaces are skipped without
// aborting the sweep.
func (s *ThreadStore) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.sessionsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read sessions dir: %w", err)
	}

	cutoff := time.Now().Add(-maxAge).UnixMilli()
	var removed atomic.Int64

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)
	for _, entry := range entries {
		g.Go(func() error {
			if s.sweepEntry(entry, cutoff) {
				removed.Add(1)
			}
			// Per-entry failures are logged, never fatal to the sweep.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(removed.Load()), err
	}
	return int(removed.Load()), nil
}

// sweepEntry evaluates one sessions/ entry and returns true if it was removed.
func (s *ThreadStore) sweepEntry(entry os.DirEntry, cutoff int64) bool {
	path := s.entryRecordPath(entry)
	if path == "" {
		return false
	}
	record, err := readRecord(path)
	if err != nil {
		slog.Warn("sweep skipping unreadable entry", "entry", entry.Name(), "error", err)
		return false
	}
	if record == nil || record.LastActivityMS >= cutoff {
		return false
	}

	target := filepath.Join(s.sessionsDir(), entry.Name())
	if err := os.RemoveAll(target); err != nil {
		slog.Warn("sweep remove failed", "entry", entry.Name(), "error", err)
		return false
	}
	slog.Info("swept stale session",
		"session_id", string(record.SessionID),
		"last_activity_ms", record.LastActivityMS,
	)
	return true
}

// entryRecordPath returns the thread record path for a sessions/ directory
// entry, handling both the namespaced and the legacy flat layout. Returns ""
// for entries that are neither.
func (s *ThreadStore) entryRecordPath(entry os.DirEntry) string {
	if entry.IsDir() {
		return filepath.Join(s.sessionsDir(), entry.Name(), "thread.json")
	}
	if strings.HasSuffix(entry.Name(), ".json") && !strings.HasSuffix(entry.Name(), ".tmp") {
		return filepath.Join(s.sessionsDir(), entry.Name())
	}
	return ""
}

// readRecord reads and decodes a thread record file. A missing file yields
// (nil, nil).
func readRecord(path string) (*types.ThreadRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read thread record: %w", err)
	}
	var record types.ThreadRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("unmarshal thread record: %w", err)
	}
	return &record, nil
}
