package state

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/clawrelay/internal/types"
)

func record(id types.SessionID, lastActivity time.Time) *types.ThreadRecord {
	return &types.ThreadRecord{
		SessionID:      id,
		Channel:        "chan-1",
		ThreadHandle:   "1001",
		LastActivityMS: lastActivity.UnixMilli(),
	}
}

func TestThreadStoreLoadAbsent(t *testing.T) {
	store := NewThreadStore(t.TempDir())
	rec, err := store.Load(context.Background(), "missing")
	if err != nil {
		t.Fatal(err)
	}
	if rec != nil {
		t.Errorf("expected nil record for absent session, got %+v", rec)
	}
}

func TestThreadStoreSaveLoad(t *testing.T) {
	store := NewThreadStore(t.TempDir())
	ctx := context.Background()

	want := record("s1", time.Now())
	if err := store.Save(ctx, want); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected record after save")
	}
	if got.ThreadHandle != want.ThreadHandle || got.Channel != want.Channel {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestThreadStoreSanitizedLayout(t *testing.T) {
	dir := t.TempDir()
	store := NewThreadStore(dir)
	ctx := context.Background()

	if err := store.Save(ctx, record("../../evil", time.Now())); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "sessions", "______evil", "thread.json")); err != nil {
		t.Errorf("expected sanitized session dir: %v", err)
	}
}

func TestThreadStoreDelete(t *testing.T) {
	dir := t.TempDir()
	store := NewThreadStore(dir)
	ctx := context.Background()

	if err := store.Save(ctx, record("s1", time.Now())); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	rec, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if rec != nil {
		t.Error("expected record gone after delete")
	}

	// Deleting a missing session is not an error.
	if err := store.Delete(ctx, "never-existed"); err != nil {
		t.Errorf("delete of missing session should not fail: %v", err)
	}
}

func writeLegacy(t *testing.T, dir string, rec *types.ThreadRecord) {
	t.Helper()
	sessionsDir := filepath.Join(dir, "sessions")
	if err := os.MkdirAll(sessionsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(sessionsDir, rec.SessionID.StorageKey()+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestThreadStoreLegacyMigration(t *testing.T) {
	dir := t.TempDir()
	store := NewThreadStore(dir)
	ctx := context.Background()

	writeLegacy(t, dir, record("old-session", time.Now()))

	got, err := store.Load(ctx, "old-session")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ThreadHandle != "1001" {
		t.Fatalf("expected migrated record, got %+v", got)
	}

	// Migration moved the record into the namespaced layout.
	if _, err := os.Stat(filepath.Join(dir, "sessions", "old-session", "thread.json")); err != nil {
		t.Errorf("expected namespaced record after migration: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "sessions", "old-session.json")); !os.IsNotExist(err) {
		t.Error("expected legacy flat file removed after migration")
	}
}

func TestThreadStoreList(t *testing.T) {
	dir := t.TempDir()
	store := NewThreadStore(dir)
	ctx := context.Background()

	if err := store.Save(ctx, record("a", time.Now())); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, record("b", time.Now())); err != nil {
		t.Fatal(err)
	}
	writeLegacy(t, dir, record("c-legacy", time.Now()))

	records, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Errorf("expected 3 records, got %d", len(records))
	}
}

func TestSweepRemovesStale(t *testing.T) {
	dir := t.TempDir()
	store := NewThreadStore(dir)
	ctx := context.Background()

	stale := record("stale", time.Now().Add(-2*time.Hour))
	fresh := record("fresh", time.Now().Add(-10*time.Second))
	if err := store.Save(ctx, stale); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, fresh); err != nil {
		t.Fatal(err)
	}

	removed, err := store.Sweep(ctx, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removal, got %d", removed)
	}

	rec, err := store.Load(ctx, "stale")
	if err != nil {
		t.Fatal(err)
	}
	if rec != nil {
		t.Error("stale session should be gone")
	}
	rec, err = store.Load(ctx, "fresh")
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil {
		t.Error("fresh session should be retained")
	}
}

func TestSweepSkipsUnreadableEntry(t *testing.T) {
	dir := t.TempDir()
	store := NewThreadStore(dir)
	ctx := context.Background()

	// A namespace with a corrupt record must not abort the sweep.
	corrupt := filepath.Join(dir, "sessions", "corrupt")
	if err := os.MkdirAll(corrupt, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(corrupt, "thread.json"), []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, record("stale", time.Now().Add(-2*time.Hour))); err != nil {
		t.Fatal(err)
	}

	removed, err := store.Sweep(ctx, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removal despite corrupt entry, got %d", removed)
	}
	if _, err := os.Stat(corrupt); err != nil {
		t.Error("corrupt namespace should be left in place")
	}
}

func TestSweepRemovesStaleLegacy(t *testing.T) {
	dir := t.TempDir()
	store := NewThreadStore(dir)
	ctx := context.Background()

	writeLegacy(t, dir, record("legacy-stale", time.Now().Add(-2*time.Hour)))

	removed, err := store.Sweep(ctx, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("expected legacy stale record removed, got %d removals", removed)
	}
}

func TestSweepEmptyRoot(t *testing.T) {
	store := NewThreadStore(t.TempDir())
	removed, err := store.Sweep(context.Background(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 0 {
		t.Errorf("expected no removals, got %d", removed)
	}
}
