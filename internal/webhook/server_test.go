package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/user/clawrelay/internal/state"
	"github.com/user/clawrelay/internal/types"
)

func newTestServer(t *testing.T) (*Server, *state.ThreadStore) {
	t.Helper()
	store := state.NewThreadStore(t.TempDir())
	srv := NewServer(store, func(ctx context.Context) (int, error) {
		return store.Sweep(ctx, time.Hour)
	})
	return srv, store
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestSweepEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()

	stale := &types.ThreadRecord{
		SessionID:      "stale",
		Channel:        "c",
		ThreadHandle:   "1",
		LastActivityMS: time.Now().Add(-2 * time.Hour).UnixMilli(),
	}
	if err := store.Save(ctx, stale); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sweep", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["removed"] != 1 {
		t.Errorf("expected 1 removed, got %d", body["removed"])
	}
}

func TestSessionsEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()

	if err := store.Save(ctx, &types.ThreadRecord{
		SessionID:      "s1",
		Channel:        "c",
		ThreadHandle:   "42",
		LastActivityMS: time.Now().UnixMilli(),
	}); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var records []*types.ThreadRecord
	if err := json.NewDecoder(rec.Body).Decode(&records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].ThreadHandle != "42" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestSessionsEndpointEmpty(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	if rec.Body.String() == "null\n" {
		t.Error("expected empty array, not null")
	}
}
