//go:build integration

package test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/user/clawrelay/internal/relay"
	"github.com/user/clawrelay/internal/state"
	"github.com/user/clawrelay/internal/transcript"
	"github.com/user/clawrelay/internal/types"
)

// recordingMessenger is a test double that hands out sequential thread
// handles and records every outbound message.
type recordingMessenger struct {
	mu    sync.Mutex
	posts []*types.OutboundMessage
	next  int
}

func (m *recordingMessenger) Post(_ context.Context, msg *types.OutboundMessage) (*types.PostedMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts = append(m.posts, msg)
	handle := msg.ThreadHandle
	if handle == "" {
		m.next++
		handle = types.ThreadHandle(fmt.Sprintf("%d", 1000+m.next))
	}
	return &types.PostedMessage{Handle: handle, Channel: msg.Channel}, nil
}

func newStack(t *testing.T) (string, *recordingMessenger, *relay.Pipeline) {
	t.Helper()
	dir := t.TempDir()
	messenger := &recordingMessenger{}
	pipeline := relay.New(
		state.NewThreadStore(dir),
		state.NewFingerprintStore(dir),
		state.NewTraceLog(dir),
		messenger,
		"chan-1",
		relay.Options{},
	)
	return dir, messenger, pipeline
}

func TestNewSessionCreatesThread(t *testing.T) {
	dir, messenger, pipeline := newStack(t)
	ctx := context.Background()

	input := `{"hook_event_name":"UserPromptSubmit","session_id":"sess-a","cwd":"/work","prompt":"fix the bug"}`
	if err := pipeline.Run(ctx, strings.NewReader(input)); err != nil {
		t.Fatal(err)
	}

	// Intro message plus the prompt itself.
	if len(messenger.posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(messenger.posts))
	}
	if messenger.posts[1].ThreadHandle != "1001" {
		t.Errorf("prompt not threaded under intro: %q", messenger.posts[1].ThreadHandle)
	}

	record, err := state.NewThreadStore(dir).Load(ctx, "sess-a")
	if err != nil {
		t.Fatal(err)
	}
	if record == nil || record.ThreadHandle != "1001" {
		t.Errorf("thread record not persisted: %+v", record)
	}
}

func TestExistingSessionReusesThread(t *testing.T) {
	dir, messenger, pipeline := newStack(t)
	ctx := context.Background()

	threads := state.NewThreadStore(dir)
	if err := threads.Save(ctx, &types.ThreadRecord{
		SessionID:    "sess-b",
		Channel:      "chan-1",
		ThreadHandle: "7777",
	}); err != nil {
		t.Fatal(err)
	}

	input := `{"hook_event_name":"PostToolUse","session_id":"sess-b","tool_name":"Bash","tool_input":{"command":"ls"},"tool_response":"ok"}`
	if err := pipeline.Run(ctx, strings.NewReader(input)); err != nil {
		t.Fatal(err)
	}

	if len(messenger.posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(messenger.posts))
	}
	if messenger.posts[0].ThreadHandle != "7777" {
		t.Errorf("expected existing thread handle, got %q", messenger.posts[0].ThreadHandle)
	}
}

func TestStopDrainsOnlyUndeliveredTurns(t *testing.T) {
	dir, messenger, pipeline := newStack(t)
	ctx := context.Background()

	transcript := filepath.Join(t.TempDir(), "transcript.jsonl")
	lines := []string{
		`{"type":"assistant","message":{"model":"m1","content":[{"type":"text","text":"first answer"}]}}`,
		`{"type":"assistant","message":{"model":"m1","content":[{"type":"text","text":"second answer"}]}}`,
	}
	if err := os.WriteFile(transcript, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	// First stop delivers both turns.
	stop, err := json.Marshal(map[string]any{
		"hook_event_name": "Stop",
		"session_id":      "sess-c",
		"transcript_path": transcript,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := pipeline.Run(ctx, strings.NewReader(string(stop))); err != nil {
		t.Fatal(err)
	}
	// Intro, stop notice, two transcript turns.
	if len(messenger.posts) != 4 {
		t.Fatalf("expected 4 posts, got %d", len(messenger.posts))
	}

	// A second stop for the same transcript delivers nothing new beyond the
	// stop notice itself.
	before := len(messenger.posts)
	if err := pipeline.Run(ctx, strings.NewReader(string(stop))); err != nil {
		t.Fatal(err)
	}
	if got := len(messenger.posts) - before; got != 1 {
		t.Errorf("expected only the stop notice on replay, got %d new posts", got)
	}

	seen, err := state.NewFingerprintStore(dir).Has(ctx, "sess-c", messengerTurnFingerprint(t, lines[0]))
	if err != nil {
		t.Fatal(err)
	}
	if !seen {
		t.Error("expected first turn fingerprint recorded")
	}
}

// messengerTurnFingerprint recomputes the fingerprint of a transcript line the
// same way the drain does, by round-tripping it through the reader.
func messengerTurnFingerprint(t *testing.T, line string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "one.jsonl")
	if err := os.WriteFile(path, []byte(line+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	turn, err := transcript.LatestTurn(path)
	if err != nil || turn == nil {
		t.Fatalf("parse turn: %v", err)
	}
	return turn.Fingerprint()
}

func TestMalformedInputPostsNothing(t *testing.T) {
	_, messenger, pipeline := newStack(t)

	err := pipeline.Run(context.Background(), strings.NewReader(`{"hook_event_name":`))
	if err == nil {
		t.Fatal("expected error for malformed input")
	}
	if len(messenger.posts) != 0 {
		t.Errorf("expected no posts, got %d", len(messenger.posts))
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	_, messenger, pipeline := newStack(t)

	input := `{"hook_event_name":"UserPromptSubmit","session_id":"s","prompt":"p","bogus":1}`
	err := pipeline.Run(context.Background(), strings.NewReader(input))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(messenger.posts) != 0 {
		t.Errorf("expected no posts, got %d", len(messenger.posts))
	}
}
