package format

import (
	"strings"
	"testing"
	"time"

	"github.com/user/clawrelay/internal/transcript"
)

func timeFixed(t *testing.T) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, "2026-09-01T12:00:00Z")
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

func TestTranscriptTurnFull(t *testing.T) {
	msg := TranscriptTurn(transcript.Summary{
		Model:    "claude-sonnet-4",
		Text:     "The answer is 42.",
		Thinking: "Let me reason about this.",
		ToolUses: []transcript.ToolUse{{ID: "tu_1", Name: "Bash"}, {ID: "tu_2", Name: "Read"}},
		Usage:    &transcript.Usage{InputTokens: 100, OutputTokens: 20},
	})
	if !strings.Contains(msg.Text, "claude-sonnet-4") {
		t.Errorf("missing model header: %q", msg.Text)
	}
	if !strings.Contains(msg.Text, "Let me reason") {
		t.Errorf("missing thinking block: %q", msg.Text)
	}
	if !strings.Contains(msg.Text, "The answer is 42.") {
		t.Errorf("missing main text: %q", msg.Text)
	}
	if !strings.Contains(msg.Text, "Bash, Read") {
		t.Errorf("missing tool summary: %q", msg.Text)
	}
	if !strings.Contains(msg.Text, "100 in / 20 out") {
		t.Errorf("missing usage line: %q", msg.Text)
	}
}

func TestTranscriptTurnOmitsAbsentBlocks(t *testing.T) {
	msg := TranscriptTurn(transcript.Summary{Text: "plain"})
	if strings.Contains(msg.Text, "Tools:") {
		t.Error("tool summary must be omitted when no tools were used")
	}
	if !strings.HasPrefix(msg.Text, "🤖 Assistant") {
		t.Errorf("expected generic header without model: %q", msg.Text)
	}
	// Without usage data the token line is an estimate.
	if !strings.Contains(msg.Text, "estimated") {
		t.Errorf("expected estimated token line: %q", msg.Text)
	}
}

func TestTranscriptTurnThinkingTruncated(t *testing.T) {
	msg := TranscriptTurn(transcript.Summary{
		Text:     "ok",
		Thinking: strings.Repeat("t", 2000),
	})
	for _, line := range strings.Split(msg.Text, "\n") {
		if strings.HasPrefix(line, "t") && len([]rune(line)) > 1500+len(ellipsis) {
			t.Errorf("thinking block exceeds 1500 chars plus marker: %d", len([]rune(line)))
		}
	}
}
