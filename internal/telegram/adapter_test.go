package telegram

import (
	"strings"
	"testing"

	"github.com/user/clawrelay/internal/types"
)

func TestSplitMessage(t *testing.T) {
	short := "Hello world"
	parts := splitMessage(short)
	if len(parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(parts))
	}
	if parts[0] != short {
		t.Errorf("expected %q, got %q", short, parts[0])
	}
}

func TestSplitMessageLong(t *testing.T) {
	long := strings.Repeat("a", 5000)
	parts := splitMessage(long)
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if len(parts[0]) != maxTelegramMessage {
		t.Errorf("expected first part length %d, got %d", maxTelegramMessage, len(parts[0]))
	}
}

func TestRenderMessage(t *testing.T) {
	msg := &types.OutboundMessage{
		Text: "fallback",
		Blocks: []types.Block{
			{Kind: types.BlockHeader, Text: "Tool: Bash"},
			{Kind: types.BlockCode, Text: `{"command":"ls"}`},
			{Kind: types.BlockContext, Text: "took 3s"},
		},
	}
	got := renderMessage(msg)
	if !strings.Contains(got, "*Tool: Bash*") {
		t.Errorf("header not bold: %q", got)
	}
	if !strings.Contains(got, "```\n{\"command\":\"ls\"}\n```") {
		t.Errorf("code not fenced: %q", got)
	}
	if !strings.Contains(got, "_took 3s_") {
		t.Errorf("context not italic: %q", got)
	}
}

func TestRenderMessageFallback(t *testing.T) {
	msg := &types.OutboundMessage{Text: "plain only"}
	if got := renderMessage(msg); got != "plain only" {
		t.Errorf("expected fallback text, got %q", got)
	}
}
