package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/user/clawrelay/internal/hook"
	"github.com/user/clawrelay/internal/types"
)

// Truncation thresholds are uniform across all event kinds: free-text bodies
// get maxBodyChars, structured data previews get maxPreviewChars, thinking
// blocks get maxThinkingChars. Truncated content always carries the marker.
const (
	maxBodyChars     = 3000
	maxPreviewChars  = 500
	maxThinkingChars = 1500
	ellipsis         = "..."
)

// Truncate caps s at limit characters, appending the ellipsis marker when
// content was dropped. Counting is rune-based so multibyte text is never cut
// mid-character.
func Truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + ellipsis
}

// Event maps one validated event to its renderable message payload. It is a
// pure function: no I/O, no state. Returns nil for kinds excluded from
// delivery (PreToolUse).
func Event(e hook.Event) *types.OutboundMessage {
	switch ev := e.(type) {
	case *hook.PromptEvent:
		return promptMessage(ev)
	case *hook.PreToolUseEvent:
		return nil
	case *hook.PostToolUseEvent:
		return toolResultMessage(ev)
	case *hook.StopEvent:
		return stopMessage("Turn completed", ev.StopHookActive)
	case *hook.SubagentStopEvent:
		return stopMessage("Subagent completed", ev.StopHookActive)
	case *hook.NotificationEvent:
		return notificationMessage(ev)
	default:
		// Structurally valid but without dedicated rendering (PreCompact):
		// generic header naming the kind, no body.
		return genericMessage(e.Kind())
	}
}

// SessionStart builds the introductory top-level message whose posted handle
// becomes the session's thread handle.
func SessionStart(id types.SessionID, cwd string, startedAt time.Time) *types.OutboundMessage {
	header := fmt.Sprintf("🧵 Session %s", id)
	var context []string
	context = append(context, "Started "+startedAt.Format("2006-01-02 15:04:05"))
	if cwd != "" {
		context = append(context, "Working directory: "+cwd)
	}
	msg := &types.OutboundMessage{
		Text: header + "\n" + strings.Join(context, "\n"),
		Blocks: []types.Block{
			{Kind: types.BlockHeader, Text: header},
			{Kind: types.BlockContext, Text: strings.Join(context, "\n")},
		},
	}
	return msg
}

func promptMessage(e *hook.PromptEvent) *types.OutboundMessage {
	header := "💬 Prompt"
	body := Truncate(e.Prompt, maxBodyChars)
	return &types.OutboundMessage{
		Text: header + "\n" + body,
		Blocks: []types.Block{
			{Kind: types.BlockHeader, Text: header},
			{Kind: types.BlockSection, Text: body},
		},
	}
}

func toolResultMessage(e *hook.PostToolUseEvent) *types.OutboundMessage {
	header := "🔧 Tool: " + e.ToolName
	blocks := []types.Block{{Kind: types.BlockHeader, Text: header}}
	text := header

	if input := previewJSON(e.ToolInput); input != "" {
		blocks = append(blocks, types.Block{Kind: types.BlockCode, Text: input})
		text += "\nInput: " + input
	}
	if response := previewResponse(e.ToolResponse); response != "" {
		blocks = append(blocks, types.Block{Kind: types.BlockCode, Text: response})
		text += "\nResponse: " + response
	}
	return &types.OutboundMessage{Text: text, Blocks: blocks}
}

func stopMessage(label string, stopHookActive bool) *types.OutboundMessage {
	header := "✅ " + label
	blocks := []types.Block{{Kind: types.BlockHeader, Text: header}}
	text := header
	if stopHookActive {
		warning := "⚠️ A stop hook suppressed normal completion"
		blocks = append(blocks, types.Block{Kind: types.BlockContext, Text: warning})
		text += "\n" + warning
	}
	return &types.OutboundMessage{Text: text, Blocks: blocks}
}

func notificationMessage(e *hook.NotificationEvent) *types.OutboundMessage {
	// Classification is a substring heuristic over the free text; it is
	// phrasing-fragile but matches observed notification wording.
	lower := strings.ToLower(e.Message)
	var header string
	switch {
	case strings.Contains(lower, "permission"):
		header = "🔐 Permission required"
	case strings.Contains(lower, "waiting"):
		header = "💤 Waiting for input"
	default:
		header = "🔔 Notification"
	}
	body := Truncate(e.Message, maxBodyChars)
	return &types.OutboundMessage{
		Text: header + "\n" + body,
		Blocks: []types.Block{
			{Kind: types.BlockHeader, Text: header},
			{Kind: types.BlockSection, Text: body},
		},
	}
}

func genericMessage(kind hook.Kind) *types.OutboundMessage {
	header := "ℹ️ " + string(kind)
	return &types.OutboundMessage{
		Text:   header,
		Blocks: []types.Block{{Kind: types.BlockHeader, Text: header}},
	}
}

// previewJSON renders a structured value as a compact truncated preview.
func previewJSON(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return Truncate(string(raw), maxPreviewChars)
	}
	return Truncate(buf.String(), maxPreviewChars)
}

// previewResponse handles the tool response, which may be a bare string or an
// object. String responses that look like HTML are converted to markdown
// before truncation.
func previewResponse(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return Truncate(MarkdownifyHTML(asString), maxPreviewChars)
	}
	return previewJSON(raw)
}
