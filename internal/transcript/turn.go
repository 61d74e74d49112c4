package transcript

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// ToolUse records one tool invocation inside an assistant turn.
type ToolUse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Usage holds the token accounting reported for a turn.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Turn is one assistant-authored transcript entry. Read-only; the transcript
// file is externally owned.
type Turn struct {
	Model    string    `json:"model,omitempty"`
	Text     []string  `json:"text,omitempty"`
	Thinking []string  `json:"thinking,omitempty"`
	ToolUses []ToolUse `json:"tool_uses,omitempty"`
	Usage    *Usage    `json:"usage,omitempty"`
}

// FlattenedText joins the turn's text segments.
func (t *Turn) FlattenedText() string {
	return strings.TrimSpace(strings.Join(t.Text, "\n"))
}

// ThinkingText joins the turn's thinking segments.
func (t *Turn) ThinkingText() string {
	return strings.TrimSpace(strings.Join(t.Thinking, "\n"))
}

// HasText reports whether the turn carries any deliverable text. Turns
// without text are never posted.
func (t *Turn) HasText() bool {
	return t.FlattenedText() != ""
}

// Fingerprint returns a stable content hash over the serialized turn. A
// fingerprint identifies a turn across invocations for delivery dedup.
func (t *Turn) Fingerprint() string {
	data, err := json.Marshal(t)
	if err != nil {
		// Turn contains only marshalable fields; this cannot happen.
		panic(fmt.Sprintf("marshal turn: %v", err))
	}
	sum := blake3.Sum256(data)
	return fmt.Sprintf("%x", sum[:])
}

// Summary is the structured projection of a turn used by formatting.
type Summary struct {
	Model    string
	Text     string
	Thinking string
	ToolUses []ToolUse
	Usage    *Usage
}

// Summary flattens the turn into its delivery projection.
func (t *Turn) Summary() Summary {
	return Summary{
		Model:    t.Model,
		Text:     t.FlattenedText(),
		Thinking: t.ThinkingText(),
		ToolUses: t.ToolUses,
		Usage:    t.Usage,
	}
}
