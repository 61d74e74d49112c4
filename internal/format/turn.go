package format

import (
	"fmt"
	"strings"

	"github.com/user/clawrelay/internal/transcript"
	"github.com/user/clawrelay/internal/types"
)

// TranscriptTurn maps one assistant turn summary to a renderable message.
// Blocks whose source field is absent are omitted entirely.
func TranscriptTurn(s transcript.Summary) *types.OutboundMessage {
	header := "🤖 Assistant"
	if s.Model != "" {
		header = "🤖 " + s.Model
	}
	blocks := []types.Block{{Kind: types.BlockHeader, Text: header}}
	lines := []string{header}

	if s.Thinking != "" {
		thinking := Truncate(s.Thinking, maxThinkingChars)
		blocks = append(blocks, types.Block{Kind: types.BlockContext, Text: thinking})
		lines = append(lines, thinking)
	}
	if s.Text != "" {
		body := Truncate(s.Text, maxBodyChars)
		blocks = append(blocks, types.Block{Kind: types.BlockSection, Text: body})
		lines = append(lines, body)
	}
	if len(s.ToolUses) > 0 {
		names := make([]string, 0, len(s.ToolUses))
		for _, tu := range s.ToolUses {
			names = append(names, tu.Name)
		}
		tools := "🔧 Tools: " + strings.Join(names, ", ")
		blocks = append(blocks, types.Block{Kind: types.BlockContext, Text: tools})
		lines = append(lines, tools)
	}
	if usage := usageLine(s); usage != "" {
		blocks = append(blocks, types.Block{Kind: types.BlockContext, Text: usage})
		lines = append(lines, usage)
	}

	return &types.OutboundMessage{
		Text:   strings.Join(lines, "\n"),
		Blocks: blocks,
	}
}

func usageLine(s transcript.Summary) string {
	if s.Usage != nil {
		return fmt.Sprintf("⚙️ Tokens: %d in / %d out", s.Usage.InputTokens, s.Usage.OutputTokens)
	}
	if s.Text == "" {
		return ""
	}
	return fmt.Sprintf("⚙️ Tokens: ~%d out (estimated)", transcript.EstimateTokens(s.Text))
}
