package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// rawLine is the envelope of one transcript JSONL record.
type rawLine struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message"`
}

type assistantMessage struct {
	Model   string         `json:"model"`
	Content []contentBlock `json:"content"`
	Usage   *Usage         `json:"usage"`
}

type contentBlock struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Thinking string `json:"thinking"`
	ID       string `json:"id"`
	Name     string `json:"name"`
}

// ReadAllTurns parses the transcript file and returns its assistant turns in
// order. A missing file yields an empty sequence: the transcript may not
// exist yet when the first event fires. Malformed lines are skipped with a
// warning. Re-reading re-parses the whole file; no cursor is persisted.
func ReadAllTurns(path string) ([]*Turn, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	var turns []*Turn
	scanner := newScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		turn, ok := parseTurn(raw)
		if !ok {
			slog.Warn("skipping malformed transcript line", "path", path, "line", line)
			continue
		}
		if turn != nil {
			turns = append(turns, turn)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan transcript: %w", err)
	}
	return turns, nil
}

// LatestTurn returns the last assistant turn, or nil when the transcript has
// none.
func LatestTurn(path string) (*Turn, error) {
	turns, err := ReadAllTurns(path)
	if err != nil {
		return nil, err
	}
	if len(turns) == 0 {
		return nil, nil
	}
	return turns[len(turns)-1], nil
}

// LatestText returns the flattened text of the last assistant turn.
func LatestText(path string) (string, error) {
	turn, err := LatestTurn(path)
	if err != nil {
		return "", err
	}
	if turn == nil {
		return "", nil
	}
	return turn.FlattenedText(), nil
}

// parseTurn decodes one transcript line. It returns (nil, true) for valid
// lines that are not assistant turns, and (nil, false) for malformed lines.
func parseTurn(raw []byte) (*Turn, bool) {
	var rec rawLine
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false
	}
	if rec.Type != "assistant" {
		return nil, true
	}
	var msg assistantMessage
	if err := json.Unmarshal(rec.Message, &msg); err != nil {
		return nil, false
	}

	turn := &Turn{Model: msg.Model, Usage: msg.Usage}
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				turn.Text = append(turn.Text, block.Text)
			}
		case "thinking":
			if block.Thinking != "" {
				turn.Thinking = append(turn.Thinking, block.Thinking)
			}
		case "tool_use":
			turn.ToolUses = append(turn.ToolUses, ToolUse{ID: block.ID, Name: block.Name})
		}
	}
	return turn, true
}

func newScanner(f *os.File) *bufio.Scanner {
	scanner := bufio.NewScanner(f)
	// Allow large payloads such as long assistant responses.
	const maxCapacity = 8 * 1024 * 1024
	buf := make([]byte, 1024)
	scanner.Buffer(buf, maxCapacity)
	return scanner
}
