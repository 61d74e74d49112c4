package hook

import (
	"encoding/json"

	"github.com/user/clawrelay/internal/types"
)

// Kind discriminates the inbound event shapes.
type Kind string

const (
	KindUserPromptSubmit Kind = "UserPromptSubmit"
	KindPreToolUse       Kind = "PreToolUse"
	KindPostToolUse      Kind = "PostToolUse"
	KindStop             Kind = "Stop"
	KindSubagentStop     Kind = "SubagentStop"
	KindNotification     Kind = "Notification"
	KindPreCompact       Kind = "PreCompact"
)

// Common carries the fields shared by every event kind.
type Common struct {
	SessionID      types.SessionID
	TranscriptPath string
	CWD            string
}

// Event is the validated tagged union. Exactly one concrete type per kind.
type Event interface {
	Kind() Kind
	Common() Common
}

// Terminal reports whether the event ends a turn and should trigger a
// transcript drain.
func Terminal(e Event) bool {
	k := e.Kind()
	return k == KindStop || k == KindSubagentStop
}

type PromptEvent struct {
	Meta   Common
	Prompt string
}

func (e *PromptEvent) Kind() Kind     { return KindUserPromptSubmit }
func (e *PromptEvent) Common() Common { return e.Meta }

// PreToolUseEvent fires before a tool runs. It is parsed for completeness but
// excluded from delivery.
type PreToolUseEvent struct {
	Meta      Common
	ToolName  string
	ToolInput json.RawMessage
}

func (e *PreToolUseEvent) Kind() Kind     { return KindPreToolUse }
func (e *PreToolUseEvent) Common() Common { return e.Meta }

type PostToolUseEvent struct {
	Meta         Common
	ToolName     string
	ToolInput    json.RawMessage
	ToolResponse json.RawMessage
}

func (e *PostToolUseEvent) Kind() Kind     { return KindPostToolUse }
func (e *PostToolUseEvent) Common() Common { return e.Meta }

type StopEvent struct {
	Meta Common
	// StopHookActive is set when a guard hook suppressed normal completion.
	StopHookActive bool
}

func (e *StopEvent) Kind() Kind     { return KindStop }
func (e *StopEvent) Common() Common { return e.Meta }

// SubagentStopEvent is structurally identical to StopEvent with a distinct tag.
type SubagentStopEvent struct {
	Meta           Common
	StopHookActive bool
}

func (e *SubagentStopEvent) Kind() Kind     { return KindSubagentStop }
func (e *SubagentStopEvent) Common() Common { return e.Meta }

type NotificationEvent struct {
	Meta    Common
	Message string
}

func (e *NotificationEvent) Kind() Kind     { return KindNotification }
func (e *NotificationEvent) Common() Common { return e.Meta }

type PreCompactEvent struct {
	Meta               Common
	Trigger            string // "manual" or "automatic"
	CustomInstructions string
}

func (e *PreCompactEvent) Kind() Kind     { return KindPreCompact }
func (e *PreCompactEvent) Common() Common { return e.Meta }
