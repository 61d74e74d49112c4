package hook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/user/clawrelay/internal/types"
)

// ValidationError reports a malformed inbound event. Fields lists the
// offending members when they can be identified.
type ValidationError struct {
	Kind   string
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	msg := "invalid event"
	if e.Kind != "" {
		msg += " (" + e.Kind + ")"
	}
	if len(e.Fields) > 0 {
		msg += ": fields " + strings.Join(e.Fields, ", ")
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// wire structs mirror the inbound JSON exactly. Parsing is strict: any member
// outside the declared schema for the kind is rejected. Pointer fields
// distinguish absent from empty.
type commonWire struct {
	HookEventName  string `json:"hook_event_name"`
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	CWD            string `json:"cwd"`
}

func (w *commonWire) common() Common {
	return Common{
		SessionID:      types.SessionID(w.SessionID),
		TranscriptPath: w.TranscriptPath,
		CWD:            w.CWD,
	}
}

type promptWire struct {
	commonWire
	Prompt *string `json:"prompt"`
}

type preToolWire struct {
	commonWire
	ToolName  string          `json:"tool_name"`
	ToolInput json.RawMessage `json:"tool_input"`
}

type postToolWire struct {
	commonWire
	ToolName     string          `json:"tool_name"`
	ToolInput    json.RawMessage `json:"tool_input"`
	ToolResponse json.RawMessage `json:"tool_response"`
}

type stopWire struct {
	commonWire
	StopHookActive bool `json:"stop_hook_active"`
}

type notificationWire struct {
	commonWire
	Message *string `json:"message"`
}

type preCompactWire struct {
	commonWire
	Trigger            string `json:"trigger"`
	CustomInstructions string `json:"custom_instructions"`
}

// Parse validates one raw JSON event and returns its typed form. Validation
// failure is fatal for the invocation; there is no best-effort fallback.
func Parse(data []byte) (Event, error) {
	var envelope struct {
		HookEventName string `json:"hook_event_name"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("malformed JSON: %v", err)}
	}
	kind := Kind(envelope.HookEventName)

	switch kind {
	case KindUserPromptSubmit:
		var w promptWire
		if err := strictDecode(data, &w, kind); err != nil {
			return nil, err
		}
		if err := requireCommon(&w.commonWire, kind); err != nil {
			return nil, err
		}
		if w.Prompt == nil {
			return nil, missing(kind, "prompt")
		}
		return &PromptEvent{Meta: w.common(), Prompt: *w.Prompt}, nil

	case KindPreToolUse:
		var w preToolWire
		if err := strictDecode(data, &w, kind); err != nil {
			return nil, err
		}
		if err := requireCommon(&w.commonWire, kind); err != nil {
			return nil, err
		}
		if w.ToolName == "" {
			return nil, missing(kind, "tool_name")
		}
		return &PreToolUseEvent{Meta: w.common(), ToolName: w.ToolName, ToolInput: w.ToolInput}, nil

	case KindPostToolUse:
		var w postToolWire
		if err := strictDecode(data, &w, kind); err != nil {
			return nil, err
		}
		if err := requireCommon(&w.commonWire, kind); err != nil {
			return nil, err
		}
		if w.ToolName == "" {
			return nil, missing(kind, "tool_name")
		}
		return &PostToolUseEvent{
			Meta:         w.common(),
			ToolName:     w.ToolName,
			ToolInput:    w.ToolInput,
			ToolResponse: w.ToolResponse,
		}, nil

	case KindStop:
		var w stopWire
		if err := strictDecode(data, &w, kind); err != nil {
			return nil, err
		}
		if err := requireCommon(&w.commonWire, kind); err != nil {
			return nil, err
		}
		return &StopEvent{Meta: w.common(), StopHookActive: w.StopHookActive}, nil

	case KindSubagentStop:
		var w stopWire
		if err := strictDecode(data, &w, kind); err != nil {
			return nil, err
		}
		if err := requireCommon(&w.commonWire, kind); err != nil {
			return nil, err
		}
		return &SubagentStopEvent{Meta: w.common(), StopHookActive: w.StopHookActive}, nil

	case KindNotification:
		var w notificationWire
		if err := strictDecode(data, &w, kind); err != nil {
			return nil, err
		}
		if err := requireCommon(&w.commonWire, kind); err != nil {
			return nil, err
		}
		if w.Message == nil {
			return nil, missing(kind, "message")
		}
		return &NotificationEvent{Meta: w.common(), Message: *w.Message}, nil

	case KindPreCompact:
		var w preCompactWire
		if err := strictDecode(data, &w, kind); err != nil {
			return nil, err
		}
		if err := requireCommon(&w.commonWire, kind); err != nil {
			return nil, err
		}
		if w.Trigger != "manual" && w.Trigger != "automatic" {
			return nil, &ValidationError{
				Kind:   string(kind),
				Fields: []string{"trigger"},
				Reason: fmt.Sprintf("must be manual or automatic, got %q", w.Trigger),
			}
		}
		return &PreCompactEvent{Meta: w.common(), Trigger: w.Trigger, CustomInstructions: w.CustomInstructions}, nil

	case "":
		return nil, missing("", "hook_event_name")

	default:
		return nil, &ValidationError{
			Kind:   string(kind),
			Fields: []string{"hook_event_name"},
			Reason: "unrecognized event kind",
		}
	}
}

// strictDecode unmarshals data into dst rejecting unknown members.
func strictDecode(data []byte, dst any, kind Kind) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		verr := &ValidationError{Kind: string(kind), Reason: err.Error()}
		if field, ok := unknownField(err); ok {
			verr.Fields = []string{field}
			verr.Reason = "unknown field"
		}
		return verr
	}
	return nil
}

// unknownField extracts the field name from encoding/json's
// `json: unknown field "name"` error message.
func unknownField(err error) (string, bool) {
	msg := err.Error()
	const marker = `unknown field "`
	i := strings.Index(msg, marker)
	if i < 0 {
		return "", false
	}
	rest := msg[i+len(marker):]
	j := strings.Index(rest, `"`)
	if j < 0 {
		return "", false
	}
	return rest[:j], true
}

func requireCommon(w *commonWire, kind Kind) error {
	if w.SessionID == "" {
		return missing(kind, "session_id")
	}
	return nil
}

func missing(kind Kind, field string) error {
	return &ValidationError{Kind: string(kind), Fields: []string{field}, Reason: "required field missing"}
}
