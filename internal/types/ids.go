package types

import (
	"strings"

	"github.com/google/uuid"
)

type SessionID string
type ChannelID string
type ThreadHandle string
type TraceID string

func NewTraceID() TraceID {
	return TraceID(uuid.New().String())
}

// StorageKey maps the session identifier to a filesystem-safe key. Any
// character outside [A-Za-z0-9_-] is replaced with '_', so an id like
// "../../evil" cannot escape the sessions directory.
func (id SessionID) StorageKey() string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '_' || r == '-':
			return r
		default:
			return '_'
		}
	}, string(id))
}
