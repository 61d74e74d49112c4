package types

import (
	"encoding/json"
)

// ThreadRecord maps a session to its discussion thread. One record per
// session; LastActivityMS is bumped on every lookup and drives cleanup.
type ThreadRecord struct {
	SessionID      SessionID    `json:"session_id"`
	Channel        ChannelID    `json:"channel"`
	ThreadHandle   ThreadHandle `json:"thread_handle"`
	LastActivityMS int64        `json:"last_activity_ms"`
}

// TraceEntry is one line of the per-session raw event log. Written only when
// trace capture is enabled; never read by the delivery path.
type TraceEntry struct {
	ID           TraceID         `json:"id"`
	ReceivedAtMS int64           `json:"received_at_ms"`
	Event        json.RawMessage `json:"event"`
}

// BlockKind discriminates the renderable block types a formatter can emit.
type BlockKind string

const (
	BlockHeader  BlockKind = "header"
	BlockSection BlockKind = "section"
	BlockCode    BlockKind = "code"
	BlockContext BlockKind = "context"
)

type Block struct {
	Kind BlockKind `json:"kind"`
	Text string    `json:"text"`
}

// OutboundMessage is a renderable message payload. Text is the plain
// fallback; Blocks carry the structured rendering. An empty ThreadHandle
// posts a new top-level message.
type OutboundMessage struct {
	Channel      ChannelID    `json:"channel"`
	ThreadHandle ThreadHandle `json:"thread_handle,omitempty"`
	Text         string       `json:"text"`
	Blocks       []Block      `json:"blocks,omitempty"`
}

// PostedMessage identifies a message accepted by the messaging platform.
type PostedMessage struct {
	Handle  ThreadHandle `json:"handle"`
	Channel ChannelID    `json:"channel"`
}
