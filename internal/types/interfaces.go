package types

import (
	"context"
	"time"
)

// ThreadStore persists session→thread records. Load returns (nil, nil) when
// no record exists; Delete on a missing record is not an error.
type ThreadStore interface {
	Load(ctx context.Context, id SessionID) (*ThreadRecord, error)
	Save(ctx context.Context, record *ThreadRecord) error
	Delete(ctx context.Context, id SessionID) error
	List(ctx context.Context) ([]*ThreadRecord, error)
	// Sweep removes every session namespace whose record is older than
	// maxAge. Unreadable namespaces are skipped, not fatal. Returns the
	// number of namespaces removed.
	Sweep(ctx context.Context, maxAge time.Duration) (int, error)
}

// TraceLog is the append-only raw event capture, one JSONL file per session.
type TraceLog interface {
	Append(ctx context.Context, id SessionID, entry *TraceEntry) error
}

// FingerprintStore records which transcript-derived messages have already
// been posted for a session.
type FingerprintStore interface {
	Has(ctx context.Context, id SessionID, fingerprint string) (bool, error)
	Add(ctx context.Context, id SessionID, fingerprint string) error
}

// Messenger is the abstract messaging-platform capability: post a message,
// get back its handle. Implementations retry transient failures up to a
// small bounded count before failing.
type Messenger interface {
	Post(ctx context.Context, msg *OutboundMessage) (*PostedMessage, error)
}
