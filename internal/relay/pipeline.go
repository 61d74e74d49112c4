// Package relay orchestrates one event delivery: validate input, resolve the
// session thread, post the formatted message, and drain pending transcript
// turns on terminal events.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/user/clawrelay/internal/format"
	"github.com/user/clawrelay/internal/hook"
	"github.com/user/clawrelay/internal/thread"
	"github.com/user/clawrelay/internal/types"
)

// Options toggles the pipeline's side behaviors.
type Options struct {
	// DryRun logs the would-be message and performs no network calls and no
	// thread resolution.
	DryRun bool
	// Trace appends the raw event to the per-session audit log right after
	// validation, regardless of dry-run.
	Trace bool
}

// Pipeline executes a single event delivery. Each process invocation builds
// a fresh pipeline; cross-invocation state lives only in the stores.
type Pipeline struct {
	fingerprints types.FingerprintStore
	traceLog     types.TraceLog
	messenger    types.Messenger
	resolver     *thread.Resolver
	opts         Options
	now          func() time.Time
}

func New(
	threads types.ThreadStore,
	fingerprints types.FingerprintStore,
	traceLog types.TraceLog,
	messenger types.Messenger,
	channel types.ChannelID,
	opts Options,
) *Pipeline {
	return &Pipeline{
		fingerprints: fingerprints,
		traceLog:     traceLog,
		messenger:    messenger,
		resolver:     thread.NewResolver(threads, messenger, channel),
		opts:         opts,
		now:          time.Now,
	}
}

// Run reads one full JSON event from input and delivers it. Errors during
// validation, thread resolution, or the primary post abort the invocation;
// transcript-drain errors are contained per turn.
func (p *Pipeline) Run(ctx context.Context, input io.Reader) error {
	// Work starts only once the full payload has been received.
	data, err := io.ReadAll(input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	event, err := hook.Parse(data)
	if err != nil {
		return err
	}
	meta := event.Common()
	log := slog.With("session_id", string(meta.SessionID), "kind", string(event.Kind()))

	if p.opts.Trace {
		entry := &types.TraceEntry{
			ID:           types.NewTraceID(),
			ReceivedAtMS: p.now().UnixMilli(),
			Event:        json.RawMessage(data),
		}
		// Trace capture is best-effort audit, never fatal.
		if err := p.traceLog.Append(ctx, meta.SessionID, entry); err != nil {
			log.Warn("trace capture failed", "error", err)
		}
	}

	msg := format.Event(event)
	if msg == nil {
		log.Debug("event kind excluded from delivery")
		return nil
	}

	if p.opts.DryRun {
		log.Info("dry run, skipping delivery", "text", msg.Text)
		return nil
	}

	record, err := p.resolver.Resolve(ctx, meta.SessionID, meta.CWD)
	if err != nil {
		return err
	}

	msg.Channel = record.Channel
	msg.ThreadHandle = record.ThreadHandle
	if _, err := p.messenger.Post(ctx, msg); err != nil {
		return fmt.Errorf("post event message: %w", err)
	}

	if hook.Terminal(event) && meta.TranscriptPath != "" {
		if err := p.drain(ctx, log, meta.SessionID, record, meta.TranscriptPath); err != nil {
			// The primary message is already delivered; only the drain failed.
			return fmt.Errorf("transcript drain: %w", err)
		}
	}
	return nil
}
