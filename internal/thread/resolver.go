// Package thread resolves session identifiers to stable thread handles.
package thread

import (
	"context"
	"fmt"
	"time"

	"github.com/user/clawrelay/internal/format"
	"github.com/user/clawrelay/internal/types"
)

// Resolver returns the thread handle for a session, creating and persisting
// one when none exists. All state lives in the store; each invocation is a
// fresh process, so nothing is cached in memory.
type Resolver struct {
	store     types.ThreadStore
	messenger types.Messenger
	channel   types.ChannelID
	now       func() time.Time
}

func NewResolver(store types.ThreadStore, messenger types.Messenger, channel types.ChannelID) *Resolver {
	return &Resolver{
		store:     store,
		messenger: messenger,
		channel:   channel,
		now:       time.Now,
	}
}

// Resolve loads the session's thread record, bumping its last activity, or
// creates a new thread by posting an introductory message whose handle
// becomes the thread handle. For a given session at most one thread is
// created across the record's lifetime, assuming serialized invocation; two
// processes racing on the very first event may each create a thread and the
// last store write wins.
func (r *Resolver) Resolve(ctx context.Context, id types.SessionID, cwd string) (*types.ThreadRecord, error) {
	record, err := r.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load thread record: %w", err)
	}

	if record != nil {
		record.LastActivityMS = r.now().UnixMilli()
		if err := r.store.Save(ctx, record); err != nil {
			return nil, fmt.Errorf("bump last activity: %w", err)
		}
		return record, nil
	}

	intro := format.SessionStart(id, cwd, r.now())
	intro.Channel = r.channel
	posted, err := r.messenger.Post(ctx, intro)
	if err != nil {
		// No partial record is persisted on post failure.
		return nil, fmt.Errorf("create thread: %w", err)
	}

	record = &types.ThreadRecord{
		SessionID:      id,
		Channel:        posted.Channel,
		ThreadHandle:   posted.Handle,
		LastActivityMS: r.now().UnixMilli(),
	}
	if err := r.store.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("persist thread record: %w", err)
	}
	return record, nil
}
