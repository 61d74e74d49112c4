package relay

import (
	"context"
	"log/slog"

	"github.com/user/clawrelay/internal/format"
	"github.com/user/clawrelay/internal/transcript"
	"github.com/user/clawrelay/internal/types"
)

// drain posts every transcript turn not yet delivered, in transcript order.
// Each fingerprint is recorded immediately after its successful post, so a
// crash mid-drain retries only the remaining turns on the next terminal
// event. Failures on one turn never abort the rest.
func (p *Pipeline) drain(
	ctx context.Context,
	log *slog.Logger,
	sessionID types.SessionID,
	record *types.ThreadRecord,
	path string,
) error {
	turns, err := transcript.ReadAllTurns(path)
	if err != nil {
		return err
	}

	for i, turn := range turns {
		// Turns with no extractable text are skipped, not fingerprinted.
		if !turn.HasText() {
			continue
		}

		fp := turn.Fingerprint()
		seen, err := p.fingerprints.Has(ctx, sessionID, fp)
		if err != nil {
			log.Warn("fingerprint lookup failed", "turn", i, "error", err)
			continue
		}
		if seen {
			continue
		}

		msg := format.TranscriptTurn(turn.Summary())
		msg.Channel = record.Channel
		msg.ThreadHandle = record.ThreadHandle
		if _, err := p.messenger.Post(ctx, msg); err != nil {
			log.Warn("turn delivery failed", "turn", i, "error", err)
			continue
		}
		if err := p.fingerprints.Add(ctx, sessionID, fp); err != nil {
			// The turn was posted; a missing fingerprint risks one duplicate
			// on the next drain, which is preferable to losing the turn.
			log.Warn("fingerprint record failed", "turn", i, "error", err)
		}
	}
	return nil
}
