// Package publisher provides the channel-backed audit publisher that
// decouples domain logic from audit persistence.
package publisher

import (
	"context"
	"log/slog"
	"time"

	audit "talentgate/pkg/platform/audit"
)

// ChannelPublisher pushes events into a buffered channel drained by the
// audit worker. Emission never blocks the domain path: if the buffer is
// full the event is dropped and counted against the logger, which is
// preferable to stalling a ledger merge on audit backpressure.
type ChannelPublisher struct {
	outbox chan<- audit.Event
	logger *slog.Logger
}

// New constructs a publisher writing into outbox.
func New(outbox chan<- audit.Event, logger *slog.Logger) *ChannelPublisher {
	return &ChannelPublisher{outbox: outbox, logger: logger}
}

// Emit enqueues the event, stamping the timestamp if unset.
func (p *ChannelPublisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.outbox <- event:
		return nil
	default:
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit buffer full, dropping event",
				"action", event.Action,
				"candidacy_id", event.CandidacyID,
			)
		}
		return nil
	}
}
