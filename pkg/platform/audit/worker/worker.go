package worker

import (
	"context"
	"log/slog"

	audit "talentgate/pkg/platform/audit"
)

// Worker consumes audit events from a channel and persists them. A store
// failure is logged and the event dropped rather than crashing the drain
// loop; the audit trail is best-effort by design, the ledger is not.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				if w.logger != nil {
					w.logger.ErrorContext(ctx, "failed to persist audit event",
						"action", event.Action,
						"candidacy_id", event.CandidacyID,
						"error", err,
					)
				}
			}
		}
	}
}
