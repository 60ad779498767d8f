// Package notify provides Notifier implementations for outbound deliveries.
package notify

import (
	"context"
	"log/slog"

	"talentgate/internal/candidacy/ports"
)

// SlogNotifier logs deliveries instead of sending them. Used in dev and in
// deployments without a broker.
type SlogNotifier struct {
	logger *slog.Logger
}

// NewSlogNotifier constructs a log-only notifier.
func NewSlogNotifier(logger *slog.Logger) *SlogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogNotifier{logger: logger}
}

// Send logs the notification and reports success.
func (n *SlogNotifier) Send(ctx context.Context, notification ports.Notification) error {
	n.logger.InfoContext(ctx, "notification delivery",
		"recipient", notification.Recipient,
		"recipient_ref", notification.RecipientRef,
		"template", notification.Template,
		"candidacy_id", notification.CandidacyID,
		"dedup_key", notification.DedupKey,
	)
	return nil
}
