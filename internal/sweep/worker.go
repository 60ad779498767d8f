// Package sweep expires overdue video requests on a schedule.
//
// The sweep is the only actor allowed to move a video to EXPIRED and the
// only sender of the expiration email. Both steps go through the store's
// merge contract, so any number of overlapping sweep passes converge on one
// EXPIRED transition and one delivered email per lapsed request.
package sweep

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"talentgate/internal/candidacy/engine"
	"talentgate/internal/candidacy/models"
	"talentgate/internal/candidacy/ports"
	id "talentgate/pkg/domain"
	dErrors "talentgate/pkg/domain-errors"
	audit "talentgate/pkg/platform/audit"
	"talentgate/pkg/requestcontext"
)

var (
	sweepPasses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "talentgate_sweep_passes_total",
		Help: "Completed expiration sweep passes",
	})
	sweepExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "talentgate_sweep_expired_total",
		Help: "Video requests moved to EXPIRED by the sweep",
	})
	sweepEmailsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "talentgate_sweep_expiration_emails_total",
		Help: "Expiration emails handed to the notifier",
	})
	sweepErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "talentgate_sweep_errors_total",
		Help: "Per-candidacy sweep failures",
	})
)

// errAlreadyHandled aborts a merge whose work another pass already did.
var errAlreadyHandled = errors.New("already handled by another sweep pass")

// Worker runs the expiration sweep.
type Worker struct {
	store          ports.LedgerStore
	engine         *engine.Engine
	notifier       ports.Notifier
	auditPublisher audit.Publisher
	logger         *slog.Logger
	interval       time.Duration
}

// Option configures the worker.
type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(w *Worker) { w.auditPublisher = publisher }
}

// WithInterval overrides the default pass interval.
func WithInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

func New(store ports.LedgerStore, eng *engine.Engine, notifier ports.Notifier, opts ...Option) *Worker {
	w := &Worker{
		store:    store,
		engine:   eng,
		notifier: notifier,
		logger:   slog.Default(),
		interval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run executes sweep passes until the context is canceled. The first pass
// runs immediately so a restart catches up without waiting an interval.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "expiration sweep stopping")
			return ctx.Err()
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single sweep pass: expire every overdue request, then
// finish deliveries a previous pass started but never confirmed. All
// candidacies in one pass observe the same "now". A failing candidacy is
// logged and skipped; it gets another chance next pass.
func (w *Worker) RunOnce(ctx context.Context) {
	now := requestcontext.Now(ctx)
	ctx = requestcontext.WithTime(ctx, now)

	overdue, err := w.store.ListOverdueRequested(ctx, now)
	if err != nil {
		w.logger.ErrorContext(ctx, "failed to list overdue requests", "error", err)
		sweepErrors.Inc()
		return
	}
	for _, c := range overdue {
		if err := w.expireOne(ctx, c); err != nil {
			w.logger.ErrorContext(ctx, "failed to expire candidacy",
				"candidacy_id", c.ID,
				"error", err,
			)
			sweepErrors.Inc()
		}
	}

	unsent, err := w.store.ListExpiredUnsent(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "failed to list unsent expirations", "error", err)
		sweepErrors.Inc()
		return
	}
	for _, c := range unsent {
		if err := w.deliverOne(ctx, c); err != nil {
			w.logger.ErrorContext(ctx, "failed to deliver expiration email",
				"candidacy_id", c.ID,
				"error", err,
			)
			sweepErrors.Inc()
		}
	}

	sweepPasses.Inc()
	w.logger.InfoContext(ctx, "sweep pass complete",
		"overdue", len(overdue),
		"recovered", len(unsent),
	)
}

// expireOne applies the EXPIRED transition, then delivers. The engine
// revalidates the deadline against the current ledger inside the merge, so
// a submission that raced in between the listing and the merge wins and the
// expiry is dropped.
func (w *Worker) expireOne(ctx context.Context, c *models.Candidacy) error {
	now := requestcontext.Now(ctx)

	merged, err := w.store.Merge(ctx, c.ID, func(l *models.Ledger) error {
		next, _, err := w.engine.Apply(c.ID, *l, models.ExpireVideo{}, now)
		if err != nil {
			return err
		}
		*l = next
		return nil
	})
	if err != nil {
		// another actor moved the ledger first; nothing to expire anymore
		if dErrors.HasCode(err, dErrors.CodeIllegalTransition) || dErrors.HasCode(err, dErrors.CodeFeedbackRejected) {
			return nil
		}
		return err
	}

	sweepExpired.Inc()
	w.emitExpired(ctx, merged)
	return w.deliverOne(ctx, merged)
}

// deliverOne sends the expiration email for an EXPIRED candidacy that has
// not been emailed yet. The flag is claimed first in its own merge: exactly
// one concurrent pass wins the claim and sends, the rest see the flag and
// stop. If delivery fails after a claim the flag is released so a later
// pass retries.
func (w *Worker) deliverOne(ctx context.Context, c *models.Candidacy) error {
	if c.Ledger.Video.Status != models.VideoExpired || c.Ledger.Video.ExpiredEmailSent {
		return nil
	}

	_, err := w.store.Merge(ctx, c.ID, func(l *models.Ledger) error {
		if l.Video.Status != models.VideoExpired || l.Video.ExpiredEmailSent {
			return errAlreadyHandled
		}
		l.Video.ExpiredEmailSent = true
		return nil
	})
	if errors.Is(err, errAlreadyHandled) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := w.send(ctx, c); err != nil {
		w.release(ctx, c)
		return err
	}
	sweepEmailsSent.Inc()
	return nil
}

func (w *Worker) send(ctx context.Context, c *models.Candidacy) error {
	if w.notifier == nil {
		return nil
	}

	dedupKey := string(models.EffectSendExpirationEmail)
	if c.Ledger.Video.Deadline != nil {
		dedupKey = models.NewEffect(c.ID, models.EffectSendExpirationEmail, c.Ledger.Video.Deadline.UTC().Format(time.RFC3339)).DedupKey
	}

	if err := w.notifier.Send(ctx, ports.Notification{
		Recipient:    ports.RecipientCandidate,
		RecipientRef: c.CandidateID.String(),
		Template:     ports.TemplateVideoExpired,
		CandidacyID:  c.ID,
		DedupKey:     dedupKey,
	}); err != nil {
		return err
	}
	return w.notifier.Send(ctx, ports.Notification{
		Recipient:    ports.RecipientCompany,
		RecipientRef: c.CompanyID.String(),
		Template:     ports.TemplateVideoExpired,
		CandidacyID:  c.ID,
		DedupKey:     dedupKey,
	})
}

// release undoes a claimed flag after a failed delivery.
func (w *Worker) release(ctx context.Context, c *models.Candidacy) {
	_, err := w.store.Merge(ctx, c.ID, func(l *models.Ledger) error {
		l.Video.ExpiredEmailSent = false
		return nil
	})
	if err != nil {
		w.logger.ErrorContext(ctx, "failed to release expiration email claim",
			"candidacy_id", c.ID,
			"error", err,
		)
	}
}

func (w *Worker) emitExpired(ctx context.Context, c *models.Candidacy) {
	if w.auditPublisher == nil {
		return
	}
	_ = w.auditPublisher.Emit(ctx, audit.Event{
		Category:    audit.EventVideoExpired.Category(),
		Timestamp:   requestcontext.Now(ctx),
		CandidacyID: c.ID,
		Action:      string(audit.EventVideoExpired),
		Actor:       "sweep",
		ActorRole:   id.RoleSystem,
	})
}
