// Package service orchestrates lifecycle events: it routes every actor's
// event through the engine inside the store's atomic merge, then performs
// the effects the engine requested once the merge has committed.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"talentgate/internal/candidacy/engine"
	"talentgate/internal/candidacy/metrics"
	"talentgate/internal/candidacy/models"
	"talentgate/internal/candidacy/ports"
	id "talentgate/pkg/domain"
	dErrors "talentgate/pkg/domain-errors"
	audit "talentgate/pkg/platform/audit"
	"talentgate/pkg/platform/middleware/metadata"
	"talentgate/pkg/platform/sentinel"
	"talentgate/pkg/requestcontext"
)

// RestrictionInvalidator drops cached restriction views for a company
// whose ledgers changed in a way that can affect blocking.
type RestrictionInvalidator interface {
	Invalidate(ctx context.Context, companyID id.CompanyID) error
}

// Service applies lifecycle events to candidacies.
type Service struct {
	store          ports.LedgerStore
	engine         *engine.Engine
	scorer         ports.Scorer
	notifier       ports.Notifier
	invalidator    RestrictionInvalidator
	auditPublisher audit.Publisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	scoringTimeout time.Duration
}

// Option configures the service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithScorer(scorer ports.Scorer) Option {
	return func(s *Service) { s.scorer = scorer }
}

func WithNotifier(notifier ports.Notifier) Option {
	return func(s *Service) { s.notifier = notifier }
}

func WithInvalidator(inv RestrictionInvalidator) Option {
	return func(s *Service) { s.invalidator = inv }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithScoringTimeout bounds the external scoring call.
func WithScoringTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.scoringTimeout = d
		}
	}
}

func New(store ports.LedgerStore, eng *engine.Engine, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	if eng == nil {
		return nil, fmt.Errorf("lifecycle engine is required")
	}

	svc := &Service{
		store:          store,
		engine:         eng,
		logger:         slog.Default(),
		scoringTimeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Create records a new candidacy for a candidate action against a vacancy.
func (s *Service) Create(ctx context.Context, vacancyID id.VacancyID, candidateID id.CandidateID, companyID id.CompanyID) (*models.Candidacy, error) {
	if vacancyID.IsNil() || candidateID.IsNil() || companyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "vacancy_id, candidate_id and company_id are required")
	}

	c, err := s.store.Create(ctx, vacancyID, candidateID, companyID)
	if err != nil {
		return nil, s.translate(err)
	}

	s.audit(ctx, c.ID, audit.EventCandidacyCreated, "")
	return c, nil
}

// Get returns the current committed candidacy.
func (s *Service) Get(ctx context.Context, candidacyID id.CandidacyID) (*models.Candidacy, error) {
	c, err := s.store.Get(ctx, candidacyID)
	if err != nil {
		return nil, s.translate(err)
	}
	return c, nil
}

// RequestVideo: company asks the candidate for a video interview.
func (s *Service) RequestVideo(ctx context.Context, candidacyID id.CandidacyID) (*models.Candidacy, error) {
	c, err := s.applyEvent(ctx, candidacyID, models.RequestVideo{}, audit.EventVideoRequested)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// SubmitVideo: candidate submits (or pre-review resubmits) a video.
func (s *Service) SubmitVideo(ctx context.Context, candidacyID id.CandidacyID, fileRef string) (*models.Candidacy, error) {
	return s.applyEvent(ctx, candidacyID, models.SubmitVideo{FileRef: fileRef}, audit.EventVideoSubmitted)
}

// ViewVideo: company opens the submission.
func (s *Service) ViewVideo(ctx context.Context, candidacyID id.CandidacyID) (*models.Candidacy, error) {
	return s.applyEvent(ctx, candidacyID, models.ViewVideo{}, audit.EventVideoViewed)
}

// DecideFeedback: company issues the hiring decision.
func (s *Service) DecideFeedback(ctx context.Context, candidacyID id.CandidacyID, status models.FeedbackStatus, justification string) (*models.Candidacy, error) {
	return s.applyEvent(ctx, candidacyID, models.DecideFeedback{Status: status, Justification: justification}, audit.EventFeedbackDecided)
}

// RecordAnalysis merges a scoring result into the analysis subtree.
// Write-once per submission: a result for a superseded or already-scored
// submission is rejected, never overwritten.
func (s *Service) RecordAnalysis(ctx context.Context, candidacyID id.CandidacyID, submissionID string, result json.RawMessage) (*models.Candidacy, error) {
	if submissionID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "submission_id is required")
	}
	if len(result) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "analysis result is required")
	}

	now := requestcontext.Now(ctx)
	c, err := s.store.Merge(ctx, candidacyID, func(l *models.Ledger) error {
		if l.Video.SubmissionID != submissionID {
			return dErrors.New(dErrors.CodeIllegalTransition, "analysis refers to a superseded submission")
		}
		if l.Analysis.Present() {
			return dErrors.New(dErrors.CodeIllegalTransition, "analysis already recorded for this submission")
		}
		l.Analysis = models.Analysis{
			SubmissionID: submissionID,
			Result:       append(json.RawMessage(nil), result...),
			ScoredAt:     &now,
		}
		return nil
	})
	if err != nil {
		return nil, s.translate(err)
	}

	s.audit(ctx, candidacyID, audit.EventAnalysisRecorded, submissionID)
	return c, nil
}

// applyEvent runs the engine inside the store's merge so the transition is
// always validated against the latest committed ledger, then executes the
// returned effects. The effective order of events on one candidacy is the
// order their merges commit.
func (s *Service) applyEvent(ctx context.Context, candidacyID id.CandidacyID, ev models.Event, action audit.AuditEvent) (*models.Candidacy, error) {
	now := requestcontext.Now(ctx)

	var effects []models.Effect
	c, err := s.store.Merge(ctx, candidacyID, func(l *models.Ledger) error {
		next, eff, err := s.engine.Apply(candidacyID, *l, ev, now)
		if err != nil {
			return err
		}
		*l = next
		effects = eff
		return nil
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.ObserveRejected(string(dErrors.CodeOf(s.translate(err))))
		}
		return nil, s.translate(err)
	}

	if s.metrics != nil {
		s.metrics.ObserveApplied(string(ev.Type()))
	}
	s.audit(ctx, candidacyID, action, "")
	s.invalidate(ctx, c.CompanyID)
	s.runEffects(ctx, c, effects)
	return c, nil
}

// runEffects executes effects after the merge committed. Notification
// delivery here is best-effort (failures are logged, the underlying state
// is already committed); the expiration email is deliberately not handled
// here — only the sweep may send it, under the ExpiredEmailSent flag.
func (s *Service) runEffects(ctx context.Context, c *models.Candidacy, effects []models.Effect) {
	for _, eff := range effects {
		switch eff.Type {
		case models.EffectScoreSubmission:
			s.scoreAsync(ctx, c)
		case models.EffectNotifyCandidateRequest:
			s.notify(ctx, ports.Notification{
				Recipient:    ports.RecipientCandidate,
				RecipientRef: c.CandidateID.String(),
				Template:     ports.TemplateVideoRequested,
				CandidacyID:  c.ID,
				DedupKey:     eff.DedupKey,
			})
		case models.EffectNotifyCompanySubmission:
			s.notify(ctx, ports.Notification{
				Recipient:    ports.RecipientCompany,
				RecipientRef: c.CompanyID.String(),
				Template:     ports.TemplateVideoSubmitted,
				CandidacyID:  c.ID,
				DedupKey:     eff.DedupKey,
			})
		case models.EffectNotifyCandidateFeedback:
			s.notify(ctx, ports.Notification{
				Recipient:    ports.RecipientCandidate,
				RecipientRef: c.CandidateID.String(),
				Template:     ports.TemplateFeedbackDecided,
				CandidacyID:  c.ID,
				DedupKey:     eff.DedupKey,
				Payload:      map[string]any{"status": c.Ledger.Feedback.Status},
			})
		}
	}
}

// scoreAsync invokes the external scoring service for the committed
// submission and merges the result in afterward. The call runs detached
// from the request context and never inside a record lock.
func (s *Service) scoreAsync(ctx context.Context, c *models.Candidacy) {
	if s.scorer == nil {
		return
	}

	req := ports.ScoreRequest{
		CandidacyID:  c.ID,
		VacancyID:    c.VacancyID,
		CandidateID:  c.CandidateID,
		SubmissionID: c.Ledger.Video.SubmissionID,
		FileRef:      c.Ledger.Video.FileRef,
	}
	requestID := requestcontext.RequestID(ctx)

	go func() {
		scoreCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.scoringTimeout)
		defer cancel()

		start := time.Now()
		result, err := s.scorer.Score(scoreCtx, req)
		if s.metrics != nil {
			s.metrics.ObserveScoring(start)
		}
		if err != nil {
			s.logger.ErrorContext(scoreCtx, "scoring call failed",
				"request_id", requestID,
				"candidacy_id", c.ID,
				"submission_id", req.SubmissionID,
				"error", err,
			)
			return
		}

		if _, err := s.RecordAnalysis(scoreCtx, c.ID, req.SubmissionID, result); err != nil {
			// a superseded submission is expected when the candidate
			// resubmitted while scoring was in flight
			if dErrors.HasCode(err, dErrors.CodeIllegalTransition) {
				s.logger.InfoContext(scoreCtx, "discarding stale scoring result",
					"candidacy_id", c.ID,
					"submission_id", req.SubmissionID,
				)
				return
			}
			s.logger.ErrorContext(scoreCtx, "failed to record analysis",
				"candidacy_id", c.ID,
				"submission_id", req.SubmissionID,
				"error", err,
			)
		}
	}()
}

func (s *Service) notify(ctx context.Context, n ports.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, n); err != nil {
		s.logger.ErrorContext(ctx, "notification delivery failed",
			"candidacy_id", n.CandidacyID,
			"template", n.Template,
			"error", err,
		)
	}
}

func (s *Service) invalidate(ctx context.Context, companyID id.CompanyID) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, companyID); err != nil {
		s.logger.WarnContext(ctx, "restriction cache invalidation failed",
			"company_id", companyID,
			"error", err,
		)
	}
}

func (s *Service) audit(ctx context.Context, candidacyID id.CandidacyID, action audit.AuditEvent, detail string) {
	actor := requestcontext.Actor(ctx)
	event := audit.Event{
		Category:    action.Category(),
		Timestamp:   requestcontext.Now(ctx),
		CandidacyID: candidacyID,
		Action:      string(action),
		ActorRole:   actor.Role,
		Detail:      detail,
		RequestID:   requestcontext.RequestID(ctx),
		ClientIP:    metadata.ClientIP(ctx),
		UserAgent:   metadata.UserAgent(ctx),
	}
	switch actor.Role {
	case id.RoleCompany:
		event.Actor = actor.CompanyID.String()
	case id.RoleCandidate:
		event.Actor = actor.CandidateID.String()
	case id.RoleSystem:
		event.Actor = "system"
	}

	s.logger.InfoContext(ctx, "candidacy event",
		"event", event.Action,
		"candidacy_id", candidacyID,
		"actor_role", event.ActorRole,
		"request_id", event.RequestID,
	)
	if s.auditPublisher != nil {
		_ = s.auditPublisher.Emit(ctx, event)
	}
}

// translate maps store sentinels to coded errors and passes coded
// rejections through untouched.
func (s *Service) translate(err error) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "candidacy not found")
	case errors.Is(err, sentinel.ErrVersionConflict):
		if s.metrics != nil {
			s.metrics.MergeConflicts.Inc()
		}
		return dErrors.Wrap(err, dErrors.CodeConflict, "ledger merge contention exhausted retries")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "ledger operation failed")
	}
}
