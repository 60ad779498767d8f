// Package engine holds the candidacy lifecycle state machine. It is the
// single owner of the transition rules: every actor (candidate handler,
// company handler, AI callback, sweep) routes its event through Apply, so
// illegal transitions are rejected by construction instead of by guards
// duplicated across handlers.
//
// Apply is pure: it validates an event against a ledger snapshot and a
// wall-clock instant, and returns the new ledger plus the side effects the
// caller must perform after the merge commits. It never does I/O.
package engine

import (
	"time"

	"github.com/google/uuid"

	"talentgate/internal/candidacy/models"
	"talentgate/internal/platform/config"
	id "talentgate/pkg/domain"
	dErrors "talentgate/pkg/domain-errors"
)

// Engine applies lifecycle events using the configured timing windows.
type Engine struct {
	cfg config.LedgerConfig
}

// New constructs an engine with the given timing rules.
func New(cfg config.LedgerConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Apply validates ev against the ledger snapshot and returns the updated
// ledger plus effects-to-perform. Rejections come back as coded errors
// (illegal_transition, deadline_expired, feedback_rejected); callers treat
// them as normal outcomes of losing a race, not failures.
//
// The deadline guard evaluates against now, not only stored status: a
// submission after the deadline is rejected even when the sweep has not
// yet marked the ledger EXPIRED, so the engine stays the single source of
// truth regardless of sweep timing.
func (e *Engine) Apply(candidacyID id.CandidacyID, ledger models.Ledger, ev models.Event, now time.Time) (models.Ledger, []models.Effect, error) {
	next := ledger.Clone()

	switch event := ev.(type) {
	case models.RequestVideo:
		return e.applyRequest(candidacyID, next, now)
	case models.SubmitVideo:
		return e.applySubmit(candidacyID, next, event, now)
	case models.ViewVideo:
		return e.applyView(candidacyID, next, now)
	case models.ExpireVideo:
		return e.applyExpire(candidacyID, next, now)
	case models.DecideFeedback:
		return e.applyDecide(candidacyID, next, event, now)
	default:
		return ledger, nil, dErrors.New(dErrors.CodeInvalidInput, "unknown event type")
	}
}

// videoAxisOpen rejects every video event once feedback is REJECTED.
func videoAxisOpen(l models.Ledger) error {
	if l.Feedback.Status == models.FeedbackRejected {
		return dErrors.New(dErrors.CodeFeedbackRejected, "candidacy was rejected; video events are closed")
	}
	return nil
}

func (e *Engine) applyRequest(candidacyID id.CandidacyID, l models.Ledger, now time.Time) (models.Ledger, []models.Effect, error) {
	if err := videoAxisOpen(l); err != nil {
		return l, nil, err
	}
	if l.Video.Status != models.VideoNotRequested {
		return l, nil, dErrors.New(dErrors.CodeIllegalTransition,
			"video already "+l.Video.Status.String()+"; request is only valid from NOT_REQUESTED")
	}

	deadline := now.Add(e.cfg.SubmissionWindow)
	l.Video.Status = models.VideoRequested
	l.Video.RequestedAt = &now
	l.Video.Deadline = &deadline
	l.CandidateNotice.MarkActive(models.NoticeVideoRequest)

	effects := []models.Effect{
		models.NewEffect(candidacyID, models.EffectNotifyCandidateRequest, now.UTC().Format(time.RFC3339)),
	}
	return l, effects, nil
}

func (e *Engine) applySubmit(candidacyID id.CandidacyID, l models.Ledger, ev models.SubmitVideo, now time.Time) (models.Ledger, []models.Effect, error) {
	if err := videoAxisOpen(l); err != nil {
		return l, nil, err
	}
	if ev.FileRef == "" {
		return l, nil, dErrors.New(dErrors.CodeInvalidInput, "file_ref is required")
	}

	switch l.Video.Status {
	case models.VideoRequested:
		// first submission: bounded by the candidate deadline
		if l.Video.Deadline != nil && now.After(*l.Video.Deadline) {
			return l, nil, dErrors.New(dErrors.CodeDeadlineExpired, "submission deadline passed")
		}
	case models.VideoSubmitted:
		// pre-review resubmission overwrite is allowed
	default:
		return l, nil, dErrors.New(dErrors.CodeIllegalTransition,
			"video is "+l.Video.Status.String()+"; submission is only valid from REQUESTED or SUBMITTED")
	}

	submissionID := uuid.NewString()
	expiresAt := now.Add(e.cfg.ReviewWindow)
	l.Video.Status = models.VideoSubmitted
	l.Video.SubmittedAt = &now
	l.Video.ExpiresAt = &expiresAt
	l.Video.FileRef = ev.FileRef
	l.Video.SubmissionID = submissionID
	// a new submission invalidates any cached analysis
	l.Analysis = models.Analysis{}
	l.CompanyNotice.MarkActive(models.NoticeVideoReceived)

	effects := []models.Effect{
		models.NewEffect(candidacyID, models.EffectScoreSubmission, submissionID),
		models.NewEffect(candidacyID, models.EffectNotifyCompanySubmission, submissionID),
	}
	return l, effects, nil
}

func (e *Engine) applyView(candidacyID id.CandidacyID, l models.Ledger, now time.Time) (models.Ledger, []models.Effect, error) {
	if err := videoAxisOpen(l); err != nil {
		return l, nil, err
	}
	if l.Video.Status != models.VideoSubmitted {
		return l, nil, dErrors.New(dErrors.CodeIllegalTransition,
			"video is "+l.Video.Status.String()+"; viewing is only valid from SUBMITTED")
	}

	l.Video.Status = models.VideoViewed
	l.Video.ViewedAt = &now
	return l, nil, nil
}

func (e *Engine) applyExpire(candidacyID id.CandidacyID, l models.Ledger, now time.Time) (models.Ledger, []models.Effect, error) {
	if err := videoAxisOpen(l); err != nil {
		return l, nil, err
	}
	if l.Video.Status != models.VideoRequested {
		// applying expire to an already-EXPIRED ledger lands here: the
		// second sweep pass gets a rejection, not a duplicate side effect
		return l, nil, dErrors.New(dErrors.CodeIllegalTransition,
			"video is "+l.Video.Status.String()+"; expiry is only valid from REQUESTED")
	}
	if l.Video.Deadline == nil || !now.After(*l.Video.Deadline) {
		return l, nil, dErrors.New(dErrors.CodeIllegalTransition, "submission deadline has not passed yet")
	}

	l.Video.Status = models.VideoExpired
	l.CompanyNotice.MarkActive(models.NoticeVideoExpiredUnsubmitted)
	l.CandidateNotice.MarkActive(models.NoticeVideoExpiredUnsubmitted)

	effects := []models.Effect{
		models.NewEffect(candidacyID, models.EffectSendExpirationEmail, l.Video.Deadline.UTC().Format(time.RFC3339)),
	}
	return l, effects, nil
}

func (e *Engine) applyDecide(candidacyID id.CandidacyID, l models.Ledger, ev models.DecideFeedback, now time.Time) (models.Ledger, []models.Effect, error) {
	if ev.Status != models.FeedbackApproved && ev.Status != models.FeedbackRejected {
		return l, nil, dErrors.New(dErrors.CodeInvalidInput, "feedback status must be 'APPROVED' or 'REJECTED'")
	}
	if l.Feedback.Decided() {
		return l, nil, dErrors.New(dErrors.CodeIllegalTransition,
			"feedback already decided as "+l.Feedback.Status.String())
	}

	l.Feedback.Status = ev.Status
	l.Feedback.Justification = ev.Justification
	l.Feedback.DecidedAt = &now

	notice := models.NoticeFeedbackApproved
	if ev.Status == models.FeedbackRejected {
		notice = models.NoticeFeedbackRejected
	}
	l.CandidateNotice.MarkActive(notice)

	effects := []models.Effect{
		models.NewEffect(candidacyID, models.EffectNotifyCandidateFeedback, ev.Status.String()),
	}
	return l, effects, nil
}
