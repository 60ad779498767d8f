package models

import (
	"fmt"

	id "talentgate/pkg/domain"
)

// EventType names the lifecycle events actors can apply to a ledger.
type EventType string

const (
	EventRequestVideo   EventType = "request_video"
	EventSubmitVideo    EventType = "submit_video"
	EventViewVideo      EventType = "view_video"
	EventExpireVideo    EventType = "expire_video"
	EventDecideFeedback EventType = "decide_feedback"
)

// Event is a lifecycle event. Implementations are plain data; the engine
// alone interprets them against the transition table.
type Event interface {
	Type() EventType
}

// RequestVideo: company asks the candidate for a video interview.
type RequestVideo struct{}

// SubmitVideo: candidate submits (or pre-review resubmits) a video.
type SubmitVideo struct {
	FileRef string
}

// ViewVideo: company opens the submission; the video becomes immutable.
type ViewVideo struct{}

// ExpireVideo: the sweep resolves an overdue request. Only the sweep
// applies this event.
type ExpireVideo struct{}

// DecideFeedback: company issues the hiring decision.
type DecideFeedback struct {
	Status        FeedbackStatus
	Justification string
}

func (RequestVideo) Type() EventType   { return EventRequestVideo }
func (SubmitVideo) Type() EventType    { return EventSubmitVideo }
func (ViewVideo) Type() EventType      { return EventViewVideo }
func (ExpireVideo) Type() EventType    { return EventExpireVideo }
func (DecideFeedback) Type() EventType { return EventDecideFeedback }

// EffectType names the side effects the engine requests from its caller.
type EffectType string

const (
	// EffectScoreSubmission: invoke the external scoring service for the
	// current submission, outside any record lock.
	EffectScoreSubmission EffectType = "score_submission"
	// EffectNotifyCandidateRequest: tell the candidate a video was requested.
	EffectNotifyCandidateRequest EffectType = "notify_candidate_request"
	// EffectNotifyCompanySubmission: tell the company a video arrived.
	EffectNotifyCompanySubmission EffectType = "notify_company_submission"
	// EffectNotifyCandidateFeedback: tell the candidate the decision.
	EffectNotifyCandidateFeedback EffectType = "notify_candidate_feedback"
	// EffectSendExpirationEmail: email both sides that the request expired
	// unsubmitted. Guarded by the ledger's ExpiredEmailSent flag.
	EffectSendExpirationEmail EffectType = "send_expiration_email"
)

// Effect is a side effect to perform after the ledger merge commits. The
// engine never performs I/O; it returns effects as data. DedupKey carries
// enough identity for a caller to discard an effect it already performed.
type Effect struct {
	CandidacyID id.CandidacyID
	Type        EffectType
	DedupKey    string
}

// NewEffect builds an effect with a dedup key scoped to one occurrence
// (e.g. one submission or one expiry) of the effect on one candidacy.
func NewEffect(candidacyID id.CandidacyID, t EffectType, occurrence string) Effect {
	return Effect{
		CandidacyID: candidacyID,
		Type:        t,
		DedupKey:    fmt.Sprintf("%s:%s:%s", candidacyID, t, occurrence),
	}
}
