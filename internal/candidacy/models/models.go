// Package models defines the candidacy record and its ledger: the single
// semi-structured document that tracks the video interview cycle and the
// feedback decision for one (vacancy, candidate) pair.
package models

import (
	"encoding/json"
	"time"

	id "talentgate/pkg/domain"
	dErrors "talentgate/pkg/domain-errors"
)

// VideoStatus is the video-interview axis of the ledger.
type VideoStatus string

const (
	VideoNotRequested VideoStatus = "NOT_REQUESTED"
	VideoRequested    VideoStatus = "REQUESTED"
	VideoSubmitted    VideoStatus = "SUBMITTED"
	VideoViewed       VideoStatus = "VIEWED"
	VideoExpired      VideoStatus = "EXPIRED"
)

// IsValid checks if the status is one of the supported enum values.
func (s VideoStatus) IsValid() bool {
	switch s {
	case VideoNotRequested, VideoRequested, VideoSubmitted, VideoViewed, VideoExpired:
		return true
	}
	return false
}

func (s VideoStatus) String() string { return string(s) }

// FeedbackStatus is the company decision axis of the ledger. It is
// independent from the video axis but cross-constrains it: REJECTED is
// terminal for video events.
type FeedbackStatus string

const (
	FeedbackPending  FeedbackStatus = "PENDING"
	FeedbackApproved FeedbackStatus = "APPROVED"
	FeedbackRejected FeedbackStatus = "REJECTED"
)

// ParseFeedbackStatus validates a decision value from a trust boundary.
// PENDING is not a decision, so only APPROVED and REJECTED parse.
func ParseFeedbackStatus(s string) (FeedbackStatus, error) {
	st := FeedbackStatus(s)
	if st != FeedbackApproved && st != FeedbackRejected {
		return "", dErrors.New(dErrors.CodeInvalidInput, "feedback status must be 'APPROVED' or 'REJECTED'")
	}
	return st, nil
}

func (s FeedbackStatus) IsValid() bool {
	switch s {
	case FeedbackPending, FeedbackApproved, FeedbackRejected:
		return true
	}
	return false
}

func (s FeedbackStatus) String() string { return string(s) }

// VideoState is the candidate-and-sweep-owned subtree of the ledger.
//
// Two independent expiries live here: Deadline bounds the candidate's
// submission window (set entering REQUESTED), ExpiresAt bounds the
// company's review window (set entering SUBMITTED). Only the latter feeds
// the company-level restriction.
type VideoState struct {
	Status      VideoStatus `json:"status"`
	RequestedAt *time.Time  `json:"requested_at,omitempty"`
	Deadline    *time.Time  `json:"deadline,omitempty"`
	SubmittedAt *time.Time  `json:"submitted_at,omitempty"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"`
	ViewedAt    *time.Time  `json:"viewed_at,omitempty"`
	FileRef     string      `json:"file_ref,omitempty"`
	// SubmissionID identifies the current submission; a pre-review
	// resubmission mints a new one so stale scoring results are discarded.
	SubmissionID string `json:"submission_id,omitempty"`
	// ExpiredEmailSent is monotonic (false to true only). It guarantees
	// the expiration email fires at most once per REQUESTED->EXPIRED
	// transition no matter how often the sweep re-runs.
	ExpiredEmailSent bool `json:"expired_email_sent"`
}

// FeedbackState is the company-owned subtree of the ledger.
type FeedbackState struct {
	Status        FeedbackStatus `json:"status"`
	Justification string         `json:"justification,omitempty"`
	DecidedAt     *time.Time     `json:"decided_at,omitempty"`
}

// Decided reports whether the company has issued a decision.
func (f FeedbackState) Decided() bool {
	return f.Status == FeedbackApproved || f.Status == FeedbackRejected
}

// Analysis caches the external scoring result for one submission.
// Write-once per submission: once Result is set for a SubmissionID it is
// never overwritten; a resubmission resets the whole subtree instead.
type Analysis struct {
	SubmissionID string          `json:"submission_id,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	ScoredAt     *time.Time      `json:"scored_at,omitempty"`
}

// Present reports whether a scoring result has been cached.
func (a Analysis) Present() bool {
	return len(a.Result) > 0
}

// Ledger is the mutable per-candidacy state document. Subtrees are owned
// by exactly one category of actor for writes, but they live in one record,
// so all mutation goes through the store's atomic merge.
type Ledger struct {
	Video           VideoState    `json:"video"`
	Feedback        FeedbackState `json:"feedback"`
	Analysis        Analysis      `json:"analysis"`
	CompanyNotice   NoticeMap     `json:"company_notice"`
	CandidateNotice NoticeMap     `json:"candidate_notice"`
}

// NewLedger returns the initial ledger for a freshly recorded candidacy.
func NewLedger() Ledger {
	return Ledger{
		Video:           VideoState{Status: VideoNotRequested},
		Feedback:        FeedbackState{Status: FeedbackPending},
		CompanyNotice:   NoticeMap{},
		CandidateNotice: NoticeMap{},
	}
}

// Clone deep-copies the ledger so patch functions never mutate a stored
// snapshot in place.
func (l Ledger) Clone() Ledger {
	out := l
	out.CompanyNotice = l.CompanyNotice.clone()
	out.CandidateNotice = l.CandidateNotice.clone()
	if len(l.Analysis.Result) > 0 {
		out.Analysis.Result = append(json.RawMessage(nil), l.Analysis.Result...)
	}
	return out
}

// NoticeFor returns the notice map owned by the given viewer role.
func (l *Ledger) NoticeFor(role id.ActorRole) NoticeMap {
	if role == id.RoleCompany {
		return l.CompanyNotice
	}
	return l.CandidateNotice
}

// Candidacy is one candidate's application record against one vacancy.
// Reference fields are immutable after creation; all mutation targets the
// ledger through the store's merge contract.
type Candidacy struct {
	ID          id.CandidacyID `json:"id"`
	VacancyID   id.VacancyID   `json:"vacancy_id"`
	CandidateID id.CandidateID `json:"candidate_id"`
	CompanyID   id.CompanyID   `json:"company_id"`
	Ledger      Ledger         `json:"ledger"`
	// Version is the optimistic concurrency token; every committed merge
	// increments it.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone deep-copies the candidacy.
func (c *Candidacy) Clone() *Candidacy {
	out := *c
	out.Ledger = c.Ledger.Clone()
	return &out
}
