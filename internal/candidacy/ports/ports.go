// Package ports defines shared interfaces for the candidacy module.
// Interfaces are placed here when consumed by multiple services to avoid duplication.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks Scorer,Notifier

import (
	"context"
	"encoding/json"
	"time"

	"talentgate/internal/candidacy/models"
	id "talentgate/pkg/domain"
)

// PatchFn mutates a ledger snapshot in place. Patches are expressed over
// the whole ledger but are expected to touch only the caller's owned
// subtree; returning an error aborts the merge without writing.
type PatchFn func(*models.Ledger) error

// LedgerStore is the atomic per-record read/merge/write primitive over the
// candidacy document.
//
// Merge applies patch atomically with respect to other merges on the same
// candidacy: the written ledger is always derived from the latest committed
// read, never a stale snapshot, so two actors patching disjoint subtrees
// can never erase each other's writes. Implementations use either a
// per-record mutual exclusion scope or optimistic version compare-and-set
// with bounded retry (exhaustion surfaces as sentinel.ErrVersionConflict,
// which services translate to the retryable conflict code).
type LedgerStore interface {
	// Create records a fresh candidacy with an initial ledger
	// (video NOT_REQUESTED, feedback PENDING).
	Create(ctx context.Context, vacancyID id.VacancyID, candidateID id.CandidateID, companyID id.CompanyID) (*models.Candidacy, error)

	// Get returns the current committed candidacy.
	Get(ctx context.Context, candidacyID id.CandidacyID) (*models.Candidacy, error)

	// Merge atomically applies patch to the current ledger and returns the
	// committed candidacy.
	Merge(ctx context.Context, candidacyID id.CandidacyID, patch PatchFn) (*models.Candidacy, error)

	// ListByCompany returns all candidacies against the company's vacancies.
	ListByCompany(ctx context.Context, companyID id.CompanyID) ([]*models.Candidacy, error)

	// ListByCandidate returns all of the candidate's candidacies.
	ListByCandidate(ctx context.Context, candidateID id.CandidateID) ([]*models.Candidacy, error)

	// ListOverdueRequested returns candidacies still REQUESTED past their
	// submission deadline, excluding rejected candidacies (the video axis
	// is closed for those).
	ListOverdueRequested(ctx context.Context, now time.Time) ([]*models.Candidacy, error)

	// ListExpiredUnsent returns EXPIRED candidacies whose expiration email
	// has not been confirmed sent. Lets the sweep finish deliveries that
	// crashed between the state merge and the flag merge.
	ListExpiredUnsent(ctx context.Context) ([]*models.Candidacy, error)
}

// Scorer is the external AI scoring collaborator. Invoked once per
// submitted video, always outside any record lock; the opaque result is
// merged into the analysis subtree afterward.
type Scorer interface {
	Score(ctx context.Context, req ScoreRequest) (json.RawMessage, error)
}

// ScoreRequest carries the candidacy context the scoring service needs.
type ScoreRequest struct {
	CandidacyID  id.CandidacyID `json:"candidacy_id"`
	VacancyID    id.VacancyID   `json:"vacancy_id"`
	CandidateID  id.CandidateID `json:"candidate_id"`
	SubmissionID string         `json:"submission_id"`
	FileRef      string         `json:"file_ref"`
}

// Notifier delivers notifications to external channels (email, push).
// Delivery is at-least-once from the platform's perspective; effect dedup
// keys and the ledger's ExpiredEmailSent flag make the critical sends
// exactly-once-effective.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// TemplateKind selects the delivery template.
type TemplateKind string

const (
	TemplateVideoRequested  TemplateKind = "video_requested"
	TemplateVideoSubmitted  TemplateKind = "video_submitted"
	TemplateVideoExpired    TemplateKind = "video_expired"
	TemplateFeedbackDecided TemplateKind = "feedback_decided"
)

// RecipientKind distinguishes the addressee side.
type RecipientKind string

const (
	RecipientCandidate RecipientKind = "candidate"
	RecipientCompany   RecipientKind = "company"
)

// Notification is one delivery request.
type Notification struct {
	Recipient    RecipientKind  `json:"recipient"`
	RecipientRef string         `json:"recipient_ref"`
	Template     TemplateKind   `json:"template"`
	CandidacyID  id.CandidacyID `json:"candidacy_id"`
	DedupKey     string         `json:"dedup_key"`
	Payload      map[string]any `json:"payload,omitempty"`
}
