// Package restriction derives the company-level blocking view from the
// candidacy ledgers. The view is never stored as authoritative state: it is
// recomputed from committed ledgers and only cached for read traffic.
package restriction

import (
	"time"

	id "talentgate/pkg/domain"
)

// Cause is one overdue review backing a company restriction: a submitted
// video whose review window has lapsed while feedback is still pending.
type Cause struct {
	CandidacyID id.CandidacyID `json:"candidacy_id"`
	VacancyID   id.VacancyID   `json:"vacancy_id"`
	CandidateID id.CandidateID `json:"candidate_id"`
	SubmittedAt *time.Time     `json:"submitted_at,omitempty"`
	ExpiresAt   time.Time      `json:"expires_at"`
}

// View is the derived restriction state for one company at one instant.
type View struct {
	CompanyID  id.CompanyID `json:"company_id"`
	Blocked    bool         `json:"blocked"`
	Causes     []Cause      `json:"causes,omitempty"`
	ComputedAt time.Time    `json:"computed_at"`
}
