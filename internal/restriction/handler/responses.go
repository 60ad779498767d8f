package handler

import (
	"time"

	"talentgate/internal/restriction"
)

// RestrictionResponse is the HTTP response for GET /companies/{companyID}/restriction.
type RestrictionResponse struct {
	CompanyID  string          `json:"company_id"`
	Blocked    bool            `json:"blocked"`
	Causes     []CauseResponse `json:"causes"`
	ComputedAt time.Time       `json:"computed_at"`
}

// CauseResponse is one overdue review backing the restriction.
type CauseResponse struct {
	CandidacyID string     `json:"candidacy_id"`
	VacancyID   string     `json:"vacancy_id"`
	CandidateID string     `json:"candidate_id"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

// FromView converts a domain view to an HTTP response.
func FromView(view *restriction.View) *RestrictionResponse {
	resp := &RestrictionResponse{
		CompanyID:  view.CompanyID.String(),
		Blocked:    view.Blocked,
		Causes:     make([]CauseResponse, 0, len(view.Causes)),
		ComputedAt: view.ComputedAt,
	}
	for _, cause := range view.Causes {
		resp.Causes = append(resp.Causes, CauseResponse{
			CandidacyID: cause.CandidacyID.String(),
			VacancyID:   cause.VacancyID.String(),
			CandidateID: cause.CandidateID.String(),
			SubmittedAt: cause.SubmittedAt,
			ExpiresAt:   cause.ExpiresAt,
		})
	}
	return resp
}
