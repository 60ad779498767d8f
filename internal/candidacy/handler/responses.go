package handler

import (
	"encoding/json"
	"time"

	"talentgate/internal/candidacy/models"
	id "talentgate/pkg/domain"
)

// CandidacyResponse is the HTTP representation of a candidacy.
type CandidacyResponse struct {
	ID          string            `json:"id"`
	VacancyID   string            `json:"vacancy_id"`
	CandidateID string            `json:"candidate_id"`
	CompanyID   string            `json:"company_id"`
	Video       VideoResponse     `json:"video"`
	Feedback    FeedbackResponse  `json:"feedback"`
	Analysis    *AnalysisResponse `json:"analysis,omitempty"`
	Version     int64             `json:"version"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// VideoResponse is the video portion of the response.
type VideoResponse struct {
	Status       string     `json:"status"`
	RequestedAt  *time.Time `json:"requested_at,omitempty"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	ViewedAt     *time.Time `json:"viewed_at,omitempty"`
	FileRef      string     `json:"file_ref,omitempty"`
	SubmissionID string     `json:"submission_id,omitempty"`
}

// FeedbackResponse is the feedback portion of the response.
type FeedbackResponse struct {
	Status        string     `json:"status"`
	Justification string     `json:"justification,omitempty"`
	DecidedAt     *time.Time `json:"decided_at,omitempty"`
}

// AnalysisResponse is the scoring portion of the response.
type AnalysisResponse struct {
	SubmissionID string          `json:"submission_id"`
	Result       json.RawMessage `json:"result"`
	ScoredAt     *time.Time      `json:"scored_at,omitempty"`
}

// FromCandidacy converts a domain candidacy to an HTTP response for the
// given viewer role. The scoring result is company-facing; candidates see
// their own lifecycle state but not the analysis.
func FromCandidacy(c *models.Candidacy, viewer id.ActorRole) *CandidacyResponse {
	resp := &CandidacyResponse{
		ID:          c.ID.String(),
		VacancyID:   c.VacancyID.String(),
		CandidateID: c.CandidateID.String(),
		CompanyID:   c.CompanyID.String(),
		Video: VideoResponse{
			Status:       string(c.Ledger.Video.Status),
			RequestedAt:  c.Ledger.Video.RequestedAt,
			Deadline:     c.Ledger.Video.Deadline,
			SubmittedAt:  c.Ledger.Video.SubmittedAt,
			ExpiresAt:    c.Ledger.Video.ExpiresAt,
			ViewedAt:     c.Ledger.Video.ViewedAt,
			FileRef:      c.Ledger.Video.FileRef,
			SubmissionID: c.Ledger.Video.SubmissionID,
		},
		Feedback: FeedbackResponse{
			Status:        string(c.Ledger.Feedback.Status),
			Justification: c.Ledger.Feedback.Justification,
			DecidedAt:     c.Ledger.Feedback.DecidedAt,
		},
		Version:   c.Version,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}

	if c.Ledger.Analysis.Present() && viewer != id.RoleCandidate {
		resp.Analysis = &AnalysisResponse{
			SubmissionID: c.Ledger.Analysis.SubmissionID,
			Result:       c.Ledger.Analysis.Result,
			ScoredAt:     c.Ledger.Analysis.ScoredAt,
		}
	}

	return resp
}
