package handler

import (
	"encoding/json"
	"strings"

	"talentgate/internal/candidacy/models"
	id "talentgate/pkg/domain"
	dErrors "talentgate/pkg/domain-errors"
)

// CreateRequest is the HTTP request body for POST /candidacies.
type CreateRequest struct {
	VacancyID   string `json:"vacancy_id"`
	CandidateID string `json:"candidate_id"`
	CompanyID   string `json:"company_id"`

	// Parsed values (populated by Validate)
	parsedVacancyID   id.VacancyID
	parsedCandidateID id.CandidateID
	parsedCompanyID   id.CompanyID
}

// Validate validates and parses the request.
// Implements the Validator interface for httputil.DecodeAndPrepare.
func (r *CreateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	vacancyID, err := id.ParseVacancyID(strings.TrimSpace(r.VacancyID))
	if err != nil {
		return err
	}
	candidateID, err := id.ParseCandidateID(strings.TrimSpace(r.CandidateID))
	if err != nil {
		return err
	}
	companyID, err := id.ParseCompanyID(strings.TrimSpace(r.CompanyID))
	if err != nil {
		return err
	}

	r.parsedVacancyID = vacancyID
	r.parsedCandidateID = candidateID
	r.parsedCompanyID = companyID
	return nil
}

// ParsedVacancyID returns the validated vacancy ID.
func (r *CreateRequest) ParsedVacancyID() id.VacancyID { return r.parsedVacancyID }

// ParsedCandidateID returns the validated candidate ID.
func (r *CreateRequest) ParsedCandidateID() id.CandidateID { return r.parsedCandidateID }

// ParsedCompanyID returns the validated company ID.
func (r *CreateRequest) ParsedCompanyID() id.CompanyID { return r.parsedCompanyID }

// SubmitVideoRequest is the HTTP request body for POST /candidacies/{candidacyID}/video/submission.
type SubmitVideoRequest struct {
	FileRef string `json:"file_ref"`
}

// Validate validates the request.
func (r *SubmitVideoRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.FileRef = strings.TrimSpace(r.FileRef)
	if r.FileRef == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "file_ref is required")
	}
	if len(r.FileRef) > 1024 {
		return dErrors.New(dErrors.CodeInvalidInput, "file_ref must be at most 1024 characters")
	}
	return nil
}

// DecideFeedbackRequest is the HTTP request body for POST /candidacies/{candidacyID}/feedback.
type DecideFeedbackRequest struct {
	Status        string `json:"status"`
	Justification string `json:"justification"`

	parsedStatus models.FeedbackStatus
}

// Validate validates and parses the request.
func (r *DecideFeedbackRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	status, err := models.ParseFeedbackStatus(strings.TrimSpace(r.Status))
	if err != nil {
		return err
	}
	r.parsedStatus = status

	r.Justification = strings.TrimSpace(r.Justification)
	if len(r.Justification) > 4096 {
		return dErrors.New(dErrors.CodeInvalidInput, "justification must be at most 4096 characters")
	}
	if status == models.FeedbackRejected && r.Justification == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "justification is required for a rejection")
	}
	return nil
}

// ParsedStatus returns the validated feedback status.
func (r *DecideFeedbackRequest) ParsedStatus() models.FeedbackStatus { return r.parsedStatus }

// RecordAnalysisRequest is the HTTP request body for POST /candidacies/{candidacyID}/analysis.
type RecordAnalysisRequest struct {
	SubmissionID string          `json:"submission_id"`
	Result       json.RawMessage `json:"result"`
}

// Validate validates the request.
func (r *RecordAnalysisRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.SubmissionID = strings.TrimSpace(r.SubmissionID)
	if r.SubmissionID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "submission_id is required")
	}
	if len(r.Result) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "result is required")
	}
	if !json.Valid(r.Result) {
		return dErrors.New(dErrors.CodeInvalidInput, "result must be valid JSON")
	}
	return nil
}
