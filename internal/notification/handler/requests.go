package handler

import (
	"strings"

	id "talentgate/pkg/domain"
	dErrors "talentgate/pkg/domain-errors"
)

// ClearAllRequest is the HTTP request body for POST /notifications/clear.
// An empty candidacy list clears the viewer's entire feed.
type ClearAllRequest struct {
	CandidacyIDs []string `json:"candidacy_ids"`

	parsed []id.CandidacyID
}

// Validate validates and parses the request.
func (r *ClearAllRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.CandidacyIDs) > 500 {
		return dErrors.New(dErrors.CodeInvalidInput, "at most 500 candidacy_ids per request")
	}
	for _, raw := range r.CandidacyIDs {
		candidacyID, err := id.ParseCandidacyID(strings.TrimSpace(raw))
		if err != nil {
			return err
		}
		r.parsed = append(r.parsed, candidacyID)
	}
	return nil
}

// ParsedCandidacyIDs returns the validated candidacy IDs.
func (r *ClearAllRequest) ParsedCandidacyIDs() []id.CandidacyID { return r.parsed }
