// Package domain provides shared domain primitives: typed identifiers and
// enumerations used across module boundaries.
//
// IDs are distinct named types over uuid.UUID so the compiler rejects
// accidental cross-assignment (a CandidacyID can never be passed where a
// CompanyID is expected). Parse functions enforce validity at trust
// boundaries: non-empty, well-formed, non-nil UUIDs only.
package domain

import (
	"github.com/google/uuid"

	dErrors "talentgate/pkg/domain-errors"
)

// CandidacyID identifies one candidate's application against one vacancy.
type CandidacyID uuid.UUID

// VacancyID identifies a job vacancy.
type VacancyID uuid.UUID

// CandidateID identifies a candidate account.
type CandidateID uuid.UUID

// CompanyID identifies a company account.
type CompanyID uuid.UUID

// NewCandidacyID generates a fresh candidacy identifier.
func NewCandidacyID() CandidacyID {
	return CandidacyID(uuid.New())
}

// ParseCandidacyID validates and returns a CandidacyID.
func ParseCandidacyID(s string) (CandidacyID, error) {
	u, err := parseUUID(s, "candidacy_id")
	return CandidacyID(u), err
}

// ParseVacancyID validates and returns a VacancyID.
func ParseVacancyID(s string) (VacancyID, error) {
	u, err := parseUUID(s, "vacancy_id")
	return VacancyID(u), err
}

// ParseCandidateID validates and returns a CandidateID.
func ParseCandidateID(s string) (CandidateID, error) {
	u, err := parseUUID(s, "candidate_id")
	return CandidateID(u), err
}

// ParseCompanyID validates and returns a CompanyID.
func ParseCompanyID(s string) (CompanyID, error) {
	u, err := parseUUID(s, "company_id")
	return CompanyID(u), err
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be the nil UUID")
	}
	return u, nil
}

func (id CandidacyID) String() string { return uuid.UUID(id).String() }
func (id VacancyID) String() string   { return uuid.UUID(id).String() }
func (id CandidateID) String() string { return uuid.UUID(id).String() }
func (id CompanyID) String() string   { return uuid.UUID(id).String() }

// IsNil reports whether the ID is the zero value.
func (id CandidacyID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id VacancyID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id CandidateID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id CompanyID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// MarshalText implements encoding.TextMarshaler so IDs serialize as UUID
// strings in JSON payloads and map keys.
func (id CandidacyID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id VacancyID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id CandidateID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id CompanyID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *CandidacyID) UnmarshalText(b []byte) error {
	parsed, err := ParseCandidacyID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *VacancyID) UnmarshalText(b []byte) error {
	parsed, err := ParseVacancyID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *CandidateID) UnmarshalText(b []byte) error {
	parsed, err := ParseCandidateID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *CompanyID) UnmarshalText(b []byte) error {
	parsed, err := ParseCompanyID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
