package domain

import dErrors "talentgate/pkg/domain-errors"

// ActorRole classifies who is acting on a candidacy. Access control is
// resolved upstream; the core trusts the role carried by the caller.
type ActorRole string

const (
	// RoleCandidate: the applicant side (submits videos, reads candidate notices).
	RoleCandidate ActorRole = "candidate"
	// RoleCompany: the hiring side (requests videos, decides feedback).
	RoleCompany ActorRole = "company"
	// RoleSystem: automated actors (AI scoring callback, expiration sweep).
	RoleSystem ActorRole = "system"
)

// ParseActorRole validates a role string from a trust boundary.
func ParseActorRole(s string) (ActorRole, error) {
	r := ActorRole(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid actor role: must be 'candidate', 'company' or 'system'")
	}
	return r, nil
}

// IsValid checks if the role is one of the supported enum values.
func (r ActorRole) IsValid() bool {
	switch r {
	case RoleCandidate, RoleCompany, RoleSystem:
		return true
	}
	return false
}

// String returns the string representation.
func (r ActorRole) String() string {
	return string(r)
}
