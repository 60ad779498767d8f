package models

import (
	id "talentgate/pkg/domain"
	dErrors "talentgate/pkg/domain-errors"
)

// NoticeType enumerates the notification kinds derived from ledger state.
// Notifications are never stored as rows; each type is "active" whenever
// the ledger implies it, and these maps only carry the per-viewer
// read/deleted flags.
type NoticeType string

const (
	NoticeNewCandidate            NoticeType = "new_candidate"
	NoticeVideoRequest            NoticeType = "video_request"
	NoticeVideoReceived           NoticeType = "video_received"
	NoticeVideoExpiredUnsubmitted NoticeType = "video_expired_unsubmitted"
	NoticeFeedbackApproved        NoticeType = "feedback_approved"
	NoticeFeedbackRejected        NoticeType = "feedback_rejected"
)

// ParseNoticeType validates a notification type from a trust boundary.
func ParseNoticeType(s string) (NoticeType, error) {
	t := NoticeType(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown notification type: "+s)
	}
	return t, nil
}

// IsValid checks if the notice type is one of the supported enum values.
func (t NoticeType) IsValid() bool {
	switch t {
	case NoticeNewCandidate, NoticeVideoRequest, NoticeVideoReceived,
		NoticeVideoExpiredUnsubmitted, NoticeFeedbackApproved, NoticeFeedbackRejected:
		return true
	}
	return false
}

func (t NoticeType) String() string { return string(t) }

// Audiences returns the viewer roles a notice type targets.
// video_expired_unsubmitted is the only type shown to both sides.
func (t NoticeType) Audiences() []id.ActorRole {
	switch t {
	case NoticeNewCandidate, NoticeVideoReceived:
		return []id.ActorRole{id.RoleCompany}
	case NoticeVideoRequest, NoticeFeedbackApproved, NoticeFeedbackRejected:
		return []id.ActorRole{id.RoleCandidate}
	case NoticeVideoExpiredUnsubmitted:
		return []id.ActorRole{id.RoleCompany, id.RoleCandidate}
	}
	return nil
}

// VisibleTo reports whether the notice type targets the given role.
func (t NoticeType) VisibleTo(role id.ActorRole) bool {
	for _, a := range t.Audiences() {
		if a == role {
			return true
		}
	}
	return false
}

// NoticeFlags carries the per-viewer read/deleted state of one notice type.
type NoticeFlags struct {
	Read    bool `json:"read"`
	Deleted bool `json:"deleted"`
}

// NoticeMap stores flags keyed by notice type. Absent keys mean unread and
// undeleted.
type NoticeMap map[NoticeType]NoticeFlags

// MarkActive resets the flags for a type whose underlying condition just
// (re)occurred, so a fresh occurrence reappears unread even if an earlier
// one was read or deleted.
func (m NoticeMap) MarkActive(t NoticeType) {
	delete(m, t)
}

// MarkRead flips the read flag for one type.
func (m NoticeMap) MarkRead(t NoticeType) {
	f := m[t]
	f.Read = true
	m[t] = f
}

// MarkDeleted flips the deleted flag for one type. Deletion hides the
// notification from the feed; it never touches the underlying ledger state.
func (m NoticeMap) MarkDeleted(t NoticeType) {
	f := m[t]
	f.Deleted = true
	m[t] = f
}

// clone always returns a non-nil map so patches can set flags on ledgers
// deserialized without notice keys.
func (m NoticeMap) clone() NoticeMap {
	out := make(NoticeMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
