// Package notification derives the per-viewer notification feed from
// candidacy ledgers. There are no stored notification rows: a notice is
// "active" whenever the ledger implies its condition, and the ledger's
// notice maps carry only the viewer's read/deleted flags.
package notification

import (
	"time"

	"talentgate/internal/candidacy/models"
	id "talentgate/pkg/domain"
)

// Viewer identifies whose feed is being derived.
type Viewer struct {
	Role        id.ActorRole
	CompanyID   id.CompanyID
	CandidateID id.CandidateID
}

// Notification is one derived feed entry.
type Notification struct {
	CandidacyID id.CandidacyID    `json:"candidacy_id"`
	VacancyID   id.VacancyID      `json:"vacancy_id"`
	Type        models.NoticeType `json:"type"`
	Read        bool              `json:"read"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// activeNotices returns the notice types the candidacy's ledger currently
// implies, with the ledger timestamp each one stems from. Recomputing from
// state (rather than appending rows) means a notice disappears on its own
// when the condition stops holding.
func activeNotices(c *models.Candidacy) []Notification {
	var out []Notification
	add := func(t models.NoticeType, at *time.Time) {
		occurred := c.UpdatedAt
		if at != nil {
			occurred = *at
		}
		out = append(out, Notification{
			CandidacyID: c.ID,
			VacancyID:   c.VacancyID,
			Type:        t,
			OccurredAt:  occurred,
		})
	}

	created := c.CreatedAt
	add(models.NoticeNewCandidate, &created)

	video := c.Ledger.Video
	switch video.Status {
	case models.VideoRequested:
		add(models.NoticeVideoRequest, video.RequestedAt)
	case models.VideoSubmitted, models.VideoViewed:
		add(models.NoticeVideoRequest, video.RequestedAt)
		add(models.NoticeVideoReceived, video.SubmittedAt)
	case models.VideoExpired:
		add(models.NoticeVideoRequest, video.RequestedAt)
		add(models.NoticeVideoExpiredUnsubmitted, video.Deadline)
	}

	switch c.Ledger.Feedback.Status {
	case models.FeedbackApproved:
		add(models.NoticeFeedbackApproved, c.Ledger.Feedback.DecidedAt)
	case models.FeedbackRejected:
		add(models.NoticeFeedbackRejected, c.Ledger.Feedback.DecidedAt)
	}

	return out
}
