package handler

import (
	"time"

	"talentgate/internal/notification"
)

// FeedResponse is the HTTP response for GET /notifications.
type FeedResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
}

// NotificationResponse is one derived feed entry.
type NotificationResponse struct {
	CandidacyID string    `json:"candidacy_id"`
	VacancyID   string    `json:"vacancy_id"`
	Type        string    `json:"type"`
	Read        bool      `json:"read"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// FromFeed converts a derived feed to an HTTP response.
func FromFeed(feed []notification.Notification) *FeedResponse {
	resp := &FeedResponse{
		Notifications: make([]NotificationResponse, 0, len(feed)),
	}
	for _, n := range feed {
		resp.Notifications = append(resp.Notifications, NotificationResponse{
			CandidacyID: n.CandidacyID.String(),
			VacancyID:   n.VacancyID.String(),
			Type:        string(n.Type),
			Read:        n.Read,
			OccurredAt:  n.OccurredAt,
		})
	}
	return resp
}
