// Package audit captures the trail of lifecycle actions taken against
// candidacies. Events are emitted from domain logic, queued on a channel,
// and persisted by the worker; they are the compliance record of who did
// what to an application, distinct from the derived notification feed.
package audit

import (
	"context"
	"time"

	id "talentgate/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance for a
	// hiring pipeline: decisions about a candidate require long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging and
	// operational visibility; shorter retention, may be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category    EventCategory
	Timestamp   time.Time
	CandidacyID id.CandidacyID
	Action      string
	// Actor names who performed the action: a company ID, candidate ID,
	// or "sweep"/"scoring" for automated actors.
	Actor     string
	ActorRole id.ActorRole
	Detail    string
	RequestID string
	// ClientIP and UserAgent name the network origin of the request that
	// triggered the event. Empty for automated actors like the sweep.
	ClientIP  string
	UserAgent string
}

// AuditEvent names the recorded lifecycle actions.
type AuditEvent string

const (
	EventCandidacyCreated AuditEvent = "candidacy_created"
	EventVideoRequested   AuditEvent = "video_requested"
	EventVideoSubmitted   AuditEvent = "video_submitted"
	EventVideoViewed      AuditEvent = "video_viewed"
	EventVideoExpired     AuditEvent = "video_expired"
	EventFeedbackDecided  AuditEvent = "feedback_decided"
	EventAnalysisRecorded AuditEvent = "analysis_recorded"
	EventNoticesCleared   AuditEvent = "notices_cleared"
)

// eventCategories maps each audit event to its category. Feedback
// decisions are the regulated record of the hiring process; the rest is
// operational visibility.
var eventCategories = map[AuditEvent]EventCategory{
	EventCandidacyCreated: CategoryCompliance,
	EventFeedbackDecided:  CategoryCompliance,
	EventVideoExpired:     CategoryCompliance,

	EventVideoRequested:   CategoryOperations,
	EventVideoSubmitted:   CategoryOperations,
	EventVideoViewed:      CategoryOperations,
	EventAnalysisRecorded: CategoryOperations,
	EventNoticesCleared:   CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByCandidacy(ctx context.Context, candidacyID id.CandidacyID) ([]Event, error)
}

// Publisher accepts events from domain logic without blocking it.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}
