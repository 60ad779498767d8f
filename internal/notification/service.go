package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"talentgate/internal/candidacy/models"
	"talentgate/internal/candidacy/ports"
	id "talentgate/pkg/domain"
	dErrors "talentgate/pkg/domain-errors"
	audit "talentgate/pkg/platform/audit"
	"talentgate/pkg/platform/middleware/metadata"
	"talentgate/pkg/platform/sentinel"
	"talentgate/pkg/requestcontext"
)

// Service derives notification feeds and records per-viewer flags.
type Service struct {
	store          ports.LedgerStore
	auditPublisher audit.Publisher
	logger         *slog.Logger
}

// Option configures the service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func New(store ports.LedgerStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FeedFor recomputes the viewer's notification feed from their candidacy
// ledgers. Deleted notices are hidden; everything else reflects current
// ledger state, newest first.
func (s *Service) FeedFor(ctx context.Context, viewer Viewer) ([]Notification, error) {
	candidacies, err := s.listFor(ctx, viewer)
	if err != nil {
		return nil, err
	}

	feed := make([]Notification, 0)
	for _, c := range candidacies {
		flags := c.Ledger.NoticeFor(viewer.Role)
		for _, n := range activeNotices(c) {
			if !n.Type.VisibleTo(viewer.Role) {
				continue
			}
			f := flags[n.Type]
			if f.Deleted {
				continue
			}
			n.Read = f.Read
			feed = append(feed, n)
		}
	}

	sort.Slice(feed, func(i, j int) bool {
		if feed[i].OccurredAt.Equal(feed[j].OccurredAt) {
			return feed[i].Type < feed[j].Type
		}
		return feed[i].OccurredAt.After(feed[j].OccurredAt)
	})
	return feed, nil
}

// MarkRead flips the viewer's read flag for one notice.
func (s *Service) MarkRead(ctx context.Context, viewer Viewer, candidacyID id.CandidacyID, noticeType models.NoticeType) error {
	return s.setFlag(ctx, viewer, candidacyID, noticeType, models.NoticeMap.MarkRead)
}

// Delete hides one notice from the viewer's feed. It only sets a flag; the
// underlying ledger state is untouched and a reoccurrence resurfaces it.
func (s *Service) Delete(ctx context.Context, viewer Viewer, candidacyID id.CandidacyID, noticeType models.NoticeType) error {
	return s.setFlag(ctx, viewer, candidacyID, noticeType, models.NoticeMap.MarkDeleted)
}

// ClearAll deletes every visible notice across the given candidacies (all
// of the viewer's candidacies when none are named). Each record is merged
// independently: a failed record never rolls back the others, and all
// per-record failures are joined into the returned error.
func (s *Service) ClearAll(ctx context.Context, viewer Viewer, candidacyIDs []id.CandidacyID) error {
	if len(candidacyIDs) == 0 {
		candidacies, err := s.listFor(ctx, viewer)
		if err != nil {
			return err
		}
		for _, c := range candidacies {
			candidacyIDs = append(candidacyIDs, c.ID)
		}
	}

	var errs []error
	for _, candidacyID := range candidacyIDs {
		if err := s.clearOne(ctx, viewer, candidacyID); err != nil {
			s.logger.WarnContext(ctx, "failed to clear notifications",
				"candidacy_id", candidacyID,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("candidacy %s: %w", candidacyID, err))
		}
	}
	if len(errs) > 0 {
		return dErrors.Wrap(errors.Join(errs...), dErrors.CodeConflict, "some notifications could not be cleared")
	}

	s.emitCleared(ctx, viewer, candidacyIDs)
	return nil
}

func (s *Service) clearOne(ctx context.Context, viewer Viewer, candidacyID id.CandidacyID) error {
	c, err := s.store.Get(ctx, candidacyID)
	if err != nil {
		return s.translate(err)
	}
	if err := s.authorize(viewer, c); err != nil {
		return err
	}

	_, err = s.store.Merge(ctx, candidacyID, func(l *models.Ledger) error {
		flags := l.NoticeFor(viewer.Role)
		for _, n := range activeNotices(c) {
			if n.Type.VisibleTo(viewer.Role) {
				flags.MarkDeleted(n.Type)
			}
		}
		return nil
	})
	return s.translate(err)
}

func (s *Service) setFlag(ctx context.Context, viewer Viewer, candidacyID id.CandidacyID, noticeType models.NoticeType, mark func(models.NoticeMap, models.NoticeType)) error {
	if !noticeType.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown notification type")
	}
	if !noticeType.VisibleTo(viewer.Role) {
		return dErrors.New(dErrors.CodeForbidden, "notification type not visible to this viewer")
	}

	c, err := s.store.Get(ctx, candidacyID)
	if err != nil {
		return s.translate(err)
	}
	if err := s.authorize(viewer, c); err != nil {
		return err
	}

	_, err = s.store.Merge(ctx, candidacyID, func(l *models.Ledger) error {
		mark(l.NoticeFor(viewer.Role), noticeType)
		return nil
	})
	return s.translate(err)
}

func (s *Service) listFor(ctx context.Context, viewer Viewer) ([]*models.Candidacy, error) {
	switch viewer.Role {
	case id.RoleCompany:
		if viewer.CompanyID.IsNil() {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "company viewer requires a company_id")
		}
		candidacies, err := s.store.ListByCompany(ctx, viewer.CompanyID)
		return candidacies, s.translate(err)
	case id.RoleCandidate:
		if viewer.CandidateID.IsNil() {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "candidate viewer requires a candidate_id")
		}
		candidacies, err := s.store.ListByCandidate(ctx, viewer.CandidateID)
		return candidacies, s.translate(err)
	default:
		return nil, dErrors.New(dErrors.CodeForbidden, "only companies and candidates have notification feeds")
	}
}

func (s *Service) authorize(viewer Viewer, c *models.Candidacy) error {
	switch viewer.Role {
	case id.RoleCompany:
		if viewer.CompanyID == c.CompanyID {
			return nil
		}
	case id.RoleCandidate:
		if viewer.CandidateID == c.CandidateID {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeForbidden, "not a party to this candidacy")
}

func (s *Service) emitCleared(ctx context.Context, viewer Viewer, candidacyIDs []id.CandidacyID) {
	if s.auditPublisher == nil {
		return
	}
	actor := viewer.CompanyID.String()
	if viewer.Role == id.RoleCandidate {
		actor = viewer.CandidateID.String()
	}
	for _, candidacyID := range candidacyIDs {
		_ = s.auditPublisher.Emit(ctx, audit.Event{
			Category:    audit.EventNoticesCleared.Category(),
			Timestamp:   requestcontext.Now(ctx),
			CandidacyID: candidacyID,
			Action:      string(audit.EventNoticesCleared),
			Actor:       actor,
			ActorRole:   viewer.Role,
			RequestID:   requestcontext.RequestID(ctx),
			ClientIP:    metadata.ClientIP(ctx),
			UserAgent:   metadata.UserAgent(ctx),
		})
	}
}

func (s *Service) translate(err error) error {
	if err == nil {
		return nil
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "candidacy not found")
	case errors.Is(err, sentinel.ErrVersionConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "ledger merge contention exhausted retries")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "notification operation failed")
	}
}
