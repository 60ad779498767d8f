package restriction

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/singleflight"

	"talentgate/internal/candidacy/models"
	"talentgate/internal/candidacy/ports"
	id "talentgate/pkg/domain"
	dErrors "talentgate/pkg/domain-errors"
	"talentgate/pkg/requestcontext"
)

// Service computes the derived restriction view for companies.
//
// A company is blocked while any of its candidacies holds a submitted video
// whose review window has lapsed without a feedback decision. The view is
// recomputed from the committed ledgers on every evaluation; a cache in
// front only absorbs read traffic and is dropped on relevant ledger writes.
type Service struct {
	store  ports.LedgerStore
	cache  Cache
	logger *slog.Logger
	group  singleflight.Group
}

// Option configures the service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithCache installs a view cache in front of recomputation.
func WithCache(cache Cache) Option {
	return func(s *Service) { s.cache = cache }
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

// Evaluate returns the restriction view for the company. Concurrent
// evaluations for the same company share one recomputation.
func (s *Service) Evaluate(ctx context.Context, companyID id.CompanyID) (*View, error) {
	if companyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "company_id is required")
	}

	if s.cache != nil {
		view, ok, err := s.cache.Get(ctx, companyID)
		if err != nil {
			s.logger.WarnContext(ctx, "restriction cache read failed", "company_id", companyID, "error", err)
		} else if ok {
			return view, nil
		}
	}

	v, err, _ := s.group.Do(companyID.String(), func() (any, error) {
		view, err := s.compute(ctx, companyID)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, view); err != nil {
				s.logger.WarnContext(ctx, "restriction cache write failed", "company_id", companyID, "error", err)
			}
		}
		return view, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*View), nil
}

// Invalidate drops the cached view after a ledger write that can change
// blocking. Implements the candidacy service's invalidator hook.
func (s *Service) Invalidate(ctx context.Context, companyID id.CompanyID) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, companyID)
}

func (s *Service) compute(ctx context.Context, companyID id.CompanyID) (*View, error) {
	now := requestcontext.Now(ctx)

	candidacies, err := s.store.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load company candidacies")
	}

	view := &View{
		CompanyID:  companyID,
		ComputedAt: now,
	}
	for _, c := range candidacies {
		video := c.Ledger.Video
		if video.Status != models.VideoSubmitted {
			continue
		}
		if video.ExpiresAt == nil || !now.After(*video.ExpiresAt) {
			continue
		}
		if c.Ledger.Feedback.Decided() {
			continue
		}
		view.Causes = append(view.Causes, Cause{
			CandidacyID: c.ID,
			VacancyID:   c.VacancyID,
			CandidateID: c.CandidateID,
			SubmittedAt: video.SubmittedAt,
			ExpiresAt:   *video.ExpiresAt,
		})
	}

	// oldest lapse first, so the company sees what to clear first
	sort.Slice(view.Causes, func(i, j int) bool {
		return view.Causes[i].ExpiresAt.Before(view.Causes[j].ExpiresAt)
	})
	view.Blocked = len(view.Causes) > 0
	return view, nil
}
