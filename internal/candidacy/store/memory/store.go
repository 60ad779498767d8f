// Package memory provides the in-memory LedgerStore used by unit tests and
// single-process development runs.
package memory

import (
	"context"
	"sync"
	"time"

	"talentgate/internal/candidacy/models"
	"talentgate/internal/candidacy/ports"
	id "talentgate/pkg/domain"
	"talentgate/pkg/platform/sentinel"
)

// InMemoryLedgerStore holds candidacies guarded by a single RWMutex. The
// mutex is the per-record mutual-exclusion scope required by the merge
// contract: a patch runs against the latest committed ledger and commits
// before any other merge can read. Snapshots are cloned on the way in and
// out so callers can never mutate stored state outside a merge.
type InMemoryLedgerStore struct {
	mu          sync.RWMutex
	candidacies map[id.CandidacyID]*models.Candidacy
	clock       func() time.Time
}

// Option configures the store.
type Option func(*InMemoryLedgerStore)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *InMemoryLedgerStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func New(opts ...Option) *InMemoryLedgerStore {
	s := &InMemoryLedgerStore{
		candidacies: make(map[id.CandidacyID]*models.Candidacy),
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryLedgerStore) Create(_ context.Context, vacancyID id.VacancyID, candidateID id.CandidateID, companyID id.CompanyID) (*models.Candidacy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	c := &models.Candidacy{
		ID:          id.NewCandidacyID(),
		VacancyID:   vacancyID,
		CandidateID: candidateID,
		CompanyID:   companyID,
		Ledger:      models.NewLedger(),
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.candidacies[c.ID] = c
	return c.Clone(), nil
}

func (s *InMemoryLedgerStore) Get(_ context.Context, candidacyID id.CandidacyID) (*models.Candidacy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.candidacies[candidacyID]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return c.Clone(), nil
}

func (s *InMemoryLedgerStore) Merge(_ context.Context, candidacyID id.CandidacyID, patch ports.PatchFn) (*models.Candidacy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.candidacies[candidacyID]
	if !exists {
		return nil, sentinel.ErrNotFound
	}

	next := c.Ledger.Clone()
	if err := patch(&next); err != nil {
		return nil, err
	}

	c.Ledger = next
	c.Version++
	c.UpdatedAt = s.clock()
	return c.Clone(), nil
}

func (s *InMemoryLedgerStore) ListByCompany(_ context.Context, companyID id.CompanyID) ([]*models.Candidacy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Candidacy
	for _, c := range s.candidacies {
		if c.CompanyID == companyID {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func (s *InMemoryLedgerStore) ListByCandidate(_ context.Context, candidateID id.CandidateID) ([]*models.Candidacy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Candidacy
	for _, c := range s.candidacies {
		if c.CandidateID == candidateID {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func (s *InMemoryLedgerStore) ListOverdueRequested(_ context.Context, now time.Time) ([]*models.Candidacy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Candidacy
	for _, c := range s.candidacies {
		v := c.Ledger.Video
		if v.Status != models.VideoRequested || v.Deadline == nil || !now.After(*v.Deadline) {
			continue
		}
		if c.Ledger.Feedback.Status == models.FeedbackRejected {
			// video axis closed; nothing for the sweep to resolve
			continue
		}
		out = append(out, c.Clone())
	}
	return out, nil
}

func (s *InMemoryLedgerStore) ListExpiredUnsent(_ context.Context) ([]*models.Candidacy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Candidacy
	for _, c := range s.candidacies {
		if c.Ledger.Video.Status == models.VideoExpired && !c.Ledger.Video.ExpiredEmailSent {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}
