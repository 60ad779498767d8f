//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"talentgate/internal/candidacy/models"
	"talentgate/internal/candidacy/store/postgres"
	id "talentgate/pkg/domain"
	"talentgate/pkg/platform/sentinel"
	"talentgate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = postgres.New(s.postgres.DB)
	s.Require().NoError(s.store.RunMigrations(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background(), "candidacies"))
}

func (s *PostgresStoreSuite) create() *models.Candidacy {
	c, err := s.store.Create(context.Background(),
		id.VacancyID(uuid.New()), id.CandidateID(uuid.New()), id.CompanyID(uuid.New()))
	s.Require().NoError(err)
	return c
}

func (s *PostgresStoreSuite) TestCreateAndGet() {
	ctx := context.Background()
	created := s.create()

	got, err := s.store.Get(ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created.ID, got.ID)
	s.Equal(created.VacancyID, got.VacancyID)
	s.Equal(created.CandidateID, got.CandidateID)
	s.Equal(created.CompanyID, got.CompanyID)
	s.Equal(int64(1), got.Version)
	s.Equal(models.VideoNotRequested, got.Ledger.Video.Status)
	s.Equal(models.FeedbackPending, got.Ledger.Feedback.Status)
	s.NotNil(got.Ledger.CompanyNotice)
	s.NotNil(got.Ledger.CandidateNotice)
}

func (s *PostgresStoreSuite) TestGetNotFound() {
	_, err := s.store.Get(context.Background(), id.NewCandidacyID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestMergePersistsAndBumpsVersion() {
	ctx := context.Background()
	c := s.create()

	requested := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	deadline := requested.Add(7 * 24 * time.Hour)

	merged, err := s.store.Merge(ctx, c.ID, func(l *models.Ledger) error {
		l.Video.Status = models.VideoRequested
		l.Video.RequestedAt = &requested
		l.Video.Deadline = &deadline
		return nil
	})
	s.Require().NoError(err)
	s.Equal(int64(2), merged.Version)

	got, err := s.store.Get(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(models.VideoRequested, got.Ledger.Video.Status)
	s.Require().NotNil(got.Ledger.Video.Deadline)
	s.True(got.Ledger.Video.Deadline.Equal(deadline))
	s.Equal(int64(2), got.Version)
}

func (s *PostgresStoreSuite) TestMergePatchErrorWritesNothing() {
	ctx := context.Background()
	c := s.create()

	_, err := s.store.Merge(ctx, c.ID, func(l *models.Ledger) error {
		l.Video.Status = models.VideoRequested
		return sentinel.ErrNotFound // any error aborts
	})
	s.Require().Error(err)

	got, err := s.store.Get(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(models.VideoNotRequested, got.Ledger.Video.Status)
	s.Equal(int64(1), got.Version)
}

// TestConcurrentDisjointMerges verifies the optimistic CAS: two writers
// touching different subtrees of the same ledger both land, neither
// overwriting the other.
func (s *PostgresStoreSuite) TestConcurrentDisjointMerges() {
	ctx := context.Background()
	c := s.create()

	submitted := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := s.store.Merge(ctx, c.ID, func(l *models.Ledger) error {
			l.Video.Status = models.VideoSubmitted
			l.Video.SubmittedAt = &submitted
			return nil
		})
		s.NoError(err)
	}()
	go func() {
		defer wg.Done()
		_, err := s.store.Merge(ctx, c.ID, func(l *models.Ledger) error {
			l.CompanyNotice.MarkRead(models.NoticeNewCandidate)
			return nil
		})
		s.NoError(err)
	}()
	wg.Wait()

	got, err := s.store.Get(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(int64(3), got.Version)
	s.Equal(models.VideoSubmitted, got.Ledger.Video.Status)
	s.True(got.Ledger.CompanyNotice[models.NoticeNewCandidate].Read)
}

func (s *PostgresStoreSuite) TestConcurrentMergesAllLand() {
	ctx := context.Background()
	c := s.create()
	const writers = 20

	// enough retry headroom that contention alone cannot exhaust the CAS loop
	store := postgres.New(s.postgres.DB, postgres.WithMergeRetries(writers*writers))

	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			_, err := store.Merge(ctx, c.ID, func(l *models.Ledger) error {
				l.Video.FileRef += "x"
				return nil
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	got, err := s.store.Get(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(int64(writers+1), got.Version)
	s.Len(got.Ledger.Video.FileRef, writers)
}

func (s *PostgresStoreSuite) TestListByCompanyAndCandidate() {
	ctx := context.Background()
	companyID := id.CompanyID(uuid.New())
	candidateID := id.CandidateID(uuid.New())

	c1, err := s.store.Create(ctx, id.VacancyID(uuid.New()), candidateID, companyID)
	s.Require().NoError(err)
	c2, err := s.store.Create(ctx, id.VacancyID(uuid.New()), id.CandidateID(uuid.New()), companyID)
	s.Require().NoError(err)
	s.create() // unrelated

	byCompany, err := s.store.ListByCompany(ctx, companyID)
	s.Require().NoError(err)
	s.Len(byCompany, 2)
	ids := []id.CandidacyID{byCompany[0].ID, byCompany[1].ID}
	s.Contains(ids, c1.ID)
	s.Contains(ids, c2.ID)

	byCandidate, err := s.store.ListByCandidate(ctx, candidateID)
	s.Require().NoError(err)
	s.Len(byCandidate, 1)
	s.Equal(c1.ID, byCandidate[0].ID)
}

// TestListOverdueRequested exercises the JSONB filters: only REQUESTED rows
// past their submission deadline, excluding rejected candidacies.
func (s *PostgresStoreSuite) TestListOverdueRequested() {
	ctx := context.Background()
	now := time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	request := func(deadline time.Time) *models.Candidacy {
		c := s.create()
		_, err := s.store.Merge(ctx, c.ID, func(l *models.Ledger) error {
			l.Video.Status = models.VideoRequested
			l.Video.Deadline = &deadline
			return nil
		})
		s.Require().NoError(err)
		return c
	}

	overdue := request(past)
	request(future)

	rejected := request(past)
	_, err := s.store.Merge(ctx, rejected.ID, func(l *models.Ledger) error {
		l.Feedback.Status = models.FeedbackRejected
		return nil
	})
	s.Require().NoError(err)

	s.create() // NOT_REQUESTED, no deadline

	got, err := s.store.ListOverdueRequested(ctx, now)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(overdue.ID, got[0].ID)
}

func (s *PostgresStoreSuite) TestListExpiredUnsent() {
	ctx := context.Background()

	expire := func(emailSent bool) *models.Candidacy {
		c := s.create()
		_, err := s.store.Merge(ctx, c.ID, func(l *models.Ledger) error {
			l.Video.Status = models.VideoExpired
			l.Video.ExpiredEmailSent = emailSent
			return nil
		})
		s.Require().NoError(err)
		return c
	}

	unsent := expire(false)
	expire(true)
	s.create() // not expired

	got, err := s.store.ListExpiredUnsent(ctx)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(unsent.ID, got[0].ID)
}
