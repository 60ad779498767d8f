package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentgate/internal/candidacy/models"
	id "talentgate/pkg/domain"
	"talentgate/pkg/platform/sentinel"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newStore() *InMemoryLedgerStore {
	return New(WithClock(func() time.Time { return t0 }))
}

func mustCreate(t *testing.T, s *InMemoryLedgerStore) *models.Candidacy {
	t.Helper()
	c, err := s.Create(context.Background(),
		id.VacancyID(uuid.New()), id.CandidateID(uuid.New()), id.CompanyID(uuid.New()))
	require.NoError(t, err)
	return c
}

func TestCreate(t *testing.T) {
	s := newStore()
	c := mustCreate(t, s)

	assert.False(t, c.ID.IsNil())
	assert.Equal(t, int64(1), c.Version)
	assert.Equal(t, models.VideoNotRequested, c.Ledger.Video.Status)
	assert.Equal(t, models.FeedbackPending, c.Ledger.Feedback.Status)
	assert.Equal(t, t0, c.CreatedAt)
}

func TestGet(t *testing.T) {
	s := newStore()
	c := mustCreate(t, s)

	t.Run("returns the candidacy", func(t *testing.T) {
		got, err := s.Get(context.Background(), c.ID)
		require.NoError(t, err)
		assert.Equal(t, c.ID, got.ID)
	})

	t.Run("unknown id returns ErrNotFound", func(t *testing.T) {
		_, err := s.Get(context.Background(), id.NewCandidacyID())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("returned snapshot is isolated from the store", func(t *testing.T) {
		got, err := s.Get(context.Background(), c.ID)
		require.NoError(t, err)
		got.Ledger.Video.Status = models.VideoExpired

		again, err := s.Get(context.Background(), c.ID)
		require.NoError(t, err)
		assert.Equal(t, models.VideoNotRequested, again.Ledger.Video.Status)
	})
}

func TestMerge(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	t.Run("commits the patch and bumps the version", func(t *testing.T) {
		c := mustCreate(t, s)
		got, err := s.Merge(ctx, c.ID, func(l *models.Ledger) error {
			l.Video.Status = models.VideoRequested
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, models.VideoRequested, got.Ledger.Video.Status)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("patch error aborts without writing", func(t *testing.T) {
		c := mustCreate(t, s)
		wantErr := errors.New("nope")
		_, err := s.Merge(ctx, c.ID, func(l *models.Ledger) error {
			l.Video.Status = models.VideoExpired
			return wantErr
		})
		assert.ErrorIs(t, err, wantErr)

		got, err := s.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, models.VideoNotRequested, got.Ledger.Video.Status)
		assert.Equal(t, int64(1), got.Version)
	})

	t.Run("unknown id returns ErrNotFound", func(t *testing.T) {
		_, err := s.Merge(ctx, id.NewCandidacyID(), func(*models.Ledger) error { return nil })
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

// Two actors patching disjoint subtrees concurrently must both land: the
// company marking a notice read can never erase the candidate's submission,
// and vice versa, regardless of interleaving.
func TestMerge_ConcurrentDisjointPatchesBothSurvive(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	for range 50 {
		c := mustCreate(t, s)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.Merge(ctx, c.ID, func(l *models.Ledger) error {
				now := t0.Add(time.Hour)
				l.Video.Status = models.VideoSubmitted
				l.Video.SubmittedAt = &now
				l.Video.FileRef = "s3://videos/v1"
				return nil
			})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := s.Merge(ctx, c.ID, func(l *models.Ledger) error {
				l.CompanyNotice.MarkRead(models.NoticeNewCandidate)
				return nil
			})
			assert.NoError(t, err)
		}()
		wg.Wait()

		got, err := s.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, models.VideoSubmitted, got.Ledger.Video.Status)
		assert.True(t, got.Ledger.CompanyNotice[models.NoticeNewCandidate].Read)
		assert.Equal(t, int64(3), got.Version)
	}
}

func TestMerge_ConcurrentCountersAllLand(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	c := mustCreate(t, s)

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			_, err := s.Merge(ctx, c.ID, func(l *models.Ledger) error {
				l.Video.FileRef += "x"
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, got.Ledger.Video.FileRef, n, "every merge must observe the previous one")
	assert.Equal(t, int64(1+n), got.Version)
}

func TestListByCompanyAndCandidate(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	companyID := id.CompanyID(uuid.New())
	candidateID := id.CandidateID(uuid.New())

	mine, err := s.Create(ctx, id.VacancyID(uuid.New()), candidateID, companyID)
	require.NoError(t, err)
	mustCreate(t, s) // unrelated candidacy

	byCompany, err := s.ListByCompany(ctx, companyID)
	require.NoError(t, err)
	require.Len(t, byCompany, 1)
	assert.Equal(t, mine.ID, byCompany[0].ID)

	byCandidate, err := s.ListByCandidate(ctx, candidateID)
	require.NoError(t, err)
	require.Len(t, byCandidate, 1)
	assert.Equal(t, mine.ID, byCandidate[0].ID)
}

func TestListOverdueRequested(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	deadline := t0.Add(7 * 24 * time.Hour)

	requested := mustCreate(t, s)
	_, err := s.Merge(ctx, requested.ID, func(l *models.Ledger) error {
		l.Video.Status = models.VideoRequested
		l.Video.Deadline = &deadline
		return nil
	})
	require.NoError(t, err)

	rejected := mustCreate(t, s)
	_, err = s.Merge(ctx, rejected.ID, func(l *models.Ledger) error {
		l.Video.Status = models.VideoRequested
		l.Video.Deadline = &deadline
		l.Feedback.Status = models.FeedbackRejected
		return nil
	})
	require.NoError(t, err)

	mustCreate(t, s) // NOT_REQUESTED, never overdue

	t.Run("before deadline nothing is overdue", func(t *testing.T) {
		got, err := s.ListOverdueRequested(ctx, deadline)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("past deadline only open candidacies are returned", func(t *testing.T) {
		got, err := s.ListOverdueRequested(ctx, deadline.Add(time.Second))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, requested.ID, got[0].ID)
	})
}

func TestListExpiredUnsent(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	unsent := mustCreate(t, s)
	_, err := s.Merge(ctx, unsent.ID, func(l *models.Ledger) error {
		l.Video.Status = models.VideoExpired
		return nil
	})
	require.NoError(t, err)

	sent := mustCreate(t, s)
	_, err = s.Merge(ctx, sent.ID, func(l *models.Ledger) error {
		l.Video.Status = models.VideoExpired
		l.Video.ExpiredEmailSent = true
		return nil
	})
	require.NoError(t, err)

	got, err := s.ListExpiredUnsent(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, unsent.ID, got[0].ID)
}
