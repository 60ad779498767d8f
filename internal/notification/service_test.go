package notification

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentgate/internal/candidacy/engine"
	"talentgate/internal/candidacy/models"
	"talentgate/internal/candidacy/ports"
	"talentgate/internal/candidacy/store/memory"
	"talentgate/internal/platform/config"
	id "talentgate/pkg/domain"
	dErrors "talentgate/pkg/domain-errors"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

var testCfg = config.LedgerConfig{
	SubmissionWindow: 7 * 24 * time.Hour,
	ReviewWindow:     7 * 24 * time.Hour,
}

type fixture struct {
	store   *memory.InMemoryLedgerStore
	eng     *engine.Engine
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New(memory.WithClock(func() time.Time { return t0.Add(-time.Hour) }))
	return &fixture{
		store:   store,
		eng:     engine.New(testCfg),
		service: New(store, WithLogger(slog.New(slog.DiscardHandler))),
	}
}

func (f *fixture) create(t *testing.T) *models.Candidacy {
	t.Helper()
	c, err := f.store.Create(context.Background(),
		id.VacancyID(uuid.New()), id.CandidateID(uuid.New()), id.CompanyID(uuid.New()))
	require.NoError(t, err)
	return c
}

func (f *fixture) apply(t *testing.T, candidacyID id.CandidacyID, ev models.Event, at time.Time) {
	t.Helper()
	_, err := f.store.Merge(context.Background(), candidacyID, func(l *models.Ledger) error {
		next, _, err := f.eng.Apply(candidacyID, *l, ev, at)
		if err != nil {
			return err
		}
		*l = next
		return nil
	})
	require.NoError(t, err)
}

func companyViewer(c *models.Candidacy) Viewer {
	return Viewer{Role: id.RoleCompany, CompanyID: c.CompanyID}
}

func candidateViewer(c *models.Candidacy) Viewer {
	return Viewer{Role: id.RoleCandidate, CandidateID: c.CandidateID}
}

func feedTypes(feed []Notification) []models.NoticeType {
	types := make([]models.NoticeType, 0, len(feed))
	for _, n := range feed {
		types = append(types, n.Type)
	}
	return types
}

func TestFeedFor_TracksLedgerState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.create(t)

	// creation notifies the company only
	feed, err := f.service.FeedFor(ctx, companyViewer(c))
	require.NoError(t, err)
	assert.Equal(t, []models.NoticeType{models.NoticeNewCandidate}, feedTypes(feed))
	assert.False(t, feed[0].Read)

	feed, err = f.service.FeedFor(ctx, candidateViewer(c))
	require.NoError(t, err)
	assert.Empty(t, feed)

	// the request reaches the candidate, not the company
	f.apply(t, c.ID, models.RequestVideo{}, t0)

	feed, err = f.service.FeedFor(ctx, candidateViewer(c))
	require.NoError(t, err)
	assert.Equal(t, []models.NoticeType{models.NoticeVideoRequest}, feedTypes(feed))

	feed, err = f.service.FeedFor(ctx, companyViewer(c))
	require.NoError(t, err)
	assert.Equal(t, []models.NoticeType{models.NoticeNewCandidate}, feedTypes(feed))

	// the submission reaches the company, newest first
	f.apply(t, c.ID, models.SubmitVideo{FileRef: "s3://videos/v1"}, t0.Add(time.Hour))

	feed, err = f.service.FeedFor(ctx, companyViewer(c))
	require.NoError(t, err)
	assert.Equal(t, []models.NoticeType{models.NoticeVideoReceived, models.NoticeNewCandidate}, feedTypes(feed))

	// the decision reaches the candidate
	f.apply(t, c.ID, models.DecideFeedback{Status: models.FeedbackApproved}, t0.Add(2*time.Hour))

	feed, err = f.service.FeedFor(ctx, candidateViewer(c))
	require.NoError(t, err)
	assert.Equal(t, []models.NoticeType{models.NoticeFeedbackApproved, models.NoticeVideoRequest}, feedTypes(feed))
}

func TestFeedFor_ExpiryVisibleToBothSides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.create(t)

	f.apply(t, c.ID, models.RequestVideo{}, t0)
	f.apply(t, c.ID, models.ExpireVideo{}, t0.Add(8*24*time.Hour))

	feed, err := f.service.FeedFor(ctx, companyViewer(c))
	require.NoError(t, err)
	assert.Contains(t, feedTypes(feed), models.NoticeVideoExpiredUnsubmitted)

	feed, err = f.service.FeedFor(ctx, candidateViewer(c))
	require.NoError(t, err)
	assert.Contains(t, feedTypes(feed), models.NoticeVideoExpiredUnsubmitted)
}

func TestFeedFor_RejectsOtherViewers(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.FeedFor(context.Background(), Viewer{Role: id.RoleSystem})
	assert.Equal(t, dErrors.CodeForbidden, dErrors.CodeOf(err))
}

func TestMarkRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.create(t)

	require.NoError(t, f.service.MarkRead(ctx, companyViewer(c), c.ID, models.NoticeNewCandidate))

	feed, err := f.service.FeedFor(ctx, companyViewer(c))
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.True(t, feed[0].Read)
}

func TestDelete_HidesWithoutTouchingLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.create(t)
	f.apply(t, c.ID, models.RequestVideo{}, t0)
	f.apply(t, c.ID, models.SubmitVideo{FileRef: "s3://videos/v1"}, t0.Add(time.Hour))

	require.NoError(t, f.service.Delete(ctx, companyViewer(c), c.ID, models.NoticeVideoReceived))

	feed, err := f.service.FeedFor(ctx, companyViewer(c))
	require.NoError(t, err)
	assert.NotContains(t, feedTypes(feed), models.NoticeVideoReceived)

	// the candidate's feed and the video itself are untouched
	feed, err = f.service.FeedFor(ctx, candidateViewer(c))
	require.NoError(t, err)
	assert.Contains(t, feedTypes(feed), models.NoticeVideoRequest)

	got, err := f.store.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VideoSubmitted, got.Ledger.Video.Status)
}

func TestDelete_ReoccurrenceResurfacesUnread(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.create(t)
	f.apply(t, c.ID, models.RequestVideo{}, t0)
	f.apply(t, c.ID, models.SubmitVideo{FileRef: "s3://videos/v1"}, t0.Add(time.Hour))

	require.NoError(t, f.service.Delete(ctx, companyViewer(c), c.ID, models.NoticeVideoReceived))

	// a pre-review resubmission reactivates the notice
	f.apply(t, c.ID, models.SubmitVideo{FileRef: "s3://videos/v2"}, t0.Add(2*time.Hour))

	feed, err := f.service.FeedFor(ctx, companyViewer(c))
	require.NoError(t, err)
	require.Contains(t, feedTypes(feed), models.NoticeVideoReceived)
	for _, n := range feed {
		if n.Type == models.NoticeVideoReceived {
			assert.False(t, n.Read)
		}
	}
}

func TestSetFlag_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.create(t)

	t.Run("unknown type", func(t *testing.T) {
		err := f.service.MarkRead(ctx, companyViewer(c), c.ID, models.NoticeType("bogus"))
		assert.Equal(t, dErrors.CodeInvalidInput, dErrors.CodeOf(err))
	})

	t.Run("type not visible to the viewer", func(t *testing.T) {
		// video_request targets candidates only
		err := f.service.MarkRead(ctx, companyViewer(c), c.ID, models.NoticeVideoRequest)
		assert.Equal(t, dErrors.CodeForbidden, dErrors.CodeOf(err))
	})

	t.Run("viewer is not a party", func(t *testing.T) {
		other := Viewer{Role: id.RoleCompany, CompanyID: id.CompanyID(uuid.New())}
		err := f.service.MarkRead(ctx, other, c.ID, models.NoticeNewCandidate)
		assert.Equal(t, dErrors.CodeForbidden, dErrors.CodeOf(err))
	})

	t.Run("unknown candidacy", func(t *testing.T) {
		err := f.service.MarkRead(ctx, companyViewer(c), id.CandidacyID(uuid.New()), models.NoticeNewCandidate)
		assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
	})
}

func TestClearAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	companyID := id.CompanyID(uuid.New())
	_, err := f.store.Create(ctx, id.VacancyID(uuid.New()), id.CandidateID(uuid.New()), companyID)
	require.NoError(t, err)
	c2, err := f.store.Create(ctx, id.VacancyID(uuid.New()), id.CandidateID(uuid.New()), companyID)
	require.NoError(t, err)
	f.apply(t, c2.ID, models.RequestVideo{}, t0)
	f.apply(t, c2.ID, models.SubmitVideo{FileRef: "s3://videos/v1"}, t0.Add(time.Hour))

	viewer := Viewer{Role: id.RoleCompany, CompanyID: companyID}
	require.NoError(t, f.service.ClearAll(ctx, viewer, nil))

	feed, err := f.service.FeedFor(ctx, viewer)
	require.NoError(t, err)
	assert.Empty(t, feed)

	// the candidate side is untouched
	feed, err = f.service.FeedFor(ctx, Viewer{Role: id.RoleCandidate, CandidateID: c2.CandidateID})
	require.NoError(t, err)
	assert.Contains(t, feedTypes(feed), models.NoticeVideoRequest)
}

type flakyStore struct {
	ports.LedgerStore
	failID id.CandidacyID
}

func (s *flakyStore) Merge(ctx context.Context, candidacyID id.CandidacyID, patch ports.PatchFn) (*models.Candidacy, error) {
	if candidacyID == s.failID {
		return nil, assert.AnError
	}
	return s.LedgerStore.Merge(ctx, candidacyID, patch)
}

func TestClearAll_PartialFailureClearsTheRest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	companyID := id.CompanyID(uuid.New())
	good, err := f.store.Create(ctx, id.VacancyID(uuid.New()), id.CandidateID(uuid.New()), companyID)
	require.NoError(t, err)
	bad, err := f.store.Create(ctx, id.VacancyID(uuid.New()), id.CandidateID(uuid.New()), companyID)
	require.NoError(t, err)

	service := New(&flakyStore{LedgerStore: f.store, failID: bad.ID},
		WithLogger(slog.New(slog.DiscardHandler)))

	viewer := Viewer{Role: id.RoleCompany, CompanyID: companyID}
	err = service.ClearAll(ctx, viewer, []id.CandidacyID{good.ID, bad.ID})
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeConflict, dErrors.CodeOf(err))
	assert.ErrorContains(t, err, bad.ID.String())

	// the failing record never rolls back the one that succeeded
	feed, err := f.service.FeedFor(ctx, viewer)
	require.NoError(t, err)
	types := feedTypes(feed)
	assert.NotContains(t, typesFor(feed, good.ID), models.NoticeNewCandidate)
	assert.Contains(t, types, models.NoticeNewCandidate)
}

func typesFor(feed []Notification, candidacyID id.CandidacyID) []models.NoticeType {
	var out []models.NoticeType
	for _, n := range feed {
		if n.CandidacyID == candidacyID {
			out = append(out, n.Type)
		}
	}
	return out
}
