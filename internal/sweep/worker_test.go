package sweep

import (
	"context"
	"log/slog"
	"sync"
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
	"talentgate/pkg/requestcontext"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

var testCfg = config.LedgerConfig{
	SubmissionWindow: 7 * 24 * time.Hour,
	ReviewWindow:     7 * 24 * time.Hour,
}

// countingNotifier is a thread-safe Notifier that records deliveries.
type countingNotifier struct {
	mu   sync.Mutex
	sent []ports.Notification
	fail bool
}

func (n *countingNotifier) Send(_ context.Context, notification ports.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return assert.AnError
	}
	n.sent = append(n.sent, notification)
	return nil
}

func (n *countingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func (n *countingNotifier) setFail(fail bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fail = fail
}

func newWorker(store ports.LedgerStore, notifier ports.Notifier) *Worker {
	return New(store, engine.New(testCfg), notifier, WithLogger(slog.New(slog.DiscardHandler)))
}

// requestedCandidacy creates a candidacy whose video was requested at t0.
func requestedCandidacy(t *testing.T, store *memory.InMemoryLedgerStore) *models.Candidacy {
	t.Helper()
	ctx := context.Background()

	c, err := store.Create(ctx,
		id.VacancyID(uuid.New()), id.CandidateID(uuid.New()), id.CompanyID(uuid.New()))
	require.NoError(t, err)

	eng := engine.New(testCfg)
	c, err = store.Merge(ctx, c.ID, func(l *models.Ledger) error {
		next, _, err := eng.Apply(c.ID, *l, models.RequestVideo{}, t0)
		if err != nil {
			return err
		}
		*l = next
		return nil
	})
	require.NoError(t, err)
	return c
}

func TestRunOnce_ExpiresOverdueAndSendsOnce(t *testing.T) {
	store := memory.New()
	notifier := &countingNotifier{}
	w := newWorker(store, notifier)

	c := requestedCandidacy(t, store)
	ctx := requestcontext.WithTime(context.Background(), t0.Add(8*24*time.Hour))

	w.RunOnce(ctx)

	got, err := store.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VideoExpired, got.Ledger.Video.Status)
	assert.True(t, got.Ledger.Video.ExpiredEmailSent)
	assert.Equal(t, 2, notifier.count(), "one email per side")

	recipients := map[ports.RecipientKind]bool{}
	for _, n := range notifier.sent {
		assert.Equal(t, ports.TemplateVideoExpired, n.Template)
		recipients[n.Recipient] = true
	}
	assert.True(t, recipients[ports.RecipientCandidate])
	assert.True(t, recipients[ports.RecipientCompany])
}

func TestRunOnce_IdempotentAcrossRepeatedPasses(t *testing.T) {
	store := memory.New()
	notifier := &countingNotifier{}
	w := newWorker(store, notifier)

	requestedCandidacy(t, store)
	ctx := requestcontext.WithTime(context.Background(), t0.Add(8*24*time.Hour))

	for range 5 {
		w.RunOnce(ctx)
	}
	assert.Equal(t, 2, notifier.count(), "repeated passes must not resend")
}

func TestRunOnce_ConcurrentPassesSendExactlyOnce(t *testing.T) {
	store := memory.New()
	notifier := &countingNotifier{}

	requestedCandidacy(t, store)
	ctx := requestcontext.WithTime(context.Background(), t0.Add(8*24*time.Hour))

	const passes = 10
	var wg sync.WaitGroup
	wg.Add(passes)
	for range passes {
		go func() {
			defer wg.Done()
			newWorker(store, notifier).RunOnce(ctx)
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, notifier.count(), "racing sweeps must agree on a single send")
}

func TestRunOnce_BeforeDeadlineDoesNothing(t *testing.T) {
	store := memory.New()
	notifier := &countingNotifier{}
	w := newWorker(store, notifier)

	c := requestedCandidacy(t, store)
	ctx := requestcontext.WithTime(context.Background(), t0.Add(24*time.Hour))

	w.RunOnce(ctx)

	got, err := store.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VideoRequested, got.Ledger.Video.Status)
	assert.Zero(t, notifier.count())
}

func TestRunOnce_UsesInjectedClock(t *testing.T) {
	store := memory.New()
	notifier := &countingNotifier{}
	w := newWorker(store, notifier)

	c := requestedCandidacy(t, store)

	// t0 is in the past, so the wall clock alone would expire this request.
	// The pass must evaluate against the context clock instead.
	w.RunOnce(requestcontext.WithTime(context.Background(), t0.Add(24*time.Hour)))

	got, err := store.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VideoRequested, got.Ledger.Video.Status)
	assert.Zero(t, notifier.count())

	w.RunOnce(requestcontext.WithTime(context.Background(), t0.Add(8*24*time.Hour)))

	got, err = store.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VideoExpired, got.Ledger.Video.Status)
	assert.Equal(t, 2, notifier.count())
}

func TestRunOnce_RecoversUnsentExpirations(t *testing.T) {
	store := memory.New()
	notifier := &countingNotifier{}
	w := newWorker(store, notifier)
	ctx := requestcontext.WithTime(context.Background(), t0.Add(8*24*time.Hour))

	// simulate a crash after the EXPIRED merge but before the send
	c := requestedCandidacy(t, store)
	_, err := store.Merge(ctx, c.ID, func(l *models.Ledger) error {
		l.Video.Status = models.VideoExpired
		return nil
	})
	require.NoError(t, err)

	w.RunOnce(ctx)

	got, err := store.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.Ledger.Video.ExpiredEmailSent)
	assert.Equal(t, 2, notifier.count())
}

func TestRunOnce_SendFailureRetriedNextPass(t *testing.T) {
	store := memory.New()
	notifier := &countingNotifier{fail: true}
	w := newWorker(store, notifier)

	c := requestedCandidacy(t, store)
	ctx := requestcontext.WithTime(context.Background(), t0.Add(8*24*time.Hour))

	w.RunOnce(ctx)

	got, err := store.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VideoExpired, got.Ledger.Video.Status)
	assert.False(t, got.Ledger.Video.ExpiredEmailSent, "claim must be released after a failed send")
	assert.Zero(t, notifier.count())

	notifier.setFail(false)
	w.RunOnce(ctx)

	got, err = store.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.Ledger.Video.ExpiredEmailSent)
	assert.Equal(t, 2, notifier.count())
}

// flakyStore fails every merge on one record so a pass can be observed
// skipping it while still finishing the rest.
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

func TestRunOnce_OneFailingRecordDoesNotBlockOthers(t *testing.T) {
	store := memory.New()
	notifier := &countingNotifier{}

	bad := requestedCandidacy(t, store)
	good := requestedCandidacy(t, store)
	ctx := requestcontext.WithTime(context.Background(), t0.Add(8*24*time.Hour))

	w := newWorker(&flakyStore{LedgerStore: store, failID: bad.ID}, notifier)
	w.RunOnce(ctx)

	gotGood, err := store.Get(ctx, good.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VideoExpired, gotGood.Ledger.Video.Status)
	assert.True(t, gotGood.Ledger.Video.ExpiredEmailSent)

	gotBad, err := store.Get(ctx, bad.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VideoRequested, gotBad.Ledger.Video.Status, "failed record is left for the next pass")
	assert.Equal(t, 2, notifier.count())
}

func TestRunOnce_RejectedCandidacyLeftAlone(t *testing.T) {
	store := memory.New()
	notifier := &countingNotifier{}
	w := newWorker(store, notifier)
	ctx := requestcontext.WithTime(context.Background(), t0.Add(8*24*time.Hour))

	c := requestedCandidacy(t, store)
	_, err := store.Merge(ctx, c.ID, func(l *models.Ledger) error {
		l.Feedback.Status = models.FeedbackRejected
		return nil
	})
	require.NoError(t, err)

	w.RunOnce(ctx)

	got, err := store.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VideoRequested, got.Ledger.Video.Status, "closed candidacies are not expired")
	assert.Zero(t, notifier.count())
}

// End-to-end timeline from the product rules: request at T0, submission at
// T0+8d is refused, the sweep expires the request and exactly one email
// goes to each side.
func TestScenario_MissedDeadline(t *testing.T) {
	store := memory.New()
	notifier := &countingNotifier{}
	w := newWorker(store, notifier)
	eng := engine.New(testCfg)

	c := requestedCandidacy(t, store)

	late := t0.Add(8 * 24 * time.Hour)
	_, err := store.Merge(context.Background(), c.ID, func(l *models.Ledger) error {
		next, _, err := eng.Apply(c.ID, *l, models.SubmitVideo{FileRef: "s3://videos/late"}, late)
		if err != nil {
			return err
		}
		*l = next
		return nil
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeDeadlineExpired))

	ctx := requestcontext.WithTime(context.Background(), late)
	w.RunOnce(ctx)
	w.RunOnce(ctx)

	got, err := store.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VideoExpired, got.Ledger.Video.Status)
	assert.True(t, got.Ledger.Video.ExpiredEmailSent)
	assert.Equal(t, 2, notifier.count())

	// both sides now carry the expiry notice, unread
	assert.NotContains(t, got.Ledger.CandidateNotice, models.NoticeVideoExpiredUnsubmitted)
	assert.NotContains(t, got.Ledger.CompanyNotice, models.NoticeVideoExpiredUnsubmitted)
}
