package commission_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanglekit/artmarket/internal/artist"
	"github.com/tanglekit/artmarket/internal/commission"
	"github.com/tanglekit/artmarket/pkg/models"
)

type watcherFixture struct {
	store  *mockStore
	tangle *mockTangle
	cache  *mockCache
	ledger *commission.Ledger
	job    *models.Job
	rawKey string
}

func newWatcherFixture(t *testing.T) *watcherFixture {
	t.Helper()
	st := newMockStore()
	tc := newMockTangle()
	ledger := commission.NewLedger(st, commission.NewAllocator(st, tc))

	job, rawKey, err := ledger.CreateJob(context.Background(), uuid.New())
	require.NoError(t, err)

	return &watcherFixture{
		store:  st,
		tangle: tc,
		cache:  newMockCache(),
		ledger: ledger,
		job:    job,
		rawKey: rawKey,
	}
}

func (f *watcherFixture) watcher(required uint64, gen artist.Generator) *commission.Watcher {
	return &commission.Watcher{
		Job:         f.job,
		Required:    required,
		Ledger:      f.ledger,
		Store:       f.store,
		Cache:       f.cache,
		Tangle:      f.tangle,
		Generator:   gen,
		ArtDir:      "art",
		Interval:    5 * time.Millisecond,
		WaitPayment: 100 * time.Millisecond,
	}
}

func paintGen(filename string) artist.Generator {
	return artist.GeneratorFunc(func(_ context.Context, _ string) (string, error) {
		return filename, nil
	})
}

func TestWatcher_PaidAndCompleted(t *testing.T) {
	f := newWatcherFixture(t)
	f.tangle.setBalance(f.job.Address, 500)

	w := f.watcher(500, paintGen("piece.png"))
	state, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, commission.StateCompleted, state)

	got, err := f.ledger.GetJob(context.Background(), f.job.ID, f.rawKey)
	require.NoError(t, err)
	assert.True(t, got.Completed())
	assert.Equal(t, "piece.png", *got.Filename)

	// Completion is mirrored to the status cache.
	status, ok, err := f.cache.GetJobStatus(context.Background(), f.job.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.JobStatusCompleted, status)

	// The generation time feeds the artist's pricing average.
	assert.Len(t, f.store.genTimes[f.job.ArtistID], 1)
}

func TestWatcher_OverpaymentCounts(t *testing.T) {
	f := newWatcherFixture(t)
	f.tangle.setBalance(f.job.Address, 9999)

	w := f.watcher(500, paintGen("piece.png"))
	state, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, commission.StateCompleted, state)
}

func TestWatcher_TimeoutCancelsJob(t *testing.T) {
	f := newWatcherFixture(t)
	// No payment ever arrives.

	w := f.watcher(500, paintGen("piece.png"))
	start := time.Now()
	state, err := w.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, commission.StateCancelled, state)
	assert.Equal(t, 0, f.store.jobCount(), "unpaid job must be deleted")
	assert.Less(t, time.Since(start), time.Second)
}

func TestWatcher_LatePaymentWithinWindow(t *testing.T) {
	f := newWatcherFixture(t)

	go func() {
		time.Sleep(20 * time.Millisecond)
		f.tangle.setBalance(f.job.Address, 500)
	}()

	w := f.watcher(500, paintGen("piece.png"))
	state, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, commission.StateCompleted, state)
}

func TestWatcher_BalanceErrorsAreTransient(t *testing.T) {
	f := newWatcherFixture(t)
	f.tangle.setBalance(f.job.Address, 500)
	f.tangle.balanceErr = errors.New("node flaky")

	// The node recovers before the deadline; the watcher keeps polling
	// through the failures and still completes.
	go func() {
		time.Sleep(30 * time.Millisecond)
		f.tangle.mu.Lock()
		f.tangle.balanceErr = nil
		f.tangle.mu.Unlock()
	}()

	w := f.watcher(500, paintGen("piece.png"))
	state, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, commission.StateCompleted, state)
}

func TestWatcher_GeneratorFailure(t *testing.T) {
	f := newWatcherFixture(t)
	f.tangle.setBalance(f.job.Address, 500)

	gen := artist.GeneratorFunc(func(_ context.Context, _ string) (string, error) {
		return "", errors.New("out of paint")
	})

	w := f.watcher(500, gen)
	state, err := w.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, commission.StateFailed, state)

	// The paid job is not deleted; it stays pending for operator action.
	assert.Equal(t, 1, f.store.jobCount())
	got, err := f.store.GetJob(context.Background(), f.job.ID)
	require.NoError(t, err)
	assert.False(t, got.Completed())
}

func TestWatcher_ZeroCostCompletesImmediately(t *testing.T) {
	f := newWatcherFixture(t)

	w := f.watcher(0, paintGen("free.png"))
	state, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, commission.StateCompleted, state)
}
