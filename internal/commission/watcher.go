package commission

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tanglekit/artmarket/internal/artist"
	"github.com/tanglekit/artmarket/internal/cache"
	"github.com/tanglekit/artmarket/internal/store"
	"github.com/tanglekit/artmarket/internal/tangle"
	"github.com/tanglekit/artmarket/pkg/models"
)

// Watcher states. A watcher always runs to Completed, Cancelled, or Failed;
// it is not externally cancellable.
const (
	StateAwaitingPayment = "awaiting_payment"
	StatePaid            = "paid"
	StateGenerating      = "generating"
	StateCompleted       = "completed"
	StateTimedOut        = "timed_out"
	StateCancelled       = "cancelled"
	StateFailed          = "failed"
)

// Watcher polls one job's payment address until the required balance arrives
// or the payment window closes. On payment it runs the artist's generator and
// finalizes the job; on timeout it cancels the job outright.
type Watcher struct {
	Job      *models.Job
	Required uint64

	Ledger    *Ledger
	Store     store.Store
	Cache     cache.Cache
	Tangle    tangle.Client
	Generator artist.Generator
	ArtDir    string

	Interval    time.Duration
	WaitPayment time.Duration
}

// Run executes the watcher to a terminal state. It never holds a lock while
// sleeping; all shared state lives in the store.
func (w *Watcher) Run(ctx context.Context) (string, error) {
	deadline := time.Now().Add(w.WaitPayment)

	var balance uint64
	for balance < w.Required && time.Now().Before(deadline) {
		time.Sleep(w.Interval)

		b, err := w.Tangle.Balance(ctx, w.Job.Address)
		if err != nil {
			// Transient ledger failures count as "balance unchanged";
			// the job may already be paid, so keep polling until the
			// deadline decides.
			slog.Warn("balance query failed",
				"job_id", w.Job.ID, "address", w.Job.Address, "error", err)
			continue
		}
		balance = b
	}

	if balance < w.Required {
		if err := w.Ledger.Cancel(ctx, w.Job.ID); err != nil {
			return StateFailed, fmt.Errorf("cancelling unpaid job: %w", err)
		}
		slog.Info("commission timed out, job cancelled",
			"job_id", w.Job.ID, "required", w.Required, "balance", balance)
		return StateCancelled, nil
	}

	slog.Info("payment received", "job_id", w.Job.ID, "balance", balance)

	start := time.Now()
	filename, err := w.Generator.Run(ctx, w.ArtDir)
	if err != nil {
		// The job stays pending; the supervisor records the failure so an
		// operator can retry or cancel.
		return StateFailed, fmt.Errorf("generating artwork: %w", err)
	}

	if err := w.Ledger.Finalize(ctx, w.Job.ID, filename); err != nil {
		return StateFailed, fmt.Errorf("finalizing job: %w", err)
	}
	if w.Cache != nil {
		_ = w.Cache.SetJobStatus(ctx, w.Job.ID, models.JobStatusCompleted, jobStatusTTL)
	}

	if err := w.Store.RecordGenerationTime(ctx, w.Job.ArtistID, time.Since(start)); err != nil {
		// Pricing drift only; the commission itself succeeded.
		slog.Warn("recording generation time failed",
			"artist_id", w.Job.ArtistID, "error", err)
	}

	slog.Info("commission completed", "job_id", w.Job.ID, "filename", filename)
	return StateCompleted, nil
}
