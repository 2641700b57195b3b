package canvas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tanglekit/artmarket/internal/config"
	"github.com/tanglekit/artmarket/internal/tangle"
)

// Refresher runs the refresh protocol: check funds, pick the cheapest
// artist, commission, pay, poll until completed, retrieve and persist the
// artwork. At most one refresh runs at a time; overlapping requests are
// no-ops.
type Refresher struct {
	market *MarketClient
	tangle tangle.Client
	state  *StateStore
	queue  *SyncQueue
	cfg    config.CanvasConfig

	refreshing atomic.Bool

	mu          sync.Mutex
	lastAttempt time.Time
}

func NewRefresher(market *MarketClient, tc tangle.Client, state *StateStore,
	queue *SyncQueue, cfg config.CanvasConfig) *Refresher {
	return &Refresher{
		market: market,
		tangle: tc,
		state:  state,
		queue:  queue,
		cfg:    cfg,
	}
}

// Refreshing reports whether a refresh is currently in flight.
func (r *Refresher) Refreshing() bool {
	return r.refreshing.Load()
}

// Refresh runs one pass of the refresh protocol. Returns immediately when a
// refresh is already in flight or the cooldown since the last attempt has
// not elapsed.
func (r *Refresher) Refresh(ctx context.Context, stop *Signal) {
	if !r.refreshing.CompareAndSwap(false, true) {
		slog.Debug("refresh already in flight, skipping")
		return
	}
	defer r.refreshing.Store(false)

	if !r.beginAttempt() {
		slog.Debug("refresh cooldown active, skipping")
		return
	}

	if err := r.run(ctx, stop); err != nil {
		switch {
		case errors.Is(err, tangle.ErrInsufficientFunds):
			slog.Warn("refresh aborted: insufficient funds")
			r.queue.Put(LowBalanceEvent())
		case errors.Is(err, errStopRequested), errors.Is(err, errPollTimeout):
			slog.Info("refresh abandoned", "reason", err)
		default:
			slog.Error("refresh failed", "error", err)
			r.queue.Put(ErrorEvent(err.Error()))
		}
	}
}

var (
	errStopRequested = errors.New("stop requested")
	errPollTimeout   = errors.New("art not completed in time")
)

func (r *Refresher) beginAttempt() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if !r.lastAttempt.IsZero() && now.Sub(r.lastAttempt) < r.cfg.RefreshCooldown {
		return false
	}
	r.lastAttempt = now
	return true
}

func (r *Refresher) run(ctx context.Context, stop *Signal) error {
	balance, err := r.tangle.AccountBalance(ctx)
	if err != nil {
		return fmt.Errorf("checking balance: %w", err)
	}
	if balance < r.cfg.LowBalanceAmount {
		return fmt.Errorf("balance %d below threshold %d: %w",
			balance, r.cfg.LowBalanceAmount, tangle.ErrInsufficientFunds)
	}

	listings, err := r.market.ArtistList(ctx)
	if err != nil {
		return fmt.Errorf("fetching artist list: %w", err)
	}

	chosen, ok := ChooseArtist(listings)
	if !ok {
		return errors.New("no artists listed")
	}
	slog.Info("artist chosen", "artist_id", chosen.ID, "cost", chosen.Cost, "genre", chosen.Genre)

	commission, err := r.market.RequestArt(ctx, chosen.ID)
	if err != nil {
		return fmt.Errorf("requesting art: %w", err)
	}
	slog.Info("commission opened", "job_id", commission.JobID, "address", commission.Address)

	if err := r.tangle.Send(ctx, chosen.Cost, commission.Address, "artmarket commission"); err != nil {
		return fmt.Errorf("paying commission: %w", err)
	}

	if err := r.pollStatus(ctx, stop, commission); err != nil {
		return err
	}

	data, err := r.market.RetrieveArt(ctx, commission.RetrievePath, commission.Key)
	if err != nil {
		return fmt.Errorf("retrieving art: %w", err)
	}

	path, err := r.saveArtwork(data)
	if err != nil {
		return err
	}

	r.state.SetArtwork(path, time.Now())
	if err := r.state.Flush(); err != nil {
		slog.Warn("flushing state failed", "error", err)
	}

	slog.Info("artwork updated", "path", path, "job_id", commission.JobID)
	r.queue.Put(ArtworkUpdatedEvent())
	return nil
}

// pollStatus polls the job status until completed, the deadline passes, or
// the stop signal is raised. The payment is sunk either way, so a timeout
// is abandoned silently rather than reported as an error.
func (r *Refresher) pollStatus(ctx context.Context, stop *Signal, commission *Commission) error {
	deadline := time.Now().Add(r.cfg.MaxCheckTime)

	for {
		if stop.IsSet() {
			return errStopRequested
		}
		if time.Now().After(deadline) {
			return errPollTimeout
		}

		err := r.market.JobStatus(ctx, commission.StatusPath, commission.Key)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrPending):
		default:
			return fmt.Errorf("polling job status: %w", err)
		}

		select {
		case <-stop.Done():
			return errStopRequested
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.cfg.ArtCheckInterval):
		}
	}
}

// saveArtwork sniffs the image type from the bytes and writes the artifact
// under a fresh name in the artwork directory.
func (r *Refresher) saveArtwork(data []byte) (string, error) {
	if err := os.MkdirAll(r.cfg.ArtworkDir, 0o755); err != nil {
		return "", fmt.Errorf("creating artwork dir: %w", err)
	}

	name := uuid.NewString()[:8] + extensionFor(data)
	path := filepath.Join(r.cfg.ArtworkDir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing artwork: %w", err)
	}
	return path, nil
}

// extensionFor picks a file extension from the content, never from any
// server-supplied name.
func extensionFor(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	default:
		return ".img"
	}
}

// ChooseArtist returns the cheapest listing; ties go to the earliest entry
// in listing order.
func ChooseArtist(listings []Listing) (Listing, bool) {
	if len(listings) == 0 {
		return Listing{}, false
	}
	best := listings[0]
	for _, l := range listings[1:] {
		if l.Cost < best.Cost {
			best = l
		}
	}
	return best, true
}
