package canvas

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tanglekit/artmarket/internal/config"
)

// Display is the surface the loop pushes outcomes to. The reference
// implementation just logs; an e-ink or framebuffer front end plugs in here.
type Display interface {
	ShowArtwork(path string)
	ShowLowBalance()
}

// LogDisplay is the default Display.
type LogDisplay struct{}

func (LogDisplay) ShowArtwork(path string) {
	slog.Info("displaying artwork", "path", path)
}

func (LogDisplay) ShowLowBalance() {
	slog.Warn("balance low, funding required")
}

// Loop is the client's long-lived reactive loop. It waits on the queue,
// dispatches refreshes when due, and forwards outcomes to the display.
type Loop struct {
	queue     *SyncQueue
	stop      *Signal
	refresher *Refresher
	state     *StateStore
	display   Display
	cfg       config.CanvasConfig
}

func NewLoop(queue *SyncQueue, stop *Signal, refresher *Refresher,
	state *StateStore, display Display, cfg config.CanvasConfig) *Loop {
	if display == nil {
		display = LogDisplay{}
	}
	// A stop raise must interrupt a pending WaitNext.
	stop.Notify(queue.Wake)
	return &Loop{
		queue:     queue,
		stop:      stop,
		refresher: refresher,
		state:     state,
		display:   display,
		cfg:       cfg,
	}
}

// Run blocks until the stop signal is raised or ctx is cancelled. The stop
// signal is set on exit so in-flight refreshes wind down.
func (l *Loop) Run(ctx context.Context) {
	defer l.stop.Set()

	for {
		if ctx.Err() != nil {
			return
		}
		if l.refreshDue() {
			go l.refresher.Refresh(ctx, l.stop)
		}

		ev, err := l.queue.WaitNext(l.stop, l.cfg.CheckInterval)
		switch {
		case errors.Is(err, ErrStopped):
			slog.Info("reactive loop stopping")
			return
		case errors.Is(err, ErrTimedOut):
			// Periodic due check only.
			continue
		}

		l.handle(ctx, ev)
	}
}

func (l *Loop) handle(ctx context.Context, ev Event) {
	slog.Debug("event received", "kind", ev.Kind.String())

	switch ev.Kind {
	case EventRefreshArtwork:
		go l.refresher.Refresh(ctx, l.stop)
	case EventArtworkUpdated:
		l.display.ShowArtwork(l.state.CurrentArtwork())
	case EventLowBalance:
		l.display.ShowLowBalance()
	case EventError:
		slog.Error("refresh reported error", "message", ev.Message)
	}
}

// refreshDue reports whether a refresh should be dispatched: no artwork has
// been retrieved yet, or the refresh interval has elapsed. The refresher's
// own guard and cooldown keep this from stacking runs.
func (l *Loop) refreshDue() bool {
	if l.refresher.Refreshing() {
		return false
	}
	if l.state.CurrentArtwork() == "" {
		return true
	}
	return time.Since(l.state.LastRefresh()) >= l.cfg.RefreshInterval
}
