package commission

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// WatcherStatus is the supervisor's view of one watcher.
type WatcherStatus struct {
	State string
	Err   error
}

// Supervisor tracks every payment watcher by job id. A watcher that panics or
// fails is recorded rather than silently vanishing, so stuck jobs stay
// observable.
type Supervisor struct {
	mu       sync.Mutex
	watchers map[uuid.UUID]WatcherStatus
	wg       sync.WaitGroup
}

func NewSupervisor() *Supervisor {
	return &Supervisor{watchers: make(map[uuid.UUID]WatcherStatus)}
}

// Start launches the watcher in its own goroutine. The watcher runs to a
// terminal state regardless of the caller; ctx is only consulted by the
// ledger and generator calls inside.
func (s *Supervisor) Start(ctx context.Context, w *Watcher) {
	jobID := w.Job.ID
	s.setStatus(jobID, WatcherStatus{State: StateAwaitingPayment})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic in payment watcher", "job_id", jobID, "error", r)
				s.setStatus(jobID, WatcherStatus{
					State: StateFailed,
					Err:   fmt.Errorf("panic: %v", r),
				})
			}
		}()

		state, err := w.Run(ctx)
		if err != nil {
			slog.Error("payment watcher failed", "job_id", jobID, "error", err)
		}
		s.setStatus(jobID, WatcherStatus{State: state, Err: err})
	}()
}

// Status reports the last known state of the watcher for jobID.
func (s *Supervisor) Status(jobID uuid.UUID) (WatcherStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.watchers[jobID]
	return st, ok
}

// Active returns the number of watchers still awaiting a terminal state.
func (s *Supervisor) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, st := range s.watchers {
		switch st.State {
		case StateCompleted, StateCancelled, StateFailed:
		default:
			n++
		}
	}
	return n
}

// Wait blocks until every started watcher has reached a terminal state.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

func (s *Supervisor) setStatus(jobID uuid.UUID, st WatcherStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers[jobID] = st
}
