package canvas

import "sync"

// Signal is a latching stop flag shared between the reactive loop, the
// refresher and the queue. Once set it stays set. Observers either select
// on Done or register a wake callback with Notify.
type Signal struct {
	mu        sync.Mutex
	set       bool
	done      chan struct{}
	callbacks []func()
}

func NewSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Set raises the signal. Registered callbacks run synchronously, once.
func (s *Signal) Set() {
	s.mu.Lock()
	if s.set {
		s.mu.Unlock()
		return
	}
	s.set = true
	close(s.done)
	callbacks := s.callbacks
	s.callbacks = nil
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

func (s *Signal) IsSet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}

// Done returns a channel closed when the signal is raised.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Notify registers fn to run when the signal is raised. If the signal is
// already set, fn runs immediately.
func (s *Signal) Notify(fn func()) {
	s.mu.Lock()
	if s.set {
		s.mu.Unlock()
		fn()
		return
	}
	s.callbacks = append(s.callbacks, fn)
	s.mu.Unlock()
}
