package canvas

import (
	"container/heap"
	"errors"
	"sync"
	"time"
)

var (
	// ErrStopped is returned by WaitNext when the stop signal was raised.
	ErrStopped = errors.New("canvas: stop requested")
	// ErrTimedOut is returned by WaitNext when no event arrived in time.
	ErrTimedOut = errors.New("canvas: wait timed out")
)

// EventKind tags the variants carried on the refresh queue.
type EventKind int

const (
	EventRefreshArtwork EventKind = iota
	EventArtworkUpdated
	EventLowBalance
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventRefreshArtwork:
		return "refresh_artwork"
	case EventArtworkUpdated:
		return "artwork_updated"
	case EventLowBalance:
		return "low_balance"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a single item on the queue. Lower Priority values are served
// first; equal priorities preserve enqueue order.
type Event struct {
	Kind     EventKind
	Priority int
	Message  string
}

// User-visible outcomes outrank housekeeping requests.
func ArtworkUpdatedEvent() Event  { return Event{Kind: EventArtworkUpdated, Priority: 1} }
func LowBalanceEvent() Event      { return Event{Kind: EventLowBalance, Priority: 1} }
func ErrorEvent(msg string) Event { return Event{Kind: EventError, Priority: 2, Message: msg} }
func RefreshArtworkEvent() Event  { return Event{Kind: EventRefreshArtwork, Priority: 3} }

type queueItem struct {
	event Event
	seq   uint64
}

type eventHeap []queueItem

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].event.Priority != h[j].event.Priority {
		return h[i].event.Priority < h[j].event.Priority
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) { *h = append(*h, x.(queueItem)) }

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// SyncQueue is a stable priority queue of Events with a combined wait on
// data arrival and an external stop signal. A one-slot notifier channel is
// posted on every Put and every stop raise, so WaitNext never spins.
type SyncQueue struct {
	mu     sync.Mutex
	items  eventHeap
	seq    uint64
	notify chan struct{}
}

func NewSyncQueue() *SyncQueue {
	return &SyncQueue{notify: make(chan struct{}, 1)}
}

// Put enqueues ev and wakes any waiter.
func (q *SyncQueue) Put(ev Event) {
	q.mu.Lock()
	heap.Push(&q.items, queueItem{event: ev, seq: q.seq})
	q.seq++
	q.mu.Unlock()
	q.wake()
}

func (q *SyncQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// TryNext pops the highest-ranked event without blocking.
func (q *SyncQueue) TryNext() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Event{}, false
	}
	item := heap.Pop(&q.items).(queueItem)
	return item.event, true
}

// WaitNext blocks until an event is available, the stop signal is raised,
// or timeout elapses, whichever happens first. The stop signal wins over a
// simultaneously available event.
func (q *SyncQueue) WaitNext(stop *Signal, timeout time.Duration) (Event, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		if stop.IsSet() {
			return Event{}, ErrStopped
		}
		if ev, ok := q.TryNext(); ok {
			return ev, nil
		}
		select {
		case <-q.notify:
		case <-stop.Done():
			return Event{}, ErrStopped
		case <-deadline.C:
			return Event{}, ErrTimedOut
		}
	}
}

func (q *SyncQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Wake posts the notifier without enqueueing. The stop signal's Notify
// callback uses this so a raise interrupts a pending WaitNext.
func (q *SyncQueue) Wake() {
	q.wake()
}
