package services

import (
	"sync"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type LiveState int

const (
	Unsubscribed LiveState = iota
	Subscribed
)

func (s LiveState) String() string {
	if s == Subscribed {
		return "subscribed"
	}
	return "unsubscribed"
}

// liveResults holds one poll's options and responses in memory. Responses
// arrive from the feed goroutine while readers call Results, so all state is
// guarded by mu.
type liveResults struct {
	mu        sync.Mutex
	state     LiveState
	poll      domain.Poll
	options   []domain.Option
	responses []domain.Response
	seen      map[uuid.UUID]struct{}
	sub       ports.Subscription
	changed   chan struct{}
	closed    bool
}

func newLiveResults(poll domain.Poll, options []domain.Option, responses []domain.Response) *liveResults {
	l := &liveResults{
		poll:      poll,
		options:   options,
		responses: make([]domain.Response, 0, len(responses)),
		seen:      make(map[uuid.UUID]struct{}, len(responses)),
		changed:   make(chan struct{}, 1),
	}
	for _, r := range responses {
		if _, ok := l.seen[r.ID]; ok {
			continue
		}
		l.seen[r.ID] = struct{}{}
		l.responses = append(l.responses, r)
	}
	return l
}

func (l *liveResults) attach(sub ports.Subscription) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sub = sub
	l.state = Subscribed
}

// Apply appends a response once. It returns false when the view is closed,
// the response is for another poll, or the id was already applied.
func (l *liveResults) Apply(r domain.Response) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || r.PollID != l.poll.ID {
		return false
	}
	if _, ok := l.seen[r.ID]; ok {
		return false
	}
	l.seen[r.ID] = struct{}{}
	l.responses = append(l.responses, r)

	select {
	case l.changed <- struct{}{}:
	default:
	}
	return true
}

func (l *liveResults) Results() domain.Results {
	l.mu.Lock()
	defer l.mu.Unlock()

	return domain.Tally(l.poll, l.options, l.responses)
}

func (l *liveResults) Changed() <-chan struct{} {
	return l.changed
}

func (l *liveResults) State() LiveState {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.state
}

// Close moves the view to Unsubscribed. The subscription is cancelled
// outside the lock since a feed may wait for a handler that is blocked in
// Apply.
func (l *liveResults) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.state = Unsubscribed
	sub := l.sub
	l.sub = nil
	close(l.changed)
	l.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
}
