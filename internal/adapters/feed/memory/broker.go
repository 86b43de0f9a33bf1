// Package memory is an in-process response feed. It backs single-node
// deployments and is the fan-out stage of the postgres feed.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
	"github.com/vncsmyrnk/livepoll/internal/metrics"
)

const DefaultBuffer = 64

type Broker struct {
	name   string
	buffer int

	mu   sync.RWMutex
	subs map[uuid.UUID]map[*subscription]struct{}
}

// NewBroker returns a broker whose subscribers buffer up to buffer events.
// A subscriber that falls further behind loses events. name labels metrics.
func NewBroker(name string, buffer int) *Broker {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broker{
		name:   name,
		buffer: buffer,
		subs:   make(map[uuid.UUID]map[*subscription]struct{}),
	}
}

func (b *Broker) Subscribe(ctx context.Context, pollID uuid.UUID, handler ports.ResponseHandler) (ports.Subscription, error) {
	sub := &subscription{
		broker:  b,
		pollID:  pollID,
		handler: handler,
		events:  make(chan domain.Response, b.buffer),
		done:    make(chan struct{}),
	}

	b.mu.Lock()
	if b.subs[pollID] == nil {
		b.subs[pollID] = make(map[*subscription]struct{})
	}
	b.subs[pollID][sub] = struct{}{}
	b.mu.Unlock()

	go sub.run(ctx)

	return sub, nil
}

// Publish hands the response to every subscriber of its poll without
// blocking.
func (b *Broker) Publish(_ context.Context, response domain.Response) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[response.PollID] {
		select {
		case sub.events <- response:
			metrics.FeedEvents.WithLabelValues(b.name, "delivered").Inc()
		default:
			metrics.FeedEvents.WithLabelValues(b.name, "dropped").Inc()
			logrus.WithFields(logrus.Fields{
				"feed":        b.name,
				"poll_id":     response.PollID,
				"response_id": response.ID,
			}).Warn("subscriber buffer full, dropping response")
		}
	}
	return nil
}

// Subscribers returns the number of active subscriptions for a poll.
func (b *Broker) Subscribers(pollID uuid.UUID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subs[pollID])
}

func (b *Broker) remove(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[sub.pollID]
	delete(subs, sub)
	if len(subs) == 0 {
		delete(b.subs, sub.pollID)
	}
}

type subscription struct {
	broker  *Broker
	pollID  uuid.UUID
	handler ports.ResponseHandler
	events  chan domain.Response
	done    chan struct{}
	once    sync.Once
}

func (s *subscription) run(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			s.Cancel()
			return
		case r := <-s.events:
			select {
			case <-s.done:
				return
			default:
			}
			s.handler(r)
		}
	}
}

func (s *subscription) Cancel() {
	s.once.Do(func() {
		s.broker.remove(s)
		close(s.done)
	})
}
