// Package pgnotify turns the responses insert trigger into a response feed.
// One LISTEN connection is shared by every subscriber of the process.
package pgnotify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/livepoll/internal/adapters/feed/memory"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
	"github.com/vncsmyrnk/livepoll/internal/metrics"
)

// Channel is the NOTIFY channel written by the notify_response_insert trigger.
const Channel = "response_inserts"

const (
	feedName             = "postgres"
	minReconnectInterval = 100 * time.Millisecond
	maxReconnectInterval = 10 * time.Second
	pingInterval         = 90 * time.Second
)

type Feed struct {
	listener *pq.Listener
	broker   *memory.Broker
	wg       sync.WaitGroup
}

// New opens the listener on dsn and starts dispatching notifications.
func New(dsn string) (*Feed, error) {
	f := &Feed{
		broker: memory.NewBroker(feedName, memory.DefaultBuffer),
	}
	f.listener = pq.NewListener(dsn, minReconnectInterval, maxReconnectInterval, onListenerEvent)

	if err := f.listener.Listen(Channel); err != nil {
		f.listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", Channel, err)
	}

	f.wg.Add(1)
	go f.run()

	return f, nil
}

func (f *Feed) Subscribe(ctx context.Context, pollID uuid.UUID, handler ports.ResponseHandler) (ports.Subscription, error) {
	return f.broker.Subscribe(ctx, pollID, handler)
}

// Subscribers returns the number of live subscriptions for a poll.
func (f *Feed) Subscribers(pollID uuid.UUID) int {
	return f.broker.Subscribers(pollID)
}

// Close stops the listener and waits for the dispatch loop to exit.
func (f *Feed) Close() error {
	err := f.listener.Close()
	f.wg.Wait()
	return err
}

func (f *Feed) run() {
	defer f.wg.Done()

	for {
		select {
		case n, ok := <-f.listener.Notify:
			if !ok {
				return
			}
			if n == nil {
				// pq sends nil once the connection is re-established.
				metrics.FeedReconnects.WithLabelValues(feedName, "resumed").Inc()
				logrus.WithField("feed", feedName).
					Warn("listener reconnected, responses inserted while disconnected were not delivered")
				continue
			}
			f.dispatch(n.Extra)
		case <-time.After(pingInterval):
			go func() {
				if err := f.listener.Ping(); err != nil {
					logrus.WithField("feed", feedName).WithError(err).Warn("listener ping failed")
				}
			}()
		}
	}
}

func (f *Feed) dispatch(payload string) {
	var response domain.Response
	if err := json.Unmarshal([]byte(payload), &response); err != nil {
		metrics.FeedEvents.WithLabelValues(feedName, "malformed").Inc()
		logrus.WithField("feed", feedName).WithError(err).Warn("failed to decode notification payload")
		return
	}

	if err := f.broker.Publish(context.Background(), response); err != nil {
		logrus.WithField("feed", feedName).WithError(err).Warn("failed to fan out response")
	}
}

func onListenerEvent(event pq.ListenerEventType, err error) {
	entry := logrus.WithField("feed", feedName)
	if err != nil {
		entry = entry.WithError(err)
	}

	switch event {
	case pq.ListenerEventConnected:
		entry.Info("listener connected")
	case pq.ListenerEventDisconnected:
		metrics.FeedReconnects.WithLabelValues(feedName, "disconnected").Inc()
		entry.Warn("listener disconnected")
	case pq.ListenerEventReconnected:
		metrics.FeedReconnects.WithLabelValues(feedName, "reconnected").Inc()
		entry.Warn("listener reconnected")
	case pq.ListenerEventConnectionAttemptFailed:
		metrics.FeedReconnects.WithLabelValues(feedName, "attempt_failed").Inc()
		entry.Warn("listener connection attempt failed")
	}
}
