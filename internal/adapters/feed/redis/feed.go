// Package redis publishes stored responses on per-poll redis channels and
// feeds them back to live views on any node.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
	"github.com/vncsmyrnk/livepoll/internal/metrics"
)

const (
	feedName      = "redis"
	channelPrefix = "livepoll:responses:"
)

// Feed is both the ResponsePublisher used by vote submission and the
// ResponseFeed used by live views.
type Feed struct {
	client *goredis.Client
}

func New(client *goredis.Client) *Feed {
	return &Feed{client: client}
}

// NewFromURL connects to a redis:// or rediss:// URL.
func NewFromURL(ctx context.Context, url string) (*Feed, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return New(client), nil
}

func ChannelFor(pollID uuid.UUID) string {
	return channelPrefix + pollID.String()
}

func (f *Feed) Publish(ctx context.Context, response domain.Response) error {
	payload, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}

	if err := f.client.Publish(ctx, ChannelFor(response.PollID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish response: %w", err)
	}
	return nil
}

// Subscribe returns once redis has confirmed the subscription, so anything
// published afterwards is delivered.
func (f *Feed) Subscribe(ctx context.Context, pollID uuid.UUID, handler ports.ResponseHandler) (ports.Subscription, error) {
	pubsub := f.client.Subscribe(ctx, ChannelFor(pollID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to poll %s: %w", pollID, err)
	}

	sub := &subscription{
		pubsub: pubsub,
		done:   make(chan struct{}),
	}
	go sub.run(ctx, pollID, handler)

	return sub, nil
}

func (f *Feed) Close() error {
	return f.client.Close()
}

type subscription struct {
	pubsub *goredis.PubSub
	done   chan struct{}
	once   sync.Once
}

func (s *subscription) run(ctx context.Context, pollID uuid.UUID, handler ports.ResponseHandler) {
	messages := s.pubsub.Channel()
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			s.Cancel()
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}

			var response domain.Response
			if err := json.Unmarshal([]byte(msg.Payload), &response); err != nil {
				metrics.FeedEvents.WithLabelValues(feedName, "malformed").Inc()
				logrus.WithFields(logrus.Fields{
					"feed":    feedName,
					"poll_id": pollID,
				}).WithError(err).Warn("failed to decode response message")
				continue
			}

			select {
			case <-s.done:
				return
			default:
			}
			metrics.FeedEvents.WithLabelValues(feedName, "delivered").Inc()
			handler(response)
		}
	}
}

func (s *subscription) Cancel() {
	s.once.Do(func() {
		close(s.done)
		if err := s.pubsub.Close(); err != nil {
			logrus.WithField("feed", feedName).WithError(err).Debug("failed to close pubsub")
		}
	})
}
