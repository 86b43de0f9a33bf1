package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

// ResponseHandler receives inserted responses. Calls for one subscription
// never overlap.
type ResponseHandler func(domain.Response)

type Subscription interface {
	// Cancel stops delivery. It is safe to call more than once.
	Cancel()
}

// ResponseFeed delivers response inserts scoped to a single poll.
type ResponseFeed interface {
	Subscribe(ctx context.Context, pollID uuid.UUID, handler ResponseHandler) (Subscription, error)
}

// ResponsePublisher announces a stored response to a feed. Feeds that learn
// about inserts from the database itself pair with NopPublisher.
type ResponsePublisher interface {
	Publish(ctx context.Context, response domain.Response) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.Response) error { return nil }
