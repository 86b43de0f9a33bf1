package ports

import (
	"context"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

// LiveResults is a results view kept current by the response feed.
type LiveResults interface {
	Results() domain.Results
	// Changed receives a value after one or more responses were applied and
	// is closed by Close.
	Changed() <-chan struct{}
	Close()
}

type ResultsService interface {
	Snapshot(ctx context.Context, slug string) (*domain.Results, error)
	Watch(ctx context.Context, slug string) (LiveResults, error)
}
