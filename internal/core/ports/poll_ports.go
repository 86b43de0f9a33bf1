package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

// PollRepository persists polls. Save writes the poll and its options in a
// single transaction and returns ErrSlugTaken when the slug collides. The
// getters load options in creation order.
type PollRepository interface {
	Save(ctx context.Context, poll *domain.Poll) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Poll, error)
}

type CreatePollInput struct {
	Question string
	Options  []string
}

type PollService interface {
	Create(ctx context.Context, input CreatePollInput) (*domain.Poll, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Poll, error)
}
