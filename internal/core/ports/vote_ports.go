package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

type SessionRepository interface {
	Create(ctx context.Context) (*domain.Session, error)
}

type ResponseRepository interface {
	Insert(ctx context.Context, response *domain.Response) error
	ListByPoll(ctx context.Context, pollID uuid.UUID) ([]domain.Response, error)
	// ListSince returns responses submitted at or after since, oldest first.
	ListSince(ctx context.Context, pollID uuid.UUID, since time.Time) ([]domain.Response, error)
}

type SubmitVoteInput struct {
	PollID         uuid.UUID
	OptionID       uuid.UUID
	RespondentName string
}

type VoteService interface {
	SubmitVote(ctx context.Context, input SubmitVoteInput) (*domain.Response, error)
}
