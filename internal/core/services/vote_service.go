package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type voteService struct {
	pollRepo     ports.PollRepository
	sessionRepo  ports.SessionRepository
	responseRepo ports.ResponseRepository
	publisher    ports.ResponsePublisher
}

func NewVoteService(
	pollRepo ports.PollRepository,
	sessionRepo ports.SessionRepository,
	responseRepo ports.ResponseRepository,
	publisher ports.ResponsePublisher,
) ports.VoteService {
	if publisher == nil {
		publisher = ports.NopPublisher{}
	}
	return &voteService{
		pollRepo:     pollRepo,
		sessionRepo:  sessionRepo,
		responseRepo: responseRepo,
		publisher:    publisher,
	}
}

// SubmitVote records one response. Nothing stops the same person from
// voting again.
func (s *voteService) SubmitVote(ctx context.Context, input ports.SubmitVoteInput) (*domain.Response, error) {
	name, err := validateVote(input)
	if err != nil {
		return nil, err
	}

	poll, err := s.pollRepo.GetByID(ctx, input.PollID)
	if err != nil {
		return nil, err
	}
	if !poll.IsActive {
		return nil, domain.ErrPollInactive
	}
	if !poll.HasOption(input.OptionID) {
		return nil, domain.ErrInvalidOption
	}

	session, err := s.sessionRepo.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	response := &domain.Response{
		ID:             uuid.New(),
		PollID:         poll.ID,
		OptionID:       input.OptionID,
		SessionID:      session.ID,
		RespondentName: name,
		SubmittedAt:    time.Now().UTC(),
	}
	if err := s.responseRepo.Insert(ctx, response); err != nil {
		return nil, fmt.Errorf("failed to insert response: %w", err)
	}

	if err := s.publisher.Publish(context.WithoutCancel(ctx), *response); err != nil {
		logrus.WithFields(logrus.Fields{
			"poll_id":     response.PollID,
			"response_id": response.ID,
		}).WithError(err).Warn("failed to publish response")
	}

	return response, nil
}

func validateVote(input ports.SubmitVoteInput) (string, error) {
	if input.OptionID == uuid.Nil {
		return "", domain.NewValidationError("option_id", "is required")
	}

	name := strings.TrimSpace(input.RespondentName)
	if name == "" {
		return "", domain.NewValidationError("respondent_name", "is required")
	}
	if utf8.RuneCountInString(name) > domain.MaxRespondentNameLen {
		return "", domain.NewValidationError("respondent_name", fmt.Sprintf("must be at most %d characters", domain.MaxRespondentNameLen))
	}
	return name, nil
}
