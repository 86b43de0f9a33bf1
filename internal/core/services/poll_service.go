package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

const slugAttempts = 3

const slugAlphabet = "_-0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

type SlugGenerator func() (string, error)

func NewSlug() (string, error) {
	return gonanoid.Generate(slugAlphabet, domain.SlugLength)
}

// ValidSlug reports whether s could have been produced by NewSlug.
func ValidSlug(s string) bool {
	if len(s) != domain.SlugLength {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune(slugAlphabet, c) {
			return false
		}
	}
	return true
}

type pollService struct {
	repo    ports.PollRepository
	newSlug SlugGenerator
}

func NewPollService(repo ports.PollRepository) ports.PollService {
	return NewPollServiceWithSlugs(repo, NewSlug)
}

func NewPollServiceWithSlugs(repo ports.PollRepository, newSlug SlugGenerator) ports.PollService {
	return &pollService{
		repo:    repo,
		newSlug: newSlug,
	}
}

func (s *pollService) Create(ctx context.Context, input ports.CreatePollInput) (*domain.Poll, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, domain.NewValidationError("question", "is required")
	}
	if utf8.RuneCountInString(question) > domain.MaxQuestionLength {
		return nil, domain.NewValidationError("question", fmt.Sprintf("must be at most %d characters", domain.MaxQuestionLength))
	}

	pollID := uuid.New()
	now := time.Now().UTC()

	poll := &domain.Poll{
		ID:           pollID,
		Question:     question,
		IsActive:     true,
		ShowResults:  true,
		CreatedAt:    now,
		LastEditedAt: now,
	}

	for _, optText := range input.Options {
		optText = strings.TrimSpace(optText)
		if optText == "" {
			continue
		}
		if utf8.RuneCountInString(optText) > domain.MaxOptionTextLength {
			return nil, domain.NewValidationError("options", fmt.Sprintf("each option must be at most %d characters", domain.MaxOptionTextLength))
		}
		poll.Options = append(poll.Options, domain.Option{
			ID:         uuid.New(),
			PollID:     pollID,
			OptionText: optText,
			CreatedAt:  now,
		})
	}

	if len(poll.Options) < domain.MinPollOptions {
		return nil, domain.NewValidationError("options", "at least two options are required")
	}

	for attempt := 1; ; attempt++ {
		slug, err := s.newSlug()
		if err != nil {
			return nil, fmt.Errorf("failed to generate slug: %w", err)
		}
		poll.URLSlug = slug

		err = s.repo.Save(ctx, poll)
		if err == nil {
			return poll, nil
		}
		if !errors.Is(err, domain.ErrSlugTaken) || attempt == slugAttempts {
			return nil, err
		}
	}
}

func (s *pollService) GetBySlug(ctx context.Context, slug string) (*domain.Poll, error) {
	if !ValidSlug(slug) {
		return nil, domain.ErrPollNotFound
	}

	return s.repo.GetBySlug(ctx, slug)
}
