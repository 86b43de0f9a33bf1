package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type resultsService struct {
	pollRepo     ports.PollRepository
	responseRepo ports.ResponseRepository
	feed         ports.ResponseFeed
}

func NewResultsService(pollRepo ports.PollRepository, responseRepo ports.ResponseRepository, feed ports.ResponseFeed) ports.ResultsService {
	return &resultsService{
		pollRepo:     pollRepo,
		responseRepo: responseRepo,
		feed:         feed,
	}
}

func (s *resultsService) Snapshot(ctx context.Context, slug string) (*domain.Results, error) {
	poll, responses, err := s.load(ctx, slug)
	if err != nil {
		return nil, err
	}

	results := domain.Tally(*poll, poll.Options, responses)
	return &results, nil
}

// Watch fetches a snapshot, subscribes to the poll's feed and then replays
// anything stored since the snapshot watermark, which closes the window
// between the fetch and the subscription becoming active. Overlap with the
// feed is absorbed by id deduplication in Apply.
func (s *resultsService) Watch(ctx context.Context, slug string) (ports.LiveResults, error) {
	poll, responses, err := s.load(ctx, slug)
	if err != nil {
		return nil, err
	}

	live := newLiveResults(*poll, poll.Options, responses)

	sub, err := s.feed.Subscribe(ctx, poll.ID, func(r domain.Response) {
		live.Apply(r)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to responses: %w", err)
	}
	live.attach(sub)

	missed, err := s.responseRepo.ListSince(ctx, poll.ID, watermark(poll, responses))
	if err != nil {
		live.Close()
		return nil, fmt.Errorf("failed to catch up on responses: %w", err)
	}

	applied := 0
	for _, r := range missed {
		if live.Apply(r) {
			applied++
		}
	}
	if applied > 0 {
		logrus.WithFields(logrus.Fields{
			"poll_id": poll.ID,
			"count":   applied,
		}).Debug("applied responses missed between snapshot and subscribe")
	}

	return live, nil
}

func (s *resultsService) load(ctx context.Context, slug string) (*domain.Poll, []domain.Response, error) {
	if !ValidSlug(slug) {
		return nil, nil, domain.ErrPollNotFound
	}

	poll, err := s.pollRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	if !poll.ShowResults {
		return nil, nil, domain.ErrResultsHidden
	}

	responses, err := s.responseRepo.ListByPoll(ctx, poll.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch responses: %w", err)
	}

	return poll, responses, nil
}

func watermark(poll *domain.Poll, responses []domain.Response) (since time.Time) {
	since = poll.CreatedAt
	for _, r := range responses {
		if r.SubmittedAt.After(since) {
			since = r.SubmittedAt
		}
	}
	return since
}
