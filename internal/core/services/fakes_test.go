package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

var errStore = errors.New("store unavailable")

// fakeStore implements the poll, session and response repositories in
// memory and counts every call so tests can assert nothing was touched.
type fakeStore struct {
	mu        sync.Mutex
	polls     map[uuid.UUID]*domain.Poll
	slugs     map[string]uuid.UUID
	responses []domain.Response
	sessions  int
	calls     int

	saveErr     error
	sessionErr  error
	insertErr   error
	listErr     error
	sinceErr    error
	takenSlugs  map[string]bool
	onListSince func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		polls:      make(map[uuid.UUID]*domain.Poll),
		slugs:      make(map[string]uuid.UUID),
		takenSlugs: make(map[string]bool),
	}
}

func (f *fakeStore) Save(_ context.Context, poll *domain.Poll) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if f.saveErr != nil {
		return f.saveErr
	}
	if f.takenSlugs[poll.URLSlug] {
		return domain.ErrSlugTaken
	}
	cp := *poll
	cp.Options = append([]domain.Option(nil), poll.Options...)
	f.polls[poll.ID] = &cp
	f.slugs[poll.URLSlug] = poll.ID
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Poll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	p, ok := f.polls[id]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) GetBySlug(ctx context.Context, slug string) (*domain.Poll, error) {
	f.mu.Lock()
	id, ok := f.slugs[slug]
	f.mu.Unlock()
	if !ok {
		f.mu.Lock()
		f.calls++
		f.mu.Unlock()
		return nil, domain.ErrPollNotFound
	}
	return f.GetByID(ctx, id)
}

func (f *fakeStore) Create(context.Context) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	f.sessions++
	return &domain.Session{ID: uuid.New(), CreatedAt: time.Now()}, nil
}

func (f *fakeStore) Insert(_ context.Context, r *domain.Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if f.insertErr != nil {
		return f.insertErr
	}
	f.responses = append(f.responses, *r)
	return nil
}

func (f *fakeStore) ListByPoll(_ context.Context, pollID uuid.UUID) ([]domain.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Response
	for _, r := range f.responses {
		if r.PollID == pollID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) ListSince(_ context.Context, pollID uuid.UUID, since time.Time) ([]domain.Response, error) {
	if f.onListSince != nil {
		f.onListSince()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if f.sinceErr != nil {
		return nil, f.sinceErr
	}
	var out []domain.Response
	for _, r := range f.responses {
		if r.PollID == pollID && !r.SubmittedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) addResponse(r domain.Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, r)
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []domain.Response
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, r domain.Response) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, r)
	return nil
}

func seedPoll(store *fakeStore, slug string, texts ...string) *domain.Poll {
	created := time.Now().UTC().Add(-time.Hour)
	poll := &domain.Poll{
		ID:           uuid.New(),
		Question:     "Favourite colour?",
		URLSlug:      slug,
		IsActive:     true,
		ShowResults:  true,
		CreatedAt:    created,
		LastEditedAt: created,
	}
	for _, text := range texts {
		poll.Options = append(poll.Options, domain.Option{ID: uuid.New(), PollID: poll.ID, OptionText: text, CreatedAt: created})
	}
	store.polls[poll.ID] = poll
	store.slugs[slug] = poll.ID
	return poll
}
