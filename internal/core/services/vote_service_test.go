package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

func TestSubmitVote(t *testing.T) {
	store := newFakeStore()
	poll := seedPoll(store, "abcdefghij", "Red", "Blue")
	pub := &recordingPublisher{}
	svc := NewVoteService(store, store, store, pub)

	resp, err := svc.SubmitVote(context.Background(), ports.SubmitVoteInput{
		PollID:         poll.ID,
		OptionID:       poll.Options[1].ID,
		RespondentName: "  Ada  ",
	})
	require.NoError(t, err)

	assert.Equal(t, poll.ID, resp.PollID)
	assert.Equal(t, poll.Options[1].ID, resp.OptionID)
	assert.Equal(t, "Ada", resp.RespondentName)
	assert.NotEqual(t, uuid.Nil, resp.SessionID)
	assert.Equal(t, 1, store.sessions)
	require.Len(t, store.responses, 1)
	require.Len(t, pub.published, 1)
	assert.Equal(t, resp.ID, pub.published[0].ID)
}

func TestSubmitVoteAllowsRepeatVotes(t *testing.T) {
	store := newFakeStore()
	poll := seedPoll(store, "abcdefghij", "Red", "Blue")
	svc := NewVoteService(store, store, store, nil)

	input := ports.SubmitVoteInput{PollID: poll.ID, OptionID: poll.Options[0].ID, RespondentName: "Ada"}
	first, err := svc.SubmitVote(context.Background(), input)
	require.NoError(t, err)
	second, err := svc.SubmitVote(context.Background(), input)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.Len(t, store.responses, 2)
}

func TestSubmitVoteValidationMakesNoStoreCall(t *testing.T) {
	tests := []struct {
		name  string
		input ports.SubmitVoteInput
		field string
	}{
		{"empty name", ports.SubmitVoteInput{OptionID: uuid.New(), RespondentName: ""}, "respondent_name"},
		{"blank name", ports.SubmitVoteInput{OptionID: uuid.New(), RespondentName: " \t "}, "respondent_name"},
		{"long name", ports.SubmitVoteInput{OptionID: uuid.New(), RespondentName: strings.Repeat("n", domain.MaxRespondentNameLen+1)}, "respondent_name"},
		{"missing option", ports.SubmitVoteInput{RespondentName: "Ada"}, "option_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			poll := seedPoll(store, "abcdefghij", "Red")
			tt.input.PollID = poll.ID
			svc := NewVoteService(store, store, store, nil)

			_, err := svc.SubmitVote(context.Background(), tt.input)
			require.ErrorIs(t, err, domain.ErrValidation)

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Zero(t, store.callCount())
		})
	}
}

func TestSubmitVoteNameLengthCountsCharacters(t *testing.T) {
	store := newFakeStore()
	poll := seedPoll(store, "abcdefghij", "Red")
	svc := NewVoteService(store, store, store, nil)

	_, err := svc.SubmitVote(context.Background(), ports.SubmitVoteInput{
		PollID:         poll.ID,
		OptionID:       poll.Options[0].ID,
		RespondentName: strings.Repeat("é", domain.MaxRespondentNameLen),
	})
	require.NoError(t, err)
}

func TestSubmitVoteRejections(t *testing.T) {
	store := newFakeStore()
	poll := seedPoll(store, "abcdefghij", "Red")
	other := seedPoll(store, "klmnopqrst", "Elsewhere")
	inactive := seedPoll(store, "uvwxyzABCD", "Closed")
	inactive.IsActive = false
	svc := NewVoteService(store, store, store, nil)

	_, err := svc.SubmitVote(context.Background(), ports.SubmitVoteInput{
		PollID: uuid.New(), OptionID: poll.Options[0].ID, RespondentName: "Ada",
	})
	assert.ErrorIs(t, err, domain.ErrPollNotFound)

	_, err = svc.SubmitVote(context.Background(), ports.SubmitVoteInput{
		PollID: poll.ID, OptionID: other.Options[0].ID, RespondentName: "Ada",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidOption)

	_, err = svc.SubmitVote(context.Background(), ports.SubmitVoteInput{
		PollID: inactive.ID, OptionID: inactive.Options[0].ID, RespondentName: "Ada",
	})
	assert.ErrorIs(t, err, domain.ErrPollInactive)

	assert.Zero(t, store.sessions)
	assert.Empty(t, store.responses)
}

func TestSubmitVoteStoreFailures(t *testing.T) {
	t.Run("session", func(t *testing.T) {
		store := newFakeStore()
		poll := seedPoll(store, "abcdefghij", "Red")
		store.sessionErr = errStore
		pub := &recordingPublisher{}
		svc := NewVoteService(store, store, store, pub)

		_, err := svc.SubmitVote(context.Background(), ports.SubmitVoteInput{PollID: poll.ID, OptionID: poll.Options[0].ID, RespondentName: "Ada"})
		require.ErrorIs(t, err, errStore)
		assert.Empty(t, store.responses)
		assert.Empty(t, pub.published)
	})

	t.Run("insert", func(t *testing.T) {
		store := newFakeStore()
		poll := seedPoll(store, "abcdefghij", "Red")
		store.insertErr = errStore
		pub := &recordingPublisher{}
		svc := NewVoteService(store, store, store, pub)

		_, err := svc.SubmitVote(context.Background(), ports.SubmitVoteInput{PollID: poll.ID, OptionID: poll.Options[0].ID, RespondentName: "Ada"})
		require.ErrorIs(t, err, errStore)
		assert.Empty(t, pub.published)
	})
}

func TestSubmitVotePublishFailureStillSucceeds(t *testing.T) {
	store := newFakeStore()
	poll := seedPoll(store, "abcdefghij", "Red")
	svc := NewVoteService(store, store, store, &recordingPublisher{err: errStore})

	resp, err := svc.SubmitVote(context.Background(), ports.SubmitVoteInput{PollID: poll.ID, OptionID: poll.Options[0].ID, RespondentName: "Ada"})
	require.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Len(t, store.responses, 1)
}
