package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOptions(pollID uuid.UUID, texts ...string) []Option {
	options := make([]Option, 0, len(texts))
	for _, text := range texts {
		options = append(options, Option{ID: uuid.New(), PollID: pollID, OptionText: text})
	}
	return options
}

func vote(pollID uuid.UUID, opt Option, name string, at time.Time) Response {
	return Response{
		ID:             uuid.New(),
		PollID:         pollID,
		OptionID:       opt.ID,
		SessionID:      uuid.New(),
		RespondentName: name,
		SubmittedAt:    at,
	}
}

func TestAggregateRedBlue(t *testing.T) {
	pollID := uuid.New()
	options := newOptions(pollID, "Red", "Blue")
	now := time.Now()
	responses := []Response{
		vote(pollID, options[0], "a", now),
		vote(pollID, options[0], "b", now.Add(time.Second)),
		vote(pollID, options[1], "c", now.Add(2*time.Second)),
	}

	results := Aggregate(options, responses)
	require.Len(t, results, 2)

	assert.Equal(t, "Red", results[0].Option.OptionText)
	assert.Equal(t, int64(2), results[0].VoteCount)
	assert.Equal(t, 66.7, results[0].Percentage)

	assert.Equal(t, "Blue", results[1].Option.OptionText)
	assert.Equal(t, int64(1), results[1].VoteCount)
	assert.Equal(t, 33.3, results[1].Percentage)
}

func TestAggregateKeepsDeclarationOrder(t *testing.T) {
	pollID := uuid.New()
	options := newOptions(pollID, "Few", "Many")
	now := time.Now()
	responses := []Response{
		vote(pollID, options[1], "a", now),
		vote(pollID, options[1], "b", now),
		vote(pollID, options[1], "c", now),
	}

	results := Aggregate(options, responses)
	require.Len(t, results, 2)
	assert.Equal(t, "Few", results[0].Option.OptionText)
	assert.Equal(t, int64(0), results[0].VoteCount)
	assert.Equal(t, "Many", results[1].Option.OptionText)
	assert.Equal(t, 100.0, results[1].Percentage)
}

func TestAggregateEmpty(t *testing.T) {
	assert.Empty(t, Aggregate(nil, nil))
	assert.Empty(t, Aggregate([]Option{}, []Response{}))

	options := newOptions(uuid.New(), "A", "B", "C")
	results := Aggregate(options, nil)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, int64(0), r.VoteCount)
		assert.Equal(t, 0.0, r.Percentage)
	}
}

func TestAggregateSumsAndBounds(t *testing.T) {
	pollID := uuid.New()
	options := newOptions(pollID, "A", "B", "C", "D", "E", "F", "G")
	now := time.Now()

	var responses []Response
	for i := 0; i < 101; i++ {
		responses = append(responses, vote(pollID, options[(i*i)%len(options)], "x", now))
	}

	results := Aggregate(options, responses)

	var votes int64
	var pct float64
	for _, r := range results {
		votes += r.VoteCount
		pct += r.Percentage
		assert.GreaterOrEqual(t, r.Percentage, 0.0)
		assert.LessOrEqual(t, r.Percentage, 100.0)
	}
	assert.Equal(t, int64(len(responses)), votes)
	assert.InDelta(t, 100.0, pct, 0.05*float64(len(options)))
}

func TestAggregateUnknownOptionCountsTowardsTotal(t *testing.T) {
	pollID := uuid.New()
	options := newOptions(pollID, "A")
	stray := Option{ID: uuid.New()}
	now := time.Now()
	responses := []Response{vote(pollID, options[0], "a", now), vote(pollID, stray, "b", now)}

	results := Aggregate(options, responses)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].VoteCount)
	assert.Equal(t, 50.0, results[0].Percentage)
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		votes, total int64
		want         float64
	}{
		{0, 0, 0},
		{5, 0, 0},
		{1, 3, 33.3},
		{2, 3, 66.7},
		{1, 8, 12.5},
		{1, 16, 6.3},
		{7, 7, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percentage(tt.votes, tt.total), "%d/%d", tt.votes, tt.total)
	}
}

func TestRecentResponsesReversesInsertionOrder(t *testing.T) {
	pollID := uuid.New()
	options := newOptions(pollID, "Red", "Blue")
	now := time.Now()
	responses := []Response{
		vote(pollID, options[0], "first", now),
		vote(pollID, options[1], "second", now.Add(time.Second)),
		vote(pollID, Option{ID: uuid.New()}, "third", now.Add(2*time.Second)),
	}

	recent := RecentResponses(options, responses)
	require.Len(t, recent, 3)
	assert.Equal(t, "third", recent[0].RespondentName)
	assert.Equal(t, "", recent[0].OptionText)
	assert.Equal(t, "second", recent[1].RespondentName)
	assert.Equal(t, "Blue", recent[1].OptionText)
	assert.Equal(t, "first", recent[2].RespondentName)
	assert.Equal(t, "Red", recent[2].OptionText)
}

func TestTally(t *testing.T) {
	poll := Poll{ID: uuid.New(), Question: "Colour?"}
	options := newOptions(poll.ID, "Red", "Blue")
	responses := []Response{vote(poll.ID, options[1], "a", time.Now())}

	results := Tally(poll, options, responses)
	assert.Equal(t, int64(1), results.TotalVotes)
	assert.Equal(t, options, results.Poll.Options)
	assert.Len(t, results.Options, 2)
	assert.Len(t, results.Recent, 1)
}

func TestValidationErrorMatchesSentinel(t *testing.T) {
	err := NewValidationError("respondent_name", "is required")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "respondent_name: is required", err.Error())
}
