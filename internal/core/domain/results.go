package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PollOptionStats struct {
	VoteCount  int64   `json:"votes"`
	Percentage float64 `json:"percentage"`
}

type OptionResult struct {
	Option Option `json:"option"`
	PollOptionStats
}

type RecentResponse struct {
	ID             uuid.UUID `json:"id"`
	RespondentName string    `json:"respondent_name"`
	OptionID       uuid.UUID `json:"option_id"`
	OptionText     string    `json:"option_text"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

type Results struct {
	Poll       Poll             `json:"poll"`
	Options    []OptionResult   `json:"options"`
	TotalVotes int64            `json:"total_votes"`
	Recent     []RecentResponse `json:"recent_responses"`
}

// Aggregate counts responses per option. The result keeps the order of
// options; it is never ranked by votes. The total is len(responses), so a
// response pointing at an unknown option still dilutes every percentage.
func Aggregate(options []Option, responses []Response) []OptionResult {
	counts := make(map[uuid.UUID]int64, len(options))
	for _, r := range responses {
		counts[r.OptionID]++
	}

	total := int64(len(responses))
	results := make([]OptionResult, 0, len(options))
	for _, opt := range options {
		votes := counts[opt.ID]
		results = append(results, OptionResult{
			Option: opt,
			PollOptionStats: PollOptionStats{
				VoteCount:  votes,
				Percentage: Percentage(votes, total),
			},
		})
	}
	return results
}

// Percentage returns votes/total*100 rounded to one decimal place, or 0 when
// there are no votes at all.
func Percentage(votes, total int64) float64 {
	if total == 0 {
		return 0
	}
	pct, _ := decimal.NewFromInt(votes).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(total)).
		Round(1).
		Float64()
	return pct
}

// RecentResponses lists responses most recent first by reversing the
// ascending insertion order of the input.
func RecentResponses(options []Option, responses []Response) []RecentResponse {
	texts := make(map[uuid.UUID]string, len(options))
	for _, opt := range options {
		texts[opt.ID] = opt.OptionText
	}

	recent := make([]RecentResponse, 0, len(responses))
	for i := len(responses) - 1; i >= 0; i-- {
		r := responses[i]
		recent = append(recent, RecentResponse{
			ID:             r.ID,
			RespondentName: r.RespondentName,
			OptionID:       r.OptionID,
			OptionText:     texts[r.OptionID],
			SubmittedAt:    r.SubmittedAt,
		})
	}
	return recent
}

func Tally(poll Poll, options []Option, responses []Response) Results {
	poll.Options = options
	return Results{
		Poll:       poll,
		Options:    Aggregate(options, responses),
		TotalVotes: int64(len(responses)),
		Recent:     RecentResponses(options, responses),
	}
}
