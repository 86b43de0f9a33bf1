package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
	"github.com/vncsmyrnk/livepoll/internal/metrics"
)

type VoteHandler struct {
	polls ports.PollService
	votes ports.VoteService
}

func NewVoteHandler(polls ports.PollService, votes ports.VoteService) *VoteHandler {
	return &VoteHandler{
		polls: polls,
		votes: votes,
	}
}

type voteRequest struct {
	OptionID       uuid.UUID `json:"option_id"`
	RespondentName string    `json:"respondent_name"`
}

func (h *VoteHandler) SubmitResponse(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	poll, err := h.polls.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	input := ports.SubmitVoteInput{
		PollID:         poll.ID,
		OptionID:       req.OptionID,
		RespondentName: req.RespondentName,
	}

	response, err := h.votes.SubmitVote(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	metrics.VotesSubmitted.Inc()
	writeJSON(w, http.StatusCreated, response)
}
