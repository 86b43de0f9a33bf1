package domain

import (
	"time"

	"github.com/google/uuid"
)

// Response is one vote. The json tags match the column names so that a
// row_to_json payload from the notify trigger decodes straight into it.
type Response struct {
	ID             uuid.UUID `json:"id"`
	PollID         uuid.UUID `json:"poll_id"`
	OptionID       uuid.UUID `json:"option_id"`
	SessionID      uuid.UUID `json:"session_id"`
	RespondentName string    `json:"respondent_name"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

type Session struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}
