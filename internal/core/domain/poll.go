package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	SlugLength           = 10
	MaxQuestionLength    = 500
	MaxOptionTextLength  = 200
	MaxRespondentNameLen = 100
	MinPollOptions       = 2
)

type Poll struct {
	ID           uuid.UUID `json:"id"`
	Question     string    `json:"question"`
	URLSlug      string    `json:"url_slug"`
	IsActive     bool      `json:"is_active"`
	ShowResults  bool      `json:"show_results"`
	Options      []Option  `json:"options"`
	CreatedAt    time.Time `json:"created_at"`
	LastEditedAt time.Time `json:"last_edited_at"`
}

type Option struct {
	ID         uuid.UUID `json:"id"`
	PollID     uuid.UUID `json:"poll_id"`
	OptionText string    `json:"option_text"`
	CreatedAt  time.Time `json:"created_at"`
}

// HasOption reports whether optionID is one of the poll's options.
func (p *Poll) HasOption(optionID uuid.UUID) bool {
	for _, opt := range p.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}
