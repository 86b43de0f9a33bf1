package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type responseRepository struct {
	db *sql.DB
}

func NewResponseRepository(db *sql.DB) ports.ResponseRepository {
	return &responseRepository{
		db: db,
	}
}

// Insert stores the response and replaces SubmittedAt with the database
// clock so that snapshot watermarks and ListSince compare like with like.
func (r *responseRepository) Insert(ctx context.Context, response *domain.Response) error {
	query := `
		INSERT INTO responses (id, poll_id, option_id, session_id, respondent_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING submitted_at
	`
	err := r.db.QueryRowContext(ctx, query,
		response.ID, response.PollID, response.OptionID, response.SessionID, response.RespondentName,
	).Scan(&response.SubmittedAt)
	if err != nil {
		return fmt.Errorf("failed to save response: %w", err)
	}
	return nil
}

func (r *responseRepository) ListByPoll(ctx context.Context, pollID uuid.UUID) ([]domain.Response, error) {
	query := `
		SELECT id, poll_id, option_id, session_id, respondent_name, submitted_at
		FROM responses
		WHERE poll_id = $1
		ORDER BY submitted_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	defer rows.Close()

	return scanResponses(rows)
}

func (r *responseRepository) ListSince(ctx context.Context, pollID uuid.UUID, since time.Time) ([]domain.Response, error) {
	query := `
		SELECT id, poll_id, option_id, session_id, respondent_name, submitted_at
		FROM responses
		WHERE poll_id = $1 AND submitted_at >= $2
		ORDER BY submitted_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, pollID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses since %s: %w", since.Format(time.RFC3339Nano), err)
	}
	defer rows.Close()

	return scanResponses(rows)
}

func scanResponses(rows *sql.Rows) ([]domain.Response, error) {
	responses := []domain.Response{}
	for rows.Next() {
		var resp domain.Response
		if err := rows.Scan(&resp.ID, &resp.PollID, &resp.OptionID, &resp.SessionID, &resp.RespondentName, &resp.SubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan response: %w", err)
		}
		responses = append(responses, resp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating responses: %w", err)
	}
	return responses, nil
}
