package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

const uniqueViolation = pq.ErrorCode("23505")

type pollRepository struct {
	db *sql.DB
}

func NewPollRepository(db *sql.DB) ports.PollRepository {
	return &pollRepository{
		db: db,
	}
}

func (r *pollRepository) Save(ctx context.Context, poll *domain.Poll) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	queryPoll := `
		INSERT INTO polls (id, question, url_slug, is_active, show_results)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, last_edited_at
	`
	err = tx.QueryRowContext(ctx, queryPoll, poll.ID, poll.Question, poll.URLSlug, poll.IsActive, poll.ShowResults).
		Scan(&poll.CreatedAt, &poll.LastEditedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == "polls_url_slug_key" {
			return domain.ErrSlugTaken
		}
		return fmt.Errorf("failed to insert poll: %w", err)
	}

	queryOption := `
		INSERT INTO options (id, poll_id, option_text, position)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	stmt, err := tx.PrepareContext(ctx, queryOption)
	if err != nil {
		return fmt.Errorf("failed to prepare option statement: %w", err)
	}
	defer stmt.Close()

	for i := range poll.Options {
		opt := &poll.Options[i]
		err = stmt.QueryRowContext(ctx, opt.ID, opt.PollID, opt.OptionText, i).Scan(&opt.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert option: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *pollRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	return r.getPoll(ctx, `
		SELECT id, question, url_slug, is_active, show_results, created_at, last_edited_at
		FROM polls
		WHERE id = $1
	`, id)
}

func (r *pollRepository) GetBySlug(ctx context.Context, slug string) (*domain.Poll, error) {
	return r.getPoll(ctx, `
		SELECT id, question, url_slug, is_active, show_results, created_at, last_edited_at
		FROM polls
		WHERE url_slug = $1
	`, slug)
}

func (r *pollRepository) getPoll(ctx context.Context, query string, arg any) (*domain.Poll, error) {
	var poll domain.Poll
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&poll.ID, &poll.Question, &poll.URLSlug, &poll.IsActive, &poll.ShowResults, &poll.CreatedAt, &poll.LastEditedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPollNotFound
		}
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}

	options, err := r.fetchOptions(ctx, poll.ID)
	if err != nil {
		return nil, err
	}
	poll.Options = options

	return &poll, nil
}

func (r *pollRepository) fetchOptions(ctx context.Context, pollID uuid.UUID) ([]domain.Option, error) {
	queryOptions := `
		SELECT id, poll_id, option_text, created_at
		FROM options
		WHERE poll_id = $1
		ORDER BY position, created_at, id
	`
	rows, err := r.db.QueryContext(ctx, queryOptions, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to get poll options: %w", err)
	}
	defer rows.Close()

	options := []domain.Option{}
	for rows.Next() {
		var opt domain.Option
		if err := rows.Scan(&opt.ID, &opt.PollID, &opt.OptionText, &opt.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		options = append(options, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating options: %w", err)
	}
	return options, nil
}
