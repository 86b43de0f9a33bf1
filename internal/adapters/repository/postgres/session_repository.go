package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type sessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) ports.SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context) (*domain.Session, error) {
	query := `INSERT INTO sessions DEFAULT VALUES RETURNING id, created_at`
	session := &domain.Session{}
	if err := r.db.QueryRowContext(ctx, query).Scan(&session.ID, &session.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}
