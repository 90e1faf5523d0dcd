package subscribers

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/newsletter/internal/dbx"
	"github.com/dmitrijs2005/newsletter/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.Subscriber) (*models.Subscriber, error) {
	query :=
		`INSERT INTO subscriptions (email, name, status)
		 VALUES ($1, $2, $3)
		 RETURNING id, subscribed_at
		 `

	s.Status = models.StatusPendingConfirmation
	err := r.db.QueryRowContext(ctx, query, s.Email, s.Name, s.Status).Scan(&s.ID, &s.SubscribedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return s, nil
}

func (r *PostgresRepository) ListConfirmed(ctx context.Context) ([]models.Subscriber, error) {
	query :=
		`SELECT id, email, name, status, subscribed_at FROM subscriptions
		 WHERE status = $1
		 ORDER BY subscribed_at
		 `

	rows, err := r.db.QueryContext(ctx, query, models.StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Subscriber
	for rows.Next() {
		var s models.Subscriber
		if err := rows.Scan(&s.ID, &s.Email, &s.Name, &s.Status, &s.SubscribedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
