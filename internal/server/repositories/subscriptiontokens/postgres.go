package subscriptiontokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/newsletter/internal/common"
	"github.com/dmitrijs2005/newsletter/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, subscriberID string, token string) error {
	query := `
		INSERT INTO subscription_tokens (subscription_token, subscriber_id)
		VALUES ($1, $2)
	`
	if _, err := r.db.ExecContext(ctx, query, token, subscriberID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Redeem deletes the token row and flips the subscriber to confirmed in a
// single statement. Under concurrent calls the row lock taken by DELETE
// lets exactly one caller see the RETURNING row; the rest see none.
func (r *PostgresRepository) Redeem(ctx context.Context, token string) (string, error) {
	query := `
		WITH redeemed AS (
			DELETE FROM subscription_tokens
			WHERE subscription_token = $1
			RETURNING subscriber_id
		)
		UPDATE subscriptions SET status = 'confirmed'
		FROM redeemed
		WHERE subscriptions.id = redeemed.subscriber_id
		RETURNING subscriptions.id
	`
	var subscriberID string
	if err := r.db.QueryRowContext(ctx, query, token).Scan(&subscriberID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return subscriberID, nil
}
