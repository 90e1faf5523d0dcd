// Package subscribers stores newsletter subscriptions.
package subscribers

import (
	"context"

	"github.com/dmitrijs2005/newsletter/internal/server/models"
)

type Repository interface {
	// Create inserts a subscriber in pending_confirmation state and fills
	// in its id and subscription time.
	Create(ctx context.Context, s *models.Subscriber) (*models.Subscriber, error)

	// ListConfirmed returns every confirmed subscriber.
	ListConfirmed(ctx context.Context) ([]models.Subscriber, error)
}
