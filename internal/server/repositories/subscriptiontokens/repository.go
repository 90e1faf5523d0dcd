// Package subscriptiontokens stores the single-use tokens that confirm a
// pending subscription.
package subscriptiontokens

import "context"

type Repository interface {
	// Create issues token for subscriberID. A duplicate token is an error.
	Create(ctx context.Context, subscriberID string, token string) error

	// Redeem consumes token and confirms its subscriber in one statement,
	// returning the subscriber id. An unknown or already used token yields
	// common.ErrorNotFound. Concurrent redemptions of one token succeed at
	// most once.
	Redeem(ctx context.Context, token string) (string, error)
}
