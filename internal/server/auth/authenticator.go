// Package auth verifies administrator credentials. Form login and HTTP Basic
// both end up in Authenticator.Verify.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/newsletter/internal/common"
	"github.com/dmitrijs2005/newsletter/internal/logging"
	"github.com/dmitrijs2005/newsletter/internal/server/offload"
	"github.com/dmitrijs2005/newsletter/internal/server/passwords"
)

// Credentials is a username/password pair as presented by a client.
type Credentials struct {
	Username string
	Password passwords.Secret
}

// StoredCredentials is what the store knows about a user.
type StoredCredentials struct {
	UserID       string
	PasswordHash string
}

// CredentialStore is the persistence the Authenticator needs. Lookup and
// Username return common.ErrorNotFound for unknown users.
type CredentialStore interface {
	Lookup(ctx context.Context, username string) (*StoredCredentials, error)
	Username(ctx context.Context, userID string) (string, error)
	UpdatePasswordHash(ctx context.Context, userID string, hash string) error
}

// Authenticator checks passwords against Argon2id hashes on the offload pool.
//
// Verify performs exactly one hash verification per call whether or not the
// username exists: unknown users are checked against dummyHash.
type Authenticator struct {
	store     CredentialStore
	pool      *offload.Pool
	dummyHash string
	logger    logging.Logger

	verify func(encoded string, password passwords.Secret) (bool, error)
	hash   func(password passwords.Secret) (string, error)
}

func NewAuthenticator(store CredentialStore, pool *offload.Pool, dummyHash string, logger logging.Logger) *Authenticator {
	return &Authenticator{
		store:     store,
		pool:      pool,
		dummyHash: dummyHash,
		logger:    logger.With("module", "auth"),
		verify:    passwords.Verify,
		hash:      passwords.Hash,
	}
}

// Verify returns the user id for valid credentials. It fails with
// common.ErrInvalidCredentials for an unknown user or a wrong password, and
// with an error wrapping common.ErrorInternal for anything else.
func (a *Authenticator) Verify(ctx context.Context, c Credentials) (string, error) {
	userID := ""
	encoded := a.dummyHash

	stored, err := a.store.Lookup(ctx, c.Username)
	switch {
	case err == nil:
		userID = stored.UserID
		encoded = stored.PasswordHash
	case errors.Is(err, common.ErrorNotFound):
	default:
		return "", fmt.Errorf("%w: credential lookup: %w", common.ErrorInternal, err)
	}

	ok, err := offload.Run(ctx, a.pool, func(ctx context.Context) (bool, error) {
		return a.verify(encoded, c.Password)
	})
	if err != nil {
		return "", fmt.Errorf("%w: password verification: %w", common.ErrorInternal, err)
	}

	if !ok || userID == "" {
		return "", common.ErrInvalidCredentials
	}
	return userID, nil
}

// ChangePassword re-checks current before storing a hash of next. A wrong
// current password yields common.ErrInvalidCredentials.
func (a *Authenticator) ChangePassword(ctx context.Context, userID string, current, next passwords.Secret) error {
	username, err := a.store.Username(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: username lookup: %w", common.ErrorInternal, err)
	}

	if _, err := a.Verify(ctx, Credentials{Username: username, Password: current}); err != nil {
		return err
	}

	hash, err := offload.Run(ctx, a.pool, func(ctx context.Context) (string, error) {
		return a.hash(next)
	})
	if err != nil {
		return fmt.Errorf("%w: password hashing: %w", common.ErrorInternal, err)
	}

	if err := a.store.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("%w: password update: %w", common.ErrorInternal, err)
	}

	a.logger.Info(ctx, "password changed", "user_id", userID)
	return nil
}
