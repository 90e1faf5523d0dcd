package auth

import (
	"context"

	"github.com/dmitrijs2005/newsletter/internal/dbx"
	"github.com/dmitrijs2005/newsletter/internal/server/repositories/repomanager"
)

// PostgresStore is the CredentialStore backed by the users table.
type PostgresStore struct {
	pool        *dbx.Pool
	repomanager repomanager.RepositoryManager
}

func NewPostgresStore(pool *dbx.Pool, m repomanager.RepositoryManager) *PostgresStore {
	return &PostgresStore{pool: pool, repomanager: m}
}

func (s *PostgresStore) Lookup(ctx context.Context, username string) (*StoredCredentials, error) {
	var out *StoredCredentials
	err := s.pool.WithConn(ctx, func(ctx context.Context, db dbx.DBTX) error {
		u, err := s.repomanager.Users(db).GetUserByUsername(ctx, username)
		if err != nil {
			return err
		}
		out = &StoredCredentials{UserID: u.ID, PasswordHash: u.PasswordHash}
		return nil
	})
	return out, err
}

func (s *PostgresStore) Username(ctx context.Context, userID string) (string, error) {
	var username string
	err := s.pool.WithConn(ctx, func(ctx context.Context, db dbx.DBTX) error {
		u, err := s.repomanager.Users(db).GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		username = u.Username
		return nil
	})
	return username, err
}

func (s *PostgresStore) UpdatePasswordHash(ctx context.Context, userID string, hash string) error {
	return s.pool.WithConn(ctx, func(ctx context.Context, db dbx.DBTX) error {
		return s.repomanager.Users(db).UpdatePasswordHash(ctx, userID, hash)
	})
}
