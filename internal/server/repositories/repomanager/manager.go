package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/newsletter/internal/dbx"
	"github.com/dmitrijs2005/newsletter/internal/server/repositories/subscribers"
	"github.com/dmitrijs2005/newsletter/internal/server/repositories/subscriptiontokens"
	"github.com/dmitrijs2005/newsletter/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code
// runs on a pooled connection or inside a transaction.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Subscribers(db dbx.DBTX) subscribers.Repository
	SubscriptionTokens(db dbx.DBTX) subscriptiontokens.Repository
}
