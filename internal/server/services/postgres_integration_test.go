package services

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/newsletter/internal/common"
	"github.com/dmitrijs2005/newsletter/internal/dbx"
	"github.com/dmitrijs2005/newsletter/internal/logging"
	"github.com/dmitrijs2005/newsletter/internal/server/domain"
	"github.com/dmitrijs2005/newsletter/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/newsletter/internal/server/tokens"
)

const testDSNEnv = "NEWSLETTER_TEST_DATABASE_DSN"

func openTestPool(t *testing.T) *dbx.Pool {
	t.Helper()
	dsn := os.Getenv(testDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", testDSNEnv)
	}

	pool, err := dbx.Open(dsn, dbx.PoolOptions{MaxOpenConns: 16, AcquireTimeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	require.NoError(t, repomanager.NewPostgresRepositoryManager().RunMigrations(context.Background(), pool.DB()))
	return pool
}

func uniqueSubscriber() domain.NewSubscriber {
	id := uuid.NewString()
	return domain.NewSubscriber{Name: "Test " + id[:8], Email: id + "@example.com"}
}

func countRows(t *testing.T, pool *dbx.Pool, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, pool.DB().QueryRow(query, args...).Scan(&n))
	return n
}

// pgService records every token it issues.
func pgService(t *testing.T, pool *dbx.Pool, sender EmailSender) (*SubscriptionService, *[]string) {
	t.Helper()
	svc := NewSubscriptionService(pool, repomanager.NewPostgresRepositoryManager(), sender, "http://127.0.0.1", logging.Discard())
	var mu sync.Mutex
	issued := []string{}
	svc.newToken = func() (string, error) {
		tok, err := tokens.Generate()
		mu.Lock()
		issued = append(issued, tok)
		mu.Unlock()
		return tok, err
	}
	return svc, &issued
}

func TestPostgres_EmailFailureLeavesNoRows(t *testing.T) {
	pool := openTestPool(t)
	svc, _ := pgService(t, pool, &fakeSender{err: errors.New("postmark 500")})
	sub := uniqueSubscriber()

	require.ErrorIs(t, svc.Subscribe(context.Background(), sub), common.ErrorInternal)

	assert.Zero(t, countRows(t, pool, `SELECT COUNT(*) FROM subscriptions WHERE email = $1`, sub.Email))
	assert.Zero(t, countRows(t, pool,
		`SELECT COUNT(*) FROM subscription_tokens t JOIN subscriptions s ON s.id = t.subscriber_id WHERE s.email = $1`, sub.Email))
}

func TestPostgres_RedeemTwice(t *testing.T) {
	pool := openTestPool(t)
	svc, issued := pgService(t, pool, &fakeSender{})
	sub := uniqueSubscriber()
	ctx := context.Background()

	require.NoError(t, svc.Subscribe(ctx, sub))
	token := (*issued)[0]

	require.NoError(t, svc.Confirm(ctx, token))
	require.ErrorIs(t, svc.Confirm(ctx, token), common.ErrorUnauthorized)

	assert.Equal(t, 1, countRows(t, pool, `SELECT COUNT(*) FROM subscriptions WHERE email = $1 AND status = 'confirmed'`, sub.Email))
	assert.Zero(t, countRows(t, pool, `SELECT COUNT(*) FROM subscription_tokens WHERE subscription_token = $1`, token))
}

func TestPostgres_ConcurrentRedeemSucceedsOnce(t *testing.T) {
	pool := openTestPool(t)
	svc, issued := pgService(t, pool, &fakeSender{})
	sub := uniqueSubscriber()
	ctx := context.Background()

	require.NoError(t, svc.Subscribe(ctx, sub))
	token := (*issued)[0]

	const callers = 8
	var ok, unauthorized int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := svc.Confirm(ctx, token)
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.Is(err, common.ErrorUnauthorized):
				atomic.AddInt32(&unauthorized, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, ok)
	assert.EqualValues(t, callers-1, unauthorized)
}

func TestPostgres_UnknownToken(t *testing.T) {
	pool := openTestPool(t)
	svc, _ := pgService(t, pool, &fakeSender{})

	require.ErrorIs(t, svc.Confirm(context.Background(), "doesnotexist0000000000000"), common.ErrorUnauthorized)
}
