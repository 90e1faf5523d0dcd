package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/newsletter/internal/common"
	"github.com/dmitrijs2005/newsletter/internal/dbx"
	"github.com/dmitrijs2005/newsletter/internal/logging"
	"github.com/dmitrijs2005/newsletter/internal/server/domain"
	"github.com/dmitrijs2005/newsletter/internal/server/models"
	"github.com/dmitrijs2005/newsletter/internal/server/repositories/repomanager"
)

const (
	insertSubscriberQuery = `(?s)^INSERT\s+INTO\s+subscriptions`
	insertTokenQuery      = `(?s)^\s*INSERT\s+INTO\s+subscription_tokens`
	redeemQuery           = `(?s)^\s*WITH\s+redeemed\s+AS`
)

type message struct {
	recipient, subject, html, text string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []message
	err  error
}

func (f *fakeSender) Send(ctx context.Context, recipient, subject, html, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, message{recipient, subject, html, text})
	return nil
}

func (f *fakeSender) last() message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

func newMockPool(t *testing.T) (*dbx.Pool, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return dbx.NewPool(db, time.Second), mock
}

func newTestSubscriptionService(pool *dbx.Pool, sender EmailSender) *SubscriptionService {
	s := NewSubscriptionService(pool, repomanager.NewPostgresRepositoryManager(), sender, "http://127.0.0.1:8000/", logging.Discard())
	s.newToken = func() (string, error) { return "tok123", nil }
	return s
}

var ursula = domain.NewSubscriber{Name: "Ursula", Email: "ursula@example.com"}

func expectInsertSubscriber(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(insertSubscriberQuery).
		WithArgs("ursula@example.com", "Ursula", models.StatusPendingConfirmation).
		WillReturnRows(sqlmock.NewRows([]string{"id", "subscribed_at"}).AddRow("s-1", time.Now()))
}

func TestSubscribe_CommitsAndMailsLink(t *testing.T) {
	pool, mock := newMockPool(t)
	sender := &fakeSender{}
	svc := newTestSubscriptionService(pool, sender)

	mock.ExpectBegin()
	expectInsertSubscriber(mock)
	mock.ExpectExec(insertTokenQuery).WithArgs("tok123", "s-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.Subscribe(context.Background(), ursula))
	require.NoError(t, mock.ExpectationsWereMet())

	msg := sender.last()
	link := "http://127.0.0.1:8000/subscriptions/confirm?subscription_token=tok123"
	assert.Equal(t, "ursula@example.com", msg.recipient)
	assert.Contains(t, msg.html, `href="`+link+`"`)
	assert.Contains(t, msg.text, link)
}

func TestSubscribe_EmailFailureRollsBack(t *testing.T) {
	pool, mock := newMockPool(t)
	svc := newTestSubscriptionService(pool, &fakeSender{err: errors.New("postmark 500")})

	mock.ExpectBegin()
	expectInsertSubscriber(mock)
	mock.ExpectExec(insertTokenQuery).WithArgs("tok123", "s-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := svc.Subscribe(context.Background(), ursula)
	require.ErrorIs(t, err, common.ErrorInternal)
	assert.Contains(t, err.Error(), "postmark 500")
	require.NoError(t, mock.ExpectationsWereMet())
}

// cancellingSender cancels the request context while the send is in flight.
type cancellingSender struct {
	cancel context.CancelFunc
	sawErr error
}

func (c *cancellingSender) Send(ctx context.Context, recipient, subject, html, text string) error {
	c.cancel()
	c.sawErr = ctx.Err()
	return ctx.Err()
}

func TestSubscribe_ClientDisconnectDoesNotAbortSend(t *testing.T) {
	pool, mock := newMockPool(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sender := &cancellingSender{cancel: cancel}
	svc := newTestSubscriptionService(pool, sender)

	mock.ExpectBegin()
	expectInsertSubscriber(mock)
	mock.ExpectExec(insertTokenQuery).WithArgs("tok123", "s-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.Subscribe(ctx, ursula))
	assert.NoError(t, sender.sawErr)
	require.Error(t, ctx.Err())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscribe_StepFailuresRollBack(t *testing.T) {
	t.Run("insert subscriber", func(t *testing.T) {
		pool, mock := newMockPool(t)
		sender := &fakeSender{}
		svc := newTestSubscriptionService(pool, sender)

		mock.ExpectBegin()
		mock.ExpectQuery(insertSubscriberQuery).WillReturnError(errors.New("duplicate key"))
		mock.ExpectRollback()

		require.ErrorIs(t, svc.Subscribe(context.Background(), ursula), common.ErrorInternal)
		require.NoError(t, mock.ExpectationsWereMet())
		assert.Empty(t, sender.sent)
	})

	t.Run("token generation", func(t *testing.T) {
		pool, mock := newMockPool(t)
		sender := &fakeSender{}
		svc := newTestSubscriptionService(pool, sender)
		svc.newToken = func() (string, error) { return "", errors.New("entropy") }

		mock.ExpectBegin()
		expectInsertSubscriber(mock)
		mock.ExpectRollback()

		require.ErrorIs(t, svc.Subscribe(context.Background(), ursula), common.ErrorInternal)
		require.NoError(t, mock.ExpectationsWereMet())
		assert.Empty(t, sender.sent)
	})

	t.Run("token insert", func(t *testing.T) {
		pool, mock := newMockPool(t)
		sender := &fakeSender{}
		svc := newTestSubscriptionService(pool, sender)

		mock.ExpectBegin()
		expectInsertSubscriber(mock)
		mock.ExpectExec(insertTokenQuery).WillReturnError(errors.New("pk violation"))
		mock.ExpectRollback()

		require.ErrorIs(t, svc.Subscribe(context.Background(), ursula), common.ErrorInternal)
		require.NoError(t, mock.ExpectationsWereMet())
		assert.Empty(t, sender.sent)
	})

	t.Run("begin", func(t *testing.T) {
		pool, mock := newMockPool(t)
		svc := newTestSubscriptionService(pool, &fakeSender{})

		mock.ExpectBegin().WillReturnError(errors.New("conn reset"))

		require.ErrorIs(t, svc.Subscribe(context.Background(), ursula), common.ErrorInternal)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestConfirm(t *testing.T) {
	pool, mock := newMockPool(t)
	svc := newTestSubscriptionService(pool, &fakeSender{})

	mock.ExpectQuery(redeemQuery).WithArgs("tok123").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s-1"))
	mock.ExpectQuery(redeemQuery).WithArgs("tok123").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	require.NoError(t, svc.Confirm(context.Background(), "tok123"))
	require.ErrorIs(t, svc.Confirm(context.Background(), "tok123"), common.ErrorUnauthorized)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirm_StoreFailure(t *testing.T) {
	pool, mock := newMockPool(t)
	svc := newTestSubscriptionService(pool, &fakeSender{})

	mock.ExpectQuery(redeemQuery).WithArgs("tok123").WillReturnError(sql.ErrConnDone)

	err := svc.Confirm(context.Background(), "tok123")
	require.ErrorIs(t, err, common.ErrorInternal)
	assert.NotErrorIs(t, err, common.ErrorUnauthorized)
}

func TestConfirmationLink(t *testing.T) {
	svc := newTestSubscriptionService(nil, &fakeSender{})
	link := svc.ConfirmationLink("abc")
	assert.True(t, strings.HasPrefix(link, "http://127.0.0.1:8000/subscriptions/confirm?"))
	assert.True(t, strings.HasSuffix(link, "subscription_token=abc"))
}
