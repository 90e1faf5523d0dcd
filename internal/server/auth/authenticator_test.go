package auth

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/newsletter/internal/common"
	"github.com/dmitrijs2005/newsletter/internal/logging"
	"github.com/dmitrijs2005/newsletter/internal/server/offload"
	"github.com/dmitrijs2005/newsletter/internal/server/passwords"
)

type fakeStore struct {
	mu        sync.Mutex
	users     map[string]StoredCredentials
	names     map[string]string
	lookupErr error
	updateErr error
	updated   map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   map[string]StoredCredentials{},
		names:   map[string]string{},
		updated: map[string]string{},
	}
}

func (f *fakeStore) add(id, username, hash string) {
	f.users[username] = StoredCredentials{UserID: id, PasswordHash: hash}
	f.names[id] = username
}

func (f *fakeStore) Lookup(ctx context.Context, username string) (*StoredCredentials, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.users[username]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &c, nil
}

func (f *fakeStore) Username(ctx context.Context, userID string) (string, error) {
	name, ok := f.names[userID]
	if !ok {
		return "", common.ErrorNotFound
	}
	return name, nil
}

func (f *fakeStore) UpdatePasswordHash(ctx context.Context, userID string, hash string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated[userID] = hash
	u := f.users[f.names[userID]]
	u.PasswordHash = hash
	f.users[f.names[userID]] = u
	return nil
}

var cheap = passwords.Params{Memory: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func cheapHash(t *testing.T, pw string) string {
	t.Helper()
	h, err := passwords.HashWithParams(passwords.NewSecret(pw), cheap)
	require.NoError(t, err)
	return h
}

func newTestAuthenticator(t *testing.T, store CredentialStore) (*Authenticator, *int32) {
	t.Helper()
	pool := offload.NewPool(2)
	t.Cleanup(pool.Close)

	a := NewAuthenticator(store, pool, cheapHash(t, "dummy-never-matches"), logging.Discard())
	a.hash = func(pw passwords.Secret) (string, error) {
		return passwords.HashWithParams(pw, cheap)
	}

	var calls int32
	a.verify = func(encoded string, pw passwords.Secret) (bool, error) {
		atomic.AddInt32(&calls, 1)
		return passwords.Verify(encoded, pw)
	}
	return a, &calls
}

func creds(u, p string) Credentials {
	return Credentials{Username: u, Password: passwords.NewSecret(p)}
}

func TestVerify_CorrectPassword(t *testing.T) {
	store := newFakeStore()
	store.add("u-alice", "alice", cheapHash(t, "correct-horse"))
	a, calls := newTestAuthenticator(t, store)

	id, err := a.Verify(context.Background(), creds("alice", "correct-horse"))
	require.NoError(t, err)
	assert.Equal(t, "u-alice", id)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestVerify_WrongPassword(t *testing.T) {
	store := newFakeStore()
	store.add("u-alice", "alice", cheapHash(t, "correct-horse"))
	a, calls := newTestAuthenticator(t, store)

	_, err := a.Verify(context.Background(), creds("alice", "battery-staple"))
	require.ErrorIs(t, err, common.ErrInvalidCredentials)
	assert.NotErrorIs(t, err, common.ErrorInternal)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestVerify_UnknownUserStillVerifiesOnce(t *testing.T) {
	a, calls := newTestAuthenticator(t, newFakeStore())

	_, err := a.Verify(context.Background(), creds("mallory", "anything"))
	require.ErrorIs(t, err, common.ErrInvalidCredentials)
	assert.NotErrorIs(t, err, common.ErrorInternal)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestVerify_DummyMatchWithoutUserIsRejected(t *testing.T) {
	a, _ := newTestAuthenticator(t, newFakeStore())
	a.verify = func(string, passwords.Secret) (bool, error) { return true, nil }

	_, err := a.Verify(context.Background(), creds("ghost", "x"))
	require.ErrorIs(t, err, common.ErrInvalidCredentials)
}

func TestVerify_MalformedStoredHashIsUnexpected(t *testing.T) {
	store := newFakeStore()
	store.add("u-bob", "bob", "not-a-phc-string")
	a, _ := newTestAuthenticator(t, store)

	_, err := a.Verify(context.Background(), creds("bob", "pw"))
	require.ErrorIs(t, err, common.ErrorInternal)
	require.ErrorIs(t, err, passwords.ErrMalformedHash)
	assert.NotErrorIs(t, err, common.ErrInvalidCredentials)
}

func TestVerify_StoreFailureIsUnexpected(t *testing.T) {
	store := newFakeStore()
	store.lookupErr = errors.New("connection refused")
	a, calls := newTestAuthenticator(t, store)

	_, err := a.Verify(context.Background(), creds("alice", "pw"))
	require.ErrorIs(t, err, common.ErrorInternal)
	assert.Contains(t, err.Error(), "connection refused")
	assert.EqualValues(t, 0, atomic.LoadInt32(calls))
}

func TestVerify_ClosedPoolIsUnexpected(t *testing.T) {
	a, _ := newTestAuthenticator(t, newFakeStore())
	a.pool.Close()

	_, err := a.Verify(context.Background(), creds("alice", "pw"))
	require.ErrorIs(t, err, common.ErrorInternal)
	require.ErrorIs(t, err, offload.ErrPoolClosed)
}

func TestVerify_WorkerPanicIsUnexpected(t *testing.T) {
	a, _ := newTestAuthenticator(t, newFakeStore())
	a.verify = func(string, passwords.Secret) (bool, error) { panic("argon2 exploded") }

	_, err := a.Verify(context.Background(), creds("alice", "pw"))
	require.ErrorIs(t, err, common.ErrorInternal)
	require.ErrorIs(t, err, offload.ErrTaskPanicked)
}

// Unknown-user and wrong-password attempts must cost about the same, since
// both run exactly one verification with the production parameters.
func TestVerify_TimingUnknownUserMatchesWrongPassword(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}

	stored, err := passwords.Hash(passwords.NewSecret("correct-horse"))
	require.NoError(t, err)
	dummy, err := passwords.NewDummyHash()
	require.NoError(t, err)

	store := newFakeStore()
	store.add("u-alice", "alice", stored)
	pool := offload.NewPool(1)
	defer pool.Close()
	a := NewAuthenticator(store, pool, dummy, logging.Discard())

	median := func(c Credentials) time.Duration {
		const runs = 7
		samples := make([]time.Duration, 0, runs)
		for i := 0; i < runs; i++ {
			start := time.Now()
			_, err := a.Verify(context.Background(), c)
			samples = append(samples, time.Since(start))
			require.ErrorIs(t, err, common.ErrInvalidCredentials)
		}
		sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
		return samples[runs/2]
	}

	wrong := median(creds("alice", "battery-staple"))
	unknown := median(creds("mallory", "battery-staple"))

	ratio := float64(unknown) / float64(wrong)
	assert.Greater(t, ratio, 0.5, "unknown=%s wrong=%s", unknown, wrong)
	assert.Less(t, ratio, 2.0, "unknown=%s wrong=%s", unknown, wrong)
}

func TestChangePassword_Success(t *testing.T) {
	store := newFakeStore()
	store.add("u-alice", "alice", cheapHash(t, "old-pw"))
	a, _ := newTestAuthenticator(t, store)
	ctx := context.Background()

	require.NoError(t, a.ChangePassword(ctx, "u-alice", passwords.NewSecret("old-pw"), passwords.NewSecret("new-pw")))
	require.Contains(t, store.updated, "u-alice")

	_, err := a.Verify(ctx, creds("alice", "old-pw"))
	require.ErrorIs(t, err, common.ErrInvalidCredentials)

	id, err := a.Verify(ctx, creds("alice", "new-pw"))
	require.NoError(t, err)
	assert.Equal(t, "u-alice", id)
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	store := newFakeStore()
	store.add("u-alice", "alice", cheapHash(t, "old-pw"))
	a, _ := newTestAuthenticator(t, store)

	err := a.ChangePassword(context.Background(), "u-alice", passwords.NewSecret("nope"), passwords.NewSecret("new-pw"))
	require.ErrorIs(t, err, common.ErrInvalidCredentials)
	assert.Empty(t, store.updated)
}

func TestChangePassword_Failures(t *testing.T) {
	t.Run("unknown user id", func(t *testing.T) {
		a, _ := newTestAuthenticator(t, newFakeStore())
		err := a.ChangePassword(context.Background(), "u-x", passwords.NewSecret("a"), passwords.NewSecret("b"))
		require.ErrorIs(t, err, common.ErrorInternal)
	})

	t.Run("update fails", func(t *testing.T) {
		store := newFakeStore()
		store.add("u-alice", "alice", cheapHash(t, "old-pw"))
		store.updateErr = errors.New("db down")
		a, _ := newTestAuthenticator(t, store)

		err := a.ChangePassword(context.Background(), "u-alice", passwords.NewSecret("old-pw"), passwords.NewSecret("new"))
		require.ErrorIs(t, err, common.ErrorInternal)
	})
}
