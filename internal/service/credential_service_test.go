package service

import (
	"context"
	"testing"
	"time"

	"github.com/kamleshbhati477/exam-helper/internal/config"
	"github.com/kamleshbhati477/exam-helper/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserStore struct {
	saveErr   error
	saveCalls int
}

func (f *fakeUserStore) SaveCredentials(_ context.Context, _ *model.User) error {
	f.saveCalls++
	return f.saveErr
}

// testClock is a controllable wall clock for the credential tests.
type testClock struct {
	current time.Time
}

func (c *testClock) now() time.Time { return c.current }

func (c *testClock) advance(d time.Duration) { c.current = c.current.Add(d) }

func newTestCredentialService() (*CredentialService, *fakeUserStore, *testClock) {
	cfg := &config.Config{
		BcryptCost:           bcrypt.MinCost,
		LockThreshold:        5,
		LockDuration:         2 * time.Hour,
		ResetTokenTTL:        10 * time.Minute,
		VerificationTokenTTL: 24 * time.Hour,
	}
	store := &fakeUserStore{}
	clock := &testClock{current: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)}
	svc := NewCredentialService(cfg, store, zerolog.Nop())
	svc.now = clock.now
	return svc, store, clock
}

func TestLockout_FifthFailureLocks(t *testing.T) {
	svc, _, clock := newTestCredentialService()
	ctx := context.Background()
	user := &model.User{ID: 1}

	for i := 1; i <= 4; i++ {
		locked, err := svc.RegisterFailedLogin(ctx, user)
		require.NoError(t, err)
		assert.False(t, locked)
		assert.Equal(t, i, user.LoginAttempts)
		assert.False(t, svc.IsLocked(user))
	}

	locked, err := svc.RegisterFailedLogin(ctx, user)
	require.NoError(t, err)
	assert.True(t, locked)
	assert.True(t, svc.IsLocked(user))
	require.NotNil(t, user.LockUntil)
	assert.WithinDuration(t, clock.now().Add(2*time.Hour), *user.LockUntil, time.Second)
}

func TestLockout_SuccessfulLoginResets(t *testing.T) {
	svc, _, clock := newTestCredentialService()
	ctx := context.Background()
	user := &model.User{ID: 1, LoginAttempts: 3}

	require.NoError(t, svc.RegisterSuccessfulLogin(ctx, user))

	assert.Equal(t, 0, user.LoginAttempts)
	assert.Nil(t, user.LockUntil)
	require.NotNil(t, user.LastLogin)
	assert.Equal(t, clock.now(), *user.LastLogin)
}

func TestLockout_ExpiredLockStartsNewWindow(t *testing.T) {
	svc, _, clock := newTestCredentialService()
	ctx := context.Background()
	user := &model.User{ID: 1}

	for i := 0; i < 5; i++ {
		_, err := svc.RegisterFailedLogin(ctx, user)
		require.NoError(t, err)
	}
	require.True(t, svc.IsLocked(user))

	clock.advance(2*time.Hour + time.Minute)

	// The failed attempt itself counts as the first of the new window.
	locked, err := svc.RegisterFailedLogin(ctx, user)
	require.NoError(t, err)
	assert.False(t, locked)
	assert.Equal(t, 1, user.LoginAttempts)
	assert.Nil(t, user.LockUntil)
}

func TestIsLocked_PureQueryLeavesExpiredLockInPlace(t *testing.T) {
	svc, store, clock := newTestCredentialService()
	ctx := context.Background()
	user := &model.User{ID: 1}

	for i := 0; i < 5; i++ {
		_, err := svc.RegisterFailedLogin(ctx, user)
		require.NoError(t, err)
	}

	clock.advance(3 * time.Hour)

	saves := store.saveCalls
	assert.False(t, svc.IsLocked(user))
	// The expired lock is not cleared by the query; only the next failed
	// login runs the reset transition.
	assert.NotNil(t, user.LockUntil)
	assert.Equal(t, 5, user.LoginAttempts)
	assert.Equal(t, saves, store.saveCalls)
}

func TestLockedAccountAttemptsDoNotExtendLock(t *testing.T) {
	svc, _, _ := newTestCredentialService()
	ctx := context.Background()
	user := &model.User{ID: 1}

	for i := 0; i < 5; i++ {
		_, err := svc.RegisterFailedLogin(ctx, user)
		require.NoError(t, err)
	}
	lockedUntil := *user.LockUntil

	locked, err := svc.RegisterFailedLogin(ctx, user)
	require.NoError(t, err)
	assert.False(t, locked)
	assert.Equal(t, 6, user.LoginAttempts)
	assert.Equal(t, lockedUntil, *user.LockUntil)
}

func TestChangePassword(t *testing.T) {
	svc, _, clock := newTestCredentialService()
	ctx := context.Background()

	t.Run("new user has no changed-at stamp", func(t *testing.T) {
		user := &model.User{ID: 1}
		require.NoError(t, svc.ChangePassword(ctx, user, "correct horse battery", true))
		assert.Nil(t, user.PasswordChangedAt)
		assert.NotEmpty(t, user.PasswordHash)
		assert.NotContains(t, user.PasswordHash, "correct horse battery")
		assert.NoError(t, svc.CheckPassword(user.PasswordHash, "correct horse battery"))
	})

	t.Run("existing user is backdated one second", func(t *testing.T) {
		user := &model.User{ID: 2}
		require.NoError(t, svc.ChangePassword(ctx, user, "new-password-123", false))
		require.NotNil(t, user.PasswordChangedAt)
		assert.Equal(t, clock.now().Add(-1*time.Second), *user.PasswordChangedAt)
	})
}

func TestCheckPassword_WrongPassword(t *testing.T) {
	svc, _, _ := newTestCredentialService()

	hash, err := svc.HashPassword("right-password")
	require.NoError(t, err)

	assert.NoError(t, svc.CheckPassword(hash, "right-password"))
	assert.ErrorIs(t, svc.CheckPassword(hash, "wrong-password"), ErrInvalidCredentials)
}

func TestResetToken_SingleUse(t *testing.T) {
	svc, _, _ := newTestCredentialService()
	ctx := context.Background()
	user := &model.User{ID: 1}

	secret, err := svc.GeneratePasswordResetToken(ctx, user)
	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	// Only the digest is persisted, never the raw secret.
	assert.NotEqual(t, secret, user.ResetTokenDigest)
	assert.Equal(t, HashTokenSecret(secret), user.ResetTokenDigest)

	require.NoError(t, svc.ResetPassword(ctx, user, secret, "brand-new-password"))
	assert.NoError(t, svc.CheckPassword(user.PasswordHash, "brand-new-password"))
	assert.Empty(t, user.ResetTokenDigest)
	assert.Nil(t, user.ResetTokenExpiry)

	// Consumed: a second presentation of the same secret must fail.
	assert.ErrorIs(t, svc.ResetPassword(ctx, user, secret, "another-password"), ErrTokenMismatch)
}

func TestResetToken_Expiry(t *testing.T) {
	svc, _, clock := newTestCredentialService()
	ctx := context.Background()
	user := &model.User{ID: 1}

	secret, err := svc.GeneratePasswordResetToken(ctx, user)
	require.NoError(t, err)

	clock.advance(11 * time.Minute)
	assert.ErrorIs(t, svc.ResetPassword(ctx, user, secret, "too-late-password"), ErrTokenExpired)
}

func TestResetToken_WrongSecret(t *testing.T) {
	svc, _, _ := newTestCredentialService()
	ctx := context.Background()
	user := &model.User{ID: 1}

	_, err := svc.GeneratePasswordResetToken(ctx, user)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.ResetPassword(ctx, user, "deadbeef", "whatever-pass"), ErrTokenMismatch)
}

func TestVerificationToken(t *testing.T) {
	svc, _, clock := newTestCredentialService()
	ctx := context.Background()
	user := &model.User{ID: 1}

	secret, err := svc.GenerateVerificationToken(ctx, user)
	require.NoError(t, err)

	// Still valid close to the 24h limit.
	clock.advance(23 * time.Hour)
	require.NoError(t, svc.VerifyEmail(ctx, user, secret))
	assert.True(t, user.IsVerified)
	assert.Empty(t, user.VerificationTokenDigest)

	assert.ErrorIs(t, svc.VerifyEmail(ctx, user, secret), ErrTokenMismatch)
}

func TestIsSessionStale(t *testing.T) {
	svc, _, clock := newTestCredentialService()
	ctx := context.Background()
	user := &model.User{ID: 1}

	issuedAt := clock.now()
	assert.False(t, svc.IsSessionStale(user, issuedAt))

	clock.advance(5 * time.Minute)
	require.NoError(t, svc.ChangePassword(ctx, user, "rotated-password", false))

	// Issued before the change: stale even though it was valid at issuance.
	assert.True(t, svc.IsSessionStale(user, issuedAt))
	// Issued after the change: fine.
	assert.False(t, svc.IsSessionStale(user, clock.now()))
}

func TestChangePassword_BackdateCoversSameInstantTokens(t *testing.T) {
	svc, _, clock := newTestCredentialService()
	ctx := context.Background()
	user := &model.User{ID: 1}

	// A token issued in the same instant as the password change must still
	// count as issued before it.
	issuedAt := clock.now()
	require.NoError(t, svc.ChangePassword(ctx, user, "changed-right-now", false))
	assert.True(t, svc.IsSessionStale(user, issuedAt))
}
