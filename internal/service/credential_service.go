package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/kamleshbhati477/exam-helper/internal/config"
	"github.com/kamleshbhati477/exam-helper/internal/model"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// Credential errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account is temporarily locked")
	ErrTokenMismatch      = errors.New("token does not match")
	ErrTokenExpired       = errors.New("token has expired")
)

// UserCredentialStore is the persistence port used by CredentialService.
// Implemented by repository.UserRepository.
type UserCredentialStore interface {
	SaveCredentials(ctx context.Context, user *model.User) error
}

// CredentialService owns password hashing, single-use token issuance and the
// failed-login lockout state machine for users.
type CredentialService struct {
	cfg   *config.Config
	store UserCredentialStore
	log   zerolog.Logger
	now   func() time.Time
}

// NewCredentialService creates a new CredentialService.
func NewCredentialService(cfg *config.Config, store UserCredentialStore, log zerolog.Logger) *CredentialService {
	return &CredentialService{
		cfg:   cfg,
		store: store,
		log:   log.With().Str("component", "credential_service").Logger(),
		now:   time.Now,
	}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *CredentialService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *CredentialService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// ChangePassword rehashes and stores a new password. For an existing user,
// passwordChangedAt is backdated by one second so a session token issued in
// the same instant as the change still compares as issued-before and gets
// invalidated.
func (s *CredentialService) ChangePassword(ctx context.Context, user *model.User, password string, isNew bool) error {
	hash, err := s.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash

	if !isNew {
		changedAt := s.now().Add(-1 * time.Second)
		user.PasswordChangedAt = &changedAt
	}

	return s.store.SaveCredentials(ctx, user)
}

// IsLocked reports whether the account is currently locked. It is a pure
// query: an expired lock is not cleared here but lazily, by the next failed
// login. Callers therefore see a stale "locked" flag until that happens.
func (s *CredentialService) IsLocked(user *model.User) bool {
	return user.LockUntil != nil && user.LockUntil.After(s.now())
}

// RegisterFailedLogin advances the lockout state machine after a failed
// attempt and persists the user. It returns true when this attempt caused
// the account to lock.
func (s *CredentialService) RegisterFailedLogin(ctx context.Context, user *model.User) (bool, error) {
	now := s.now()
	locked := false

	if user.LockUntil != nil && !user.LockUntil.After(now) {
		// Lock expired: the failed attempt opens a new counting window.
		user.LoginAttempts = 1
		user.LockUntil = nil
	} else {
		user.LoginAttempts++
		if user.LoginAttempts >= s.cfg.LockThreshold && !s.IsLocked(user) {
			until := now.Add(s.cfg.LockDuration)
			user.LockUntil = &until
			locked = true
			s.log.Warn().
				Int("user_id", user.ID).
				Time("lock_until", until).
				Msg("Account locked after repeated failed logins")
		}
	}

	if err := s.store.SaveCredentials(ctx, user); err != nil {
		return false, err
	}
	return locked, nil
}

// RegisterSuccessfulLogin resets the lockout state and stamps lastLogin.
func (s *CredentialService) RegisterSuccessfulLogin(ctx context.Context, user *model.User) error {
	now := s.now()
	user.LoginAttempts = 0
	user.LockUntil = nil
	user.LastLogin = &now
	return s.store.SaveCredentials(ctx, user)
}

// GeneratePasswordResetToken issues a short-lived single-use reset secret.
// Only the secret's SHA-256 digest is persisted; the raw secret is returned
// exactly once and cannot be recovered afterwards.
func (s *CredentialService) GeneratePasswordResetToken(ctx context.Context, user *model.User) (string, error) {
	secret, digest, err := newTokenSecret()
	if err != nil {
		return "", err
	}

	expiry := s.now().Add(s.cfg.ResetTokenTTL)
	user.ResetTokenDigest = digest
	user.ResetTokenExpiry = &expiry

	if err := s.store.SaveCredentials(ctx, user); err != nil {
		return "", err
	}
	return secret, nil
}

// GenerateVerificationToken issues a single-use email verification secret,
// persisted as digest plus expiry like the reset token.
func (s *CredentialService) GenerateVerificationToken(ctx context.Context, user *model.User) (string, error) {
	secret, digest, err := newTokenSecret()
	if err != nil {
		return "", err
	}

	expiry := s.now().Add(s.cfg.VerificationTokenTTL)
	user.VerificationTokenDigest = digest
	user.VerificationTokenExpiry = &expiry

	if err := s.store.SaveCredentials(ctx, user); err != nil {
		return "", err
	}
	return secret, nil
}

// ResetPassword consumes a reset secret: on a valid, unexpired match the
// password is changed and the token cleared in one persisted update.
func (s *CredentialService) ResetPassword(ctx context.Context, user *model.User, secret, newPassword string) error {
	if err := s.checkToken(user.ResetTokenDigest, user.ResetTokenExpiry, secret); err != nil {
		return err
	}

	hash, err := s.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	changedAt := s.now().Add(-1 * time.Second)
	user.PasswordHash = hash
	user.PasswordChangedAt = &changedAt
	user.ResetTokenDigest = ""
	user.ResetTokenExpiry = nil

	return s.store.SaveCredentials(ctx, user)
}

// VerifyEmail consumes a verification secret and marks the user verified.
func (s *CredentialService) VerifyEmail(ctx context.Context, user *model.User, secret string) error {
	if err := s.checkToken(user.VerificationTokenDigest, user.VerificationTokenExpiry, secret); err != nil {
		return err
	}

	user.IsVerified = true
	user.VerificationTokenDigest = ""
	user.VerificationTokenExpiry = nil

	return s.store.SaveCredentials(ctx, user)
}

// IsSessionStale reports whether a session token issued at issuedAt predates
// the user's last password change. Changing a password invalidates every
// token issued before it.
func (s *CredentialService) IsSessionStale(user *model.User, issuedAt time.Time) bool {
	return user.PasswordChangedAt != nil && issuedAt.Before(*user.PasswordChangedAt)
}

// checkToken validates a presented secret against a stored digest + expiry.
func (s *CredentialService) checkToken(digest string, expiry *time.Time, secret string) error {
	if digest == "" || expiry == nil {
		return ErrTokenMismatch
	}
	if s.now().After(*expiry) {
		return ErrTokenExpired
	}
	if subtle.ConstantTimeCompare([]byte(HashTokenSecret(secret)), []byte(digest)) != 1 {
		return ErrTokenMismatch
	}
	return nil
}

// HashTokenSecret returns the hex SHA-256 digest under which a token secret
// is persisted. Repositories use it to look users up by a presented secret.
func HashTokenSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// newTokenSecret generates a 256-bit random secret and its storage digest.
func newTokenSecret() (secret, digest string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}
	secret = hex.EncodeToString(buf)
	return secret, HashTokenSecret(secret), nil
}
