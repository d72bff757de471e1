package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kamleshbhati477/exam-helper/internal/config"
	"github.com/kamleshbhati477/exam-helper/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	ErrEmailTaken     = errors.New("email is already registered")
	ErrSessionStale   = errors.New("session invalidated by password change")
	ErrNoSession      = errors.New("no active session")
	ErrSessionRevoked = errors.New("session invalidated")
)

// UserStore is the persistence port used by AuthService, a superset of the
// credential store. Implemented by repository.UserRepository.
type UserStore interface {
	UserCredentialStore
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByResetTokenDigest(ctx context.Context, digest string) (*model.User, error)
	GetByVerificationTokenDigest(ctx context.Context, digest string) (*model.User, error)
}

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	UserID int    `json:"user_id"`
	Role   string `json:"role,omitempty"`
}

// AuthService handles registration, login, JWT and session management. The
// credential mechanics (hashing, lockout, tokens) live in CredentialService;
// this service wires them to the user store and the Redis session registry.
type AuthService struct {
	cfg   *config.Config
	creds *CredentialService
	users UserStore
	rdb   *redis.Client
	log   zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, creds *CredentialService, users UserStore, rdb *redis.Client, log zerolog.Logger) *AuthService {
	return &AuthService{
		cfg:   cfg,
		creds: creds,
		users: users,
		rdb:   rdb,
		log:   log.With().Str("component", "auth_service").Logger(),
	}
}

// Register creates a user with a hashed password and issues an email
// verification secret. The secret is returned once for delivery to the user.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, string, error) {
	if existing, err := s.users.GetByEmail(ctx, req.Email); err == nil && existing != nil {
		return nil, "", ErrEmailTaken
	}

	hash, err := s.creds.HashPassword(req.Password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		Role:         "student",
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	verifySecret, err := s.creds.GenerateVerificationToken(ctx, user)
	if err != nil {
		return nil, "", fmt.Errorf("issue verification token: %w", err)
	}

	s.log.Info().Int("user_id", user.ID).Msg("User registered")
	return user, verifySecret, nil
}

// Login authenticates a user and returns a signed session token.
// Locked accounts are rejected before the password is even checked; a wrong
// password advances the lockout state machine.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		// Do not reveal whether the email exists.
		return "", nil, ErrInvalidCredentials
	}

	if s.creds.IsLocked(user) {
		return "", nil, ErrAccountLocked
	}

	if err := s.creds.CheckPassword(user.PasswordHash, password); err != nil {
		nowLocked, ferr := s.creds.RegisterFailedLogin(ctx, user)
		if ferr != nil {
			return "", nil, fmt.Errorf("record failed login: %w", ferr)
		}
		if nowLocked {
			return "", nil, ErrAccountLocked
		}
		return "", nil, ErrInvalidCredentials
	}

	if err := s.creds.RegisterSuccessfulLogin(ctx, user); err != nil {
		return "", nil, fmt.Errorf("record login: %w", err)
	}

	token, err := s.generateToken(ctx, user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// generateToken creates a JWT for a user and registers its JTI in Redis.
func (s *AuthService) generateToken(ctx context.Context, user *model.User) (string, error) {
	jti := uuid.New().String()
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.Itoa(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		UserID: user.ID,
		Role:   user.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	sessionKey := config.CacheKey.UserSessionKey(user.ID)
	if err := s.rdb.Set(ctx, sessionKey, jti, s.cfg.JWTExpiry).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}

	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

// CheckSession validates the token's JTI against the active session in Redis
// and rejects tokens issued before the user's last password change.
func (s *AuthService) CheckSession(ctx context.Context, claims *Claims) error {
	sessionKey := config.CacheKey.UserSessionKey(claims.UserID)
	stored, err := s.rdb.Get(ctx, sessionKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNoSession
		}
		return fmt.Errorf("check session: %w", err)
	}
	if stored != claims.ID {
		return ErrSessionRevoked
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if claims.IssuedAt != nil && s.creds.IsSessionStale(user, claims.IssuedAt.Time) {
		return ErrSessionStale
	}
	return nil
}

// Logout removes a user's session from Redis.
func (s *AuthService) Logout(ctx context.Context, userID int) error {
	return s.rdb.Del(ctx, config.CacheKey.UserSessionKey(userID)).Err()
}

// ForgotPassword issues a reset secret for the account, if it exists. The
// secret is returned for delivery; an unknown email yields no error so the
// endpoint cannot be used to probe for accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		s.log.Debug().Str("email", email).Msg("Reset requested for unknown email")
		return "", nil
	}
	return s.creds.GeneratePasswordResetToken(ctx, user)
}

// ResetPassword consumes a reset secret and sets the new password.
func (s *AuthService) ResetPassword(ctx context.Context, secret, newPassword string) error {
	user, err := s.users.GetByResetTokenDigest(ctx, HashTokenSecret(secret))
	if err != nil {
		return ErrTokenMismatch
	}
	return s.creds.ResetPassword(ctx, user, secret, newPassword)
}

// VerifyEmail consumes a verification secret and marks the account verified.
func (s *AuthService) VerifyEmail(ctx context.Context, secret string) error {
	user, err := s.users.GetByVerificationTokenDigest(ctx, HashTokenSecret(secret))
	if err != nil {
		return ErrTokenMismatch
	}
	return s.creds.VerifyEmail(ctx, user, secret)
}

// GetProfile loads a user by ID.
func (s *AuthService) GetProfile(ctx context.Context, userID int) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}
