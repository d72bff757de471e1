package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kamleshbhati477/exam-helper/internal/model"
)

// UserRepository handles user data access, including all credential state.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, name, email, role, password_hash, password_changed_at,
	login_attempts, lock_until, reset_token, reset_token_expires,
	verification_token, verification_token_expires, is_verified, last_login,
	created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.PasswordHash,
		&u.PasswordChangedAt, &u.LoginAttempts, &u.LockUntil,
		&u.ResetTokenDigest, &u.ResetTokenExpiry,
		&u.VerificationTokenDigest, &u.VerificationTokenExpiry,
		&u.IsVerified, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, role, password_hash)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		u.Name, u.Email, u.Role, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// GetByResetTokenDigest retrieves a user by the stored reset token digest.
func (r *UserRepository) GetByResetTokenDigest(ctx context.Context, digest string) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE reset_token = $1 AND reset_token <> ''`, digest))
}

// GetByVerificationTokenDigest retrieves a user by the stored verification token digest.
func (r *UserRepository) GetByVerificationTokenDigest(ctx context.Context, digest string) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE verification_token = $1 AND verification_token <> ''`, digest))
}

// SaveCredentials persists every mutable credential field in one update.
func (r *UserRepository) SaveCredentials(ctx context.Context, u *model.User) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET password_hash = $1, password_changed_at = $2, login_attempts = $3,
		     lock_until = $4, reset_token = $5, reset_token_expires = $6,
		     verification_token = $7, verification_token_expires = $8,
		     is_verified = $9, last_login = $10, updated_at = NOW()
		 WHERE id = $11`,
		u.PasswordHash, u.PasswordChangedAt, u.LoginAttempts,
		u.LockUntil, u.ResetTokenDigest, u.ResetTokenExpiry,
		u.VerificationTokenDigest, u.VerificationTokenExpiry,
		u.IsVerified, u.LastLogin, u.ID)
	return err
}
