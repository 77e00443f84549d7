package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrEmailTaken indicates a sign-up attempt with an already registered email.
	ErrEmailTaken = errors.New("an account with this email already exists")
	// ErrInvalidCredentials indicates a sign-in with unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidResetToken indicates an unknown, expired, or already used reset token.
	ErrInvalidResetToken = errors.New("password reset token is invalid or expired")
)

// uniqueViolation is the postgres error code for unique constraint violations
const uniqueViolation = "23505"

// User represents a registered account
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Service handles account creation, credential checks and password resets.
// All failures are surfaced to the caller as user-visible errors; none are
// process-fatal.
type Service struct {
	db            *sql.DB
	tokens        *TokenIssuer
	sender        TokenSender
	resetTokenTTL time.Duration
}

// NewService creates an auth service
func NewService(db *sql.DB, tokens *TokenIssuer, sender TokenSender, resetTokenTTL time.Duration) *Service {
	return &Service{
		db:            db,
		tokens:        tokens,
		sender:        sender,
		resetTokenTTL: resetTokenTTL,
	}
}

// SignUp registers a new account and returns it
func (s *Service) SignUp(ctx context.Context, email, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		user.ID, user.Email, string(hash), user.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// SignIn checks the credentials and returns the user with a signed access token
func (s *Service) SignIn(ctx context.Context, email, password string) (*User, string, error) {
	var user User
	var hash string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.Email, &hash, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to query user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	return &user, token, nil
}

// RequestPasswordReset records a single-use reset token for the account and
// hands it to the configured sender for delivery. Unknown emails return an
// empty token with no error, so the endpoint does not reveal which addresses
// are registered.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&userID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query user: %w", err)
	}

	token := uuid.NewString()
	expiresAt := time.Now().UTC().Add(s.resetTokenTTL)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO password_resets (token, user_id, expires_at) VALUES ($1, $2, $3)`,
		token, userID, expiresAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to store reset token: %w", err)
	}

	if err := s.sender.SendResetToken(ctx, email, token); err != nil {
		return "", fmt.Errorf("failed to deliver reset token: %w", err)
	}

	return token, nil
}

// ResetPassword consumes a reset token and installs the new password. The
// consume step marks the token used in the same statement that checks it,
// so two concurrent resets with the same token cannot both succeed.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var userID string
	err = tx.QueryRowContext(ctx,
		`UPDATE password_resets SET used = TRUE
		 WHERE token = $1 AND NOT used AND expires_at > now()
		 RETURNING user_id`,
		token,
	).Scan(&userID)
	if err == sql.ErrNoRows {
		return ErrInvalidResetToken
	}
	if err != nil {
		return fmt.Errorf("failed to consume reset token: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET password_hash = $1 WHERE id = $2`, string(hash), userID,
	); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return tx.Commit()
}

// VerifyToken parses a bearer token and returns the user ID it identifies
func (s *Service) VerifyToken(token string) (string, error) {
	return s.tokens.Verify(token)
}
