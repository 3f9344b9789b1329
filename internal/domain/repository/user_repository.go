package repository

import (
	"context"
	"errors"
	"time"

	"github.com/oksasatya/go-auth-service/internal/domain/entity"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicateVerificationCode means another pending account already holds the code.
	ErrDuplicateVerificationCode = errors.New("verification code already in use")
)

// UserRepository is the persistence boundary for users. Implementations do no
// hashing or validation; every conditional method is a single atomic update.
type UserRepository interface {
	// Create inserts u and fills ID and timestamps. Returns ErrDuplicateEmail
	// when the unique email constraint rejects the insert and
	// ErrDuplicateVerificationCode when the pending code is already taken.
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error

	// ConsumeVerificationToken marks the single user holding code (unexpired at
	// now) as verified and clears the code. userID narrows the match when non-empty.
	ConsumeVerificationToken(ctx context.Context, code, userID string, now time.Time) (*entity.User, error)

	// SetResetToken stores a reset token digest and its expiry.
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error

	// ConsumeResetToken replaces the password hash of the user holding tokenHash
	// (unexpired at now) and clears the reset token.
	ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*entity.User, error)

	// PurgeExpiredTokens clears verification and reset tokens that expired at or
	// before now and returns how many tokens were cleared.
	PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}
