package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-auth-service/internal/domain/entity"
	"github.com/oksasatya/go-auth-service/internal/domain/repository"
)

const uniqueViolation = "23505"

const verificationTokenKey = "users_verification_token_key"

const userColumns = `id, name, email, password_hash, is_verified,
	verification_token, verification_token_expires_at,
	reset_password_token, reset_password_expires_at,
	last_login, created_at, updated_at`

type UserRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

func NewUserRepository(pool *pgxpool.Pool, timeout time.Duration) *UserRepository {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &UserRepository{pool: pool, timeout: timeout}
}

func (r *UserRepository) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// classifyInsertError maps unique violations to the repository error of the
// constraint that rejected the insert.
func classifyInsertError(err error) error {
	if !isUniqueViolation(err) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName == verificationTokenKey {
		return repository.ErrDuplicateVerificationCode
	}
	return repository.ErrDuplicateEmail
}

// parseID reports false for ids that cannot belong to a row.
func parseID(id string) (uuid.UUID, bool) {
	u, err := uuid.Parse(id)
	return u, err == nil
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.IsVerified,
		&u.VerificationToken, &u.VerificationTokenExpiresAt,
		&u.ResetPasswordToken, &u.ResetPasswordExpiresAt,
		&u.LastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	lastLogin := u.LastLogin
	if lastLogin.IsZero() {
		lastLogin = time.Now().UTC()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, is_verified,
			verification_token, verification_token_expires_at, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, last_login, created_at, updated_at
	`, u.Name, u.Email, u.Password, u.IsVerified, u.VerificationToken, u.VerificationTokenExpiresAt, lastLogin)

	if err := row.Scan(&u.ID, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return classifyInsertError(err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	uid, ok := parseID(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	ctx, cancel := r.bounded(ctx)
	defer cancel()
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, uid))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	uid, ok := parseID(id)
	if !ok {
		return repository.ErrNotFound
	}
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	res, err := r.pool.Exec(ctx, `UPDATE users SET last_login = $1, updated_at = now() WHERE id = $2`, at, uid)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// consumeVerificationSQL marks at most one row verified. scoped adds the
// session user id as $3.
func consumeVerificationSQL(scoped bool) string {
	match := `SELECT id FROM users
		WHERE verification_token = $1
		  AND verification_token_expires_at > $2`
	if scoped {
		match += ` AND id = $3`
	}
	return fmt.Sprintf(`
		UPDATE users
		SET is_verified = TRUE, verification_token = NULL, verification_token_expires_at = NULL, updated_at = $2
		WHERE id = (%s
		LIMIT 1 FOR UPDATE)
		RETURNING %s`, match, userColumns)
}

func (r *UserRepository) ConsumeVerificationToken(ctx context.Context, code, userID string, now time.Time) (*entity.User, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	if userID == "" {
		return scanUser(r.pool.QueryRow(ctx, consumeVerificationSQL(false), code, now))
	}
	uid, ok := parseID(userID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return scanUser(r.pool.QueryRow(ctx, consumeVerificationSQL(true), code, now, uid))
}

func (r *UserRepository) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	uid, ok := parseID(id)
	if !ok {
		return repository.ErrNotFound
	}
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET reset_password_token = $1, reset_password_expires_at = $2, updated_at = now()
		WHERE id = $3
	`, tokenHash, expiresAt, uid)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*entity.User, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	return scanUser(r.pool.QueryRow(ctx, `
		UPDATE users
		SET password_hash = $2, reset_password_token = NULL, reset_password_expires_at = NULL, updated_at = $3
		WHERE reset_password_token = $1
		  AND reset_password_expires_at > $3
		RETURNING `+userColumns, tokenHash, passwordHash, now))
}

func (r *UserRepository) PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	batch := &pgx.Batch{}
	batch.Queue(`UPDATE users SET verification_token = NULL, verification_token_expires_at = NULL
		WHERE verification_token_expires_at <= $1`, now)
	batch.Queue(`UPDATE users SET reset_password_token = NULL, reset_password_expires_at = NULL
		WHERE reset_password_expires_at <= $1`, now)

	br := r.pool.SendBatch(ctx, batch)
	defer func() { _ = br.Close() }()

	var total int64
	for i := 0; i < batch.Len(); i++ {
		tag, err := br.Exec()
		if err != nil {
			return total, err
		}
		total += tag.RowsAffected()
	}
	return total, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
