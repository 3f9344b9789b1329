package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-auth-service/internal/domain/entity"
	repo "github.com/oksasatya/go-auth-service/internal/domain/repository"
)

// memRepo is an in-memory UserRepository with the same atomicity as the real stores.
type memRepo struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func newMemRepo() *memRepo { return &memRepo{users: map[string]*entity.User{}} }

func clone(u *entity.User) *entity.User {
	c := *u
	return &c
}

func (r *memRepo) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return repo.ErrDuplicateEmail
		}
	}
	for _, existing := range r.users {
		if u.VerificationToken != nil && existing.VerificationToken != nil && *existing.VerificationToken == *u.VerificationToken {
			return repo.ErrDuplicateVerificationCode
		}
	}
	now := time.Now()
	u.ID = uuid.NewString()
	u.CreatedAt, u.UpdatedAt = now, now
	r.users[u.ID] = clone(u)
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return clone(u), nil
}

func (r *memRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *memRepo) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.LastLogin = at
	return nil
}

func (r *memRepo) ConsumeVerificationToken(_ context.Context, code, userID string, now time.Time) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if userID != "" && u.ID != userID {
			continue
		}
		if u.VerificationToken != nil && *u.VerificationToken == code && u.VerificationTokenExpiresAt != nil && u.VerificationTokenExpiresAt.After(now) {
			u.IsVerified = true
			u.VerificationToken = nil
			u.VerificationTokenExpiresAt = nil
			u.UpdatedAt = now
			return clone(u), nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *memRepo) SetResetToken(_ context.Context, id, tokenHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.ResetPasswordToken = &tokenHash
	u.ResetPasswordExpiresAt = &expiresAt
	return nil
}

func (r *memRepo) ConsumeResetToken(_ context.Context, tokenHash, passwordHash string, now time.Time) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ResetPasswordToken != nil && *u.ResetPasswordToken == tokenHash && u.ResetPasswordExpiresAt != nil && u.ResetPasswordExpiresAt.After(now) {
			u.Password = passwordHash
			u.ResetPasswordToken = nil
			u.ResetPasswordExpiresAt = nil
			u.UpdatedAt = now
			return clone(u), nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *memRepo) PurgeExpiredTokens(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, u := range r.users {
		if u.VerificationTokenExpiresAt != nil && !u.VerificationTokenExpiresAt.After(now) {
			u.VerificationToken, u.VerificationTokenExpiresAt = nil, nil
			n++
		}
		if u.ResetPasswordExpiresAt != nil && !u.ResetPasswordExpiresAt.After(now) {
			u.ResetPasswordToken, u.ResetPasswordExpiresAt = nil, nil
			n++
		}
	}
	return n, nil
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

var _ repo.UserRepository = (*memRepo)(nil)

type failingRepo struct{ *memRepo }

func (failingRepo) GetByEmail(context.Context, string) (*entity.User, error) {
	return nil, errors.New("connection refused: mongodb://secret-host")
}

type sentReset struct {
	URL       string
	ExpiresAt time.Time
	Meta      RequestMeta
}

type stubNotifier struct {
	mu       sync.Mutex
	err      error
	codes    map[string]string
	welcomed []string
	resets   map[string]sentReset
	success  []string
}

func newStubNotifier() *stubNotifier {
	return &stubNotifier{codes: map[string]string{}, resets: map[string]sentReset{}}
}

func (n *stubNotifier) VerificationCode(_ context.Context, u *entity.User, code string, _ time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.codes[u.Email] = code
	return n.err
}

func (n *stubNotifier) Welcome(_ context.Context, u *entity.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomed = append(n.welcomed, u.Email)
	return n.err
}

func (n *stubNotifier) PasswordReset(_ context.Context, u *entity.User, resetURL string, expiresAt time.Time, meta RequestMeta) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets[u.Email] = sentReset{URL: resetURL, ExpiresAt: expiresAt, Meta: meta}
	return n.err
}

func (n *stubNotifier) ResetSuccess(_ context.Context, u *entity.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.success = append(n.success, u.Email)
	return n.err
}

type mapCache struct {
	mu   sync.Mutex
	data map[string]entity.PublicUser
	gens map[string]int64
}

func newMapCache() *mapCache {
	return &mapCache{data: map[string]entity.PublicUser{}, gens: map[string]int64{}}
}

func (c *mapCache) Get(_ context.Context, id string) (*entity.PublicUser, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.data[id]
	if !ok {
		return nil, false, nil
	}
	return &p, true, nil
}

func (c *mapCache) Generation(_ context.Context, id string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[id], nil
}

func (c *mapCache) Set(_ context.Context, p *entity.PublicUser, generation int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[p.ID] != generation {
		return nil
	}
	c.data[p.ID] = *p
	return nil
}

func (c *mapCache) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, id)
	c.gens[id]++
	return nil
}

// racingRepo runs afterGet once, between GetByID reading a user and returning it.
type racingRepo struct {
	*memRepo
	once     sync.Once
	afterGet func()
}

func (r *racingRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	u, err := r.memRepo.GetByID(ctx, id)
	r.once.Do(r.afterGet)
	return u, err
}

// scriptedCodes returns a code generator that yields codes in order and keeps repeating the last one.
func scriptedCodes(codes ...string) func() (string, error) {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		c := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return c, nil
	}
}
