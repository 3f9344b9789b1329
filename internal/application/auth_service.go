package application

import (
	"context"
	"errors"
	"expvar"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-service/internal/domain/entity"
	repo "github.com/oksasatya/go-auth-service/internal/domain/repository"
	"github.com/oksasatya/go-auth-service/pkg/helpers"
	"github.com/oksasatya/go-auth-service/pkg/validation"
)

// Counters published under /debug/vars as "auth".
var stats = expvar.NewMap("auth")

const (
	statSignups              = "signups"
	statLogins               = "logins"
	statVerifications        = "verifications"
	statPasswordResets       = "password_resets"
	statNotificationFailures = "notification_failures"
)

// RequestMeta describes where a request came from. It only feeds notifications.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// Notifier sends account emails. Errors are reported but never fail the
// operation that triggered them.
type Notifier interface {
	VerificationCode(ctx context.Context, u *entity.User, code string, expiresAt time.Time) error
	Welcome(ctx context.Context, u *entity.User) error
	PasswordReset(ctx context.Context, u *entity.User, resetURL string, expiresAt time.Time, meta RequestMeta) error
	ResetSuccess(ctx context.Context, u *entity.User) error
}

// ProfileCache holds public projections for check-auth. Every Delete bumps a
// per-user generation so a read that started before a mutation cannot put
// its stale projection back.
type ProfileCache interface {
	Get(ctx context.Context, userID string) (*entity.PublicUser, bool, error)
	Generation(ctx context.Context, userID string) (int64, error)
	// Set stores u only if the generation of u.ID still equals generation.
	Set(ctx context.Context, u *entity.PublicUser, generation int64) error
	Delete(ctx context.Context, userID string) error
}

// Settings are the lifecycle knobs taken from config.
type Settings struct {
	VerificationTTL time.Duration
	ResetTTL        time.Duration
	// ClientURL is the front-end origin reset links point at.
	ClientURL string
}

type Service struct {
	Repo     repo.UserRepository
	Hasher   *helpers.PasswordHasher
	JWT      *helpers.JWTManager
	Notifier Notifier
	Cache    ProfileCache // optional
	Logger   *logrus.Logger
	Settings Settings

	now       func() time.Time
	genCode   func() (string, error)
	dummyOnce sync.Once
	dummyHash string
}

// AuthResult is returned by operations that open a session.
type AuthResult struct {
	User      *entity.PublicUser
	Token     string
	ExpiresAt time.Time
	TTL       time.Duration
}

type SignupInput struct {
	Name     string
	Email    string
	Password string
}

func NewService(r repo.UserRepository, hasher *helpers.PasswordHasher, jwt *helpers.JWTManager, notifier Notifier, cache ProfileCache, logger *logrus.Logger, settings Settings) *Service {
	if settings.VerificationTTL <= 0 {
		settings.VerificationTTL = helpers.VerificationCodeTTL
	}
	if settings.ResetTTL <= 0 {
		settings.ResetTTL = time.Hour
	}
	return &Service{
		Repo:     r,
		Hasher:   hasher,
		JWT:      jwt,
		Notifier: notifier,
		Cache:    cache,
		Logger:   logger,
		Settings: settings,
		now:      time.Now,
		genCode:  helpers.GenVerificationCode,
	}
}

// Signup creates an unverified account, sends its verification code and opens a session.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	const op = "signup"
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, validationError(op, "all fields are required")
	}
	if !validation.ValidateEmail(in.Email) {
		return nil, validationError(op, "invalid email format")
	}
	if !validation.ValidatePassword(in.Password) {
		return nil, validationError(op, "password %s", validation.PasswordRuleMessage)
	}

	now := s.now()
	u := &entity.User{Name: in.Name, Email: in.Email, LastLogin: now}
	if err := s.prepareCredentials(ctx, u, in.Password); err != nil {
		return nil, infraError(op, err)
	}
	exp := now.Add(s.Settings.VerificationTTL)
	u.VerificationTokenExpiresAt = &exp

	code, err := s.createWithCode(ctx, u)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, conflictError(op, in.Email)
		}
		return nil, infraError(op, err)
	}
	stats.Add(statSignups, 1)

	res, err := s.openSession(u)
	if err != nil {
		return nil, infraError(op, err)
	}
	s.notify(op, u, func() error { return s.Notifier.VerificationCode(ctx, u, code, exp) })
	return res, nil
}

// Login checks credentials and opens a session. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	const op = "login"
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, validationError(op, "email and password are required")
	}

	u, err := s.Repo.GetByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		if h := s.dummy(); h != "" {
			s.Hasher.Compare(ctx, password, h)
		}
		return nil, authenticationError(op)
	}
	if err != nil {
		return nil, infraError(op, err)
	}
	if !s.Hasher.Compare(ctx, password, u.Password) {
		return nil, authenticationError(op)
	}

	now := s.now()
	if err := s.Repo.UpdateLastLogin(ctx, u.ID, now); err != nil {
		return nil, infraError(op, err)
	}
	u.LastLogin = now
	s.evict(ctx, op, u.ID)
	stats.Add(statLogins, 1)

	res, err := s.openSession(u)
	if err != nil {
		return nil, infraError(op, err)
	}
	return res, nil
}

// Logout drops any cached profile for userID. Clearing the cookie is the
// caller's job. It never fails.
func (s *Service) Logout(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	s.evict(ctx, "logout", userID)
}

// VerifyEmail consumes a verification code. userID, when known from the
// session, restricts the match to that account.
func (s *Service) VerifyEmail(ctx context.Context, code, userID string) (*entity.PublicUser, error) {
	const op = "verifyEmail"
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, validationError(op, "verification code is required")
	}

	u, err := s.Repo.ConsumeVerificationToken(ctx, code, userID, s.now())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, tokenError(op)
	}
	if err != nil {
		return nil, infraError(op, err)
	}
	s.evict(ctx, op, u.ID)
	stats.Add(statVerifications, 1)

	s.notify(op, u, func() error { return s.Notifier.Welcome(ctx, u) })
	return u.Public(), nil
}

// ForgotPassword issues a reset token when email belongs to an account.
// Unknown or malformed emails succeed silently.
func (s *Service) ForgotPassword(ctx context.Context, email string, meta RequestMeta) error {
	const op = "forgotPassword"
	email = strings.TrimSpace(email)
	if !validation.ValidateEmail(email) {
		return nil
	}

	u, err := s.Repo.GetByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return infraError(op, err)
	}

	raw, err := helpers.GenResetToken()
	if err != nil {
		return infraError(op, err)
	}
	exp := s.now().Add(s.Settings.ResetTTL)
	if err := s.Repo.SetResetToken(ctx, u.ID, helpers.HashToken(raw), exp); err != nil {
		return infraError(op, err)
	}

	resetURL := strings.TrimRight(s.Settings.ClientURL, "/") + "/reset-password/" + raw
	s.notify(op, u, func() error { return s.Notifier.PasswordReset(ctx, u, resetURL, exp, meta) })
	return nil
}

// ResetPassword replaces the password of the account holding token.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	const op = "resetPassword"
	if !validation.ValidatePassword(newPassword) {
		return validationError(op, "password %s", validation.PasswordRuleMessage)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return tokenError(op)
	}

	var scratch entity.User
	if err := s.prepareCredentials(ctx, &scratch, newPassword); err != nil {
		return infraError(op, err)
	}
	u, err := s.Repo.ConsumeResetToken(ctx, helpers.HashToken(token), scratch.Password, s.now())
	if errors.Is(err, repo.ErrNotFound) {
		return tokenError(op)
	}
	if err != nil {
		return infraError(op, err)
	}
	s.evict(ctx, op, u.ID)
	stats.Add(statPasswordResets, 1)

	s.notify(op, u, func() error { return s.Notifier.ResetSuccess(ctx, u) })
	return nil
}

// CheckAuth resolves a session token to the current public profile.
func (s *Service) CheckAuth(ctx context.Context, sessionToken string) (*entity.PublicUser, error) {
	const op = "checkAuth"
	if sessionToken == "" {
		return nil, unauthorizedError(op)
	}
	claims, err := s.JWT.ParseSessionToken(sessionToken)
	if err != nil {
		return nil, unauthorizedError(op)
	}

	generation := int64(-1)
	if s.Cache != nil {
		p, ok, err := s.Cache.Get(ctx, claims.UserID)
		if err != nil {
			helpers.LogWarn(s.Logger, "profile cache read failed", err, logrus.Fields{"operation": op, "user_id": claims.UserID})
		} else if ok {
			return p, nil
		}
		if g, err := s.Cache.Generation(ctx, claims.UserID); err == nil {
			generation = g
		}
	}

	u, err := s.Repo.GetByID(ctx, claims.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, unauthorizedError(op)
	}
	if err != nil {
		return nil, infraError(op, err)
	}
	p := u.Public()
	if s.Cache != nil && generation >= 0 {
		if err := s.Cache.Set(ctx, p, generation); err != nil {
			helpers.LogWarn(s.Logger, "profile cache write failed", err, logrus.Fields{"operation": op, "user_id": u.ID})
		}
	}
	return p, nil
}

// SessionUserID returns the user id carried by a valid session token, or "".
func (s *Service) SessionUserID(sessionToken string) string {
	if sessionToken == "" {
		return ""
	}
	claims, err := s.JWT.ParseSessionToken(sessionToken)
	if err != nil {
		return ""
	}
	return claims.UserID
}

// maxCodeAttempts bounds how often Signup redraws a verification code that
// collides with another pending account.
const maxCodeAttempts = 5

// createWithCode inserts u with a verification code no other pending account holds.
func (s *Service) createWithCode(ctx context.Context, u *entity.User) (string, error) {
	var err error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		var code string
		if code, err = s.genCode(); err != nil {
			return "", err
		}
		u.VerificationToken = &code
		if err = s.Repo.Create(ctx, u); !errors.Is(err, repo.ErrDuplicateVerificationCode) {
			return code, err
		}
	}
	return "", err
}

// prepareCredentials is the only place a password is turned into its stored form.
func (s *Service) prepareCredentials(ctx context.Context, u *entity.User, plain string) error {
	h, err := s.Hasher.Hash(ctx, plain)
	if err != nil {
		return err
	}
	u.Password = h
	return nil
}

func (s *Service) openSession(u *entity.User) (*AuthResult, error) {
	token, exp, err := s.JWT.GenerateSessionToken(u.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: u.Public(), Token: token, ExpiresAt: exp, TTL: s.JWT.TTL}, nil
}

// dummy returns a hash to compare against when the account does not exist,
// so unknown emails cost the same bcrypt work as wrong passwords.
func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.Hasher.Hash(context.Background(), "not-a-real-password-0")
		if err != nil {
			helpers.LogWarn(s.Logger, "dummy hash failed", err, nil)
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

func (s *Service) evict(ctx context.Context, op, userID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Delete(ctx, userID); err != nil {
		helpers.LogWarn(s.Logger, "profile cache eviction failed", err, logrus.Fields{"operation": op, "user_id": userID})
	}
}

func (s *Service) notify(op string, u *entity.User, send func() error) {
	if s.Notifier == nil {
		return
	}
	if err := send(); err != nil {
		stats.Add(statNotificationFailures, 1)
		helpers.LogWarn(s.Logger, "notification failed", err, logrus.Fields{"operation": op, "email": u.Email, "user_id": u.ID})
	}
}
