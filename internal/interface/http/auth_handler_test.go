package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-auth-service/internal/application"
	"github.com/oksasatya/go-auth-service/internal/domain/entity"
	"github.com/oksasatya/go-auth-service/internal/interface/middleware"
	"github.com/oksasatya/go-auth-service/pkg/helpers"
	"github.com/oksasatya/go-auth-service/pkg/validation"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	validation.Init()
	os.Exit(m.Run())
}

var testUser = &entity.PublicUser{ID: "u1", Name: "Alice", Email: "alice@x.com"}

type stubService struct {
	err error

	signupIn     application.SignupInput
	verifyUserID string
	forgotMeta   application.RequestMeta
	resetToken   string
	loggedOut    string
	checked      string
}

func (s *stubService) result() *application.AuthResult {
	return &application.AuthResult{User: testUser, Token: "session-token", ExpiresAt: time.Now().Add(time.Hour), TTL: time.Hour}
}

func (s *stubService) Signup(_ context.Context, in application.SignupInput) (*application.AuthResult, error) {
	s.signupIn = in
	if s.err != nil {
		return nil, s.err
	}
	return s.result(), nil
}

func (s *stubService) Login(context.Context, string, string) (*application.AuthResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result(), nil
}

func (s *stubService) Logout(_ context.Context, userID string) { s.loggedOut = userID }

func (s *stubService) VerifyEmail(_ context.Context, _, userID string) (*entity.PublicUser, error) {
	s.verifyUserID = userID
	if s.err != nil {
		return nil, s.err
	}
	verified := *testUser
	verified.IsVerified = true
	return &verified, nil
}

func (s *stubService) ForgotPassword(_ context.Context, _ string, meta application.RequestMeta) error {
	s.forgotMeta = meta
	return s.err
}

func (s *stubService) ResetPassword(_ context.Context, token, _ string) error {
	s.resetToken = token
	return s.err
}

func (s *stubService) CheckAuth(_ context.Context, token string) (*entity.PublicUser, error) {
	s.checked = token
	if s.err != nil {
		return nil, s.err
	}
	return testUser, nil
}

var jwtForTests = helpers.NewJWTManager("handler-secret", time.Hour)

func newRouter(svc AuthService) *gin.Engine {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	h := NewAuthHandler(svc, logger, "", false)

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware(), middleware.RealIP())
	g := r.Group("/api/auth", middleware.Session(jwtForTests))
	g.POST("/signup", h.Signup)
	g.POST("/login", h.Login)
	g.POST("/logout", h.Logout)
	g.POST("/verify-email", h.VerifyEmail)
	g.POST("/forgot-password", h.ForgotPassword)
	g.POST("/reset-password/:token", h.ResetPassword)
	g.GET("/check-auth", h.CheckAuth)
	return r
}

type envelope struct {
	Status  int               `json:"status"`
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Error   map[string]string `json:"error"`
}

func do(t *testing.T, r *gin.Engine, method, path, body string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "handler-test")
	req.RemoteAddr = "203.0.113.7:5555"
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return rr, env
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == helpers.SessionCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", helpers.SessionCookieName)
	return nil
}

func TestSignupCreatedWithSessionCookie(t *testing.T) {
	svc := &stubService{}
	rr, env := do(t, newRouter(svc), http.MethodPost, "/api/auth/signup", `{"name":"Alice","email":"alice@x.com","password":"Abcdef1"}`)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "alice@x.com", svc.signupIn.Email)

	var u map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &u))
	assert.Equal(t, "u1", u["id"])
	assert.NotContains(t, u, "password")

	c := sessionCookie(t, rr)
	assert.Equal(t, "session-token", c.Value)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Equal(t, 3600, c.MaxAge)
}

func TestSignupRejectsBadPayload(t *testing.T) {
	svc := &stubService{}
	r := newRouter(svc)

	rr, env := do(t, r, http.MethodPost, "/api/auth/signup", `{"name":"Alice","email":"a@b","password":"abc123"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, env.Error, "email")
	assert.Contains(t, env.Error, "password")
	assert.Empty(t, svc.signupIn.Email)

	rr, env = do(t, r, http.MethodPost, "/api/auth/signup", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid json", env.Error["payload"])
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		path   string
		body   string
		status int
		msg    string
	}{
		{"conflict", oops.Code(application.CodeConflict).Errorf("user with this email already exists"),
			"/api/auth/signup", `{"name":"A","email":"a@b.com","password":"Abcdef1"}`, http.StatusBadRequest, "user with this email already exists"},
		{"bad credentials", oops.Code(application.CodeAuthentication).Errorf("invalid credentials"),
			"/api/auth/login", `{"email":"a@b.com","password":"x"}`, http.StatusUnauthorized, "invalid credentials"},
		{"bad code", oops.Code(application.CodeToken).Errorf("invalid or expired token"),
			"/api/auth/verify-email", `{"code":"123456"}`, http.StatusBadRequest, "invalid or expired token"},
		{"storage down", oops.Code(application.CodeInfrastructure).Errorf("dial tcp 10.0.0.5:27017"),
			"/api/auth/login", `{"email":"a@b.com","password":"x"}`, http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr, env := do(t, newRouter(&stubService{err: tc.err}), http.MethodPost, tc.path, tc.body)
			assert.Equal(t, tc.status, rr.Code)
			assert.False(t, env.Success)
			assert.Equal(t, tc.msg, env.Message)
			assert.NotContains(t, rr.Body.String(), "10.0.0.5")
		})
	}
}

func TestLoginSetsCookie(t *testing.T) {
	rr, env := do(t, newRouter(&stubService{}), http.MethodPost, "/api/auth/login", `{"email":"alice@x.com","password":"Abcdef1"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "session-token", sessionCookie(t, rr).Value)
}

func TestLogoutClearsCookieAndPassesSessionUser(t *testing.T) {
	svc := &stubService{}
	tok, _, err := jwtForTests.GenerateSessionToken("u1")
	require.NoError(t, err)

	rr, env := do(t, newRouter(svc), http.MethodPost, "/api/auth/logout", "", &http.Cookie{Name: helpers.SessionCookieName, Value: tok})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "u1", svc.loggedOut)

	c := sessionCookie(t, rr)
	assert.Empty(t, c.Value)
	assert.Less(t, c.MaxAge, 0)

	rr, _ = do(t, newRouter(&stubService{}), http.MethodPost, "/api/auth/logout", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestVerifyEmail(t *testing.T) {
	svc := &stubService{}
	r := newRouter(svc)
	tok, _, err := jwtForTests.GenerateSessionToken("u1")
	require.NoError(t, err)

	rr, env := do(t, r, http.MethodPost, "/api/auth/verify-email", `{"code":"123456"}`, &http.Cookie{Name: helpers.SessionCookieName, Value: tok})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "u1", svc.verifyUserID)
	var u entity.PublicUser
	require.NoError(t, json.Unmarshal(env.Data, &u))
	assert.True(t, u.IsVerified)

	rr, env = do(t, r, http.MethodPost, "/api/auth/verify-email", `{"code":"12ab"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, env.Error, "code")
}

func TestForgotPasswordAlwaysOK(t *testing.T) {
	svc := &stubService{}
	r := newRouter(svc)

	rr, env := do(t, r, http.MethodPost, "/api/auth/forgot-password", `{"email":"nobody@x.com"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "203.0.113.7", svc.forgotMeta.IP)
	assert.Equal(t, "handler-test", svc.forgotMeta.UserAgent)

	rr, _ = do(t, r, http.MethodPost, "/api/auth/forgot-password", `{}`)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, _ = do(t, r, http.MethodPost, "/api/auth/forgot-password", `not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestForgotPasswordHidesStorageFailure(t *testing.T) {
	down := oops.Code(application.CodeInfrastructure).Errorf("dial tcp 10.0.0.5:27017")
	ok, okEnv := do(t, newRouter(&stubService{}), http.MethodPost, "/api/auth/forgot-password", `{"email":"alice@x.com"}`)
	rr, env := do(t, newRouter(&stubService{err: down}), http.MethodPost, "/api/auth/forgot-password", `{"email":"alice@x.com"}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, env.Success)
	assert.Equal(t, okEnv.Message, env.Message)
	assert.Equal(t, ok.Code, rr.Code)
	assert.NotContains(t, rr.Body.String(), "10.0.0.5")
}

func TestResetPasswordUsesPathToken(t *testing.T) {
	svc := &stubService{}
	r := newRouter(svc)

	rr, _ := do(t, r, http.MethodPost, "/api/auth/reset-password/abc_DEF-123", `{"password":"NewPass9"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "abc_DEF-123", svc.resetToken)

	rr, env := do(t, r, http.MethodPost, "/api/auth/reset-password/abc", `{"password":"weak"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, env.Error, "password")
}

func TestCheckAuth(t *testing.T) {
	svc := &stubService{}
	rr, env := do(t, newRouter(svc), http.MethodGet, "/api/auth/check-auth", "", &http.Cookie{Name: helpers.SessionCookieName, Value: "tok"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "tok", svc.checked)
	var u entity.PublicUser
	require.NoError(t, json.Unmarshal(env.Data, &u))
	assert.Equal(t, "u1", u.ID)

	rr, env = do(t, newRouter(&stubService{err: oops.Code(application.CodeAuthentication).Errorf("unauthorized")}), http.MethodGet, "/api/auth/check-auth", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "unauthorized", env.Message)
}
