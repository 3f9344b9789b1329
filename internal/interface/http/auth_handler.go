package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-service/internal/application"
	"github.com/oksasatya/go-auth-service/internal/domain/entity"
	"github.com/oksasatya/go-auth-service/internal/interface/middleware"
	"github.com/oksasatya/go-auth-service/pkg/helpers"
	"github.com/oksasatya/go-auth-service/pkg/response"
	"github.com/oksasatya/go-auth-service/pkg/validation"
)

// AuthService is the account lifecycle as the HTTP layer sees it.
type AuthService interface {
	Signup(ctx context.Context, in application.SignupInput) (*application.AuthResult, error)
	Login(ctx context.Context, email, password string) (*application.AuthResult, error)
	Logout(ctx context.Context, userID string)
	VerifyEmail(ctx context.Context, code, userID string) (*entity.PublicUser, error)
	ForgotPassword(ctx context.Context, email string, meta application.RequestMeta) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	CheckAuth(ctx context.Context, sessionToken string) (*entity.PublicUser, error)
}

type AuthHandler struct {
	Svc     AuthService
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewAuthHandler(svc AuthService, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

type signupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,authemail"`
	Password string `json:"password" binding:"required,authpwd"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type verifyEmailRequest struct {
	Code string `json:"code" binding:"required,len=6,numeric"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Password string `json:"password" binding:"required,authpwd"`
}

type sessionMeta struct {
	ExpiresAt string `json:"expires_at"`
}

func clientIP(c *gin.Context) string {
	if ip := c.GetString(middleware.CtxRealIPKey); ip != "" {
		return ip
	}
	return c.ClientIP()
}

// fail writes err as a response. Only infrastructure faults are logged at error level.
func (h *AuthHandler) fail(c *gin.Context, op string, err error) {
	status := application.HTTPStatus(err)
	fields := logrus.Fields{"operation": op, "request_id": c.GetString(middleware.CtxRequestIDKey)}
	if status >= http.StatusInternalServerError {
		helpers.LogError(h.Logger, "request failed", err, fields)
	} else if h.Logger != nil {
		h.Logger.WithFields(helpers.ErrorFields(err, fields)).Debug("request rejected")
	}
	response.Error[any](c, status, application.PublicMessage(err), nil)
}

func (h *AuthHandler) startSession(c *gin.Context, status int, res *application.AuthResult, message string) {
	h.Cookies.SetSession(c, res.Token, res.TTL)
	response.Success(c, status, res.User, message, sessionMeta{ExpiresAt: res.ExpiresAt.UTC().Format(http.TimeFormat)})
}

// Signup POST /api/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	res, err := h.Svc.Signup(c.Request.Context(), application.SignupInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		h.fail(c, "signup", err)
		return
	}
	h.startSession(c, http.StatusCreated, res, "user created successfully")
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	res, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, "login", err)
		return
	}
	h.startSession(c, http.StatusOK, res, "logged in successfully")
}

// Logout POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	h.Svc.Logout(c.Request.Context(), c.GetString(middleware.CtxUserIDKey))
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, nil, "logged out successfully", nil)
}

// VerifyEmail POST /api/auth/verify-email
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.VerifyEmail(c.Request.Context(), req.Code, c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		h.fail(c, "verifyEmail", err)
		return
	}
	response.Success(c, http.StatusOK, u, "email verified successfully", nil)
}

// ForgotPassword POST /api/auth/forgot-password
// The response is identical whether or not the email belongs to an account.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	meta := application.RequestMeta{IP: clientIP(c), UserAgent: c.GetHeader("User-Agent")}
	// The answer is the same whether or not the reset could be issued.
	if err := h.Svc.ForgotPassword(c.Request.Context(), req.Email, meta); err != nil {
		helpers.LogError(h.Logger, "forgot password failed", err, logrus.Fields{
			"operation":  "forgotPassword",
			"request_id": c.GetString(middleware.CtxRequestIDKey),
		})
	}
	response.Success[any](c, http.StatusOK, nil, "if an account exists for that email, a password reset link has been sent", nil)
}

// ResetPassword POST /api/auth/reset-password/:token
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.ResetPassword(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		h.fail(c, "resetPassword", err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "password reset successful", nil)
}

// CheckAuth GET /api/auth/check-auth
func (h *AuthHandler) CheckAuth(c *gin.Context) {
	u, err := h.Svc.CheckAuth(c.Request.Context(), helpers.SessionToken(c))
	if err != nil {
		h.fail(c, "checkAuth", err)
		return
	}
	response.Success(c, http.StatusOK, u, "authenticated", nil)
}
