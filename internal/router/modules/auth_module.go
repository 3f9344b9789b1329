package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-auth-service/internal/interface/http"
	"github.com/oksasatya/go-auth-service/internal/interface/middleware"
	"github.com/oksasatya/go-auth-service/pkg/helpers"
)

type AuthModule struct {
	Handler *handlers.AuthHandler
	JWT     *helpers.JWTManager
}

func NewAuthModule(h *handlers.AuthHandler, jwt *helpers.JWTManager) *AuthModule {
	return &AuthModule{Handler: h, JWT: jwt}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	auth.Use(middleware.RealIP(), middleware.Session(m.JWT))
	{
		auth.POST("/signup", m.Handler.Signup)
		auth.POST("/login", m.Handler.Login)
		auth.POST("/logout", m.Handler.Logout)
		auth.POST("/verify-email", m.Handler.VerifyEmail)
		auth.POST("/forgot-password", m.Handler.ForgotPassword)
		auth.POST("/reset-password/:token", m.Handler.ResetPassword)
		auth.GET("/check-auth", m.Handler.CheckAuth)
	}
}
