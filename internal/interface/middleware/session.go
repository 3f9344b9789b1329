package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-auth-service/pkg/helpers"
)

const CtxUserIDKey = "userID"

// Session reads the session cookie and, when it carries a valid token, puts the
// user id in the context under CtxUserIDKey. Requests without a valid session
// pass through untouched; handlers decide whether that is an error.
func Session(jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := helpers.SessionToken(c); token != "" {
			if claims, err := jwt.ParseSessionToken(token); err == nil {
				c.Set(CtxUserIDKey, claims.UserID)
			}
		}
		c.Next()
	}
}
