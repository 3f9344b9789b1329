package helpers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SessionCookieName carries the signed session token.
const SessionCookieName = "token"

type Manager struct {
	Domain string
	Secure bool
}

// NewCookie returns a cookie manager. secure should be true in production so the
// session is only sent over HTTPS.
func NewCookie(domain string, secure bool) *Manager {
	return &Manager{Domain: domain, Secure: secure}
}

// SetSession writes the session cookie: HttpOnly, SameSite=Strict, MaxAge equal to ttl.
func (m *Manager) SetSession(c *gin.Context, token string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookieName, token, int(ttl/time.Second), "/", m.Domain, m.Secure, true)
}

// Clear expires the session cookie. Safe to call when no cookie is present.
func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookieName, "", -1, "/", m.Domain, m.Secure, true)
}

// SessionToken returns the raw session cookie value, or "" when absent.
func SessionToken(c *gin.Context) string {
	v, err := c.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return v
}
