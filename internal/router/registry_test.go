package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-auth-service/config"
	"github.com/oksasatya/go-auth-service/internal/container"
	"github.com/oksasatya/go-auth-service/pkg/helpers"
)

func TestInitModulesRegistersAuthRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	container.SetConfig(&config.Config{DebugMetricsEnabled: true, ClientURL: "http://localhost:5173"})
	container.SetJWT(helpers.NewJWTManager("secret", time.Hour))

	engine := gin.New()
	reg := NewRegistry(engine)
	InitModules(reg)
	reg.RegisterAll()

	routes := map[string]bool{}
	for _, r := range engine.Routes() {
		routes[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"POST /api/auth/signup",
		"POST /api/auth/login",
		"POST /api/auth/logout",
		"POST /api/auth/verify-email",
		"POST /api/auth/forgot-password",
		"POST /api/auth/reset-password/:token",
		"GET /api/auth/check-auth",
		"GET /api/debug/vars",
	} {
		assert.True(t, routes[want], want)
	}

	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/debug/vars", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var vars map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &vars))
	assert.Contains(t, vars, "auth")
}

func TestRegistryAppliesMiddlewareToAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	reg := NewRegistry(engine)
	reg.Use(func(c *gin.Context) { c.Header("X-Test", "1") })
	reg.Add(moduleFunc(func(rg *gin.RouterGroup) {
		rg.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	}))
	reg.RegisterAll()

	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("X-Test"))
}

type moduleFunc func(rg *gin.RouterGroup)

func (f moduleFunc) Register(rg *gin.RouterGroup) { f(rg) }

func TestRegisterAllIsIdempotent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := NewRegistry(gin.New())
	reg.Add(moduleFunc(func(rg *gin.RouterGroup) {
		rg.GET("/once", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	}))
	reg.RegisterAll()
	assert.NotPanics(t, reg.RegisterAll)
}
