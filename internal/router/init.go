package router

import (
	"github.com/oksasatya/go-auth-service/internal/application"
	"github.com/oksasatya/go-auth-service/internal/container"
	"github.com/oksasatya/go-auth-service/internal/infrastructure/cache"
	handlers "github.com/oksasatya/go-auth-service/internal/interface/http"
	"github.com/oksasatya/go-auth-service/internal/router/modules"
)

type AuthModuleDeps struct {
	Service *application.Service
	Handler *handlers.AuthHandler
}

// BuildAuthService assembles the account service from the container.
func BuildAuthService() *application.Service {
	cfg := container.GetConfig()

	var profiles application.ProfileCache
	if rdb := container.GetRedis(); rdb != nil {
		profiles = cache.NewProfileCache(rdb, cfg.ProfileCacheTTL)
	}

	return application.NewService(
		container.GetUserRepo(),
		container.GetHasher(),
		container.GetJWT(),
		container.GetNotifier(),
		profiles,
		container.GetLogger(),
		application.Settings{
			VerificationTTL: cfg.VerificationTTL,
			ResetTTL:        cfg.ResetTokenTTL,
			ClientURL:       cfg.ClientURL,
		},
	)
}

func buildAuthDeps() AuthModuleDeps {
	cfg := container.GetConfig()
	service := BuildAuthService()
	handler := handlers.NewAuthHandler(service, container.GetLogger(), cfg.CookieDomain, cfg.IsProduction())
	return AuthModuleDeps{Service: service, Handler: handler}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	authDeps := buildAuthDeps()
	r.Add(modules.NewAuthModule(authDeps.Handler, container.GetJWT()))
	if container.GetConfig().DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
