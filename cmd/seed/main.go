package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-auth-service/config"
	"github.com/oksasatya/go-auth-service/internal/application"
	"github.com/oksasatya/go-auth-service/internal/domain/entity"
	"github.com/oksasatya/go-auth-service/internal/infrastructure/storage"
	"github.com/oksasatya/go-auth-service/pkg/helpers"
)

const (
	demoName     = "demoUser"
	demoEmail    = "demo@example.com"
	demoPassword = "Password123!"
)

// codeCatcher keeps the verification code so the demo account can be verified
// without a mailbox.
type codeCatcher struct{ code string }

func (c *codeCatcher) VerificationCode(_ context.Context, _ *entity.User, code string, _ time.Time) error {
	c.code = code
	return nil
}
func (c *codeCatcher) Welcome(context.Context, *entity.User) error { return nil }
func (c *codeCatcher) PasswordReset(context.Context, *entity.User, string, time.Time, application.RequestMeta) error {
	return nil
}
func (c *codeCatcher) ResetSuccess(context.Context, *entity.User) error { return nil }

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	ctx := context.Background()

	repo, closeStore, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		helpers.LogError(logger, "failed to open storage", err, nil)
		os.Exit(1)
	}
	defer closeStore()

	catcher := &codeCatcher{}
	svc := application.NewService(
		repo,
		helpers.NewPasswordHasher(cfg.HashConcurrency, logger),
		helpers.NewJWTManager(cfg.JWTSecret, helpers.ParseTTL(cfg.JWTExpiration)),
		catcher,
		nil,
		logger,
		application.Settings{VerificationTTL: cfg.VerificationTTL, ResetTTL: cfg.ResetTokenTTL, ClientURL: cfg.ClientURL},
	)

	res, err := svc.Signup(ctx, application.SignupInput{Name: demoName, Email: demoEmail, Password: demoPassword})
	if err != nil {
		if application.CodeOf(err) == application.CodeConflict {
			fmt.Printf("demo user already exists: email=%s\n", demoEmail)
			return
		}
		helpers.LogError(logger, "failed to seed user", err, nil)
		os.Exit(1)
	}

	if _, err := svc.VerifyEmail(ctx, catcher.code, res.User.ID); err != nil {
		helpers.LogError(logger, "failed to verify seeded user", err, nil)
		os.Exit(1)
	}
	fmt.Printf("seeded user: id=%s email=%s name=%s password=%s\n", res.User.ID, demoEmail, demoName, demoPassword)
}
