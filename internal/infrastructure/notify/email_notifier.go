package notify

import (
	"context"
	"time"

	"github.com/samber/oops"

	"github.com/oksasatya/go-auth-service/internal/application"
	"github.com/oksasatya/go-auth-service/internal/domain/entity"
	"github.com/oksasatya/go-auth-service/pkg/mailer"
	mailtpl "github.com/oksasatya/go-auth-service/pkg/mailer/templates"
)

// EmailNotifier composes account emails and passes them to a Sink.
type EmailNotifier struct {
	Composer *mailtpl.Composer
	Sink     Sink
}

func NewEmailNotifier(composer *mailtpl.Composer, sink Sink) *EmailNotifier {
	return &EmailNotifier{Composer: composer, Sink: sink}
}

func (n *EmailNotifier) deliver(ctx context.Context, kind string, e mailer.Email, err error) error {
	if err != nil {
		return oops.Code("INFRASTRUCTURE").In("notify").With("email_kind", kind).Wrapf(err, "compose email")
	}
	return n.Sink.Deliver(ctx, e)
}

func (n *EmailNotifier) VerificationCode(ctx context.Context, u *entity.User, code string, expiresAt time.Time) error {
	e, err := n.Composer.Verification(u.Email, u.Name, code, expiresAt)
	return n.deliver(ctx, "verification", e, err)
}

func (n *EmailNotifier) Welcome(ctx context.Context, u *entity.User) error {
	e, err := n.Composer.Welcome(u.Email, u.Name)
	return n.deliver(ctx, "welcome", e, err)
}

func (n *EmailNotifier) PasswordReset(ctx context.Context, u *entity.User, resetURL string, expiresAt time.Time, meta application.RequestMeta) error {
	e, err := n.Composer.PasswordReset(ctx, u.Email, u.Name, resetURL, expiresAt, meta.IP, meta.UserAgent)
	return n.deliver(ctx, "password_reset", e, err)
}

func (n *EmailNotifier) ResetSuccess(ctx context.Context, u *entity.User) error {
	e, err := n.Composer.ResetSuccess(u.Email, u.Name)
	return n.deliver(ctx, "reset_success", e, err)
}

var _ application.Notifier = (*EmailNotifier)(nil)
