package notify

import (
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-service/config"
	"github.com/oksasatya/go-auth-service/internal/application"
	"github.com/oksasatya/go-auth-service/pkg/helpers"
	"github.com/oksasatya/go-auth-service/pkg/mailer"
	mailtpl "github.com/oksasatya/go-auth-service/pkg/mailer/templates"
)

// NewTransport picks the email provider from cfg. With sending disabled every
// email is logged instead.
func NewTransport(cfg *config.Config, logger *logrus.Logger) (mailer.Transport, error) {
	if !cfg.MailSendEnabled {
		return mailer.LogTransport{Logger: logger}, nil
	}
	errb := oops.Code("CONFIG_INVALID").In("notify").With("provider", cfg.MailProvider)
	switch cfg.MailProvider {
	case config.ProviderMailgun:
		if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailSender == "" {
			return nil, errb.Errorf("mailgun requires MAILGUN_DOMAIN, MAILGUN_API_KEY and MAIL_SENDER")
		}
		return mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailSender), nil
	case config.ProviderResend:
		if cfg.ResendAPIKey == "" || cfg.MailSender == "" {
			return nil, errb.Errorf("resend requires RESEND_API_KEY and MAIL_SENDER")
		}
		return mailer.NewResend(cfg.ResendAPIKey, cfg.MailSender), nil
	default:
		return nil, errb.Errorf("unknown mail provider %q", cfg.MailProvider)
	}
}

// NewComposer builds the email composer from the company settings in cfg.
func NewComposer(cfg *config.Config) *mailtpl.Composer {
	c := &mailtpl.Composer{Brand: mailtpl.Brand{
		AppName:        cfg.AppName,
		CompanyName:    cfg.CompanyName,
		CompanyAddress: cfg.CompanyAddress,
		LogoURL:        cfg.LogoURL,
		SupportURL:     cfg.SupportURL,
	}}
	if cfg.GeoLookupEnabled {
		c.Geo = mailtpl.IPAPIResolver{}
	}
	return c
}

// NewNotifier wires the composer to a direct or queued sink according to
// MAIL_DELIVERY. The returned close func releases the queue connection.
func NewNotifier(cfg *config.Config, logger *logrus.Logger) (application.Notifier, func(), error) {
	composer := NewComposer(cfg)
	switch cfg.MailDelivery {
	case config.DeliveryQueue:
		q, err := helpers.NewRabbitQueue(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			return nil, func() {}, err
		}
		return NewEmailNotifier(composer, QueueSink{Queue: q}), q.Close, nil
	case config.DeliveryDirect, "":
		t, err := NewTransport(cfg, logger)
		if err != nil {
			return nil, func() {}, err
		}
		return NewEmailNotifier(composer, DirectSink{Transport: t, Timeout: cfg.MailTimeout, Logger: logger}), func() {}, nil
	default:
		return nil, func() {}, oops.Code("CONFIG_INVALID").In("notify").Errorf("unknown mail delivery %q", cfg.MailDelivery)
	}
}
