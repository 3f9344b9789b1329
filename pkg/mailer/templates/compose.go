package templates

import (
	"context"
	"time"

	"github.com/oksasatya/go-auth-service/pkg/mailer"
)

const (
	categoryVerification = "Email Verification"
	categoryReset        = "Password Reset"
	categoryWelcome      = "Welcome"
)

// Brand is the company information stamped into every email.
type Brand struct {
	AppName        string
	CompanyName    string
	CompanyAddress string
	LogoURL        string
	SupportURL     string
}

// Composer turns account events into ready-to-dispatch emails.
type Composer struct {
	Brand Brand
	Geo   GeoResolver // optional
}

func (c *Composer) base(name, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:           name,
		Email:          email,
		CompanyName:    c.Brand.CompanyName,
		CompanyAddress: c.Brand.CompanyAddress,
		AppName:        c.Brand.AppName,
		LogoURL:        c.Brand.LogoURL,
		SupportURL:     c.Brand.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func (c *Composer) html(to, tpl, category string, d EmailData) (mailer.HTMLEmail, error) {
	subject, text, html, err := Render(tpl, d)
	if err != nil {
		return mailer.HTMLEmail{}, err
	}
	return mailer.HTMLEmail{To: to, Subject: subject, Category: category, Text: text, HTML: html}, nil
}

// Verification carries the 6-digit code.
func (c *Composer) Verification(to, name, code string, expiresAt time.Time) (mailer.Email, error) {
	d := c.base(name, to, WithExpiresAt(expiresAt))
	d.VerificationCode = code
	return c.html(to, VerificationEmail, categoryVerification, d)
}

// Welcome uses the provider-stored welcome template, with a rendered fallback.
func (c *Composer) Welcome(to, name string) (mailer.Email, error) {
	s, err := LoadStructured(WelcomeEmail, map[string]any{
		"name":              name,
		"company_info_name": c.Brand.CompanyName,
	})
	if err != nil {
		return nil, err
	}
	fb, err := c.html(to, WelcomeEmail, categoryWelcome, c.base(name, to))
	if err != nil {
		return nil, err
	}
	return mailer.TemplateEmail{To: to, TemplateID: s.TemplateID, Variables: s.Variables, Fallback: &fb}, nil
}

// PasswordReset carries the reset link and where the request came from.
func (c *Composer) PasswordReset(ctx context.Context, to, name, resetURL string, expiresAt time.Time, ip, userAgent string) (mailer.Email, error) {
	d := c.base(name, to,
		WithTime(time.Now()),
		WithExpiresAt(expiresAt),
		WithIP(ip),
		WithUserAgent(userAgent),
		WithGeoFromIP(ctx, c.Geo, ip),
	)
	d.ResetURL = resetURL
	return c.html(to, PasswordResetEmail, categoryReset, d)
}

// ResetSuccess confirms a completed password change.
func (c *Composer) ResetSuccess(to, name string) (mailer.Email, error) {
	return c.html(to, ResetSuccessEmail, categoryReset, c.base(name, to, WithTime(time.Now())))
}
