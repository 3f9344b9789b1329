package mailer

import (
	"context"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

// Mailgun sends through the Mailgun API. It supports stored templates.
type Mailgun struct {
	Domain  string
	APIKey  string
	Sender  string
	Timeout time.Duration
	client  *mg.MailgunImpl
}

func NewMailgun(domain, apiKey, sender string) *Mailgun {
	return &Mailgun{Domain: domain, APIKey: apiKey, Sender: sender, Timeout: 10 * time.Second, client: mg.NewMailgun(domain, apiKey)}
}

// SendHTML sends a rendered email. html is optional; text is used as the plain part.
func (m *Mailgun) SendHTML(ctx context.Context, e HTMLEmail) (string, error) {
	msg := m.client.NewMessage(m.Sender, e.Subject, e.Text, e.To)
	if e.HTML != "" {
		msg.SetHtml(e.HTML)
	}
	if e.Category != "" {
		_ = msg.AddTag(e.Category)
	}
	return m.send(ctx, msg)
}

// SendTemplate sends a Mailgun-stored template filled with e.Variables.
func (m *Mailgun) SendTemplate(ctx context.Context, e TemplateEmail) (string, error) {
	msg := m.client.NewMessage(m.Sender, "", "", e.To)
	msg.SetTemplate(e.TemplateID)
	for k, v := range e.Variables {
		if err := msg.AddTemplateVariable(k, v); err != nil {
			return "", err
		}
	}
	return m.send(ctx, msg)
}

func (m *Mailgun) send(ctx context.Context, msg *mg.Message) (string, error) {
	c, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()
	_, id, err := m.client.Send(c, msg)
	return id, err
}

var _ TemplateTransport = (*Mailgun)(nil)
