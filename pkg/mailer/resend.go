package mailer

import (
	"context"

	"github.com/resend/resend-go/v2"
)

// Resend sends through the Resend API. Stored templates are not used; template
// emails go out as their rendered fallback.
type Resend struct {
	Sender string
	client *resend.Client
}

func NewResend(apiKey, sender string) *Resend {
	return &Resend{Sender: sender, client: resend.NewClient(apiKey)}
}

func (r *Resend) SendHTML(ctx context.Context, e HTMLEmail) (string, error) {
	params := &resend.SendEmailRequest{
		From:    r.Sender,
		To:      []string{e.To},
		Subject: e.Subject,
		Html:    e.HTML,
		Text:    e.Text,
	}
	if e.Category != "" {
		params.Tags = []resend.Tag{{Name: "category", Value: tagValue(e.Category)}}
	}
	sent, err := r.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return "", err
	}
	return sent.Id, nil
}

// tagValue keeps only the characters Resend accepts in tag values.
func tagValue(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			out = append(out, r)
		case r == ' ':
			out = append(out, '_')
		}
	}
	return string(out)
}
