package mailer

import "fmt"

const (
	JobKindHTML     = "html"
	JobKindTemplate = "template"
)

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Kind selects which of the remaining fields apply.
type EmailJob struct {
	Kind       string         `json:"kind"`
	To         string         `json:"to"`
	Subject    string         `json:"subject,omitempty"`
	Category   string         `json:"category,omitempty"`
	Text       string         `json:"text,omitempty"`
	HTML       string         `json:"html,omitempty"`
	TemplateID string         `json:"template_id,omitempty"`
	Variables  map[string]any `json:"variables,omitempty"`
	Fallback   *EmailJob      `json:"fallback,omitempty"`
}

// JobFromEmail encodes e for the queue.
func JobFromEmail(e Email) (EmailJob, error) {
	switch m := e.(type) {
	case HTMLEmail:
		return htmlJob(m), nil
	case *HTMLEmail:
		return htmlJob(*m), nil
	case TemplateEmail:
		return templateJob(m), nil
	case *TemplateEmail:
		return templateJob(*m), nil
	default:
		return EmailJob{}, fmt.Errorf("unknown email variant %T", e)
	}
}

func htmlJob(m HTMLEmail) EmailJob {
	return EmailJob{Kind: JobKindHTML, To: m.To, Subject: m.Subject, Category: m.Category, Text: m.Text, HTML: m.HTML}
}

func templateJob(m TemplateEmail) EmailJob {
	j := EmailJob{Kind: JobKindTemplate, To: m.To, TemplateID: m.TemplateID, Variables: m.Variables}
	if m.Fallback != nil {
		fb := htmlJob(*m.Fallback)
		j.Fallback = &fb
	}
	return j
}

// Email decodes a queued job back into its variant.
func (j EmailJob) Email() (Email, error) {
	if j.To == "" {
		return nil, fmt.Errorf("email job has no recipient")
	}
	switch j.Kind {
	case JobKindHTML, "":
		if j.HTML == "" && j.Text == "" {
			return nil, fmt.Errorf("html email job for %s has no body", j.To)
		}
		return HTMLEmail{To: j.To, Subject: j.Subject, Category: j.Category, Text: j.Text, HTML: j.HTML}, nil
	case JobKindTemplate:
		m := TemplateEmail{To: j.To, TemplateID: j.TemplateID, Variables: j.Variables}
		if j.Fallback != nil {
			m.Fallback = &HTMLEmail{To: j.To, Subject: j.Fallback.Subject, Category: j.Fallback.Category, Text: j.Fallback.Text, HTML: j.Fallback.HTML}
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown email job kind %q", j.Kind)
	}
}
