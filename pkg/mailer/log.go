package mailer

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LogTransport writes emails to the logger instead of sending them.
// Used when MAIL_SEND_ENABLED=false.
type LogTransport struct {
	Logger *logrus.Logger
}

func (t LogTransport) SendHTML(_ context.Context, e HTMLEmail) (string, error) {
	id := uuid.NewString()
	if t.Logger != nil {
		t.Logger.WithFields(logrus.Fields{"to": e.To, "subject": e.Subject, "category": e.Category, "message_id": id}).
			Info("email not sent (delivery disabled)")
	}
	return id, nil
}

func (t LogTransport) SendTemplate(_ context.Context, e TemplateEmail) (string, error) {
	id := uuid.NewString()
	if t.Logger != nil {
		t.Logger.WithFields(logrus.Fields{"to": e.To, "template": e.TemplateID, "message_id": id}).
			Info("template email not sent (delivery disabled)")
	}
	return id, nil
}

var _ TemplateTransport = LogTransport{}
