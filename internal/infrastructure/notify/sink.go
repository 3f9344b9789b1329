package notify

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-service/pkg/mailer"
)

// Sink hands a composed email to whatever delivers it.
type Sink interface {
	Deliver(ctx context.Context, e mailer.Email) error
}

// DirectSink sends through a transport inside the request.
type DirectSink struct {
	Transport mailer.Transport
	Timeout   time.Duration
	Logger    *logrus.Logger
}

func (s DirectSink) Deliver(ctx context.Context, e mailer.Email) error {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	id, err := mailer.Dispatch(ctx, s.Transport, e)
	if err != nil {
		return oops.Code("INFRASTRUCTURE").In("notify").With("to", e.Recipient()).Wrapf(err, "send email")
	}
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"to": e.Recipient(), "message_id": id}).Debug("email sent")
	}
	return nil
}

// Publisher is the part of a message queue QueueSink needs.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// QueueSink enqueues emails for cmd/email_worker.
type QueueSink struct {
	Queue Publisher
}

func (s QueueSink) Deliver(ctx context.Context, e mailer.Email) error {
	job, err := mailer.JobFromEmail(e)
	if err != nil {
		return oops.Code("INFRASTRUCTURE").In("notify").Wrap(err)
	}
	if err := s.Queue.PublishJSON(ctx, job); err != nil {
		return oops.Code("INFRASTRUCTURE").In("notify").With("to", e.Recipient()).Wrapf(err, "enqueue email")
	}
	return nil
}
