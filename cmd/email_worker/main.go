package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-service/config"
	"github.com/oksasatya/go-auth-service/internal/infrastructure/notify"
	"github.com/oksasatya/go-auth-service/pkg/helpers"
	"github.com/oksasatya/go-auth-service/pkg/mailer"
)

const prefetch = 16

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-email-worker", cfg.Env)

	if cfg.RabbitMQURL == "" || cfg.RabbitMQEmailQueue == "" {
		logger.Fatal("RabbitMQ not configured")
	}

	transport, err := notify.NewTransport(cfg, logger)
	if err != nil {
		helpers.LogError(logger, "mail transport not configured", err, nil)
		os.Exit(1)
	}
	if !cfg.MailSendEnabled {
		logger.Warn("MAIL_SEND_ENABLED=false; jobs will be logged, not sent")
	}

	q, err := helpers.NewRabbitQueue(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
	if err != nil {
		helpers.LogError(logger, "failed to open queue", err, nil)
		os.Exit(1)
	}
	defer q.Close()

	msgs, err := q.Consume(prefetch)
	if err != nil {
		helpers.LogError(logger, "failed to consume", err, nil)
		os.Exit(1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	w := &worker{
		logger:     logger,
		transport:  transport,
		timeout:    cfg.MailTimeout,
		queue:      q,
		maxRetries: cfg.MailMaxRetries,
	}
	go func() {
		defer close(done)
		for msg := range msgs {
			w.handle(msg)
		}
	}()

	logger.WithField("queue", cfg.RabbitMQEmailQueue).Info("email worker listening")
	<-stop
	logger.Info("shutting down...")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

// retrier puts a failed delivery back on the queue with its attempt count raised.
type retrier interface {
	Retry(ctx context.Context, d amqp.Delivery) error
}

type worker struct {
	logger     *logrus.Logger
	transport  mailer.Transport
	timeout    time.Duration
	queue      retrier
	maxRetries int
}

// handle sends one queued email. Undecodable jobs are dropped. A failed send
// is republished until it has been retried maxRetries times, then dropped.
func (w *worker) handle(msg amqp.Delivery) {
	var job mailer.EmailJob
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		helpers.LogWarn(w.logger, "bad message", err, logrus.Fields{"delivery_tag": msg.DeliveryTag})
		_ = msg.Nack(false, false)
		return
	}
	email, err := job.Email()
	if err != nil {
		helpers.LogWarn(w.logger, "malformed email job", err, logrus.Fields{"delivery_tag": msg.DeliveryTag})
		_ = msg.Nack(false, false)
		return
	}

	timeout := w.timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	id, err := mailer.Dispatch(ctx, w.transport, email)
	if err == nil {
		if w.logger != nil {
			w.logger.WithFields(logrus.Fields{"to": email.Recipient(), "message_id": id}).Debug("email sent")
		}
		_ = msg.Ack(false)
		return
	}

	retries := helpers.RetryCount(msg)
	fields := logrus.Fields{"to": email.Recipient(), "retries": retries}
	if retries >= w.maxRetries {
		helpers.LogError(w.logger, "send failed, giving up", err, fields)
		_ = msg.Nack(false, false)
		return
	}
	helpers.LogWarn(w.logger, "send failed, retrying", err, fields)

	rctx, rcancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer rcancel()
	if rerr := w.queue.Retry(rctx, msg); rerr != nil {
		helpers.LogError(w.logger, "retry publish failed", rerr, fields)
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}
