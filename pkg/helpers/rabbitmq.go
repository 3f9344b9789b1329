package helpers

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/samber/oops"
)

// RetryHeader counts how many times a message was put back after a failed attempt.
const RetryHeader = "x-retry-count"

// RabbitQueue owns one AMQP connection and channel bound to a durable queue.
// It is used both to publish email jobs and, from the worker, to consume them.
type RabbitQueue struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	Queue string
}

func NewRabbitQueue(url, queue string) (*RabbitQueue, error) {
	errb := oops.Code("INFRASTRUCTURE").In("rabbitmq").With("queue", queue)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errb.Wrapf(err, "dial")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errb.Wrapf(err, "open channel")
	}
	if _, err = ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errb.Wrapf(err, "declare queue")
	}
	return &RabbitQueue{conn: conn, ch: ch, Queue: queue}, nil
}

func (q *RabbitQueue) Close() {
	if q == nil {
		return
	}
	if q.ch != nil {
		_ = q.ch.Close()
	}
	if q.conn != nil {
		_ = q.conn.Close()
	}
}

// PublishJSON publishes body as a persistent JSON message on the queue.
func (q *RabbitQueue) PublishJSON(ctx context.Context, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return oops.Code("INFRASTRUCTURE").In("rabbitmq").Wrapf(err, "encode message")
	}
	return q.publish(ctx, b, nil)
}

// Retry publishes d again at the back of the queue with RetryHeader incremented.
// The caller still has to ack d.
func (q *RabbitQueue) Retry(ctx context.Context, d amqp.Delivery) error {
	return q.publish(ctx, d.Body, amqp.Table{RetryHeader: int32(RetryCount(d) + 1)})
}

func (q *RabbitQueue) publish(ctx context.Context, body []byte, headers amqp.Table) error {
	err := q.ch.PublishWithContext(ctx, "", q.Queue, false, false, amqp.Publishing{
		Headers:      headers,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return oops.Code("INFRASTRUCTURE").In("rabbitmq").With("queue", q.Queue).Wrapf(err, "publish")
	}
	return nil
}

// RetryCount reads RetryHeader from d; 0 when absent or not a number.
func RetryCount(d amqp.Delivery) int {
	switch v := d.Headers[RetryHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	case int16:
		return int(v)
	case int8:
		return int(v)
	default:
		return 0
	}
}

// Consume starts a manual-ack consumer with the given prefetch.
func (q *RabbitQueue) Consume(prefetch int) (<-chan amqp.Delivery, error) {
	if err := q.ch.Qos(prefetch, 0, false); err != nil {
		return nil, oops.Code("INFRASTRUCTURE").In("rabbitmq").Wrapf(err, "qos")
	}
	msgs, err := q.ch.Consume(q.Queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, oops.Code("INFRASTRUCTURE").In("rabbitmq").With("queue", q.Queue).Wrapf(err, "consume")
	}
	return msgs, nil
}
