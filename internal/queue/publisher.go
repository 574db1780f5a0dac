package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/event-booking/internal/lib/logger/sl"
)

const dialTimeout = 3 * time.Second

// Publisher sends BookingConfirmedEvents to RabbitMQ.  Each publish dials
// its own connection; booking volume is low and a broken broker connection
// is never left cached.
type Publisher struct {
	url string
	log *slog.Logger
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, log *slog.Logger) *Publisher {
	return &Publisher{url: url, log: log}
}

// PublishBookingConfirmed publishes ev as a persistent JSON message to the
// booking.confirmed queue.  Errors are logged and returned so the caller can
// choose to ignore them.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) error {
	const op = "queue.Publisher.PublishBookingConfirmed"
	log := p.log.With(slog.String("op", op), slog.String("booking_id", ev.BookingID))

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		log.Error("dial failed", sl.Err(err))
		return fmt.Errorf("%s: dial: %w", op, err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Error("channel open failed", sl.Err(err))
		return fmt.Errorf("%s: channel: %w", op, err)
	}
	defer func() { _ = ch.Close() }()

	// durable so messages survive broker restarts
	if _, err := ch.QueueDeclare(BookingConfirmedQueue, true, false, false, false, nil); err != nil {
		log.Error("queue declare failed", sl.Err(err))
		return fmt.Errorf("%s: declare: %w", op, err)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	// default exchange, routing key = queue name
	if err := ch.PublishWithContext(ctx, "", BookingConfirmedQueue, false, false, pub); err != nil {
		log.Error("publish failed", sl.Err(err))
		return fmt.Errorf("%s: publish: %w", op, err)
	}
	log.Debug("booking.confirmed published")
	return nil
}

// NoopPublisher drops every event.  It stands in when RabbitMQ is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishBookingConfirmed(context.Context, BookingConfirmedEvent) error {
	return nil
}
