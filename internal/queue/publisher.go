package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// dialTimeout bounds how long a publish waits for an unreachable broker.
const dialTimeout = 2 * time.Second

// Publisher publishes charm events to RabbitMQ.  Each call dials the broker,
// declares the queue and publishes one persistent message; errors are logged
// and returned so the caller can choose to ignore them.
type Publisher struct {
	url string
	log logrus.FieldLogger
}

func NewPublisher(url string, log logrus.FieldLogger) *Publisher {
	return &Publisher{url: url, log: log}
}

// PublishCharmPublished sends ev to the charm.published queue.
func (p *Publisher) PublishCharmPublished(ctx context.Context, ev CharmPublishedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		p.log.WithError(err).Error("rabbitmq: marshal event failed")
		return err
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		p.log.WithError(err).Error("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.WithError(err).Error("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(CharmPublishedQueue, true, false, false, false, nil); err != nil {
		p.log.WithError(err).Error("rabbitmq: queue declare failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", CharmPublishedQueue, false, false, pub); err != nil {
		p.log.WithError(err).Error("rabbitmq: publish failed")
		return err
	}
	return nil
}
