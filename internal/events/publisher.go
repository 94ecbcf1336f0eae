package events

import (
	"encoding/json"
	"time"

	"github.com/brandotp/numberdesk/internal/session"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

const Exchange = "numberdesk.events"

// Channel is the slice of *amqp.Channel the publisher uses, split out so
// tests can capture publishes without a broker.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher mirrors every session transition onto a topic exchange with
// routing key session.<status>. Downstream consumers (billing, audit) bind
// the patterns they care about. Publish failures are logged and dropped:
// the session lifecycle never blocks on the broker.
type Publisher struct {
	ch     Channel
	logger *logrus.Logger
}

func NewPublisher(ch Channel, logger *logrus.Logger) (*Publisher, error) {
	if err := ch.ExchangeDeclare(
		Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return nil, err
	}
	return &Publisher{ch: ch, logger: logger}, nil
}

// SessionUpdated implements session.Presenter.
func (p *Publisher) SessionUpdated(snap session.Snapshot) {
	body, err := json.Marshal(snap)
	if err != nil {
		p.logger.Errorf("Failed to encode session event: %v", err)
		return
	}

	routingKey := "session." + string(snap.Status)
	err = p.ch.Publish(
		Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		p.logger.Errorf("Failed to publish %s event: %v", routingKey, err)
		return
	}

	p.logger.Debugf("Published %s event for request %s", routingKey, snap.RequestID)
}
