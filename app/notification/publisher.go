package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/factory"
)

// Publisher pushes events to the transport that fans them out to live
// clients.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
	Close()
}

type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type EventProducer struct {
	conn     *amqp.Connection
	channel  amqpChannel
	declared map[string]struct{}
}

func NewEventProducer(amqpURL string) (*EventProducer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &EventProducer{conn: conn, channel: ch, declared: map[string]struct{}{}}, nil
}

func (p *EventProducer) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	if p.channel == nil {
		return errors.New("rabbitmq channel not initialized")
	}

	if _, ok := p.declared[exchange]; !ok {
		if err := p.channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
			return err
		}
		p.declared[exchange] = struct{}{}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	return p.channel.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         payload,
		Timestamp:    time.Now().UTC(),
	})
}

func (p *EventProducer) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// LogPublisher stands in when no broker is configured.
type LogPublisher struct {
	logger logrus.FieldLogger
}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{logger: factory.NewModuleLogger("notification_publisher")}
}

func (p *LogPublisher) Publish(_ context.Context, exchange, routingKey string, body interface{}) error {
	p.logger.WithFields(logrus.Fields{
		"exchange":    exchange,
		"routing_key": routingKey,
		"body":        body,
	}).Debug("Broker disabled, event not published")
	return nil
}

func (p *LogPublisher) Close() {}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}
