package sink

import (
	"context"
	"fmt"
	"net/url"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Defaults for AMQP destinations.
const (
	DefaultExchange     = "wss-logs"
	DefaultExchangeType = "direct"
	DefaultRoutingKey   = "access"
)

func init() {
	Register("amqp", openAMQP)
	Register("amqps", openAMQP)
}

// AMQPSink publishes each record as one message to a RabbitMQ exchange.
// The broker does its own buffering; Flush is a no-op.
type AMQPSink struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	key      string
}

// openAMQP is the Opener for the amqp and amqps schemes. The exchange,
// exchange-type and routing-key query parameters are consumed here; the
// rest of the URI is handed to the AMQP dialer as-is.
func openAMQP(u *url.URL, _ OpenOptions) (Sink, error) {
	q := u.Query()

	exchange := DefaultExchange
	if q.Has("exchange") {
		exchange = q.Get("exchange")
	}
	kind := q.Get("exchange-type")
	if kind == "" {
		kind = DefaultExchangeType
	}
	key := q.Get("routing-key")
	if key == "" {
		key = DefaultRoutingKey
	}

	dialURL := *u
	dialURL.RawQuery = ""

	return NewAMQPSink(dialURL.String(), exchange, kind, key)
}

// NewAMQPSink connects to the broker and declares a durable exchange.
// An empty exchange name skips the declare and publishes to the default
// exchange, where the routing key addresses a queue directly.
func NewAMQPSink(uri, exchange, kind, key string) (*AMQPSink, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if exchange != "" {
		err = ch.ExchangeDeclare(
			exchange, // name
			kind,     // type
			true,     // durable
			false,    // auto-deleted
			false,    // internal
			false,    // no-wait
			nil,      // arguments
		)
		if err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
		}
	}

	return &AMQPSink{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		key:      key,
	}, nil
}

func (s *AMQPSink) Accept(ctx context.Context, rec Record) error {
	err := s.channel.PublishWithContext(
		ctx,
		s.exchange, // exchange
		s.key,      // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType: "text/plain",
			Timestamp:   time.Now(),
			AppId:       "wssrelay",
			Body:        []byte(rec.Envelope + " " + rec.Raw),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (s *AMQPSink) Flush(context.Context) error {
	return nil
}

func (s *AMQPSink) Close() error {
	var firstErr error
	if err := s.channel.Close(); err != nil {
		firstErr = err
	}
	if err := s.conn.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
