package mq

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-pos/internal/common/config"
)

const (
	OrdersExchange        = "orders_topic"
	NotificationsExchange = "notifications_fanout"
	DeadLetterExchange    = "dlx"
	KitchenQueue          = "kitchen_queue"
	NotificationsQueue    = "notifications_queue"
	DeadLetterQueue       = "dlq"
)

var (
	ErrRequeue = errors.New("requeue")     // nack(requeue=true)
	ErrDLQ     = errors.New("dead_letter") // nack(requeue=false)
)

// KitchenRoutingKey routes a round as kitchen.<table|parcel>.<ref>.
func KitchenRoutingKey(kind, ref string) string { return fmt.Sprintf("kitchen.%s.%s", kind, ref) }

// Client owns one connection with a confirm-mode publishing channel and a
// separate channel for consuming.
type Client struct {
	conn *amqp.Connection
	pub  *amqp.Channel
	cons *amqp.Channel

	acks <-chan amqp.Confirmation
	mu   sync.Mutex
}

func Dial(cfg config.MQ) (*Client, error) {
	vhost := ""
	if cfg.VHost != "" && cfg.VHost != "/" {
		vhost = url.PathEscape(cfg.VHost)
	}
	scheme := "amqp"
	if cfg.UseTLS {
		scheme = "amqps"
	}
	url := fmt.Sprintf("%s://%s:%s@%s:%d/%s", scheme, cfg.User, cfg.Pass, cfg.Host, cfg.Port, vhost)

	var (
		conn *amqp.Connection
		err  error
	)
	if cfg.UseTLS {
		conn, err = amqp.DialTLS(url, &tls.Config{MinVersion: tls.VersionTLS12})
	} else {
		conn, err = amqp.Dial(url)
	}
	if err != nil {
		return nil, err
	}

	pub, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := pub.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, err
	}
	cons, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	acks := pub.NotifyPublish(make(chan amqp.Confirmation, 1))
	return &Client{conn: conn, pub: pub, cons: cons, acks: acks}, nil
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.cons != nil {
		_ = c.cons.Close()
	}
	if c.pub != nil {
		_ = c.pub.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Client) Ping() error {
	if c == nil || c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

// DeclareAll sets up the exchanges and the shared queues. It is idempotent.
func (c *Client) DeclareAll() error {
	ch := c.cons
	if err := ch.ExchangeDeclare(OrdersExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", OrdersExchange, err)
	}
	if err := ch.ExchangeDeclare(NotificationsExchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", NotificationsExchange, err)
	}
	if err := ch.ExchangeDeclare(DeadLetterExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", DeadLetterExchange, err)
	}
	if _, err := ch.QueueDeclare(KitchenQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    DeadLetterExchange,
		"x-dead-letter-routing-key": DeadLetterQueue,
	}); err != nil {
		return fmt.Errorf("declare %s: %w", KitchenQueue, err)
	}
	if _, err := ch.QueueDeclare(NotificationsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", NotificationsQueue, err)
	}
	if _, err := ch.QueueDeclare(DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", DeadLetterQueue, err)
	}
	if err := ch.QueueBind(KitchenQueue, "kitchen.*.*", OrdersExchange, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(DeadLetterQueue, DeadLetterQueue, DeadLetterExchange, false, nil); err != nil {
		return err
	}
	return ch.QueueBind(NotificationsQueue, "", NotificationsExchange, false, nil)
}

// DeclareFanoutQueue declares a private auto-delete queue bound to the
// notifications exchange so that several services each see every event.
func (c *Client) DeclareFanoutQueue(name string) (string, error) {
	q, err := c.cons.QueueDeclare(name, false, true, false, false, nil)
	if err != nil {
		return "", err
	}
	if err := c.cons.QueueBind(q.Name, "", NotificationsExchange, false, nil); err != nil {
		return "", err
	}
	return q.Name, nil
}

// Publish sends a persistent JSON message and waits for the broker confirm.
func (c *Client) Publish(ctx context.Context, exchange, key, correlationID string, body []byte, headers amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.pub.PublishWithContext(ctx, exchange, key, false, false, amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		MessageId:     uuid.NewString(),
		CorrelationId: correlationID,
		Timestamp:     time.Now().UTC(),
		Headers:       headers,
		Body:          body,
	}); err != nil {
		return err
	}

	select {
	case conf := <-c.acks:
		if conf.Ack {
			return nil
		}
		return errors.New("publish NACK from broker")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) Consume(queue, consumer string, prefetch int) (<-chan amqp.Delivery, error) {
	if err := c.cons.Qos(prefetch, 0, false); err != nil {
		return nil, err
	}
	return c.cons.Consume(queue, consumer, false, false, false, false, nil)
}

func (c *Client) Cancel(consumer string) error { return c.cons.Cancel(consumer, false) }

// NotifyClose reports channel-level closes on the consuming channel.
func (c *Client) NotifyClose() <-chan *amqp.Error {
	return c.cons.NotifyClose(make(chan *amqp.Error, 1))
}

// Settle acks, requeues or dead-letters d depending on err.
func Settle(d Acknowledger, err error) {
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, ErrDLQ):
		_ = d.Nack(false, false)
	default:
		_ = d.Nack(false, true)
	}
}

// Acknowledger is the part of amqp.Delivery Settle needs.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}
