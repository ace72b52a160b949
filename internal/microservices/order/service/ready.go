package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/common/metrics"
	"restaurant-pos/internal/common/mq"
	"restaurant-pos/internal/domain"
)

// ReadyListener applies kitchen.ready events from the notifications fanout to
// the carts. Other event types are acknowledged and ignored.
type ReadyListener struct {
	orders  OrderServiceInterface
	queue   string
	metrics *metrics.Registry
	log     *logger.Logger
}

func NewReadyListener(orders OrderServiceInterface, queue string, m *metrics.Registry, lg *logger.Logger) *ReadyListener {
	return &ReadyListener{orders: orders, queue: queue, metrics: m, log: lg}
}

// Run settles deliveries until ctx ends or the channel closes.
func (l *ReadyListener) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("notifications channel closed")
			}
			err := l.Handle(ctx, d.Body)
			l.settle(d, err)
		}
	}
}

func (l *ReadyListener) settle(d mq.Acknowledger, err error) {
	result := "ack"
	switch {
	case err == nil:
	case errors.Is(err, mq.ErrDLQ):
		result = "dead_letter"
	default:
		result = "requeue"
	}
	l.metrics.MessagesIn.WithLabelValues(l.queue, result).Inc()
	mq.Settle(d, err)
}

// Handle processes one event body. A ready signal that no longer matches the
// cart (already billed, discarded, a redelivered round) is dropped rather
// than retried.
func (l *ReadyListener) Handle(ctx context.Context, body []byte) error {
	var ev domain.StatusEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		l.log.Error("ready_decode", err, nil)
		return fmt.Errorf("%w: %v", mq.ErrDLQ, err)
	}
	if ev.EventType != domain.EventKitchenReady {
		return nil
	}
	err := l.orders.MarkReady(ctx, ev.SourceID, ev.Round)
	switch {
	case err == nil:
		l.log.Info("cart_ready", map[string]any{"source_id": ev.SourceID, "order_id": ev.OrderID, "round": ev.Round})
		return nil
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrInvalidInput):
		l.log.Warn("ready_ignored", map[string]any{"source_id": ev.SourceID, "round": ev.Round, "reason": err.Error()})
		return nil
	default:
		l.log.Error("ready_failed", err, map[string]any{"source_id": ev.SourceID})
		return fmt.Errorf("%w: %v", mq.ErrRequeue, err)
	}
}
