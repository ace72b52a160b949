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

// Broker is the part of the RabbitMQ client the subscriber consumes through.
type Broker interface {
	Consume(queue, consumer string, prefetch int) (<-chan amqp.Delivery, error)
	Cancel(consumer string) error
}

type NotificatorServiceInterface interface {
	Run(ctx context.Context) error
	Handle(body []byte) error
}

type NotificatorService struct {
	broker   Broker
	hub      *Hub
	queue    string
	consumer string
	metrics  *metrics.Registry
	log      *logger.Logger
}

func NewNotificatorService(broker Broker, hub *Hub, m *metrics.Registry, lg *logger.Logger) *NotificatorService {
	return &NotificatorService{
		broker:   broker,
		hub:      hub,
		queue:    mq.NotificationsQueue,
		consumer: "notification-subscriber",
		metrics:  m,
		log:      lg,
	}
}

// Run consumes status events until ctx ends or the broker closes the channel.
func (ns *NotificatorService) Run(ctx context.Context) error {
	msgs, err := ns.broker.Consume(ns.queue, ns.consumer, 50)
	if err != nil {
		return fmt.Errorf("consume %s: %w", ns.queue, err)
	}
	ns.log.Info("notifications_consuming", map[string]any{"queue": ns.queue})
	for {
		select {
		case <-ctx.Done():
			if err := ns.broker.Cancel(ns.consumer); err != nil {
				ns.log.Warn("consumer_cancel_failed", map[string]any{"error": err.Error()})
			}
			ns.hub.Close()
			return nil
		case d, ok := <-msgs:
			if !ok {
				ns.hub.Close()
				return errors.New("notifications channel closed")
			}
			ns.settle(d, ns.Handle(d.Body))
		}
	}
}

// Handle logs one event and pushes it to websocket subscribers.
func (ns *NotificatorService) Handle(body []byte) error {
	var ev domain.StatusEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		ns.log.Error("notification_decode", err, nil)
		return fmt.Errorf("%w: %v", mq.ErrDLQ, err)
	}
	if ev.EventType == "" || ev.SourceID == "" {
		ns.log.Warn("notification_incomplete", map[string]any{"body": string(body)})
		return fmt.Errorf("%w: event_type and source_id are required", mq.ErrDLQ)
	}
	delivered := ns.hub.Broadcast(ev)
	ns.log.Info("notification_received", map[string]any{
		"event_type":   ev.EventType,
		"source_id":    ev.SourceID,
		"source_label": ev.SourceLabel,
		"order_id":     ev.OrderID,
		"bill_id":      ev.BillID,
		"changed_by":   ev.ChangedBy,
		"delivered":    delivered,
	})
	return nil
}

func (ns *NotificatorService) settle(d mq.Acknowledger, err error) {
	result := "ack"
	if err != nil {
		result = "dead_letter"
		if !errors.Is(err, mq.ErrDLQ) {
			result = "requeue"
		}
	}
	ns.metrics.MessagesIn.WithLabelValues(ns.queue, result).Inc()
	mq.Settle(d, err)
}
