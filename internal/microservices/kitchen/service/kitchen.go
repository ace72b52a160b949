package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-pos/internal/adapters/schema"
	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/common/metrics"
	"restaurant-pos/internal/common/mq"
	"restaurant-pos/internal/core/kitchen"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/kitchen/repository"
)

const publishTimeout = 5 * time.Second

// Broker is the part of mq.Client the kitchen worker uses.
type Broker interface {
	Publish(ctx context.Context, exchange, key, correlationID string, body []byte, headers amqp.Table) error
	Consume(queue, consumer string, prefetch int) (<-chan amqp.Delivery, error)
	Cancel(consumer string) error
}

type Config struct {
	WorkerName string
	// Kinds limits the worker to table or parcel rounds; empty means both.
	Kinds     []domain.SourceKind
	Prefetch  int
	Heartbeat time.Duration
}

type KitchenServiceInterface interface {
	Run(ctx context.Context) error
	Process(ctx context.Context, messageID string, body []byte) error
	Queue(ctx context.Context) ([]kitchen.Ticket, error)
	MarkRow(ctx context.Context, orderID int64, row int, ready bool) (kitchen.Ticket, error)
	Complete(ctx context.Context, orderID int64) error
}

type KitchenService struct {
	db      repository.KitchenRepositoryInterface
	broker  Broker
	cfg     Config
	metrics *metrics.Registry
	log     *logger.Logger
}

func NewKitchenService(db repository.KitchenRepositoryInterface, broker Broker, cfg Config, m *metrics.Registry, lg *logger.Logger) *KitchenService {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 30 * time.Second
	}
	return &KitchenService{db: db, broker: broker, cfg: cfg, metrics: m, log: lg}
}

// ParseKinds reads a comma separated list such as "table,parcel".
func ParseKinds(csv string) ([]domain.SourceKind, error) {
	var out []domain.SourceKind
	for _, k := range strings.Split(csv, ",") {
		k = strings.ToLower(strings.TrimSpace(k))
		switch domain.SourceKind(k) {
		case "":
		case domain.SourceTable, domain.SourceParcel:
			out = append(out, domain.SourceKind(k))
		default:
			return nil, fmt.Errorf("order kind %q: %w", k, domain.ErrInvalidInput)
		}
	}
	return out, nil
}

func (ks *KitchenService) kindsCSV() string {
	parts := make([]string, len(ks.cfg.Kinds))
	for i, k := range ks.cfg.Kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ",")
}

func (ks *KitchenService) allowed(k domain.SourceKind) bool {
	if len(ks.cfg.Kinds) == 0 {
		return true
	}
	for _, v := range ks.cfg.Kinds {
		if v == k {
			return true
		}
	}
	return false
}

// Run registers the worker, consumes kitchen_queue until ctx ends, then marks
// the worker offline once in-flight deliveries are settled.
func (ks *KitchenService) Run(ctx context.Context) error {
	if strings.TrimSpace(ks.cfg.WorkerName) == "" {
		return errors.New("worker name is empty: pass --worker-name")
	}
	if err := ks.db.RegisterOrFail(ctx, ks.cfg.WorkerName, ks.kindsCSV()); err != nil {
		ks.log.Error("worker_registration_failed", err, map[string]any{"worker": ks.cfg.WorkerName})
		return err
	}
	ks.log.Info("worker_registered", map[string]any{"worker": ks.cfg.WorkerName, "kinds": ks.kindsCSV()})

	msgs, err := ks.broker.Consume(mq.KitchenQueue, ks.cfg.WorkerName, ks.cfg.Prefetch)
	if err != nil {
		return fmt.Errorf("consume %s: %w", mq.KitchenQueue, err)
	}

	stopBeat := make(chan struct{})
	go ks.heartbeat(ctx, stopBeat)

	ks.log.Info("consuming", map[string]any{"queue": mq.KitchenQueue, "prefetch": ks.cfg.Prefetch})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for d := range msgs {
			err := ks.Process(ctx, d.MessageId, d.Body)
			ks.settle(d, err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		ks.log.Info("graceful_shutdown", map[string]any{"worker": ks.cfg.WorkerName})
		_ = ks.broker.Cancel(ks.cfg.WorkerName)
	case <-done:
		runErr = errors.New("kitchen delivery channel closed")
	}
	close(stopBeat)
	<-done
	if err := ks.db.SetOffline(context.WithoutCancel(ctx), ks.cfg.WorkerName); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

func (ks *KitchenService) heartbeat(ctx context.Context, stop <-chan struct{}) {
	t := time.NewTicker(ks.cfg.Heartbeat)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-t.C:
			if err := ks.db.Heartbeat(ctx, ks.cfg.WorkerName); err != nil {
				ks.log.Error("heartbeat_failed", err, nil)
				continue
			}
			ks.log.Debug("heartbeat_sent", map[string]any{"worker": ks.cfg.WorkerName})
		}
	}
}

func (ks *KitchenService) settle(d mq.Acknowledger, err error) {
	result := "ack"
	switch {
	case err == nil:
	case errors.Is(err, mq.ErrDLQ):
		result = "dead_letter"
	default:
		result = "requeue"
	}
	ks.metrics.MessagesIn.WithLabelValues(mq.KitchenQueue, result).Inc()
	mq.Settle(d, err)
}

// Process stores one submitted round. Malformed payloads are dead-lettered,
// storage failures requeued, and redeliveries acknowledged without effect.
func (ks *KitchenService) Process(ctx context.Context, messageID string, body []byte) error {
	msg, err := schema.DecodeKitchenOrder(body)
	if err != nil {
		ks.metrics.KitchenOrders.WithLabelValues("rejected").Inc()
		ks.log.Error("kitchen_order_rejected", err, map[string]any{"message_id": messageID})
		return fmt.Errorf("%w: %v", mq.ErrDLQ, err)
	}
	src, err := domain.ParseSourceID(msg.SourceID)
	if err != nil {
		ks.metrics.KitchenOrders.WithLabelValues("rejected").Inc()
		return fmt.Errorf("%w: %v", mq.ErrDLQ, err)
	}
	if !ks.allowed(src.Kind) {
		return fmt.Errorf("%w: %s orders are not handled by %s", mq.ErrRequeue, src.Kind, ks.cfg.WorkerName)
	}

	id, inserted, err := ks.db.Insert(ctx, messageID, msg, ks.cfg.WorkerName)
	if err != nil {
		ks.log.Error("kitchen_order_store_failed", err, map[string]any{"source_id": msg.SourceID})
		return fmt.Errorf("%w: %v", mq.ErrRequeue, err)
	}
	if !inserted {
		ks.metrics.KitchenOrders.WithLabelValues("duplicate").Inc()
		ks.log.Debug("kitchen_order_duplicate", map[string]any{"message_id": messageID})
		return nil
	}

	ks.metrics.KitchenOrders.WithLabelValues("accepted").Inc()
	ks.log.Debug("kitchen_order_received", map[string]any{
		"order_id":  id,
		"source_id": msg.SourceID,
		"round":     msg.Round,
		"worker":    ks.cfg.WorkerName,
	})
	if err := ks.publish(ctx, domain.StatusEvent{
		EventType:   domain.EventKitchenReceived,
		SourceID:    msg.SourceID,
		SourceLabel: msg.SourceLabel,
		OrderID:     id,
		Round:       msg.Round,
	}); err != nil {
		ks.log.Error("notify_failed", err, map[string]any{"order_id": id})
	}
	return nil
}

// Queue returns the kitchen board: one ticket per pending round, with the
// rows already marked ready.
func (ks *KitchenService) Queue(ctx context.Context) ([]kitchen.Ticket, error) {
	orders, err := ks.db.Pending(ctx)
	if err != nil {
		return nil, err
	}
	ks.metrics.KitchenPending.Set(float64(len(orders)))
	tickets, err := Board(orders)
	if err != nil {
		ks.log.Error("kitchen_board_failed", err, map[string]any{"pending": len(orders)})
		return nil, err
	}
	return tickets, nil
}

func (ks *KitchenService) MarkRow(ctx context.Context, orderID int64, row int, ready bool) (kitchen.Ticket, error) {
	t, err := ks.ticket(ctx, orderID)
	if err != nil {
		return kitchen.Ticket{}, err
	}
	if row < 0 || row >= len(t.Rows) {
		return kitchen.Ticket{}, fmt.Errorf("row %d of order %d: %w", row, orderID, domain.ErrInvalidInput)
	}
	if err := ks.db.SetRowReady(ctx, orderID, row, ready); err != nil {
		return kitchen.Ticket{}, err
	}
	t.Rows[row].Ready = ready
	return t, nil
}

func (ks *KitchenService) ticket(ctx context.Context, orderID int64) (kitchen.Ticket, error) {
	tickets, err := ks.Queue(ctx)
	if err != nil {
		return kitchen.Ticket{}, err
	}
	for _, t := range tickets {
		if t.OrderID == orderID {
			return t, nil
		}
	}
	return kitchen.Ticket{}, fmt.Errorf("pending kitchen order %d: %w", orderID, domain.ErrItemNotFound)
}

// Complete marks the whole round ready and tells the order service. The order
// stays pending if the ready event cannot be published.
func (ks *KitchenService) Complete(ctx context.Context, orderID int64) error {
	err := ks.db.Complete(ctx, orderID, ks.cfg.WorkerName, func(o repository.Order) error {
		return ks.publish(ctx, domain.StatusEvent{
			EventType:   domain.EventKitchenReady,
			SourceID:    o.SourceID,
			SourceLabel: o.SourceLabel,
			OrderID:     o.ID,
			Round:       o.Round,
		})
	})
	if err != nil {
		return err
	}
	ks.metrics.KitchenOrders.WithLabelValues("completed").Inc()
	ks.log.Info("order_completed", map[string]any{"order_id": orderID, "worker": ks.cfg.WorkerName})
	return nil
}

func (ks *KitchenService) publish(ctx context.Context, ev domain.StatusEvent) error {
	ev.ChangedBy = ks.cfg.WorkerName
	ev.Timestamp = time.Now().UTC()
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return ks.broker.Publish(pctx, mq.NotificationsExchange, "", ev.SourceID, body, amqp.Table{
		"x-source": "kitchen",
		"x-worker": ks.cfg.WorkerName,
	})
}
