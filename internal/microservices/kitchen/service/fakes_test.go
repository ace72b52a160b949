package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/common/metrics"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/kitchen/repository"
)

type memKitchen struct {
	mu        sync.Mutex
	nextID    int64
	orders    []repository.Order
	completed map[int64]bool
	seen      map[string]bool
	workers   map[string]string
	insertErr error
}

func newMemKitchen() *memKitchen {
	return &memKitchen{completed: map[int64]bool{}, seen: map[string]bool{}, workers: map[string]string{}}
}

func (m *memKitchen) RegisterOrFail(_ context.Context, name, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.workers[name] == "online" {
		return repository.ErrWorkerOnline
	}
	m.workers[name] = "online"
	return nil
}

func (m *memKitchen) SetOffline(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers[name] = "offline"
	return nil
}

func (m *memKitchen) Heartbeat(context.Context, string) error { return nil }

func (m *memKitchen) Insert(_ context.Context, messageID string, msg domain.KitchenOrderMessage, _ string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return 0, false, m.insertErr
	}
	if messageID != "" && m.seen[messageID] {
		return 0, false, nil
	}
	m.seen[messageID] = true
	m.nextID++
	m.orders = append(m.orders, repository.Order{
		ID: m.nextID, SourceID: msg.SourceID, SourceLabel: msg.SourceLabel,
		Round: msg.Round, Items: msg.Items, CreatedAt: msg.CreatedAt,
	})
	return m.nextID, true, nil
}

func (m *memKitchen) Pending(context.Context) ([]repository.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.Order
	for _, o := range m.orders {
		if !m.completed[o.ID] {
			o.ReadyRows = append([]int32(nil), o.ReadyRows...)
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memKitchen) SetRowReady(_ context.Context, id int64, row int, ready bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.orders {
		o := &m.orders[i]
		if o.ID != id || m.completed[id] {
			continue
		}
		var rows []int32
		for _, r := range o.ReadyRows {
			if int(r) != row {
				rows = append(rows, r)
			}
		}
		if ready {
			rows = append(rows, int32(row))
		}
		o.ReadyRows = rows
		return nil
	}
	return domain.ErrItemNotFound
}

func (m *memKitchen) Complete(_ context.Context, id int64, _ string, then func(repository.Order) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID != id || m.completed[id] {
			continue
		}
		if then != nil {
			if err := then(o); err != nil {
				return err
			}
		}
		m.completed[id] = true
		return nil
	}
	return domain.ErrItemNotFound
}

type fakeBroker struct {
	mu         sync.Mutex
	sent       [][]byte
	fail       error
	deliveries chan amqp.Delivery
	canceled   bool
}

func (b *fakeBroker) Publish(_ context.Context, _, _, _ string, body []byte, _ amqp.Table) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	b.sent = append(b.sent, body)
	return nil
}

func (b *fakeBroker) Consume(string, string, int) (<-chan amqp.Delivery, error) {
	return b.deliveries, nil
}

func (b *fakeBroker) Cancel(string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.canceled {
		b.canceled = true
		close(b.deliveries)
	}
	return nil
}

func (b *fakeBroker) published() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]byte(nil), b.sent...)
}

// tagAcks records how deliveries were settled, keyed by delivery tag.
type tagAcks struct {
	mu      sync.Mutex
	results map[uint64]string
}

func (a *tagAcks) set(tag uint64, r string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results[tag] = r
}

func (a *tagAcks) get(tag uint64) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.results[tag]
}

func (a *tagAcks) Ack(tag uint64, _ bool) error { a.set(tag, "ack"); return nil }
func (a *tagAcks) Nack(tag uint64, _ bool, requeue bool) error {
	if requeue {
		a.set(tag, "requeue")
	} else {
		a.set(tag, "dead_letter")
	}
	return nil
}
func (a *tagAcks) Reject(tag uint64, requeue bool) error { return a.Nack(tag, false, requeue) }

var errDBDown = errors.New("db down")

func newTestService(kinds ...domain.SourceKind) (*KitchenService, *memKitchen, *fakeBroker) {
	repo := newMemKitchen()
	broker := &fakeBroker{deliveries: make(chan amqp.Delivery, 8)}
	ks := NewKitchenService(repo, broker, Config{
		WorkerName: "chef-1",
		Kinds:      kinds,
		Heartbeat:  time.Hour,
	}, metrics.New("kitchen-test"), logger.NewWithWriter("kitchen-worker", io.Discard))
	return ks, repo, broker
}
