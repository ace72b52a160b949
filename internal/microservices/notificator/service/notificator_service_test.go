package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/common/metrics"
	"restaurant-pos/internal/common/mq"
	"restaurant-pos/internal/domain"
)

type fakeBroker struct {
	deliveries chan amqp.Delivery
	once       sync.Once
}

func (b *fakeBroker) Consume(string, string, int) (<-chan amqp.Delivery, error) {
	return b.deliveries, nil
}

func (b *fakeBroker) Cancel(string) error {
	b.once.Do(func() { close(b.deliveries) })
	return nil
}

type tagAcks struct {
	mu      sync.Mutex
	results map[uint64]string
}

func (a *tagAcks) get(tag uint64) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.results[tag]
}

func (a *tagAcks) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results[tag] = "ack"
	return nil
}

func (a *tagAcks) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results[tag] = "dead_letter"
	if requeue {
		a.results[tag] = "requeue"
	}
	return nil
}

func (a *tagAcks) Reject(tag uint64, requeue bool) error { return a.Nack(tag, false, requeue) }

func newHubServer(t *testing.T) (*Hub, *metrics.Registry, string) {
	t.Helper()
	m := metrics.New("notify-test")
	hub := NewHub(m, logger.NewWithWriter("notification-subscriber", io.Discard))
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, m, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Clients() == n }, 2*time.Second, 10*time.Millisecond)
}

func readEvent(t *testing.T, conn *websocket.Conn) domain.StatusEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev domain.StatusEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestHubBroadcastsToClients(t *testing.T) {
	hub, m, url := newHubServer(t)
	a := dial(t, url)
	b := dial(t, url)
	waitClients(t, hub, 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.WSClients))

	n := hub.Broadcast(domain.StatusEvent{EventType: domain.EventKitchenReady, SourceID: "table:2", OrderID: 7})
	assert.Equal(t, 2, n)

	for _, c := range []*websocket.Conn{a, b} {
		ev := readEvent(t, c)
		assert.Equal(t, domain.EventKitchenReady, ev.EventType)
		assert.Equal(t, int64(7), ev.OrderID)
	}
}

func TestHubFiltersBySource(t *testing.T) {
	hub, _, url := newHubServer(t)
	only := dial(t, url+"?source=table:5")
	all := dial(t, url)
	waitClients(t, hub, 2)

	assert.Equal(t, 1, hub.Broadcast(domain.StatusEvent{EventType: domain.EventCartSubmitted, SourceID: "table:1"}))
	assert.Equal(t, 2, hub.Broadcast(domain.StatusEvent{EventType: domain.EventOrderBilled, SourceID: "table:5"}))

	assert.Equal(t, "table:5", readEvent(t, only).SourceID)
	assert.Equal(t, "table:1", readEvent(t, all).SourceID)
	assert.Equal(t, "table:5", readEvent(t, all).SourceID)
}

func TestHubDropsDisconnectedClient(t *testing.T) {
	hub, m, url := newHubServer(t)
	c := dial(t, url)
	waitClients(t, hub, 1)

	require.NoError(t, c.Close())
	waitClients(t, hub, 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.WSClients))
	assert.Equal(t, 0, hub.Broadcast(domain.StatusEvent{EventType: domain.EventKitchenReady, SourceID: "table:1"}))
}

func TestRunSettlesDeliveries(t *testing.T) {
	m := metrics.New("notify-test")
	lg := logger.NewWithWriter("notification-subscriber", io.Discard)
	hub := NewHub(m, lg)
	broker := &fakeBroker{deliveries: make(chan amqp.Delivery, 4)}
	ns := NewNotificatorService(broker, hub, m, lg)
	acks := &tagAcks{results: map[uint64]string{}}

	good, err := json.Marshal(domain.StatusEvent{EventType: domain.EventKitchenReceived, SourceID: "parcel-P001", ChangedBy: "chef-1"})
	require.NoError(t, err)
	broker.deliveries <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 1, Body: good}
	broker.deliveries <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 2, Body: []byte("{oops")}
	broker.deliveries <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 3, Body: []byte(`{"event_type":"kitchen.ready"}`)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ns.Run(ctx) }()

	require.Eventually(t, func() bool { return acks.get(3) != "" }, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, "ack", acks.get(1))
	assert.Equal(t, "dead_letter", acks.get(2))
	assert.Equal(t, "dead_letter", acks.get(3))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesIn.WithLabelValues(mq.NotificationsQueue, "ack")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MessagesIn.WithLabelValues(mq.NotificationsQueue, "dead_letter")))
}

func TestRunFailsWhenChannelCloses(t *testing.T) {
	m := metrics.New("notify-test")
	lg := logger.NewWithWriter("notification-subscriber", io.Discard)
	broker := &fakeBroker{deliveries: make(chan amqp.Delivery)}
	ns := NewNotificatorService(broker, NewHub(m, lg), m, lg)

	require.NoError(t, broker.Cancel(""))
	assert.Error(t, ns.Run(context.Background()))
}
