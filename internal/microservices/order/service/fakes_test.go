package service

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/common/metrics"
	"restaurant-pos/internal/core/billing"
	"restaurant-pos/internal/core/cart"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/order/repository"
)

type memCarts struct {
	mu        sync.Mutex
	carts     map[string]cart.Snapshot
	parcel    int
	deleteErr error
}

func newMemCarts() *memCarts { return &memCarts{carts: map[string]cart.Snapshot{}} }

func (m *memCarts) Load(_ context.Context, id string) (cart.Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.carts[id]
	return s, ok, nil
}

func (m *memCarts) Save(_ context.Context, s cart.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[s.Source.ID()] = s
	return nil
}

func (m *memCarts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.carts, id)
	return nil
}

func (m *memCarts) List(_ context.Context) ([]cart.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]cart.Snapshot, 0, len(m.carts))
	for _, s := range m.carts {
		out = append(out, s)
	}
	return out, nil
}

func (m *memCarts) NextParcelToken(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parcel++
	return strconv.Itoa(m.parcel), nil
}

type memMenu struct {
	mu    sync.Mutex
	items []domain.MenuItem
	lists int
}

func (m *memMenu) List(context.Context) ([]domain.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	out := make([]domain.MenuItem, len(m.items))
	copy(out, m.items)
	return out, nil
}

func (m *memMenu) Upsert(_ context.Context, items []domain.MenuItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append([]domain.MenuItem(nil), items...)
	return nil
}

func (m *memMenu) SetAvailability(_ context.Context, id int, available bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].IsAvailable = available
			return nil
		}
	}
	return domain.ErrItemNotFound
}

func (m *memMenu) Create(_ context.Context, it domain.MenuItem) (domain.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cur := range m.items {
		if cur.ID >= it.ID {
			it.ID = cur.ID
		}
	}
	it.ID++
	m.items = append(m.items, it)
	return it, nil
}

func (m *memMenu) Update(_ context.Context, it domain.MenuItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == it.ID {
			m.items[i] = it
			return nil
		}
	}
	return domain.ErrItemNotFound
}

func (m *memMenu) Delete(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return domain.ErrItemNotFound
}

func (m *memMenu) setPrice(id int, price string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].UnitPrice = decimal.RequireFromString(price)
		}
	}
}

type memTables struct {
	mu    sync.Mutex
	names []string
}

func (m *memTables) List(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.names...), nil
}

func (m *memTables) index(name string) int {
	for i, n := range m.names {
		if n == name {
			return i
		}
	}
	return -1
}

func (m *memTables) Add(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index(name) >= 0 {
		return domain.ErrInvalidInput
	}
	m.names = append(m.names, name)
	return nil
}

func (m *memTables) Rename(_ context.Context, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index(to) >= 0 {
		return domain.ErrInvalidInput
	}
	i := m.index(from)
	if i < 0 {
		return domain.ErrItemNotFound
	}
	m.names[i] = to
	return nil
}

func (m *memTables) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(name)
	if i < 0 {
		return domain.ErrItemNotFound
	}
	m.names = append(m.names[:i], m.names[i+1:]...)
	return nil
}

func (m *memTables) Seed(_ context.Context, names []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.names) > 0 {
		return 0, nil
	}
	m.names = append(m.names, names...)
	return len(names), nil
}

type memBills struct {
	mu    sync.Mutex
	bills []billing.Bill
	err   error
}

func (m *memBills) Insert(_ context.Context, b billing.Bill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.bills = append(m.bills, b)
	return nil
}

func (m *memBills) List(context.Context, time.Time, int) ([]billing.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]billing.Bill(nil), m.bills...), nil
}

func (m *memBills) CountOn(context.Context, time.Time) (int, error) { return 0, nil }

type published struct {
	Exchange string
	Key      string
	Body     []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []published
	fail error
}

func (p *fakePublisher) Publish(_ context.Context, exchange, key, _ string, body []byte, _ amqp.Table) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil && exchange != "notifications_fanout" {
		return p.fail
	}
	p.sent = append(p.sent, published{Exchange: exchange, Key: key, Body: body})
	return nil
}

func (p *fakePublisher) on(exchange string) []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []published
	for _, s := range p.sent {
		if s.Exchange == exchange {
			out = append(out, s)
		}
	}
	return out
}

var errBrokerDown = errors.New("broker down")

func testMenu() []domain.MenuItem {
	return []domain.MenuItem{
		{ID: 1, Name: "Biryani", Category: "Main", UnitPrice: decimal.RequireFromString("150"), IsAvailable: true},
		{ID: 2, Name: "Tea", Category: "Drinks", UnitPrice: decimal.RequireFromString("90"), IsAvailable: true},
		{ID: 3, Name: "Kulfi", Category: "Dessert", UnitPrice: decimal.RequireFromString("60"), IsAvailable: false},
	}
}

type fixture struct {
	svc    *OrderService
	holder *CatalogHolder
	carts  *memCarts
	menu   *memMenu
	tables *memTables
	bills  *memBills
	pub    *fakePublisher
	m      *metrics.Registry
}

func newFixture(requireReady bool) *fixture {
	f := &fixture{
		carts:  newMemCarts(),
		menu:   &memMenu{items: testMenu()},
		tables: &memTables{names: []string{"1", "2"}},
		bills:  &memBills{},
		pub:    &fakePublisher{},
		m:      metrics.New("order-service-test"),
	}
	repo := &repository.Repository{MenuRepo: f.menu, BillRepo: f.bills, TableRepo: f.tables, CartStore: f.carts}
	f.holder = NewCatalogHolder(f.menu, f.m)
	if _, err := f.holder.Refresh(context.Background()); err != nil {
		panic(err)
	}
	f.svc = NewOrderService(Config{
		TaxRate:      decimal.RequireFromString("0.05"),
		RequireReady: requireReady,
	}, repo, f.holder, &billing.DailySequence{}, f.pub, f.m, logger.NewWithWriter("order-service", io.Discard))
	return f
}
