package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/common/metrics"
	"restaurant-pos/internal/common/mq"
	"restaurant-pos/internal/core/billing"
	"restaurant-pos/internal/core/cart"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/order/repository"
)

const publishTimeout = 5 * time.Second

// Publisher is the part of mq.Client the order service needs.
type Publisher interface {
	Publish(ctx context.Context, exchange, key, correlationID string, body []byte, headers amqp.Table) error
}

type Config struct {
	TaxRate      decimal.Decimal
	RequireReady bool
}

type OrderServiceInterface interface {
	Cart(ctx context.Context, src domain.Source) (CartView, error)
	Open(ctx context.Context) ([]CartView, error)
	NewParcel(ctx context.Context) (CartView, error)
	AddItem(ctx context.Context, src domain.Source, itemID, quantity int, note string) (CartView, error)
	AddLines(ctx context.Context, src domain.Source, lines []domain.LineItem) (CartView, error)
	DecrementItem(ctx context.Context, src domain.Source, itemID int) (CartView, error)
	RemoveItem(ctx context.Context, src domain.Source, itemID int) (CartView, error)
	SetNote(ctx context.Context, src domain.Source, itemID int, note string) (CartView, error)
	Submit(ctx context.Context, src domain.Source) (CartView, error)
	Bill(ctx context.Context, src domain.Source) (billing.Bill, error)
	Discard(ctx context.Context, src domain.Source) error
	MarkReady(ctx context.Context, sourceID string, round int) error
}

type OrderService struct {
	cfg       Config
	carts     *Registry
	store     repository.CartStoreInterface
	tables    tableLister
	bills     billRepo
	menu      *CatalogHolder
	assembler *billing.Assembler
	pub       Publisher
	metrics   *metrics.Registry
	log       *logger.Logger
}

type billRepo interface {
	Insert(ctx context.Context, b billing.Bill) error
}

type tableLister interface {
	List(ctx context.Context) ([]string, error)
}

func NewOrderService(cfg Config, repo *repository.Repository, menu *CatalogHolder, ids billing.IDGenerator,
	pub Publisher, m *metrics.Registry, lg *logger.Logger) *OrderService {
	asm := billing.NewAssembler(menu, ids)
	asm.RequireReady = cfg.RequireReady
	return &OrderService{
		cfg:       cfg,
		carts:     NewRegistry(repo.CartStore),
		store:     repo.CartStore,
		tables:    repo.TableRepo,
		bills:     repo.BillRepo,
		menu:      menu,
		assembler: asm,
		pub:       pub,
		metrics:   m,
		log:       lg,
	}
}

// Carts exposes the per-source registry so other services editing what a cart
// refers to share its locks.
func (s *OrderService) Carts() *Registry { return s.carts }

func (s *OrderService) view(c *cart.Cart) (CartView, error) {
	return buildView(c, s.menu, s.cfg.TaxRate)
}

// mutate applies op to the source's cart and records the outcome.
func (s *OrderService) mutate(ctx context.Context, op string, src domain.Source, fn func(c *cart.Cart) error) (CartView, error) {
	if err := src.Validate(); err != nil {
		return CartView{}, err
	}
	c, err := s.carts.With(ctx, src, fn)
	if err != nil {
		s.metrics.CartRejections.WithLabelValues(errorKind(err)).Inc()
		return CartView{}, err
	}
	s.metrics.CartOperations.WithLabelValues(op).Inc()
	return s.view(c)
}

func (s *OrderService) Cart(ctx context.Context, src domain.Source) (CartView, error) {
	if err := src.Validate(); err != nil {
		return CartView{}, err
	}
	c, err := s.carts.Get(ctx, src)
	if err != nil {
		return CartView{}, err
	}
	return s.view(c)
}

// Open lists every table of the layout, occupied or not, followed by the
// other sources that still have a cart.
func (s *OrderService) Open(ctx context.Context) ([]CartView, error) {
	tables, err := s.tables.List(ctx)
	if err != nil {
		return nil, err
	}
	stored, err := s.carts.List(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*cart.Cart, len(stored))
	for _, c := range stored {
		byID[c.Source().ID()] = c
	}

	out := make([]CartView, 0, len(tables)+len(stored))
	for _, name := range tables {
		src := domain.TableSource(name)
		c, ok := byID[src.ID()]
		if !ok {
			c = cart.New(src)
		}
		delete(byID, src.ID())
		v, err := s.view(c)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	for _, c := range stored {
		if _, left := byID[c.Source().ID()]; !left {
			continue
		}
		v, err := s.view(c)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// NewParcel opens an empty cart under the next parcel token.
func (s *OrderService) NewParcel(ctx context.Context) (CartView, error) {
	tok, err := s.store.NextParcelToken(ctx)
	if err != nil {
		return CartView{}, err
	}
	c, err := s.carts.Create(ctx, domain.ParcelSource(tok))
	if err != nil {
		return CartView{}, err
	}
	s.metrics.CartOperations.WithLabelValues("open_parcel").Inc()
	return s.view(c)
}

func checkQuantity(itemID, quantity int) error {
	if quantity < 1 || quantity > domain.MaxUnitsPerLine {
		return fmt.Errorf("item %d quantity %d outside 1..%d: %w", itemID, quantity, domain.MaxUnitsPerLine, domain.ErrInvalidInput)
	}
	return nil
}

func (s *OrderService) AddItem(ctx context.Context, src domain.Source, itemID, quantity int, note string) (CartView, error) {
	if err := checkQuantity(itemID, quantity); err != nil {
		return CartView{}, err
	}
	return s.mutate(ctx, "add", src, func(c *cart.Cart) error {
		for i := 0; i < quantity; i++ {
			if err := c.AddItem(s.menu, itemID); err != nil {
				return err
			}
		}
		if note != "" {
			return c.SetNote(itemID, note)
		}
		return nil
	})
}

// AddLines adds a whole order, e.g. one decoded from a legacy payload. Either
// every line is added or none is.
func (s *OrderService) AddLines(ctx context.Context, src domain.Source, lines []domain.LineItem) (CartView, error) {
	if len(lines) == 0 {
		return CartView{}, fmt.Errorf("no lines: %w", domain.ErrEmptyCart)
	}
	for _, l := range lines {
		if err := checkQuantity(l.ItemID, l.Quantity); err != nil {
			return CartView{}, err
		}
	}
	return s.mutate(ctx, "add", src, func(c *cart.Cart) error {
		for _, l := range lines {
			for i := 0; i < l.Quantity; i++ {
				if err := c.AddItem(s.menu, l.ItemID); err != nil {
					return err
				}
			}
			if l.Note != "" {
				if err := c.SetNote(l.ItemID, l.Note); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *OrderService) DecrementItem(ctx context.Context, src domain.Source, itemID int) (CartView, error) {
	return s.mutate(ctx, "decrement", src, func(c *cart.Cart) error { return c.DecrementItem(itemID) })
}

func (s *OrderService) RemoveItem(ctx context.Context, src domain.Source, itemID int) (CartView, error) {
	return s.mutate(ctx, "remove", src, func(c *cart.Cart) error { return c.RemoveItem(itemID) })
}

func (s *OrderService) SetNote(ctx context.Context, src domain.Source, itemID int, note string) (CartView, error) {
	return s.mutate(ctx, "note", src, func(c *cart.Cart) error { return c.SetNote(itemID, note) })
}

// Submit sends the current round to the kitchen. The cart is only saved once
// the broker confirmed the message, so a failed publish leaves the round
// editable.
func (s *OrderService) Submit(ctx context.Context, src domain.Source) (CartView, error) {
	var round int
	v, err := s.mutate(ctx, "submit", src, func(c *cart.Cart) error {
		lines, err := c.Submit()
		if err != nil {
			return err
		}
		round = c.Rounds()
		msg := domain.KitchenOrderMessage{
			SourceID:    src.ID(),
			SourceLabel: src.Label(),
			Round:       round,
			CreatedAt:   time.Now().UTC(),
		}
		for _, l := range lines {
			it, err := s.menu.Lookup(l.ItemID)
			if err != nil {
				return err
			}
			msg.Items = append(msg.Items, domain.KitchenOrderItem{
				ItemID: l.ItemID, Name: it.Name, Quantity: l.Quantity, Note: l.Note,
			})
		}
		body, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal kitchen order: %w", err)
		}
		pctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		key := mq.KitchenRoutingKey(string(src.Kind), src.Ref)
		if err := s.pub.Publish(pctx, mq.OrdersExchange, key, src.ID(), body, amqp.Table{"x-source": "order-service"}); err != nil {
			return fmt.Errorf("publish round %d of %s: %w", round, src.Label(), err)
		}
		return nil
	})
	if err != nil {
		return CartView{}, err
	}
	s.metrics.RoundsSent.Inc()
	s.log.Info("round_submitted", map[string]any{"source_id": src.ID(), "round": round, "units": v.Units})
	s.notify(ctx, domain.StatusEvent{EventType: domain.EventCartSubmitted, SourceID: src.ID(), SourceLabel: src.Label()})
	return v, nil
}

// Bill finalizes the cart, stores the bill and frees the source. The billed
// cart is saved before the bill is stored, so retrying after a partial failure
// cannot bill the same cart twice. The cart is put back as it was when the
// bill cannot be stored.
func (s *OrderService) Bill(ctx context.Context, src domain.Source) (billing.Bill, error) {
	if err := src.Validate(); err != nil {
		return billing.Bill{}, err
	}
	var bill billing.Bill
	err := s.carts.Checkout(ctx, src, func(c *cart.Cart) error {
		b, err := s.assembler.Finalize(c, s.cfg.TaxRate)
		if err != nil {
			return err
		}
		bill = b
		return nil
	}, func(ctx context.Context) error {
		return s.bills.Insert(ctx, bill)
	})
	if errors.Is(err, errCartNotCleared) {
		s.log.Warn("billed_cart_kept", map[string]any{"source_id": src.ID(), "bill_id": bill.BillID, "reason": err.Error()})
		err = nil
	}
	if err != nil {
		s.metrics.CartRejections.WithLabelValues(errorKind(err)).Inc()
		return billing.Bill{}, err
	}

	s.metrics.BillsCreated.Inc()
	s.metrics.BilledRevenue.Add(bill.GrandTotal.InexactFloat64())
	s.metrics.BillUnits.Observe(float64(bill.Units()))
	s.log.Info("bill_created", map[string]any{
		"bill_id":     bill.BillID,
		"source_id":   bill.SourceID,
		"grand_total": bill.GrandTotal.StringFixed(2),
	})
	s.notify(ctx, domain.StatusEvent{
		EventType: domain.EventOrderBilled, SourceID: src.ID(), SourceLabel: src.Label(), BillID: bill.BillID,
	})
	return bill, nil
}

// Discard abandons a cart. Rounds already in the kitchen keep a table busy
// unless the cart was billed already.
func (s *OrderService) Discard(ctx context.Context, src domain.Source) error {
	if err := src.Validate(); err != nil {
		return err
	}
	err := s.carts.Drop(ctx, src, func(c *cart.Cart) error {
		if c.State() != domain.StateBilled && c.InKitchen() > 0 {
			return fmt.Errorf("discard %s with %d rounds in kitchen: %w", src.Label(), c.InKitchen(), domain.ErrInvalidState)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.metrics.CartOperations.WithLabelValues("discard").Inc()
	return nil
}

// MarkReady applies the kitchen's ready signal for one round. A round that is
// not in the kitchen any more fails with ErrInvalidState.
func (s *OrderService) MarkReady(ctx context.Context, sourceID string, round int) error {
	src, err := domain.ParseSourceID(sourceID)
	if err != nil {
		return err
	}
	if round < 1 {
		return fmt.Errorf("ready signal for %s without round: %w", sourceID, domain.ErrInvalidInput)
	}
	_, err = s.mutate(ctx, "ready", src, func(c *cart.Cart) error { return c.MarkReady(round) })
	return err
}

// ItemInUse reports the first unbilled cart holding itemID in any round.
func (s *OrderService) ItemInUse(ctx context.Context, itemID int) (domain.Source, bool, error) {
	carts, err := s.carts.List(ctx)
	if err != nil {
		return domain.Source{}, false, err
	}
	for _, c := range carts {
		if c.State() == domain.StateBilled {
			continue
		}
		for _, l := range c.Lines() {
			if l.ItemID == itemID {
				return c.Source(), true, nil
			}
		}
	}
	return domain.Source{}, false, nil
}

// notify publishes a status event. Failures are logged only: the state change
// it reports has already been stored.
func (s *OrderService) notify(ctx context.Context, ev domain.StatusEvent) {
	ev.ChangedBy = "order-service"
	ev.Timestamp = time.Now().UTC()
	body, err := json.Marshal(ev)
	if err != nil {
		s.log.Error("notify_marshal", err, nil)
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.pub.Publish(pctx, mq.NotificationsExchange, "", ev.SourceID, body, nil); err != nil {
		s.log.Error("notify_failed", err, map[string]any{"event_type": ev.EventType, "source_id": ev.SourceID})
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		return "item_not_found"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, domain.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}
