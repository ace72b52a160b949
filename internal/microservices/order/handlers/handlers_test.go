package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/core/billing"
	"restaurant-pos/internal/core/catalog"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/order/service"
)

type stubOrders struct {
	service.OrderServiceInterface
	lastSource domain.Source
	lastItem   int
	lastQty    int
	lastLines  []domain.LineItem
	err        error
}

func (s *stubOrders) view(src domain.Source) (service.CartView, error) {
	s.lastSource = src
	if s.err != nil {
		return service.CartView{}, s.err
	}
	return service.CartView{SourceID: src.ID(), SourceLabel: src.Label(), State: domain.StateOrdering}, nil
}

func (s *stubOrders) Cart(_ context.Context, src domain.Source) (service.CartView, error) {
	return s.view(src)
}

func (s *stubOrders) AddItem(_ context.Context, src domain.Source, id, qty int, _ string) (service.CartView, error) {
	s.lastItem, s.lastQty = id, qty
	return s.view(src)
}

func (s *stubOrders) AddLines(_ context.Context, src domain.Source, lines []domain.LineItem) (service.CartView, error) {
	s.lastLines = lines
	return s.view(src)
}

func (s *stubOrders) DecrementItem(_ context.Context, src domain.Source, id int) (service.CartView, error) {
	s.lastItem = id
	return s.view(src)
}

func (s *stubOrders) Bill(_ context.Context, src domain.Source) (billing.Bill, error) {
	s.lastSource = src
	if s.err != nil {
		return billing.Bill{}, s.err
	}
	return billing.Bill{BillID: "ORD_20250101_001", SourceID: src.ID(), GrandTotal: decimal.RequireFromString("409.50")}, nil
}

func (s *stubOrders) Discard(_ context.Context, src domain.Source) error {
	s.lastSource = src
	return s.err
}

type stubMenu struct {
	service.MenuServiceInterface
	filter catalog.Filter
	input  service.MenuItemInput
	id     int
	err    error
}

func (m *stubMenu) List(f catalog.Filter) []domain.MenuItem {
	m.filter = f
	return []domain.MenuItem{{ID: 1, Name: "Tea", UnitPrice: decimal.RequireFromString("90"), IsAvailable: true}}
}

func (m *stubMenu) Create(_ context.Context, in service.MenuItemInput) (domain.MenuItem, error) {
	m.input = in
	if m.err != nil {
		return domain.MenuItem{}, m.err
	}
	return domain.MenuItem{ID: 12, Name: in.Name, Category: in.Category, UnitPrice: in.Price, IsAvailable: true}, nil
}

func (m *stubMenu) Update(_ context.Context, id int, in service.MenuItemInput) (domain.MenuItem, error) {
	m.id, m.input = id, in
	return domain.MenuItem{ID: id, Name: in.Name, Category: in.Category, UnitPrice: in.Price}, m.err
}

func (m *stubMenu) Delete(_ context.Context, id int) error {
	m.id = id
	return m.err
}

type stubTables struct {
	service.TableServiceInterface
	from, name string
	err        error
}

func (s *stubTables) Add(_ context.Context, name string) (string, error) {
	s.name = name
	return strings.ToUpper(strings.TrimSpace(name)), s.err
}

func (s *stubTables) Rename(_ context.Context, from, to string) (string, error) {
	s.from, s.name = from, to
	return strings.ToUpper(to), s.err
}

func (s *stubTables) Delete(_ context.Context, name string) error {
	s.name = name
	return s.err
}

func (s *stubTables) List(context.Context) ([]string, error) { return nil, s.err }

func newTestRouter(o *stubOrders, m *stubMenu) http.Handler {
	return newTestRouterWithTables(o, m, &stubTables{})
}

func newTestRouterWithTables(o *stubOrders, m *stubMenu, tb *stubTables) http.Handler {
	h := New(service.New(o, m, tb))
	return Router(h, http.NotFoundHandler())
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Type   string `json:"type"`
		Status int    `json:"status"`
	} `json:"error"`
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestMenuListFilter(t *testing.T) {
	m := &stubMenu{}
	h := newTestRouter(&stubOrders{}, m)

	rec, env := do(t, h, http.MethodGet, "/api/menu?category=Drinks&search=te&available=true", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, catalog.Filter{Category: "Drinks", Search: "te", OnlyAvailable: true}, m.filter)
}

func TestAddItemDefaultsToOneUnit(t *testing.T) {
	o := &stubOrders{}
	h := newTestRouter(o, &stubMenu{})

	rec, env := do(t, h, http.MethodPost, "/api/carts/table/4/items", `{"itemId": 2}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, domain.TableSource("4"), o.lastSource)
	assert.Equal(t, 2, o.lastItem)
	assert.Equal(t, 1, o.lastQty)
}

func TestAddLegacyOrder(t *testing.T) {
	o := &stubOrders{}
	h := newTestRouter(o, &stubMenu{})

	rec, _ := do(t, h, http.MethodPost, "/api/carts/parcel/3/orders", `{"items": [{"id": 1}, {"id": 1}, {"id": 2}]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []domain.LineItem{{ItemID: 1, Quantity: 2}, {ItemID: 2, Quantity: 1}}, o.lastLines)
	assert.Equal(t, domain.ParcelSource("3"), o.lastSource)
}

func TestErrorStatuses(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		typ  string
	}{
		{"not found", domain.ErrItemNotFound, http.StatusNotFound, "item_not_found"},
		{"state", domain.ErrInvalidState, http.StatusConflict, "invalid_state"},
		{"empty", domain.ErrEmptyCart, http.StatusUnprocessableEntity, "empty_cart"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestRouter(&stubOrders{err: tc.err}, &stubMenu{})
			rec, env := do(t, h, http.MethodPost, "/api/carts/table/1/bill", "")
			assert.Equal(t, tc.code, rec.Code)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.typ, env.Error.Type)
		})
	}
}

func TestBadBodyAndPath(t *testing.T) {
	h := newTestRouter(&stubOrders{}, &stubMenu{})

	rec, _ := do(t, h, http.MethodPost, "/api/carts/table/1/items", `{"itemId":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/api/carts/table/1/items/abc/decrement", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBillCreated(t *testing.T) {
	h := newTestRouter(&stubOrders{}, &stubMenu{})
	rec, env := do(t, h, http.MethodPost, "/api/carts/table/4/bill", "")
	assert.Equal(t, http.StatusCreated, rec.Code)

	var b billing.Bill
	require.NoError(t, json.Unmarshal(env.Data, &b))
	assert.Equal(t, "ORD_20250101_001", b.BillID)
	assert.Equal(t, "409.5", b.GrandTotal.String())
}

func TestDiscardNoContent(t *testing.T) {
	o := &stubOrders{}
	h := newTestRouter(o, &stubMenu{})
	rec, _ := do(t, h, http.MethodDelete, "/api/carts/parcel/9", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, domain.ParcelSource("9"), o.lastSource)
}

func TestMenuItemCrud(t *testing.T) {
	m := &stubMenu{}
	h := newTestRouter(&stubOrders{}, m)

	rec, env := do(t, h, http.MethodPost, "/api/menu", `{"name": "Dosa", "category": "Main", "price": 80.5}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	var it domain.MenuItem
	require.NoError(t, json.Unmarshal(env.Data, &it))
	assert.Equal(t, 12, it.ID)
	assert.Equal(t, "80.5", m.input.Price.String())
	assert.Nil(t, m.input.IsAvailable)

	rec, _ = do(t, h, http.MethodPost, "/api/menu", `{"name": "Dosa", "category": "Main"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "price is required")

	rec, _ = do(t, h, http.MethodPut, "/api/menu/7", `{"name": "Tea", "category": "Drinks", "price": "15"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, m.id)
	assert.Equal(t, "Tea", m.input.Name)

	rec, env = do(t, h, http.MethodDelete, "/api/menu/7", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted": 7}`, string(env.Data))

	m.err = domain.ErrInvalidState
	rec, env = do(t, h, http.MethodDelete, "/api/menu/7", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "invalid_state", env.Error.Type)
}

func TestTableLayoutEdits(t *testing.T) {
	tb := &stubTables{}
	h := newTestRouterWithTables(&stubOrders{}, &stubMenu{}, tb)

	rec, env := do(t, h, http.MethodPost, "/api/tables", `{"name": " t9 "}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"name": "T9"}`, string(env.Data))

	rec, _ = do(t, h, http.MethodPut, "/api/tables/T9", `{"name": "patio"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "T9", tb.from)
	assert.Equal(t, "patio", tb.name)

	rec, _ = do(t, h, http.MethodDelete, "/api/tables/PATIO", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "PATIO", tb.name)

	rec, env = do(t, h, http.MethodGet, "/api/tables/layout", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(env.Data))

	tb.err = domain.ErrInvalidInput
	rec, _ = do(t, h, http.MethodPost, "/api/tables", `{"name": "T9"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
