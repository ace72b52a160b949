package handlers

import (
	"encoding/json"
	"net/http"

	"restaurant-pos/internal/adapters/schema"
	"restaurant-pos/internal/common/httpx"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/order/service"
)

type OrderHandler struct {
	service service.OrderServiceInterface
}

func NewOrderHandler(s service.OrderServiceInterface) *OrderHandler {
	return &OrderHandler{service: s}
}

type addItemRequest struct {
	ItemID   int    `json:"itemId"`
	Quantity int    `json:"quantity"`
	Note     string `json:"note"`
}

type noteRequest struct {
	Note string `json:"note"`
}

type legacyOrderRequest struct {
	Items json.RawMessage `json:"items"`
}

func source(r *http.Request) domain.Source {
	return domain.Source{Kind: domain.SourceKind(r.PathValue("kind")), Ref: r.PathValue("ref")}
}

func (oh *OrderHandler) Tables(w http.ResponseWriter, r *http.Request) {
	views, err := oh.service.Open(r.Context())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.OK(w, views)
}

func (oh *OrderHandler) NewParcel(w http.ResponseWriter, r *http.Request) {
	v, err := oh.service.NewParcel(r.Context())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.Created(w, v)
}

func (oh *OrderHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	v, err := oh.service.Cart(r.Context(), source(r))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.OK(w, v)
}

func (oh *OrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	v, err := oh.service.AddItem(r.Context(), source(r), req.ItemID, req.Quantity, req.Note)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.OK(w, v)
}

// AddOrder takes a whole order in the legacy item layouts: one object per
// unit, or objects carrying a quantity.
func (oh *OrderHandler) AddOrder(w http.ResponseWriter, r *http.Request) {
	var req legacyOrderRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	lines, err := schema.DecodeLineItems(req.Items)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	v, err := oh.service.AddLines(r.Context(), source(r), lines)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.OK(w, v)
}

func (oh *OrderHandler) DecrementItem(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt(r, "itemId")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	v, err := oh.service.DecrementItem(r.Context(), source(r), id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.OK(w, v)
}

func (oh *OrderHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt(r, "itemId")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	v, err := oh.service.RemoveItem(r.Context(), source(r), id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.OK(w, v)
}

func (oh *OrderHandler) SetNote(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt(r, "itemId")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	var req noteRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	v, err := oh.service.SetNote(r.Context(), source(r), id, req.Note)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.OK(w, v)
}

func (oh *OrderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	v, err := oh.service.Submit(r.Context(), source(r))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.OK(w, v)
}

func (oh *OrderHandler) Bill(w http.ResponseWriter, r *http.Request) {
	b, err := oh.service.Bill(r.Context(), source(r))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.Created(w, b)
}

func (oh *OrderHandler) Discard(w http.ResponseWriter, r *http.Request) {
	if err := oh.service.Discard(r.Context(), source(r)); err != nil {
		httpx.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
