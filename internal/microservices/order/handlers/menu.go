package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/common/httpx"
	"restaurant-pos/internal/core/catalog"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/order/service"
)

const maxMenuUpload = 1 << 20

type MenuHandler struct {
	service service.MenuServiceInterface
}

func NewMenuHandler(s service.MenuServiceInterface) *MenuHandler {
	return &MenuHandler{service: s}
}

type availabilityRequest struct {
	IsAvailable *bool `json:"isAvailable"`
}

type menuItemRequest struct {
	Name        string           `json:"name"`
	Category    string           `json:"category"`
	Price       *decimal.Decimal `json:"price"`
	IsAvailable *bool            `json:"isAvailable"`
}

func decodeMenuItem(w http.ResponseWriter, r *http.Request) (service.MenuItemInput, error) {
	var req menuItemRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		return service.MenuItemInput{}, err
	}
	if req.Price == nil {
		return service.MenuItemInput{}, fmt.Errorf("price is required: %w", domain.ErrInvalidInput)
	}
	return service.MenuItemInput{
		Name:        req.Name,
		Category:    req.Category,
		Price:       *req.Price,
		IsAvailable: req.IsAvailable,
	}, nil
}

// List supports ?category=, ?search= and ?available=true.
func (mh *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	only, _ := strconv.ParseBool(q.Get("available"))
	httpx.OK(w, mh.service.List(catalog.Filter{
		Category:      q.Get("category"),
		Search:        q.Get("search"),
		OnlyAvailable: only,
	}))
}

func (mh *MenuHandler) Categories(w http.ResponseWriter, r *http.Request) {
	httpx.OK(w, mh.service.Categories())
}

func (mh *MenuHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	var req availabilityRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	if req.IsAvailable == nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "invalid_input", "isAvailable is required")
		return
	}
	it, err := mh.service.SetAvailability(r.Context(), id, *req.IsAvailable)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.OK(w, it)
}

func (mh *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := decodeMenuItem(w, r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	it, err := mh.service.Create(r.Context(), in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.Created(w, it)
}

func (mh *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	in, err := decodeMenuItem(w, r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	it, err := mh.service.Update(r.Context(), id, in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.OK(w, it)
}

func (mh *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := mh.service.Delete(r.Context(), id); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.OK(w, map[string]int{"deleted": id})
}

func (mh *MenuHandler) Import(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxMenuUpload))
	if err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	n, err := mh.service.Import(r.Context(), body)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.OK(w, map[string]int{"items": n})
}

func (mh *MenuHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	n, err := mh.service.Refresh(r.Context())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.OK(w, map[string]int{"items": n})
}
