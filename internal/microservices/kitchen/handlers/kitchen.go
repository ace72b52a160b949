package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"restaurant-pos/internal/common/httpx"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/kitchen/service"
)

type Handler struct {
	KitchenHandler *KitchenHandler
}

func New(s *service.Service) *Handler {
	return &Handler{KitchenHandler: NewKitchenHandler(s.KitchenService)}
}

type KitchenHandler struct {
	service service.KitchenServiceInterface
}

func NewKitchenHandler(s service.KitchenServiceInterface) *KitchenHandler {
	return &KitchenHandler{service: s}
}

type rowRequest struct {
	Ready *bool `json:"ready"`
}

func orderID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("orderId"), 10, 64)
	if err != nil {
		return 0, errors.Join(domain.ErrInvalidInput, err)
	}
	return id, nil
}

func (kh *KitchenHandler) Queue(w http.ResponseWriter, r *http.Request) {
	tickets, err := kh.service.Queue(r.Context())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.OK(w, tickets)
}

func (kh *KitchenHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := kh.service.Complete(r.Context(), id); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.OK(w, map[string]any{"orderId": id, "status": "completed"})
}

// MarkRow toggles one unrolled row. Without a body the row is marked ready.
func (kh *KitchenHandler) MarkRow(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	row, err := httpx.PathInt(r, "row")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	ready := true
	if r.ContentLength != 0 {
		var req rowRequest
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}
		if req.Ready != nil {
			ready = *req.Ready
		}
	}
	t, err := kh.service.MarkRow(r.Context(), id, row, ready)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.OK(w, t)
}

func Router(h *Handler, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/kitchen/queue", h.KitchenHandler.Queue)
	mux.HandleFunc("PATCH /api/kitchen/queue/{orderId}", h.KitchenHandler.Complete)
	mux.HandleFunc("PATCH /api/kitchen/queue/{orderId}/rows/{row}", h.KitchenHandler.MarkRow)
	mux.Handle("GET /metrics", metrics)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		httpx.OK(w, map[string]string{"status": "ok"})
	})
	return mux
}
