package handlers

import (
	"net/http"

	"restaurant-pos/internal/common/httpx"
)

func Router(h *Handler, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/menu", h.MenuHandler.List)
	mux.HandleFunc("POST /api/menu", h.MenuHandler.Create)
	mux.HandleFunc("PUT /api/menu/{id}", h.MenuHandler.Update)
	mux.HandleFunc("DELETE /api/menu/{id}", h.MenuHandler.Delete)
	mux.HandleFunc("GET /api/menu/categories", h.MenuHandler.Categories)
	mux.HandleFunc("PATCH /api/menu/{id}/availability", h.MenuHandler.SetAvailability)
	mux.HandleFunc("POST /api/menu/import", h.MenuHandler.Import)
	mux.HandleFunc("POST /api/menu/refresh", h.MenuHandler.Refresh)

	mux.HandleFunc("GET /api/tables", h.OrderHandler.Tables)
	mux.HandleFunc("GET /api/tables/layout", h.TableHandler.Layout)
	mux.HandleFunc("POST /api/tables", h.TableHandler.Add)
	mux.HandleFunc("PUT /api/tables/{name}", h.TableHandler.Rename)
	mux.HandleFunc("DELETE /api/tables/{name}", h.TableHandler.Delete)
	mux.HandleFunc("POST /api/parcels", h.OrderHandler.NewParcel)

	mux.HandleFunc("GET /api/carts/{kind}/{ref}", h.OrderHandler.GetCart)
	mux.HandleFunc("DELETE /api/carts/{kind}/{ref}", h.OrderHandler.Discard)
	mux.HandleFunc("POST /api/carts/{kind}/{ref}/items", h.OrderHandler.AddItem)
	mux.HandleFunc("POST /api/carts/{kind}/{ref}/orders", h.OrderHandler.AddOrder)
	mux.HandleFunc("POST /api/carts/{kind}/{ref}/items/{itemId}/decrement", h.OrderHandler.DecrementItem)
	mux.HandleFunc("PUT /api/carts/{kind}/{ref}/items/{itemId}/note", h.OrderHandler.SetNote)
	mux.HandleFunc("DELETE /api/carts/{kind}/{ref}/items/{itemId}", h.OrderHandler.RemoveItem)
	mux.HandleFunc("POST /api/carts/{kind}/{ref}/submit", h.OrderHandler.Submit)
	mux.HandleFunc("POST /api/carts/{kind}/{ref}/bill", h.OrderHandler.Bill)

	mux.Handle("GET /metrics", metrics)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		httpx.OK(w, map[string]string{"status": "ok"})
	})
	return mux
}
