package handlers

import (
	"net/http"

	"restaurant-pos/internal/common/httpx"
	"restaurant-pos/internal/microservices/notificator/service"
)

// Router exposes the websocket stream next to the usual metrics and health
// endpoints.
func Router(svc *service.Service, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", svc.Hub.ServeWS)
	mux.HandleFunc("GET /api/notifications/clients", func(w http.ResponseWriter, r *http.Request) {
		httpx.OK(w, map[string]int{"clients": svc.Hub.Clients()})
	})
	mux.Handle("GET /metrics", metrics)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		httpx.OK(w, map[string]string{"status": "ok"})
	})
	return mux
}
