package handler

import (
	"net/http"

	"restaurant-pos/internal/common/httpx"
)

func Router(h *Handler, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/bills", h.ReportsHandler.ListBills)
	mux.HandleFunc("GET /api/bills/export.csv", h.ReportsHandler.ExportCSV)
	mux.HandleFunc("GET /api/reports/summary", h.ReportsHandler.Summary)
	mux.HandleFunc("GET /api/workers/status", h.ReportsHandler.Workers)
	mux.Handle("GET /metrics", metrics)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		httpx.OK(w, map[string]string{"status": "ok"})
	})
	return mux
}
