package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"restaurant-pos/internal/common/httpx"
	"restaurant-pos/internal/microservices/reports/service"
)

type ReportsHandler struct {
	service service.ReportsServiceInterface
}

func NewReportsHandler(svc service.ReportsServiceInterface) *ReportsHandler {
	return &ReportsHandler{service: svc}
}

// ListBills supports ?days= (default 30, 0 for all) and ?limit=.
func (h *ReportsHandler) ListBills(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bills, err := h.service.Bills(r.Context(), httpx.AtoiDefault(q.Get("days"), 30), httpx.AtoiDefault(q.Get("limit"), 0))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.OK(w, bills)
}

// ExportCSV is rendered into memory first so a storage error still produces
// a proper error response.
func (h *ReportsHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.service.ExportCSV(r.Context(), &buf, httpx.AtoiDefault(r.URL.Query().Get("days"), 0)); err != nil {
		httpx.WriteError(w, err)
		return
	}
	name := fmt.Sprintf("bills_%s.csv", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *ReportsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Summary(r.Context())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.OK(w, s)
}

func (h *ReportsHandler) Workers(w http.ResponseWriter, r *http.Request) {
	ws, err := h.service.Workers(r.Context())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.OK(w, ws)
}
