package handlers

import (
	"net/http"

	"restaurant-pos/internal/common/httpx"
	"restaurant-pos/internal/microservices/order/service"
)

type TableHandler struct {
	service service.TableServiceInterface
}

func NewTableHandler(s service.TableServiceInterface) *TableHandler {
	return &TableHandler{service: s}
}

type tableRequest struct {
	Name string `json:"name"`
}

func (th *TableHandler) Layout(w http.ResponseWriter, r *http.Request) {
	names, err := th.service.List(r.Context())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	httpx.OK(w, names)
}

func (th *TableHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req tableRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	name, err := th.service.Add(r.Context(), req.Name)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.Created(w, tableRequest{Name: name})
}

func (th *TableHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req tableRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	name, err := th.service.Rename(r.Context(), r.PathValue("name"), req.Name)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.OK(w, tableRequest{Name: name})
}

func (th *TableHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := th.service.Delete(r.Context(), r.PathValue("name")); err != nil {
		httpx.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
