package handler

import "restaurant-pos/internal/microservices/reports/service"

type Handler struct {
	ReportsHandler *ReportsHandler
}

func New(svc service.ReportsServiceInterface) *Handler {
	return &Handler{
		ReportsHandler: NewReportsHandler(svc),
	}
}
