package handlers

import "restaurant-pos/internal/microservices/order/service"

type Handler struct {
	OrderHandler *OrderHandler
	MenuHandler  *MenuHandler
	TableHandler *TableHandler
}

func New(s *service.Service) *Handler {
	return &Handler{
		OrderHandler: NewOrderHandler(s.OrderService),
		MenuHandler:  NewMenuHandler(s.MenuService),
		TableHandler: NewTableHandler(s.TableService),
	}
}
