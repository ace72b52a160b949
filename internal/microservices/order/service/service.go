package service

type Service struct {
	OrderService OrderServiceInterface
	MenuService  MenuServiceInterface
	TableService TableServiceInterface
}

func New(orders OrderServiceInterface, menu MenuServiceInterface, tables TableServiceInterface) *Service {
	return &Service{OrderService: orders, MenuService: menu, TableService: tables}
}
