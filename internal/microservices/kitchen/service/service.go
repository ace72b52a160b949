package service

type Service struct {
	KitchenService KitchenServiceInterface
}

func New(ks KitchenServiceInterface) *Service {
	return &Service{KitchenService: ks}
}
