package service

type Service struct {
	NotificatorService NotificatorServiceInterface
	Hub                *Hub
}

func New(ns NotificatorServiceInterface, hub *Hub) *Service {
	return &Service{NotificatorService: ns, Hub: hub}
}
