package repository

import pg "restaurant-pos/internal/repository"

type Repository struct {
	KitchenRepo KitchenRepositoryInterface
}

func New(db pg.DBTX) *Repository {
	return &Repository{
		KitchenRepo: NewKitchenRepository(db),
	}
}
