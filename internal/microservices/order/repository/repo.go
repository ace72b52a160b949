package repository

import (
	"time"

	"github.com/redis/go-redis/v9"

	pg "restaurant-pos/internal/repository"
)

type Repository struct {
	MenuRepo  pg.Menu
	BillRepo  pg.Bills
	TableRepo pg.Tables
	CartStore CartStoreInterface
}

func New(db pg.DBTX, rdb redis.Cmdable, cartTTL time.Duration) *Repository {
	return &Repository{
		MenuRepo:  pg.NewMenuPG(db),
		BillRepo:  pg.NewBillsPG(db),
		TableRepo: pg.NewTablesPG(db),
		CartStore: NewCartStore(rdb, cartTTL),
	}
}
