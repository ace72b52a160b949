package order

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"restaurant-pos/internal/common/config"
	"restaurant-pos/internal/common/httpx"
	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/common/metrics"
	"restaurant-pos/internal/common/mq"
	"restaurant-pos/internal/core/billing"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/order/handlers"
	"restaurant-pos/internal/microservices/order/repository"
	"restaurant-pos/internal/microservices/order/service"
	pg "restaurant-pos/internal/repository"
)

const readyConsumer = "order-service-ready"

type Options struct {
	Port           int
	MaxConcurrency int
	POS            config.POS
	CartTTL        time.Duration
}

// Run serves the order API and applies kitchen ready events until ctx ends.
func Run(ctx context.Context, opt Options, db pg.DBTX, rdb redis.Cmdable, rmq *mq.Client, lg *logger.Logger) error {
	m := metrics.New("order-service")
	repo := repository.New(db, rdb, opt.CartTTL)

	holder := service.NewCatalogHolder(repo.MenuRepo, m)
	if _, err := holder.Refresh(ctx); err != nil {
		return fmt.Errorf("initial menu load: %w", err)
	}

	seed := make([]string, 0, len(opt.POS.Tables))
	for _, name := range opt.POS.Tables {
		n, err := domain.NormalizeTableName(name)
		if err != nil {
			return fmt.Errorf("configured tables: %w", err)
		}
		seed = append(seed, n)
	}
	seeded, err := repo.TableRepo.Seed(ctx, seed)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	issued, err := repo.BillRepo.CountOn(ctx, now)
	if err != nil {
		return fmt.Errorf("seed bill sequence: %w", err)
	}
	seq := &billing.DailySequence{}
	seq.Seed(now, issued)

	orders := service.NewOrderService(service.Config{
		TaxRate:      opt.POS.Rate(),
		RequireReady: opt.POS.RequireReady,
	}, repo, holder, seq, rmq, m, lg)
	svc := service.New(orders,
		service.NewMenuService(holder, orders),
		service.NewTableService(repo.TableRepo, orders.Carts(), lg))

	queue, err := rmq.DeclareFanoutQueue("")
	if err != nil {
		return fmt.Errorf("declare ready queue: %w", err)
	}
	deliveries, err := rmq.Consume(queue, readyConsumer, 10)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue, err)
	}
	listener := service.NewReadyListener(orders, queue, m, lg)

	mux := handlers.Router(handlers.New(svc), m.Handler())
	srv := httpx.New(fmt.Sprintf(":%d", opt.Port), httpx.RequestLog(lg, httpx.Limit(opt.MaxConcurrency, mux)))

	lg.Info("order_service_listening", map[string]any{
		"port":           opt.Port,
		"menu_items":     holder.Current().Len(),
		"bills_today":    issued,
		"tables_seeded":  seeded,
		"max_concurrent": opt.MaxConcurrency,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error {
		defer func() { _ = rmq.Cancel(readyConsumer) }()
		return listener.Run(gctx, deliveries)
	})
	return g.Wait()
}
