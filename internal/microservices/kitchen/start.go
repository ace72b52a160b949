package kitchen

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"restaurant-pos/internal/common/httpx"
	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/common/metrics"
	"restaurant-pos/internal/common/mq"
	"restaurant-pos/internal/microservices/kitchen/handlers"
	"restaurant-pos/internal/microservices/kitchen/repository"
	"restaurant-pos/internal/microservices/kitchen/service"
	pg "restaurant-pos/internal/repository"
)

// Run consumes submitted rounds and serves the kitchen board on port until
// ctx ends. port 0 runs the consumer alone.
func Run(ctx context.Context, cfg service.Config, port int, db pg.DBTX, rmq *mq.Client, lg *logger.Logger) error {
	m := metrics.New("kitchen-worker")
	repo := repository.New(db)
	ks := service.NewKitchenService(repo.KitchenRepo, rmq, cfg, m, lg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ks.Run(gctx) })
	if port > 0 {
		mux := handlers.Router(handlers.New(service.New(ks)), m.Handler())
		srv := httpx.New(fmt.Sprintf(":%d", port), httpx.RequestLog(lg, mux))
		lg.Info("kitchen_board_listening", map[string]any{"port": port})
		g.Go(func() error { return srv.Run(gctx) })
	}
	return g.Wait()
}
