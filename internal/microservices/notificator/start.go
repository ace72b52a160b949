package notificator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"restaurant-pos/internal/common/httpx"
	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/common/metrics"
	"restaurant-pos/internal/common/mq"
	"restaurant-pos/internal/microservices/notificator/handlers"
	"restaurant-pos/internal/microservices/notificator/service"
)

// Start logs every status event from the notifications queue and streams it
// to websocket clients on port. port 0 only logs.
func Start(ctx context.Context, port int, rmq *mq.Client, lg *logger.Logger) error {
	m := metrics.New("notification-subscriber")
	hub := service.NewHub(m, lg)
	ns := service.NewNotificatorService(rmq, hub, m, lg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ns.Run(gctx) })
	if port > 0 {
		mux := handlers.Router(service.New(ns, hub), m.Handler())
		srv := httpx.New(fmt.Sprintf(":%d", port), httpx.RequestLog(lg, mux))
		lg.Info("notifications_listening", map[string]any{"port": port})
		g.Go(func() error { return srv.Run(gctx) })
	}
	return g.Wait()
}
