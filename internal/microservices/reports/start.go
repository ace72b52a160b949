package reports

import (
	"context"
	"fmt"

	"restaurant-pos/internal/common/httpx"
	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/common/metrics"
	"restaurant-pos/internal/microservices/reports/handler"
	"restaurant-pos/internal/microservices/reports/repository"
	"restaurant-pos/internal/microservices/reports/service"
	pg "restaurant-pos/internal/repository"
)

// Start serves the bill history and dashboard endpoints until ctx ends.
func Start(ctx context.Context, port int, db pg.DBTX, lg *logger.Logger) error {
	m := metrics.New("reports-service")
	svc := service.NewReportsService(repository.New(db))
	mux := handler.Router(handler.New(svc), m.Handler())

	srv := httpx.New(fmt.Sprintf(":%d", port), httpx.RequestLog(lg, mux))
	lg.Info("reports_service_listening", map[string]any{"port": port})
	return srv.Run(ctx)
}
