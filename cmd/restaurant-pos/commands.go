package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"restaurant-pos/internal/adapters/schema"
	"restaurant-pos/internal/core/catalog"
	"restaurant-pos/internal/microservices/kitchen"
	kitchensvc "restaurant-pos/internal/microservices/kitchen/service"
	"restaurant-pos/internal/microservices/notificator"
	"restaurant-pos/internal/microservices/order"
	"restaurant-pos/internal/microservices/reports"
	pg "restaurant-pos/internal/repository"
)

func orderCmd(ctx context.Context, f *rootFlags) *cobra.Command {
	var (
		port    int
		maxConc int
	)
	cmd := &cobra.Command{
		Use:   "order-service",
		Short: "Serve the menu, cart and checkout API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lg, err := f.load("order-service")
			if err != nil {
				return err
			}
			conn, err := connectDB(ctx, cfg, lg)
			if err != nil {
				return err
			}
			defer conn.Close()
			rmq, err := connectMQ(cfg, lg)
			if err != nil {
				return err
			}
			defer rmq.Close()
			rdb, err := connectRedis(ctx, cfg, lg)
			if err != nil {
				return err
			}
			defer rdb.Close()

			if port == 0 {
				port = cfg.Ports.Order
			}
			lg.Info("service_started", map[string]any{"port": port, "max_concurrent": maxConc})
			return order.Run(ctx, order.Options{
				Port:           port,
				MaxConcurrency: maxConc,
				POS:            cfg.POS,
				CartTTL:        cfg.Redis.CartTTL,
			}, conn, rdb, rmq, lg)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (default: ports.order from the config)")
	cmd.Flags().IntVar(&maxConc, "max-concurrent", 50, "maximum concurrent requests")
	return cmd
}

func kitchenCmd(ctx context.Context, f *rootFlags) *cobra.Command {
	var (
		workerName string
		kinds      string
		prefetch   int
		heartbeat  int
		port       int
		noHTTP     bool
	)
	cmd := &cobra.Command{
		Use:   "kitchen-worker",
		Short: "Consume submitted rounds and serve the kitchen board",
		RunE: func(cmd *cobra.Command, args []string) error {
			if workerName == "" {
				return errors.New("--worker-name is required")
			}
			parsed, err := kitchensvc.ParseKinds(kinds)
			if err != nil {
				return err
			}
			cfg, lg, err := f.load("kitchen-worker")
			if err != nil {
				return err
			}
			conn, err := connectDB(ctx, cfg, lg)
			if err != nil {
				return err
			}
			defer conn.Close()
			rmq, err := connectMQ(cfg, lg)
			if err != nil {
				return err
			}
			defer rmq.Close()

			switch {
			case noHTTP:
				port = 0
			case port == 0:
				port = cfg.Ports.Kitchen
			}
			lg.Info("service_started", map[string]any{"worker": workerName, "kinds": kinds, "port": port})
			return kitchen.Run(ctx, kitchensvc.Config{
				WorkerName: workerName,
				Kinds:      parsed,
				Prefetch:   prefetch,
				Heartbeat:  time.Duration(heartbeat) * time.Second,
			}, port, conn, rmq, lg)
		},
	}
	cmd.Flags().StringVar(&workerName, "worker-name", "", "unique worker name")
	cmd.Flags().StringVar(&kinds, "kinds", "", "comma-separated source kinds to handle (table,parcel); empty means both")
	cmd.Flags().IntVar(&prefetch, "prefetch", 1, "RabbitMQ prefetch")
	cmd.Flags().IntVar(&heartbeat, "heartbeat-interval", 30, "heartbeat interval in seconds")
	cmd.Flags().IntVar(&port, "port", 0, "kitchen board HTTP port (default: ports.kitchen from the config)")
	cmd.Flags().BoolVar(&noHTTP, "no-http", false, "consume only, without the kitchen board")
	return cmd
}

func reportsCmd(ctx context.Context, f *rootFlags) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "reports-service",
		Short: "Serve bill history, CSV export and dashboard stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lg, err := f.load("reports-service")
			if err != nil {
				return err
			}
			conn, err := connectDB(ctx, cfg, lg)
			if err != nil {
				return err
			}
			defer conn.Close()

			if port == 0 {
				port = cfg.Ports.Reports
			}
			lg.Info("service_started", map[string]any{"port": port})
			return reports.Start(ctx, port, conn, lg)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (default: ports.reports from the config)")
	return cmd
}

func notifyCmd(ctx context.Context, f *rootFlags) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "notification-subscriber",
		Short: "Log status events and push them to websocket clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lg, err := f.load("notification-subscriber")
			if err != nil {
				return err
			}
			rmq, err := connectMQ(cfg, lg)
			if err != nil {
				return err
			}
			defer rmq.Close()

			if port == 0 {
				port = cfg.Ports.Notify
			}
			lg.Info("service_started", map[string]any{"port": port})
			return notificator.Start(ctx, port, rmq, lg)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "websocket HTTP port (default: ports.notify from the config)")
	return cmd
}

func migrateCmd(ctx context.Context, f *rootFlags) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the SQL files in the migrations directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lg, err := f.load("migrate")
			if err != nil {
				return err
			}
			files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no .sql files in %s", dir)
			}
			sort.Strings(files)

			conn, err := connectDB(ctx, cfg, lg)
			if err != nil {
				return err
			}
			defer conn.Close()
			for _, file := range files {
				sql, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				if _, err := conn.Exec(ctx, string(sql)); err != nil {
					return fmt.Errorf("apply %s: %w", file, err)
				}
				lg.Info("migration_applied", map[string]any{"file": file})
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "migrations", "directory holding the .sql files")
	return cmd
}

func importMenuCmd(ctx context.Context, f *rootFlags) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import-menu",
		Short: "Upsert menu items from a JSON file (compact or expanded records)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return errors.New("--file is required")
			}
			cfg, lg, err := f.load("import-menu")
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			items, err := schema.DecodeMenu(raw)
			if err != nil {
				return err
			}
			if _, err := catalog.New(items); err != nil {
				return err
			}

			conn, err := connectDB(ctx, cfg, lg)
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := pg.NewMenuPG(conn).Upsert(ctx, items); err != nil {
				return err
			}
			lg.Info("menu_imported", map[string]any{"file": file, "items": len(items)})
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "menu JSON file")
	return cmd
}

// checkCmd verifies the config and every backing service, reporting all
// failures rather than stopping at the first.
func checkCmd(ctx context.Context, f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load the config and ping Postgres, RabbitMQ and Redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lg, err := f.load("check")
			if err != nil {
				return err
			}
			pctx, cancel := context.WithTimeout(ctx, 15*time.Second)
			defer cancel()

			var errs []error
			if conn, err := connectDB(pctx, cfg, lg); err != nil {
				errs = append(errs, err)
			} else {
				conn.Close()
			}
			if rmq, err := connectMQ(cfg, lg); err != nil {
				errs = append(errs, err)
			} else {
				if err := rmq.Ping(); err != nil {
					errs = append(errs, fmt.Errorf("rabbitmq ping: %w", err))
				}
				rmq.Close()
			}
			if rdb, err := connectRedis(pctx, cfg, lg); err != nil {
				errs = append(errs, err)
			} else {
				_ = rdb.Close()
			}
			if err := errors.Join(errs...); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "all dependencies reachable")
			return nil
		},
	}
}
