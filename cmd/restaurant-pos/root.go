package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"restaurant-pos/internal/common/config"
	"restaurant-pos/internal/common/db"
	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/common/mq"
)

type rootFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd(ctx context.Context) *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:           "restaurant-pos",
		Short:         "Restaurant point-of-sale services",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&f.configPath, "config", "", "path to YAML config (default: config.yaml, then deploy/config.example.yaml)")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "override log_level from the config")

	root.AddCommand(
		orderCmd(ctx, f),
		kitchenCmd(ctx, f),
		reportsCmd(ctx, f),
		notifyCmd(ctx, f),
		migrateCmd(ctx, f),
		importMenuCmd(ctx, f),
		checkCmd(ctx, f),
	)
	return root
}

// load resolves the config file and builds the service logger with the
// configured level.
func (f *rootFlags) load(service string) (config.App, *logger.Logger, error) {
	path := f.configPath
	if path == "" {
		p, err := config.FindConfig()
		if err != nil {
			return config.App{}, nil, fmt.Errorf("no config file found, pass --config: %w", err)
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.App{}, nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	lg := logger.New(service)
	lg.SetLevel(cfg.LogLevel)
	lg.Info("config_loaded", map[string]any{"path": path})
	return cfg, lg, nil
}

func connectDB(ctx context.Context, cfg config.App, lg *logger.Logger) (*db.Conn, error) {
	conn, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	lg.Info("db_connected", map[string]any{"host": cfg.Database.Host, "port": cfg.Database.Port, "database": cfg.Database.Name})
	return conn, nil
}

func connectMQ(cfg config.App, lg *logger.Logger) (*mq.Client, error) {
	rmq, err := mq.Dial(cfg.Rabbit)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: %w", err)
	}
	if err := rmq.DeclareAll(); err != nil {
		rmq.Close()
		return nil, fmt.Errorf("rabbitmq topology: %w", err)
	}
	lg.Info("rabbitmq_connected", map[string]any{"host": cfg.Rabbit.Host, "port": cfg.Rabbit.Port, "vhost": cfg.Rabbit.VHost})
	return rmq, nil
}

func connectRedis(ctx context.Context, cfg config.App, lg *logger.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Pass, DB: cfg.Redis.DB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	lg.Info("redis_connected", map[string]any{"addr": cfg.Redis.Addr, "db": cfg.Redis.DB})
	return rdb, nil
}
