package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"restaurant-pos/internal/common/logger"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(ctx).Execute(); err != nil {
		logger.New("bootstrap").Error("fatal", err, nil)
		cancel()
		os.Exit(1)
	}
}
