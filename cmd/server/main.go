package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"clerk/internal/app"
	"clerk/internal/platform/config"
	"clerk/internal/platform/httpserver"
	"clerk/internal/platform/logger"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(".")
	if err != nil {
		logger.New(config.Log{Level: "error"}).Error("load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("wire application", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	srv := httpserver.New(cfg.Server.Addr, a.Handler())
	if err := httpserver.Run(ctx, srv, cfg.Server.ShutdownTimeout, log); err != nil {
		log.Error("server error", "error", err)
		a.Close()
		os.Exit(1)
	}
}
