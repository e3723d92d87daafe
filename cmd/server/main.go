package main

import (
	"context"
	"os/signal"
	"syscall"

	"model-artifact-registry/internal/bootstrap"
	"model-artifact-registry/internal/config"
	"model-artifact-registry/internal/tracing"

	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	bootstrap.InitLogger(cfg.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.NewProvider(ctx, cfg.Tracing)
	if err != nil {
		log.Fatalf("init tracing: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.WithError(err).Warn("flush traces")
		}
	}()

	reg, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("open registry: %v", err)
	}
	defer reg.Close()

	if err := bootstrap.Serve(ctx, cfg, reg); err != nil {
		log.Errorf("%v", err)
	}
}
