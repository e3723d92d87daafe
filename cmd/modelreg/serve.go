package main

import (
	"context"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"model-artifact-registry/internal/bootstrap"
	"model-artifact-registry/internal/tracing"
)

func newServeCmd(a *app) *cobra.Command {
	var addr struct {
		host string
		port int
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the registry over HTTP and reload on metadata edits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("host") {
				a.cfg.Server.Host = addr.host
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = addr.port
			}
			if !cmd.Flags().Changed("log-level") && a.v.GetString("LOGGER_LEVEL") == "warn" {
				log.SetLevel(log.InfoLevel)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			tp, err := tracing.NewProvider(ctx, a.cfg.Tracing)
			if err != nil {
				return err
			}
			defer func() { _ = tp.Shutdown(context.Background()) }()

			return a.withRegistry(ctx, func(reg *bootstrap.Registry) error {
				return bootstrap.Serve(ctx, a.cfg, reg)
			})
		},
	}

	cmd.Flags().StringVar(&addr.host, "host", "", "listen host (default from SERVER_HOST)")
	cmd.Flags().IntVar(&addr.port, "port", 0, "listen port (default from SERVER_PORT)")
	return cmd
}
