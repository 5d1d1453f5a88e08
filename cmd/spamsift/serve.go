package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chriscorrea/spamsift/internal/inference"
	"github.com/chriscorrea/spamsift/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve classifications over HTTP",
	Long: `Serve loads the model bundle once and answers classification requests.

Endpoints:
  POST /v1/classify        {"text": "..."}
  POST /v1/classify/batch  {"texts": ["...", "..."]}
  GET  /healthz
  GET  /metrics`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings(cmd)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		if cmd.Flags().Changed("port") {
			settings.Server.Port, _ = cmd.Flags().GetInt("port")
			if err := settings.Validate(); err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
		}
		setupLogger(cmd, settings, settings.Logging.Level)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// load before listening so a broken bundle fails startup
		registry := newRegistry(settings)
		bundle, err := registry.Bundle(ctx)
		if err != nil {
			return err
		}
		slog.Info("model bundle loaded",
			"bundle_id", bundle.ID,
			"algorithm", bundle.Model.Name(),
			"vocabulary_size", bundle.Vocabulary().Size())

		service := inference.NewService(registry, inference.Options{
			Concurrency: settings.Classify.Concurrency,
		})
		srv := server.New(service, registry, server.NewMetrics(), settings.Server.MaxBodyBytes)
		return server.ListenAndServe(ctx, srv.Handler(), settings.Server)
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "Listen port (default from config: 8080)")
}
