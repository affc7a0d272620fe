package cli

import (
	"fmt"

	"cvforge/internal/observability"
	"cvforge/internal/pipeline"
	"cvforge/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for CV uploads",
	Long: `Start an HTTP server that accepts CV uploads and runs each one through
the full processing pipeline.

Available endpoints:
- POST /upload: Upload a CV file and process it into a formatted document
- GET /download/{file}: Download a generated document
- GET /healthz: Health check endpoint
- GET /stats: Server statistics and rate limiting info`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")

	// Bind flags to viper config keys
	bindFlag := func(key, flagName string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(flagName)); err != nil {
			panic(err)
		}
	}

	bindFlag("server.port", "port")
	bindFlag("server.host", "host")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	obsConfig := observability.GetObservabilityConfig(cfg, Version)
	om, err := observability.NewObservabilityManager(obsConfig, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}

	deps, err := newPipeline(ctx, cfg, logger, pipeline.Deps{
		Metrics: om.GetMetrics(),
		Tracer:  om.Tracer("cvforge.pipeline"),
	})
	if err != nil {
		return err
	}
	defer deps.Close(logger)

	serverCfg := server.ServerConfig{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		Version:       Version,
		APIKeys:       cfg.Server.APIKeys,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		IdleTimeout:   cfg.Server.IdleTimeout,
		MaxUploadSize: cfg.App.MaxFileSize,
		RateLimit:     &cfg.Server.RateLimit,
		Observability: om,
	}
	return server.NewServer(cfg, serverCfg, deps.orchestrator, deps.provider, logger).Start()
}
