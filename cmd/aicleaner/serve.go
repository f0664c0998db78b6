package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/omarluq/aicleaner/internal/di"
	rostream "github.com/omarluq/aicleaner/internal/ro"
	"github.com/omarluq/aicleaner/internal/version"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start health monitoring and the REST API",
	Long: `Start the provider health monitor and serve the REST API used by Home
Assistant. Stops gracefully on SIGINT or SIGTERM and writes the health
history file if one is configured.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	configPath := resolveConfigPath()

	container, err := di.NewContainer(configPath)
	if err != nil {
		log.Error().Err(err).Str("path", configPath).Msg("failed to load config")
		return err
	}

	logger := di.MustInvoke[*di.LoggerService](container).Logger
	log.Logger = *logger
	zerolog.DefaultContextLogger = logger

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfgSvc := di.MustInvoke[*di.ConfigService](container)
	cfgSvc.StartWatching(ctx, logger)

	monitorSvc, err := di.Invoke[*di.MonitorService](container)
	if err != nil {
		return shutdownAfter(container, fmt.Errorf("failed to start health monitor: %w", err))
	}
	transitions := rostream.WatchTransitions(ctx, monitorSvc.Monitor, logger)
	defer transitions.Unsubscribe()

	if err := monitorSvc.Start(ctx); err != nil {
		return shutdownAfter(container, err)
	}

	serverSvc, err := di.Invoke[*di.ServerService](container)
	if err != nil {
		return shutdownAfter(container, fmt.Errorf("failed to build API server: %w", err))
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- serverSvc.Server.ListenAndServe()
	}()

	logger.Info().
		Str("listen", serverSvc.Server.Addr()).
		Str("version", version.Version).
		Strs("providers", monitorSvc.Monitor.Names()).
		Msg("aicleaner started")

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error().Err(err).Msg("server error")
			return shutdownAfter(container, err)
		}
	case <-waitForSignal(ctx, logger):
	}

	logger.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := container.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}
	logger.Info().Msg("aicleaner stopped")
	return nil
}

// waitForSignal closes the returned channel on SIGINT, SIGTERM or ctx end.
func waitForSignal(ctx context.Context, logger *zerolog.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		sig, err := rostream.WaitForShutdown(ctx)
		if err == nil && sig != nil {
			logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		}
	}()
	return done
}

func shutdownAfter(container *di.Container, err error) error {
	if shutdownErr := container.Shutdown(); shutdownErr != nil {
		log.Error().Err(shutdownErr).Msg("shutdown error")
	}
	return err
}
