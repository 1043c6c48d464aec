package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/loykin/tracker"
)

// loadConfig loads the config and builds the process logger.
func loadConfig(path string) (*tracker.Config, *slog.Logger, io.Closer, error) {
	fc, err := tracker.LoadConfig(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error loading config: %w", err)
	}
	logger, closer, err := fc.Logger().New()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error building logger: %w", err)
	}
	slog.SetDefault(logger)
	return fc, logger, closer, nil
}

func runServe(ctx context.Context, flags *ServeFlags, out io.Writer) error {
	fc, logger, closer, err := loadConfig(flags.ConfigPath)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	listen, base := fc.Server.Listen, fc.Server.BasePath
	if flags.Listen != "" {
		listen = flags.Listen
	}
	if flags.BasePath != "" {
		base = flags.BasePath
	}
	metricsListen := flags.MetricsListen
	if metricsListen == "" && fc.Metrics.Enabled {
		metricsListen = fc.Metrics.Listen
	}
	if metricsListen != "" {
		if err := tracker.RegisterMetricsDefault(); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		go func() {
			if err := tracker.ServeMetrics(metricsListen); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", "err", err)
			}
		}()
	}

	tlsCfg, err := fc.ServerTLS()
	if err != nil {
		return fmt.Errorf("tls: %w", err)
	}
	col, err := tracker.NewFromConfig(fc, logger)
	if err != nil {
		return err
	}
	if _, err := col.Start(); err != nil {
		return err
	}
	server, err := tracker.NewHTTPServer(listen, base, col, tlsCfg)
	if err != nil {
		_ = col.Unload(context.Background())
		return err
	}
	protocol := "http"
	if tlsCfg != nil {
		protocol = "https"
	}
	_, _ = fmt.Fprintf(out, "Starting tracker %s bridge on %s%s\n", protocol, listen, base)

	// Wait for shutdown signal
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	_, _ = fmt.Fprintln(out, "Shutting down...")
	unloadCtx, cancel := context.WithTimeout(context.Background(), fc.Tracker.UnloadGrace)
	defer cancel()
	if err := col.Unload(unloadCtx); err != nil && !errors.Is(err, tracker.ErrUnloaded) {
		logger.Warn("unload incomplete", "err", err)
	}
	return server.Close()
}
