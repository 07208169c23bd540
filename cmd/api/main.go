package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arquest/waypoint/internal/appconf"
	"github.com/arquest/waypoint/internal/logging"
	"github.com/arquest/waypoint/internal/restapi"
)

const shutdownTimeout = 10 * time.Second

func main() {
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	configFile := flags.String("config", "", "Path to a YAML configuration file")
	envFile := flags.String("env-file", ".env", "Path to a .env file loaded into the environment")
	appconf.RegisterFlags(flags)
	_ = flags.Parse(os.Args[1:])

	loader, err := appconf.NewLoader(*configFile, *envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	loader.ApplyFlags(flags)

	cfg, err := loader.Config()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	output, closer, err := logging.OutputFor(cfg.LogFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	level, levelErr := logging.ParseLevel(cfg.LogLevel)
	logger := logging.NewStructuredLogger(output, level)
	slog.SetDefault(logger)
	if levelErr != nil {
		logger.Warn("unknown log level, using info", slog.String("log_level", cfg.LogLevel))
	}

	if err := run(cfg, loader, logger); err != nil {
		logging.LogError(logger, "server stopped with error", err)
		logging.SafeCloseWithLogging(closer, logger, "log_file")
		os.Exit(1)
	}
	logging.SafeCloseWithLogging(closer, logger, "log_file")
}

func run(cfg appconf.Config, loader *appconf.Loader, logger *slog.Logger) error {
	application, err := BuildApplication(cfg, logger)
	if err != nil {
		return err
	}

	api := restapi.NewRestAPI(application)
	defer api.Shutdown()

	loader.Watch(logger, application.ApplyConfig)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := CreateServer(cfg, BuildHandler(api), logger)
	srv.RegisterOnShutdown(api.Shutdown)
	return Serve(ctx, srv, logger)
}

// Serve runs srv until ctx is done, then shuts it down gracefully.
func Serve(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logging.LogOperation(logger, "server_stopped")
	return nil
}
