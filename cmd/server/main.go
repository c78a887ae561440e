package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caner-kocamaz/next-wp/internal/app"
	"github.com/caner-kocamaz/next-wp/internal/config"
	"github.com/caner-kocamaz/next-wp/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath string
		verbose bool
		port    string
	)
	cmd := &cobra.Command{
		Use:          "server",
		Short:        "Serve the Discover market, weather and posts API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfgPath == "" {
				cfgPath = os.Getenv("CONFIG_FILE")
			}
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if port != "" {
				cfg.Server.Port = port
			}
			logger, err := logging.New(cfg.Log.Level, cfg.Log.Development, verbose)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a := app.New(cmd.Context(), cfg, logger)
			defer func() {
				if err := a.Close(); err != nil {
					logger.Warn("closing response store", zap.Error(err))
				}
			}()

			ln, err := net.Listen("tcp", ":"+cfg.Server.Port)
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}
			return serve(cmd.Context(), ln, a.Handler(), time.Duration(cfg.Server.ShutdownTimeoutSec)*time.Second, logger)
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "path to YAML config (default: $CONFIG_FILE or ./config.yaml)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides config and $PORT)")
	return cmd
}

// serve runs the HTTP server on ln until ctx is done, then shuts down
// gracefully within shutdownTimeout.
func serve(ctx context.Context, ln net.Listener, h http.Handler, shutdownTimeout time.Duration, log *zap.Logger) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	if shutdownTimeout <= 0 {
		shutdownTimeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
