package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/goliatone/go-crm-connector/core"
	"github.com/goliatone/go-crm-connector/httpapi"
)

// validateServeConfig checks settings only the HTTP surface needs. The
// sync and refresh commands address users directly and run without them.
func validateServeConfig(cfg core.Config) error {
	if strings.TrimSpace(cfg.Identity.URL) == "" {
		return core.ConfigurationError("identity.url is required to serve http requests")
	}
	return nil
}

func cmdServe(state *app) *cli.Command {
	var flags connectorFlags

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the HTTP server",
		Flags:   flags.Flags(),
		Action: func(ctx context.Context, _ *cli.Command) error {
			cfg, err := flags.Load(ctx)
			if err != nil {
				return err
			}
			if err := validateServeConfig(cfg); err != nil {
				return err
			}
			rt, err := buildRuntime(ctx, cfg, state)
			if err != nil {
				return err
			}
			logger := state.provider.GetLogger("http")
			defer func() {
				if err := rt.Close(); err != nil {
					logger.Error("failed to close database", "error", err)
				}
			}()

			server := &http.Server{
				Addr: cfg.HTTP.Addr,
				Handler: httpapi.NewRouter(rt.service,
					httpapi.WithLogger(logger),
					httpapi.WithAllowedOrigins(cfg.HTTP.AllowedOrigins...),
				),
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("starting http server", "addr", cfg.HTTP.Addr, "integration_type", cfg.IntegrationType)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logger.Info("received shutdown signal", "signal", sig.String())
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}
