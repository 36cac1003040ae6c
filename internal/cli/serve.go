package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/infiping/internal/httpapi"
	"github.com/hamed0406/infiping/internal/metrics"
	"github.com/hamed0406/infiping/internal/repo/csvfile"
)

func newServeCmd(f *flags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the probe records over a read-only HTTP API",
		Long: `serve exposes the CSV written by the monitor as JSON (/api/records,
/api/summary) and Prometheus metrics (/metrics). It never writes the file.
Set API_KEYS to require a key.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolve(cmd, nil)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.APIAddr = addr
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			store := csvfile.New(cfg.Output, logger)
			api := httpapi.NewServer(logger, store, metrics.NewRegistry(store, logger))
			srv := &http.Server{
				Addr: cfg.APIAddr,
				Handler: api.Router(httpapi.Options{
					Keys:            cfg.APIKeys,
					RateLimitPerMin: cfg.APIRateLimit,
					RateBurst:       cfg.APIBurst,
				}),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("api_listen",
					zap.String("addr", cfg.APIAddr),
					zap.String("output", cfg.Output),
					zap.Bool("auth", len(cfg.APIKeys) > 0),
				)
				fmt.Fprintf(cmd.OutOrStdout(), "serving %s on http://%s\n", cfg.Output, cfg.APIAddr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				logger.Error("api_listen_error", zap.Error(err))
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			logger.Info("api_shutdown")
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from API_ADDR or 127.0.0.1:8080)")
	return cmd
}
