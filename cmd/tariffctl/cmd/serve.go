package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"energy-tariffs/internal/logging"
)

var serveDeriveInterval time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and ingest endpoint in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.LoadRefData(ctx); err != nil {
			return err
		}

		logger := logging.Named("serve")
		srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: a.Handler(), ReadHeaderTimeout: 10 * time.Second}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		if serveDeriveInterval > 0 {
			go a.RunScheduler(ctx, serveDeriveInterval)
		}

		logger.Info("listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().DurationVar(&serveDeriveInterval, "derive-interval", time.Hour, "derivation scheduler interval (0 disables)")
}
