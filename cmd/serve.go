package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/listing-scraper/internal/api"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serves POST /product and POST /listing (plus the /Scrappy-product and
/Scrappy-list aliases), health probes and Prometheus metrics until SIGINT or
SIGTERM, then drains in-flight requests.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.Config()
	logger := appInstance.Logger()

	apiServer := api.NewServer(
		appInstance.Product(),
		appInstance.Listing(),
		appInstance.IDs(),
		cfg,
		logger.Named("api"),
	)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := context.WithCancel(cmd.Context())
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			errCh <- err
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	default:
		return nil
	}
}
