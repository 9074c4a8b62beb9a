// Package cmd defines the CLI commands for the listing-scraper executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/listing-scraper/internal/api"
	"github.com/JakeFAU/listing-scraper/internal/app"
	"github.com/JakeFAU/listing-scraper/internal/config"
	"github.com/JakeFAU/listing-scraper/internal/logging"
	"github.com/JakeFAU/listing-scraper/internal/scraper"
)

type appKeyType string

const appKey appKeyType = "app"

// App is what the subcommands need from the application container. It lets
// tests inject a fake pipeline.
type App interface {
	Config() config.Config
	Logger() *zap.Logger
	IDs() scraper.IDGenerator
	Product() api.ProductResolver
	Listing() api.ListingScraper
	Close()
}

// newApp is the application factory. It is a variable so tests can replace it.
var newApp = func(cfgPath string) (App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)

	a, err := app.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init application: %w", err)
	}
	return appAdapter{a}, nil
}

type appAdapter struct {
	*app.App
}

func (a appAdapter) Product() api.ProductResolver { return a.Resolver() }
func (a appAdapter) Listing() api.ListingScraper  { return a.Listings() }

func (a appAdapter) Close() {
	a.App.Close()
	_ = a.Logger().Sync() //nolint:errcheck // best-effort flush; fails on terminals
}

// newRootCmd builds the command tree. The returned func closes the App
// created by the pre-run hook, whether or not RunE succeeded.
func newRootCmd() (*cobra.Command, func()) {
	var (
		cfgFile string
		active  App
	)
	cmd := &cobra.Command{
		Use:   "listing-scraper",
		Short: "Scrapes product details from e-commerce listing and product pages.",
		Long: `listing-scraper fetches product pages and paginated search listings,
extracts title, price, rating, reviews, image, description and social-proof
fields, and returns them as JSON, either over HTTP (serve) or directly
(crawl, product).`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			active = appInstance
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (SCRAPER_* env vars override it)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newProductCmd())

	cleanup := func() {
		if active != nil {
			active.Close()
			active = nil
		}
	}
	return cmd, cleanup
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	root, cleanup := newRootCmd()
	err := root.ExecuteContext(ctx)
	cleanup()
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
