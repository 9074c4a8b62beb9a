package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/listing-scraper/internal/scraper"
)

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl [listing-url]",
		Short: "Crawl a listing and print every product as JSON",
		Long: `Walks the listing page and every "next" page after it, resolves each
product it links to, and writes the records to stdout as a JSON array.
Without an argument the configured default listing is crawled.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCrawl,
	}
}

func runCrawl(cmd *cobra.Command, args []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	target := appInstance.Config().Crawler.DefaultListingURL
	if len(args) == 1 {
		target = args[0]
	}
	if err := scraper.ValidateTargetURL(target); err != nil {
		return fmt.Errorf("invalid listing url: %w", err)
	}

	records, err := appInstance.Listing().Crawl(cmd.Context(), target)
	if err != nil {
		return fmt.Errorf("crawl %s: %w", target, err)
	}
	appInstance.Logger().Info("crawl complete", zap.String("url", target), zap.Int("products", len(records)))
	if records == nil {
		records = []scraper.ProductRecord{}
	}
	return writeJSON(cmd.OutOrStdout(), records)
}

func writeJSON(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
