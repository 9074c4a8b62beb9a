package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/listing-scraper/internal/scraper"
)

func newProductCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "product <url>",
		Short: "Scrape one product page and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := scraper.ValidateTargetURL(args[0]); err != nil {
				return fmt.Errorf("invalid product url: %w", err)
			}
			record, err := appInstance.Product().Resolve(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("scrape product: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), record)
		},
	}
}
