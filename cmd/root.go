package cmd

import (
	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/alttext/internal/logging"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "alttext",
		Short: "Template-driven alt text and filenames for Shopify product images",
		Long: `alttext bulk-edits the alt text and filenames of Shopify product images.

Define templates with placeholders such as {title}, {vendor} or {index}, preview
them against real products, and apply them to every image of a product. Coverage
reports show how much of the catalog has descriptive metadata.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			logging.Setup(opts.verbose)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose logging")
	cmd.PersistentFlags().StringVar(&opts.shop, "shop", "", "Shop domain (overrides SHOPIFY_SHOP_URL)")
	cmd.PersistentFlags().StringVar(&opts.token, "token", "", "Admin API access token (overrides SHOPIFY_ACCESS_TOKEN)")
	cmd.PersistentFlags().StringVar(&opts.templates, "templates", "", "Template file (overrides ALTTEXT_TEMPLATES)")

	// Add subcommands
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newCheckCmd(opts))
	cmd.AddCommand(newProductsCmd(opts))
	cmd.AddCommand(newTemplatesCmd(opts))
	cmd.AddCommand(newPreviewCmd(opts))
	cmd.AddCommand(newApplyCmd(opts))
	cmd.AddCommand(newClearCmd(opts))
	cmd.AddCommand(newCoverageCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	cmd.AddCommand(newSuggestCmd(opts))

	return cmd
}
