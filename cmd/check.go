package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the Shopify credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.config().NewClient()
			if err != nil {
				return err
			}
			shop, err := client.CheckConnection(cmd.Context())
			if err != nil {
				return fmt.Errorf("connection failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Connected to %s\n", shop.Name)
			fmt.Fprintf(out, "Domain: %s\n", shop.Domain)
			fmt.Fprintf(out, "Plan: %s\n", shop.PlanName)
			if shop.CountryName != "" {
				fmt.Fprintf(out, "Country: %s\n", shop.CountryName)
			}
			return nil
		},
	}
}
