package cmd

import (
	"fmt"

	"github.com/lehigh-university-libraries/alttext/internal/report"
	"github.com/spf13/cobra"
)

func newCoverageCmd(opts *rootOptions) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "coverage",
		Short: "Report alt text and filename coverage across the catalog",
		Example: `  alttext coverage
  alttext coverage --format json
  alttext coverage --output reports/coverage.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer ws.Close()

			r := report.New(ws.client.StoreName, ws.session.Coverage(), ws.session.PerProduct())
			if output != "" {
				if err := r.Save(output); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Coverage report saved to: %s\n", output)
				return nil
			}
			return r.Write(cmd.OutOrStdout(), format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file; format follows the extension")

	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a per-image snapshot as parquet",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer ws.Close()

			if err := report.ExportParquet(output, ws.session.Products.GetAll()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d images to %s\n", ws.session.Coverage().TotalImages, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "images.parquet", "Parquet file to write")

	return cmd
}
