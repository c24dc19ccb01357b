package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProductsCmd(opts *rootOptions) *cobra.Command {
	var ids []string

	cmd := &cobra.Command{
		Use:   "products",
		Short: "List products with their image coverage",
		Example: `  alttext products
  alttext products --ids 7012345678901,7012345678902`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := opts.open(cmd.Context(), ids...)
			if err != nil {
				return err
			}
			defer ws.Close()

			out := cmd.OutOrStdout()
			for _, p := range ws.session.PerProduct() {
				fmt.Fprintf(out, "%s  %-40s  %2d images  alt %5.1f%%  filename %5.1f%%\n",
					p.ProductID, truncate(p.Title, 40), p.Summary.TotalImages,
					p.Summary.TextCoveragePct, p.Summary.FilenameCoveragePct)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&ids, "ids", nil, "Only fetch these product ids")

	return cmd
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
