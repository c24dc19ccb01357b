package cmd

import (
	"fmt"
	"io"

	"github.com/lehigh-university-libraries/alttext/internal/models"
	"github.com/lehigh-university-libraries/alttext/internal/session"
	"github.com/spf13/cobra"
)

func newPreviewCmd(opts *rootOptions) *cobra.Command {
	var (
		productID string
		tmpl      string
		field     string
		index     int
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render a template against a product without changing anything",
		Example: `  alttext preview --product 7012345678901 --template "{title} by {vendor}"
  alttext preview --product 7012345678901 --template "{vendor}-{title}-{index}" --field filename --index 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := models.ParseField(field)
			if err != nil {
				return err
			}
			ws, err := opts.open(cmd.Context(), productID)
			if err != nil {
				return err
			}
			defer ws.Close()

			value, err := ws.session.Preview(productID, tmpl, f, index)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}

	cmd.Flags().StringVar(&productID, "product", "", "Product id")
	cmd.Flags().StringVar(&tmpl, "template", "", "Template string to render")
	cmd.Flags().StringVar(&field, "field", "alt", "Target field: alt or filename")
	cmd.Flags().IntVar(&index, "index", 0, "Zero-based image position used for {index}")
	_ = cmd.MarkFlagRequired("product")
	_ = cmd.MarkFlagRequired("template")

	return cmd
}

func newApplyCmd(opts *rootOptions) *cobra.Command {
	var (
		productID       string
		templateID      string
		imageID         string
		field           string
		continueOnError bool
		confirmedOnly   bool
		dryRun          bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a stored template to a product's images",
		Long: `Renders a stored template for each image of a product and pushes the result
to Shopify. Filenames are made unique across the product's images.

By default the run stops at the first image Shopify rejects; earlier images
keep their new values. --continue-on-error attempts every image instead.`,
		Example: `  alttext apply --product 7012345678901 --template alt_1
  alttext apply --product 7012345678901 --template filename_2 --field filename --continue-on-error
  alttext apply --product 7012345678901 --template alt_1 --image 31234567890 --confirmed-only`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := models.ParseField(field)
			if err != nil {
				return err
			}
			ws, err := opts.open(cmd.Context(), productID)
			if err != nil {
				return err
			}
			defer ws.Close()

			out := cmd.OutOrStdout()

			if dryRun {
				planned, err := ws.session.Plan(productID, templateID, f)
				if err != nil {
					return err
				}
				for _, o := range planned {
					fmt.Fprintf(out, "%s  %s\n", o.ImageID, o.Value)
				}
				return nil
			}

			ws.session.ConfirmedWrites = confirmedOnly

			if imageID != "" {
				o, err := ws.session.Apply(cmd.Context(), productID, imageID, templateID, f)
				if err != nil {
					return err
				}
				printOutcome(out, o)
				if o.Failed() {
					return fmt.Errorf("shopify rejected the update for image %s", imageID)
				}
				return nil
			}

			run, err := ws.session.ApplyAll(cmd.Context(), productID, templateID, f, policyFor(continueOnError))
			if err != nil {
				return err
			}
			return printRun(out, run)
		},
	}

	cmd.Flags().StringVar(&productID, "product", "", "Product id")
	cmd.Flags().StringVar(&templateID, "template", "", "Template id, e.g. alt_1")
	cmd.Flags().StringVar(&imageID, "image", "", "Only apply to this image")
	cmd.Flags().StringVar(&field, "field", "alt", "Target field: alt or filename")
	cmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "Attempt every image even after a failed update")
	cmd.Flags().BoolVar(&confirmedOnly, "confirmed-only", false, "Only record values Shopify accepted")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print rendered values without pushing")
	_ = cmd.MarkFlagRequired("product")
	_ = cmd.MarkFlagRequired("template")

	return cmd
}

func newClearCmd(opts *rootOptions) *cobra.Command {
	var (
		productID       string
		field           string
		continueOnError bool
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear a field on every image of a product",
		Long: `Clears alt text on every image of a product and pushes the empty value.
With --field filename only the record of the applied template is cleared;
Shopify keeps the current filenames.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := models.ParseField(field)
			if err != nil {
				return err
			}
			ws, err := opts.open(cmd.Context(), productID)
			if err != nil {
				return err
			}
			defer ws.Close()

			run, err := ws.session.Clear(cmd.Context(), productID, f, policyFor(continueOnError))
			if err != nil {
				return err
			}
			return printRun(cmd.OutOrStdout(), run)
		},
	}

	cmd.Flags().StringVar(&productID, "product", "", "Product id")
	cmd.Flags().StringVar(&field, "field", "alt", "Field to clear: alt or filename")
	cmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "Attempt every image even after a failed update")
	_ = cmd.MarkFlagRequired("product")

	return cmd
}

func printOutcome(w io.Writer, o session.Outcome) {
	status := "ok"
	switch {
	case o.Skipped:
		status = "skipped (template not found)"
	case o.Local:
		status = "local only"
	case !o.Pushed && o.Updated:
		status = "push failed, kept locally"
	case !o.Pushed:
		status = "push failed"
	}
	fmt.Fprintf(w, "%s  %-50s  %s\n", o.ImageID, o.Value, status)
}

func printRun(w io.Writer, run *session.Run) error {
	for _, o := range run.Outcomes {
		printOutcome(w, o)
	}
	fmt.Fprintf(w, "\nRun %s: %d images, %d failed\n", run.ID, len(run.Outcomes), run.Failed())
	if run.Stopped {
		fmt.Fprintln(w, "Stopped after the first failure; remaining images were not changed.")
	}
	if run.Failed() > 0 {
		return fmt.Errorf("%d of %d updates failed", run.Failed(), len(run.Outcomes))
	}
	return nil
}
