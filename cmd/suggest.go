package cmd

import (
	"fmt"

	"github.com/lehigh-university-libraries/alttext/internal/images"
	"github.com/lehigh-university-libraries/alttext/internal/session"
	"github.com/lehigh-university-libraries/alttext/internal/suggest"
	"github.com/spf13/cobra"
)

func newSuggestCmd(opts *rootOptions) *cobra.Command {
	var (
		productID string
		imageID   string
		provider  string
		model     string
		apply     bool
	)

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Draft alt text for an image with a vision model",
		Long: `Downloads a product image and asks a vision-capable LLM (Gemini, Ollama or
OpenAI) to describe it. Without --image every image of the product is drafted.
With --apply the suggestion is pushed to Shopify as free-form alt text.`,
		Example: `  alttext suggest --product 7012345678901 --image 31234567890
  alttext suggest --product 7012345678901 --provider ollama --model llava --apply`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := opts.open(cmd.Context(), productID)
			if err != nil {
				return err
			}
			defer ws.Close()

			if provider == "" {
				provider = ws.cfg.Provider
			}
			if model == "" && provider == ws.cfg.Provider {
				model = ws.cfg.Model
			}
			prov, err := suggest.NewProvider(provider)
			if err != nil {
				return err
			}
			s := &suggest.Suggester{
				Provider:    prov,
				Images:      images.NewFetcher(),
				Model:       model,
				Temperature: ws.cfg.Temperature,
			}

			p, ok := ws.session.Products.Get(productID)
			if !ok {
				return fmt.Errorf("%s: %w", productID, session.ErrProductNotFound)
			}
			targets := []string{imageID}
			if imageID == "" {
				targets = targets[:0]
				for _, img := range p.Images {
					targets = append(targets, img.ID)
				}
			}

			out := cmd.OutOrStdout()
			for _, id := range targets {
				sug, err := s.Suggest(cmd.Context(), p, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s  %s\n", sug.ImageID, sug.Alt)
				if !apply {
					continue
				}
				o, err := ws.session.SetAlt(cmd.Context(), productID, id, sug.Alt)
				if err != nil {
					return err
				}
				if o.Failed() {
					return fmt.Errorf("shopify rejected the update for image %s", id)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&productID, "product", "", "Product id")
	cmd.Flags().StringVar(&imageID, "image", "", "Image id (default: every image)")
	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider: gemini, ollama or openai (default ALTTEXT_PROVIDER)")
	cmd.Flags().StringVar(&model, "model", "", "Model name")
	cmd.Flags().BoolVar(&apply, "apply", false, "Push the suggestion to Shopify")
	_ = cmd.MarkFlagRequired("product")

	return cmd
}
