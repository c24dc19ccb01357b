package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/alttext/internal/handlers"
	"github.com/lehigh-university-libraries/alttext/internal/images"
	"github.com/lehigh-university-libraries/alttext/internal/suggest"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the JSON API",
		Long: `Fetches the catalog and serves the template, product and coverage API
on the specified port. Template changes are saved to the configured store.`,
		Example: `  # Start server on default port 8888
  alttext serve

  # Start server on custom port
  alttext serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer ws.Close()

			handlerOpts := []handlers.Option{
				handlers.WithPersister(ws.persister),
				handlers.WithFetcher(ws.client),
			}
			if provider, err := suggest.NewProvider(ws.cfg.Provider); err == nil {
				handlerOpts = append(handlerOpts, handlers.WithSuggester(&suggest.Suggester{
					Provider:    provider,
					Images:      images.NewFetcher(),
					Model:       ws.cfg.Model,
					Temperature: ws.cfg.Temperature,
				}))
			} else {
				slog.Warn("Alt text suggestions disabled", "err", err)
			}
			handler := handlers.New(ws.session, handlerOpts...)

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("alttext API available", "addr", addr, "url", "http://localhost"+addr, "products", ws.session.Products.Len())
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")

	return cmd
}
