package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/alttext/internal/catalog"
	"github.com/lehigh-university-libraries/alttext/internal/config"
	"github.com/lehigh-university-libraries/alttext/internal/session"
	"github.com/lehigh-university-libraries/alttext/internal/storage"
)

type rootOptions struct {
	verbose   bool
	shop      string
	token     string
	templates string
}

// config loads the environment and applies flag overrides
func (o *rootOptions) config() config.Config {
	cfg := config.Load()
	if o.shop != "" {
		cfg.ShopURL = o.shop
	}
	if o.token != "" {
		cfg.AccessToken = o.token
	}
	if o.templates != "" {
		cfg.TemplatesPath = o.templates
	}
	return cfg
}

// workspace bundles what most commands need: a loaded session and its backends
type workspace struct {
	cfg       config.Config
	session   *session.Session
	client    *catalog.Client
	persister storage.Persister
	closeFn   func() error
}

func (w *workspace) Close() {
	if w.closeFn == nil {
		return
	}
	if err := w.closeFn(); err != nil {
		slog.Warn("Failed to close template store", "err", err)
	}
}

// saveTemplates writes the template pools back to the configured store
func (w *workspace) saveTemplates(ctx context.Context) error {
	if err := w.persister.Save(ctx, w.session.Templates.Snapshot()); err != nil {
		return fmt.Errorf("failed to save templates: %w", err)
	}
	return nil
}

// openTemplates loads the template store without touching the catalog
func (o *rootOptions) openTemplates(ctx context.Context) (*workspace, error) {
	cfg := o.config()
	persister, closeFn, err := cfg.Persister(ctx)
	if err != nil {
		return nil, err
	}
	templates := storage.NewTemplateStore()
	if err := storage.LoadInto(ctx, persister, templates); err != nil {
		_ = closeFn()
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	return &workspace{
		cfg:       cfg,
		session:   session.New(templates, nil, nil),
		persister: persister,
		closeFn:   closeFn,
	}, nil
}

// open loads templates and fetches products from Shopify; with ids only those products
func (o *rootOptions) open(ctx context.Context, ids ...string) (*workspace, error) {
	ws, err := o.openTemplates(ctx)
	if err != nil {
		return nil, err
	}
	client, err := ws.cfg.NewClient()
	if err != nil {
		ws.Close()
		return nil, err
	}
	ws.client = client
	ws.session = session.New(ws.session.Templates, nil, client)
	if err := ws.session.Load(ctx, client, ids...); err != nil {
		ws.Close()
		return nil, err
	}
	return ws, nil
}

func policyFor(continueOnError bool) session.ErrorPolicy {
	if continueOnError {
		return session.ContinueOnError
	}
	return session.StopOnError
}
