// Package config reads settings from the environment (and .env, loaded by the CLI).
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/alttext/internal/catalog"
	"github.com/lehigh-university-libraries/alttext/internal/storage"
)

type Config struct {
	ShopURL     string
	AccessToken string
	APIVersion  string
	StoreName   string

	TemplatesPath string
	// Store is "yaml" or "sqlite"
	Store  string
	DBPath string

	Provider    string
	Model       string
	Temperature float64
}

// Load reads Config from the environment, applying defaults
func Load() Config {
	c := Config{
		ShopURL:       os.Getenv("SHOPIFY_SHOP_URL"),
		AccessToken:   os.Getenv("SHOPIFY_ACCESS_TOKEN"),
		APIVersion:    getenv("SHOPIFY_API_VERSION", catalog.DefaultAPIVersion),
		StoreName:     os.Getenv("SHOPIFY_STORE_NAME"),
		TemplatesPath: getenv("ALTTEXT_TEMPLATES", "templates.yaml"),
		Store:         strings.ToLower(getenv("ALTTEXT_STORE", "yaml")),
		DBPath:        getenv("ALTTEXT_DB", "alttext.db"),
		Provider:      strings.ToLower(getenv("ALTTEXT_PROVIDER", "gemini")),
		Temperature:   0.2,
	}
	c.Model = c.defaultModel()
	if t, err := strconv.ParseFloat(os.Getenv("ALTTEXT_TEMPERATURE"), 64); err == nil {
		c.Temperature = t
	}
	return c
}

func (c Config) defaultModel() string {
	switch c.Provider {
	case "ollama":
		return os.Getenv("OLLAMA_MODEL")
	case "openai":
		return os.Getenv("OPENAI_MODEL")
	default:
		return os.Getenv("GEMINI_MODEL")
	}
}

// NewClient returns a Shopify client, or an error when credentials are missing
func (c Config) NewClient() (*catalog.Client, error) {
	if c.ShopURL == "" {
		return nil, fmt.Errorf("shop URL not set (use --shop or SHOPIFY_SHOP_URL)")
	}
	if c.AccessToken == "" {
		return nil, fmt.Errorf("access token not set (use --token or SHOPIFY_ACCESS_TOKEN)")
	}
	client := catalog.NewClient(c.ShopURL, c.AccessToken, c.APIVersion)
	client.StoreName = c.StoreName
	return client, nil
}

// Persister opens the configured template store. The returned close func
// must be called when done.
func (c Config) Persister(ctx context.Context) (storage.Persister, func() error, error) {
	switch c.Store {
	case "", "yaml", "yml":
		return storage.NewYAMLFile(c.TemplatesPath), func() error { return nil }, nil
	case "sqlite":
		db, err := storage.OpenSQLite(ctx, c.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown template store: %s (expected yaml or sqlite)", c.Store)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
