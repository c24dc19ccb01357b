package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lehigh-university-libraries/alttext/internal/storage"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"SHOPIFY_SHOP_URL", "SHOPIFY_ACCESS_TOKEN", "SHOPIFY_API_VERSION", "SHOPIFY_STORE_NAME",
		"ALTTEXT_TEMPLATES", "ALTTEXT_STORE", "ALTTEXT_DB", "ALTTEXT_PROVIDER", "ALTTEXT_TEMPERATURE",
		"GEMINI_MODEL", "OLLAMA_MODEL", "OPENAI_MODEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	c := Load()
	if c.TemplatesPath != "templates.yaml" {
		t.Errorf("Expected default templates path, got %s", c.TemplatesPath)
	}
	if c.Store != "yaml" || c.Provider != "gemini" || c.APIVersion != "2023-10" {
		t.Errorf("Unexpected defaults: %+v", c)
	}
	if _, err := c.NewClient(); err == nil {
		t.Error("Expected error without credentials")
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHOPIFY_SHOP_URL", "acme")
	t.Setenv("SHOPIFY_ACCESS_TOKEN", "shpat_x")
	t.Setenv("SHOPIFY_STORE_NAME", "Acme Outfitters")
	t.Setenv("ALTTEXT_PROVIDER", "Ollama")
	t.Setenv("OLLAMA_MODEL", "llava:13b")
	t.Setenv("ALTTEXT_TEMPERATURE", "0.7")

	c := Load()
	if c.Provider != "ollama" || c.Model != "llava:13b" || c.Temperature != 0.7 {
		t.Errorf("Unexpected config: %+v", c)
	}
	client, err := c.NewClient()
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if client.StoreName != "Acme Outfitters" {
		t.Errorf("Expected store name on client, got %q", client.StoreName)
	}
	if client.BaseURL != "https://acme.myshopify.com/admin/api/2023-10" {
		t.Errorf("Unexpected base URL %s", client.BaseURL)
	}
}

func TestPersister(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	c := Config{Store: "yaml", TemplatesPath: filepath.Join(dir, "t.yaml")}
	p, closeFn, err := c.Persister(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*storage.YAMLFile); !ok {
		t.Errorf("Expected YAML persister, got %T", p)
	}
	_ = closeFn()

	c = Config{Store: "sqlite", DBPath: filepath.Join(dir, "t.db")}
	p, closeFn, err = c.Persister(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*storage.SQLite); !ok {
		t.Errorf("Expected SQLite persister, got %T", p)
	}
	if err := closeFn(); err != nil {
		t.Errorf("close: %v", err)
	}

	c = Config{Store: "redis"}
	if _, _, err := c.Persister(ctx); err == nil {
		t.Error("Expected error for unknown store")
	}
}
