// Package report renders coverage summaries as text, YAML, JSON and parquet.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/alttext/internal/coverage"
	"gopkg.in/yaml.v3"
)

// Report is a point-in-time coverage snapshot of the loaded catalog
type Report struct {
	GeneratedAt time.Time                 `json:"generated_at" yaml:"generated_at"`
	Store       string                    `json:"store,omitempty" yaml:"store,omitempty"`
	Summary     coverage.Summary          `json:"summary" yaml:"summary"`
	Products    []coverage.ProductSummary `json:"products" yaml:"products"`
}

// New builds a Report stamped with the current time
func New(store string, summary coverage.Summary, perProduct []coverage.ProductSummary) *Report {
	if perProduct == nil {
		perProduct = []coverage.ProductSummary{}
	}
	return &Report{
		GeneratedAt: time.Now().UTC(),
		Store:       store,
		Summary:     summary,
		Products:    perProduct,
	}
}

// WriteText prints a human-readable coverage summary
func (r *Report) WriteText(w io.Writer) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 70))
	fmt.Fprintln(w, "IMAGE METADATA COVERAGE")
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "Generated: %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05"))
	if r.Store != "" {
		fmt.Fprintf(w, "Store: %s\n", r.Store)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "CATALOG")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	fmt.Fprintf(w, "Products: %d\n", len(r.Products))
	fmt.Fprintf(w, "Images: %d\n", r.Summary.TotalImages)
	fmt.Fprintf(w, "Alt Text: %d (%.1f%%)\n", r.Summary.WithText, r.Summary.TextCoveragePct)
	fmt.Fprintf(w, "Filenames: %d (%.1f%%)\n", r.Summary.WithFilename, r.Summary.FilenameCoveragePct)

	if len(r.Products) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "PER PRODUCT")
		fmt.Fprintln(w, strings.Repeat("-", 70))
		for _, p := range r.Products {
			fmt.Fprintf(w, "%-40s %3d images  alt %5.1f%%  filename %5.1f%%\n",
				truncate(p.Title, 40), p.Summary.TotalImages, p.Summary.TextCoveragePct, p.Summary.FilenameCoveragePct)
		}
	}
	fmt.Fprintln(w, strings.Repeat("=", 70))
}

// SaveJSON writes the report as indented JSON
func (r *Report) SaveJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return writeFile(path, data)
}

// SaveYAML writes the report as YAML
func (r *Report) SaveYAML(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return writeFile(path, data)
}

// Write encodes the report to w in the given format: text, json or yaml
func (r *Report) Write(w io.Writer, format string) error {
	switch strings.ToLower(format) {
	case "", "text":
		r.WriteText(w)
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(r)
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json, yaml)", format)
	}
}

// Save writes the report to path, picking the encoding from the extension
func (r *Report) Save(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return r.SaveJSON(path)
	case ".yaml", ".yml":
		return r.SaveYAML(path)
	default:
		var b strings.Builder
		r.WriteText(&b)
		return writeFile(path, []byte(b.String()))
	}
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	slog.Info("Report saved", "path", path)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
