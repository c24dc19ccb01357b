// Package suggest drafts alt text for a product image with a vision model.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/alttext/internal/gemini"
	"github.com/lehigh-university-libraries/alttext/internal/models"
	"github.com/lehigh-university-libraries/alttext/internal/ollama"
	"github.com/lehigh-university-libraries/alttext/internal/openai"
	"github.com/lehigh-university-libraries/alttext/internal/providers"
)

var ErrEmptySuggestion = errors.New("provider returned no usable text")

// ImageFetcher downloads image bytes
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// NewProvider returns the provider registered under name
func NewProvider(name string) (providers.Provider, error) {
	switch strings.ToLower(name) {
	case "", "gemini":
		return gemini.New(), nil
	case "ollama":
		return ollama.New(), nil
	case "openai":
		return openai.New(), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s (expected gemini, ollama or openai)", name)
	}
}

// Suggester fetches an image and asks a provider to describe it
type Suggester struct {
	Provider    providers.Provider
	Images      ImageFetcher
	Model       string
	Temperature float64
}

// Suggestion is a drafted alt text for one image
type Suggestion struct {
	ProductID string        `json:"product_id" yaml:"product_id"`
	ImageID   string        `json:"image_id" yaml:"image_id"`
	Alt       string        `json:"alt" yaml:"alt"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// Suggest drafts alt text for the image with imageID on p
func (s *Suggester) Suggest(ctx context.Context, p *models.Product, imageID string) (*Suggestion, error) {
	idx := p.ImageIndex(imageID)
	if idx < 0 {
		return nil, fmt.Errorf("image %s not found on product %s", imageID, p.ID)
	}
	img := p.Images[idx]
	if img.Src == "" {
		return nil, fmt.Errorf("image %s has no source URL", imageID)
	}

	start := time.Now()
	data, mimeType, err := s.Images.Fetch(ctx, img.Src)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}

	raw, err := s.Provider.Describe(ctx, providers.Config{
		Model:       s.Model,
		Temperature: s.Temperature,
		Prompt:      providers.BuildPrompt(p.Title),
		Image:       data,
		MIMEType:    mimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe image: %w", err)
	}

	alt := providers.CleanSuggestion(raw)
	if alt == "" {
		return nil, ErrEmptySuggestion
	}

	sug := &Suggestion{
		ProductID: p.ID,
		ImageID:   img.ID,
		Alt:       alt,
		Duration:  time.Since(start),
	}
	slog.Info("Drafted alt text", "product_id", p.ID, "image_id", img.ID, "chars", len(alt), "duration", sug.Duration)
	return sug, nil
}
