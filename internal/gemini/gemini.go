package gemini

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/lehigh-university-libraries/alttext/internal/providers"
	"google.golang.org/api/option"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-1.5-flash"

// Gemini is a provider for Google Gemini
type Gemini struct {
	// APIKey overrides GEMINI_API_KEY when set
	APIKey string
}

// New returns a new Gemini provider
func New() *Gemini {
	return &Gemini{}
}

// Describe asks Gemini for a description of the configured image
func (g *Gemini) Describe(ctx context.Context, config providers.Config) (string, error) {
	apiKey := g.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}
	if len(config.Image) == 0 {
		return "", fmt.Errorf("no image data provided")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	modelName := config.Model
	if modelName == "" {
		modelName = DefaultModel
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(float32(config.Temperature))

	resp, err := model.GenerateContent(ctx,
		genai.ImageData(imageFormat(config.MIMEType), config.Image),
		genai.Text(config.Prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("empty content returned from Gemini")
	}

	if txt, ok := candidate.Content.Parts[0].(genai.Text); ok {
		return string(txt), nil
	}

	return "", fmt.Errorf("unexpected response format from Gemini")
}

// imageFormat maps a MIME type to the short format genai.ImageData expects
func imageFormat(mimeType string) string {
	format := strings.TrimPrefix(strings.ToLower(mimeType), "image/")
	if i := strings.IndexByte(format, ';'); i >= 0 {
		format = format[:i]
	}
	switch format {
	case "", "jpg":
		return "jpeg"
	default:
		return format
	}
}
