package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/lehigh-university-libraries/alttext/internal/providers"
)

// DefaultModel is a small vision model available on most Ollama installs
const DefaultModel = "llava"

// Ollama is a provider for Ollama
type Ollama struct {
	// BaseURL overrides OLLAMA_URL when set
	BaseURL    string
	HTTPClient *http.Client
}

// New returns a new Ollama provider
func New() *Ollama {
	return &Ollama{HTTPClient: &http.Client{}}
}

func (o *Ollama) baseURL() string {
	if o.BaseURL != "" {
		return o.BaseURL
	}
	if u := os.Getenv("OLLAMA_URL"); u != "" {
		return u
	}
	return "http://localhost:11434"
}

// Describe asks an Ollama vision model for a description of the configured image
func (o *Ollama) Describe(ctx context.Context, config providers.Config) (string, error) {
	if len(config.Image) == 0 {
		return "", fmt.Errorf("no image data provided")
	}
	model := config.Model
	if model == "" {
		model = DefaultModel
	}

	requestBody, err := json.Marshal(map[string]any{
		"model":  model,
		"prompt": config.Prompt,
		"images": []string{base64.StdEncoding.EncodeToString(config.Image)},
		"stream": false,
		"options": map[string]any{
			"temperature": config.Temperature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL()+"/api/generate", bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	return response.Response, nil
}
