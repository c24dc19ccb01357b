package providers

import (
	"context"
	"fmt"
	"strings"
)

// MaxAltLength is the longest alt text a suggestion is trimmed to
const MaxAltLength = 125

// DefaultPrompt asks a vision model for product alt text
const DefaultPrompt = `Write alt text for this product photo for an online store.
Product: %s
Describe what is visible in one sentence of plain text, under 125 characters.
Do not start with "Image of" or "Picture of". Do not use quotes.`

// Config represents the configuration for an LLM provider
type Config struct {
	Model       string
	Temperature float64
	Prompt      string

	// Image is the raw image sent alongside the prompt
	Image    []byte
	MIMEType string
}

// Provider defines the interface for a vision-capable LLM provider
type Provider interface {
	Describe(ctx context.Context, config Config) (string, error)
}

// BuildPrompt fills DefaultPrompt with the product title
func BuildPrompt(title string) string {
	return fmt.Sprintf(DefaultPrompt, title)
}

// CleanSuggestion strips quotes and whitespace from model output and trims it
// to MaxAltLength on a word boundary
func CleanSuggestion(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = strings.Trim(s, `"'`)
	s = strings.Join(strings.Fields(s), " ")

	r := []rune(s)
	if len(r) <= MaxAltLength {
		return s
	}
	cut := string(r[:MaxAltLength])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:-")
}
