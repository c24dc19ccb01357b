package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"
)

// MaxImageBytes caps how much of a product image is read into memory
const MaxImageBytes = 20 << 20

// Fetcher retrieves product images from the catalog CDN
type Fetcher struct {
	HTTPClient *http.Client
}

// NewFetcher creates a new image fetcher
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Fetch downloads an image and returns its bytes and MIME type
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image URL returned status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image data: %w", err)
	}
	if len(imageData) > MaxImageBytes {
		return nil, "", fmt.Errorf("image larger than %d bytes", MaxImageBytes)
	}
	if len(imageData) == 0 {
		return nil, "", fmt.Errorf("image is empty")
	}

	mimeType := DetectMIMEType(resp.Header.Get("Content-Type"), url, imageData)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", fmt.Errorf("unexpected content type %q", mimeType)
	}

	slog.Debug("Fetched image", "url", url, "size_bytes", len(imageData), "mime_type", mimeType)
	return imageData, mimeType, nil
}

// DetectMIMEType prefers the response header, then the URL extension, then sniffing
func DetectMIMEType(header, url string, data []byte) string {
	if header != "" {
		if mt, _, err := mime.ParseMediaType(header); err == nil && mt != "application/octet-stream" {
			return mt
		}
	}
	clean := url
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}
	if mt := mime.TypeByExtension(strings.ToLower(path.Ext(clean))); mt != "" {
		if i := strings.IndexByte(mt, ';'); i >= 0 {
			mt = mt[:i]
		}
		return mt
	}
	mt := http.DetectContentType(data)
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return mt
}
