package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/alttext/internal/models"
	"github.com/shopspring/decimal"
)

const DefaultAPIVersion = "2023-10"

// Fetcher returns fully populated products; with ids only those products
type Fetcher interface {
	FetchProducts(ctx context.Context, ids ...string) ([]models.Product, error)
}

// Updater pushes a single image field to the remote catalog, best effort
type Updater interface {
	PushImageField(ctx context.Context, productID, imageID string, field models.Field, value string) bool
}

// Client talks to the Shopify Admin API
type Client struct {
	BaseURL     string
	AccessToken string
	StoreName   string
	PageSize    int
	httpClient  *http.Client
}

var (
	_ Fetcher = (*Client)(nil)
	_ Updater = (*Client)(nil)
)

// NewClient creates a new Shopify client for the given shop domain
func NewClient(shopURL, accessToken, apiVersion string) *Client {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	return &Client{
		BaseURL:     fmt.Sprintf("https://%s/admin/api/%s", NormalizeShopURL(shopURL), apiVersion),
		AccessToken: accessToken,
		PageSize:    50,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// NormalizeShopURL strips the scheme and ensures the .myshopify.com suffix
func NormalizeShopURL(shopURL string) string {
	s := strings.TrimSpace(shopURL)
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimRight(s, "/")
	if s != "" && !strings.Contains(s, ".myshopify.com") {
		s += ".myshopify.com"
	}
	return s
}

// Shop is the subset of /shop.json used for connection checks
type Shop struct {
	Name        string `json:"name"`
	Domain      string `json:"domain"`
	Email       string `json:"email"`
	CountryName string `json:"country_name"`
	PlanName    string `json:"plan_name"`
}

// CheckConnection fetches the shop record to verify the credentials
func (c *Client) CheckConnection(ctx context.Context) (*Shop, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/shop.json", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach Shopify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return nil, fmt.Errorf("shopify API returned status %d: %s", resp.StatusCode, string(body))
	}

	var shopResp struct {
		Shop Shop `json:"shop"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&shopResp); err != nil {
		return nil, fmt.Errorf("failed to decode shop response: %w", err)
	}
	return &shopResp.Shop, nil
}

const productsQuery = `query Products($first: Int!, $query: String) {
  products(first: $first, query: $query) {
    edges {
      node {
        id
        title
        description
        vendor
        productType
        tags
        media(first: 20) {
          edges {
            node {
              ... on MediaImage {
                id
                alt
                image { url }
              }
            }
          }
        }
        variants(first: 10) {
          edges {
            node { id title price sku }
          }
        }
      }
    }
  }
}`

type productsResponse struct {
	Data struct {
		Products struct {
			Edges []struct {
				Node productNode `json:"node"`
			} `json:"edges"`
		} `json:"products"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type productNode struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Vendor      string   `json:"vendor"`
	ProductType string   `json:"productType"`
	Tags        []string `json:"tags"`
	Media       struct {
		Edges []struct {
			Node struct {
				ID    string  `json:"id"`
				Alt   *string `json:"alt"`
				Image *struct {
					URL string `json:"url"`
				} `json:"image"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"media"`
	Variants struct {
		Edges []struct {
			Node struct {
				ID    string          `json:"id"`
				Title string          `json:"title"`
				Price decimal.Decimal `json:"price"`
				SKU   *string         `json:"sku"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"variants"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// FetchProducts fetches products (and their images and variants) via GraphQL
func (c *Client) FetchProducts(ctx context.Context, ids ...string) ([]models.Product, error) {
	variables := map[string]any{"first": c.PageSize}
	if len(ids) > 0 {
		variables["query"] = idFilter(ids)
	}

	var result productsResponse
	if err := c.graphQL(ctx, productsQuery, variables, &result); err != nil {
		return nil, err
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("shopify GraphQL error: %s", result.Errors[0].Message)
	}

	products := make([]models.Product, 0, len(result.Data.Products.Edges))
	for _, edge := range result.Data.Products.Edges {
		products = append(products, c.toProduct(edge.Node))
	}

	slog.Info("Fetched products", "count", len(products))
	return products, nil
}

func (c *Client) toProduct(n productNode) models.Product {
	p := models.Product{
		ID:          n.ID,
		Title:       n.Title,
		Description: n.Description,
		Vendor:      n.Vendor,
		Type:        n.ProductType,
		Tags:        n.Tags,
		Images:      []models.Image{},
		Variants:    []models.Variant{},
		Store:       c.StoreName,
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}

	for _, edge := range n.Media.Edges {
		// non-image media (video, 3D) has no image
		if edge.Node.ID == "" || edge.Node.Image == nil {
			continue
		}
		img := models.Image{
			ID:       edge.Node.ID,
			Src:      edge.Node.Image.URL,
			Filename: FilenameFromURL(edge.Node.Image.URL),
		}
		if edge.Node.Alt != nil {
			img.Alt = *edge.Node.Alt
		}
		p.Images = append(p.Images, img)
	}

	for _, edge := range n.Variants.Edges {
		v := models.Variant{
			ID:    edge.Node.ID,
			Title: edge.Node.Title,
			Price: edge.Node.Price,
		}
		if edge.Node.SKU != nil {
			v.SKU = *edge.Node.SKU
		}
		p.Variants = append(p.Variants, v)
	}
	p.SKUs = models.CollectSKUs(p.Variants)

	return p
}

// FilenameFromURL returns the last path segment of an image URL, without the query
func FilenameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return ""
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return ""
	}
	return name
}

// idFilter builds the products search query for a set of ids
func idFilter(ids []string) string {
	quoted := make([]string, 0, len(ids))
	for _, id := range ids {
		// search syntax takes the numeric id, not the gid
		quoted = append(quoted, models.ShortID(id))
	}
	return "id:" + strings.Join(quoted, " OR id:")
}

const fileUpdateMutation = `mutation fileUpdate($files: [FileUpdateInput!]!) {
  fileUpdate(files: $files) {
    files { id }
    userErrors { field message }
  }
}`

// PushImageField updates alt text or filename of one image. It does not retry;
// failures are logged and reported as false.
func (c *Client) PushImageField(ctx context.Context, productID, imageID string, field models.Field, value string) bool {
	input := map[string]any{"id": imageID}
	switch field {
	case models.FieldFilename:
		input["filename"] = value
	default:
		input["alt"] = value
	}

	var result struct {
		Data struct {
			FileUpdate struct {
				UserErrors []struct {
					Field   []string `json:"field"`
					Message string   `json:"message"`
				} `json:"userErrors"`
			} `json:"fileUpdate"`
		} `json:"data"`
		Errors []graphQLError `json:"errors"`
	}

	vars := map[string]any{"files": []any{input}}
	if err := c.graphQL(ctx, fileUpdateMutation, vars, &result); err != nil {
		slog.Error("Failed to push image field", "product_id", productID, "image_id", imageID, "field", field, "err", err)
		return false
	}
	if len(result.Errors) > 0 {
		slog.Error("Shopify rejected image update", "product_id", productID, "image_id", imageID, "field", field, "err", result.Errors[0].Message)
		return false
	}
	if errs := result.Data.FileUpdate.UserErrors; len(errs) > 0 {
		slog.Warn("Shopify rejected image update", "product_id", productID, "image_id", imageID, "field", field, "err", errs[0].Message)
		return false
	}

	slog.Debug("Pushed image field", "product_id", productID, "image_id", imageID, "field", field)
	return true
}

func (c *Client) graphQL(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/graphql.json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach Shopify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return fmt.Errorf("shopify API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode Shopify response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.AccessToken)
}
