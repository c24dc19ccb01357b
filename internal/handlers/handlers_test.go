package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/alttext/internal/coverage"
	"github.com/lehigh-university-libraries/alttext/internal/models"
	"github.com/lehigh-university-libraries/alttext/internal/providers"
	"github.com/lehigh-university-libraries/alttext/internal/session"
	"github.com/lehigh-university-libraries/alttext/internal/storage"
	"github.com/lehigh-university-libraries/alttext/internal/suggest"
	"github.com/lehigh-university-libraries/alttext/internal/templating"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type okUpdater struct{ fail bool }

func (u okUpdater) PushImageField(context.Context, string, string, models.Field, string) bool {
	return !u.fail
}

type staticFetcher struct {
	products []models.Product
	err      error
}

func (f staticFetcher) FetchProducts(context.Context, ...string) ([]models.Product, error) {
	return f.products, f.err
}

type zeroSource struct{}

func (zeroSource) IntN(int) int { return 0 }

func catalogProducts() []models.Product {
	return []models.Product{{
		ID:     "gid://shopify/Product/1",
		Title:  "Blue Denim Jacket",
		Vendor: "Acme",
		Images: []models.Image{
			{ID: "gid://shopify/MediaImage/10", Src: "https://cdn.example.com/a.jpg", Filename: "a.jpg"},
			{ID: "gid://shopify/MediaImage/11", Src: "https://cdn.example.com/b.jpg", Filename: "b.jpg"},
		},
	}}
}

func newTestServer(t *testing.T, opts ...Option) (*httptest.Server, *session.Session) {
	t.Helper()
	sess := session.New(nil, templating.NewResolver(zeroSource{}), okUpdater{})
	require.NoError(t, sess.Load(context.Background(), staticFetcher{products: catalogProducts()}))
	srv := httptest.NewServer(New(sess, opts...).Routes())
	t.Cleanup(srv.Close)
	return srv, sess
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestTemplateCRUD(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	persister := storage.NewYAMLFile(path)
	srv, _ := newTestServer(t, WithPersister(persister))
	base := srv.URL + "/api/templates/alt"

	resp := do(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeBody[[]models.Template](t, resp))

	resp = do(t, http.MethodPost, base, `{"name":"Basic","template":"{title} - {vendor}"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[models.Template](t, resp)
	assert.Equal(t, "alt_1", created.ID)

	resp = do(t, http.MethodPut, base+"/alt_1", `{"name":"Renamed","template":"{title}"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Renamed", decodeBody[models.Template](t, resp).Name)

	snap, err := persister.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Alt.Templates, 1)
	assert.Equal(t, "Renamed", snap.Alt.Templates[0].Name)

	resp = do(t, http.MethodDelete, base+"/alt_1", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodDelete, base+"/alt_1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTemplateErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"empty name", http.MethodPost, "/api/templates/filename", `{"name":"","template":"{title}"}`, http.StatusBadRequest},
		{"bad json", http.MethodPost, "/api/templates/alt", `{`, http.StatusBadRequest},
		{"unknown pool", http.MethodGet, "/api/templates/title", "", http.StatusNotFound},
		{"update missing", http.MethodPut, "/api/templates/alt/alt_9", `{"name":"a","template":"b"}`, http.StatusNotFound},
		{"update missing with empty body", http.MethodPut, "/api/templates/alt/alt_42", `{"name":"","template":""}`, http.StatusNotFound},
		{"method", http.MethodPatch, "/api/templates/alt", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, tt.method, srv.URL+tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

type failingPersister struct{}

func (failingPersister) Load(context.Context) (storage.Snapshot, error) {
	return storage.Snapshot{}, nil
}

func (failingPersister) Save(context.Context, storage.Snapshot) error {
	return errors.New("disk full")
}

func TestTemplateSaveFailureRollsBack(t *testing.T) {
	srv, sess := newTestServer(t, WithPersister(failingPersister{}))
	existing, err := sess.Templates.Pool(models.FieldAlt).Create("Basic", "{title}")
	require.NoError(t, err)
	base := srv.URL + "/api/templates/alt"

	resp := do(t, http.MethodPost, base, `{"name":"New","template":"{vendor}"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp = do(t, http.MethodPut, base+"/"+existing.ID, `{"name":"Renamed","template":"{vendor}"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp = do(t, http.MethodDelete, base+"/"+existing.ID, "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	assert.Equal(t, []models.Template{existing}, sess.Templates.Pool(models.FieldAlt).List())

	next, err := sess.Templates.Pool(models.FieldAlt).Create("Next", "{title}")
	require.NoError(t, err)
	assert.Equal(t, "alt_2", next.ID)
}

func TestProductsAndCoverage(t *testing.T) {
	srv, sess := newTestServer(t)
	_, err := sess.SetAlt(context.Background(), "gid://shopify/Product/1", "10", "Front")
	require.NoError(t, err)

	resp := do(t, http.MethodGet, srv.URL+"/api/products", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	views := decodeBody[[]productView](t, resp)
	require.Len(t, views, 1)
	assert.Equal(t, 50.0, views[0].Coverage.TextCoveragePct)

	resp = do(t, http.MethodGet, srv.URL+"/api/products/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Blue Denim Jacket", decodeBody[productView](t, resp).Title)

	resp = do(t, http.MethodGet, srv.URL+"/api/coverage", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sum := decodeBody[coverage.Summary](t, resp)
	assert.Equal(t, 2, sum.TotalImages)
	assert.Equal(t, 1, sum.WithText)
}

func TestReloadProducts(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := do(t, http.MethodPost, srv.URL+"/api/products", "")
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)

	srv, _ = newTestServer(t, WithFetcher(staticFetcher{err: errors.New("down")}))
	resp = do(t, http.MethodPost, srv.URL+"/api/products", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestApplyEndpoint(t *testing.T) {
	srv, sess := newTestServer(t)
	tmpl, err := sess.Templates.Pool(models.FieldFilename).Create("Vendor", "{vendor}-product")
	require.NoError(t, err)

	resp := do(t, http.MethodPost, srv.URL+"/api/products/1/apply",
		`{"template_id":"`+tmpl.ID+`","field":"filename"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	run := decodeBody[session.Run](t, resp)
	require.Len(t, run.Outcomes, 2)
	assert.Equal(t, "acme-product.jpg", run.Outcomes[0].Value)
	assert.Equal(t, "acme-product-2.jpg", run.Outcomes[1].Value)
	assert.Equal(t, models.FieldFilename, run.Field)

	resp = do(t, http.MethodPost, srv.URL+"/api/products/1/apply",
		`{"template_id":"`+tmpl.ID+`","field":"filename","image_id":"11"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeBody[session.Outcome](t, resp)
	assert.Equal(t, "acme-product-2.jpg", out.Value)

	resp = do(t, http.MethodPost, srv.URL+"/api/products/99/apply", `{"template_id":"x"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/products/1/apply", `{"field":"alt"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/products/1/apply", `{"template_id":"x","field":"title"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClearPreviewAndAlt(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/products/1/images/10/alt", `{"alt":"Front view"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Front view", decodeBody[session.Outcome](t, resp).Value)

	resp = do(t, http.MethodPost, srv.URL+"/api/products/1/preview", `{"template":"{title} {index}","field":"alt","index":1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Blue Denim Jacket 2", decodeBody[map[string]string](t, resp)["value"])

	resp = do(t, http.MethodPost, srv.URL+"/api/products/1/clear", `{"field":"alt"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/coverage", "")
	assert.Equal(t, 0, decodeBody[coverage.Summary](t, resp).WithText)

	resp = do(t, http.MethodPost, srv.URL+"/api/products/1/images/99/alt", `{"alt":"x"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

type fixedImages struct{}

func (fixedImages) Fetch(context.Context, string) ([]byte, string, error) {
	return []byte("img"), "image/jpeg", nil
}

type fixedProvider struct{}

func (fixedProvider) Describe(context.Context, providers.Config) (string, error) {
	return "Blue denim jacket, front view", nil
}

func TestSuggestEndpoint(t *testing.T) {
	srv, sess := newTestServer(t)
	resp := do(t, http.MethodPost, srv.URL+"/api/products/1/images/10/suggest", "")
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)

	srv, sess = newTestServer(t, WithSuggester(&suggest.Suggester{Provider: fixedProvider{}, Images: fixedImages{}}))
	resp = do(t, http.MethodPost, srv.URL+"/api/products/1/images/10/suggest?apply=true", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Blue denim jacket, front view", decodeBody[suggest.Suggestion](t, resp).Alt)

	p, ok := sess.Products.Get("1")
	require.True(t, ok)
	assert.Equal(t, "Blue denim jacket, front view", p.Images[0].Alt)
}

// coverageProvider reads the coverage endpoint while describing, which only
// completes if the suggest handler is not holding the lock
type coverageProvider struct {
	url string
}

func (p *coverageProvider) Describe(ctx context.Context, _ providers.Config) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url+"/api/coverage", nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.New(resp.Status)
	}
	return "Blue denim jacket, back view", nil
}

func TestSuggestDoesNotBlockOtherRequests(t *testing.T) {
	provider := &coverageProvider{}
	srv, sess := newTestServer(t, WithSuggester(&suggest.Suggester{Provider: provider, Images: fixedImages{}}))
	provider.url = srv.URL

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/api/products/1/images/11/suggest?apply=true", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	p, ok := sess.Products.Get("1")
	require.True(t, ok)
	assert.Equal(t, "Blue denim jacket, back view", p.Images[1].Alt)
}

func TestHealthcheck(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := do(t, http.MethodGet, srv.URL+"/healthcheck", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
