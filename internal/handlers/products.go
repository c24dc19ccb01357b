package handlers

import (
	"net/http"
	"slices"

	"github.com/lehigh-university-libraries/alttext/internal/coverage"
	"github.com/lehigh-university-libraries/alttext/internal/models"
	"github.com/lehigh-university-libraries/alttext/internal/session"
)

type productView struct {
	models.Product
	Coverage coverage.Summary `json:"coverage"`
}

type applyRequest struct {
	TemplateID      string       `json:"template_id"`
	Field           models.Field `json:"field"`
	ImageID         string       `json:"image_id,omitempty"`
	ContinueOnError bool         `json:"continue_on_error"`
}

type clearRequest struct {
	Field           models.Field `json:"field"`
	ContinueOnError bool         `json:"continue_on_error"`
}

type previewRequest struct {
	Template string       `json:"template"`
	Field    models.Field `json:"field"`
	Index    int          `json:"index"`
}

type altRequest struct {
	Alt string `json:"alt"`
}

// HandleProducts lists the working set, or reloads it from the catalog on POST
func (h *Handler) HandleProducts(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		if h.fetcher == nil {
			h.writeError(w, "Catalog reload not configured", http.StatusNotImplemented)
			return
		}
		if err := h.session.Load(r.Context(), h.fetcher); err != nil {
			h.writeError(w, err.Error(), http.StatusBadGateway)
			return
		}
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	products := h.session.Products.GetAll()
	views := make([]productView, 0, len(products))
	for i := range products {
		views = append(views, productView{
			Product:  products[i],
			Coverage: coverage.AggregateProduct(&products[i]),
		})
	}
	h.writeJSON(w, views)
}

// HandleProductAction serves /api/products/{id}[/apply|/clear|/preview|/images/{imageID}/alt|/images/{imageID}/suggest]
func (h *Handler) HandleProductAction(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/api/products/")
	if len(parts) == 0 {
		h.writeError(w, "Not found", http.StatusNotFound)
		return
	}
	productID := parts[0]

	// suggest holds the lock only while reading and writing the session
	if r.Method == http.MethodPost && len(parts) == 4 && parts[1] == "images" && parts[3] == "suggest" {
		h.suggest(w, r, productID, parts[2])
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		p, ok := h.session.Products.Get(productID)
		if !ok {
			h.writeError(w, "Product not found", http.StatusNotFound)
			return
		}
		h.writeJSON(w, productView{Product: *p, Coverage: coverage.AggregateProduct(p)})
		return
	}

	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch {
	case len(parts) == 2 && parts[1] == "apply":
		h.apply(w, r, productID)
	case len(parts) == 2 && parts[1] == "clear":
		h.clear(w, r, productID)
	case len(parts) == 2 && parts[1] == "preview":
		h.preview(w, r, productID)
	case len(parts) == 4 && parts[1] == "images" && parts[3] == "alt":
		h.setAlt(w, r, productID, parts[2])
	default:
		h.writeError(w, "Not found", http.StatusNotFound)
	}
}

func policy(continueOnError bool) session.ErrorPolicy {
	if continueOnError {
		return session.ContinueOnError
	}
	return session.StopOnError
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request, productID string) {
	var req applyRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.TemplateID == "" {
		h.writeError(w, "template_id is required", http.StatusBadRequest)
		return
	}

	if req.ImageID != "" {
		out, err := h.session.Apply(r.Context(), productID, req.ImageID, req.TemplateID, req.Field)
		if err != nil {
			h.writeErr(w, err)
			return
		}
		h.writeJSON(w, out)
		return
	}

	run, err := h.session.ApplyAll(r.Context(), productID, req.TemplateID, req.Field, policy(req.ContinueOnError))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, run)
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request, productID string) {
	var req clearRequest
	if !h.decode(w, r, &req) {
		return
	}
	run, err := h.session.Clear(r.Context(), productID, req.Field, policy(req.ContinueOnError))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, run)
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request, productID string) {
	var req previewRequest
	if !h.decode(w, r, &req) {
		return
	}
	value, err := h.session.Preview(productID, req.Template, req.Field, req.Index)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, map[string]string{"value": value})
}

func (h *Handler) setAlt(w http.ResponseWriter, r *http.Request, productID, imageID string) {
	var req altRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.session.SetAlt(r.Context(), productID, imageID, req.Alt)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, out)
}

func (h *Handler) suggest(w http.ResponseWriter, r *http.Request, productID, imageID string) {
	if h.suggester == nil {
		h.writeError(w, "Suggestions not configured", http.StatusNotImplemented)
		return
	}
	p, ok := h.productCopy(productID)
	if !ok {
		h.writeError(w, "Product not found", http.StatusNotFound)
		return
	}
	if p.ImageIndex(imageID) < 0 {
		h.writeError(w, "Image not found", http.StatusNotFound)
		return
	}

	sug, err := h.suggester.Suggest(r.Context(), p, imageID)
	if err != nil {
		h.writeError(w, "Failed to suggest alt text: "+err.Error(), http.StatusBadGateway)
		return
	}
	if r.URL.Query().Get("apply") == "true" {
		h.mu.Lock()
		_, err := h.session.SetAlt(r.Context(), productID, imageID, sug.Alt)
		h.mu.Unlock()
		if err != nil {
			h.writeErr(w, err)
			return
		}
	}
	h.writeJSON(w, sug)
}

// productCopy returns a detached copy of a product taken under the handler lock
func (h *Handler) productCopy(productID string) (*models.Product, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.session.Products.Get(productID)
	if !ok {
		return nil, false
	}
	cp := *p
	cp.Images = slices.Clone(p.Images)
	cp.Tags = slices.Clone(p.Tags)
	cp.Variants = slices.Clone(p.Variants)
	cp.SKUs = slices.Clone(p.SKUs)
	return &cp, true
}

// HandleCoverage returns the global summary
func (h *Handler) HandleCoverage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.writeJSON(w, h.session.Coverage())
}
