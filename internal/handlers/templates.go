package handlers

import (
	"net/http"

	"github.com/lehigh-university-libraries/alttext/internal/models"
	"github.com/lehigh-university-libraries/alttext/internal/storage"
)

type templateRequest struct {
	Name     string `json:"name"`
	Template string `json:"template"`
}

// HandleTemplates serves /api/templates/{pool} and /api/templates/{pool}/{id}
func (h *Handler) HandleTemplates(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/api/templates/")
	if len(parts) == 0 || len(parts) > 2 || parts[0] == "" {
		h.writeError(w, "Not found", http.StatusNotFound)
		return
	}
	field, err := models.ParseField(parts[0])
	if err != nil {
		h.writeError(w, err.Error(), http.StatusNotFound)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	pool := h.session.Templates.Pool(field)
	prev := h.session.Templates.Snapshot()

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.writeJSON(w, pool.List())
		case http.MethodPost:
			var req templateRequest
			if !h.decode(w, r, &req) {
				return
			}
			t, err := pool.Create(req.Name, req.Template)
			if err != nil {
				h.writeErr(w, err)
				return
			}
			if !h.persist(w, r, prev) {
				return
			}
			h.writeJSONStatus(w, http.StatusCreated, t)
		default:
			h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := parts[1]
	switch r.Method {
	case http.MethodGet:
		t, ok := pool.Get(id)
		if !ok {
			h.writeError(w, "Template not found", http.StatusNotFound)
			return
		}
		h.writeJSON(w, t)
	case http.MethodPut:
		var req templateRequest
		if !h.decode(w, r, &req) {
			return
		}
		t, err := pool.Update(id, req.Name, req.Template)
		if err != nil {
			h.writeErr(w, err)
			return
		}
		if !h.persist(w, r, prev) {
			return
		}
		h.writeJSON(w, t)
	case http.MethodDelete:
		if err := pool.Delete(id); err != nil {
			h.writeErr(w, err)
			return
		}
		if !h.persist(w, r, prev) {
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// persist saves the template pools when a persister is configured. On failure
// the pools are rolled back to prev.
func (h *Handler) persist(w http.ResponseWriter, r *http.Request, prev storage.Snapshot) bool {
	if h.persister == nil {
		return true
	}
	if err := h.persister.Save(r.Context(), h.session.Templates.Snapshot()); err != nil {
		h.session.Templates.Restore(prev)
		h.writeError(w, "Failed to save templates: "+err.Error(), http.StatusInternalServerError)
		return false
	}
	return true
}
