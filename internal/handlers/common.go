package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/lehigh-university-libraries/alttext/internal/catalog"
	"github.com/lehigh-university-libraries/alttext/internal/session"
	"github.com/lehigh-university-libraries/alttext/internal/storage"
	"github.com/lehigh-university-libraries/alttext/internal/suggest"
)

type Handler struct {
	// net/http serves requests concurrently; the session is not safe for that
	mu        sync.Mutex
	session   *session.Session
	persister storage.Persister
	fetcher   catalog.Fetcher
	suggester *suggest.Suggester
}

// Option configures optional Handler dependencies
type Option func(*Handler)

// WithPersister saves template pools after every mutation
func WithPersister(p storage.Persister) Option {
	return func(h *Handler) { h.persister = p }
}

// WithFetcher enables POST /api/products to reload the catalog
func WithFetcher(f catalog.Fetcher) Option {
	return func(h *Handler) { h.fetcher = f }
}

// WithSuggester enables the alt-text suggestion endpoint
func WithSuggester(s *suggest.Suggester) Option {
	return func(h *Handler) { h.suggester = s }
}

func New(sess *session.Session, opts ...Option) *Handler {
	h := &Handler{session: sess}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes registers every endpoint on a new ServeMux
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/templates/", h.HandleTemplates)
	mux.HandleFunc("/api/products", h.HandleProducts)
	mux.HandleFunc("/api/products/", h.HandleProductAction)
	mux.HandleFunc("/api/coverage", h.HandleCoverage)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	return mux
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data any) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message)
	} else {
		slog.Debug("Request rejected", "code", code, "msg", message)
	}
	http.Error(w, message, code)
}

// writeErr maps domain errors onto HTTP status codes
func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrValidation):
		h.writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, session.ErrProductNotFound),
		errors.Is(err, session.ErrImageNotFound):
		h.writeError(w, err.Error(), http.StatusNotFound)
	default:
		h.writeError(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// pathParts splits what follows prefix into non-empty segments
func pathParts(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}
