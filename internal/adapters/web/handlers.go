package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"billing-engine/internal/app"
	"billing-engine/internal/core"

	"github.com/go-chi/chi/v5"
)

// Options configures NewHandler.
type Options struct {
	AllowedOrigins []string
	// JWTSecret enables bearer-token auth on /api routes when non-empty.
	JWTSecret string
	Logger    *slog.Logger
}

// Handler holds the ApplicationService and the auth settings the routes share.
type Handler struct {
	svc       app.ApplicationService
	jwtSecret string
	logger    *slog.Logger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		svc:       svc,
		jwtSecret: opts.JWTSecret,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recoverer(logger))
	r.Use(CORS(opts.AllowedOrigins))

	// ── Health (public) ───────────────────────────────────────────────────────
	r.Get("/api/health", h.health)

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Get("/api/auth/me", h.me)

		// ── Catalog ───────────────────────────────────────────────────────────
		r.Get("/api/products", h.apiListProducts)
		r.Post("/api/products", h.apiCreateProduct)
		r.Get("/api/products/{id}", h.apiGetProduct)
		r.Put("/api/products/{id}", h.apiUpdateProduct)
		r.Get("/api/stock", h.apiStockLevels)
		r.Get("/api/stock/low", h.apiLowStock)

		// ── Billing ───────────────────────────────────────────────────────────
		r.Route("/api/invoices", h.documentRoutes(core.KindInvoice))
		r.Route("/api/quotes", h.documentRoutes(core.KindQuote))
		r.Post("/api/totals/preview", h.apiPreviewTotals)
	})

	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

// me handles GET /api/auth/me and returns the caller's token identity.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	type meResponse struct {
		Subject string `json:"subject"`
		Role    string `json:"role,omitempty"`
	}
	claims := authFromContext(r.Context())
	if claims == nil {
		writeJSON(w, meResponse{Subject: "anonymous"})
		return
	}
	writeJSON(w, meResponse{Subject: claims.Subject, Role: claims.Role})
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
