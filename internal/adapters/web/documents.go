package web

import (
	"net/http"

	"billing-engine/internal/app"
	"billing-engine/internal/core"

	"github.com/go-chi/chi/v5"
)

// documentRoutes mounts the CRUD routes for one document kind:
//
//	GET    /            list (?status= filters)
//	POST   /            create
//	GET    /{id}        fetch
//	PUT    /{id}        replace
//	DELETE /{id}        delete
func (h *Handler) documentRoutes(kind core.DocumentKind) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", h.apiListDocuments(kind))
		r.Post("/", h.apiCreateDocument(kind))
		r.Get("/{id}", h.apiGetDocument(kind))
		r.Put("/{id}", h.apiUpdateDocument(kind))
		r.Delete("/{id}", h.apiDeleteDocument(kind))
	}
}

func (h *Handler) apiListDocuments(kind core.DocumentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := h.svc.ListDocuments(r.Context(), kind, r.URL.Query().Get("status"))
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, result)
	}
}

// apiCreateDocument handles POST /api/{invoices,quotes}.
// Body: { customer_id, items: [{product_id, quantity, unit_price?, apply_vat?}],
// tax_rate?, status?, notes?, date?, due_date?, payment_date?, expiry_date? }
func (h *Handler) apiCreateDocument(kind core.DocumentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req app.DocumentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		result, err := h.svc.CreateDocument(r.Context(), kind, req)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSONStatus(w, http.StatusCreated, result)
	}
}

func (h *Handler) apiGetDocument(kind core.DocumentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := h.svc.GetDocument(r.Context(), kind, chi.URLParam(r, "id"))
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, result)
	}
}

func (h *Handler) apiUpdateDocument(kind core.DocumentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req app.DocumentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		result, err := h.svc.UpdateDocument(r.Context(), kind, chi.URLParam(r, "id"), req)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, result)
	}
}

func (h *Handler) apiDeleteDocument(kind core.DocumentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.svc.DeleteDocument(r.Context(), kind, chi.URLParam(r, "id")); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// apiPreviewTotals handles POST /api/totals/preview. Nothing is persisted.
func (h *Handler) apiPreviewTotals(w http.ResponseWriter, r *http.Request) {
	var req app.PreviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.PreviewTotals(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
