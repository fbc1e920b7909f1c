package api

import (
	"io"
	"net/http"

	"github.com/ayusman/gesturemix/internal/mapping"
)

// BundleHandler exports and imports profile bundles.
type BundleHandler struct {
	registry *mapping.Registry
}

// NewBundleHandler creates a new BundleHandler for r.
func NewBundleHandler(r *mapping.Registry) *BundleHandler {
	return &BundleHandler{registry: r}
}

// Register adds the bundle routes to mux.
func (h *BundleHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/bundle", h.export)
	mux.HandleFunc("POST /api/bundle", h.importBundle)
}

// export handles GET /api/bundle. Repeated ?profile= parameters select
// profiles; without them every user profile is exported.
func (h *BundleHandler) export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	b, err := h.registry.Export(q.Get("author"), q.Get("description"), q["profile"]...)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="gesturemix-profiles.json"`)
	if err := b.Encode(w); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode bundle")
	}
}

// importBundle handles POST /api/bundle?policy=merge|overwrite.
func (h *BundleHandler) importBundle(w http.ResponseWriter, r *http.Request) {
	policy, err := mapping.ParseImportPolicy(r.URL.Query().Get("policy"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := mapping.DecodeBundle(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.registry.Import(b, policy)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
