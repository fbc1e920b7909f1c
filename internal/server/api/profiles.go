package api

import (
	"net/http"

	"github.com/ayusman/gesturemix/internal/mapping"
)

// ProfileHandler serves profile and mapping resources from a registry.
type ProfileHandler struct {
	registry *mapping.Registry
}

// NewProfileHandler creates a new ProfileHandler for r.
func NewProfileHandler(r *mapping.Registry) *ProfileHandler {
	return &ProfileHandler{registry: r}
}

// Register adds the profile and mapping routes to mux.
func (h *ProfileHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/profiles", h.list)
	mux.HandleFunc("POST /api/profiles", h.create)
	mux.HandleFunc("GET /api/profiles/{id}", h.get)
	mux.HandleFunc("PUT /api/profiles/{id}", h.update)
	mux.HandleFunc("DELETE /api/profiles/{id}", h.delete)
	mux.HandleFunc("POST /api/profiles/{id}/activate", h.activate)
	mux.HandleFunc("POST /api/profiles/{id}/duplicate", h.duplicate)

	mux.HandleFunc("GET /api/profiles/{id}/mappings", h.listMappings)
	mux.HandleFunc("POST /api/profiles/{id}/mappings", h.addMapping)
	mux.HandleFunc("GET /api/profiles/{id}/mappings/{mid}", h.getMapping)
	mux.HandleFunc("PUT /api/profiles/{id}/mappings/{mid}", h.updateMapping)
	mux.HandleFunc("DELETE /api/profiles/{id}/mappings/{mid}", h.deleteMapping)
	mux.HandleFunc("POST /api/profiles/{id}/mappings/{mid}/enable", h.enableMapping)
	mux.HandleFunc("POST /api/profiles/{id}/mappings/{mid}/disable", h.disableMapping)
	mux.HandleFunc("POST /api/profiles/{id}/mappings/{mid}/duplicate", h.duplicateMapping)
}

type listProfilesResponse struct {
	ActiveID string             `json:"active_id"`
	Profiles []*mapping.Profile `json:"profiles"`
}

type duplicateRequest struct {
	Name string `json:"name"`
}

// list handles GET /api/profiles.
func (h *ProfileHandler) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, listProfilesResponse{
		ActiveID: h.registry.Active().ID,
		Profiles: h.registry.Profiles(),
	})
}

// create handles POST /api/profiles.
func (h *ProfileHandler) create(w http.ResponseWriter, r *http.Request) {
	var in mapping.Profile
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.registry.CreateProfile(in)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// get handles GET /api/profiles/{id}.
func (h *ProfileHandler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.registry.Profile(r.PathValue("id"))
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// update handles PUT /api/profiles/{id}.
func (h *ProfileHandler) update(w http.ResponseWriter, r *http.Request) {
	var in mapping.Profile
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.registry.UpdateProfile(r.PathValue("id"), in)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// delete handles DELETE /api/profiles/{id}.
func (h *ProfileHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.DeleteProfile(r.PathValue("id")); err != nil {
		writeRegistryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// activate handles POST /api/profiles/{id}/activate.
func (h *ProfileHandler) activate(w http.ResponseWriter, r *http.Request) {
	p, err := h.registry.Activate(r.PathValue("id"))
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// duplicate handles POST /api/profiles/{id}/duplicate. The body is optional.
func (h *ProfileHandler) duplicate(w http.ResponseWriter, r *http.Request) {
	var req duplicateRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.registry.DuplicateProfile(r.PathValue("id"), req.Name)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}
