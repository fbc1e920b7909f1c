package api

import (
	"net/http"

	"github.com/ayusman/gesturemix/internal/mapping"
)

type listMappingsResponse struct {
	ProfileID string            `json:"profile_id"`
	Mappings  []mapping.Mapping `json:"mappings"`
}

func (h *ProfileHandler) listMappings(w http.ResponseWriter, r *http.Request) {
	p, err := h.registry.Profile(r.PathValue("id"))
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listMappingsResponse{ProfileID: p.ID, Mappings: p.Mappings})
}

func (h *ProfileHandler) getMapping(w http.ResponseWriter, r *http.Request) {
	p, err := h.registry.Profile(r.PathValue("id"))
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	m, ok := p.Mapping(r.PathValue("mid"))
	if !ok {
		writeRegistryError(w, &mapping.NotFoundError{Kind: "mapping", ID: r.PathValue("mid")})
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *ProfileHandler) addMapping(w http.ResponseWriter, r *http.Request) {
	var in mapping.Mapping
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.registry.AddMapping(r.PathValue("id"), in)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// updateMapping replaces a mapping. The id in the path wins over the body.
func (h *ProfileHandler) updateMapping(w http.ResponseWriter, r *http.Request) {
	var in mapping.Mapping
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in.ID = r.PathValue("mid")

	m, err := h.registry.UpdateMapping(r.PathValue("id"), in)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *ProfileHandler) deleteMapping(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.DeleteMapping(r.PathValue("id"), r.PathValue("mid")); err != nil {
		writeRegistryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProfileHandler) enableMapping(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, true)
}

func (h *ProfileHandler) disableMapping(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, false)
}

func (h *ProfileHandler) setEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	m, err := h.registry.SetMappingEnabled(r.PathValue("id"), r.PathValue("mid"), enabled)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *ProfileHandler) duplicateMapping(w http.ResponseWriter, r *http.Request) {
	m, err := h.registry.DuplicateMapping(r.PathValue("id"), r.PathValue("mid"))
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}
