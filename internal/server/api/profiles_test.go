package api

import (
	"net/http"
	"testing"

	"github.com/ayusman/gesturemix/internal/gesture"
	"github.com/ayusman/gesturemix/internal/mapping"
)

func volumeMapping() mapping.Mapping {
	return mapping.Mapping{
		Name:          "Volume",
		Gesture:       gesture.Pinch,
		Hand:          mapping.HandEither,
		Target:        "master.volume",
		Mode:          mapping.ModeContinuous,
		Input:         mapping.Range{Min: 0, Max: 1},
		Output:        mapping.Range{Min: 0, Max: 1},
		MinConfidence: 0.6,
		Enabled:       true,
	}
}

func TestProfileHandler_List(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rec := do(t, mux, http.MethodGet, "/api/profiles", nil)
	expectStatus(t, rec, http.StatusOK)

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var resp listProfilesResponse
	decode(t, rec, &resp)
	if resp.ActiveID != mapping.DefaultProfileID {
		t.Errorf("active id = %q, want %q", resp.ActiveID, mapping.DefaultProfileID)
	}
	if len(resp.Profiles) != 2 {
		t.Fatalf("expected the 2 built-in profiles, got %d", len(resp.Profiles))
	}
	for _, p := range resp.Profiles {
		if !p.BuiltIn {
			t.Errorf("profile %s should be built in", p.ID)
		}
	}
}

func TestProfileHandler_CreateGetUpdateDelete(t *testing.T) {
	mux, _, s := newTestMux(t)

	rec := do(t, mux, http.MethodPost, "/api/profiles", mapping.Profile{
		Name:     "Club set",
		Mappings: []mapping.Mapping{volumeMapping()},
	})
	expectStatus(t, rec, http.StatusCreated)

	var created mapping.Profile
	decode(t, rec, &created)
	if created.ID == "" || created.Version != 1 || created.Sensitivity != 1 {
		t.Fatalf("unexpected created profile: %+v", created)
	}
	if len(created.Mappings) != 1 || created.Mappings[0].ID == "" {
		t.Fatalf("mapping id should be generated: %+v", created.Mappings)
	}
	if _, err := s.Profiles().Get(created.ID); err != nil {
		t.Errorf("created profile should be stored: %v", err)
	}

	rec = do(t, mux, http.MethodGet, "/api/profiles/"+created.ID, nil)
	expectStatus(t, rec, http.StatusOK)

	update := created
	update.Name = "Club set v2"
	update.Sensitivity = 1.5
	rec = do(t, mux, http.MethodPut, "/api/profiles/"+created.ID, update)
	expectStatus(t, rec, http.StatusOK)
	var updated mapping.Profile
	decode(t, rec, &updated)
	if updated.Name != "Club set v2" || updated.Version != 2 {
		t.Errorf("unexpected update result: name %q version %d", updated.Name, updated.Version)
	}

	rec = do(t, mux, http.MethodDelete, "/api/profiles/"+created.ID, nil)
	expectStatus(t, rec, http.StatusNoContent)

	rec = do(t, mux, http.MethodGet, "/api/profiles/"+created.ID, nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestProfileHandler_ValidationIssues(t *testing.T) {
	mux, _, _ := newTestMux(t)

	bad := volumeMapping()
	bad.Input = mapping.Range{Min: 1, Max: 0}
	bad.MinConfidence = 1.5
	rec := do(t, mux, http.MethodPost, "/api/profiles", mapping.Profile{Name: "", Mappings: []mapping.Mapping{bad}})
	expectStatus(t, rec, http.StatusUnprocessableEntity)

	var resp errorResponse
	decode(t, rec, &resp)
	fields := map[string]string{}
	for _, is := range resp.Issues {
		fields[is.Field] = is.Code
	}
	want := map[string]string{
		"name":                       mapping.CodeRequired,
		"mappings[0].input":          mapping.CodeInvalidRange,
		"mappings[0].min_confidence": mapping.CodeOutOfRange,
	}
	for f, code := range want {
		if fields[f] != code {
			t.Errorf("issue %s = %q, want %q (all: %v)", f, fields[f], code, resp.Issues)
		}
	}
}

func TestProfileHandler_Errors(t *testing.T) {
	mux, _, _ := newTestMux(t)

	tests := []struct {
		name   string
		method string
		target string
		body   interface{}
		want   int
	}{
		{"bad json", http.MethodPost, "/api/profiles", `{"name":`, http.StatusBadRequest},
		{"unknown profile", http.MethodGet, "/api/profiles/nope", nil, http.StatusNotFound},
		{"activate unknown", http.MethodPost, "/api/profiles/nope/activate", nil, http.StatusNotFound},
		{"update built-in", http.MethodPut, "/api/profiles/" + mapping.DefaultProfileID, mapping.Profile{Name: "x", Sensitivity: 1}, http.StatusForbidden},
		{"delete built-in", http.MethodDelete, "/api/profiles/" + mapping.EffectsProfileID, nil, http.StatusForbidden},
		{"add mapping to built-in", http.MethodPost, "/api/profiles/" + mapping.DefaultProfileID + "/mappings", volumeMapping(), http.StatusForbidden},
		{"unknown mapping", http.MethodGet, "/api/profiles/" + mapping.DefaultProfileID + "/mappings/nope", nil, http.StatusNotFound},
		{"wrong method", http.MethodPatch, "/api/profiles", nil, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, mux, tt.method, tt.target, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestProfileHandler_ActivateAndDeleteActive(t *testing.T) {
	mux, r, _ := newTestMux(t)

	rec := do(t, mux, http.MethodPost, "/api/profiles/"+mapping.DefaultProfileID+"/duplicate", map[string]string{"name": "My mixer"})
	expectStatus(t, rec, http.StatusCreated)
	var dup mapping.Profile
	decode(t, rec, &dup)
	if dup.BuiltIn || dup.Name != "My mixer" {
		t.Fatalf("unexpected duplicate: %+v", dup)
	}

	rec = do(t, mux, http.MethodPost, "/api/profiles/"+dup.ID+"/activate", nil)
	expectStatus(t, rec, http.StatusOK)
	if r.Active().ID != dup.ID {
		t.Errorf("active profile = %s, want %s", r.Active().ID, dup.ID)
	}

	rec = do(t, mux, http.MethodDelete, "/api/profiles/"+dup.ID, nil)
	expectStatus(t, rec, http.StatusConflict)

	// Duplicating without a body uses the default name.
	rec = do(t, mux, http.MethodPost, "/api/profiles/"+mapping.EffectsProfileID+"/duplicate", nil)
	expectStatus(t, rec, http.StatusCreated)
}

func TestProfileHandler_Mappings(t *testing.T) {
	mux, r, _ := newTestMux(t)
	p, err := r.CreateProfile(mapping.Profile{Name: "Live"})
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	base := "/api/profiles/" + p.ID + "/mappings"

	rec := do(t, mux, http.MethodPost, base, volumeMapping())
	expectStatus(t, rec, http.StatusCreated)
	var m mapping.Mapping
	decode(t, rec, &m)
	if m.ID == "" {
		t.Fatal("mapping id should be generated")
	}

	m.Name = "Master"
	m.ID = "ignored"
	rec = do(t, mux, http.MethodPut, base+"/"+mustID(t, r, p.ID, 0), m)
	expectStatus(t, rec, http.StatusOK)

	id := mustID(t, r, p.ID, 0)
	rec = do(t, mux, http.MethodPost, base+"/"+id+"/disable", nil)
	expectStatus(t, rec, http.StatusOK)
	var disabled mapping.Mapping
	decode(t, rec, &disabled)
	if disabled.Enabled || disabled.Name != "Master" {
		t.Errorf("unexpected disabled mapping: %+v", disabled)
	}

	rec = do(t, mux, http.MethodPost, base+"/"+id+"/enable", nil)
	expectStatus(t, rec, http.StatusOK)

	rec = do(t, mux, http.MethodPost, base+"/"+id+"/duplicate", nil)
	expectStatus(t, rec, http.StatusCreated)

	rec = do(t, mux, http.MethodGet, base, nil)
	expectStatus(t, rec, http.StatusOK)
	var list listMappingsResponse
	decode(t, rec, &list)
	if len(list.Mappings) != 2 {
		t.Fatalf("expected 2 mappings, got %d", len(list.Mappings))
	}

	rec = do(t, mux, http.MethodDelete, base+"/"+id, nil)
	expectStatus(t, rec, http.StatusNoContent)
	rec = do(t, mux, http.MethodGet, base+"/"+id, nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func mustID(t *testing.T, r *mapping.Registry, profileID string, i int) string {
	t.Helper()
	p, err := r.Profile(profileID)
	if err != nil || len(p.Mappings) <= i {
		t.Fatalf("profile %s has no mapping %d: %v", profileID, i, err)
	}
	return p.Mappings[i].ID
}
