package mapping

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/gesturemix/internal/monitoring"
)

// Persister stores registry changes. It is called before a change is
// committed in memory, so a failing store rejects the mutation.
type Persister interface {
	SaveProfile(p *Profile) error
	DeleteProfile(id string) error
	SaveActive(id string) error
}

// ProfileSource provides the profile used for a frame.
type ProfileSource interface {
	Active() *Profile
}

// Registry owns all profiles. The active profile is published as an
// immutable snapshot through an atomic pointer so frame processing never
// takes the registry lock.
type Registry struct {
	mu        sync.RWMutex
	profiles  map[string]*Profile
	active    atomic.Pointer[Profile]
	persister Persister
	now       func() time.Time
}

// NewRegistry creates a registry holding the built-in profiles, with the
// first one active. persister may be nil.
func NewRegistry(persister Persister) *Registry {
	r := &Registry{
		profiles:  make(map[string]*Profile),
		persister: persister,
		now:       time.Now,
	}
	for _, p := range BuiltinProfiles() {
		r.profiles[p.ID] = p
	}
	r.active.Store(r.profiles[DefaultProfileID])
	return r
}

// Load installs stored user profiles and selects the active profile without
// calling the persister. Invalid profiles are skipped and logged.
func (r *Registry) Load(profiles []*Profile, activeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range profiles {
		if existing, ok := r.profiles[p.ID]; ok && existing.BuiltIn {
			continue
		}
		if err := p.Validate(); err != nil {
			monitoring.Logf("mapping: skipping stored profile %s: %v", p.ID, err)
			continue
		}
		p = p.Clone()
		p.BuiltIn = false
		r.profiles[p.ID] = p
	}
	if p, ok := r.profiles[activeID]; ok {
		r.active.Store(p)
	}
}

// Active returns the active profile snapshot. Callers must not modify it.
func (r *Registry) Active() *Profile {
	return r.active.Load()
}

// Profiles returns all profiles, built-ins first, then by name.
func (r *Registry) Profiles() []*Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BuiltIn != out[j].BuiltIn {
			return out[i].BuiltIn
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Profile returns one profile snapshot.
func (r *Registry) Profile(id string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(id)
}

func (r *Registry) lookup(id string) (*Profile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return nil, &NotFoundError{Kind: "profile", ID: id}
	}
	return p, nil
}

// CreateProfile validates and stores a new user profile. Empty ids are
// generated; a zero sensitivity defaults to 1.
func (r *Registry) CreateProfile(in Profile) (*Profile, error) {
	p := in.Clone()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Sensitivity == 0 {
		p.Sensitivity = 1
	}
	assignMappingIDs(p)
	now := r.now()
	p.BuiltIn = false
	p.Version = 1
	p.CreatedAt, p.UpdatedAt = now, now

	if err := p.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.profiles[p.ID]; exists {
		return nil, &ValidationError{Issues: []FieldIssue{{Field: "id", Code: CodeDuplicate, Message: fmt.Sprintf("profile %q already exists", p.ID)}}}
	}
	if err := r.commit(p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProfile replaces a user profile's settings and mappings, keeping its
// id and creation time.
func (r *Registry) UpdateProfile(id string, in Profile) (*Profile, error) {
	return r.edit(id, func(p *Profile) error {
		next := in.Clone()
		p.Name = next.Name
		p.Description = next.Description
		p.Author = next.Author
		p.Sensitivity = next.Sensitivity
		p.Smoothing = next.Smoothing
		p.AllowConflicts = next.AllowConflicts
		p.Mappings = next.Mappings
		assignMappingIDs(p)
		return nil
	})
}

// DeleteProfile removes a user profile. The active profile cannot be deleted.
func (r *Registry) DeleteProfile(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.lookup(id)
	if err != nil {
		return err
	}
	if p.BuiltIn {
		return fmt.Errorf("delete profile %s: %w", id, ErrReadOnly)
	}
	if r.active.Load().ID == id {
		return fmt.Errorf("delete profile %s: %w", id, ErrActiveProfile)
	}
	if r.persister != nil {
		if err := r.persister.DeleteProfile(id); err != nil {
			return fmt.Errorf("persist delete: %w", err)
		}
	}
	delete(r.profiles, id)
	return nil
}

// DuplicateProfile copies any profile, built-ins included, into a new user
// profile with fresh ids.
func (r *Registry) DuplicateProfile(id, name string) (*Profile, error) {
	r.mu.RLock()
	src, err := r.lookup(id)
	r.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	cp := src.Clone()
	cp.ID = ""
	if strings.TrimSpace(name) == "" {
		name = src.Name + " (copy)"
	}
	cp.Name = name
	for i := range cp.Mappings {
		cp.Mappings[i].ID = ""
	}
	return r.CreateProfile(*cp)
}

// Activate switches the active profile with a single pointer swap.
func (r *Registry) Activate(id string) (*Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	if r.persister != nil {
		if err := r.persister.SaveActive(id); err != nil {
			return nil, fmt.Errorf("persist active profile: %w", err)
		}
	}
	r.active.Store(p)
	monitoring.Logf("mapping: active profile is now %q (%s)", p.Name, p.ID)
	return p, nil
}

// AddMapping validates m and appends it to a user profile.
func (r *Registry) AddMapping(profileID string, m Mapping) (*Mapping, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	p, err := r.edit(profileID, func(p *Profile) error {
		if _, exists := p.Mapping(m.ID); exists {
			return &ValidationError{Issues: []FieldIssue{{Field: "id", Code: CodeDuplicate, Message: fmt.Sprintf("mapping %q already exists", m.ID)}}}
		}
		p.Mappings = append(p.Mappings, m.Clone())
		return nil
	})
	if err != nil {
		return nil, err
	}
	out, _ := p.Mapping(m.ID)
	return out, nil
}

// UpdateMapping replaces the mapping with m.ID.
func (r *Registry) UpdateMapping(profileID string, m Mapping) (*Mapping, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	p, err := r.edit(profileID, func(p *Profile) error {
		cur, ok := p.Mapping(m.ID)
		if !ok {
			return &NotFoundError{Kind: "mapping", ID: m.ID}
		}
		*cur = m.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	out, _ := p.Mapping(m.ID)
	return out, nil
}

// DeleteMapping removes a mapping from a user profile.
func (r *Registry) DeleteMapping(profileID, mappingID string) error {
	_, err := r.edit(profileID, func(p *Profile) error {
		for i := range p.Mappings {
			if p.Mappings[i].ID == mappingID {
				p.Mappings = append(p.Mappings[:i], p.Mappings[i+1:]...)
				return nil
			}
		}
		return &NotFoundError{Kind: "mapping", ID: mappingID}
	})
	return err
}

// DuplicateMapping copies a mapping within its profile under a new id.
func (r *Registry) DuplicateMapping(profileID, mappingID string) (*Mapping, error) {
	newID := uuid.NewString()
	p, err := r.edit(profileID, func(p *Profile) error {
		src, ok := p.Mapping(mappingID)
		if !ok {
			return &NotFoundError{Kind: "mapping", ID: mappingID}
		}
		cp := src.Clone()
		cp.ID = newID
		cp.Name = src.Name + " (copy)"
		p.Mappings = append(p.Mappings, cp)
		return nil
	})
	if err != nil {
		return nil, err
	}
	out, _ := p.Mapping(newID)
	return out, nil
}

// SetMappingEnabled enables or disables a mapping.
func (r *Registry) SetMappingEnabled(profileID, mappingID string, enabled bool) (*Mapping, error) {
	p, err := r.edit(profileID, func(p *Profile) error {
		m, ok := p.Mapping(mappingID)
		if !ok {
			return &NotFoundError{Kind: "mapping", ID: mappingID}
		}
		m.Enabled = enabled
		return nil
	})
	if err != nil {
		return nil, err
	}
	out, _ := p.Mapping(mappingID)
	return out, nil
}

// edit applies fn to a copy of a user profile, validates the result and
// commits it. Nothing changes when fn, validation or persistence fails.
func (r *Registry) edit(id string, fn func(p *Profile) error) (*Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	if cur.BuiltIn {
		return nil, fmt.Errorf("edit profile %s: %w", id, ErrReadOnly)
	}

	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	next.Version = cur.Version + 1
	next.UpdatedAt = r.now()

	if err := r.commit(next); err != nil {
		return nil, err
	}
	return next, nil
}

// commit persists p and publishes it. Callers hold mu.
func (r *Registry) commit(p *Profile) error {
	if r.persister != nil {
		if err := r.persister.SaveProfile(p); err != nil {
			return fmt.Errorf("persist profile: %w", err)
		}
	}
	r.profiles[p.ID] = p
	if cur := r.active.Load(); cur != nil && cur.ID == p.ID {
		r.active.Store(p)
	}
	return nil
}

func assignMappingIDs(p *Profile) {
	for i := range p.Mappings {
		if p.Mappings[i].ID == "" {
			p.Mappings[i].ID = uuid.NewString()
		}
	}
}
