package mapping

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/gesturemix/internal/monitoring"
)

// BundleFormatVersion is the bundle format written by Export.
const BundleFormatVersion = 1

// Bundle is the portable export of one or more profiles.
type Bundle struct {
	FormatVersion int        `json:"format_version"`
	Author        string     `json:"author,omitempty"`
	Description   string     `json:"description,omitempty"`
	ExportedAt    time.Time  `json:"exported_at"`
	Profiles      []*Profile `json:"profiles"`
}

// ImportPolicy decides what happens to profiles that already exist.
type ImportPolicy string

const (
	// ImportMerge adds new mappings to existing profiles and keeps the rest.
	ImportMerge ImportPolicy = "merge"
	// ImportOverwrite replaces existing profiles.
	ImportOverwrite ImportPolicy = "overwrite"
)

// ParseImportPolicy parses a policy name; empty means merge.
func ParseImportPolicy(s string) (ImportPolicy, error) {
	switch ImportPolicy(s) {
	case "", ImportMerge:
		return ImportMerge, nil
	case ImportOverwrite:
		return ImportOverwrite, nil
	}
	return "", fmt.Errorf("unknown import policy %q", s)
}

// SkippedItem explains why a profile or mapping was not imported.
type SkippedItem struct {
	Kind   string `json:"kind"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ImportResult counts what an import changed.
type ImportResult struct {
	ProfilesImported int           `json:"profiles_imported"`
	ProfilesSkipped  int           `json:"profiles_skipped"`
	MappingsImported int           `json:"mappings_imported"`
	MappingsSkipped  int           `json:"mappings_skipped"`
	Skipped          []SkippedItem `json:"skipped,omitempty"`
}

func (r *ImportResult) skipProfile(p *Profile, reason string) {
	r.ProfilesSkipped++
	r.Skipped = append(r.Skipped, SkippedItem{Kind: "profile", ID: p.ID, Name: p.Name, Reason: reason})
}

func (r *ImportResult) skipMapping(m Mapping, reason string) {
	r.MappingsSkipped++
	r.Skipped = append(r.Skipped, SkippedItem{Kind: "mapping", ID: m.ID, Name: m.Name, Reason: reason})
}

// DecodeBundle reads a JSON bundle.
func DecodeBundle(rd io.Reader) (*Bundle, error) {
	var b Bundle
	if err := json.NewDecoder(rd).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	if b.FormatVersion != BundleFormatVersion {
		return nil, fmt.Errorf("bundle version %d: %w", b.FormatVersion, ErrUnsupportedBundle)
	}
	return &b, nil
}

// Encode writes b as indented JSON.
func (b *Bundle) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}

// Export bundles the given profiles, or every user profile when ids is empty.
func (r *Registry) Export(author, description string, ids ...string) (*Bundle, error) {
	b := &Bundle{
		FormatVersion: BundleFormatVersion,
		Author:        author,
		Description:   description,
		ExportedAt:    r.now().UTC(),
		Profiles:      []*Profile{},
	}
	if len(ids) == 0 {
		for _, p := range r.Profiles() {
			if !p.BuiltIn {
				b.Profiles = append(b.Profiles, p.Clone())
			}
		}
		return b, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range ids {
		p, err := r.lookup(id)
		if err != nil {
			return nil, err
		}
		b.Profiles = append(b.Profiles, p.Clone())
	}
	return b, nil
}

// Import validates every profile and mapping in b and then applies the
// valid ones. Invalid mappings are skipped individually; a profile whose own
// fields are invalid, or whose id belongs to a built-in, is skipped whole.
func (r *Registry) Import(b *Bundle, policy ImportPolicy) (ImportResult, error) {
	var res ImportResult
	if b.FormatVersion != BundleFormatVersion {
		return res, fmt.Errorf("bundle version %d: %w", b.FormatVersion, ErrUnsupportedBundle)
	}
	if policy == "" {
		policy = ImportMerge
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for _, in := range b.Profiles {
		if in == nil {
			continue
		}
		if existing, ok := r.profiles[in.ID]; ok && existing.BuiltIn {
			res.skipProfile(in, "built-in profile")
			continue
		}

		p := in.Clone()
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.Sensitivity == 0 {
			p.Sensitivity = 1
		}
		p.BuiltIn = false
		mappings := p.Mappings
		p.Mappings = nil
		if err := p.Validate(); err != nil {
			res.skipProfile(in, err.Error())
			res.MappingsSkipped += len(mappings)
			continue
		}

		existing, exists := r.profiles[p.ID]
		if exists && policy == ImportMerge {
			p = existing.Clone()
			p.Version = existing.Version + 1
		} else {
			p.Version = 1
			p.CreatedAt = now
			if exists {
				p.CreatedAt = existing.CreatedAt
				p.Version = existing.Version + 1
			}
		}
		p.UpdatedAt = now

		added := 0
		for _, m := range mappings {
			if m.ID == "" {
				m.ID = uuid.NewString()
			}
			if _, dup := p.Mapping(m.ID); dup {
				res.skipMapping(m, "mapping already exists")
				continue
			}
			if err := m.Validate(); err != nil {
				res.skipMapping(m, err.Error())
				continue
			}
			p.Mappings = append(p.Mappings, m.Clone())
			added++
		}
		if exists && policy == ImportMerge && added == 0 {
			res.skipProfile(in, "no new mappings")
			continue
		}
		if p.Mappings == nil {
			p.Mappings = []Mapping{}
		}

		if err := r.commit(p); err != nil {
			return res, fmt.Errorf("import profile %s: %w", p.ID, err)
		}
		res.ProfilesImported++
		res.MappingsImported += added
	}

	monitoring.Logf("mapping: imported %d profiles (%d skipped), %d mappings (%d skipped)",
		res.ProfilesImported, res.ProfilesSkipped, res.MappingsImported, res.MappingsSkipped)
	return res, nil
}
