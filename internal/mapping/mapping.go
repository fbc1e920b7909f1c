// Package mapping routes gesture events to control values. It holds the
// mapping and profile records, validates them, keeps the active profile as
// an immutable snapshot and evaluates each frame's events against it.
package mapping

import (
	"math"
	"time"

	"github.com/ayusman/gesturemix/internal/detector"
	"github.com/ayusman/gesturemix/internal/gesture"
)

// HandRequirement selects which hands may trigger a mapping.
type HandRequirement string

const (
	HandLeft   HandRequirement = "left"
	HandRight  HandRequirement = "right"
	HandEither HandRequirement = "either"
	HandBoth   HandRequirement = "both"
)

// Valid reports whether h is a known requirement.
func (h HandRequirement) Valid() bool {
	switch h {
	case HandLeft, HandRight, HandEither, HandBoth:
		return true
	}
	return false
}

// Matches reports whether an event produced by hands satisfies h.
func (h HandRequirement) Matches(hands []detector.Side) bool {
	has := func(s detector.Side) bool {
		for _, v := range hands {
			if v == s {
				return true
			}
		}
		return false
	}
	switch h {
	case HandLeft:
		return has(detector.SideLeft)
	case HandRight:
		return has(detector.SideRight)
	case HandBoth:
		return has(detector.SideLeft) && has(detector.SideRight)
	case HandEither:
		return len(hands) > 0
	}
	return false
}

// ControlMode is how a mapping drives its target.
type ControlMode string

const (
	// ModeContinuous emits a value every frame the gesture is active.
	ModeContinuous ControlMode = "continuous"
	// ModeToggle flips a boolean once per activation.
	ModeToggle ControlMode = "toggle"
	// ModeTrigger fires once per activation after the hold time.
	ModeTrigger ControlMode = "trigger"
)

// Valid reports whether m is a known mode.
func (m ControlMode) Valid() bool {
	return m == ModeContinuous || m == ModeToggle || m == ModeTrigger
}

// Range is a closed numeric interval. Output ranges may be descending.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Zone restricts a mapping to a screen rectangle in normalized coordinates.
type Zone struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Contains reports whether (x, y) lies inside the zone, edges included.
func (z Zone) Contains(x, y float64) bool {
	return x >= z.MinX && x <= z.MaxX && y >= z.MinY && y <= z.MaxY
}

// Mapping associates a gesture with a control target.
type Mapping struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Gesture       gesture.Type    `json:"gesture"`
	Hand          HandRequirement `json:"hand"`
	Target        string          `json:"target"`
	Mode          ControlMode     `json:"mode"`
	Input         Range           `json:"input"`
	Output        Range           `json:"output"`
	Curve         Curve           `json:"curve,omitempty"`
	ValueKey      string          `json:"value_key,omitempty"` // metadata key, empty for the event value
	Smoothing     *float64        `json:"smoothing,omitempty"` // weight of the previous value, nil inherits the profile default
	MinConfidence float64         `json:"min_confidence"`
	Priority      int             `json:"priority"`
	HoldTimeMs    int             `json:"hold_time_ms"`
	Zone          *Zone           `json:"zone,omitempty"`
	Enabled       bool            `json:"enabled"`
}

// HoldTime returns the hold duration.
func (m *Mapping) HoldTime() time.Duration {
	return time.Duration(m.HoldTimeMs) * time.Millisecond
}

// Clone returns a deep copy.
func (m Mapping) Clone() Mapping {
	if m.Zone != nil {
		z := *m.Zone
		m.Zone = &z
	}
	if m.Smoothing != nil {
		s := *m.Smoothing
		m.Smoothing = &s
	}
	return m
}

// SmoothingOr returns the mapping's own smoothing, or def when it inherits.
func (m *Mapping) SmoothingOr(def float64) float64 {
	if m.Smoothing == nil {
		return def
	}
	return *m.Smoothing
}

// Transform maps a raw measurement through the input range, curve and
// output range. Inputs outside the range clamp to the nearest bound.
func (m *Mapping) Transform(raw float64) float64 {
	span := m.Input.Max - m.Input.Min
	t := 0.0
	if span != 0 {
		t = (raw - m.Input.Min) / span
	}
	if math.IsNaN(t) {
		t = 0
	}
	t = math.Max(0, math.Min(1, t))
	t = m.Curve.Apply(t)
	return m.Output.Min + t*(m.Output.Max-m.Output.Min)
}

// Profile is a named, switchable set of mappings. Profiles held by the
// registry are immutable; every change produces a new value.
type Profile struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Author         string    `json:"author,omitempty"`
	Version        int       `json:"version"`
	BuiltIn        bool      `json:"built_in"`
	Sensitivity    float64   `json:"sensitivity"` // multiplies event confidence
	Smoothing      float64   `json:"smoothing"`   // default mapping smoothing
	AllowConflicts bool      `json:"allow_conflicts"`
	Mappings       []Mapping `json:"mappings"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Clone returns a deep copy.
func (p *Profile) Clone() *Profile {
	out := *p
	out.Mappings = make([]Mapping, len(p.Mappings))
	for i, m := range p.Mappings {
		out.Mappings[i] = m.Clone()
	}
	return &out
}

// Mapping returns the mapping with the given id.
func (p *Profile) Mapping(id string) (*Mapping, bool) {
	for i := range p.Mappings {
		if p.Mappings[i].ID == id {
			return &p.Mappings[i], true
		}
	}
	return nil, false
}
