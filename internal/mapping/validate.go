package mapping

import (
	"fmt"
	"math"
	"strings"
)

type issues []FieldIssue

func (is *issues) add(field, code, format string, args ...any) {
	*is = append(*is, FieldIssue{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
}

func (is issues) err() error {
	if len(is) == 0 {
		return nil
	}
	return &ValidationError{Issues: is}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate checks a mapping and returns a *ValidationError listing every
// violated field, or nil.
func (m *Mapping) Validate() error {
	var is issues
	m.validate("", &is)
	return is.err()
}

func (m *Mapping) validate(prefix string, is *issues) {
	f := func(name string) string { return prefix + name }

	if strings.TrimSpace(m.Name) == "" {
		is.add(f("name"), CodeRequired, "name is required")
	}
	if m.Gesture == "" {
		is.add(f("gesture"), CodeRequired, "gesture is required")
	} else if !m.Gesture.Valid() {
		is.add(f("gesture"), CodeInvalidValue, "unknown gesture %q", m.Gesture)
	}
	if !m.Hand.Valid() {
		is.add(f("hand"), CodeInvalidValue, "hand must be left, right, either or both")
	} else if m.Hand == HandBoth && m.Gesture.Valid() && !m.Gesture.TwoHand() {
		is.add(f("hand"), CodeInvalidValue, "hand both requires a two-hand gesture")
	}
	if strings.TrimSpace(m.Target) == "" {
		is.add(f("target"), CodeRequired, "target is required")
	}
	if !m.Mode.Valid() {
		is.add(f("mode"), CodeInvalidValue, "mode must be continuous, toggle or trigger")
	}

	switch {
	case !finite(m.Input.Min) || !finite(m.Input.Max):
		is.add(f("input"), CodeInvalidValue, "input range must be finite")
	case m.Input.Min >= m.Input.Max:
		is.add(f("input"), CodeInvalidRange, "input min must be less than max")
	}
	switch {
	case !finite(m.Output.Min) || !finite(m.Output.Max):
		is.add(f("output"), CodeInvalidValue, "output range must be finite")
	case m.Output.Min == m.Output.Max:
		is.add(f("output"), CodeInvalidRange, "output range must not be empty")
	}

	if !m.Curve.Valid() {
		is.add(f("curve"), CodeInvalidValue, "unknown curve %q", m.Curve)
	}
	if s := m.Smoothing; s != nil && (!finite(*s) || *s < 0 || *s >= 1) {
		is.add(f("smoothing"), CodeOutOfRange, "smoothing must be in [0,1)")
	}
	if !finite(m.MinConfidence) || m.MinConfidence < 0 || m.MinConfidence > 1 {
		is.add(f("min_confidence"), CodeOutOfRange, "min_confidence must be in [0,1]")
	}
	if m.Priority < 0 {
		is.add(f("priority"), CodeOutOfRange, "priority must not be negative")
	}
	if m.HoldTimeMs < 0 {
		is.add(f("hold_time_ms"), CodeOutOfRange, "hold_time_ms must not be negative")
	}
	if z := m.Zone; z != nil {
		inUnit := func(v float64) bool { return finite(v) && v >= 0 && v <= 1 }
		if !inUnit(z.MinX) || !inUnit(z.MaxX) || !inUnit(z.MinY) || !inUnit(z.MaxY) {
			is.add(f("zone"), CodeOutOfRange, "zone bounds must be in [0,1]")
		} else if z.MinX >= z.MaxX || z.MinY >= z.MaxY {
			is.add(f("zone"), CodeInvalidRange, "zone min must be less than max")
		}
	}
}

// Validate checks the profile and all of its mappings.
func (p *Profile) Validate() error {
	var is issues
	p.validate(&is)
	return is.err()
}

func (p *Profile) validate(is *issues) {
	p.validateFields(is)
	seen := make(map[string]bool, len(p.Mappings))
	for i := range p.Mappings {
		m := &p.Mappings[i]
		prefix := fmt.Sprintf("mappings[%d].", i)
		if m.ID == "" {
			is.add(prefix+"id", CodeRequired, "id is required")
		} else if seen[m.ID] {
			is.add(prefix+"id", CodeDuplicate, "duplicate mapping id %q", m.ID)
		}
		seen[m.ID] = true
		m.validate(prefix, is)
	}
}

// validateFields checks the profile's own fields, ignoring its mappings.
func (p *Profile) validateFields(is *issues) {
	if strings.TrimSpace(p.Name) == "" {
		is.add("name", CodeRequired, "name is required")
	}
	if !finite(p.Sensitivity) || p.Sensitivity <= 0 || p.Sensitivity > 2 {
		is.add("sensitivity", CodeOutOfRange, "sensitivity must be in (0,2]")
	}
	if !finite(p.Smoothing) || p.Smoothing < 0 || p.Smoothing >= 1 {
		is.add("smoothing", CodeOutOfRange, "smoothing must be in [0,1)")
	}
}
