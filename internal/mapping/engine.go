package mapping

import (
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/ayusman/gesturemix/internal/gesture"
)

// Calibrator maps a hand position into calibrated screen space.
type Calibrator interface {
	Apply(x, y float64) (float64, float64)
}

// ActiveGesture pairs an event with a mapping it satisfied this frame.
type ActiveGesture struct {
	Event       gesture.Event `json:"event"`
	MappingID   string        `json:"mapping_id"`
	MappingName string        `json:"mapping_name"`
	Target      string        `json:"target"`
	Mode        ControlMode   `json:"mode"`
	Confidence  float64       `json:"confidence"` // after profile sensitivity
	Value       float64       `json:"value"`
	State       bool          `json:"state"` // toggle state
	Fired       bool          `json:"fired"` // toggle flipped or trigger fired this frame
	Held        bool          `json:"held"`
	Suppressed  bool          `json:"suppressed"`
}

// ControlValue is a resolved value for one control target.
type ControlValue struct {
	Target    string      `json:"target"`
	MappingID string      `json:"mapping_id"`
	Mode      ControlMode `json:"mode"`
	Value     float64     `json:"value"`
	State     bool        `json:"state,omitempty"`
	Fired     bool        `json:"fired,omitempty"`
}

// Conflict records mappings that competed for one target in a frame.
type Conflict struct {
	Target     string   `json:"target"`
	MappingIDs []string `json:"mapping_ids"`
	WinnerID   string   `json:"winner_id"`
}

// Result is one frame of mapping output. Nothing in it is retained by the
// engine.
type Result struct {
	ProfileID string          `json:"profile_id"`
	Active    []ActiveGesture `json:"active"`
	Controls  []ControlValue  `json:"controls"`
	Conflicts []Conflict      `json:"conflicts,omitempty"`
}

type mappingState struct {
	active      bool
	activatedAt time.Time
	fired       bool
	toggled     bool
	value       float64
	hasValue    bool
}

type calibratorBox struct{ c Calibrator }

// Engine evaluates gesture events against the active profile. Process must
// be called from a single goroutine; SetCalibration may be called from any.
type Engine struct {
	source      ProfileSource
	calibration atomic.Pointer[calibratorBox]
	profileID   string
	states      map[string]*mappingState
}

// NewEngine creates an engine reading profiles from source.
func NewEngine(source ProfileSource) *Engine {
	return &Engine{
		source: source,
		states: make(map[string]*mappingState),
	}
}

// SetCalibration installs the calibration used for zone checks. nil clears it.
func (e *Engine) SetCalibration(c Calibrator) {
	if c == nil {
		e.calibration.Store(nil)
		return
	}
	e.calibration.Store(&calibratorBox{c: c})
}

// Reset drops all per-mapping state, including toggle states.
func (e *Engine) Reset() {
	e.states = make(map[string]*mappingState)
}

type match struct {
	mapping *Mapping
	event   gesture.Event
	conf    float64
	state   *mappingState
}

// Process evaluates one frame of events.
func (e *Engine) Process(events []gesture.Event, now time.Time) Result {
	p := e.source.Active()
	if p == nil {
		return Result{}
	}
	if p.ID != e.profileID {
		e.Reset()
		e.profileID = p.ID
	}

	var matches []*match
	seen := make(map[string]bool, len(p.Mappings))
	for i := range p.Mappings {
		m := &p.Mappings[i]
		seen[m.ID] = true
		st := e.state(m.ID)

		ev, conf, ok := e.bestEvent(p, m, events)
		if !ok {
			st.active, st.hasValue, st.fired = false, false, false
			continue
		}
		if !st.active {
			st.active = true
			st.activatedAt = now
		}
		matches = append(matches, &match{mapping: m, event: ev, conf: conf, state: st})
	}
	for id := range e.states {
		if !seen[id] {
			delete(e.states, id)
		}
	}

	res := Result{ProfileID: p.ID}
	suppressed := make(map[*match]bool)
	if !p.AllowConflicts {
		res.Conflicts = resolve(matches, suppressed)
	}

	for _, mt := range matches {
		m, st := mt.mapping, mt.state
		ag := ActiveGesture{
			Event:       mt.event,
			MappingID:   m.ID,
			MappingName: m.Name,
			Target:      m.Target,
			Mode:        m.Mode,
			Confidence:  mt.conf,
			Held:        now.Sub(st.activatedAt) >= m.HoldTime(),
			Suppressed:  suppressed[mt],
		}

		switch m.Mode {
		case ModeContinuous:
			ag.Value = e.continuous(p, m, st, mt.event)
		case ModeToggle:
			if ag.Held && !ag.Suppressed && !st.fired {
				st.toggled = !st.toggled
				st.fired = true
				ag.Fired = true
			}
			ag.State = st.toggled
			ag.Value = m.Output.Min
			if st.toggled {
				ag.Value = m.Output.Max
			}
		case ModeTrigger:
			ag.Value = m.Output.Min
			if ag.Held && !ag.Suppressed && !st.fired {
				st.fired = true
				ag.Fired = true
				ag.Value = m.Output.Max
			}
		}

		res.Active = append(res.Active, ag)
		if !ag.Suppressed {
			res.Controls = append(res.Controls, ControlValue{
				Target:    m.Target,
				MappingID: m.ID,
				Mode:      m.Mode,
				Value:     ag.Value,
				State:     ag.State,
				Fired:     ag.Fired,
			})
		}
	}
	return res
}

func (e *Engine) state(id string) *mappingState {
	st, ok := e.states[id]
	if !ok {
		st = &mappingState{}
		e.states[id] = st
	}
	return st
}

// bestEvent returns the highest-confidence event satisfying m.
func (e *Engine) bestEvent(p *Profile, m *Mapping, events []gesture.Event) (gesture.Event, float64, bool) {
	var (
		best     gesture.Event
		bestConf float64
		found    bool
	)
	if !m.Enabled {
		return best, 0, false
	}
	for _, ev := range events {
		if ev.Type != m.Gesture || !m.Hand.Matches(ev.Hands) {
			continue
		}
		conf := math.Max(0, math.Min(1, ev.Confidence*p.Sensitivity))
		if conf < m.MinConfidence {
			continue
		}
		if m.Zone != nil {
			x, y := ev.Position.X, ev.Position.Y
			if box := e.calibration.Load(); box != nil {
				x, y = box.c.Apply(x, y)
			}
			if !m.Zone.Contains(x, y) {
				continue
			}
		}
		if m.Mode == ModeContinuous {
			if _, ok := ev.Metric(m.ValueKey); !ok {
				continue
			}
		}
		if !found || conf > bestConf {
			best, bestConf, found = ev, conf, true
		}
	}
	return best, bestConf, found
}

func (e *Engine) continuous(p *Profile, m *Mapping, st *mappingState, ev gesture.Event) float64 {
	raw, _ := ev.Metric(m.ValueKey)
	v := m.Transform(raw)
	s := m.SmoothingOr(p.Smoothing)
	if st.hasValue {
		v = s*st.value + (1-s)*v
	}
	st.value, st.hasValue = v, true
	return v
}

// resolve groups matches by target and marks every loser as suppressed.
// Winners are chosen by priority, then most recent activation, then
// confidence, then lowest mapping id.
func resolve(matches []*match, suppressed map[*match]bool) []Conflict {
	groups := make(map[string][]*match)
	var targets []string
	for _, mt := range matches {
		t := mt.mapping.Target
		if _, ok := groups[t]; !ok {
			targets = append(targets, t)
		}
		groups[t] = append(groups[t], mt)
	}
	sort.Strings(targets)

	var conflicts []Conflict
	for _, t := range targets {
		g := groups[t]
		if len(g) < 2 {
			continue
		}
		winner := g[0]
		for _, mt := range g[1:] {
			if beats(mt, winner) {
				winner = mt
			}
		}
		ids := make([]string, 0, len(g))
		for _, mt := range g {
			ids = append(ids, mt.mapping.ID)
			if mt != winner {
				suppressed[mt] = true
			}
		}
		sort.Strings(ids)
		conflicts = append(conflicts, Conflict{Target: t, MappingIDs: ids, WinnerID: winner.mapping.ID})
	}
	return conflicts
}

func beats(a, b *match) bool {
	if a.mapping.Priority != b.mapping.Priority {
		return a.mapping.Priority > b.mapping.Priority
	}
	if !a.state.activatedAt.Equal(b.state.activatedAt) {
		return a.state.activatedAt.After(b.state.activatedAt)
	}
	if a.conf != b.conf {
		return a.conf > b.conf
	}
	return a.mapping.ID < b.mapping.ID
}
