package gesture

import (
	"math"

	"github.com/ayusman/gesturemix/internal/detector"
	"github.com/ayusman/gesturemix/internal/smoothing"
)

// Finger indices into handGeometry.ext.
const (
	thumb = iota
	index
	middle
	ring
	pinky
)

// Extension ratio bounds. A finger's extension maps tip distance over PIP
// distance (both from the wrist) from [fingerCurled, fingerExtended] to [0,1];
// the thumb uses tip-to-pinky-MCP over thumb-MCP-to-pinky-MCP. A calibrated
// baseline replaces the extended bound per digit, kept inside the personal
// limits.
const (
	fingerCurled   = 1.0
	fingerExtended = 1.5
	thumbCurled    = 1.0
	thumbExtended  = 1.4

	fingerExtendedMin = 1.25
	fingerExtendedMax = 2.0
	thumbExtendedMin  = 1.2
	thumbExtendedMax  = 1.7
)

// defaultExtended is the per-digit extended bound without a baseline.
var defaultExtended = [5]float64{thumbExtended, fingerExtended, fingerExtended, fingerExtended, fingerExtended}

var fingerJoints = [...][2]int{
	index:  {detector.IndexPIP, detector.IndexTip},
	middle: {detector.MiddlePIP, detector.MiddleTip},
	ring:   {detector.RingPIP, detector.RingTip},
	pinky:  {detector.PinkyPIP, detector.PinkyTip},
}

// handGeometry holds the per-hand measurements every heuristic reads.
type handGeometry struct {
	side     detector.Side
	score    float64
	points   []detector.Point3D
	center   detector.Point3D
	palmSize float64
	ext      [5]float64

	pinchDist  float64 // thumb tip to index tip, in palm sizes
	pinchPoint detector.Point3D

	// orientation is the wrist to middle MCP angle in degrees: 0 with the
	// fingers up, positive when rotated clockwise on screen.
	orientation float64
	velocity    smoothing.Velocity
}

func measure(h *smoothing.Hand, extended [5]float64) *handGeometry {
	lm := h.Landmarks()
	pts := lm.Points
	g := &handGeometry{
		side:     h.Side,
		score:    h.Score,
		points:   pts,
		center:   lm.PalmCenter(),
		palmSize: lm.PalmSize(),
		velocity: h.PalmVelocity(),
	}
	if g.palmSize <= 0 {
		return nil
	}

	r := ratios(pts)
	g.ext[thumb] = ramp(r[thumb], thumbCurled, extended[thumb])
	for f := index; f <= pinky; f++ {
		g.ext[f] = ramp(r[f], fingerCurled, extended[f])
	}

	g.pinchDist = detector.Distance(pts[detector.ThumbTip], pts[detector.IndexTip]) / g.palmSize
	g.pinchPoint = detector.Midpoint(pts[detector.ThumbTip], pts[detector.IndexTip])

	wrist, mid := pts[detector.Wrist], pts[detector.MiddleMCP]
	g.orientation = degrees(math.Atan2(mid.X-wrist.X, wrist.Y-mid.Y))
	return g
}

// ratios returns the raw extension ratio of each digit, 0 where a reference
// distance is degenerate. Translation and scale do not change them, so
// normalized baseline points give the same values as image points.
func ratios(pts []detector.Point3D) [5]float64 {
	var r [5]float64
	wrist := pts[detector.Wrist]
	for f := index; f <= pinky; f++ {
		if pip := detector.Distance(wrist, pts[fingerJoints[f][0]]); pip > 0 {
			r[f] = detector.Distance(wrist, pts[fingerJoints[f][1]]) / pip
		}
	}
	if base := detector.Distance(pts[detector.ThumbMCP], pts[detector.PinkyMCP]); base > 0 {
		r[thumb] = detector.Distance(pts[detector.ThumbTip], pts[detector.PinkyMCP]) / base
	}
	return r
}

// extendedBounds derives per-digit extended bounds from a baseline hand.
// Without a full baseline it returns the defaults.
func extendedBounds(baseline []detector.Point3D) [5]float64 {
	if len(baseline) < detector.NumLandmarks {
		return defaultExtended
	}
	b := defaultExtended
	r := ratios(baseline)
	if r[thumb] > 0 {
		b[thumb] = math.Max(thumbExtendedMin, math.Min(thumbExtendedMax, r[thumb]))
	}
	for f := index; f <= pinky; f++ {
		if r[f] > 0 {
			b[f] = math.Max(fingerExtendedMin, math.Min(fingerExtendedMax, r[f]))
		}
	}
	return b
}

func (g *handGeometry) curl(f int) float64 { return 1 - g.ext[f] }

// fingerCount counts extended digits.
func (g *handGeometry) fingerCount(extended float64) int {
	n := 0
	if g.ext[thumb] >= 0.5 {
		n++
	}
	for f := index; f <= pinky; f++ {
		if g.ext[f] >= extended {
			n++
		}
	}
	return n
}

// nearEdge reports whether p lies within margin of the frame border.
func nearEdge(p detector.Point3D, margin float64) bool {
	return p.X < margin || p.X > 1-margin || p.Y < margin || p.Y > 1-margin
}

// direction names the dominant axis of (dx, dy) in screen coordinates.
func direction(dx, dy float64) string {
	if math.Abs(dx) >= math.Abs(dy) {
		if dx >= 0 {
			return "right"
		}
		return "left"
	}
	if dy >= 0 {
		return "down"
	}
	return "up"
}

func ramp(v, lo, hi float64) float64 {
	return clamp01((v - lo) / (hi - lo))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func mean(vs ...float64) float64 {
	s := 0.0
	for _, v := range vs {
		s += v
	}
	return s / float64(len(vs))
}

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
