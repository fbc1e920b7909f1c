package gesture

import (
	"math"
	"time"

	"github.com/ayusman/gesturemix/internal/detector"
)

// twoHand evaluates gestures that need both palms. left and right are the
// measured hands of each side.
func (c *Classifier) twoHand(left, right *handGeometry, now time.Time) []candidate {
	var out []candidate
	hands := []detector.Side{detector.SideLeft, detector.SideRight}
	score := math.Min(left.score, right.score)
	cl, cr := left.center, right.center
	mid := detector.Midpoint(cl, cr)
	sep := detector.Distance2D(cl, cr)
	dx, dy := cr.X-cl.X, cr.Y-cl.Y

	add := func(t Type, s, value float64, dir string, pos detector.Point3D, meta map[string]float64) {
		if s <= 0 {
			return
		}
		if meta == nil {
			meta = map[string]float64{}
		}
		meta["separation"] = sep
		out = append(out, candidate{typ: t, strength: s, score: score, hands: hands, value: value, direction: dir, position: pos, meta: meta})
	}

	if math.Abs(dy) <= c.cfg.LevelTolerance {
		s := 1 - 0.5*math.Abs(dy)/c.cfg.LevelTolerance
		add(Crossfader, s, math.Abs(dx), "", mid, map[string]float64{"dx": math.Abs(dx), "dy": dy})
	}

	if ol, or := c.openStrength(left), c.openStrength(right); ol > 0 && or > 0 {
		add(Spread, mean(ol, or), sep, "", mid, nil)
	}

	if pl, pr := c.pinchStrength(left), c.pinchStrength(right); pl > 0 && pr > 0 {
		d := detector.Distance2D(left.pinchPoint, right.pinchPoint)
		add(TwoHandPinch, mean(pl, pr), d, "", detector.Midpoint(left.pinchPoint, right.pinchPoint), map[string]float64{"distance": d})
	}

	// Angle of the line between the palms, kept in (-90, 90] when the
	// hands cross over.
	ax, ay := dx, dy
	if ax < 0 {
		ax, ay = -ax, -ay
	}
	angle := degrees(math.Atan2(ay, ax))
	if abs := math.Abs(angle); abs >= c.cfg.TwoHandRotateMinAngle {
		s := 0.5 + 0.5*ramp(abs, c.cfg.TwoHandRotateMinAngle, c.cfg.RotateMaxAngle)
		dir := "cw"
		if angle < 0 {
			dir = "ccw"
		}
		add(TwoHandRotate, s, angle, dir, mid, nil)
	}

	keep := c.cfg.ClapWindow
	if c.cfg.PushWindow > keep {
		keep = c.cfg.PushWindow
	}
	c.pair.observe(now, sep, mean(left.palmSize, right.palmSize), keep)

	if s, drop, ok := c.clap(c.pair, now); ok {
		add(Clap, s, drop, "", mid, nil)
	}
	if t, s, change, ok := c.pushPull(c.pair, now); ok {
		add(t, s, change, "", mid, map[string]float64{"palm_size": mean(left.palmSize, right.palmSize)})
	}

	return out
}
