package gesture

import (
	"math"

	"github.com/ayusman/gesturemix/internal/detector"
)

type candidate struct {
	typ       Type
	strength  float64
	score     float64
	hands     []detector.Side
	value     float64
	direction string
	position  detector.Point3D
	meta      map[string]float64
}

// pinchStrength is 1 at contact falling to 0.5 at the threshold, or 0 when
// the tips are apart.
func (c *Classifier) pinchStrength(g *handGeometry) float64 {
	thr := c.pinchThreshold()
	if g.pinchDist >= thr {
		return 0
	}
	s := 1 - 0.5*g.pinchDist/thr
	pts := g.points
	if nearEdge(pts[detector.ThumbTip], c.cfg.EdgeMargin) || nearEdge(pts[detector.IndexTip], c.cfg.EdgeMargin) {
		s *= 1 - c.cfg.EdgePenalty
	}
	return s
}

func (c *Classifier) openStrength(g *handGeometry) float64 {
	if g.ext[thumb] < 0.5 || g.pinchDist < c.pinchThreshold() {
		return 0
	}
	for f := index; f <= pinky; f++ {
		if g.ext[f] < c.cfg.ExtendedThreshold {
			return 0
		}
	}
	return mean(g.ext[:]...)
}

func (c *Classifier) curled(g *handGeometry, fingers ...int) bool {
	for _, f := range fingers {
		if g.curl(f) < c.cfg.CurledThreshold {
			return false
		}
	}
	return true
}

func (c *Classifier) extended(g *handGeometry, fingers ...int) bool {
	for _, f := range fingers {
		if g.ext[f] < c.cfg.ExtendedThreshold {
			return false
		}
	}
	return true
}

// poses evaluates the static single-hand shapes.
func (c *Classifier) poses(g *handGeometry) []candidate {
	var out []candidate
	hands := []detector.Side{g.side}
	add := func(t Type, s, value float64, dir string, pos detector.Point3D, meta map[string]float64) {
		if s <= 0 {
			return
		}
		out = append(out, candidate{typ: t, strength: s, score: g.score, hands: hands, value: value, direction: dir, position: pos, meta: meta})
	}

	if s := c.pinchStrength(g); s > 0 {
		add(Pinch, s, g.pinchDist, "", g.pinchPoint, map[string]float64{"distance": g.pinchDist})
	}

	if s := c.openStrength(g); s > 0 {
		add(OpenPalm, s, s, "", g.center, nil)
	}

	fourCurled := c.curled(g, index, middle, ring, pinky)
	if fourCurled && g.ext[thumb] < 0.5 {
		s := mean(g.curl(index), g.curl(middle), g.curl(ring), g.curl(pinky), g.curl(thumb))
		add(Fist, s, s, "", g.center, nil)
	}

	if fourCurled && g.ext[thumb] >= 0.5 {
		mcp, tip := g.points[detector.ThumbMCP], g.points[detector.ThumbTip]
		dx, dy := tip.X-mcp.X, tip.Y-mcp.Y
		if length := math.Hypot(dx, dy); length > 0 {
			vertical := math.Abs(dy) / length
			if vertical >= c.cfg.ThumbVertical {
				s := mean(g.curl(index), g.curl(middle), g.curl(ring), g.curl(pinky), g.ext[thumb], vertical)
				if dy < 0 {
					add(ThumbsUp, s, s, "up", tip, nil)
				} else {
					add(ThumbsDown, s, s, "down", tip, nil)
				}
			}
		}
	}

	if c.extended(g, index) && c.curled(g, middle, ring, pinky) && g.pinchDist >= c.pinchThreshold() {
		mcp, tip := g.points[detector.IndexMCP], g.points[detector.IndexTip]
		s := mean(g.ext[index], g.curl(middle), g.curl(ring), g.curl(pinky))
		angle := degrees(math.Atan2(tip.X-mcp.X, mcp.Y-tip.Y))
		add(Point, s, angle, direction(tip.X-mcp.X, tip.Y-mcp.Y), tip, nil)
	}

	if c.extended(g, index, middle) && c.curled(g, ring, pinky) {
		s := mean(g.ext[index], g.ext[middle], g.curl(ring), g.curl(pinky))
		spread := detector.Distance(g.points[detector.IndexTip], g.points[detector.MiddleTip]) / g.palmSize
		add(PeaceSign, s, s, "", g.center, map[string]float64{"spread": spread})
	}

	if abs := math.Abs(g.orientation); abs >= c.cfg.RotateMinAngle && abs <= 90 {
		s := 0.5 + 0.5*ramp(abs, c.cfg.RotateMinAngle, c.cfg.RotateMaxAngle)
		dir := "cw"
		if g.orientation < 0 {
			dir = "ccw"
		}
		add(RotateOneHand, s, g.orientation, dir, g.center, nil)
	}

	return out
}
