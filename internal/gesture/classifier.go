package gesture

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/gesturemix/internal/detector"
	"github.com/ayusman/gesturemix/internal/smoothing"
)

// maxConfidenceSpread is the confidence standard deviation treated as fully
// unstable.
const maxConfidenceSpread = 0.25

// Classifier turns smoothed hands into gesture events. It keeps per-type
// event history and short motion windows; it is not safe for concurrent use.
type Classifier struct {
	cfg       Config
	history   *History
	swipes    map[detector.Side]*swipeTracker
	pair      *pairTracker
	pinchBias float64
	extBounds [5]float64
}

// NewClassifier creates a classifier.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{
		cfg:       cfg,
		history:   NewHistory(cfg.HistoryMaxAge, cfg.HistoryMaxEvents),
		swipes:    make(map[detector.Side]*swipeTracker),
		pair:      newPairTracker(),
		pinchBias: 1,
		extBounds: defaultExtended,
	}
}

// Config returns the active configuration.
func (c *Classifier) Config() Config { return c.cfg }

// History exposes the emitted-event history.
func (c *Classifier) History() *History { return c.history }

// Reconfigure replaces the thresholds. History is kept, trimmed to the new
// limits.
func (c *Classifier) Reconfigure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg
	c.history.Resize(cfg.HistoryMaxAge, cfg.HistoryMaxEvents)
	return nil
}

// Reset clears history and motion windows.
func (c *Classifier) Reset() {
	c.history.Reset()
	clear(c.swipes)
	c.pair = newPairTracker()
}

// HandProfile is the part of a user calibration the classifier uses.
type HandProfile struct {
	// SpanRatio is hand span over palm height; 0 when unknown.
	SpanRatio float64
	// Baseline holds the user's average landmarks, wrist-relative and
	// palm-size scaled; nil when unknown.
	Baseline []detector.Point3D
}

// Personalize adapts thresholds to one user's hand. The span ratio scales
// the pinch threshold within ±25%; the baseline sets how far each digit
// must reach to count as fully extended. A zero HandProfile restores the
// defaults.
func (c *Classifier) Personalize(p HandProfile) {
	const reference = 3.0
	c.extBounds = extendedBounds(p.Baseline)
	if p.SpanRatio <= 0 || math.IsNaN(p.SpanRatio) {
		c.pinchBias = 1
		return
	}
	c.pinchBias = math.Max(0.75, math.Min(1.25, p.SpanRatio/reference))
}

func (c *Classifier) pinchThreshold() float64 {
	return c.cfg.PinchThreshold * c.pinchBias
}

// Classify returns the events for one frame. Hands without a full landmark
// set or scored below MinHandScore are treated as absent.
func (c *Classifier) Classify(hands []smoothing.Hand, now time.Time) []Event {
	c.history.Evict(now)

	bySide := make(map[detector.Side]*handGeometry, 2)
	var order []*handGeometry
	for i := range hands {
		h := &hands[i]
		if len(h.Points) != detector.NumLandmarks || len(h.Velocities) != detector.NumLandmarks {
			continue
		}
		if h.Score < c.cfg.MinHandScore || bySide[h.Side] != nil {
			continue
		}
		g := measure(h, c.extBounds)
		if g == nil {
			continue
		}
		bySide[h.Side] = g
		order = append(order, g)
	}

	for side := range c.swipes {
		if bySide[side] == nil {
			delete(c.swipes, side)
		}
	}

	var candidates []candidate
	for _, g := range order {
		single := c.poses(g)
		st := c.swipes[g.side]
		if st == nil {
			st = newSwipeTracker()
			c.swipes[g.side] = st
		}
		if cand, ok := c.swipe(st, g, now); ok {
			single = append(single, cand)
		}
		count := float64(g.fingerCount(c.cfg.ExtendedThreshold))
		for i := range single {
			if single[i].meta == nil {
				single[i].meta = map[string]float64{}
			}
			single[i].meta["finger_count"] = count
			single[i].meta["palm_size"] = g.palmSize
		}
		candidates = append(candidates, single...)
	}

	if left, right := bySide[detector.SideLeft], bySide[detector.SideRight]; left != nil && right != nil {
		candidates = append(candidates, c.twoHand(left, right, now)...)
	} else {
		c.pair.reset()
	}

	var events []Event
	for _, cand := range candidates {
		conf := cand.strength * cand.score
		conf *= 1 - c.cfg.StabilityWeight*(1-c.stability(cand, conf, now))
		conf = clamp01(conf)
		if conf < c.cfg.MinConfidence {
			continue
		}
		if cand.meta == nil {
			cand.meta = map[string]float64{}
		}
		cand.meta["x"] = cand.position.X
		cand.meta["y"] = cand.position.Y
		events = append(events, Event{
			Type:       cand.typ,
			Confidence: conf,
			Timestamp:  now,
			Hands:      cand.hands,
			Value:      cand.value,
			Direction:  cand.direction,
			Position:   cand.position,
			Metadata:   cand.meta,
		})
	}

	for _, e := range events {
		c.history.Append(e)
	}
	return events
}

// stability scores how consistently this candidate's type has been seen for
// the same hands within the stability window: the share of competing
// emissions that agree, reduced by the spread of their confidences. An
// empty window counts as stable.
func (c *Classifier) stability(cand candidate, conf float64, now time.Time) float64 {
	since := now.Add(-c.cfg.StabilityWindow)
	rivals := []Type{cand.typ}
	if poses[cand.typ] {
		rivals = rivals[:0]
		for _, t := range AllTypes {
			if poses[t] {
				rivals = append(rivals, t)
			}
		}
	}

	total, same := 0, 0
	confs := []float64{conf}
	for _, t := range rivals {
		for _, e := range c.history.Since(t, since) {
			if !sameHands(e.Hands, cand.hands) {
				continue
			}
			total++
			if e.Type == cand.typ {
				same++
				confs = append(confs, e.Confidence)
			}
		}
	}
	if total == 0 {
		return 1
	}

	share := float64(same+1) / float64(total+1)
	spread := 0.0
	if len(confs) > 1 {
		spread = stat.StdDev(confs, nil)
	}
	return share * (1 - math.Min(spread/maxConfidenceSpread, 1))
}
