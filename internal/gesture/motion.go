package gesture

import (
	"math"
	"time"

	"github.com/ayusman/gesturemix/internal/detector"
	"github.com/ayusman/gesturemix/internal/ringbuf"
	"github.com/ayusman/gesturemix/internal/smoothing"
)

const motionSamples = 64

type velocitySample struct {
	at  time.Time
	vel smoothing.Velocity
}

// swipeTracker follows one hand's palm velocity.
type swipeTracker struct {
	samples   *ringbuf.Ring[velocitySample]
	swiping   bool
	lastType  Type
	lastDir   string
	lastSwipe time.Time
}

func newSwipeTracker() *swipeTracker {
	return &swipeTracker{samples: ringbuf.New[velocitySample](motionSamples)}
}

// swipe reports a swipe when the mean palm velocity over the window is fast
// enough and the individual samples agree with its direction.
func (c *Classifier) swipe(st *swipeTracker, g *handGeometry, now time.Time) (candidate, bool) {
	st.samples.Push(velocitySample{at: now, vel: g.velocity})
	cutoff := now.Add(-c.cfg.SwipeWindow)
	st.samples.DropWhile(func(s velocitySample) bool { return s.at.Before(cutoff) })

	cand, ok := c.detectSwipe(st, g)
	if !ok {
		st.swiping = false
		return candidate{}, false
	}
	continuing := st.swiping && st.lastType == cand.typ && st.lastDir == cand.direction
	if !continuing && !st.lastSwipe.IsZero() && now.Sub(st.lastSwipe) < c.cfg.SwipeCooldown {
		st.swiping = false
		return candidate{}, false
	}
	st.swiping = true
	st.lastType, st.lastDir, st.lastSwipe = cand.typ, cand.direction, now
	return cand, true
}

func (c *Classifier) detectSwipe(st *swipeTracker, g *handGeometry) (candidate, bool) {
	samples := st.samples.Values()
	if len(samples) < c.cfg.SwipeMinSamples {
		return candidate{}, false
	}

	var mx, my float64
	for _, s := range samples {
		mx += s.vel.X
		my += s.vel.Y
	}
	mx /= float64(len(samples))
	my /= float64(len(samples))
	speed := math.Hypot(mx, my)
	if speed < c.cfg.SwipeMinSpeed {
		return candidate{}, false
	}

	consistency := 0.0
	for _, s := range samples {
		if n := math.Hypot(s.vel.X, s.vel.Y); n > 0 {
			consistency += (s.vel.X*mx + s.vel.Y*my) / (n * speed)
		}
	}
	consistency /= float64(len(samples))
	if consistency < c.cfg.SwipeConsistency {
		return candidate{}, false
	}

	cand := candidate{
		strength:  consistency * (0.5 + 0.5*ramp(speed, c.cfg.SwipeMinSpeed, 2*c.cfg.SwipeMinSpeed)),
		score:     g.score,
		hands:     []detector.Side{g.side},
		direction: direction(mx, my),
		position:  g.center,
		meta:      map[string]float64{"speed": speed, "vx": mx, "vy": my, "consistency": consistency},
	}
	if math.Abs(mx) >= math.Abs(my) {
		cand.typ, cand.value = SwipeHorizontal, mx
	} else {
		cand.typ, cand.value = SwipeVertical, my
	}
	return cand, true
}

type pairSample struct {
	at         time.Time
	separation float64
	size       float64
}

// pairTracker follows the relation between both hands across frames.
type pairTracker struct {
	samples  *ringbuf.Ring[pairSample]
	lastClap time.Time
}

func newPairTracker() *pairTracker {
	return &pairTracker{samples: ringbuf.New[pairSample](motionSamples)}
}

func (p *pairTracker) reset() {
	p.samples.Reset()
}

func (p *pairTracker) observe(now time.Time, sep, size float64, keep time.Duration) {
	p.samples.Push(pairSample{at: now, separation: sep, size: size})
	cutoff := now.Add(-keep)
	p.samples.DropWhile(func(s pairSample) bool { return s.at.Before(cutoff) })
}

// clap looks for the separation closing to contact and reopening inside the
// clap window.
func (c *Classifier) clap(p *pairTracker, now time.Time) (float64, float64, bool) {
	if !p.lastClap.IsZero() && now.Sub(p.lastClap) < c.cfg.ClapCooldown {
		return 0, 0, false
	}
	cutoff := now.Add(-c.cfg.ClapWindow)
	var window []pairSample
	for _, s := range p.samples.Values() {
		if !s.at.Before(cutoff) {
			window = append(window, s)
		}
	}
	if len(window) < 3 {
		return 0, 0, false
	}

	m := 0
	for i, s := range window {
		if s.separation < window[m].separation {
			m = i
		}
	}
	contact := window[m].separation
	last := window[len(window)-1].separation
	if m == 0 || m == len(window)-1 || contact > c.cfg.ClapContact {
		return 0, 0, false
	}
	before := 0.0
	for _, s := range window[:m] {
		before = math.Max(before, s.separation)
	}
	drop := before - contact
	if drop < c.cfg.ClapDelta || last-contact < c.cfg.ClapRebound {
		return 0, 0, false
	}

	p.lastClap = now
	strength := 0.6 + 0.4*ramp(drop, c.cfg.ClapDelta, 2*c.cfg.ClapDelta)
	return strength, drop, true
}

// pushPull compares the mean apparent palm size with the oldest sample in
// the push window; hands moving toward the camera grow.
func (c *Classifier) pushPull(p *pairTracker, now time.Time) (Type, float64, float64, bool) {
	cutoff := now.Add(-c.cfg.PushWindow)
	var oldest *pairSample
	samples := p.samples.Values()
	for i := range samples {
		if !samples[i].at.Before(cutoff) {
			oldest = &samples[i]
			break
		}
	}
	cur, ok := p.samples.Last()
	if !ok || oldest == nil || oldest.size <= 0 || cur.at.Sub(oldest.at) < c.cfg.PushWindow/2 {
		return "", 0, 0, false
	}

	ratio := cur.size / oldest.size
	limit := math.Log1p(c.cfg.PushThreshold)
	change := math.Log(ratio)
	if math.Abs(change) < limit {
		return "", 0, 0, false
	}
	strength := 0.5 + 0.5*ramp(math.Abs(change), limit, 2*limit)
	if change > 0 {
		return Push, strength, ratio - 1, true
	}
	return Pull, strength, ratio - 1, true
}
