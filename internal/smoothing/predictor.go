package smoothing

import (
	"math"
	"time"

	"github.com/ayusman/gesturemix/internal/ringbuf"
)

// PredictionConfig controls short-horizon position prediction.
type PredictionConfig struct {
	Enabled       bool          `json:"enabled"`
	Horizon       time.Duration `json:"horizon"`
	MinConfidence float64       `json:"min_confidence"`
	MaxError      float64       `json:"max_error"`
	HistorySize   int           `json:"history_size"`
}

type pendingPrediction struct {
	due  time.Time
	x, y float64
}

// Predictor linearly extrapolates a 2D point and scores itself by how far
// its earlier predictions landed from the observed positions.
type Predictor struct {
	cfg     PredictionConfig
	pending *ringbuf.Ring[pendingPrediction]
	errors  *ringbuf.Ring[float64]
	x, y    float64
	vel     Velocity
	has     bool
}

// NewPredictor creates a predictor.
func NewPredictor(cfg PredictionConfig) *Predictor {
	return &Predictor{
		cfg:     cfg,
		pending: ringbuf.New[pendingPrediction](32),
		errors:  ringbuf.New[float64](cfg.HistorySize),
	}
}

// Observe records the smoothed position and velocity at time now, resolves
// predictions that have come due and queues a new one.
func (p *Predictor) Observe(now time.Time, x, y float64, vel Velocity) {
	p.pending.DropWhile(func(pp pendingPrediction) bool {
		if pp.due.After(now) {
			return false
		}
		p.errors.Push(math.Hypot(pp.x-x, pp.y-y))
		return true
	})

	p.x, p.y, p.vel, p.has = x, y, vel, true
	px, py := p.extrapolate()
	p.pending.Push(pendingPrediction{due: now.Add(p.cfg.Horizon), x: px, y: py})
}

// Predict returns the position expected Horizon from the last observation
// with its confidence. ok is false while the predictor is disabled, has no
// resolved error history or fails the confidence and error gates.
func (p *Predictor) Predict() (x, y, confidence float64, ok bool) {
	if !p.cfg.Enabled || !p.has || p.errors.Len() == 0 {
		return 0, 0, 0, false
	}
	meanErr := p.MeanError()
	confidence = 1.0
	if p.cfg.MaxError > 0 {
		confidence = clamp01(1 - meanErr/p.cfg.MaxError)
	}
	if confidence < p.cfg.MinConfidence || (p.cfg.MaxError > 0 && meanErr > p.cfg.MaxError) {
		return 0, 0, confidence, false
	}
	x, y = p.extrapolate()
	return x, y, confidence, true
}

// MeanError is the average distance between resolved predictions and reality.
func (p *Predictor) MeanError() float64 {
	errs := p.errors.Values()
	if len(errs) == 0 {
		return 0
	}
	sum := 0.0
	for _, e := range errs {
		sum += e
	}
	return sum / float64(len(errs))
}

// Reset forgets all history.
func (p *Predictor) Reset() {
	p.pending.Reset()
	p.errors.Reset()
	p.has = false
}

func (p *Predictor) extrapolate() (float64, float64) {
	h := p.cfg.Horizon.Seconds()
	return p.x + p.vel.X*h, p.y + p.vel.Y*h
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
