// Package smoothing filters raw hand landmarks into stable positions and
// velocities. Every landmark of every tracked hand runs through outlier
// rejection, a constant-velocity Kalman filter, motion-adaptive smoothing and
// an optional short-horizon predictor.
package smoothing

import (
	"sort"
	"time"

	"github.com/ayusman/gesturemix/internal/detector"
	"github.com/ayusman/gesturemix/internal/monitoring"
)

// Config holds smoothing engine options.
type Config struct {
	ProcessNoisePos  float64          `json:"process_noise_pos"`
	ProcessNoiseVel  float64          `json:"process_noise_vel"`
	MeasurementNoise float64          `json:"measurement_noise"`
	Timestep         time.Duration    `json:"timestep"`     // nominal frame interval
	MaxTimestep      time.Duration    `json:"max_timestep"` // clamp for long gaps
	DepthAlpha       float64          `json:"depth_alpha"`  // EMA weight for Z
	HandTimeout      time.Duration    `json:"hand_timeout"` // grace period before a lost hand is reset
	Adaptive         AdaptiveConfig   `json:"adaptive"`
	Outlier          OutlierConfig    `json:"outlier"`
	Prediction       PredictionConfig `json:"prediction"`
}

// DefaultConfig returns defaults tuned for a 60 Hz camera.
func DefaultConfig() Config {
	return Config{
		ProcessNoisePos:  0.01,
		ProcessNoiseVel:  1.0,
		MeasurementNoise: 1e-4,
		Timestep:         time.Second / 60,
		MaxTimestep:      100 * time.Millisecond,
		DepthAlpha:       0.5,
		HandTimeout:      250 * time.Millisecond,
		Adaptive: AdaptiveConfig{
			MinSmoothing:          0.1,
			MaxSmoothing:          0.7,
			VelocityThreshold:     0.5,
			AccelerationThreshold: 8,
		},
		Outlier: OutlierConfig{
			WindowSize:     10,
			Multiplier:     2,
			MinSamples:     5,
			MinStdDev:      0.003,
			Mode:           OutlierDiscard,
			MaxConsecutive: 3,
		},
		Prediction: PredictionConfig{
			Enabled:       true,
			Horizon:       50 * time.Millisecond,
			MinConfidence: 0.5,
			MaxError:      0.05,
			HistorySize:   10,
		},
	}
}

// Velocity is a landmark velocity in normalized units per second.
type Velocity struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Hand is a smoothed hand.
type Hand struct {
	Side       detector.Side      `json:"side"`
	Score      float64            `json:"score"`
	Timestamp  time.Time          `json:"timestamp"`
	Points     []detector.Point3D `json:"points"`
	Velocities []Velocity         `json:"velocities"`

	// Predicted holds positions Horizon ahead, or nil when the predictor
	// has not earned enough confidence for every landmark.
	Predicted            []detector.Point3D `json:"predicted,omitempty"`
	PredictionConfidence float64            `json:"prediction_confidence,omitempty"`
}

// Landmarks returns the smoothed points as detector landmarks.
func (h *Hand) Landmarks() *detector.HandLandmarks {
	return &detector.HandLandmarks{Points: h.Points, Handedness: h.Side, Score: h.Score}
}

// PalmVelocity averages the velocities of the wrist and finger MCP joints.
func (h *Hand) PalmVelocity() Velocity {
	idx := [...]int{detector.Wrist, detector.IndexMCP, detector.MiddleMCP, detector.RingMCP, detector.PinkyMCP}
	var v Velocity
	for _, i := range idx {
		v.X += h.Velocities[i].X
		v.Y += h.Velocities[i].Y
	}
	n := float64(len(idx))
	return Velocity{X: v.X / n, Y: v.Y / n}
}

type pointKey struct {
	side  detector.Side
	index int
}

type pointFilter struct {
	kalman    *Kalman2D
	outX      *OutlierFilter
	outY      *OutlierFilter
	adaptX    *Adaptive
	adaptY    *Adaptive
	depth     *EMA
	predictor *Predictor
}

func newPointFilter(cfg Config) *pointFilter {
	return &pointFilter{
		kalman:    NewKalman2D(cfg),
		outX:      NewOutlierFilter(cfg.Outlier),
		outY:      NewOutlierFilter(cfg.Outlier),
		adaptX:    NewAdaptive(cfg.Adaptive),
		adaptY:    NewAdaptive(cfg.Adaptive),
		depth:     NewEMA(cfg.DepthAlpha),
		predictor: NewPredictor(cfg.Prediction),
	}
}

func (f *pointFilter) update(p detector.Point3D, dt float64, now time.Time) (detector.Point3D, Velocity) {
	x, _ := f.outX.Check(p.X)
	y, _ := f.outY.Check(p.Y)

	kx, ky := f.kalman.Update(x, y, dt)
	f.outX.Accept(kx)
	f.outY.Accept(ky)

	vel := f.kalman.Velocity()
	out := detector.Point3D{
		X: f.adaptX.Update(kx, vel.X, dt),
		Y: f.adaptY.Update(ky, vel.Y, dt),
		Z: f.depth.Update(p.Z),
	}
	f.predictor.Observe(now, out.X, out.Y, vel)
	return out, vel
}

// skipLogInterval is the minimum frame-time gap between invalid-hand log
// lines.
const skipLogInterval = 10 * time.Second

type handState struct {
	lastSeen time.Time
}

// Engine owns the filter state of every tracked landmark. It is not safe for
// concurrent use; the pipeline serializes access.
type Engine struct {
	cfg     Config
	filters map[pointKey]*pointFilter
	hands   map[detector.Side]*handState

	skipped       uint64
	loggedSkipped uint64
	lastSkipLog   time.Time
}

// New creates an engine.
func New(cfg Config) *Engine {
	return &Engine{
		cfg:     cfg,
		filters: make(map[pointKey]*pointFilter),
		hands:   make(map[detector.Side]*handState),
	}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Process smooths one frame. Invalid hands are skipped; when a side appears
// twice only the first hand is used. Hands missing for longer than
// HandTimeout lose their filter state. The result is ordered left, right.
func (e *Engine) Process(frame detector.Frame) []Hand {
	now := frame.Timestamp
	seen := make(map[detector.Side]bool, 2)
	out := make([]Hand, 0, len(frame.Hands))

	for i := range frame.Hands {
		h := &frame.Hands[i]
		if !h.Valid() {
			e.skipped++
			continue
		}
		if seen[h.Handedness] {
			continue
		}
		seen[h.Handedness] = true
		out = append(out, e.processHand(h, now))
	}

	for side, st := range e.hands {
		if !seen[side] && now.Sub(st.lastSeen) > e.cfg.HandTimeout {
			e.ResetHand(side)
		}
	}

	e.logSkipped(now)
	sort.Slice(out, func(i, j int) bool { return out[i].Side < out[j].Side })
	return out
}

func (e *Engine) logSkipped(now time.Time) {
	if e.skipped == e.loggedSkipped {
		return
	}
	if !e.lastSkipLog.IsZero() && now.Sub(e.lastSkipLog) < skipLogInterval {
		return
	}
	monitoring.Logf("smoothing: skipped %d invalid hands (%d total)", e.skipped-e.loggedSkipped, e.skipped)
	e.loggedSkipped = e.skipped
	e.lastSkipLog = now
}

// Skipped returns the number of invalid hands dropped so far.
func (e *Engine) Skipped() uint64 { return e.skipped }

func (e *Engine) processHand(h *detector.HandLandmarks, now time.Time) Hand {
	st, ok := e.hands[h.Handedness]
	if ok && now.Sub(st.lastSeen) > e.cfg.HandTimeout {
		e.ResetHand(h.Handedness)
		ok = false
	}
	dt := e.cfg.Timestep.Seconds()
	if ok {
		dt = e.timestep(now.Sub(st.lastSeen))
	} else {
		st = &handState{}
		e.hands[h.Handedness] = st
	}
	st.lastSeen = now

	hand := Hand{
		Side:       h.Handedness,
		Score:      h.Score,
		Timestamp:  now,
		Points:     make([]detector.Point3D, detector.NumLandmarks),
		Velocities: make([]Velocity, detector.NumLandmarks),
	}

	predicted := make([]detector.Point3D, detector.NumLandmarks)
	predictionOK := true
	confSum := 0.0
	for i, p := range h.Points {
		key := pointKey{side: h.Handedness, index: i}
		f := e.filters[key]
		if f == nil {
			f = newPointFilter(e.cfg)
			e.filters[key] = f
		}
		hand.Points[i], hand.Velocities[i] = f.update(p, dt, now)

		if predictionOK {
			x, y, conf, ok := f.predictor.Predict()
			if !ok {
				predictionOK = false
				continue
			}
			predicted[i] = detector.Point3D{X: x, Y: y, Z: hand.Points[i].Z}
			confSum += conf
		}
	}
	if predictionOK {
		hand.Predicted = predicted
		hand.PredictionConfidence = confSum / detector.NumLandmarks
	}
	return hand
}

// timestep converts the gap between frames to seconds, falling back to the
// nominal step for non-positive gaps and clamping long ones.
func (e *Engine) timestep(gap time.Duration) float64 {
	if gap <= 0 {
		return e.cfg.Timestep.Seconds()
	}
	if e.cfg.MaxTimestep > 0 && gap > e.cfg.MaxTimestep {
		gap = e.cfg.MaxTimestep
	}
	return gap.Seconds()
}

// ResetHand discards the filter state of one side.
func (e *Engine) ResetHand(side detector.Side) {
	for i := 0; i < detector.NumLandmarks; i++ {
		delete(e.filters, pointKey{side: side, index: i})
	}
	delete(e.hands, side)
}

// Reset discards all filter state.
func (e *Engine) Reset() {
	clear(e.filters)
	clear(e.hands)
}

// Tracked returns the sides that currently hold filter state.
func (e *Engine) Tracked() []detector.Side {
	sides := make([]detector.Side, 0, len(e.hands))
	for side := range e.hands {
		sides = append(sides, side)
	}
	sort.Slice(sides, func(i, j int) bool { return sides[i] < sides[j] })
	return sides
}
