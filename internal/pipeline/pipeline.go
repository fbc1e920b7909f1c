// Package pipeline runs the per-frame chain: smoothing, classification and
// mapping. A Pipeline processes one frame at a time; Runner feeds it from a
// camera loop through a single-slot queue that drops stale frames.
package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/gesturemix/internal/calibration"
	"github.com/ayusman/gesturemix/internal/detector"
	"github.com/ayusman/gesturemix/internal/gesture"
	"github.com/ayusman/gesturemix/internal/mapping"
	"github.com/ayusman/gesturemix/internal/monitoring"
	"github.com/ayusman/gesturemix/internal/smoothing"
)

// Config groups the component configurations.
type Config struct {
	Smoothing   smoothing.Config
	Gesture     gesture.Config
	Calibration calibration.Config
}

// DefaultConfig returns the default component configurations.
func DefaultConfig() Config {
	return Config{
		Smoothing:   smoothing.DefaultConfig(),
		Gesture:     gesture.DefaultConfig(),
		Calibration: calibration.DefaultConfig(),
	}
}

// Output is everything produced for one frame. It is built fresh per frame
// and never reused.
type Output struct {
	Timestamp   time.Time               `json:"timestamp"`
	Width       int                     `json:"width,omitempty"`
	Height      int                     `json:"height,omitempty"`
	Hands       []smoothing.Hand        `json:"hands"`
	Events      []gesture.Event         `json:"events"`
	ProfileID   string                  `json:"profile_id,omitempty"`
	Active      []mapping.ActiveGesture `json:"active"`
	Controls    []mapping.ControlValue  `json:"controls"`
	Conflicts   []mapping.Conflict      `json:"conflicts,omitempty"`
	Calibrating bool                    `json:"calibrating,omitempty"`
	Latency     time.Duration           `json:"latency"`
}

// Sink consumes frame outputs. Offer must not block.
type Sink interface {
	Offer(out Output)
}

// Sinks fans an output out to several sinks.
type Sinks []Sink

// Offer passes out to every sink.
func (s Sinks) Offer(out Output) {
	for _, sink := range s {
		sink.Offer(out)
	}
}

// Pipeline composes the three frame stages.
type Pipeline struct {
	mu          sync.Mutex
	smoother    *smoothing.Engine
	classifier  *gesture.Classifier
	mapper      *mapping.Engine
	session     *calibration.Session
	calibration atomic.Pointer[calibration.Data]
	clock       func() time.Time
}

// New creates a pipeline reading the active profile from profiles.
func New(cfg Config, profiles mapping.ProfileSource) *Pipeline {
	p := &Pipeline{
		smoother:   smoothing.New(cfg.Smoothing),
		classifier: gesture.NewClassifier(cfg.Gesture),
		mapper:     mapping.NewEngine(profiles),
		session:    calibration.NewSession(cfg.Calibration),
		clock:      time.Now,
	}
	p.calibration.Store(calibration.Default())
	return p
}

// ProcessFrame runs one frame through the pipeline. It never fails: bad
// hands are dropped and low-confidence gestures are filtered out.
func (p *Pipeline) ProcessFrame(frame detector.Frame) Output {
	start := p.clock()
	if frame.Timestamp.IsZero() {
		frame.Timestamp = start
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	out := Output{
		Timestamp: frame.Timestamp,
		Width:     frame.Width,
		Height:    frame.Height,
	}
	out.Hands = p.smoother.Process(frame)

	if p.session.Active() {
		observed := make([]detector.HandLandmarks, len(out.Hands))
		for i := range out.Hands {
			observed[i] = *out.Hands[i].Landmarks()
		}
		p.session.Observe(observed)
		out.Calibrating = true
		out.Latency = p.clock().Sub(start)
		return out
	}

	out.Events = p.classifier.Classify(out.Hands, frame.Timestamp)
	res := p.mapper.Process(out.Events, frame.Timestamp)
	out.ProfileID = res.ProfileID
	out.Active = res.Active
	out.Controls = res.Controls
	out.Conflicts = res.Conflicts
	out.Latency = p.clock().Sub(start)
	return out
}

// Session returns the calibration session used in calibration mode.
func (p *Pipeline) Session() *calibration.Session { return p.session }

// StartCalibration switches frames into sample collection.
func (p *Pipeline) StartCalibration(userID string) {
	p.session.Start(userID)
}

// StopCalibration returns to mapping without computing a result.
func (p *Pipeline) StopCalibration() {
	p.session.Stop()
}

// FinalizeCalibration computes and applies the calibration. With too few
// samples the uncalibrated default is applied and returned.
func (p *Pipeline) FinalizeCalibration() *calibration.Data {
	d := p.session.Finalize()
	p.SetCalibration(d)
	return d
}

// SetCalibration applies d to zone checks and classifier thresholds. nil
// restores the default.
func (p *Pipeline) SetCalibration(d *calibration.Data) {
	if d == nil {
		d = calibration.Default()
	}
	p.calibration.Store(d)
	p.mapper.SetCalibration(d)

	p.mu.Lock()
	hp := gesture.HandProfile{SpanRatio: d.SpanRatio()}
	if d.Calibrated {
		hp.Baseline = d.Baseline
	}
	p.classifier.Personalize(hp)
	p.mu.Unlock()

	if d.Calibrated {
		monitoring.Logf("pipeline: calibration %s applied (accuracy %.2f)", d.ID, d.Accuracy)
	}
}

// Calibration returns the applied calibration.
func (p *Pipeline) Calibration() *calibration.Data {
	return p.calibration.Load()
}

// Reconfigure replaces the classifier thresholds without touching smoothing
// state.
func (p *Pipeline) Reconfigure(cfg gesture.Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.classifier.Reconfigure(cfg)
}

// ResetHistory clears gesture history and per-mapping state.
func (p *Pipeline) ResetHistory() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.classifier.Reset()
	p.mapper.Reset()
}

// Reset clears all per-frame state, smoothing included.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.smoother.Reset()
	p.classifier.Reset()
	p.mapper.Reset()
}
