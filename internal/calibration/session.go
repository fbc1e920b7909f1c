package calibration

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/gesturemix/internal/detector"
	"github.com/ayusman/gesturemix/internal/monitoring"
)

var (
	// ErrNotActive is returned when recording without a running session.
	ErrNotActive = errors.New("calibration: no active session")
	// ErrInvalidSample is returned for non-finite or out-of-range samples.
	ErrInvalidSample = errors.New("calibration: invalid sample")
	// ErrNoHand is returned by Capture when no hand has been observed.
	ErrNoHand = errors.New("calibration: no hand observed")
)

// Config holds session limits.
type Config struct {
	MinSamples      int     // fewer samples finalize to Default
	MaxSamples      int     // later samples are ignored
	MaxObservations int     // hand snapshots kept for baselines
	AccuracyScale   float64 // mean fit error that scores zero accuracy
}

// DefaultConfig returns the standard session limits.
func DefaultConfig() Config {
	return Config{
		MinSamples:      3,
		MaxSamples:      100,
		MaxObservations: 600,
		AccuracyScale:   0.1,
	}
}

// Session collects calibration input. It is safe for concurrent use: the
// frame loop calls Observe while the API records samples.
type Session struct {
	mu           sync.Mutex
	cfg          Config
	active       bool
	userID       string
	startedAt    time.Time
	samples      []Sample
	observations []detector.HandLandmarks
	last         *detector.HandLandmarks
	now          func() time.Time
}

// NewSession creates an idle session.
func NewSession(cfg Config) *Session {
	if cfg.MinSamples < 1 {
		cfg.MinSamples = 1
	}
	return &Session{cfg: cfg, now: time.Now}
}

// Start begins collecting, discarding anything from a previous run.
func (s *Session) Start(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = true
	s.userID = userID
	s.startedAt = s.now()
	s.samples = nil
	s.observations = nil
	s.last = nil
	monitoring.Logf("calibration: session started for %q", userID)
}

// Stop ends collection without computing a result. Collected input is kept
// until the next Start so Finalize can still use it.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
}

// Active reports whether the session is collecting.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Progress returns the number of samples and hand observations collected.
func (s *Session) Progress() (samples, observations int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples), len(s.observations)
}

// Observe records the hands seen in one frame. The highest-scoring valid
// hand is kept for baselines and as the position used by Capture.
func (s *Session) Observe(hands []detector.HandLandmarks) {
	var best *detector.HandLandmarks
	for i := range hands {
		h := &hands[i]
		if !h.Valid() {
			continue
		}
		if best == nil || h.Score > best.Score {
			best = h
		}
	}
	if best == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	cp := best.Clone()
	s.last = &cp
	if len(s.observations) < s.cfg.MaxObservations {
		s.observations = append(s.observations, cp)
	}
}

// Record adds one labelled sample.
func (s *Session) Record(sample Sample) error {
	if !sample.valid() {
		return ErrInvalidSample
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return ErrNotActive
	}
	if len(s.samples) >= s.cfg.MaxSamples {
		return nil
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = s.now()
	}
	s.samples = append(s.samples, sample)
	return nil
}

// Capture records a sample for a screen target using the palm centre of
// the most recently observed hand.
func (s *Session) Capture(screenX, screenY float64) (Sample, error) {
	s.mu.Lock()
	last := s.last
	active := s.active
	s.mu.Unlock()

	if !active {
		return Sample{}, ErrNotActive
	}
	if last == nil {
		return Sample{}, ErrNoHand
	}
	c := last.PalmCenter()
	sample := Sample{
		ScreenX:    screenX,
		ScreenY:    screenY,
		HandX:      c.X,
		HandY:      c.Y,
		Confidence: last.Score,
		Timestamp:  s.now(),
	}
	if err := s.Record(sample); err != nil {
		return Sample{}, fmt.Errorf("capture: %w", err)
	}
	return sample, nil
}

// Finalize ends the session and computes the calibration. With fewer than
// MinSamples samples it returns Default.
func (s *Session) Finalize() *Data {
	s.mu.Lock()
	s.active = false
	samples := append([]Sample(nil), s.samples...)
	observations := s.observations
	userID := s.userID
	s.mu.Unlock()

	if len(samples) < s.cfg.MinSamples {
		monitoring.Logf("calibration: %d samples collected, need %d; using defaults", len(samples), s.cfg.MinSamples)
		d := Default()
		d.UserID = userID
		return d
	}

	d := &Data{
		ID:         uuid.NewString(),
		UserID:     userID,
		Calibrated: true,
		Samples:    samples,
		CreatedAt:  s.now(),
	}
	d.Metrics, d.Baseline = baselines(observations)

	hx, hy, sx, sy, w := columns(samples)
	d.FitX = fitAxis(hx, sx, w)
	d.FitY = fitAxis(hy, sy, w)
	d.Accuracy = accuracy(d, s.cfg.AccuracyScale)

	monitoring.Logf("calibration: finalized %d samples, %d observations, accuracy %.2f",
		len(samples), len(observations), d.Accuracy)
	return d
}

func columns(samples []Sample) (hx, hy, sx, sy, w []float64) {
	n := len(samples)
	hx, hy = make([]float64, n), make([]float64, n)
	sx, sy = make([]float64, n), make([]float64, n)
	w = make([]float64, n)
	total := 0.0
	for i, s := range samples {
		hx[i], hy[i] = s.HandX, s.HandY
		sx[i], sy[i] = s.ScreenX, s.ScreenY
		w[i] = s.Confidence
		total += s.Confidence
	}
	if total == 0 {
		w = nil
	}
	return hx, hy, sx, sy, w
}

// fitAxis regresses screen on hand coordinates weighted by confidence. When
// the hand barely moved the slope is fixed at 1 and only the offset is fit.
func fitAxis(hand, screen, weights []float64) Fit {
	if _, std := stat.MeanStdDev(hand, weights); !(std > 1e-6) {
		return Fit{Slope: 1, Intercept: stat.Mean(screen, weights) - stat.Mean(hand, weights)}
	}
	alpha, beta := stat.LinearRegression(hand, screen, weights, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) || math.IsInf(beta, 0) {
		return identity
	}
	return Fit{Slope: beta, Intercept: alpha}
}

func accuracy(d *Data, scale float64) float64 {
	if scale <= 0 {
		return 0
	}
	var sum float64
	for _, s := range d.Samples {
		x, y := d.Apply(s.HandX, s.HandY)
		sum += math.Hypot(x-s.ScreenX, y-s.ScreenY)
	}
	meanErr := sum / float64(len(d.Samples))
	return math.Max(0, math.Min(1, 1-meanErr/scale))
}

// baselines averages the hand metrics and the wrist-relative landmark
// positions across all observations.
func baselines(observations []detector.HandLandmarks) (Metrics, []detector.Point3D) {
	if len(observations) == 0 {
		return Metrics{}, nil
	}

	var m Metrics
	sum := make([]detector.Point3D, detector.NumLandmarks)
	n := 0
	for i := range observations {
		h := &observations[i]
		norm := h.Normalize()
		if norm == nil {
			continue
		}
		hm := measure(h)
		m.PalmWidth += hm.PalmWidth
		m.PalmHeight += hm.PalmHeight
		m.FingerLength += hm.FingerLength
		m.Span += hm.Span
		for j, p := range norm.Points[:detector.NumLandmarks] {
			sum[j].X += p.X
			sum[j].Y += p.Y
			sum[j].Z += p.Z
		}
		n++
	}
	if n == 0 {
		return Metrics{}, nil
	}

	f := float64(n)
	m.PalmWidth /= f
	m.PalmHeight /= f
	m.FingerLength /= f
	m.Span /= f
	for j := range sum {
		sum[j] = detector.Point3D{X: sum[j].X / f, Y: sum[j].Y / f, Z: sum[j].Z / f}
	}
	return m, sum
}
