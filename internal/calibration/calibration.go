// Package calibration personalizes the pipeline to one user's hands. A
// session collects screen-position samples and hand observations; finalizing
// it produces Data with hand metrics, per-landmark baselines and a linear
// hand-to-screen fit.
package calibration

import (
	"math"
	"time"

	"github.com/ayusman/gesturemix/internal/detector"
)

// Sample pairs a screen target with where the hand was when it was
// recorded.
type Sample struct {
	ScreenX    float64   `json:"screen_x"`
	ScreenY    float64   `json:"screen_y"`
	HandX      float64   `json:"hand_x"`
	HandY      float64   `json:"hand_y"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

func (s Sample) valid() bool {
	for _, v := range []float64{s.ScreenX, s.ScreenY, s.HandX, s.HandY, s.Confidence} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return s.Confidence >= 0 && s.Confidence <= 1
}

// Metrics are physical hand measurements in normalized image units.
type Metrics struct {
	PalmWidth    float64 `json:"palm_width"`    // index MCP to pinky MCP
	PalmHeight   float64 `json:"palm_height"`   // wrist to middle MCP
	FingerLength float64 `json:"finger_length"` // middle MCP to middle tip
	Span         float64 `json:"span"`          // thumb tip to pinky tip
}

func measure(h *detector.HandLandmarks) Metrics {
	p := h.Points
	return Metrics{
		PalmWidth:    detector.Distance(p[detector.IndexMCP], p[detector.PinkyMCP]),
		PalmHeight:   detector.Distance(p[detector.Wrist], p[detector.MiddleMCP]),
		FingerLength: detector.Distance(p[detector.MiddleMCP], p[detector.MiddleTip]),
		Span:         detector.Distance(p[detector.ThumbTip], p[detector.PinkyTip]),
	}
}

// Fit is a per-axis linear map: screen = Intercept + Slope*hand.
type Fit struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

func (f Fit) apply(v float64) float64 { return f.Intercept + f.Slope*v }

var identity = Fit{Slope: 1}

// Data is the result of a calibration.
type Data struct {
	ID         string             `json:"id"`
	UserID     string             `json:"user_id"`
	Calibrated bool               `json:"calibrated"`
	Metrics    Metrics            `json:"metrics"`
	Baseline   []detector.Point3D `json:"baseline,omitempty"` // wrist-relative, palm-size scaled
	Samples    []Sample           `json:"samples,omitempty"`
	FitX       Fit                `json:"fit_x"`
	FitY       Fit                `json:"fit_y"`
	Accuracy   float64            `json:"accuracy"`
	CreatedAt  time.Time          `json:"created_at"`
}

// Default is the uncalibrated identity calibration.
func Default() *Data {
	return &Data{FitX: identity, FitY: identity, CreatedAt: time.Now()}
}

// Apply maps a hand position to calibrated screen coordinates. nil and
// uncalibrated data are the identity.
func (d *Data) Apply(x, y float64) (float64, float64) {
	if d == nil || !d.Calibrated {
		return x, y
	}
	return d.FitX.apply(x), d.FitY.apply(y)
}

// SpanRatio is the hand span relative to palm height, or 0 when unknown.
func (d *Data) SpanRatio() float64 {
	if d == nil || !d.Calibrated || d.Metrics.PalmHeight <= 0 {
		return 0
	}
	return d.Metrics.Span / d.Metrics.PalmHeight
}
