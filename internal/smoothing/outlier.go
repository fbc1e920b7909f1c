package smoothing

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/gesturemix/internal/ringbuf"
)

// OutlierMode selects what happens to a rejected measurement.
type OutlierMode string

const (
	// OutlierDiscard replaces the measurement with the last accepted value.
	OutlierDiscard OutlierMode = "discard"
	// OutlierDamp pulls the measurement back to the edge of the window.
	OutlierDamp OutlierMode = "damp"
)

// OutlierConfig controls outlier rejection.
type OutlierConfig struct {
	WindowSize     int         `json:"window_size"`
	Multiplier     float64     `json:"multiplier"`
	MinSamples     int         `json:"min_samples"`
	MinStdDev      float64     `json:"min_std_dev"`
	Mode           OutlierMode `json:"mode"`
	MaxConsecutive int         `json:"max_consecutive"`
}

// OutlierFilter rejects measurements deviating more than Multiplier standard
// deviations from the mean of recent filtered values. After MaxConsecutive
// rejections in a row the jump is treated as real and accepted.
type OutlierFilter struct {
	cfg         OutlierConfig
	window      *ringbuf.Ring[float64]
	lastGood    float64
	hasGood     bool
	consecutive int
}

// NewOutlierFilter creates a filter.
func NewOutlierFilter(cfg OutlierConfig) *OutlierFilter {
	return &OutlierFilter{cfg: cfg, window: ringbuf.New[float64](cfg.WindowSize)}
}

// Check returns the value to feed downstream and whether v was rejected.
func (f *OutlierFilter) Check(v float64) (float64, bool) {
	min := f.cfg.MinSamples
	if min < 2 {
		min = 2
	}
	if f.window.Len() < min {
		return v, false
	}

	mean, std := stat.MeanStdDev(f.window.Values(), nil)
	std = math.Max(std, f.cfg.MinStdDev)
	limit := f.cfg.Multiplier * std
	dev := v - mean
	if math.Abs(dev) <= limit {
		f.consecutive = 0
		return v, false
	}

	f.consecutive++
	if f.cfg.MaxConsecutive > 0 && f.consecutive >= f.cfg.MaxConsecutive {
		f.consecutive = 0
		f.window.Reset()
		return v, false
	}

	if f.cfg.Mode == OutlierDamp {
		return mean + math.Copysign(limit, dev), true
	}
	if f.hasGood {
		return f.lastGood, true
	}
	return mean, true
}

// Accept records a filtered value in the window.
func (f *OutlierFilter) Accept(filtered float64) {
	f.window.Push(filtered)
	f.lastGood = filtered
	f.hasGood = true
}

// Reset clears the window.
func (f *OutlierFilter) Reset() {
	f.window.Reset()
	f.hasGood = false
	f.consecutive = 0
}
