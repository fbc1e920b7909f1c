package smoothing

import "math"

// AdaptiveConfig controls motion-dependent smoothing. Smoothing is the
// weight given to the previous output: MaxSmoothing when the hand is still,
// falling to MinSmoothing once speed or acceleration reach their thresholds.
type AdaptiveConfig struct {
	MinSmoothing          float64 `json:"min_smoothing"`
	MaxSmoothing          float64 `json:"max_smoothing"`
	VelocityThreshold     float64 `json:"velocity_threshold"`     // units/s
	AccelerationThreshold float64 `json:"acceleration_threshold"` // units/s²
}

// Adaptive is a one-axis smoother whose weight follows motion.
type Adaptive struct {
	cfg       AdaptiveConfig
	prev      float64
	prevVel   float64
	smoothing float64
	primed    bool
}

// NewAdaptive creates a smoother.
func NewAdaptive(cfg AdaptiveConfig) *Adaptive {
	return &Adaptive{cfg: cfg, smoothing: cfg.MaxSmoothing}
}

// Update smooths value given the current velocity estimate and timestep.
func (a *Adaptive) Update(value, velocity, dt float64) float64 {
	if !a.primed {
		a.prev = value
		a.prevVel = velocity
		a.primed = true
		return value
	}

	accel := 0.0
	if dt > 0 {
		accel = math.Abs(velocity-a.prevVel) / dt
	}
	a.prevVel = velocity
	a.smoothing = a.weight(math.Abs(velocity), accel)

	a.prev = a.smoothing*a.prev + (1-a.smoothing)*value
	return a.prev
}

// Smoothing returns the weight used by the last update.
func (a *Adaptive) Smoothing() float64 { return a.smoothing }

// Reset forgets all state.
func (a *Adaptive) Reset() {
	a.prev, a.prevVel = 0, 0
	a.smoothing = a.cfg.MaxSmoothing
	a.primed = false
}

func (a *Adaptive) weight(speed, accel float64) float64 {
	motion := 0.0
	if a.cfg.VelocityThreshold > 0 {
		motion = speed / a.cfg.VelocityThreshold
	}
	if a.cfg.AccelerationThreshold > 0 {
		motion = math.Max(motion, accel/a.cfg.AccelerationThreshold)
	}
	if motion >= 1 {
		return a.cfg.MinSmoothing
	}
	return a.cfg.MaxSmoothing - (a.cfg.MaxSmoothing-a.cfg.MinSmoothing)*motion
}
