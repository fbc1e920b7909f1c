package smoothing

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Kalman is a constant-velocity Kalman filter over one axis. Its state is
// [position, velocity].
type Kalman struct {
	processNoisePos  float64
	processNoiseVel  float64
	measurementNoise float64

	x           *mat.VecDense
	p           *mat.Dense
	initialized bool
}

// NewKalman creates a filter. Noise values are variances (σ²); process noise
// is scaled by the timestep on every predict.
func NewKalman(processNoisePos, processNoiseVel, measurementNoise float64) *Kalman {
	return &Kalman{
		processNoisePos:  processNoisePos,
		processNoiseVel:  processNoiseVel,
		measurementNoise: measurementNoise,
		x:                mat.NewVecDense(2, nil),
		p:                mat.NewDense(2, 2, nil),
	}
}

// Update runs predict and update for measurement z after dt seconds and
// returns the filtered position. The first measurement initializes the
// state with zero velocity.
func (k *Kalman) Update(z, dt float64) float64 {
	if !k.initialized {
		k.init(z)
		return z
	}

	// Predict: x = F x, P = F P Fᵀ + Q.
	f := mat.NewDense(2, 2, []float64{1, dt, 0, 1})
	var pred mat.VecDense
	pred.MulVec(f, k.x)
	k.x.CopyVec(&pred)

	var fp, fpft mat.Dense
	fp.Mul(f, k.p)
	fpft.Mul(&fp, f.T())
	fpft.Set(0, 0, fpft.At(0, 0)+k.processNoisePos*dt)
	fpft.Set(1, 1, fpft.At(1, 1)+k.processNoiseVel*dt)
	k.p.Copy(&fpft)

	// Update with H = [1 0].
	s := k.p.At(0, 0) + k.measurementNoise
	gain := mat.NewVecDense(2, []float64{k.p.At(0, 0) / s, k.p.At(1, 0) / s})
	innovation := z - k.x.AtVec(0)
	k.x.AddScaledVec(k.x, innovation, gain)

	h := mat.NewDense(1, 2, []float64{1, 0})
	var kh, ikh mat.Dense
	kh.Mul(gain, h)
	ikh.Sub(eye2, &kh)
	var next mat.Dense
	next.Mul(&ikh, k.p)
	k.p.Copy(&next)

	if math.IsNaN(k.x.AtVec(0)) || math.IsInf(k.x.AtVec(0), 0) {
		k.init(z)
		return z
	}
	return k.x.AtVec(0)
}

// Position returns the current position estimate.
func (k *Kalman) Position() float64 { return k.x.AtVec(0) }

// Velocity returns the current velocity estimate in units per second.
func (k *Kalman) Velocity() float64 { return k.x.AtVec(1) }

// Initialized reports whether a measurement has been seen since the last reset.
func (k *Kalman) Initialized() bool { return k.initialized }

// Reset discards all state.
func (k *Kalman) Reset() {
	k.x.Zero()
	k.p.Zero()
	k.initialized = false
}

func (k *Kalman) init(z float64) {
	k.x.SetVec(0, z)
	k.x.SetVec(1, 0)
	k.p.Copy(eye2)
	k.initialized = true
}

var eye2 = mat.NewDiagDense(2, []float64{1, 1})

// Kalman2D pairs two independent axis filters.
type Kalman2D struct {
	X, Y *Kalman
}

// NewKalman2D creates a 2D filter from the engine configuration.
func NewKalman2D(cfg Config) *Kalman2D {
	return &Kalman2D{
		X: NewKalman(cfg.ProcessNoisePos, cfg.ProcessNoiseVel, cfg.MeasurementNoise),
		Y: NewKalman(cfg.ProcessNoisePos, cfg.ProcessNoiseVel, cfg.MeasurementNoise),
	}
}

// Update filters one 2D measurement.
func (k *Kalman2D) Update(x, y, dt float64) (float64, float64) {
	return k.X.Update(x, dt), k.Y.Update(y, dt)
}

// Velocity returns the velocity estimate of both axes.
func (k *Kalman2D) Velocity() Velocity {
	return Velocity{X: k.X.Velocity(), Y: k.Y.Velocity()}
}

// Reset discards the state of both axes.
func (k *Kalman2D) Reset() {
	k.X.Reset()
	k.Y.Reset()
}
