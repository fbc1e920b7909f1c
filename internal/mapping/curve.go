package mapping

import "math"

// Curve reshapes a normalized [0,1] value before it is scaled to the output.
type Curve string

const (
	CurveLinear      Curve = "linear"
	CurveExponential Curve = "exponential"
	CurveLogarithmic Curve = "logarithmic"
	CurveSCurve      Curve = "s-curve"
)

// Valid reports whether c is a known curve; empty means linear.
func (c Curve) Valid() bool {
	switch c {
	case "", CurveLinear, CurveExponential, CurveLogarithmic, CurveSCurve:
		return true
	}
	return false
}

// Apply maps t in [0,1] to [0,1], keeping both endpoints fixed.
func (c Curve) Apply(t float64) float64 {
	switch c {
	case CurveExponential:
		return t * t
	case CurveLogarithmic:
		return math.Log1p(9*t) / math.Log(10)
	case CurveSCurve:
		return t * t * (3 - 2*t)
	}
	return t
}
