package smoothing

// EMA is an exponential moving average. Alpha is the weight of each new
// sample.
type EMA struct {
	alpha  float64
	value  float64
	primed bool
}

// NewEMA creates an average; alpha is clamped to (0,1].
func NewEMA(alpha float64) *EMA {
	if alpha <= 0 || alpha > 1 {
		alpha = 1
	}
	return &EMA{alpha: alpha}
}

// Update folds v into the average and returns it. The first sample is
// returned unchanged.
func (e *EMA) Update(v float64) float64 {
	if !e.primed {
		e.value = v
		e.primed = true
		return v
	}
	e.value += e.alpha * (v - e.value)
	return e.value
}

// Value returns the current average.
func (e *EMA) Value() float64 { return e.value }

// Reset forgets the average.
func (e *EMA) Reset() {
	e.value = 0
	e.primed = false
}
