// Package ringbuf provides a fixed-capacity circular buffer used for
// rolling windows of samples and events.
package ringbuf

// Ring is a circular buffer holding at most Cap values. Pushing onto a full
// ring overwrites the oldest value.
type Ring[T any] struct {
	buf   []T
	pos   int
	count int
}

// New creates a ring with the given capacity. Capacities below one are
// raised to one.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push adds a value, evicting the oldest one when full.
func (r *Ring[T]) Push(v T) {
	r.buf[r.pos] = v
	r.pos = (r.pos + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// Values returns all stored values in chronological order.
func (r *Ring[T]) Values() []T {
	if r.count == 0 {
		return nil
	}
	out := make([]T, r.count)
	start := r.start()
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}

// At returns the i-th value counting from the oldest.
func (r *Ring[T]) At(i int) T {
	return r.buf[(r.start()+i)%len(r.buf)]
}

// Last returns the most recent value and whether the ring is non-empty.
func (r *Ring[T]) Last() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}
	return r.buf[(r.pos-1+len(r.buf))%len(r.buf)], true
}

// DropWhile removes values from the oldest end while drop returns true.
func (r *Ring[T]) DropWhile(drop func(T) bool) {
	var zero T
	for r.count > 0 {
		i := r.start()
		if !drop(r.buf[i]) {
			return
		}
		r.buf[i] = zero
		r.count--
	}
}

// Len returns the number of stored values.
func (r *Ring[T]) Len() int { return r.count }

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Reset empties the ring.
func (r *Ring[T]) Reset() {
	clear(r.buf)
	r.pos = 0
	r.count = 0
}

func (r *Ring[T]) start() int {
	return (r.pos - r.count + len(r.buf)) % len(r.buf)
}
