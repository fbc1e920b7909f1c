package gesture

import (
	"time"

	"github.com/ayusman/gesturemix/internal/ringbuf"
)

// History keeps recently emitted events per type, bounded by count and age.
type History struct {
	maxAge    time.Duration
	maxEvents int
	byType    map[Type]*ringbuf.Ring[Event]
}

// NewHistory creates an empty history.
func NewHistory(maxAge time.Duration, maxEvents int) *History {
	return &History{maxAge: maxAge, maxEvents: maxEvents, byType: make(map[Type]*ringbuf.Ring[Event])}
}

// Append records an emitted event, evicting the oldest when full.
func (h *History) Append(e Event) {
	r := h.byType[e.Type]
	if r == nil {
		r = ringbuf.New[Event](h.maxEvents)
		h.byType[e.Type] = r
	}
	r.Push(e)
}

// Evict drops events older than the maximum age.
func (h *History) Evict(now time.Time) {
	cutoff := now.Add(-h.maxAge)
	for _, r := range h.byType {
		r.DropWhile(func(e Event) bool { return e.Timestamp.Before(cutoff) })
	}
}

// Since returns events of type t at or after since, oldest first.
func (h *History) Since(t Type, since time.Time) []Event {
	r := h.byType[t]
	if r == nil {
		return nil
	}
	var out []Event
	for _, e := range r.Values() {
		if !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of retained events of type t.
func (h *History) Len(t Type) int {
	if r := h.byType[t]; r != nil {
		return r.Len()
	}
	return 0
}

// Latest returns the most recent event of type t.
func (h *History) Latest(t Type) (Event, bool) {
	if r := h.byType[t]; r != nil {
		return r.Last()
	}
	return Event{}, false
}

// Resize changes the limits, keeping the newest events that still fit.
func (h *History) Resize(maxAge time.Duration, maxEvents int) {
	old := h.byType
	h.maxAge, h.maxEvents = maxAge, maxEvents
	h.byType = make(map[Type]*ringbuf.Ring[Event])
	for _, r := range old {
		for _, e := range r.Values() {
			h.Append(e)
		}
	}
}

// Reset drops every event.
func (h *History) Reset() {
	clear(h.byType)
}
