// Package gesture classifies smoothed hands into gesture events. Static poses
// come from per-hand landmark geometry, dynamic gestures from short motion
// windows, and two-hand gestures from the relation between both palms. Each
// candidate's confidence combines geometric strength, detection score and
// temporal stability against a bounded per-type history.
package gesture

import (
	"time"

	"github.com/ayusman/gesturemix/internal/detector"
)

// Type is a gesture type.
type Type string

// Single-hand gestures.
const (
	Pinch           Type = "pinch"
	Fist            Type = "fist"
	OpenPalm        Type = "open-palm"
	SwipeHorizontal Type = "swipe-horizontal"
	SwipeVertical   Type = "swipe-vertical"
	Point           Type = "point"
	PeaceSign       Type = "peace-sign"
	ThumbsUp        Type = "thumbs-up"
	ThumbsDown      Type = "thumbs-down"
	RotateOneHand   Type = "rotate-one-hand"
)

// Two-hand gestures.
const (
	TwoHandPinch  Type = "two-hand-pinch"
	Spread        Type = "spread"
	Clap          Type = "clap"
	TwoHandRotate Type = "two-hand-rotate"
	Crossfader    Type = "crossfader-gesture"
	Push          Type = "push"
	Pull          Type = "pull"
)

// AllTypes lists every gesture type in a stable order.
var AllTypes = []Type{
	Pinch, Fist, OpenPalm, SwipeHorizontal, SwipeVertical, Point, PeaceSign,
	ThumbsUp, ThumbsDown, RotateOneHand,
	TwoHandPinch, Spread, Clap, TwoHandRotate, Crossfader, Push, Pull,
}

var twoHand = map[Type]bool{
	TwoHandPinch: true, Spread: true, Clap: true, TwoHandRotate: true,
	Crossfader: true, Push: true, Pull: true,
}

// poses are mutually competing static hand shapes; flicker between them
// lowers stability.
var poses = map[Type]bool{
	Pinch: true, Fist: true, OpenPalm: true, Point: true, PeaceSign: true,
	ThumbsUp: true, ThumbsDown: true,
}

// Valid reports whether t is a known gesture type.
func (t Type) Valid() bool {
	for _, v := range AllTypes {
		if v == t {
			return true
		}
	}
	return false
}

// TwoHand reports whether t needs both hands.
func (t Type) TwoHand() bool { return twoHand[t] }

// Event is one classified gesture for one frame.
//
// Value carries the gesture's primary measurement:
//   - pinch: thumb to index distance in palm sizes
//   - point, rotate-one-hand, two-hand-rotate: angle in degrees
//   - swipe: palm velocity along the swipe axis (units/s)
//   - spread: palm separation; crossfader-gesture: horizontal separation
//   - two-hand-pinch: distance between the two pinch points
//   - clap: how far the hands closed before meeting
//   - push, pull: relative change in apparent palm size
//   - other poses: geometric strength
type Event struct {
	Type       Type               `json:"type"`
	Confidence float64            `json:"confidence"`
	Timestamp  time.Time          `json:"timestamp"`
	Hands      []detector.Side    `json:"hands"`
	Value      float64            `json:"value"`
	Direction  string             `json:"direction,omitempty"`
	Position   detector.Point3D   `json:"position"`
	Metadata   map[string]float64 `json:"metadata,omitempty"`
}

// HasHand reports whether side contributed to the event.
func (e Event) HasHand(side detector.Side) bool {
	for _, s := range e.Hands {
		if s == side {
			return true
		}
	}
	return false
}

// Metric returns the named measurement; "" and "value" select Value.
func (e Event) Metric(key string) (float64, bool) {
	if key == "" || key == "value" {
		return e.Value, true
	}
	if key == "confidence" {
		return e.Confidence, true
	}
	v, ok := e.Metadata[key]
	return v, ok
}

func sameHands(a, b []detector.Side) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
