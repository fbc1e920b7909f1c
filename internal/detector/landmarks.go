// Package detector defines the hand landmark boundary of the pipeline: the
// 21-point hand model, per-frame detection results and detector
// implementations that produce them.
package detector

import (
	"math"
	"strings"
	"time"
)

// Hand landmark indices following the MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Side identifies which hand a set of landmarks belongs to.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// ParseSide accepts handedness labels in any case ("Left", "right").
func ParseSide(s string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return SideLeft, true
	case "right":
		return SideRight, true
	}
	return "", false
}

// Valid reports whether s is one of the known sides.
func (s Side) Valid() bool {
	return s == SideLeft || s == SideRight
}

// Point3D is a landmark position. X and Y are normalized to the image
// (0..1, origin top-left); Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Distance2D returns the distance between two points in the image plane.
func Distance2D(a, b Point3D) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Point3D) Point3D {
	return Point3D{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2, Z: (a.Z + b.Z) / 2}
}

// HandLandmarks is one detected hand.
type HandLandmarks struct {
	Points     []Point3D `json:"points"`
	Handedness Side      `json:"handedness"`
	Score      float64   `json:"score"`
}

// Valid reports whether the hand has exactly NumLandmarks finite points with
// image coordinates inside [0,1], a known side and a score in [0,1].
func (h *HandLandmarks) Valid() bool {
	if h == nil || len(h.Points) != NumLandmarks || !h.Handedness.Valid() {
		return false
	}
	if !finite(h.Score) || h.Score < 0 || h.Score > 1 {
		return false
	}
	for _, p := range h.Points {
		if !finite(p.X) || !finite(p.Y) || !finite(p.Z) {
			return false
		}
		if p.X < 0 || p.X > 1 || p.Y < 0 || p.Y > 1 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (h HandLandmarks) Clone() HandLandmarks {
	h.Points = append([]Point3D(nil), h.Points...)
	return h
}

// PalmCenter is the mean of the wrist and the four finger MCP joints.
func (h *HandLandmarks) PalmCenter() Point3D {
	idx := [...]int{Wrist, IndexMCP, MiddleMCP, RingMCP, PinkyMCP}
	var c Point3D
	for _, i := range idx {
		c.X += h.Points[i].X
		c.Y += h.Points[i].Y
		c.Z += h.Points[i].Z
	}
	n := float64(len(idx))
	return Point3D{X: c.X / n, Y: c.Y / n, Z: c.Z / n}
}

// PalmSize is the wrist to middle MCP distance, used as the hand's scale.
func (h *HandLandmarks) PalmSize() float64 {
	return Distance(h.Points[Wrist], h.Points[MiddleMCP])
}

// Normalize returns a copy with the wrist at the origin, scaled so that the
// wrist to middle MCP distance is 1.0. A degenerate hand is only translated.
func (h *HandLandmarks) Normalize() *HandLandmarks {
	if h == nil || len(h.Points) < NumLandmarks {
		return nil
	}

	out := &HandLandmarks{
		Points:     make([]Point3D, len(h.Points)),
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	wrist := h.Points[Wrist]
	scale := h.PalmSize()
	if scale == 0 {
		scale = 1
	}
	for i, p := range h.Points {
		out.Points[i] = Point3D{
			X: (p.X - wrist.X) / scale,
			Y: (p.Y - wrist.Y) / scale,
			Z: (p.Z - wrist.Z) / scale,
		}
	}
	return out
}

// Denormalize maps image-normalized points to pixel coordinates.
func (h *HandLandmarks) Denormalize(width, height int) []Point3D {
	out := make([]Point3D, len(h.Points))
	for i, p := range h.Points {
		out[i] = Point3D{X: p.X * float64(width), Y: p.Y * float64(height), Z: p.Z * float64(width)}
	}
	return out
}

// Frame is the detector output for one camera frame.
type Frame struct {
	Hands     []HandLandmarks `json:"hands"`
	Timestamp time.Time       `json:"timestamp"`
	Width     int             `json:"width"`
	Height    int             `json:"height"`
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func sincos(deg float64) (float64, float64) {
	return math.Sincos(deg * math.Pi / 180)
}
