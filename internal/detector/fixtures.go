package detector

// Preset right-hand poses with the palm facing the camera. They are used by
// tests across the pipeline and by the mock camera mode.

func hand(points ...Point3D) HandLandmarks {
	return HandLandmarks{Points: points, Handedness: SideRight, Score: 0.95}
}

var curledFingers = []Point3D{
	{X: 0.55, Y: 0.70, Z: -0.02}, {X: 0.55, Y: 0.68, Z: -0.05}, {X: 0.52, Y: 0.70, Z: -0.04}, {X: 0.50, Y: 0.72, Z: -0.02},
	{X: 0.50, Y: 0.68, Z: -0.02}, {X: 0.50, Y: 0.66, Z: -0.05}, {X: 0.47, Y: 0.68, Z: -0.04}, {X: 0.45, Y: 0.70, Z: -0.02},
	{X: 0.45, Y: 0.70, Z: -0.02}, {X: 0.45, Y: 0.68, Z: -0.05}, {X: 0.42, Y: 0.70, Z: -0.04}, {X: 0.41, Y: 0.71, Z: -0.02},
	{X: 0.40, Y: 0.72, Z: -0.02}, {X: 0.40, Y: 0.70, Z: -0.05}, {X: 0.38, Y: 0.71, Z: -0.04}, {X: 0.38, Y: 0.72, Z: -0.02},
}

var tuckedThumb = []Point3D{
	{X: 0.55, Y: 0.76, Z: 0.0}, {X: 0.58, Y: 0.72, Z: -0.01}, {X: 0.55, Y: 0.68, Z: -0.03}, {X: 0.51, Y: 0.67, Z: -0.04},
}

func compose(thumb []Point3D, fingers []Point3D) HandLandmarks {
	pts := make([]Point3D, 0, NumLandmarks)
	pts = append(pts, Point3D{X: 0.5, Y: 0.8, Z: 0.0})
	pts = append(pts, thumb...)
	pts = append(pts, fingers...)
	return hand(pts...)
}

// ThumbsUpLandmarks has the thumb extended upward and the other fingers curled.
func ThumbsUpLandmarks() HandLandmarks {
	return compose([]Point3D{
		{X: 0.55, Y: 0.75, Z: 0.0}, {X: 0.58, Y: 0.65, Z: 0.0}, {X: 0.58, Y: 0.50, Z: 0.0}, {X: 0.58, Y: 0.35, Z: 0.0},
	}, curledFingers)
}

// ThumbsDownLandmarks is ThumbsUpLandmarks flipped vertically.
func ThumbsDownLandmarks() HandLandmarks {
	h := ThumbsUpLandmarks()
	for i := range h.Points {
		h.Points[i].Y = 1.15 - h.Points[i].Y
	}
	return h
}

// OpenPalmLandmarks has all five fingers extended.
func OpenPalmLandmarks() HandLandmarks {
	return hand(
		Point3D{X: 0.5, Y: 0.8, Z: 0.0},
		Point3D{X: 0.55, Y: 0.75, Z: 0.02}, Point3D{X: 0.62, Y: 0.70, Z: 0.03}, Point3D{X: 0.68, Y: 0.65, Z: 0.03}, Point3D{X: 0.73, Y: 0.60, Z: 0.03},
		Point3D{X: 0.55, Y: 0.68, Z: 0.0}, Point3D{X: 0.57, Y: 0.55, Z: 0.0}, Point3D{X: 0.58, Y: 0.45, Z: 0.0}, Point3D{X: 0.58, Y: 0.35, Z: 0.0},
		Point3D{X: 0.50, Y: 0.66, Z: 0.0}, Point3D{X: 0.50, Y: 0.52, Z: 0.0}, Point3D{X: 0.50, Y: 0.40, Z: 0.0}, Point3D{X: 0.50, Y: 0.28, Z: 0.0},
		Point3D{X: 0.45, Y: 0.68, Z: 0.0}, Point3D{X: 0.43, Y: 0.55, Z: 0.0}, Point3D{X: 0.42, Y: 0.45, Z: 0.0}, Point3D{X: 0.42, Y: 0.35, Z: 0.0},
		Point3D{X: 0.40, Y: 0.70, Z: 0.0}, Point3D{X: 0.37, Y: 0.60, Z: 0.0}, Point3D{X: 0.35, Y: 0.50, Z: 0.0}, Point3D{X: 0.34, Y: 0.42, Z: 0.0},
	)
}

// FistLandmarks has every finger curled and the thumb tucked across.
func FistLandmarks() HandLandmarks {
	return compose(tuckedThumb, curledFingers)
}

// PinchLandmarks is an open hand with the thumb and index tips touching.
func PinchLandmarks() HandLandmarks {
	h := OpenPalmLandmarks()
	copy(h.Points[ThumbCMC:], []Point3D{
		{X: 0.55, Y: 0.75, Z: 0.02}, {X: 0.61, Y: 0.69, Z: 0.03}, {X: 0.64, Y: 0.60, Z: 0.02}, {X: 0.63, Y: 0.51, Z: 0.01},
		{X: 0.55, Y: 0.68, Z: 0.0}, {X: 0.59, Y: 0.58, Z: 0.0}, {X: 0.61, Y: 0.53, Z: 0.01}, {X: 0.62, Y: 0.50, Z: 0.01},
	})
	return h
}

// PeaceSignLandmarks has index and middle extended in a V.
func PeaceSignLandmarks() HandLandmarks {
	h := FistLandmarks()
	copy(h.Points[IndexMCP:], []Point3D{
		{X: 0.55, Y: 0.68, Z: 0.0}, {X: 0.58, Y: 0.56, Z: 0.0}, {X: 0.60, Y: 0.48, Z: 0.0}, {X: 0.62, Y: 0.40, Z: 0.0},
		{X: 0.50, Y: 0.66, Z: 0.0}, {X: 0.49, Y: 0.54, Z: 0.0}, {X: 0.48, Y: 0.46, Z: 0.0}, {X: 0.47, Y: 0.38, Z: 0.0},
	})
	return h
}

// PointLandmarks has only the index finger extended, pointing up.
func PointLandmarks() HandLandmarks {
	h := FistLandmarks()
	copy(h.Points[IndexMCP:], []Point3D{
		{X: 0.55, Y: 0.68, Z: 0.0}, {X: 0.56, Y: 0.56, Z: 0.0}, {X: 0.565, Y: 0.47, Z: 0.0}, {X: 0.57, Y: 0.39, Z: 0.0},
	})
	return h
}

// Place returns a copy translated so its palm center sits at (x, y).
func (h HandLandmarks) Place(x, y float64) HandLandmarks {
	out := h.Clone()
	c := h.PalmCenter()
	for i := range out.Points {
		out.Points[i].X += x - c.X
		out.Points[i].Y += y - c.Y
	}
	return out
}

// Scale returns a copy scaled by f about the palm center.
func (h HandLandmarks) Scale(f float64) HandLandmarks {
	out := h.Clone()
	c := h.PalmCenter()
	for i, p := range h.Points {
		out.Points[i] = Point3D{X: c.X + (p.X-c.X)*f, Y: c.Y + (p.Y-c.Y)*f, Z: p.Z * f}
	}
	return out
}

// Rotate returns a copy rotated by deg degrees (clockwise on screen) about the wrist.
func (h HandLandmarks) Rotate(deg float64) HandLandmarks {
	out := h.Clone()
	w := h.Points[Wrist]
	sin, cos := sincos(deg)
	for i, p := range h.Points {
		dx, dy := p.X-w.X, p.Y-w.Y
		out.Points[i].X = w.X + dx*cos - dy*sin
		out.Points[i].Y = w.Y + dx*sin + dy*cos
	}
	return out
}

// Mirror returns the same pose for the other hand, flipped about the palm center.
func (h HandLandmarks) Mirror() HandLandmarks {
	out := h.Clone()
	c := h.PalmCenter()
	for i := range out.Points {
		out.Points[i].X = 2*c.X - out.Points[i].X
	}
	if h.Handedness == SideLeft {
		out.Handedness = SideRight
	} else {
		out.Handedness = SideLeft
	}
	return out
}

// WithScore returns a copy with the detection score replaced.
func (h HandLandmarks) WithScore(score float64) HandLandmarks {
	out := h.Clone()
	out.Score = score
	return out
}
