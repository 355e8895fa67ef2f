package whiteboard

// Zoom bounds and wheel sensitivity.
const (
	MinScale        = 0.1
	MaxScale        = 5.0
	ZoomSensitivity = 0.001
)

// Viewport is the pan offset and zoom scale of the canvas.
// Zoom is anchored at the origin, not at the cursor.
type Viewport struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale"`
}

// NewViewport returns the identity viewport.
func NewViewport() Viewport {
	return Viewport{Scale: 1}
}

// ScreenToWorld maps a screen point into world coordinates.
func (v Viewport) ScreenToWorld(sx, sy float64) Point {
	return Point{
		X: (sx - v.X) / v.Scale,
		Y: (sy - v.Y) / v.Scale,
	}
}

// WorldToScreen is the inverse of ScreenToWorld.
func (v Viewport) WorldToScreen(wx, wy float64) Point {
	return Point{
		X: wx*v.Scale + v.X,
		Y: wy*v.Scale + v.Y,
	}
}

// Center returns the world point under the centre of a canvas of the given
// screen size.
func (v Viewport) Center(width, height float64) Point {
	return v.ScreenToWorld(width/2, height/2)
}

// Pan moves the viewport by a raw screen delta.
func (v *Viewport) Pan(dx, dy float64) {
	v.X += dx
	v.Y += dy
}

// Zoom adjusts the scale by a wheel delta and clamps it.
func (v *Viewport) Zoom(deltaY float64) {
	v.Scale = clampScale(v.Scale - deltaY*ZoomSensitivity)
}

func clampScale(s float64) float64 {
	if s < MinScale {
		return MinScale
	}
	if s > MaxScale {
		return MaxScale
	}
	return s
}
