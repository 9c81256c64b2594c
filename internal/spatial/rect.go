package spatial

import "math"

// Rect is an axis-aligned box. Min is inclusive, Max exclusive.
type Rect struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// NewRect builds a rect from an origin and size.
func NewRect(x, y, w, h float64) Rect {
	return Rect{MinX: x, MinY: y, MaxX: x + w, MaxY: y + h}
}

// Centered builds a w*h rect centred on (cx, cy).
func Centered(cx, cy, w, h float64) Rect {
	return Rect{MinX: cx - w/2, MinY: cy - h/2, MaxX: cx + w/2, MaxY: cy + h/2}
}

func (r Rect) Width() float64  { return r.MaxX - r.MinX }
func (r Rect) Height() float64 { return r.MaxY - r.MinY }
func (r Rect) Empty() bool     { return r.MaxX <= r.MinX || r.MaxY <= r.MinY }

func (r Rect) Contains(x, y float64) bool {
	return x >= r.MinX && x < r.MaxX && y >= r.MinY && y < r.MaxY
}

// ContainsRect reports whether o lies fully inside r.
func (r Rect) ContainsRect(o Rect) bool {
	return o.MinX >= r.MinX && o.MaxX <= r.MaxX && o.MinY >= r.MinY && o.MaxY <= r.MaxY
}

func (r Rect) Intersects(o Rect) bool {
	return r.MinX < o.MaxX && o.MinX < r.MaxX && r.MinY < o.MaxY && o.MinY < r.MaxY
}

// Translate moves the rect by (dx, dy).
func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{MinX: r.MinX + dx, MinY: r.MinY + dy, MaxX: r.MaxX + dx, MaxY: r.MaxY + dy}
}

// Clamp pulls (x, y) into the rect.
func (r Rect) Clamp(x, y float64) (float64, float64) {
	return math.Min(math.Max(x, r.MinX), r.MaxX), math.Min(math.Max(y, r.MinY), r.MaxY)
}

// Bounded is anything with a bounding area, spawners in practice.
type Bounded interface {
	Bounds() Rect
}

// Viewport is the camera activation area. Spawners may only start a wave
// when their area touches Max but is not already inside Min, so entities
// pop in just out of view.
type Viewport struct {
	Min Rect
	Max Rect
}

// InsideActivationArea implements the spawner visibility collaborator.
func (v *Viewport) InsideActivationArea(b Rect) bool {
	if !v.Max.Intersects(b) {
		return false
	}
	return v.Min.Empty() || !v.Min.ContainsRect(b)
}

// Outside reports whether a point has left the Max area.
func (v *Viewport) Outside(x, y float64) bool {
	return !v.Max.Contains(x, y)
}

// MoveTo centres both areas on (cx, cy).
func (v *Viewport) MoveTo(cx, cy float64) {
	v.Min = Centered(cx, cy, v.Min.Width(), v.Min.Height())
	v.Max = Centered(cx, cy, v.Max.Width(), v.Max.Height())
}
