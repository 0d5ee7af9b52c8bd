package viewmode

import (
	"math"

	"starroom.ai/internal/sim/spatial"
)

// Rect is an axis-aligned x/z area in world space.
type Rect struct {
	MinX, MaxX float64
	MinZ, MaxZ float64
}

func (r Rect) Contains(x, z float64) bool {
	return x >= r.MinX && x <= r.MaxX && z >= r.MinZ && z <= r.MaxZ
}

// Clamp keeps the free-roam camera inside the room and out of table footprints.
type Clamp struct {
	Bounds     Rect
	Footprints []Rect
}

// Apply clamps to the room, pushes the point to the nearest edge of any footprint it is inside,
// then clamps to the room again. Height is left alone.
func (c Clamp) Apply(p spatial.Vec3) spatial.Vec3 {
	x, z := c.bound(p[0], p[2])
	for _, f := range c.Footprints {
		if f.Contains(x, z) {
			x, z = pushOut(x, z, f)
		}
	}
	x, z = c.bound(x, z)
	return spatial.Vec3{x, p[1], z}
}

func (c Clamp) bound(x, z float64) (float64, float64) {
	if c.Bounds == (Rect{}) {
		return x, z
	}
	x = math.Max(c.Bounds.MinX, math.Min(c.Bounds.MaxX, x))
	z = math.Max(c.Bounds.MinZ, math.Min(c.Bounds.MaxZ, z))
	return x, z
}

// pushOut ties resolve left, right, front, back in that order.
func pushOut(x, z float64, r Rect) (float64, float64) {
	left := math.Abs(x - r.MinX)
	right := math.Abs(x - r.MaxX)
	front := math.Abs(z - r.MinZ)
	back := math.Abs(z - r.MaxZ)
	m := math.Min(math.Min(left, right), math.Min(front, back))
	switch m {
	case left:
		return r.MinX, z
	case right:
		return r.MaxX, z
	case front:
		return x, r.MinZ
	default:
		return x, r.MaxZ
	}
}
