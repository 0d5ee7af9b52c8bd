package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type Vec3 = mgl64.Vec3
type Vec2 = mgl64.Vec2

// OriginEpsilon is the XZ distance under which a point counts as sitting on the ring center.
const OriginEpsilon = 0.01

const parallelEpsilon = 1e-9

type Ray struct {
	Origin Vec3
	Dir    Vec3
}

// PointInAxisAlignedRect reports whether point lies inside the rectangle, edges included.
func PointInAxisAlignedRect(point, center Vec2, halfWidth, halfHeight float64) bool {
	return point[0] >= center[0]-halfWidth &&
		point[0] <= center[0]+halfWidth &&
		point[1] >= center[1]-halfHeight &&
		point[1] <= center[1]+halfHeight
}

func DistanceFromOriginXZ(p Vec3) float64 {
	return math.Hypot(p[0], p[2])
}

func RingDistance(p Vec3, ringRadius float64) float64 {
	return math.Abs(DistanceFromOriginXZ(p) - ringRadius)
}

func NearestPointOnRing(p Vec3, ringRadius float64) Vec3 {
	angle := 0.0
	if DistanceFromOriginXZ(p) > OriginEpsilon {
		angle = math.Atan2(p[2], p[0])
	}
	return Vec3{math.Cos(angle) * ringRadius, p[1], math.Sin(angle) * ringRadius}
}

// RaycastToPlane intersects ray with the horizontal plane y = planeY.
// It returns false when the ray is parallel to the plane or points away from it.
func RaycastToPlane(ray Ray, planeY float64) (Vec3, bool) {
	if math.Abs(ray.Dir[1]) < parallelEpsilon {
		return Vec3{}, false
	}
	t := (planeY - ray.Origin[1]) / ray.Dir[1]
	if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return Vec3{}, false
	}
	p := ray.Origin.Add(ray.Dir.Mul(t))
	p[1] = planeY
	return p, true
}
