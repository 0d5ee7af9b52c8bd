package ringsnap

import (
	"math"

	"starroom.ai/internal/sim/spatial"
)

const tieEpsilon = 1e-9

type Ring struct {
	Radius float64
	// Occupant is the token currently holding the ring, "" when free.
	Occupant string
}

type Options struct {
	Threshold float64
	// DeadZone rejects snap points this close to the center (the sun).
	DeadZone float64
}

type Result struct {
	Index    int
	Ring     Ring
	Snap     spatial.Vec3
	Distance float64
}

// Find returns the closest eligible ring strictly within the threshold of point. Rings held by a token other than
// excluding are skipped. Equal distances resolve to the smaller radius.
func Find(point spatial.Vec3, rings []Ring, opt Options, excluding string) (Result, bool) {
	best := Result{Index: -1}
	for i, r := range rings {
		d := spatial.RingDistance(point, r.Radius)
		if d >= opt.Threshold {
			continue
		}
		if r.Occupant != "" && r.Occupant != excluding {
			continue
		}
		if best.Index >= 0 {
			if d > best.Distance+tieEpsilon {
				continue
			}
			if math.Abs(d-best.Distance) <= tieEpsilon && r.Radius >= best.Ring.Radius {
				continue
			}
		}
		best = Result{Index: i, Ring: r, Distance: d}
	}
	if best.Index < 0 {
		return Result{Index: -1}, false
	}
	best.Snap = spatial.NearestPointOnRing(point, best.Ring.Radius)
	if spatial.DistanceFromOriginXZ(best.Snap) < opt.DeadZone {
		return Result{Index: -1}, false
	}
	return best, true
}
