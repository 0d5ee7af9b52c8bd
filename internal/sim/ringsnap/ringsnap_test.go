package ringsnap

import (
	"math"
	"testing"

	"starroom.ai/internal/sim/spatial"
)

var opts = Options{Threshold: 0.15, DeadZone: 0.2}

func rings(radii ...float64) []Ring {
	out := make([]Ring, 0, len(radii))
	for _, r := range radii {
		out = append(out, Ring{Radius: r})
	}
	return out
}

func TestFindClosest(t *testing.T) {
	res, ok := Find(spatial.Vec3{0.52, 0, 0}, rings(0.25, 0.35, 0.45, 0.55), opts, "")
	if !ok || res.Ring.Radius != 0.55 {
		t.Fatalf("expected 0.55, got %+v ok=%v", res, ok)
	}
	if math.Abs(res.Snap[0]-0.55) > 1e-9 {
		t.Fatalf("snap=%v", res.Snap)
	}
}

func TestFindThreshold(t *testing.T) {
	if _, ok := Find(spatial.Vec3{2, 0, 0}, rings(0.25, 1.15), opts, ""); ok {
		t.Fatalf("point far from every ring must not snap")
	}
}

func TestFindSkipsOccupied(t *testing.T) {
	rs := rings(0.45, 0.55)
	rs[1].Occupant = "mars"
	res, ok := Find(spatial.Vec3{0.55, 0, 0}, rs, opts, "earth")
	if !ok || res.Ring.Radius != 0.45 {
		t.Fatalf("occupied ring should be skipped, got %+v ok=%v", res, ok)
	}
	res, ok = Find(spatial.Vec3{0.55, 0, 0}, rs, opts, "mars")
	if !ok || res.Ring.Radius != 0.55 {
		t.Fatalf("own ring stays eligible, got %+v ok=%v", res, ok)
	}
}

func TestFindTieBreakSmallestRadius(t *testing.T) {
	res, ok := Find(spatial.Vec3{0, 0, 0.5}, rings(0.55, 0.45), Options{Threshold: 0.1}, "")
	if !ok || res.Ring.Radius != 0.45 {
		t.Fatalf("tie should pick the smaller radius, got %+v", res)
	}
}

func TestFindDeadZone(t *testing.T) {
	if _, ok := Find(spatial.Vec3{0.1, 0, 0}, rings(0.15), opts, ""); ok {
		t.Fatalf("snap inside the dead zone must be rejected")
	}
}

func TestFindThresholdIsStrict(t *testing.T) {
	o := Options{Threshold: 0.25}
	if _, ok := Find(spatial.Vec3{0.75, 0, 0}, rings(0.5), o, ""); ok {
		t.Fatalf("point exactly at the threshold must not snap")
	}
	if _, ok := Find(spatial.Vec3{0.7, 0, 0}, rings(0.5), o, ""); !ok {
		t.Fatalf("point inside the threshold should snap")
	}
}
