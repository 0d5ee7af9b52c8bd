package drag

import (
	"math"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"

	"starroom.ai/internal/sim/ringsnap"
	"starroom.ai/internal/sim/spatial"
)

type OrbitConfig struct {
	Puzzle string
	Frame  spatial.Transform
	// Height is the local y of the ring plane.
	Height float64
	Radii  []float64

	Threshold        float64
	PreviewThreshold float64
	DeadZone         float64
	Tolerance        float64
}

type PlanetSpec struct {
	ID       string
	Planet   string
	Expected float64
	Home     spatial.Vec3
}

// OrbitBoard is the ring-sorting table: every planet must sit on the ring of its own radius.
// Rings are exclusive; a drop on a ring held by another planet reverts.
type OrbitBoard struct {
	cfg      OrbitConfig
	frame    mgl64.Mat4
	rings    []ringsnap.Ring
	tokens   []*Token
	byID     map[string]*Token
	expected map[string]float64
}

func NewOrbitBoard(cfg OrbitConfig, planets []PlanetSpec) *OrbitBoard {
	b := &OrbitBoard{
		cfg:      cfg,
		frame:    cfg.Frame.Matrix(),
		byID:     map[string]*Token{},
		expected: map[string]float64{},
	}
	if b.cfg.PreviewThreshold <= 0 {
		b.cfg.PreviewThreshold = b.cfg.Threshold
	}
	for _, r := range cfg.Radii {
		b.rings = append(b.rings, ringsnap.Ring{Radius: r})
	}
	for _, p := range planets {
		t := NewToken(p.ID, p.Planet, p.Home)
		b.tokens = append(b.tokens, t)
		b.byID[p.ID] = t
		b.expected[p.ID] = p.Expected
	}
	return b
}

func (b *OrbitBoard) Puzzle() string { return b.cfg.Puzzle }
func (b *OrbitBoard) Token(id string) *Token { return b.byID[id] }
func (b *OrbitBoard) Tokens() []*Token { return b.tokens }
func (b *OrbitBoard) Frame() mgl64.Mat4 { return b.frame }
func (b *OrbitBoard) Rings() []ringsnap.Ring { return append([]ringsnap.Ring(nil), b.rings...) }
func (b *OrbitBoard) Expected(id string) float64 { return b.expected[id] }

func (b *OrbitBoard) PlaneY() float64 {
	return spatial.ToWorldFrame(spatial.Vec3{0, b.cfg.Height, 0}, b.frame)[1]
}

func (b *OrbitBoard) Preview(t *Token, local spatial.Vec3) spatial.Vec3 {
	local[1] = t.Home()[1]
	res, ok := ringsnap.Find(local, b.rings, ringsnap.Options{Threshold: b.cfg.PreviewThreshold, DeadZone: b.cfg.DeadZone}, t.ID)
	if !ok {
		return local
	}
	return res.Snap
}

func (b *OrbitBoard) Release(t *Token, local spatial.Vec3) Placement {
	local[1] = t.Home()[1]
	res, ok := ringsnap.Find(local, b.rings, ringsnap.Options{Threshold: b.cfg.Threshold, DeadZone: b.cfg.DeadZone}, t.ID)
	if !ok {
		code := "E_INVALID_PLACEMENT"
		if b.heldByOther(local, t.ID) {
			code = "E_STATE_CONFLICT"
		}
		p := b.revert(t)
		p.Code = code
		return p
	}
	b.vacate(t.ID)
	b.rings[res.Index].Occupant = t.ID
	correct := math.Abs(res.Ring.Radius-b.expected[t.ID]) < b.cfg.Tolerance
	t.accept(res.Snap, ringSlot(res.Ring.Radius), correct)
	return Placement{
		Puzzle:   b.cfg.Puzzle,
		TokenID:  t.ID,
		Accepted: true,
		Position: t.Position,
		Slot:     t.Slot,
		Correct:  correct,
		Complete: b.Complete(),
	}
}

func (b *OrbitBoard) Revert(t *Token) Placement {
	p := b.revert(t)
	p.Code = "E_INVALID_PLACEMENT"
	return p
}

func (b *OrbitBoard) revert(t *Token) Placement {
	b.vacate(t.ID)
	pos := t.Home()
	if start, ok := t.DragStart(); ok {
		pos = start
	}
	t.resetTo(pos)
	return Placement{
		Puzzle:   b.cfg.Puzzle,
		TokenID:  t.ID,
		Position: t.Position,
		Complete: b.Complete(),
	}
}

// Complete reports whether every planet sits on its own ring.
func (b *OrbitBoard) Complete() bool {
	if len(b.tokens) == 0 {
		return false
	}
	for _, t := range b.tokens {
		if !t.Correct {
			return false
		}
	}
	return true
}

func (b *OrbitBoard) vacate(id string) {
	for i := range b.rings {
		if b.rings[i].Occupant == id {
			b.rings[i].Occupant = ""
		}
	}
}

func (b *OrbitBoard) heldByOther(local spatial.Vec3, id string) bool {
	for _, r := range b.rings {
		if r.Occupant != "" && r.Occupant != id && spatial.RingDistance(local, r.Radius) <= b.cfg.Threshold {
			return true
		}
	}
	return false
}

func ringSlot(radius float64) string {
	return "ring:" + strconv.FormatFloat(radius, 'f', -1, 64)
}
