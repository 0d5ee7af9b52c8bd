package drag

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/zyedidia/generic/mapset"

	"starroom.ai/internal/sim/spatial"
)

// Region is a labeled rectangle on the board plane (local x/z).
type Region struct {
	Label  string
	Center spatial.Vec2
	Width  float64
	Height float64
}

type ImageConfig struct {
	Puzzle string
	Frame  spatial.Transform
	Height float64
	// SlotZ is the local z tokens snap to inside a region; x snaps to the region center.
	SlotZ   float64
	Regions []Region
}

type SignSpec struct {
	ID    string
	Label string
	Home  spatial.Vec3
}

// ImageBoard is the zodiac table: each sign belongs on the image of its element. Regions hold
// at most one token and only snap on release.
type ImageBoard struct {
	cfg      ImageConfig
	frame    mgl64.Mat4
	tokens   []*Token
	byID     map[string]*Token
	occupant map[string]string
}

func NewImageBoard(cfg ImageConfig, signs []SignSpec) *ImageBoard {
	b := &ImageBoard{
		cfg:      cfg,
		frame:    cfg.Frame.Matrix(),
		byID:     map[string]*Token{},
		occupant: map[string]string{},
	}
	for _, s := range signs {
		t := NewToken(s.ID, s.Label, s.Home)
		b.tokens = append(b.tokens, t)
		b.byID[s.ID] = t
	}
	return b
}

func (b *ImageBoard) Puzzle() string { return b.cfg.Puzzle }
func (b *ImageBoard) Token(id string) *Token { return b.byID[id] }
func (b *ImageBoard) Tokens() []*Token { return b.tokens }
func (b *ImageBoard) Frame() mgl64.Mat4 { return b.frame }
func (b *ImageBoard) Regions() []Region { return append([]Region(nil), b.cfg.Regions...) }

func (b *ImageBoard) PlaneY() float64 {
	return spatial.ToWorldFrame(spatial.Vec3{0, b.cfg.Height, 0}, b.frame)[1]
}

// Occupant returns the token holding the region with label, "" when free.
func (b *ImageBoard) Occupant(label string) string { return b.occupant[label] }

// Occupied returns the labels of every held region.
func (b *ImageBoard) Occupied() mapset.Set[string] {
	s := mapset.New[string]()
	for label := range b.occupant {
		s.Put(label)
	}
	return s
}

func (b *ImageBoard) Preview(t *Token, local spatial.Vec3) spatial.Vec3 {
	local[1] = t.Home()[1]
	return local
}

func (b *ImageBoard) Release(t *Token, local spatial.Vec3) Placement {
	r, ok := b.regionAt(local)
	if !ok {
		p := b.revert(t)
		p.Code = "E_INVALID_PLACEMENT"
		return p
	}
	if holder := b.occupant[r.Label]; holder != "" && holder != t.ID {
		p := b.revert(t)
		p.Code = "E_STATE_CONFLICT"
		return p
	}
	b.vacate(t.ID)
	b.occupant[r.Label] = t.ID
	correct := r.Label == t.Key
	t.accept(spatial.Vec3{r.Center[0], t.Home()[1], b.cfg.SlotZ}, r.Label, correct)
	return Placement{
		Puzzle:   b.cfg.Puzzle,
		TokenID:  t.ID,
		Accepted: true,
		Position: t.Position,
		Slot:     r.Label,
		Correct:  correct,
		Complete: b.Complete(),
	}
}

func (b *ImageBoard) Revert(t *Token) Placement {
	p := b.revert(t)
	p.Code = "E_INVALID_PLACEMENT"
	return p
}

// revert always returns to the immutable home and drops any region the token held.
func (b *ImageBoard) revert(t *Token) Placement {
	b.vacate(t.ID)
	t.resetTo(t.Home())
	t.LastAccepted = t.Home()
	return Placement{
		Puzzle:   b.cfg.Puzzle,
		TokenID:  t.ID,
		Position: t.Position,
		Complete: b.Complete(),
	}
}

func (b *ImageBoard) Complete() bool {
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

func (b *ImageBoard) regionAt(local spatial.Vec3) (Region, bool) {
	p := spatial.Vec2{local[0], local[2]}
	for _, r := range b.cfg.Regions {
		if spatial.PointInAxisAlignedRect(p, r.Center, r.Width/2, r.Height/2) {
			return r, true
		}
	}
	return Region{}, false
}

func (b *ImageBoard) vacate(id string) {
	for label, holder := range b.occupant {
		if holder == id {
			delete(b.occupant, label)
		}
	}
}
