package drag

import "starroom.ai/internal/sim/spatial"

// Token is a movable puzzle piece (planet or zodiac sign). Positions are in the owning board's
// local frame.
type Token struct {
	ID string
	// Key is the correctness key: the planet name on the orbit board, the element label on the
	// image board.
	Key string

	Position     spatial.Vec3
	LastAccepted spatial.Vec3
	Correct      bool
	// Slot is the ring or region currently held, "" when none.
	Slot string

	home       spatial.Vec3
	dragStart  spatial.Vec3
	remembered bool
}

func NewToken(id, key string, home spatial.Vec3) *Token {
	return &Token{
		ID:           id,
		Key:          key,
		Position:     home,
		LastAccepted: home,
		home:         home,
	}
}

// Home is the placement the token was created with. It never changes.
func (t *Token) Home() spatial.Vec3 { return t.home }

// DragStart is the position remembered on the token's first drag.
func (t *Token) DragStart() (spatial.Vec3, bool) { return t.dragStart, t.remembered }

func (t *Token) remember() {
	if t.remembered {
		return
	}
	t.dragStart = t.Position
	t.remembered = true
}

func (t *Token) accept(pos spatial.Vec3, slot string, correct bool) {
	t.Position = pos
	t.LastAccepted = pos
	t.Slot = slot
	t.Correct = correct
}

func (t *Token) resetTo(pos spatial.Vec3) {
	t.Position = pos
	t.Slot = ""
	t.Correct = false
}
