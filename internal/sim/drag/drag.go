// Package drag implements the press/move/release lifecycle for movable puzzle tokens.
//
// One Controller serves every board in a room: at most one token is being dragged at any time.
// Boards own their slots and decide whether a release is accepted (the token snaps into a slot)
// or reverted.
package drag

import (
	"log"

	"github.com/go-gl/mathgl/mgl64"

	"starroom.ai/internal/sim/spatial"
)

type State int

const (
	Idle State = iota
	Dragging
	SnappedAccepted
	Reverted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case SnappedAccepted:
		return "snapped"
	case Reverted:
		return "reverted"
	default:
		return "unknown"
	}
}

// Gate decides whether a puzzle currently accepts drags (right view mode, unsolved, no overlay).
type Gate interface {
	AllowDrag(puzzle string) bool
}

type GateFunc func(puzzle string) bool

func (f GateFunc) AllowDrag(puzzle string) bool { return f(puzzle) }

// Board is a set of tokens and target slots lying on a horizontal plane of a parent frame.
type Board interface {
	Puzzle() string
	Token(id string) *Token
	Tokens() []*Token
	// Frame is the board's local-to-world transform.
	Frame() mgl64.Mat4
	// PlaneY is the world height pointer rays are intersected with.
	PlaneY() float64
	// Preview returns where the token is shown while the pointer is at local.
	Preview(t *Token, local spatial.Vec3) spatial.Vec3
	// Release finalizes a drop at local.
	Release(t *Token, local spatial.Vec3) Placement
	// Revert sends the token back as if it was dropped outside every slot.
	Revert(t *Token) Placement
	Complete() bool
}

// Placement is the outcome of a release.
type Placement struct {
	Puzzle   string
	TokenID  string
	Accepted bool
	Position spatial.Vec3
	Slot     string
	Correct  bool
	// Code is "" for a clean accept, E_INVALID_PLACEMENT for a drop outside every slot and
	// E_STATE_CONFLICT for a drop on a slot held by another token.
	Code string
	// Complete is the board's completion predicate evaluated after the placement.
	Complete bool
}

type Controller struct {
	gate   Gate
	logger *log.Logger

	state State
	board Board
	token *Token
	last  spatial.Vec3
	moved bool

	// OnPlaced runs after every accept or revert, once the drag state is already cleared.
	OnPlaced func(b Board, p Placement)
}

func NewController(gate Gate, logger *log.Logger) *Controller {
	return &Controller{gate: gate, logger: logger}
}

func (c *Controller) State() State { return c.state }

func (c *Controller) Dragging() bool { return c.token != nil }

// Active returns the board and token of the drag in progress.
func (c *Controller) Active() (Board, *Token, bool) {
	if c.token == nil {
		return nil, nil, false
	}
	return c.board, c.token, true
}

func (c *Controller) BeginDrag(b Board, tokenID string) (bool, string, string) {
	if c.token != nil {
		return false, "E_STATE_CONFLICT", "another drag is in progress"
	}
	if b == nil {
		return false, "E_MISSING_DEPENDENCY", "no board"
	}
	t := b.Token(tokenID)
	if t == nil {
		return false, "E_MISSING_ENTITY", "unknown token: " + tokenID
	}
	if c.gate != nil && !c.gate.AllowDrag(b.Puzzle()) {
		return false, "E_STATE_CONFLICT", "puzzle not accepting drags"
	}
	t.remember()
	c.board = b
	c.token = t
	c.last = spatial.Vec3{}
	c.moved = false
	c.state = Dragging
	return true, "", ""
}

// UpdateDrag moves the dragged token under the pointer. It returns false (and leaves the token
// in place) when no drag is active or the ray misses the board plane.
func (c *Controller) UpdateDrag(ray *spatial.Ray) bool {
	if c.token == nil {
		return false
	}
	local, ok := c.project(ray)
	if !ok {
		return false
	}
	c.last = local
	c.moved = true
	c.token.Position = c.board.Preview(c.token, local)
	return true
}

// EndDrag drops the token. With a nil or missing ray the last previewed position is used.
func (c *Controller) EndDrag(ray *spatial.Ray) (Placement, bool) {
	if c.token == nil {
		return Placement{}, false
	}
	b, t := c.board, c.token
	local, ok := c.project(ray)
	if !ok {
		if c.moved {
			local = c.last
		} else {
			local = t.Position
		}
	}
	c.clear()

	p := b.Release(t, local)
	c.finish(b, p)
	return p, true
}

// HandlePointerLeaveWindow reverts the dragged token as if it was dropped outside every slot.
func (c *Controller) HandlePointerLeaveWindow() (Placement, bool) {
	return c.Cancel()
}

// Cancel reverts an in-flight drag. It is a no-op when nothing is being dragged.
func (c *Controller) Cancel() (Placement, bool) {
	if c.token == nil {
		return Placement{}, false
	}
	b, t := c.board, c.token
	c.clear()
	p := b.Revert(t)
	c.finish(b, p)
	return p, true
}

func (c *Controller) clear() {
	c.board = nil
	c.token = nil
	c.moved = false
	c.state = Idle
}

func (c *Controller) finish(b Board, p Placement) {
	if p.Accepted {
		c.state = SnappedAccepted
	} else {
		c.state = Reverted
	}
	if c.OnPlaced != nil {
		c.OnPlaced(b, p)
	}
}

func (c *Controller) project(ray *spatial.Ray) (spatial.Vec3, bool) {
	if ray == nil {
		return spatial.Vec3{}, false
	}
	hit, ok := spatial.RaycastToPlane(*ray, c.board.PlaneY())
	if !ok {
		if c.logger != nil {
			c.logger.Printf("drag: ray misses plane puzzle=%s code=E_MISSING_DEPENDENCY", c.board.Puzzle())
		}
		return spatial.Vec3{}, false
	}
	return spatial.ToLocalFrame(hit, c.board.Frame()), true
}
