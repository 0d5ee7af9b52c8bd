// Package viewmode owns the room's single active camera/interaction mode.
//
// Puzzle modes are only reachable from free roam. Entering one captures the camera pose and
// takes the camera away from the player; leaving runs every registered cancel hook, puts the
// captured pose back exactly and hands the camera back once the restore delay has passed.
package viewmode

import (
	"time"

	"starroom.ai/internal/sim/spatial"
	"starroom.ai/internal/sim/timeline"
)

type Kind int

const (
	FreeRoam Kind = iota
	TopDown
	Blackboard
	StarBackground
)

func (k Kind) String() string {
	switch k {
	case FreeRoam:
		return "free_roam"
	case TopDown:
		return "top_down"
	case Blackboard:
		return "blackboard"
	case StarBackground:
		return "star_background"
	default:
		return "unknown"
	}
}

type Mode struct {
	Kind Kind
	// TableID is set for TopDown only.
	TableID string
}

func (m Mode) String() string {
	if m.Kind == TopDown && m.TableID != "" {
		return m.Kind.String() + ":" + m.TableID
	}
	return m.Kind.String()
}

// Pose is a camera position plus Euler rotation in degrees (pitch, yaw, roll).
type Pose struct {
	Position spatial.Vec3
	Rotation spatial.Vec3
}

// Engine names an interaction engine that may receive pointer input.
type Engine int

const (
	EngineNone Engine = iota
	EngineDrag
	EngineConstellation
	EngineLetters
)

const controlsSequence = "viewmode.controls"

type Options struct {
	Transition   time.Duration
	RestoreDelay time.Duration
	Clamp        Clamp
}

type Controller struct {
	tl  *timeline.Timeline
	opt Options

	mode     Mode
	saved    *Pose
	current  Pose
	look     spatial.Vec2
	controls bool
	cancels  []func()

	// OnControls reports every change of the free-camera input state.
	OnControls func(enabled bool)
}

func New(tl *timeline.Timeline, opt Options, start Pose) *Controller {
	c := &Controller{tl: tl, opt: opt, controls: true}
	c.setCurrent(start)
	return c
}

func (c *Controller) Mode() Mode { return c.mode }
func (c *Controller) Current() Pose { return c.current }
func (c *Controller) Look() spatial.Vec2 { return c.look }
func (c *Controller) ControlsEnabled() bool { return c.controls }
func (c *Controller) InPuzzle() bool { return c.mode.Kind != FreeRoam }

// ClampActive reports whether the free-roam camera clamp applies.
func (c *Controller) ClampActive() bool { return c.mode.Kind == FreeRoam }

// OnCancel registers a hook run on every exit, before the pose is restored.
func (c *Controller) OnCancel(fn func()) {
	c.cancels = append(c.cancels, fn)
}

// Routes reports whether engine receives pointer input in the current mode.
func (c *Controller) Routes(e Engine) bool {
	switch c.mode.Kind {
	case TopDown:
		return e == EngineDrag
	case Blackboard:
		return e == EngineConstellation
	case StarBackground:
		return e == EngineLetters
	default:
		return false
	}
}

// Track applies a camera pose reported by the host. Reports are ignored while the camera is not
// under player control. The returned pose is the accepted (clamped) one.
func (c *Controller) Track(p Pose) (Pose, bool) {
	if c.mode.Kind != FreeRoam || !c.controls {
		return c.current, false
	}
	p.Position = c.opt.Clamp.Apply(p.Position)
	c.setCurrent(p)
	return c.current, true
}

// Enter switches from free roam into mode, moving the camera to framing. It is a no-op from any
// other mode.
func (c *Controller) Enter(m Mode, current, framing Pose) bool {
	if m.Kind == FreeRoam || c.mode.Kind != FreeRoam {
		return false
	}
	saved := current
	c.saved = &saved
	c.mode = m
	c.tl.Cancel(controlsSequence)
	c.setControls(false)
	c.current = framing
	return true
}

// Exit returns to free roam and yields the restored pose.
func (c *Controller) Exit() (Pose, bool) {
	if c.mode.Kind == FreeRoam {
		return c.current, false
	}
	for _, fn := range c.cancels {
		fn()
	}
	restored := c.current
	if c.saved != nil {
		restored = *c.saved
	}
	c.saved = nil
	c.mode = Mode{Kind: FreeRoam}
	c.setCurrent(restored)
	c.tl.After(controlsSequence, c.opt.RestoreDelay, func() {
		if c.mode.Kind == FreeRoam {
			c.setControls(true)
		}
	})
	return restored, true
}

func (c *Controller) setCurrent(p Pose) {
	c.current = p
	c.look = spatial.Vec2{p.Rotation[0], p.Rotation[1]}
}

func (c *Controller) setControls(on bool) {
	if c.controls == on {
		return
	}
	c.controls = on
	if c.OnControls != nil {
		c.OnControls(on)
	}
}
