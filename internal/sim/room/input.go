package room

import (
	"strconv"
	"strings"

	"starroom.ai/internal/protocol"
	"starroom.ai/internal/sim/constellation"
	"starroom.ai/internal/sim/drag"
	"starroom.ai/internal/sim/progression"
	"starroom.ai/internal/sim/spatial"
	"starroom.ai/internal/sim/viewmode"
)

// apply routes one host input to the engine that owns it in the current view mode.
func (r *Room) apply(in protocol.InputMsg) {
	switch in.Kind {
	case protocol.InputReady:
		r.resync = true
		r.trackCamera(in.Camera)
	case protocol.InputCamera:
		r.trackCamera(in.Camera)
	case protocol.InputKey:
		if r.locked() {
			return
		}
		switch strings.ToLower(in.Key) {
		case "e":
			r.interact()
		case "escape":
			r.exitPuzzle()
		}
	case protocol.InputPointerDown:
		if r.locked() || in.Button != 0 {
			return
		}
		r.pointerDown(in)
	case protocol.InputPointerMove:
		if r.drags.UpdateDrag(wireRay(in.Ray)) {
			if b, _, ok := r.drags.Active(); ok {
				r.syncTokens(b)
			}
		}
	case protocol.InputPointerUp:
		if in.Button != 0 {
			return
		}
		r.drags.EndDrag(wireRay(in.Ray))
	case protocol.InputPointerLeave:
		r.drags.HandlePointerLeaveWindow()
		if r.vm.Routes(viewmode.EngineConstellation) {
			r.graph.HoverStar("")
			r.graph.HoverLine(nil)
			r.syncGraph()
		}
	case protocol.InputHover:
		r.hover(in.Hits)
	case protocol.InputUI:
		r.ui(in.Action)
	default:
		r.logf("unknown input kind=%q code=%s", in.Kind, protocol.ErrProtoBadRequest)
	}
}

// locked reports whether gameplay input is refused: the intro is still playing or the game is
// over.
func (r *Room) locked() bool { return !r.introDone || r.ended }

func (r *Room) trackCamera(p *protocol.Pose) {
	if p == nil || r.ended {
		return
	}
	pose, ok := r.vm.Track(poseFromWire(*p))
	if !ok {
		return
	}
	pos := pose.Position
	r.camera = &pos
	if pos != spatial.Vec3(p.Position) {
		r.emitPose(pose.Position, pose.Rotation, 0)
	}
}

func (r *Room) pointerDown(in protocol.InputMsg) {
	switch {
	case r.vm.Routes(viewmode.EngineDrag):
		b := r.board(r.vm.Mode().TableID)
		for _, h := range in.Hits {
			if h.Kind != protocol.HitPlanet && h.Kind != protocol.HitToken {
				continue
			}
			if ok, code, msg := r.drags.BeginDrag(b, h.ID); !ok {
				r.logf("drag refused token=%s code=%s msg=%s", h.ID, code, msg)
			}
			return
		}
	case r.vm.Routes(viewmode.EngineConstellation):
		if r.guide {
			return
		}
		r.clickBlackboard(in.Hits)
	case r.vm.Routes(viewmode.EngineLetters):
		if r.guide {
			return
		}
		for _, h := range in.Hits {
			if h.Kind != protocol.HitArrow {
				continue
			}
			r.stepLetter(h)
			return
		}
	}
}

func (r *Room) board(puzzle string) drag.Board {
	switch puzzle {
	case progression.SolarSystem:
		return r.orbit
	case progression.Table2:
		return r.zodiac
	default:
		return nil
	}
}

// clickBlackboard gives the nearest drawn line the first chance at a click; a click the line
// ignores falls through to the nearest star.
func (r *Room) clickBlackboard(hits []protocol.Hit) {
	var c constellation.Change
	for _, h := range hits {
		if h.Kind != protocol.HitLine {
			continue
		}
		e, err := constellation.ParseEdgeKey(h.ID)
		if err != nil {
			r.logf("bad line hit id=%q code=%s", h.ID, protocol.ErrMissingEntity)
			break
		}
		c = r.graph.ClickLine(e, spatial.ToLocalFrame(spatial.Vec3(h.Point), r.blackboard))
		break
	}
	if c.Kind == constellation.Ignored {
		for _, h := range hits {
			if h.Kind == protocol.HitStar {
				c = r.graph.ClickStar(h.ID)
				break
			}
		}
	}
	r.syncGraph()

	switch c.Kind {
	case constellation.EdgeAdded:
		r.record(Event{Type: EventEdgeAdded, Puzzle: progression.Blackboard, Target: c.Edge.Key(), Correct: r.graph.IsCorrect(c.Edge)})
	case constellation.EdgeRemoved:
		r.record(Event{Type: EventEdgeRemoved, Puzzle: progression.Blackboard, Target: c.Edge.Key()})
	}
	if c.Solved {
		r.markSolved(progression.Blackboard)
	}
}

func (r *Room) stepLetter(h protocol.Hit) {
	delta := 1
	if h.ID == "down" {
		delta = -1
	}
	letter, solved, ok := r.letters.Step(h.Index, delta)
	if !ok {
		return
	}
	r.emitLetter(h.Index)
	r.record(Event{
		Type:    EventLetter,
		Puzzle:  progression.StarBackground,
		Target:  strconv.Itoa(h.Index),
		Slot:    letter,
		Correct: r.letters.Matches(h.Index),
	})
	if solved {
		r.markSolved(progression.StarBackground)
	}
}

func (r *Room) hover(hits []protocol.Hit) {
	if !r.vm.Routes(viewmode.EngineConstellation) || r.guide {
		return
	}
	star := ""
	var line *constellation.Edge
	for _, h := range hits {
		switch h.Kind {
		case protocol.HitStar:
			if star == "" {
				star = h.ID
			}
		case protocol.HitLine:
			if line == nil {
				if e, err := constellation.ParseEdgeKey(h.ID); err == nil {
					line = &e
				}
			}
		}
	}
	r.graph.HoverStar(star)
	r.graph.HoverLine(line)
	r.syncGraph()
}

func (r *Room) ui(action string) {
	switch action {
	case protocol.ActionStart, protocol.ActionNext:
		r.advanceSequence()
	case protocol.ActionGuide:
		r.toggleGuide()
	case protocol.ActionExit:
		r.exitPuzzle()
	}
}

func wireRay(r *protocol.Ray) *spatial.Ray {
	if r == nil {
		return nil
	}
	return &spatial.Ray{Origin: spatial.Vec3(r.Origin), Dir: spatial.Vec3(r.Dir)}
}
