package room

import (
	"time"

	"starroom.ai/internal/protocol"
	"starroom.ai/internal/sim/drag"
	"starroom.ai/internal/sim/progression"
	"starroom.ai/internal/sim/viewmode"
)

const (
	autoExitSequence = "room.autoexit"
	caseSequence     = "room.case"
)

// puzzleEffects applies progression side effects to the room.
type puzzleEffects struct{ r *Room }

func (fx puzzleEffects) Reward(p string) {
	r := fx.r
	for _, l := range r.tune.Lamps.Reward[p] {
		r.light(l)
		if r.spinning.Has(l) {
			continue
		}
		r.spinning.Put(l)
		r.emitSpin(l)
	}
	switch p {
	case progression.SolarSystem:
		r.orbiting = true
		r.emitOrbit()
	case progression.StarBackground:
		r.tl.After(caseSequence, ms(r.tune.Timings.CaseOpenMs), func() {
			r.caseOpen = true
			r.emit(protocol.Cmd{Op: protocol.OpCaseOpen, Ms: r.tune.Timings.CaseOpenMs})
			r.record(Event{Type: EventCaseOpened})
		})
	}
}

func (fx puzzleEffects) Arm(next string) { fx.r.arm(next) }

func (fx puzzleEffects) ScheduleAutoExit(p string, d time.Duration) {
	r := fx.r
	r.tl.After(autoExitSequence, d, func() {
		if puzzleFor(r.vm.Mode()) == p {
			r.exitPuzzle()
		}
	})
}

func (r *Room) arm(next string) {
	for _, l := range r.tune.Lamps.Arm[next] {
		r.light(l)
	}
}

func (r *Room) light(l string) {
	if r.lit.Has(l) {
		return
	}
	r.lit.Put(l)
	r.emit(protocol.Cmd{Op: protocol.OpLampLit, ID: l, On: protocol.Bool(true)})
}

func (r *Room) emitSpin(l string) {
	deg := -360.0
	for _, cw := range r.tune.Lamps.Clockwise {
		if cw == l {
			deg = 360
			break
		}
	}
	r.emit(protocol.Cmd{Op: protocol.OpLampSpin, ID: l, Value: deg, Ms: r.tune.Lamps.SpinPeriodMs})
}

func (r *Room) emitOrbit() {
	speeds := make(map[string]float64, len(r.cats.Planets.Defs))
	for _, d := range r.cats.Planets.Defs {
		speeds[d.Name] = d.OrbitSpeed
	}
	r.emit(protocol.Cmd{Op: protocol.OpOrbit, On: protocol.Bool(true), Speeds: speeds})
}

// allowDrag gates the drag controller: the table must be the one in view, unsolved and not
// covered by the guide.
func (r *Room) allowDrag(puzzle string) bool {
	m := r.vm.Mode()
	return r.vm.Routes(viewmode.EngineDrag) && m.TableID == puzzle && !r.fsm.Solved(puzzle) && !r.guide && !r.ended
}

func (r *Room) onPlaced(b drag.Board, p drag.Placement) {
	r.syncTokens(b)
	r.emit(protocol.Cmd{
		Op:   protocol.OpPlacement,
		ID:   p.TokenID,
		Text: p.Slot,
		On:   protocol.Bool(p.Correct),
		Code: p.Code,
	})
	r.record(Event{
		Type:    EventPlacement,
		Puzzle:  p.Puzzle,
		Target:  p.TokenID,
		Slot:    p.Slot,
		Correct: p.Correct,
		Code:    p.Code,
	})
	if p.Complete {
		r.markSolved(p.Puzzle)
	}
}

func (r *Room) markSolved(p string) {
	if !r.fsm.MarkSolved(p) {
		return
	}
	r.emit(protocol.Cmd{Op: protocol.OpSolved, ID: p})
	r.record(Event{Type: EventSolved, Puzzle: p})
	r.logf("solved puzzle=%s tick=%d solved=%d/%d", p, r.tick, r.fsm.SolvedCount(), len(r.fsm.Order()))
}

// cancelInteractions runs on every puzzle exit.
func (r *Room) cancelInteractions() {
	r.drags.Cancel()
	r.graph.Cancel()
	r.syncGraph()
	if r.guide {
		r.guide = false
		r.emit(protocol.Cmd{Op: protocol.OpGuide, On: protocol.Bool(false), Ms: r.tune.Timings.GuideFadeMs})
	}
}
