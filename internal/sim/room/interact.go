package room

import (
	"starroom.ai/internal/protocol"
	"starroom.ai/internal/sim/proximity"
	"starroom.ai/internal/sim/texts"
)

// interact handles the E key in free roam. E acts on the nearest POI, the same one the prompt
// label names.
func (r *Room) interact() {
	if r.vm.InPuzzle() {
		return
	}
	switch cur := r.prox.Current(); cur {
	case "":
		return
	case proximity.Door:
		if r.hasKey {
			r.startEnding()
			return
		}
		r.toast(r.texts.Get(texts.ToastKeyNeeded))
		r.record(Event{Type: EventDoorLocked, Code: protocol.ErrMissingDependency})
	case proximity.Case:
		if !r.caseOpen || r.hasKey {
			return
		}
		r.hasKey = true
		r.emit(protocol.Cmd{Op: protocol.OpEntityVisible, ID: "key", On: protocol.Bool(false)})
		r.record(Event{Type: EventKeyTaken})
		r.logf("key taken tick=%d", r.tick)
	default:
		if r.fsm.IsEnterable(cur) {
			r.enterPuzzle(cur)
		}
	}
}

func (r *Room) enterPuzzle(p string) {
	framing := poseFromTuning(r.tune.Camera.Framings[p])
	if !r.vm.Enter(modeFor(p), r.vm.Current(), framing) {
		return
	}
	r.emit(protocol.Cmd{Op: protocol.OpMode, Text: r.vm.Mode().String()})
	r.emitPose(framing.Position, framing.Rotation, r.tune.Camera.TransitionMs)
	r.record(Event{Type: EventModeEnter, Puzzle: p})
}

// exitPuzzle returns to free roam. The pending auto-exit, if any, is dropped.
func (r *Room) exitPuzzle() {
	p := puzzleFor(r.vm.Mode())
	pose, ok := r.vm.Exit()
	if !ok {
		return
	}
	r.tl.Cancel(autoExitSequence)
	r.emit(protocol.Cmd{Op: protocol.OpMode, Text: r.vm.Mode().String()})
	r.emitPose(pose.Position, pose.Rotation, r.tune.Camera.TransitionMs)
	r.record(Event{Type: EventModeExit, Puzzle: p})
}

func (r *Room) toggleGuide() {
	if !r.vm.InPuzzle() || r.ended {
		return
	}
	r.guide = !r.guide
	if r.guide {
		r.drags.Cancel()
		r.graph.Cancel()
		r.syncGraph()
	}
	r.emit(protocol.Cmd{Op: protocol.OpGuide, On: protocol.Bool(r.guide), Text: r.guideText(), Ms: r.tune.Timings.GuideFadeMs})
}

func (r *Room) guideText() string {
	p := puzzleFor(r.vm.Mode())
	if p == "" {
		return ""
	}
	return r.texts.Guide(p)
}
