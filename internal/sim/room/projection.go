package room

import (
	"sort"
	"strconv"

	"starroom.ai/internal/protocol"
	"starroom.ai/internal/sim/drag"
	"starroom.ai/internal/sim/proximity"
	"starroom.ai/internal/sim/spatial"
)

// Star and line colors.
const (
	colorDefault  = "default"
	colorSelected = "selected"
	colorHover    = "hover"
)

type overlayState struct {
	On      bool
	Text    string
	Enabled bool
}

// sceneCache holds what the host was last told, so updates only send differences.
type sceneCache struct {
	tokens map[string]spatial.Vec3
	stars  map[string]string
	lines  map[string]string
}

func newSceneCache() sceneCache {
	return sceneCache{
		tokens: map[string]spatial.Vec3{},
		stars:  map[string]string{},
		lines:  map[string]string{},
	}
}

func (r *Room) emit(c protocol.Cmd) {
	r.cmds = append(r.cmds, c)
}

// setOverlay shows or hides an intro/ending element. Buttons report Value 1 once clickable.
func (r *Room) setOverlay(id string, o overlayState, fadeMs int) {
	r.overlays[id] = o
	r.emit(overlayCmd(id, o, fadeMs))
}

func overlayCmd(id string, o overlayState, fadeMs int) protocol.Cmd {
	c := protocol.Cmd{Op: protocol.OpOverlay, ID: id, On: protocol.Bool(o.On), Text: o.Text, Ms: fadeMs}
	if o.Enabled {
		c.Value = 1
	}
	return c
}

func (r *Room) toast(text string) {
	r.emit(protocol.Cmd{Op: protocol.OpToast, Text: text, Ms: r.tune.Timings.ToastMs})
}

func (r *Room) projectPrompt() {
	st := proximity.PromptState{
		FreeRoam:  !r.vm.InPuzzle(),
		Ended:     r.ended || !r.introDone,
		Enterable: r.fsm.IsEnterable,
	}
	p := proximity.ProjectPrompt(r.prox.View(), st, r.texts.PromptLabels())
	if !p.Visible {
		p.Label = ""
	}
	if p == r.prompt {
		return
	}
	r.prompt = p
	r.emit(protocol.Cmd{Op: protocol.OpPrompt, On: protocol.Bool(p.Visible), Text: p.Label})
}

// syncTokens sends the position of every token that moved since the last sync.
func (r *Room) syncTokens(b drag.Board) {
	for _, t := range b.Tokens() {
		if prev, ok := r.scene.tokens[t.ID]; ok && prev == t.Position {
			continue
		}
		r.scene.tokens[t.ID] = t.Position
		r.emit(protocol.Cmd{Op: protocol.OpEntityPosition, ID: t.ID, Pos: protocol.Vec(t.Position)})
	}
}

// syncGraph diffs the constellation board against what the host shows.
func (r *Room) syncGraph() {
	drawn := map[string]string{}
	hover, hovered := r.graph.HoveredLine()
	for _, e := range r.graph.Edges() {
		c := colorDefault
		if hovered && e == hover {
			c = colorHover
		}
		drawn[e.Key()] = c
	}
	for _, key := range sortedKeys(r.scene.lines) {
		if _, ok := drawn[key]; !ok {
			delete(r.scene.lines, key)
			r.emit(protocol.Cmd{Op: protocol.OpLineRemove, ID: key})
		}
	}
	for _, key := range sortedKeys(drawn) {
		c := drawn[key]
		prev, ok := r.scene.lines[key]
		switch {
		case !ok:
			r.emit(protocol.Cmd{Op: protocol.OpLineAdd, ID: key, Color: c})
		case prev != c:
			r.emit(protocol.Cmd{Op: protocol.OpLineColor, ID: key, Color: c})
		default:
			continue
		}
		r.scene.lines[key] = c
	}

	for _, s := range r.graph.Stars() {
		c := colorDefault
		switch s.Name {
		case r.graph.Selected():
			c = colorSelected
		case r.graph.HoveredStar():
			c = colorHover
		}
		prev, ok := r.scene.stars[s.Name]
		if !ok {
			prev = colorDefault
		}
		if prev == c {
			continue
		}
		r.scene.stars[s.Name] = c
		r.emit(protocol.Cmd{Op: protocol.OpStarColor, ID: s.Name, Color: c})
	}
}

func (r *Room) emitLetter(i int) {
	r.emit(protocol.Cmd{Op: protocol.OpLetter, ID: strconv.Itoa(i), Text: r.letters.Letter(i)})
}

func (r *Room) emitPose(p spatial.Vec3, rot spatial.Vec3, transitionMs int) {
	r.emit(protocol.Cmd{Op: protocol.OpCameraPose, Pos: protocol.Vec(p), Rot: protocol.Vec(rot), Ms: transitionMs})
}

// fullScene describes the whole projected state. The caches are rebuilt from it.
func (r *Room) fullScene() []protocol.Cmd {
	r.scene = newSceneCache()
	saved := r.cmds
	r.cmds = nil

	r.emit(protocol.Cmd{Op: protocol.OpMode, Text: r.vm.Mode().String()})
	cur := r.vm.Current()
	r.emitPose(cur.Position, cur.Rotation, 0)
	r.emit(protocol.Cmd{Op: protocol.OpCameraControls, On: protocol.Bool(r.vm.ControlsEnabled())})
	r.emit(protocol.Cmd{Op: protocol.OpPrompt, On: protocol.Bool(r.prompt.Visible), Text: r.prompt.Label})
	r.emit(protocol.Cmd{Op: protocol.OpGuide, On: protocol.Bool(r.guide), Text: r.guideText()})

	r.syncTokens(r.orbit)
	r.syncTokens(r.zodiac)
	r.syncGraph()
	for i := 0; i < r.letters.Len(); i++ {
		r.emitLetter(i)
	}
	for _, l := range r.layout.Lamps {
		r.emit(protocol.Cmd{Op: protocol.OpLampLit, ID: l, On: protocol.Bool(r.lit.Has(l))})
		if r.spinning.Has(l) {
			r.emitSpin(l)
		}
	}
	if r.orbiting {
		r.emitOrbit()
	}
	for _, p := range r.fsm.Order() {
		if r.fsm.Solved(p) {
			r.emit(protocol.Cmd{Op: protocol.OpSolved, ID: p})
		}
	}
	if r.caseOpen {
		r.emit(protocol.Cmd{Op: protocol.OpCaseOpen})
	}
	r.emit(protocol.Cmd{Op: protocol.OpEntityVisible, ID: "key", On: protocol.Bool(!r.hasKey)})
	if r.ended {
		r.emit(protocol.Cmd{Op: protocol.OpFade, ID: "end", On: protocol.Bool(true)})
	}
	for _, id := range sortedKeys(r.overlays) {
		r.emit(overlayCmd(id, r.overlays[id], 0))
	}

	out := r.cmds
	r.cmds = saved
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
