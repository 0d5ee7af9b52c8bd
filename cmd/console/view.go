package main

import (
	"sort"
	"strconv"
	"time"

	"starroom.ai/internal/protocol"
)

const (
	modeFreeRoam = "free_roam"
	modeSolar    = "top_down:solar-system"
	modeTable2   = "top_down:table-2"
	modeBoard    = "blackboard"
	modeStars    = "star_background"
)

type placement struct {
	slot    string
	correct bool
}

// view is the console's copy of the projected scene plus the local selection cursors.
// It is only touched from the UI goroutine.
type view struct {
	sessionID string
	seed      int64
	scene     protocol.SceneLayout

	tick     uint64
	camera   [3]float64
	controls bool
	mode     string
	prompt   string

	toast      string
	toastUntil time.Time

	guide      string
	guideOn    bool
	overlays   map[string]protocol.Cmd
	solved     map[string]bool
	lit        map[string]bool
	lines      []string
	placements map[string]placement
	letters    map[int]string
	caseOpen   bool
	keyVisible bool
	ended      bool
	orbiting   bool

	// Selection cursors for puzzle modes.
	token  int
	target int
	star   int
	letter int
}

func newView(w protocol.WelcomeMsg, start [3]float64) *view {
	v := &view{
		sessionID: w.SessionID,
		seed:      w.Seed,
		scene:     w.Scene,
		camera:    start,
		mode:      modeFreeRoam,
	}
	v.reset()
	return v
}

func (v *view) reset() {
	v.overlays = map[string]protocol.Cmd{}
	v.solved = map[string]bool{}
	v.lit = map[string]bool{}
	v.lines = nil
	v.placements = map[string]placement{}
	v.letters = map[int]string{}
	v.caseOpen = false
	v.keyVisible = true
	v.ended = false
	v.orbiting = false
}

func (v *view) apply(p protocol.ProjectMsg, now time.Time) {
	v.tick = p.Tick
	if p.Full {
		v.reset()
	}
	for _, c := range p.Cmds {
		v.applyCmd(c, now)
	}
}

func on(c protocol.Cmd) bool { return c.On != nil && *c.On }

func (v *view) applyCmd(c protocol.Cmd, now time.Time) {
	switch c.Op {
	case protocol.OpMode:
		if c.Text != v.mode {
			v.token, v.target, v.star, v.letter = 0, 0, 0, 0
		}
		v.mode = c.Text
	case protocol.OpCameraPose:
		if c.Pos != nil {
			v.camera = *c.Pos
		}
	case protocol.OpCameraControls:
		v.controls = on(c)
	case protocol.OpPrompt:
		v.prompt = ""
		if on(c) {
			v.prompt = c.Text
		}
	case protocol.OpToast:
		v.toast = c.Text
		v.toastUntil = now.Add(time.Duration(c.Ms) * time.Millisecond)
	case protocol.OpGuide:
		v.guideOn = on(c)
		v.guide = c.Text
	case protocol.OpOverlay:
		if on(c) {
			v.overlays[c.ID] = c
		} else {
			delete(v.overlays, c.ID)
		}
	case protocol.OpSolved:
		v.solved[c.ID] = true
	case protocol.OpLampLit:
		v.lit[c.ID] = on(c)
	case protocol.OpLineAdd:
		v.removeLine(c.ID)
		v.lines = append(v.lines, c.ID)
	case protocol.OpLineRemove:
		v.removeLine(c.ID)
	case protocol.OpPlacement:
		v.placements[c.ID] = placement{slot: c.Text, correct: on(c)}
	case protocol.OpLetter:
		if i, err := strconv.Atoi(c.ID); err == nil {
			v.letters[i] = c.Text
		}
	case protocol.OpCaseOpen:
		v.caseOpen = true
	case protocol.OpEntityVisible:
		if c.ID == "key" {
			v.keyVisible = on(c)
		}
	case protocol.OpFade:
		v.ended = on(c)
	case protocol.OpOrbit:
		v.orbiting = true
	}
}

func (v *view) removeLine(key string) {
	for i, l := range v.lines {
		if l == key {
			v.lines = append(v.lines[:i], v.lines[i+1:]...)
			return
		}
	}
}

// button returns the overlay button that accepts a click, if any.
func (v *view) button() (protocol.Cmd, bool) {
	for _, id := range []string{"intro.button", "end.button"} {
		if c, ok := v.overlays[id]; ok && c.Value == 1 {
			return c, true
		}
	}
	return protocol.Cmd{}, false
}

func (v *view) activeToast(now time.Time) string {
	if v.toast == "" || now.After(v.toastUntil) {
		return ""
	}
	return v.toast
}

// overlayTexts lists the visible overlay texts in a stable order.
func (v *view) overlayTexts() []string {
	ids := make([]string, 0, len(v.overlays))
	for id := range v.overlays {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []string
	for _, id := range ids {
		if t := v.overlays[id].Text; t != "" {
			out = append(out, t)
		}
	}
	return out
}

// nextPuzzle is the first unsolved puzzle in order, or "" when all are solved.
func (v *view) nextPuzzle() string {
	for _, p := range v.scene.PuzzleOrder {
		if !v.solved[p] {
			return p
		}
	}
	return ""
}
