package main

import (
	"github.com/gdamore/tcell/v2"

	"starroom.ai/internal/protocol"
	"starroom.ai/internal/sim/constellation"
	"starroom.ai/internal/sim/spatial"
)

// walkStep is how far one movement key moves the camera, in meters.
const walkStep = 0.3

// handleKey turns a key press into inputs for the room. quit is true for q and Ctrl-C.
func (v *view) handleKey(ev *tcell.EventKey) (ins []protocol.InputMsg, quit bool) {
	if ev.Key() == tcell.KeyCtrlC || (ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
		return nil, true
	}
	if ev.Key() == tcell.KeyEscape {
		return []protocol.InputMsg{key("escape")}, false
	}
	if ev.Key() == tcell.KeyEnter {
		// Both actions advance the intro; the ending only knows next.
		if _, ok := v.button(); ok {
			return []protocol.InputMsg{{Kind: protocol.InputUI, Action: protocol.ActionNext}}, false
		}
	}
	if ev.Key() == tcell.KeyRune {
		switch ev.Rune() {
		case 'e', 'E':
			return []protocol.InputMsg{key("e")}, false
		case 'g', 'G':
			return []protocol.InputMsg{{Kind: protocol.InputUI, Action: protocol.ActionGuide}}, false
		}
	}
	if v.mode == modeFreeRoam {
		return v.walkKey(ev), false
	}
	return v.puzzleKey(ev), false
}

func key(k string) protocol.InputMsg { return protocol.InputMsg{Kind: protocol.InputKey, Key: k} }

func (v *view) walkKey(ev *tcell.EventKey) []protocol.InputMsg {
	dx, dz := 0.0, 0.0
	switch {
	case ev.Key() == tcell.KeyUp || (ev.Key() == tcell.KeyRune && ev.Rune() == 'w'):
		dz = -walkStep
	case ev.Key() == tcell.KeyDown || (ev.Key() == tcell.KeyRune && ev.Rune() == 's'):
		dz = walkStep
	case ev.Key() == tcell.KeyLeft || (ev.Key() == tcell.KeyRune && ev.Rune() == 'a'):
		dx = -walkStep
	case ev.Key() == tcell.KeyRight || (ev.Key() == tcell.KeyRune && ev.Rune() == 'd'):
		dx = walkStep
	default:
		return nil
	}
	if !v.controls {
		return nil
	}
	v.camera[0] += dx
	v.camera[2] += dz
	return []protocol.InputMsg{{
		Kind:   protocol.InputCamera,
		Camera: &protocol.Pose{Position: v.camera},
	}}
}

func (v *view) puzzleKey(ev *tcell.EventKey) []protocol.InputMsg {
	switch v.mode {
	case modeSolar, modeTable2:
		return v.dragKey(ev)
	case modeBoard:
		return v.boardKey(ev)
	case modeStars:
		return v.lettersKey(ev)
	}
	return nil
}

func cycle(i, delta, n int) int {
	if n == 0 {
		return 0
	}
	return ((i+delta)%n + n) % n
}

// dragTokens lists the token ids of the current drag board.
func (v *view) dragTokens() []string {
	var ids []string
	if v.mode == modeSolar {
		for _, p := range v.scene.Planets {
			ids = append(ids, p.ID)
		}
		return ids
	}
	for _, s := range v.scene.Signs {
		ids = append(ids, s.ID)
	}
	return ids
}

// dragTargets returns the drop points of the current board in board-local x/z.
func (v *view) dragTargets() (labels []string, points [][2]float64) {
	if v.mode == modeSolar {
		for _, r := range v.scene.Rings {
			labels = append(labels, "ring "+ftoa(r))
			points = append(points, [2]float64{r, 0})
		}
		return labels, points
	}
	for _, r := range v.scene.Regions {
		labels = append(labels, r.Element)
		points = append(points, r.Center)
	}
	return labels, points
}

func (v *view) dragKey(ev *tcell.EventKey) []protocol.InputMsg {
	tokens := v.dragTokens()
	labels, points := v.dragTargets()
	switch ev.Key() {
	case tcell.KeyTab:
		v.token = cycle(v.token, 1, len(tokens))
	case tcell.KeyBacktab:
		v.token = cycle(v.token, -1, len(tokens))
	case tcell.KeyRight:
		v.target = cycle(v.target, 1, len(labels))
	case tcell.KeyLeft:
		v.target = cycle(v.target, -1, len(labels))
	case tcell.KeyEnter:
		if len(tokens) == 0 || len(points) == 0 {
			return nil
		}
		puzzle := "solar-system"
		if v.mode == modeTable2 {
			puzzle = "table-2"
		}
		f := v.scene.Frames[puzzle]
		p := points[v.target]
		ray := &protocol.Ray{Origin: [3]float64{f.Position[0] + p[0], 10, f.Position[2] + p[1]}, Dir: [3]float64{0, -1, 0}}
		return []protocol.InputMsg{
			{Kind: protocol.InputPointerDown, Hits: []protocol.Hit{{Kind: protocol.HitToken, ID: tokens[v.token]}}},
			{Kind: protocol.InputPointerMove, Ray: ray},
			{Kind: protocol.InputPointerUp, Ray: ray},
		}
	}
	return nil
}

func (v *view) boardKey(ev *tcell.EventKey) []protocol.InputMsg {
	stars := v.scene.Constellation.Stars
	switch {
	case ev.Key() == tcell.KeyTab:
		v.star = cycle(v.star, 1, len(stars))
	case ev.Key() == tcell.KeyBacktab:
		v.star = cycle(v.star, -1, len(stars))
	case ev.Key() == tcell.KeyEnter && len(stars) > 0:
		hit := protocol.Hit{Kind: protocol.HitStar, ID: stars[v.star].Name}
		return []protocol.InputMsg{{Kind: protocol.InputPointerDown, Hits: []protocol.Hit{hit}}}
	case ev.Key() == tcell.KeyRune && ev.Rune() == 'x':
		return v.removeLastLine()
	}
	return nil
}

// removeLastLine hovers the most recent line and clicks its midpoint.
func (v *view) removeLastLine() []protocol.InputMsg {
	if len(v.lines) == 0 {
		return nil
	}
	key := v.lines[len(v.lines)-1]
	pos := map[string][3]float64{}
	for _, s := range v.scene.Constellation.Stars {
		pos[s.Name] = s.Position
	}
	e, err := constellation.ParseEdgeKey(key)
	if err != nil {
		return nil
	}
	mid := spatial.Vec3(pos[e.A]).Add(spatial.Vec3(pos[e.B])).Mul(0.5)
	f := v.scene.Frames["blackboard"]
	frame := spatial.Transform{Position: spatial.Vec3(f.Position), RotationDeg: spatial.Vec3(f.Rotation)}.Matrix()
	world := spatial.ToWorldFrame(mid, frame)
	hit := protocol.Hit{Kind: protocol.HitLine, ID: key, Point: [3]float64(world)}
	return []protocol.InputMsg{
		{Kind: protocol.InputHover, Hits: []protocol.Hit{hit}},
		{Kind: protocol.InputPointerDown, Hits: []protocol.Hit{hit}},
	}
}

func (v *view) lettersKey(ev *tcell.EventKey) []protocol.InputMsg {
	n := len(v.scene.Northern)
	arrow := ""
	switch ev.Key() {
	case tcell.KeyRight, tcell.KeyTab:
		v.letter = cycle(v.letter, 1, n)
	case tcell.KeyLeft, tcell.KeyBacktab:
		v.letter = cycle(v.letter, -1, n)
	case tcell.KeyUp:
		arrow = "up"
	case tcell.KeyDown:
		arrow = "down"
	}
	if arrow == "" || n == 0 {
		return nil
	}
	hit := protocol.Hit{Kind: protocol.HitArrow, ID: arrow, Index: v.scene.Northern[v.letter].Index}
	return []protocol.InputMsg{{Kind: protocol.InputPointerDown, Hits: []protocol.Hit{hit}}}
}
