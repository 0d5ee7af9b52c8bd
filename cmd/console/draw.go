package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
)

const panelWidth = 40

var (
	styleText   = tcell.StyleDefault
	styleDim    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleWall   = tcell.StyleDefault.Foreground(tcell.ColorDarkCyan)
	styleSolved = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleNext   = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	stylePlayer = tcell.StyleDefault.Foreground(tcell.ColorWhite).Reverse(true)
	styleToast  = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleCursor = tcell.StyleDefault.Reverse(true)
)

var poiGlyphs = map[string]rune{
	"solar-system":    'S',
	"blackboard":      'B',
	"table-2":         'T',
	"star-background": '*',
	"door":            'D',
	"case":            'C',
}

// bounds is the x/z extent drawn on the map.
type bounds struct{ minX, maxX, minZ, maxZ float64 }

func (v *view) mapBounds() bounds {
	b := bounds{minX: math.Inf(1), maxX: math.Inf(-1), minZ: math.Inf(1), maxZ: math.Inf(-1)}
	grow := func(x, z float64) {
		b.minX, b.maxX = math.Min(b.minX, x), math.Max(b.maxX, x)
		b.minZ, b.maxZ = math.Min(b.minZ, z), math.Max(b.maxZ, z)
	}
	for _, p := range v.scene.POIs {
		grow(p.Position[0], p.Position[2])
	}
	grow(v.camera[0], v.camera[2])
	if math.IsInf(b.minX, 1) {
		return bounds{-1, 1, -1, 1}
	}
	b.minX, b.maxX = b.minX-0.5, b.maxX+0.5
	b.minZ, b.maxZ = b.minZ-0.5, b.maxZ+0.5
	return b
}

func toCell(b bounds, x, z float64, w, h int) (int, int) {
	cx := int(math.Round((x - b.minX) / (b.maxX - b.minX) * float64(w-1)))
	cy := int(math.Round((z - b.minZ) / (b.maxZ - b.minZ) * float64(h-1)))
	return cx, cy
}

func putText(s tcell.Screen, x, y int, text string, style tcell.Style) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}

func (v *view) draw(s tcell.Screen, now time.Time) {
	s.Clear()
	w, h := s.Size()
	mw := w - panelWidth - 1
	if mw < 10 || h < 6 {
		putText(s, 0, 0, "terminal too small", styleToast)
		s.Show()
		return
	}
	v.drawMap(s, mw, h-1)
	v.drawPanel(s, mw+1, h-1, now)
	putText(s, 0, h-1, v.help(), styleDim)
	s.Show()
}

func (v *view) drawMap(s tcell.Screen, w, h int) {
	b := v.mapBounds()
	for x := 0; x < w; x++ {
		s.SetContent(x, 0, '─', nil, styleWall)
		s.SetContent(x, h-1, '─', nil, styleWall)
	}
	for y := 0; y < h; y++ {
		s.SetContent(0, y, '│', nil, styleWall)
		s.SetContent(w-1, y, '│', nil, styleWall)
	}
	next := v.nextPuzzle()
	for _, p := range v.scene.POIs {
		x, y := toCell(b, p.Position[0], p.Position[2], w-2, h-2)
		style := styleDim
		switch {
		case v.solved[p.ID]:
			style = styleSolved
		case p.ID == next:
			style = styleNext
		case p.ID == "case" && v.caseOpen && v.keyVisible:
			style = styleNext
		case p.ID == "door" && !v.keyVisible:
			style = styleNext
		}
		g, ok := poiGlyphs[p.ID]
		if !ok {
			g = '?'
		}
		s.SetContent(x+1, y+1, g, nil, style)
	}
	x, y := toCell(b, v.camera[0], v.camera[2], w-2, h-2)
	s.SetContent(x+1, y+1, '@', nil, stylePlayer)
}

func (v *view) drawPanel(s tcell.Screen, x0, h int, now time.Time) {
	y := 0
	line := func(text string, style tcell.Style) {
		if y >= h {
			return
		}
		if r := []rune(text); len(r) > panelWidth {
			text = string(r[:panelWidth])
		}
		putText(s, x0, y, text, style)
		y++
	}

	line(fmt.Sprintf("session %s seed %d", v.sessionID, v.seed), styleDim)
	line(fmt.Sprintf("tick %d  mode %s", v.tick, v.mode), styleText)
	line(fmt.Sprintf("pos %.1f %.1f %.1f", v.camera[0], v.camera[1], v.camera[2]), styleDim)
	y++
	for _, p := range v.scene.PuzzleOrder {
		mark, style := "[ ]", styleDim
		if v.solved[p] {
			mark, style = "[x]", styleSolved
		} else if p == v.nextPuzzle() {
			style = styleNext
		}
		line(mark+" "+p, style)
	}
	switch {
	case !v.keyVisible:
		line("key: carried", styleSolved)
	case v.caseOpen:
		line("key: in the open case", styleNext)
	}
	y++
	if v.prompt != "" {
		line("> "+v.prompt, styleNext)
	}
	if t := v.activeToast(now); t != "" {
		line("! "+t, styleToast)
	}
	for _, t := range v.overlayTexts() {
		for _, l := range wrap(t, panelWidth) {
			line(l, styleText)
		}
	}
	if v.guideOn {
		for _, l := range wrap(v.guide, panelWidth) {
			line(l, styleDim)
		}
	}
	y++
	for _, l := range v.puzzleLines() {
		style := styleText
		if strings.HasPrefix(l, ">") {
			style = styleCursor
		}
		line(l, style)
	}
}

func (v *view) puzzleLines() []string {
	var out []string
	cursor := func(sel bool, s string) string {
		if sel {
			return "> " + s
		}
		return "  " + s
	}
	switch v.mode {
	case modeSolar, modeTable2:
		labels, _ := v.dragTargets()
		for i, id := range v.dragTokens() {
			st := ""
			if p, ok := v.placements[id]; ok {
				st = " @" + p.slot
				if p.correct {
					st += " ok"
				}
			}
			out = append(out, cursor(i == v.token, id+st))
		}
		if len(labels) > 0 {
			out = append(out, "drop on: "+labels[v.target%len(labels)])
		}
	case modeBoard:
		for i, st := range v.scene.Constellation.Stars {
			if i == v.star {
				out = append(out, "> star "+st.Name)
			}
		}
		out = append(out, fmt.Sprintf("lines drawn: %d", len(v.lines)))
	case modeStars:
		for i, n := range v.scene.Northern {
			out = append(out, cursor(i == v.letter, fmt.Sprintf("%s: %s", n.Name, v.letters[n.Index])))
		}
	}
	return out
}

func (v *view) help() string {
	switch v.mode {
	case modeFreeRoam:
		return "wasd move  e interact  q quit"
	case modeSolar, modeTable2:
		return "tab token  ←→ target  enter drop  g guide  esc exit"
	case modeBoard:
		return "tab star  enter click  x undo line  g guide  esc exit"
	case modeStars:
		return "←→ control  ↑↓ letter  g guide  esc exit"
	}
	return "q quit"
}

func wrap(text string, width int) []string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		cur := ""
		for _, word := range strings.Fields(para) {
			if cur != "" && len(cur)+1+len(word) > width {
				out = append(out, cur)
				cur = ""
			}
			if cur != "" {
				cur += " "
			}
			cur += word
		}
		if cur != "" {
			out = append(out, cur)
		}
	}
	return out
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
