package main

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"starroom.ai/internal/protocol"
	"starroom.ai/internal/sim/catalogs"
	"starroom.ai/internal/sim/room"
	"starroom.ai/internal/sim/tuning"
)

func testView(t *testing.T) (*view, *room.Room) {
	t.Helper()
	cats, err := catalogs.Default()
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	r, err := room.New(room.Config{SessionID: "S_console", Seed: 4, SkipIntro: true, Tuning: tuning.Defaults(), Catalogs: cats})
	if err != nil {
		t.Fatalf("room: %v", err)
	}
	return newView(r.Welcome(), [3]float64{}), r
}

func press(k tcell.Key, r rune) *tcell.EventKey { return tcell.NewEventKey(k, r, tcell.ModNone) }

func TestFullSceneFillsView(t *testing.T) {
	v, r := testView(t)
	start := time.Unix(1_700_000_000, 0)
	p := r.StepOnce(start, nil)
	v.apply(p, start)

	if v.mode != modeFreeRoam || !v.controls {
		t.Fatalf("mode=%q controls=%v", v.mode, v.controls)
	}
	if v.camera != tuning.Defaults().Camera.Start.Position {
		t.Fatalf("camera=%v", v.camera)
	}
	if !v.keyVisible || v.caseOpen || len(v.solved) != 0 {
		t.Fatalf("fresh room: key=%v case=%v solved=%v", v.keyVisible, v.caseOpen, v.solved)
	}
	if len(v.letters) != len(v.scene.Northern) {
		t.Fatalf("letters=%v", v.letters)
	}
}

func TestApplyTracksDeltas(t *testing.T) {
	v, _ := testView(t)
	now := time.Unix(10, 0)
	v.apply(protocol.ProjectMsg{Tick: 3, Cmds: []protocol.Cmd{
		{Op: protocol.OpLineAdd, ID: "a|b"},
		{Op: protocol.OpLineAdd, ID: "b|c"},
		{Op: protocol.OpLineRemove, ID: "a|b"},
		{Op: protocol.OpToast, Text: "Key needed", Ms: 2000},
		{Op: protocol.OpSolved, ID: "solar-system"},
		{Op: protocol.OpOverlay, ID: "end.button", On: protocol.Bool(true), Text: "NEXT", Value: 1},
	}}, now)

	if len(v.lines) != 1 || v.lines[0] != "b|c" {
		t.Fatalf("lines=%v", v.lines)
	}
	if v.activeToast(now.Add(time.Second)) == "" || v.activeToast(now.Add(3*time.Second)) != "" {
		t.Fatalf("toast should last 2s")
	}
	if v.nextPuzzle() != "blackboard" {
		t.Fatalf("next=%s", v.nextPuzzle())
	}
	if _, ok := v.button(); !ok {
		t.Fatalf("enabled end button not found")
	}

	v.apply(protocol.ProjectMsg{Tick: 4, Full: true}, now)
	if len(v.lines) != 0 || len(v.solved) != 0 || len(v.overlays) != 0 {
		t.Fatalf("full projection should reset the scene")
	}
}

func TestWalkKeysSendCamera(t *testing.T) {
	v, _ := testView(t)
	v.controls = true
	v.camera = [3]float64{0, 1.6, -12}

	ins, quit := v.handleKey(press(tcell.KeyRune, 'w'))
	if quit || len(ins) != 1 || ins[0].Kind != protocol.InputCamera {
		t.Fatalf("ins=%+v quit=%v", ins, quit)
	}
	if got := ins[0].Camera.Position[2]; got != -12-walkStep {
		t.Fatalf("z=%v", got)
	}

	v.controls = false
	if ins, _ := v.handleKey(press(tcell.KeyRune, 'd')); len(ins) != 0 {
		t.Fatalf("moved without controls: %+v", ins)
	}
	if _, quit := v.handleKey(press(tcell.KeyRune, 'q')); !quit {
		t.Fatalf("q should quit")
	}
	if ins, _ := v.handleKey(press(tcell.KeyEscape, 0)); len(ins) != 1 || ins[0].Key != "escape" {
		t.Fatalf("escape: %+v", ins)
	}
}

func TestDragKeysDropOnRing(t *testing.T) {
	v, _ := testView(t)
	v.mode = modeSolar
	v.handleKey(press(tcell.KeyTab, 0))
	v.handleKey(press(tcell.KeyRight, 0))

	ins, _ := v.handleKey(press(tcell.KeyEnter, 0))
	if len(ins) != 3 {
		t.Fatalf("drag should be down/move/up: %+v", ins)
	}
	if ins[0].Hits[0].ID != v.scene.Planets[1].ID {
		t.Fatalf("token=%s", ins[0].Hits[0].ID)
	}
	f := v.scene.Frames["solar-system"]
	want := f.Position[0] + v.scene.Rings[1]
	if ins[2].Ray.Origin[0] != want || ins[2].Ray.Dir != [3]float64{0, -1, 0} {
		t.Fatalf("ray=%+v want x=%v", ins[2].Ray, want)
	}
}

func TestRemoveLastLineHitsMidpoint(t *testing.T) {
	v, _ := testView(t)
	v.mode = modeBoard
	stars := v.scene.Constellation.Stars
	key := stars[0].Name + "|" + stars[1].Name
	if stars[1].Name < stars[0].Name {
		key = stars[1].Name + "|" + stars[0].Name
	}
	v.lines = []string{key}

	ins, _ := v.handleKey(press(tcell.KeyRune, 'x'))
	if len(ins) != 2 || ins[0].Kind != protocol.InputHover || ins[1].Kind != protocol.InputPointerDown {
		t.Fatalf("ins=%+v", ins)
	}
	if ins[1].Hits[0].Kind != protocol.HitLine || ins[1].Hits[0].ID != key {
		t.Fatalf("hit=%+v", ins[1].Hits[0])
	}
}

func TestDrawShowsPlayerAndPOIs(t *testing.T) {
	v, r := testView(t)
	start := time.Unix(1_700_000_000, 0)
	v.apply(r.StepOnce(start, nil), start)

	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer s.Fini()
	s.SetSize(120, 40)
	v.draw(s, start)

	found := map[rune]bool{}
	w, h := s.Size()
	for y := 0; y < h; y++ {
		for x := 0; x < w-panelWidth-1; x++ {
			c, _, _, _ := s.GetContent(x, y)
			found[c] = true
		}
	}
	for _, g := range []rune{'@', 'S', 'B', 'T', 'D', 'C'} {
		if !found[g] {
			t.Fatalf("map is missing %q", g)
		}
	}
}
