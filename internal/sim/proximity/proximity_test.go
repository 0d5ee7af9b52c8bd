package proximity

import (
	"testing"

	"starroom.ai/internal/sim/spatial"
)

var labels = Labels{Door: "E Unlock Door", Key: "E Take Key", Puzzle: "E Solve Puzzle"}

func roomPOIs(caseOpen *bool) []POI {
	return []POI{
		{ID: "solar-system", Position: spatial.Vec3{0.5, 1.25, -18.5}, Threshold: 4},
		{ID: "table-2", Position: spatial.Vec3{0.1, 1.0, -8.415}, Threshold: 4},
		{ID: "blackboard", Position: spatial.Vec3{6.53, 2.5, -13.455}, Threshold: 4},
		{ID: "star-background", Position: spatial.Vec3{-6.53, 3.2, -13.455}, Threshold: 4},
		{ID: Door, Position: spatial.Vec3{4.958, 2.065, -19.998}, Threshold: 4},
		{ID: Case, Position: spatial.Vec3{-5.983, 1.789, -13.445}, Threshold: 2, Active: func() bool { return *caseOpen }},
	}
}

func TestPollDefersWithoutCamera(t *testing.T) {
	open := false
	s := New(roomPOIs(&open)...)
	if s.Poll(nil) || s.Polled() {
		t.Fatalf("nil camera must defer")
	}
	cam := spatial.Vec3{0.5, 1.6, -15}
	if !s.Poll(&cam) || s.Current() != "solar-system" {
		t.Fatalf("current=%q", s.Current())
	}
	s.Poll(nil)
	if s.Current() != "solar-system" {
		t.Fatalf("deferred poll must keep the previous view")
	}
}

func TestCurrentIsNearestNear(t *testing.T) {
	open := false
	s := New(roomPOIs(&open)...)
	cam := spatial.Vec3{3, 1.6, -17}
	s.Poll(&cam)
	if !s.Near("solar-system") || !s.Near(Door) {
		t.Fatalf("both the table and the door should be near")
	}
	ds, _ := s.Distance("solar-system")
	dd, _ := s.Distance(Door)
	want := "solar-system"
	if dd < ds {
		want = Door
	}
	if s.Current() != want {
		t.Fatalf("current=%q want %q", s.Current(), want)
	}

	far := spatial.Vec3{0, 1.6, -13}
	s.Poll(&far)
	if s.Current() != "" {
		t.Fatalf("nothing should be near, got %q", s.Current())
	}
}

func TestCaseNeedsOpenCase(t *testing.T) {
	open := false
	s := New(roomPOIs(&open)...)
	cam := spatial.Vec3{-5.5, 1.6, -13.4}
	s.Poll(&cam)
	if s.Near(Case) {
		t.Fatalf("closed case must not be near")
	}
	open = true
	s.Poll(&cam)
	if !s.Near(Case) {
		t.Fatalf("open case should be near")
	}
	p := ProjectPrompt(s.View(), PromptState{FreeRoam: true}, labels)
	if !p.Visible || p.Label != "E Take Key" {
		t.Fatalf("prompt=%+v", p)
	}
}

func TestPromptPuzzleOnlyWhenEnterable(t *testing.T) {
	open := false
	s := New(roomPOIs(&open)...)
	cam := spatial.Vec3{0.1, 1.6, -11}
	s.Poll(&cam)
	enterable := func(id string) bool { return id == "solar-system" }
	if p := ProjectPrompt(s.View(), PromptState{FreeRoam: true, Enterable: enterable}, labels); p.Visible {
		t.Fatalf("table-2 is locked, prompt=%+v", p)
	}
	enterable = func(id string) bool { return id == "table-2" }
	p := ProjectPrompt(s.View(), PromptState{FreeRoam: true, Enterable: enterable}, labels)
	if !p.Visible || p.Label != "E Solve Puzzle" {
		t.Fatalf("prompt=%+v", p)
	}
	if p := ProjectPrompt(s.View(), PromptState{FreeRoam: false, Enterable: enterable}, labels); p.Visible {
		t.Fatalf("prompt hidden inside puzzle modes")
	}
	if p := ProjectPrompt(s.View(), PromptState{FreeRoam: true, Ended: true, Enterable: enterable}, labels); p.Visible {
		t.Fatalf("prompt hidden after the ending")
	}
}

func TestDoorAlwaysPrompts(t *testing.T) {
	open := false
	s := New(roomPOIs(&open)...)
	cam := spatial.Vec3{4.9, 1.6, -18.8}
	s.Poll(&cam)
	p := ProjectPrompt(s.View(), PromptState{FreeRoam: true, Enterable: func(string) bool { return false }}, labels)
	if !p.Visible || p.Label != "E Unlock Door" {
		t.Fatalf("prompt=%+v", p)
	}
}

func TestPromptFollowsNearestPOI(t *testing.T) {
	open := false
	s := New(roomPOIs(&open)...)
	cam := spatial.Vec3{2.7, 1.6, -17}
	s.Poll(&cam)
	if !s.Near(Door) || s.Current() != "solar-system" {
		t.Fatalf("near door=%v current=%q", s.Near(Door), s.Current())
	}
	enterable := func(id string) bool { return id == "solar-system" }
	p := ProjectPrompt(s.View(), PromptState{FreeRoam: true, Enterable: enterable}, labels)
	if !p.Visible || p.Label != "E Solve Puzzle" {
		t.Fatalf("prompt=%+v", p)
	}
	p = ProjectPrompt(s.View(), PromptState{FreeRoam: true, Enterable: func(string) bool { return false }}, labels)
	if p.Visible {
		t.Fatalf("locked puzzle nearest, door behind it: prompt=%+v", p)
	}
}
