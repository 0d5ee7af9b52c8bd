package drag

import (
	"math"
	"testing"

	"starroom.ai/internal/sim/spatial"
)

var planetRadii = map[string]float64{
	"mercury": 0.25, "venus": 0.35, "earth": 0.45, "mars": 0.55,
	"jupiter": 0.7, "saturn": 0.85, "uranus": 1, "neptune": 1.15,
}

var planetNames = []string{"mercury", "venus", "earth", "mars", "jupiter", "saturn", "uranus", "neptune"}

func newSolarBoard(t *testing.T, radii ...float64) *OrbitBoard {
	t.Helper()
	if len(radii) == 0 {
		for _, n := range planetNames {
			radii = append(radii, planetRadii[n])
		}
	}
	var planets []PlanetSpec
	for i, n := range planetNames {
		planets = append(planets, PlanetSpec{
			ID:       n,
			Planet:   n,
			Expected: planetRadii[n],
			Home:     spatial.Vec3{-1.4 + 0.4*float64(i), 0.05, 1.6},
		})
	}
	return NewOrbitBoard(OrbitConfig{
		Puzzle:    "solar-system",
		Radii:     radii,
		Threshold: 0.15,
		DeadZone:  0.2,
		Tolerance: 0.05,
	}, planets)
}

func down(x, z float64) *spatial.Ray {
	return &spatial.Ray{Origin: spatial.Vec3{x, 5, z}, Dir: spatial.Vec3{0, -1, 0}}
}

func dropAt(t *testing.T, c *Controller, b Board, id string, x, z float64) Placement {
	t.Helper()
	if ok, code, msg := c.BeginDrag(b, id); !ok {
		t.Fatalf("begin %s: %s %s", id, code, msg)
	}
	c.UpdateDrag(down(x, z))
	p, ok := c.EndDrag(down(x, z))
	if !ok {
		t.Fatalf("end %s: no active drag", id)
	}
	return p
}

func TestSingleActiveDrag(t *testing.T) {
	b := newSolarBoard(t)
	c := NewController(nil, nil)
	if ok, _, _ := c.BeginDrag(b, "earth"); !ok {
		t.Fatalf("first drag should start")
	}
	if ok, code, _ := c.BeginDrag(b, "mars"); ok || code != "E_STATE_CONFLICT" {
		t.Fatalf("second concurrent drag must be refused, code=%s", code)
	}
}

func TestGateRefusesDrag(t *testing.T) {
	b := newSolarBoard(t)
	c := NewController(GateFunc(func(string) bool { return false }), nil)
	if ok, _, _ := c.BeginDrag(b, "earth"); ok {
		t.Fatalf("gate should refuse")
	}
	if c.Dragging() {
		t.Fatalf("refused drag must not become active")
	}
	if _, remembered := b.Token("earth").DragStart(); remembered {
		t.Fatalf("refused drag must not memoize a start position")
	}
}

func TestOrbitAcceptCorrectRing(t *testing.T) {
	b := newSolarBoard(t)
	c := NewController(nil, nil)
	p := dropAt(t, c, b, "earth", 0, 0.46)
	if !p.Accepted || !p.Correct || p.Slot != "ring:0.45" {
		t.Fatalf("placement=%+v", p)
	}
	tok := b.Token("earth")
	if math.Abs(tok.Position[2]-0.45) > 1e-9 || tok.Position[1] != 0.05 {
		t.Fatalf("snap position=%v", tok.Position)
	}
	if tok.LastAccepted != tok.Position {
		t.Fatalf("last accepted not updated")
	}
	if c.State() != SnappedAccepted {
		t.Fatalf("state=%v", c.State())
	}
}

func TestRingExclusivity(t *testing.T) {
	b := newSolarBoard(t, 0.45, 1.15)
	c := NewController(nil, nil)
	if p := dropAt(t, c, b, "mars", 1.15, 0); !p.Accepted {
		t.Fatalf("mars should take the free ring: %+v", p)
	}
	p := dropAt(t, c, b, "neptune", 0, 1.14)
	if p.Accepted || p.Code != "E_STATE_CONFLICT" {
		t.Fatalf("neptune must be rejected from the held ring: %+v", p)
	}
	if got := b.Token("neptune").Position; got != b.Token("neptune").Home() {
		t.Fatalf("neptune should revert home, at %v", got)
	}
	if b.Token("mars").Slot != "ring:1.15" {
		t.Fatalf("mars lost its ring")
	}
}

func TestReleaseOutsideRevertsHome(t *testing.T) {
	b := newSolarBoard(t)
	c := NewController(nil, nil)
	dropAt(t, c, b, "venus", 0.35, 0)
	p := dropAt(t, c, b, "venus", 3, 3)
	tok := b.Token("venus")
	if p.Accepted || p.Code != "E_INVALID_PLACEMENT" {
		t.Fatalf("placement=%+v", p)
	}
	if tok.Position != tok.Home() || tok.Correct || tok.Slot != "" {
		t.Fatalf("token=%+v", tok)
	}
	if b.Rings()[1].Occupant != "" {
		t.Fatalf("ring should be released")
	}
}

func TestPointerLeaveReverts(t *testing.T) {
	b := newSolarBoard(t)
	c := NewController(nil, nil)
	c.BeginDrag(b, "saturn")
	c.UpdateDrag(down(0.85, 0))
	if b.Token("saturn").Position == b.Token("saturn").Home() {
		t.Fatalf("preview should move the token")
	}
	p, ok := c.HandlePointerLeaveWindow()
	if !ok || p.Accepted {
		t.Fatalf("leave should revert: %+v", p)
	}
	if b.Token("saturn").Position != b.Token("saturn").Home() || c.Dragging() {
		t.Fatalf("token not home or drag still active")
	}
}

func TestPlanetOrderScenario(t *testing.T) {
	b := newSolarBoard(t)
	c := NewController(nil, nil)
	completions := 0
	c.OnPlaced = func(_ Board, p Placement) {
		if c.Dragging() {
			t.Fatalf("drag state must be cleared before placement callbacks")
		}
		if p.Complete {
			completions++
		}
	}
	for _, n := range planetNames[:7] {
		dropAt(t, c, b, n, planetRadii[n], 0)
	}
	p := dropAt(t, c, b, "neptune", 0, 0.98)
	if p.Accepted || b.Complete() {
		t.Fatalf("neptune on the held uranus ring must not complete the board: %+v", p)
	}
	p = dropAt(t, c, b, "neptune", 0, -1.16)
	if !p.Accepted || !p.Correct || !b.Complete() {
		t.Fatalf("neptune on its own ring should complete: %+v", p)
	}
	if completions != 1 {
		t.Fatalf("completions=%d want 1", completions)
	}
}

func TestOrbitWrongRing(t *testing.T) {
	b := newSolarBoard(t)
	c := NewController(nil, nil)
	p := dropAt(t, c, b, "mercury", 1.0, 0)
	if !p.Accepted || p.Correct {
		t.Fatalf("mercury on the uranus ring is accepted but wrong: %+v", p)
	}
}

func TestUpdateWithoutRayIsNoop(t *testing.T) {
	b := newSolarBoard(t)
	c := NewController(nil, nil)
	c.BeginDrag(b, "earth")
	if c.UpdateDrag(nil) {
		t.Fatalf("nil ray should be ignored")
	}
	if c.UpdateDrag(&spatial.Ray{Origin: spatial.Vec3{0, 5, 0}, Dir: spatial.Vec3{1, 0, 0}}) {
		t.Fatalf("parallel ray should be ignored")
	}
	if b.Token("earth").Position != b.Token("earth").Home() {
		t.Fatalf("token moved without a valid ray")
	}
}

func newZodiacBoard() *ImageBoard {
	regions := []Region{
		{Label: "air", Center: spatial.Vec2{-1.5, -3.5}, Width: 0.8, Height: 0.612},
		{Label: "earth", Center: spatial.Vec2{-0.5, -3.5}, Width: 0.8, Height: 0.612},
		{Label: "fire", Center: spatial.Vec2{0.5, -3.5}, Width: 0.8, Height: 0.612},
		{Label: "water", Center: spatial.Vec2{1.5, -3.5}, Width: 0.8, Height: 0.612},
	}
	signs := []SignSpec{
		{ID: "gemini", Label: "air", Home: spatial.Vec3{1, 0.32, -4.5}},
		{ID: "aries", Label: "fire", Home: spatial.Vec3{0.33, 0.32, -4.5}},
		{ID: "pisces", Label: "water", Home: spatial.Vec3{-0.33, 0.32, -4.5}},
		{ID: "virgo", Label: "earth", Home: spatial.Vec3{-1, 0.32, -4.5}},
	}
	return NewImageBoard(ImageConfig{Puzzle: "table-2", SlotZ: -3.7, Regions: regions}, signs)
}

func TestImageAcceptSnapsToSlot(t *testing.T) {
	b := newZodiacBoard()
	c := NewController(nil, nil)
	c.BeginDrag(b, "aries")
	c.UpdateDrag(down(0.6, -3.4))
	if got := b.Token("aries").Position; got[0] != 0.6 || got[2] != -3.4 {
		t.Fatalf("image preview should follow the pointer, got %v", got)
	}
	p, _ := c.EndDrag(down(0.6, -3.4))
	if !p.Accepted || !p.Correct || p.Slot != "fire" {
		t.Fatalf("placement=%+v", p)
	}
	if got := b.Token("aries").Position; got != (spatial.Vec3{0.5, 0.32, -3.7}) {
		t.Fatalf("snap=%v", got)
	}
	if b.Occupant("fire") != "aries" {
		t.Fatalf("occupancy not recorded")
	}
}

func TestImageOccupiedRegionRejects(t *testing.T) {
	b := newZodiacBoard()
	c := NewController(nil, nil)
	dropAt(t, c, b, "aries", 0.5, -3.5)
	before := b.Token("aries").Position

	p := dropAt(t, c, b, "gemini", 0.45, -3.6)
	if p.Accepted || p.Code != "E_STATE_CONFLICT" {
		t.Fatalf("placement=%+v", p)
	}
	if b.Token("gemini").Position != b.Token("gemini").Home() {
		t.Fatalf("gemini should be home")
	}
	if b.Token("aries").Position != before || b.Occupant("fire") != "aries" {
		t.Fatalf("aries placement changed")
	}
}

func TestImageMoveBetweenRegionsAndOut(t *testing.T) {
	b := newZodiacBoard()
	c := NewController(nil, nil)
	dropAt(t, c, b, "pisces", -1.5, -3.5)
	dropAt(t, c, b, "pisces", 1.5, -3.5)
	if b.Occupant("air") != "" || b.Occupant("water") != "pisces" {
		t.Fatalf("occupancy should move with the token: %v", b.Occupied().Size())
	}
	dropAt(t, c, b, "pisces", 0, 0)
	if b.Occupied().Size() != 0 || b.Token("pisces").Position != b.Token("pisces").Home() {
		t.Fatalf("release outside should clear occupancy and send the token home")
	}
}

func TestImageComplete(t *testing.T) {
	b := newZodiacBoard()
	c := NewController(nil, nil)
	dropAt(t, c, b, "gemini", -1.5, -3.5)
	dropAt(t, c, b, "virgo", -0.5, -3.5)
	dropAt(t, c, b, "aries", 0.5, -3.5)
	if b.Complete() {
		t.Fatalf("three of four placed")
	}
	p := dropAt(t, c, b, "pisces", 1.5, -3.5)
	if !p.Complete {
		t.Fatalf("all four placed should complete")
	}
}
