package room

import (
	"fmt"
	"math/rand"
	"sort"

	"starroom.ai/internal/protocol"
	"starroom.ai/internal/sim/constellation"
	"starroom.ai/internal/sim/drag"
	"starroom.ai/internal/sim/letters"
	"starroom.ai/internal/sim/progression"
	"starroom.ai/internal/sim/proximity"
	"starroom.ai/internal/sim/spatial"
	"starroom.ai/internal/sim/texts"
	"starroom.ai/internal/sim/tuning"
	"starroom.ai/internal/sim/viewmode"
)

// buildLayout draws the per-session arrangement from rng and builds the puzzle engines. The draw
// order is fixed so a seed always yields the same room.
func (r *Room) buildLayout(rng *rand.Rand) error {
	r.layout = protocol.SceneLayout{
		PuzzleOrder: append([]string(nil), r.tune.PuzzleOrder...),
		Alphabet:    append([]string(nil), r.cats.Greek.Alphabet...),
		Frames: map[string]protocol.Frame{
			progression.SolarSystem: frameRef(r.tune.Frames.Solar),
			progression.Table2:      frameRef(r.tune.Frames.Table2),
			progression.Blackboard:  frameRef(r.tune.Frames.Blackboard),
		},
		Texts: map[string]string{},
	}

	// Solar system: planet names shuffled over the home slots.
	defs := r.cats.Planets.Defs
	perm := rng.Perm(len(defs))
	radii := make([]float64, 0, len(defs))
	planets := make([]drag.PlanetSpec, 0, len(defs))
	for slot, pi := range perm {
		d := defs[pi]
		home := spatial.Vec3(r.cats.Planets.HomeSlots[slot])
		planets = append(planets, drag.PlanetSpec{ID: d.Name, Planet: d.Name, Expected: d.Radius, Home: home})
		r.layout.Planets = append(r.layout.Planets, protocol.PlanetSlot{ID: d.Name, Planet: d.Name, Home: home, Size: d.VisualRadius})
		radii = append(radii, d.Radius)
	}
	sort.Float64s(radii)
	r.layout.Rings = radii
	r.orbit = drag.NewOrbitBoard(drag.OrbitConfig{
		Puzzle:           progression.SolarSystem,
		Frame:            transform(r.tune.Frames.Solar),
		Height:           r.tune.Frames.Solar.Height,
		Radii:            radii,
		Threshold:        r.tune.Snap.Threshold,
		PreviewThreshold: r.tune.Snap.PreviewThreshold,
		DeadZone:         r.tune.Snap.DeadZone,
		Tolerance:        r.tune.Snap.Tolerance,
	}, planets)

	// Table 2: one sign per element.
	var signs []drag.SignSpec
	for _, e := range r.cats.Zodiac.Elements {
		sign := e.Signs[rng.Intn(len(e.Signs))]
		home := spatial.Vec3(e.Home)
		signs = append(signs, drag.SignSpec{ID: sign, Label: e.Element, Home: home})
		r.layout.Signs = append(r.layout.Signs, protocol.SignSlot{ID: sign, Sign: sign, Element: e.Element, Home: home})
	}
	var regions []drag.Region
	for _, img := range r.cats.Zodiac.Images {
		regions = append(regions, drag.Region{
			Label:  img.Element,
			Center: spatial.Vec2(img.Center),
			Width:  img.Width,
			Height: img.Height,
		})
		r.layout.Regions = append(r.layout.Regions, protocol.RegionRef{Element: img.Element, Center: img.Center, Width: img.Width, Height: img.Height})
	}
	r.zodiac = drag.NewImageBoard(drag.ImageConfig{
		Puzzle:  progression.Table2,
		Frame:   transform(r.tune.Frames.Table2),
		Height:  r.tune.Frames.Table2.Height,
		SlotZ:   r.cats.Zodiac.SlotZ,
		Regions: regions,
	}, signs)

	// Blackboard: one southern constellation.
	ids := r.cats.Constellations.SortedIDs()
	def := r.cats.Constellations.ByID[ids[rng.Intn(len(ids))]]
	stars := make([]constellation.Star, 0, len(def.Stars))
	ref := protocol.ConstellationRef{ID: def.ID, Name: def.Name}
	for _, s := range def.Stars {
		stars = append(stars, constellation.Star{Name: s.Name, Position: spatial.Vec3(s.Position)})
		ref.Stars = append(ref.Stars, protocol.StarRef{Name: s.Name, Position: s.Position, Radius: s.Radius})
	}
	answer := make([]constellation.Edge, 0, len(def.Connections))
	for _, c := range def.Connections {
		answer = append(answer, constellation.NewEdge(c[0], c[1]))
	}
	g, err := constellation.New(stars, answer)
	if err != nil {
		return fmt.Errorf("room: constellation %s: %w", def.ID, err)
	}
	r.graph = g
	r.layout.Constellation = ref
	r.blackboard = transform(r.tune.Frames.Blackboard).Matrix()

	// Star background: northern constellations, one highlighted star each.
	north := r.cats.Northern.Defs
	n := r.tune.Letters.Controls
	if n > len(north) {
		n = len(north)
	}
	var targets []letters.Target
	for i, ni := range rng.Perm(len(north))[:n] {
		d := north[ni]
		star := d.Stars[rng.Intn(len(d.Stars))]
		targets = append(targets, letters.Target{Constellation: d.Name, Letter: star})
		r.layout.Northern = append(r.layout.Northern, protocol.NorthernRef{Index: i, Name: d.Name, Stars: d.Stars, Highlight: star})
	}
	lp, err := letters.New(r.cats.Greek.Alphabet, targets)
	if err != nil {
		return fmt.Errorf("room: %w", err)
	}
	r.letters = lp

	for _, p := range r.tune.Proximity.POIs {
		r.layout.POIs = append(r.layout.POIs, protocol.POIRef{ID: p.ID, Position: p.Position, Threshold: p.Threshold})
	}
	r.layout.Lamps = r.lampIDs()
	for _, id := range []string{
		texts.PromptDoor, texts.PromptKey, texts.PromptPuzzle, texts.ToastKeyNeeded,
		texts.ButtonGuide, texts.ButtonExit, texts.ButtonStart, texts.ButtonNext,
		texts.IntroTitle, texts.IntroStory1, texts.IntroStory2,
		texts.EndText, texts.EndThanks, texts.EndReload,
	} {
		r.layout.Texts[id] = r.texts.Get(id)
	}
	for _, p := range r.tune.PuzzleOrder {
		r.layout.Texts["guide:"+p] = r.texts.Guide(p)
	}
	return nil
}

func (r *Room) pois() []proximity.POI {
	out := make([]proximity.POI, 0, len(r.tune.Proximity.POIs))
	for _, p := range r.tune.Proximity.POIs {
		poi := proximity.POI{ID: p.ID, Position: spatial.Vec3(p.Position), Threshold: p.Threshold}
		if p.ID == proximity.Case {
			poi.Active = func() bool { return r.caseOpen && !r.hasKey }
		}
		out = append(out, poi)
	}
	return out
}

func (r *Room) lampIDs() []string {
	set := map[string]bool{}
	for _, ls := range r.tune.Lamps.Reward {
		for _, l := range ls {
			set[l] = true
		}
	}
	for _, ls := range r.tune.Lamps.Arm {
		for _, l := range ls {
			set[l] = true
		}
	}
	out := make([]string, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// modeFor maps a puzzle to the view mode that plays it.
func modeFor(puzzle string) viewmode.Mode {
	switch puzzle {
	case progression.Blackboard:
		return viewmode.Mode{Kind: viewmode.Blackboard}
	case progression.StarBackground:
		return viewmode.Mode{Kind: viewmode.StarBackground}
	default:
		return viewmode.Mode{Kind: viewmode.TopDown, TableID: puzzle}
	}
}

// puzzleFor is the inverse of modeFor; "" in free roam.
func puzzleFor(m viewmode.Mode) string {
	switch m.Kind {
	case viewmode.TopDown:
		return m.TableID
	case viewmode.Blackboard:
		return progression.Blackboard
	case viewmode.StarBackground:
		return progression.StarBackground
	default:
		return ""
	}
}

func transform(f tuning.Frame) spatial.Transform {
	return spatial.Transform{Position: spatial.Vec3(f.Position), RotationDeg: spatial.Vec3(f.Rotation)}
}

func frameRef(f tuning.Frame) protocol.Frame {
	return protocol.Frame{Position: f.Position, Rotation: f.Rotation, Height: f.Height}
}

func poseFromTuning(p tuning.Pose) viewmode.Pose {
	return viewmode.Pose{Position: spatial.Vec3(p.Position), Rotation: spatial.Vec3(p.Rotation)}
}

func poseFromWire(p protocol.Pose) viewmode.Pose {
	return viewmode.Pose{Position: spatial.Vec3(p.Position), Rotation: spatial.Vec3(p.Rotation)}
}

func clampFromTuning(c tuning.Camera) viewmode.Clamp {
	out := viewmode.Clamp{Bounds: rect(c.Bounds)}
	for _, f := range c.Footprints {
		out.Footprints = append(out.Footprints, rect(f))
	}
	return out
}

func rect(r tuning.Rect) viewmode.Rect {
	return viewmode.Rect{MinX: r.MinX, MaxX: r.MaxX, MinZ: r.MinZ, MaxZ: r.MaxZ}
}
