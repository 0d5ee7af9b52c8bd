// Package constellation is the blackboard line-drawing puzzle.
//
// The player connects stars two clicks at a time. The puzzle is solved when the drawn edges
// equal the answer edges exactly; after that the graph is frozen.
package constellation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zyedidia/generic/mapset"

	"starroom.ai/internal/sim/spatial"
)

// EndpointMargin is the fraction of a line's length, measured from either end, where a line
// click is ignored in favor of the star underneath.
const EndpointMargin = 0.1

// Edge is an unordered star pair stored with A < B.
type Edge struct {
	A, B string
}

func NewEdge(a, b string) Edge {
	if b < a {
		a, b = b, a
	}
	return Edge{A: a, B: b}
}

// Key is the wire id of the edge. Star names may contain '-', so '|' separates them.
func (e Edge) Key() string { return e.A + "|" + e.B }

func ParseEdgeKey(s string) (Edge, error) {
	a, b, ok := strings.Cut(s, "|")
	if !ok || a == "" || b == "" {
		return Edge{}, fmt.Errorf("bad edge key %q", s)
	}
	return NewEdge(a, b), nil
}

type Star struct {
	Name     string
	Position spatial.Vec3
}

type ChangeKind int

const (
	Ignored ChangeKind = iota
	Selected
	Deselected
	EdgeAdded
	EdgeRemoved
)

func (k ChangeKind) String() string {
	switch k {
	case Selected:
		return "selected"
	case Deselected:
		return "deselected"
	case EdgeAdded:
		return "edge_added"
	case EdgeRemoved:
		return "edge_removed"
	default:
		return "ignored"
	}
}

// Change describes what a click did.
type Change struct {
	Kind ChangeKind
	Star string
	Edge Edge
	// Deselected is the star whose selection a line removal or edge creation cleared.
	Deselected string
	// Solved is true only on the click that completed the puzzle.
	Solved bool
}

type Graph struct {
	stars  map[string]Star
	answer mapset.Set[Edge]
	drawn  mapset.Set[Edge]

	selected  string
	hoverStar string
	hoverLine *Edge
	solved    bool
}

func New(stars []Star, answer []Edge) (*Graph, error) {
	g := &Graph{
		stars:  make(map[string]Star, len(stars)),
		answer: mapset.New[Edge](),
		drawn:  mapset.New[Edge](),
	}
	for _, s := range stars {
		g.stars[s.Name] = s
	}
	for _, e := range answer {
		e = NewEdge(e.A, e.B)
		if e.A == e.B {
			return nil, fmt.Errorf("constellation: self edge %s", e.A)
		}
		if _, ok := g.stars[e.A]; !ok {
			return nil, fmt.Errorf("constellation: unknown star %s", e.A)
		}
		if _, ok := g.stars[e.B]; !ok {
			return nil, fmt.Errorf("constellation: unknown star %s", e.B)
		}
		g.answer.Put(e)
	}
	if g.answer.Size() == 0 {
		return nil, fmt.Errorf("constellation: empty answer")
	}
	return g, nil
}

func (g *Graph) Solved() bool { return g.solved }
func (g *Graph) Selected() string { return g.selected }
func (g *Graph) HoveredStar() string { return g.hoverStar }

func (g *Graph) HoveredLine() (Edge, bool) {
	if g.hoverLine == nil {
		return Edge{}, false
	}
	return *g.hoverLine, true
}

func (g *Graph) Has(e Edge) bool { return g.drawn.Has(NewEdge(e.A, e.B)) }

func (g *Graph) IsCorrect(e Edge) bool { return g.answer.Has(NewEdge(e.A, e.B)) }

// Edges returns the drawn edges sorted by key.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.drawn.Size())
	g.drawn.Each(func(e Edge) { out = append(out, e) })
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

func (g *Graph) Stars() []Star {
	out := make([]Star, 0, len(g.stars))
	for _, s := range g.stars {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Complete reports whether the drawn set equals the answer set.
func (g *Graph) Complete() bool {
	if g.drawn.Size() != g.answer.Size() {
		return false
	}
	ok := true
	g.answer.Each(func(e Edge) {
		if !g.drawn.Has(e) {
			ok = false
		}
	})
	return ok
}

// ToggleEdge adds the edge between a and b if it is not drawn yet. Adding an existing edge is a
// no-op and reports false.
func (g *Graph) ToggleEdge(a, b string) (Edge, bool) {
	e := NewEdge(a, b)
	if g.solved || e.A == e.B || g.drawn.Has(e) {
		return e, false
	}
	if _, ok := g.stars[e.A]; !ok {
		return e, false
	}
	if _, ok := g.stars[e.B]; !ok {
		return e, false
	}
	g.drawn.Put(e)
	return e, true
}

func (g *Graph) RemoveEdge(e Edge) bool {
	e = NewEdge(e.A, e.B)
	if g.solved || !g.drawn.Has(e) {
		return false
	}
	g.drawn.Remove(e)
	if g.hoverLine != nil && *g.hoverLine == e {
		g.hoverLine = nil
	}
	return true
}

// ClickStar runs the selection protocol for a click on star.
func (g *Graph) ClickStar(star string) Change {
	if g.solved {
		return Change{}
	}
	if _, ok := g.stars[star]; !ok {
		return Change{}
	}
	if g.hoverStar == star {
		g.hoverStar = ""
	}
	switch {
	case g.selected == "":
		g.selected = star
		return Change{Kind: Selected, Star: star}
	case g.selected == star:
		g.selected = ""
		return Change{Kind: Deselected, Star: star}
	}
	first := g.selected
	g.selected = ""
	e, added := g.ToggleEdge(first, star)
	if !added {
		return Change{Kind: Deselected, Star: star, Edge: e, Deselected: first}
	}
	return Change{Kind: EdgeAdded, Star: star, Edge: e, Deselected: first, Solved: g.settle()}
}

// ClickLine handles a click that hit the drawn line e at point (board-local). It returns Ignored
// when the click is too close to an endpoint or the line is not hover-highlighted; callers then
// fall through to star hits.
func (g *Graph) ClickLine(e Edge, point spatial.Vec3) Change {
	e = NewEdge(e.A, e.B)
	if g.solved || !g.drawn.Has(e) {
		return Change{}
	}
	a, okA := g.stars[e.A]
	b, okB := g.stars[e.B]
	if okA && okB {
		margin := a.Position.Sub(b.Position).Len() * EndpointMargin
		if point.Sub(a.Position).Len() <= margin || point.Sub(b.Position).Len() <= margin {
			return Change{}
		}
	}
	if g.hoverLine == nil || *g.hoverLine != e {
		return Change{}
	}
	g.RemoveEdge(e)
	c := Change{Kind: EdgeRemoved, Edge: e, Deselected: g.selected}
	g.selected = ""
	c.Solved = g.settle()
	return c
}

// HoverStar highlights star; "" clears the star hover.
func (g *Graph) HoverStar(star string) {
	if g.solved {
		return
	}
	g.hoverStar = star
}

// HoverLine highlights a drawn line; nil clears the line hover.
func (g *Graph) HoverLine(e *Edge) {
	if g.solved {
		return
	}
	if e == nil {
		g.hoverLine = nil
		return
	}
	n := NewEdge(e.A, e.B)
	if !g.drawn.Has(n) {
		g.hoverLine = nil
		return
	}
	g.hoverLine = &n
}

// Cancel drops selection and hover state. Drawn edges are kept.
func (g *Graph) Cancel() {
	g.selected = ""
	g.hoverStar = ""
	g.hoverLine = nil
}

func (g *Graph) settle() bool {
	if g.solved || !g.Complete() {
		return false
	}
	g.solved = true
	g.Cancel()
	return true
}
