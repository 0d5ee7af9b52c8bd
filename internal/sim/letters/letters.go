// Package letters is the star-background puzzle: each control cycles through the Greek alphabet
// and must end on the letter of the highlighted star in its constellation.
package letters

import "fmt"

// Target is one control's expected answer.
type Target struct {
	Constellation string
	Letter        string
}

type Puzzle struct {
	alphabet []string
	index    map[string]int
	targets  []Target
	current  []int
	solved   bool
}

func New(alphabet []string, targets []Target) (*Puzzle, error) {
	if len(alphabet) == 0 {
		return nil, fmt.Errorf("letters: empty alphabet")
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("letters: no targets")
	}
	idx := make(map[string]int, len(alphabet))
	for i, l := range alphabet {
		idx[l] = i
	}
	for _, t := range targets {
		if _, ok := idx[t.Letter]; !ok {
			return nil, fmt.Errorf("letters: %s: %q is not in the alphabet", t.Constellation, t.Letter)
		}
	}
	return &Puzzle{
		alphabet: alphabet,
		index:    idx,
		targets:  append([]Target(nil), targets...),
		current:  make([]int, len(targets)),
	}, nil
}

func (p *Puzzle) Len() int { return len(p.targets) }
func (p *Puzzle) Solved() bool { return p.solved }
func (p *Puzzle) Targets() []Target { return append([]Target(nil), p.targets...) }

// Letter returns the letter control i currently shows.
func (p *Puzzle) Letter(i int) string {
	if i < 0 || i >= len(p.current) {
		return ""
	}
	return p.alphabet[p.current[i]]
}

func (p *Puzzle) Matches(i int) bool {
	if i < 0 || i >= len(p.targets) {
		return false
	}
	return p.alphabet[p.current[i]] == p.targets[i].Letter
}

// Complete reports whether every control shows its target letter.
func (p *Puzzle) Complete() bool {
	for i := range p.targets {
		if !p.Matches(i) {
			return false
		}
	}
	return true
}

// Step moves control i by delta letters, wrapping around the alphabet. It returns the new letter
// and whether this step solved the puzzle. Completion is only evaluated on a step, so a control
// that starts on its answer does not solve the puzzle by itself.
func (p *Puzzle) Step(i, delta int) (letter string, solved bool, ok bool) {
	if p.solved || i < 0 || i >= len(p.current) {
		return "", false, false
	}
	n := len(p.alphabet)
	p.current[i] = ((p.current[i]+delta)%n + n) % n
	letter = p.alphabet[p.current[i]]
	if p.Complete() {
		p.solved = true
		return letter, true, true
	}
	return letter, false, true
}
