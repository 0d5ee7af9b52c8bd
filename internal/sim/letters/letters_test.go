package letters

import "testing"

var greek = []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta", "theta", "iota", "kappa", "lambda", "mu", "nu", "xi", "omicron", "pi", "rho", "sigma", "tau", "upsilon", "phi", "chi", "psi", "omega"}

func TestStepWraps(t *testing.T) {
	p, err := New(greek, []Target{{"Ursa Major", "eta"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l, _, _ := p.Step(0, -1); l != "omega" {
		t.Fatalf("alpha-1=%s", l)
	}
	if l, _, _ := p.Step(0, 1); l != "alpha" {
		t.Fatalf("omega+1=%s", l)
	}
	if _, _, ok := p.Step(3, 1); ok {
		t.Fatalf("out of range control accepted")
	}
}

func TestSolveFreezes(t *testing.T) {
	p, err := New(greek, []Target{{"Lyra", "beta"}, {"Cygnus", "omega"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, solved, _ := p.Step(0, 1); solved || !p.Matches(0) {
		t.Fatalf("one match is not a solve")
	}
	_, solved, ok := p.Step(1, -1)
	if !ok || !solved || !p.Solved() {
		t.Fatalf("expected solve")
	}
	if _, _, ok := p.Step(0, 1); ok {
		t.Fatalf("solved puzzle accepted a step")
	}
	if p.Letter(0) != "beta" {
		t.Fatalf("letter changed after solve: %s", p.Letter(0))
	}
}

func TestInitialMatchNeedsAStep(t *testing.T) {
	p, err := New(greek, []Target{{"Cassiopeia", "alpha"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !p.Complete() || p.Solved() {
		t.Fatalf("complete=%v solved=%v", p.Complete(), p.Solved())
	}
	p.Step(0, 1)
	if _, solved, _ := p.Step(0, -1); !solved {
		t.Fatalf("returning to alpha should solve")
	}
}

func TestNewRejectsUnknownLetter(t *testing.T) {
	if _, err := New(greek, []Target{{"Orion", "digamma"}}); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := New(greek, nil); err == nil {
		t.Fatalf("expected error for no targets")
	}
}
