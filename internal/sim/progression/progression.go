// Package progression holds the linear unlock order of the room's puzzles.
//
// The FSM only does bookkeeping: each puzzle engine decides when its own puzzle is solved and
// reports it through MarkSolved. The first report triggers the reward, arms the next puzzle and
// schedules the automatic return to free roam; later reports are ignored.
package progression

import (
	"fmt"
	"time"
)

const (
	SolarSystem    = "solar-system"
	Blackboard     = "blackboard"
	Table2         = "table-2"
	StarBackground = "star-background"
)

var DefaultOrder = []string{SolarSystem, Blackboard, Table2, StarBackground}

// Effects receives the world-state side effects of a solve.
type Effects interface {
	Reward(puzzle string)
	// Arm is called with the next puzzle in order, or "" once everything is solved.
	Arm(next string)
	ScheduleAutoExit(puzzle string, delay time.Duration)
}

type Options struct {
	AutoExit time.Duration
	// AutoExitOverrides replaces AutoExit for specific puzzles.
	AutoExitOverrides map[string]time.Duration
}

type FSM struct {
	order  []string
	index  map[string]int
	solved map[string]bool
	fx     Effects
	opt    Options
}

func New(order []string, fx Effects, opt Options) (*FSM, error) {
	if len(order) == 0 {
		return nil, fmt.Errorf("progression: empty puzzle order")
	}
	f := &FSM{
		order:  append([]string(nil), order...),
		index:  make(map[string]int, len(order)),
		solved: make(map[string]bool, len(order)),
		fx:     fx,
		opt:    opt,
	}
	for i, p := range order {
		if p == "" {
			return nil, fmt.Errorf("progression: empty puzzle id at %d", i)
		}
		if _, dup := f.index[p]; dup {
			return nil, fmt.Errorf("progression: duplicate puzzle %q", p)
		}
		f.index[p] = i
	}
	return f, nil
}

func (f *FSM) Order() []string { return append([]string(nil), f.order...) }

func (f *FSM) Known(p string) bool {
	_, ok := f.index[p]
	return ok
}

// NextAvailable returns the first unsolved puzzle in order, or "" when all are solved.
func (f *FSM) NextAvailable() string {
	for _, p := range f.order {
		if !f.solved[p] {
			return p
		}
	}
	return ""
}

func (f *FSM) IsEnterable(p string) bool {
	return p != "" && p == f.NextAvailable() && !f.solved[p]
}

func (f *FSM) Solved(p string) bool { return f.solved[p] }

func (f *FSM) SolvedCount() int {
	n := 0
	for _, p := range f.order {
		if f.solved[p] {
			n++
		}
	}
	return n
}

func (f *FSM) AllSolved() bool { return f.NextAvailable() == "" }

// MarkSolved records a solve. It returns true only for the first call per puzzle; only that
// call triggers effects.
func (f *FSM) MarkSolved(p string) bool {
	if !f.Known(p) || f.solved[p] {
		return false
	}
	f.solved[p] = true
	if f.fx == nil {
		return true
	}
	f.fx.Reward(p)
	f.fx.Arm(f.NextAvailable())
	f.fx.ScheduleAutoExit(p, f.AutoExitDelay(p))
	return true
}

func (f *FSM) AutoExitDelay(p string) time.Duration {
	if d, ok := f.opt.AutoExitOverrides[p]; ok {
		return d
	}
	return f.opt.AutoExit
}
