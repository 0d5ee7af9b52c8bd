// Package timeline runs named sequences of delayed steps against an externally advanced clock.
//
// Each step fires After its predecessor (the first one After the sequence start). Advancing the
// clock fires every due step in order; cancelling a sequence drops its remaining steps. Starting
// a sequence under a name that is still playing cancels the old one first.
package timeline

import (
	"sort"
	"time"
)

type Step struct {
	After time.Duration
	Do    func()
}

type sequence struct {
	name  string
	order uint64
	steps []Step
	next  int
	due   time.Time
}

type Timeline struct {
	now   time.Time
	seq   uint64
	items map[string]*sequence
}

func New(now time.Time) *Timeline {
	return &Timeline{now: now, items: map[string]*sequence{}}
}

func (t *Timeline) Now() time.Time { return t.now }

// Play starts a named sequence. Empty sequences are ignored.
func (t *Timeline) Play(name string, steps ...Step) {
	t.Cancel(name)
	if len(steps) == 0 {
		return
	}
	t.seq++
	t.items[name] = &sequence{
		name:  name,
		order: t.seq,
		steps: steps,
		due:   t.now.Add(steps[0].After),
	}
}

// After schedules a single delayed callback.
func (t *Timeline) After(name string, d time.Duration, fn func()) {
	t.Play(name, Step{After: d, Do: fn})
}

func (t *Timeline) Cancel(name string) bool {
	if _, ok := t.items[name]; !ok {
		return false
	}
	delete(t.items, name)
	return true
}

func (t *Timeline) Active(name string) bool {
	_, ok := t.items[name]
	return ok
}

func (t *Timeline) Len() int { return len(t.items) }

// Advance moves the clock to now and fires every due step in due order. While a step runs the
// clock reads its due time, so steps scheduled from a callback are timed from that moment.
func (t *Timeline) Advance(now time.Time) {
	target := t.now
	if now.After(target) {
		target = now
	}
	for {
		s := t.nextDue(target)
		if s == nil {
			break
		}
		if s.due.After(t.now) {
			t.now = s.due
		}
		step := s.steps[s.next]
		s.next++
		if s.next >= len(s.steps) {
			delete(t.items, s.name)
		} else {
			s.due = s.due.Add(s.steps[s.next].After)
		}
		if step.Do != nil {
			step.Do()
		}
	}
	t.now = target
}

func (t *Timeline) nextDue(until time.Time) *sequence {
	var due []*sequence
	for _, s := range t.items {
		if !s.due.After(until) {
			due = append(due, s)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].due.Equal(due[j].due) {
			return due[i].due.Before(due[j].due)
		}
		return due[i].order < due[j].order
	})
	return due[0]
}
